// Copyright 2016 Qubit Digital Ltd.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package indexer

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/QubitProducts/lsfindex/schema"
	"github.com/golang/glog"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// Open indexes the log in fn like Build, but also accepts gzipped logs,
// which are inflated to a sibling file without the .gz suffix first. An
// inflated sibling newer than the gzipped log is reused.
func Open(ctx context.Context, fn string, s *schema.Schema, opts ...Opt) (*Index, error) {
	if strings.HasSuffix(fn, ".gz") {
		plain := strings.TrimSuffix(fn, ".gz")
		if err := inflate(fn, plain); err != nil {
			return nil, err
		}
		fn = plain
	}
	return Build(ctx, fn, s, opts...)
}

func inflate(src, dst string) error {
	sfi, err := os.Stat(src)
	if err != nil {
		return err
	}
	if dfi, err := os.Stat(dst); err == nil && !dfi.ModTime().Before(sfi.ModTime()) {
		glog.V(2).Infof("reusing inflated log %s", dst)
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	zr, err := gzip.NewReader(in)
	if err != nil {
		return errors.Wrapf(err, "reading gzipped log %s", src)
	}
	defer zr.Close()

	out, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".tmp")
	if err != nil {
		return err
	}
	defer os.Remove(out.Name())

	n, err := io.Copy(out, zr)
	if err != nil {
		out.Close()
		return errors.Wrapf(err, "inflating %s", src)
	}
	if err := out.Close(); err != nil {
		return err
	}

	glog.V(1).Infof("inflated %s to %s, %d bytes", src, dst, n)
	return os.Rename(out.Name(), dst)
}
