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
	"bytes"
	"io"

	"golang.org/x/exp/mmap"
)

// source is the read-only backing store of an index.
type source interface {
	io.ReaderAt
	io.Closer
	Len() int
}

func openSource(fn string) (source, error) {
	return mmap.Open(fn)
}

type byteSource struct {
	*bytes.Reader
}

func (byteSource) Close() error { return nil }

func newByteSource(bs []byte) source {
	return byteSource{bytes.NewReader(bs)}
}
