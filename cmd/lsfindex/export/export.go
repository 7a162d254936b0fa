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

// Package export implements the export subcommand, which writes matching
// records to a file.
package export

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/glog"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/QubitProducts/lsfindex/cmd/lsfindex/root"
	"github.com/QubitProducts/lsfindex/config"
	"github.com/QubitProducts/lsfindex/indexer"
	"github.com/QubitProducts/lsfindex/ql"
)

var (
	logs      []string
	out       string
	format    string
	tmplStr   string
	startTime = root.StartTime()
	endTime   = root.EndTime()
)

func init() {
	root.RootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringSliceVarP(&logs, "log", "l", []string{"."}, "logs, or directories of logs, to export from")
	exportCmd.Flags().StringVarP(&out, "out", "o", "", "file to write, gzipped if it ends in .gz")
	exportCmd.Flags().Var(&startTime, "start", "start of export time range")
	exportCmd.Flags().Var(&endTime, "end", "end of export time range")
	exportCmd.Flags().StringVar(&format, "fmt", config.FormatJSON, "output format, text, jsonl, logfmt or template")
	exportCmd.Flags().StringVar(&tmplStr, "template", "", "Go template used by the template format")
	exportCmd.MarkFlagRequired("out")
}

var exportCmd = &cobra.Command{
	Use:     "export [QUERY...]",
	Short:   "export records matching a label query to a file",
	Example: `lsfindex export -l logs/ -o status.jsonl.gz type=Status`,
	RunE:    run,
}

// create opens fn for writing, through a temporary file that the returned
// commit function renames into place, or removes if ok is false.
func create(fn string) (io.WriteCloser, func(ok bool) error, error) {
	f, err := os.CreateTemp(filepath.Dir(fn), ".export-*")
	if err != nil {
		return nil, nil, err
	}
	commit := func(ok bool) error {
		if !ok {
			return os.Remove(f.Name())
		}
		return os.Rename(f.Name(), fn)
	}
	if !strings.HasSuffix(fn, ".gz") {
		return f, commit, nil
	}

	zw := gzip.NewWriter(f)
	return &gzipFile{Writer: zw, f: f}, commit, nil
}

type gzipFile struct {
	*gzip.Writer
	f *os.File
}

func (g *gzipFile) Close() error {
	if err := g.Writer.Close(); err != nil {
		g.f.Close()
		return err
	}
	return g.f.Close()
}

func run(cmd *cobra.Command, args []string) error {
	var matcher ql.MatchFunc
	if len(args) > 0 {
		var err error
		matcher, err = ql.Compile(strings.Join(args, " "))
		if err != nil {
			return err
		}
	}

	ctx := context.Background()
	idxs, err := root.OpenIndexes(ctx, logs)
	if err != nil {
		return err
	}
	archive := indexer.NewArchive(idxs...)
	defer archive.Cleanup()

	w, commit, err := create(out)
	if err != nil {
		return errors.Wrap(err, "creating export file")
	}

	sink, err := root.NewSink(w, format, tmplStr)
	if err != nil {
		w.Close()
		commit(false)
		return err
	}

	n := 0
	err = archive.Search(ctx, func(r *indexer.Record) error {
		n++
		return sink.WriteMessage(ctx, r)
	}, matcher, startTime.Seconds(), endTime.Seconds())
	err = root.SearchDone(err)
	if cerr := sink.Close(); err == nil {
		err = cerr
	}
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		commit(false)
		return errors.Wrapf(err, "exporting to %s", out)
	}
	if err := commit(true); err != nil {
		return err
	}

	glog.Infof("exported %d records to %s", n, out)
	return nil
}
