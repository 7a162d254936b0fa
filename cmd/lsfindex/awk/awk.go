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

// Package awk implements the awk subcommand, which feeds matching records
// through an awk program.
package awk

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/QubitProducts/lsfindex/cmd/lsfindex/root"
	"github.com/QubitProducts/lsfindex/config"
	"github.com/QubitProducts/lsfindex/indexer"
	"github.com/QubitProducts/lsfindex/ql"
)

var (
	logs      []string
	query     string
	fs        string
	format    string
	tmplStr   string
	startTime = root.StartTime()
	endTime   = root.EndTime()
)

func init() {
	root.RootCmd.AddCommand(awkCmd)

	awkCmd.Flags().StringSliceVarP(&logs, "log", "l", []string{"."}, "logs, or directories of logs, to read")
	awkCmd.Flags().StringVarP(&query, "query", "q", "", "label query selecting the records to process")
	awkCmd.Flags().StringVarP(&fs, "field-separator", "F", "", "awk field separator")
	awkCmd.Flags().Var(&startTime, "start", "start of time range")
	awkCmd.Flags().Var(&endTime, "end", "end of time range")
	awkCmd.Flags().StringVar(&format, "fmt", config.FormatText, "format records are given to awk in")
	awkCmd.Flags().StringVar(&tmplStr, "template", "", "Go template used by the template format")
}

var awkCmd = &cobra.Command{
	Use:   "awk PROGRAM",
	Short: "run an awk program over records",
	Long: `awk formats each matching record as a line and runs the program over
them. The rfc3339 function formats a timestamp in seconds.`,
	Example: `lsfindex awk -q type=Sample '{ n[$3]++ } END { for (t in n) print t, n[t] }'`,
	Args:    cobra.ExactArgs(1),
	RunE:    run,
}

func run(cmd *cobra.Command, args []string) error {
	var matcher ql.MatchFunc
	if query != "" {
		var err error
		matcher, err = ql.Compile(query)
		if err != nil {
			return err
		}
	}

	idxs, err := root.OpenIndexes(context.Background(), logs)
	if err != nil {
		return err
	}
	archive := indexer.NewArchive(idxs...)
	defer archive.Cleanup()

	pr, pw := io.Pipe()
	sink, err := root.NewSink(pw, format, tmplStr)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(context.Background())
	g.Go(func() error {
		err := archive.Search(ctx, func(r *indexer.Record) error {
			return sink.WriteMessage(ctx, r)
		}, matcher, startTime.Seconds(), endTime.Seconds())
		err = root.SearchDone(err)
		if cerr := sink.Close(); err == nil {
			err = cerr
		}
		pw.CloseWithError(err)
		if err == io.ErrClosedPipe {
			// the program stopped reading early
			return nil
		}
		return err
	})
	g.Go(func() error {
		err := ql.RunAWK(args[0], fs, pr, os.Stdout)
		pr.Close()
		return err
	})

	return g.Wait()
}
