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

// Package search implements the search subcommand, which finds records
// across logs by label query and time range.
package search

import (
	"context"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/QubitProducts/lsfindex/cmd/lsfindex/root"
	"github.com/QubitProducts/lsfindex/indexer"
	"github.com/QubitProducts/lsfindex/ql"
)

var (
	logs      []string
	format    string
	tmplStr   string
	count     int
	startTime = root.StartTime()
	endTime   = root.EndTime()

	errEnough = errors.New("enough records")
)

func init() {
	root.RootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringSliceVarP(&logs, "log", "l", []string{"."}, "logs, or directories of logs, to search")
	searchCmd.Flags().Var(&startTime, "start", "start of search time range (default to the first record)")
	searchCmd.Flags().Var(&endTime, "end", "end of search time range (default to the last record)")
	searchCmd.Flags().StringVar(&format, "fmt", "", "output format, text, jsonl, logfmt, template or none")
	searchCmd.Flags().StringVar(&tmplStr, "template", "", "Go template used by the template format")
	searchCmd.Flags().IntVar(&count, "count", 0, "maximum number of records to return")
}

var searchCmd = &cobra.Command{
	Use:   "search [QUERY...]",
	Short: "search logs for records matching a label query",
	Long: `search finds records whose labels match the query, in time order of
the logs holding them. Labels are type, system, entity, dst and dst_entity.`,
	Example: `lsfindex search -l logs/ --start now-1h type=Status system~"uav-[0-9]+"`,
	RunE:    run,
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	idxs, err := root.OpenIndexes(ctx, logs)
	if err != nil {
		return err
	}
	archive := indexer.NewArchive(idxs...)
	defer archive.Cleanup()
	prometheus.MustRegister(archive)

	sink, err := root.NewSink(os.Stdout, format, tmplStr)
	if err != nil {
		return err
	}

	n := 0
	msgFunc := func(r *indexer.Record) error {
		if err := sink.WriteMessage(ctx, r); err != nil {
			return err
		}
		n++
		if count > 0 && n >= count {
			return errEnough
		}
		return nil
	}

	err = root.SearchDone(archive.Search(ctx, msgFunc, matcher, startTime.Seconds(), endTime.Seconds()))
	if err == errEnough {
		err = nil
	}
	if cerr := sink.Close(); err == nil {
		err = cerr
	}
	return err
}
