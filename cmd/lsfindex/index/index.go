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

// Package index implements the index subcommand, which summarises logs.
package index

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/QubitProducts/lsfindex/cmd/lsfindex/root"
	"github.com/QubitProducts/lsfindex/indexer"
)

var maxRecords int

func init() {
	root.RootCmd.AddCommand(indexCmd)
	indexCmd.Flags().IntVar(&maxRecords, "max-records", 0, "stop indexing each log after this many records")
}

var indexCmd = &cobra.Command{
	Use:     "index LOG|DIR...",
	Short:   "index logs and print a summary of each",
	Long:    `index builds (or loads cached) indexes for logs, writing index cache files alongside them.`,
	Example: `lsfindex index --schema schema.yaml logs/`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    run,
}

func run(cmd *cobra.Command, args []string) error {
	var opts []indexer.Opt
	if maxRecords > 0 {
		opts = append(opts, indexer.WithMaxRecords(maxRecords))
	}

	idxs, err := root.OpenIndexes(context.Background(), args, opts...)
	if err != nil {
		return err
	}
	defer indexer.NewArchive(idxs...).Cleanup()

	tw := tabwriter.NewWriter(os.Stdout, 0, 8, 1, ' ', 0)
	fmt.Fprintln(tw, "LOG\tID\tRECORDS\tTYPES\tSTART\tEND\tORDERED\tNOTES")
	for _, idx := range idxs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%.3f\t%.3f\t%v\t%s\n",
			idx.Path(), idx.ID(), idx.RecordCount(), len(idx.Types()),
			idx.StartTime(), idx.EndTime(), idx.Ordered(), notes(idx))
	}
	return tw.Flush()
}

func notes(idx *indexer.Index) string {
	var s string
	if n := idx.Truncated(); n > 0 {
		s += fmt.Sprintf("truncated %d bytes ", n)
	}
	if err := idx.Corruption(); err != nil {
		s += err.Error() + " "
	}
	if u := idx.UnknownTypes(); len(u) > 0 {
		s += fmt.Sprintf("unknown types %v", u)
	}
	return s
}
