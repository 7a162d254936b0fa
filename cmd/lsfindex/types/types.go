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

// Package types implements the types subcommand.
package types

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/QubitProducts/lsfindex/cmd/lsfindex/root"
	"github.com/QubitProducts/lsfindex/indexer"
)

func init() {
	root.RootCmd.AddCommand(typesCmd)
}

var typesCmd = &cobra.Command{
	Use:   "types LOG|DIR...",
	Short: "list the record types present in logs, with counts",
	Args:  cobra.MinimumNArgs(1),
	RunE:  run,
}

type typeCount struct {
	name  string
	known bool
	count int
}

func run(cmd *cobra.Command, args []string) error {
	idxs, err := root.OpenIndexes(context.Background(), args)
	if err != nil {
		return err
	}
	defer indexer.NewArchive(idxs...).Cleanup()

	counts := map[uint16]*typeCount{}
	for _, idx := range idxs {
		for _, t := range idx.Types() {
			tc, ok := counts[t]
			if !ok {
				tc = &typeCount{name: idx.TypeName(t), known: idx.IsKnownType(t)}
				counts[t] = tc
			}
			tc.count += idx.CountOfType(t)
		}
	}

	ids := make([]int, 0, len(counts))
	for t := range counts {
		ids = append(ids, int(t))
	}
	sort.Ints(ids)

	tw := tabwriter.NewWriter(os.Stdout, 0, 8, 1, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCOUNT")
	for _, id := range ids {
		tc := counts[uint16(id)]
		name := tc.name
		if !tc.known {
			name = "(unknown)"
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\n", id, name, tc.count)
	}
	return tw.Flush()
}
