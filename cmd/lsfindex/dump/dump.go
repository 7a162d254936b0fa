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

// Package dump implements the dump subcommand, which prints records from a
// single log by position or type.
package dump

import (
	"context"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/QubitProducts/lsfindex/cmd/lsfindex/root"
	"github.com/QubitProducts/lsfindex/indexer"
)

var (
	typeName string
	limit    int
	at       []int
	format   string
	tmplStr  string
)

func init() {
	root.RootCmd.AddCommand(dumpCmd)

	dumpCmd.Flags().StringVar(&typeName, "type", "", "only dump records of this type, by name or id")
	dumpCmd.Flags().IntVar(&limit, "limit", 0, "maximum number of records to dump")
	dumpCmd.Flags().IntSliceVar(&at, "at", nil, "dump the records at these positions")
	dumpCmd.Flags().StringVar(&format, "fmt", "", "output format, text, jsonl, logfmt, template or none")
	dumpCmd.Flags().StringVar(&tmplStr, "template", "", "Go template used by the template format")
}

var dumpCmd = &cobra.Command{
	Use:     "dump LOG",
	Short:   "dump decoded records from a log",
	Example: `lsfindex dump --type Status --limit 10 flight.lsf`,
	Args:    cobra.ExactArgs(1),
	RunE:    run,
}

func lookupType(idx *indexer.Index, s string) (uint16, error) {
	if e, ok := idx.Codec().Schema().ResolveByName(s); ok {
		return e.ID, nil
	}
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, errors.Errorf("unknown type %q", s)
	}
	return uint16(n), nil
}

func run(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	idxs, err := root.OpenIndexes(ctx, args)
	if err != nil {
		return err
	}
	idx := idxs[0]
	defer idx.Cleanup()

	sink, err := root.NewSink(os.Stdout, format, tmplStr)
	if err != nil {
		return err
	}
	defer sink.Close()

	var positions []int
	switch {
	case len(at) > 0:
		positions = at
	case typeName != "":
		t, err := lookupType(idx, typeName)
		if err != nil {
			return err
		}
		for i, ok := idx.FirstOfType(t); ok; i, ok = idx.NextOfType(t, i) {
			positions = append(positions, i)
			if limit > 0 && len(positions) >= limit {
				break
			}
		}
	default:
		n := idx.RecordCount()
		if limit > 0 && limit < n {
			n = limit
		}
		positions = make([]int, n)
		for i := range positions {
			positions[i] = i
		}
	}

	for _, i := range positions {
		r, err := idx.RecordAt(i)
		if errors.Is(err, indexer.ErrOutOfRange) {
			return err
		}
		if err != nil {
			return errors.Wrapf(err, "record %d", i)
		}
		if err := sink.WriteMessage(ctx, r); err != nil {
			return err
		}
	}
	return nil
}
