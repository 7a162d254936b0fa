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

// Package listnames implements the names subcommand, which prints the
// system and entity names known after indexing logs.
package listnames

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	yaml "gopkg.in/yaml.v2"

	"github.com/QubitProducts/lsfindex/cmd/lsfindex/root"
	"github.com/QubitProducts/lsfindex/indexer"
	"github.com/QubitProducts/lsfindex/names"
)

func init() {
	root.RootCmd.AddCommand(namesCmd)
}

var namesCmd = &cobra.Command{
	Use:   "names [LOG|DIR...]",
	Short: "print the system and entity names learnt from logs",
	Long: `names indexes the logs given, learning names from announcement
records, and prints every known name in the format read by --names.`,
	RunE: run,
}

func directory(r *names.Resolver) *names.Directory {
	d := &names.Directory{
		Systems:  map[uint16]string{},
		Entities: map[string]string{},
	}
	for id, n := range r.Systems.Snapshot() {
		d.Systems[uint16(id)] = n
	}
	for k, n := range r.Entities.Snapshot() {
		src, ent := names.SplitEntityKey(k)
		d.Entities[fmt.Sprintf("%d/%d", src, ent)] = n
	}
	return d
}

func run(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		idxs, err := root.OpenIndexes(context.Background(), args)
		if err != nil {
			return err
		}
		defer indexer.NewArchive(idxs...).Cleanup()
	}

	bs, err := yaml.Marshal(directory(root.Resolver()))
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(bs)
	return err
}
