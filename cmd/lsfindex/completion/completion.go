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

// Package completion implements the completion subcommand.
package completion

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/QubitProducts/lsfindex/cmd/lsfindex/root"
)

func init() {
	root.RootCmd.AddCommand(completionCmd)
}

var completionCmd = &cobra.Command{
	Use:   "completion",
	Short: "Generate a bash completion script for lsfindex",
	RunE: func(*cobra.Command, []string) error {
		return root.RootCmd.GenBashCompletion(os.Stdout)
	},
}
