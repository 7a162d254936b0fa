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

package ql

import (
	"io"
	"math"
	"time"

	"github.com/benhoyt/goawk/interp"
	"github.com/benhoyt/goawk/parser"
	"github.com/pkg/errors"
)

var awkFuncs = map[string]interface{}{
	// rfc3339 formats a record timestamp in seconds.
	"rfc3339": func(ts float64) string {
		sec, frac := math.Modf(ts)
		return time.Unix(int64(sec), int64(frac*1e9)).UTC().Format(time.RFC3339Nano)
	},
}

// RunAWK runs the awk program over in, writing its output to out. fs sets
// the field separator, a single space when empty. Programs may not run
// commands or write files.
func RunAWK(program, fs string, in io.Reader, out io.Writer) error {
	prg, err := parser.ParseProgram([]byte(program), &parser.ParserConfig{
		Funcs: awkFuncs,
	})
	if err != nil {
		return errors.Wrap(err, "failed to parse awk program")
	}

	if fs == "" {
		fs = " "
	}

	cfg := &interp.Config{
		Stdin:        in,
		Output:       out,
		Error:        io.Discard,
		Funcs:        awkFuncs,
		NoExec:       true,
		NoFileWrites: true,
		Vars:         []string{"FS", fs},
	}

	status, err := interp.ExecProgram(prg, cfg)
	if err != nil {
		return errors.Wrap(err, "awk program failed")
	}
	if status != 0 {
		return errors.Errorf("awk program exited with status %d", status)
	}
	return nil
}
