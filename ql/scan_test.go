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
	"reflect"
	"strconv"
	"testing"
)

func TestScanner(t *testing.T) {
	var tests = []struct {
		src string
		exp []token
	}{
		{`type=Status`, []token{
			{tokWord, 0, "type"},
			{tokOp, 4, "="},
			{tokWord, 5, "Status"},
		}},
		{` system != uav-1 `, []token{
			{tokWord, 1, "system"},
			{tokOp, 8, "!="},
			{tokWord, 11, "uav-1"},
		}},
		{`entity~"Nav.*"`, []token{
			{tokWord, 0, "entity"},
			{tokOp, 6, "~"},
			{tokQuoted, 7, "Nav.*"},
		}},
		{`dst='a\'b' x=` + "`\\d+`", []token{
			{tokWord, 0, "dst"},
			{tokOp, 3, "="},
			{tokQuoted, 4, "a'b"},
			{tokWord, 11, "x"},
			{tokOp, 12, "="},
			{tokQuoted, 13, `\d+`},
		}},
		{`type="open`, []token{
			{tokWord, 0, "type"},
			{tokOp, 4, "="},
			{tokError, 5, "unterminated quoted string at 5"},
		}},
		{`type=(x)`, []token{
			{tokWord, 0, "type"},
			{tokOp, 4, "="},
			{tokError, 5, "unexpected character U+0028 '(' at 5"},
			{tokWord, 6, "x"},
			{tokError, 7, "unexpected character U+0029 ')' at 7"},
		}},
	}

	for i, st := range tests {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			s := newScanner(st.src)

			var ts []token
			for tok := s.next(); tok.typ != tokEOF; tok = s.next() {
				ts = append(ts, tok)
			}
			if !reflect.DeepEqual(st.exp, ts) {
				t.Fatalf("\nexpected: %v\ngot: %v", st.exp, ts)
			}
		})
	}
}
