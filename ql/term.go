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
	"fmt"
	"regexp"
)

type queryTerm struct {
	label    string
	operator string
	value    string
}

func (qt queryTerm) String() string {
	return fmt.Sprintf("%s%s%q", qt.label, qt.operator, qt.value)
}

type query []queryTerm

// valueMatcher builds a test of label values against v.
type valueMatcher func(v string) (func(string) bool, error)

type opSet map[string]valueMatcher

var defaultOps = opSet{
	"=": func(v string) (func(string) bool, error) {
		return func(s string) bool { return s == v }, nil
	},
	"!=": func(v string) (func(string) bool, error) {
		return func(s string) bool { return s != v }, nil
	},
	"~": func(v string) (func(string) bool, error) {
		re, err := regexp.Compile("^(?:" + v + ")$")
		if err != nil {
			return nil, err
		}
		return re.MatchString, nil
	},
	"!~": func(v string) (func(string) bool, error) {
		re, err := regexp.Compile("^(?:" + v + ")$")
		if err != nil {
			return nil, err
		}
		return func(s string) bool { return !re.MatchString(s) }, nil
	},
}

func (os opSet) lookup(s string) (valueMatcher, bool) {
	vm, ok := os[s]
	return vm, ok
}

func makeValueMatch(op, v string) (func(string) bool, error) {
	vm, ok := defaultOps.lookup(op)
	if !ok {
		return nil, fmt.Errorf("unknown operator %q", op)
	}
	return vm(v)
}
