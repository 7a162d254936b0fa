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
	"github.com/pkg/errors"
)

// MatchFunc accepts or rejects a record by its labels.
type MatchFunc func(labels map[string]string) bool

func makeLabelMatch(qt queryTerm) (MatchFunc, error) {
	m, err := makeValueMatch(qt.operator, qt.value)
	if err != nil {
		return nil, errors.Wrapf(err, "term %v", qt)
	}
	label := qt.label
	if qt.operator == "=" && qt.value == "*" {
		return func(ls map[string]string) bool {
			_, ok := ls[label]
			return ok
		}, nil
	}
	return func(ls map[string]string) bool {
		return m(ls[label])
	}, nil
}

func makeConjunctionMatch(fs ...MatchFunc) MatchFunc {
	return func(ls map[string]string) bool {
		for i := range fs {
			if !fs[i](ls) {
				return false
			}
		}
		return true
	}
}

func makeDisjunctionMatch(fs ...MatchFunc) MatchFunc {
	return func(ls map[string]string) bool {
		for i := range fs {
			if fs[i](ls) {
				return true
			}
		}
		return false
	}
}

// Compile parses a query expression. The empty expression matches
// everything.
func Compile(qstr string) (MatchFunc, error) {
	qts, err := newParser(qstr).terms()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read query")
	}

	var labels []string
	labelMatches := map[string][]MatchFunc{}
	for _, qt := range qts {
		mf, err := makeLabelMatch(qt)
		if err != nil {
			return nil, err
		}
		if _, ok := labelMatches[qt.label]; !ok {
			labels = append(labels, qt.label)
		}
		labelMatches[qt.label] = append(labelMatches[qt.label], mf)
	}

	terms := make([]MatchFunc, 0, len(labels))
	for _, l := range labels {
		terms = append(terms, makeDisjunctionMatch(labelMatches[l]...))
	}

	return makeConjunctionMatch(terms...), nil
}
