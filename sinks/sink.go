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

// Package sinks defines the destinations that exported records are written
// to, and helpers shared by them.
package sinks

import (
	"context"
	"strconv"

	"github.com/QubitProducts/lsfindex/codec"
	"github.com/QubitProducts/lsfindex/indexer"
)

// A Sinker accepts records found by a search.
type Sinker interface {
	WriteMessage(ctx context.Context, r *indexer.Record) error
	Close() error
}

// Field is a single flattened message value.
type Field struct {
	Name  string
	Value interface{}
}

// Fields flattens a message into its values in schema order. Nested message
// fields are named parent.child, list elements parent.N.child. Messages of
// unknown types have a single _raw field.
func Fields(m *codec.Message) []Field {
	return appendFields(nil, "", m)
}

func appendFields(fs []Field, prefix string, m *codec.Message) []Field {
	if m == nil {
		return fs
	}
	if m.Entry == nil {
		return append(fs, Field{Name: prefix + "_raw", Value: m.Raw})
	}
	for i, f := range m.Entry.Fields {
		if i >= len(m.Values) {
			break
		}
		name := prefix + f.Name
		switch v := m.Values[i].(type) {
		case *codec.Message:
			if v == nil {
				fs = append(fs, Field{Name: name, Value: nil})
				continue
			}
			fs = append(fs, Field{Name: name + "._type", Value: v.Name()})
			fs = appendFields(fs, name+".", v)
		case []*codec.Message:
			for j, sm := range v {
				p := name + "." + strconv.Itoa(j) + "."
				fs = append(fs, Field{Name: p + "_type", Value: sm.Name()})
				fs = appendFields(fs, p, sm)
			}
		default:
			fs = append(fs, Field{Name: name, Value: v})
		}
	}
	return fs
}
