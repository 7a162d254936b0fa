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

// Package tmpl writes records formatted by a text/template.
package tmpl

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"sync"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/QubitProducts/lsfindex/indexer"
	"github.com/QubitProducts/lsfindex/sinks"
	"github.com/pkg/errors"
)

// DefaultFormat is used when no template is given.
const DefaultFormat = `{{.Time.UTC.Format "2006-01-02T15:04:05.000Z07:00"}} {{.Labels.type}} {{.Labels.system}}/{{.Labels.entity}} {{json .Fields}}`

var formattingFuncMap = template.FuncMap{
	"json": formatJSON,
}

func formatJSON(i interface{}) string {
	bs, _ := json.Marshal(i)
	return string(bs)
}

var _ sinks.Sinker = (*Sink)(nil)

// Sink is a sinks.Sinker executing a template for each record. Templates
// are executed with a *Data.
type Sink struct {
	sync.Mutex
	w    *bufio.Writer
	tmpl *template.Template
}

// New parses format, and creates a sink writing to w. A newline is written
// after each record.
func New(w io.Writer, format string) (*Sink, error) {
	if format == "" {
		format = DefaultFormat
	}
	t, err := template.New("out").
		Funcs(sprig.TxtFuncMap()).
		Funcs(formattingFuncMap).
		Parse(format + "\n")
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse output template")
	}
	return &Sink{w: bufio.NewWriter(w), tmpl: t}, nil
}

// WriteMessage implements sinks.Sinker
func (s *Sink) WriteMessage(ctx context.Context, r *indexer.Record) error {
	d := NewData(r)

	s.Lock()
	defer s.Unlock()
	return s.tmpl.Execute(s.w, d)
}

// Close flushes any buffered output.
func (s *Sink) Close() error {
	s.Lock()
	defer s.Unlock()
	return s.w.Flush()
}
