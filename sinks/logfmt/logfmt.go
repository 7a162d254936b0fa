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

// Package logfmt writes records as logfmt lines.
package logfmt

import (
	"bufio"
	"context"
	"io"
	"sync"
	"time"

	"github.com/QubitProducts/lsfindex/indexer"
	"github.com/QubitProducts/lsfindex/sinks"
	"github.com/go-logfmt/logfmt"
)

// Sink is a sinks.Sinker writing logfmt.
type Sink struct {
	sync.Mutex
	w      *bufio.Writer
	enc    *logfmt.Encoder
	labels []string
}

// New creates a sink writing to w. Each line starts with the record time
// and the named labels, followed by the message fields.
func New(w io.Writer, labels ...string) *Sink {
	if len(labels) == 0 {
		labels = []string{"type", "system", "entity"}
	}
	bw := bufio.NewWriter(w)
	return &Sink{w: bw, enc: logfmt.NewEncoder(bw), labels: labels}
}

// WriteMessage implements sinks.Sinker
func (s *Sink) WriteMessage(ctx context.Context, r *indexer.Record) error {
	s.Lock()
	defer s.Unlock()

	if err := s.enc.EncodeKeyval("time", r.Message.Time().UTC().Format(time.RFC3339Nano)); err != nil {
		return err
	}
	for _, l := range s.labels {
		if err := s.enc.EncodeKeyval(l, r.Labels[l]); err != nil {
			return err
		}
	}
	for _, f := range sinks.Fields(r.Message) {
		if err := s.enc.EncodeKeyval(f.Name, f.Value); err != nil {
			return err
		}
	}
	return s.enc.EndRecord()
}

// Close flushes any buffered output.
func (s *Sink) Close() error {
	s.Lock()
	defer s.Unlock()
	return s.w.Flush()
}
