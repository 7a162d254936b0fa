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

// Package jsonl writes records as JSON, one object per line.
package jsonl

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/QubitProducts/lsfindex/indexer"
)

type record struct {
	Log       string                 `json:"log"`
	Index     int                    `json:"index"`
	Offset    int64                  `json:"offset"`
	Time      string                 `json:"time"`
	Timestamp float64                `json:"timestamp"`
	Labels    map[string]string      `json:"labels"`
	Fields    map[string]interface{} `json:"fields"`
}

// Sink is a sinks.Sinker writing JSON lines.
type Sink struct {
	sync.Mutex
	w   *bufio.Writer
	enc *json.Encoder
}

// New creates a sink writing to w.
func New(w io.Writer) *Sink {
	bw := bufio.NewWriter(w)
	return &Sink{w: bw, enc: json.NewEncoder(bw)}
}

// WriteMessage implements sinks.Sinker
func (s *Sink) WriteMessage(ctx context.Context, r *indexer.Record) error {
	rec := record{
		Log:       r.Log,
		Index:     r.Index,
		Offset:    r.Offset,
		Time:      r.Message.Time().UTC().Format(time.RFC3339Nano),
		Timestamp: r.Timestamp,
		Labels:    r.Labels,
		Fields:    r.Message.Map(),
	}

	s.Lock()
	defer s.Unlock()
	return s.enc.Encode(rec)
}

// Close flushes any buffered output.
func (s *Sink) Close() error {
	s.Lock()
	defer s.Unlock()
	return s.w.Flush()
}
