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

// Package stdout writes records in a compact human readable form.
package stdout

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/QubitProducts/lsfindex/indexer"
	"github.com/QubitProducts/lsfindex/sinks"
)

// Stdout is a sinks.Sinker that writes records to stdout, or another
// writer.
type Stdout struct {
	sync.Mutex
	w *bufio.Writer
}

// New creates a sink writing to w, or to os.Stdout when w is nil.
func New(w io.Writer) *Stdout {
	if w == nil {
		w = os.Stdout
	}
	return &Stdout{w: bufio.NewWriter(w)}
}

// WriteMessage implements sinks.Sinker
func (o *Stdout) WriteMessage(ctx context.Context, r *indexer.Record) error {
	o.Lock()
	defer o.Unlock()

	fmt.Fprintf(o.w, "%s #%d %s %s/%s -> %s/%s",
		r.Message.Time().UTC().Format(time.RFC3339Nano),
		r.Index,
		r.Labels["type"],
		r.Labels["system"], r.Labels["entity"],
		r.Labels["dst"], r.Labels["dst_entity"])
	for _, f := range sinks.Fields(r.Message) {
		fmt.Fprintf(o.w, " %s=%v", f.Name, f.Value)
	}
	_, err := o.w.WriteString("\n")
	return err
}

// Close flushes any buffered output.
func (o *Stdout) Close() error {
	o.Lock()
	defer o.Unlock()
	return o.w.Flush()
}
