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

package devnull

import (
	"context"
	"sync/atomic"

	"github.com/QubitProducts/lsfindex/indexer"
)

// DevNull is a sinks.Sinker that drops all records, counting them.
type DevNull struct {
	count int64
}

// WriteMessage counts and drops the record.
func (o *DevNull) WriteMessage(ctx context.Context, r *indexer.Record) error {
	atomic.AddInt64(&o.count, 1)
	return nil
}

// Count returns the number of records written.
func (o *DevNull) Count() int64 {
	return atomic.LoadInt64(&o.count)
}

// Close closes the DevNull sink
func (o *DevNull) Close() error {
	return nil
}
