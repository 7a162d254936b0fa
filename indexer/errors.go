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

package indexer

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrCorruptRecord is matched by *CorruptRecordError.
	ErrCorruptRecord = errors.New("corrupt record")
	// ErrOutOfRange is returned for record numbers past the end of the index.
	ErrOutOfRange = errors.New("record out of range")
	// ErrCancelled is returned when a build is cancelled.
	ErrCancelled = errors.New("index build cancelled")
	// ErrClosed is returned by queries on an index that has been cleaned up.
	ErrClosed = errors.New("index closed")
	// ErrUnorderedTimestamps is returned alongside the results of time range
	// queries on logs whose timestamps go backwards. The results are complete,
	// but were found by a linear scan.
	ErrUnorderedTimestamps = errors.New("log timestamps are not ordered")
)

// CorruptRecordError reports the offset of the record that stopped a scan.
type CorruptRecordError struct {
	Offset int64
	Reason string
}

func (e *CorruptRecordError) Error() string {
	return fmt.Sprintf("corrupt record at offset %d: %s", e.Offset, e.Reason)
}

// Is makes errors.Is(err, ErrCorruptRecord) true.
func (e *CorruptRecordError) Is(target error) bool {
	return target == ErrCorruptRecord
}
