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

// Package indexer builds random access indexes over telemetry log files and
// answers queries against them.
//
// A log is a sequence of records, each a fixed header followed by a schema
// encoded payload. Build makes a single pass over a memory mapped log reading
// only the headers, recording where each record starts along with its type,
// timestamp and addressing. Payloads are decoded lazily, one record at a time,
// when a query consumes them.
//
// An Index is immutable once Build returns it, and is safe for concurrent
// readers. Cleanup unmaps the log; queries after that fail with ErrClosed.
//
// Logs written by interrupted processes commonly end in a partial record,
// which is dropped without error. A record whose declared length can not be
// right stops the scan; the index over the records before it is still
// returned along with a *CorruptRecordError.
package indexer
