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

import "github.com/QubitProducts/lsfindex/codec"

// MessageIterator steps through the records of one type in file order.
// Payloads are only decoded by Message.
type MessageIterator struct {
	idx       *Index
	positions []int
	cur       int
	err       error
}

// Next advances to the next record, returning false when there are no more
// or the index has been closed.
func (mi *MessageIterator) Next() bool {
	if mi.err != nil {
		return false
	}
	if mi.idx.isClosed() {
		mi.err = ErrClosed
		return false
	}
	if mi.cur+1 >= len(mi.positions) {
		mi.cur = len(mi.positions)
		return false
	}
	mi.cur++
	return true
}

// Index returns the record number of the current record.
func (mi *MessageIterator) Index() int {
	return mi.positions[mi.cur]
}

// Entry returns the index entry of the current record.
func (mi *MessageIterator) Entry() Entry {
	return mi.idx.entries[mi.positions[mi.cur]]
}

// Message decodes the current record. A decode error only concerns this
// record, iteration may continue.
func (mi *MessageIterator) Message() (*codec.Message, error) {
	return mi.idx.decode(mi.positions[mi.cur])
}

// Len returns the number of records the iterator visits.
func (mi *MessageIterator) Len() int {
	return len(mi.positions)
}

// Err returns the error that stopped iteration, if any.
func (mi *MessageIterator) Err() error {
	return mi.err
}

// Reset rewinds the iterator to before the first record.
func (mi *MessageIterator) Reset() {
	mi.cur = -1
	mi.err = nil
}

// EntryIterator steps through index entries in file order.
type EntryIterator struct {
	idx    *Index
	cur    int
	end    int
	filter func(Entry) bool
	err    error
}

// Next advances to the next matching entry.
func (ei *EntryIterator) Next() bool {
	if ei.err != nil {
		return false
	}
	if ei.idx.isClosed() {
		ei.err = ErrClosed
		return false
	}
	for ei.cur+1 < ei.end {
		ei.cur++
		if ei.filter == nil || ei.filter(ei.idx.entries[ei.cur]) {
			return true
		}
	}
	ei.cur = ei.end
	return false
}

// Index returns the record number of the current entry.
func (ei *EntryIterator) Index() int {
	return ei.cur
}

// Entry returns the current entry.
func (ei *EntryIterator) Entry() Entry {
	return ei.idx.entries[ei.cur]
}

// Message decodes the current record.
func (ei *EntryIterator) Message() (*codec.Message, error) {
	return ei.idx.decode(ei.cur)
}

// Err returns the error that stopped iteration, if any.
func (ei *EntryIterator) Err() error {
	return ei.err
}
