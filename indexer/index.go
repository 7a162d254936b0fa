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
	"sort"
	"strconv"
	"sync"

	"github.com/QubitProducts/lsfindex/codec"
	"github.com/QubitProducts/lsfindex/names"
	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// Entry describes where a record starts and what its header says.
type Entry struct {
	Offset    int64
	Type      uint16
	Timestamp float64
	Src       uint16
	SrcEnt    uint8
	Dst       uint16
	DstEnt    uint8
}

// Index is a random access index over one log.
type Index struct {
	id   string
	path string

	codec    *codec.Codec
	resolver *names.Resolver

	entries []Entry
	sizes   []uint16
	byType  map[uint16][]int
	unknown map[uint16]struct{}
	ordered bool
	minTS   float64
	maxTS   float64
	haveTS  bool

	truncated int64
	corrupt   *CorruptRecordError

	sync.RWMutex
	src    source
	closed bool
}

// ID returns the unique id assigned to the index when it was built.
func (idx *Index) ID() string {
	return idx.id
}

// Path returns the file the index was built over.
func (idx *Index) Path() string {
	return idx.path
}

// Codec returns the codec used to decode the log's records.
func (idx *Index) Codec() *codec.Codec {
	return idx.codec
}

// Resolver returns the resolver used for system and entity names.
func (idx *Index) Resolver() *names.Resolver {
	return idx.resolver
}

// RecordCount returns the number of indexed records.
func (idx *Index) RecordCount() int {
	return len(idx.entries)
}

// EntryAt returns the entry for record i.
func (idx *Index) EntryAt(i int) (Entry, error) {
	if idx.isClosed() {
		return Entry{}, ErrClosed
	}
	if i < 0 || i >= len(idx.entries) {
		return Entry{}, errors.Wrapf(ErrOutOfRange, "record %d of %d", i, len(idx.entries))
	}
	return idx.entries[i], nil
}

// FirstOfType returns the first record of type t.
func (idx *Index) FirstOfType(t uint16) (int, bool) {
	ps := idx.byType[t]
	if len(ps) == 0 {
		return 0, false
	}
	return ps[0], true
}

// NextOfType returns the first record of type t after record after.
func (idx *Index) NextOfType(t uint16, after int) (int, bool) {
	ps := idx.byType[t]
	j := sort.SearchInts(ps, after+1)
	if j >= len(ps) {
		return 0, false
	}
	return ps[j], true
}

// CountOfType returns the number of records of type t.
func (idx *Index) CountOfType(t uint16) int {
	return len(idx.byType[t])
}

// Types returns the ids of the types present in the log, in ascending order.
func (idx *Index) Types() []uint16 {
	ts := make([]uint16, 0, len(idx.byType))
	for t := range idx.byType {
		ts = append(ts, t)
	}
	sort.Slice(ts, func(i, j int) bool { return ts[i] < ts[j] })
	return ts
}

// IsKnownType reports whether t is declared in the schema.
func (idx *Index) IsKnownType(t uint16) bool {
	_, ok := idx.codec.Schema().Resolve(t)
	return ok
}

// UnknownTypes returns the ids of types present in the log but missing from
// the schema.
func (idx *Index) UnknownTypes() []uint16 {
	var ts []uint16
	for t := range idx.unknown {
		ts = append(ts, t)
	}
	sort.Slice(ts, func(i, j int) bool { return ts[i] < ts[j] })
	return ts
}

// Ordered reports whether record timestamps never decrease.
func (idx *Index) Ordered() bool {
	return idx.ordered
}

// StartTime returns the smallest record timestamp, ignoring NaNs.
func (idx *Index) StartTime() float64 {
	return idx.minTS
}

// EndTime returns the largest record timestamp, ignoring NaNs.
func (idx *Index) EndTime() float64 {
	return idx.maxTS
}

// Truncated returns the number of trailing bytes too short to hold a record
// header.
func (idx *Index) Truncated() int64 {
	return idx.truncated
}

// Corruption returns the error that stopped the scan early, if any.
func (idx *Index) Corruption() error {
	if idx.corrupt == nil {
		return nil
	}
	return idx.corrupt
}

// TypeName returns the schema name of type t, or its id.
func (idx *Index) TypeName(t uint16) string {
	if e, ok := idx.codec.Schema().Resolve(t); ok {
		return e.Name
	}
	return strconv.Itoa(int(t))
}

// SystemName returns the name of system src, or its id.
func (idx *Index) SystemName(src uint16) string {
	return idx.resolver.SystemName(src)
}

// EntityName returns the label of entity ent of system src, or its id.
func (idx *Index) EntityName(src uint16, ent uint8) string {
	return idx.resolver.EntityName(src, ent)
}

// Labels returns the query labels of record i.
func (idx *Index) Labels(i int) (map[string]string, error) {
	e, err := idx.EntryAt(i)
	if err != nil {
		return nil, err
	}
	return idx.labels(e), nil
}

func (idx *Index) labels(e Entry) map[string]string {
	return map[string]string{
		"type":       idx.TypeName(e.Type),
		"system":     idx.SystemName(e.Src),
		"entity":     idx.EntityName(e.Src, e.SrcEnt),
		"dst":        idx.SystemName(e.Dst),
		"dst_entity": idx.EntityName(e.Dst, e.DstEnt),
	}
}

// MessageAt decodes record i.
func (idx *Index) MessageAt(i int) (*codec.Message, error) {
	if idx.isClosed() {
		return nil, ErrClosed
	}
	if i < 0 || i >= len(idx.entries) {
		return nil, errors.Wrapf(ErrOutOfRange, "record %d of %d", i, len(idx.entries))
	}
	return idx.decode(i)
}

func (idx *Index) decode(i int) (*codec.Message, error) {
	e := idx.entries[i]
	buf := make([]byte, codec.HeaderSize+int(idx.sizes[i]))

	idx.RLock()
	if idx.closed {
		idx.RUnlock()
		return nil, ErrClosed
	}
	_, err := idx.src.ReadAt(buf, e.Offset)
	idx.RUnlock()
	if err != nil {
		return nil, errors.Wrapf(err, "reading record %d at offset %d", i, e.Offset)
	}

	m, _, err := idx.codec.Decode(buf, 0)
	if err != nil {
		decodeErrors.Inc()
		glog.V(3).Infof("%s: record %d at offset %d: %v", idx.path, i, e.Offset, err)
		return nil, errors.Wrapf(err, "record %d", i)
	}
	return m, nil
}

// MessagesOfType returns an iterator over the records of type t.
func (idx *Index) MessagesOfType(t uint16) *MessageIterator {
	return &MessageIterator{
		idx:       idx,
		positions: idx.byType[t],
		cur:       -1,
	}
}

// EntriesBetween returns an iterator over the records whose timestamps fall
// within [start, end]. For logs that are not ordered the iterator scans the
// whole log, and ErrUnorderedTimestamps is returned with it.
func (idx *Index) EntriesBetween(start, end float64) (*EntryIterator, error) {
	if idx.isClosed() {
		return nil, ErrClosed
	}

	if !idx.ordered {
		it := &EntryIterator{
			idx: idx,
			cur: -1,
			end: len(idx.entries),
			filter: func(e Entry) bool {
				return e.Timestamp >= start && e.Timestamp <= end
			},
		}
		return it, ErrUnorderedTimestamps
	}

	n := len(idx.entries)
	lo := sort.Search(n, func(i int) bool { return idx.entries[i].Timestamp >= start })
	hi := sort.Search(n, func(i int) bool { return idx.entries[i].Timestamp > end })
	if hi < lo {
		hi = lo
	}
	return &EntryIterator{idx: idx, cur: lo - 1, end: hi}, nil
}

func (idx *Index) isClosed() bool {
	idx.RLock()
	defer idx.RUnlock()
	return idx.closed
}

// Cleanup releases the log mapping. Queries made afterwards fail with
// ErrClosed.
func (idx *Index) Cleanup() error {
	idx.Lock()
	defer idx.Unlock()
	if idx.closed {
		return nil
	}
	idx.closed = true
	glog.V(2).Infof("closing index %s over %s", idx.id, idx.path)
	return idx.src.Close()
}
