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
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/QubitProducts/lsfindex/codec"
	"github.com/QubitProducts/lsfindex/names"
	"github.com/QubitProducts/lsfindex/schema"
	"github.com/golang/glog"
	"github.com/oklog/ulid"
	"github.com/pkg/errors"
)

type builder struct {
	resolver   *names.Resolver
	announce   bool
	cache      bool
	maxRecords int
}

// Opt defines an index build option function.
type Opt func(b *builder) error

// WithResolver sets the resolver used for system and entity names. By
// default each index gets its own.
func WithResolver(r *names.Resolver) Opt {
	return func(b *builder) error {
		if r == nil {
			return errors.New("nil resolver")
		}
		b.resolver = r
		return nil
	}
}

// WithAnnouncements decodes identity announcements while scanning, and
// feeds them to the resolver.
func WithAnnouncements(enabled bool) Opt {
	return func(b *builder) error {
		b.announce = enabled
		return nil
	}
}

// WithCache reads the index from a sidecar file next to the log when one
// matching the log exists, and writes one after scanning otherwise.
func WithCache(enabled bool) Opt {
	return func(b *builder) error {
		b.cache = enabled
		return nil
	}
}

// WithMaxRecords stops the scan after n records. Zero means no limit.
func WithMaxRecords(n int) Opt {
	return func(b *builder) error {
		if n < 0 {
			return errors.Errorf("invalid record limit %d", n)
		}
		b.maxRecords = n
		return nil
	}
}

// Build indexes the log in fn. The schema is used to name record types and
// to reject records too short for their type.
//
// If the scan stops early at a corrupt record both the index of the records
// before it and a *CorruptRecordError are returned. If ctx is cancelled the
// scan is abandoned, and ErrCancelled returned.
func Build(ctx context.Context, fn string, s *schema.Schema, opts ...Opt) (*Index, error) {
	src, err := openSource(fn)
	if err != nil {
		return nil, errors.Wrapf(err, "opening log %s", fn)
	}
	return build(ctx, fn, src, true, s, opts)
}

// BuildBytes indexes a log held in memory. name is only used to identify the
// index.
func BuildBytes(ctx context.Context, name string, bs []byte, s *schema.Schema, opts ...Opt) (*Index, error) {
	return build(ctx, name, newByteSource(bs), false, s, opts)
}

func build(ctx context.Context, fn string, src source, onDisk bool, s *schema.Schema, opts []Opt) (*Index, error) {
	b := &builder{}
	for _, o := range opts {
		if err := o(b); err != nil {
			src.Close()
			return nil, err
		}
	}
	if b.resolver == nil {
		b.resolver = names.NewResolver()
	}

	t := time.Now()
	entropy := rand.New(rand.NewSource(t.UnixNano()))

	idx := &Index{
		id:       ulid.MustNew(ulid.Timestamp(t), entropy).String(),
		path:     fn,
		codec:    codec.New(s),
		resolver: b.resolver,
		byType:   map[uint16][]int{},
		unknown:  map[uint16]struct{}{},
		ordered:  true,
		src:      src,
	}

	cached := false
	if b.cache && onDisk && b.maxRecords == 0 {
		var err error
		cached, err = readCache(idx)
		if err != nil {
			glog.Warningf("ignoring index cache for %s, %v", fn, err)
		}
	}

	if cached {
		cacheHits.Inc()
		if b.announce {
			b.replayAnnouncements(idx)
		}
	} else {
		if err := b.scan(ctx, idx); err != nil {
			src.Close()
			return nil, err
		}
		if b.cache && onDisk && b.maxRecords == 0 {
			if err := writeCache(idx); err != nil {
				glog.Warningf("failed writing index cache for %s, %v", fn, err)
			}
		}
	}

	dur := time.Since(t)
	buildDuration.Observe(dur.Seconds())
	recordsIndexed.Add(float64(len(idx.entries)))
	if idx.truncated > 0 {
		truncatedLogs.Inc()
	}
	if !idx.ordered {
		unorderedLogs.Inc()
	}

	glog.V(1).Infof("indexed %d records of %d types in %s (cached: %v, ordered: %v, truncated: %d bytes) in %v",
		len(idx.entries), len(idx.byType), fn, cached, idx.ordered, idx.truncated, dur)

	if idx.corrupt != nil {
		corruptRecords.Inc()
		glog.Warningf("%s: %v, indexed %d records before it", fn, idx.corrupt, len(idx.entries))
		return idx, idx.corrupt
	}
	return idx, nil
}

func (b *builder) scan(ctx context.Context, idx *Index) error {
	var announcer *names.Announcer
	if b.announce {
		announcer = names.NewAnnouncer(b.resolver)
	}

	size := int64(idx.src.Len())
	hdr := make([]byte, codec.HeaderSize)
	off := int64(0)

	for {
		select {
		case <-ctx.Done():
			glog.V(1).Infof("index build of %s cancelled after %d records", idx.path, len(idx.entries))
			return errors.Wrapf(ErrCancelled, "%s after %d records", idx.path, len(idx.entries))
		default:
		}

		if b.maxRecords > 0 && len(idx.entries) >= b.maxRecords {
			return nil
		}

		remain := size - off
		if remain == 0 {
			return nil
		}
		if remain < codec.HeaderSize {
			idx.truncated = remain
			glog.V(1).Infof("%s: ignoring %d trailing bytes", idx.path, remain)
			return nil
		}

		if _, err := idx.src.ReadAt(hdr, off); err != nil {
			return errors.Wrapf(err, "reading record header at offset %d", off)
		}
		h, typ, plen, err := codec.DecodeHeader(hdr)
		if err != nil {
			return err
		}

		if int64(plen) > remain-codec.HeaderSize {
			idx.corrupt = &CorruptRecordError{
				Offset: off,
				Reason: fmt.Sprintf("declared length %d exceeds the %d bytes remaining", plen, remain-codec.HeaderSize),
			}
			return nil
		}

		ent, known := idx.codec.Schema().Resolve(typ)
		// Every unknown type still carries an opaque payload.
		if !known && plen == 0 {
			idx.corrupt = &CorruptRecordError{
				Offset: off,
				Reason: fmt.Sprintf("declared length 0 for unknown type %d", typ),
			}
			return nil
		}
		if known && int(plen) < ent.MinSize() {
			idx.corrupt = &CorruptRecordError{
				Offset: off,
				Reason: fmt.Sprintf("declared length %d is below the %d byte minimum for %s", plen, ent.MinSize(), ent.Name),
			}
			return nil
		}

		idx.add(Entry{
			Offset:    off,
			Type:      typ,
			Timestamp: h.Timestamp,
			Src:       h.Src,
			SrcEnt:    h.SrcEnt,
			Dst:       h.Dst,
			DstEnt:    h.DstEnt,
		}, plen)
		if glog.V(3) {
			glog.Infof("%s: record %d type %d at offset %d, %d bytes", idx.path, len(idx.entries)-1, typ, off, plen)
		}

		if announcer != nil && known && announcer.Wants(ent.Name) {
			if m, err := idx.decode(len(idx.entries) - 1); err == nil {
				announcer.Apply(m)
			}
		}

		off += codec.HeaderSize + int64(plen)
	}
}

func (b *builder) replayAnnouncements(idx *Index) {
	announcer := names.NewAnnouncer(b.resolver)
	var wanted []int
	for _, ent := range idx.codec.Schema().Entries() {
		if announcer.Wants(ent.Name) {
			wanted = append(wanted, idx.byType[ent.ID]...)
		}
	}
	sort.Ints(wanted)
	for _, i := range wanted {
		if m, err := idx.decode(i); err == nil {
			announcer.Apply(m)
		}
	}
}

func (idx *Index) add(e Entry, size uint16) {
	n := len(idx.entries)
	// NaN compares false both ways, so it breaks ordering too.
	if n > 0 && !(e.Timestamp >= idx.entries[n-1].Timestamp) {
		idx.ordered = false
	}
	if !math.IsNaN(e.Timestamp) {
		if !idx.haveTS || e.Timestamp < idx.minTS {
			idx.minTS = e.Timestamp
		}
		if !idx.haveTS || e.Timestamp > idx.maxTS {
			idx.maxTS = e.Timestamp
		}
		idx.haveTS = true
	}

	idx.entries = append(idx.entries, e)
	idx.sizes = append(idx.sizes, size)
	idx.byType[e.Type] = append(idx.byType[e.Type], n)
	if _, ok := idx.codec.Schema().Resolve(e.Type); !ok {
		idx.unknown[e.Type] = struct{}{}
	}
}
