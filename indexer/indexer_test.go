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
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QubitProducts/lsfindex/codec"
	"github.com/QubitProducts/lsfindex/names"
	"github.com/QubitProducts/lsfindex/schema"
)

const (
	typeSample   = 10
	typeStatus   = 20
	typeAnnounce = 30
	typeEntity   = 31
	typeUnknown  = 99
)

func testSchema(t *testing.T) *schema.Schema {
	s, err := schema.New("test",
		schema.Entry{ID: typeSample, Name: "Sample", Fields: []schema.Field{
			{Name: "value", Kind: schema.Float64},
		}},
		schema.Entry{ID: typeStatus, Name: "Status", Fields: []schema.Field{
			{Name: "code", Kind: schema.Uint16},
		}},
		schema.Entry{ID: typeAnnounce, Name: "Announce", Fields: []schema.Field{
			{Name: "sys_name", Kind: schema.String},
		}},
		schema.Entry{ID: typeEntity, Name: "EntityInfo", Fields: []schema.Field{
			{Name: "id", Kind: schema.Uint8},
			{Name: "label", Kind: schema.String},
		}},
	)
	require.NoError(t, err)
	return s
}

type testLog struct {
	t       *testing.T
	c       *codec.Codec
	buf     []byte
	offsets []int64
}

func newTestLog(t *testing.T, s *schema.Schema) *testLog {
	return &testLog{t: t, c: codec.New(s)}
}

func (l *testLog) add(typ uint16, ts float64, src uint16, vals ...interface{}) *testLog {
	m := &codec.Message{
		Header: codec.Header{Timestamp: ts, Src: src, SrcEnt: 1, Dst: 0xffff, DstEnt: 255},
		Type:   typ,
		Values: vals,
	}
	if _, ok := l.c.Schema().Resolve(typ); !ok {
		m.Values = nil
		m.Raw = []byte("raw")
	}
	bs, err := l.c.Encode(m)
	require.NoError(l.t, err)
	l.offsets = append(l.offsets, int64(len(l.buf)))
	l.buf = append(l.buf, bs...)
	return l
}

func (l *testLog) sample(ts, v float64) *testLog {
	return l.add(typeSample, ts, 1, v)
}

func (l *testLog) status(ts float64, code uint16) *testLog {
	return l.add(typeStatus, ts, 1, code)
}

// raw appends a record with an arbitrary declared length and payload.
func (l *testLog) raw(typ uint16, ts float64, size uint16, payload []byte) *testLog {
	hdr := make([]byte, codec.HeaderSize)
	codec.EncodeHeader(hdr, codec.Header{Timestamp: ts}, typ, size)
	l.offsets = append(l.offsets, int64(len(l.buf)))
	l.buf = append(l.buf, hdr...)
	l.buf = append(l.buf, payload...)
	return l
}

func (l *testLog) write(fn string) string {
	require.NoError(l.t, os.WriteFile(fn, l.buf, 0644))
	return fn
}

func buildBytes(t *testing.T, s *schema.Schema, bs []byte, opts ...Opt) *Index {
	idx, err := BuildBytes(context.Background(), "test.lsf", bs, s, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { idx.Cleanup() })
	return idx
}

func mixedLog(t *testing.T, s *schema.Schema) *testLog {
	l := newTestLog(t, s)
	for i := 0; i < 50; i++ {
		ts := 1000 + float64(i)*0.5
		if i%3 == 0 {
			l.status(ts, uint16(i))
		} else {
			l.sample(ts, float64(i))
		}
	}
	return l
}

func TestBuildCompleteness(t *testing.T) {
	s := testSchema(t)
	l := mixedLog(t, s)
	idx := buildBytes(t, s, l.buf)

	require.Equal(t, 50, idx.RecordCount())
	assert.True(t, idx.Ordered())
	assert.Equal(t, 1000.0, idx.StartTime())
	assert.Equal(t, 1024.5, idx.EndTime())
	assert.Equal(t, []uint16{typeSample, typeStatus}, idx.Types())
	assert.Equal(t, 17, idx.CountOfType(typeStatus))
	assert.Equal(t, 33, idx.CountOfType(typeSample))
	assert.Zero(t, idx.Truncated())
	assert.NoError(t, idx.Corruption())
	assert.NotEmpty(t, idx.ID())

	for i := 0; i < idx.RecordCount(); i++ {
		e, err := idx.EntryAt(i)
		require.NoError(t, err)
		assert.Equal(t, l.offsets[i], e.Offset)

		m, err := idx.MessageAt(i)
		require.NoError(t, err)
		assert.Equal(t, e.Type, m.Type)
		assert.Equal(t, e.Timestamp, m.Timestamp)
	}

	_, err := idx.EntryAt(50)
	assert.True(t, errors.Is(err, ErrOutOfRange))
	_, err = idx.EntryAt(-1)
	assert.True(t, errors.Is(err, ErrOutOfRange))
	_, err = idx.MessageAt(50)
	assert.True(t, errors.Is(err, ErrOutOfRange))
}

func TestMessagesOfType(t *testing.T) {
	s := testSchema(t)
	idx := buildBytes(t, s, mixedLog(t, s).buf)

	it := idx.MessagesOfType(typeStatus)
	assert.Equal(t, 17, it.Len())

	var got []int
	for it.Next() {
		m, err := it.Message()
		require.NoError(t, err)
		code, ok := m.Get("code")
		require.True(t, ok)
		assert.Equal(t, uint16(it.Index()), code)
		assert.Equal(t, uint16(typeStatus), it.Entry().Type)
		got = append(got, it.Index())
	}
	require.NoError(t, it.Err())
	require.Len(t, got, 17)
	for i := 1; i < len(got); i++ {
		assert.Less(t, got[i-1], got[i])
	}

	it.Reset()
	require.True(t, it.Next())
	assert.Equal(t, 0, it.Index())

	first, ok := idx.FirstOfType(typeSample)
	require.True(t, ok)
	assert.Equal(t, 1, first)
	next, ok := idx.NextOfType(typeSample, first)
	require.True(t, ok)
	assert.Equal(t, 2, next)
	next, ok = idx.NextOfType(typeSample, 2)
	require.True(t, ok)
	assert.Equal(t, 4, next)
	_, ok = idx.NextOfType(typeSample, 49)
	assert.False(t, ok)

	_, ok = idx.FirstOfType(typeAnnounce)
	assert.False(t, ok)
	empty := idx.MessagesOfType(typeAnnounce)
	assert.False(t, empty.Next())
	assert.NoError(t, empty.Err())
}

func TestTruncatedTail(t *testing.T) {
	s := testSchema(t)
	l := mixedLog(t, s)
	full := append([]byte{}, l.buf...)
	bs := append(full, l.buf[:10]...)

	idx, err := BuildBytes(context.Background(), "truncated.lsf", bs, s)
	require.NoError(t, err)
	defer idx.Cleanup()

	assert.Equal(t, 50, idx.RecordCount())
	assert.Equal(t, int64(10), idx.Truncated())
}

func TestCorruptRecord(t *testing.T) {
	s := testSchema(t)

	tests := []struct {
		name string
		log  func(l *testLog)
	}{
		{
			name: "length past end of file",
			log: func(l *testLog) {
				l.raw(typeSample, 2000, 200, make([]byte, 8))
			},
		},
		{
			name: "length below type minimum",
			log: func(l *testLog) {
				l.raw(typeSample, 2000, 2, []byte{1, 2})
				l.sample(2001, 1)
			},
		},
		{
			name: "zero length unknown type",
			log: func(l *testLog) {
				l.raw(typeUnknown, 2000, 0, nil)
				l.sample(2001, 1)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := mixedLog(t, s)
			bad := int64(len(l.buf))
			tt.log(l)

			idx, err := BuildBytes(context.Background(), "corrupt.lsf", l.buf, s)
			require.Error(t, err)
			require.NotNil(t, idx)
			defer idx.Cleanup()

			assert.True(t, errors.Is(err, ErrCorruptRecord))
			var cerr *CorruptRecordError
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, bad, cerr.Offset)
			assert.Equal(t, 50, idx.RecordCount())
			assert.Equal(t, err, idx.Corruption())

			_, err = idx.MessageAt(49)
			assert.NoError(t, err)
		})
	}
}

func TestUnorderedTimestamps(t *testing.T) {
	s := testSchema(t)
	l := newTestLog(t, s).
		sample(100.0, 1).
		status(100.5, 2).
		sample(99.0, 3)
	idx := buildBytes(t, s, l.buf)

	assert.False(t, idx.Ordered())
	assert.Equal(t, 99.0, idx.StartTime())
	assert.Equal(t, 100.5, idx.EndTime())

	it, err := idx.EntriesBetween(99.0, 100.0)
	assert.True(t, errors.Is(err, ErrUnorderedTimestamps))
	require.NotNil(t, it)

	var got []int
	for it.Next() {
		got = append(got, it.Index())
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []int{0, 2}, got)

	var found []float64
	err = idx.Search(context.Background(), func(r *Record) error {
		found = append(found, r.Timestamp)
		return nil
	}, nil, 99.0, 100.0)
	assert.Equal(t, ErrUnorderedTimestamps, err)
	assert.Equal(t, []float64{100.0, 99.0}, found)

	found = nil
	err = NewArchive(idx).Search(context.Background(), func(r *Record) error {
		found = append(found, r.Timestamp)
		return nil
	}, nil, 100.5, 200)
	assert.Equal(t, ErrUnorderedTimestamps, err)
	assert.Equal(t, []float64{100.5}, found)
}

func TestNaNTimestamps(t *testing.T) {
	s := testSchema(t)
	l := newTestLog(t, s).
		sample(1.0, 1).
		sample(math.NaN(), 2).
		sample(0.5, 3)
	idx := buildBytes(t, s, l.buf)

	assert.False(t, idx.Ordered())
	assert.Equal(t, 0.5, idx.StartTime())
	assert.Equal(t, 1.0, idx.EndTime())

	it, err := idx.EntriesBetween(0.9, 1.1)
	assert.Equal(t, ErrUnorderedTimestamps, err)
	var got []int
	for it.Next() {
		got = append(got, it.Index())
	}
	assert.Equal(t, []int{0}, got)

	// a NaN after ordered records is enough on its own
	l = newTestLog(t, s).sample(1.0, 1).sample(2.0, 2).sample(math.NaN(), 3)
	idx = buildBytes(t, s, l.buf)
	assert.False(t, idx.Ordered())
	assert.Equal(t, 2.0, idx.EndTime())
}

func TestEntriesBetween(t *testing.T) {
	s := testSchema(t)
	idx := buildBytes(t, s, mixedLog(t, s).buf)

	tests := []struct {
		start, end float64
		want       []int
	}{
		{1000, 1001, []int{0, 1, 2}},
		{1000.1, 1000.9, []int{1}},
		{1024.5, 2000, []int{49}},
		{0, 999, nil},
		{1030, 2000, nil},
		{1001, 1000, nil},
	}

	for _, tt := range tests {
		it, err := idx.EntriesBetween(tt.start, tt.end)
		require.NoError(t, err)
		var got []int
		for it.Next() {
			assert.GreaterOrEqual(t, it.Entry().Timestamp, tt.start)
			assert.LessOrEqual(t, it.Entry().Timestamp, tt.end)
			got = append(got, it.Index())
		}
		assert.Equal(t, tt.want, got, "[%v, %v]", tt.start, tt.end)
	}
}

func TestBuildCancelled(t *testing.T) {
	s := testSchema(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	idx, err := BuildBytes(ctx, "cancelled.lsf", mixedLog(t, s).buf, s)
	assert.Nil(t, idx)
	assert.True(t, errors.Is(err, ErrCancelled))
}

func TestMaxRecords(t *testing.T) {
	s := testSchema(t)
	idx := buildBytes(t, s, mixedLog(t, s).buf, WithMaxRecords(5))
	assert.Equal(t, 5, idx.RecordCount())

	_, err := BuildBytes(context.Background(), "bad.lsf", nil, s, WithMaxRecords(-1))
	assert.Error(t, err)
}

func TestClosed(t *testing.T) {
	s := testSchema(t)
	idx, err := BuildBytes(context.Background(), "closed.lsf", mixedLog(t, s).buf, s)
	require.NoError(t, err)

	it := idx.MessagesOfType(typeSample)
	require.True(t, it.Next())

	require.NoError(t, idx.Cleanup())
	require.NoError(t, idx.Cleanup())

	_, err = idx.EntryAt(0)
	assert.Equal(t, ErrClosed, err)
	_, err = idx.MessageAt(0)
	assert.Equal(t, ErrClosed, err)
	_, err = it.Message()
	assert.Equal(t, ErrClosed, err)
	assert.False(t, it.Next())
	assert.Equal(t, ErrClosed, it.Err())
	_, err = idx.EntriesBetween(0, 2000)
	assert.Equal(t, ErrClosed, err)
	_, err = idx.Labels(0)
	assert.Equal(t, ErrClosed, err)
}

func TestUnknownType(t *testing.T) {
	s := testSchema(t)
	l := newTestLog(t, s).
		sample(1, 1).
		add(typeUnknown, 2, 1).
		status(3, 7)
	idx := buildBytes(t, s, l.buf)

	require.Equal(t, 3, idx.RecordCount())
	assert.False(t, idx.IsKnownType(typeUnknown))
	assert.True(t, idx.IsKnownType(typeSample))
	assert.Equal(t, []uint16{typeUnknown}, idx.UnknownTypes())
	assert.Equal(t, "99", idx.TypeName(typeUnknown))
	assert.Equal(t, "Sample", idx.TypeName(typeSample))

	m, err := idx.MessageAt(1)
	require.NoError(t, err)
	assert.Nil(t, m.Entry)
	assert.Equal(t, []byte("raw"), m.Raw)
}

func TestDecodeErrorContinues(t *testing.T) {
	s := testSchema(t)
	l := newTestLog(t, s).
		status(1, 1).
		raw(typeStatus, 2, 4, []byte{2, 0, 9, 9}).
		status(3, 3)
	idx := buildBytes(t, s, l.buf)
	require.Equal(t, 3, idx.RecordCount())

	it := idx.MessagesOfType(typeStatus)
	var ok, failed int
	for it.Next() {
		if _, err := it.Message(); err != nil {
			assert.True(t, errors.Is(err, codec.ErrInvalidFieldEncoding))
			failed++
			continue
		}
		ok++
	}
	assert.NoError(t, it.Err())
	assert.Equal(t, 2, ok)
	assert.Equal(t, 1, failed)
}

func TestAnnouncements(t *testing.T) {
	s := testSchema(t)
	l := newTestLog(t, s).
		add(typeAnnounce, 1, 7, "ship").
		add(typeEntity, 2, 7, uint8(1), "Navigation").
		add(typeSample, 3, 7, 1.0)

	r := names.NewResolver()
	idx := buildBytes(t, s, l.buf, WithResolver(r), WithAnnouncements(true))

	assert.Equal(t, "ship", idx.SystemName(7))
	assert.Equal(t, "Navigation", idx.EntityName(7, 1))
	assert.Equal(t, "12", idx.SystemName(12))

	ls, err := idx.Labels(2)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"type":       "Sample",
		"system":     "ship",
		"entity":     "Navigation",
		"dst":        "65535",
		"dst_entity": "255",
	}, ls)

	plain := buildBytes(t, s, l.buf)
	assert.Equal(t, "7", plain.SystemName(7))
}

func TestBuildFile(t *testing.T) {
	s := testSchema(t)
	fn := mixedLog(t, s).write(filepath.Join(t.TempDir(), "run.lsf"))

	idx, err := Build(context.Background(), fn, s)
	require.NoError(t, err)
	defer idx.Cleanup()

	assert.Equal(t, fn, idx.Path())
	assert.Equal(t, 50, idx.RecordCount())
	m, err := idx.MessageAt(49)
	require.NoError(t, err)
	v, _ := m.Get("value")
	assert.Equal(t, 49.0, v)

	_, err = Build(context.Background(), filepath.Join(t.TempDir(), "missing.lsf"), s)
	assert.Error(t, err)
}

func TestCache(t *testing.T) {
	s := testSchema(t)
	l := mixedLog(t, s)
	l.buf = append(l.buf, 1, 2, 3)
	fn := l.write(filepath.Join(t.TempDir(), "run.lsf"))

	idx, err := Build(context.Background(), fn, s, WithCache(true))
	require.NoError(t, err)
	defer idx.Cleanup()
	_, err = os.Stat(CachePath(fn))
	require.NoError(t, err)

	hits := testutil.ToFloat64(cacheHits)
	cached, err := Build(context.Background(), fn, s, WithCache(true))
	require.NoError(t, err)
	defer cached.Cleanup()
	assert.Equal(t, hits+1, testutil.ToFloat64(cacheHits))

	assert.Equal(t, idx.entries, cached.entries)
	assert.Equal(t, idx.sizes, cached.sizes)
	assert.Equal(t, int64(3), cached.Truncated())
	assert.Equal(t, idx.Types(), cached.Types())
	m, err := cached.MessageAt(10)
	require.NoError(t, err)
	v, _ := m.Get("value")
	assert.Equal(t, 10.0, v)

	// Rewriting the log invalidates the cache.
	l2 := newTestLog(t, s).sample(1, 1)
	l2.write(fn)
	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(fn, later, later))

	fresh, err := Build(context.Background(), fn, s, WithCache(true))
	require.NoError(t, err)
	defer fresh.Cleanup()
	assert.Equal(t, 1, fresh.RecordCount())
	assert.Equal(t, hits+1, testutil.ToFloat64(cacheHits))
}

func TestCacheSchemaChange(t *testing.T) {
	s := testSchema(t)
	fn := mixedLog(t, s).write(filepath.Join(t.TempDir(), "run.lsf"))

	idx, err := Build(context.Background(), fn, s, WithCache(true))
	require.NoError(t, err)
	defer idx.Cleanup()
	require.Equal(t, 50, idx.RecordCount())

	// Same version string, but Sample records now need 16 bytes.
	wider, err := schema.New(s.Version(),
		schema.Entry{ID: typeSample, Name: "Sample", Fields: []schema.Field{
			{Name: "value", Kind: schema.Float64},
			{Name: "error", Kind: schema.Float64},
		}},
		schema.Entry{ID: typeStatus, Name: "Status", Fields: []schema.Field{
			{Name: "code", Kind: schema.Uint16},
		}},
	)
	require.NoError(t, err)
	require.NotEqual(t, s.Digest(), wider.Digest())

	hits := testutil.ToFloat64(cacheHits)
	rebuilt, err := Build(context.Background(), fn, wider, WithCache(true))
	require.True(t, errors.Is(err, ErrCorruptRecord), "got %v", err)
	defer rebuilt.Cleanup()
	assert.Equal(t, hits, testutil.ToFloat64(cacheHits))
	assert.Equal(t, 1, rebuilt.RecordCount())

	var cerr *CorruptRecordError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, int64(codec.HeaderSize+2), cerr.Offset)
}

func TestCacheCorrupt(t *testing.T) {
	s := testSchema(t)
	l := mixedLog(t, s)
	l.raw(typeSample, 2000, 300, nil)
	fn := l.write(filepath.Join(t.TempDir(), "run.lsf"))

	idx, err := Build(context.Background(), fn, s, WithCache(true))
	require.True(t, errors.Is(err, ErrCorruptRecord))
	defer idx.Cleanup()

	cached, err := Build(context.Background(), fn, s, WithCache(true))
	require.True(t, errors.Is(err, ErrCorruptRecord))
	defer cached.Cleanup()
	assert.Equal(t, idx.Corruption(), cached.Corruption())
	assert.Equal(t, 50, cached.RecordCount())

	require.NoError(t, os.WriteFile(CachePath(fn), []byte("LSFIDX\x02garbage"), 0644))
	rebuilt, err := Build(context.Background(), fn, s, WithCache(true))
	require.True(t, errors.Is(err, ErrCorruptRecord))
	defer rebuilt.Cleanup()
	assert.Equal(t, 50, rebuilt.RecordCount())
}

func TestOpenGzip(t *testing.T) {
	s := testSchema(t)
	l := mixedLog(t, s)
	dir := t.TempDir()
	fn := filepath.Join(dir, "run.lsf.gz")

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(l.buf)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(fn, buf.Bytes(), 0644))

	idx, err := Open(context.Background(), fn, s)
	require.NoError(t, err)
	defer idx.Cleanup()

	assert.Equal(t, filepath.Join(dir, "run.lsf"), idx.Path())
	assert.Equal(t, 50, idx.RecordCount())

	again, err := Open(context.Background(), fn, s)
	require.NoError(t, err)
	defer again.Cleanup()
	assert.Equal(t, 50, again.RecordCount())
}

func TestConcurrentReaders(t *testing.T) {
	s := testSchema(t)
	fn := mixedLog(t, s).write(filepath.Join(t.TempDir(), "run.lsf"))
	idx, err := Build(context.Background(), fn, s)
	require.NoError(t, err)
	defer idx.Cleanup()

	var wg sync.WaitGroup
	counts := make([]int, 8)
	for g := range counts {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			it := idx.MessagesOfType(typeSample)
			for it.Next() {
				if _, err := it.Message(); err == nil {
					counts[g]++
				}
			}
		}(g)
	}
	wg.Wait()

	for _, n := range counts {
		assert.Equal(t, 33, n)
	}
}

func TestSearch(t *testing.T) {
	s := testSchema(t)
	idx := buildBytes(t, s, mixedLog(t, s).buf)

	onlyStatus := func(ls map[string]string) bool { return ls["type"] == "Status" }

	var got []*Record
	err := idx.Search(context.Background(), func(r *Record) error {
		got = append(got, r)
		return nil
	}, onlyStatus, 1000, 1005)
	require.NoError(t, err)

	require.Len(t, got, 4)
	for i, r := range got {
		assert.Equal(t, i*3, r.Index)
		assert.Equal(t, "Status", r.Labels["type"])
		assert.Equal(t, "test.lsf", r.Log)
		code, _ := r.Message.Get("code")
		assert.Equal(t, uint16(i*3), code)
	}

	stop := errors.New("stop")
	n := 0
	err = idx.Search(context.Background(), func(r *Record) error {
		n++
		return stop
	}, nil, 0, 2000)
	assert.Equal(t, stop, err)
	assert.Equal(t, 1, n)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = idx.Search(ctx, func(r *Record) error { return nil }, nil, 0, 2000)
	assert.Equal(t, context.Canceled, err)
}

func TestRecordAt(t *testing.T) {
	s := testSchema(t)
	idx := buildBytes(t, s, mixedLog(t, s).buf)

	r, err := idx.RecordAt(3)
	require.NoError(t, err)
	assert.Equal(t, 3, r.Index)
	assert.Equal(t, uint16(20), r.Type)
	assert.Equal(t, "Status", r.Labels["type"])
	assert.Equal(t, 1001.5, r.Message.Timestamp)

	_, err = idx.RecordAt(50)
	assert.True(t, errors.Is(err, ErrOutOfRange))
}
