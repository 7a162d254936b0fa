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
	"bufio"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"

	"github.com/QubitProducts/lsfindex/codec"
	"github.com/golang/glog"
	"github.com/pkg/errors"
)

const (
	cacheMagic     = "LSFIDX"
	cacheVersion   = 2
	cacheEntrySize = 26
	cacheSuffix    = ".idx"
)

// CachePath returns the sidecar file used to cache the index of the log fn.
func CachePath(fn string) string {
	return fn + cacheSuffix
}

type cacheHeader struct {
	size      uint64
	mtime     int64
	schema    string
	digest    uint64
	truncated int64
	corrupt   int64
	reason    string
	count     uint32
}

func cacheHeaderFor(idx *Index) (cacheHeader, error) {
	fi, err := os.Stat(idx.path)
	if err != nil {
		return cacheHeader{}, err
	}
	ch := cacheHeader{
		size:      uint64(fi.Size()),
		mtime:     fi.ModTime().UnixNano(),
		schema:    idx.codec.Schema().Version(),
		digest:    idx.codec.Schema().Digest(),
		truncated: idx.truncated,
		corrupt:   -1,
		count:     uint32(len(idx.entries)),
	}
	if idx.corrupt != nil {
		ch.corrupt = idx.corrupt.Offset
		ch.reason = idx.corrupt.Reason
	}
	return ch, nil
}

func writeCache(idx *Index) error {
	ch, err := cacheHeaderFor(idx)
	if err != nil {
		return err
	}

	fn := CachePath(idx.path)
	tmp, err := os.CreateTemp(filepath.Dir(fn), filepath.Base(fn)+".tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	w.WriteString(cacheMagic)
	w.WriteByte(cacheVersion)
	le := binary.LittleEndian
	var buf [cacheEntrySize]byte
	w.Write(le.AppendUint64(buf[:0], ch.size))
	w.Write(le.AppendUint64(buf[:0], uint64(ch.mtime)))
	writeString(w, ch.schema)
	w.Write(le.AppendUint64(buf[:0], ch.digest))
	w.Write(le.AppendUint64(buf[:0], uint64(ch.truncated)))
	w.Write(le.AppendUint64(buf[:0], uint64(ch.corrupt)))
	writeString(w, ch.reason)
	w.Write(le.AppendUint32(buf[:0], ch.count))

	for i, e := range idx.entries {
		b := buf[:0]
		b = le.AppendUint64(b, uint64(e.Offset))
		b = le.AppendUint16(b, e.Type)
		b = le.AppendUint64(b, math.Float64bits(e.Timestamp))
		b = le.AppendUint16(b, e.Src)
		b = append(b, e.SrcEnt)
		b = le.AppendUint16(b, e.Dst)
		b = append(b, e.DstEnt)
		b = le.AppendUint16(b, idx.sizes[i])
		if _, err := w.Write(b); err != nil {
			tmp.Close()
			return err
		}
	}

	if err := w.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	glog.V(2).Infof("wrote index cache %s, %d entries", fn, ch.count)
	return os.Rename(tmp.Name(), fn)
}

func writeString(w *bufio.Writer, s string) {
	if len(s) > math.MaxUint16 {
		s = s[:math.MaxUint16]
	}
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], uint16(len(s)))
	w.Write(buf[:])
	w.WriteString(s)
}

// readCache fills idx from its sidecar, reporting whether there was a
// usable one.
func readCache(idx *Index) (bool, error) {
	bs, err := os.ReadFile(CachePath(idx.path))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	want, err := cacheHeaderFor(idx)
	if err != nil {
		return false, err
	}

	r := &cacheReader{buf: bs}
	if string(r.take(len(cacheMagic))) != cacheMagic {
		return false, errors.New("bad index cache magic")
	}
	if v := r.take(1); len(v) != 1 || v[0] != cacheVersion {
		return false, errors.New("unsupported index cache version")
	}
	got := cacheHeader{
		size:   r.uint64(),
		mtime:  int64(r.uint64()),
		schema: r.string(),
		digest: r.uint64(),
	}
	got.truncated = int64(r.uint64())
	got.corrupt = int64(r.uint64())
	got.reason = r.string()
	got.count = r.uint32()
	if r.err != nil {
		return false, r.err
	}

	if got.size != want.size || got.mtime != want.mtime || got.schema != want.schema || got.digest != want.digest {
		glog.V(1).Infof("index cache for %s is stale", idx.path)
		return false, nil
	}
	if len(r.buf)-r.pos != int(got.count)*cacheEntrySize {
		return false, errors.Errorf("index cache holds %d bytes for %d entries", len(r.buf)-r.pos, got.count)
	}

	entries := make([]Entry, 0, got.count)
	sizes := make([]uint16, 0, got.count)
	end := int64(0)
	for i := uint32(0); i < got.count; i++ {
		e := Entry{
			Offset:    int64(r.uint64()),
			Type:      r.uint16(),
			Timestamp: math.Float64frombits(r.uint64()),
			Src:       r.uint16(),
			SrcEnt:    r.uint8(),
			Dst:       r.uint16(),
			DstEnt:    r.uint8(),
		}
		size := r.uint16()
		if e.Offset != end {
			return false, errors.Errorf("index cache entry %d at offset %d, expected %d", i, e.Offset, end)
		}
		end = e.Offset + codec.HeaderSize + int64(size)
		entries = append(entries, e)
		sizes = append(sizes, size)
	}
	if end > int64(got.size) {
		return false, errors.New("index cache entries overrun the log")
	}

	for i, e := range entries {
		idx.add(e, sizes[i])
	}

	idx.truncated = got.truncated
	if got.corrupt >= 0 {
		idx.corrupt = &CorruptRecordError{Offset: got.corrupt, Reason: got.reason}
	}
	glog.V(2).Infof("read index cache for %s, %d entries", idx.path, got.count)
	return true, nil
}

type cacheReader struct {
	buf []byte
	pos int
	err error
}

func (r *cacheReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if len(r.buf)-r.pos < n {
		r.err = errors.New("index cache is truncated")
		return nil
	}
	bs := r.buf[r.pos : r.pos+n]
	r.pos += n
	return bs
}

func (r *cacheReader) uint8() uint8 {
	if bs := r.take(1); bs != nil {
		return bs[0]
	}
	return 0
}

func (r *cacheReader) uint16() uint16 {
	if bs := r.take(2); bs != nil {
		return binary.LittleEndian.Uint16(bs)
	}
	return 0
}

func (r *cacheReader) uint32() uint32 {
	if bs := r.take(4); bs != nil {
		return binary.LittleEndian.Uint32(bs)
	}
	return 0
}

func (r *cacheReader) uint64() uint64 {
	if bs := r.take(8); bs != nil {
		return binary.LittleEndian.Uint64(bs)
	}
	return 0
}

func (r *cacheReader) string() string {
	n := r.uint16()
	return string(r.take(int(n)))
}
