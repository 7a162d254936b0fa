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

package names

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QubitProducts/lsfindex/codec"
	"github.com/QubitProducts/lsfindex/schema"
)

func TestTableObserve(t *testing.T) {
	tbl := NewTable()

	_, ok := tbl.Resolve(1)
	assert.False(t, ok)

	tbl.Observe(1, "lauv-xplore-1")
	tbl.Observe(1, "lauv-xplore-1")
	n, ok := tbl.Resolve(1)
	assert.True(t, ok)
	assert.Equal(t, "lauv-xplore-1", n)
	assert.Equal(t, 1, tbl.Len())

	tbl.Observe(1, "lauv-xplore-2")
	n, _ = tbl.Resolve(1)
	assert.Equal(t, "lauv-xplore-2", n)

	assert.Equal(t, map[uint32]string{1: "lauv-xplore-2"}, tbl.Snapshot())
}

func TestTableConcurrent(t *testing.T) {
	tbl := NewTable()

	wg := sync.WaitGroup{}
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				tbl.Observe(uint32(i), fmt.Sprintf("name-%d", i))
				tbl.Resolve(uint32((i + w) % 200))
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, 200, tbl.Len())
	n, _ := tbl.Resolve(42)
	assert.Equal(t, "name-42", n)
}

func TestResolverFallback(t *testing.T) {
	r := NewResolver()
	assert.Equal(t, "8193", r.SystemName(8193))
	assert.Equal(t, "3", r.EntityName(8193, 3))

	r.ObserveSystem(8193, "lauv-xplore-1")
	r.ObserveEntity(8193, 3, "Navigation")
	assert.Equal(t, "lauv-xplore-1", r.SystemName(8193))
	assert.Equal(t, "Navigation", r.EntityName(8193, 3))
	assert.Equal(t, "3", r.EntityName(8194, 3))

	var nilr *Resolver
	assert.Equal(t, "7", nilr.SystemName(7))

	src, ent := SplitEntityKey(EntityKey(8193, 3))
	assert.EqualValues(t, 8193, src)
	assert.EqualValues(t, 3, ent)
}

func TestAnnouncer(t *testing.T) {
	s, err := schema.New("",
		schema.Entry{ID: 3, Name: "EntityInfo", Fields: []schema.Field{
			{Name: "id", Kind: schema.Uint8},
			{Name: "label", Kind: schema.String},
		}},
		schema.Entry{ID: 151, Name: "Announce", Fields: []schema.Field{
			{Name: "sys_name", Kind: schema.String},
			{Name: "sys_type", Kind: schema.Uint8},
		}},
	)
	require.NoError(t, err)

	ei, _ := s.ResolveByName("EntityInfo")
	an, _ := s.ResolveByName("Announce")

	r := NewResolver()
	a := NewAnnouncer(r)

	assert.True(t, a.Wants("Announce"))
	assert.True(t, a.Wants("EntityInfo"))
	assert.False(t, a.Wants("EstimatedState"))

	assert.True(t, a.Apply(&codec.Message{
		Header: codec.Header{Src: 30},
		Type:   151, Entry: an,
		Values: []interface{}{"lauv-noptilus-1", uint8(2)},
	}))
	assert.True(t, a.Apply(&codec.Message{
		Header: codec.Header{Src: 30},
		Type:   3, Entry: ei,
		Values: []interface{}{uint8(12), "Sidescan"},
	}))
	assert.False(t, a.Apply(&codec.Message{Type: 99}))

	assert.Equal(t, "lauv-noptilus-1", r.SystemName(30))
	assert.Equal(t, "Sidescan", r.EntityName(30, 12))
}

func TestLoadFile(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "names.yaml")
	require.NoError(t, os.WriteFile(fn, []byte(`
systems:
  8193: lauv-xplore-1
entities:
  "8193/3": Navigation
`), 0644))

	r := NewResolver()
	require.NoError(t, LoadFile(fn, r))
	assert.Equal(t, "lauv-xplore-1", r.SystemName(8193))
	assert.Equal(t, "Navigation", r.EntityName(8193, 3))

	require.NoError(t, os.WriteFile(fn, []byte(`
entities:
  "8193": Navigation
`), 0644))
	assert.Error(t, LoadFile(fn, r))
}

func TestDirectoryApplyAtomic(t *testing.T) {
	d := Directory{
		Systems: map[uint16]string{8195: "lauv-noptilus-1"},
		Entities: map[string]string{
			"8195/4": "Sidescan",
			"8195/x": "Broken",
		},
	}

	r := NewResolver()
	require.Error(t, d.Apply(r))
	assert.Equal(t, "8195", r.SystemName(8195))
	assert.Equal(t, "4", r.EntityName(8195, 4))

	delete(d.Entities, "8195/x")
	require.NoError(t, d.Apply(r))
	assert.Equal(t, "lauv-noptilus-1", r.SystemName(8195))
	assert.Equal(t, "Sidescan", r.EntityName(8195, 4))
}

func TestWatch(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "names.yaml")
	require.NoError(t, os.WriteFile(fn, []byte("systems: {1: first}\n"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := NewResolver()
	require.NoError(t, Watch(ctx, fn, r))
	assert.Equal(t, "first", r.SystemName(1))

	require.NoError(t, os.WriteFile(fn, []byte("systems: {1: second, 2: other}\n"), 0644))

	require.Eventually(t, func() bool {
		return r.SystemName(1) == "second" && r.SystemName(2) == "other"
	}, 5*time.Second, 20*time.Millisecond)
}
