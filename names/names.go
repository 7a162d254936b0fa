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
	"fmt"
	"strconv"
	"sync"
)

// Table is a concurrency safe id to name mapping. The last Observe for an id
// wins.
type Table struct {
	sync.RWMutex
	names map[uint32]string
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{names: map[uint32]string{}}
}

// Observe records name for id.
func (t *Table) Observe(id uint32, name string) {
	t.Lock()
	t.names[id] = name
	t.Unlock()
}

// Resolve returns the name for id, if known.
func (t *Table) Resolve(id uint32) (string, bool) {
	t.RLock()
	defer t.RUnlock()
	n, ok := t.names[id]
	return n, ok
}

// Len is the number of known names.
func (t *Table) Len() int {
	t.RLock()
	defer t.RUnlock()
	return len(t.names)
}

// Snapshot returns a copy of the table contents.
func (t *Table) Snapshot() map[uint32]string {
	t.RLock()
	defer t.RUnlock()
	res := make(map[uint32]string, len(t.names))
	for k, v := range t.names {
		res[k] = v
	}
	return res
}

// Resolver holds the system and entity name tables for a session.
type Resolver struct {
	Systems  *Table
	Entities *Table
}

// NewResolver creates a resolver with empty tables.
func NewResolver() *Resolver {
	return &Resolver{
		Systems:  NewTable(),
		Entities: NewTable(),
	}
}

// EntityKey combines a system id and an entity id into a single table key.
func EntityKey(src uint16, ent uint8) uint32 {
	return uint32(src)<<8 | uint32(ent)
}

// SplitEntityKey is the inverse of EntityKey.
func SplitEntityKey(k uint32) (uint16, uint8) {
	return uint16(k >> 8), uint8(k)
}

// ObserveSystem records the name of system src.
func (r *Resolver) ObserveSystem(src uint16, name string) {
	r.Systems.Observe(uint32(src), name)
}

// ObserveEntity records the label of entity ent on system src.
func (r *Resolver) ObserveEntity(src uint16, ent uint8, label string) {
	r.Entities.Observe(EntityKey(src, ent), label)
}

// SystemName returns the name of system src, or its numeric id when the name
// is not known.
func (r *Resolver) SystemName(src uint16) string {
	if r != nil {
		if n, ok := r.Systems.Resolve(uint32(src)); ok {
			return n
		}
	}
	return strconv.Itoa(int(src))
}

// EntityName returns the label of entity ent on system src, or the numeric
// entity id when the label is not known.
func (r *Resolver) EntityName(src uint16, ent uint8) string {
	if r != nil {
		if n, ok := r.Entities.Resolve(EntityKey(src, ent)); ok {
			return n
		}
	}
	return strconv.Itoa(int(ent))
}

func (r *Resolver) String() string {
	return fmt.Sprintf("names.Resolver{systems: %d, entities: %d}", r.Systems.Len(), r.Entities.Len())
}
