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

package schema

import (
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
)

// NullType is the nested type id used on the wire for an absent message. It
// can not be assigned to an Entry.
const NullType = 0xFFFF

// ErrInvalidSchema is returned, wrapped, for any unreadable or malformed
// schema definition.
var ErrInvalidSchema = errors.New("invalid schema")

// Field describes one field of a message type.
type Field struct {
	Name string
	Kind Kind
	Unit string

	// Length is the size in bytes of a FixedString field.
	Length int

	// MessageType optionally constrains the type of a Message or
	// MessageList field. Empty means any type.
	MessageType string
}

// Entry is the definition of a single message type.
type Entry struct {
	ID     uint16
	Name   string
	Fields []Field

	index   map[string]int
	minSize int
}

// FieldIndex returns the position of the named field.
func (e *Entry) FieldIndex(name string) (int, bool) {
	i, ok := e.index[name]
	return i, ok
}

// MinSize is the smallest payload a message of this type can encode to.
func (e *Entry) MinSize() int {
	return e.minSize
}

// Schema is an immutable collection of message type definitions.
type Schema struct {
	version string
	entries []*Entry
	byID    map[uint16]*Entry
	byName  map[string]*Entry
	digest  uint64
}

// New validates the given entries and builds a Schema from them. The entries
// are copied, later changes to them are not seen by the schema.
func New(version string, entries ...Entry) (*Schema, error) {
	s := &Schema{
		version: version,
		byID:    make(map[uint16]*Entry, len(entries)),
		byName:  make(map[string]*Entry, len(entries)),
	}

	for i := range entries {
		e := entries[i]
		if e.ID == NullType {
			return nil, errors.Wrapf(ErrInvalidSchema, "type id %d is reserved", e.ID)
		}
		if e.Name == "" {
			return nil, errors.Wrapf(ErrInvalidSchema, "type id %d has no name", e.ID)
		}
		if prev, ok := s.byID[e.ID]; ok {
			return nil, errors.Wrapf(ErrInvalidSchema, "duplicate type id %d (%s, %s)", e.ID, prev.Name, e.Name)
		}
		if _, ok := s.byName[e.Name]; ok {
			return nil, errors.Wrapf(ErrInvalidSchema, "duplicate type name %q", e.Name)
		}

		e.Fields = append([]Field(nil), e.Fields...)
		e.index = make(map[string]int, len(e.Fields))
		for fi, f := range e.Fields {
			if err := checkField(&e, f); err != nil {
				return nil, err
			}
			if _, ok := e.index[f.Name]; ok {
				return nil, errors.Wrapf(ErrInvalidSchema, "%s: duplicate field %q", e.Name, f.Name)
			}
			e.index[f.Name] = fi
			e.minSize += minFieldSize(f)
		}

		ep := &e
		s.entries = append(s.entries, ep)
		s.byID[e.ID] = ep
		s.byName[e.Name] = ep
	}

	for _, e := range s.entries {
		for _, f := range e.Fields {
			if f.MessageType == "" {
				continue
			}
			if _, ok := s.byName[f.MessageType]; !ok {
				return nil, errors.Wrapf(ErrInvalidSchema, "%s.%s: unknown message type %q", e.Name, f.Name, f.MessageType)
			}
		}
	}

	sort.Slice(s.entries, func(i, j int) bool { return s.entries[i].ID < s.entries[j].ID })
	s.digest = layoutDigest(s.entries)

	return s, nil
}

// layoutDigest hashes everything that affects how records are framed and
// decoded. Units are left out.
func layoutDigest(entries []*Entry) uint64 {
	d := xxhash.New()
	for _, e := range entries {
		fmt.Fprintf(d, "%d %q\n", e.ID, e.Name)
		for _, f := range e.Fields {
			fmt.Fprintf(d, "\t%q %d %d %q\n", f.Name, int(f.Kind), f.Length, f.MessageType)
		}
	}
	return d.Sum64()
}

func checkField(e *Entry, f Field) error {
	if f.Name == "" {
		return errors.Wrapf(ErrInvalidSchema, "%s: field with no name", e.Name)
	}
	if _, ok := kindNames[f.Kind]; !ok {
		return errors.Wrapf(ErrInvalidSchema, "%s.%s: unknown field kind %d", e.Name, f.Name, f.Kind)
	}
	if f.Kind == FixedString && f.Length <= 0 {
		return errors.Wrapf(ErrInvalidSchema, "%s.%s: fixed length string needs a length", e.Name, f.Name)
	}
	if f.MessageType != "" && !f.Kind.Nested() {
		return errors.Wrapf(ErrInvalidSchema, "%s.%s: message type set on %s field", e.Name, f.Name, f.Kind)
	}
	return nil
}

func minFieldSize(f Field) int {
	switch {
	case f.Kind.Numeric():
		return f.Kind.Width()
	case f.Kind == FixedString:
		return f.Length
	default:
		// length, count or type id prefix
		return 2
	}
}

// Version is the version string the schema was loaded with.
func (s *Schema) Version() string {
	return s.version
}

// Digest identifies the schema's record layout. Schemas with the same types
// and fields have the same digest, whatever their version strings.
func (s *Schema) Digest() uint64 {
	return s.digest
}

// Resolve looks up a message type by numeric id.
func (s *Schema) Resolve(id uint16) (*Entry, bool) {
	e, ok := s.byID[id]
	return e, ok
}

// ResolveByName looks up a message type by name.
func (s *Schema) ResolveByName(name string) (*Entry, bool) {
	e, ok := s.byName[name]
	return e, ok
}

// Entries returns all message types ordered by id.
func (s *Schema) Entries() []*Entry {
	return append([]*Entry(nil), s.entries...)
}

// Len is the number of message types in the schema.
func (s *Schema) Len() int {
	return len(s.entries)
}
