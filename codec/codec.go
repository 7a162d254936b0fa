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

package codec

import (
	"encoding/binary"
	"math"
	"strings"

	"github.com/pkg/errors"

	"github.com/QubitProducts/lsfindex/schema"
)

// MaxDepth bounds how deeply nested messages may be embedded in each other.
const MaxDepth = 16

// Codec encodes and decodes records using a schema. It holds no mutable
// state and is safe for concurrent use.
type Codec struct {
	schema *schema.Schema
}

// New creates a codec for s.
func New(s *schema.Schema) *Codec {
	return &Codec{schema: s}
}

// Schema returns the schema used by the codec.
func (c *Codec) Schema() *schema.Schema {
	return c.schema
}

// Decode decodes the record starting at buf[off:], returning the message and
// the number of bytes the record occupies.
func (c *Codec) Decode(buf []byte, off int) (*Message, int, error) {
	if off < 0 || off > len(buf) {
		return nil, 0, errors.Wrapf(ErrTruncated, "offset %d outside buffer of %d bytes", off, len(buf))
	}

	h, typ, size, err := DecodeHeader(buf[off:])
	if err != nil {
		return nil, 0, err
	}

	n := HeaderSize + int(size)
	if len(buf)-off < n {
		return nil, 0, errors.Wrapf(ErrTruncated, "record at %d declares %d payload bytes, %d available", off, size, len(buf)-off-HeaderSize)
	}

	m, err := c.DecodePayload(typ, buf[off+HeaderSize:off+n])
	if err != nil {
		return nil, 0, err
	}
	m.Header = h

	return m, n, nil
}

// DecodePayload decodes a payload of type typ that has no record header.
// Types missing from the schema are returned with their raw payload.
func (c *Codec) DecodePayload(typ uint16, payload []byte) (*Message, error) {
	e, ok := c.schema.Resolve(typ)
	if !ok {
		return &Message{Type: typ, Raw: append([]byte{}, payload...)}, nil
	}

	d := &decoder{c: c, buf: payload}
	vs, err := d.fields(e, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s", e.Name)
	}
	if d.pos != len(payload) {
		return nil, errors.Wrapf(ErrInvalidFieldEncoding, "decoding %s, %d trailing payload bytes", e.Name, len(payload)-d.pos)
	}

	return &Message{Type: typ, Entry: e, Values: vs}, nil
}

type decoder struct {
	c   *Codec
	buf []byte
	pos int
}

func (d *decoder) take(n int) ([]byte, error) {
	if len(d.buf)-d.pos < n {
		return nil, errors.Wrapf(ErrTruncated, "need %d bytes at payload offset %d, have %d", n, d.pos, len(d.buf)-d.pos)
	}
	bs := d.buf[d.pos : d.pos+n]
	d.pos += n
	return bs, nil
}

func (d *decoder) uint16() (uint16, error) {
	bs, err := d.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(bs), nil
}

func (d *decoder) fields(e *schema.Entry, depth int) ([]interface{}, error) {
	vs := make([]interface{}, 0, len(e.Fields))
	for _, f := range e.Fields {
		v, err := d.value(f, depth)
		if err != nil {
			return nil, errors.Wrapf(err, "field %s", f.Name)
		}
		vs = append(vs, v)
	}
	return vs, nil
}

func (d *decoder) value(f schema.Field, depth int) (interface{}, error) {
	if f.Kind.Numeric() {
		bs, err := d.take(f.Kind.Width())
		if err != nil {
			return nil, err
		}
		return decodeNumeric(f.Kind, bs), nil
	}

	switch f.Kind {
	case schema.FixedString:
		bs, err := d.take(f.Length)
		if err != nil {
			return nil, err
		}
		return strings.TrimRight(string(bs), "\x00"), nil

	case schema.String, schema.Raw:
		n, err := d.uint16()
		if err != nil {
			return nil, err
		}
		bs, err := d.take(int(n))
		if err != nil {
			return nil, err
		}
		if f.Kind == schema.String {
			return string(bs), nil
		}
		return append([]byte{}, bs...), nil

	case schema.Message:
		return d.nested(f, depth, true)

	case schema.MessageList:
		n, err := d.uint16()
		if err != nil {
			return nil, err
		}
		ms := make([]*Message, 0, n)
		for i := 0; i < int(n); i++ {
			m, err := d.nested(f, depth, false)
			if err != nil {
				return nil, errors.Wrapf(err, "element %d", i)
			}
			ms = append(ms, m)
		}
		return ms, nil
	}

	return nil, errors.Wrapf(ErrInvalidFieldEncoding, "unsupported kind %s", f.Kind)
}

func (d *decoder) nested(f schema.Field, depth int, nullable bool) (*Message, error) {
	typ, err := d.uint16()
	if err != nil {
		return nil, err
	}

	if typ == schema.NullType {
		if !nullable {
			return nil, errors.Wrap(ErrInvalidFieldEncoding, "null message in list")
		}
		return nil, nil
	}

	if depth+1 > MaxDepth {
		return nil, errors.Wrapf(ErrInvalidFieldEncoding, "messages nested deeper than %d", MaxDepth)
	}

	e, ok := d.c.schema.Resolve(typ)
	if !ok {
		return nil, errors.Wrapf(ErrUnknownNestedType, "type id %d", typ)
	}
	if f.MessageType != "" && f.MessageType != e.Name {
		return nil, errors.Wrapf(ErrInvalidFieldEncoding, "expected %s message, got %s", f.MessageType, e.Name)
	}

	vs, err := d.fields(e, depth+1)
	if err != nil {
		return nil, errors.Wrapf(err, "in %s", e.Name)
	}

	return &Message{Type: typ, Entry: e, Values: vs}, nil
}

func decodeNumeric(k schema.Kind, bs []byte) interface{} {
	switch k {
	case schema.Int8:
		return int8(bs[0])
	case schema.Uint8:
		return bs[0]
	case schema.Int16:
		return int16(binary.LittleEndian.Uint16(bs))
	case schema.Uint16:
		return binary.LittleEndian.Uint16(bs)
	case schema.Int32:
		return int32(binary.LittleEndian.Uint32(bs))
	case schema.Uint32:
		return binary.LittleEndian.Uint32(bs)
	case schema.Float32:
		return math.Float32frombits(binary.LittleEndian.Uint32(bs))
	case schema.Int64:
		return int64(binary.LittleEndian.Uint64(bs))
	case schema.Uint64:
		return binary.LittleEndian.Uint64(bs)
	case schema.Float64:
		return math.Float64frombits(binary.LittleEndian.Uint64(bs))
	}
	return nil
}
