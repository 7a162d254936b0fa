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

	"github.com/pkg/errors"

	"github.com/QubitProducts/lsfindex/schema"
)

// Encode encodes m as a full record, header included. The schema entry is
// looked up from m.Type; m.Entry is ignored. Messages of types missing from
// the schema are written with m.Raw as the payload, which must not be
// empty. Raw and MessageList values must be non-nil.
func (c *Codec) Encode(m *Message) ([]byte, error) {
	buf := make([]byte, HeaderSize, HeaderSize+64)
	buf, err := c.appendPayload(buf, m)
	if err != nil {
		return nil, err
	}

	size := len(buf) - HeaderSize
	if size > MaxPayloadSize {
		return nil, errors.Wrapf(ErrInvalidFieldEncoding, "payload of %d bytes exceeds %d", size, MaxPayloadSize)
	}

	EncodeHeader(buf, m.Header, m.Type, uint16(size))
	return buf, nil
}

// EncodePayload encodes the fields of m without a record header.
func (c *Codec) EncodePayload(m *Message) ([]byte, error) {
	return c.appendPayload(nil, m)
}

func (c *Codec) appendPayload(buf []byte, m *Message) ([]byte, error) {
	ent, ok := c.schema.Resolve(m.Type)
	if !ok {
		if len(m.Raw) == 0 {
			return nil, errors.Wrapf(ErrInvalidFieldEncoding, "empty payload for unknown type %d", m.Type)
		}
		return append(buf, m.Raw...), nil
	}

	enc := &encoder{c: c, buf: buf}
	if err := enc.fields(ent, m.Values, 0); err != nil {
		return nil, errors.Wrapf(err, "encoding %s", ent.Name)
	}
	return enc.buf, nil
}

type encoder struct {
	c   *Codec
	buf []byte
}

func (e *encoder) uint16(v uint16) {
	e.buf = binary.LittleEndian.AppendUint16(e.buf, v)
}

func (e *encoder) fields(ent *schema.Entry, vs []interface{}, depth int) error {
	if len(vs) != len(ent.Fields) {
		return errors.Wrapf(ErrInvalidFieldEncoding, "%d values for %d fields", len(vs), len(ent.Fields))
	}
	for i, f := range ent.Fields {
		if err := e.value(f, vs[i], depth); err != nil {
			return errors.Wrapf(err, "field %s", f.Name)
		}
	}
	return nil
}

func (e *encoder) value(f schema.Field, v interface{}, depth int) error {
	if f.Kind.Numeric() {
		return e.numeric(f.Kind, v)
	}

	switch f.Kind {
	case schema.FixedString:
		s, ok := v.(string)
		if !ok {
			return mismatch(f, v)
		}
		if len(s) > f.Length {
			return errors.Wrapf(ErrInvalidFieldEncoding, "string of %d bytes exceeds fixed length %d", len(s), f.Length)
		}
		e.buf = append(e.buf, s...)
		for i := len(s); i < f.Length; i++ {
			e.buf = append(e.buf, 0)
		}
		return nil

	case schema.String:
		s, ok := v.(string)
		if !ok {
			return mismatch(f, v)
		}
		return e.prefixed([]byte(s))

	case schema.Raw:
		bs, ok := v.([]byte)
		if !ok {
			return mismatch(f, v)
		}
		// Decoding yields an empty slice, never nil.
		if bs == nil {
			return errors.Wrap(ErrInvalidFieldEncoding, "nil raw value, use []byte{}")
		}
		return e.prefixed(bs)

	case schema.Message:
		m, ok := v.(*Message)
		if !ok && v != nil {
			return mismatch(f, v)
		}
		if m == nil {
			e.uint16(schema.NullType)
			return nil
		}
		return e.nested(f, m, depth)

	case schema.MessageList:
		ms, ok := v.([]*Message)
		if !ok {
			return mismatch(f, v)
		}
		if ms == nil {
			return errors.Wrap(ErrInvalidFieldEncoding, "nil message list, use []*Message{}")
		}
		if len(ms) > math.MaxUint16 {
			return errors.Wrapf(ErrInvalidFieldEncoding, "list of %d messages is too long", len(ms))
		}
		e.uint16(uint16(len(ms)))
		for i, m := range ms {
			if m == nil {
				return errors.Wrapf(ErrInvalidFieldEncoding, "element %d is nil", i)
			}
			if err := e.nested(f, m, depth); err != nil {
				return errors.Wrapf(err, "element %d", i)
			}
		}
		return nil
	}

	return errors.Wrapf(ErrInvalidFieldEncoding, "unsupported kind %s", f.Kind)
}

func (e *encoder) prefixed(bs []byte) error {
	if len(bs) > math.MaxUint16 {
		return errors.Wrapf(ErrInvalidFieldEncoding, "value of %d bytes is too long", len(bs))
	}
	e.uint16(uint16(len(bs)))
	e.buf = append(e.buf, bs...)
	return nil
}

func (e *encoder) nested(f schema.Field, m *Message, depth int) error {
	if depth+1 > MaxDepth {
		return errors.Wrapf(ErrInvalidFieldEncoding, "messages nested deeper than %d", MaxDepth)
	}

	ent, ok := e.c.schema.Resolve(m.Type)
	if !ok {
		return errors.Wrapf(ErrUnknownNestedType, "type id %d", m.Type)
	}
	if f.MessageType != "" && f.MessageType != ent.Name {
		return errors.Wrapf(ErrInvalidFieldEncoding, "expected %s message, got %s", f.MessageType, ent.Name)
	}

	e.uint16(m.Type)
	if err := e.fields(ent, m.Values, depth+1); err != nil {
		return errors.Wrapf(err, "in %s", ent.Name)
	}
	return nil
}

func (e *encoder) numeric(k schema.Kind, v interface{}) error {
	le := binary.LittleEndian
	switch k {
	case schema.Int8:
		if x, ok := v.(int8); ok {
			e.buf = append(e.buf, byte(x))
			return nil
		}
	case schema.Uint8:
		if x, ok := v.(uint8); ok {
			e.buf = append(e.buf, x)
			return nil
		}
	case schema.Int16:
		if x, ok := v.(int16); ok {
			e.buf = le.AppendUint16(e.buf, uint16(x))
			return nil
		}
	case schema.Uint16:
		if x, ok := v.(uint16); ok {
			e.buf = le.AppendUint16(e.buf, x)
			return nil
		}
	case schema.Int32:
		if x, ok := v.(int32); ok {
			e.buf = le.AppendUint32(e.buf, uint32(x))
			return nil
		}
	case schema.Uint32:
		if x, ok := v.(uint32); ok {
			e.buf = le.AppendUint32(e.buf, x)
			return nil
		}
	case schema.Float32:
		if x, ok := v.(float32); ok {
			e.buf = le.AppendUint32(e.buf, math.Float32bits(x))
			return nil
		}
	case schema.Int64:
		if x, ok := v.(int64); ok {
			e.buf = le.AppendUint64(e.buf, uint64(x))
			return nil
		}
	case schema.Uint64:
		if x, ok := v.(uint64); ok {
			e.buf = le.AppendUint64(e.buf, x)
			return nil
		}
	case schema.Float64:
		if x, ok := v.(float64); ok {
			e.buf = le.AppendUint64(e.buf, math.Float64bits(x))
			return nil
		}
	}
	return errors.Wrapf(ErrInvalidFieldEncoding, "%T can not be encoded as %s", v, k)
}

func mismatch(f schema.Field, v interface{}) error {
	return errors.Wrapf(ErrInvalidFieldEncoding, "%T can not be encoded as %s", v, f.Kind)
}
