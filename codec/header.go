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
	"time"

	"github.com/pkg/errors"
)

// HeaderSize is the encoded size of a record header.
const HeaderSize = 18

// MaxPayloadSize is the largest payload that fits the header length field.
const MaxPayloadSize = math.MaxUint16

var (
	// ErrTruncated is returned when a buffer ends before a record, or a
	// value inside it, is complete.
	ErrTruncated = errors.New("truncated record")
	// ErrUnknownNestedType is returned when an embedded message type id is
	// not in the schema.
	ErrUnknownNestedType = errors.New("unknown nested message type")
	// ErrInvalidFieldEncoding is returned when a payload does not match its
	// schema, or a value can not be represented on the wire.
	ErrInvalidFieldEncoding = errors.New("invalid field encoding")
)

// Header is the fixed part of every record.
type Header struct {
	Timestamp float64 // seconds since the epoch
	Src       uint16
	SrcEnt    uint8
	Dst       uint16
	DstEnt    uint8
}

// Time returns the header timestamp as a time.Time.
func (h Header) Time() time.Time {
	sec, frac := math.Modf(h.Timestamp)
	return time.Unix(int64(sec), int64(frac*1e9))
}

// DecodeHeader reads the header at the start of buf, returning the header,
// the record type id, and the declared payload size.
func DecodeHeader(buf []byte) (Header, uint16, uint16, error) {
	if len(buf) < HeaderSize {
		return Header{}, 0, 0, errors.Wrapf(ErrTruncated, "header needs %d bytes, have %d", HeaderSize, len(buf))
	}

	h := Header{
		Timestamp: math.Float64frombits(binary.LittleEndian.Uint64(buf[0:8])),
		Src:       binary.LittleEndian.Uint16(buf[8:10]),
		SrcEnt:    buf[10],
		Dst:       binary.LittleEndian.Uint16(buf[11:13]),
		DstEnt:    buf[13],
	}
	typ := binary.LittleEndian.Uint16(buf[14:16])
	size := binary.LittleEndian.Uint16(buf[16:18])

	return h, typ, size, nil
}

// EncodeHeader writes a header into the first HeaderSize bytes of dst.
func EncodeHeader(dst []byte, h Header, typ, size uint16) {
	binary.LittleEndian.PutUint64(dst[0:8], math.Float64bits(h.Timestamp))
	binary.LittleEndian.PutUint16(dst[8:10], h.Src)
	dst[10] = h.SrcEnt
	binary.LittleEndian.PutUint16(dst[11:13], h.Dst)
	dst[13] = h.DstEnt
	binary.LittleEndian.PutUint16(dst[14:16], typ)
	binary.LittleEndian.PutUint16(dst[16:18], size)
}
