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
	"bytes"
	"encoding/binary"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/pkg/errors"
)

const (
	// FrameSync marks the start of an embedded compressed frame.
	FrameSync = 0xFE54
	// FrameHeaderSize covers the sync word and the inner type id.
	FrameHeaderSize = 4

	// MaxInflatedSize caps the decompressed size of a single frame.
	MaxInflatedSize = 1 << 20

	inflateBufSize = 64 << 10
)

var (
	// ErrBadSync is returned when a compressed frame does not start with
	// FrameSync. Such frames are expected in damaged logs and should be
	// skipped by callers.
	ErrBadSync = errors.New("bad compressed frame sync")
	// ErrInflate is returned when the compressed body can not be inflated.
	ErrInflate = errors.New("inflating compressed frame")
)

// Decompress validates and inflates a compressed frame, returning the inner
// type id and the inner payload.
func Decompress(frame []byte) (uint16, []byte, error) {
	if len(frame) < FrameHeaderSize {
		return 0, nil, errors.Wrapf(ErrBadSync, "frame of %d bytes", len(frame))
	}
	if sync := binary.LittleEndian.Uint16(frame[0:2]); sync != FrameSync {
		return 0, nil, errors.Wrapf(ErrBadSync, "got %#04x", sync)
	}
	typ := binary.LittleEndian.Uint16(frame[2:4])

	zr, err := zlib.NewReader(bytes.NewReader(frame[FrameHeaderSize:]))
	if err != nil {
		return 0, nil, errors.Wrap(ErrInflate, err.Error())
	}
	defer zr.Close()

	out := bytes.NewBuffer(make([]byte, 0, inflateBufSize))
	if _, err := io.Copy(out, io.LimitReader(zr, MaxInflatedSize+1)); err != nil {
		return 0, nil, errors.Wrap(ErrInflate, err.Error())
	}
	if out.Len() > MaxInflatedSize {
		return 0, nil, errors.Wrapf(ErrInflate, "inflated frame exceeds %d bytes", MaxInflatedSize)
	}

	return typ, out.Bytes(), nil
}

// Compress builds a compressed frame holding the payload of an inner message
// of type typ.
func Compress(typ uint16, payload []byte) ([]byte, error) {
	buf := &bytes.Buffer{}
	hdr := make([]byte, FrameHeaderSize)
	binary.LittleEndian.PutUint16(hdr[0:2], FrameSync)
	binary.LittleEndian.PutUint16(hdr[2:4], typ)
	buf.Write(hdr)

	zw := zlib.NewWriter(buf)
	if _, err := zw.Write(payload); err != nil {
		return nil, errors.Wrap(err, "compressing frame")
	}
	if err := zw.Close(); err != nil {
		return nil, errors.Wrap(err, "compressing frame")
	}

	return buf.Bytes(), nil
}

// Expand decompresses a frame and decodes the inner message. The inner
// message has a zero Header.
func (c *Codec) Expand(frame []byte) (*Message, error) {
	typ, payload, err := Decompress(frame)
	if err != nil {
		return nil, err
	}

	if _, ok := c.schema.Resolve(typ); !ok {
		return nil, errors.Wrapf(ErrUnknownNestedType, "compressed frame type id %d", typ)
	}

	return c.DecodePayload(typ, payload)
}

// CompressMessage encodes m and wraps its payload in a compressed frame.
func (c *Codec) CompressMessage(m *Message) ([]byte, error) {
	payload, err := c.EncodePayload(m)
	if err != nil {
		return nil, err
	}
	return Compress(m.Type, payload)
}
