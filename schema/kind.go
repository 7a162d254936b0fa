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
	"github.com/pkg/errors"
)

// Kind identifies the wire encoding of a field.
type Kind uint8

const (
	Invalid Kind = iota
	Int8
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Float32
	Float64
	FixedString // exactly Field.Length bytes, NUL padded
	String      // u16 length prefix
	Raw         // u16 length prefix
	Message     // u16 type id, 0xFFFF for none
	MessageList // u16 count of type id prefixed messages
)

var kindNames = map[Kind]string{
	Int8:        "int8_t",
	Int16:       "int16_t",
	Int32:       "int32_t",
	Int64:       "int64_t",
	Uint8:       "uint8_t",
	Uint16:      "uint16_t",
	Uint32:      "uint32_t",
	Uint64:      "uint64_t",
	Float32:     "fp32_t",
	Float64:     "fp64_t",
	FixedString: "fixedtext",
	String:      "plaintext",
	Raw:         "rawdata",
	Message:     "message",
	MessageList: "message-list",
}

var kindAliases = map[string]Kind{
	"int8":     Int8,
	"int16":    Int16,
	"int32":    Int32,
	"int64":    Int64,
	"uint8":    Uint8,
	"uint16":   Uint16,
	"uint32":   Uint32,
	"uint64":   Uint64,
	"float32":  Float32,
	"float64":  Float64,
	"string":   String,
	"bytes":    Raw,
	"messages": MessageList,
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "invalid"
}

// ParseKind returns the Kind for one of the declarative type names, such as
// "uint16_t", "fp64_t", "plaintext" or "message-list".
func ParseKind(s string) (Kind, error) {
	for k, n := range kindNames {
		if n == s {
			return k, nil
		}
	}
	if k, ok := kindAliases[s]; ok {
		return k, nil
	}
	return Invalid, errors.Wrapf(ErrInvalidSchema, "unknown field type %q", s)
}

// Width is the encoded size of fixed width numeric kinds, and 0 for
// everything else.
func (k Kind) Width() int {
	switch k {
	case Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Int64, Uint64, Float64:
		return 8
	}
	return 0
}

// Numeric reports whether k is an integer or floating point kind.
func (k Kind) Numeric() bool {
	return k.Width() != 0
}

// Nested reports whether k carries embedded messages.
func (k Kind) Nested() bool {
	return k == Message || k == MessageList
}
