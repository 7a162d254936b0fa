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
	"strconv"

	"github.com/QubitProducts/lsfindex/schema"
)

// Message is a decoded record. Values are aligned with Entry.Fields and hold
// the Go type matching each field kind:
//
//   Int8..Int64          int8, int16, int32, int64
//   Uint8..Uint64        uint8, uint16, uint32, uint64
//   Float32, Float64     float32, float64
//   FixedString, String  string
//   Raw                  []byte
//   Message              *Message, nil when absent
//   MessageList          []*Message
//
// Messages of types missing from the schema have a nil Entry and carry their
// payload in Raw. Nested messages have a zero Header.
type Message struct {
	Header
	Type   uint16
	Entry  *schema.Entry
	Values []interface{}
	Raw    []byte
}

// Name returns the type name, or the numeric type id if the type is unknown.
func (m *Message) Name() string {
	if m.Entry == nil {
		return strconv.Itoa(int(m.Type))
	}
	return m.Entry.Name
}

// Get returns the value of the named field.
func (m *Message) Get(name string) (interface{}, bool) {
	if m.Entry == nil {
		return nil, false
	}
	i, ok := m.Entry.FieldIndex(name)
	if !ok || i >= len(m.Values) {
		return nil, false
	}
	return m.Values[i], true
}

// Map returns the field values keyed by field name, with nested messages
// converted to maps as well. Unknown messages return their raw payload under
// the "_raw" key.
func (m *Message) Map() map[string]interface{} {
	if m.Entry == nil {
		return map[string]interface{}{"_raw": m.Raw}
	}

	res := make(map[string]interface{}, len(m.Values))
	for i, f := range m.Entry.Fields {
		if i >= len(m.Values) {
			break
		}
		switch v := m.Values[i].(type) {
		case *Message:
			if v == nil {
				res[f.Name] = nil
				continue
			}
			nm := v.Map()
			nm["_type"] = v.Name()
			res[f.Name] = nm
		case []*Message:
			ms := make([]map[string]interface{}, 0, len(v))
			for _, sm := range v {
				nm := sm.Map()
				nm["_type"] = sm.Name()
				ms = append(ms, nm)
			}
			res[f.Name] = ms
		default:
			res[f.Name] = v
		}
	}
	return res
}
