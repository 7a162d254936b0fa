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

package sinks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QubitProducts/lsfindex/codec"
	"github.com/QubitProducts/lsfindex/schema"
)

func TestFields(t *testing.T) {
	s, err := schema.New("test",
		schema.Entry{ID: 1, Name: "Fix", Fields: []schema.Field{
			{Name: "lat", Kind: schema.Float64},
			{Name: "lon", Kind: schema.Float64},
		}},
		schema.Entry{ID: 2, Name: "Track", Fields: []schema.Field{
			{Name: "name", Kind: schema.String},
			{Name: "last", Kind: schema.Message},
			{Name: "empty", Kind: schema.Message},
			{Name: "points", Kind: schema.MessageList},
		}},
	)
	require.NoError(t, err)
	fix, _ := s.Resolve(1)
	track, _ := s.Resolve(2)

	pt := func(lat, lon float64) *codec.Message {
		return &codec.Message{Type: 1, Entry: fix, Values: []interface{}{lat, lon}}
	}

	m := &codec.Message{
		Type:  2,
		Entry: track,
		Values: []interface{}{
			"home",
			pt(1, 2),
			(*codec.Message)(nil),
			[]*codec.Message{pt(3, 4), pt(5, 6)},
		},
	}

	assert.Equal(t, []Field{
		{"name", "home"},
		{"last._type", "Fix"},
		{"last.lat", 1.0},
		{"last.lon", 2.0},
		{"empty", nil},
		{"points.0._type", "Fix"},
		{"points.0.lat", 3.0},
		{"points.0.lon", 4.0},
		{"points.1._type", "Fix"},
		{"points.1.lat", 5.0},
		{"points.1.lon", 6.0},
	}, Fields(m))

	raw := &codec.Message{Type: 9, Raw: []byte{1, 2}}
	assert.Equal(t, []Field{{"_raw", []byte{1, 2}}}, Fields(raw))
}
