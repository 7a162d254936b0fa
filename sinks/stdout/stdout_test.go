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

package stdout

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QubitProducts/lsfindex/codec"
	"github.com/QubitProducts/lsfindex/indexer"
	"github.com/QubitProducts/lsfindex/schema"
)

func TestStdout(t *testing.T) {
	s, err := schema.New("test", schema.Entry{ID: 1, Name: "Speed", Fields: []schema.Field{
		{Name: "knots", Kind: schema.Float64},
	}})
	require.NoError(t, err)
	e, _ := s.Resolve(1)

	r := &indexer.Record{
		Index: 7,
		Message: &codec.Message{
			Header: codec.Header{Timestamp: 1500000000},
			Type:   1,
			Entry:  e,
			Values: []interface{}{4.5},
		},
		Labels: map[string]string{
			"type": "Speed", "system": "ship", "entity": "GPS",
			"dst": "65535", "dst_entity": "255",
		},
	}

	var buf bytes.Buffer
	o := New(&buf)
	require.NoError(t, o.WriteMessage(context.Background(), r))
	require.NoError(t, o.Close())
	assert.Equal(t, "2017-07-14T02:40:00Z #7 Speed ship/GPS -> 65535/255 knots=4.5\n", buf.String())
}
