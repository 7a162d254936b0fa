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

package jsonl

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QubitProducts/lsfindex/codec"
	"github.com/QubitProducts/lsfindex/indexer"
	"github.com/QubitProducts/lsfindex/schema"
)

func TestWriteMessage(t *testing.T) {
	s, err := schema.New("test", schema.Entry{ID: 1, Name: "Depth", Fields: []schema.Field{
		{Name: "metres", Kind: schema.Float32},
		{Name: "source", Kind: schema.String},
	}})
	require.NoError(t, err)
	e, _ := s.Resolve(1)

	r := &indexer.Record{
		Entry: indexer.Entry{Offset: 36, Type: 1, Timestamp: 1500000000.5},
		Index: 2,
		Log:   "run.lsf",
		Message: &codec.Message{
			Header: codec.Header{Timestamp: 1500000000.5},
			Type:   1,
			Entry:  e,
			Values: []interface{}{float32(12.5), "sonar"},
		},
		Labels: map[string]string{"type": "Depth"},
	}

	var buf bytes.Buffer
	sink := New(&buf)
	require.NoError(t, sink.WriteMessage(context.Background(), r))
	require.NoError(t, sink.WriteMessage(context.Background(), r))
	assert.Zero(t, buf.Len())
	require.NoError(t, sink.Close())

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[0], &got))
	assert.Equal(t, map[string]interface{}{
		"log":       "run.lsf",
		"index":     2.0,
		"offset":    36.0,
		"time":      "2017-07-14T02:40:00.5Z",
		"timestamp": 1500000000.5,
		"labels":    map[string]interface{}{"type": "Depth"},
		"fields":    map[string]interface{}{"metres": 12.5, "source": "sonar"},
	}, got)
}
