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

package root

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QubitProducts/lsfindex/config"
	"github.com/QubitProducts/lsfindex/indexer"
	"github.com/QubitProducts/lsfindex/sinks/devnull"
	"github.com/QubitProducts/lsfindex/sinks/jsonl"
	"github.com/QubitProducts/lsfindex/sinks/relabeler"
	"github.com/QubitProducts/lsfindex/sinks/stdout"
)

func TestTimeFlag(t *testing.T) {
	tf := StartTime()
	assert.True(t, math.IsInf(tf.Seconds(), -1))

	require.NoError(t, tf.Set("1500000000.25"))
	assert.Equal(t, 1500000000.25, tf.Seconds())

	require.NoError(t, tf.Set("2017-07-14T02:40:00Z"))
	assert.Equal(t, 1500000000.0, tf.Seconds())

	now := float64(time.Now().Unix())
	require.NoError(t, tf.Set("now-1h"))
	assert.InDelta(t, now-3600, tf.Seconds(), 5)

	require.NoError(t, tf.Set("now+1m"))
	assert.InDelta(t, now+60, tf.Seconds(), 5)

	assert.Error(t, tf.Set("yesterday"))
	assert.Error(t, tf.Set("now-fish"))
}

func TestExpandPaths(t *testing.T) {
	dir := t.TempDir()

	for _, fn := range []string{"a.lsf", "b.lsf.gz", "b.lsf", "notes.txt", "sub/c.lsf"} {
		p := filepath.Join(dir, fn)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, nil, 0644))
	}

	got, err := ExpandPaths([]string{dir})
	require.NoError(t, err)
	sort.Strings(got)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.lsf"),
		filepath.Join(dir, "b.lsf"),
		filepath.Join(dir, "sub/c.lsf"),
	}, got)

	_, err = ExpandPaths([]string{filepath.Join(dir, "sub", "missing.lsf")})
	assert.Error(t, err)

	_, err = ExpandPaths([]string{t.TempDir()})
	assert.Error(t, err)
}

func TestNewSink(t *testing.T) {
	defer func(c *config.Config) { cfg = c }(cfg)
	cfg = config.Default()

	buf := &bytes.Buffer{}

	s, err := NewSink(buf, "", "")
	require.NoError(t, err)
	assert.IsType(t, &stdout.Stdout{}, s)

	s, err = NewSink(buf, config.FormatJSON, "")
	require.NoError(t, err)
	assert.IsType(t, &jsonl.Sink{}, s)

	s, err = NewSink(buf, config.FormatNone, "")
	require.NoError(t, err)
	assert.IsType(t, &devnull.DevNull{}, s)

	_, err = NewSink(buf, config.FormatTemplate, "{{.Broken")
	assert.Error(t, err)

	_, err = NewSink(buf, "xml", "")
	assert.Error(t, err)

	cfg, err = config.Load(bytes.NewBufferString(`
relabel:
- action: drop
  source_labels: [type]
  regex: Heartbeat
`))
	require.NoError(t, err)
	s, err = NewSink(buf, config.FormatJSON, "")
	require.NoError(t, err)
	assert.IsType(t, &relabeler.Relabeler{}, s)
}

func TestSearchDone(t *testing.T) {
	assert.NoError(t, SearchDone(nil))
	assert.NoError(t, SearchDone(indexer.ErrUnorderedTimestamps))
	assert.NoError(t, SearchDone(errors.Wrap(indexer.ErrUnorderedTimestamps, "log")))
	assert.Equal(t, indexer.ErrClosed, SearchDone(indexer.ErrClosed))
}
