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
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/QubitProducts/lsfindex/config"
	"github.com/QubitProducts/lsfindex/sinks"
	"github.com/QubitProducts/lsfindex/sinks/devnull"
	"github.com/QubitProducts/lsfindex/sinks/jsonl"
	"github.com/QubitProducts/lsfindex/sinks/logfmt"
	"github.com/QubitProducts/lsfindex/sinks/relabeler"
	"github.com/QubitProducts/lsfindex/sinks/stdout"
	"github.com/QubitProducts/lsfindex/sinks/tmpl"
	"github.com/pkg/errors"
)

// TimeFlag is a flag holding a log timestamp in seconds. It accepts
// seconds, RFC3339 times, now, and now-/now+ durations.
type TimeFlag float64

// StartTime is the default lower time bound, matching everything.
func StartTime() TimeFlag { return TimeFlag(math.Inf(-1)) }

// EndTime is the default upper time bound, matching everything.
func EndTime() TimeFlag { return TimeFlag(math.Inf(1)) }

// Seconds returns the flag value as a log timestamp.
func (t *TimeFlag) Seconds() float64 {
	return float64(*t)
}

func (t *TimeFlag) String() string {
	return strconv.FormatFloat(float64(*t), 'f', -1, 64)
}

// Type implements pflag.Value
func (t *TimeFlag) Type() string {
	return "time"
}

// Set implements pflag.Value
func (t *TimeFlag) Set(s string) error {
	now := time.Now()
	switch {
	case s == "now":
		*t = fromTime(now)
		return nil
	case strings.HasPrefix(s, "now-"):
		d, err := time.ParseDuration(s[4:])
		*t = fromTime(now.Add(-1 * d))
		return err
	case strings.HasPrefix(s, "now+"):
		d, err := time.ParseDuration(s[4:])
		*t = fromTime(now.Add(d))
		return err
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		*t = TimeFlag(f)
		return nil
	}
	pt, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("invalid time %q, want seconds, RFC3339 or now[+-]duration", s)
	}
	*t = fromTime(pt)
	return nil
}

func fromTime(t time.Time) TimeFlag {
	return TimeFlag(float64(t.UnixNano()) / float64(time.Second))
}

// NewSink creates the sink for the named output format, writing to w. An
// empty format uses the configured one. Records are relabeled first when
// relabel rules are configured.
func NewSink(w io.Writer, format, template string) (sinks.Sinker, error) {
	if format == "" {
		format = cfg.Output.Format
	}
	if template == "" {
		template = cfg.Output.Template
	}

	var s sinks.Sinker
	switch format {
	case config.FormatText:
		s = stdout.New(w)
	case config.FormatJSON:
		s = jsonl.New(w)
	case config.FormatLogfmt:
		s = logfmt.New(w, cfg.Output.Labels...)
	case config.FormatTemplate:
		ts, err := tmpl.New(w, template)
		if err != nil {
			return nil, err
		}
		s = ts
	case config.FormatNone:
		s = &devnull.DevNull{}
	default:
		return nil, errors.Errorf("unknown output format %q", format)
	}

	if len(cfg.Relabel) > 0 {
		s = relabeler.New(s, cfg.Relabel)
	}
	return s, nil
}
