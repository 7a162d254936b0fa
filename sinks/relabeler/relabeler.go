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

// Package relabeler provides a sink that rewrites record labels before
// passing records on.
package relabeler

import (
	"context"

	"github.com/QubitProducts/lsfindex/indexer"
	"github.com/QubitProducts/lsfindex/relabel"
	"github.com/QubitProducts/lsfindex/sinks"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	relabelDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "lsfindex_sink_relabeler_duration_seconds",
		Help:    "Counter of total time spent relabeling.",
		Buckets: prometheus.ExponentialBuckets(0.00001, 10, 5),
	})
	relabelDrops = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lsfindex_sink_relabeler_drops_total",
		Help: "Counter of total number of records dropped by relabeling.",
	}, []string{"type"})
)

func init() {
	prometheus.MustRegister(relabelDuration)
	prometheus.MustRegister(relabelDrops)
}

// Relabeler is a sink that runs all records through a set of relabel
// rules.
type Relabeler struct {
	nextSink sinks.Sinker
	rules    relabel.Config
}

// New creates a new Relabeler
func New(nextSink sinks.Sinker, rules relabel.Config) *Relabeler {
	return &Relabeler{nextSink, rules}
}

// WriteMessage implements sinks.Sinker for the relabeler sink. The record's
// labels are rewritten on a copy.
func (o *Relabeler) WriteMessage(ctx context.Context, r *indexer.Record) error {
	if len(o.rules) == 0 {
		return o.nextSink.WriteMessage(ctx, r)
	}

	ls := make(map[string]string, len(r.Labels))
	for k, v := range r.Labels {
		ls[k] = v
	}

	t := prometheus.NewTimer(relabelDuration)
	keep := o.rules.Relabel(ls)
	t.ObserveDuration()
	if !keep {
		relabelDrops.WithLabelValues(r.Labels["type"]).Inc()
		return nil
	}

	nr := *r
	nr.Labels = ls
	return o.nextSink.WriteMessage(ctx, &nr)
}

// Close implements Close() for the relabeler sink
func (o *Relabeler) Close() error {
	return o.nextSink.Close()
}
