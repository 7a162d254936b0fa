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

package indexer

import "github.com/prometheus/client_golang/prometheus"

var (
	recordsIndexed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lsfindex_indexer_records_total",
		Help: "Number of records indexed.",
	})
	corruptRecords = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lsfindex_indexer_corrupt_records_total",
		Help: "Number of index builds stopped early by a corrupt record.",
	})
	truncatedLogs = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lsfindex_indexer_truncated_logs_total",
		Help: "Number of logs indexed that ended in a partial record.",
	})
	unorderedLogs = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lsfindex_indexer_unordered_logs_total",
		Help: "Number of logs indexed whose timestamps were not ordered.",
	})
	buildDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "lsfindex_indexer_build_duration_seconds",
		Help:    "Time taken to build an index.",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	})
	decodeErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lsfindex_indexer_decode_errors_total",
		Help: "Number of records that failed to decode.",
	})
	cacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lsfindex_indexer_cache_hits_total",
		Help: "Number of indexes read from a cache file rather than built.",
	})
)

func init() {
	prometheus.MustRegister(
		recordsIndexed,
		corruptRecords,
		truncatedLogs,
		unorderedLogs,
		buildDuration,
		decodeErrors,
		cacheHits,
	)
}

var (
	archiveIndexesDesc = prometheus.NewDesc(
		"lsfindex_archive_indexes",
		"Number of indexes held in the archive.",
		nil, nil,
	)
	archiveRecordsDesc = prometheus.NewDesc(
		"lsfindex_archive_records",
		"Number of records per record type across the archive.",
		[]string{"type"}, nil,
	)
)

// Describe implements the prometheus describe interfaces for metric
// collection
func (a *Archive) Describe(ch chan<- *prometheus.Desc) {
	ch <- archiveIndexesDesc
	ch <- archiveRecordsDesc
}

// Collect implements the prom metrics collection Collector
// interface
func (a *Archive) Collect(ch chan<- prometheus.Metric) {
	a.RLock()
	defer a.RUnlock()

	ch <- prometheus.MustNewConstMetric(archiveIndexesDesc, prometheus.GaugeValue, float64(len(a.indexes)))

	counts := map[string]int{}
	for _, idx := range a.indexes {
		for _, t := range idx.Types() {
			counts[idx.TypeName(t)] += idx.CountOfType(t)
		}
	}
	for name, n := range counts {
		ch <- prometheus.MustNewConstMetric(archiveRecordsDesc, prometheus.GaugeValue, float64(n), name)
	}
}
