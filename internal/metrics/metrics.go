// Package metrics exposes Prometheus instrumentation for resaleidx's
// storage and query layers. All metrics are optional: core packages accept
// a pageio.Recorder (or nil) rather than depending on this package
// directly, so they stay usable in tests without a live registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for one resaleidx process.
type Metrics struct {
	BlockReadsTotal  prometheus.Counter
	BlockWritesTotal prometheus.Counter

	RowsIndexedTotal prometheus.Counter

	QueryLatencySeconds   prometheus.Histogram
	QueryResultSizeRecord prometheus.Histogram
}

// New creates and registers the collectors against the default registry.
func New() *Metrics {
	return &Metrics{
		BlockReadsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "resaleidx_block_reads_total",
			Help: "Total number of 512-byte block reads across all pagers.",
		}),
		BlockWritesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "resaleidx_block_writes_total",
			Help: "Total number of 512-byte block writes (append or overwrite) across all pagers.",
		}),
		RowsIndexedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "resaleidx_rows_indexed_total",
			Help: "Total number of rows inserted into the index manager's trees.",
		}),
		QueryLatencySeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "resaleidx_query_latency_seconds",
			Help:    "Latency of Manager.Search calls.",
			Buckets: prometheus.DefBuckets,
		}),
		QueryResultSizeRecord: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "resaleidx_query_result_size",
			Help:    "Number of record ids returned by Manager.Search.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}),
	}
}

// PagerRecorder adapts Metrics to the pageio.Recorder interface.
type PagerRecorder struct {
	m *Metrics
}

// ForPager returns a pageio.Recorder backed by m, or nil if m is nil.
func (m *Metrics) ForPager() *PagerRecorder {
	if m == nil {
		return nil
	}
	return &PagerRecorder{m: m}
}

func (r *PagerRecorder) ObserveRead()  { r.m.BlockReadsTotal.Inc() }
func (r *PagerRecorder) ObserveWrite() { r.m.BlockWritesTotal.Inc() }

// ObserveQuery records one Manager.Search call's latency and result size.
func (m *Metrics) ObserveQuery(start time.Time, resultSize int) {
	if m == nil {
		return
	}
	m.QueryLatencySeconds.Observe(time.Since(start).Seconds())
	m.QueryResultSizeRecord.Observe(float64(resultSize))
}

// ObserveRowsIndexed increments the rows-indexed counter by n.
func (m *Metrics) ObserveRowsIndexed(n int) {
	if m == nil {
		return
	}
	m.RowsIndexedTotal.Add(float64(n))
}
