// Package metrics provides Prometheus instrumentation for Reader and
// Writer operations: byte-range source requests, directory cache
// hits/misses, descent depth, and writer dedup ratio.
package metrics

import (
	"log"

	"github.com/prometheus/client_golang/prometheus"
)

func register[K prometheus.Collector](logger *log.Logger, metric K) K {
	if err := prometheus.Register(metric); err != nil {
		logger.Println(err)
	}
	return metric
}

// Metrics holds the counters and histograms a Reader/Writer pair report
// against while operating on one or more archives. Callers create one
// Metrics per process (or per archive-serving scope) and pass it around
// explicitly rather than relying on package-global state.
type Metrics struct {
	SourceRequests        *prometheus.CounterVec
	SourceRequestDuration *prometheus.HistogramVec
	DirCacheRequests      *prometheus.CounterVec
	DescentDepth          prometheus.Histogram
	WriterTilesWritten    prometheus.Counter
	WriterTilesDeduped    prometheus.Counter
	WriterDedupRatio      prometheus.Gauge
}

// New registers and returns a fresh Metrics under the given Prometheus
// subsystem name (e.g. the archive name, or "pmtiles" for a singleton).
func New(subsystem string, logger *log.Logger) *Metrics {
	const namespace = "pmtiles"

	return &Metrics{
		SourceRequests: register(logger, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "source_requests_total",
			Help:      "Byte-range requests issued to the underlying source, by status",
		}, []string{"status"})),
		SourceRequestDuration: register(logger, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "source_request_duration_seconds",
			Help:      "Duration of byte-range requests to the underlying source",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"})),
		DirCacheRequests: register(logger, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "dir_cache_requests_total",
			Help:      "Directory cache lookups by result (hit/miss)",
		}, []string{"result"})),
		DescentDepth: register(logger, prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "descent_depth",
			Help:      "Number of directory levels descended to resolve a Get",
			Buckets:   []float64{1, 2, 3, 4},
		})),
		WriterTilesWritten: register(logger, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "writer_tiles_written_total",
			Help:      "Tiles staged via Writer.WriteTile",
		})),
		WriterTilesDeduped: register(logger, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "writer_tiles_deduped_total",
			Help:      "Tiles staged that matched an existing content hash",
		})),
		WriterDedupRatio: register(logger, prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "writer_dedup_ratio",
			Help:      "Fraction of addressed tiles that deduplicated against existing content, updated on Finalize",
		})),
	}
}

// ObserveSourceRequest records one byte-range request's outcome.
func (m *Metrics) ObserveSourceRequest(status string, durationSeconds float64) {
	m.SourceRequests.WithLabelValues(status).Inc()
	m.SourceRequestDuration.WithLabelValues(status).Observe(durationSeconds)
}

// ObserveCacheLookup records one directory cache lookup's result.
func (m *Metrics) ObserveCacheLookup(hit bool) {
	if hit {
		m.DirCacheRequests.WithLabelValues("hit").Inc()
	} else {
		m.DirCacheRequests.WithLabelValues("miss").Inc()
	}
}

// ObserveDescent records the number of directory levels a Get traversed.
func (m *Metrics) ObserveDescent(depth int) {
	m.DescentDepth.Observe(float64(depth))
}

// ObserveWriterTile records one WriteTile call and whether it
// deduplicated. WriterDedupRatio is not touched here; Writer.Finalize
// sets it.
func (m *Metrics) ObserveWriterTile(deduped bool) {
	m.WriterTilesWritten.Inc()
	if deduped {
		m.WriterTilesDeduped.Inc()
	}
}
