// Package prometheus provides the Prometheus implementations of the
// photobridge metrics interfaces. Import it for side effects to make
// pkg/metrics constructors return live collectors.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/photobridge/pkg/metrics"
	"github.com/marmos91/photobridge/pkg/pipeline"
)

func init() {
	metrics.RegisterPipelineMetricsConstructor(func() pipeline.Metrics {
		return NewPipelineMetrics(metrics.GetRegistry())
	})
	metrics.RegisterJournalMetricsConstructor(newJournalMetricsFromRegistry)
}

// pipelineMetrics is the Prometheus implementation of pipeline.Metrics.
type pipelineMetrics struct {
	fetchTotal     *prometheus.CounterVec
	fetchDuration  *prometheus.HistogramVec
	fetchBytes     prometheus.Counter
	uploadTotal    *prometheus.CounterVec
	uploadDuration *prometheus.HistogramVec
	uploadBytes    prometheus.Counter
	commitTotal    *prometheus.CounterVec
	commitDuration *prometheus.HistogramVec
	commitBatch    prometheus.Histogram
	itemsTotal     *prometheus.CounterVec
	queueDepth     *prometheus.GaugeVec
	bufferedTokens prometheus.Gauge
	inFlight       *prometheus.GaugeVec
}

// durationBuckets covers fast error payloads up to multi-minute video uploads.
var durationBuckets = []float64{
	50,     // 50ms - error payloads
	100,    // 100ms
	500,    // 500ms - small images
	1000,   // 1s
	5000,   // 5s - large images
	15000,  // 15s
	60000,  // 1m - video
	180000, // 3m
}

// NewPipelineMetrics registers the pipeline collectors on reg.
// Returns nil when reg is nil.
func NewPipelineMetrics(reg prometheus.Registerer) pipeline.Metrics {
	if reg == nil {
		return nil
	}
	f := promauto.With(reg)

	return &pipelineMetrics{
		fetchTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "photobridge_fetch_total",
				Help: "Content fetches by outcome",
			},
			[]string{"outcome"},
		),
		fetchDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "photobridge_fetch_duration_milliseconds",
				Help:    "Duration of content fetches in milliseconds",
				Buckets: durationBuckets,
			},
			[]string{"outcome"},
		),
		fetchBytes: f.NewCounter(
			prometheus.CounterOpts{
				Name: "photobridge_fetch_bytes_total",
				Help: "Bytes downloaded from the content source",
			},
		),
		uploadTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "photobridge_upload_total",
				Help: "Upload session attempts by outcome",
			},
			[]string{"outcome"},
		),
		uploadDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "photobridge_upload_duration_milliseconds",
				Help:    "Duration of upload sessions in milliseconds",
				Buckets: durationBuckets,
			},
			[]string{"outcome"},
		),
		uploadBytes: f.NewCounter(
			prometheus.CounterOpts{
				Name: "photobridge_upload_bytes_total",
				Help: "Bytes sent in successful upload sessions",
			},
		),
		commitTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "photobridge_commit_total",
				Help: "Batch commit calls by outcome",
			},
			[]string{"outcome"},
		),
		commitDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "photobridge_commit_duration_milliseconds",
				Help:    "Duration of batch commit calls in milliseconds",
				Buckets: durationBuckets,
			},
			[]string{"outcome"},
		),
		commitBatch: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "photobridge_commit_batch_size",
				Help:    "Tokens per batch commit",
				Buckets: []float64{1, 5, 10, 20, 30, 40, 50},
			},
		),
		itemsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "photobridge_items_total",
				Help: "Final item dispositions: delivered, fallback, unattributable, lost",
			},
			[]string{"result"},
		),
		queueDepth: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "photobridge_queue_depth",
				Help: "Current queue length",
			},
			[]string{"queue"},
		),
		bufferedTokens: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "photobridge_buffered_tokens",
				Help: "Delivery tokens awaiting a batch commit",
			},
		),
		inFlight: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "photobridge_in_flight",
				Help: "Fetches or uploads currently holding a worker slot",
			},
			[]string{"kind"},
		),
	}
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}

func (m *pipelineMetrics) ObserveFetch(outcome string, duration time.Duration, bytes int) {
	m.fetchTotal.WithLabelValues(outcome).Inc()
	m.fetchDuration.WithLabelValues(outcome).Observe(ms(duration))
	if bytes > 0 {
		m.fetchBytes.Add(float64(bytes))
	}
}

func (m *pipelineMetrics) ObserveUpload(outcome string, duration time.Duration, bytes int64) {
	m.uploadTotal.WithLabelValues(outcome).Inc()
	m.uploadDuration.WithLabelValues(outcome).Observe(ms(duration))
	if outcome == pipeline.OutcomeSuccess && bytes > 0 {
		m.uploadBytes.Add(float64(bytes))
	}
}

func (m *pipelineMetrics) ObserveCommit(outcome string, duration time.Duration, batchSize int) {
	m.commitTotal.WithLabelValues(outcome).Inc()
	m.commitDuration.WithLabelValues(outcome).Observe(ms(duration))
	m.commitBatch.Observe(float64(batchSize))
}

func (m *pipelineMetrics) RecordItem(result string) {
	m.itemsTotal.WithLabelValues(result).Inc()
}

func (m *pipelineMetrics) SetQueueDepth(queue string, depth int) {
	m.queueDepth.WithLabelValues(queue).Set(float64(depth))
}

func (m *pipelineMetrics) SetBufferedTokens(n int) {
	m.bufferedTokens.Set(float64(n))
}

func (m *pipelineMetrics) SetInFlight(kind string, n int) {
	m.inFlight.WithLabelValues(kind).Set(float64(n))
}
