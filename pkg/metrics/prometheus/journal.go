package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	journal "github.com/marmos91/photobridge/pkg/journal/badger"
	"github.com/marmos91/photobridge/pkg/metrics"
)

// journalMetrics is the Prometheus implementation of journal.Metrics.
type journalMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	records    prometheus.Gauge
	size       *prometheus.GaugeVec
}

func newJournalMetricsFromRegistry() journal.Metrics {
	return NewJournalMetrics(metrics.GetRegistry())
}

// NewJournalMetrics registers the journal collectors on reg.
// Returns nil when reg is nil.
func NewJournalMetrics(reg prometheus.Registerer) journal.Metrics {
	if reg == nil {
		return nil
	}
	f := promauto.With(reg)

	return &journalMetrics{
		operations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "photobridge_journal_operations_total",
				Help: "Journal saves and loads by status",
			},
			[]string{"operation", "status"},
		),
		duration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "photobridge_journal_duration_milliseconds",
				Help:    "Duration of journal operations in milliseconds",
				Buckets: []float64{1, 5, 10, 50, 100, 500, 1000},
			},
			[]string{"operation"},
		),
		records: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "photobridge_journal_records",
				Help: "Records written by the last snapshot",
			},
		),
		size: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "photobridge_journal_size_bytes",
				Help: "BadgerDB on-disk size by component",
			},
			[]string{"component"}, // "lsm", "vlog"
		),
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (m *journalMetrics) ObserveSave(duration time.Duration, records int, err error) {
	m.operations.WithLabelValues("save", status(err)).Inc()
	m.duration.WithLabelValues("save").Observe(ms(duration))
	if err == nil {
		m.records.Set(float64(records))
	}
}

func (m *journalMetrics) ObserveLoad(duration time.Duration, err error) {
	m.operations.WithLabelValues("load", status(err)).Inc()
	m.duration.WithLabelValues("load").Observe(ms(duration))
}

func (m *journalMetrics) SetSize(lsm, vlog int64) {
	m.size.WithLabelValues("lsm").Set(float64(lsm))
	m.size.WithLabelValues("vlog").Set(float64(vlog))
}
