package metrics

import (
	journal "github.com/marmos91/photobridge/pkg/journal/badger"
)

// NewJournalMetrics creates a Prometheus-backed journal metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewJournalMetrics() journal.Metrics {
	if !IsEnabled() || newPrometheusJournalMetrics == nil {
		return nil
	}
	return newPrometheusJournalMetrics()
}

var newPrometheusJournalMetrics func() journal.Metrics

// RegisterJournalMetricsConstructor registers the Prometheus journal metrics
// constructor. Called by pkg/metrics/prometheus during init.
func RegisterJournalMetricsConstructor(constructor func() journal.Metrics) {
	newPrometheusJournalMetrics = constructor
}
