package metrics

import (
	"github.com/marmos91/photobridge/pkg/pipeline"
)

// NewPipelineMetrics creates a Prometheus-backed pipeline.Metrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called) or the
// Prometheus implementation was not linked in. Passing nil to
// pipeline.WithMetrics disables recording.
//
// Example usage:
//
//	import _ "github.com/marmos91/photobridge/pkg/metrics/prometheus"
//
//	metrics.InitRegistry()
//	p, err := pipeline.New(cfg, src, up, commit, sink,
//		pipeline.WithMetrics(metrics.NewPipelineMetrics()))
func NewPipelineMetrics() pipeline.Metrics {
	if !IsEnabled() || newPrometheusPipelineMetrics == nil {
		return nil
	}
	return newPrometheusPipelineMetrics()
}

// newPrometheusPipelineMetrics is set by pkg/metrics/prometheus.
// The indirection keeps this package free of an import cycle.
var newPrometheusPipelineMetrics func() pipeline.Metrics

// RegisterPipelineMetricsConstructor registers the Prometheus pipeline
// metrics constructor. Called by pkg/metrics/prometheus during init.
func RegisterPipelineMetricsConstructor(constructor func() pipeline.Metrics) {
	newPrometheusPipelineMetrics = constructor
}
