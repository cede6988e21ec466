package prometheus

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/photobridge/pkg/pipeline"
)

func TestNewPipelineMetrics_NilRegistry(t *testing.T) {
	assert.Nil(t, NewPipelineMetrics(nil))
	assert.Nil(t, NewJournalMetrics(nil))
}

func TestPipelineMetrics_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPipelineMetrics(reg).(*pipelineMetrics)

	m.ObserveFetch(pipeline.OutcomeSuccess, 20*time.Millisecond, 1024)
	m.ObserveFetch(pipeline.OutcomeRetry, time.Millisecond, 64)
	m.ObserveUpload(pipeline.OutcomeSuccess, time.Second, 2048)
	m.ObserveUpload(pipeline.OutcomeFailed, time.Second, 2048)
	m.ObserveCommit(pipeline.OutcomeSuccess, 300*time.Millisecond, 50)
	m.RecordItem(pipeline.ResultDelivered)
	m.RecordItem(pipeline.ResultDelivered)
	m.RecordItem(pipeline.ResultFallback)
	m.SetQueueDepth(pipeline.QueueUpload, 12)
	m.SetBufferedTokens(7)
	m.SetInFlight(pipeline.QueueDownload, 3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetchTotal.WithLabelValues(pipeline.OutcomeSuccess)))
	assert.Equal(t, 1088.0, testutil.ToFloat64(m.fetchBytes))
	// Only successful uploads count toward bytes
	assert.Equal(t, 2048.0, testutil.ToFloat64(m.uploadBytes))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.itemsTotal.WithLabelValues(pipeline.ResultDelivered)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.itemsTotal.WithLabelValues(pipeline.ResultFallback)))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.queueDepth.WithLabelValues(pipeline.QueueUpload)))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.bufferedTokens))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.inFlight.WithLabelValues(pipeline.QueueDownload)))

	n, err := testutil.GatherAndCount(reg, "photobridge_commit_batch_size")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestJournalMetrics_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewJournalMetrics(reg).(*journalMetrics)

	m.ObserveSave(5*time.Millisecond, 42, nil)
	m.ObserveSave(5*time.Millisecond, 0, errors.New("disk full"))
	m.ObserveLoad(time.Millisecond, nil)
	m.SetSize(100, 200)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("save", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("save", "error")))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.records))
	assert.Equal(t, 200.0, testutil.ToFloat64(m.size.WithLabelValues("vlog")))
}
