package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	_ = c.Write(m)
	return m.GetCounter().GetValue()
}

func TestMetrics_Record(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordPass(3*time.Second, 4, 2)
	m.RecordDropped()
	m.RecordSync(2, 300)
	m.RecordGate("admitted")
	m.RecordGate("admitted")
	m.RecordOutcome("Done")

	assert.Equal(t, 4.0, counterValue(m.EntriesProcessed))
	assert.Equal(t, 2.0, counterValue(m.EntriesDeferred))
	assert.Equal(t, 1.0, counterValue(m.IntakeDropped))
	assert.Equal(t, 2.0, counterValue(m.SyncedFiles))
	assert.Equal(t, 300.0, counterValue(m.SyncedBytes))
	assert.Equal(t, 2.0, counterValue(m.GateDecisions.WithLabelValues("admitted")))
	assert.Equal(t, 1.0, counterValue(m.IntakeOutcomes.WithLabelValues("Done")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordPass(time.Second, 1, 1)
		m.RecordDropped()
		m.RecordSync(1, 1)
		m.RecordGate("unknown")
		m.RecordOutcome("Error")
	})
}

func TestHandler_ExposesDroppedCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.RecordDropped()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "memvault_intake_dropped_total 1")
}
