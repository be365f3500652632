package jobmetrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counterValue returns the value of the counter series carrying all labels.
func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
	series:
		for _, metric := range family.GetMetric() {
			for _, pair := range metric.GetLabel() {
				if labels[pair.GetName()] != pair.GetValue() {
					continue series
				}
			}
			return metric.GetCounter().GetValue()
		}
	}
	return 0
}

func TestTrackerRecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	assert.NoError(t, m.Track("cleanup").End(nil))
	boom := errors.New("boom")
	assert.ErrorIs(t, m.Track("cleanup").End(boom), boom)

	assert.Equal(t, 1.0, counterValue(t, reg, "odyssey_jobs_total", map[string]string{"job": "cleanup", "status": "success"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "odyssey_jobs_total", map[string]string{"job": "cleanup", "status": "failure"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "odyssey_jobs_failures_total", map[string]string{"job": "cleanup"}))
}

func TestAddPurgedIgnoresEmptyRuns(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.AddPurged("cleanup", 0)
	m.AddPurged("cleanup", 7)

	assert.Equal(t, 7.0, counterValue(t, reg, "odyssey_jobs_purged_rows_total", map[string]string{"job": "cleanup"}))
}

func TestNilMetricsTracker(t *testing.T) {
	var m *Metrics
	m.AddPurged("cleanup", 3)
	assert.NoError(t, m.Track("cleanup").End(nil))
}

func TestHandlerServesJobCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	require.NoError(t, m.Track("idempotency_cleanup").End(nil))
	m.AddPurged("idempotency_cleanup", 4)

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `odyssey_jobs_total{job="idempotency_cleanup",status="success"} 1`)
	assert.Contains(t, string(body), `odyssey_jobs_purged_rows_total{job="idempotency_cleanup"} 4`)
}
