package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionCounters(t *testing.T) {
	m := New()
	m.SessionStarted()
	m.SessionStarted()
	m.SessionFinished("reported", 3)
	m.SessionFinished("superseded", 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessions.WithLabelValues("reported")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessions.WithLabelValues("superseded")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.diagnostics))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.inflight))
}

func TestCountersAndHandler(t *testing.T) {
	m := New()
	m.BlocksSkipped(2)
	m.BlocksSkipped(0)
	m.RecordUnmapped()
	m.CleanupFailed()
	m.SpawnFailed()
	m.ObserveStage("compile", 150*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.skippedBlocks))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "gamscheck_spawn_failures_total 1"))
	assert.True(t, strings.Contains(string(body), "gamscheck_records_unmapped_total 1"))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.SessionStarted()
	m.SessionFinished("failed", 0)
	m.ObserveStage("parse", time.Second)
	m.CleanupFailed()
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 404, rec.Code)
}
