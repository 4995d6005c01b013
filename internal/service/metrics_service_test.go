package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-engine/internal/models"
)

func TestMetricsServiceSnapshot(t *testing.T) {
	m := NewMetricsService()
	m.ObserveGeneration("complete", 12, 0, 5*time.Millisecond)
	m.ObserveGeneration("infeasible", 40, 3, 9*time.Millisecond)
	m.RecordConflicts([]models.Conflict{{Severity: models.SeverityHigh, Type: models.ConflictRoom}})
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.ObserveHTTPRequest(http.MethodPost, "/timetables/generate", http.StatusOK, 10*time.Millisecond)

	snap := m.Snapshot()
	assert.Equal(t, uint64(2), snap.GenerationRuns)
	assert.Equal(t, uint64(1), snap.InfeasibleRuns)
	assert.Equal(t, uint64(1), snap.AuditRuns)
	assert.InDelta(t, 0.5, snap.CacheHitRatio, 0.0001)
	assert.InDelta(t, 10, snap.AverageRequestDurationMs, 0.0001)
}

func TestMetricsServiceExposesCollectors(t *testing.T) {
	m := NewMetricsService()
	m.ObserveGeneration("complete", 1, 0, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `timetable_generation_runs_total{status="complete"} 1`)
}

func TestNilMetricsServiceIsSafe(t *testing.T) {
	var m *MetricsService
	m.ObserveGeneration("complete", 1, 0, time.Millisecond)
	m.RecordConflicts(nil)
	assert.Equal(t, MetricsSnapshot{}, m.Snapshot())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
