package service

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceExposesPlannerCollectors(t *testing.T) {
	metrics := NewMetricsService()
	metrics.ObservePlannerRun("deterministic", 2, 30*time.Millisecond)
	metrics.ObservePlannerRun("proposer", 0, time.Second)
	metrics.RecordProposerAttempt(ProposerOutcomeTimeout)
	metrics.RecordProposerFallback()
	metrics.ObserveHTTPRequest(http.MethodPost, "/api/v1/study-schedule/generate", http.StatusOK, 40*time.Millisecond)

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, `planner_runs_total{source="deterministic"} 1`)
	assert.Contains(t, text, `planner_proposer_attempts_total{outcome="timeout"} 1`)
	assert.Contains(t, text, "planner_infeasible_deadlines_total 2")
	assert.Contains(t, text, "planner_run_duration_seconds_count 2")

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(2), snapshot.PlannerRuns)
	assert.Equal(t, uint64(1), snapshot.ProposerFallbacks)
	assert.Equal(t, uint64(2), snapshot.InfeasibleDeadlines)
	assert.Equal(t, uint64(1), snapshot.RequestsTotal)
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var metrics *MetricsService
	metrics.ObservePlannerRun("deterministic", 1, time.Millisecond)
	metrics.RecordProposerAttempt(ProposerOutcomeError)
	metrics.RecordCacheOperation(true, time.Millisecond)

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Zero(t, metrics.Snapshot().PlannerRuns)
}
