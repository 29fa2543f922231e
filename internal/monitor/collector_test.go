package monitor

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/greenarc/esgpipe/internal/common"
	"github.com/greenarc/esgpipe/internal/models"
)

func TestRecordCounters(t *testing.T) {
	c := NewCollector("embedding")

	c.Record(models.ProcessingMetrics{ObjectKey: "RELIANCE/2024_BRSR_ab12cd34.pdf", Outcome: models.OutcomeProcessed})
	c.Record(models.ProcessingMetrics{ObjectKey: "TCS/2024_BRSR_ab12cd34.pdf", Outcome: models.OutcomeSkipped})
	c.Record(models.ProcessingMetrics{ObjectKey: "INFY/2024_BRSR_ab12cd34.pdf", Outcome: models.OutcomeFailed, FaultKind: "transient"})

	snap := c.Snapshot()
	assert.Equal(t, uint64(1), snap.Processed)
	assert.Equal(t, uint64(1), snap.Skipped)
	assert.Equal(t, uint64(1), snap.Failed)
	assert.Equal(t, "embedding", snap.Worker)
	require.Len(t, snap.Recent, 3)
	assert.Equal(t, "embedding", snap.Recent[0].Worker)
	assert.NotNil(t, snap.LastSuccess)
	assert.NotNil(t, snap.LastActivity)
}

func TestRingCap(t *testing.T) {
	c := NewCollector("embedding")

	for i := 0; i < ringCap+50; i++ {
		c.Record(models.ProcessingMetrics{
			ObjectKey: fmt.Sprintf("SYM%d/2024_BRSR.pdf", i),
			Outcome:   models.OutcomeProcessed,
		})
	}

	snap := c.Snapshot()
	require.Len(t, snap.Recent, ringCap)
	assert.Equal(t, fmt.Sprintf("SYM%d/2024_BRSR.pdf", ringCap+49), snap.Recent[ringCap-1].ObjectKey,
		"the ring keeps the newest entries")
	assert.Equal(t, uint64(ringCap+50), snap.Processed)
}

func TestHealth(t *testing.T) {
	c := NewCollector("extraction")
	base := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }

	status, healthy := c.Health(24 * time.Hour)
	assert.Equal(t, "ok", status, "no traffic yet is not a failure")
	assert.True(t, healthy)

	c.Record(models.ProcessingMetrics{Outcome: models.OutcomeFailed})
	status, healthy = c.Health(24 * time.Hour)
	assert.Equal(t, "degraded", status, "failures with no success ever is degraded")
	assert.False(t, healthy)

	c.Record(models.ProcessingMetrics{Outcome: models.OutcomeProcessed})
	status, healthy = c.Health(24 * time.Hour)
	assert.Equal(t, "ok", status)
	assert.True(t, healthy)

	c.now = func() time.Time { return base.Add(25 * time.Hour) }
	status, healthy = c.Health(24 * time.Hour)
	assert.Equal(t, "degraded", status, "stale success is degraded")
	assert.False(t, healthy)
}

func TestHealthEndpoint(t *testing.T) {
	c := NewCollector("embedding")
	srv := NewServer(c, common.MonitorConfig{StaleThreshold: 24 * time.Hour}, arbor.NewLogger())

	c.Record(models.ProcessingMetrics{Outcome: models.OutcomeProcessed})

	rec := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "embedding", body["worker"])
}

func TestHealthEndpointDegraded(t *testing.T) {
	c := NewCollector("embedding")
	srv := NewServer(c, common.MonitorConfig{StaleThreshold: 24 * time.Hour}, arbor.NewLogger())

	c.Record(models.ProcessingMetrics{Outcome: models.OutcomeFailed})

	rec := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	c := NewCollector("embedding")
	srv := NewServer(c, common.MonitorConfig{}, arbor.NewLogger())

	c.Record(models.ProcessingMetrics{
		ObjectKey: "RELIANCE/2024_BRSR_ab12cd34.pdf",
		Outcome:   models.OutcomeProcessed,
		Chunks:    120,
	})

	rec := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var snap Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, uint64(1), snap.Processed)
	require.Len(t, snap.Recent, 1)
	assert.Equal(t, 120, snap.Recent[0].Chunks)
}
