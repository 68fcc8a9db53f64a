package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/faculty-timetable-api/internal/service"
)

func TestHealthReportsDegradedStore(t *testing.T) {
	h := NewMetricsHandler(nil, map[string]Pinger{
		"database": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	})
	c, w := testContext(http.MethodGet, "/health", nil, nil)

	h.Health(c)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"degraded"`)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestHealthOK(t *testing.T) {
	h := NewMetricsHandler(nil, nil)
	c, w := testContext(http.MethodGet, "/health", nil, nil)

	h.Health(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestPrometheusEndpoint(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.RecordSubstituteEvent("created")
	h := NewMetricsHandler(metrics, nil)
	c, w := testContext(http.MethodGet, "/metrics", nil, nil)

	h.Prometheus(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "substitute")
}
