package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func scrape(t *testing.T, m *MetricsService) string {
	t.Helper()
	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return w.Body.String()
}

func TestMetricsServiceCounters(t *testing.T) {
	m := NewMetricsService()

	m.RecordEvaluation("sms_window", true)
	m.RecordEvaluation("sms_window", true)
	m.RecordNotification("absence_parent", false)
	m.RecordRecovery("created")
	m.ObserveGeneration(true, time.Second)
	m.ObserveHTTPRequest(http.MethodGet, "/health", http.StatusOK, time.Millisecond)

	body := scrape(t, m)
	assert.Contains(t, body, `escalation_evaluations_total{crossed="true",rule="sms_window"} 2`)
	assert.Contains(t, body, `escalation_notifications_total{result="failed",trigger="absence_parent"} 1`)
	assert.Contains(t, body, `recovery_assignments_total{outcome="created"} 1`)
	assert.Contains(t, body, `http_requests_total{method="GET",path="/health",status="200"} 1`)
}

func TestNilMetricsServiceIsSafe(t *testing.T) {
	var m *MetricsService
	m.RecordEvaluation("x", false)
	m.RecordNotification("x", true)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
