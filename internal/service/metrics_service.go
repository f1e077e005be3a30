package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation on a private registry.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	evaluations     *prometheus.CounterVec
	notifications   *prometheus.CounterVec
	recovery        *prometheus.CounterVec
	generation      *prometheus.HistogramVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	evaluations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "escalation_evaluations_total",
		Help: "Escalation rule evaluations by rule and whether the threshold was crossed",
	}, []string{"rule", "crossed"})

	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "escalation_notifications_total",
		Help: "SMS notifications by trigger and final result",
	}, []string{"trigger", "result"})

	recovery := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "recovery_assignments_total",
		Help: "Recovery assignment ensures by outcome",
	}, []string{"outcome"})

	generation := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "question_generation_duration_seconds",
		Help:    "Latency of question generation calls",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 45},
	}, []string{"result"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, evaluations, notifications, recovery, generation, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		evaluations:     evaluations,
		notifications:   notifications,
		recovery:        recovery,
		generation:      generation,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
}

func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

func (m *MetricsService) RecordEvaluation(rule string, crossed bool) {
	if m == nil {
		return
	}
	m.evaluations.WithLabelValues(rule, fmt.Sprintf("%t", crossed)).Inc()
}

func (m *MetricsService) RecordNotification(trigger string, delivered bool) {
	if m == nil {
		return
	}
	result := "failed"
	if delivered {
		result = "delivered"
	}
	m.notifications.WithLabelValues(trigger, result).Inc()
}

func (m *MetricsService) RecordRecovery(outcome string) {
	if m == nil {
		return
	}
	m.recovery.WithLabelValues(outcome).Inc()
}

func (m *MetricsService) ObserveGeneration(ok bool, duration time.Duration) {
	if m == nil {
		return
	}
	result := "error"
	if ok {
		result = "ok"
	}
	m.generation.WithLabelValues(result).Observe(duration.Seconds())
}
