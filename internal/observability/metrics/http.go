package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	authAttemptsTotal     *prometheus.CounterVec
	devicePollGrantsTotal *prometheus.CounterVec
	transitionsTotal      *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "subgw",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "subgw",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "subgw",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	authAttemptsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "subgw",
			Subsystem: "auth",
			Name:      "attempts_total",
			Help:      "Credential resolution attempts by outcome.",
		},
		[]string{"service", "outcome"},
	)
	devicePollGrantsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "subgw",
			Subsystem: "auth",
			Name:      "device_grants_total",
			Help:      "Completed device-authorization flows by result.",
		},
		[]string{"service", "result"},
	)
	transitionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "subgw",
			Subsystem: "submission",
			Name:      "transitions_total",
			Help:      "Submission status transitions applied through the API.",
		},
		[]string{"service", "status"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		authAttemptsTotal,
		devicePollGrantsTotal,
		transitionsTotal,
	)

	return &HTTPServerMetrics{
		registry:              registry,
		requestTotal:          requestTotal,
		requestDuration:       requestDuration,
		requestInFlight:       requestInFlight,
		authAttemptsTotal:     authAttemptsTotal,
		devicePollGrantsTotal: devicePollGrantsTotal,
		transitionsTotal:      transitionsTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &metricsStatusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath keeps submission ids out of the label set.
func normalizePath(path string) string {
	if !strings.HasPrefix(path, "/v1/submission/") {
		return path
	}
	rest := strings.TrimPrefix(path, "/v1/submission/")
	switch {
	case rest == "auth/lsri" || rest == "initiate":
		return path
	case strings.HasSuffix(rest, "/uploaded"):
		return "/v1/submission/{submission_id}/uploaded"
	case strings.HasSuffix(rest, "/status"):
		return "/v1/submission/{submission_id}/status"
	case strings.Contains(rest, "/status/"):
		return "/v1/submission/{submission_id}/status/{status}"
	default:
		return "/v1/submission/{submission_id}"
	}
}

func (m *HTTPServerMetrics) RecordAuthAttempt(service, outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.authAttemptsTotal.WithLabelValues(service, outcome).Inc()
}

func (m *HTTPServerMetrics) RecordDeviceGrant(service, result string) {
	if result == "" {
		result = "unknown"
	}
	m.devicePollGrantsTotal.WithLabelValues(service, result).Inc()
}

func (m *HTTPServerMetrics) RecordTransition(service, status string) {
	m.transitionsTotal.WithLabelValues(service, status).Inc()
}

type metricsStatusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *metricsStatusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *metricsStatusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *metricsStatusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *metricsStatusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
