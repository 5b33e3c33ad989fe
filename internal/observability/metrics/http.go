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

	cyclesTotal          *prometheus.CounterVec
	cycleDuration        *prometheus.HistogramVec
	cycleSources         *prometheus.HistogramVec
	retrievalFailures    *prometheus.CounterVec
	suggestionFailures   prometheus.Counter
	historyWriteFailures prometheus.Counter
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ae",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ae",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ae",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	cyclesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ae",
			Subsystem: "query",
			Name:      "cycles_total",
			Help:      "Total query cycles by terminal status.",
		},
		[]string{"service", "status"},
	)
	cycleDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ae",
			Subsystem: "query",
			Name:      "cycle_duration_seconds",
			Help:      "Full query cycle duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	cycleSources := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ae",
			Subsystem: "query",
			Name:      "cycle_sources",
			Help:      "Distribution of collected source references per completed cycle.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service", "pool"},
	)
	retrievalFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ae",
			Subsystem: "query",
			Name:      "retrieval_failures_total",
			Help:      "Retrieval backend failures recovered by degrading to empty context.",
		},
		[]string{"service", "backend"},
	)
	suggestionFailures := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ae",
			Subsystem: "query",
			Name:      "suggestion_failures_total",
			Help:      "Follow-up suggestion failures recovered with an empty list.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	historyWriteFailures := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ae",
			Subsystem: "query",
			Name:      "history_write_failures_total",
			Help:      "Chat history writes that failed after a completed cycle.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		cyclesTotal,
		cycleDuration,
		cycleSources,
		retrievalFailures,
		suggestionFailures,
		historyWriteFailures,
	)

	return &HTTPServerMetrics{
		registry:             registry,
		requestTotal:         requestTotal,
		requestDuration:      requestDuration,
		requestInFlight:      requestInFlight,
		cyclesTotal:          cyclesTotal,
		cycleDuration:        cycleDuration,
		cycleSources:         cycleSources,
		retrievalFailures:    retrievalFailures,
		suggestionFailures:   suggestionFailures,
		historyWriteFailures: historyWriteFailures,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
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

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/documents/"):
		return "/v1/documents/{document_id}"
	default:
		return path
	}
}

// CycleMetrics binds the query-cycle observations of one service to the
// shared registry. It satisfies the orchestrator's metrics contract.
type CycleMetrics struct {
	service string
	parent  *HTTPServerMetrics
}

func (m *HTTPServerMetrics) CycleMetrics(service string) *CycleMetrics {
	return &CycleMetrics{service: service, parent: m}
}

func (c *CycleMetrics) ObserveCycle(status string, duration time.Duration, kbSources, webSources int) {
	if status == "" {
		status = "unknown"
	}
	c.parent.cyclesTotal.WithLabelValues(c.service, status).Inc()
	c.parent.cycleDuration.WithLabelValues(c.service, status).Observe(duration.Seconds())
	if status == "completed" {
		c.parent.cycleSources.WithLabelValues(c.service, "knowledge_base").Observe(float64(kbSources))
		c.parent.cycleSources.WithLabelValues(c.service, "web").Observe(float64(webSources))
	}
}

func (c *CycleMetrics) RetrievalFailure(backend string) {
	if backend == "" {
		backend = "unknown"
	}
	c.parent.retrievalFailures.WithLabelValues(c.service, backend).Inc()
}

func (c *CycleMetrics) SuggestionFailure() {
	c.parent.suggestionFailures.Inc()
}

func (c *CycleMetrics) HistoryWriteFailure() {
	c.parent.historyWriteFailures.Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
