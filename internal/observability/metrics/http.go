package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker/v2"
)

const namespace = "brain"

type HTTPServerMetrics struct {
	registry *prometheus.Registry
	service  string

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	ragRequestsTotal   *prometheus.CounterVec
	ragNoContextTotal  *prometheus.CounterVec
	ragRetrievedChunks *prometheus.HistogramVec
	ragDuration        *prometheus.HistogramVec

	cacheLookupsTotal *prometheus.CounterVec
	confidenceTotal   *prometheus.CounterVec

	conflictScansTotal prometheus.Counter
	conflictsFound     prometheus.Gauge

	extractionRecordsTotal *prometheus.CounterVec
	extractionDroppedTotal *prometheus.CounterVec

	breakerState *prometheus.GaugeVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"service": service}

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "requests_total",
			Help:        "Total HTTP requests processed.",
			ConstLabels: constLabels,
		},
		[]string{"method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "request_duration_seconds",
			Help:        "HTTP request duration in seconds.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		},
		[]string{"method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "in_flight_requests",
			Help:        "Number of in-flight HTTP requests.",
			ConstLabels: constLabels,
		},
	)
	ragRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "rag",
			Name:        "requests_total",
			Help:        "Total successful retrieval requests.",
			ConstLabels: constLabels,
		},
		[]string{"endpoint"},
	)
	ragNoContextTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "rag",
			Name:        "no_context_total",
			Help:        "Total retrieval requests without any retrieved chunk.",
			ConstLabels: constLabels,
		},
		[]string{"endpoint"},
	)
	ragRetrievedChunks := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "rag",
			Name:        "retrieved_chunks",
			Help:        "Distribution of retrieved chunks per successful request.",
			Buckets:     []float64{0, 1, 2, 3, 5, 8, 13, 21},
			ConstLabels: constLabels,
		},
		[]string{"endpoint"},
	)
	ragDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "rag",
			Name:        "duration_seconds",
			Help:        "Retrieval and answer duration in seconds.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		},
		[]string{"endpoint"},
	)
	cacheLookupsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "cache",
			Name:        "lookups_total",
			Help:        "Answer cache lookups by result.",
			ConstLabels: constLabels,
		},
		[]string{"result"},
	)
	confidenceTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "answer",
			Name:        "confidence_total",
			Help:        "Answers by confidence bucket.",
			ConstLabels: constLabels,
		},
		[]string{"confidence"},
	)
	conflictScansTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "conflicts",
			Name:        "scans_total",
			Help:        "Completed corpus conflict scans.",
			ConstLabels: constLabels,
		},
	)
	conflictsFound := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "conflicts",
			Name:        "found",
			Help:        "Conflicts reported by the latest scan.",
			ConstLabels: constLabels,
		},
	)
	extractionRecordsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "extraction",
			Name:        "records_total",
			Help:        "Validated structured records by entity type.",
			ConstLabels: constLabels,
		},
		[]string{"entity_type"},
	)
	extractionDroppedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "extraction",
			Name:        "dropped_total",
			Help:        "Structured records dropped by validation, by entity type.",
			ConstLabels: constLabels,
		},
		[]string{"entity_type"},
	)
	breakerState := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "resilience",
			Name:        "breaker_state",
			Help:        "Circuit breaker state per operation (0 closed, 1 half-open, 2 open).",
			ConstLabels: constLabels,
		},
		[]string{"operation"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		ragRequestsTotal,
		ragNoContextTotal,
		ragRetrievedChunks,
		ragDuration,
		cacheLookupsTotal,
		confidenceTotal,
		conflictScansTotal,
		conflictsFound,
		extractionRecordsTotal,
		extractionDroppedTotal,
		breakerState,
	)

	return &HTTPServerMetrics{
		registry:               registry,
		service:                service,
		requestTotal:           requestTotal,
		requestDuration:        requestDuration,
		requestInFlight:        requestInFlight,
		ragRequestsTotal:       ragRequestsTotal,
		ragNoContextTotal:      ragNoContextTotal,
		ragRetrievedChunks:     ragRetrievedChunks,
		ragDuration:            ragDuration,
		cacheLookupsTotal:      cacheLookupsTotal,
		confidenceTotal:        confidenceTotal,
		conflictScansTotal:     conflictScansTotal,
		conflictsFound:         conflictsFound,
		extractionRecordsTotal: extractionRecordsTotal,
		extractionDroppedTotal: extractionDroppedTotal,
		breakerState:           breakerState,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RegisterGaugeFunc exposes a sampled value such as the index size.
func (m *HTTPServerMetrics) RegisterGaugeFunc(subsystem, name, help string, fn func() float64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: prometheus.Labels{"service": m.service},
	}, fn))
}

func (m *HTTPServerMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		path := routeLabel(r)
		m.requestTotal.WithLabelValues(r.Method, path, strconv.Itoa(recorder.statusCode)).Inc()
		m.requestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// routeLabel prefers the matched chi pattern so ids never become label values.
func routeLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return normalizePath(r.URL.Path)
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/documents/"):
		return "/v1/documents/{id}"
	case strings.HasPrefix(path, "/v1/export/"):
		return "/v1/export/{entity_type}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordRAGObservation(endpoint string, chunkCount int, duration time.Duration) {
	m.ragRequestsTotal.WithLabelValues(endpoint).Inc()
	m.ragRetrievedChunks.WithLabelValues(endpoint).Observe(float64(chunkCount))
	m.ragDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
	if chunkCount == 0 {
		m.ragNoContextTotal.WithLabelValues(endpoint).Inc()
	}
}

func (m *HTTPServerMetrics) RecordAnswer(confidence string, cached bool) {
	result := "miss"
	if cached {
		result = "hit"
	}
	m.cacheLookupsTotal.WithLabelValues(result).Inc()
	if confidence == "" {
		confidence = "unknown"
	}
	m.confidenceTotal.WithLabelValues(confidence).Inc()
}

func (m *HTTPServerMetrics) RecordConflictScan(found int) {
	m.conflictScansTotal.Inc()
	m.conflictsFound.Set(float64(found))
}

func (m *HTTPServerMetrics) RecordExtraction(entityType string, records, dropped int) {
	m.extractionRecordsTotal.WithLabelValues(entityType).Add(float64(records))
	if dropped > 0 {
		m.extractionDroppedTotal.WithLabelValues(entityType).Add(float64(dropped))
	}
}

// ObserveBreaker matches resilience.StateObserver.
func (m *HTTPServerMetrics) ObserveBreaker(operation string, _, to gobreaker.State) {
	m.breakerState.WithLabelValues(operation).Set(breakerStateValue(to))
}

func breakerStateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
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
