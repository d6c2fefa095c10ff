package obs

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP metrics shared by every endpoint.
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Domain metrics for signed download links and PII key rotation.
var (
	linkTokensIssued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "signed_link_tokens_issued_total",
		Help: "Signed download-link tokens issued.",
	})

	linkTokenValidations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signed_link_token_validations_total",
			Help: "Signed download-link token validations by outcome.",
		},
		[]string{"outcome"}, // valid | invalid | expired
	)

	rotationRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pii_rotation_rows_total",
			Help: "Encrypted field rows processed by key rotation, by result.",
		},
		[]string{"result"}, // rotated | skipped | failed
	)
)

// Init registers all metric families in the default registry.
func Init() {
	prometheus.MustRegister(
		httpInFlight, httpRequestsTotal, httpRequestDuration,
		linkTokensIssued, linkTokenValidations, rotationRows,
	)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveTokenIssued records one issued download-link token.
func ObserveTokenIssued() { linkTokensIssued.Inc() }

// ObserveTokenValidation records a validation attempt outcome
// ("valid", "invalid" or "expired").
func ObserveTokenValidation(outcome string) {
	linkTokenValidations.WithLabelValues(outcome).Inc()
}

// ObserveRotationRow records one rotation row result
// ("rotated", "skipped" or "failed").
func ObserveRotationRow(result string) {
	rotationRows.WithLabelValues(result).Inc()
}

// Instrument wraps a handler with RPS/latency/in-flight measurement.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// CanonicalPath collapses per-resource path segments so metric label
// cardinality stays bounded.
func CanonicalPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	parts := strings.Split(path, "/")
	// /v1/documents/<id>/link -> /v1/documents/:id/link
	if len(parts) >= 4 && parts[1] == "v1" && parts[2] == "documents" && parts[3] != "" {
		parts[3] = ":id"
		return strings.Join(parts, "/")
	}
	return path
}

// statusWriter records the response code written by the handler chain.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
