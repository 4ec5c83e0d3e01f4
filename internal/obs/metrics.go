package obs

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Shared HTTP metrics.
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

	pitchGenerationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pitch_generations_total",
			Help: "Pitch generation attempts by outcome.",
		},
		[]string{"outcome"},
	)

	pitchCreditConflicts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pitch_credit_conflicts_total",
		Help: "Credit decrements lost to a concurrent writer.",
	})

	rateLimitRejections = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rate_limit_rejections_total",
		Help: "Requests rejected by the per-user rate limiter.",
	})
)

// Init registers all metrics in the default registry.
func Init() {
	prometheus.MustRegister(
		httpInFlight, httpRequestsTotal, httpRequestDuration,
		pitchGenerationsTotal, pitchCreditConflicts, rateLimitRejections,
	)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePitch records a finished generation attempt.
// Outcome is one of "ok", "rejected", "upstream_error".
func ObservePitch(outcome string) {
	pitchGenerationsTotal.WithLabelValues(outcome).Inc()
}

// ObserveCreditConflict counts a lost conditional decrement.
func ObserveCreditConflict() {
	pitchCreditConflicts.Inc()
}

// ObserveRateLimited counts a 429 from the per-user limiter.
func ObserveRateLimited() {
	rateLimitRejections.Inc()
}

// CanonicalPath collapses resource identifiers so metric label cardinality
// stays bounded.
func CanonicalPath(path string) string {
	if path == "" {
		return "/"
	}
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if strings.HasPrefix(path, "/v1/leads/") {
		rest := strings.TrimPrefix(path, "/v1/leads/")
		if rest != "" && !strings.Contains(rest, "/") {
			return "/v1/leads/:id"
		}
	}
	return path
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

// statusWriter records the response code for metric labels.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
