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

	authFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_failures_total",
			Help: "Authentication failures by reason.",
		},
		[]string{"reason"},
	)

	authzDenialsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_denials_total",
			Help: "Authorization denials by module and action.",
		},
		[]string{"module", "action"},
	)

	tokenSourceTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_token_source_total",
			Help: "Where authenticated requests carried their credential.",
		},
		[]string{"source"},
	)

	ready = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "service_ready",
		Help: "1 when the service considers itself ready.",
	})
)

// Init registers all metrics in the default registry.
func Init() {
	prometheus.MustRegister(
		httpInFlight, httpRequestsTotal, httpRequestDuration,
		authFailuresTotal, authzDenialsTotal, tokenSourceTotal, ready,
	)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// AuthFailure counts one failed authentication attempt.
func AuthFailure(reason string) {
	authFailuresTotal.WithLabelValues(reason).Inc()
}

// AuthzDenial counts one authorization rejection.
func AuthzDenial(module, action string) {
	authzDenialsTotal.WithLabelValues(module, action).Inc()
}

// TokenSource counts how the bearer credential reached the server
// ("header" or "query").
func TokenSource(source string) {
	tokenSourceTotal.WithLabelValues(source).Inc()
}

// SetReady flips the readiness gauge.
func SetReady(ok bool) {
	if ok {
		ready.Set(1)
		return
	}
	ready.Set(0)
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

// CanonicalPath collapses identifier segments so metric cardinality stays
// bounded: /v1/roles/<id>/matrix becomes /v1/roles/:id/matrix.
func CanonicalPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	parts := strings.Split(path, "/")
	if len(parts) >= 4 && parts[1] == "v1" && parts[2] == "roles" && parts[3] != "" {
		parts[3] = ":id"
		return strings.Join(parts, "/")
	}
	return path
}

// statusWriter captures the response code written downstream.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
