package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"
)

// knownRoutes are the API's fixed paths. The route surface has no
// dynamic segments, so anything else is collapsed to a single label to
// keep metric cardinality bounded against path scanning.
var knownRoutes = map[string]bool{
	"/":                      true,
	"/api/game":              true,
	"/api/guess":             true,
	"/api/daily":             true,
	"/api/daily/submit":      true,
	"/api/daily/leaderboard": true,
	"/health":                true,
	"/ready":                 true,
	"/metrics":               true,
}

// normalizePath maps unknown paths to a catch-all label.
func normalizePath(path string) string {
	if knownRoutes[path] {
		return path
	}
	return "/unknown"
}

// metricsResponseWriter wraps http.ResponseWriter to capture status
// code and response size.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode  int
	size        int64
	wroteHeader bool
}

// WriteHeader captures the status code before writing it.
func (mrw *metricsResponseWriter) WriteHeader(code int) {
	if mrw.wroteHeader {
		return
	}
	mrw.statusCode = code
	mrw.wroteHeader = true
	mrw.ResponseWriter.WriteHeader(code)
}

// Write captures the response size and writes the data.
func (mrw *metricsResponseWriter) Write(b []byte) (int, error) {
	n, err := mrw.ResponseWriter.Write(b)
	mrw.size += int64(n)
	return n, err
}

// updateContext forwards handler context updates to the wrapped writer
// so the logging middleware still sees error codes when this writer
// sits between them.
func (mrw *metricsResponseWriter) updateContext(ctx context.Context) {
	UpdateResponseContext(mrw.ResponseWriter, ctx)
}

// HTTPMetrics is a middleware that records HTTP request metrics:
// duration, request/response sizes, and request counts. Health check
// endpoints are excluded to avoid drowning the series in probe noise.
func HTTPMetrics(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" || r.URL.Path == "/ready" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()

			mrw := &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			requestSize := int64(0)
			if contentLength := r.Header.Get("Content-Length"); contentLength != "" {
				if size, err := strconv.ParseInt(contentLength, 10, 64); err == nil {
					requestSize = size
				}
			}

			next.ServeHTTP(mrw, r)

			duration := time.Since(start).Seconds()

			metrics.ObserveHTTPRequest(
				r.Method,
				normalizePath(r.URL.Path),
				strconv.Itoa(mrw.statusCode),
				duration,
				requestSize,
				mrw.size,
			)
		})
	}
}
