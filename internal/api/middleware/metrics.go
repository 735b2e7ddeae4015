package middleware

import (
	"net/http"
	"strconv"
	"time"

	"accountsvc/pkg/metrics"
)

// MetricsMiddleware records request counts and latency labelled by the
// matched route pattern, so path parameters and probes for unknown paths do
// not explode label cardinality.
func MetricsMiddleware(routes *http.ServeMux) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			startTime := time.Now()

			endpoint := "unmatched"
			if _, pattern := routes.Handler(r); pattern != "" {
				endpoint = pattern
			}

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			metrics.RecordHttpRequest(
				r.Method,
				endpoint,
				strconv.Itoa(rw.statusCode),
				time.Since(startTime),
			)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
