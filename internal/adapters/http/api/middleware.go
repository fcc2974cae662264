package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/okian/rinkxg/pkg/metrics"
)

// MetricsMiddleware records request count, latency and error class per
// endpoint. A panicking handler is answered with 500 and counted.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		defer func() {
			if p := recover(); p != nil {
				if p == http.ErrAbortHandler { //nolint:errorlint // sentinel panic value
					panic(p)
				}
				metrics.RecordErrorByComponent("api", "panic")
				if !rec.wroteHeader {
					writeError(rec, http.StatusInternalServerError, "internal_error", nil)
				}
			}

			status := strconv.Itoa(rec.status)
			metrics.RecordHTTPRequest(endpoint, r.Method, status)
			metrics.RecordHTTPRequestDuration(endpoint, r.Method, status, float64(time.Since(start).Milliseconds()))
			if rec.status >= http.StatusBadRequest {
				metrics.RecordErrorByEndpoint(endpoint, r.Method, errorClass(rec.status))
			}
		}()

		next.ServeHTTP(rec, r)
	}
}

// errorClass buckets a failing status code for the error metrics.
func errorClass(status int) string {
	switch {
	case status >= http.StatusInternalServerError:
		return "server_error"
	case status == http.StatusUnprocessableEntity:
		return "unprocessable"
	case status == http.StatusNotFound:
		return "not_found"
	default:
		return "client_error"
	}
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.wroteHeader {
		return
	}
	s.status, s.wroteHeader = code, true
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	s.wroteHeader = true
	return s.ResponseWriter.Write(b)
}
