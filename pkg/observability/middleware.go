package observability

import (
	"net/http"
	"time"
)

// unmatchedRoute labels requests that no ServeMux pattern matched.
const unmatchedRoute = "unmatched"

// MetricsMiddleware records funcall_requests_total,
// funcall_request_duration_seconds and funcall_requests_in_flight for next.
// Routes are labelled with the matched ServeMux pattern, never the raw
// path, so conversation ids in query strings cannot blow up cardinality.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		RequestsInFlight.Inc()
		defer RequestsInFlight.Dec()

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = unmatchedRoute
		}
		RequestsTotal.WithLabelValues(r.Method, statusLabel(rec.Status()), route).Inc()
		RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// statusRecorder remembers the first status code written through it.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

// Status returns the recorded status; a handler that only wrote a body
// answered 200.
func (w *statusRecorder) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func (w *statusRecorder) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *statusRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
