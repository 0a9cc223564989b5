package middleware

import "net/http"

type httpMetrics interface {
	ObserveHTTPRequest(method, route string, status int)
}

// Metrics counts requests by matched route pattern, so path parameters do
// not explode the label space. It must wrap the ServeMux directly.
func Metrics(m httpMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			m.ObserveHTTPRequest(r.Method, route, rec.status)
		})
	}
}
