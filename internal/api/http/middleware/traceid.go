package middleware

import (
	"net/http"

	"currency-gateway/internal/upstream"
)

// TraceID stores the inbound X-Trace-Id (or a fresh one) in the request
// context and echoes it on the response, so callers and upstream providers
// share one correlation id.
func TraceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if id := r.Header.Get(upstream.TraceHeader); id != "" {
			ctx = upstream.WithTraceID(ctx, id)
		}
		ctx, id := upstream.EnsureTraceID(ctx)

		w.Header().Set(upstream.TraceHeader, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
