package middleware

import (
	"encoding/json"
	"net/http"
	"runtime"

	"github.com/m3undle/lineup/internal/log"
)

// Recoverer stops a panic in any downstream handler from crashing the
// process, logging it with the request's correlation ID and replying 500.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)

			reqID := log.RequestIDFromContext(r.Context())
			lg := log.WithComponentFromContext(r.Context(), "api")
			lg.Error().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("request_id", reqID).
				Interface("panic", rec).
				Str("stack", string(buf[:n])).
				Msg("panic recovered in HTTP handler")

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":     "internal server error",
				"requestId": reqID,
			})
		}()
		next.ServeHTTP(w, r)
	})
}
