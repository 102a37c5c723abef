package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/m3undle/lineup/internal/log"
)

// Logging emits one structured access-log line per request, after it
// completes, annotated with the route's correlation ID, status, and
// latency.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		lg := log.WithComponentFromContext(r.Context(), "api")
		lg.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("request_id", log.RequestIDFromContext(r.Context())).
			Msg("http request")
	})
}
