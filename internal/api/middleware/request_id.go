package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/m3undle/lineup/internal/log"
)

// HeaderRequestID is the header name carrying a request's correlation ID,
// both on the way in and echoed back out.
const HeaderRequestID = "X-Request-ID"

// RequestID assigns every request a correlation ID, reusing an
// operator-supplied one when present.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(HeaderRequestID)
		if reqID == "" {
			reqID = uuid.New().String()
		}
		w.Header().Set(HeaderRequestID, reqID)
		ctx := log.ContextWithRequestID(r.Context(), reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
