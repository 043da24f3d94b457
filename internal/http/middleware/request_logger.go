package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/smiledental/reception-agent/pkg/logging"
)

// RequestLogger emits start and completion logs for every HTTP request,
// tagging both with the request id and the caller's chat session id when
// the X-Session-Id header is present.
func RequestLogger(logger *logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := r.Header.Get("X-Request-ID")
			if reqID == "" {
				reqID = uuid.NewString()
			}
			sessionID := r.Header.Get("X-Session-Id")
			logger.Info("request started",
				"method", r.Method,
				"path", r.URL.Path,
				"request_id", reqID,
				"session_id", sessionID,
				"remote_ip", r.RemoteAddr,
			)
			next.ServeHTTP(w, r)
			logger.Info("request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"request_id", reqID,
				"session_id", sessionID,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}
