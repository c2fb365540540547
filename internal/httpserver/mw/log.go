package mw

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/notionbot/internal/logger"
)

// pollPaths are hit every few seconds by the orchestrator.
var pollPaths = map[string]bool{"/healthz": true, "/readyz": true}

// Log returns a middleware that writes one access line per ops request.
// Health polls that succeed go to debug and any 4xx or failed poll to warn.
// Other 5xx go to error.
func Log(loggerClient logger.Logger, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			poll := pollPaths[r.URL.Path]
			logFn := loggerClient.Info
			switch {
			case status >= http.StatusInternalServerError && !poll:
				logFn = loggerClient.Error
			case status >= http.StatusBadRequest:
				logFn = loggerClient.Warn
			case poll:
				logFn = loggerClient.Debug
			}

			logFn("http_request",
				logger.String("method", r.Method),
				logger.String("path", r.URL.Path),
				logger.Int("status", status),
				logger.Int("bytes", ww.BytesWritten()),
				logger.Duration("duration", time.Since(start)),
				logger.String("client_ip", ClientIP(r, trustProxy)),
				logger.String("user_agent", r.UserAgent()),
				logger.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
