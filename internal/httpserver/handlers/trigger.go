package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/notionbot/internal/httpserver/deps"
	"github.com/MrSnakeDoc/notionbot/internal/logger"
)

// Reap triggers an immediate sweep of abandoned choosers
func Reap(d deps.Deps) http.HandlerFunc {
	return trigger(d, d.ReapTrigger, "reap")
}

// ReloadSchema triggers an immediate reload of the property schema file
func ReloadSchema(d deps.Deps) http.HandlerFunc {
	return trigger(d, d.SchemaReloadTrigger, "schema reload")
}

func trigger(d deps.Deps, ch chan struct{}, what string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ch == nil {
			w.WriteHeader(http.StatusNotFound)
			if _, err := w.Write([]byte("❌ " + what + " is not enabled\n")); err != nil {
				d.Logger.Debug("failed to write response", logger.Error(err))
			}
			return
		}

		select {
		case ch <- struct{}{}:
			d.Logger.Info("manual "+what+" triggered via endpoint",
				logger.String("remote_ip", r.RemoteAddr))
			w.WriteHeader(http.StatusAccepted)
			if _, err := w.Write([]byte("✅ " + what + " triggered successfully\n")); err != nil {
				d.Logger.Debug("failed to write response", logger.Error(err))
			}
		default:
			d.Logger.Warn(what+" already in progress",
				logger.String("remote_ip", r.RemoteAddr))
			w.WriteHeader(http.StatusTooManyRequests)
			if _, err := w.Write([]byte("⏳ " + what + " already in progress, please wait\n")); err != nil {
				d.Logger.Debug("failed to write response", logger.Error(err))
			}
		}
	}
}
