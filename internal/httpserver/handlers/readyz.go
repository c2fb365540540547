package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/MrSnakeDoc/notionbot/internal/httpserver/deps"
)

type readyzResponse struct {
	Ready   bool `json:"ready"`
	Gateway bool `json:"gateway"`
}

// Readyz is ready once the Discord gateway is connected.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connected := d.Gateway != nil && d.Gateway.Connected()

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		if connected {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		_ = json.NewEncoder(w).Encode(readyzResponse{
			Ready:   connected,
			Gateway: connected,
		})
	}
}
