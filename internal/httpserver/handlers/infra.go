package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/notionbot/internal/httpserver/deps"
	redisstore "github.com/MrSnakeDoc/notionbot/internal/store/redis"
)

type componentStatus struct {
	OK     bool   `json:"ok"`
	Mode   string `json:"mode,omitempty"`
	Impact string `json:"impact,omitempty"`
	Error  string `json:"error,omitempty"`
}

type bindingsStatus struct {
	Live     int    `json:"live"`
	Created  uint64 `json:"created"`
	Resolved uint64 `json:"resolved"`
	Reaped   uint64 `json:"reaped"`
	Evicted  uint64 `json:"evicted"`
}

type schemaStatus struct {
	EventsTitle string `json:"events_title_property"`
	EventsDate  string `json:"events_date_property"`
	DocsTitle   string `json:"docs_title_property"`
}

type infraResponse struct {
	Status     string                     `json:"status"`
	Components map[string]componentStatus `json:"components"`
	Bindings   *bindingsStatus            `json:"bindings,omitempty"`
	Schema     *schemaStatus              `json:"schema,omitempty"`
	Usage      *redisstore.UsageStats     `json:"usage,omitempty"`
}

// Infra reports gateway, Redis, binding and schema state.
func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		redisComponent, usage := checkRedis(ctx, d)
		components := map[string]componentStatus{
			"discord": checkGateway(d),
			"redis":   redisComponent,
		}

		response := infraResponse{
			Status:     determineStatus(components),
			Components: components,
			Usage:      usage,
		}

		if d.Bindings != nil {
			s := d.Bindings.Stats()
			response.Bindings = &bindingsStatus{
				Live:     s.Live,
				Created:  s.Created,
				Resolved: s.Resolved,
				Reaped:   s.Reaped,
				Evicted:  s.Evicted,
			}
		}

		if d.Schema != nil {
			s := d.Schema.Schema()
			response.Schema = &schemaStatus{
				EventsTitle: s.Events.TitleProperty,
				EventsDate:  s.Events.DateProperty,
				DocsTitle:   s.Docs.TitleProperty,
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

func determineStatus(components map[string]componentStatus) string {
	// No gateway means no commands are answered
	if discord, exists := components["discord"]; exists && !discord.OK {
		return "critical"
	}

	// Redis only carries statistics
	if redis, exists := components["redis"]; exists && !redis.OK && redis.Mode != "disabled" {
		return "degraded"
	}

	return "operational"
}

func checkGateway(d deps.Deps) componentStatus {
	if d.Gateway == nil || !d.Gateway.Connected() {
		return componentStatus{
			OK:     false,
			Mode:   "disconnected",
			Impact: "commands-unanswered",
		}
	}
	return componentStatus{OK: true, Mode: "connected"}
}

func checkRedis(ctx context.Context, d deps.Deps) (componentStatus, *redisstore.UsageStats) {
	if d.Usage == nil {
		return componentStatus{
			OK:     false,
			Mode:   "disabled",
			Impact: "usage-stats-disabled",
		}, nil
	}

	if err := d.Usage.Ping(ctx); err != nil {
		return componentStatus{
			OK:     false,
			Mode:   "degraded",
			Impact: "usage-stats-unavailable",
			Error:  err.Error(),
		}, nil
	}

	usage, err := d.Usage.GetUsageStats(ctx, redisstore.DefaultTopDocs)
	if err != nil {
		return componentStatus{
			OK:     false,
			Mode:   "degraded",
			Impact: "usage-stats-unavailable",
			Error:  err.Error(),
		}, nil
	}

	return componentStatus{
		OK:     true,
		Mode:   "optimal",
		Impact: "usage-stats-enabled",
	}, usage
}
