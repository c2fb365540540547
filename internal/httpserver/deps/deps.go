package deps

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/notionbot/internal/correlator"
	"github.com/MrSnakeDoc/notionbot/internal/logger"
	"github.com/MrSnakeDoc/notionbot/internal/sources/notion"
	redisstore "github.com/MrSnakeDoc/notionbot/internal/store/redis"
)

// GatewayStatus reports the Discord connection state.
type GatewayStatus interface {
	Connected() bool
}

// BindingStats reports chooser binding counters.
type BindingStats interface {
	Stats() correlator.Stats
}

// SchemaProvider exposes the property schema currently in use.
type SchemaProvider interface {
	Schema() notion.Schema
}

// UsageReader reads usage statistics.
type UsageReader interface {
	GetUsageStats(ctx context.Context, topN int) (*redisstore.UsageStats, error)
	Ping(ctx context.Context) error
}

type Deps struct {
	Logger              logger.Logger
	StartTime           time.Time
	Version             string
	Commit              string
	BuildDate           string
	GoVersion           string
	TimeNow             func() time.Time // for testing, defaults to time.Now
	AllowedCIDRS        []string         // IPs allowed to access ops endpoints
	TrustProxy          bool             // true if running behind a trusted reverse proxy
	Gateway             GatewayStatus    // Discord websocket state
	Bindings            BindingStats     // chooser correlator
	Schema              SchemaProvider   // Notion property schema in use
	Usage               UsageReader      // nil when Redis is not configured
	ReapTrigger         chan struct{}    // Channel to trigger a manual binding sweep
	SchemaReloadTrigger chan struct{}    // Channel to trigger a manual schema reload (nil if no schema file)
}
