package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

const redacted = "***REDACTED***"

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Discord
	DiscordToken string // bot token, without the "Bot " prefix
	GuildID      string // guild where /events and /docs are registered
	PromptKey    string // "message_interaction" | "custom_id"

	// Notion
	NotionToken      string        // integration token
	EventsDatabaseID string        // database listed by /events
	DocsDatabaseID   string        // database offered by /docs
	SchemaFile       string        // optional YAML property schema, hot reloaded
	FetchTimeout     time.Duration // bound on each Notion query (default: 10s)

	// Chooser bindings
	BindingTTL   time.Duration // age after which an unanswered chooser is dropped (default: 15m)
	ReapInterval time.Duration // how often abandoned choosers are swept (default: 1m)
	MaxBindings  int           // live chooser cap (default: 1000)

	// Redis (optional, usage statistics)
	RedisAddr           string        // ex: "localhost:6379", empty = usage stats disabled
	RedisUser           string        // optional
	RedisPassword       string        // optional
	RedisDB             int           // Redis DB number
	RedisDT             time.Duration // Redis dial timeout (ex: 5s)
	RedisRT             time.Duration // Redis read timeout (ex: 3s)
	RedisWT             time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait        time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout    time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize       int           // Redis connection pool size
	RedisConnectTimeout time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval  time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold  int           // warn after this many attempts

	AllowedCIDRS []string // optional, restrict ops endpoints to specific networks (e.g. "10.0.0.0/8, 127.0.0.1")
	TrustProxy   bool     // true => trust X-Forwarded-For headers
}

// RedisEnabled reports whether usage statistics are configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("NOTIONBOT_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("NOTIONBOT_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("NOTIONBOT_LOG_LEVEL", "info"),
		PrettyLog: mustBool("NOTIONBOT_PRETTY_LOG", true),

		// Discord
		DiscordToken: requireEnv("NOTIONBOT_DISCORD_TOKEN"),
		GuildID:      requireEnv("NOTIONBOT_GUILD_ID"),
		PromptKey:    getenv("NOTIONBOT_PROMPT_KEY", "message_interaction"),

		// Notion
		NotionToken:      requireEnv("NOTIONBOT_NOTION_TOKEN"),
		EventsDatabaseID: requireEnv("NOTIONBOT_EVENTS_DATABASE_ID"),
		DocsDatabaseID:   requireEnv("NOTIONBOT_DOCS_DATABASE_ID"),
		SchemaFile:       getenv("NOTIONBOT_SCHEMA_FILE", ""),
		FetchTimeout:     mustDuration("NOTIONBOT_FETCH_TIMEOUT", 10*time.Second),

		// Bindings
		BindingTTL:   mustDuration("NOTIONBOT_BINDING_TTL", 15*time.Minute),
		ReapInterval: mustDuration("NOTIONBOT_REAP_INTERVAL", time.Minute),
		MaxBindings:  getenvInt("NOTIONBOT_MAX_BINDINGS", 1000),

		// Redis settings
		RedisAddr:           getenv("NOTIONBOT_REDIS_ADDR", ""),
		RedisUser:           getenv("NOTIONBOT_REDIS_USERNAME", ""),
		RedisPassword:       getenv("NOTIONBOT_REDIS_PASSWORD", ""),
		RedisDB:             getenvInt("NOTIONBOT_REDIS_DB", 0),
		RedisDT:             mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:             mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:             mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:        mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:    mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:       getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout: mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:  mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:  getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		AllowedCIDRS: parseAllowedIPs(getenv("NOTIONBOT_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("NOTIONBOT_TRUST_PROXY", false),
	}

	if cfg.FetchTimeout <= 0 {
		panic("❌ FATAL: NOTIONBOT_FETCH_TIMEOUT must be positive")
	}
	if cfg.BindingTTL <= 0 {
		panic("❌ FATAL: NOTIONBOT_BINDING_TTL must be positive")
	}
	if cfg.MaxBindings <= 0 {
		panic(fmt.Sprintf("❌ FATAL: NOTIONBOT_MAX_BINDINGS must be positive, got %d", cfg.MaxBindings))
	}
	if cfg.ReapInterval <= 0 {
		panic("❌ FATAL: NOTIONBOT_REAP_INTERVAL must be positive")
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		log.Printf("[DEBUG] cfg: %+v\n", cfg.Redacted())
	}

	return cfg
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() Config {
	cp := *c
	cp.DiscordToken = redacted
	cp.NotionToken = redacted
	if cp.RedisPassword != "" {
		cp.RedisPassword = redacted
	}
	if cp.RedisUser != "" {
		cp.RedisUser = redacted
	}
	return cp
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
