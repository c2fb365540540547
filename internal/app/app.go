package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/MrSnakeDoc/notionbot/internal/bot"
	"github.com/MrSnakeDoc/notionbot/internal/config"
	"github.com/MrSnakeDoc/notionbot/internal/correlator"
	"github.com/MrSnakeDoc/notionbot/internal/httpserver"
	"github.com/MrSnakeDoc/notionbot/internal/httpserver/deps"
	"github.com/MrSnakeDoc/notionbot/internal/logger"
	"github.com/MrSnakeDoc/notionbot/internal/redis"
	"github.com/MrSnakeDoc/notionbot/internal/scheduler"
	"github.com/MrSnakeDoc/notionbot/internal/sources/notion"
	redisstore "github.com/MrSnakeDoc/notionbot/internal/store/redis"
	"github.com/MrSnakeDoc/notionbot/internal/version"
)

type App struct {
	cfg            *config.Config
	logger         logger.Logger
	server         *httpserver.Server
	gateway        *bot.Gateway
	bot            *bot.Bot
	redisClient    *goredis.Client
	reaper         *scheduler.BindingReaper
	schemaReloader *scheduler.SchemaReloader
}

func New(ctx context.Context, cfg *config.Config, loggerClient logger.Logger) (*App, error) {
	keys, err := bot.ParsePromptKeys(cfg.PromptKey)
	if err != nil {
		return nil, err
	}

	gateway, err := bot.NewGateway(cfg.DiscordToken, loggerClient)
	if err != nil {
		return nil, err
	}

	// Property schema: file if configured (hot reloaded), defaults otherwise
	schema, err := notion.NewLoader(cfg.SchemaFile).Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load property schema: %w", err)
	}

	source := notion.NewSource(notion.NewQuerier(cfg.NotionToken), notion.Options{
		EventsDatabaseID: cfg.EventsDatabaseID,
		DocsDatabaseID:   cfg.DocsDatabaseID,
		Schema:           schema,
		FetchTimeout:     cfg.FetchTimeout,
	}, loggerClient)

	bindings := correlator.New(correlator.Options{
		MaxBindings: cfg.MaxBindings,
		TTL:         cfg.BindingTTL,
	})

	// Redis only carries usage statistics: the bot runs without it
	var redisClient *goredis.Client
	var store *redisstore.Store
	botOpts := bot.Options{GuildID: cfg.GuildID, Keys: keys}
	if cfg.RedisEnabled() {
		redisClient, err = redis.Connect(ctx, redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			RedisDB:        cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, loggerClient)
		if err != nil {
			loggerClient.Warn("usage statistics disabled, redis unavailable", logger.Error(err))
		} else {
			store = redisstore.NewStore(redisClient)
			botOpts.Usage = store
		}
	} else {
		loggerClient.Info("redis not configured, usage statistics disabled")
	}

	b := bot.New(gateway.Session(), source, bindings, botOpts, loggerClient)

	// Create manual trigger channels
	reapTrigger := make(chan struct{}, 1)
	reaper := scheduler.NewBindingReaper(bindings, loggerClient, cfg.ReapInterval, cfg.BindingTTL, reapTrigger)

	var schemaReloader *scheduler.SchemaReloader
	var schemaReloadTrigger chan struct{}
	if cfg.SchemaFile != "" {
		schemaReloadTrigger = make(chan struct{}, 1)
		schemaReloader = scheduler.NewSchemaReloader(cfg.SchemaFile, source, loggerClient, schemaReloadTrigger)
	}

	// Dependencies passed to routes
	d := deps.Deps{
		Logger:              loggerClient,
		StartTime:           time.Now(),
		Version:             version.Version,
		Commit:              version.Commit,
		BuildDate:           version.BuildDate,
		GoVersion:           version.GoVersion,
		TimeNow:             time.Now,
		AllowedCIDRS:        cfg.AllowedCIDRS,
		TrustProxy:          cfg.TrustProxy,
		Gateway:             gateway,
		Bindings:            bindings,
		Schema:              source,
		ReapTrigger:         reapTrigger,
		SchemaReloadTrigger: schemaReloadTrigger,
	}
	if store != nil {
		d.Usage = store
	}

	return &App{
		cfg:            cfg,
		logger:         loggerClient,
		server:         httpserver.New(cfg, loggerClient, d),
		gateway:        gateway,
		bot:            b,
		redisClient:    redisClient,
		reaper:         reaper,
		schemaReloader: schemaReloader,
	}, nil
}

// Run serves until SIGINT/SIGTERM or a fatal component error.
func (a *App) Run(ctx context.Context) error {
	a.logger.Infof("🚀 Starting notionbot %s, ops on %s", version.Version, a.cfg.ListenPort)
	a.logger.Info(version.String())

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer a.closeRedis()

	g, gctx := errgroup.WithContext(ctx)

	if a.schemaReloader != nil {
		if err := a.schemaReloader.Start(gctx); err != nil {
			return fmt.Errorf("failed to start schema reloader: %w", err)
		}
		defer a.schemaReloader.Stop()
		a.logger.Info("schema reloader started", logger.String("file", a.cfg.SchemaFile))
	}

	a.reaper.Start(gctx)
	defer a.reaper.Stop()
	a.logger.Info("binding reaper started",
		logger.Duration("interval", a.cfg.ReapInterval),
		logger.Duration("max_age", a.cfg.BindingTTL))

	if err := a.gateway.Open(gctx, a.bot); err != nil {
		return err
	}
	defer a.closeGateway()

	g.Go(func() error {
		if err := a.server.Start(); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("⏳ Shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		if err := a.server.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("failed to stop server: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	a.logger.Info("✅ notionbot stopped cleanly")
	return nil
}

// Register connects once, registers the slash commands and disconnects.
func (a *App) Register(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := a.gateway.Open(ctx, a.bot); err != nil {
		return err
	}
	defer a.closeGateway()

	select {
	case <-a.gateway.Registered():
		return a.gateway.RegisterErr()
	case <-ctx.Done():
		return fmt.Errorf("gateway never became ready: %w", ctx.Err())
	}
}

func (a *App) closeRedis() {
	if a.redisClient == nil {
		return
	}
	if err := a.redisClient.Close(); err != nil {
		a.logger.Warnf("failed to close redis: %v", err)
		return
	}
	a.logger.Info("✅ Redis closed cleanly")
}

func (a *App) closeGateway() {
	if err := a.gateway.Close(); err != nil {
		a.logger.Warn("failed to close discord gateway", logger.Error(err))
		return
	}
	a.logger.Info("✅ Discord gateway closed")
}
