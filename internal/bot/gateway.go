package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"

	"github.com/MrSnakeDoc/notionbot/internal/logger"
)

// Gateway owns the Discord websocket session and routes its events to a Bot.
type Gateway struct {
	dg     *discordgo.Session
	logger logger.Logger

	connected atomic.Bool

	registerOnce sync.Once
	registered   chan struct{}
	registerMu   sync.Mutex
	registerErr  error
}

// NewGateway prepares a session for token. Nothing is dialed until Open.
func NewGateway(token string, log logger.Logger) (*Gateway, error) {
	if token == "" {
		return nil, errors.New("missing discord token")
	}

	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds

	return &Gateway{
		dg:         dg,
		logger:     log,
		registered: make(chan struct{}),
	}, nil
}

// Session exposes the REST surface the Bot needs.
func (g *Gateway) Session() Session {
	return g.dg
}

// Open attaches b to the session and connects. Handlers run on discordgo's
// per-event goroutines and receive ctx.
func (g *Gateway) Open(ctx context.Context, b *Bot) error {
	g.dg.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		g.connected.Store(true)
		g.logger.Info("discord gateway ready",
			logger.String("user", r.User.String()),
			logger.Int("guilds", len(r.Guilds)))

		err := b.RegisterCommands(r.User.ID)
		if err != nil {
			g.logger.Error("failed to register commands, make sure the bot is in the guild",
				logger.Error(err))
		}

		g.registerMu.Lock()
		g.registerErr = err
		g.registerMu.Unlock()
		g.registerOnce.Do(func() { close(g.registered) })
	})

	g.dg.AddHandler(func(_ *discordgo.Session, _ *discordgo.Resumed) {
		g.connected.Store(true)
		g.logger.Info("discord gateway resumed")
	})

	g.dg.AddHandler(func(_ *discordgo.Session, _ *discordgo.Disconnect) {
		g.connected.Store(false)
		g.logger.Warn("discord gateway disconnected")
	})

	g.dg.AddHandler(func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
		b.HandleInteraction(ctx, i)
	})

	if err := g.dg.Open(); err != nil {
		return fmt.Errorf("failed to open discord gateway: %w", err)
	}
	return nil
}

// Close disconnects the session.
func (g *Gateway) Close() error {
	g.connected.Store(false)
	return g.dg.Close()
}

// Connected reports whether the websocket is currently usable.
func (g *Gateway) Connected() bool {
	return g.connected.Load()
}

// Registered is closed after the first command registration attempt.
func (g *Gateway) Registered() <-chan struct{} {
	return g.registered
}

// RegisterErr returns the outcome of the latest registration attempt.
func (g *Gateway) RegisterErr() error {
	g.registerMu.Lock()
	defer g.registerMu.Unlock()
	return g.registerErr
}
