package bot

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strconv"

	"github.com/bwmarrin/discordgo"

	"github.com/MrSnakeDoc/notionbot/internal/domain"
	"github.com/MrSnakeDoc/notionbot/internal/logger"
)

// Session is the part of the Discord API the bot calls. *discordgo.Session satisfies it.
type Session interface {
	ApplicationCommandCreate(appID string, guildID string, cmd *discordgo.ApplicationCommand, options ...discordgo.RequestOption) (*discordgo.ApplicationCommand, error)
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	InteractionResponseDelete(interaction *discordgo.Interaction, options ...discordgo.RequestOption) error
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// RecordSource fetches the two record categories.
type RecordSource interface {
	FetchEvents(ctx context.Context) ([]string, error)
	FetchDocs(ctx context.Context) ([]domain.DisplayRecord, error)
}

// Bindings is the correlator surface the bot uses.
type Bindings interface {
	CreateBinding(key string, candidates []domain.DisplayRecord) error
	ResolveSelection(key string, index int) (domain.DisplayRecord, error)
}

// UsageRecorder counts commands and picked documents. Failures are logged, never surfaced.
type UsageRecorder interface {
	RecordCommand(ctx context.Context, command string) error
	RecordSelection(ctx context.Context, doc domain.DisplayRecord) error
}

const (
	CommandEvents = "events"
	CommandDocs   = "docs"
)

// Commands are registered in the configured guild on every gateway ready.
var Commands = []*discordgo.ApplicationCommand{
	{
		Name:        CommandEvents,
		Description: "Fetch and display a list of upcoming events from Notion",
	},
	{
		Name:        CommandDocs,
		Description: "Fetch and display a list of documents from Notion",
	},
}

// Options configures a Bot.
type Options struct {
	GuildID string
	Keys    PromptKeys    // defaults to MessageInteractionKeys
	Usage   UsageRecorder // optional
}

// Bot turns Discord interactions into record fetches and chooser round trips.
type Bot struct {
	session  Session
	source   RecordSource
	bindings Bindings
	keys     PromptKeys
	usage    UsageRecorder
	guildID  string
	logger   logger.Logger
}

// New creates a bot.
func New(session Session, source RecordSource, bindings Bindings, opts Options, log logger.Logger) *Bot {
	if opts.Keys == nil {
		opts.Keys = MessageInteractionKeys{}
	}
	return &Bot{
		session:  session,
		source:   source,
		bindings: bindings,
		keys:     opts.Keys,
		usage:    opts.Usage,
		guildID:  opts.GuildID,
		logger:   log,
	}
}

// RegisterCommands creates (or overwrites) the bot's guild commands.
func (b *Bot) RegisterCommands(appID string) error {
	for _, cmd := range Commands {
		if _, err := b.session.ApplicationCommandCreate(appID, b.guildID, cmd); err != nil {
			return fmt.Errorf("failed to register /%s in guild %s: %w", cmd.Name, b.guildID, err)
		}
	}
	b.logger.Info("commands registered",
		logger.String("guild_id", b.guildID),
		logger.Int("count", len(Commands)))
	return nil
}

// HandleInteraction is the error boundary for one inbound event: nothing it does
// may crash the process or touch another user's binding.
func (b *Bot) HandleInteraction(ctx context.Context, i *discordgo.InteractionCreate) {
	if i == nil || i.Interaction == nil {
		return
	}

	log := b.logger.With(
		logger.String("interaction_id", i.ID),
		logger.String("user_id", userID(i.Interaction)))

	defer func() {
		if r := recover(); r != nil {
			log.Error("interaction handler panicked",
				logger.String("panic", fmt.Sprint(r)),
				logger.String("stack", string(debug.Stack())))
		}
	}()

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		b.handleCommand(ctx, i.Interaction, log)
	case discordgo.InteractionMessageComponent:
		b.handleSelection(ctx, i.Interaction, log)
	default:
		log.Debug("ignoring interaction", logger.Int("type", int(i.Type)))
	}
}

func (b *Bot) handleCommand(ctx context.Context, i *discordgo.Interaction, log logger.Logger) {
	name := i.ApplicationCommandData().Name
	if name != CommandEvents && name != CommandDocs {
		log.Debug("ignoring unknown command", logger.String("command", name))
		return
	}
	log = log.With(logger.String("command", name))
	log.Debug("command received")

	err := b.session.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		log.Error("failed to defer reply", logger.Error(err))
		return
	}

	if b.usage != nil {
		if err := b.usage.RecordCommand(ctx, name); err != nil {
			log.Warn("failed to record command usage", logger.Error(err))
		}
	}

	switch name {
	case CommandEvents:
		b.handleEvents(ctx, i, log)
	case CommandDocs:
		b.handleDocs(ctx, i, log)
	}
}

func (b *Bot) handleEvents(ctx context.Context, i *discordgo.Interaction, log logger.Logger) {
	lines, err := b.source.FetchEvents(ctx)
	if err != nil {
		log.Error("failed to fetch events", logger.Error(err))
		b.replyFetchError(i, domain.CategoryEvents, err, log)
		return
	}

	content := msgNoEvents
	if len(lines) > 0 {
		content = EventsMessage(lines)
	}
	b.editReply(i, &discordgo.WebhookEdit{Content: &content}, log)
}

func (b *Bot) handleDocs(ctx context.Context, i *discordgo.Interaction, log logger.Logger) {
	docs, err := b.source.FetchDocs(ctx)
	if err != nil {
		log.Error("failed to fetch docs", logger.Error(err))
		b.replyFetchError(i, domain.CategoryDocs, err, log)
		return
	}

	if len(docs) == 0 {
		content := msgNoDocs
		b.editReply(i, &discordgo.WebhookEdit{Content: &content}, log)
		return
	}

	candidates := docs
	if len(candidates) > MaxSelectOptions {
		candidates = candidates[:MaxSelectOptions]
	}

	key, customID := b.keys.Bind(i)
	content, components := DocsChooser(candidates, len(docs), customID)
	if !b.editReply(i, &discordgo.WebhookEdit{Content: &content, Components: &components}, log) {
		return
	}

	if err := b.bindings.CreateBinding(key, candidates); err != nil {
		log.Error("failed to bind chooser",
			logger.String("binding_key", key),
			logger.Error(err))
		return
	}
	log.Debug("chooser bound",
		logger.String("binding_key", key),
		logger.Int("candidates", len(candidates)))
}

func (b *Bot) handleSelection(ctx context.Context, i *discordgo.Interaction, log logger.Logger) {
	data := i.MessageComponentData()
	if !b.keys.Owns(data.CustomID) {
		log.Debug("ignoring component", logger.String("custom_id", data.CustomID))
		return
	}

	key, ok := b.keys.Extract(i)
	if !ok {
		log.Info("selection without correlation key")
		b.respondEphemeral(i, msgInvalidSelection, log)
		return
	}
	log = log.With(logger.String("binding_key", key))

	index, err := selectedIndex(data.Values)
	if err != nil {
		log.Info("malformed selection", logger.Error(err))
		b.respondEphemeral(i, msgInvalidSelection, log)
		return
	}

	doc, err := b.bindings.ResolveSelection(key, index)
	switch {
	case err == nil:
	case domain.IsInvalidSelection(err):
		log.Info("selection no longer valid", logger.Error(err))
		b.respondEphemeral(i, msgInvalidSelection, log)
		return
	default:
		log.Error("failed to resolve selection", logger.Error(err))
		b.respondEphemeral(i, msgSelectionFailed, log)
		return
	}

	b.respondEphemeral(i, SelectionMessage(doc), log)

	if b.usage != nil {
		if err := b.usage.RecordSelection(ctx, doc); err != nil {
			log.Warn("failed to record selection usage", logger.Error(err))
		}
	}
}

// replyFetchError swaps the public deferred reply for a message only the requester sees.
func (b *Bot) replyFetchError(i *discordgo.Interaction, category domain.Category, err error, log logger.Logger) {
	content := FetchErrorMessage(category, err)

	if delErr := b.session.InteractionResponseDelete(i); delErr != nil {
		log.Warn("failed to delete deferred reply", logger.Error(delErr))
	}

	_, ferr := b.session.FollowupMessageCreate(i, true, &discordgo.WebhookParams{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
	if ferr != nil {
		log.Error("failed to send fetch error", logger.Error(ferr))
	}
}

func (b *Bot) editReply(i *discordgo.Interaction, edit *discordgo.WebhookEdit, log logger.Logger) bool {
	if _, err := b.session.InteractionResponseEdit(i, edit); err != nil {
		log.Error("failed to edit reply", logger.Error(err))
		return false
	}
	return true
}

func (b *Bot) respondEphemeral(i *discordgo.Interaction, content string, log logger.Logger) {
	err := b.session.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Error("failed to reply", logger.Error(err))
	}
}

var errNoValue = errors.New("selection carries no value")

// selectedIndex parses the positional index carried by a select menu value.
func selectedIndex(values []string) (int, error) {
	if len(values) == 0 {
		return 0, errNoValue
	}
	index, err := strconv.Atoi(values[0])
	if err != nil {
		return 0, fmt.Errorf("invalid selection value %q: %w", values[0], err)
	}
	return index, nil
}

func userID(i *discordgo.Interaction) string {
	switch {
	case i.Member != nil && i.Member.User != nil:
		return i.Member.User.ID
	case i.User != nil:
		return i.User.ID
	default:
		return ""
	}
}
