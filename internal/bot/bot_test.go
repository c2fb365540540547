package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/notionbot/internal/correlator"
	"github.com/MrSnakeDoc/notionbot/internal/domain"
	"github.com/MrSnakeDoc/notionbot/internal/logger"
)

type response struct {
	interactionID string
	resp          *discordgo.InteractionResponse
}

type edit struct {
	interactionID string
	edit          *discordgo.WebhookEdit
}

type followup struct {
	interactionID string
	params        *discordgo.WebhookParams
}

type fakeSession struct {
	mu        sync.Mutex
	commands  []*discordgo.ApplicationCommand
	responses []response
	edits     []edit
	followups []followup
	deletes   []string

	registerErr error
	editErr     error
}

func (f *fakeSession) ApplicationCommandCreate(appID, guildID string, cmd *discordgo.ApplicationCommand, _ ...discordgo.RequestOption) (*discordgo.ApplicationCommand, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	f.commands = append(f.commands, cmd)
	return cmd, nil
}

func (f *fakeSession) InteractionRespond(i *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, response{interactionID: i.ID, resp: resp})
	return nil
}

func (f *fakeSession) InteractionResponseEdit(i *discordgo.Interaction, e *discordgo.WebhookEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return nil, f.editErr
	}
	f.edits = append(f.edits, edit{interactionID: i.ID, edit: e})
	return &discordgo.Message{ID: "reply-" + i.ID}, nil
}

func (f *fakeSession) InteractionResponseDelete(i *discordgo.Interaction, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, i.ID)
	return nil
}

func (f *fakeSession) FollowupMessageCreate(i *discordgo.Interaction, _ bool, p *discordgo.WebhookParams, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.followups = append(f.followups, followup{interactionID: i.ID, params: p})
	return &discordgo.Message{}, nil
}

func (f *fakeSession) lastResponse(t *testing.T) *discordgo.InteractionResponse {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.responses)
	return f.responses[len(f.responses)-1].resp
}

func (f *fakeSession) lastEdit(t *testing.T) *discordgo.WebhookEdit {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.edits)
	return f.edits[len(f.edits)-1].edit
}

type fakeSource struct {
	events []string
	docs   []domain.DisplayRecord
	err    error
	panics bool
}

func (f *fakeSource) FetchEvents(context.Context) ([]string, error) {
	if f.panics {
		panic("source exploded")
	}
	if f.err != nil {
		return nil, &domain.FetchError{Category: domain.CategoryEvents, Err: f.err}
	}
	return f.events, nil
}

func (f *fakeSource) FetchDocs(context.Context) ([]domain.DisplayRecord, error) {
	if f.panics {
		panic("source exploded")
	}
	if f.err != nil {
		return nil, &domain.FetchError{Category: domain.CategoryDocs, Err: f.err}
	}
	return f.docs, nil
}

type fakeUsage struct {
	mu         sync.Mutex
	commands   []string
	selections []domain.DisplayRecord
}

func (f *fakeUsage) RecordCommand(_ context.Context, command string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, command)
	return nil
}

func (f *fakeUsage) RecordSelection(_ context.Context, doc domain.DisplayRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selections = append(f.selections, doc)
	return errors.New("redis down")
}

func commandEvent(id, name string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		ID:     id,
		Type:   discordgo.InteractionApplicationCommand,
		Data:   discordgo.ApplicationCommandInteractionData{Name: name},
		Member: &discordgo.Member{User: &discordgo.User{ID: "user-1"}},
	}}
}

func selectEvent(id, promptInteractionID, customID string, values ...string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		ID:   id,
		Type: discordgo.InteractionMessageComponent,
		Data: discordgo.MessageComponentInteractionData{
			CustomID:      customID,
			ComponentType: discordgo.SelectMenuComponent,
			Values:        values,
		},
		Message: &discordgo.Message{
			ID:          "reply-" + promptInteractionID,
			Interaction: &discordgo.MessageInteraction{ID: promptInteractionID},
		},
		User: &discordgo.User{ID: "user-2"},
	}}
}

func chooserMenu(t *testing.T, e *discordgo.WebhookEdit) discordgo.SelectMenu {
	t.Helper()
	require.NotNil(t, e.Components)
	require.Len(t, *e.Components, 1)
	row, ok := (*e.Components)[0].(discordgo.ActionsRow)
	require.True(t, ok)
	require.Len(t, row.Components, 1)
	menu, ok := row.Components[0].(discordgo.SelectMenu)
	require.True(t, ok)
	return menu
}

type harness struct {
	session  *fakeSession
	source   *fakeSource
	bindings *correlator.Correlator
	usage    *fakeUsage
	bot      *Bot
}

func newHarness(keys PromptKeys) *harness {
	h := &harness{
		session:  &fakeSession{},
		source:   &fakeSource{},
		bindings: correlator.New(correlator.Options{}),
		usage:    &fakeUsage{},
	}
	h.bot = New(h.session, h.source, h.bindings, Options{GuildID: "guild-1", Keys: keys, Usage: h.usage}, logger.Nop())
	return h
}

func TestDocsChooserRoundTrip(t *testing.T) {
	h := newHarness(nil)
	h.source.docs = []domain.DisplayRecord{
		{Title: "Spec", URL: "http://x/1"},
		{Title: "Plan", URL: "http://x/2"},
	}
	ctx := context.Background()

	h.bot.HandleInteraction(ctx, commandEvent("cmd-1", CommandDocs))

	assert.Equal(t, discordgo.InteractionResponseDeferredChannelMessageWithSource, h.session.lastResponse(t).Type)
	e := h.session.lastEdit(t)
	assert.Equal(t, "Select a document from the list:", *e.Content)

	menu := chooserMenu(t, e)
	assert.Equal(t, DocsMenuID, menu.CustomID)
	assert.Equal(t, "Choose a document", menu.Placeholder)
	require.Len(t, menu.Options, 2)
	assert.Equal(t, "Spec", menu.Options[0].Label)
	assert.Equal(t, "0", menu.Options[0].Value)
	assert.Equal(t, "Plan", menu.Options[1].Label)
	assert.Equal(t, "1", menu.Options[1].Value)
	assert.Equal(t, 1, h.bindings.Len())

	h.bot.HandleInteraction(ctx, selectEvent("sel-1", "cmd-1", DocsMenuID, "1"))

	resp := h.session.lastResponse(t)
	assert.Equal(t, discordgo.InteractionResponseChannelMessageWithSource, resp.Type)
	assert.Equal(t, "You selected: [Plan](http://x/2)", resp.Data.Content)
	assert.Equal(t, discordgo.MessageFlagsEphemeral, resp.Data.Flags)
	assert.Equal(t, 0, h.bindings.Len())

	assert.Equal(t, []string{CommandDocs}, h.usage.commands)
	assert.Equal(t, []domain.DisplayRecord{{Title: "Plan", URL: "http://x/2"}}, h.usage.selections)

	// The chooser answers once.
	h.bot.HandleInteraction(ctx, selectEvent("sel-2", "cmd-1", DocsMenuID, "0"))
	assert.Equal(t, msgInvalidSelection, h.session.lastResponse(t).Data.Content)
}

func TestDocsEmptyCreatesNoBinding(t *testing.T) {
	h := newHarness(nil)

	h.bot.HandleInteraction(context.Background(), commandEvent("cmd-1", CommandDocs))

	e := h.session.lastEdit(t)
	assert.Equal(t, "No docs available.", *e.Content)
	assert.Nil(t, e.Components)
	assert.Equal(t, 0, h.bindings.Len())
}

func TestDocsChooserCapsOptions(t *testing.T) {
	h := newHarness(nil)
	for i := 0; i < 30; i++ {
		h.source.docs = append(h.source.docs, domain.DisplayRecord{Title: fmt.Sprintf("Doc %d", i), URL: fmt.Sprintf("http://x/%d", i)})
	}
	ctx := context.Background()

	h.bot.HandleInteraction(ctx, commandEvent("cmd-1", CommandDocs))

	e := h.session.lastEdit(t)
	assert.Contains(t, *e.Content, "Showing the first 25 of 30 documents.")
	assert.Len(t, chooserMenu(t, e).Options, MaxSelectOptions)

	// Index 25 was never offered.
	h.bot.HandleInteraction(ctx, selectEvent("sel-1", "cmd-1", DocsMenuID, "25"))
	assert.Equal(t, msgInvalidSelection, h.session.lastResponse(t).Data.Content)

	h.bot.HandleInteraction(ctx, selectEvent("sel-2", "cmd-1", DocsMenuID, "24"))
	assert.Equal(t, "You selected: [Doc 24](http://x/24)", h.session.lastResponse(t).Data.Content)
}

func TestDocsEditFailureCreatesNoBinding(t *testing.T) {
	h := newHarness(nil)
	h.source.docs = []domain.DisplayRecord{{Title: "Spec", URL: "http://x/1"}}
	h.session.editErr = errors.New("unknown webhook")

	h.bot.HandleInteraction(context.Background(), commandEvent("cmd-1", CommandDocs))

	assert.Equal(t, 0, h.bindings.Len())
}

func TestEventsRendersSourceOrder(t *testing.T) {
	h := newHarness(nil)
	h.source.events = []string{"C - 2024-05-03", "B - 2024-05-02", "A - 2024-05-01"}

	h.bot.HandleInteraction(context.Background(), commandEvent("cmd-1", CommandEvents))

	want := "Upcoming events:\nC - 2024-05-03\nB - 2024-05-02\nA - 2024-05-01"
	assert.Equal(t, want, *h.session.lastEdit(t).Content)
	assert.Equal(t, 0, h.bindings.Len())
}

func TestEventsEmpty(t *testing.T) {
	h := newHarness(nil)

	h.bot.HandleInteraction(context.Background(), commandEvent("cmd-1", CommandEvents))

	assert.Equal(t, "No upcoming events found in Notion.", *h.session.lastEdit(t).Content)
}

func TestFetchErrorRepliesPrivately(t *testing.T) {
	tests := []struct {
		command string
		want    string
	}{
		{command: CommandEvents, want: "There was an error fetching events from Notion: rate limited"},
		{command: CommandDocs, want: "There was an error fetching docs from Notion: rate limited"},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			h := newHarness(nil)
			h.source.err = errors.New("rate limited")

			h.bot.HandleInteraction(context.Background(), commandEvent("cmd-1", tt.command))

			assert.Equal(t, []string{"cmd-1"}, h.session.deletes)
			require.Len(t, h.session.followups, 1)
			assert.Equal(t, tt.want, h.session.followups[0].params.Content)
			assert.Equal(t, discordgo.MessageFlagsEphemeral, h.session.followups[0].params.Flags)
			assert.Empty(t, h.session.edits)
			assert.Equal(t, 0, h.bindings.Len())
		})
	}
}

func TestSelectionInvalidInputs(t *testing.T) {
	tests := []struct {
		name  string
		event *discordgo.InteractionCreate
	}{
		{name: "never bound", event: selectEvent("sel-1", "cmd-unknown", DocsMenuID, "0")},
		{name: "non numeric value", event: selectEvent("sel-1", "cmd-1", DocsMenuID, "zero")},
		{name: "negative value", event: selectEvent("sel-1", "cmd-1", DocsMenuID, "-1")},
		{name: "past the end", event: selectEvent("sel-1", "cmd-1", DocsMenuID, "2")},
		{name: "no value", event: selectEvent("sel-1", "cmd-1", DocsMenuID)},
		{
			name: "no prompt interaction",
			event: &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
				ID:      "sel-1",
				Type:    discordgo.InteractionMessageComponent,
				Data:    discordgo.MessageComponentInteractionData{CustomID: DocsMenuID, Values: []string{"0"}},
				Message: &discordgo.Message{ID: "reply-cmd-1"},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(nil)
			require.NoError(t, h.bindings.CreateBinding("cmd-1", []domain.DisplayRecord{
				{Title: "Spec", URL: "http://x/1"},
				{Title: "Plan", URL: "http://x/2"},
			}))

			h.bot.HandleInteraction(context.Background(), tt.event)

			resp := h.session.lastResponse(t)
			assert.Equal(t, msgInvalidSelection, resp.Data.Content)
			assert.Equal(t, discordgo.MessageFlagsEphemeral, resp.Data.Flags)
			assert.Empty(t, h.usage.selections)
		})
	}
}

func TestSelectionOnForeignComponentIsIgnored(t *testing.T) {
	h := newHarness(nil)

	h.bot.HandleInteraction(context.Background(), selectEvent("sel-1", "cmd-1", "somebodyElsesMenu", "0"))

	assert.Empty(t, h.session.responses)
}

func TestConcurrentUsersDoNotCrossTalk(t *testing.T) {
	h := newHarness(nil)
	h.source.docs = []domain.DisplayRecord{
		{Title: "Spec", URL: "http://x/1"},
		{Title: "Plan", URL: "http://x/2"},
	}
	ctx := context.Background()

	var wg sync.WaitGroup
	for u := 0; u < 20; u++ {
		wg.Add(1)
		go func(u int) {
			defer wg.Done()
			h.bot.HandleInteraction(ctx, commandEvent(fmt.Sprintf("cmd-%d", u), CommandDocs))
		}(u)
	}
	wg.Wait()
	require.Equal(t, 20, h.bindings.Len())

	for u := 0; u < 20; u++ {
		wg.Add(1)
		go func(u int) {
			defer wg.Done()
			h.bot.HandleInteraction(ctx, selectEvent(fmt.Sprintf("sel-%d", u), fmt.Sprintf("cmd-%d", u), DocsMenuID, fmt.Sprint(u%2)))
		}(u)
	}
	wg.Wait()

	assert.Equal(t, 0, h.bindings.Len())
	h.session.mu.Lock()
	defer h.session.mu.Unlock()
	selections := 0
	for _, r := range h.session.responses {
		if r.resp.Data != nil {
			selections++
			assert.Contains(t, r.resp.Data.Content, "You selected: ")
		}
	}
	assert.Equal(t, 20, selections)
}

func TestCustomIDKeysRoundTrip(t *testing.T) {
	h := newHarness(CustomIDKeys{NewNonce: func() string { return "nonce-1" }})
	h.source.docs = []domain.DisplayRecord{{Title: "Spec", URL: "http://x/1"}}
	ctx := context.Background()

	h.bot.HandleInteraction(ctx, commandEvent("cmd-1", CommandDocs))

	menu := chooserMenu(t, h.session.lastEdit(t))
	assert.Equal(t, "selectDoc:nonce-1", menu.CustomID)

	// The selection's message interaction id is irrelevant in this mode.
	h.bot.HandleInteraction(ctx, selectEvent("sel-1", "something-else", menu.CustomID, "0"))
	assert.Equal(t, "You selected: [Spec](http://x/1)", h.session.lastResponse(t).Data.Content)
}

func TestHandlerRecoversFromPanics(t *testing.T) {
	h := newHarness(nil)
	h.source.panics = true

	assert.NotPanics(t, func() {
		h.bot.HandleInteraction(context.Background(), commandEvent("cmd-1", CommandDocs))
	})
}

func TestUnknownCommandIsIgnored(t *testing.T) {
	h := newHarness(nil)

	h.bot.HandleInteraction(context.Background(), commandEvent("cmd-1", "weather"))

	assert.Empty(t, h.session.responses)
	assert.Empty(t, h.usage.commands)
}

func TestRegisterCommands(t *testing.T) {
	h := newHarness(nil)

	require.NoError(t, h.bot.RegisterCommands("app-1"))
	require.Len(t, h.session.commands, 2)
	assert.Equal(t, "events", h.session.commands[0].Name)
	assert.Equal(t, "Fetch and display a list of upcoming events from Notion", h.session.commands[0].Description)
	assert.Equal(t, "docs", h.session.commands[1].Name)
	assert.Equal(t, "Fetch and display a list of documents from Notion", h.session.commands[1].Description)

	h.session.registerErr = errors.New("Unknown Guild")
	assert.Error(t, h.bot.RegisterCommands("app-1"))
}
