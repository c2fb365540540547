package bot

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
)

// DocsMenuID is the custom id (or custom id prefix) of the docs chooser.
const DocsMenuID = "selectDoc"

const (
	KeyModeMessageInteraction = "message_interaction"
	KeyModeCustomID           = "custom_id"
)

// PromptKeys decides what identifies a chooser prompt, on both sides of the round trip.
type PromptKeys interface {
	// Bind returns the correlation key and the select menu custom id for the chooser answering cmd.
	Bind(cmd *discordgo.Interaction) (key, customID string)
	// Owns reports whether a component custom id belongs to a docs chooser.
	Owns(customID string) bool
	// Extract returns the correlation key a selection event carries.
	Extract(sel *discordgo.Interaction) (string, bool)
}

// ParsePromptKeys maps a configured mode to a strategy.
func ParsePromptKeys(mode string) (PromptKeys, error) {
	switch mode {
	case "", KeyModeMessageInteraction:
		return MessageInteractionKeys{}, nil
	case KeyModeCustomID:
		return CustomIDKeys{}, nil
	default:
		return nil, fmt.Errorf("unknown prompt key mode %q", mode)
	}
}

// MessageInteractionKeys keys a chooser by the id of the command interaction whose reply
// displays it. The selection event presents that id as the prompt message's interaction.
type MessageInteractionKeys struct{}

func (MessageInteractionKeys) Bind(cmd *discordgo.Interaction) (string, string) {
	return cmd.ID, DocsMenuID
}

func (MessageInteractionKeys) Owns(customID string) bool {
	return customID == DocsMenuID
}

func (MessageInteractionKeys) Extract(sel *discordgo.Interaction) (string, bool) {
	if sel.Message == nil || sel.Message.Interaction == nil || sel.Message.Interaction.ID == "" {
		return "", false
	}
	return sel.Message.Interaction.ID, true
}

// CustomIDKeys mints a nonce per chooser and carries it in the menu custom id,
// so correlation does not depend on message metadata.
type CustomIDKeys struct {
	NewNonce func() string // defaults to a random UUID
}

func (k CustomIDKeys) Bind(*discordgo.Interaction) (string, string) {
	nonce := ""
	if k.NewNonce != nil {
		nonce = k.NewNonce()
	} else {
		nonce = uuid.NewString()
	}
	return nonce, DocsMenuID + ":" + nonce
}

func (CustomIDKeys) Owns(customID string) bool {
	return strings.HasPrefix(customID, DocsMenuID+":")
}

func (CustomIDKeys) Extract(sel *discordgo.Interaction) (string, bool) {
	if sel.Type != discordgo.InteractionMessageComponent {
		return "", false
	}
	nonce, ok := strings.CutPrefix(sel.MessageComponentData().CustomID, DocsMenuID+":")
	if !ok || nonce == "" {
		return "", false
	}
	return nonce, true
}
