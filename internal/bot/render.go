package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"github.com/MrSnakeDoc/notionbot/internal/domain"
)

// Discord limits.
const (
	MaxMessageLength = 2000
	MaxSelectOptions = 25
	MaxOptionLabel   = 100
)

const (
	msgNoEvents         = "No upcoming events found in Notion."
	msgNoDocs           = "No docs available."
	msgChooseDoc        = "Select a document from the list:"
	msgDocsPlaceholder  = "Choose a document"
	msgInvalidSelection = "This selection is no longer valid. Run /docs again to pick a document."
	msgSelectionFailed  = "There was an error fetching the selected doc."
)

// EventsMessage renders the events reply, cut on a line boundary to fit one message.
func EventsMessage(lines []string) string {
	const header = "Upcoming events:"
	const more = "\n…"

	var b strings.Builder
	b.WriteString(header)
	for i, line := range lines {
		next := "\n" + line
		budget := MaxMessageLength
		if i < len(lines)-1 {
			budget -= utf8.RuneCountInString(more)
		}
		if utf8.RuneCountInString(b.String())+utf8.RuneCountInString(next) > budget {
			b.WriteString(more)
			break
		}
		b.WriteString(next)
	}
	return b.String()
}

// DocsChooser renders the chooser content and its select menu.
// candidates must already be capped to MaxSelectOptions; total is the fetched count.
func DocsChooser(candidates []domain.DisplayRecord, total int, customID string) (string, []discordgo.MessageComponent) {
	options := make([]discordgo.SelectMenuOption, len(candidates))
	for i, doc := range candidates {
		options[i] = discordgo.SelectMenuOption{
			Label: truncateRunes(doc.Title, MaxOptionLabel),
			Value: strconv.Itoa(i),
		}
	}

	content := msgChooseDoc
	if total > len(candidates) {
		content = fmt.Sprintf("%s\nShowing the first %d of %d documents.", msgChooseDoc, len(candidates), total)
	}

	return content, []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.SelectMenu{
					MenuType:    discordgo.StringSelectMenu,
					CustomID:    customID,
					Placeholder: msgDocsPlaceholder,
					Options:     options,
				},
			},
		},
	}
}

// SelectionMessage renders the reply to a resolved pick.
func SelectionMessage(doc domain.DisplayRecord) string {
	return "You selected: " + doc.Markdown()
}

// FetchErrorMessage renders a category-specific fetch failure.
func FetchErrorMessage(category domain.Category, err error) string {
	cause := err
	var fetchErr *domain.FetchError
	if errors.As(err, &fetchErr) && fetchErr.Err != nil {
		cause = fetchErr.Err
	}
	return truncateRunes(
		fmt.Sprintf("There was an error fetching %s from Notion: %v", category, cause),
		MaxMessageLength,
	)
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-1]) + "…"
}
