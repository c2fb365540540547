package domain

import "fmt"

const (
	// PlaceholderEventTitle replaces a missing event title.
	PlaceholderEventTitle = "No Title"
	// PlaceholderEventDate replaces a missing due date.
	PlaceholderEventDate = "No Due Date"
	// PlaceholderDocTitle replaces a missing document title.
	PlaceholderDocTitle = "Untitled"
	// PlaceholderDocURL replaces a missing page URL.
	PlaceholderDocURL = "#"
)

// Category names a logical collection of records in the document database.
type Category string

const (
	CategoryEvents Category = "events"
	CategoryDocs   Category = "docs"
)

// DisplayRecord is a selectable record shown in a chooser prompt.
//
// It is a value type: once fetched it is never modified, and the
// correlator hands out copies.
type DisplayRecord struct {
	// Title is the label presented to the user.
	// Example: "Onboarding guide"
	Title string

	// URL is the link to the page in the document database.
	// Example: https://www.notion.so/Onboarding-0f3e...
	URL string
}

// Markdown renders the record as a chat link.
func (r DisplayRecord) Markdown() string {
	return fmt.Sprintf("[%s](%s)", r.Title, r.URL)
}

// EventRecord is a non-selectable record, flattened to one line for display.
type EventRecord struct {
	Title string
	Date  string
}

// Line renders the event as "<title> - <date>".
func (e EventRecord) Line() string {
	return e.Title + " - " + e.Date
}
