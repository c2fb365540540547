package notion

import (
	"strings"
	"time"

	"github.com/jomei/notionapi"

	"github.com/MrSnakeDoc/notionbot/internal/domain"
)

// MapEvent converts an events-database page to an EventRecord.
func MapEvent(page notionapi.Page, schema EventsSchema) domain.EventRecord {
	title := titleText(page.Properties, schema.TitleProperty)
	if title == "" {
		title = domain.PlaceholderEventTitle
	}

	date := dateText(page.Properties, schema.DateProperty)
	if date == "" {
		date = domain.PlaceholderEventDate
	}

	return domain.EventRecord{Title: title, Date: date}
}

// MapDoc converts a docs-database page to a DisplayRecord.
func MapDoc(page notionapi.Page, schema DocsSchema) domain.DisplayRecord {
	title := titleText(page.Properties, schema.TitleProperty)
	if title == "" {
		title = domain.PlaceholderDocTitle
	}

	url := strings.TrimSpace(page.URL)
	if url == "" {
		url = domain.PlaceholderDocURL
	}

	return domain.DisplayRecord{Title: title, URL: url}
}

// titleText returns the first rich-text segment of a title property, or "".
func titleText(props notionapi.Properties, name string) string {
	var segments []notionapi.RichText
	switch p := props[name].(type) {
	case *notionapi.TitleProperty:
		if p != nil {
			segments = p.Title
		}
	case notionapi.TitleProperty:
		segments = p.Title
	default:
		return ""
	}

	if len(segments) == 0 {
		return ""
	}
	first := segments[0]
	if first.Text != nil && first.Text.Content != "" {
		return first.Text.Content
	}
	return first.PlainText
}

// dateText returns the start of a date property, or "".
// All-day dates render as YYYY-MM-DD, timed ones in Notion's own layout.
func dateText(props notionapi.Properties, name string) string {
	var obj *notionapi.DateObject
	switch p := props[name].(type) {
	case *notionapi.DateProperty:
		if p != nil {
			obj = p.Date
		}
	case notionapi.DateProperty:
		obj = p.Date
	default:
		return ""
	}

	if obj == nil || obj.Start == nil {
		return ""
	}
	return formatDate(time.Time(*obj.Start))
}

// notionTimeLayout is how the API writes timed date values.
const notionTimeLayout = "2006-01-02T15:04:05.000"

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	// notionapi.Date parses both "2006-01-02" and "...T00:00:00.000Z" to the
	// same UTC midnight instant, so the latter reads as all-day.
	h, m, s := t.Clock()
	if h == 0 && m == 0 && s == 0 && t.Nanosecond() == 0 && t.Location() == time.UTC {
		return t.Format(time.DateOnly)
	}
	// "Z" only when the value was written as Z, "+00:00" otherwise
	if t.Location() == time.UTC {
		return t.Format(notionTimeLayout + "Z07:00")
	}
	return t.Format(notionTimeLayout + "-07:00")
}
