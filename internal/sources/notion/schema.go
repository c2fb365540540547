package notion

import "fmt"

const (
	DefaultEventsTitleProperty = "Tasks"
	DefaultEventsDateProperty  = "Due"
	DefaultDocsTitleProperty   = "Title"
)

// Schema names the database properties each category reads.
// Database IDs come from the environment; only field layout lives here.
type Schema struct {
	Events EventsSchema `yaml:"events"`
	Docs   DocsSchema   `yaml:"docs"`
}

// EventsSchema describes the events database: a title property and a date property.
type EventsSchema struct {
	TitleProperty string `yaml:"title_property"`
	DateProperty  string `yaml:"date_property"`
}

// DocsSchema describes the docs database: a title property (the URL is the page URL).
type DocsSchema struct {
	TitleProperty string `yaml:"title_property"`
}

// DefaultSchema returns the property layout used when no schema file is configured.
func DefaultSchema() Schema {
	return Schema{
		Events: EventsSchema{
			TitleProperty: DefaultEventsTitleProperty,
			DateProperty:  DefaultEventsDateProperty,
		},
		Docs: DocsSchema{
			TitleProperty: DefaultDocsTitleProperty,
		},
	}
}

// WithDefaults fills every empty property name from DefaultSchema.
func (s Schema) WithDefaults() Schema {
	def := DefaultSchema()
	if s.Events.TitleProperty == "" {
		s.Events.TitleProperty = def.Events.TitleProperty
	}
	if s.Events.DateProperty == "" {
		s.Events.DateProperty = def.Events.DateProperty
	}
	if s.Docs.TitleProperty == "" {
		s.Docs.TitleProperty = def.Docs.TitleProperty
	}
	return s
}

// Validate rejects schemas where one property would be read as two fields.
func (s Schema) Validate() error {
	if s.Events.TitleProperty == s.Events.DateProperty {
		return fmt.Errorf("events title and date properties must differ (both %q)", s.Events.TitleProperty)
	}
	return nil
}
