package notion

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/jomei/notionapi"

	"github.com/MrSnakeDoc/notionbot/internal/domain"
	"github.com/MrSnakeDoc/notionbot/internal/logger"
)

// DefaultFetchTimeout bounds a single database query.
const DefaultFetchTimeout = 10 * time.Second

// Querier is the slice of the Notion database API the source needs.
// *notionapi.Client's Database service satisfies it.
type Querier interface {
	Query(ctx context.Context, id notionapi.DatabaseID, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
}

// NewQuerier builds a Notion API client authenticated with token.
func NewQuerier(token string) Querier {
	return notionapi.NewClient(notionapi.Token(token)).Database
}

// Options configures a Source.
type Options struct {
	EventsDatabaseID string
	DocsDatabaseID   string
	Schema           Schema
	FetchTimeout     time.Duration // default 10s
}

// Source fetches and normalizes records by category.
// It holds no state besides the property schema, which can be swapped at runtime.
type Source struct {
	querier  Querier
	eventsDB notionapi.DatabaseID
	docsDB   notionapi.DatabaseID
	timeout  time.Duration
	schema   atomic.Pointer[Schema]
	logger   logger.Logger
}

// NewSource creates a record source.
func NewSource(q Querier, opts Options, log logger.Logger) *Source {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}

	s := &Source{
		querier:  q,
		eventsDB: notionapi.DatabaseID(opts.EventsDatabaseID),
		docsDB:   notionapi.DatabaseID(opts.DocsDatabaseID),
		timeout:  opts.FetchTimeout,
		logger:   log,
	}
	s.SetSchema(opts.Schema)
	return s
}

// SetSchema replaces the property schema used by subsequent fetches.
func (s *Source) SetSchema(schema Schema) {
	schema = schema.WithDefaults()
	s.schema.Store(&schema)
}

// Schema returns the schema currently in use.
func (s *Source) Schema() Schema {
	return *s.schema.Load()
}

// FetchEvents returns "<title> - <date>" lines, most recent query result first:
// the query's natural order is reversed.
func (s *Source) FetchEvents(ctx context.Context) ([]string, error) {
	pages, err := s.query(ctx, domain.CategoryEvents, s.eventsDB)
	if err != nil {
		return nil, err
	}

	schema := s.Schema().Events
	lines := make([]string, len(pages))
	for i, page := range pages {
		lines[len(pages)-1-i] = MapEvent(page, schema).Line()
	}
	return lines, nil
}

// FetchDocs returns the docs database in natural query order.
func (s *Source) FetchDocs(ctx context.Context) ([]domain.DisplayRecord, error) {
	pages, err := s.query(ctx, domain.CategoryDocs, s.docsDB)
	if err != nil {
		return nil, err
	}

	schema := s.Schema().Docs
	docs := make([]domain.DisplayRecord, 0, len(pages))
	for _, page := range pages {
		docs = append(docs, MapDoc(page, schema))
	}
	return docs, nil
}

// query runs exactly one database query; failures are wrapped in a FetchError.
func (s *Source) query(ctx context.Context, category domain.Category, id notionapi.DatabaseID) ([]notionapi.Page, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	resp, err := s.querier.Query(ctx, id, &notionapi.DatabaseQueryRequest{})
	elapsed := time.Since(start)
	if err != nil {
		s.logger.Error("notion query failed",
			logger.String("category", string(category)),
			logger.Duration("duration", elapsed),
			logger.Error(err))
		return nil, &domain.FetchError{Category: category, Err: err}
	}

	var pages []notionapi.Page
	if resp != nil {
		pages = resp.Results
	}

	s.logger.Info("fetched "+string(category)+" from notion",
		logger.String("category", string(category)),
		logger.Int("count", len(pages)),
		logger.Duration("duration", elapsed))

	return pages, nil
}
