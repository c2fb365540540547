package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/notionbot/internal/domain"
)

// DefaultTopDocs is how many documents GetUsageStats reports
const DefaultTopDocs = 10

// Store handles Redis operations for usage statistics
type Store struct {
	client redis.UniversalClient
}

// NewStore creates a new Redis store
func NewStore(client redis.UniversalClient) *Store {
	return &Store{
		client: client,
	}
}

// DocUsage is one picked document and how often it was picked
type DocUsage struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Count int64  `json:"count"`
}

// UsageStats is the usage snapshot exposed on /infra
type UsageStats struct {
	Commands map[string]int64 `json:"commands"`
	TopDocs  []DocUsage       `json:"top_docs"`
}

// RecordCommand increments the invocation counter for a slash command
func (s *Store) RecordCommand(ctx context.Context, command string) error {
	if err := s.client.HIncrBy(ctx, KeyCommandUsage, command, 1).Err(); err != nil {
		return fmt.Errorf("failed to increment command usage: %w", err)
	}
	return nil
}

// RecordSelection increments the pick counter for a document and remembers its title
func (s *Store) RecordSelection(ctx context.Context, doc domain.DisplayRecord) error {
	pipe := s.client.TxPipeline()
	pipe.ZIncrBy(ctx, KeyDocUsage, 1, doc.URL)
	pipe.HSet(ctx, KeyDocTitles, doc.URL, doc.Title)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record doc selection: %w", err)
	}
	return nil
}

// GetUsageStats retrieves command counters and the top picked documents
func (s *Store) GetUsageStats(ctx context.Context, topN int) (*UsageStats, error) {
	if topN <= 0 {
		topN = DefaultTopDocs
	}

	commands, err := s.client.HGetAll(ctx, KeyCommandUsage).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get command usage: %w", err)
	}

	stats := &UsageStats{
		Commands: make(map[string]int64, len(commands)),
		TopDocs:  []DocUsage{},
	}
	for name, raw := range commands {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid counter for command %s: %w", name, err)
		}
		stats.Commands[name] = n
	}

	top, err := s.client.ZRevRangeWithScores(ctx, KeyDocUsage, 0, int64(topN-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get doc usage: %w", err)
	}
	if len(top) == 0 {
		return stats, nil
	}

	urls := make([]string, len(top))
	for i, z := range top {
		urls[i], _ = z.Member.(string)
	}

	titles, err := s.client.HMGet(ctx, KeyDocTitles, urls...).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to get doc titles: %w", err)
	}

	for i, z := range top {
		usage := DocUsage{URL: urls[i], Count: int64(z.Score)}
		if i < len(titles) {
			usage.Title, _ = titles[i].(string)
		}
		stats.TopDocs = append(stats.TopDocs, usage)
	}

	return stats, nil
}

// Ping reports whether Redis answers
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
