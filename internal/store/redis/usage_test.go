package redis

import (
	"context"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/notionbot/internal/domain"
)

// newTestStore connects to NOTIONBOT_TEST_REDIS_ADDR or skips.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	addr := os.Getenv("NOTIONBOT_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("NOTIONBOT_TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	ctx := context.Background()
	require.NoError(t, client.Ping(ctx).Err())

	clear := func() { client.Del(ctx, KeyCommandUsage, KeyDocUsage, KeyDocTitles) }
	clear()
	t.Cleanup(func() {
		clear()
		_ = client.Close()
	})

	return NewStore(client)
}

func TestUsageStore_RecordAndRead(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordCommand(ctx, "docs"))
	require.NoError(t, s.RecordCommand(ctx, "docs"))
	require.NoError(t, s.RecordCommand(ctx, "events"))

	spec := domain.DisplayRecord{Title: "Spec", URL: "http://x/1"}
	plan := domain.DisplayRecord{Title: "Plan", URL: "http://x/2"}
	require.NoError(t, s.RecordSelection(ctx, plan))
	require.NoError(t, s.RecordSelection(ctx, spec))
	require.NoError(t, s.RecordSelection(ctx, plan))

	stats, err := s.GetUsageStats(ctx, 0)
	require.NoError(t, err)

	assert.Equal(t, map[string]int64{"docs": 2, "events": 1}, stats.Commands)
	assert.Equal(t, []DocUsage{
		{Title: "Plan", URL: "http://x/2", Count: 2},
		{Title: "Spec", URL: "http://x/1", Count: 1},
	}, stats.TopDocs)
}

func TestUsageStore_TopN(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordSelection(ctx, domain.DisplayRecord{Title: "A", URL: "a"}))
	require.NoError(t, s.RecordSelection(ctx, domain.DisplayRecord{Title: "B", URL: "b"}))
	require.NoError(t, s.RecordSelection(ctx, domain.DisplayRecord{Title: "B", URL: "b"}))

	stats, err := s.GetUsageStats(ctx, 1)
	require.NoError(t, err)
	require.Len(t, stats.TopDocs, 1)
	assert.Equal(t, "b", stats.TopDocs[0].URL)
}

func TestUsageStore_Empty(t *testing.T) {
	s := newTestStore(t)

	stats, err := s.GetUsageStats(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, stats.Commands)
	assert.Empty(t, stats.TopDocs)
	assert.NoError(t, s.Ping(context.Background()))
}
