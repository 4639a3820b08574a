package memory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/guillermoBallester/causeway/internal/core/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "memory.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_AddAndRecent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Add(ctx, port.Note{
		Category: "query_patterns",
		Content:  "Query executed successfully in 12ms: SELECT * FROM orders LIMIT 1000",
		Metadata: map[string]string{"duration_ms": "12"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	notes, err := store.Recent(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "system", notes[0].UserID)
	assert.Equal(t, "query_patterns", notes[0].Category)
	assert.Equal(t, "12", notes[0].Metadata["duration_ms"])
	assert.NotEmpty(t, notes[0].CreatedAt)
}

func TestStore_RecentFiltersByCategory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Add(ctx, port.Note{Category: "query_patterns", Content: "fast select on orders"})
	require.NoError(t, err)
	_, err = store.Add(ctx, port.Note{Category: "error_solutions", Content: "column orders.total does not exist"})
	require.NoError(t, err)

	notes, err := store.Recent(ctx, "error_solutions", 10)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "error_solutions", notes[0].Category)
}

func TestStore_RecentNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Add(ctx, port.Note{Category: "schema_info", Content: "first"})
	require.NoError(t, err)
	_, err = store.Add(ctx, port.Note{Category: "schema_info", Content: "second"})
	require.NoError(t, err)

	notes, err := store.Recent(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "second", notes[0].Content)
}

func TestStore_Search(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Add(ctx, port.Note{Category: "performance_insights", Content: "Slow query detected on orders join customers"})
	require.NoError(t, err)
	_, err = store.Add(ctx, port.Note{Category: "schema_info", Content: "events table is partitioned by month"})
	require.NoError(t, err)

	matches, err := store.Search(ctx, "orders", port.NoteSearchOptions{})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Contains(t, matches[0].Content, "orders")
}

func TestStore_SearchCategoryFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Add(ctx, port.Note{Category: "query_patterns", Content: "select from orders"})
	require.NoError(t, err)
	_, err = store.Add(ctx, port.Note{Category: "error_solutions", Content: "orders query failed"})
	require.NoError(t, err)

	matches, err := store.Search(ctx, "orders", port.NoteSearchOptions{Category: "error_solutions"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "error_solutions", matches[0].Category)
}

func TestStore_SearchEmptyQueryFallsBackToRecent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Add(ctx, port.Note{Category: "schema_info", Content: "orders has 12 columns"})
	require.NoError(t, err)

	matches, err := store.Search(ctx, "   ", port.NoteSearchOptions{})
	require.NoError(t, err)
	require.Len(t, matches, 1)
}

func TestStore_SearchSpecialCharacters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Add(ctx, port.Note{Category: "error_solutions", Content: "syntax error near SELECT"})
	require.NoError(t, err)

	// Quoting keeps FTS operators out of the match expression.
	_, err = store.Search(ctx, `NEAR "SELECT" OR`, port.NoteSearchOptions{})
	require.NoError(t, err)
}

func TestStore_CategoryCounts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := store.Add(ctx, port.Note{Category: "query_patterns", Content: "ok"})
		require.NoError(t, err)
	}
	_, err := store.Add(ctx, port.Note{Category: "error_log", Content: "blocked"})
	require.NoError(t, err)

	counts, err := store.CategoryCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, counts["query_patterns"])
	assert.Equal(t, 1, counts["error_log"])
}

func TestStore_ReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "memory.db")
	ctx := context.Background()

	store, err := Open(path)
	require.NoError(t, err)
	_, err = store.Add(ctx, port.Note{Category: "schema_info", Content: "durable"})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	notes, err := reopened.Recent(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "durable", notes[0].Content)
}
