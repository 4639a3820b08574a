package port

import "context"

// Note is a single categorized memory entry.
type Note struct {
	ID        int64             `json:"id"`
	UserID    string            `json:"user_id"`
	Category  string            `json:"category"`
	Content   string            `json:"content"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt string            `json:"created_at"`
}

// NoteMatch is a search hit with its full-text rank (lower is better).
type NoteMatch struct {
	Note
	Rank float64 `json:"rank"`
}

// NoteSearchOptions filters full-text searches.
type NoteSearchOptions struct {
	UserID   string
	Category string
	Limit    int
}

// MemoryStore persists categorized notes and supports full-text recall.
type MemoryStore interface {
	Add(ctx context.Context, note Note) (int64, error)
	Search(ctx context.Context, query string, opts NoteSearchOptions) ([]NoteMatch, error)
	Recent(ctx context.Context, category string, limit int) ([]Note, error)
	CategoryCounts(ctx context.Context) (map[string]int, error)
	Close() error
}

// NoopMemory discards writes and returns nothing, for deployments that
// run without a memory path configured.
type NoopMemory struct{}

func (NoopMemory) Add(context.Context, Note) (int64, error) { return 0, nil }
func (NoopMemory) Search(context.Context, string, NoteSearchOptions) ([]NoteMatch, error) {
	return nil, nil
}
func (NoopMemory) Recent(context.Context, string, int) ([]Note, error) { return nil, nil }
func (NoopMemory) CategoryCounts(context.Context) (map[string]int, error) {
	return map[string]int{}, nil
}
func (NoopMemory) Close() error { return nil }
