// Package memory persists learning notes in SQLite with FTS5 full-text
// recall. Notes are what the query layer learns from executions: query
// patterns, error solutions, performance insights, schema facts.
package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/guillermoBallester/causeway/internal/core/port"
)

const defaultSearchLimit = 10

// Store implements port.MemoryStore on a local SQLite database.
type Store struct {
	db *sql.DB
}

// Open creates the parent directory if needed, opens the database in WAL
// mode, and runs migrations. The path names the database file itself.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("memory: create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("memory: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("memory: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("memory: migration: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS notes (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id    TEXT NOT NULL DEFAULT 'system',
			category   TEXT NOT NULL,
			content    TEXT NOT NULL,
			metadata   TEXT,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE INDEX IF NOT EXISTS idx_notes_category ON notes(category);
		CREATE INDEX IF NOT EXISTS idx_notes_user     ON notes(user_id);
		CREATE INDEX IF NOT EXISTS idx_notes_created  ON notes(created_at DESC);

		CREATE VIRTUAL TABLE IF NOT EXISTS notes_fts USING fts5(
			content,
			category,
			content='notes',
			content_rowid='id'
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// FTS triggers keep the index in sync with the content table.
	var name string
	err := s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='trigger' AND name='notes_fts_insert'",
	).Scan(&name)
	if err == sql.ErrNoRows {
		triggers := `
			CREATE TRIGGER notes_fts_insert AFTER INSERT ON notes BEGIN
				INSERT INTO notes_fts(rowid, content, category)
				VALUES (new.id, new.content, new.category);
			END;

			CREATE TRIGGER notes_fts_delete AFTER DELETE ON notes BEGIN
				INSERT INTO notes_fts(notes_fts, rowid, content, category)
				VALUES ('delete', old.id, old.content, old.category);
			END;
		`
		if _, err := s.db.Exec(triggers); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	return nil
}

// Add persists a note and returns its ID.
func (s *Store) Add(ctx context.Context, note port.Note) (int64, error) {
	var metadata any
	if len(note.Metadata) > 0 {
		encoded, err := json.Marshal(note.Metadata)
		if err != nil {
			return 0, fmt.Errorf("memory: encode metadata: %w", err)
		}
		metadata = string(encoded)
	}

	userID := note.UserID
	if userID == "" {
		userID = "system"
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO notes (user_id, category, content, metadata) VALUES (?, ?, ?, ?)`,
		userID, note.Category, note.Content, metadata,
	)
	if err != nil {
		return 0, fmt.Errorf("memory: insert note: %w", err)
	}
	return res.LastInsertId()
}

// Search runs an FTS5 match ranked by relevance. An empty query falls
// back to the most recent notes so callers always get something useful.
func (s *Store) Search(ctx context.Context, query string, opts port.NoteSearchOptions) ([]port.NoteMatch, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	ftsQuery := sanitizeFTS(query)
	if ftsQuery == "" {
		notes, err := s.Recent(ctx, opts.Category, limit)
		if err != nil {
			return nil, err
		}
		matches := make([]port.NoteMatch, 0, len(notes))
		for _, n := range notes {
			matches = append(matches, port.NoteMatch{Note: n})
		}
		return matches, nil
	}

	sqlStr := `
		SELECT n.id, n.user_id, n.category, n.content, n.metadata, n.created_at, fts.rank
		FROM notes_fts fts
		JOIN notes n ON n.id = fts.rowid
		WHERE notes_fts MATCH ?
	`
	args := []any{ftsQuery}

	if opts.UserID != "" {
		sqlStr += " AND n.user_id = ?"
		args = append(args, opts.UserID)
	}
	if opts.Category != "" {
		sqlStr += " AND n.category = ?"
		args = append(args, opts.Category)
	}

	sqlStr += " ORDER BY fts.rank LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("memory: search: %w", err)
	}
	defer rows.Close()

	var matches []port.NoteMatch
	for rows.Next() {
		var m port.NoteMatch
		var metadata sql.NullString
		if err := rows.Scan(&m.ID, &m.UserID, &m.Category, &m.Content, &metadata, &m.CreatedAt, &m.Rank); err != nil {
			return nil, err
		}
		if m.Metadata, err = decodeMetadata(metadata); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// Recent returns the newest notes, optionally filtered by category.
func (s *Store) Recent(ctx context.Context, category string, limit int) ([]port.Note, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	sqlStr := `SELECT id, user_id, category, content, metadata, created_at FROM notes`
	var args []any
	if category != "" {
		sqlStr += " WHERE category = ?"
		args = append(args, category)
	}
	sqlStr += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("memory: recent: %w", err)
	}
	defer rows.Close()

	var notes []port.Note
	for rows.Next() {
		var n port.Note
		var metadata sql.NullString
		if err := rows.Scan(&n.ID, &n.UserID, &n.Category, &n.Content, &metadata, &n.CreatedAt); err != nil {
			return nil, err
		}
		if n.Metadata, err = decodeMetadata(metadata); err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// CategoryCounts returns the number of notes per category.
func (s *Store) CategoryCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT category, COUNT(*) FROM notes GROUP BY category`,
	)
	if err != nil {
		return nil, fmt.Errorf("memory: category counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var category string
		var n int
		if err := rows.Scan(&category, &n); err != nil {
			return nil, err
		}
		counts[category] = n
	}
	return counts, rows.Err()
}

func decodeMetadata(raw sql.NullString) (map[string]string, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var metadata map[string]string
	if err := json.Unmarshal([]byte(raw.String), &metadata); err != nil {
		return nil, fmt.Errorf("memory: decode metadata: %w", err)
	}
	return metadata, nil
}

// sanitizeFTS wraps each word in quotes for safe FTS5 queries.
// "slow orders join" becomes `"slow" "orders" "join"`.
func sanitizeFTS(query string) string {
	words := strings.Fields(query)
	for i, w := range words {
		w = strings.Trim(w, `"`)
		words[i] = `"` + w + `"`
	}
	return strings.Join(words, " ")
}
