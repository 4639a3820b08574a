package service

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/guillermoBallester/causeway/internal/core/port"
)

// MemoryService exposes the learning memory to the MCP layer and derives
// pattern insights from what has accumulated there.
type MemoryService struct {
	store port.MemoryStore
}

func NewMemoryService(store port.MemoryStore) *MemoryService {
	if store == nil {
		store = port.NoopMemory{}
	}
	return &MemoryService{store: store}
}

func (s *MemoryService) Save(ctx context.Context, note port.Note) (int64, error) {
	if note.UserID == "" {
		note.UserID = "system"
	}
	if note.Category == "" {
		note.Category = "general"
	}
	return s.store.Add(ctx, note)
}

func (s *MemoryService) Search(ctx context.Context, query string, opts port.NoteSearchOptions) ([]port.NoteMatch, error) {
	return s.store.Search(ctx, query, opts)
}

// KeywordCount is a recurring term with its occurrence count.
type KeywordCount struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
}

// InsightsReport summarizes what the memory has learned so far.
type InsightsReport struct {
	TotalNotes  int            `json:"total_notes"`
	Categories  map[string]int `json:"categories"`
	TopKeywords []KeywordCount `json:"top_keywords,omitempty"`
	Suggestions []string       `json:"suggestions,omitempty"`
	RecentNotes []port.Note    `json:"recent_notes,omitempty"`
}

// insightSampleSize bounds how many recent notes feed keyword extraction.
const insightSampleSize = 50

// Insights aggregates note counts per category, recurring keywords from
// recent notes, and simple follow-up suggestions. An empty category
// analyzes everything.
func (s *MemoryService) Insights(ctx context.Context, category string) (*InsightsReport, error) {
	counts, err := s.store.CategoryCounts(ctx)
	if err != nil {
		return nil, err
	}

	report := &InsightsReport{Categories: counts}
	for _, n := range counts {
		report.TotalNotes += n
	}

	recent, err := s.store.Recent(ctx, category, insightSampleSize)
	if err != nil {
		return nil, err
	}
	if len(recent) > 10 {
		report.RecentNotes = recent[:10]
	} else {
		report.RecentNotes = recent
	}

	var contents []string
	for _, n := range recent {
		contents = append(contents, n.Content)
	}
	report.TopKeywords = extractKeywords(contents, 10)
	report.Suggestions = buildSuggestions(counts)

	return report, nil
}

var wordPattern = regexp.MustCompile(`[a-zA-Z_][a-zA-Z0-9_]{2,}`)

// stopwords are terms too generic to count as signal in note text.
var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "from": true,
	"query": true, "executed": true, "successfully": true, "returned": true,
	"rows": true, "row": true, "error": true, "failed": true, "select": true,
	"table": true, "reason": true, "detected": true, "blocked": true,
}

func extractKeywords(contents []string, limit int) []KeywordCount {
	freq := make(map[string]int)
	for _, c := range contents {
		for _, w := range wordPattern.FindAllString(strings.ToLower(c), -1) {
			if !stopwords[w] {
				freq[w]++
			}
		}
	}

	out := make([]KeywordCount, 0, len(freq))
	for w, n := range freq {
		if n > 1 {
			out = append(out, KeywordCount{Keyword: w, Count: n})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Keyword < out[j].Keyword
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func buildSuggestions(counts map[string]int) []string {
	var suggestions []string
	if counts["error_solutions"] >= 5 {
		suggestions = append(suggestions,
			"Several queries have failed recently; review error_solutions notes for recurring mistakes.")
	}
	if counts["performance_insights"] >= 3 {
		suggestions = append(suggestions,
			"Multiple slow queries recorded; consider adding indexes or tightening filters on the tables involved.")
	}
	if counts["error_log"] >= 3 {
		suggestions = append(suggestions,
			"The safety gate has blocked several statements; the caller may be attempting writes against a read-only deployment.")
	}
	return suggestions
}
