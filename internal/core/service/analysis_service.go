package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/guillermoBallester/causeway/internal/core/port"
)

// AnalysisService wraps TableAnalyzer for deep statistical analysis.
// Completed analyses and their insights land in the learning memory.
type AnalysisService struct {
	analyzer port.TableAnalyzer
	memory   port.MemoryStore
	logger   *slog.Logger
}

func NewAnalysisService(analyzer port.TableAnalyzer, memory port.MemoryStore, logger *slog.Logger) *AnalysisService {
	if memory == nil {
		memory = port.NoopMemory{}
	}
	return &AnalysisService{analyzer: analyzer, memory: memory, logger: logger}
}

func (s *AnalysisService) AnalyzeTable(ctx context.Context, schema, tableName string) (*port.TableAnalysis, error) {
	analysis, err := s.analyzer.AnalyzeTable(ctx, schema, tableName)
	if err != nil {
		return nil, err
	}

	meta := map[string]string{"schema": analysis.Schema, "table_name": analysis.Name}
	s.remember(ctx, fmt.Sprintf("Data analysis of %s.%s: ~%d rows, %s total, %d numeric columns summarized",
		analysis.Schema, analysis.Name, analysis.RowEstimate, analysis.SizeHuman,
		len(analysis.NumericSummaries)), meta)
	for _, insight := range analysis.Insights {
		s.remember(ctx, fmt.Sprintf("Data insight for %s: %s", analysis.Name, insight), meta)
	}

	return analysis, nil
}

// remember stores an analysis note best-effort; memory failures never
// fail the analysis call.
func (s *AnalysisService) remember(ctx context.Context, content string, metadata map[string]string) {
	_, err := s.memory.Add(ctx, port.Note{
		UserID:   "system",
		Category: "data_analysis",
		Content:  content,
		Metadata: metadata,
	})
	if err != nil {
		s.logger.DebugContext(ctx, "memory write failed",
			slog.String("category", "data_analysis"),
			slog.String("error.message", err.Error()),
		)
	}
}
