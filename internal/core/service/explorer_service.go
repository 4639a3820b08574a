package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/guillermoBallester/causeway/internal/core/port"
)

// ExplorerService wraps SchemaExplorer for the MCP layer. Successful
// table descriptions land in the learning memory as schema facts.
type ExplorerService struct {
	explorer port.SchemaExplorer
	memory   port.MemoryStore
	logger   *slog.Logger
}

func NewExplorerService(explorer port.SchemaExplorer, memory port.MemoryStore, logger *slog.Logger) *ExplorerService {
	if memory == nil {
		memory = port.NoopMemory{}
	}
	return &ExplorerService{explorer: explorer, memory: memory, logger: logger}
}

func (s *ExplorerService) ConnectionInfo(ctx context.Context) (*port.ConnectionInfo, error) {
	return s.explorer.ConnectionInfo(ctx)
}

func (s *ExplorerService) ListSchemas(ctx context.Context) ([]port.SchemaInfo, error) {
	return s.explorer.ListSchemas(ctx)
}

func (s *ExplorerService) ListTables(ctx context.Context) ([]port.TableInfo, error) {
	return s.explorer.ListTables(ctx)
}

func (s *ExplorerService) DescribeTable(ctx context.Context, schema, tableName string) (*port.TableDetail, error) {
	detail, err := s.explorer.DescribeTable(ctx, schema, tableName)
	if err != nil {
		return nil, err
	}

	s.remember(ctx, detail)
	return detail, nil
}

// remember stores a one-line table summary best-effort; memory failures
// never fail the describe call.
func (s *ExplorerService) remember(ctx context.Context, detail *port.TableDetail) {
	names := make([]string, 0, 5)
	var pks []string
	for _, col := range detail.Columns {
		if len(names) < 5 {
			names = append(names, col.Name)
		}
		if col.IsPrimaryKey {
			pks = append(pks, col.Name)
		}
	}

	content := fmt.Sprintf("Table %s.%s: %d columns (%s)",
		detail.Schema, detail.Name, len(detail.Columns), strings.Join(names, ", "))
	if extra := len(detail.Columns) - len(names); extra > 0 {
		content += fmt.Sprintf(" and %d more", extra)
	}
	if len(pks) > 0 {
		content += fmt.Sprintf(". Primary key: %s", strings.Join(pks, ", "))
	}

	_, err := s.memory.Add(ctx, port.Note{
		UserID:   "system",
		Category: "schema_analysis",
		Content:  content,
		Metadata: map[string]string{"schema": detail.Schema, "table_name": detail.Name},
	})
	if err != nil {
		s.logger.DebugContext(ctx, "memory write failed",
			slog.String("category", "schema_analysis"),
			slog.String("error.message", err.Error()),
		)
	}
}
