package port

import (
	"context"

	"github.com/guillermoBallester/causeway/internal/core/domain"
)

// QueryGate decides whether a SQL statement may run and returns the text
// to execute. Implementations must be pure and safe for concurrent use.
type QueryGate interface {
	Evaluate(queryText string) domain.Verdict
}

// QueryExecutor runs gate-approved SQL and returns rows keyed by column name.
type QueryExecutor interface {
	Execute(ctx context.Context, sql string) ([]map[string]any, error)
}
