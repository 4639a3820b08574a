package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/guillermoBallester/causeway/internal/core/domain"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	// pgQueryCanceled is the SQLSTATE raised when statement_timeout fires.
	pgQueryCanceled = "57014"
	// pgSyntaxClass covers SQLSTATE class 42: syntax errors and unknown
	// identifiers. These are the caller's mistakes to correct and carry no
	// server internals, so the driver message goes back as-is.
	pgSyntaxClass = "42"
)

// sanitizeError maps an internal error to a message safe to return to the
// MCP client. Gate rejections, not-found errors, and SQL syntax errors
// carry no internals and pass through; everything else is logged
// server-side and replaced with a generic message.
func sanitizeError(logger *slog.Logger, err error, op string) string {
	switch {
	case errors.Is(err, domain.ErrBlocked), errors.Is(err, domain.ErrNotFound):
		return err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Sprintf("%s timed out", op)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgQueryCanceled:
			return fmt.Sprintf("%s timed out", op)
		case strings.HasPrefix(pgErr.Code, pgSyntaxClass):
			return fmt.Sprintf("%s failed: %s", op, pgErr.Message)
		}
	}

	logger.LogAttrs(context.Background(), slog.LevelError, "tool error",
		slog.String("op", op),
		slog.String("error.message", err.Error()),
	)
	return fmt.Sprintf("internal error while running %s: check server logs", op)
}
