package port

import "context"

// AuditEntry records a single gate evaluation and, when approved, the
// execution that followed.
type AuditEntry struct {
	Tool         string
	SQL          string // as submitted
	Rewritten    string // as executed (empty when rejected or unchanged)
	Allowed      bool
	Reason       string // populated for rejections
	RowsReturned int
	DurationMS   int64
	Err          error
}

// QueryAuditor records query audit events. Implementations must not fail
// the request on audit I/O errors.
type QueryAuditor interface {
	Record(ctx context.Context, entry AuditEntry)
	Close() error
}
