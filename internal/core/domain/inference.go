package domain

import (
	"fmt"
	"strings"
)

// RelationCandidate is a possible foreign key inferred from column naming
// conventions in schemas that never declared explicit constraints.
// Type compatibility is the adapter's job; type names are driver-specific.
type RelationCandidate struct {
	ColumnName      string // e.g. "user_id"
	ReferencedTable string // e.g. "users"
	ReferencedPK    string // assumed PK column name, "id"
	Confidence      string // "high" or "medium"
	Reason          string
}

// InferRelation checks whether columnName follows the *_id convention and
// resolves against a known table name in plural or singular form.
func InferRelation(columnName string, tableNames map[string]bool) (RelationCandidate, bool) {
	if !strings.HasSuffix(columnName, "_id") {
		return RelationCandidate{}, false
	}
	prefix := strings.TrimSuffix(columnName, "_id")

	for _, candidate := range []string{prefix + "s", prefix, prefix + "es"} {
		if !tableNames[candidate] {
			continue
		}
		confidence := "high"
		if candidate != prefix+"s" && candidate != prefix {
			confidence = "medium"
		}
		return RelationCandidate{
			ColumnName:      columnName,
			ReferencedTable: candidate,
			ReferencedPK:    "id",
			Confidence:      confidence,
			Reason:          fmt.Sprintf("column %q matches naming pattern for table %q", columnName, candidate),
		}, true
	}
	return RelationCandidate{}, false
}
