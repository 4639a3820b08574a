package port

import (
	"context"
	"time"
)

// IndexUsage holds usage statistics for a single index.
type IndexUsage struct {
	Name      string `json:"name"`
	Scans     int64  `json:"scans"`
	SizeBytes int64  `json:"size_bytes"`
	SizeHuman string `json:"size_human"`
}

// InferredFK represents a relationship inferred from naming patterns in
// databases without explicit foreign key constraints.
type InferredFK struct {
	ColumnName       string `json:"column_name"`
	ReferencedTable  string `json:"referenced_table"`
	ReferencedColumn string `json:"referenced_column"`
	Confidence       string `json:"confidence"` // "high", "medium"
	Reason           string `json:"reason"`
}

// NumericSummary is the SQL-side equivalent of a describe() call for one
// numeric column.
type NumericSummary struct {
	Column string   `json:"column"`
	Count  int64    `json:"count"`
	Min    *float64 `json:"min,omitempty"`
	Max    *float64 `json:"max,omitempty"`
	Mean   *float64 `json:"mean,omitempty"`
	Median *float64 `json:"median,omitempty"`
	StdDev *float64 `json:"stddev,omitempty"`
}

// ColumnCorrelation is the Pearson correlation coefficient for one pair
// of numeric columns. Strength is set only for notable pairs: "strong"
// above |r| 0.8, "moderate" above 0.7.
type ColumnCorrelation struct {
	ColumnA     string  `json:"column_a"`
	ColumnB     string  `json:"column_b"`
	Coefficient float64 `json:"coefficient"`
	Strength    string  `json:"strength,omitempty"`
}

// TableAnalysis holds deep statistical analysis for a single table.
type TableAnalysis struct {
	Schema           string           `json:"schema"`
	Name             string           `json:"name"`
	RowEstimate      int64            `json:"row_estimate"`
	TotalBytes       int64            `json:"total_bytes"`
	TableBytes       int64            `json:"table_bytes"`
	IndexBytes       int64            `json:"index_bytes"`
	SizeHuman        string           `json:"size_human"`
	SampleRows       []map[string]any `json:"sample_rows,omitempty"`
	NumericSummaries []NumericSummary    `json:"numeric_summaries,omitempty"`
	Correlations     []ColumnCorrelation `json:"correlations,omitempty"`
	IndexUsage       []IndexUsage        `json:"index_usage,omitempty"`
	InferredFKs      []InferredFK        `json:"inferred_fks,omitempty"`
	StatsAge         *time.Time          `json:"stats_age,omitempty"`
	StatsAgeWarning  string              `json:"stats_age_warning,omitempty"`
	Insights         []string            `json:"insights,omitempty"`
	Extra            map[string]any      `json:"extra,omitempty"`
}

// TableAnalyzer provides statistical table analysis beyond schema exploration.
type TableAnalyzer interface {
	AnalyzeTable(ctx context.Context, schema, tableName string) (*TableAnalysis, error)
}
