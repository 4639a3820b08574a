package postgres

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/guillermoBallester/causeway/internal/core/domain"
	"github.com/guillermoBallester/causeway/internal/core/port"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// maxNumericSummaries caps the per-table aggregate passes so wide tables
// do not turn one analysis call into dozens of sequential scans.
const maxNumericSummaries = 10

// Correlation thresholds: |r| above moderateCorrelation is worth flagging,
// above strongCorrelation it reads as a near-linear relationship.
const (
	strongCorrelation   = 0.8
	moderateCorrelation = 0.7
)

// skewCutoff is the nonparametric skew (|mean - median| / stddev) above
// which a column's distribution gets a skew note.
const skewCutoff = 0.2

// Analyzer provides deep table analysis using Postgres system catalogs.
type Analyzer struct {
	pool    *pgxpool.Pool
	schemas []string
}

func NewAnalyzer(pool *pgxpool.Pool, schemas []string) *Analyzer {
	return &Analyzer{pool: pool, schemas: schemas}
}

func (a *Analyzer) AnalyzeTable(ctx context.Context, schema, tableName string) (*port.TableAnalysis, error) {
	// Resolve schema if not provided.
	if schema == "" {
		var err error
		schema, err = a.resolveSchema(ctx, tableName)
		if err != nil {
			return nil, err
		}
	}

	analysis := &port.TableAnalysis{
		Schema: schema,
		Name:   tableName,
	}

	// 1. Size breakdown.
	if err := a.fetchSizeBreakdown(ctx, schema, tableName, analysis); err != nil {
		return nil, fmt.Errorf("analyzing size: %w", err)
	}

	columns, err := a.getTableColumns(ctx, schema, tableName)
	if err != nil {
		return nil, err
	}

	// 2. Sample rows.
	sampleRows, err := a.fetchSampleRows(ctx, schema, tableName)
	if err != nil {
		// Non-fatal: sampling may fail on views or empty tables.
		_ = err
	} else {
		analysis.SampleRows = sampleRows
	}

	// 3. Numeric column summaries (count/min/max/mean/stddev in SQL).
	analysis.NumericSummaries, err = a.fetchNumericSummaries(ctx, schema, tableName, columns)
	if err != nil {
		_ = err
	}

	// 4. Pairwise correlations between numeric columns.
	analysis.Correlations, err = a.fetchCorrelations(ctx, schema, tableName, columns)
	if err != nil {
		_ = err
	}

	// 5. Index usage.
	analysis.IndexUsage, err = a.fetchIndexUsage(ctx, schema, tableName)
	if err != nil {
		_ = err
	}

	// 6. Implicit FK candidates.
	analysis.InferredFKs, err = a.inferForeignKeys(ctx, schema, tableName, columns)
	if err != nil {
		_ = err
	}

	// 7. Stats freshness.
	analysis.StatsAge, err = a.fetchStatsAge(ctx, schema, tableName)
	if err != nil {
		_ = err
	}
	if analysis.StatsAge != nil {
		age := time.Since(*analysis.StatsAge)
		if age > 7*24*time.Hour {
			analysis.StatsAgeWarning = fmt.Sprintf("Statistics are %.0f days old. Consider running ANALYZE on this table.", age.Hours()/24)
		}
	} else {
		analysis.StatsAgeWarning = "No ANALYZE has been run on this table. Statistics may be missing or inaccurate."
	}

	analysis.Insights = buildInsights(analysis)

	return analysis, nil
}

// buildInsights derives human-readable notes from the collected numbers:
// notable column correlations and skewed numeric distributions.
func buildInsights(analysis *port.TableAnalysis) []string {
	var insights []string

	for _, c := range analysis.Correlations {
		if c.Strength == "" {
			continue
		}
		insights = append(insights, fmt.Sprintf(
			"%s correlation between %s and %s (r=%.3f)",
			c.Strength, c.ColumnA, c.ColumnB, c.Coefficient))
	}

	for _, s := range analysis.NumericSummaries {
		if s.Mean == nil || s.Median == nil || s.StdDev == nil || *s.StdDev == 0 {
			continue
		}
		if math.Abs(*s.Mean-*s.Median)/(*s.StdDev) > skewCutoff {
			insights = append(insights, fmt.Sprintf(
				"%s has a skewed distribution (mean %.2f vs median %.2f)",
				s.Column, *s.Mean, *s.Median))
		}
	}

	return insights
}

func (a *Analyzer) resolveSchema(ctx context.Context, tableName string) (string, error) {
	filter, filterArgs := schemaFilter(a.schemas, "n.nspname", 2) // $1 is tableName
	query := fmt.Sprintf(queryResolveSchema, filter)

	args := make([]any, 0, 1+len(filterArgs))
	args = append(args, tableName)
	args = append(args, filterArgs...)

	var schema string
	err := a.pool.QueryRow(ctx, query, args...).Scan(&schema)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("table %q %w", tableName, domain.ErrNotFound)
		}
		return "", fmt.Errorf("resolving schema for table %q: %w", tableName, err)
	}
	return schema, nil
}

func (a *Analyzer) fetchSizeBreakdown(ctx context.Context, schema, tableName string, analysis *port.TableAnalysis) error {
	var toastBytes int64
	err := a.pool.QueryRow(ctx, queryTableSizeBreakdown, schema, tableName).
		Scan(&analysis.RowEstimate, &analysis.TotalBytes, &analysis.TableBytes,
			&analysis.IndexBytes, &toastBytes, &analysis.SizeHuman)
	if err != nil {
		return err
	}
	if toastBytes > 0 {
		if analysis.Extra == nil {
			analysis.Extra = make(map[string]any)
		}
		analysis.Extra["toast_bytes"] = toastBytes
	}
	return nil
}

func (a *Analyzer) fetchSampleRows(ctx context.Context, schema, tableName string) ([]map[string]any, error) {
	// Use TABLESAMPLE BERNOULLI for sampling. It works at the row level (not
	// page level like SYSTEM), so it returns rows even on small tables. A
	// generous 50% sample rate with LIMIT 5 yields a handful of
	// representative rows.
	fqn := fmt.Sprintf("%s.%s", quoteIdent(schema), quoteIdent(tableName))
	query := fmt.Sprintf("SELECT * FROM %s TABLESAMPLE BERNOULLI(50) LIMIT 5", fqn)

	rows, err := a.pool.Query(ctx, query)
	if err != nil {
		// Fallback: TABLESAMPLE may not work on some table types (e.g., foreign tables).
		query = fmt.Sprintf("SELECT * FROM %s LIMIT 5", fqn)
		rows, err = a.pool.Query(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("sampling rows: %w", err)
		}
	}
	defer rows.Close()

	return rowsToMaps(rows)
}

// fetchNumericSummaries computes count/min/max/avg/median/stddev for each
// numeric column entirely in SQL, one aggregate pass per column.
func (a *Analyzer) fetchNumericSummaries(ctx context.Context, schema, tableName string, columns []colInfo) ([]port.NumericSummary, error) {
	fqn := fmt.Sprintf("%s.%s", quoteIdent(schema), quoteIdent(tableName))

	var summaries []port.NumericSummary
	for _, col := range numericColumns(columns) {
		ident := quoteIdent(col.name)
		query := fmt.Sprintf(
			`SELECT count(%s), min(%s)::float8, max(%s)::float8, avg(%s)::float8, percentile_cont(0.5) WITHIN GROUP (ORDER BY %s::float8), stddev(%s)::float8 FROM %s`,
			ident, ident, ident, ident, ident, ident, fqn,
		)

		summary := port.NumericSummary{Column: col.name}
		err := a.pool.QueryRow(ctx, query).
			Scan(&summary.Count, &summary.Min, &summary.Max, &summary.Mean, &summary.Median, &summary.StdDev)
		if err != nil {
			return summaries, fmt.Errorf("summarizing column %q: %w", col.name, err)
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// fetchCorrelations computes pairwise Pearson correlations for the numeric
// columns in a single aggregate pass using corr(). A NULL coefficient
// (fewer than two paired non-null values) drops the pair from the result.
func (a *Analyzer) fetchCorrelations(ctx context.Context, schema, tableName string, columns []colInfo) ([]port.ColumnCorrelation, error) {
	numeric := numericColumns(columns)
	if len(numeric) < 2 {
		return nil, nil
	}

	fqn := fmt.Sprintf("%s.%s", quoteIdent(schema), quoteIdent(tableName))

	type pair struct{ a, b string }
	var pairs []pair
	var exprs []string
	for i := 0; i < len(numeric); i++ {
		for j := i + 1; j < len(numeric); j++ {
			pairs = append(pairs, pair{numeric[i].name, numeric[j].name})
			exprs = append(exprs, fmt.Sprintf("corr(%s::float8, %s::float8)",
				quoteIdent(numeric[i].name), quoteIdent(numeric[j].name)))
		}
	}

	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(exprs, ", "), fqn)

	coeffs := make([]*float64, len(pairs))
	scanArgs := make([]any, len(pairs))
	for i := range coeffs {
		scanArgs[i] = &coeffs[i]
	}
	if err := a.pool.QueryRow(ctx, query).Scan(scanArgs...); err != nil {
		return nil, fmt.Errorf("computing correlations: %w", err)
	}

	var correlations []port.ColumnCorrelation
	for i, p := range pairs {
		if coeffs[i] == nil {
			continue
		}
		c := port.ColumnCorrelation{ColumnA: p.a, ColumnB: p.b, Coefficient: *coeffs[i]}
		switch r := math.Abs(c.Coefficient); {
		case r > strongCorrelation:
			c.Strength = "strong"
		case r > moderateCorrelation:
			c.Strength = "moderate"
		}
		correlations = append(correlations, c)
	}
	return correlations, nil
}

// numericColumns filters columns down to the summarizable numeric ones,
// capped at maxNumericSummaries.
func numericColumns(columns []colInfo) []colInfo {
	var numeric []colInfo
	for _, col := range columns {
		if !isNumericType(col.dataType) {
			continue
		}
		numeric = append(numeric, col)
		if len(numeric) == maxNumericSummaries {
			break
		}
	}
	return numeric
}

// isNumericType reports whether a format_type output names a summarizable
// numeric column type.
func isNumericType(dataType string) bool {
	t := strings.ToLower(dataType)
	switch {
	case strings.HasPrefix(t, "numeric"), strings.HasPrefix(t, "decimal"):
		return true
	case t == "smallint", t == "integer", t == "bigint":
		return true
	case t == "real", t == "double precision":
		return true
	}
	return false
}

func (a *Analyzer) fetchIndexUsage(ctx context.Context, schema, tableName string) ([]port.IndexUsage, error) {
	rows, err := a.pool.Query(ctx, queryIndexUsage, schema, tableName)
	if err != nil {
		return nil, fmt.Errorf("querying index usage: %w", err)
	}
	defer rows.Close()

	var usage []port.IndexUsage
	for rows.Next() {
		var u port.IndexUsage
		if err := rows.Scan(&u.Name, &u.Scans, &u.SizeBytes, &u.SizeHuman); err != nil {
			return nil, fmt.Errorf("scanning index usage: %w", err)
		}
		usage = append(usage, u)
	}
	return usage, rows.Err()
}

func (a *Analyzer) fetchStatsAge(ctx context.Context, schema, tableName string) (*time.Time, error) {
	var ts *time.Time
	err := a.pool.QueryRow(ctx, queryStatsAge, schema, tableName).Scan(&ts)
	if err != nil {
		return nil, nil //nolint:nilerr
	}
	return ts, nil
}

// inferForeignKeys detects implicit FK relationships by matching *_id column
// naming patterns against primary key columns in other tables.
func (a *Analyzer) inferForeignKeys(ctx context.Context, schema, tableName string, targetCols []colInfo) ([]port.InferredFK, error) {
	// Get explicit FKs to exclude them.
	explicitFKs, err := a.getExplicitFKColumns(ctx, schema, tableName)
	if err != nil {
		return nil, err
	}

	// Get all tables with their PK columns for matching.
	pkIndex, err := a.buildPKIndex(ctx)
	if err != nil {
		return nil, err
	}

	// Build table name set for the domain matching function.
	tableNames := make(map[string]bool, len(pkIndex))
	for tbl := range pkIndex {
		tableNames[tbl] = true
	}

	var inferred []port.InferredFK
	for _, col := range targetCols {
		// Skip columns that already have explicit FKs.
		if explicitFKs[col.name] {
			continue
		}

		// Use domain naming pattern match, then verify type compatibility (adapter-specific).
		candidate, ok := domain.InferRelation(col.name, tableNames)
		if !ok {
			continue
		}

		pk, pkOK := pkIndex[candidate.ReferencedTable]
		if !pkOK {
			continue
		}

		if isTypeCompatible(col.dataType, pk.dataType) {
			inferred = append(inferred, port.InferredFK{
				ColumnName:       candidate.ColumnName,
				ReferencedTable:  candidate.ReferencedTable,
				ReferencedColumn: pk.colName,
				Confidence:       candidate.Confidence,
				Reason:           candidate.Reason,
			})
		}
	}
	return inferred, nil
}

type colInfo struct {
	name     string
	dataType string
}

type pkInfo struct {
	colName  string
	dataType string
}

func (a *Analyzer) getTableColumns(ctx context.Context, schema, tableName string) ([]colInfo, error) {
	rows, err := a.pool.Query(ctx, queryAnalyzerColumns, schema, tableName)
	if err != nil {
		return nil, fmt.Errorf("getting table columns: %w", err)
	}
	defer rows.Close()

	var cols []colInfo
	for rows.Next() {
		var c colInfo
		if err := rows.Scan(&c.name, &c.dataType); err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

func (a *Analyzer) getExplicitFKColumns(ctx context.Context, schema, tableName string) (map[string]bool, error) {
	rows, err := a.pool.Query(ctx, queryExplicitFKColumns, schema, tableName)
	if err != nil {
		return nil, fmt.Errorf("getting explicit FKs: %w", err)
	}
	defer rows.Close()

	result := make(map[string]bool)
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return nil, err
		}
		result[col] = true
	}
	return result, rows.Err()
}

func (a *Analyzer) buildPKIndex(ctx context.Context) (map[string]pkInfo, error) {
	filter, args := schemaFilter(a.schemas, "n.nspname", 1)
	query := fmt.Sprintf(queryPKIndex, filter)

	rows, err := a.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("building PK index: %w", err)
	}
	defer rows.Close()

	// Map table name → PK info. For composite PKs, take the first column only.
	result := make(map[string]pkInfo)
	for rows.Next() {
		var tableName, colName, dataType string
		if err := rows.Scan(&tableName, &colName, &dataType); err != nil {
			return nil, err
		}
		if _, exists := result[tableName]; !exists {
			result[tableName] = pkInfo{colName: colName, dataType: dataType}
		}
	}
	return result, rows.Err()
}
