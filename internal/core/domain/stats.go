package domain

// CardinalityClass describes the distribution shape of a column's values,
// used by analysis output to hint what is worth grouping or filtering on.
type CardinalityClass string

const (
	CardinalityUnique          CardinalityClass = "unique"
	CardinalityNearUnique      CardinalityClass = "near_unique"
	CardinalityHighCardinality CardinalityClass = "high_cardinality"
	CardinalityLowCardinality  CardinalityClass = "low_cardinality"
	CardinalityEnumLike        CardinalityClass = "enum_like"
)

// ClassifyDistinct buckets a column by absolute distinct and total row
// counts. Database-agnostic: adapters convert driver statistics (e.g.
// pg_stats n_distinct fractions) to absolute counts first.
func ClassifyDistinct(distinctCount, totalRows int64) CardinalityClass {
	if totalRows > 0 && distinctCount == totalRows {
		return CardinalityUnique
	}
	if totalRows > 0 && float64(distinctCount)/float64(totalRows) >= 0.9 {
		return CardinalityNearUnique
	}
	if distinctCount <= 20 {
		return CardinalityEnumLike
	}
	if distinctCount <= 200 {
		return CardinalityLowCardinality
	}
	return CardinalityHighCardinality
}
