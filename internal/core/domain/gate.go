package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

var (
	ErrBlocked  = errors.New("query blocked by safety gate")
	ErrNotFound = errors.New("not found")
)

// DefaultBlockedKeywords are the statement types rejected by default.
// Operators can replace the set via the policy file's safety section.
var DefaultBlockedKeywords = []string{
	"DROP", "DELETE", "UPDATE", "ALTER", "TRUNCATE",
	"INSERT", "CREATE", "GRANT", "REVOKE",
}

// DefaultRowLimit is the bounding clause appended to unbounded SELECTs.
const DefaultRowLimit = 1000

// Verdict is the gate's decision for a single query text: whether the
// query may run, why not if it may not, and the text to actually execute
// (the original, or the original with a LIMIT appended).
type Verdict struct {
	Allowed bool
	Reason  string
	SQL     string
}

// Gate decides whether a piece of SQL is permitted to run against a
// read-mostly connection. It rejects statements containing denylisted
// keywords as standalone tokens, rejects multi-statement input, and
// appends a row-limiting clause to unbounded SELECTs.
//
// Evaluate is a pure function of its input: no I/O, no shared mutable
// state, safe for concurrent use. It never returns an error; every
// input, including empty or malformed SQL, produces a Verdict.
type Gate struct {
	keywords []string
	matchers []*regexp.Regexp
	rowLimit int
}

// limitClause matches an existing row-limiting clause. LIMIT must be a
// standalone word so a column named e.g. "rate_limit" does not count.
var limitClause = regexp.MustCompile(`(?i)\blimit\s+\d+\b|\bfetch\s+first\b`)

// NewGate builds a gate from a keyword denylist and a default row limit.
// Empty inputs fall back to DefaultBlockedKeywords and DefaultRowLimit.
func NewGate(keywords []string, rowLimit int) *Gate {
	if len(keywords) == 0 {
		keywords = DefaultBlockedKeywords
	}
	if rowLimit <= 0 {
		rowLimit = DefaultRowLimit
	}

	g := &Gate{rowLimit: rowLimit}
	for _, kw := range keywords {
		kw = strings.ToUpper(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		// Word-boundary match on a case-folded copy. A substring match
		// would wrongly reject identifiers like updated_at or dropout_rate.
		g.keywords = append(g.keywords, kw)
		g.matchers = append(g.matchers, regexp.MustCompile(`\b`+strings.ToLower(kw)+`\b`))
	}
	return g
}

// Evaluate inspects queryText and returns a Verdict. Approved
// SELECT-shaped statements without a limiting clause come back with
// " LIMIT n" appended; everything else is returned untouched.
func (g *Gate) Evaluate(queryText string) Verdict {
	trimmed := strings.TrimSpace(queryText)
	if trimmed == "" {
		// Nothing denylisted in an empty string; running it is the
		// caller's problem.
		return Verdict{Allowed: true, SQL: queryText}
	}

	folded := strings.ToLower(trimmed)

	for i, m := range g.matchers {
		if m.MatchString(folded) {
			return Verdict{
				Reason: fmt.Sprintf("blocked keyword: %s", g.keywords[i]),
				SQL:    queryText,
			}
		}
	}

	if hasMultipleStatements(trimmed) {
		return Verdict{
			Reason: "multiple statements are not allowed",
			SQL:    queryText,
		}
	}

	if isSelectShaped(trimmed) && !limitClause.MatchString(folded) {
		rewritten := strings.TrimSuffix(trimmed, ";")
		rewritten = strings.TrimRight(rewritten, " \t\r\n")
		return Verdict{
			Allowed: true,
			SQL:     fmt.Sprintf("%s LIMIT %d", rewritten, g.rowLimit),
		}
	}

	return Verdict{Allowed: true, SQL: queryText}
}

// RowLimit returns the configured default bound.
func (g *Gate) RowLimit() int {
	return g.rowLimit
}

// hasMultipleStatements reports whether sql carries more than one
// statement. The PostgreSQL parser decides when the text parses, so a
// ';' inside a string literal does not count as a separator. Input the
// parser cannot read falls back to a byte scan: any ';' followed by
// further non-whitespace content is treated as a second statement.
func hasMultipleStatements(sql string) bool {
	if !strings.Contains(sql, ";") {
		return false
	}

	if tree, err := pg_query.Parse(sql); err == nil {
		n := 0
		for _, stmt := range tree.Stmts {
			if stmt.Stmt != nil {
				n++
			}
		}
		return n > 1
	}

	idx := strings.IndexByte(sql, ';')
	return strings.TrimSpace(sql[idx+1:]) != ""
}

// isSelectShaped reports whether the statement returns an unbounded row
// set that a LIMIT can cap. The PostgreSQL parser gives the authoritative
// answer; input it cannot parse falls back to a leading-verb check, since
// a parse failure must never turn into a rejection here.
func isSelectShaped(sql string) bool {
	tree, err := pg_query.Parse(sql)
	if err == nil && len(tree.Stmts) == 1 && tree.Stmts[0].Stmt != nil {
		_, ok := tree.Stmts[0].Stmt.Node.(*pg_query.Node_SelectStmt)
		return ok
	}

	folded := strings.ToLower(sql)
	return strings.HasPrefix(folded, "select") || strings.HasPrefix(folded, "with")
}
