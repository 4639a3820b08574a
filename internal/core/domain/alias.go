package domain

import (
	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// ExtractAliasMap parses a SELECT statement and maps original column
// names to their AS aliases, so masks configured against real column
// names still apply when an agent aliases them in the projection.
// Only bare column references count ("email" AS e, u."Email" AS e);
// expressions can never match a mask key and are skipped. Returns an
// empty map on parse error; masking falls back to exact-name matching.
func ExtractAliasMap(sql string) map[string]string {
	aliases := make(map[string]string)

	tree, err := pg_query.Parse(sql)
	if err != nil || len(tree.Stmts) == 0 {
		return aliases
	}

	stmt := tree.Stmts[0].Stmt
	if stmt == nil {
		return aliases
	}

	sel, ok := stmt.Node.(*pg_query.Node_SelectStmt)
	if !ok {
		return aliases
	}

	for _, target := range sel.SelectStmt.TargetList {
		rt, ok := target.Node.(*pg_query.Node_ResTarget)
		if !ok || rt.ResTarget == nil || rt.ResTarget.Name == "" {
			continue
		}

		val := rt.ResTarget.Val
		if val == nil {
			continue
		}

		cr, ok := val.Node.(*pg_query.Node_ColumnRef)
		if !ok || cr.ColumnRef == nil || len(cr.ColumnRef.Fields) == 0 {
			continue
		}

		// The bare column name is the last field: "email" → [email],
		// u."Email" → [u, Email].
		last := cr.ColumnRef.Fields[len(cr.ColumnRef.Fields)-1]
		str, ok := last.Node.(*pg_query.Node_String_)
		if !ok || str.String_ == nil {
			continue
		}

		if col := str.String_.Sval; col != "" && col != rt.ResTarget.Name {
			aliases[col] = rt.ResTarget.Name
		}
	}

	return aliases
}

// AliasedMasks rewrites a mask map so that aliased output columns keep
// their source column's mask. Columns without aliases pass through.
func AliasedMasks(masks map[string]MaskType, aliases map[string]string) map[string]MaskType {
	if len(aliases) == 0 {
		return masks
	}
	out := make(map[string]MaskType, len(masks))
	for col, m := range masks {
		if alias, ok := aliases[col]; ok {
			out[alias] = m
		} else {
			out[col] = m
		}
	}
	return out
}
