package expression

import "github.com/frameql/lazyframe/sql"

// Inspect calls f on the expression and, while f returns true, on each of
// its children, depth first.
func Inspect(expr sql.Expression, f func(sql.Expression) bool) {
	if !f(expr) {
		return
	}
	for _, child := range expr.Children() {
		Inspect(child, f)
	}
}

// columnIDs returns the ids of the columns referenced by the expression, in
// order of appearance and possibly repeated.
func columnIDs(e sql.Expression) []string {
	var ids []string
	Inspect(e, func(e sql.Expression) bool {
		if c, ok := e.(sql.ColumnReferencer); ok {
			ids = append(ids, c.ColumnID())
			return false
		}
		return true
	})
	return ids
}
