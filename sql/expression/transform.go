package expression

import (
	"github.com/frameql/lazyframe/sql"
)

// TransformFunc is a function that returns the given expression as is or
// transformed, along with an error, if any.
type TransformFunc func(sql.Expression) (sql.Expression, error)

// TransformUp applies a transformation function to the given expression from
// the bottom up.
func TransformUp(e sql.Expression, f TransformFunc) (sql.Expression, error) {
	children := e.Children()
	if len(children) == 0 {
		return f(e)
	}

	newChildren := make([]sql.Expression, len(children))
	for i, c := range children {
		c, err := TransformUp(c, f)
		if err != nil {
			return nil, err
		}
		newChildren[i] = c
	}

	e, err := e.WithChildren(newChildren...)
	if err != nil {
		return nil, err
	}

	return f(e)
}

// UnboundVariables returns the distinct column ids referenced by the
// expression, in order of first appearance.
func UnboundVariables(e sql.Expression) []string {
	var result []string
	seen := make(map[string]struct{})
	for _, c := range columnIDs(e) {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		result = append(result, c)
	}
	return result
}

// IsIdentity returns whether the expression is a plain reference to an
// input column, which introduces no new value.
func IsIdentity(e sql.Expression) bool {
	_, ok := e.(sql.ColumnReferencer)
	return ok
}

// IsConstant returns whether the expression references no column.
func IsConstant(e sql.Expression) bool {
	return len(columnIDs(e)) == 0
}

// BindVariables replaces the column references found in bindings with the
// bound expressions. Other references are kept.
func BindVariables(e sql.Expression, bindings map[string]sql.Expression) (sql.Expression, error) {
	return TransformUp(e, func(e sql.Expression) (sql.Expression, error) {
		c, ok := e.(sql.ColumnReferencer)
		if !ok {
			return e, nil
		}
		if bound, ok := bindings[c.ColumnID()]; ok {
			return bound, nil
		}
		return e, nil
	})
}

// RenameColumns replaces column references using the given mapping from old
// to new column ids.
func RenameColumns(e sql.Expression, mapping map[string]string) (sql.Expression, error) {
	bindings := make(map[string]sql.Expression, len(mapping))
	for from, to := range mapping {
		bindings[from] = NewColumnRef(to)
	}
	return BindVariables(e, bindings)
}
