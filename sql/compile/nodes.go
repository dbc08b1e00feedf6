package compile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/frameql/lazyframe/sql"
	"github.com/frameql/lazyframe/sql/plan"
)

func (c *compilation) lower(n sql.Node) (*relation, error) {
	switch n := n.(type) {
	case *plan.ReadTable:
		return c.readTable(n)
	case *plan.ReadLocal:
		return c.readLocal(n)
	case *plan.CachedTable:
		return c.cachedTable(n)
	case *plan.Filter:
		return c.filter(n)
	case *plan.Projection:
		return c.projection(n)
	case *plan.PromoteOffsets:
		return c.promoteOffsets(n)
	case *plan.OrderBy:
		return c.orderBy(n)
	case *plan.Reversed:
		child, err := c.lower(n.Child)
		if err != nil {
			return nil, err
		}
		r := child.derive(child.query)
		for i, k := range r.keys {
			r.keys[i] = k.reversed()
		}
		return r, nil
	case *plan.Reproject:
		return c.lower(n.Child)
	case *plan.Aggregate:
		return c.aggregate(n)
	case *plan.WindowOp:
		return c.windowOp(n)
	case *plan.Concat:
		return c.concat(n)
	case *plan.Join:
		return c.join(n)
	case *plan.Explode:
		return c.explode(n)
	case *plan.RowCount:
		child, err := c.lower(n.Child)
		if err != nil {
			return nil, err
		}
		return &relation{
			query:  selectFrom([]string{"COUNT(*) AS " + quoteIdent(plan.RowCountColumn)}, child.query),
			schema: n.Schema(),
			total:  true,
		}, nil
	case *plan.RandomSample:
		child, err := c.lower(n.Child)
		if err != nil {
			return nil, err
		}
		threshold := int64(n.Fraction * 1e6)
		query := fmt.Sprintf("%s WHERE ((RANDOM() & 9223372036854775807) %% 1000000) < %d", selectFrom([]string{"*"}, child.query), threshold)
		r := child.derive(query)
		r.schema = n.Schema()
		return r, nil
	default:
		return nil, ErrUnsupportedNode.New(fmt.Sprintf("%T", n))
	}
}

func (c *compilation) readTable(n *plan.ReadTable) (*relation, error) {
	source := n.Source
	if source.AtTime != nil {
		return nil, ErrUnsupportedNode.New("snapshot read of " + source.Table.Ref.String())
	}

	r := &relation{schema: n.Schema()}
	cols := r.visibleColumns()
	for _, oc := range source.OrderCols {
		typ, ok := source.Table.Schema.TypeOf(oc)
		if !ok {
			return nil, sql.ErrColumnNotFound.New(oc, source.Table.Schema.Names())
		}
		cols = append(cols, c.addKey(r, quoteIdent(oc), typ, false, false))
	}
	r.total = len(source.OrderCols) > 0

	if !r.total && c.strict {
		cols = append(cols, c.addKey(r, "rowid", sql.Int64, false, false))
		r.total = true
	}

	r.query = fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), TableName(source.Table.Ref))
	if source.Predicate != "" {
		r.query += " WHERE " + source.Predicate
	}
	return r, nil
}

func (c *compilation) readLocal(n *plan.ReadLocal) (*relation, error) {
	rows, err := n.Rows()
	if err != nil {
		return nil, err
	}

	schema := n.Schema()
	r := &relation{schema: schema, total: true}
	cols := make([]string, 0, len(schema)+1)

	if len(rows) == 0 {
		for _, item := range schema {
			cols = append(cols, alias(fmt.Sprintf("CAST(NULL AS %s)", columnType(item.Type)), item.ID))
		}
		cols = append(cols, c.addKey(r, "NULL", sql.Int64, false, false))
		r.query = fmt.Sprintf("SELECT %s WHERE 0", strings.Join(cols, ", "))
		return r, nil
	}

	values := make([]string, len(rows))
	for i, row := range rows {
		lits := make([]string, len(schema)+1)
		for j, item := range schema {
			if lits[j], err = Literal(row[j], item.Type); err != nil {
				return nil, err
			}
		}
		lits[len(schema)] = strconv.Itoa(i)
		values[i] = "(" + strings.Join(lits, ", ") + ")"
	}

	for j, item := range schema {
		cols = append(cols, alias(fmt.Sprintf("column%d", j+1), item.ID))
	}
	cols = append(cols, c.addKey(r, fmt.Sprintf("column%d", len(schema)+1), sql.Int64, false, false))
	r.query = fmt.Sprintf("SELECT %s FROM (VALUES %s)", strings.Join(cols, ", "), strings.Join(values, ", "))
	return r, nil
}

func (c *compilation) cachedTable(n *plan.CachedTable) (*relation, error) {
	r := &relation{schema: n.Schema()}
	cols := r.visibleColumns()

	if n.Ordering != nil {
		physical := make(sql.Schema, len(n.Table.Schema))
		for i, col := range n.Table.Schema {
			physical[i] = sql.SchemaItem{ID: col.Name, Type: col.Type}
		}
		for _, k := range n.Ordering.Keys {
			e, err := expr(k.Expr)
			if err != nil {
				return nil, err
			}
			typ, err := k.Expr.Type(physical)
			if err != nil {
				return nil, err
			}
			cols = append(cols, c.addKey(r, e, typ, k.Descending, k.NullsFirst))
		}
		r.total = n.Ordering.Total
	} else if c.strict {
		cols = append(cols, c.addKey(r, "rowid", sql.Int64, false, false))
		r.total = true
	}

	r.query = fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), TableName(n.Table.Ref))
	return r, nil
}

func (c *compilation) filter(n *plan.Filter) (*relation, error) {
	child, err := c.lower(n.Child)
	if err != nil {
		return nil, err
	}
	cond, err := expr(n.Predicate)
	if err != nil {
		return nil, err
	}
	return child.derive(selectFrom([]string{"*"}, child.query) + " WHERE " + cond), nil
}

func (c *compilation) projection(n *plan.Projection) (*relation, error) {
	child, err := c.lower(n.Child)
	if err != nil {
		return nil, err
	}

	cols := make([]string, 0, len(n.Assignments)+len(child.hidden))
	for _, a := range n.Assignments {
		e, err := expr(a.Expr)
		if err != nil {
			return nil, err
		}
		cols = append(cols, alias(e, a.ID))
	}
	cols = append(cols, child.hiddenColumns()...)

	r := child.derive(selectFrom(cols, child.query))
	r.schema = n.Schema()
	return r, nil
}

func (c *compilation) promoteOffsets(n *plan.PromoteOffsets) (*relation, error) {
	child, err := c.lower(n.Child)
	if err != nil {
		return nil, err
	}

	r := &relation{schema: n.Schema(), total: true}
	offsets := c.addKey(r, fmt.Sprintf("(ROW_NUMBER() OVER (%s) - 1)", child.over()), sql.Int64, false, false)
	inner := selectFrom([]string{"*", offsets}, child.query)

	name := quoteIdent(r.hidden[0].Name)
	cols := []string{alias(name, n.ColumnID)}
	cols = append(cols, child.visibleColumns()...)
	cols = append(cols, name)
	r.query = selectFrom(cols, inner)
	return r, nil
}

func (c *compilation) orderBy(n *plan.OrderBy) (*relation, error) {
	child, err := c.lower(n.Child)
	if err != nil {
		return nil, err
	}

	// New keys go first, the previous order breaks ties.
	r := child.derive("")
	r.keys = nil
	cols := []string{"*"}
	for _, o := range n.By {
		e, err := expr(o.Expr)
		if err != nil {
			return nil, err
		}
		typ, err := o.Expr.Type(child.schema)
		if err != nil {
			return nil, err
		}
		cols = append(cols, c.addKey(r, e, typ, o.Descending, o.NullsFirst))
	}
	r.keys = append(r.keys, child.keys...)
	r.query = selectFrom(cols, child.query)
	return r, nil
}

func (c *compilation) aggregate(n *plan.Aggregate) (*relation, error) {
	child, err := c.lower(n.Child)
	if err != nil {
		return nil, err
	}

	r := &relation{schema: n.Schema(), total: true}
	by := quoteAll(n.By)
	cols := append([]string(nil), by...)
	for _, a := range n.Aggregations {
		e, err := aggregateExpr(a.Agg)
		if err != nil {
			return nil, err
		}
		cols = append(cols, alias(e, a.ID))
	}
	for i, id := range n.By {
		typ, err := n.Schema().TypeOf(id)
		if err != nil {
			return nil, err
		}
		cols = append(cols, c.addKey(r, by[i], typ, false, false))
	}
	if len(cols) == 0 {
		cols = append(cols, alias("COUNT(*)", c.hiddenName()))
	}

	query := selectFrom(cols, child.query)
	if n.DropNA && len(by) > 0 {
		conds := make([]string, len(by))
		for i, b := range by {
			conds[i] = b + " IS NOT NULL"
		}
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	if len(by) > 0 {
		query += " GROUP BY " + strings.Join(by, ", ")
	}
	r.query = query
	return r, nil
}

func (c *compilation) concat(n *plan.Concat) (*relation, error) {
	r := &relation{schema: n.Schema(), total: true}
	source := c.hiddenName()
	position := c.hiddenName()
	r.hidden = sql.PhysicalSchema{{Name: source, Type: sql.Int64}, {Name: position, Type: sql.Int64}}
	r.keys = []orderKey{{column: source}, {column: position}}

	branches := make([]string, len(n.Children()))
	for i, child := range n.Children() {
		cr, err := c.lower(child)
		if err != nil {
			return nil, err
		}
		r.total = r.total && cr.total

		cols := make([]string, 0, len(r.schema)+2)
		for j, item := range cr.schema {
			cols = append(cols, alias(quoteIdent(item.ID), r.schema[j].ID))
		}
		cols = append(cols,
			alias(strconv.Itoa(i), source),
			alias(fmt.Sprintf("ROW_NUMBER() OVER (%s)", cr.over()), position),
		)
		branches[i] = selectFrom(cols, cr.query)
	}

	r.query = strings.Join(branches, " UNION ALL ")
	return r, nil
}

const (
	leftAlias  = "_lhs"
	rightAlias = "_rhs"
)

var joinKeywords = map[plan.JoinType]string{
	plan.InnerJoin: "JOIN",
	plan.LeftJoin:  "LEFT JOIN",
	plan.RightJoin: "RIGHT JOIN",
	plan.OuterJoin: "FULL OUTER JOIN",
	plan.CrossJoin: "CROSS JOIN",
}

func (c *compilation) join(n *plan.Join) (*relation, error) {
	left, err := c.lower(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := c.lower(n.Right)
	if err != nil {
		return nil, err
	}

	keyword, ok := joinKeywords[n.Definition.Type]
	if !ok {
		return nil, ErrUnsupportedNode.New(fmt.Sprintf("%s join", n.Definition.Type))
	}

	r := &relation{
		schema: n.Schema(),
		hidden: append(append(sql.PhysicalSchema(nil), left.hidden...), right.hidden...),
		keys:   append(append([]orderKey(nil), left.keys...), right.keys...),
		total:  left.total && right.total,
	}

	cols := make([]string, 0, len(n.Definition.Mappings)+len(r.hidden))
	for _, m := range n.Definition.Mappings {
		side := leftAlias
		if m.Side == plan.RightSide {
			side = rightAlias
		}
		cols = append(cols, alias(side+"."+quoteIdent(m.SourceID), m.DestinationID))
	}
	for _, h := range left.hidden {
		cols = append(cols, leftAlias+"."+quoteIdent(h.Name))
	}
	for _, h := range right.hidden {
		cols = append(cols, rightAlias+"."+quoteIdent(h.Name))
	}

	from := fmt.Sprintf("(%s) AS %s %s (%s) AS %s", left.query, leftAlias, keyword, right.query, rightAlias)
	if n.Definition.Type != plan.CrossJoin {
		conds := make([]string, len(n.Definition.Conditions))
		for i, cond := range n.Definition.Conditions {
			conds[i] = fmt.Sprintf("%s.%s = %s.%s", leftAlias, quoteIdent(cond.Left), rightAlias, quoteIdent(cond.Right))
		}
		if len(conds) == 0 {
			conds = append(conds, "1")
		}
		from += " ON " + strings.Join(conds, " AND ")
	}

	r.query = fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), from)
	return r, nil
}

const (
	sourceAlias  = "_src"
	elementAlias = "_elem"
)

// explode zips the elements of the array columns by position, driven by
// the longest of the arrays. Rows with no elements are kept with nulls.
func (c *compilation) explode(n *plan.Explode) (*relation, error) {
	child, err := c.lower(n.Child)
	if err != nil {
		return nil, err
	}

	exploded := make(map[string]bool, len(n.Columns))
	arrays := make([]string, len(n.Columns))
	for i, col := range n.Columns {
		exploded[col] = true
		arrays[i] = sourceAlias + "." + quoteIdent(col)
	}

	r := child.derive("")
	r.schema = n.Schema()

	cols := make([]string, 0, len(r.schema)+len(r.hidden)+1)
	for _, item := range r.schema {
		col := sourceAlias + "." + quoteIdent(item.ID)
		if exploded[item.ID] {
			col = fmt.Sprintf("json_extract(%s, '$[' || %s.key || ']')", col, elementAlias)
		}
		cols = append(cols, alias(col, item.ID))
	}
	for _, h := range child.hidden {
		cols = append(cols, sourceAlias+"."+quoteIdent(h.Name))
	}
	cols = append(cols, c.addKey(r, elementAlias+".key", sql.Int64, false, false))

	r.query = fmt.Sprintf(
		"SELECT %s FROM (%s) AS %s LEFT JOIN json_each(%s) AS %s",
		strings.Join(cols, ", "),
		child.query,
		sourceAlias,
		longest(arrays),
		elementAlias,
	)
	return r, nil
}

func longest(arrays []string) string {
	if len(arrays) == 1 {
		return arrays[0]
	}

	lengths := make([]string, len(arrays))
	for i, a := range arrays {
		lengths[i] = fmt.Sprintf("COALESCE(json_array_length(%s), 0)", a)
	}

	var sb strings.Builder
	sb.WriteString("CASE")
	for i := 0; i < len(arrays)-1; i++ {
		conds := make([]string, 0, len(arrays)-i-1)
		for j := i + 1; j < len(arrays); j++ {
			conds = append(conds, lengths[i]+" >= "+lengths[j])
		}
		fmt.Fprintf(&sb, " WHEN %s THEN %s", strings.Join(conds, " AND "), arrays[i])
	}
	fmt.Fprintf(&sb, " ELSE %s END", arrays[len(arrays)-1])
	return sb.String()
}
