package aggregation

import (
	"fmt"

	"github.com/frameql/lazyframe/sql"
)

// AggregateOp is a window operator that can also reduce a whole group of
// rows to a single value.
type AggregateOp interface {
	sql.WindowOp
	aggregate()
}

type unaryOp struct {
	name   string
	output func(sql.Type) (sql.Type, error)
}

func (o unaryOp) String() string { return o.name }

func (o unaryOp) OutputType(t sql.Type) (sql.Type, error) {
	return o.output(t)
}

type aggregateOp struct {
	unaryOp
}

func (aggregateOp) aggregate() {}

func sameType(t sql.Type) (sql.Type, error) {
	return t, nil
}

func numeric(t sql.Type) (sql.Type, error) {
	if !sql.IsNumeric(t) {
		return nil, sql.ErrInvalidType.New(fmt.Sprintf("expected a numeric type, got %s", t))
	}
	return t, nil
}

func orderable(t sql.Type) (sql.Type, error) {
	if !sql.IsOrderable(t) {
		return nil, sql.ErrInvalidType.New(fmt.Sprintf("%s values cannot be ordered", t))
	}
	return t, nil
}

func integer(sql.Type) (sql.Type, error) {
	return sql.Int64, nil
}

func float(t sql.Type) (sql.Type, error) {
	if _, err := numeric(t); err != nil {
		return nil, err
	}
	return sql.Float64, nil
}

var (
	// Sum of the values.
	Sum AggregateOp = aggregateOp{unaryOp{"sum", numeric}}
	// Mean of the values.
	Mean AggregateOp = aggregateOp{unaryOp{"mean", float}}
	// Min is the smallest value.
	Min AggregateOp = aggregateOp{unaryOp{"min", orderable}}
	// Max is the largest value.
	Max AggregateOp = aggregateOp{unaryOp{"max", orderable}}
	// Count of the non null values.
	Count AggregateOp = aggregateOp{unaryOp{"count", integer}}
	// AnyValue is any of the values.
	AnyValue AggregateOp = aggregateOp{unaryOp{"any_value", sameType}}

	// Rank of the row within its window, with gaps.
	Rank sql.WindowOp = unaryOp{"rank", integer}
	// DenseRank of the row within its window, without gaps.
	DenseRank sql.WindowOp = unaryOp{"dense_rank", integer}
	// First value of the window.
	First sql.WindowOp = unaryOp{"first", sameType}
	// Last value of the window.
	Last sql.WindowOp = unaryOp{"last", sameType}
)

// Shift moves values by a number of rows within the window.
type Shift struct {
	Periods int
}

func (s Shift) String() string {
	return fmt.Sprintf("shift(%d)", s.Periods)
}

// OutputType implements the sql.WindowOp interface.
func (Shift) OutputType(t sql.Type) (sql.Type, error) {
	return t, nil
}

// Diff is the difference between a value and the value a number of rows
// before it.
type Diff struct {
	Periods int
}

func (d Diff) String() string {
	return fmt.Sprintf("diff(%d)", d.Periods)
}

// OutputType implements the sql.WindowOp interface.
func (Diff) OutputType(t sql.Type) (sql.Type, error) {
	return numeric(t)
}

// IsAggregate returns whether the operator can be used in an aggregation.
func IsAggregate(op sql.WindowOp) bool {
	_, ok := op.(AggregateOp)
	return ok
}
