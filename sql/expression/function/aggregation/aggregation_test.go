package aggregation

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/frameql/lazyframe/sql"
	"github.com/frameql/lazyframe/sql/expression"
)

var schema = sql.Schema{
	{ID: "i", Type: sql.Int64},
	{ID: "f", Type: sql.Float64},
	{ID: "s", Type: sql.String},
	{ID: "a", Type: sql.NewArray(sql.String)},
}

func TestUnaryType(t *testing.T) {
	var testCases = []struct {
		op       AggregateOp
		col      string
		expected sql.Type
		err      bool
	}{
		{Sum, "i", sql.Int64, false},
		{Sum, "f", sql.Float64, false},
		{Sum, "s", nil, true},
		{Mean, "i", sql.Float64, false},
		{Min, "s", sql.String, false},
		{Max, "a", nil, true},
		{Count, "s", sql.Int64, false},
		{AnyValue, "a", sql.NewArray(sql.String), false},
	}

	for _, tt := range testCases {
		t.Run(tt.op.String()+"_"+tt.col, func(t *testing.T) {
			require := require.New(t)
			typ, err := NewUnary(tt.op, expression.NewColumnRef(tt.col)).Type(schema)
			if tt.err {
				require.Error(err)
				require.True(sql.ErrInvalidType.Is(err))
				return
			}
			require.NoError(err)
			require.True(tt.expected.Equals(typ))
		})
	}
}

func TestUnaryUnboundColumn(t *testing.T) {
	_, err := NewUnary(Sum, expression.NewColumnRef("x")).Type(schema)
	require.True(t, sql.ErrColumnNotFound.Is(err))
}

func TestWindowOps(t *testing.T) {
	require := require.New(t)

	typ, err := Rank.OutputType(sql.String)
	require.NoError(err)
	require.Equal(sql.Int64, typ)

	typ, err = Shift{Periods: 1}.OutputType(sql.String)
	require.NoError(err)
	require.Equal(sql.String, typ)

	_, err = Diff{Periods: 1}.OutputType(sql.String)
	require.Error(err)

	require.Equal("shift(-2)", Shift{Periods: -2}.String())
	require.True(IsAggregate(Sum))
	require.False(IsAggregate(First))
	require.False(IsAggregate(Diff{Periods: 1}))
}

func TestAggregationString(t *testing.T) {
	require := require.New(t)

	agg := NewUnary(Mean, expression.NewColumnRef("f"))
	require.Equal("mean(f)", agg.String())
	require.Equal("mean", agg.Op())
	require.Equal("size()", NewSize().String())

	typ, err := NewSize().Type(schema)
	require.NoError(err)
	require.Equal(sql.Int64, typ)

	renamed, err := agg.WithChildren(expression.NewColumnRef("i"))
	require.NoError(err)
	require.Equal("mean(i)", renamed.String())
}
