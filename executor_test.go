package lazyframe

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	errors "gopkg.in/src-d/go-errors.v1"

	"github.com/frameql/lazyframe/sql"
	"github.com/frameql/lazyframe/sql/analyzer"
	"github.com/frameql/lazyframe/sql/expression"
	"github.com/frameql/lazyframe/sql/plan"
)

type compiled struct {
	mode      string
	plan      sql.Node
	overrides map[string]string
	n         int
}

type fakeCompiler struct {
	compiled []compiled
}

func (c *fakeCompiler) record(mode string, p sql.Node, overrides map[string]string, n int) string {
	c.compiled = append(c.compiled, compiled{mode, p, overrides, n})
	return fmt.Sprintf("%s %x", mode, p.Hash())
}

func (c *fakeCompiler) last() compiled {
	return c.compiled[len(c.compiled)-1]
}

func (c *fakeCompiler) CompileOrdered(p sql.Node, overrides map[string]string) (string, error) {
	return c.record("ordered", p, overrides, 0), nil
}

func (c *fakeCompiler) CompileUnordered(p sql.Node, overrides map[string]string) (string, error) {
	return c.record("unordered", p, overrides, 0), nil
}

func (c *fakeCompiler) CompileRaw(p sql.Node) (string, sql.PhysicalSchema, *sql.RowOrdering, error) {
	return c.record("raw", p, nil, 0), p.Schema().Physical(), nil, nil
}

func (c *fakeCompiler) CompilePeek(p sql.Node, n int) (string, error) {
	return c.record("peek", p, nil, n), nil
}

type submitted struct {
	query  string
	config sql.JobConfig
}

type fakeClient struct {
	storage   *fakeStorage
	submitted []submitted
	rows      []sql.Row
	err       error
}

func (c *fakeClient) Submit(_ context.Context, query string, config sql.JobConfig) (sql.Job, error) {
	c.submitted = append(c.submitted, submitted{query, config})
	return &fakeJob{
		id:     fmt.Sprintf("job_%d", len(c.submitted)),
		config: config,
		rows:   c.rows,
		err:    c.err,
	}, nil
}

func (c *fakeClient) GetTable(_ context.Context, ref sql.TableRef) (*sql.TableMetadata, error) {
	meta, ok := c.storage.tables[ref]
	if !ok {
		return nil, fmt.Errorf("table %s not found", ref)
	}
	return &meta, nil
}

func (c *fakeClient) last() submitted {
	return c.submitted[len(c.submitted)-1]
}

type fakeJob struct {
	id     string
	config sql.JobConfig
	rows   []sql.Row
	err    error
}

func (j *fakeJob) ID() string { return j.id }

func (j *fakeJob) Wait(context.Context) (sql.RowIter, error) {
	if j.err != nil {
		return nil, j.err
	}
	return sql.RowsToRowIter(j.rows...), nil
}

func (j *fakeJob) Destination() *sql.TableRef {
	if j.config.Destination != nil {
		return j.config.Destination
	}
	return &sql.TableRef{Project: "p", Dataset: "_anonymous", Table: j.id}
}

func (j *fakeJob) Config() sql.JobConfig { return j.config }

func (j *fakeJob) Stats() sql.JobStats {
	return sql.JobStats{BytesProcessed: 10, SlotMillis: 2}
}

type fakeStorage struct {
	tables  map[sql.TableRef]sql.TableMetadata
	created []sql.TableMetadata
}

func (s *fakeStorage) CreateTempTable(_ context.Context, schema sql.PhysicalSchema, cluster []string) (sql.TableRef, error) {
	ref := sql.TableRef{Project: "p", Dataset: "_session", Table: fmt.Sprintf("tmp_%d", len(s.created))}
	meta := sql.TableMetadata{Ref: ref, Schema: schema, ClusterColumns: cluster}
	s.tables[ref] = meta
	s.created = append(s.created, meta)
	return ref, nil
}

func newExecutor(t *testing.T, cfg Config) (*Executor, *fakeCompiler, *fakeClient, *fakeStorage) {
	t.Helper()
	compiler := new(fakeCompiler)
	storage := &fakeStorage{tables: make(map[sql.TableRef]sql.TableMetadata)}
	client := &fakeClient{storage: storage}

	e, err := NewExecutor(compiler, client, storage, cfg)
	require.NoError(t, err)
	return e, compiler, client, storage
}

func readTable(t *testing.T, name string) *plan.ReadTable {
	t.Helper()
	n, err := plan.NewReadTable(plan.TableSource{
		Table: sql.TableMetadata{
			Ref: sql.TableRef{Project: "p", Dataset: "d", Table: name},
			Schema: sql.PhysicalSchema{
				{Name: "a", Type: sql.Int64},
				{Name: "b", Type: sql.String},
			},
		},
	}, sql.Schema{{ID: "a", Type: sql.Int64}, {ID: "b", Type: sql.String}}, "")
	require.NoError(t, err)
	return n
}

func readLocal(t *testing.T) *plan.ReadLocal {
	t.Helper()
	n, err := plan.NewReadLocalFromRows(
		sql.Schema{{ID: "a", Type: sql.Int64}, {ID: "b", Type: sql.String}},
		[]sql.Row{
			sql.NewRow(int64(1), "x"),
			sql.NewRow(int64(2), "y"),
			sql.NewRow(int64(3), "z"),
		},
		"",
	)
	require.NoError(t, err)
	return n
}

func filter(t *testing.T, child sql.Node, min int64) *plan.Filter {
	t.Helper()
	n, err := plan.NewFilter(expression.NewGreaterThan(
		expression.NewColumnRef("a"),
		expression.NewLiteral(min, sql.Int64),
	), child)
	require.NoError(t, err)
	return n
}

func concat(t *testing.T, children ...sql.Node) *plan.Concat {
	t.Helper()
	n, err := plan.NewConcat(children...)
	require.NoError(t, err)
	return n
}

func drain(t *testing.T, res *ExecuteResult) []sql.Row {
	t.Helper()
	rows, err := sql.RowIterToRows(res.Rows)
	require.NoError(t, err)
	return rows
}

func TestCacheWithClusterColumns(t *testing.T) {
	require := require.New(t)
	e, comp, client, storage := newExecutor(t, DefaultConfig())
	ctx := sql.NewEmptyContext()

	f := filter(t, readTable(t, "t"), 1)
	require.NoError(e.CacheWithClusterColumns(ctx, f, []string{"a"}))

	require.Len(storage.created, 1)
	require.Equal([]string{"a"}, storage.created[0].ClusterColumns)
	require.Equal("raw", comp.last().mode)

	require.Len(client.submitted, 1)
	config := client.last().config
	require.Equal(&storage.created[0].Ref, config.Destination)
	require.Equal("cached", config.Labels[APILabel])

	cached, ok := e.Cached(f)
	require.True(ok)
	require.Same(f, cached.Original)
	require.Equal(storage.created[0].Ref, cached.Table.Ref)
}

func TestCachedPlansAreReused(t *testing.T) {
	require := require.New(t)
	e, comp, _, storage := newExecutor(t, DefaultConfig())
	ctx := sql.NewEmptyContext()

	f := filter(t, readTable(t, "t"), 1)
	root := concat(t, f, f)
	require.NoError(e.CacheWithClusterColumns(ctx, f, nil))

	_, err := e.Execute(ctx, root, ExecuteOptions{Ordered: true})
	require.NoError(err)
	first := comp.last()
	require.Equal("ordered", first.mode)
	require.IsType(&plan.CachedTable{}, first.plan.Children()[0])
	require.IsType(&plan.CachedTable{}, first.plan.Children()[1])

	_, err = e.Execute(ctx, concat(t, filter(t, readTable(t, "t"), 1), f), ExecuteOptions{Ordered: true})
	require.NoError(err)
	require.Equal(first.plan.Hash(), comp.last().plan.Hash())
	require.Len(storage.created, 1)
}

func TestRecachingReplacesMaterialization(t *testing.T) {
	require := require.New(t)
	e, _, _, storage := newExecutor(t, DefaultConfig())
	ctx := sql.NewEmptyContext()

	f := filter(t, readTable(t, "t"), 1)
	require.NoError(e.CacheWithClusterColumns(ctx, f, nil))
	require.NoError(e.CacheWithClusterColumns(ctx, f, nil))

	require.Len(storage.created, 2)
	cached, ok := e.Cached(f)
	require.True(ok)
	require.Equal(storage.created[1].Ref, cached.Table.Ref)
}

func TestCachedPlansRespectLiteralTypes(t *testing.T) {
	require := require.New(t)
	e, _, _, _ := newExecutor(t, DefaultConfig())
	ctx := sql.NewEmptyContext()

	constant := func(typ sql.Type) sql.Node {
		n, err := plan.NewProjection([]plan.Assignment{
			plan.NewAssignment(expression.NewLiteral(int64(5), typ), "x"),
		}, readTable(t, "t"))
		require.NoError(err)
		return n
	}

	require.NoError(e.CacheWithClusterColumns(ctx, constant(sql.Int64), nil))

	optimized, err := e.OptimizedPlan(constant(sql.Float64))
	require.NoError(err)
	require.IsType(&plan.Projection{}, optimized)
	require.Equal(sql.Schema{{ID: "x", Type: sql.Float64}}, optimized.Schema())

	optimized, err = e.OptimizedPlan(constant(sql.Int64))
	require.NoError(err)
	require.IsType(&plan.CachedTable{}, optimized)
}

func TestClusterColumnSelection(t *testing.T) {
	require := require.New(t)

	schema := sql.PhysicalSchema{
		{Name: "a", Type: sql.Int64},
		{Name: "c", Type: sql.Float64},
		{Name: "b", Type: sql.String},
	}
	require.Equal([]string{"a", "b"}, SelectClusterColumns(schema, []string{"c", "a", "z", "b"}, 4))
	require.Equal([]string{"a"}, SelectClusterColumns(schema, []string{"c", "a", "z", "b"}, 1))
	require.Empty(SelectClusterColumns(schema, nil, 4))

	e, _, _, _ := newExecutor(t, DefaultConfig())
	e.ClusterColumnSelector = func(_ sql.PhysicalSchema, _ []string, max int) []string {
		return make([]string, max+1)
	}
	err := e.CacheWithClusterColumns(sql.NewEmptyContext(), readTable(t, "t"), nil)
	require.Error(err)
	require.True(sql.ErrTooManyClusterColumns.Is(err))
}

func TestSimplify(t *testing.T) {
	require := require.New(t)
	cfg := DefaultConfig()
	cfg.QueryComplexityLimit = 100
	e, _, _, storage := newExecutor(t, cfg)
	ctx := sql.NewEmptyContext()

	f := filter(t, readTable(t, "t"), 1)
	root := concat(t, f, f)
	require.Equal(int64(135), root.PlanningComplexity())

	require.NoError(e.Simplify(ctx, root))
	require.Len(storage.created, 1)
	_, ok := e.Cached(f)
	require.True(ok)

	optimized, err := e.OptimizedPlan(root)
	require.NoError(err)
	require.Equal(int64(63), optimized.PlanningComplexity())

	require.NoError(e.Simplify(ctx, root))
	require.Len(storage.created, 1)
}

func TestSimplifyBudget(t *testing.T) {
	var testCases = []struct {
		name       string
		factorings int
		created    int
	}{
		{"no budget", 0, 0},
		{"budget exhausted", 1, 1},
		{"nothing left to factor", 5, 2},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			cfg := DefaultConfig()
			cfg.QueryComplexityLimit = 10
			cfg.MaxSubtreeFactorings = tt.factorings
			e, _, _, storage := newExecutor(t, cfg)

			left, right := readTable(t, "t1"), readTable(t, "t2")
			root := concat(t, left, right)
			require.Equal(int64(91), root.PlanningComplexity())

			require.NoError(e.Simplify(sql.NewEmptyContext(), root))
			require.Len(storage.created, tt.created)

			if tt.created > 0 {
				_, ok := e.Cached(left)
				require.True(ok)
			}
		})
	}
}

func TestExecuteWithMultiQuery(t *testing.T) {
	require := require.New(t)
	cfg := DefaultConfig()
	cfg.QueryComplexityLimit = 100
	cfg.EnableMultiQueryExecution = true
	e, comp, client, storage := newExecutor(t, cfg)
	client.rows = []sql.Row{sql.NewRow(int64(2), "b")}

	f := filter(t, readTable(t, "t"), 1)
	res, err := e.Execute(sql.NewEmptyContext(), concat(t, f, f), ExecuteOptions{})
	require.NoError(err)
	require.Equal([]sql.Row{sql.NewRow(int64(2), "b")}, drain(t, res))

	require.Len(storage.created, 1)
	require.Len(client.submitted, 2)
	require.Equal("unordered", comp.last().mode)
	require.Equal(int64(63), comp.last().plan.PlanningComplexity())
}

func TestExecuteWithExplicitDestination(t *testing.T) {
	require := require.New(t)
	e, _, client, storage := newExecutor(t, DefaultConfig())

	res, err := e.Execute(sql.NewEmptyContext(), readTable(t, "t"), ExecuteOptions{
		ColumnOverrides:        map[string]string{"a": "x"},
		UseExplicitDestination: true,
	})
	require.NoError(err)
	require.NoError(res.Rows.Close())

	require.Equal([]string{"x", "b"}, res.Schema.Names())
	require.Len(storage.created, 1)
	require.Equal([]string{"x", "b"}, storage.created[0].Schema.Names())
	require.Equal(&storage.created[0].Ref, client.last().config.Destination)
	require.Equal(storage.created[0].Ref, *res.Job.Destination())
}

func TestHeadWithStaticRowCount(t *testing.T) {
	require := require.New(t)
	e, comp, client, storage := newExecutor(t, DefaultConfig())
	client.rows = []sql.Row{
		sql.NewRow(int64(1), "x"),
		sql.NewRow(int64(2), "y"),
		sql.NewRow(int64(3), "z"),
	}

	local := readLocal(t)
	res, err := e.Head(sql.NewEmptyContext(), local, 5)
	require.NoError(err)
	require.Len(drain(t, res), 3)

	require.Equal("ordered", comp.last().mode)
	require.Equal(local.Hash(), comp.last().plan.Hash())
	require.Empty(storage.created)
}

func TestHeadStrictCachesWithOffsets(t *testing.T) {
	require := require.New(t)
	e, comp, _, storage := newExecutor(t, DefaultConfig())
	ctx := sql.NewEmptyContext()

	rt := readTable(t, "t")
	_, err := e.Head(ctx, rt, 5)
	require.NoError(err)

	require.Len(storage.created, 1)
	offsets := analyzer.OffsetsID(rt)
	require.Equal([]string{offsets}, storage.created[0].ClusterColumns)
	require.Equal([]string{offsets, "a", "b"}, storage.created[0].Schema.Names())

	require.Len(comp.compiled, 2)
	require.Equal("unordered", comp.compiled[0].mode)
	require.IsType(&plan.PromoteOffsets{}, comp.compiled[0].plan)

	head := comp.last()
	require.Equal("ordered", head.mode)
	require.IsType(&plan.Projection{}, head.plan)
	require.Equal(rt.Schema(), head.plan.Schema())

	cached, ok := e.Cached(rt)
	require.True(ok)
	require.True(analyzer.CanFastHead(cached))

	_, err = e.Head(ctx, rt, 7)
	require.NoError(err)
	require.Len(storage.created, 1)
}

func TestHeadLocalOverLimitCaches(t *testing.T) {
	require := require.New(t)
	e, comp, _, storage := newExecutor(t, DefaultConfig())

	local := readLocal(t)
	_, err := e.Head(sql.NewEmptyContext(), local, 2)
	require.NoError(err)

	require.Len(storage.created, 1)
	var leaf sql.Node = comp.last().plan
	for len(leaf.Children()) > 0 {
		leaf = leaf.Children()[0]
	}
	require.IsType(&plan.CachedTable{}, leaf)
}

func TestHeadNonStrict(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StrictOrdering = false

	t.Run("peeks unordered plans", func(t *testing.T) {
		require := require.New(t)
		e, comp, client, storage := newExecutor(t, cfg)

		_, err := e.Head(sql.NewEmptyContext(), readTable(t, "t"), 5)
		require.NoError(err)

		require.Equal("peek", comp.last().mode)
		require.Equal(5, comp.last().n)
		require.Empty(storage.created)
		require.Equal("unordered", client.last().config.Labels[ModeLabel])
	})

	t.Run("explicit ordering is honoured", func(t *testing.T) {
		require := require.New(t)
		e, comp, _, storage := newExecutor(t, cfg)

		ordered, err := plan.NewOrderBy([]sql.OrderingExpression{
			sql.NewOrderingExpression(expression.NewColumnRef("a")),
		}, readTable(t, "t"))
		require.NoError(err)

		_, err = e.Head(sql.NewEmptyContext(), ordered, 5)
		require.NoError(err)

		require.Equal("ordered", comp.last().mode)
		require.IsType(&plan.Projection{}, comp.last().plan)
		require.Empty(storage.created)
	})
}

func TestCacheWithOffsetsRequiresStrictOrdering(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StrictOrdering = false
	e, _, _, _ := newExecutor(t, cfg)

	err := e.CacheWithOffsets(sql.NewEmptyContext(), readTable(t, "t"))
	require.Error(t, err)
	require.True(t, sql.ErrOffsetCachingRequiresStrictOrdering.Is(err))
}

func TestRowCount(t *testing.T) {
	require := require.New(t)
	e, comp, client, _ := newExecutor(t, DefaultConfig())
	ctx := sql.NewEmptyContext()

	count, err := e.RowCount(ctx, readLocal(t))
	require.NoError(err)
	require.Equal(int64(3), count)
	require.Empty(client.submitted)

	client.rows = []sql.Row{sql.NewRow(int64(42))}
	count, err = e.RowCount(ctx, readTable(t, "t"))
	require.NoError(err)
	require.Equal(int64(42), count)
	require.Equal("unordered", comp.last().mode)
	require.IsType(&plan.RowCount{}, comp.last().plan)

	client.rows = nil
	_, err = e.RowCount(ctx, readTable(t, "t"))
	require.Error(err)
	require.True(ErrEmptyRowCount.Is(err))
}

func TestComplexityErrors(t *testing.T) {
	require := require.New(t)
	e, _, client, _ := newExecutor(t, DefaultConfig())
	ctx := sql.NewEmptyContext()
	rt := readTable(t, "t")

	client.err = sql.ErrResourcesExceeded.New("too many terms")
	_, err := e.Execute(ctx, rt, ExecuteOptions{})
	require.Error(err)
	require.True(sql.ErrQueryComplexity.Is(err))

	boom := errors.NewKind("boom").New()
	client.err = boom
	_, err = e.Execute(ctx, rt, ExecuteOptions{})
	require.Equal(boom, err)
	require.False(sql.ErrQueryComplexity.Is(err))
}

func TestPeek(t *testing.T) {
	require := require.New(t)
	e, comp, _, _ := newExecutor(t, DefaultConfig())
	rt := readTable(t, "t")

	ctx := sql.NewEmptyContext()
	_, err := e.Peek(ctx, filter(t, rt, 1), 10)
	require.NoError(err)
	require.Empty(ctx.Warnings())
	require.Equal("peek", comp.last().mode)
	require.Equal(10, comp.last().n)

	promoted, err := plan.NewPromoteOffsets("idx", rt)
	require.NoError(err)

	ctx = sql.NewEmptyContext()
	_, err = e.Peek(ctx, promoted, 10)
	require.NoError(err)
	warnings := ctx.Warnings()
	require.Len(warnings, 1)
	require.Equal(WarnInefficientPeek, warnings[0].Code)
	require.Equal("peek", comp.last().mode)
}

func TestExportToTable(t *testing.T) {
	var testCases = []struct {
		ifExists    IfExists
		disposition sql.WriteDisposition
	}{
		{IfExistsFail, sql.WriteEmpty},
		{IfExistsReplace, sql.WriteTruncate},
		{IfExistsAppend, sql.WriteAppend},
	}

	for _, tt := range testCases {
		t.Run(tt.ifExists.String(), func(t *testing.T) {
			require := require.New(t)
			e, comp, client, _ := newExecutor(t, DefaultConfig())

			dest := sql.TableRef{Project: "p", Dataset: "d", Table: "out"}
			overrides := map[string]string{"a": "x"}
			job, err := e.ExportToTable(sql.NewEmptyContext(), readTable(t, "t"), dest, ExportTableOptions{
				ColumnOverrides: overrides,
				IfExists:        tt.ifExists,
				ClusterColumns:  []string{"x"},
			})
			require.NoError(err)
			require.Equal(dest, *job.Destination())

			config := client.last().config
			require.Equal(tt.disposition, config.WriteDisposition)
			require.Equal([]string{"x"}, config.ClusteringFields)
			require.Equal(sql.PhysicalSchema{
				{Name: "x", Type: sql.Int64},
				{Name: "b", Type: sql.String},
			}, config.DestinationSchema)
			require.Equal("unordered", comp.last().mode)
			require.Equal(overrides, comp.last().overrides)
		})
	}
}

func TestExportToExternalStore(t *testing.T) {
	require := require.New(t)
	e, _, client, storage := newExecutor(t, DefaultConfig())
	ctx := sql.NewEmptyContext()

	_, err := e.ExportToExternalStore(ctx, readTable(t, "t"), "gs://bucket/out-*.csv", CSV, ExportStoreOptions{
		Options: map[string]interface{}{"header": true, "field_delimiter": ","},
	})
	require.NoError(err)

	require.Len(storage.created, 1)
	require.Len(client.submitted, 2)
	require.Equal(&storage.created[0].Ref, client.submitted[0].config.Destination)

	export := client.last()
	require.Equal(
		"EXPORT DATA OPTIONS(uri = 'gs://bucket/out-*.csv', format = 'CSV', "+
			"field_delimiter = ',', header = TRUE) AS SELECT * FROM `p._session.tmp_0`",
		export.query,
	)
	require.Equal("dataframe-to_csv", export.config.Labels[APILabel])

	_, err = e.ExportToExternalStore(ctx, readTable(t, "t"), "gs://bucket/x", ExportFormat("avro"), ExportStoreOptions{})
	require.Error(err)
	require.True(ErrUnsupportedExportFormat.Is(err))
}

func TestDryRun(t *testing.T) {
	require := require.New(t)
	e, comp, client, _ := newExecutor(t, DefaultConfig())

	_, err := e.DryRun(sql.NewEmptyContext(), readTable(t, "t"), true)
	require.NoError(err)
	require.True(client.last().config.DryRun)
	require.Equal("ordered", comp.last().mode)
	require.Equal(int64(0), e.Metrics().ExecutionCount())
}

func TestJobConfig(t *testing.T) {
	require := require.New(t)

	limit := int64(1 << 30)
	cfg := DefaultConfig()
	cfg.MaximumBytesBilled = &limit
	e, _, client, _ := newExecutor(t, cfg)

	ctx := sql.NewContext(context.Background(), sql.WithAPIName("dataframe-to_pandas"))
	_, err := e.Execute(ctx, readTable(t, "t"), ExecuteOptions{})
	require.NoError(err)

	config := client.last().config
	require.Equal(&limit, config.MaximumBytesBilled)
	require.Equal("dataframe-to_pandas", config.Labels[APILabel])
	_, ok := config.Labels[ModeLabel]
	require.False(ok)

	require.Equal(int64(1), e.Metrics().ExecutionCount())
	require.Equal(int64(10), e.Metrics().BytesProcessed())
	require.Equal(int64(2), e.Metrics().SlotMillis())
}

func TestCacheEviction(t *testing.T) {
	require := require.New(t)
	cfg := DefaultConfig()
	cfg.CacheSize = 1
	e, _, _, _ := newExecutor(t, cfg)
	ctx := sql.NewEmptyContext()

	f1 := filter(t, readTable(t, "t"), 1)
	f2 := filter(t, readTable(t, "t"), 2)

	require.NoError(e.CacheWithClusterColumns(ctx, f1, nil))
	require.NoError(e.CacheWithClusterColumns(ctx, f2, nil))

	_, ok := e.Cached(f1)
	require.False(ok)
	_, ok = e.Cached(f2)
	require.True(ok)

	optimized, err := e.OptimizedPlan(f1)
	require.NoError(err)
	require.Same(f1, optimized)
}

func TestCacheWithSessionAwareness(t *testing.T) {
	rt := readTable(t, "t")
	renamed, err := plan.NewProjection([]plan.Assignment{
		plan.NewAssignment(expression.NewColumnRef("a"), "x"),
		plan.NewAssignment(expression.NewColumnRef("b"), "b"),
	}, rt)
	require.NoError(t, err)

	root, err := plan.NewFilter(expression.NewAnd(
		expression.NewGreaterThan(expression.NewColumnRef("x"), expression.NewLiteral(int64(5), sql.Int64)),
		expression.NewEquals(expression.NewColumnRef("b"), expression.NewLiteral("k", sql.String)),
	), renamed)
	require.NoError(t, err)

	t.Run("shared descendant clustered on filters", func(t *testing.T) {
		require := require.New(t)
		e, _, _, storage := newExecutor(t, DefaultConfig())

		session := sql.NewSession()
		session.Track(root)
		session.Track(filter(t, rt, 2))
		ctx := sql.NewContext(context.Background(), sql.WithSession(session))

		require.NoError(e.CacheWithSessionAwareness(ctx, root))
		_, ok := e.Cached(rt)
		require.True(ok)
		require.Len(storage.created, 1)
		require.Equal([]string{"a", "b"}, storage.created[0].ClusterColumns)
	})

	t.Run("strict ordering caches with offsets", func(t *testing.T) {
		require := require.New(t)
		e, _, _, storage := newExecutor(t, DefaultConfig())

		session := sql.NewSession()
		session.Track(root)
		ctx := sql.NewContext(context.Background(), sql.WithSession(session))

		require.NoError(e.CacheWithSessionAwareness(ctx, root))
		_, ok := e.Cached(root)
		require.True(ok)
		require.Equal([]string{analyzer.OffsetsID(root)}, storage.created[0].ClusterColumns)
	})

	t.Run("partial ordering caches without clustering", func(t *testing.T) {
		require := require.New(t)
		cfg := DefaultConfig()
		cfg.StrictOrdering = false
		e, _, _, storage := newExecutor(t, cfg)

		session := sql.NewSession()
		session.Track(root)
		ctx := sql.NewContext(context.Background(), sql.WithSession(session))

		require.NoError(e.CacheWithSessionAwareness(ctx, root))
		_, ok := e.Cached(root)
		require.True(ok)
		require.Empty(storage.created[0].ClusterColumns)
	})
}

func TestToSQL(t *testing.T) {
	require := require.New(t)
	e, comp, _, _ := newExecutor(t, DefaultConfig())
	rt := readTable(t, "t")

	overrides := map[string]string{"a": "x"}
	_, err := e.ToSQL(rt, ToSQLOptions{ColumnOverrides: overrides, OffsetColumn: "idx"})
	require.NoError(err)

	last := comp.last()
	require.Equal("unordered", last.mode)
	promoted, ok := last.plan.(*plan.PromoteOffsets)
	require.True(ok)
	require.Equal(analyzer.OffsetsID(rt), promoted.ColumnID)
	require.Equal(map[string]string{"a": "x", promoted.ColumnID: "idx"}, last.overrides)
	require.Len(overrides, 1)

	require.NoError(e.CacheWithClusterColumns(sql.NewEmptyContext(), rt, nil))

	_, err = e.ToSQL(rt, ToSQLOptions{Ordered: true})
	require.NoError(err)
	require.IsType(&plan.CachedTable{}, comp.last().plan)

	_, err = e.ToSQL(rt, ToSQLOptions{Ordered: true, DisableCache: true})
	require.NoError(err)
	require.Same(rt, comp.last().plan)
}

func TestRowIterEOF(t *testing.T) {
	require := require.New(t)
	e, _, client, _ := newExecutor(t, DefaultConfig())
	client.rows = []sql.Row{sql.NewRow(int64(1), "x")}

	res, err := e.Peek(sql.NewEmptyContext(), readTable(t, "t"), 1)
	require.NoError(err)

	row, err := res.Rows.Next()
	require.NoError(err)
	require.Equal(sql.NewRow(int64(1), "x"), row)

	_, err = res.Rows.Next()
	require.Equal(io.EOF, err)
	require.NoError(res.Rows.Close())
}
