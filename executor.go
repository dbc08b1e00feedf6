package lazyframe

import (
	lru "github.com/hashicorp/golang-lru"
	opentracing "github.com/opentracing/opentracing-go"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	errors "gopkg.in/src-d/go-errors.v1"

	"github.com/frameql/lazyframe/sql"
	"github.com/frameql/lazyframe/sql/analyzer"
	"github.com/frameql/lazyframe/sql/expression"
	"github.com/frameql/lazyframe/sql/plan"
)

// Labels attached to the jobs run by the executor.
const (
	APILabel  = "lazyframe-api"
	ModeLabel = "lazyframe-mode"
)

// WarnInefficientPeek is the code of the warning emitted when a peek has to
// evaluate the whole plan.
const WarnInefficientPeek = 1701

var (
	// ErrNoDestination is returned when a job did not report the table its
	// results were written to.
	ErrNoDestination = errors.NewKind("job %s has no destination table")

	// ErrEmptyRowCount is returned when a row count query returns no rows.
	ErrEmptyRowCount = errors.NewKind("row count query returned no rows")
)

// ClusterColumnSelector chooses the cluster columns of a materialized table
// among the given candidates. It must return at most max columns.
type ClusterColumnSelector func(schema sql.PhysicalSchema, candidates []string, max int) []string

// SelectClusterColumns keeps the candidates that are columns of the schema
// with a clusterable type, up to max.
func SelectClusterColumns(schema sql.PhysicalSchema, candidates []string, max int) []string {
	var cols []string
	for _, c := range candidates {
		if len(cols) >= max {
			break
		}
		t, ok := schema.TypeOf(c)
		if ok && sql.IsClusterable(t) {
			cols = append(cols, c)
		}
	}
	return cols
}

// ExecuteResult is the result of running a plan.
type ExecuteResult struct {
	// Schema of the rows, with column overrides applied.
	Schema sql.Schema
	// Rows of the result. They must be closed.
	Rows sql.RowIter
	// Job that produced the rows.
	Job sql.Job
}

// ToSQLOptions configures the rendering of a plan to SQL.
type ToSQLOptions struct {
	// Ordered requires the statement to return the rows in order.
	Ordered bool
	// ColumnOverrides renames output columns.
	ColumnOverrides map[string]string
	// OffsetColumn, if not empty, adds a column with this name holding the
	// offset of every row.
	OffsetColumn string
	// DisableCache renders the plan without substituting cached subtrees.
	DisableCache bool
}

// ExecuteOptions configures the execution of a plan.
type ExecuteOptions struct {
	Ordered         bool
	ColumnOverrides map[string]string
	// UseExplicitDestination writes the results to a new session table
	// instead of an anonymous one.
	UseExplicitDestination bool
}

// ExportTableOptions configures an export to a table.
type ExportTableOptions struct {
	ColumnOverrides map[string]string
	IfExists        IfExists
	ClusterColumns  []string
}

// ExportStoreOptions configures an export to an external store.
type ExportStoreOptions struct {
	ColumnOverrides map[string]string
	// Options are extra options of the export statement.
	Options map[string]interface{}
}

// Executor runs plans on a remote engine. It keeps every compiled query
// under a complexity ceiling by materializing subtrees into session tables,
// and reuses prior materializations for structurally identical subtrees.
//
// An Executor must not be used from several goroutines at once.
type Executor struct {
	Config
	// ClusterColumnSelector picks the cluster columns of materializations.
	ClusterColumnSelector ClusterColumnSelector

	compiler sql.Compiler
	client   sql.Client
	storage  sql.StorageManager
	cache    *lru.Cache
	metrics  *Metrics
}

// NewExecutor creates a new executor with the given collaborators.
func NewExecutor(
	compiler sql.Compiler,
	client sql.Client,
	storage sql.StorageManager,
	cfg Config,
) (*Executor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Executor{
		Config:                cfg,
		ClusterColumnSelector: SelectClusterColumns,
		compiler:              compiler,
		client:                client,
		storage:               storage,
		metrics:               NewMetrics(),
	}

	cache, err := lru.NewWithEvict(cfg.CacheSize, e.onEvict)
	if err != nil {
		return nil, err
	}
	e.cache = cache

	return e, nil
}

// Metrics returns the statistics of the jobs run by the executor.
func (e *Executor) Metrics() *Metrics {
	return e.metrics
}

// Log logs a message with the given fields. Messages are only visible at
// debug level unless the executor is in debug mode.
func (e *Executor) Log(fields logrus.Fields, msg string, args ...interface{}) {
	entry := logrus.WithFields(fields)
	if e != nil && e.Debug {
		entry.Infof(msg, args...)
		return
	}
	entry.Debugf(msg, args...)
}

func (e *Executor) onEvict(key, value interface{}) {
	if c, ok := value.(*plan.CachedTable); ok {
		e.Log(logrus.Fields{
			HashLogField:  key,
			TableLogField: c.Table.Ref.String(),
		}, "evicted materialization")
	}
}

// lookup returns the materialization of a subtree, refreshing its recency.
func (e *Executor) lookup(hash uint64) (sql.Node, bool) {
	v, ok := e.cache.Get(hash)
	if !ok {
		return nil, false
	}
	return v.(*plan.CachedTable), true
}

// peek returns the materialization of a subtree, leaving its recency as is.
func (e *Executor) peek(hash uint64) (sql.Node, bool) {
	v, ok := e.cache.Peek(hash)
	if !ok {
		return nil, false
	}
	return v.(*plan.CachedTable), true
}

// Cached returns the materialization registered for the subtree, if any.
func (e *Executor) Cached(node sql.Node) (*plan.CachedTable, bool) {
	v, ok := e.cache.Peek(node.Hash())
	if !ok {
		return nil, false
	}
	return v.(*plan.CachedTable), true
}

func (e *Executor) register(node sql.Node, cached *plan.CachedTable) {
	e.cache.Add(node.Hash(), cached)
	e.Log(logrus.Fields{
		HashLogField:       node.Hash(),
		ComplexityLogField: node.PlanningComplexity(),
		TableLogField:      cached.Table.Ref.String(),
		ClusterLogField:    cached.Table.ClusterColumns,
	}, "registered materialization")
}

// OptimizedPlan returns the plan with every materialized subtree replaced by
// a read of its table.
func (e *Executor) OptimizedPlan(node sql.Node) (sql.Node, error) {
	return analyzer.ReplaceNodes(node, e.lookup)
}

// ToSQL renders the plan as a statement for the remote engine.
func (e *Executor) ToSQL(node sql.Node, opts ToSQLOptions) (string, error) {
	overrides := opts.ColumnOverrides
	if opts.OffsetColumn != "" {
		id := analyzer.OffsetsID(node)
		withOffsets, err := plan.NewPromoteOffsets(id, node)
		if err != nil {
			return "", err
		}
		node = withOffsets

		overrides = make(map[string]string, len(opts.ColumnOverrides)+1)
		for k, v := range opts.ColumnOverrides {
			overrides[k] = v
		}
		overrides[id] = opts.OffsetColumn
	}

	if !opts.DisableCache {
		var err error
		node, err = e.OptimizedPlan(node)
		if err != nil {
			return "", err
		}
	}

	if opts.Ordered {
		return e.compiler.CompileOrdered(node, overrides)
	}
	return e.compiler.CompileUnordered(node, overrides)
}

// Execute runs the plan. If multi-query execution is enabled, the plan is
// simplified first.
func (e *Executor) Execute(ctx *sql.Context, node sql.Node, opts ExecuteOptions) (*ExecuteResult, error) {
	span, ctx := ctx.Span("lazyframe.Execute")
	defer span.Finish()

	if e.EnableMultiQueryExecution {
		if err := e.Simplify(ctx, node); err != nil {
			return nil, err
		}
	}

	query, err := e.ToSQL(node, ToSQLOptions{
		Ordered:         opts.Ordered,
		ColumnOverrides: opts.ColumnOverrides,
	})
	if err != nil {
		return nil, err
	}

	schema, err := renameColumns(node.Schema(), opts.ColumnOverrides)
	if err != nil {
		return nil, err
	}

	var config sql.JobConfig
	if opts.UseExplicitDestination {
		dest, err := e.storage.CreateTempTable(ctx, schema.Physical(), nil)
		if err != nil {
			return nil, err
		}
		config.Destination = &dest
	}

	rows, job, err := e.runQuery(ctx, query, config, "")
	if err != nil {
		return nil, err
	}

	return &ExecuteResult{Schema: schema, Rows: sql.NewConvertRowIter(schema, rows), Job: job}, nil
}

// ExportToTable writes the rows of the plan to the given table.
func (e *Executor) ExportToTable(
	ctx *sql.Context,
	node sql.Node,
	dest sql.TableRef,
	opts ExportTableOptions,
) (sql.Job, error) {
	span, ctx := ctx.Span("lazyframe.ExportToTable")
	defer span.Finish()

	query, err := e.ToSQL(node, ToSQLOptions{ColumnOverrides: opts.ColumnOverrides})
	if err != nil {
		return nil, err
	}

	schema, err := renameColumns(node.Schema(), opts.ColumnOverrides)
	if err != nil {
		return nil, err
	}

	rows, job, err := e.runQuery(ctx, query, sql.JobConfig{
		Destination:       &dest,
		DestinationSchema: schema.Physical(),
		WriteDisposition:  opts.IfExists.WriteDisposition(),
		ClusteringFields:  opts.ClusterColumns,
	}, "")
	if err != nil {
		return nil, err
	}

	return job, rows.Close()
}

// ExportToExternalStore writes the rows of the plan as files at the given
// uri.
func (e *Executor) ExportToExternalStore(
	ctx *sql.Context,
	node sql.Node,
	uri string,
	format ExportFormat,
	opts ExportStoreOptions,
) (sql.Job, error) {
	if err := format.validate(); err != nil {
		return nil, err
	}

	span, ctx := ctx.Span("lazyframe.ExportToExternalStore")
	defer span.Finish()

	result, err := e.Execute(ctx, node, ExecuteOptions{
		ColumnOverrides:        opts.ColumnOverrides,
		UseExplicitDestination: true,
	})
	if err != nil {
		return nil, err
	}
	if err := result.Rows.Close(); err != nil {
		return nil, err
	}

	table := result.Job.Destination()
	if table == nil {
		return nil, ErrNoDestination.New(result.Job.ID())
	}

	statement := exportDataStatement(*table, uri, format, opts.Options)
	rows, job, err := e.runQuery(ctx, statement, sql.JobConfig{}, "dataframe-to_"+string(format))
	if err != nil {
		return nil, err
	}

	return job, rows.Close()
}

// DryRun validates the plan on the remote engine without running it.
func (e *Executor) DryRun(ctx *sql.Context, node sql.Node, ordered bool) (sql.Job, error) {
	query, err := e.ToSQL(node, ToSQLOptions{Ordered: ordered})
	if err != nil {
		return nil, err
	}

	rows, job, err := e.runQuery(ctx, query, sql.JobConfig{DryRun: true}, "")
	if err != nil {
		return nil, err
	}

	return job, rows.Close()
}

// Peek returns up to n arbitrary rows of the plan.
func (e *Executor) Peek(ctx *sql.Context, node sql.Node, n int) (*ExecuteResult, error) {
	span, ctx := ctx.Span("lazyframe.Peek", opentracing.Tag{Key: "n", Value: n})
	defer span.Finish()

	optimized, err := e.OptimizedPlan(node)
	if err != nil {
		return nil, err
	}

	if !analyzer.CanFastPeek(optimized) {
		ctx.Warn(WarnInefficientPeek, "Peeking this value cannot be done efficiently.")
	}

	query, err := e.compiler.CompilePeek(optimized, n)
	if err != nil {
		return nil, err
	}

	rows, job, err := e.runQuery(ctx, query, sql.JobConfig{}, "")
	if err != nil {
		return nil, err
	}

	schema := node.Schema()
	return &ExecuteResult{Schema: schema, Rows: sql.NewConvertRowIter(schema, rows), Job: job}, nil
}

// Head returns the first n rows of the plan, in order.
//
// Plans known to have at most n rows are executed as they are. Without
// strict ordering, plans with no explicit ordering are peeked instead. In
// any other case the plan is materialized with offsets, unless its first
// rows can already be read cheaply.
func (e *Executor) Head(ctx *sql.Context, node sql.Node, n int64) (*ExecuteResult, error) {
	span, ctx := ctx.Span("lazyframe.Head", opentracing.Tag{Key: "n", Value: n})
	defer span.Finish()

	optimized, err := e.OptimizedPlan(node)
	if err != nil {
		return nil, err
	}

	if count, ok := analyzer.RowCount(optimized); ok && count <= n {
		return e.Execute(ctx, node, ExecuteOptions{Ordered: true})
	}

	if !e.StrictOrdering && !node.ExplicitlyOrdered() {
		return e.Peek(ctx, node, int(n))
	}

	if !analyzer.CanFastHead(optimized) && e.StrictOrdering {
		if err := e.CacheWithOffsets(ctx, node); err != nil {
			return nil, err
		}

		optimized, err = e.OptimizedPlan(node)
		if err != nil {
			return nil, err
		}
	}

	head, err := analyzer.HeadPlan(optimized, n)
	if err != nil {
		return nil, err
	}

	query, err := e.compiler.CompileOrdered(head, nil)
	if err != nil {
		return nil, err
	}

	rows, job, err := e.runQuery(ctx, query, sql.JobConfig{}, "")
	if err != nil {
		return nil, err
	}

	schema := node.Schema()
	return &ExecuteResult{Schema: schema, Rows: sql.NewConvertRowIter(schema, rows), Job: job}, nil
}

// RowCount returns the number of rows of the plan, running a query only if
// the count is not known in advance.
func (e *Executor) RowCount(ctx *sql.Context, node sql.Node) (int64, error) {
	optimized, err := e.OptimizedPlan(node)
	if err != nil {
		return 0, err
	}

	if count, ok := analyzer.RowCount(optimized); ok {
		return count, nil
	}

	counting, err := e.OptimizedPlan(analyzer.RowCountPlan(node))
	if err != nil {
		return 0, err
	}

	query, err := e.compiler.CompileUnordered(counting, nil)
	if err != nil {
		return 0, err
	}

	iter, _, err := e.runQuery(ctx, query, sql.JobConfig{}, "")
	if err != nil {
		return 0, err
	}

	rows, err := sql.RowIterToRows(iter)
	if err != nil {
		return 0, err
	}

	if len(rows) == 0 || len(rows[0]) == 0 {
		return 0, ErrEmptyRowCount.New()
	}

	return cast.ToInt64E(rows[0][0])
}

// Simplify materializes subtrees of the plan until its complexity is under
// the limit, nothing else is worth materializing, or the factoring budget is
// exhausted. In the last case the plan is left as complex as it is.
func (e *Executor) Simplify(ctx *sql.Context, node sql.Node) error {
	span, ctx := ctx.Span("lazyframe.Simplify")
	defer span.Finish()

	for i := 0; i < e.MaxSubtreeFactorings; i++ {
		optimized, err := e.OptimizedPlan(node)
		if err != nil {
			return err
		}

		complexity := optimized.PlanningComplexity()
		if complexity < e.QueryComplexityLimit {
			return nil
		}

		e.Log(logrus.Fields{
			HashLogField:       node.Hash(),
			ComplexityLogField: complexity,
			IterationLogField:  i,
		}, "plan too complex, factoring a subtree")

		cached, err := e.cacheMostComplexSubtree(ctx, node)
		if err != nil {
			return err
		}

		if !cached {
			return nil
		}
	}

	return nil
}

func (e *Executor) cacheMostComplexSubtree(ctx *sql.Context, node sql.Node) (bool, error) {
	target := analyzer.SelectCacheTarget(
		node,
		e.QueryComplexityLimit/500,
		e.QueryComplexityLimit,
		e.peek,
		analyzer.DefaultHeuristic,
	)
	if target == nil {
		return false, nil
	}

	return true, e.CacheWithClusterColumns(ctx, target, nil)
}

// CacheWithClusterColumns materializes the plan into a session table
// clustered on the given columns, as chosen by the ClusterColumnSelector.
func (e *Executor) CacheWithClusterColumns(ctx *sql.Context, node sql.Node, cols []string) error {
	span, ctx := ctx.Span("lazyframe.CacheWithClusterColumns")
	defer span.Finish()

	optimized, err := e.OptimizedPlan(node)
	if err != nil {
		return err
	}

	query, schema, ordering, err := e.compiler.CompileRaw(optimized)
	if err != nil {
		return err
	}

	cluster := e.ClusterColumnSelector(schema, cols, e.MaxClusterColumns)
	if len(cluster) > e.MaxClusterColumns {
		return sql.ErrTooManyClusterColumns.New(len(cluster), e.MaxClusterColumns)
	}

	return e.materialize(ctx, node, query, schema, cluster, ordering)
}

// CacheWithOffsets materializes the plan into a session table with an
// offsets column, clustered on it, so that its first rows can be read
// cheaply. It requires strict ordering.
func (e *Executor) CacheWithOffsets(ctx *sql.Context, node sql.Node) error {
	if !e.StrictOrdering {
		return sql.ErrOffsetCachingRequiresStrictOrdering.New()
	}

	span, ctx := ctx.Span("lazyframe.CacheWithOffsets")
	defer span.Finish()

	offsets := analyzer.OffsetsID(node)
	withOffsets, err := plan.NewPromoteOffsets(offsets, node)
	if err != nil {
		return err
	}

	optimized, err := e.OptimizedPlan(withOffsets)
	if err != nil {
		return err
	}

	query, err := e.compiler.CompileUnordered(optimized, nil)
	if err != nil {
		return err
	}

	return e.materialize(
		ctx,
		node,
		query,
		withOffsets.Schema().Physical(),
		[]string{offsets},
		expression.TotalOrderingFromOffset(offsets),
	)
}

// CacheWithSessionAwareness materializes the plan, or the descendant of it
// most shared with the other live plans of the session.
func (e *Executor) CacheWithSessionAwareness(ctx *sql.Context, node sql.Node) error {
	target, cols, err := analyzer.SessionAwareCachePlan(node, ctx.Session.Plans(), e.MaxClusterColumns)
	if err != nil {
		return err
	}

	switch {
	case len(cols) > 0:
		return e.CacheWithClusterColumns(ctx, target, cols)
	case e.StrictOrdering:
		return e.CacheWithOffsets(ctx, target)
	default:
		return e.CacheWithClusterColumns(ctx, target, nil)
	}
}

func (e *Executor) materialize(
	ctx *sql.Context,
	node sql.Node,
	query string,
	schema sql.PhysicalSchema,
	cluster []string,
	ordering *sql.RowOrdering,
) error {
	dest, err := e.storage.CreateTempTable(ctx, schema, cluster)
	if err != nil {
		return err
	}

	rows, _, err := e.runQuery(ctx, query, sql.JobConfig{Destination: &dest}, "cached")
	if err != nil {
		return err
	}
	if err := rows.Close(); err != nil {
		return err
	}

	table, err := e.client.GetTable(ctx, dest)
	if err != nil {
		return err
	}

	cached, err := plan.NewCachedTable(node, *table, ordering)
	if err != nil {
		return err
	}

	e.register(node, cached)
	return nil
}

// runQuery submits the query and waits for its results. Jobs are labelled
// with the given api name, or the api name of the context if empty.
func (e *Executor) runQuery(
	ctx *sql.Context,
	query string,
	config sql.JobConfig,
	apiName string,
) (sql.RowIter, sql.Job, error) {
	config.MaximumBytesBilled = e.MaximumBytesBilled

	labels := make(map[string]string, len(config.Labels)+2)
	for k, v := range config.Labels {
		labels[k] = v
	}
	if apiName == "" {
		apiName = ctx.APIName()
	}
	if apiName != "" {
		labels[APILabel] = apiName
	}
	if !e.StrictOrdering {
		labels[ModeLabel] = "unordered"
	}
	config.Labels = labels

	job, err := e.client.Submit(ctx, query, config)
	if err != nil {
		return nil, nil, complexityError(err)
	}

	rows, err := job.Wait(ctx)
	if err != nil {
		return nil, nil, complexityError(err)
	}

	if !config.DryRun {
		e.metrics.Update(job.Stats())
	}

	e.Log(logrus.Fields{JobLogField: job.ID()}, "job finished")
	return rows, job, nil
}

func complexityError(err error) error {
	if sql.ErrResourcesExceeded.Is(err) {
		return sql.ErrQueryComplexity.Wrap(err)
	}
	return err
}

func renameColumns(schema sql.Schema, overrides map[string]string) (sql.Schema, error) {
	if len(overrides) == 0 {
		return schema, nil
	}

	items := make(sql.Schema, len(schema))
	for i, item := range schema {
		if id, ok := overrides[item.ID]; ok {
			item.ID = id
		}
		items[i] = item
	}
	return sql.NewSchema(items...)
}
