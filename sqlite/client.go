package sqlite

import (
	"context"
	gosql "database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"
	opentracing "github.com/opentracing/opentracing-go"
	"github.com/sirupsen/logrus"
	errors "gopkg.in/src-d/go-errors.v1"

	"github.com/frameql/lazyframe/sql"
	"github.com/frameql/lazyframe/sql/compile"
)

var (
	// ErrDestinationNotEmpty is returned when a job with the WriteEmpty
	// disposition targets a table with rows.
	ErrDestinationNotEmpty = errors.NewKind("sqlite: destination table %s is not empty")

	// ErrUnsupportedColumnType is returned when a column has a declared type
	// with no logical counterpart.
	ErrUnsupportedColumnType = errors.NewKind("sqlite: column %q of table %s has unsupported type %q")
)

// complexityMessages are the errors SQLite reports when a statement
// exceeds its limits.
var complexityMessages = []string{
	"Expression tree is too large",
	"too many terms",
	"parser stack overflow",
	"too many columns",
	"too many FROM clause terms",
	"at most 64 tables",
}

// Client runs query jobs on the database.
type Client struct {
	db  *DB
	log *logrus.Logger
}

var _ sql.Client = (*Client)(nil)

// NewClient creates a client for the database.
func NewClient(db *DB) *Client {
	return &Client{db: db, log: logrus.StandardLogger()}
}

// WithLogger sets the logger of the client.
func (c *Client) WithLogger(l *logrus.Logger) *Client {
	c.log = l
	return c
}

// Submit implements the sql.Client interface. The job runs when it is
// waited on.
func (c *Client) Submit(ctx context.Context, query string, config sql.JobConfig) (sql.Job, error) {
	j := &job{
		id:     uuid.New().String(),
		query:  query,
		config: config,
		client: c,
	}

	c.log.WithFields(logrus.Fields{
		"job":     j.id,
		"dry_run": config.DryRun,
		"labels":  config.Labels,
	}).Debug("job submitted")

	return j, nil
}

// GetTable implements the sql.Client interface.
func (c *Client) GetTable(ctx context.Context, ref sql.TableRef) (*sql.TableMetadata, error) {
	return getTable(ctx, c.db.db, ref)
}

func getTable(ctx context.Context, db querier, ref sql.TableRef) (*sql.TableMetadata, error) {
	rows, err := db.QueryContext(ctx, "PRAGMA "+pragmaName(ref, "table_info"))
	if err != nil {
		return nil, err
	}

	var schema sql.PhysicalSchema
	for rows.Next() {
		var (
			cid       int64
			name      string
			decl      string
			notNull   int64
			dfltValue interface{}
			pk        int64
		)
		if err := rows.Scan(&cid, &name, &decl, &notNull, &dfltValue, &pk); err != nil {
			rows.Close()
			return nil, err
		}

		typ, err := compile.ParseColumnType(decl)
		if err != nil {
			rows.Close()
			return nil, ErrUnsupportedColumnType.Wrap(err, name, ref, decl)
		}
		schema = append(schema, sql.PhysicalColumn{Name: name, Type: typ})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if len(schema) == 0 {
		return nil, ErrTableNotFound.New(ref)
	}

	var numRows int64
	if err := queryRow(ctx, db, "SELECT COUNT(*) FROM "+compile.TableName(ref), &numRows); err != nil {
		return nil, err
	}

	cluster, err := clusterColumns(ctx, db, ref)
	if err != nil {
		return nil, err
	}

	return &sql.TableMetadata{
		Ref:            ref,
		Schema:         schema,
		NumRows:        &numRows,
		ClusterColumns: cluster,
	}, nil
}

func clusterColumns(ctx context.Context, db querier, ref sql.TableRef) ([]string, error) {
	index := sql.TableRef{Dataset: ref.Dataset, Table: clusterIndexName(ref)}
	rows, err := db.QueryContext(ctx, "PRAGMA "+pragmaName(index, "index_info"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var (
			seqno, cid int64
			name       string
		)
		if err := rows.Scan(&seqno, &cid, &name); err != nil {
			return nil, err
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

func queryRow(ctx context.Context, db querier, query string, dest ...interface{}) error {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return err
		}
		return gosql.ErrNoRows
	}
	if err := rows.Scan(dest...); err != nil {
		return err
	}
	return rows.Close()
}

type job struct {
	id     string
	query  string
	config sql.JobConfig
	client *Client

	once  sync.Once
	rows  []sql.Row
	err   error
	stats sql.JobStats
}

var _ sql.Job = (*job)(nil)

func (j *job) ID() string { return j.id }
func (j *job) Destination() *sql.TableRef { return j.config.Destination }
func (j *job) Config() sql.JobConfig { return j.config }
func (j *job) Stats() sql.JobStats { return j.stats }
func (j *job) String() string { return fmt.Sprintf("job(%s)", j.id) }
func (j *job) logger() *logrus.Entry { return j.client.log.WithField("job", j.id) }
func (j *job) db() *gosql.DB { return j.client.db.db }

// Wait implements the sql.Job interface. The job runs on the first call,
// later calls return the same results.
func (j *job) Wait(ctx context.Context) (sql.RowIter, error) {
	j.once.Do(func() {
		span, ctx := opentracing.StartSpanFromContext(ctx, "sqlite.Job.Wait")
		span.SetTag("job", j.id)
		defer span.Finish()

		start := time.Now()
		j.rows, j.err = j.run(ctx)
		j.err = resourcesError(j.err)
		j.stats = sql.JobStats{SlotMillis: int64(time.Since(start) / time.Millisecond)}

		entry := j.logger().WithField("elapsed", time.Since(start))
		if j.err != nil {
			span.SetTag("error", true)
			entry.WithField("error", j.err).Debug("job failed")
		} else {
			entry.WithField("rows", len(j.rows)).Debug("job done")
		}
	})

	if j.err != nil {
		return nil, j.err
	}
	return sql.RowsToRowIter(j.rows...), nil
}

func (j *job) run(ctx context.Context) ([]sql.Row, error) {
	if stmt, ok, err := parseExport(j.query); ok {
		if err != nil {
			return nil, err
		}
		if j.config.DryRun {
			return nil, nil
		}
		return nil, j.export(ctx, stmt)
	}

	if j.config.DryRun {
		rows, err := j.db().QueryContext(ctx, "EXPLAIN "+j.query)
		if err != nil {
			return nil, err
		}
		return nil, rows.Close()
	}

	if j.config.Destination == nil {
		return readRows(ctx, j.db(), j.query)
	}
	return j.write(ctx)
}

// write runs the query inserting its results into the destination table
// and returns the inserted rows.
func (j *job) write(ctx context.Context) ([]sql.Row, error) {
	dest := *j.config.Destination
	table := compile.TableName(dest)

	tx, err := j.db().BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	exists, err := tableExists(ctx, tx, dest)
	if err != nil {
		return nil, err
	}

	var lastRowID int64
	switch {
	case !exists && len(j.config.DestinationSchema) > 0:
		if err := createTable(ctx, tx, dest, j.config.DestinationSchema, j.config.ClusteringFields); err != nil {
			return nil, err
		}
	case !exists:
		j.logger().WithField("table", dest).Debug("creating destination from query")
		if _, err := tx.ExecContext(ctx, "CREATE TABLE "+table+" AS "+j.query); err != nil {
			return nil, err
		}
		if err := createClusterIndex(ctx, tx, dest, j.config.ClusteringFields); err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		return readRows(ctx, j.db(), "SELECT * FROM "+table+" ORDER BY rowid")
	default:
		switch j.config.WriteDisposition {
		case sql.WriteEmpty:
			var n int64
			if err := queryRow(ctx, tx, "SELECT COUNT(*) FROM "+table, &n); err != nil {
				return nil, err
			}
			if n > 0 {
				return nil, ErrDestinationNotEmpty.New(dest)
			}
		case sql.WriteTruncate:
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return nil, err
			}
		}

		var max gosql.NullInt64
		if err := queryRow(ctx, tx, "SELECT MAX(rowid) FROM "+table, &max); err != nil {
			return nil, err
		}
		lastRowID = max.Int64
	}

	if _, err := tx.ExecContext(ctx, "INSERT INTO "+table+" "+j.query); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return readRows(ctx, j.db(), fmt.Sprintf("SELECT * FROM %s WHERE rowid > %d ORDER BY rowid", table, lastRowID))
}

// readRows runs the query and buffers every row.
func readRows(ctx context.Context, db querier, query string) ([]sql.Row, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var result []sql.Row
	for rows.Next() {
		row := make(sql.Row, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range row {
			ptrs[i] = &row[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, rows.Close()
}

// resourcesError reports statements exceeding the limits of the engine as
// sql.ErrResourcesExceeded.
func resourcesError(err error) error {
	if err == nil {
		return nil
	}

	serr, ok := err.(sqlite3.Error)
	if !ok {
		return err
	}

	msg := serr.Error()
	for _, m := range complexityMessages {
		if strings.Contains(msg, m) {
			return sql.ErrResourcesExceeded.Wrap(err, msg)
		}
	}
	return err
}
