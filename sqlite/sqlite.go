// Package sqlite runs compiled plans on an embedded SQLite database. It
// provides the client and the storage manager the executor submits jobs and
// allocates temporary tables through.
//
// Table references map to SQLite schemas: the dataset of a reference is the
// name of an attached database, and the project is ignored.
package sqlite

import (
	"context"
	gosql "database/sql"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	errors "gopkg.in/src-d/go-errors.v1"

	"github.com/frameql/lazyframe/sql"
	"github.com/frameql/lazyframe/sql/compile"
)

var (
	// ErrOpen is returned when the database cannot be opened.
	ErrOpen = errors.NewKind("sqlite: cannot open database %q")

	// ErrTableNotFound is returned when a table does not exist.
	ErrTableNotFound = errors.NewKind("sqlite: table %s not found")

	// ErrTableExists is returned when creating a table that already exists.
	ErrTableExists = errors.NewKind("sqlite: table %s already exists")
)

// DB is an open SQLite database.
type DB struct {
	db *gosql.DB
}

// Open opens the database at the given data source name. In-memory
// databases and the temp schema belong to a single connection, so the pool
// holds at most one.
func Open(dsn string) (*DB, error) {
	db, err := gosql.Open("sqlite3", dsn)
	if err != nil {
		return nil, ErrOpen.Wrap(err, dsn)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, ErrOpen.Wrap(err, dsn)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, ErrOpen.Wrap(err, dsn)
		}
	}

	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Attach attaches the database at path under the given name, so it can be
// used as the dataset of table references.
func (d *DB) Attach(ctx context.Context, path, name string) error {
	_, err := d.db.ExecContext(ctx, "ATTACH DATABASE "+quoteString(path)+" AS "+quoteIdent(name))
	return err
}

// CreateTable creates an empty table with the given schema.
func (d *DB) CreateTable(ctx context.Context, ref sql.TableRef, schema sql.PhysicalSchema, clusterCols []string) error {
	exists, err := d.tableExists(ctx, ref)
	if err != nil {
		return err
	}
	if exists {
		return ErrTableExists.New(ref)
	}
	return createTable(ctx, d.db, ref, schema, clusterCols)
}

// LoadTable creates a table with the given schema and inserts the rows.
func (d *DB) LoadTable(
	ctx context.Context,
	ref sql.TableRef,
	schema sql.PhysicalSchema,
	rows []sql.Row,
	clusterCols []string,
) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := createTable(ctx, tx, ref, schema, clusterCols); err != nil {
		return err
	}

	for _, row := range rows {
		if len(row) != len(schema) {
			return sql.ErrRowLength.New(len(row), len(schema))
		}
		values := make([]string, len(row))
		for i, v := range row {
			values[i], err = compile.Literal(v, schema[i].Type)
			if err != nil {
				return err
			}
		}
		stmt := "INSERT INTO " + compile.TableName(ref) + " VALUES (" + strings.Join(values, ", ") + ")"
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	return tx.Commit()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (gosql.Result, error)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*gosql.Rows, error)
}

func createTable(ctx context.Context, db execer, ref sql.TableRef, schema sql.PhysicalSchema, clusterCols []string) error {
	defs := make([]string, len(schema))
	for i, col := range schema {
		defs[i] = compile.ColumnDefinition(col)
	}

	stmt := "CREATE TABLE " + compile.TableName(ref) + " (" + strings.Join(defs, ", ") + ")"
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return err
	}
	return createClusterIndex(ctx, db, ref, clusterCols)
}

// createClusterIndex indexes the table on its cluster columns. The index is
// how cluster columns are recorded.
func createClusterIndex(ctx context.Context, db execer, ref sql.TableRef, clusterCols []string) error {
	if len(clusterCols) == 0 {
		return nil
	}

	index := sql.TableRef{Dataset: ref.Dataset, Table: clusterIndexName(ref)}
	stmt := "CREATE INDEX " + compile.TableName(index) + " ON " + quoteIdent(ref.Table) +
		" (" + strings.Join(quoteAll(clusterCols), ", ") + ")"
	_, err := db.ExecContext(ctx, stmt)
	return err
}

func clusterIndexName(ref sql.TableRef) string {
	return ref.Table + "_cluster"
}

func (d *DB) tableExists(ctx context.Context, ref sql.TableRef) (bool, error) {
	return tableExists(ctx, d.db, ref)
}

func tableExists(ctx context.Context, db querier, ref sql.TableRef) (bool, error) {
	rows, err := db.QueryContext(ctx, "PRAGMA "+pragmaName(ref, "table_info"))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	exists := rows.Next()
	return exists, rows.Err()
}

// pragmaName returns the name of a pragma applied to the given table.
func pragmaName(ref sql.TableRef, pragma string) string {
	if ref.Dataset == "" {
		return pragma + "(" + quoteString(ref.Table) + ")"
	}
	return quoteIdent(ref.Dataset) + "." + pragma + "(" + quoteString(ref.Table) + ")"
}

func quoteIdent(s string) string {
	return `"` + strings.Replace(s, `"`, `""`, -1) + `"`
}

func quoteAll(names []string) []string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = quoteIdent(n)
	}
	return quoted
}

func quoteString(s string) string {
	return "'" + strings.Replace(s, "'", "''", -1) + "'"
}

// parseTableRef parses the string form of a table reference.
func parseTableRef(s string) sql.TableRef {
	parts := strings.Split(s, ".")
	switch len(parts) {
	case 1:
		return sql.TableRef{Table: parts[0]}
	case 2:
		return sql.TableRef{Dataset: parts[0], Table: parts[1]}
	default:
		n := len(parts)
		return sql.TableRef{
			Project: strings.Join(parts[:n-2], "."),
			Dataset: parts[n-2],
			Table:   parts[n-1],
		}
	}
}
