package sql

import "context"

// Compiler lowers plans to SQL statements for the remote engine.
type Compiler interface {
	// CompileOrdered compiles the plan to a statement that returns its rows
	// in order. Output columns are renamed with the given overrides.
	CompileOrdered(plan Node, overrides map[string]string) (string, error)
	// CompileUnordered compiles the plan without any ordering requirement.
	CompileUnordered(plan Node, overrides map[string]string) (string, error)
	// CompileRaw compiles the plan to a statement whose result can be
	// materialized, returning the physical schema of that result and the
	// ordering of the rows expressed over its columns, if any.
	CompileRaw(plan Node) (string, PhysicalSchema, *RowOrdering, error)
	// CompilePeek compiles the plan to a statement returning at most n rows,
	// with no ordering guarantees.
	CompilePeek(plan Node, n int) (string, error)
}

// WriteDisposition controls what happens when a query writes to a table that
// already has data.
type WriteDisposition int

const (
	// WriteEmpty fails if the destination is not empty.
	WriteEmpty WriteDisposition = iota
	// WriteTruncate replaces the destination contents.
	WriteTruncate
	// WriteAppend appends to the destination contents.
	WriteAppend
)

func (d WriteDisposition) String() string {
	switch d {
	case WriteEmpty:
		return "WRITE_EMPTY"
	case WriteTruncate:
		return "WRITE_TRUNCATE"
	case WriteAppend:
		return "WRITE_APPEND"
	default:
		return "WRITE_UNKNOWN"
	}
}

// JobConfig configures a query job.
type JobConfig struct {
	// Destination is the table results are written to. If nil, the engine
	// chooses an anonymous result table.
	Destination *TableRef
	// DestinationSchema is the schema of the destination, used if the
	// engine has to create it.
	DestinationSchema PhysicalSchema
	WriteDisposition  WriteDisposition
	ClusteringFields  []string
	// DryRun validates the query without running it.
	DryRun             bool
	MaximumBytesBilled *int64
	Labels             map[string]string
}

// JobStats are the statistics of a finished job.
type JobStats struct {
	BytesProcessed int64
	SlotMillis     int64
}

// Job is a query submitted to the remote engine.
type Job interface {
	// ID of the job.
	ID() string
	// Wait blocks until the job finishes and returns its rows. An engine
	// rejection for exceeding its resources is returned as
	// ErrResourcesExceeded.
	Wait(ctx context.Context) (RowIter, error)
	// Destination returns the table the results were written to.
	Destination() *TableRef
	// Config returns the configuration the job was submitted with.
	Config() JobConfig
	// Stats returns the job statistics. Only meaningful after Wait.
	Stats() JobStats
}

// Client submits queries to the remote engine.
type Client interface {
	// Submit starts a query job.
	Submit(ctx context.Context, query string, config JobConfig) (Job, error)
	// GetTable returns the metadata of a table.
	GetTable(ctx context.Context, ref TableRef) (*TableMetadata, error)
}

// StorageManager allocates session owned temporary tables.
type StorageManager interface {
	// CreateTempTable creates an empty table with the given schema,
	// clustered on the given columns.
	CreateTempTable(ctx context.Context, schema PhysicalSchema, clusterCols []string) (TableRef, error)
}
