package sql

import "gopkg.in/src-d/go-errors.v1"

var (
	// ErrInvalidType is thrown when there is an unexpected type at some part of
	// the plan tree.
	ErrInvalidType = errors.NewKind("invalid type: %s")

	// ErrInvalidValue is returned when a value cannot be converted to a type.
	ErrInvalidValue = errors.NewKind("value %v cannot be converted to %s")

	// ErrRowLength is returned when a row does not match the length of its
	// schema.
	ErrRowLength = errors.NewKind("row has %d values, expected %d")

	// ErrColumnNotFound is returned when an expression or node references a
	// column that is not bound in its input schema.
	ErrColumnNotFound = errors.NewKind("column %q could not be found, columns are %v")

	// ErrDuplicateColumn is returned when a schema would contain the same
	// column id twice.
	ErrDuplicateColumn = errors.NewKind("duplicate column id %q in schema")

	// ErrInvalidChildrenNumber is returned when the WithChildren method of a
	// node or expression is called with an invalid number of arguments.
	ErrInvalidChildrenNumber = errors.NewKind("%T: invalid children number, got %d, expected %d")

	// ErrEmptyConcat is returned when a concat is built with no inputs.
	ErrEmptyConcat = errors.NewKind("concat requires at least one input, zero provided")

	// ErrConcatTypeMismatch is returned when the inputs of a concat do not
	// have identical column types.
	ErrConcatTypeMismatch = errors.NewKind("all concat inputs must have identical types, got %v and %v")

	// ErrSchemaNotSubset is returned when a requested logical schema cannot be
	// derived from a physical table schema.
	ErrSchemaNotSubset = errors.NewKind("requested columns %v cannot be derived from table schema %v")

	// ErrHiddenColumnsNotSubset is returned when the ordering columns of a
	// cached table are not present in its physical schema.
	ErrHiddenColumnsNotSubset = errors.NewKind("hidden columns %v cannot be derived from table schema %v")

	// ErrSequentialOrderKey is returned when a table declares a sequential
	// order key made of other than exactly one column.
	ErrSequentialOrderKey = errors.NewKind("sequential order key must have exactly one component, got %d")

	// ErrNotArrayType is returned when an explode targets a non-array column.
	ErrNotArrayType = errors.NewKind("column %q has type %s, expected an array")

	// ErrInvalidSampleFraction is returned for a sampling fraction outside
	// of (0, 1].
	ErrInvalidSampleFraction = errors.NewKind("sampling fraction must be in (0, 1], got %v")

	// ErrSessionConflict is returned when a plan combines sources owned by
	// more than one session.
	ErrSessionConflict = errors.NewKind("cannot combine sources from multiple sessions: %v")

	// ErrResourcesExceeded is the error collaborators return when the remote
	// engine rejects a query for exceeding its resources.
	ErrResourcesExceeded = errors.NewKind("resources exceeded during query execution: %s")

	// ErrQueryComplexity is returned when a query is too complex for the
	// remote engine to execute as a single query.
	ErrQueryComplexity = errors.NewKind("computation is too complex to execute as a single query. " +
		"Try caching intermediate results, or enable multi-query execution")

	// ErrOffsetCachingRequiresStrictOrdering is returned when offset caching is
	// requested for an executor not in strict ordering mode.
	ErrOffsetCachingRequiresStrictOrdering = errors.NewKind("caching with offsets only supported in strictly ordered mode")

	// ErrTooManyClusterColumns is returned when a materialization would be
	// clustered on more columns than allowed.
	ErrTooManyClusterColumns = errors.NewKind("too many cluster columns: got %d, maximum is %d")
)
