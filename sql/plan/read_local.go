package plan

import (
	"fmt"

	"github.com/frameql/lazyframe/sql"
	"github.com/frameql/lazyframe/sql/batch"
)

// ReadLocal is a source node embedding a batch of in-memory rows.
type ReadLocal struct {
	base
	data    []byte
	numRows int64
}

type readLocalParams struct {
	Data    string
	Schema  []string
	Session string
}

// NewReadLocal creates a node reading the given encoded batch, which must
// hold numRows rows with the given schema.
func NewReadLocal(data []byte, schema sql.Schema, numRows int64, session sql.SessionID) (*ReadLocal, error) {
	n := &ReadLocal{data: data, numRows: numRows}
	err := n.init(n, "ReadLocal", readLocalParams{string(data), schemaStrings(schema), string(session)}, traits{
		schema:         schema,
		deterministic:  true,
		rowPreserving:  true,
		orderAmbiguous: false,
		varsIntroduced: len(schema) + 1,
		relOps:         1,
		session:        session,
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

// NewReadLocalFromRows encodes the rows and creates a node reading them.
func NewReadLocalFromRows(schema sql.Schema, rows []sql.Row, session sql.SessionID) (*ReadLocal, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	data, err := batch.FromRows(schema, rows)
	if err != nil {
		return nil, err
	}
	return NewReadLocal(data, schema, int64(len(rows)), session)
}

// Data returns the encoded batch.
func (n *ReadLocal) Data() []byte {
	return n.data
}

// NumRows returns the number of rows in the batch.
func (n *ReadLocal) NumRows() int64 {
	return n.numRows
}

// Rows decodes the rows of the batch.
func (n *ReadLocal) Rows() ([]sql.Row, error) {
	return batch.Decode(n.data, n.schema)
}

// WithChildren implements the sql.Node interface.
func (n *ReadLocal) WithChildren(children ...sql.Node) (sql.Node, error) {
	if err := checkChildren(n, children, 0); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *ReadLocal) String() string {
	return fmt.Sprintf("ReadLocal(%s, %d rows)", n.schema, n.numRows)
}
