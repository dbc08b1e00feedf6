package sqlite

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/frameql/lazyframe/sql"
	"github.com/frameql/lazyframe/sql/compile"
)

// TempDataset is the schema temporary tables are created in. Its tables
// are dropped when the connection is closed.
const TempDataset = "temp"

// TempTablePrefix is the prefix of the name of every temporary table.
const TempTablePrefix = "lazyframe_"

// StorageManager creates temporary tables in the database and drops them on
// Close.
type StorageManager struct {
	db *DB

	mu     sync.Mutex
	tables []sql.TableRef
}

var _ sql.StorageManager = (*StorageManager)(nil)

// NewStorageManager creates a storage manager for the database.
func NewStorageManager(db *DB) *StorageManager {
	return &StorageManager{db: db}
}

// CreateTempTable implements the sql.StorageManager interface.
func (s *StorageManager) CreateTempTable(
	ctx context.Context,
	schema sql.PhysicalSchema,
	clusterCols []string,
) (sql.TableRef, error) {
	ref := sql.TableRef{
		Dataset: TempDataset,
		Table:   TempTablePrefix + strings.Replace(uuid.New().String(), "-", "", -1),
	}

	if err := createTable(ctx, s.db.db, ref, schema, clusterCols); err != nil {
		return sql.TableRef{}, err
	}

	s.mu.Lock()
	s.tables = append(s.tables, ref)
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"table":   ref,
		"cluster": clusterCols,
	}).Debug("temporary table created")

	return ref, nil
}

// Tables returns the temporary tables created so far.
func (s *StorageManager) Tables() []sql.TableRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sql.TableRef(nil), s.tables...)
}

// Close drops every temporary table.
func (s *StorageManager) Close(ctx context.Context) error {
	s.mu.Lock()
	tables := s.tables
	s.tables = nil
	s.mu.Unlock()

	var firstErr error
	for _, ref := range tables {
		if _, err := s.db.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+compile.TableName(ref)); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
