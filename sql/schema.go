package sql

import (
	"fmt"
	"strings"
)

// SchemaItem is a single column of a schema.
type SchemaItem struct {
	ID   string
	Type Type
}

func (i SchemaItem) String() string {
	return fmt.Sprintf("%s:%s", i.ID, i.Type)
}

// Schema is the ordered set of columns produced by a node. Column ids are
// unique.
type Schema []SchemaItem

// NewSchema creates a schema from the given items, checking that column ids
// are unique.
func NewSchema(items ...SchemaItem) (Schema, error) {
	s := Schema(items)
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks that every column id appears only once.
func (s Schema) Validate() error {
	seen := make(map[string]struct{}, len(s))
	for _, item := range s {
		if _, ok := seen[item.ID]; ok {
			return ErrDuplicateColumn.New(item.ID)
		}
		seen[item.ID] = struct{}{}
	}
	return nil
}

// Names returns the column ids in order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, item := range s {
		names[i] = item.ID
	}
	return names
}

// Types returns the column types in order.
func (s Schema) Types() []Type {
	types := make([]Type, len(s))
	for i, item := range s {
		types[i] = item.Type
	}
	return types
}

// IndexOf returns the position of the given column or -1 if it's not present.
func (s Schema) IndexOf(id string) int {
	for i, item := range s {
		if item.ID == id {
			return i
		}
	}
	return -1
}

// Contains returns whether the schema contains the given column.
func (s Schema) Contains(id string) bool {
	return s.IndexOf(id) >= 0
}

// TypeOf returns the type of the given column.
func (s Schema) TypeOf(id string) (Type, error) {
	idx := s.IndexOf(id)
	if idx < 0 {
		return nil, ErrColumnNotFound.New(id, s.Names())
	}
	return s[idx].Type, nil
}

// Prepend returns a new schema with the item in the first position.
func (s Schema) Prepend(item SchemaItem) (Schema, error) {
	return NewSchema(append(Schema{item}, s...)...)
}

// Append returns a new schema with the item in the last position.
func (s Schema) Append(item SchemaItem) (Schema, error) {
	items := make(Schema, 0, len(s)+1)
	items = append(items, s...)
	return NewSchema(append(items, item)...)
}

// UpdateType returns a new schema where the given column has a new type.
func (s Schema) UpdateType(id string, t Type) (Schema, error) {
	idx := s.IndexOf(id)
	if idx < 0 {
		return nil, ErrColumnNotFound.New(id, s.Names())
	}
	items := make(Schema, len(s))
	copy(items, s)
	items[idx] = SchemaItem{ID: id, Type: t}
	return items, nil
}

// Equals checks whether the given schema is equal to this one.
func (s Schema) Equals(s2 Schema) bool {
	if len(s) != len(s2) {
		return false
	}
	for i := range s {
		if s[i].ID != s2[i].ID || !s[i].Type.Equals(s2[i].Type) {
			return false
		}
	}
	return true
}

// TypesEqual checks whether both schemas have the same types in the same
// positions, regardless of column ids.
func (s Schema) TypesEqual(s2 Schema) bool {
	if len(s) != len(s2) {
		return false
	}
	for i := range s {
		if !s[i].Type.Equals(s2[i].Type) {
			return false
		}
	}
	return true
}

func (s Schema) String() string {
	items := make([]string, len(s))
	for i, item := range s {
		items[i] = item.String()
	}
	return "[" + strings.Join(items, ", ") + "]"
}

// Physical returns the physical table schema for this logical schema.
func (s Schema) Physical() PhysicalSchema {
	cols := make(PhysicalSchema, len(s))
	for i, item := range s {
		cols[i] = PhysicalColumn{Name: item.ID, Type: item.Type}
	}
	return cols
}

// PhysicalColumn is a column of a warehouse table.
type PhysicalColumn struct {
	Name string
	Type Type
}

// PhysicalSchema is the schema of a warehouse table.
type PhysicalSchema []PhysicalColumn

// Names returns the column names in order.
func (s PhysicalSchema) Names() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}
	return names
}

// Contains returns whether the table has a column with the given name.
func (s PhysicalSchema) Contains(name string) bool {
	for _, c := range s {
		if c.Name == name {
			return true
		}
	}
	return false
}

// ContainsAll returns whether every name is a column of the table.
func (s PhysicalSchema) ContainsAll(names []string) bool {
	for _, n := range names {
		if !s.Contains(n) {
			return false
		}
	}
	return true
}

// TypeOf returns the type of the given column.
func (s PhysicalSchema) TypeOf(name string) (Type, bool) {
	for _, c := range s {
		if c.Name == name {
			return c.Type, true
		}
	}
	return nil, false
}

// TableRef identifies a warehouse table.
type TableRef struct {
	Project string
	Dataset string
	Table   string
}

func (r TableRef) String() string {
	if r.Project == "" {
		return r.Dataset + "." + r.Table
	}
	return r.Project + "." + r.Dataset + "." + r.Table
}

// TableMetadata is what the warehouse knows about a physical table.
type TableMetadata struct {
	Ref    TableRef
	Schema PhysicalSchema
	// NumRows is nil when the row count is not known.
	NumRows        *int64
	ClusterColumns []string
}
