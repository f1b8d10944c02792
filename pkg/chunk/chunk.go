// Package chunk provides the in-memory columnar unit that filters are built
// from and stored in.
package chunk

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/grafana/blockfilter/pkg/datatype"
)

// Value is the data of a chunk entry: either a [ScalarValue] repeated for
// every row or a [ColumnValue] holding one value per row.
type Value interface {
	isValue()
}

// ScalarValue represents a single value repeated for every row of a chunk.
type ScalarValue struct {
	Scalar datatype.Scalar
}

// ColumnValue represents a column of data, stored as an [arrow.Array].
type ColumnValue struct {
	Array arrow.Array
}

func (ScalarValue) isValue() {}
func (ColumnValue) isValue() {}

// Entry is a named, typed column of a chunk.
type Entry struct {
	ID       string
	DataType datatype.DataType
	Value    Value
}

// ForEach calls fn for every row of e. A [ScalarValue] calls fn once for
// each of the rows rows.
func (e Entry) ForEach(rows int, fn func(datatype.Scalar) error) error {
	switch v := e.Value.(type) {
	case ScalarValue:
		for range rows {
			if err := fn(v.Scalar); err != nil {
				return err
			}
		}
		return nil

	case ColumnValue:
		for i := range v.Array.Len() {
			s, err := datatype.ScalarFromArrow(v.Array, i, e.DataType)
			if err != nil {
				return fmt.Errorf("entry %s row %d: %w", e.ID, i, err)
			}
			if err := fn(s); err != nil {
				return err
			}
		}
		return nil

	default:
		panic(fmt.Sprintf("chunk.Entry: unexpected value type %T", v))
	}
}

// Chunk is a batch of column-oriented rows. Entries are addressed by offset
// or by ID; IDs are expected to be unique.
type Chunk struct {
	entries []Entry
	numRows int
}

// New returns a chunk over entries. Every [ColumnValue] must hold numRows
// values.
func New(entries []Entry, numRows int) (*Chunk, error) {
	for _, e := range entries {
		if cv, ok := e.Value.(ColumnValue); ok && cv.Array.Len() != numRows {
			return nil, fmt.Errorf("entry %s has %d rows, expected %d", e.ID, cv.Array.Len(), numRows)
		}
	}
	return &Chunk{entries: entries, numRows: numRows}, nil
}

// NumColumns returns the number of entries in c.
func (c *Chunk) NumColumns() int { return len(c.entries) }

// NumRows returns the number of rows in c.
func (c *Chunk) NumRows() int { return c.numRows }

// Entries returns the entries of c. The returned slice must not be modified.
func (c *Chunk) Entries() []Entry { return c.entries }

// GetByOffset returns the entry at offset i.
func (c *Chunk) GetByOffset(i int) Entry { return c.entries[i] }

// GetByID returns the entry named id.
func (c *Chunk) GetByID(id string) (Entry, bool) {
	for _, e := range c.entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Retain increases the reference count of every array held by c.
func (c *Chunk) Retain() {
	for _, e := range c.entries {
		if cv, ok := e.Value.(ColumnValue); ok {
			cv.Array.Retain()
		}
	}
}

// Release decreases the reference count of every array held by c.
func (c *Chunk) Release() {
	for _, e := range c.entries {
		if cv, ok := e.Value.(ColumnValue); ok {
			cv.Array.Release()
		}
	}
}
