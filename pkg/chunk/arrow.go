package chunk

import (
	"errors"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/grafana/blockfilter/pkg/datatype"
)

// FromRecord returns a chunk holding the columns of rec. Column types are
// taken from the field metadata when present, see [datatype.FromArrow].
//
// The returned chunk retains the columns of rec; call [Chunk.Release] when
// done.
func FromRecord(rec arrow.Record) *Chunk {
	schema := rec.Schema()
	entries := make([]Entry, 0, rec.NumCols())
	for i, field := range schema.Fields() {
		col := rec.Column(i)
		col.Retain()
		entries = append(entries, Entry{
			ID:       field.Name,
			DataType: datatype.FromArrow(field),
			Value:    ColumnValue{Array: col},
		})
	}
	return &Chunk{entries: entries, numRows: int(rec.NumRows())}
}

// ToRecord converts c into an arrow record. Scalar entries are expanded to
// one value per row.
func (c *Chunk) ToRecord(mem memory.Allocator) (arrow.Record, error) {
	fields := make([]arrow.Field, 0, len(c.entries))
	cols := make([]arrow.Array, 0, len(c.entries))
	defer func() {
		for _, col := range cols {
			col.Release()
		}
	}()

	for _, e := range c.entries {
		fields = append(fields, datatype.ArrowField(e.ID, e.DataType))

		switch v := e.Value.(type) {
		case ColumnValue:
			v.Array.Retain()
			cols = append(cols, v.Array)

		case ScalarValue:
			arr, err := repeatScalar(mem, e.DataType, v.Scalar, c.numRows)
			if err != nil {
				return nil, fmt.Errorf("entry %s: %w", e.ID, err)
			}
			cols = append(cols, arr)
		}
	}

	schema := arrow.NewSchema(fields, nil)
	return array.NewRecord(schema, cols, int64(c.numRows)), nil
}

func repeatScalar(mem memory.Allocator, t datatype.DataType, s datatype.Scalar, rows int) (arrow.Array, error) {
	builder := array.NewBuilder(mem, datatype.ToArrow(t))
	defer builder.Release()

	builder.Reserve(rows)
	for range rows {
		if err := datatype.AppendScalar(builder, s); err != nil {
			return nil, err
		}
	}
	return builder.NewArray(), nil
}

// WriteIPC writes chunks to w in the arrow IPC stream format, one record
// batch per chunk. All chunks must share a schema.
func WriteIPC(w io.Writer, mem memory.Allocator, chunks ...*Chunk) error {
	if len(chunks) == 0 {
		return errors.New("no chunks to write")
	}

	var writer *ipc.Writer
	for i, c := range chunks {
		rec, err := c.ToRecord(mem)
		if err != nil {
			return fmt.Errorf("converting chunk %d: %w", i, err)
		}
		if writer == nil {
			writer = ipc.NewWriter(w, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(mem))
		}
		err = writer.Write(rec)
		rec.Release()
		if err != nil {
			_ = writer.Close()
			return fmt.Errorf("writing chunk %d: %w", i, err)
		}
	}
	return writer.Close()
}

// ReadIPC reads every record batch of an arrow IPC stream as a chunk. The
// caller owns the returned chunks and must release them.
func ReadIPC(r io.Reader, mem memory.Allocator) ([]*Chunk, error) {
	reader, err := ipc.NewReader(r, ipc.WithAllocator(mem))
	if err != nil {
		return nil, fmt.Errorf("opening ipc stream: %w", err)
	}
	defer reader.Release()

	var chunks []*Chunk
	for reader.Next() {
		chunks = append(chunks, FromRecord(reader.Record()))
	}
	if err := reader.Err(); err != nil {
		for _, c := range chunks {
			c.Release()
		}
		return nil, fmt.Errorf("reading ipc stream: %w", err)
	}
	return chunks, nil
}
