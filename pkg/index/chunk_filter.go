// Package index builds, stores and evaluates the filter index of a data
// file: one membership filter per indexable column, used to skip files that
// cannot match a predicate.
package index

import (
	"errors"
	"fmt"
	"maps"
	"sync"

	"github.com/grafana/blockfilter/pkg/chunk"
	"github.com/grafana/blockfilter/pkg/datatype"
	"github.com/grafana/blockfilter/pkg/expr"
	"github.com/grafana/blockfilter/pkg/expr/fold"
	"github.com/grafana/blockfilter/pkg/filter"
)

// ErrBadArguments is returned when a ChunkFilter is built from invalid
// input.
var ErrBadArguments = errors.New("bad arguments")

// FilterEvalResult is the outcome of evaluating a predicate against a
// [ChunkFilter].
//
// No result proves that a file matches: filters admit false positives, so
// they can only rule files out.
type FilterEvalResult int

const (
	_ FilterEvalResult = iota // zero-value is an invalid result

	// MustFalse means no row of the file can satisfy the predicate.
	MustFalse
	// Uncertain means the file may contain matching rows.
	Uncertain
)

// String returns the string representation of the [FilterEvalResult].
func (r FilterEvalResult) String() string {
	switch r {
	case MustFalse:
		return "must_false"
	case Uncertain:
		return "uncertain"
	default:
		return fmt.Sprintf("FilterEvalResult(%d)", int(r))
	}
}

// FilterColumnName returns the name of the filter entry for column.
func FilterColumnName(column string) string {
	return "Bloom(" + column + ")"
}

// ChunkFilter holds the filters of one data file.
//
// A ChunkFilter is immutable and safe for concurrent use.
type ChunkFilter struct {
	filterChunk *chunk.Chunk
	fnCtx       fold.FunctionContext

	// distinctCounts maps column offsets to their estimated number of
	// distinct values. Only set on filters built with New.
	distinctCounts map[int]uint64

	// decoded caches decoded filters by filter entry name.
	decoded sync.Map
}

// New builds the filters of a file made of chunks, which must share a
// schema. Every column of an indexable type gets one filter holding the
// values of that column across all chunks.
//
// New returns [ErrBadArguments] if chunks is empty or the chunks do not
// share a schema.
func New(fnCtx fold.FunctionContext, chunks []*chunk.Chunk) (*ChunkFilter, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no chunks to build filters from", ErrBadArguments)
	}

	first := chunks[0]
	for i, c := range chunks[1:] {
		if err := sameSchema(first, c); err != nil {
			return nil, fmt.Errorf("%w: chunk %d: %w", ErrBadArguments, i+1, err)
		}
	}

	var (
		entries        []chunk.Entry
		distinctCounts = make(map[int]uint64)
	)

	for i := range first.NumColumns() {
		column := first.GetByOffset(i)
		if !filter.IsSupportedType(column.DataType) {
			continue
		}

		f, err := buildColumnFilter(chunks, i)
		if err != nil {
			return nil, fmt.Errorf("building filter for column %s: %w", column.ID, err)
		}

		if count, ok := f.ApproxDistinctCount(); ok {
			distinctCounts[i] = count
		}
		entries = append(entries, chunk.Entry{
			ID:       FilterColumnName(column.ID),
			DataType: datatype.Binary,
			Value:    chunk.ScalarValue{Scalar: datatype.BinaryScalar(f.Bytes())},
		})
	}

	filterChunk, err := chunk.New(entries, 1)
	if err != nil {
		return nil, err
	}

	return &ChunkFilter{
		filterChunk:    filterChunk,
		fnCtx:          fnCtx,
		distinctCounts: distinctCounts,
	}, nil
}

func sameSchema(a, b *chunk.Chunk) error {
	if a.NumColumns() != b.NumColumns() {
		return fmt.Errorf("has %d columns, expected %d", b.NumColumns(), a.NumColumns())
	}
	for i := range a.NumColumns() {
		if at, bt := a.GetByOffset(i).DataType, b.GetByOffset(i).DataType; at.Kind != bt.Kind {
			return fmt.Errorf("column %d has type %s, expected %s", i, bt, at)
		}
	}
	return nil
}

// buildColumnFilter feeds the column at offset of every chunk, in order,
// into a single filter.
func buildColumnFilter(chunks []*chunk.Chunk, offset int) (*filter.Xor8Filter, error) {
	builder, err := filter.NewXor8Builder()
	if err != nil {
		return nil, err
	}

	for _, c := range chunks {
		entry := c.GetByOffset(offset)

		switch v := entry.Value.(type) {
		case chunk.ScalarValue:
			// Repeating the same key adds nothing to the filter.
			if c.NumRows() > 0 {
				if err := builder.AddKey(v.Scalar); err != nil {
					return nil, err
				}
			}
		default:
			if err := entry.ForEach(c.NumRows(), builder.AddKey); err != nil {
				return nil, err
			}
		}
	}

	return builder.Build()
}

// FromFilterChunk returns a ChunkFilter over a filter chunk previously
// produced by [New]. No filter is rebuilt or decoded until it is used.
func FromFilterChunk(fnCtx fold.FunctionContext, filterChunk *chunk.Chunk) *ChunkFilter {
	return &ChunkFilter{
		filterChunk:    filterChunk,
		fnCtx:          fnCtx,
		distinctCounts: map[int]uint64{},
	}
}

// FilterChunk returns the chunk holding the encoded filters, one binary
// scalar entry per indexed column.
func (f *ChunkFilter) FilterChunk() *chunk.Chunk {
	return f.filterChunk
}

// FunctionContext returns the context predicates are folded with.
func (f *ChunkFilter) FunctionContext() fold.FunctionContext {
	return f.fnCtx
}

// NumFilters returns the number of indexed columns.
func (f *ChunkFilter) NumFilters() int {
	return f.filterChunk.NumColumns()
}

// ColumnDistinctCount returns the estimated number of distinct values of
// each indexed column, by column offset. It is empty for filters loaded
// with [FromFilterChunk].
func (f *ChunkFilter) ColumnDistinctCount() map[int]uint64 {
	return maps.Clone(f.distinctCounts)
}

// Find reports whether column, of type t, can hold value.
//
// Find returns Uncertain without consulting any filter when t is not
// indexable or value is NULL, and when value cannot be represented exactly
// in t. A value that is not text must also compare equal to its cast, so a
// number never looks up a string column and a date never looks up a
// timestamp taken in another timezone. Columns without a filter are
// Uncertain too. Filters that cannot be decoded return an error wrapping
// [filter.ErrCorrupt].
func (f *ChunkFilter) Find(column string, value datatype.Scalar, t datatype.DataType) (FilterEvalResult, error) {
	if !filter.IsSupportedType(t) || value.IsNull() {
		return Uncertain, nil
	}

	target, exact, err := datatype.Cast(value, t.Kind, f.fnCtx.Location())
	if err != nil || !exact {
		return Uncertain, nil
	}
	if !value.Kind().IsBytes() {
		if c, ok := datatype.Compare(value, target); !ok || c != 0 {
			return Uncertain, nil
		}
	}

	xf, ok, err := f.columnFilter(column)
	if err != nil || !ok {
		return Uncertain, err
	}

	if xf.Contains(target) {
		return Uncertain, nil
	}
	return MustFalse, nil
}

func (f *ChunkFilter) columnFilter(column string) (*filter.Xor8Filter, bool, error) {
	name := FilterColumnName(column)
	if cached, ok := f.decoded.Load(name); ok {
		return cached.(*filter.Xor8Filter), true, nil
	}

	entry, ok := f.filterChunk.GetByID(name)
	if !ok {
		return nil, false, nil
	}

	v, ok := entry.Value.(chunk.ScalarValue)
	if !ok || v.Scalar.Kind() != datatype.KindBinary {
		return nil, false, fmt.Errorf("%w: filter %s is not a binary scalar", filter.ErrCorrupt, name)
	}

	xf, _, err := filter.FromBytes(v.Scalar.Bytes())
	if err != nil {
		return nil, false, fmt.Errorf("decoding filter %s: %w", name, err)
	}

	actual, _ := f.decoded.LoadOrStore(name, xf)
	return actual.(*filter.Xor8Filter), true, nil
}

// filterMiss is the function an absent `column = constant` site of a
// nullable column is replaced with: NULL where the column is NULL, false
// everywhere else.
const filterMiss = "filter_miss"

var evalFunctions = func() *fold.Registry {
	r := fold.BuiltinFunctions.Clone()
	r.Register(&fold.Function{
		Name: filterMiss,
		Eval: func(_ fold.FunctionContext, args []datatype.Scalar) (datatype.Scalar, error) {
			if len(args) != 1 {
				return datatype.NullScalar(), fmt.Errorf("%s: expected 1 argument, got %d", filterMiss, len(args))
			}
			if args[0].IsNull() {
				return datatype.NullScalar(), nil
			}
			return datatype.BoolScalar(false), nil
		},
		Domain: func(args []fold.Domain) fold.Domain {
			if len(args) != 1 {
				return fold.Full(datatype.Boolean.WrapNullable())
			}
			if args[0].Value == nil {
				return fold.Domain{HasNull: true}
			}
			return fold.Domain{HasNull: args[0].HasNull, Value: fold.BooleanDomain{HasFalse: true}}
		},
	})
	return r
}()

// Eval reports whether a file described by f can be skipped for predicate.
//
// Every `column = constant` site whose filter proves the constant absent is
// replaced by false, or by NULL-or-false when the column is nullable. The
// predicate is then folded with every column unconstrained. The file can be
// skipped only if the folded predicate may be false but never true.
// predicate is never modified.
func (f *ChunkFilter) Eval(predicate expr.Expression) (FilterEvalResult, error) {
	rewritten, err := expr.RewriteColumnEqConstant(predicate, func(loc expr.Span, column string, value datatype.Scalar, t datatype.DataType) (expr.Expression, error) {
		result, err := f.Find(column, value, t)
		if err != nil {
			return nil, err
		}
		if result != MustFalse {
			return nil, nil
		}
		if t.Nullable {
			return &expr.FunctionCall{
				Loc:    loc,
				Name:   filterMiss,
				Args:   []expr.Expression{&expr.ColumnRef{Loc: loc, ID: column, DataType: t}},
				Return: datatype.Boolean.WrapNullable(),
			}, nil
		}
		return &expr.Constant{Loc: loc, Value: datatype.BoolScalar(false), DataType: datatype.Boolean}, nil
	})
	if err != nil {
		return 0, err
	}

	refs := expr.ColumnRefs(rewritten)
	domains := make(map[string]fold.Domain, len(refs))
	for name, t := range refs {
		domains[name] = fold.Full(t)
	}

	_, d := fold.NewConstantFolder(domains, f.fnCtx, evalFunctions).Fold(rewritten)
	if d.Value != nil && !d.CanBeTrue() {
		return MustFalse, nil
	}
	return Uncertain, nil
}

// FindEqColumns returns the column of every `column = constant` site of
// predicate, in depth-first order, without consulting any filter.
func FindEqColumns(predicate expr.Expression) []string {
	return expr.ColumnEqConstantColumns(predicate)
}
