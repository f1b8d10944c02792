package index_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/require"

	"github.com/grafana/blockfilter/pkg/chunk"
	"github.com/grafana/blockfilter/pkg/datatype"
	"github.com/grafana/blockfilter/pkg/expr"
	"github.com/grafana/blockfilter/pkg/expr/fold"
	"github.com/grafana/blockfilter/pkg/filter"
	"github.com/grafana/blockfilter/pkg/index"
)

var (
	age   = expr.Col("age", datatype.Int32.WrapNullable())
	name  = expr.Col("name", datatype.String)
	price = expr.Col("price", datatype.Decimal)
	score = expr.Col("score", datatype.Float64)
)

func int64Lit(v int64) *expr.Constant { return expr.Lit(datatype.Int64Scalar(v)) }

func strLit(v string) *expr.Constant { return expr.Lit(datatype.StringScalar(v)) }

func int32Array(t *testing.T, values ...any) arrow.Array {
	t.Helper()

	b := array.NewInt32Builder(memory.DefaultAllocator)
	defer b.Release()
	for _, v := range values {
		if v == nil {
			b.AppendNull()
			continue
		}
		b.Append(int32(v.(int)))
	}
	return b.NewArray()
}

func stringArray(t *testing.T, values ...string) arrow.Array {
	t.Helper()

	b := array.NewStringBuilder(memory.DefaultAllocator)
	defer b.Release()
	b.AppendValues(values, nil)
	return b.NewArray()
}

// peopleChunks returns a file of two chunks: ages {20, 30} and a NULL, names
// {Bob, Carol} and a constant price column that is not indexed.
func peopleChunks(t *testing.T) []*chunk.Chunk {
	t.Helper()

	ages := int32Array(t, 20, nil)
	t.Cleanup(ages.Release)
	names := stringArray(t, "Bob", "Carol")
	t.Cleanup(names.Release)

	first, err := chunk.New([]chunk.Entry{
		{ID: "age", DataType: datatype.Int32.WrapNullable(), Value: chunk.ColumnValue{Array: ages}},
		{ID: "name", DataType: datatype.String, Value: chunk.ColumnValue{Array: names}},
		{ID: "price", DataType: datatype.Decimal, Value: chunk.ScalarValue{Scalar: datatype.OpaqueScalar(datatype.KindDecimal, "9.99")}},
		{ID: "score", DataType: datatype.Float64, Value: chunk.ScalarValue{Scalar: datatype.Float64Scalar(1.5)}},
	}, 2)
	require.NoError(t, err)

	second, err := chunk.New([]chunk.Entry{
		{ID: "age", DataType: datatype.Int32.WrapNullable(), Value: chunk.ScalarValue{Scalar: datatype.IntScalar(datatype.KindInt32, 30)}},
		{ID: "name", DataType: datatype.String, Value: chunk.ScalarValue{Scalar: datatype.StringScalar("Bob")}},
		{ID: "price", DataType: datatype.Decimal, Value: chunk.ScalarValue{Scalar: datatype.OpaqueScalar(datatype.KindDecimal, "1.00")}},
		{ID: "score", DataType: datatype.Float64, Value: chunk.ScalarValue{Scalar: datatype.Float64Scalar(2.5)}},
	}, 3)
	require.NoError(t, err)

	return []*chunk.Chunk{first, second}
}

func newPeopleFilter(t *testing.T) *index.ChunkFilter {
	t.Helper()

	f, err := index.New(fold.DefaultFunctionContext(), peopleChunks(t))
	require.NoError(t, err)
	return f
}

func TestNew(t *testing.T) {
	f := newPeopleFilter(t)

	require.Equal(t, 3, f.NumFilters())
	for _, column := range []string{"age", "name", "score"} {
		entry, ok := f.FilterChunk().GetByID(index.FilterColumnName(column))
		require.True(t, ok, "missing filter for %s", column)
		require.Equal(t, datatype.Binary, entry.DataType)

		v, ok := entry.Value.(chunk.ScalarValue)
		require.True(t, ok)
		require.Equal(t, datatype.KindBinary, v.Scalar.Kind())
	}
	_, ok := f.FilterChunk().GetByID(index.FilterColumnName("price"))
	require.False(t, ok, "decimal columns are not indexed")

	counts := f.ColumnDistinctCount()
	require.Len(t, counts, 3)
	require.EqualValues(t, 2, counts[0], "age")
	require.EqualValues(t, 2, counts[1], "name")
	require.EqualValues(t, 2, counts[3], "score")
}

func TestNew_BadArguments(t *testing.T) {
	_, err := index.New(fold.DefaultFunctionContext(), nil)
	require.ErrorIs(t, err, index.ErrBadArguments)

	chunks := peopleChunks(t)
	other, err := chunk.New([]chunk.Entry{
		{ID: "age", DataType: datatype.String, Value: chunk.ScalarValue{Scalar: datatype.StringScalar("x")}},
	}, 1)
	require.NoError(t, err)

	_, err = index.New(fold.DefaultFunctionContext(), append(chunks, other))
	require.ErrorIs(t, err, index.ErrBadArguments)
}

func TestFilterColumnName(t *testing.T) {
	require.Equal(t, "Bloom(age)", index.FilterColumnName("age"))
	require.Equal(t, "Bloom(a.b)", index.FilterColumnName("a.b"))
}

func TestChunkFilter_Find(t *testing.T) {
	f := newPeopleFilter(t)

	tt := []struct {
		name   string
		column string
		value  datatype.Scalar
		t      datatype.DataType
		expect index.FilterEvalResult
	}{
		{"present", "age", datatype.Int64Scalar(20), datatype.Int32, index.Uncertain},
		{"present in scalar chunk", "age", datatype.Int64Scalar(30), datatype.Int32, index.Uncertain},
		{"absent", "age", datatype.Int64Scalar(99), datatype.Int32, index.MustFalse},
		{"absent string", "name", datatype.StringScalar("Alice"), datatype.String, index.MustFalse},
		{"present string", "name", datatype.StringScalar("Carol"), datatype.String, index.Uncertain},
		{"string constant cast", "age", datatype.StringScalar("20"), datatype.Int32, index.Uncertain},
		{"inexact cast", "age", datatype.Float64Scalar(20.5), datatype.Int32, index.Uncertain},
		{"out of range cast", "age", datatype.Int64Scalar(1 << 40), datatype.Int32, index.Uncertain},
		{"null constant", "age", datatype.NullScalar(), datatype.Int32, index.Uncertain},
		{"ineligible type", "price", datatype.OpaqueScalar(datatype.KindDecimal, "5"), datatype.Decimal, index.Uncertain},
		{"boolean type", "age", datatype.BoolScalar(true), datatype.Boolean, index.Uncertain},
		{"unknown column", "height", datatype.Int64Scalar(99), datatype.Int32, index.Uncertain},
		{"float column", "score", datatype.Float64Scalar(3), datatype.Float64, index.MustFalse},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			actual, err := f.Find(tc.column, tc.value, tc.t)
			require.NoError(t, err)
			require.Equal(t, tc.expect, actual)
		})
	}
}

func TestChunkFilter_Eval(t *testing.T) {
	tt := []struct {
		name   string
		e      expr.Expression
		expect index.FilterEvalResult
	}{
		{"absent", expr.Eq(age, int64Lit(99)), index.MustFalse},
		{"present", expr.Eq(age, int64Lit(20)), index.Uncertain},
		{"reversed absent", expr.Eq(int64Lit(99), age), index.MustFalse},
		{"absent and unknown", expr.And(expr.Eq(age, int64Lit(99)), expr.Eq(name, strLit("Alice"))), index.MustFalse},
		{"absent or present", expr.Or(expr.Eq(age, int64Lit(99)), expr.Eq(name, strLit("Bob"))), index.Uncertain},
		{"absent or absent", expr.Or(expr.Eq(age, int64Lit(99)), expr.Eq(name, strLit("Alice"))), index.MustFalse},
		{"not absent", expr.Not(expr.Eq(age, int64Lit(99))), index.Uncertain},
		{"range only", expr.Gt(age, int64Lit(5)), index.Uncertain},
		{"unindexed column", expr.Eq(price, expr.Lit(datatype.OpaqueScalar(datatype.KindDecimal, "1"))), index.Uncertain},
		{"absent under cast", expr.CastTo(expr.Eq(age, int64Lit(99)), datatype.Boolean), index.MustFalse},
		{"constant true", expr.Lit(datatype.BoolScalar(true)), index.Uncertain},
		{"constant false", expr.Lit(datatype.BoolScalar(false)), index.MustFalse},
	}

	f := newPeopleFilter(t)
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			before := tc.e.String()

			actual, err := f.Eval(tc.e)
			require.NoError(t, err)
			require.Equal(t, tc.expect, actual)
			require.Equal(t, before, tc.e.String(), "predicate must not change")
		})
	}
}

func TestChunkFilter_EvalNeverMustTrue(t *testing.T) {
	f := newPeopleFilter(t)

	predicates := []expr.Expression{
		expr.Eq(age, int64Lit(20)),
		expr.Not(expr.Eq(age, int64Lit(99))),
		expr.Or(expr.Eq(age, int64Lit(99)), expr.Lit(datatype.BoolScalar(true))),
		expr.Lit(datatype.BoolScalar(true)),
		expr.IsNotNull(name),
	}
	for _, p := range predicates {
		result, err := f.Eval(p)
		require.NoError(t, err)
		require.Contains(t, []index.FilterEvalResult{index.MustFalse, index.Uncertain}, result)
		require.Equal(t, index.Uncertain, result, "%s", p)
	}
}

func TestFromFilterChunk(t *testing.T) {
	built := newPeopleFilter(t)
	loaded := index.FromFilterChunk(built.FunctionContext(), built.FilterChunk())

	require.Empty(t, loaded.ColumnDistinctCount())
	require.Equal(t, built.NumFilters(), loaded.NumFilters())

	for _, e := range []expr.Expression{
		expr.Eq(age, int64Lit(99)),
		expr.Eq(age, int64Lit(20)),
		expr.And(expr.Eq(age, int64Lit(99)), expr.Eq(name, strLit("Alice"))),
		expr.Or(expr.Eq(age, int64Lit(99)), expr.Eq(name, strLit("Alice"))),
	} {
		expect, err := built.Eval(e)
		require.NoError(t, err)
		actual, err := loaded.Eval(e)
		require.NoError(t, err)
		require.Equal(t, expect, actual, "%s", e)
	}
}

func TestChunkFilter_NoIndexableColumns(t *testing.T) {
	c, err := chunk.New([]chunk.Entry{
		{ID: "price", DataType: datatype.Decimal, Value: chunk.ScalarValue{Scalar: datatype.OpaqueScalar(datatype.KindDecimal, "1")}},
		{ID: "flag", DataType: datatype.Boolean, Value: chunk.ScalarValue{Scalar: datatype.BoolScalar(true)}},
		{ID: "doc", DataType: datatype.Variant, Value: chunk.ScalarValue{Scalar: datatype.OpaqueScalar(datatype.KindVariant, "{}")}},
	}, 4)
	require.NoError(t, err)

	f, err := index.New(fold.DefaultFunctionContext(), []*chunk.Chunk{c})
	require.NoError(t, err)
	require.Zero(t, f.NumFilters())
	require.Empty(t, f.ColumnDistinctCount())

	result, err := f.Find("price", datatype.OpaqueScalar(datatype.KindDecimal, "1"), datatype.Decimal)
	require.NoError(t, err)
	require.Equal(t, index.Uncertain, result)

	result, err = f.Find("age", datatype.Int64Scalar(1), datatype.Int64)
	require.NoError(t, err)
	require.Equal(t, index.Uncertain, result)

	result, err = f.Eval(expr.Eq(expr.Col("age", datatype.Int64), int64Lit(1)))
	require.NoError(t, err)
	require.Equal(t, index.Uncertain, result)
}

func TestChunkFilter_EmptyColumn(t *testing.T) {
	nulls := int32Array(t, nil, nil)
	defer nulls.Release()

	c, err := chunk.New([]chunk.Entry{
		{ID: "age", DataType: datatype.Int32.WrapNullable(), Value: chunk.ColumnValue{Array: nulls}},
	}, 2)
	require.NoError(t, err)

	f, err := index.New(fold.DefaultFunctionContext(), []*chunk.Chunk{c})
	require.NoError(t, err)
	require.Equal(t, 1, f.NumFilters())

	result, err := f.Eval(expr.Eq(age, int64Lit(99)))
	require.NoError(t, err)
	require.Equal(t, index.Uncertain, result, "a filter without keys holds no information")
}

func TestChunkFilter_Corrupt(t *testing.T) {
	t.Run("bad bytes", func(t *testing.T) {
		filterChunk, err := chunk.New([]chunk.Entry{
			{ID: index.FilterColumnName("age"), DataType: datatype.Binary, Value: chunk.ScalarValue{Scalar: datatype.BinaryScalar([]byte("garbage"))}},
		}, 1)
		require.NoError(t, err)
		f := index.FromFilterChunk(fold.DefaultFunctionContext(), filterChunk)

		_, err = f.Eval(expr.Eq(age, int64Lit(1)))
		require.ErrorIs(t, err, filter.ErrCorrupt)

		_, err = f.Eval(expr.Or(expr.Gt(age, int64Lit(1)), expr.Eq(int64Lit(1), age)))
		require.ErrorIs(t, err, filter.ErrCorrupt)

		result, err := f.Eval(expr.Eq(name, strLit("x")))
		require.NoError(t, err, "other columns are unaffected")
		require.Equal(t, index.Uncertain, result)
	})

	t.Run("not a binary scalar", func(t *testing.T) {
		filterChunk, err := chunk.New([]chunk.Entry{
			{ID: index.FilterColumnName("age"), DataType: datatype.Int64, Value: chunk.ScalarValue{Scalar: datatype.Int64Scalar(1)}},
		}, 1)
		require.NoError(t, err)
		f := index.FromFilterChunk(fold.DefaultFunctionContext(), filterChunk)

		_, err = f.Find("age", datatype.Int64Scalar(1), datatype.Int32)
		require.ErrorIs(t, err, filter.ErrCorrupt)
	})
}

func TestChunkFilter_ConcurrentEval(t *testing.T) {
	f := newPeopleFilter(t)
	predicate := expr.And(expr.Eq(age, int64Lit(99)), expr.Eq(name, strLit("Bob")))

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := f.Eval(predicate)
			if err == nil && result != index.MustFalse {
				err = fmt.Errorf("goroutine %d: unexpected result %s", i, result)
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
}

func TestFindEqColumns(t *testing.T) {
	require.Equal(t, []string{"age"}, index.FindEqColumns(expr.And(expr.Eq(age, int64Lit(20)), expr.Gt(price, int64Lit(5)))))
	require.Equal(t, []string{"age"}, index.FindEqColumns(expr.Eq(int64Lit(20), age)))
	require.Empty(t, index.FindEqColumns(expr.Gt(age, int64Lit(1))))
}

func TestEval_Idempotent(t *testing.T) {
	f := newPeopleFilter(t)
	predicate := expr.And(expr.Eq(age, int64Lit(99)), expr.Or(expr.Eq(name, strLit("Zed")), expr.Eq(age, int64Lit(20))))

	rewrite := func(loc expr.Span, column string, value datatype.Scalar, t datatype.DataType) (expr.Expression, error) {
		result, err := f.Find(column, value, t)
		if err != nil || result != index.MustFalse {
			return nil, err
		}
		return &expr.Constant{Loc: loc, Value: datatype.BoolScalar(false), DataType: datatype.Boolean}, nil
	}

	once, err := expr.RewriteColumnEqConstant(predicate, rewrite)
	require.NoError(t, err)
	twice, err := expr.RewriteColumnEqConstant(once, rewrite)
	require.NoError(t, err)
	require.Same(t, once, twice)
	require.Equal(t, "and(false, or(false, eq(age, 20)))", once.String())
}

func TestChunkFilter_EvalAgeOnly(t *testing.T) {
	ages := int32Array(t, 20, 30)
	defer ages.Release()

	c, err := chunk.New([]chunk.Entry{
		{ID: "age", DataType: datatype.Int32.WrapNullable(), Value: chunk.ColumnValue{Array: ages}},
	}, 2)
	require.NoError(t, err)

	f, err := index.New(fold.DefaultFunctionContext(), []*chunk.Chunk{c})
	require.NoError(t, err)

	// name is not a column of the file, so it has no filter.
	for _, tc := range []struct {
		e      expr.Expression
		expect index.FilterEvalResult
	}{
		{expr.Eq(age, int64Lit(99)), index.MustFalse},
		{expr.Eq(age, int64Lit(20)), index.Uncertain},
		{expr.And(expr.Eq(age, int64Lit(99)), expr.Eq(name, strLit("Alice"))), index.MustFalse},
		{expr.Or(expr.Eq(age, int64Lit(99)), expr.Eq(name, strLit("Alice"))), index.Uncertain},
	} {
		actual, err := f.Eval(tc.e)
		require.NoError(t, err)
		require.Equal(t, tc.expect, actual, "%s", tc.e)
	}
}

func TestChunkFilter_TemporalTimezone(t *testing.T) {
	const (
		day     = 19723            // 2024-01-01
		dayTs   = 1704067200000000 // 2024-01-01T00:00:00Z
		laterTs = 1735689600000000 // 2025-01-01T00:00:00Z
	)
	ts := expr.Col("ts", datatype.Timestamp)
	d := expr.Col("d", datatype.Date)
	stored := map[string]datatype.Scalar{
		"ts": datatype.TimestampScalar(dayTs),
		"d":  datatype.DateScalar(day),
	}

	c, err := chunk.New([]chunk.Entry{
		{ID: "ts", DataType: datatype.Timestamp, Value: chunk.ScalarValue{Scalar: stored["ts"]}},
		{ID: "d", DataType: datatype.Date, Value: chunk.ScalarValue{Scalar: stored["d"]}},
	}, 3)
	require.NoError(t, err)

	fnCtx := fold.FunctionContext{Timezone: time.FixedZone("EST", -5*3600)}
	f, err := index.New(fnCtx, []*chunk.Chunk{c})
	require.NoError(t, err)

	tt := []struct {
		name   string
		column *expr.ColumnRef
		value  datatype.Scalar
		expect index.FilterEvalResult
	}{
		{"date against timestamp", ts, datatype.DateScalar(day), index.Uncertain},
		{"timestamp against timestamp", ts, datatype.TimestampScalar(dayTs), index.Uncertain},
		{"local text against timestamp", ts, datatype.StringScalar("2023-12-31 19:00:00"), index.Uncertain},
		{"absent timestamp", ts, datatype.TimestampScalar(laterTs), index.MustFalse},
		{"absent local text against timestamp", ts, datatype.StringScalar("2024-01-01 00:00:00"), index.MustFalse},
		{"date against date", d, datatype.DateScalar(day), index.Uncertain},
		{"utc midnight against date", d, datatype.TimestampScalar(dayTs), index.Uncertain},
		{"local midnight against date", d, datatype.TimestampScalar(dayTs + 5*3600*1e6), index.Uncertain},
		{"text against date", d, datatype.StringScalar("2024-01-01"), index.Uncertain},
		{"absent date", d, datatype.DateScalar(day + 366), index.MustFalse},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			found, err := f.Find(tc.column.ID, tc.value, tc.column.DataType)
			require.NoError(t, err)
			require.Equal(t, tc.expect, found)

			evaluated, err := f.Eval(expr.Eq(tc.column, expr.Lit(tc.value)))
			require.NoError(t, err)
			require.Equal(t, tc.expect, evaluated)

			// A stored row equal to the constant must never be ruled out.
			if c, ok := datatype.Compare(stored[tc.column.ID], tc.value); ok && c == 0 {
				require.Equal(t, index.Uncertain, found)
			}
		})
	}
}

func TestChunkFilter_NumberAgainstString(t *testing.T) {
	f := newPeopleFilter(t)

	result, err := f.Find("name", datatype.Int64Scalar(20), datatype.String)
	require.NoError(t, err)
	require.Equal(t, index.Uncertain, result)

	result, err = f.Eval(expr.Eq(name, int64Lit(20)))
	require.NoError(t, err)
	require.Equal(t, index.Uncertain, result)

	// Text is still parsed into numeric columns.
	result, err = f.Eval(expr.Eq(age, strLit("99")))
	require.NoError(t, err)
	require.Equal(t, index.MustFalse, result)
}

func TestChunkFilter_EvalNullableAbsent(t *testing.T) {
	f := newPeopleFilter(t)

	tt := []struct {
		name   string
		e      expr.Expression
		expect index.FilterEvalResult
	}{
		{"absent", expr.Eq(age, int64Lit(99)), index.MustFalse},
		// age holds NULLs, for which the comparison is NULL.
		{"is null of absent", expr.IsNull(expr.Eq(age, int64Lit(99))), index.Uncertain},
		{"is not null of absent", expr.IsNotNull(expr.Eq(age, int64Lit(99))), index.Uncertain},
		{"not absent", expr.Not(expr.Eq(age, int64Lit(99))), index.Uncertain},
		{"absent and is null", expr.And(expr.Eq(age, int64Lit(99)), expr.IsNull(age)), index.MustFalse},
		// name has no NULLs.
		{"is null of absent non-null", expr.IsNull(expr.Eq(name, strLit("Alice"))), index.MustFalse},
		{"null predicate", expr.Eq(age, &expr.Constant{Value: datatype.NullScalar(), DataType: datatype.Null}), index.Uncertain},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			actual, err := f.Eval(tc.e)
			require.NoError(t, err)
			require.Equal(t, tc.expect, actual)
		})
	}
}
