package datatype_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/grafana/blockfilter/pkg/datatype"
)

func TestCompare(t *testing.T) {
	tt := []struct {
		name   string
		a, b   datatype.Scalar
		expect int
		ok     bool
	}{
		{"int equal across widths", datatype.IntScalar(datatype.KindInt8, 7), datatype.Uint64Scalar(7), 0, true},
		{"negative below huge unsigned", datatype.Int64Scalar(-1), datatype.Uint64Scalar(math.MaxUint64), -1, true},
		{"huge unsigned above max int", datatype.Uint64Scalar(math.MaxUint64), datatype.Int64Scalar(math.MaxInt64), 1, true},
		{"float above int", datatype.Float64Scalar(1.5), datatype.Int64Scalar(1), 1, true},
		{"int below float", datatype.Int64Scalar(1), datatype.Float64Scalar(1.5), -1, true},
		{"negative fraction below zero", datatype.Float64Scalar(-0.5), datatype.UintScalar(datatype.KindUint8, 0), -1, true},
		{"integral float equals int", datatype.Float64Scalar(1), datatype.UintScalar(datatype.KindUint8, 1), 0, true},
		{"precision beyond float", datatype.Float64Scalar(1 << 53), datatype.Int64Scalar(1<<53 + 1), -1, true},
		{"infinity above max uint", datatype.Float64Scalar(math.Inf(1)), datatype.Uint64Scalar(math.MaxUint64), 1, true},
		{"negative infinity below min int", datatype.Float64Scalar(math.Inf(-1)), datatype.Int64Scalar(math.MinInt64), -1, true},
		{"floats", datatype.Float32Scalar(0.5), datatype.Float64Scalar(0.25), 1, true},
		{"strings", datatype.StringScalar("a"), datatype.StringScalar("b"), -1, true},
		{"string and binary", datatype.StringScalar("a"), datatype.BinaryScalar([]byte("a")), 0, true},
		{"booleans", datatype.BoolScalar(false), datatype.BoolScalar(true), -1, true},
		{"date and timestamp", datatype.DateScalar(1), datatype.TimestampScalar(86_400_000_000), 0, true},
		{"timestamp after date", datatype.TimestampScalar(86_400_000_001), datatype.DateScalar(1), 1, true},

		{"null", datatype.NullScalar(), datatype.Int64Scalar(1), 0, false},
		{"nan", datatype.Float64Scalar(math.NaN()), datatype.Float64Scalar(1), 0, false},
		{"nan against int", datatype.Int64Scalar(1), datatype.Float64Scalar(math.NaN()), 0, false},
		{"string and number", datatype.StringScalar("1"), datatype.Int64Scalar(1), 0, false},
		{"bool and number", datatype.BoolScalar(true), datatype.Int64Scalar(1), 0, false},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			actual, ok := datatype.Compare(tc.a, tc.b)
			require.Equal(t, tc.ok, ok)
			if tc.ok {
				require.Equal(t, tc.expect, actual)
			}
		})
	}
}

func TestScalar_Equal(t *testing.T) {
	require.True(t, datatype.NullScalar().Equal(datatype.NullScalar()))
	require.True(t, datatype.Int64Scalar(3).Equal(datatype.Int64Scalar(3)))
	require.False(t, datatype.Int64Scalar(3).Equal(datatype.Uint64Scalar(3)))
	require.True(t, datatype.Float64Scalar(math.NaN()).Equal(datatype.Float64Scalar(math.NaN())))
	require.False(t, datatype.StringScalar("a").Equal(datatype.BinaryScalar([]byte("a"))))
}

func TestScalar_Accessors(t *testing.T) {
	require.Equal(t, int64(-128), datatype.IntScalar(datatype.KindInt8, 128).Int(), "truncated to width")
	require.Equal(t, uint64(44), datatype.UintScalar(datatype.KindUint8, 300).Uint(), "truncated to width")
	require.Equal(t, int32(-1), datatype.DateScalar(-1).Date())
	require.Equal(t, []byte("x"), datatype.BinaryScalar([]byte("x")).Bytes())

	require.Panics(t, func() { datatype.StringScalar("x").Int() })
	require.Panics(t, func() { datatype.IntScalar(datatype.KindString, 1) })
	require.Panics(t, func() { datatype.OpaqueScalar(datatype.KindInt8, "1") })
}

func TestScalar_String(t *testing.T) {
	tt := []struct {
		value  datatype.Scalar
		expect string
	}{
		{datatype.NullScalar(), "NULL"},
		{datatype.BoolScalar(true), "true"},
		{datatype.Int64Scalar(-4), "-4"},
		{datatype.Uint64Scalar(4), "4"},
		{datatype.Float64Scalar(2.5), "2.5"},
		{datatype.StringScalar("Alice"), `"Alice"`},
		{datatype.BinaryScalar([]byte{0x01, 0xff}), "0x01ff"},
		{datatype.DateScalar(1), "1970-01-02"},
		{datatype.TimestampScalar(1_500_000), "1970-01-01 00:00:01.500000"},
		{datatype.OpaqueScalar(datatype.KindDecimal, "1.00"), "1.00"},
	}

	for _, tc := range tt {
		require.Equal(t, tc.expect, tc.value.String())
	}
}

func TestDataType_String(t *testing.T) {
	require.Equal(t, "Int32", datatype.Int32.String())
	require.Equal(t, "Nullable(Int32)", datatype.Int32.WrapNullable().String())
	require.Equal(t, datatype.Int32, datatype.Int32.WrapNullable().RemoveNullable())
	require.Equal(t, "Null", datatype.Null.RemoveNullable().String())
	require.True(t, datatype.Null.RemoveNullable().Nullable)
}

func TestCast(t *testing.T) {
	plus2 := time.FixedZone("UTC+2", 2*60*60)
	newYear := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	newYearDays := int32(newYear.Unix() / (24 * 60 * 60))

	tt := []struct {
		name   string
		in     datatype.Scalar
		to     datatype.Kind
		loc    *time.Location
		expect datatype.Scalar
		exact  bool
		err    bool
	}{
		{name: "same kind", in: datatype.Int64Scalar(5), to: datatype.KindInt64, expect: datatype.Int64Scalar(5), exact: true},
		{name: "narrowing in range", in: datatype.Int64Scalar(5), to: datatype.KindInt8, expect: datatype.IntScalar(datatype.KindInt8, 5), exact: true},
		{name: "narrowing out of range", in: datatype.Int64Scalar(300), to: datatype.KindInt8, err: true},
		{name: "negative to unsigned", in: datatype.Int64Scalar(-1), to: datatype.KindUint32, err: true},
		{name: "unsigned to signed", in: datatype.Uint64Scalar(20), to: datatype.KindInt32, expect: datatype.IntScalar(datatype.KindInt32, 20), exact: true},
		{name: "fractional float to int", in: datatype.Float64Scalar(5.5), to: datatype.KindInt64, expect: datatype.Int64Scalar(5), exact: false},
		{name: "integral float to int", in: datatype.Float64Scalar(99), to: datatype.KindUint8, expect: datatype.UintScalar(datatype.KindUint8, 99), exact: true},
		{name: "nan to int", in: datatype.Float64Scalar(math.NaN()), to: datatype.KindInt64, err: true},
		{name: "int to float lossy", in: datatype.Int64Scalar(1<<53 + 1), to: datatype.KindFloat64, expect: datatype.Float64Scalar(1 << 53), exact: false},
		{name: "int to float", in: datatype.Int64Scalar(3), to: datatype.KindFloat32, expect: datatype.Float32Scalar(3), exact: true},
		{name: "bool to int", in: datatype.BoolScalar(true), to: datatype.KindInt64, expect: datatype.Int64Scalar(1), exact: true},
		{name: "string to int", in: datatype.StringScalar("42"), to: datatype.KindInt32, expect: datatype.IntScalar(datatype.KindInt32, 42), exact: true},
		{name: "bad string to int", in: datatype.StringScalar("abc"), to: datatype.KindInt32, err: true},
		{name: "string to binary", in: datatype.StringScalar("abc"), to: datatype.KindBinary, expect: datatype.BinaryScalar([]byte("abc")), exact: true},
		{name: "string to date", in: datatype.StringScalar("2024-01-02"), to: datatype.KindDate, expect: datatype.DateScalar(newYearDays), exact: true},
		{name: "string to timestamp", in: datatype.StringScalar("2024-01-02 00:00:00"), to: datatype.KindTimestamp, expect: datatype.TimestampScalar(newYear.UnixMicro()), exact: true},
		{name: "string to timestamp in zone", in: datatype.StringScalar("2024-01-02 02:00:00"), to: datatype.KindTimestamp, loc: plus2, expect: datatype.TimestampScalar(newYear.UnixMicro()), exact: true},
		{name: "int to string", in: datatype.Int64Scalar(-7), to: datatype.KindString, expect: datatype.StringScalar("-7"), exact: true},
		{name: "date to timestamp", in: datatype.DateScalar(1), to: datatype.KindTimestamp, expect: datatype.TimestampScalar(86_400_000_000), exact: true},
		{name: "date to timestamp in zone", in: datatype.DateScalar(0), to: datatype.KindTimestamp, loc: plus2, expect: datatype.TimestampScalar(-2 * 60 * 60 * 1_000_000), exact: true},
		{name: "timestamp at midnight to date", in: datatype.TimestampScalar(86_400_000_000), to: datatype.KindDate, expect: datatype.DateScalar(1), exact: true},
		{name: "timestamp to date truncates", in: datatype.TimestampScalar(86_400_000_001), to: datatype.KindDate, expect: datatype.DateScalar(1), exact: false},
		{name: "null", in: datatype.NullScalar(), to: datatype.KindInt8, expect: datatype.NullScalar(), exact: true},
		{name: "unsupported", in: datatype.DateScalar(1), to: datatype.KindInt64, err: true},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			actual, exact, err := datatype.Cast(tc.in, tc.to, tc.loc)
			if tc.err {
				require.ErrorIs(t, err, datatype.ErrCast)
				return
			}
			require.NoError(t, err)
			require.True(t, tc.expect.Equal(actual), "expected %s (%s), got %s (%s)", tc.expect, tc.expect.Kind(), actual, actual.Kind())
			require.Equal(t, tc.exact, exact)
		})
	}
}

func TestMinMax(t *testing.T) {
	lo, hi, ok := datatype.MinMax(datatype.KindInt16)
	require.True(t, ok)
	require.Equal(t, int64(math.MinInt16), lo.Int())
	require.Equal(t, int64(math.MaxInt16), hi.Int())

	lo, hi, ok = datatype.MinMax(datatype.KindUint8)
	require.True(t, ok)
	require.Equal(t, uint64(0), lo.Uint())
	require.Equal(t, uint64(math.MaxUint8), hi.Uint())

	_, _, ok = datatype.MinMax(datatype.KindFloat64)
	require.False(t, ok)
	_, _, ok = datatype.MinMax(datatype.KindString)
	require.False(t, ok)
}
