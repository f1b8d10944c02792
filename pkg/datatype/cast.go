package datatype

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"
)

// ErrCast is returned when a value cannot be represented in the target kind.
var ErrCast = errors.New("cannot cast value")

var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999",
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	time.DateOnly,
}

// Cast converts s to kind to. Date and timestamp conversions are performed in
// loc (UTC when nil).
//
// The exact result reports whether the conversion preserved the value, so
// that casting back yields an equal scalar. Conversions that cannot produce
// any value (out of range integers, unparsable strings, unsupported kind
// pairs) return an error wrapping [ErrCast]. NULL casts to NULL.
func Cast(s Scalar, to Kind, loc *time.Location) (out Scalar, exact bool, err error) {
	if loc == nil {
		loc = time.UTC
	}
	if s.IsNull() || to == KindNull {
		return NullScalar(), s.IsNull(), nil
	}
	if s.kind == to {
		return s, true, nil
	}

	from := s.kind
	switch {
	case from.IsNumber() && to.IsNumber():
		return castNumber(s, to)

	case from == KindBoolean && to.IsNumber():
		return castNumber(IntScalar(KindInt8, int64(s.num)), to)

	case from.IsNumber() && to == KindBoolean:
		zero, _ := Compare(s, Int64Scalar(0))
		return BoolScalar(zero != 0), false, nil

	case from.IsBytes() && to.IsBytes():
		return Scalar{kind: to, str: s.str}, true, nil

	case from.IsBytes():
		return parseScalar(s.str, to, loc)

	case to == KindString:
		return StringScalar(s.text()), true, nil

	case from == KindDate && to == KindTimestamp:
		y, m, d := time.Unix(int64(s.Date())*secondsPerDay, 0).UTC().Date()
		return TimestampScalar(time.Date(y, m, d, 0, 0, 0, 0, loc).UnixMicro()), true, nil

	case from == KindTimestamp && to == KindDate:
		t := time.UnixMicro(s.Timestamp()).In(loc)
		y, m, d := t.Date()
		midnight := time.Date(y, m, d, 0, 0, 0, 0, loc)
		return dateOf(y, m, d), t.Equal(midnight), nil
	}

	return NullScalar(), false, fmt.Errorf("%w: %s to %s", ErrCast, from, to)
}

// text returns s formatted without quoting, as used for casts to String.
func (s Scalar) text() string {
	if s.kind.IsBytes() {
		return s.str
	}
	return s.String()
}

func dateOf(y int, m time.Month, d int) Scalar {
	days := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / secondsPerDay
	return DateScalar(int32(days))
}

func castNumber(s Scalar, to Kind) (Scalar, bool, error) {
	var out Scalar

	switch {
	case to.IsSigned():
		lo, hi := signedBounds(to)
		if c, ok := Compare(s, Int64Scalar(lo)); !ok || c < 0 {
			return NullScalar(), false, fmt.Errorf("%w: %s out of range for %s", ErrCast, s, to)
		}
		if c, _ := Compare(s, Int64Scalar(hi)); c > 0 {
			return NullScalar(), false, fmt.Errorf("%w: %s out of range for %s", ErrCast, s, to)
		}
		switch {
		case s.kind.IsFloat():
			out = IntScalar(to, int64(math.Trunc(s.Float())))
		case s.kind.IsSigned():
			out = IntScalar(to, s.Int())
		default:
			out = IntScalar(to, int64(s.Uint()))
		}

	case to.IsUnsigned():
		hi := unsignedBound(to)
		if c, ok := Compare(s, Int64Scalar(0)); !ok || c < 0 {
			return NullScalar(), false, fmt.Errorf("%w: %s out of range for %s", ErrCast, s, to)
		}
		if c, _ := Compare(s, Uint64Scalar(hi)); c > 0 {
			return NullScalar(), false, fmt.Errorf("%w: %s out of range for %s", ErrCast, s, to)
		}
		switch {
		case s.kind.IsFloat():
			out = UintScalar(to, uint64(math.Trunc(s.Float())))
		case s.kind.IsSigned():
			out = UintScalar(to, uint64(s.Int()))
		default:
			out = UintScalar(to, s.Uint())
		}

	case to == KindFloat32:
		out = Float32Scalar(float32(numberAsFloat(s)))

	case to == KindFloat64:
		out = Float64Scalar(numberAsFloat(s))
	}

	c, ok := Compare(s, out)
	return out, ok && c == 0, nil
}

func numberAsFloat(s Scalar) float64 {
	switch {
	case s.kind.IsFloat():
		return s.Float()
	case s.kind.IsSigned():
		return float64(s.Int())
	default:
		return float64(s.Uint())
	}
}

func signedBounds(k Kind) (int64, int64) {
	switch k {
	case KindInt8:
		return math.MinInt8, math.MaxInt8
	case KindInt16:
		return math.MinInt16, math.MaxInt16
	case KindInt32:
		return math.MinInt32, math.MaxInt32
	default:
		return math.MinInt64, math.MaxInt64
	}
}

func unsignedBound(k Kind) uint64 {
	switch k {
	case KindUint8:
		return math.MaxUint8
	case KindUint16:
		return math.MaxUint16
	case KindUint32:
		return math.MaxUint32
	default:
		return math.MaxUint64
	}
}

// MinMax returns the smallest and largest value of an integer, date or
// timestamp kind. ok is false for other kinds.
func MinMax(k Kind) (lo, hi Scalar, ok bool) {
	switch {
	case k.IsSigned():
		l, h := signedBounds(k)
		return IntScalar(k, l), IntScalar(k, h), true
	case k.IsUnsigned():
		return UintScalar(k, 0), UintScalar(k, unsignedBound(k)), true
	case k == KindDate:
		return DateScalar(math.MinInt32), DateScalar(math.MaxInt32), true
	case k == KindTimestamp:
		return TimestampScalar(math.MinInt64), TimestampScalar(math.MaxInt64), true
	default:
		return NullScalar(), NullScalar(), false
	}
}

func parseScalar(str string, to Kind, loc *time.Location) (Scalar, bool, error) {
	fail := func(err error) (Scalar, bool, error) {
		return NullScalar(), false, fmt.Errorf("%w: parse %q as %s: %v", ErrCast, str, to, err)
	}

	switch {
	case to.IsSigned():
		v, err := strconv.ParseInt(str, 10, 64)
		if err != nil {
			return fail(err)
		}
		return castNumber(Int64Scalar(v), to)

	case to.IsUnsigned():
		v, err := strconv.ParseUint(str, 10, 64)
		if err != nil {
			return fail(err)
		}
		return castNumber(Uint64Scalar(v), to)

	case to == KindFloat32:
		v, err := strconv.ParseFloat(str, 32)
		if err != nil {
			return fail(err)
		}
		return Float32Scalar(float32(v)), true, nil

	case to == KindFloat64:
		v, err := strconv.ParseFloat(str, 64)
		if err != nil {
			return fail(err)
		}
		return Float64Scalar(v), true, nil

	case to == KindBoolean:
		v, err := strconv.ParseBool(str)
		if err != nil {
			return fail(err)
		}
		return BoolScalar(v), true, nil

	case to == KindDate:
		t, err := time.ParseInLocation(time.DateOnly, str, loc)
		if err != nil {
			return fail(err)
		}
		return dateOf(t.Date()), true, nil

	case to == KindTimestamp:
		var lastErr error
		for _, layout := range timestampLayouts {
			t, err := time.ParseInLocation(layout, str, loc)
			if err == nil {
				return TimestampScalar(t.UnixMicro()), true, nil
			}
			lastErr = err
		}
		return fail(lastErr)
	}

	return NullScalar(), false, fmt.Errorf("%w: String to %s", ErrCast, to)
}
