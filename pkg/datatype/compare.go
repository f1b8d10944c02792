package datatype

import (
	"cmp"
	"math"
	"strings"
)

const microsPerDay = secondsPerDay * 1_000_000

// Compare returns -1 if a<b, 0 if a==b, or 1 if a>b. The boolean result is
// false when a and b are not comparable: either is NULL or NaN, or their
// kinds belong to different families.
//
// Numeric kinds compare exactly across widths and signedness, strings and
// binaries compare bytewise, and dates compare with timestamps at midnight
// UTC.
func Compare(a, b Scalar) (int, bool) {
	if a.IsNull() || b.IsNull() {
		return 0, false
	}

	switch ak, bk := a.kind, b.kind; {
	case ak.IsNumber() && bk.IsNumber():
		return compareNumbers(a, b)
	case ak.IsBytes() && bk.IsBytes():
		return strings.Compare(a.str, b.str), true
	case ak == KindBoolean && bk == KindBoolean:
		return cmp.Compare(a.num, b.num), true
	case isTemporal(ak) && isTemporal(bk):
		return cmp.Compare(temporalMicros(a), temporalMicros(b)), true
	default:
		return 0, false
	}
}

func isTemporal(k Kind) bool { return k == KindDate || k == KindTimestamp }

func temporalMicros(s Scalar) int64 {
	if s.kind == KindDate {
		return int64(s.Date()) * microsPerDay
	}
	return s.Timestamp()
}

func compareNumbers(a, b Scalar) (int, bool) {
	switch {
	case a.kind.IsFloat() && b.kind.IsFloat():
		x, y := a.Float(), b.Float()
		if math.IsNaN(x) || math.IsNaN(y) {
			return 0, false
		}
		return cmp.Compare(x, y), true
	case a.kind.IsFloat():
		return compareFloatInt(a.Float(), b)
	case b.kind.IsFloat():
		c, ok := compareFloatInt(b.Float(), a)
		return -c, ok
	}

	// Both integers.
	switch {
	case a.kind.IsSigned() && b.kind.IsSigned():
		return cmp.Compare(a.Int(), b.Int()), true
	case a.kind.IsUnsigned() && b.kind.IsUnsigned():
		return cmp.Compare(a.Uint(), b.Uint()), true
	case a.kind.IsSigned():
		return compareIntUint(a.Int(), b.Uint()), true
	default:
		return -compareIntUint(b.Int(), a.Uint()), true
	}
}

func compareIntUint(i int64, u uint64) int {
	if i < 0 {
		return -1
	}
	return cmp.Compare(uint64(i), u)
}

// compareFloatInt compares f against the integer scalar n without losing
// precision.
func compareFloatInt(f float64, n Scalar) (int, bool) {
	if math.IsNaN(f) {
		return 0, false
	}
	t := math.Trunc(f)
	frac := cmp.Compare(f-t, 0)
	if math.IsInf(f, 0) {
		frac = 0
	}

	if n.kind.IsSigned() {
		i := n.Int()
		switch {
		case t < math.MinInt64:
			return -1, true
		case t >= math.MaxInt64:
			return 1, true
		}
		if c := cmp.Compare(int64(t), i); c != 0 {
			return c, true
		}
		return frac, true
	}

	u := n.Uint()
	switch {
	case t < 0:
		return -1, true
	case t >= math.MaxUint64:
		return 1, true
	}
	if c := cmp.Compare(uint64(t), u); c != 0 {
		return c, true
	}
	return frac, true
}
