package datatype

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// A Scalar is a single typed value. The zero Scalar is NULL.
//
// Scalar is a closed set of kinds: fixed-width kinds keep their value in num
// (two's complement for signed integers, IEEE bits for floats), byte kinds
// and kinds without a native representation (Decimal, Nested, Variant) keep
// it in str.
type Scalar struct {
	_ [0]func() // Disallow == on Scalars; use Equal.

	kind Kind
	num  uint64
	str  string
}

// NullScalar returns the NULL scalar.
func NullScalar() Scalar { return Scalar{} }

// BoolScalar returns a Boolean scalar.
func BoolScalar(v bool) Scalar {
	var n uint64
	if v {
		n = 1
	}
	return Scalar{kind: KindBoolean, num: n}
}

// IntScalar returns a signed integer scalar of kind k. It panics if k is not a
// signed integer kind; v is truncated to the width of k.
func IntScalar(k Kind, v int64) Scalar {
	switch k {
	case KindInt8:
		v = int64(int8(v))
	case KindInt16:
		v = int64(int16(v))
	case KindInt32:
		v = int64(int32(v))
	case KindInt64:
	default:
		panic(fmt.Sprintf("datatype.IntScalar: %s is not a signed integer kind", k))
	}
	return Scalar{kind: k, num: uint64(v)}
}

// UintScalar returns an unsigned integer scalar of kind k. It panics if k is
// not an unsigned integer kind; v is truncated to the width of k.
func UintScalar(k Kind, v uint64) Scalar {
	switch k {
	case KindUint8:
		v = uint64(uint8(v))
	case KindUint16:
		v = uint64(uint16(v))
	case KindUint32:
		v = uint64(uint32(v))
	case KindUint64:
	default:
		panic(fmt.Sprintf("datatype.UintScalar: %s is not an unsigned integer kind", k))
	}
	return Scalar{kind: k, num: v}
}

// Int64Scalar returns an Int64 scalar.
func Int64Scalar(v int64) Scalar { return IntScalar(KindInt64, v) }

// Uint64Scalar returns a UInt64 scalar.
func Uint64Scalar(v uint64) Scalar { return UintScalar(KindUint64, v) }

// Float32Scalar returns a Float32 scalar.
func Float32Scalar(v float32) Scalar {
	return Scalar{kind: KindFloat32, num: math.Float64bits(float64(v))}
}

// Float64Scalar returns a Float64 scalar.
func Float64Scalar(v float64) Scalar {
	return Scalar{kind: KindFloat64, num: math.Float64bits(v)}
}

// StringScalar returns a String scalar.
func StringScalar(v string) Scalar { return Scalar{kind: KindString, str: v} }

// BinaryScalar returns a Binary scalar. v is copied.
func BinaryScalar(v []byte) Scalar { return Scalar{kind: KindBinary, str: string(v)} }

// DateScalar returns a Date scalar holding days since the unix epoch.
func DateScalar(days int32) Scalar {
	return Scalar{kind: KindDate, num: uint64(int64(days))}
}

// TimestampScalar returns a Timestamp scalar holding microseconds since the
// unix epoch.
func TimestampScalar(micros int64) Scalar {
	return Scalar{kind: KindTimestamp, num: uint64(micros)}
}

// OpaqueScalar returns a scalar of a kind that has no native representation
// (Decimal, Nested, Variant), carried by its textual form.
func OpaqueScalar(k Kind, text string) Scalar {
	switch k {
	case KindDecimal, KindNested, KindVariant:
	default:
		panic(fmt.Sprintf("datatype.OpaqueScalar: %s is not an opaque kind", k))
	}
	return Scalar{kind: k, str: text}
}

// Kind returns the kind of s. NULL scalars have [KindNull].
func (s Scalar) Kind() Kind { return s.kind }

// IsNull reports whether s is NULL.
func (s Scalar) IsNull() bool { return s.kind == KindNull }

// DataType returns the type of s. NULL scalars have the nullable Null type.
func (s Scalar) DataType() DataType {
	if s.IsNull() {
		return Null
	}
	return DataType{Kind: s.kind}
}

func (s Scalar) mustBe(check func(Kind) bool, want string) {
	if !check(s.kind) {
		panic(fmt.Sprintf("datatype.Scalar kind is %s, not %s", s.kind, want))
	}
}

// Bool returns the value of a Boolean scalar.
func (s Scalar) Bool() bool {
	s.mustBe(func(k Kind) bool { return k == KindBoolean }, "Boolean")
	return s.num == 1
}

// Int returns the value of a signed integer scalar.
func (s Scalar) Int() int64 {
	s.mustBe(Kind.IsSigned, "a signed integer")
	return int64(s.num)
}

// Uint returns the value of an unsigned integer scalar.
func (s Scalar) Uint() uint64 {
	s.mustBe(Kind.IsUnsigned, "an unsigned integer")
	return s.num
}

// Float returns the value of a floating point scalar.
func (s Scalar) Float() float64 {
	s.mustBe(Kind.IsFloat, "a float")
	return math.Float64frombits(s.num)
}

// Bytes returns the value of a String or Binary scalar.
func (s Scalar) Bytes() []byte {
	s.mustBe(Kind.IsBytes, "String or Binary")
	return []byte(s.str)
}

// Str returns the value of a String or Binary scalar without copying.
func (s Scalar) Str() string {
	s.mustBe(Kind.IsBytes, "String or Binary")
	return s.str
}

// Date returns the days since epoch of a Date scalar.
func (s Scalar) Date() int32 {
	s.mustBe(func(k Kind) bool { return k == KindDate }, "Date")
	return int32(int64(s.num))
}

// Timestamp returns the microseconds since epoch of a Timestamp scalar.
func (s Scalar) Timestamp() int64 {
	s.mustBe(func(k Kind) bool { return k == KindTimestamp }, "Timestamp")
	return int64(s.num)
}

// Equal reports whether s and o have the same kind and value. Two NULLs are
// equal. Use [Compare] for equality across kinds.
func (s Scalar) Equal(o Scalar) bool {
	if s.kind != o.kind {
		return false
	}
	if s.kind.IsFloat() {
		// NaN payloads may differ; treat all NaNs alike.
		a, b := math.Float64frombits(s.num), math.Float64frombits(o.num)
		return a == b || (math.IsNaN(a) && math.IsNaN(b))
	}
	return s.num == o.num && s.str == o.str
}

// String returns a printable form of s.
func (s Scalar) String() string {
	switch k := s.kind; {
	case k == KindNull:
		return "NULL"
	case k == KindBoolean:
		return strconv.FormatBool(s.Bool())
	case k.IsSigned():
		return strconv.FormatInt(s.Int(), 10)
	case k.IsUnsigned():
		return strconv.FormatUint(s.Uint(), 10)
	case k == KindFloat32:
		return strconv.FormatFloat(s.Float(), 'g', -1, 32)
	case k == KindFloat64:
		return strconv.FormatFloat(s.Float(), 'g', -1, 64)
	case k == KindString:
		return strconv.Quote(s.str)
	case k == KindBinary:
		return fmt.Sprintf("0x%x", s.str)
	case k == KindDate:
		return time.Unix(int64(s.Date())*secondsPerDay, 0).UTC().Format(time.DateOnly)
	case k == KindTimestamp:
		return time.UnixMicro(s.Timestamp()).UTC().Format("2006-01-02 15:04:05.000000")
	default:
		return s.str
	}
}

const secondsPerDay = 24 * 60 * 60
