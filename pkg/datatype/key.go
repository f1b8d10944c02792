package datatype

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrNoKey is returned by [Scalar.AppendKey] for values that have no
// canonical key encoding.
var ErrNoKey = errors.New("value has no canonical key encoding")

// Tags of the canonical key encoding. Values that compare equal under engine
// equality share a tag.
const (
	keyTagInt    byte = 'i' // Integers and integral floats that fit int64.
	keyTagUint   byte = 'u' // Unsigned integers above math.MaxInt64.
	keyTagFloat  byte = 'f' // Non-integral floats, as float64 bits.
	keyTagBool   byte = 'b'
	keyTagBytes  byte = 's' // String and Binary.
	keyTagDate   byte = 'd'
	keyTagTstamp byte = 't'
)

// canonicalNaN is the only NaN bit pattern produced by AppendKey.
const canonicalNaN = 0x7ff8000000000001

// AppendKey appends the canonical key encoding of s to dst. Two scalars that
// are equal under engine equality produce identical bytes regardless of
// their width: Int8(5), UInt64(5) and Float64(5.0) all encode the same.
//
// NULL and kinds without a canonical encoding (Decimal, Nested, Variant)
// return [ErrNoKey].
func (s Scalar) AppendKey(dst []byte) ([]byte, error) {
	switch s.kind {
	case KindNull, KindDecimal, KindNested, KindVariant:
		return dst, fmt.Errorf("%w: %s", ErrNoKey, s.kind)

	case KindBoolean:
		return append(dst, keyTagBool, byte(s.num)), nil

	case KindInt8, KindInt16, KindInt32, KindInt64:
		return appendIntKey(dst, int64(s.num)), nil

	case KindUint8, KindUint16, KindUint32, KindUint64:
		if s.num <= math.MaxInt64 {
			return appendIntKey(dst, int64(s.num)), nil
		}
		dst = append(dst, keyTagUint)
		return binary.BigEndian.AppendUint64(dst, s.num), nil

	case KindFloat32, KindFloat64:
		return appendFloatKey(dst, math.Float64frombits(s.num)), nil

	case KindString, KindBinary:
		dst = append(dst, keyTagBytes)
		return append(dst, s.str...), nil

	case KindDate:
		dst = append(dst, keyTagDate)
		return binary.BigEndian.AppendUint64(dst, s.num), nil

	case KindTimestamp:
		dst = append(dst, keyTagTstamp)
		return binary.BigEndian.AppendUint64(dst, s.num), nil

	default:
		panic(fmt.Sprintf("datatype.Scalar.AppendKey: unhandled kind %s", s.kind))
	}
}

func appendIntKey(dst []byte, v int64) []byte {
	dst = append(dst, keyTagInt)
	return binary.BigEndian.AppendUint64(dst, uint64(v))
}

func appendFloatKey(dst []byte, f float64) []byte {
	switch {
	case math.IsNaN(f):
		dst = append(dst, keyTagFloat)
		return binary.BigEndian.AppendUint64(dst, canonicalNaN)
	case f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64:
		// Also folds -0 into 0.
		return appendIntKey(dst, int64(f))
	case f == math.Trunc(f) && f >= math.MaxInt64 && f < math.MaxUint64:
		dst = append(dst, keyTagUint)
		return binary.BigEndian.AppendUint64(dst, uint64(f))
	default:
		dst = append(dst, keyTagFloat)
		return binary.BigEndian.AppendUint64(dst, math.Float64bits(f))
	}
}
