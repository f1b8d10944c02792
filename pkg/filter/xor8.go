// Package filter implements the membership filter stored for each indexed
// column of a chunk.
//
// A filter answers whether a value is definitely absent from the column or
// possibly present. It never reports an inserted value as absent.
package filter

import (
	"errors"

	"github.com/FastFilter/xorfilter"
	"github.com/cespare/xxhash/v2"

	"github.com/grafana/blockfilter/pkg/datatype"
)

// FalsePositiveRate is the expected false positive rate of a Xor8Filter:
// one in 256 for 8-bit fingerprints.
const FalsePositiveRate = 1.0 / 256

var (
	// ErrCorrupt is returned when filter bytes cannot be decoded.
	ErrCorrupt = errors.New("corrupt filter")
	// ErrSealed is returned when adding keys to a builder that was built.
	ErrSealed = errors.New("filter builder already built")
	// ErrUnsupportedType is returned for values that cannot be indexed.
	ErrUnsupportedType = errors.New("unsupported type for filter")
)

// IsSupportedType reports whether columns of type t can be indexed. Booleans
// are not indexed: they have too few distinct values to prune on.
func IsSupportedType(t datatype.DataType) bool {
	switch k := t.RemoveNullable().Kind; {
	case k.IsNumber(), k.IsBytes():
		return true
	case k == datatype.KindDate, k == datatype.KindTimestamp:
		return true
	default:
		return false
	}
}

// Xor8Filter is an immutable xor filter with 8-bit fingerprints.
//
// The zero Xor8Filter is the empty filter. It holds no information and
// reports every key as possibly present.
type Xor8Filter struct {
	xor *xorfilter.Xor8

	// distinct is the estimated number of distinct keys. It is only set on
	// filters returned by a builder.
	distinct    uint64
	hasDistinct bool
}

// Contains reports whether s is possibly present in f. A false result
// guarantees that s was never added. NULL and values without a key
// encoding are always possibly present.
func (f *Xor8Filter) Contains(s datatype.Scalar) bool {
	if f.IsEmpty() {
		return true
	}
	key, err := s.AppendKey(nil)
	if err != nil {
		return true
	}
	return f.xor.Contains(xxhash.Sum64(key))
}

// ContainsHash reports whether the key hash h is possibly present in f.
func (f *Xor8Filter) ContainsHash(h uint64) bool {
	if f.IsEmpty() {
		return true
	}
	return f.xor.Contains(h)
}

// IsEmpty reports whether f was built without any keys.
func (f *Xor8Filter) IsEmpty() bool {
	return f.xor == nil || len(f.xor.Fingerprints) == 0
}

// ApproxDistinctCount returns the estimated number of distinct keys added to
// f. It is only known for filters returned by [Xor8Builder.Build]; decoded
// filters report false.
func (f *Xor8Filter) ApproxDistinctCount() (uint64, bool) {
	return f.distinct, f.hasDistinct
}

// Size returns the number of fingerprint bytes held by f.
func (f *Xor8Filter) Size() int {
	if f.xor == nil {
		return 0
	}
	return len(f.xor.Fingerprints)
}

// HashKey returns the hash of the canonical key of s, as inserted into
// filters.
func HashKey(s datatype.Scalar) (uint64, error) {
	key, err := s.AppendKey(nil)
	if err != nil {
		return 0, err
	}
	return xxhash.Sum64(key), nil
}
