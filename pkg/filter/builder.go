package filter

import (
	"fmt"
	"slices"

	"github.com/FastFilter/xorfilter"
	"github.com/axiomhq/hyperloglog"
	"github.com/cespare/xxhash/v2"
	"github.com/dolthub/swiss"

	"github.com/grafana/blockfilter/pkg/datatype"
)

// Xor8Builder accumulates keys for a [Xor8Filter]. Keys may be added over
// any number of passes; [Xor8Builder.Build] seals the builder.
//
// Xor8Builder is not safe for concurrent use.
type Xor8Builder struct {
	hashes *swiss.Map[uint64, struct{}]
	hll    *hyperloglog.Sketch
	buf    []byte
	sealed bool
}

// NewXor8Builder returns an empty builder.
func NewXor8Builder() (*Xor8Builder, error) {
	hll, err := hyperloglog.NewSketch(12, true)
	if err != nil {
		return nil, fmt.Errorf("failed to create hll: %w", err)
	}

	return &Xor8Builder{
		hashes: swiss.NewMap[uint64, struct{}](64),
		hll:    hll,
	}, nil
}

// AddKey adds s to the builder. NULL values are ignored. Values of kinds
// that cannot be indexed return [ErrUnsupportedType].
func (b *Xor8Builder) AddKey(s datatype.Scalar) error {
	if b.sealed {
		return ErrSealed
	}
	if s.IsNull() {
		return nil
	}
	if !IsSupportedType(s.DataType()) {
		return fmt.Errorf("%w: %s", ErrUnsupportedType, s.Kind())
	}

	key, err := s.AppendKey(b.buf[:0])
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnsupportedType, err)
	}
	b.buf = key

	h := xxhash.Sum64(key)
	if !b.hashes.Has(h) {
		b.hashes.Put(h, struct{}{})
		b.hll.Insert(key)
	}
	return nil
}

// Len returns the number of distinct key hashes added so far.
func (b *Xor8Builder) Len() int {
	return b.hashes.Count()
}

// Build seals the builder and returns the filter over every added key.
// Building is deterministic: the same set of keys always produces the same
// filter.
func (b *Xor8Builder) Build() (*Xor8Filter, error) {
	if b.sealed {
		return nil, ErrSealed
	}
	b.sealed = true

	keys := make([]uint64, 0, b.hashes.Count())
	b.hashes.Iter(func(h uint64, _ struct{}) bool {
		keys = append(keys, h)
		return false
	})
	b.hashes = nil
	slices.Sort(keys)

	f := &Xor8Filter{
		distinct:    b.hll.Estimate(),
		hasDistinct: true,
	}
	if len(keys) == 0 {
		return f, nil
	}

	xor, err := xorfilter.Populate(keys)
	if err != nil {
		return nil, fmt.Errorf("populating xor filter with %d keys: %w", len(keys), err)
	}
	f.xor = xor
	return f, nil
}

// Build returns a filter over values. NULL values are skipped.
func Build(values ...datatype.Scalar) (*Xor8Filter, error) {
	b, err := NewXor8Builder()
	if err != nil {
		return nil, err
	}
	for _, v := range values {
		if err := b.AddKey(v); err != nil {
			return nil, err
		}
	}
	return b.Build()
}
