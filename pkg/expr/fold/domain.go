// Package fold simplifies expressions given the possible values of their
// columns.
package fold

import (
	"fmt"

	"github.com/grafana/blockfilter/pkg/datatype"
)

// Domain is the set of values an expression may evaluate to.
//
// HasNull reports whether NULL is possible. Value describes the possible
// non-null values; a nil Value means the expression is always NULL.
type Domain struct {
	HasNull bool
	Value   ValueDomain
}

// ValueDomain describes the non-null values of a [Domain]. It is one of
// [BooleanDomain], [RangeDomain] or [UndefinedDomain].
type ValueDomain interface {
	fmt.Stringer
	isValueDomain()
}

// BooleanDomain lists which boolean values are possible.
type BooleanDomain struct {
	HasFalse, HasTrue bool
}

// RangeDomain holds every value between Min and Max, inclusive.
type RangeDomain struct {
	Min, Max datatype.Scalar
}

// UndefinedDomain holds any value of the expression's type.
type UndefinedDomain struct{}

func (BooleanDomain) isValueDomain()   {}
func (RangeDomain) isValueDomain()     {}
func (UndefinedDomain) isValueDomain() {}

func (d BooleanDomain) String() string {
	return fmt.Sprintf("{false: %t, true: %t}", d.HasFalse, d.HasTrue)
}

func (d RangeDomain) String() string { return fmt.Sprintf("[%s, %s]", d.Min, d.Max) }

func (UndefinedDomain) String() string { return "{any}" }

func (d Domain) String() string {
	if d.Value == nil {
		return "{null}"
	}
	if d.HasNull {
		return d.Value.String() + " + null"
	}
	return d.Value.String()
}

// Full returns the unconstrained domain of t: every value of the type, plus
// NULL if t is nullable.
func Full(t datatype.DataType) Domain {
	d := Domain{HasNull: t.Nullable}

	switch k := t.Kind; {
	case k == datatype.KindNull:
		d.HasNull = true
	case k == datatype.KindBoolean:
		d.Value = BooleanDomain{HasFalse: true, HasTrue: true}
	default:
		if lo, hi, ok := datatype.MinMax(k); ok {
			d.Value = RangeDomain{Min: lo, Max: hi}
		} else {
			d.Value = UndefinedDomain{}
		}
	}
	return d
}

// FromScalar returns the domain holding only s.
func FromScalar(s datatype.Scalar) Domain {
	switch {
	case s.IsNull():
		return Domain{HasNull: true}
	case s.Kind() == datatype.KindBoolean:
		return Domain{Value: BooleanDomain{HasFalse: !s.Bool(), HasTrue: s.Bool()}}
	default:
		return Domain{Value: RangeDomain{Min: s, Max: s}}
	}
}

// AsConstant returns the only value of d, if d holds exactly one.
func (d Domain) AsConstant() (datatype.Scalar, bool) {
	if d.Value == nil {
		return datatype.NullScalar(), d.HasNull
	}
	if d.HasNull {
		return datatype.NullScalar(), false
	}

	switch v := d.Value.(type) {
	case BooleanDomain:
		if v.HasFalse != v.HasTrue {
			return datatype.BoolScalar(v.HasTrue), true
		}
	case RangeDomain:
		if v.Min.Equal(v.Max) {
			if c, ok := datatype.Compare(v.Min, v.Max); ok && c == 0 {
				return v.Min, true
			}
		}
	}
	return datatype.NullScalar(), false
}

// CanBeTrue reports whether d may hold the boolean true. Non-boolean domains
// may.
func (d Domain) CanBeTrue() bool {
	_, hasTrue := d.booleans()
	return hasTrue
}

// booleans returns which truth values d contains. Domains that are not
// boolean may hold either.
func (d Domain) booleans() (hasFalse, hasTrue bool) {
	switch v := d.Value.(type) {
	case nil:
		return false, false
	case BooleanDomain:
		return v.HasFalse, v.HasTrue
	default:
		return true, true
	}
}

// bounds returns the smallest and largest non-null value of d.
func (d Domain) bounds() (lo, hi datatype.Scalar, ok bool) {
	switch v := d.Value.(type) {
	case RangeDomain:
		return v.Min, v.Max, true
	case BooleanDomain:
		if !v.HasFalse && !v.HasTrue {
			return lo, hi, false
		}
		return datatype.BoolScalar(!v.HasFalse), datatype.BoolScalar(v.HasTrue), true
	default:
		return lo, hi, false
	}
}

func boolDomain(hasNull, hasFalse, hasTrue bool) Domain {
	d := Domain{HasNull: hasNull}
	if hasFalse || hasTrue {
		d.Value = BooleanDomain{HasFalse: hasFalse, HasTrue: hasTrue}
	}
	return d
}
