package datatype

import "fmt"

// Kind denotes the physical kind of a value.
type Kind uint32

// Recognized values of [Kind].
const (
	KindNull Kind = iota // zero-value is the type of NULL

	KindBoolean
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindFloat32
	KindFloat64
	KindString
	KindBinary
	KindDate      // Days since the unix epoch, stored as int32.
	KindTimestamp // Microseconds since the unix epoch, stored as int64.
	KindDecimal
	KindNested  // Lists, structs and maps.
	KindVariant // Semi-structured values such as JSON.

	kindCount // must stay last
)

var kindStrings = map[Kind]string{
	KindNull:      "Null",
	KindBoolean:   "Boolean",
	KindInt8:      "Int8",
	KindInt16:     "Int16",
	KindInt32:     "Int32",
	KindInt64:     "Int64",
	KindUint8:     "UInt8",
	KindUint16:    "UInt16",
	KindUint32:    "UInt32",
	KindUint64:    "UInt64",
	KindFloat32:   "Float32",
	KindFloat64:   "Float64",
	KindString:    "String",
	KindBinary:    "Binary",
	KindDate:      "Date",
	KindTimestamp: "Timestamp",
	KindDecimal:   "Decimal",
	KindNested:    "Nested",
	KindVariant:   "Variant",
}

// String returns the string representation of the Kind.
func (k Kind) String() string {
	if s, ok := kindStrings[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Kinds returns every known kind in declaration order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, kindCount)
	for k := KindNull; k < kindCount; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// IsSigned reports whether k is a signed integer kind.
func (k Kind) IsSigned() bool {
	return k >= KindInt8 && k <= KindInt64
}

// IsUnsigned reports whether k is an unsigned integer kind.
func (k Kind) IsUnsigned() bool {
	return k >= KindUint8 && k <= KindUint64
}

// IsInteger reports whether k is any integer kind.
func (k Kind) IsInteger() bool {
	return k.IsSigned() || k.IsUnsigned()
}

// IsFloat reports whether k is a floating point kind.
func (k Kind) IsFloat() bool {
	return k == KindFloat32 || k == KindFloat64
}

// IsNumber reports whether k is an integer or floating point kind.
func (k Kind) IsNumber() bool {
	return k.IsInteger() || k.IsFloat()
}

// IsBytes reports whether values of k are byte sequences.
func (k Kind) IsBytes() bool {
	return k == KindString || k == KindBinary
}

// DataType is the declared type of a column or expression.
type DataType struct {
	Kind     Kind
	Nullable bool
}

// Convenience constructors for non-nullable types.
var (
	Null      = DataType{Kind: KindNull, Nullable: true}
	Boolean   = DataType{Kind: KindBoolean}
	Int8      = DataType{Kind: KindInt8}
	Int16     = DataType{Kind: KindInt16}
	Int32     = DataType{Kind: KindInt32}
	Int64     = DataType{Kind: KindInt64}
	Uint8     = DataType{Kind: KindUint8}
	Uint16    = DataType{Kind: KindUint16}
	Uint32    = DataType{Kind: KindUint32}
	Uint64    = DataType{Kind: KindUint64}
	Float32   = DataType{Kind: KindFloat32}
	Float64   = DataType{Kind: KindFloat64}
	String    = DataType{Kind: KindString}
	Binary    = DataType{Kind: KindBinary}
	Date      = DataType{Kind: KindDate}
	Timestamp = DataType{Kind: KindTimestamp}
	Decimal   = DataType{Kind: KindDecimal}
	Nested    = DataType{Kind: KindNested}
	Variant   = DataType{Kind: KindVariant}
)

// WrapNullable returns a nullable copy of t.
func (t DataType) WrapNullable() DataType {
	t.Nullable = true
	return t
}

// RemoveNullable returns a non-nullable copy of t. The Null type stays
// nullable.
func (t DataType) RemoveNullable() DataType {
	if t.Kind == KindNull {
		return t
	}
	t.Nullable = false
	return t
}

// String returns the string representation of t, e.g. Nullable(Int32).
func (t DataType) String() string {
	if t.Nullable && t.Kind != KindNull {
		return "Nullable(" + t.Kind.String() + ")"
	}
	return t.Kind.String()
}
