package datatype

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// MetadataKeyDataType is the arrow field metadata key holding the
// [DataType] kind of a column, used when the arrow type alone is ambiguous.
const MetadataKeyDataType = "blockfilter.datatype"

var (
	ArrowType = struct {
		Null      arrow.DataType
		Boolean   arrow.DataType
		Int8      arrow.DataType
		Int16     arrow.DataType
		Int32     arrow.DataType
		Int64     arrow.DataType
		Uint8     arrow.DataType
		Uint16    arrow.DataType
		Uint32    arrow.DataType
		Uint64    arrow.DataType
		Float32   arrow.DataType
		Float64   arrow.DataType
		String    arrow.DataType
		Binary    arrow.DataType
		Date      arrow.DataType
		Timestamp arrow.DataType
	}{
		Null:      arrow.Null,
		Boolean:   arrow.FixedWidthTypes.Boolean,
		Int8:      arrow.PrimitiveTypes.Int8,
		Int16:     arrow.PrimitiveTypes.Int16,
		Int32:     arrow.PrimitiveTypes.Int32,
		Int64:     arrow.PrimitiveTypes.Int64,
		Uint8:     arrow.PrimitiveTypes.Uint8,
		Uint16:    arrow.PrimitiveTypes.Uint16,
		Uint32:    arrow.PrimitiveTypes.Uint32,
		Uint64:    arrow.PrimitiveTypes.Uint64,
		Float32:   arrow.PrimitiveTypes.Float32,
		Float64:   arrow.PrimitiveTypes.Float64,
		String:    arrow.BinaryTypes.String,
		Binary:    arrow.BinaryTypes.Binary,
		Date:      arrow.FixedWidthTypes.Date32,
		Timestamp: arrow.FixedWidthTypes.Timestamp_us,
	}

	toArrow = map[Kind]arrow.DataType{
		KindNull:      ArrowType.Null,
		KindBoolean:   ArrowType.Boolean,
		KindInt8:      ArrowType.Int8,
		KindInt16:     ArrowType.Int16,
		KindInt32:     ArrowType.Int32,
		KindInt64:     ArrowType.Int64,
		KindUint8:     ArrowType.Uint8,
		KindUint16:    ArrowType.Uint16,
		KindUint32:    ArrowType.Uint32,
		KindUint64:    ArrowType.Uint64,
		KindFloat32:   ArrowType.Float32,
		KindFloat64:   ArrowType.Float64,
		KindString:    ArrowType.String,
		KindBinary:    ArrowType.Binary,
		KindDate:      ArrowType.Date,
		KindTimestamp: ArrowType.Timestamp,
		// Kinds without a native mapping are carried by their text form.
		KindDecimal: ArrowType.String,
		KindNested:  ArrowType.String,
		KindVariant: ArrowType.String,
	}

	fromArrow = map[arrow.Type]Kind{
		arrow.NULL:            KindNull,
		arrow.BOOL:            KindBoolean,
		arrow.INT8:            KindInt8,
		arrow.INT16:           KindInt16,
		arrow.INT32:           KindInt32,
		arrow.INT64:           KindInt64,
		arrow.UINT8:           KindUint8,
		arrow.UINT16:          KindUint16,
		arrow.UINT32:          KindUint32,
		arrow.UINT64:          KindUint64,
		arrow.FLOAT32:         KindFloat32,
		arrow.FLOAT64:         KindFloat64,
		arrow.STRING:          KindString,
		arrow.LARGE_STRING:    KindString,
		arrow.BINARY:          KindBinary,
		arrow.LARGE_BINARY:    KindBinary,
		arrow.DATE32:          KindDate,
		arrow.DATE64:          KindDate,
		arrow.TIMESTAMP:       KindTimestamp,
		arrow.DECIMAL128:      KindDecimal,
		arrow.DECIMAL256:      KindDecimal,
		arrow.LIST:            KindNested,
		arrow.LARGE_LIST:      KindNested,
		arrow.FIXED_SIZE_LIST: KindNested,
		arrow.STRUCT:          KindNested,
		arrow.MAP:             KindNested,
	}
)

// ToArrow returns the arrow type used to store values of t.
func ToArrow(t DataType) arrow.DataType {
	if dt, ok := toArrow[t.Kind]; ok {
		return dt
	}
	panic(fmt.Sprintf("datatype.ToArrow: unhandled kind %s", t.Kind))
}

// FromArrow returns the DataType of an arrow field. The kind recorded under
// [MetadataKeyDataType] takes precedence over the arrow type; arrow types
// without a mapping become [KindVariant].
func FromArrow(field arrow.Field) DataType {
	t := DataType{Kind: KindVariant, Nullable: field.Nullable}
	if name, ok := field.Metadata.GetValue(MetadataKeyDataType); ok {
		if k, ok := KindFromString(name); ok {
			t.Kind = k
			return t
		}
	}
	if k, ok := fromArrow[field.Type.ID()]; ok {
		t.Kind = k
	}
	if t.Kind == KindNull {
		t.Nullable = true
	}
	return t
}

// KindFromString parses the output of [Kind.String].
func KindFromString(s string) (Kind, bool) {
	for k, name := range kindStrings {
		if name == s {
			return k, true
		}
	}
	return KindNull, false
}

// ArrowField returns an arrow field named name for values of type t, with t
// recorded in the field metadata.
func ArrowField(name string, t DataType) arrow.Field {
	return arrow.Field{
		Name:     name,
		Type:     ToArrow(t),
		Nullable: t.Nullable,
		Metadata: arrow.NewMetadata(
			[]string{MetadataKeyDataType},
			[]string{t.Kind.String()},
		),
	}
}

// ScalarFromArrow returns the value at row i of arr as a scalar of type t.
func ScalarFromArrow(arr arrow.Array, i int, t DataType) (Scalar, error) {
	if arr.IsNull(i) {
		return NullScalar(), nil
	}

	switch t.Kind {
	case KindDecimal, KindNested, KindVariant:
		return OpaqueScalar(t.Kind, arr.ValueStr(i)), nil
	}

	switch a := arr.(type) {
	case *array.Null:
		return NullScalar(), nil
	case *array.Boolean:
		return BoolScalar(a.Value(i)), nil
	case *array.Int8:
		return IntScalar(KindInt8, int64(a.Value(i))), nil
	case *array.Int16:
		return IntScalar(KindInt16, int64(a.Value(i))), nil
	case *array.Int32:
		return IntScalar(KindInt32, int64(a.Value(i))), nil
	case *array.Int64:
		return IntScalar(KindInt64, a.Value(i)), nil
	case *array.Uint8:
		return UintScalar(KindUint8, uint64(a.Value(i))), nil
	case *array.Uint16:
		return UintScalar(KindUint16, uint64(a.Value(i))), nil
	case *array.Uint32:
		return UintScalar(KindUint32, uint64(a.Value(i))), nil
	case *array.Uint64:
		return UintScalar(KindUint64, a.Value(i)), nil
	case *array.Float32:
		return Float32Scalar(a.Value(i)), nil
	case *array.Float64:
		return Float64Scalar(a.Value(i)), nil
	case *array.String:
		return bytesScalar(t.Kind, a.Value(i)), nil
	case *array.LargeString:
		return bytesScalar(t.Kind, a.Value(i)), nil
	case *array.Binary:
		return bytesScalar(t.Kind, string(a.Value(i))), nil
	case *array.LargeBinary:
		return bytesScalar(t.Kind, string(a.Value(i))), nil
	case *array.Date32:
		return DateScalar(int32(a.Value(i))), nil
	case *array.Date64:
		ms := int64(a.Value(i))
		days := ms / (secondsPerDay * 1000)
		if ms%(secondsPerDay*1000) < 0 {
			days--
		}
		return DateScalar(int32(days)), nil
	case *array.Timestamp:
		unit := a.DataType().(*arrow.TimestampType).Unit
		return TimestampScalar(a.Value(i).ToTime(unit).UnixMicro()), nil
	}

	return NullScalar(), fmt.Errorf("datatype.ScalarFromArrow: unsupported arrow type %s for %s", arr.DataType(), t)
}

func bytesScalar(k Kind, v string) Scalar {
	if k == KindBinary {
		return Scalar{kind: KindBinary, str: v}
	}
	return StringScalar(v)
}

// AppendScalar appends s to b, which must have been created for
// [ToArrow] of s's column type.
func AppendScalar(b array.Builder, s Scalar) error {
	if s.IsNull() {
		b.AppendNull()
		return nil
	}

	switch b := b.(type) {
	case *array.NullBuilder:
		b.AppendNull()
	case *array.BooleanBuilder:
		b.Append(s.Bool())
	case *array.Int8Builder:
		b.Append(int8(s.Int()))
	case *array.Int16Builder:
		b.Append(int16(s.Int()))
	case *array.Int32Builder:
		b.Append(int32(s.Int()))
	case *array.Int64Builder:
		b.Append(s.Int())
	case *array.Uint8Builder:
		b.Append(uint8(s.Uint()))
	case *array.Uint16Builder:
		b.Append(uint16(s.Uint()))
	case *array.Uint32Builder:
		b.Append(uint32(s.Uint()))
	case *array.Uint64Builder:
		b.Append(s.Uint())
	case *array.Float32Builder:
		b.Append(float32(s.Float()))
	case *array.Float64Builder:
		b.Append(s.Float())
	case *array.StringBuilder:
		b.Append(s.str)
	case *array.BinaryBuilder:
		b.Append([]byte(s.str))
	case *array.Date32Builder:
		b.Append(arrow.Date32(s.Date()))
	case *array.TimestampBuilder:
		b.Append(arrow.Timestamp(s.Timestamp()))
	default:
		return fmt.Errorf("datatype.AppendScalar: unsupported builder %T for %s", b, s.kind)
	}
	return nil
}
