package expr

import "github.com/grafana/blockfilter/pkg/datatype"

// Names of the builtin functions.
const (
	FuncEq        = "eq"
	FuncNotEq     = "noteq"
	FuncLt        = "lt"
	FuncLte       = "lte"
	FuncGt        = "gt"
	FuncGte       = "gte"
	FuncAnd       = "and"
	FuncOr        = "or"
	FuncNot       = "not"
	FuncIsNull    = "is_null"
	FuncIsNotNull = "is_not_null"
)

// Col returns a reference to the column id of type t.
func Col(id string, t datatype.DataType) *ColumnRef {
	return &ColumnRef{ID: id, DataType: t}
}

// Lit returns a constant holding v.
func Lit(v datatype.Scalar) *Constant {
	return &Constant{Value: v, DataType: v.DataType()}
}

// CastTo returns e cast to t. The result is nullable if e is.
func CastTo(e Expression, t datatype.DataType) *Cast {
	if e.ResultType().Nullable {
		t = t.WrapNullable()
	}
	return &Cast{Expr: e, Target: t}
}

// Call returns a call of the function name with the given result type.
func Call(name string, ret datatype.DataType, args ...Expression) *FunctionCall {
	return &FunctionCall{Name: name, Args: args, Return: ret}
}

// booleanCall builds a call returning Boolean, nullable if any argument is.
func booleanCall(name string, args ...Expression) *FunctionCall {
	ret := datatype.Boolean
	for _, arg := range args {
		if arg.ResultType().Nullable {
			ret = ret.WrapNullable()
		}
	}
	return Call(name, ret, args...)
}

// Eq returns left = right.
func Eq(left, right Expression) *FunctionCall { return booleanCall(FuncEq, left, right) }

// NotEq returns left != right.
func NotEq(left, right Expression) *FunctionCall { return booleanCall(FuncNotEq, left, right) }

// Lt returns left < right.
func Lt(left, right Expression) *FunctionCall { return booleanCall(FuncLt, left, right) }

// Lte returns left <= right.
func Lte(left, right Expression) *FunctionCall { return booleanCall(FuncLte, left, right) }

// Gt returns left > right.
func Gt(left, right Expression) *FunctionCall { return booleanCall(FuncGt, left, right) }

// Gte returns left >= right.
func Gte(left, right Expression) *FunctionCall { return booleanCall(FuncGte, left, right) }

// And returns left AND right.
func And(left, right Expression) *FunctionCall { return booleanCall(FuncAnd, left, right) }

// Or returns left OR right.
func Or(left, right Expression) *FunctionCall { return booleanCall(FuncOr, left, right) }

// Not returns NOT e.
func Not(e Expression) *FunctionCall { return booleanCall(FuncNot, e) }

// IsNull returns e IS NULL. The result is never null.
func IsNull(e Expression) *FunctionCall { return Call(FuncIsNull, datatype.Boolean, e) }

// IsNotNull returns e IS NOT NULL. The result is never null.
func IsNotNull(e Expression) *FunctionCall { return Call(FuncIsNotNull, datatype.Boolean, e) }
