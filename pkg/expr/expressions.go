// Package expr defines the predicate expression tree evaluated against
// chunk filters.
//
// Expressions are immutable once built: functions in this package that
// transform a tree return a new tree sharing every unchanged subtree with
// the input, so a single predicate may be evaluated concurrently.
package expr

import (
	"fmt"
	"strings"

	"github.com/grafana/blockfilter/pkg/datatype"
)

// Span is the location of an expression in the query text, as byte offsets.
// The zero Span denotes an unknown location.
type Span struct {
	Start, End int
}

// String returns the span formatted as start..end.
func (s Span) String() string {
	return fmt.Sprintf("%d..%d", s.Start, s.End)
}

// ExpressionType represents the type of a node in an expression tree.
type ExpressionType uint32

const (
	_ ExpressionType = iota // zero-value is an invalid type

	ExprTypeColumnRef
	ExprTypeConstant
	ExprTypeCast
	ExprTypeFunctionCall
)

// String returns the string representation of the [ExpressionType].
func (t ExpressionType) String() string {
	switch t {
	case ExprTypeColumnRef:
		return "ColumnRef"
	case ExprTypeConstant:
		return "Constant"
	case ExprTypeCast:
		return "Cast"
	case ExprTypeFunctionCall:
		return "FunctionCall"
	default:
		panic(fmt.Sprintf("unknown expression type %d", t))
	}
}

// Expression is the common interface for all nodes of an expression tree.
type Expression interface {
	fmt.Stringer
	Type() ExpressionType
	// Location returns the source location of the expression.
	Location() Span
	// ResultType returns the type of the value the expression evaluates to.
	ResultType() datatype.DataType
	isExpr()
}

// ColumnRef is a reference to a column of the chunk being evaluated.
type ColumnRef struct {
	Loc      Span
	ID       string
	DataType datatype.DataType
}

func (*ColumnRef) isExpr() {}

// Type returns [ExprTypeColumnRef].
func (*ColumnRef) Type() ExpressionType         { return ExprTypeColumnRef }
func (e *ColumnRef) Location() Span              { return e.Loc }
func (e *ColumnRef) ResultType() datatype.DataType { return e.DataType }
func (e *ColumnRef) String() string              { return e.ID }

// Constant is a literal value.
type Constant struct {
	Loc      Span
	Value    datatype.Scalar
	DataType datatype.DataType
}

func (*Constant) isExpr() {}

// Type returns [ExprTypeConstant].
func (*Constant) Type() ExpressionType           { return ExprTypeConstant }
func (e *Constant) Location() Span                { return e.Loc }
func (e *Constant) ResultType() datatype.DataType { return e.DataType }
func (e *Constant) String() string                { return e.Value.String() }

// IsBool reports whether e is the non-null boolean constant v.
func (e *Constant) IsBool(v bool) bool {
	return e.Value.Kind() == datatype.KindBoolean && e.Value.Bool() == v
}

// Cast converts the result of Expr to Target.
type Cast struct {
	Loc    Span
	Expr   Expression
	Target datatype.DataType
}

func (*Cast) isExpr() {}

// Type returns [ExprTypeCast].
func (*Cast) Type() ExpressionType           { return ExprTypeCast }
func (e *Cast) Location() Span                { return e.Loc }
func (e *Cast) ResultType() datatype.DataType { return e.Target }

func (e *Cast) String() string {
	return fmt.Sprintf("CAST(%s AS %s)", e.Expr, e.Target)
}

// FunctionCall applies the function Name to Args. Return is the result type
// resolved when the call was built.
type FunctionCall struct {
	Loc    Span
	Name   string
	Args   []Expression
	Return datatype.DataType
}

func (*FunctionCall) isExpr() {}

// Type returns [ExprTypeFunctionCall].
func (*FunctionCall) Type() ExpressionType           { return ExprTypeFunctionCall }
func (e *FunctionCall) Location() Span                { return e.Loc }
func (e *FunctionCall) ResultType() datatype.DataType { return e.Return }

func (e *FunctionCall) String() string {
	var sb strings.Builder
	sb.WriteString(e.Name)
	sb.WriteByte('(')
	for i, arg := range e.Args {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(arg.String())
	}
	sb.WriteByte(')')
	return sb.String()
}

var (
	_ Expression = (*ColumnRef)(nil)
	_ Expression = (*Constant)(nil)
	_ Expression = (*Cast)(nil)
	_ Expression = (*FunctionCall)(nil)
)
