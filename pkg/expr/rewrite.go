package expr

import (
	"slices"

	"github.com/grafana/blockfilter/pkg/datatype"
)

// ColumnEqConstantFunc is called for every `column = constant` site found by
// [RewriteColumnEqConstant]. loc is the location of the equality, column and
// t identify the referenced column and value is the constant.
//
// Returning a non-nil expression replaces the equality; returning nil keeps
// it.
type ColumnEqConstantFunc func(loc Span, column string, value datatype.Scalar, t datatype.DataType) (Expression, error)

// RewriteColumnEqConstant walks e once in depth-first order and calls fn for
// every equality between a column and a constant, in either operand order.
//
// A replacement returned by fn is final: it is not walked again. Equalities
// that fn keeps are still walked, as are the operands of casts and every
// other function call.
//
// e is never modified. The returned tree shares every subtree that was not
// rewritten with e, and is e itself when nothing was replaced.
func RewriteColumnEqConstant(e Expression, fn ColumnEqConstantFunc) (Expression, error) {
	if col, constant, ok := MatchColumnEqConstant(e); ok {
		replacement, err := fn(e.Location(), col.ID, constant.Value, col.DataType)
		if err != nil {
			return nil, err
		}
		if replacement != nil {
			return replacement, nil
		}
	}

	switch e := e.(type) {
	case *Cast:
		inner, err := RewriteColumnEqConstant(e.Expr, fn)
		if err != nil {
			return nil, err
		}
		if inner == e.Expr {
			return e, nil
		}
		cast := *e
		cast.Expr = inner
		return &cast, nil

	case *FunctionCall:
		var args []Expression
		for i, arg := range e.Args {
			rewritten, err := RewriteColumnEqConstant(arg, fn)
			if err != nil {
				return nil, err
			}
			if rewritten == arg {
				continue
			}
			if args == nil {
				args = slices.Clone(e.Args)
			}
			args[i] = rewritten
		}
		if args == nil {
			return e, nil
		}
		call := *e
		call.Args = args
		return &call, nil

	default:
		return e, nil
	}
}

// ColumnEqConstantColumns returns the column of every `column = constant`
// site in e, in depth-first order. Columns appear once per site.
func ColumnEqConstantColumns(e Expression) []string {
	var columns []string
	Walk(e, func(e Expression) bool {
		if col, _, ok := MatchColumnEqConstant(e); ok {
			columns = append(columns, col.ID)
		}
		return true
	})
	return columns
}
