package expr

import "github.com/grafana/blockfilter/pkg/datatype"

// Walk traverses e in depth-first order, calling fn for each node before
// its children. Children of a node are skipped when fn returns false.
func Walk(e Expression, fn func(Expression) bool) {
	if !fn(e) {
		return
	}

	switch e := e.(type) {
	case *Cast:
		Walk(e.Expr, fn)
	case *FunctionCall:
		for _, arg := range e.Args {
			Walk(arg, fn)
		}
	}
}

// ColumnRefs returns the declared type of every column referenced by e.
func ColumnRefs(e Expression) map[string]datatype.DataType {
	refs := make(map[string]datatype.DataType)
	Walk(e, func(e Expression) bool {
		if ref, ok := e.(*ColumnRef); ok {
			refs[ref.ID] = ref.DataType
		}
		return true
	})
	return refs
}

// MatchColumnEqConstant reports whether e is an equality between a column
// reference and a constant, in either order, and returns both sides.
func MatchColumnEqConstant(e Expression) (*ColumnRef, *Constant, bool) {
	call, ok := e.(*FunctionCall)
	if !ok || call.Name != FuncEq || len(call.Args) != 2 {
		return nil, nil, false
	}

	switch left := call.Args[0].(type) {
	case *ColumnRef:
		if right, ok := call.Args[1].(*Constant); ok {
			return left, right, true
		}
	case *Constant:
		if right, ok := call.Args[1].(*ColumnRef); ok {
			return right, left, true
		}
	}
	return nil, nil, false
}
