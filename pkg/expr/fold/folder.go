package fold

import (
	"github.com/grafana/blockfilter/pkg/datatype"
	"github.com/grafana/blockfilter/pkg/expr"
)

// ConstantFolder simplifies expressions by evaluating every subtree whose
// value is known ahead of time.
//
// A ConstantFolder is immutable and safe for concurrent use.
type ConstantFolder struct {
	domains  map[string]Domain
	fnCtx    FunctionContext
	registry *Registry
}

// NewConstantFolder returns a ConstantFolder. Columns missing from domains
// are assumed to hold any value of their declared type. A nil registry uses
// [BuiltinFunctions].
func NewConstantFolder(domains map[string]Domain, fnCtx FunctionContext, registry *Registry) *ConstantFolder {
	if registry == nil {
		registry = BuiltinFunctions
	}
	return &ConstantFolder{
		domains:  domains,
		fnCtx:    fnCtx,
		registry: registry,
	}
}

// Fold returns the simplified form of e together with the domain of its
// result. e is never modified.
//
// Casts of constants and calls over constants are evaluated. A call whose
// result domain holds a single value is replaced by that value, which lets
// `false AND x` fold to false without knowing x. Calls of unknown functions,
// and evaluations that fail, are kept with an unconstrained result.
func (f *ConstantFolder) Fold(e expr.Expression) (expr.Expression, Domain) {
	switch e := e.(type) {
	case *expr.Constant:
		return e, FromScalar(e.Value)

	case *expr.ColumnRef:
		d, ok := f.domains[e.ID]
		if !ok {
			d = Full(e.DataType)
		}
		if v, ok := d.AsConstant(); ok {
			return &expr.Constant{Loc: e.Loc, Value: v, DataType: e.DataType}, d
		}
		return e, d

	case *expr.Cast:
		return f.foldCast(e)

	case *expr.FunctionCall:
		return f.foldCall(e)

	default:
		return e, Full(e.ResultType())
	}
}

func (f *ConstantFolder) foldCast(e *expr.Cast) (expr.Expression, Domain) {
	inner, innerDomain := f.Fold(e.Expr)

	if c, ok := inner.(*expr.Constant); ok {
		v, _, err := datatype.Cast(c.Value, e.Target.Kind, f.fnCtx.Location())
		if err == nil {
			return &expr.Constant{Loc: e.Loc, Value: v, DataType: e.Target}, FromScalar(v)
		}
	}

	// Casting to the kind of the operand keeps its values.
	if e.Expr.ResultType().Kind == e.Target.Kind {
		return withExpr(e, inner), innerDomain
	}

	d := Full(e.Target)
	d.HasNull = d.HasNull || innerDomain.HasNull
	return withExpr(e, inner), d
}

func (f *ConstantFolder) foldCall(e *expr.FunctionCall) (expr.Expression, Domain) {
	var (
		args      = make([]expr.Expression, len(e.Args))
		domains   = make([]Domain, len(e.Args))
		constants = make([]datatype.Scalar, 0, len(e.Args))
		changed   bool
	)
	for i, arg := range e.Args {
		args[i], domains[i] = f.Fold(arg)
		changed = changed || args[i] != arg

		if c, ok := args[i].(*expr.Constant); ok {
			constants = append(constants, c.Value)
		}
	}

	result := e
	if changed {
		call := *e
		call.Args = args
		result = &call
	}

	fn, ok := f.registry.Get(e.Name)
	if !ok {
		return result, Full(e.Return)
	}

	if fn.Eval != nil && len(constants) == len(args) {
		if v, err := fn.Eval(f.fnCtx, constants); err == nil {
			return &expr.Constant{Loc: e.Loc, Value: v, DataType: e.Return}, FromScalar(v)
		}
	}

	d := Full(e.Return)
	if fn.Domain != nil {
		d = fn.Domain(domains)
	}
	if v, ok := d.AsConstant(); ok {
		return &expr.Constant{Loc: e.Loc, Value: v, DataType: e.Return}, d
	}
	return result, d
}

func withExpr(e *expr.Cast, inner expr.Expression) *expr.Cast {
	if inner == e.Expr {
		return e
	}
	cast := *e
	cast.Expr = inner
	return &cast
}
