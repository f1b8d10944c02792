package fold

import (
	"errors"
	"fmt"
	"maps"

	"github.com/grafana/blockfilter/pkg/datatype"
	"github.com/grafana/blockfilter/pkg/expr"
)

var errArgs = errors.New("invalid arguments")

// Function is a function known to the [ConstantFolder].
type Function struct {
	Name string

	// Eval evaluates the function over constant arguments.
	Eval func(ctx FunctionContext, args []datatype.Scalar) (datatype.Scalar, error)

	// Domain returns the result domain given the domains of the arguments.
	// A nil Domain leaves the result unconstrained.
	Domain func(args []Domain) Domain
}

// Registry maps function names to their implementations.
type Registry struct {
	funcs map[string]*Function
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]*Function)}
}

// Register adds fn to r, replacing any function of the same name.
func (r *Registry) Register(fn *Function) {
	r.funcs[fn.Name] = fn
}

// Get returns the function called name.
func (r *Registry) Get(name string) (*Function, bool) {
	fn, ok := r.funcs[name]
	return fn, ok
}

// Clone returns a copy of r that can be extended without affecting r.
func (r *Registry) Clone() *Registry {
	return &Registry{funcs: maps.Clone(r.funcs)}
}

// BuiltinFunctions holds the comparison, logical and null-check functions
// built by the expr package.
var BuiltinFunctions = newBuiltinRegistry()

func newBuiltinRegistry() *Registry {
	r := NewRegistry()

	for _, c := range []struct {
		name string
		test func(c int) bool
	}{
		{expr.FuncEq, func(c int) bool { return c == 0 }},
		{expr.FuncNotEq, func(c int) bool { return c != 0 }},
		{expr.FuncLt, func(c int) bool { return c < 0 }},
		{expr.FuncLte, func(c int) bool { return c <= 0 }},
		{expr.FuncGt, func(c int) bool { return c > 0 }},
		{expr.FuncGte, func(c int) bool { return c >= 0 }},
	} {
		r.Register(&Function{
			Name:   c.name,
			Eval:   compareEval(c.name, c.test),
			Domain: compareDomain(c.name),
		})
	}

	r.Register(&Function{Name: expr.FuncAnd, Eval: evalByDomain(andDomain), Domain: andDomain})
	r.Register(&Function{Name: expr.FuncOr, Eval: evalByDomain(orDomain), Domain: orDomain})
	r.Register(&Function{Name: expr.FuncNot, Eval: evalByDomain(notDomain), Domain: notDomain})
	r.Register(&Function{Name: expr.FuncIsNull, Eval: evalByDomain(isNullDomain), Domain: isNullDomain})
	r.Register(&Function{Name: expr.FuncIsNotNull, Eval: evalByDomain(isNotNullDomain), Domain: isNotNullDomain})

	return r
}

func compareEval(name string, test func(int) bool) func(FunctionContext, []datatype.Scalar) (datatype.Scalar, error) {
	return func(_ FunctionContext, args []datatype.Scalar) (datatype.Scalar, error) {
		if len(args) != 2 {
			return datatype.NullScalar(), fmt.Errorf("%s: %w: expected 2, got %d", name, errArgs, len(args))
		}
		if args[0].IsNull() || args[1].IsNull() {
			return datatype.NullScalar(), nil
		}
		c, ok := datatype.Compare(args[0], args[1])
		if !ok {
			return datatype.NullScalar(), fmt.Errorf("%s: cannot compare %s and %s", name, args[0].Kind(), args[1].Kind())
		}
		return datatype.BoolScalar(test(c)), nil
	}
}

// compareDomain derives the result of a comparison from the bounds of its
// operands.
func compareDomain(name string) func([]Domain) Domain {
	return func(args []Domain) Domain {
		if len(args) != 2 {
			return Full(datatype.Boolean.WrapNullable())
		}
		a, b := args[0], args[1]
		hasNull := a.HasNull || b.HasNull
		if a.Value == nil || b.Value == nil {
			return Domain{HasNull: true}
		}

		aMin, aMax, okA := a.bounds()
		bMin, bMax, okB := b.bounds()
		if !okA || !okB {
			return boolDomain(hasNull, true, true)
		}

		// Every value of a is below, or above, every value of b.
		below, ok1 := less(aMax, bMin)
		above, ok2 := less(bMax, aMin)
		belowEq, ok3 := lessEq(aMax, bMin)
		aboveEq, ok4 := lessEq(bMax, aMin)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			return boolDomain(hasNull, true, true)
		}
		single := belowEq && aboveEq // both operands hold one and the same value

		var hasFalse, hasTrue bool
		switch name {
		case expr.FuncEq:
			hasTrue = !below && !above
			hasFalse = !single
		case expr.FuncNotEq:
			hasTrue = !single
			hasFalse = !below && !above
		case expr.FuncLt:
			hasTrue = !aboveEq
			hasFalse = !below
		case expr.FuncLte:
			hasTrue = !above
			hasFalse = !belowEq
		case expr.FuncGt:
			hasTrue = !belowEq
			hasFalse = !above
		case expr.FuncGte:
			hasTrue = !below
			hasFalse = !aboveEq
		default:
			hasFalse, hasTrue = true, true
		}
		return boolDomain(hasNull, hasFalse, hasTrue)
	}
}

func less(a, b datatype.Scalar) (bool, bool) {
	c, ok := datatype.Compare(a, b)
	return c < 0, ok
}

func lessEq(a, b datatype.Scalar) (bool, bool) {
	c, ok := datatype.Compare(a, b)
	return c <= 0, ok
}

// andDomain implements three-valued AND: false wins over NULL, NULL wins
// over true.
func andDomain(args []Domain) Domain {
	hasFalse, hasTrue, hasNull := false, true, false
	for _, arg := range args {
		f, t := arg.booleans()
		// NULL results need no false operand and at least one NULL.
		hasNull = (hasNull && (t || arg.HasNull)) || (arg.HasNull && (hasTrue || hasNull))
		hasFalse = hasFalse || f
		hasTrue = hasTrue && t
	}
	return boolDomain(hasNull, hasFalse, hasTrue)
}

// orDomain implements three-valued OR: true wins over NULL, NULL wins over
// false.
func orDomain(args []Domain) Domain {
	hasFalse, hasTrue, hasNull := true, false, false
	for _, arg := range args {
		f, t := arg.booleans()
		hasNull = (hasNull && (f || arg.HasNull)) || (arg.HasNull && (hasFalse || hasNull))
		hasTrue = hasTrue || t
		hasFalse = hasFalse && f
	}
	return boolDomain(hasNull, hasFalse, hasTrue)
}

func notDomain(args []Domain) Domain {
	if len(args) != 1 {
		return Full(datatype.Boolean.WrapNullable())
	}
	f, t := args[0].booleans()
	return boolDomain(args[0].HasNull, t, f)
}

func isNullDomain(args []Domain) Domain {
	if len(args) != 1 {
		return Full(datatype.Boolean)
	}
	return boolDomain(false, args[0].Value != nil, args[0].HasNull)
}

func isNotNullDomain(args []Domain) Domain {
	if len(args) != 1 {
		return Full(datatype.Boolean)
	}
	return boolDomain(false, args[0].HasNull, args[0].Value != nil)
}

// evalByDomain evaluates a function whose result over constants is fully
// determined by its domain.
func evalByDomain(domain func([]Domain) Domain) func(FunctionContext, []datatype.Scalar) (datatype.Scalar, error) {
	return func(_ FunctionContext, args []datatype.Scalar) (datatype.Scalar, error) {
		domains := make([]Domain, len(args))
		for i, arg := range args {
			domains[i] = FromScalar(arg)
		}
		v, ok := domain(domains).AsConstant()
		if !ok {
			return datatype.NullScalar(), errArgs
		}
		return v, nil
	}
}
