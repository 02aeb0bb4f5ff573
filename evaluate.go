package emuera

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

//
// Evaluate reduces an expression to a value. Assignments write through
// to the context table or the variable store and yield the new value
//

func (in *Interpreter) Evaluate(ctx context.Context, ec *ExecutionContext, e Expr) (Value, error) {

	switch e := e.(type) {
	case *IntLit:
		return Int(e.Value), nil

	case *StrLit:
		return Str(e.Value), nil

	case *VarRef:
		return in.readVar(ec, e.Name), nil

	case *IndexExpr:
		idx, err := in.evalIndices(ctx, ec, e.Name, e.Index)
		if err != nil {
			return Null(), err
		}
		return in.readIndexed(e.Name, idx), nil

	case *ScopedVar:
		name, idx, err := in.scopedTarget(ctx, ec, e)
		if err != nil {
			return Null(), err
		}
		return in.readScoped(e.Scope, name, idx), nil

	case *CallExpr:
		return in.evalCall(ctx, ec, e)

	case *UnaryExpr:
		v, err := in.Evaluate(ctx, ec, e.Operand)
		if err != nil {
			return Null(), err
		}
		return applyUnary(e.Op, v)

	case *BinaryExpr:
		if e.Op.IsAssign() {
			return in.evalAssign(ctx, ec, e)
		}
		l, err := in.Evaluate(ctx, ec, e.Left)
		if err != nil {
			return Null(), err
		}
		r, err := in.Evaluate(ctx, ec, e.Right)
		if err != nil {
			return Null(), err
		}
		return applyBinary(e.Op, l, r)

	case nil:
		return Null(), invalidOperation("missing expression")
	}

	interpAssert(false, fmt.Sprintf("unknown expression %T", e))
	return Null(), nil
}

//
// A bare name reads the context table, then the store as an integer,
// then as a string. Unknown names read as 0
//

func (in *Interpreter) readVar(ec *ExecutionContext, name string) Value {

	if v, ok := ec.Get(name); ok {
		return v
	}
	if n, ok := in.store.GetInt(name); ok {
		return Int(n)
	}
	if s, ok := in.store.GetStr(name); ok {
		return Str(s)
	}
	return Int(0)
}

func (in *Interpreter) readIndexed(name string, idx []int64) Value {

	if n, ok := in.store.GetInt(name, idx...); ok {
		return Int(n)
	}
	if s, ok := in.store.GetStr(name, idx...); ok {
		return Str(s)
	}
	return Int(0)
}

func (in *Interpreter) readScoped(scope Scope, name string, idx []int64) Value {

	if scope.IsString() {
		s, _ := in.store.GetStr(name, idx...)
		return Str(s)
	}
	n, _ := in.store.GetInt(name, idx...)
	return Int(n)
}

func (in *Interpreter) evalIndices(ctx context.Context, ec *ExecutionContext, name string, exprs []Expr) ([]int64, error) {

	if len(exprs) == 0 || len(exprs) > maxIndices {
		return nil, invalidOperation("%s indexed with %d subscripts", name, len(exprs))
	}
	idx := make([]int64, len(exprs))
	for i, x := range exprs {
		v, err := in.Evaluate(ctx, ec, x)
		if err != nil {
			return nil, err
		}
		if v.Kind() != KindInt {
			return nil, typeMismatch("subscript %d of %s is %s", i+1, name, v.Kind())
		}
		idx[i] = v.Int64()
	}
	return idx, nil
}

// scopedTarget resolves the store name and indices of a scoped slot.
func (in *Interpreter) scopedTarget(ctx context.Context, ec *ExecutionContext, e *ScopedVar) (string, []int64, error) {

	fn := e.Function
	if fn == "" {
		fn = ec.Function()
	}
	if len(e.Index) > maxIndices {
		return "", nil, invalidOperation("%s indexed with %d subscripts", e.Scope, len(e.Index))
	}
	idx := make([]int64, len(e.Index))
	for i, x := range e.Index {
		v, err := in.Evaluate(ctx, ec, x)
		if err != nil {
			return "", nil, err
		}
		if v.Kind() != KindInt {
			return "", nil, typeMismatch("subscript %d of %s is %s", i+1, e.Scope, v.Kind())
		}
		idx[i] = v.Int64()
	}
	return e.Scope.key(labelKey(fn)), idx, nil
}

//
// evalAssign handles = and the compound forms. The target must be a
// bare, indexed or scoped variable
//

func (in *Interpreter) evalAssign(ctx context.Context, ec *ExecutionContext, e *BinaryExpr) (Value, error) {

	switch t := e.Left.(type) {
	case *VarRef:
		var old Value
		if e.Op != OpAssign {
			old = in.readVar(ec, t.Name)
		}
		v, err := in.combine(ctx, ec, e, old)
		if err != nil {
			return Null(), err
		}
		ec.Set(t.Name, v)
		return v, nil

	case *IndexExpr:
		idx, err := in.evalIndices(ctx, ec, t.Name, t.Index)
		if err != nil {
			return Null(), err
		}
		var old Value
		if e.Op != OpAssign {
			old = in.readIndexed(t.Name, idx)
		}
		v, err := in.combine(ctx, ec, e, old)
		if err != nil {
			return Null(), err
		}
		return v, in.writeStore(t.Name, idx, v)

	case *ScopedVar:
		name, idx, err := in.scopedTarget(ctx, ec, t)
		if err != nil {
			return Null(), err
		}
		var old Value
		if e.Op != OpAssign {
			old = in.readScoped(t.Scope, name, idx)
		}
		v, err := in.combine(ctx, ec, e, old)
		if err != nil {
			return Null(), err
		}
		if (v.Kind() == KindString) != t.Scope.IsString() {
			return Null(), typeMismatch("%s %s assigned %s", t.Scope, t.Name, v.Kind())
		}
		return v, in.writeStore(name, idx, v)
	}

	return Null(), invalidOperation("cannot assign to %T", e.Left)
}

//
// combine evaluates the right side of an assignment. The target's
// indices and, for a compound form, its old value are already read
//

func (in *Interpreter) combine(ctx context.Context, ec *ExecutionContext, e *BinaryExpr, old Value) (Value, error) {

	rhs, err := in.Evaluate(ctx, ec, e.Right)
	if err != nil || e.Op == OpAssign {
		return rhs, err
	}
	return applyBinary(e.Op.arith(), old, rhs)
}

func (in *Interpreter) writeStore(name string, idx []int64, v Value) error {

	switch v.Kind() {
	case KindInt:
		return in.store.SetInt(name, v.Int64(), idx...)
	case KindString:
		return in.store.SetStr(name, v.Text(), idx...)
	}
	return typeMismatch("cannot store %s in %s", v.Kind(), name)
}

//
// A call resolves, in order: built-in and host functions, #FUNCTION
// labels, then the store, reading the name with the integer arguments
// as indices
//

func (in *Interpreter) evalCall(ctx context.Context, ec *ExecutionContext, e *CallExpr) (Value, error) {

	args, err := in.evalArgs(ctx, ec, e.Args)
	if err != nil {
		return Null(), err
	}

	if in.funcs != nil {
		v, err := in.funcs.Call(e.Name, args, ec)
		if !errors.Is(err, ErrFunctionNotFound) {
			return v, err
		}
	}

	if def, err := in.labels.ResolveNonEvent(e.Name); err == nil && def.IsFunction() {
		return in.callUserFunction(ctx, ec, def, args)
	}

	if len(args) <= maxIndices {
		idx := make([]int64, 0, len(args))
		for _, a := range args {
			if a.Kind() != KindInt {
				break
			}
			idx = append(idx, a.Int64())
		}
		if len(idx) == len(args) {
			if n, ok := in.store.GetInt(e.Name, idx...); ok {
				return Int(n), nil
			}
			if s, ok := in.store.GetStr(e.Name, idx...); ok {
				return Str(s), nil
			}
		}
	}

	return Null(), newError(ErrFunctionNotFound, "%s", e.Name)
}

func (in *Interpreter) evalArgs(ctx context.Context, ec *ExecutionContext, exprs []Expr) ([]Value, error) {

	args := make([]Value, len(exprs))
	for i, x := range exprs {
		v, err := in.Evaluate(ctx, ec, x)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

//
// callUserFunction runs a #FUNCTION label to completion inside an
// expression. The baseline keeps the nested run from unwinding the
// caller's frames
//

func (in *Interpreter) callUserFunction(ctx context.Context, ec *ExecutionContext, def *FunctionDef, args []Value) (Value, error) {

	base := in.proc.Depth()
	prev := in.proc.SetBaseline(base)
	defer in.proc.SetBaseline(prev)

	ret := &ReturnAddress{Func: ec.fn, Index: ec.pc}
	if err := in.proc.CallFunction(def.Name, ret, args); err != nil {
		return Null(), err
	}

	ctl, err := in.dispatch(ctx, ec, base)
	if err != nil {
		return Null(), err
	}
	switch ctl.Kind {
	case CtlNormal:
	case CtlQuit, CtlBegin:
		return Null(), &stopRequest{ctl: ctl}
	default:
		in.proc.unwindTo(base)
		return Null(), invalidOperation("@%s ended with %s inside an expression", def.Name, ctl.Kind)
	}

	v := ctl.Value
	if def.Has(AttrFunctionS) {
		if v.Kind() != KindString {
			v = Str(v.String())
		}
		return v, nil
	}
	if v.IsNull() {
		return Int(0), nil
	}
	return v, nil
}

//
// stopRequest carries QUIT or BEGIN out of an expression evaluation
// back to the statement that started it
//

type stopRequest struct {
	ctl Control
}

func (s *stopRequest) Error() string {
	return s.ctl.Kind.String() + " requested inside an expression"
}
