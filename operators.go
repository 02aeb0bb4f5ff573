package emuera

import (
	"math"
	"strconv"
)

//
// applyBinary combines two evaluated operands. Both sides are always
// evaluated by the caller; && and || do not short-circuit
//

func applyBinary(op Operator, l, r Value) (Value, error) {

	switch op {
	case OpAdd:
		return add(l, r)

	case OpEq, OpNe:
		eq, err := Equal(l, r)
		if err != nil {
			return Null(), err
		}
		return Bool(eq == (op == OpEq)), nil

	case OpLt, OpLe, OpGt, OpGe:
		c, err := Compare(l, r)
		if err != nil {
			return Null(), err
		}
		switch op {
		case OpLt:
			return Bool(c < 0), nil
		case OpLe:
			return Bool(c <= 0), nil
		case OpGt:
			return Bool(c > 0), nil
		}
		return Bool(c >= 0), nil

	case OpAnd:
		return Bool(l.Truthy() && r.Truthy()), nil

	case OpOr:
		return Bool(l.Truthy() || r.Truthy()), nil
	}

	if l.Kind() != KindInt || r.Kind() != KindInt {
		return Null(), typeMismatch("%s %s %s", l.Kind(), op, r.Kind())
	}
	return intArith(op, l.Int64(), r.Int64())
}

// add sums ints and concatenates anything involving a string.
func add(l, r Value) (Value, error) {

	switch {
	case l.Kind() == KindInt && r.Kind() == KindInt:
		return Int(l.Int64() + r.Int64()), nil
	case l.Kind() == KindString && r.Kind() == KindString:
		return Str(l.Text() + r.Text()), nil
	case l.Kind() == KindString && r.Kind() == KindInt:
		return Str(l.Text() + strconv.FormatInt(r.Int64(), 10)), nil
	case l.Kind() == KindInt && r.Kind() == KindString:
		return Str(strconv.FormatInt(l.Int64(), 10) + r.Text()), nil
	}
	return Null(), typeMismatch("%s + %s", l.Kind(), r.Kind())
}

//
// Integer arithmetic wraps on overflow. Division truncates toward
// zero, and the remainder takes the sign of the dividend
//

func intArith(op Operator, a, b int64) (Value, error) {

	switch op {
	case OpSub:
		return Int(a - b), nil
	case OpMul:
		return Int(a * b), nil
	case OpDiv:
		if b == 0 {
			return Null(), newError(ErrDivisionByZero, "%d / 0", a)
		}
		return Int(a / b), nil
	case OpMod:
		if b == 0 {
			return Null(), newError(ErrDivisionByZero, "%d %% 0", a)
		}
		return Int(a % b), nil
	case OpPow:
		return Int(int64(math.Pow(float64(a), float64(b)))), nil
	case OpBitAnd:
		return Int(a & b), nil
	case OpBitOr:
		return Int(a | b), nil
	case OpBitXor:
		return Int(a ^ b), nil
	case OpShl:
		if b < 0 {
			return Null(), invalidOperation("negative shift count %d", b)
		}
		return Int(a << uint64(b)), nil
	case OpShr:
		if b < 0 {
			return Null(), invalidOperation("negative shift count %d", b)
		}
		return Int(a >> uint64(b)), nil
	}
	return Null(), invalidOperation("operator %s", op)
}

func applyUnary(op Operator, v Value) (Value, error) {

	switch op {
	case OpNot:
		return Bool(!v.Truthy()), nil
	case OpNeg:
		if v.Kind() != KindInt {
			return Null(), typeMismatch("-%s", v.Kind())
		}
		return Int(-v.Int64()), nil
	case OpBitNot:
		if v.Kind() != KindInt {
			return Null(), typeMismatch("~%s", v.Kind())
		}
		return Int(^v.Int64()), nil
	}
	return Null(), invalidOperation("unary operator %s", op)
}
