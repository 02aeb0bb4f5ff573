package emuera

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplyBinary_IntArith(t *testing.T) {
	tests := []struct {
		op   Operator
		l, r int64
		want int64
	}{
		{OpAdd, 2, 3, 5},
		{OpSub, 2, 3, -1},
		{OpMul, -4, 3, -12},
		{OpDiv, 7, 2, 3},
		{OpDiv, -7, 2, -3},
		{OpDiv, 7, -2, -3},
		{OpMod, 7, 3, 1},
		{OpMod, -7, 3, -1},
		{OpMod, 7, -3, 1},
		{OpPow, 2, 10, 1024},
		{OpPow, 5, 0, 1},
		{OpBitAnd, 12, 10, 8},
		{OpBitOr, 12, 10, 14},
		{OpBitXor, 12, 10, 6},
		{OpShl, 1, 4, 16},
		{OpShr, -16, 2, -4},
		{OpEq, 3, 3, 1},
		{OpNe, 3, 3, 0},
		{OpLt, 2, 3, 1},
		{OpLe, 3, 3, 1},
		{OpGt, 2, 3, 0},
		{OpGe, 2, 3, 0},
		{OpAnd, 2, 0, 0},
		{OpOr, 0, 5, 1},
	}

	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			got, err := applyBinary(tt.op, Int(tt.l), Int(tt.r))
			require.NoError(t, err)
			require.Equal(t, Int(tt.want), got, "%d %s %d", tt.l, tt.op, tt.r)
		})
	}
}

func TestApplyBinary_Overflow(t *testing.T) {
	got, err := applyBinary(OpAdd, Int(math.MaxInt64), Int(1))
	require.NoError(t, err)
	require.Equal(t, int64(math.MinInt64), got.Int64())
}

func TestApplyBinary_Strings(t *testing.T) {
	got, err := applyBinary(OpAdd, Str("ab"), Str("cd"))
	require.NoError(t, err)
	require.Equal(t, Str("abcd"), got)

	got, err = applyBinary(OpAdd, Str("n="), Int(4))
	require.NoError(t, err)
	require.Equal(t, Str("n=4"), got)

	got, err = applyBinary(OpAdd, Int(4), Str("th"))
	require.NoError(t, err)
	require.Equal(t, Str("4th"), got)

	got, err = applyBinary(OpLt, Str("abc"), Str("abd"))
	require.NoError(t, err)
	require.Equal(t, Int(1), got)

	got, err = applyBinary(OpAnd, Str("x"), Int(1))
	require.NoError(t, err)
	require.Equal(t, Int(1), got)
}

func TestApplyBinary_Errors(t *testing.T) {
	_, err := applyBinary(OpDiv, Int(1), Int(0))
	require.ErrorIs(t, err, ErrDivisionByZero)

	_, err = applyBinary(OpMod, Int(1), Int(0))
	require.ErrorIs(t, err, ErrDivisionByZero)

	_, err = applyBinary(OpSub, Str("a"), Int(1))
	require.ErrorIs(t, err, ErrTypeMismatch)

	_, err = applyBinary(OpEq, Str("a"), Int(1))
	require.ErrorIs(t, err, ErrTypeMismatch)

	_, err = applyBinary(OpAdd, Array(), Int(1))
	require.ErrorIs(t, err, ErrTypeMismatch)

	_, err = applyBinary(OpShl, Int(1), Int(-1))
	require.ErrorIs(t, err, ErrInvalidOperation)

	_, err = applyBinary(OpAssign, Int(1), Int(1))
	require.ErrorIs(t, err, ErrInvalidOperation)
}

func TestApplyUnary(t *testing.T) {
	got, err := applyUnary(OpNeg, Int(5))
	require.NoError(t, err)
	require.Equal(t, Int(-5), got)

	got, err = applyUnary(OpNot, Str(""))
	require.NoError(t, err)
	require.Equal(t, Int(1), got)

	got, err = applyUnary(OpBitNot, Int(0))
	require.NoError(t, err)
	require.Equal(t, Int(-1), got)

	_, err = applyUnary(OpNeg, Str("a"))
	require.ErrorIs(t, err, ErrTypeMismatch)

	_, err = applyUnary(OpAdd, Int(1))
	require.ErrorIs(t, err, ErrInvalidOperation)
}

func TestOperator_Assign(t *testing.T) {
	require.True(t, OpAssign.IsAssign())
	require.True(t, OpDivAssign.IsAssign())
	require.False(t, OpEq.IsAssign())
	require.Equal(t, OpMul, OpMulAssign.arith())
	require.Equal(t, OpEq, OpEq.arith())
}
