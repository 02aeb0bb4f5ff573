package emuera

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBuiltins(t *testing.T) {
	b := NewBuiltins(1)

	tests := []struct {
		name string
		args []Value
		want Value
	}{
		{"ABS", []Value{Int(-3)}, Int(3)},
		{"SIGN", []Value{Int(-9)}, Int(-1)},
		{"MAX", []Value{Int(2), Int(8), Int(5)}, Int(8)},
		{"MIN", []Value{Int(2), Int(8), Int(-5)}, Int(-5)},
		{"LIMIT", []Value{Int(12), Int(0), Int(10)}, Int(10)},
		{"POWER", []Value{Int(3), Int(4)}, Int(81)},
		{"SQRT", []Value{Int(17)}, Int(4)},
		{"INRANGE", []Value{Int(5), Int(1), Int(5)}, Int(1)},
		{"STRLENS", []Value{Str("日本語")}, Int(3)},
		{"SUBSTRING", []Value{Str("日本語です"), Int(1), Int(2)}, Str("本語")},
		{"SUBSTRING", []Value{Str("hello"), Int(2)}, Str("llo")},
		{"SUBSTRING", []Value{Str("hello"), Int(9)}, Str("")},
		{"STRFIND", []Value{Str("日本語"), Str("語")}, Int(2)},
		{"STRFIND", []Value{Str("abc"), Str("z")}, Int(-1)},
		{"STRCOUNT", []Value{Str("banana"), Str("an")}, Int(2)},
		{"REPLACE", []Value{Str("a-b-c"), Str("-"), Str("+")}, Str("a+b+c")},
		{"toupper", []Value{Str("ab")}, Str("AB")},
		{"TOLOWER", []Value{Str("AB")}, Str("ab")},
		{"TOSTR", []Value{Int(-7), Int(3)}, Str("-007")},
		{"TOINT", []Value{Str(" 42 ")}, Int(42)},
		{"TOINT", []Value{Str("x")}, Int(0)},
		{"ISNUMERIC", []Value{Str("12")}, Int(1)},
		{"UNICODE", []Value{Int(0x41)}, Str("A")},
		{"GROUPMATCH", []Value{Int(2), Int(1), Int(2), Str("2"), Int(2)}, Int(2)},
		{"SPLIT", []Value{Str("a,b")}, Array(Str("a"), Str("b"))},
		{"JOIN", []Value{Array(Int(1), Int(2)), Str("-")}, Str("1-2")},
		{"ARRAYLEN", []Value{Array(Int(1), Int(2))}, Int(2)},
		{"CHARAREF", []Value{Int(3)}, Chara(3)},
	}

	for _, tt := range tests {
		got, err := b.Call(tt.name, tt.args, nil)
		require.NoError(t, err, tt.name)
		require.Equal(t, tt.want, got, tt.name)
	}
}

func TestBuiltins_Errors(t *testing.T) {
	b := NewBuiltins(1)

	for _, tt := range []struct {
		name string
		args []Value
		kind error
	}{
		{"NOPE", nil, ErrFunctionNotFound},
		{"ABS", nil, ErrInvalidOperation},
		{"ABS", []Value{Str("a")}, ErrTypeMismatch},
		{"SQRT", []Value{Int(-1)}, ErrInvalidOperation},
		{"RAND", []Value{Int(0)}, ErrInvalidOperation},
		{"UNICODE", []Value{Int(-1)}, ErrInvalidOperation},
		{"JOIN", []Value{Str("a")}, ErrTypeMismatch},
		{"GETTIME", []Value{Int(1)}, ErrInvalidOperation},
	} {
		_, err := b.Call(tt.name, tt.args, nil)
		require.ErrorIs(t, err, tt.kind, tt.name)
	}
}

func TestBuiltins_Rand(t *testing.T) {
	a, b := NewBuiltins(5), NewBuiltins(5)

	for i := 0; i < 20; i++ {
		x, err := a.Call("RAND", []Value{Int(3), Int(6)}, nil)
		require.NoError(t, err)
		y, err := b.Call("RAND", []Value{Int(3), Int(6)}, nil)
		require.NoError(t, err)
		require.Equal(t, x, y)
		require.GreaterOrEqual(t, x.Int64(), int64(3))
		require.Less(t, x.Int64(), int64(6))
	}
}

func TestBuiltins_GetTime(t *testing.T) {
	b := NewBuiltins(1)
	b.now = func() time.Time {
		return time.Date(2024, 3, 5, 7, 8, 9, 45*int(time.Millisecond), time.Local)
	}

	got, err := b.Call("GETTIME", nil, nil)
	require.NoError(t, err)
	require.Equal(t, Int(20240305070809045), got)
}

func TestFunctionChain(t *testing.T) {
	host := FunctionRegistryFunc(func(name string, args []Value, ec *ExecutionContext) (Value, error) {
		if name == "ABS" {
			return Int(-1), nil
		}
		return Null(), newError(ErrFunctionNotFound, "%s", name)
	})
	chain := chainFunctions{host, NewBuiltins(1)}

	v, err := chain.Call("ABS", []Value{Int(-5)}, nil)
	require.NoError(t, err)
	require.Equal(t, Int(-1), v, "host registry comes first")

	v, err = chain.Call("MAX", []Value{Int(1), Int(4)}, nil)
	require.NoError(t, err)
	require.Equal(t, Int(4), v)

	_, err = chain.Call("NONE", nil, nil)
	require.ErrorIs(t, err, ErrFunctionNotFound)

	require.Contains(t, NewBuiltins(1).Names(), "SUBSTRING")
}
