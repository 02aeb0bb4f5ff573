package emuera

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Undeclared(t *testing.T) {
	m := NewMemoryStore()

	_, ok := m.GetInt("A")
	require.False(t, ok)

	require.NoError(t, m.SetInt("A", 5, 1, 2))
	v, ok := m.GetInt("A", 1, 2)
	require.True(t, ok)
	require.Equal(t, int64(5), v)

	// unset elements of a known name read as 0
	v, ok = m.GetInt("A", 3)
	require.True(t, ok)
	require.Equal(t, int64(0), v)

	// no indices addresses element 0
	require.NoError(t, m.SetStr("S", "x"))
	s, ok := m.GetStr("S", 0)
	require.True(t, ok)
	require.Equal(t, "x", s)
}

func TestMemoryStore_SharedName(t *testing.T) {
	m := NewMemoryStore()

	require.NoError(t, m.SetInt("N", 1))
	require.ErrorIs(t, m.SetStr("N", "a"), ErrTypeMismatch)

	// declared tables of both kinds may coexist
	m.DeclareStr("CALLNAME")
	m.DeclareInt("CALLNAME")
	require.NoError(t, m.SetStr("CALLNAME", "a"))
	require.NoError(t, m.SetInt("CALLNAME", 2))
}

func TestMemoryStore_Bounds(t *testing.T) {
	m := NewMemoryStore()
	m.DeclareInt("FLAG", 10)
	m.DeclareInt("CFLAG", 3, 4)

	require.NoError(t, m.SetInt("FLAG", 1, 9))
	require.ErrorIs(t, m.SetInt("FLAG", 1, 10), ErrInvalidOperation)
	require.ErrorIs(t, m.SetInt("FLAG", 1, -1), ErrInvalidOperation)
	require.ErrorIs(t, m.SetInt("CFLAG", 1, 2, 4), ErrInvalidOperation)
	require.ErrorIs(t, m.SetInt("FLAG", 1, 0, 0, 0, 0), ErrInvalidOperation)

	_, ok := m.GetInt("FLAG", 10)
	require.False(t, ok)
}

func TestMemoryStore_Strict(t *testing.T) {
	m := NewMemoryStore(Strict())
	m.DeclareInt("FLAG")

	require.NoError(t, m.SetInt("FLAG", 1))
	require.ErrorIs(t, m.SetInt("OTHER", 1), ErrVariableNotFound)
	require.ErrorIs(t, m.SetStr("OTHER", "a"), ErrVariableNotFound)
}

func TestMemoryStore_Fill(t *testing.T) {
	m := NewMemoryStore()
	m.DeclareInt("FLAG", 10)
	m.DeclareStr("NAME", 3)

	require.NoError(t, m.SetInt("FLAG", 4, 2))
	require.NoError(t, m.Fill("FLAG", Int(7)))
	v, _ := m.GetInt("FLAG", 2)
	require.Equal(t, int64(7), v)
	v, _ = m.GetInt("FLAG", 9)
	require.Equal(t, int64(7), v)

	require.NoError(t, m.SetStr("NAME", "a", 1))
	require.NoError(t, m.Fill("NAME", Null()))
	s, _ := m.GetStr("NAME", 1)
	require.Equal(t, "", s)

	require.ErrorIs(t, m.Fill("FLAG", Str("x")), ErrTypeMismatch)
	require.ErrorIs(t, m.Fill("NAME", Int(1)), ErrTypeMismatch)
	require.ErrorIs(t, m.Fill("NOPE", Int(1)), ErrVariableNotFound)
}

func TestMemoryStore_Reset(t *testing.T) {
	m := NewMemoryStore()
	m.DeclareInt("FLAG", 10)

	require.NoError(t, m.SetInt("FLAG", 3, 1))
	require.NoError(t, m.Fill("FLAG", Int(2)))
	require.NoError(t, m.SetInt("TEMP", 1))
	require.NoError(t, m.SetStr("TEMPS", "t"))

	m.Reset()

	ints, strs := m.Names()
	require.Equal(t, []string{"FLAG"}, ints)
	require.Empty(t, strs)

	v, ok := m.GetInt("FLAG", 1)
	require.True(t, ok)
	require.Equal(t, int64(0), v)

	// bounds survive a reset
	require.ErrorIs(t, m.SetInt("FLAG", 1, 10), ErrInvalidOperation)
}

func TestMemoryStore_SnapshotRestore(t *testing.T) {
	m := NewMemoryStore()
	m.DeclareInt("FLAG", 10)
	require.NoError(t, m.SetInt("FLAG", 5, 3))
	require.NoError(t, m.SetInt("FLAG", 6, 1))
	require.NoError(t, m.SetStr("NAME", "Bob", 2))

	cells := m.Snapshot()
	require.Equal(t, []Cell{
		{Name: "FLAG", Fill: true, Dims: []int64{10}, Decl: true},
		{Name: "FLAG", Index: indexKey{1}, Int: 6},
		{Name: "FLAG", Index: indexKey{3}, Int: 5},
		{Name: "NAME", IsStr: true, Fill: true},
		{Name: "NAME", Index: indexKey{2}, IsStr: true, Str: "Bob"},
	}, cells)

	other := NewMemoryStore()
	require.NoError(t, other.SetInt("NAME", 1))
	require.NoError(t, other.SetInt("KEEP", 8))
	other.Restore(cells)

	v, _ := other.GetInt("FLAG", 3)
	require.Equal(t, int64(5), v)
	s, ok := other.GetStr("NAME", 2)
	require.True(t, ok)
	require.Equal(t, "Bob", s)

	// NAME switched kind; KEEP was not mentioned
	_, ok = other.GetInt("NAME")
	require.False(t, ok)
	v, _ = other.GetInt("KEEP")
	require.Equal(t, int64(8), v)
	require.ErrorIs(t, other.SetInt("FLAG", 1, 10), ErrInvalidOperation)
}

func TestMemoryStore_Trace(t *testing.T) {
	var buf bytes.Buffer

	m := NewMemoryStore(TraceVars(&buf, "FLAG", "NAME"))
	require.NoError(t, m.SetInt("FLAG", 3, 1, 2))
	require.NoError(t, m.SetInt("OTHER", 1))
	require.NoError(t, m.SetStr("NAME", "a"))

	require.Equal(t, "Variable FLAG:1:2 changed from 0 to 3\n"+
		"Variable NAME changed from \"\" to \"a\"\n", buf.String())
}
