package emuera

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestProcess(t *testing.T, maxDepth int, defs ...*FunctionDef) *Process {
	t.Helper()

	r := NewLabelRegistry()
	for _, d := range defs {
		require.NoError(t, r.Add(d))
	}
	return NewProcess(r, maxDepth)
}

// current returns the implementation the innermost frame runs.
func current(t *testing.T, p *Process) *FunctionDef {
	t.Helper()

	top, ok := p.Top()
	require.True(t, ok)
	return top.Current
}

func TestProcess_EventOrder(t *testing.T) {
	pri := fn("EVENTTURN", 1, AttrPri)
	plain := fn("EVENTTURN", 2, 0)
	later := fn("EVENTTURN", 3, AttrLater)
	both := fn("EVENTTURN", 4, AttrPri|AttrLater)

	p := newTestProcess(t, 0, pri, plain, later, both)
	require.NoError(t, p.CallEventFunction("eventturn", nil))

	top, _ := p.Top()
	require.Equal(t, "EVENTTURN", top.Name)
	require.True(t, top.IsEvent)
	require.Same(t, pri, top.TopLabel)

	var order []*FunctionDef
	for {
		order = append(order, current(t, p))
		tr := p.Return(Null())
		if tr.Kind != TransferResume {
			require.Equal(t, TransferEnd, tr.Kind)
			break
		}
	}
	require.Equal(t, []*FunctionDef{pri, both, plain, later, both}, order)
	require.Equal(t, 0, p.Depth())
}

func TestProcess_EventOnly(t *testing.T) {
	only := fn("EVENTX", 1, AttrPri|AttrOnly)
	rest := fn("EVENTX", 2, 0)

	p := newTestProcess(t, 0, only, rest)
	ret := &ReturnAddress{Index: 7}
	require.NoError(t, p.CallEventFunction("EVENTX", ret))
	require.Same(t, only, current(t, p))

	tr := p.Return(Null())
	require.Equal(t, TransferReturn, tr.Kind)
	require.Same(t, ret, tr.Addr)
	require.Equal(t, 0, p.Depth())
}

func TestProcess_EventSingle(t *testing.T) {
	single := fn("EVENTX", 1, AttrSingle)
	sibling := fn("EVENTX", 2, 0)
	later := fn("EVENTX", 3, AttrLater)

	p := newTestProcess(t, 0, single, sibling, later)

	// returning 1 skips the rest of the group
	require.NoError(t, p.CallEventFunction("EVENTX", nil))
	require.Equal(t, TransferResume, p.Return(Int(1)).Kind)
	require.Same(t, later, current(t, p))
	require.Equal(t, TransferEnd, p.Return(Null()).Kind)

	// any other value advances normally
	require.NoError(t, p.CallEventFunction("EVENTX", nil))
	require.Equal(t, TransferResume, p.Return(Int(0)).Kind)
	require.Same(t, sibling, current(t, p))
	require.Equal(t, TransferResume, p.Return(Int(1)).Kind)
	require.Same(t, later, current(t, p))
}

func TestProcess_EventInProgress(t *testing.T) {
	p := newTestProcess(t, 0, fn("EVENTA", 1, 0), fn("EVENTB", 2, 0), fn("SUB", 3, 0))

	require.NoError(t, p.CallEventFunction("EVENTA", nil))
	require.NoError(t, p.CallFunction("SUB", &ReturnAddress{}, nil))

	err := p.CallEventFunction("EVENTB", nil)
	require.ErrorIs(t, err, ErrEventInProgress)
	require.Equal(t, 2, p.Depth())
}

func TestProcess_KindErrors(t *testing.T) {
	p := newTestProcess(t, 0, fn("EVENTA", 1, 0), fn("SUB", 2, 0))

	require.ErrorIs(t, p.CallFunction("EVENTA", nil, nil), ErrEventKind)
	require.ErrorIs(t, p.CallEventFunction("SUB", nil), ErrNonEventKind)
	require.ErrorIs(t, p.JumpTo("NOPE", nil), ErrLabelNotFound)
	require.Equal(t, 0, p.Depth())
}

func TestProcess_CallAndReturn(t *testing.T) {
	main := fn("MAIN", 1, 0)
	p := newTestProcess(t, 0, main, fn("SUB", 2, 0))

	require.Equal(t, TransferNone, p.Return(Null()).Kind)

	require.NoError(t, p.CallFunction("main", nil, nil))
	ret := &ReturnAddress{Func: main, Index: 3}
	require.NoError(t, p.CallFunction("SUB", ret, []Value{Int(1), Str("a")}))
	require.Equal(t, 2, p.Depth())

	top, _ := p.Top()
	require.Equal(t, []Value{Int(1), Str("a")}, top.Args)

	tr := p.Return(Int(9))
	require.Equal(t, TransferReturn, tr.Kind)
	require.Same(t, ret, tr.Addr)
	require.Equal(t, Int(9), tr.Value)

	tr = p.Return(Null())
	require.Equal(t, TransferEnd, tr.Kind)
	require.True(t, p.ScriptEnd())
}

func TestProcess_Jump(t *testing.T) {
	p := newTestProcess(t, 0, fn("MAIN", 1, 0), fn("SUB", 2, 0), fn("AWAY", 3, 0))

	require.NoError(t, p.CallFunction("MAIN", nil, nil))
	ret := &ReturnAddress{Index: 1}
	require.NoError(t, p.CallFunction("SUB", ret, nil))
	require.NoError(t, p.JumpTo("AWAY", []Value{Int(2)}))
	require.Equal(t, 3, p.Depth())

	top, _ := p.Top()
	require.True(t, top.IsJump)

	// returning from the jump target returns from SUB as well
	tr := p.Return(Int(5))
	require.Equal(t, TransferReturn, tr.Kind)
	require.Same(t, ret, tr.Addr)
	require.Equal(t, Int(5), tr.Value)
	require.Equal(t, 1, p.Depth())
}

func TestProcess_Overflow(t *testing.T) {
	p := newTestProcess(t, 3, fn("REC", 1, 0))

	for i := 0; i < 3; i++ {
		require.NoError(t, p.CallFunction("REC", &ReturnAddress{}, nil))
	}
	err := p.CallFunction("REC", &ReturnAddress{}, nil)
	require.ErrorIs(t, err, ErrStackOverflow)
	require.Equal(t, 3, p.Depth())

	p.unwindTo(1)
	require.Equal(t, 1, p.Depth())
	p.unwindTo(5)
	require.Equal(t, 1, p.Depth())
}

func TestProcess_Begin(t *testing.T) {
	p := newTestProcess(t, 0, fn("MAIN", 1, 0), fn("SUB", 2, 0))

	require.Equal(t, StateOpening, p.State())
	require.ErrorIs(t, p.SetBegin(BeginShop), ErrBeginRefused)

	p.SetState(StateInputWait)
	require.ErrorIs(t, p.SetBegin(BeginShop), ErrBeginRefused)

	p.SetState(StateBoot)
	require.NoError(t, p.CallFunction("MAIN", nil, nil))
	require.NoError(t, p.CallFunction("SUB", &ReturnAddress{}, nil))
	require.NoError(t, p.SetBegin(BeginShop))
	require.Equal(t, BeginShop, p.PendingBegin())

	// a pending BEGIN waits for the root frame to return
	require.Equal(t, TransferReturn, p.Return(Null()).Kind)

	tr := p.Return(Null())
	require.Equal(t, TransferBegin, tr.Kind)
	require.Equal(t, BeginShop, tr.Begin)
	require.Equal(t, BeginNone, p.PendingBegin())
	require.Equal(t, StateNormal, p.State())
	require.Equal(t, 0, p.Depth())
}

func TestProcess_BeginTitle(t *testing.T) {
	p := newTestProcess(t, 0)
	p.SetState(StateInputWait)

	require.NoError(t, p.SetBegin(BeginTitle))
	require.Equal(t, BeginTitle, p.Begin())
	require.Equal(t, StateBoot, p.State())

	// committing with nothing pending leaves the state alone
	require.Equal(t, BeginNone, p.Begin())
	require.Equal(t, StateBoot, p.State())
}

func TestProcess_BeginOnEmptyStack(t *testing.T) {
	p := newTestProcess(t, 0)
	p.SetState(StateNormal)

	require.NoError(t, p.SetBegin(BeginTrain))
	tr := p.Return(Null())
	require.Equal(t, TransferBegin, tr.Kind)
	require.Equal(t, BeginTrain, tr.Begin)
}

func TestProcess_BeginClearsStack(t *testing.T) {
	p := newTestProcess(t, 0, fn("MAIN", 1, 0))
	p.SetState(StateNormal)

	require.NoError(t, p.CallFunction("MAIN", nil, nil))
	require.NoError(t, p.CallFunction("MAIN", &ReturnAddress{}, nil))
	p.SetBaseline(1)
	require.NoError(t, p.SetBegin(BeginFirst))

	require.Equal(t, BeginFirst, p.Begin())
	require.Equal(t, 0, p.Depth())
	require.True(t, p.ScriptEnd())
	require.Equal(t, 0, p.SetBaseline(0))

	require.Equal(t, BeginNone, p.Begin())
}

func TestProcess_Baseline(t *testing.T) {
	p := newTestProcess(t, 0, fn("MAIN", 1, 0))

	require.NoError(t, p.CallFunction("MAIN", nil, nil))
	prev := p.SetBaseline(1)
	require.Equal(t, 0, prev)
	require.True(t, p.ScriptEnd())

	// nothing above the baseline is left to return from
	require.Equal(t, TransferNone, p.Return(Null()).Kind)
	require.Equal(t, 1, p.Depth())

	require.Equal(t, 1, p.SetBaseline(prev))
	require.False(t, p.ScriptEnd())
}

func TestProcess_Reset(t *testing.T) {
	p := newTestProcess(t, 0, fn("MAIN", 1, 0))
	p.SetState(StateNormal)

	require.NoError(t, p.CallFunction("MAIN", nil, nil))
	require.NoError(t, p.SetBegin(BeginShop))
	p.CountLine()
	p.CountLine()
	p.SetPosition(ReturnAddress{Index: 4})
	require.Equal(t, int64(2), p.LineCount())

	p.Reset()
	require.Equal(t, 0, p.Depth())
	require.Equal(t, int64(0), p.LineCount())
	require.Equal(t, StateOpening, p.State())
	require.Equal(t, BeginNone, p.PendingBegin())
	require.Equal(t, ReturnAddress{}, p.Position())
}

func TestProcess_FramesAreCopies(t *testing.T) {
	p := newTestProcess(t, 0, fn("MAIN", 1, 0))
	require.NoError(t, p.CallFunction("MAIN", nil, nil))

	frames := p.Frames()
	require.Len(t, frames, 1)
	frames[0].Name = "CHANGED"

	top, ok := p.Top()
	require.True(t, ok)
	require.Equal(t, "MAIN", top.Name)

	_, ok = newTestProcess(t, 0).Top()
	require.False(t, ok)
}

func TestBeginTypes(t *testing.T) {
	b, ok := ParseBeginType(" shop ")
	require.True(t, ok)
	require.Equal(t, BeginShop, b)
	require.Equal(t, "AFTERTRAIN", BeginAfterTrain.String())

	_, ok = ParseBeginType("NONE")
	require.False(t, ok)
	_, ok = ParseBeginType("LUNCH")
	require.False(t, ok)
}

func TestSystemState(t *testing.T) {
	require.False(t, StateOpening.CanBegin())
	require.True(t, StateBoot.CanBegin())
	require.True(t, StateNormal.CanBegin())
	require.False(t, StateInputWait.CanBegin())
	require.Equal(t, "input-wait", StateInputWait.String())
	require.Equal(t, "unknown", SystemState(0).String())
}
