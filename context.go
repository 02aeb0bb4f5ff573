package emuera

import (
	"sort"
)

//
// ControlKind tells the caller of a statement how execution continues.
// Statements never signal through shared flags; the result carries it
//

type ControlKind int

const (
	CtlNormal ControlKind = iota
	CtlBreak
	CtlContinue
	CtlQuit
	CtlReturn
	CtlGoto
	CtlBegin
	CtlEnd
	CtlUnwound
)

var controlNames = [...]string{
	CtlNormal:   "normal",
	CtlBreak:    "break",
	CtlContinue: "continue",
	CtlQuit:     "quit",
	CtlReturn:   "return",
	CtlGoto:     "goto",
	CtlBegin:    "begin",
	CtlEnd:      "end",
	CtlUnwound:  "unwound",
}

func (k ControlKind) String() string {
	return controlNames[k]
}

//
// Control is the result of executing one statement. Value is the
// RETURN value, Label the GOTO target still looking for its sequence
//

type Control struct {
	Kind  ControlKind
	Value Value
	Label string

	transfer Transfer
}

//
// ExecutionContext is the per-run state of the flat executor: the
// scalar variable table, the output buffer, the persistence flag and
// the bookkeeping for the sequence currently running
//

type ExecutionContext struct {
	vars    map[string]Value
	output  []string
	persist bool
	hook    func(string)

	fn      *FunctionDef
	pc      int
	labels  map[string]int
	returns []int
}

func NewExecutionContext() *ExecutionContext {
	return &ExecutionContext{vars: make(map[string]Value)}
}

// Get reads a scalar from the context table.
func (ec *ExecutionContext) Get(name string) (Value, bool) {

	v, ok := ec.vars[name]
	return v, ok
}

func (ec *ExecutionContext) Set(name string, v Value) {
	ec.vars[name] = v
}

// Vars returns a copy of the scalar table.
func (ec *ExecutionContext) Vars() map[string]Value {

	cp := make(map[string]Value, len(ec.vars))
	for k, v := range ec.vars {
		cp[k] = v
	}
	return cp
}

func (ec *ExecutionContext) VarNames() []string {

	names := make([]string, 0, len(ec.vars))
	for k := range ec.vars {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (ec *ExecutionContext) Emit(s string) {

	ec.output = append(ec.output, s)
	if ec.hook != nil {
		ec.hook(s)
	}
}

// Output returns a copy of what the run emitted so far.
func (ec *ExecutionContext) Output() []string {

	cp := make([]string, len(ec.output))
	copy(cp, ec.output)
	return cp
}

func (ec *ExecutionContext) Persist() bool {
	return ec.persist
}

func (ec *ExecutionContext) SetPersist(on bool) {
	ec.persist = on
}

func (ec *ExecutionContext) ResetVariables() {
	ec.vars = make(map[string]Value)
}

// Function names the function whose body is running, or "" at top level.
func (ec *ExecutionContext) Function() string {

	if ec.fn == nil {
		return ""
	}
	return ec.fn.Name
}

//
// Copy returns an independent context sharing the current variable
// values. The output buffer and sequence bookkeeping are not carried
//

func (ec *ExecutionContext) Copy() *ExecutionContext {

	return &ExecutionContext{
		vars:    ec.Vars(),
		persist: ec.persist,
	}
}

//
// sequenceState is what a body run swaps in and restores, so a nested
// run cannot disturb the caller's labels or local return stack
//

type sequenceState struct {
	fn      *FunctionDef
	pc      int
	labels  map[string]int
	returns []int
}

func (ec *ExecutionContext) enter(fn *FunctionDef, labels map[string]int) sequenceState {

	saved := sequenceState{fn: ec.fn, pc: ec.pc, labels: ec.labels, returns: ec.returns}
	ec.fn = fn
	ec.pc = 0
	ec.labels = labels
	ec.returns = nil
	return saved
}

func (ec *ExecutionContext) leave(saved sequenceState) {

	ec.fn = saved.fn
	ec.pc = saved.pc
	ec.labels = saved.labels
	ec.returns = saved.returns
}
