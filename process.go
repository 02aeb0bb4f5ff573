package emuera

import (
	"strings"
)

//
// BeginType names the game phase a BEGIN statement transfers to
//

type BeginType int

const (
	BeginNone BeginType = iota
	BeginTitle
	BeginFirst
	BeginShop
	BeginTrain
	BeginAfterTrain
	BeginAblUp
	BeginTurnEnd
)

var beginNames = [...]string{
	BeginNone:       "NONE",
	BeginTitle:      "TITLE",
	BeginFirst:      "FIRST",
	BeginShop:       "SHOP",
	BeginTrain:      "TRAIN",
	BeginAfterTrain: "AFTERTRAIN",
	BeginAblUp:      "ABLUP",
	BeginTurnEnd:    "TURNEND",
}

func (b BeginType) String() string {
	return beginNames[b]
}

func ParseBeginType(s string) (BeginType, bool) {

	s = strings.ToUpper(strings.TrimSpace(s))
	for i, n := range beginNames {
		if i != int(BeginNone) && n == s {
			return BeginType(i), true
		}
	}
	return BeginNone, false
}

//
// SystemState is a bit set. The canBegin bit marks the states where a
// BEGIN may be scheduled
//

type SystemState uint

const stateCanBegin SystemState = 1 << 8

const (
	StateOpening   SystemState = 0x01
	StateBoot      SystemState = 0x02 | stateCanBegin
	StateNormal    SystemState = 0x04 | stateCanBegin
	StateInputWait SystemState = 0x08
)

func (s SystemState) CanBegin() bool {
	return s&stateCanBegin != 0
}

func (s SystemState) String() string {

	switch s {
	case StateOpening:
		return "opening"
	case StateBoot:
		return "boot"
	case StateNormal:
		return "normal"
	case StateInputWait:
		return "input-wait"
	}
	return "unknown"
}

//
// ReturnAddress is the statement after a call: a function body and an
// index into it. Func is nil for the top level sequence
//

type ReturnAddress struct {
	Func  *FunctionDef
	Index int
}

//
// CalledFunction is one frame of the call stack. For an event frame,
// Current walks the event groups; it is nil once they are exhausted
//

type CalledFunction struct {
	Name     string
	Current  *FunctionDef
	TopLabel *FunctionDef
	Return   *ReturnAddress
	IsJump   bool
	IsEvent  bool
	Args     []Value

	groups  *EventGroups
	group   int
	counter int
}

//
// advance picks the next implementation: the next one in the current
// group, else the first of the next non-empty group
//

func (f *CalledFunction) advance() {

	for f.group < eventGroupCount {
		f.counter++
		if f.counter < len(f.groups[f.group]) {
			f.Current = f.groups[f.group][f.counter]
			return
		}
		f.counter = -1
		f.group++
	}
	f.Current = nil
}

// advanceGroup skips the rest of the current group.
func (f *CalledFunction) advanceGroup() {

	f.counter = -1
	f.group++
	f.advance()
}

func (f *CalledFunction) finish() {

	f.group = eventGroupCount
	f.counter = -1
	f.Current = nil
}

func (f *CalledFunction) Exhausted() bool {
	return f.Current == nil
}

//
// Transfer tells the driver what a return did to the stack
//

type TransferKind int

const (
	TransferNone   TransferKind = iota // stack was already empty
	TransferResume                     // event frame picked its next implementation
	TransferReturn                     // frame popped; continue at Addr
	TransferEnd                        // root frame popped; script ended
	TransferBegin                      // root frame popped; pending BEGIN committed
)

type Transfer struct {
	Kind  TransferKind
	Addr  *ReturnAddress
	Value Value
	Begin BeginType
}

//
// LabelResolver is the part of the label registry the process needs
//

type LabelResolver interface {
	ResolveNonEvent(name string) (*FunctionDef, error)
	ResolveEvent(name string) (*EventGroups, error)
}

//
// Process owns the call stack, the current statement pointer, the line
// counter and the BEGIN phase machine
//

type Process struct {
	labels   LabelResolver
	stack    []CalledFunction
	pos      ReturnAddress
	lines    int64
	state    SystemState
	begin    BeginType
	baseline int
	maxDepth int
}

func NewProcess(labels LabelResolver, maxDepth int) *Process {

	if maxDepth <= 0 {
		maxDepth = defaultMaxCallDepth
	}
	return &Process{labels: labels, state: StateOpening, maxDepth: maxDepth}
}

func (p *Process) push(fr CalledFunction) error {

	if len(p.stack) >= p.maxDepth {
		return newError(ErrStackOverflow, "calling @%s at depth %d", fr.Name, len(p.stack))
	}
	p.stack = append(p.stack, fr)
	processLog.Debugf("push @%s depth=%d jump=%t event=%t", fr.Name, len(p.stack), fr.IsJump, fr.IsEvent)
	return nil
}

func (p *Process) pop() CalledFunction {

	fr := p.stack[len(p.stack)-1]
	p.stack = p.stack[:len(p.stack)-1]
	processLog.Debugf("pop @%s depth=%d", fr.Name, len(p.stack))
	return fr
}

//
// CallFunction pushes a frame for a normal function. ret is where the
// caller continues once the callee returns
//

func (p *Process) CallFunction(name string, ret *ReturnAddress, args []Value) error {

	def, err := p.labels.ResolveNonEvent(name)
	if err != nil {
		return err
	}
	return p.push(CalledFunction{
		Name:     def.Name,
		Current:  def,
		TopLabel: def,
		Return:   ret,
		Args:     args,
		counter:  -1,
	})
}

//
// CallEventFunction resolves the event groups, selects the first
// implementation and pushes the frame. Only one event may be on the
// stack at a time
//

func (p *Process) CallEventFunction(name string, ret *ReturnAddress) error {

	for i := range p.stack {
		if p.stack[i].IsEvent {
			return newError(ErrEventInProgress, "@%s while @%s runs", strings.ToUpper(name), p.stack[i].Name)
		}
	}
	groups, err := p.labels.ResolveEvent(name)
	if err != nil {
		return err
	}
	fr := CalledFunction{
		Name:    strings.ToUpper(name),
		Return:  ret,
		IsEvent: true,
		groups:  groups,
		counter: -1,
	}
	fr.advance()
	fr.TopLabel = fr.Current
	return p.push(fr)
}

//
// JumpTo pushes a frame that, when it returns, also returns from the
// frame below it
//

func (p *Process) JumpTo(name string, args []Value) error {

	def, err := p.labels.ResolveNonEvent(name)
	if err != nil {
		return err
	}
	return p.push(CalledFunction{
		Name:     def.Name,
		Current:  def,
		TopLabel: def,
		IsJump:   true,
		Args:     args,
		counter:  -1,
	})
}

//
// Return is called when the running implementation finishes with v.
// A jump frame is popped and the return repeats on the frame below.
// An event frame moves to its next implementation per #ONLY, #SINGLE
// or plain advance, and only unwinds once exhausted
//

func (p *Process) Return(v Value) Transfer {

	if len(p.stack) <= p.baseline {
		if len(p.stack) == 0 && p.begin != BeginNone {
			return Transfer{Kind: TransferBegin, Begin: p.Begin(), Value: v}
		}
		return Transfer{Kind: TransferNone, Value: v}
	}

	top := &p.stack[len(p.stack)-1]

	if top.IsJump {
		p.pop()
		return p.Return(v)
	}

	if top.IsEvent && top.Current != nil {
		cur := top.Current
		switch {
		case cur.Has(AttrOnly):
			top.finish()
		case cur.Has(AttrSingle) && v.Kind() == KindInt && v.Int64() == 1:
			top.advanceGroup()
		default:
			top.advance()
		}
		if top.Current != nil {
			processLog.Debugf("resume @%s group=%d index=%d", top.Name, top.group, top.counter)
			return Transfer{Kind: TransferResume, Value: v}
		}
	}

	fr := p.pop()
	if fr.Return != nil {
		return Transfer{Kind: TransferReturn, Addr: fr.Return, Value: v}
	}
	if p.begin != BeginNone {
		return Transfer{Kind: TransferBegin, Begin: p.Begin(), Value: v}
	}
	return Transfer{Kind: TransferEnd, Value: v}
}

//
// SetBegin schedules a phase change. Refused outside the states that
// carry the canBegin bit, except TITLE which is always allowed
//

func (p *Process) SetBegin(t BeginType) error {

	if t != BeginTitle && !p.state.CanBegin() {
		return newError(ErrBeginRefused, "BEGIN %s in %s state", t, p.state)
	}
	p.begin = t
	return nil
}

//
// Begin commits the pending phase change: the stack is cleared and the
// pending type returned. It is the only wholesale clear of the stack
//

func (p *Process) Begin() BeginType {

	t := p.begin
	p.begin = BeginNone
	p.stack = p.stack[:0]
	p.baseline = 0
	switch t {
	case BeginNone:
		return t
	case BeginTitle:
		p.state = StateBoot
	default:
		p.state = StateNormal
	}
	processLog.Infof("begin %s", t)
	return t
}

// Reset returns the process to its freshly created state.
func (p *Process) Reset() {

	p.stack = nil
	p.pos = ReturnAddress{}
	p.lines = 0
	p.state = StateOpening
	p.begin = BeginNone
	p.baseline = 0
}

// unwindTo drops the frames above depth after a failed run.
func (p *Process) unwindTo(depth int) {

	if depth < len(p.stack) {
		p.stack = p.stack[:depth]
	}
}

func (p *Process) PendingBegin() BeginType {
	return p.begin
}

func (p *Process) State() SystemState {
	return p.state
}

func (p *Process) SetState(s SystemState) {
	p.state = s
}

// ScriptEnd reports whether nothing is left above the baseline.
func (p *Process) ScriptEnd() bool {
	return len(p.stack) <= p.baseline
}

//
// SetBaseline marks the depth a nested sub-interpretation must not
// unwind past. It returns the previous baseline for restoring
//

func (p *Process) SetBaseline(depth int) int {

	prev := p.baseline
	p.baseline = depth
	return prev
}

func (p *Process) Depth() int {
	return len(p.stack)
}

// Top returns a copy of the innermost frame.
func (p *Process) Top() (CalledFunction, bool) {

	if len(p.stack) == 0 {
		return CalledFunction{}, false
	}
	return p.stack[len(p.stack)-1], true
}

// Frames returns a copy of the stack, outermost first.
func (p *Process) Frames() []CalledFunction {

	cp := make([]CalledFunction, len(p.stack))
	copy(cp, p.stack)
	return cp
}

func (p *Process) CountLine() {
	p.lines++
}

func (p *Process) LineCount() int64 {
	return p.lines
}

func (p *Process) SetPosition(addr ReturnAddress) {
	p.pos = addr
}

func (p *Process) Position() ReturnAddress {
	return p.pos
}
