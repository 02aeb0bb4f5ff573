package emuera

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"

	"github.com/goforj/godump"
)

//
// Interpreter ties the executor to its collaborators: the variable
// store, the function registry, the command table, the label registry
// and the process. One Interpreter runs one script at a time
//

type Interpreter struct {
	cfg      *Config
	store    VariableStore
	funcs    FunctionRegistry
	builtins *Builtins
	commands map[string]CommandFunc
	labels   *LabelRegistry
	proc     *Process
	console  Console
	trace    io.Writer
	hook     func(string)
	session  *ExecutionContext
}

type Option func(*Interpreter)

func WithStore(s VariableStore) Option {
	return func(in *Interpreter) { in.store = s }
}

// WithFunctions puts a host registry in front of the built-ins.
func WithFunctions(f FunctionRegistry) Option {
	return func(in *Interpreter) { in.funcs = chainFunctions{f, in.builtins} }
}

// WithCommand adds or replaces one command.
func WithCommand(name string, fn CommandFunc) Option {
	return func(in *Interpreter) { in.commands[strings.ToUpper(name)] = fn }
}

func WithConsole(c Console) Option {
	return func(in *Interpreter) { in.console = c }
}

// WithOutputHook sees every emitted string as it is produced.
func WithOutputHook(h func(string)) Option {
	return func(in *Interpreter) { in.hook = h }
}

func WithTraceWriter(w io.Writer) Option {
	return func(in *Interpreter) { in.trace = w }
}

func WithLabels(r *LabelRegistry) Option {
	return func(in *Interpreter) { in.labels = r }
}

func New(cfg *Config, opts ...Option) *Interpreter {

	if cfg == nil {
		cfg = DefaultConfig()
	}

	in := &Interpreter{
		cfg:      cfg,
		labels:   NewLabelRegistry(),
		commands: defaultCommands(),
		trace:    os.Stderr,
	}
	in.builtins = NewBuiltins(cfg.Seed)
	in.funcs = in.builtins

	for _, o := range opts {
		o(in)
	}

	if in.store == nil {
		var sopts []StoreOption
		if cfg.Trace.Vars {
			sopts = append(sopts, TraceVars(in.trace))
		}
		in.store = NewMemoryStore(sopts...)
	}
	in.proc = NewProcess(in.labels, cfg.MaxCallDepth)
	return in
}

func (in *Interpreter) Config() *Config {
	return in.cfg
}

func (in *Interpreter) Process() *Process {
	return in.proc
}

func (in *Interpreter) Labels() *LabelRegistry {
	return in.labels
}

func (in *Interpreter) Store() VariableStore {
	return in.store
}

// Session is the context of the latest run, nil before the first.
func (in *Interpreter) Session() *ExecutionContext {
	return in.session
}

//
// Load registers parsed function definitions
//

func (in *Interpreter) Load(defs []*FunctionDef) error {

	for _, d := range defs {
		if err := in.labels.Add(d); err != nil {
			return err
		}
	}
	log.Debugf("loaded %d %s, %d labels", len(defs), Pluralize("function", int64(len(defs))), in.labels.Len())
	return nil
}

func (in *Interpreter) LoadSource(file, src string) error {

	defs, err := ParseProgram(file, src)
	if err != nil {
		return err
	}
	return in.Load(defs)
}

// LoadDir loads every script file under dir, in lexical order.
func (in *Interpreter) LoadDir(dir string) error {

	var files []string

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), scriptSuffix) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return err
		}
		if err := in.LoadSource(f, string(data)); err != nil {
			return err
		}
	}
	log.Infof("loaded %d script %s from %s", len(files), Pluralize("file", int64(len(files))), dir)
	return nil
}

//
// context hands out the run context: a copy of the previous one when
// persistence is on, a fresh one otherwise
//

func (in *Interpreter) context() *ExecutionContext {

	var ec *ExecutionContext
	if in.session != nil && in.session.persist {
		ec = in.session.Copy()
	} else {
		ec = NewExecutionContext()
		ec.persist = in.cfg.Persist
	}
	ec.hook = in.hook
	in.session = ec
	return ec
}

//
// Reset clears the context variables and the store. The call stack is
// left alone
//

func (in *Interpreter) Reset() {
	in.resetVariables(in.session)
}

func (in *Interpreter) resetVariables(ec *ExecutionContext) {

	if ec != nil {
		ec.ResetVariables()
	}
	if r, ok := in.store.(interface{ Reset() }); ok {
		r.Reset()
	}
}

//
// guard recovers interpreter panics into ErrInternal and leaves the
// stack as it was before the run
//

func (in *Interpreter) guard(depth int, err *error) {

	if e := recover(); e != nil {
		if in.cfg.Trace.Stack {
			fmt.Fprintf(in.trace, "%s", debug.Stack())
		}
		*err = decodePanic(e)
	}
	if *err != nil {
		in.proc.unwindTo(depth)
		log.Errorf("%s", *err)
	}
}

//
// Execute runs a flat statement sequence at top level and returns what
// it printed. A BEGIN reached here hands over to the phase loop
//

func (in *Interpreter) Execute(ctx context.Context, stmts []Stmt) (out []string, err error) {

	ec := in.context()
	depth := in.proc.Depth()

	defer func() { out = ec.Output() }()
	defer in.guard(depth, &err)

	ctl, err := in.runBody(ctx, ec, nil, stmts)
	if err != nil {
		return nil, err
	}
	if ctl.Kind == CtlBegin {
		err = in.phases(ctx, ec, ctl)
	}
	return nil, err
}

// ExecuteSource parses src as a flat script and executes it.
func (in *Interpreter) ExecuteSource(ctx context.Context, src string) ([]string, error) {

	stmts, err := ParseScript("", src)
	if err != nil {
		return nil, err
	}
	return in.Execute(ctx, stmts)
}

//
// Run calls entry as the root of the call stack and keeps going through
// any phases it BEGINs into
//

func (in *Interpreter) Run(ctx context.Context, entry string) (out []string, err error) {

	if entry == "" {
		entry = in.cfg.Entry
	}

	ec := in.context()

	defer func() { out = ec.Output() }()
	defer in.guard(0, &err)

	in.proc.SetState(StateNormal)
	prev := in.proc.SetBaseline(in.cfg.BaselineDepth)
	defer in.proc.SetBaseline(prev)

	ctl, err := in.callRoot(ctx, ec, entry)
	if err != nil {
		return nil, err
	}
	if ctl.Kind == CtlBegin {
		err = in.phases(ctx, ec, ctl)
	}
	in.proc.unwindTo(0)
	return nil, err
}

//
// Boot starts a game from the title phase
//

func (in *Interpreter) Boot(ctx context.Context) (out []string, err error) {

	ec := in.context()

	defer func() { out = ec.Output() }()
	defer in.guard(0, &err)

	in.proc.SetState(StateBoot)
	if err := in.proc.SetBegin(BeginTitle); err != nil {
		return nil, err
	}
	err = in.phases(ctx, ec, Control{Kind: CtlBegin})
	in.proc.unwindTo(0)
	return nil, err
}

func (in *Interpreter) callRoot(ctx context.Context, ec *ExecutionContext, name string) (Control, error) {

	found, event := in.labels.Lookup(name)
	if !found {
		return Control{}, newError(ErrLabelNotFound, "@%s", labelKey(name))
	}

	base := in.proc.Depth()

	var err error
	if event {
		err = in.proc.CallEventFunction(name, nil)
	} else {
		err = in.proc.CallFunction(name, nil, nil)
	}
	if err != nil {
		return Control{}, err
	}
	return in.dispatch(ctx, ec, base)
}

//
// Each phase runs its entry functions in order. Emuera proper also
// shows built-in screens here; a script that lacks an entry simply
// moves on
//

var phaseEntries = map[BeginType][]string{
	BeginTitle:      {"SYSTEM_TITLE"},
	BeginFirst:      {"EVENTFIRST"},
	BeginShop:       {"EVENTSHOP", "SHOW_SHOP"},
	BeginTrain:      {"EVENTTRAIN", "SHOW_STATUS"},
	BeginAfterTrain: {"EVENTEND"},
	BeginAblUp:      {"SHOW_JUEL", "SHOW_ABLUP_SELECT"},
	BeginTurnEnd:    {"EVENTTURNEND"},
}

func (in *Interpreter) phases(ctx context.Context, ec *ExecutionContext, ctl Control) error {

	for ctl.Kind == CtlBegin {
		t := ctl.transfer.Begin
		if ctl.transfer.Kind != TransferBegin {
			t = in.proc.Begin()
		}
		if t == BeginNone {
			return nil
		}

		ctl = Control{}
		ran := false
		for _, name := range phaseEntries[t] {
			if found, _ := in.labels.Lookup(name); !found {
				continue
			}
			ran = true
			c, err := in.callRoot(ctx, ec, name)
			if err != nil {
				return err
			}
			if c.Kind == CtlBegin || c.Kind == CtlQuit {
				ctl = c
				break
			}
		}
		if !ran {
			log.Warningf("phase %s has no entry function", t)
		}
		if ctl.Kind == CtlQuit {
			return nil
		}
	}
	return nil
}

//
// Trace output: one line per statement, an optional dump of its tree,
// and the call stack on every frame switch
//

func (in *Interpreter) traceExec(ec *ExecutionContext, stmt Stmt) {

	if !in.cfg.Trace.Exec && !in.cfg.Trace.Dump {
		return
	}

	fn := ec.Function()
	if fn == "" {
		fn = "-"
	}
	fmt.Fprintf(in.trace, "[@%s %d] %s\n", fn, stmt.Position().Line, stmtName(stmt))
	if in.cfg.Trace.Dump {
		fmt.Fprintln(in.trace, godump.DumpStr(stmt))
	}
}

func (in *Interpreter) traceStack() {

	frames := in.proc.Frames()

	pos := in.proc.Position()
	at := "top level"
	if pos.Func != nil {
		at = "@" + pos.Func.Name
	}
	fmt.Fprintf(in.trace, "call stack (%d), last statement %s:%d:\n", len(frames), at, pos.Index)
	for i := len(frames) - 1; i >= 0; i-- {
		fr := frames[i]
		cur := "-"
		if fr.Current != nil {
			cur = fr.Current.Pos.String()
		}
		flags := ""
		if fr.IsJump {
			flags += " jump"
		}
		if fr.IsEvent {
			flags += " event"
		}
		fmt.Fprintf(in.trace, "  #%d @%s (%s)%s\n", i, fr.Name, cur, flags)
	}
}

func stmtName(stmt Stmt) string {

	switch s := stmt.(type) {
	case *CommandStmt:
		return s.Name
	case *CallStmt:
		if s.Try {
			return "TRYCALL " + s.Target
		}
		return "CALL " + s.Target
	case *JumpStmt:
		return "JUMP " + s.Target
	case *CallEventStmt:
		return "CALLEVENT " + s.Target
	case *GotoStmt:
		return "GOTO " + s.Label
	case *LabelStmt:
		return "$" + s.Name
	}
	name := fmt.Sprintf("%T", stmt)
	name = strings.TrimPrefix(name, "*emuera.")
	return strings.ToUpper(strings.TrimSuffix(name, "Stmt"))
}
