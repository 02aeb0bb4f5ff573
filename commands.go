package emuera

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

//
// CommandFunc implements one named command. Arguments arrive
// unevaluated so that commands such as SWAP and VARSET can treat them
// as targets
//

type CommandFunc func(ctx context.Context, in *Interpreter, ec *ExecutionContext, args []Expr) (Control, error)

//
// Console is the optional collaborator behind the blocking commands.
// Without one, WAIT only marks the output and the INPUT family takes
// its default. ReadLine returns ErrTimeout when a positive timeout
// expires
//

type Console interface {
	Wait(ctx context.Context) error
	ReadLine(ctx context.Context, timeout time.Duration) (string, error)
}

func defaultCommands() map[string]CommandFunc {

	return map[string]CommandFunc{
		"PRINT":       executePrint("", false),
		"PRINTL":      executePrint("\n", false),
		"PRINTW":      executePrint("\n", true),
		"PRINTV":      executePrintKind(KindInt, ""),
		"PRINTVL":     executePrintKind(KindInt, "\n"),
		"PRINTS":      executePrintKind(KindString, ""),
		"PRINTSL":     executePrintKind(KindString, "\n"),
		"PRINTFORM":   executePrintForm("", false),
		"PRINTFORML":  executePrintForm("\n", false),
		"PRINTFORMW":  executePrintForm("\n", true),
		"DRAWLINE":    executeDrawLine,
		"WAIT":        executeWait,
		"INPUT":       executeInput(false, false),
		"INPUTS":      executeInput(true, false),
		"TINPUT":      executeInput(false, true),
		"TINPUTS":     executeInput(true, true),
		"QUIT":        executeQuit,
		"BEGIN":       executeBegin,
		"RANDOMIZE":   executeRandomize,
		"ASSERT":      executeAssert,
		"THROW":       executeThrow,
		"DEBUGPRINT":  executeDebugPrint,
		"DEBUGPRINTL": executeDebugPrint,
		"SAVEGLOBAL":  executeSaveGlobal,
		"LOADGLOBAL":  executeLoadGlobal,
		"VARSET":      executeVarset,
		"SWAP":        executeSwap,
	}
}

// Commands lists the registered command names in order.
func (in *Interpreter) Commands() []string {

	names := make([]string, 0, len(in.commands))
	for n := range in.commands {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (in *Interpreter) executeCommand(ctx context.Context, ec *ExecutionContext, s *CommandStmt) (Control, error) {

	fn, ok := in.commands[strings.ToUpper(s.Name)]
	if !ok {
		return Control{}, newError(ErrFunctionNotFound, "no command %s", s.Name)
	}
	return fn(ctx, in, ec, s.Args)
}

//
// PRINT family. Values print in their natural form and are joined
// without separators
//

func (in *Interpreter) joinArgs(ctx context.Context, ec *ExecutionContext, args []Expr) (string, error) {

	var sb strings.Builder

	for _, a := range args {
		v, err := in.Evaluate(ctx, ec, a)
		if err != nil {
			return "", err
		}
		sb.WriteString(v.String())
	}
	return sb.String(), nil
}

// emitLine prints text, then waits for a key when wait is set.
func (in *Interpreter) emitLine(ctx context.Context, ec *ExecutionContext, text string, wait bool) error {

	ec.Emit(text)
	if wait {
		return in.wait(ctx, ec)
	}
	return nil
}

func executePrint(suffix string, wait bool) CommandFunc {

	return func(ctx context.Context, in *Interpreter, ec *ExecutionContext, args []Expr) (Control, error) {

		text, err := in.joinArgs(ctx, ec, args)
		if err != nil {
			return Control{}, err
		}
		return Control{}, in.emitLine(ctx, ec, text+suffix, wait)
	}
}

func executePrintKind(kind Kind, suffix string) CommandFunc {

	return func(ctx context.Context, in *Interpreter, ec *ExecutionContext, args []Expr) (Control, error) {

		var sb strings.Builder

		for i, a := range args {
			v, err := in.Evaluate(ctx, ec, a)
			if err != nil {
				return Control{}, err
			}
			if v.Kind() != kind {
				return Control{}, typeMismatch("argument %d is %s, want %s", i+1, v.Kind(), kind)
			}
			sb.WriteString(v.String())
		}
		sb.WriteString(suffix)
		ec.Emit(sb.String())
		return Control{}, nil
	}
}

func executePrintForm(suffix string, wait bool) CommandFunc {

	return func(ctx context.Context, in *Interpreter, ec *ExecutionContext, args []Expr) (Control, error) {

		text, err := in.formArg(ctx, ec, args)
		if err != nil {
			return Control{}, err
		}
		return Control{}, in.emitLine(ctx, ec, text+suffix, wait)
	}
}

// formArg expands the single template argument of a form command.
func (in *Interpreter) formArg(ctx context.Context, ec *ExecutionContext, args []Expr) (string, error) {

	if len(args) == 0 {
		return "", nil
	}
	if len(args) > 1 {
		return "", invalidOperation("form takes one template, got %d arguments", len(args))
	}
	tmpl, err := in.evalString(ctx, ec, args[0], "form template")
	if err != nil {
		return "", err
	}
	return in.expandForm(ctx, ec, tmpl)
}

func executeDrawLine(ctx context.Context, in *Interpreter, ec *ExecutionContext, args []Expr) (Control, error) {

	if len(args) != 0 {
		return Control{}, invalidOperation("DRAWLINE takes no arguments")
	}
	ec.Emit(strings.Repeat("-", in.cfg.DrawLineWidth) + "\n")
	return Control{}, nil
}

//
// Blocking commands
//

func (in *Interpreter) wait(ctx context.Context, ec *ExecutionContext) error {

	ec.Emit(MarkWait)
	if in.console == nil {
		return nil
	}
	return in.consoleCall(func() error { return in.console.Wait(ctx) })
}

// consoleCall runs a console operation in the input wait state.
func (in *Interpreter) consoleCall(fn func() error) error {

	prev := in.proc.State()
	in.proc.SetState(StateInputWait)
	defer in.proc.SetState(prev)

	err := fn()
	if err != nil && !errors.Is(err, ErrTimeout) {
		return &Error{Kind: ErrInterrupted, Msg: "console", Err: err}
	}
	return err
}

func executeWait(ctx context.Context, in *Interpreter, ec *ExecutionContext, args []Expr) (Control, error) {

	if len(args) != 0 {
		return Control{}, invalidOperation("WAIT takes no arguments")
	}
	return Control{}, in.wait(ctx, ec)
}

//
// INPUT [default], INPUTS [default], TINPUT ms, default and TINPUTS
// ms, default. The answer lands in RESULT or RESULTS. Unparsable
// numeric input is asked for again
//

func executeInput(str, timed bool) CommandFunc {

	return func(ctx context.Context, in *Interpreter, ec *ExecutionContext, args []Expr) (Control, error) {

		var timeout time.Duration
		var def Value

		name := "INPUT"
		if str {
			name = "INPUTS"
		}
		if timed {
			name = "T" + name
		}

		if timed {
			if len(args) != 2 {
				return Control{}, invalidOperation("%s takes a timeout and a default", name)
			}
			ms, err := in.evalInt(ctx, ec, args[0], name+" timeout")
			if err != nil {
				return Control{}, err
			}
			timeout = time.Duration(ms) * time.Millisecond
			args = args[1:]
		}
		if len(args) > 1 {
			return Control{}, invalidOperation("%s takes at most one default", name)
		}

		hasDefault := len(args) == 1
		if hasDefault {
			v, err := in.Evaluate(ctx, ec, args[0])
			if err != nil {
				return Control{}, err
			}
			if (v.Kind() == KindString) != str {
				return Control{}, typeMismatch("%s default is %s", name, v.Kind())
			}
			def = v
		} else if str {
			def = Str("")
		} else {
			def = Int(0)
		}

		ec.Emit(MarkInput)

		if in.console == nil {
			in.setResult(ec, def)
			return Control{}, nil
		}

		for {
			var line string
			err := in.consoleCall(func() (err error) {
				line, err = in.console.ReadLine(ctx, timeout)
				return err
			})
			if errors.Is(err, ErrTimeout) {
				in.setResult(ec, def)
				return Control{}, nil
			}
			if err != nil {
				return Control{}, err
			}

			line = strings.TrimSpace(line)
			if line == "" && hasDefault {
				in.setResult(ec, def)
				return Control{}, nil
			}
			if str {
				in.setResult(ec, Str(line))
				return Control{}, nil
			}
			if n, err := strconv.ParseInt(line, 10, 64); err == nil {
				in.setResult(ec, Int(n))
				return Control{}, nil
			}
			scriptLog.Debugf("%s: ignoring %q", name, line)
		}
	}
}

//
// Flow commands
//

func executeQuit(ctx context.Context, in *Interpreter, ec *ExecutionContext, args []Expr) (Control, error) {

	if len(args) != 0 {
		return Control{}, invalidOperation("QUIT takes no arguments")
	}
	return Control{Kind: CtlQuit}, nil
}

func executeBegin(ctx context.Context, in *Interpreter, ec *ExecutionContext, args []Expr) (Control, error) {

	if len(args) != 1 {
		return Control{}, invalidOperation("BEGIN takes a phase name")
	}
	name, err := in.evalString(ctx, ec, args[0], "BEGIN phase")
	if err != nil {
		return Control{}, err
	}
	t, ok := ParseBeginType(name)
	if !ok {
		return Control{}, invalidOperation("unknown phase %s", name)
	}
	if err := in.proc.SetBegin(t); err != nil {
		return Control{}, runtimeWrap(err, "BEGIN %s", t)
	}
	return Control{Kind: CtlBegin}, nil
}

func executeRandomize(ctx context.Context, in *Interpreter, ec *ExecutionContext, args []Expr) (Control, error) {

	if len(args) != 1 {
		return Control{}, invalidOperation("RANDOMIZE takes a seed")
	}
	seed, err := in.evalInt(ctx, ec, args[0], "RANDOMIZE seed")
	if err != nil {
		return Control{}, err
	}
	if s, ok := in.funcs.(interface{ Seed(int64) }); ok {
		s.Seed(seed)
	} else {
		in.builtins.Seed(seed)
	}
	return Control{}, nil
}

//
// ASSERT cond[, message] and THROW text both fail the run with a
// RuntimeError
//

func executeAssert(ctx context.Context, in *Interpreter, ec *ExecutionContext, args []Expr) (Control, error) {

	if len(args) < 1 || len(args) > 2 {
		return Control{}, invalidOperation("ASSERT takes a condition and an optional message")
	}
	v, err := in.Evaluate(ctx, ec, args[0])
	if err != nil {
		return Control{}, err
	}
	if v.Truthy() {
		return Control{}, nil
	}
	if len(args) == 2 {
		msg, err := in.Evaluate(ctx, ec, args[1])
		if err != nil {
			return Control{}, err
		}
		return Control{}, runtimeErrorf("%s: %s", EASSERTION, msg)
	}
	return Control{}, runtimeErrorf("%s", EASSERTION)
}

func executeThrow(ctx context.Context, in *Interpreter, ec *ExecutionContext, args []Expr) (Control, error) {

	msg, err := in.formArg(ctx, ec, args)
	if err != nil {
		return Control{}, err
	}
	return Control{}, runtimeErrorf("%s", msg)
}

// DEBUGPRINT goes to the script log, never to the output.
func executeDebugPrint(ctx context.Context, in *Interpreter, ec *ExecutionContext, args []Expr) (Control, error) {

	text, err := in.joinArgs(ctx, ec, args)
	if err != nil {
		return Control{}, err
	}
	scriptLog.Infof("%s", text)
	return Control{}, nil
}

//
// Persistence
//

func executeSaveGlobal(ctx context.Context, in *Interpreter, ec *ExecutionContext, args []Expr) (Control, error) {

	if len(args) != 0 {
		return Control{}, invalidOperation("SAVEGLOBAL takes no arguments")
	}
	err := in.SaveGlobal(ec)
	if err != nil {
		log.Warningf("SAVEGLOBAL failed: %s", err)
	}
	ec.Set(varResult, Bool(err == nil))
	return Control{}, nil
}

func executeLoadGlobal(ctx context.Context, in *Interpreter, ec *ExecutionContext, args []Expr) (Control, error) {

	if len(args) != 0 {
		return Control{}, invalidOperation("LOADGLOBAL takes no arguments")
	}
	err := in.LoadGlobal(ec)
	if err != nil {
		log.Warningf("LOADGLOBAL failed: %s", err)
	}
	ec.Set(varResult, Bool(err == nil))
	return Control{}, nil
}

//
// Variable commands
//

// filler is implemented by stores that can set a whole variable.
type filler interface {
	Fill(name string, v Value) error
}

//
// VARSET NAME[, value] sets every element of a store variable, or a
// context variable, to value (0 or "" when omitted)
//

func executeVarset(ctx context.Context, in *Interpreter, ec *ExecutionContext, args []Expr) (Control, error) {

	if len(args) < 1 || len(args) > 2 {
		return Control{}, invalidOperation("VARSET takes a variable and an optional value")
	}
	ref, ok := args[0].(*VarRef)
	if !ok {
		return Control{}, invalidOperation("VARSET needs a variable name")
	}

	var v Value
	if len(args) == 2 {
		var err error
		if v, err = in.Evaluate(ctx, ec, args[1]); err != nil {
			return Control{}, err
		}
	}

	if f, ok := in.store.(filler); ok {
		err := f.Fill(ref.Name, v)
		if !errors.Is(err, ErrVariableNotFound) {
			return Control{}, err
		}
	}

	if v.IsNull() {
		v = Int(0)
		if cur, ok := ec.Get(ref.Name); ok && cur.Kind() == KindString {
			v = Str("")
		}
	}
	ec.Set(ref.Name, v)
	return Control{}, nil
}

func executeSwap(ctx context.Context, in *Interpreter, ec *ExecutionContext, args []Expr) (Control, error) {

	if len(args) != 2 {
		return Control{}, invalidOperation("SWAP takes two variables")
	}

	a, err := in.Evaluate(ctx, ec, args[0])
	if err != nil {
		return Control{}, err
	}
	b, err := in.Evaluate(ctx, ec, args[1])
	if err != nil {
		return Control{}, err
	}
	if a.Kind() != b.Kind() {
		return Control{}, typeMismatch("SWAP of %s and %s", a.Kind(), b.Kind())
	}

	if err := in.assign(ctx, ec, args[0], b); err != nil {
		return Control{}, err
	}
	return Control{}, in.assign(ctx, ec, args[1], a)
}

// assign stores v into target as if by target = v.
func (in *Interpreter) assign(ctx context.Context, ec *ExecutionContext, target Expr, v Value) error {

	var lit Expr

	switch v.Kind() {
	case KindInt:
		lit = &IntLit{Value: v.Int64()}
	case KindString:
		lit = &StrLit{Value: v.Text()}
	default:
		return typeMismatch("cannot assign %s", v.Kind())
	}
	_, err := in.evalAssign(ctx, ec, &BinaryExpr{Op: OpAssign, Left: target, Right: lit})
	return err
}
