package emuera

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

//
// runBody runs stmts as the top level sequence of fn (nil for a bare
// script). Labels and the local CALL/RETURN stack belong to the body
// and are restored when it finishes
//

func (in *Interpreter) runBody(ctx context.Context, ec *ExecutionContext, fn *FunctionDef, stmts []Stmt) (Control, error) {

	var labels map[string]int

	if fn != nil {
		labels = fn.labelTable()
	} else {
		labels = collectLabels(stmts)
	}

	saved := ec.enter(fn, labels)
	defer ec.leave(saved)

	return in.runSequence(ctx, ec, stmts)
}

//
// runSequence is the program counter loop. GOTO results coming up from
// nested blocks, local CALLs and local RETURNs are consumed here; any
// other non-normal result ends the sequence
//

func (in *Interpreter) runSequence(ctx context.Context, ec *ExecutionContext, stmts []Stmt) (Control, error) {

	for pc := 0; pc < len(stmts); pc++ {
		stmt := stmts[pc]
		ec.pc = pc

		if call, ok := stmt.(*CallStmt); ok {
			if target, local := ec.labels[labelKey(call.Target)]; local {
				ret := pc
				if call.ReturnTo != "" {
					r, ok := ec.labels[labelKey(call.ReturnTo)]
					if !ok {
						return Control{}, annotate(newError(ErrLabelNotFound, "return label %s", call.ReturnTo), ec.Function(), stmt.Position())
					}
					ret = r
				}
				if len(ec.returns) >= in.proc.maxDepth {
					return Control{}, annotate(newError(ErrStackOverflow, "CALL %s", call.Target), ec.Function(), stmt.Position())
				}
				in.proc.CountLine()
				ec.returns = append(ec.returns, ret)
				pc = target
				continue
			}
		}

		ctl, err := in.executeStmt(ctx, ec, stmt)
		if err != nil {
			return ctl, err
		}

		switch ctl.Kind {
		case CtlNormal:

		case CtlGoto:
			target, ok := ec.labels[labelKey(ctl.Label)]
			if !ok {
				return Control{}, annotate(newError(ErrLabelNotFound, "GOTO %s", ctl.Label), ec.Function(), stmt.Position())
			}
			pc = target

		case CtlReturn:
			n := len(ec.returns)
			if n == 0 {
				return ctl, nil
			}
			pc = ec.returns[n-1]
			ec.returns = ec.returns[:n-1]

		case CtlBreak, CtlContinue:
			return Control{}, annotate(runtimeErrorf("%s outside of a loop", ctl.Kind), ec.Function(), stmt.Position())

		default:
			return ctl, nil
		}
	}
	return Control{}, nil
}

//
// runBlock runs a nested statement list. Nothing is consumed here: the
// first non-normal result goes straight back to the enclosing statement
//

func (in *Interpreter) runBlock(ctx context.Context, ec *ExecutionContext, stmts []Stmt) (Control, error) {

	for _, stmt := range stmts {
		ctl, err := in.executeStmt(ctx, ec, stmt)
		if err != nil || ctl.Kind != CtlNormal {
			return ctl, err
		}
	}
	return Control{}, nil
}

//
// executeStmt executes one statement of any kind. Errors leave here
// stamped with the statement position; QUIT and BEGIN raised inside an
// expression come back as their control result
//

func (in *Interpreter) executeStmt(ctx context.Context, ec *ExecutionContext, stmt Stmt) (Control, error) {

	if err := ctx.Err(); err != nil {
		return Control{}, annotate(&Error{Kind: ErrInterrupted, Err: err}, ec.Function(), stmt.Position())
	}

	in.proc.CountLine()
	in.proc.SetPosition(ReturnAddress{Func: ec.fn, Index: ec.pc})
	in.traceExec(ec, stmt)

	ctl, err := in.executeStmtInternal(ctx, ec, stmt)
	if err != nil {
		var stop *stopRequest
		if errors.As(err, &stop) {
			return stop.ctl, nil
		}
		return Control{}, annotate(err, ec.Function(), stmt.Position())
	}
	return ctl, nil
}

func (in *Interpreter) executeStmtInternal(ctx context.Context, ec *ExecutionContext, stmt Stmt) (Control, error) {

	switch s := stmt.(type) {
	case *ExprStmt:
		_, err := in.Evaluate(ctx, ec, s.X)
		return Control{}, err

	case *Block:
		return in.runBlock(ctx, ec, s.Body)

	case *IfStmt:
		return in.executeIf(ctx, ec, s)

	case *WhileStmt:
		return in.executeWhile(ctx, ec, s)

	case *DoLoopStmt:
		return in.executeDoLoop(ctx, ec, s)

	case *RepeatStmt:
		return in.executeRepeat(ctx, ec, s)

	case *ForStmt:
		return in.executeFor(ctx, ec, s)

	case *SelectCaseStmt:
		return in.executeSelectCase(ctx, ec, s)

	case *GotoStmt:
		return Control{Kind: CtlGoto, Label: s.Label}, nil

	case *CallStmt:
		return in.executeCall(ctx, ec, s)

	case *JumpStmt:
		return in.executeJump(ctx, ec, s)

	case *CallEventStmt:
		return in.executeCallEvent(ctx, ec, s)

	case *ReturnStmt:
		return in.executeReturn(ctx, ec, s)

	case *BreakStmt:
		return Control{Kind: CtlBreak}, nil

	case *ContinueStmt:
		return Control{Kind: CtlContinue}, nil

	case *LabelStmt:
		// nothing to do

	case *CommandStmt:
		return in.executeCommand(ctx, ec, s)

	case *ResetStmt:
		in.resetVariables(ec)

	case *PersistStmt:
		if s.Explicit {
			ec.persist = s.On
		} else {
			ec.persist = !ec.persist
		}

	default:
		interpAssert(false, fmt.Sprintf("unknown statement %T", stmt))
	}

	return Control{}, nil
}

func (in *Interpreter) executeReturn(ctx context.Context, ec *ExecutionContext, s *ReturnStmt) (Control, error) {

	if s.Value == nil {
		return Control{Kind: CtlReturn}, nil
	}

	v, err := in.Evaluate(ctx, ec, s.Value)
	if err != nil {
		return Control{}, err
	}
	in.setResult(ec, v)
	return Control{Kind: CtlReturn, Value: v}, nil
}

// setResult stores v in RESULT or RESULTS by kind.
func (in *Interpreter) setResult(ec *ExecutionContext, v Value) {

	if v.Kind() == KindString {
		ec.Set(varResults, v)
	} else {
		ec.Set(varResult, v)
	}
}

//
// Cross-function transfers. Local labels were already tried by the
// sequence loop, so a CALL reaching here goes to the label registry
//

func (in *Interpreter) executeCall(ctx context.Context, ec *ExecutionContext, s *CallStmt) (Control, error) {

	args, err := in.evalArgs(ctx, ec, s.Args)
	if err != nil {
		return Control{}, err
	}

	if found, _ := in.labels.Lookup(s.Target); !found {
		if s.Try {
			return Control{}, nil
		}
		if _, local := ec.labels[labelKey(s.Target)]; local {
			return Control{}, runtimeErrorf("CALL to local label %s must be at the top level", s.Target)
		}
	}

	base := in.proc.Depth()
	ret := &ReturnAddress{Func: ec.fn, Index: ec.pc}

	if err := in.proc.CallFunction(s.Target, ret, args); err != nil {
		return Control{}, runtimeWrap(err, "CALL %s", s.Target)
	}

	ctl, err := in.dispatch(ctx, ec, base)
	if err != nil || ctl.Kind != CtlNormal {
		return ctl, err
	}
	if s.ReturnTo != "" {
		return Control{Kind: CtlGoto, Label: s.ReturnTo}, nil
	}
	return Control{}, nil
}

func (in *Interpreter) executeCallEvent(ctx context.Context, ec *ExecutionContext, s *CallEventStmt) (Control, error) {

	base := in.proc.Depth()
	ret := &ReturnAddress{Func: ec.fn, Index: ec.pc}

	if err := in.proc.CallEventFunction(s.Target, ret); err != nil {
		return Control{}, runtimeWrap(err, "CALLEVENT %s", s.Target)
	}

	ctl, err := in.dispatch(ctx, ec, base)
	if err != nil || ctl.Kind != CtlNormal {
		return ctl, err
	}
	return Control{}, nil
}

//
// JUMP never comes back to the statement after it: when the target
// returns, the jumping function returns too
//

func (in *Interpreter) executeJump(ctx context.Context, ec *ExecutionContext, s *JumpStmt) (Control, error) {

	args, err := in.evalArgs(ctx, ec, s.Args)
	if err != nil {
		return Control{}, err
	}

	base := in.proc.Depth()

	if err := in.proc.JumpTo(s.Target, args); err != nil {
		return Control{}, runtimeWrap(err, "JUMP %s", s.Target)
	}

	ctl, err := in.dispatch(ctx, ec, base)
	if err != nil {
		return ctl, err
	}
	if ctl.Kind == CtlNormal {
		return Control{Kind: CtlUnwound}, nil
	}
	return ctl, nil
}

//
// dispatch drives the frames above base. It runs the top frame's
// current implementation and hands the result to Process.Return until
// the stack is back at base, or a transfer leaves this level entirely
//

func (in *Interpreter) dispatch(ctx context.Context, ec *ExecutionContext, base int) (Control, error) {

	for in.proc.Depth() > base {
		fr, _ := in.proc.Top()

		if in.cfg.Trace.Stack {
			in.traceStack()
		}

		var ctl Control
		if fr.Current != nil {
			c, err := in.runFrame(ctx, ec, fr)
			if err != nil {
				in.proc.unwindTo(base)
				return Control{}, err
			}
			ctl = c
		}

		var tr Transfer
		switch ctl.Kind {
		case CtlQuit, CtlEnd, CtlBegin:
			return ctl, nil
		case CtlUnwound:
			tr = ctl.transfer
		default:
			tr = in.proc.Return(ctl.Value)
		}

		switch tr.Kind {
		case TransferBegin:
			return Control{Kind: CtlBegin, transfer: tr}, nil
		case TransferEnd, TransferNone:
			return Control{Kind: CtlEnd, Value: tr.Value, transfer: tr}, nil
		case TransferReturn:
			if in.proc.Depth() == base {
				return Control{Value: tr.Value}, nil
			}
			if in.proc.Depth() < base {
				return Control{Kind: CtlUnwound, transfer: tr}, nil
			}
		case TransferResume:
			if in.proc.Depth() <= base {
				return Control{Kind: CtlUnwound, transfer: tr}, nil
			}
		}
	}
	return Control{}, nil
}

// runFrame runs the frame's current implementation body.
func (in *Interpreter) runFrame(ctx context.Context, ec *ExecutionContext, fr CalledFunction) (Control, error) {

	def := fr.Current

	if err := in.bindArgs(def, fr.Args); err != nil {
		return Control{}, err
	}
	return in.runBody(ctx, ec, def, def.Body)
}

// bindArgs copies call arguments into ARG:i and ARGS:i of def.
func (in *Interpreter) bindArgs(def *FunctionDef, args []Value) error {

	var ni, ns int64

	for _, a := range args {
		switch a.Kind() {
		case KindString:
			if err := in.store.SetStr(ScopeArgS.key(labelKey(def.Name)), a.Text(), ns); err != nil {
				return err
			}
			ns++
		case KindInt:
			if err := in.store.SetInt(ScopeArg.key(labelKey(def.Name)), a.Int64(), ni); err != nil {
				return err
			}
			ni++
		default:
			return typeMismatch("@%s argument of kind %s", def.Name, a.Kind())
		}
	}
	return nil
}
