package emuera

import (
	"context"
)

func (in *Interpreter) executeIf(ctx context.Context, ec *ExecutionContext, s *IfStmt) (Control, error) {

	cond, err := in.Evaluate(ctx, ec, s.Cond)
	if err != nil {
		return Control{}, err
	}
	if cond.Truthy() {
		return in.runBlock(ctx, ec, s.Then)
	}
	return in.runBlock(ctx, ec, s.Else)
}

//
// loopResult folds a body result into the loop's decision: done is
// set when the loop must stop, with out the result to pass upward
//

func loopResult(ctl Control) (done bool, out Control) {

	switch ctl.Kind {
	case CtlNormal, CtlContinue:
		return false, Control{}
	case CtlBreak:
		return true, Control{}
	}
	return true, ctl
}

func (in *Interpreter) executeWhile(ctx context.Context, ec *ExecutionContext, s *WhileStmt) (Control, error) {

	for {
		cond, err := in.Evaluate(ctx, ec, s.Cond)
		if err != nil {
			return Control{}, err
		}
		if !cond.Truthy() {
			return Control{}, nil
		}
		ctl, err := in.runBlock(ctx, ec, s.Body)
		if err != nil {
			return Control{}, err
		}
		if done, out := loopResult(ctl); done {
			return out, nil
		}
	}
}

// executeDoLoop runs the body once before testing the condition.
func (in *Interpreter) executeDoLoop(ctx context.Context, ec *ExecutionContext, s *DoLoopStmt) (Control, error) {

	for {
		ctl, err := in.runBlock(ctx, ec, s.Body)
		if err != nil {
			return Control{}, err
		}
		if done, out := loopResult(ctl); done {
			return out, nil
		}
		cond, err := in.Evaluate(ctx, ec, s.Cond)
		if err != nil {
			return Control{}, err
		}
		if !cond.Truthy() {
			return Control{}, nil
		}
	}
}

func (in *Interpreter) executeRepeat(ctx context.Context, ec *ExecutionContext, s *RepeatStmt) (Control, error) {

	n, err := in.evalInt(ctx, ec, s.Count, "REPEAT count")
	if err != nil {
		return Control{}, err
	}

	for i := int64(0); i < n; i++ {
		ec.Set(varCount, Int(i))
		ctl, err := in.runBlock(ctx, ec, s.Body)
		if err != nil {
			return Control{}, err
		}
		if done, out := loopResult(ctl); done {
			return out, nil
		}
	}
	return Control{}, nil
}

//
// executeFor evaluates start, end and step once. A positive or zero
// step runs while the variable is <= end, a negative one while >= end.
// The variable is re-read each pass, so the body may move it
//

func (in *Interpreter) executeFor(ctx context.Context, ec *ExecutionContext, s *ForStmt) (Control, error) {

	start, err := in.evalInt(ctx, ec, s.Start, "FOR start")
	if err != nil {
		return Control{}, err
	}
	end, err := in.evalInt(ctx, ec, s.End, "FOR end")
	if err != nil {
		return Control{}, err
	}
	step := int64(1)
	if s.Step != nil {
		if step, err = in.evalInt(ctx, ec, s.Step, "FOR step"); err != nil {
			return Control{}, err
		}
	}

	ec.Set(s.Var, Int(start))

	for {
		cur := in.readVar(ec, s.Var)
		if cur.Kind() != KindInt {
			return Control{}, typeMismatch("FOR variable %s holds %s", s.Var, cur.Kind())
		}
		if (step >= 0 && cur.Int64() > end) || (step < 0 && cur.Int64() < end) {
			return Control{}, nil
		}

		ctl, err := in.runBlock(ctx, ec, s.Body)
		if err != nil {
			return Control{}, err
		}
		if done, out := loopResult(ctl); done {
			return out, nil
		}

		cur = in.readVar(ec, s.Var)
		ec.Set(s.Var, Int(cur.Int64()+step))
	}
}

//
// executeSelectCase runs the first clause with a matching candidate.
// Candidates of another kind than the subject never match
//

func (in *Interpreter) executeSelectCase(ctx context.Context, ec *ExecutionContext, s *SelectCaseStmt) (Control, error) {

	subject, err := in.Evaluate(ctx, ec, s.Subject)
	if err != nil {
		return Control{}, err
	}

	for _, clause := range s.Cases {
		for _, cond := range clause.Conds {
			ok, err := in.caseMatches(ctx, ec, subject, cond)
			if err != nil {
				return Control{}, err
			}
			if ok {
				return in.runBlock(ctx, ec, clause.Body)
			}
		}
	}
	if s.HasDefault {
		return in.runBlock(ctx, ec, s.Default)
	}
	return Control{}, nil
}

func (in *Interpreter) caseMatches(ctx context.Context, ec *ExecutionContext, subject Value, cond CaseCond) (bool, error) {

	v, err := in.Evaluate(ctx, ec, cond.X)
	if err != nil {
		return false, err
	}
	if v.Kind() != subject.Kind() {
		return false, nil
	}

	switch cond.kind {
	case caseRange:
		to, err := in.Evaluate(ctx, ec, cond.To)
		if err != nil {
			return false, err
		}
		if to.Kind() != subject.Kind() {
			return false, nil
		}
		lo, err := Compare(subject, v)
		if err != nil {
			return false, nil
		}
		hi, err := Compare(subject, to)
		if err != nil {
			return false, nil
		}
		return lo >= 0 && hi <= 0, nil

	case caseIs:
		r, err := applyBinary(cond.Op, subject, v)
		if err != nil {
			return false, nil
		}
		return r.Truthy(), nil
	}

	eq, err := Equal(subject, v)
	if err != nil {
		return false, nil
	}
	return eq, nil
}

func (in *Interpreter) evalInt(ctx context.Context, ec *ExecutionContext, e Expr, what string) (int64, error) {

	v, err := in.Evaluate(ctx, ec, e)
	if err != nil {
		return 0, err
	}
	if v.Kind() != KindInt {
		return 0, typeMismatch("%s is %s", what, v.Kind())
	}
	return v.Int64(), nil
}

func (in *Interpreter) evalString(ctx context.Context, ec *ExecutionContext, e Expr, what string) (string, error) {

	v, err := in.Evaluate(ctx, ec, e)
	if err != nil {
		return "", err
	}
	if v.Kind() != KindString {
		return "", typeMismatch("%s is %s", what, v.Kind())
	}
	return v.Text(), nil
}
