package emuera

//
// Expression grammar, lowest binding first:
//
//	assignment (right associative)
//	||  &&  |  ^^  &
//	== !=   < <= > >=   << >>   + -   * / %
//	unary - ! ~
//	^ (right associative)
//	primary: literal, (expr), NAME, NAME(args), NAME:i:j:k, LOCAL@FN:i
//

type binaryOp struct {
	tok string
	op  Operator
}

var binaryLevels = [][]binaryOp{
	{{"||", OpOr}},
	{{"&&", OpAnd}},
	{{"|", OpBitOr}},
	{{"^^", OpBitXor}},
	{{"&", OpBitAnd}},
	{{"==", OpEq}, {"!=", OpNe}},
	{{"<", OpLt}, {"<=", OpLe}, {">", OpGt}, {">=", OpGe}},
	{{"<<", OpShl}, {">>", OpShr}},
	{{"+", OpAdd}, {"-", OpSub}},
	{{"*", OpMul}, {"/", OpDiv}, {"%", OpMod}},
}

var assignOps = map[string]Operator{
	"=":  OpAssign,
	"+=": OpAddAssign,
	"-=": OpSubAssign,
	"*=": OpMulAssign,
	"/=": OpDivAssign,
}

var unaryOps = map[string]Operator{
	"-": OpNeg,
	"!": OpNot,
	"~": OpBitNot,
}

func (lx *Lexer) parseExpr() (Expr, error) {

	left, err := lx.parseOr()
	if err != nil {
		return nil, err
	}

	t := lx.peek()
	op, ok := assignOps[t.text]
	if t.kind != tokOp || !ok {
		return left, nil
	}

	switch left.(type) {
	case *VarRef, *IndexExpr, *ScopedVar:
	default:
		return nil, lx.errorf("cannot assign to this expression")
	}

	lx.next()
	right, err := lx.parseExpr()
	if err != nil {
		return nil, err
	}
	return &BinaryExpr{Op: op, Left: left, Right: right}, nil
}

func (lx *Lexer) parseOr() (Expr, error) {
	return lx.parseBinary(0)
}

func (lx *Lexer) parseBinary(level int) (Expr, error) {

	if level == len(binaryLevels) {
		return lx.parseUnary()
	}

	left, err := lx.parseBinary(level + 1)
	if err != nil {
		return nil, err
	}

	for {
		t := lx.peek()
		if t.kind != tokOp {
			return left, nil
		}

		found := false
		for _, b := range binaryLevels[level] {
			if b.tok != t.text {
				continue
			}
			lx.next()
			right, err := lx.parseBinary(level + 1)
			if err != nil {
				return nil, err
			}
			left = &BinaryExpr{Op: b.op, Left: left, Right: right}
			found = true
			break
		}
		if !found {
			return left, nil
		}
	}
}

func (lx *Lexer) parseUnary() (Expr, error) {

	t := lx.peek()
	if t.kind == tokOp {
		if t.text == "+" {
			lx.next()
			return lx.parseUnary()
		}
		if op, ok := unaryOps[t.text]; ok {
			lx.next()
			x, err := lx.parseUnary()
			if err != nil {
				return nil, err
			}
			return &UnaryExpr{Op: op, Operand: x}, nil
		}
	}
	return lx.parsePower()
}

func (lx *Lexer) parsePower() (Expr, error) {

	base, err := lx.parsePrimary()
	if err != nil {
		return nil, err
	}
	if !lx.isOp("^") {
		return base, nil
	}
	lx.next()
	exp, err := lx.parseUnary()
	if err != nil {
		return nil, err
	}
	return &BinaryExpr{Op: OpPow, Left: base, Right: exp}, nil
}

func (lx *Lexer) parsePrimary() (Expr, error) {

	t := lx.next()

	switch t.kind {
	case tokInt:
		return &IntLit{Value: t.ival}, nil

	case tokStr:
		return &StrLit{Value: t.text}, nil

	case tokLParen:
		e, err := lx.parseExpr()
		if err != nil {
			return nil, err
		}
		if !lx.accept(tokRParen) {
			return nil, lx.errorf("missing )")
		}
		return e, nil

	case tokIdent:
		return lx.parseName(t, true)

	case tokEOF:
		return nil, lx.errorf("missing operand")
	}
	return nil, lx.errorf("unexpected %q", t.text)
}

//
// parseName finishes a primary that starts with an identifier. Inside
// an index term indexed is false, so A:B:C reads as A indexed by B, C
//

func (lx *Lexer) parseName(t token, indexed bool) (Expr, error) {

	if lx.accept(tokLParen) {
		args, err := lx.parseArgs()
		if err != nil {
			return nil, err
		}
		return &CallExpr{Name: t.text, Args: args}, nil
	}

	if scope, ok := lookupScope(t.text); ok {
		sv := &ScopedVar{Scope: scope, Name: t.text}
		if lx.accept(tokAt) {
			fn := lx.next()
			if fn.kind != tokIdent {
				return nil, lx.errorf("missing function name after %s@", t.text)
			}
			sv.Function = fn.text
		}
		if indexed {
			idx, err := lx.parseIndices()
			if err != nil {
				return nil, err
			}
			sv.Index = idx
		}
		return sv, nil
	}

	if lx.peek().kind == tokAt {
		return nil, lx.errorf("%s has no @ scope", t.text)
	}

	if indexed && lx.peek().kind == tokColon {
		idx, err := lx.parseIndices()
		if err != nil {
			return nil, err
		}
		return &IndexExpr{Name: t.text, Index: idx}, nil
	}
	return &VarRef{Name: t.text}, nil
}

func (lx *Lexer) parseIndices() ([]Expr, error) {

	var idx []Expr

	for lx.accept(tokColon) {
		if len(idx) == maxIndices {
			return nil, lx.errorf("more than %d indices", maxIndices)
		}
		e, err := lx.parseIndexTerm()
		if err != nil {
			return nil, err
		}
		idx = append(idx, e)
	}
	return idx, nil
}

func (lx *Lexer) parseIndexTerm() (Expr, error) {

	t := lx.next()

	switch t.kind {
	case tokInt:
		return &IntLit{Value: t.ival}, nil

	case tokIdent:
		return lx.parseName(t, false)

	case tokLParen:
		e, err := lx.parseExpr()
		if err != nil {
			return nil, err
		}
		if !lx.accept(tokRParen) {
			return nil, lx.errorf("missing )")
		}
		return e, nil

	case tokOp:
		if t.text == "-" {
			x, err := lx.parseIndexTerm()
			if err != nil {
				return nil, err
			}
			return &UnaryExpr{Op: OpNeg, Operand: x}, nil
		}
	}
	return nil, lx.errorf("bad index")
}

// parseArgs reads a call argument list after its opening parenthesis.
func (lx *Lexer) parseArgs() ([]Expr, error) {

	var args []Expr

	if lx.accept(tokRParen) {
		return nil, nil
	}
	for {
		e, err := lx.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, e)
		if lx.accept(tokRParen) {
			return args, nil
		}
		if !lx.accept(tokComma) {
			return nil, lx.errorf("expected , or )")
		}
	}
}
