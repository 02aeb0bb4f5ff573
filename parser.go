package emuera

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pkg/errors"
)

//
// The parser is line oriented: one statement per line, blocks closed by
// their terminator keyword. Expressions go through a recursive descent
// parser over the Lexer tokens
//

type srcLine struct {
	no   int
	text string
}

type parser struct {
	file   string
	lines  []srcLine
	pos    int
	script bool
}

// Commands whose argument is raw text rather than an expression list.
var rawCommands = map[string]bool{
	"PRINTFORM":  true,
	"PRINTFORML": true,
	"PRINTFORMW": true,
	"BEGIN":      true,
	"THROW":      true,
}

var attrNames = map[string]FuncAttr{
	"PRI":       AttrPri,
	"LATER":     AttrLater,
	"SINGLE":    AttrSingle,
	"ONLY":      AttrOnly,
	"FUNCTION":  AttrFunction,
	"FUNCTIONS": AttrFunctionS,
}

func newParser(file, src string, script bool) *parser {

	p := &parser{file: file, script: script}

	src = strings.TrimPrefix(src, "\ufeff")
	for i, l := range strings.Split(src, "\n") {
		l = strings.TrimSpace(stripComment(l))
		if l != "" {
			p.lines = append(p.lines, srcLine{no: i + 1, text: l})
		}
	}
	return p
}

//
// ParseScript parses a flat statement sequence. @NAME and $NAME lines
// both become labels
//

func ParseScript(file, src string) ([]Stmt, error) {

	p := newParser(file, src, true)

	stmts, term, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	if term != "" {
		return nil, p.errorAt(p.lines[p.pos-1], "%s without an opening statement", term)
	}
	return stmts, nil
}

//
// ParseProgram parses a script file into function definitions. Each
// @NAME opens a function; # lines directly under it set attributes
//

func ParseProgram(file, src string) ([]*FunctionDef, error) {

	var defs []*FunctionDef

	p := newParser(file, src, false)

	for p.pos < len(p.lines) {
		l := p.lines[p.pos]
		if l.text[0] != '@' {
			return nil, p.errorAt(l, "statement outside of a function")
		}
		p.pos++

		name, _ := splitWord(l.text[1:])
		if name == "" {
			return nil, p.errorAt(l, "missing function name")
		}
		def := &FunctionDef{Name: strings.ToUpper(name), Pos: Pos{File: p.file, Line: l.no}}

		for p.pos < len(p.lines) && p.lines[p.pos].text[0] == '#' {
			attr, _ := splitWord(p.lines[p.pos].text[1:])
			if a, ok := attrNames[strings.ToUpper(attr)]; ok {
				def.Attrs |= a
			} else {
				log.Debugf("%s:%d: ignoring attribute #%s", p.file, p.lines[p.pos].no, attr)
			}
			p.pos++
		}

		body, term, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		if term != "" {
			return nil, p.errorAt(p.lines[p.pos-1], "%s without an opening statement", term)
		}
		def.Body = body
		defs = append(defs, def)
	}
	return defs, nil
}

//
// ParseExpr parses a single expression
//

func ParseExpr(src string) (Expr, error) {

	lx, err := NewLexer(src)
	if err != nil {
		return nil, err
	}
	e, err := lx.parseExpr()
	if err != nil {
		return nil, err
	}
	if !lx.atEOF() {
		return nil, lx.errorf("unexpected %q", lx.peek().text)
	}
	return e, nil
}

// Block terminators. A terminator ends whichever block is open.
var terminators = map[string]bool{
	"ELSEIF": true, "ELSE": true, "ENDIF": true,
	"WEND": true, "LOOP": true, "REND": true,
	"NEXT": true, "ENDFOR": true,
	"CASE": true, "CASEELSE": true, "ENDSELECT": true,
}

//
// parseBlock reads statements until a terminator line, which it
// consumes and returns with the rest of that line. An empty term means
// the input ran out (or, for programs, the next @ line was reached)
//

func (p *parser) parseBlock() (stmts []Stmt, term string, err error) {

	for p.pos < len(p.lines) {
		l := p.lines[p.pos]
		if l.text[0] == '@' && !p.script {
			return stmts, "", nil
		}

		kw, _ := leadIdent(l.text)
		if terminators[kw] {
			p.pos++
			return stmts, kw, nil
		}

		s, err := p.parseStmt()
		if err != nil {
			return nil, "", err
		}
		if s != nil {
			stmts = append(stmts, s)
		}
	}
	return stmts, "", nil
}

// expectBlock parses a block that must close with one of want.
func (p *parser) expectBlock(open srcLine, what string, want ...string) ([]Stmt, string, string, error) {

	stmts, term, err := p.parseBlock()
	if err != nil {
		return nil, "", "", err
	}
	for _, w := range want {
		if term == w {
			_, rest := leadIdent(p.lines[p.pos-1].text)
			return stmts, term, rest, nil
		}
	}
	if term == "" {
		return nil, "", "", p.incomplete(open, "%s without %s", what, want[len(want)-1])
	}
	return nil, "", "", p.errorAt(p.lines[p.pos-1], "unexpected %s in %s", term, what)
}

func (p *parser) parseStmt() (Stmt, error) {

	l := p.lines[p.pos]
	p.pos++
	n := node{Pos: Pos{File: p.file, Line: l.no}}

	switch l.text[0] {
	case '@', '$':
		name, _ := splitWord(l.text[1:])
		if name == "" {
			return nil, p.errorAt(l, "missing label name")
		}
		return &LabelStmt{node: n, Name: strings.ToUpper(name)}, nil
	case '#':
		return nil, nil
	}

	kw, rest := leadIdent(l.text)

	if !isKeywordLine(l.text) {
		return p.parseExprStmt(l, n)
	}

	switch kw {
	case "IF":
		return p.parseIf(l, n, rest)

	case "SIF":
		cond, err := p.expr(l, rest)
		if err != nil {
			return nil, err
		}
		if p.pos >= len(p.lines) {
			return nil, p.incomplete(l, "SIF without a statement")
		}
		body, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		var then []Stmt
		if body != nil {
			then = []Stmt{body}
		}
		return &IfStmt{node: n, Cond: cond, Then: then}, nil

	case "WHILE":
		cond, err := p.expr(l, rest)
		if err != nil {
			return nil, err
		}
		body, _, _, err := p.expectBlock(l, kw, "WEND")
		if err != nil {
			return nil, err
		}
		return &WhileStmt{node: n, Cond: cond, Body: body}, nil

	case "DO":
		body, _, tail, err := p.expectBlock(l, kw, "LOOP")
		if err != nil {
			return nil, err
		}
		cond, err := p.expr(p.lines[p.pos-1], tail)
		if err != nil {
			return nil, err
		}
		return &DoLoopStmt{node: n, Body: body, Cond: cond}, nil

	case "REPEAT":
		count, err := p.expr(l, rest)
		if err != nil {
			return nil, err
		}
		body, _, _, err := p.expectBlock(l, kw, "REND")
		if err != nil {
			return nil, err
		}
		return &RepeatStmt{node: n, Count: count, Body: body}, nil

	case "FOR":
		return p.parseFor(l, n, rest)

	case "SELECTCASE":
		return p.parseSelect(l, n, rest)

	case "GOTO":
		label, err := p.label(l, rest)
		if err != nil {
			return nil, err
		}
		return &GotoStmt{node: n, Label: label}, nil

	case "CALL", "TRYCALL", "JUMP":
		target, args, err := p.callTarget(l, rest)
		if err != nil {
			return nil, err
		}
		if kw == "JUMP" {
			return &JumpStmt{node: n, Target: target, Args: args}, nil
		}
		return &CallStmt{node: n, Target: target, Args: args, Try: kw == "TRYCALL"}, nil

	case "CALLEVENT":
		label, err := p.label(l, rest)
		if err != nil {
			return nil, err
		}
		return &CallEventStmt{node: n, Target: label}, nil

	case "RETURN":
		if rest == "" {
			return &ReturnStmt{node: n}, nil
		}
		v, err := p.expr(l, rest)
		if err != nil {
			return nil, err
		}
		return &ReturnStmt{node: n, Value: v}, nil

	case "BREAK":
		return &BreakStmt{node: n}, nil

	case "CONTINUE":
		return &ContinueStmt{node: n}, nil

	case "RESET":
		return &ResetStmt{node: n}, nil

	case "PERSIST":
		switch strings.ToUpper(rest) {
		case "":
			return &PersistStmt{node: n}, nil
		case "ON", "1":
			return &PersistStmt{node: n, Explicit: true, On: true}, nil
		case "OFF", "0":
			return &PersistStmt{node: n, Explicit: true}, nil
		}
		return nil, p.errorAt(l, "PERSIST takes ON or OFF")
	}

	if rawCommands[kw] {
		var args []Expr
		if rest != "" {
			args = []Expr{&StrLit{Value: rest}}
		}
		return &CommandStmt{node: n, Name: kw, Args: args}, nil
	}

	args, err := p.exprList(l, rest)
	if err != nil {
		return nil, err
	}
	return &CommandStmt{node: n, Name: kw, Args: args}, nil
}

func (p *parser) parseExprStmt(l srcLine, n node) (Stmt, error) {

	x, err := p.expr(l, l.text)
	if err != nil {
		return nil, err
	}
	return &ExprStmt{node: n, X: x}, nil
}

func (p *parser) parseIf(l srcLine, n node, rest string) (Stmt, error) {

	cond, err := p.expr(l, rest)
	if err != nil {
		return nil, err
	}
	then, term, tail, err := p.expectBlock(l, "IF", "ELSEIF", "ELSE", "ENDIF")
	if err != nil {
		return nil, err
	}

	s := &IfStmt{node: n, Cond: cond, Then: then}

	switch term {
	case "ELSEIF":
		at := p.lines[p.pos-1]
		inner, err := p.parseIf(at, node{Pos: Pos{File: p.file, Line: at.no}}, tail)
		if err != nil {
			return nil, err
		}
		s.Else = []Stmt{inner}

	case "ELSE":
		els, _, _, err := p.expectBlock(l, "IF", "ENDIF")
		if err != nil {
			return nil, err
		}
		s.Else = els
	}
	return s, nil
}

func (p *parser) parseFor(l srcLine, n node, rest string) (Stmt, error) {

	lx, err := NewLexer(rest)
	if err != nil {
		return nil, p.wrap(l, err)
	}

	v := lx.next()
	if v.kind != tokIdent {
		return nil, p.errorAt(l, "FOR needs a counter variable")
	}

	var parts []Expr
	for lx.accept(tokComma) {
		e, err := lx.parseExpr()
		if err != nil {
			return nil, p.wrap(l, err)
		}
		parts = append(parts, e)
	}
	if !lx.atEOF() || len(parts) < 2 || len(parts) > 3 {
		return nil, p.errorAt(l, "FOR takes var, start, end[, step]")
	}

	body, _, _, err := p.expectBlock(l, "FOR", "NEXT", "ENDFOR")
	if err != nil {
		return nil, err
	}

	s := &ForStmt{node: n, Var: v.text, Start: parts[0], End: parts[1], Body: body}
	if len(parts) == 3 {
		s.Step = parts[2]
	}
	return s, nil
}

func (p *parser) parseSelect(l srcLine, n node, rest string) (Stmt, error) {

	subject, err := p.expr(l, rest)
	if err != nil {
		return nil, err
	}

	s := &SelectCaseStmt{node: n, Subject: subject}

	// Only blank space may sit between SELECTCASE and the first CASE.
	lead, term, tail, err := p.expectBlock(l, "SELECTCASE", "CASE", "CASEELSE", "ENDSELECT")
	if err != nil {
		return nil, err
	}
	if len(lead) > 0 {
		return nil, p.errorAt(l, "statement before the first CASE")
	}

	for term != "ENDSELECT" {
		at := p.lines[p.pos-1]

		if term == "CASEELSE" {
			if s.HasDefault {
				return nil, p.errorAt(at, "duplicate CASEELSE")
			}
			body, next, t, err := p.expectBlock(l, "SELECTCASE", "CASE", "CASEELSE", "ENDSELECT")
			if err != nil {
				return nil, err
			}
			s.Default, s.HasDefault = body, true
			term, tail = next, t
			continue
		}

		if s.HasDefault {
			return nil, p.errorAt(at, "CASE after CASEELSE")
		}
		conds, err := p.caseConds(at, tail)
		if err != nil {
			return nil, err
		}
		body, next, t, err := p.expectBlock(l, "SELECTCASE", "CASE", "CASEELSE", "ENDSELECT")
		if err != nil {
			return nil, err
		}
		s.Cases = append(s.Cases, CaseClause{Conds: conds, Body: body})
		term, tail = next, t
	}
	return s, nil
}

var caseOps = map[string]Operator{
	"==": OpEq, "=": OpEq, "!=": OpNe,
	"<": OpLt, "<=": OpLe, ">": OpGt, ">=": OpGe,
}

func (p *parser) caseConds(l srcLine, src string) ([]CaseCond, error) {

	var conds []CaseCond

	lx, err := NewLexer(src)
	if err != nil {
		return nil, p.wrap(l, err)
	}

	for {
		if t := lx.peek(); t.kind == tokIdent && t.text == "IS" {
			lx.next()
			opTok := lx.next()
			op, ok := caseOps[opTok.text]
			if opTok.kind != tokOp || !ok {
				return nil, p.errorAt(l, "CASE IS needs a comparison")
			}
			x, err := lx.parseOr()
			if err != nil {
				return nil, p.wrap(l, err)
			}
			conds = append(conds, CaseIs(op, x))
		} else {
			x, err := lx.parseOr()
			if err != nil {
				return nil, p.wrap(l, err)
			}
			if t := lx.peek(); t.kind == tokIdent && t.text == "TO" {
				lx.next()
				to, err := lx.parseOr()
				if err != nil {
					return nil, p.wrap(l, err)
				}
				conds = append(conds, CaseRange(x, to))
			} else {
				conds = append(conds, CaseValue(x))
			}
		}
		if !lx.accept(tokComma) {
			break
		}
	}
	if !lx.atEOF() {
		return nil, p.wrap(l, lx.errorf("unexpected %q", lx.peek().text))
	}
	return conds, nil
}

// callTarget reads NAME, NAME, args... or NAME(args).
func (p *parser) callTarget(l srcLine, src string) (string, []Expr, error) {

	lx, err := NewLexer(src)
	if err != nil {
		return "", nil, p.wrap(l, err)
	}

	t := lx.next()
	if t.kind != tokIdent {
		return "", nil, p.errorAt(l, "missing call target")
	}

	var args []Expr

	switch {
	case lx.accept(tokLParen):
		if args, err = lx.parseArgs(); err != nil {
			return "", nil, p.wrap(l, err)
		}
	case lx.accept(tokComma):
		for {
			e, err := lx.parseExpr()
			if err != nil {
				return "", nil, p.wrap(l, err)
			}
			args = append(args, e)
			if !lx.accept(tokComma) {
				break
			}
		}
	}
	if !lx.atEOF() {
		return "", nil, p.wrap(l, lx.errorf("unexpected %q", lx.peek().text))
	}
	return t.text, args, nil
}

func (p *parser) label(l srcLine, src string) (string, error) {

	name, extra := splitWord(src)
	if name == "" || extra != "" {
		return "", p.errorAt(l, "expected a single label name")
	}
	return strings.ToUpper(name), nil
}

func (p *parser) expr(l srcLine, src string) (Expr, error) {

	if src == "" {
		return nil, p.errorAt(l, "missing expression")
	}
	e, err := ParseExpr(src)
	if err != nil {
		return nil, p.wrap(l, err)
	}
	return e, nil
}

func (p *parser) exprList(l srcLine, src string) ([]Expr, error) {

	var out []Expr

	if src == "" {
		return nil, nil
	}

	lx, err := NewLexer(src)
	if err != nil {
		return nil, p.wrap(l, err)
	}
	for {
		e, err := lx.parseExpr()
		if err != nil {
			return nil, p.wrap(l, err)
		}
		out = append(out, e)
		if !lx.accept(tokComma) {
			break
		}
	}
	if !lx.atEOF() {
		return nil, p.wrap(l, lx.errorf("unexpected %q", lx.peek().text))
	}
	return out, nil
}

func (p *parser) errorAt(l srcLine, f string, args ...any) error {

	e := newError(ErrSyntax, f, args...)
	e.Pos = Pos{File: p.file, Line: l.no}
	return e
}

// incomplete reports a block still open at the end of the input.
func (p *parser) incomplete(l srcLine, f string, args ...any) error {

	e := p.errorAt(l, f, args...).(*Error)
	e.Err = errIncomplete
	return e
}

var errIncomplete = errors.New("unexpected end of input")

// IsIncomplete reports whether a parse failed only because the input
// stopped inside a block, so more lines could complete it.
func IsIncomplete(err error) bool {
	return errors.Is(err, errIncomplete)
}

// wrap stamps a lexer or expression error with the line it came from.
func (p *parser) wrap(l srcLine, err error) error {
	return annotate(err, "", Pos{File: p.file, Line: l.no})
}

//
// splitWord splits off the leading word (up to the first blank) of s
//

func splitWord(s string) (word, rest string) {

	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i:])
}

//
// leadIdent splits off the leading identifier of s, upper-cased, and
// the trimmed text after it
//

func leadIdent(s string) (word, rest string) {

	end := 0
	for i, ch := range s {
		if !emueraIdent(ch, i) {
			break
		}
		end = i + utf8.RuneLen(ch)
	}
	return strings.ToUpper(s[:end]), strings.TrimSpace(s[end:])
}

//
// isKeywordLine reports whether a line is a statement or command rather
// than an expression. Anything that continues the first identifier with
// an assignment, an index, a scope or a call is an expression
//

func isKeywordLine(line string) bool {

	word, tail := leadIdent(line)
	if word == "" {
		return false
	}

	switch {
	case tail == "":
		return true
	case strings.HasPrefix(tail, "=="):
		return false
	case tail[0] == '=' || tail[0] == ':' || tail[0] == '@':
		return false
	case len(tail) > 1 && tail[1] == '=' && strings.ContainsRune("+-*/", rune(tail[0])):
		return false
	case tail[0] == '(' && !strings.ContainsAny(line[:len(line)-len(tail)], " \t"):
		return isBlockKeyword(word)
	}
	return true
}

// Statement keywords that may be written directly against a parenthesis.
func isBlockKeyword(kw string) bool {

	switch kw {
	case "IF", "ELSEIF", "SIF", "WHILE", "LOOP", "REPEAT", "SELECTCASE", "RETURN":
		return true
	}
	return false
}
