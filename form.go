package emuera

import (
	"context"
	"strings"
)

//
// PRINTFORM templates. Literal text is copied as is; {expr} inserts an
// integer expression and %expr% a string one. Either may carry a
// width after a comma ({A,5}) and is then right aligned. A backslash
// takes the next character literally
//

type formToken interface{}

type formChar struct {
	text string
}

type formExpr struct {
	x     Expr
	width Expr
	str   bool
}

type formLexer struct {
	buf    string
	idx    int
	tokens []formToken
}

func parseForm(text string) ([]formToken, error) {

	fl := &formLexer{buf: text}

	if err := fl.parse(); err != nil {
		return nil, err
	}
	return fl.tokens, nil
}

func (fl *formLexer) saveChar(s string) {

	if n := len(fl.tokens); n > 0 {
		if prev, ok := fl.tokens[n-1].(formChar); ok {
			fl.tokens[n-1] = formChar{prev.text + s}
			return
		}
	}
	fl.tokens = append(fl.tokens, formChar{s})
}

func (fl *formLexer) parse() error {

	for {
		switch fl.peekch() {
		default:
			fl.saveChar(string(fl.getch()))

		case 0:
			return nil

		case '\\':
			fl.idx++
			if fl.peekch() == 0 {
				fl.saveChar("\\")
				return nil
			}
			fl.saveChar(string(fl.getch()))

		case '{', '%':
			open := fl.getch()
			close := byte('}')
			if open == '%' {
				close = '%'
			}

			src, ok := fl.getseq(close)
			if !ok {
				return newError(ErrSyntax, "unterminated %c in %q", open, fl.buf)
			}

			tok, err := parseFormExpr(src)
			if err != nil {
				return err
			}
			tok.str = open == '%'
			fl.tokens = append(fl.tokens, tok)
		}
	}
}

func parseFormExpr(src string) (formExpr, error) {

	var tok formExpr

	lx, err := NewLexer(src)
	if err != nil {
		return tok, err
	}
	if tok.x, err = lx.parseExpr(); err != nil {
		return tok, err
	}
	if lx.accept(tokComma) {
		if tok.width, err = lx.parseExpr(); err != nil {
			return tok, err
		}
	}
	if !lx.atEOF() {
		return tok, lx.errorf("unexpected %q", lx.peek().text)
	}
	return tok, nil
}

// getseq reads up to close, skipping over quoted strings.
func (fl *formLexer) getseq(close byte) (string, bool) {

	var quoting bool

	start := fl.idx
	for {
		pch := fl.peekch()
		switch {
		case pch == 0:
			return "", false
		case pch == '"':
			quoting = !quoting
		case pch == '\\' && quoting:
			fl.idx++
		case pch == close && !quoting:
			s := fl.buf[start:fl.idx]
			fl.idx++
			return s, true
		}
		fl.idx++
	}
}

func (fl *formLexer) peekch() byte {

	if fl.idx >= len(fl.buf) {
		return 0
	}
	return fl.buf[fl.idx]
}

func (fl *formLexer) getch() byte {

	interpAssert(fl.idx < len(fl.buf), "form buffer overrun")

	ch := fl.buf[fl.idx]
	fl.idx++
	return ch
}

//
// expandForm evaluates a parsed template against the context
//

func (in *Interpreter) expandForm(ctx context.Context, ec *ExecutionContext, text string) (string, error) {

	var sb strings.Builder

	tokens, err := parseForm(text)
	if err != nil {
		return "", err
	}

	for _, tok := range tokens {
		switch tok := tok.(type) {
		case formChar:
			sb.WriteString(tok.text)

		case formExpr:
			v, err := in.Evaluate(ctx, ec, tok.x)
			if err != nil {
				return "", err
			}
			if tok.str && v.Kind() != KindString {
				return "", typeMismatch("%%...%% in PRINTFORM needs a string, got %s", v.Kind())
			}
			if !tok.str && v.Kind() != KindInt {
				return "", typeMismatch("{...} in PRINTFORM needs an integer, got %s", v.Kind())
			}

			s := v.String()
			if tok.width != nil {
				w, err := in.evalInt(ctx, ec, tok.width, "PRINTFORM width")
				if err != nil {
					return "", err
				}
				s = padString(s, int(w), true)
			}
			sb.WriteString(s)

		default:
			interpAssert(false, "unknown form token")
		}
	}
	return sb.String(), nil
}
