package emuera

import (
	"fmt"
	"strconv"
	"strings"
	"text/scanner"
	"unicode"
)

type tokKind int

const (
	tokEOF tokKind = iota
	tokInt
	tokStr
	tokIdent
	tokOp
	tokLParen
	tokRParen
	tokComma
	tokColon
	tokAt
)

type token struct {
	kind tokKind
	text string
	ival int64
	col  int
}

//
// Lexer turns one expression line into tokens. Identifiers come back
// upper-cased; operators are matched longest first
//

type Lexer struct {
	line   string
	tokens []token
	pos    int
}

// Two and three character operators, longest first.
var multiOps = []string{
	"^^", "<<", ">>", "<=", ">=", "==", "!=", "&&", "||",
	"+=", "-=", "*=", "/=",
}

func emueraIdent(ch rune, i int) bool {
	return ch == '_' || unicode.IsLetter(ch) || (i > 0 && unicode.IsDigit(ch))
}

func NewLexer(line string) (*Lexer, error) {

	var s scanner.Scanner
	var serr error

	lx := &Lexer{line: line}

	s.Init(strings.NewReader(line))
	s.Mode = scanner.ScanIdents | scanner.ScanInts | scanner.ScanStrings
	s.IsIdentRune = emueraIdent
	s.Error = func(s *scanner.Scanner, msg string) {
		if serr == nil {
			serr = newError(ErrSyntax, "%s at column %d", msg, s.Position.Column)
		}
	}

	for {
		tok := s.Scan()
		if serr != nil {
			return nil, serr
		}
		col := s.Position.Column
		txt := s.TokenText()

		switch tok {
		case scanner.EOF:
			lx.tokens = append(lx.tokens, token{kind: tokEOF, col: col})
			return lx, nil

		case scanner.Ident:
			lx.tokens = append(lx.tokens, token{kind: tokIdent, text: strings.ToUpper(txt), col: col})

		case scanner.Int:
			n, err := strconv.ParseInt(txt, 0, 64)
			if err != nil {
				return nil, newError(ErrSyntax, "bad number %s at column %d", txt, col)
			}
			lx.tokens = append(lx.tokens, token{kind: tokInt, text: txt, ival: n, col: col})

		case scanner.String:
			str, err := strconv.Unquote(txt)
			if err != nil {
				return nil, newError(ErrSyntax, "bad string %s at column %d", txt, col)
			}
			lx.tokens = append(lx.tokens, token{kind: tokStr, text: str, col: col})

		case '(':
			lx.tokens = append(lx.tokens, token{kind: tokLParen, text: "(", col: col})
		case ')':
			lx.tokens = append(lx.tokens, token{kind: tokRParen, text: ")", col: col})
		case ',':
			lx.tokens = append(lx.tokens, token{kind: tokComma, text: ",", col: col})
		case ':':
			lx.tokens = append(lx.tokens, token{kind: tokColon, text: ":", col: col})
		case '@':
			lx.tokens = append(lx.tokens, token{kind: tokAt, text: "@", col: col})

		default:
			op := string(tok)
			next := string(s.Peek())
			for _, m := range multiOps {
				if m == op+next {
					s.Next()
					op = m
					break
				}
			}
			if !strings.ContainsAny(op, "+-*/%^=!<>&|~") {
				return nil, newError(ErrSyntax, "unexpected %q at column %d", op, col)
			}
			lx.tokens = append(lx.tokens, token{kind: tokOp, text: op, col: col})
		}
	}
}

func (lx *Lexer) peek() token {
	return lx.tokens[lx.pos]
}

func (lx *Lexer) next() token {

	t := lx.tokens[lx.pos]
	if t.kind != tokEOF {
		lx.pos++
	}
	return t
}

func (lx *Lexer) atEOF() bool {
	return lx.tokens[lx.pos].kind == tokEOF
}

func (lx *Lexer) isOp(op string) bool {

	t := lx.tokens[lx.pos]
	return t.kind == tokOp && t.text == op
}

func (lx *Lexer) accept(kind tokKind) bool {

	if lx.tokens[lx.pos].kind == kind {
		lx.pos++
		return true
	}
	return false
}

func (lx *Lexer) errorf(f string, args ...any) error {

	t := lx.peek()
	where := "end of line"
	if t.kind != tokEOF {
		where = "column " + strconv.Itoa(t.col)
	}
	return newError(ErrSyntax, "%s at %s in %q", fmt.Sprintf(f, args...), where, lx.line)
}
