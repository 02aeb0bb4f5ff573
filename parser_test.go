package emuera

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// ln is the position of line n in the test file "t".
func ln(n int) node {
	return node{Pos: Pos{File: "t", Line: n}}
}

func TestIsKeywordLine(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"PRINT A", true},
		{"WAIT", true},
		{"PRINTL", true},
		{"A = 1", false},
		{"A == 1", false},
		{"A:1 = 2", false},
		{"A += 1", false},
		{"A *= 2", false},
		{"LOCAL@FN = 1", false},
		{"FOO(1)", false},
		{"IF(A)", true},
		{"RETURN(1)", true},
		{"PRINT (1)", true},
		{"1 + 2", false},
		{"\"str\"", false},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, isKeywordLine(tt.line), tt.line)
	}
}

func TestParseExpr(t *testing.T) {
	tests := []struct {
		src  string
		want Expr
	}{
		{"1 + 2 * 3", &BinaryExpr{Op: OpAdd, Left: &IntLit{Value: 1},
			Right: &BinaryExpr{Op: OpMul, Left: &IntLit{Value: 2}, Right: &IntLit{Value: 3}}}},
		{"(1 + 2) * 3", &BinaryExpr{Op: OpMul,
			Left:  &BinaryExpr{Op: OpAdd, Left: &IntLit{Value: 1}, Right: &IntLit{Value: 2}},
			Right: &IntLit{Value: 3}}},
		{"2 ^ 3 ^ 2", &BinaryExpr{Op: OpPow, Left: &IntLit{Value: 2},
			Right: &BinaryExpr{Op: OpPow, Left: &IntLit{Value: 3}, Right: &IntLit{Value: 2}}}},
		{"-2 ^ 2", &UnaryExpr{Op: OpNeg,
			Operand: &BinaryExpr{Op: OpPow, Left: &IntLit{Value: 2}, Right: &IntLit{Value: 2}}}},
		{"1 < 2 == 1", &BinaryExpr{Op: OpEq,
			Left:  &BinaryExpr{Op: OpLt, Left: &IntLit{Value: 1}, Right: &IntLit{Value: 2}},
			Right: &IntLit{Value: 1}}},
		{"A ^^ B", &BinaryExpr{Op: OpBitXor, Left: &VarRef{Name: "A"}, Right: &VarRef{Name: "B"}}},
		{"!a", &UnaryExpr{Op: OpNot, Operand: &VarRef{Name: "A"}}},
		{"+5", &IntLit{Value: 5}},
		{"0x10", &IntLit{Value: 16}},
		{`"a\tb"`, &StrLit{Value: "a\tb"}},
		{"A:1:B", &IndexExpr{Name: "A", Index: []Expr{&IntLit{Value: 1}, &VarRef{Name: "B"}}}},
		{"A:B:C", &IndexExpr{Name: "A", Index: []Expr{&VarRef{Name: "B"}, &VarRef{Name: "C"}}}},
		{"A:(B + 1)", &IndexExpr{Name: "A", Index: []Expr{
			&BinaryExpr{Op: OpAdd, Left: &VarRef{Name: "B"}, Right: &IntLit{Value: 1}}}}},
		{"LOCAL@FOO:2", &ScopedVar{Scope: ScopeLocal, Name: "LOCAL", Function: "FOO",
			Index: []Expr{&IntLit{Value: 2}}}},
		{"args", &ScopedVar{Scope: ScopeArgS, Name: "ARGS"}},
		{"FOO()", &CallExpr{Name: "FOO"}},
		{"MAX(1, A)", &CallExpr{Name: "MAX", Args: []Expr{&IntLit{Value: 1}, &VarRef{Name: "A"}}}},
		{"A = B = 3", &BinaryExpr{Op: OpAssign, Left: &VarRef{Name: "A"},
			Right: &BinaryExpr{Op: OpAssign, Left: &VarRef{Name: "B"}, Right: &IntLit{Value: 3}}}},
		{"A:1 -= 2", &BinaryExpr{Op: OpSubAssign,
			Left: &IndexExpr{Name: "A", Index: []Expr{&IntLit{Value: 1}}}, Right: &IntLit{Value: 2}}},
	}

	for _, tt := range tests {
		got, err := ParseExpr(tt.src)
		require.NoError(t, err, tt.src)
		require.Equal(t, tt.want, got, tt.src)
	}
}

func TestParseExpr_Errors(t *testing.T) {
	for _, src := range []string{
		"1 +",
		"(1",
		"1 2",
		"1 = 2",
		"A # B",
		"FOO(1",
		"A@FN",
		"A:1:2:3:4",
		`"unterminated`,
	} {
		_, err := ParseExpr(src)
		require.ErrorIs(t, err, ErrSyntax, src)
	}
}

func TestParseScript_Statements(t *testing.T) {
	src := `
$TOP
SIF A
	PRINT 1
PRINT "a;b" ; comment
PRINTFORM x{A,3}
CALL FOO, 1, A
TRYCALL bar(2)
GOTO top
RETURN
`
	stmts, err := ParseScript("t", src)
	require.NoError(t, err)

	want := []Stmt{
		&LabelStmt{node: ln(2), Name: "TOP"},
		&IfStmt{node: ln(3), Cond: &VarRef{Name: "A"},
			Then: []Stmt{&CommandStmt{node: ln(4), Name: "PRINT", Args: []Expr{&IntLit{Value: 1}}}}},
		&CommandStmt{node: ln(5), Name: "PRINT", Args: []Expr{&StrLit{Value: "a;b"}}},
		&CommandStmt{node: ln(6), Name: "PRINTFORM", Args: []Expr{&StrLit{Value: "x{A,3}"}}},
		&CallStmt{node: ln(7), Target: "FOO", Args: []Expr{&IntLit{Value: 1}, &VarRef{Name: "A"}}},
		&CallStmt{node: ln(8), Target: "BAR", Args: []Expr{&IntLit{Value: 2}}, Try: true},
		&GotoStmt{node: ln(9), Label: "TOP"},
		&ReturnStmt{node: ln(10)},
	}
	require.Equal(t, want, stmts)
}

func TestParseScript_Blocks(t *testing.T) {
	src := `IF A
PRINT 1
ELSEIF B
PRINT 2
ELSE
PRINT 3
ENDIF
FOR I, 1, 10, 2
NEXT
SELECTCASE X
CASE 1, 2 TO 3, IS > 4
PRINT 1
CASEELSE
PRINT 2
ENDSELECT`

	stmts, err := ParseScript("t", src)
	require.NoError(t, err)
	require.Len(t, stmts, 3)

	printStmt := func(line int, n int64) Stmt {
		return &CommandStmt{node: ln(line), Name: "PRINT", Args: []Expr{&IntLit{Value: n}}}
	}

	require.Equal(t, &IfStmt{
		node: ln(1),
		Cond: &VarRef{Name: "A"},
		Then: []Stmt{printStmt(2, 1)},
		Else: []Stmt{&IfStmt{
			node: ln(3),
			Cond: &VarRef{Name: "B"},
			Then: []Stmt{printStmt(4, 2)},
			Else: []Stmt{printStmt(6, 3)},
		}},
	}, stmts[0])

	require.Equal(t, &ForStmt{node: ln(8), Var: "I", Start: &IntLit{Value: 1},
		End: &IntLit{Value: 10}, Step: &IntLit{Value: 2}}, stmts[1])

	require.Equal(t, &SelectCaseStmt{
		node:    ln(10),
		Subject: &VarRef{Name: "X"},
		Cases: []CaseClause{{
			Conds: []CaseCond{
				CaseValue(&IntLit{Value: 1}),
				CaseRange(&IntLit{Value: 2}, &IntLit{Value: 3}),
				CaseIs(OpGt, &IntLit{Value: 4}),
			},
			Body: []Stmt{printStmt(12, 1)},
		}},
		Default:    []Stmt{printStmt(14, 2)},
		HasDefault: true,
	}, stmts[2])
}

func TestParseScript_Persist(t *testing.T) {
	stmts, err := ParseScript("t", "PERSIST\nPERSIST on\nPERSIST 0")
	require.NoError(t, err)
	require.Equal(t, []Stmt{
		&PersistStmt{node: ln(1)},
		&PersistStmt{node: ln(2), Explicit: true, On: true},
		&PersistStmt{node: ln(3), Explicit: true},
	}, stmts)

	_, err = ParseScript("t", "PERSIST MAYBE")
	require.ErrorIs(t, err, ErrSyntax)
}

func TestParseScript_Incomplete(t *testing.T) {
	for _, src := range []string{
		"IF A\nPRINT 1",
		"IF A\nELSE",
		"WHILE 1",
		"DO\nPRINT 1",
		"REPEAT 3",
		"FOR I, 1, 3",
		"SELECTCASE A\nCASE 1",
		"SIF A",
	} {
		_, err := ParseScript("t", src)
		require.ErrorIs(t, err, ErrSyntax, src)
		require.True(t, IsIncomplete(err), src)
	}
}

func TestParseScript_Errors(t *testing.T) {
	tests := []struct {
		src  string
		line int
	}{
		{"PRINT 1\nENDIF", 2},
		{"IF A\nWEND", 2},
		{"PRINT 1\nA = (2", 2},
		{"FOR 1, 2, 3\nNEXT", 1},
		{"FOR I, 1\nNEXT", 1},
		{"SELECTCASE X\nPRINT 1\nCASE 1\nENDSELECT", 1},
		{"SELECTCASE X\nCASEELSE\nCASE 1\nENDSELECT", 3},
		{"SELECTCASE X\nCASE IS 1\nENDSELECT", 2},
		{"GOTO A B", 1},
		{"CALL", 1},
		{"$", 1},
	}

	for _, tt := range tests {
		_, err := ParseScript("t", tt.src)
		require.ErrorIs(t, err, ErrSyntax, tt.src)
		require.False(t, IsIncomplete(err), tt.src)

		var e *Error
		require.ErrorAs(t, err, &e)
		require.Equal(t, tt.line, e.Pos.Line, tt.src)
	}
}

func TestParseProgram(t *testing.T) {
	src := "\ufeff@EventTurn\n#PRI\n#LATER\n#DIM X\nPRINT 1\n\n@sub\n#FUNCTIONS\n@MAIN\nCALL SUB\n"

	defs, err := ParseProgram("f.erb", src)
	require.NoError(t, err)
	require.Len(t, defs, 3)

	require.Equal(t, "EVENTTURN", defs[0].Name)
	require.Equal(t, AttrPri|AttrLater, defs[0].Attrs)
	require.True(t, defs[0].IsEvent())
	require.Len(t, defs[0].Body, 1)
	require.Equal(t, Pos{File: "f.erb", Line: 1}, defs[0].Pos)

	require.Equal(t, "SUB", defs[1].Name)
	require.True(t, defs[1].Has(AttrFunctionS))
	require.True(t, defs[1].IsFunction())
	require.False(t, defs[1].IsEvent())
	require.Empty(t, defs[1].Body)

	require.Equal(t, "MAIN", defs[2].Name)
	require.Equal(t, 10, defs[2].Body[0].Position().Line)
}

func TestParseProgram_Errors(t *testing.T) {
	_, err := ParseProgram("f.erb", "PRINT 1\n@MAIN")
	require.ErrorIs(t, err, ErrSyntax)

	_, err = ParseProgram("f.erb", "@\nPRINT 1")
	require.ErrorIs(t, err, ErrSyntax)

	_, err = ParseProgram("f.erb", "@MAIN\nIF 1\n@NEXT\nENDIF")
	require.True(t, IsIncomplete(err))
}

func TestCollectLabels(t *testing.T) {
	stmts, err := ParseScript("t", "PRINT 1\n$a\nIF 1\n$INNER\nENDIF\n@B")
	require.NoError(t, err)
	require.Equal(t, map[string]int{"A": 1, "B": 3}, collectLabels(stmts))
}

func TestStripComment(t *testing.T) {
	require.Equal(t, "PRINT 1 ", stripComment("PRINT 1 ; note"))
	require.Equal(t, `PRINT "a;b"`, stripComment(`PRINT "a;b"`))
	require.Equal(t, `PRINTFORM a\;b`, stripComment(`PRINTFORM a\;b`))
	require.Equal(t, "", stripComment(";all comment"))
}

func TestParseForm(t *testing.T) {
	toks, err := parseForm(`x{A,3}y%"}%"% \{z`)
	require.NoError(t, err)
	require.Equal(t, []formToken{
		formChar{"x"},
		formExpr{x: &VarRef{Name: "A"}, width: &IntLit{Value: 3}},
		formChar{"y"},
		formExpr{x: &StrLit{Value: "}%"}, str: true},
		formChar{" {z"},
	}, toks)

	toks, err = parseForm(`end\`)
	require.NoError(t, err)
	require.Equal(t, []formToken{formChar{`end\`}}, toks)

	for _, src := range []string{"{1", "%S", "{1 2}", "{}"} {
		_, err := parseForm(src)
		require.ErrorIs(t, err, ErrSyntax, src)
	}
}

func TestUtils(t *testing.T) {
	require.Equal(t, "  ab", padString("ab", 4, true))
	require.Equal(t, "ab  ", padString("ab", 4, false))
	require.Equal(t, "abcde", padString("abcde", 2, true))
	require.Equal(t, " 日本", padString("日本", 3, true))
	require.Equal(t, "007", leftPad(7, 3))
	require.Equal(t, "1234", leftPad(1234, 3))
	require.Equal(t, "lines", Pluralize("line", 0))
	require.Equal(t, "line", Pluralize("line", 1))
}
