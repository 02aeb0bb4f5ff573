package emuera

import (
	"strconv"
	"strings"
)

//
// Pos locates a statement in its source. File may be empty for
// programmatically built trees
//

type Pos struct {
	File string
	Line int
}

func (p Pos) String() string {

	if p.File == "" {
		return "line " + strconv.Itoa(p.Line)
	}
	return p.File + ":" + strconv.Itoa(p.Line)
}

//
// Operator covers binary, unary and assignment operators
//

type Operator int

const (
	OpAdd Operator = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
	OpBitAnd
	OpBitOr
	OpBitXor
	OpShl
	OpShr
	OpAssign
	OpAddAssign
	OpSubAssign
	OpMulAssign
	OpDivAssign
	OpNeg
	OpNot
	OpBitNot
)

var opNames = [...]string{
	OpAdd:       "+",
	OpSub:       "-",
	OpMul:       "*",
	OpDiv:       "/",
	OpMod:       "%",
	OpPow:       "^",
	OpEq:        "==",
	OpNe:        "!=",
	OpLt:        "<",
	OpLe:        "<=",
	OpGt:        ">",
	OpGe:        ">=",
	OpAnd:       "&&",
	OpOr:        "||",
	OpBitAnd:    "&",
	OpBitOr:     "|",
	OpBitXor:    "^^",
	OpShl:       "<<",
	OpShr:       ">>",
	OpAssign:    "=",
	OpAddAssign: "+=",
	OpSubAssign: "-=",
	OpMulAssign: "*=",
	OpDivAssign: "/=",
	OpNeg:       "-",
	OpNot:       "!",
	OpBitNot:    "~",
}

func (op Operator) String() string {

	if op < 0 || int(op) >= len(opNames) {
		return "op(" + strconv.Itoa(int(op)) + ")"
	}
	return opNames[op]
}

func (op Operator) IsAssign() bool {
	return op >= OpAssign && op <= OpDivAssign
}

// arith maps a compound assignment to the operator it applies.
func (op Operator) arith() Operator {

	switch op {
	case OpAddAssign:
		return OpAdd
	case OpSubAssign:
		return OpSub
	case OpMulAssign:
		return OpMul
	case OpDivAssign:
		return OpDiv
	}
	return op
}

//
// Scope selects one of the per-function variable families
//

type Scope int

const (
	ScopeLocal Scope = iota
	ScopeLocalS
	ScopeArg
	ScopeArgS
)

var scopeNames = [...]string{
	ScopeLocal:  "LOCAL",
	ScopeLocalS: "LOCALS",
	ScopeArg:    "ARG",
	ScopeArgS:   "ARGS",
}

func (s Scope) String() string {
	return scopeNames[s]
}

// IsString reports whether the scope holds string values.
func (s Scope) IsString() bool {
	return s == ScopeLocalS || s == ScopeArgS
}

// key is the store name of the scope's family inside fn.
func (s Scope) key(fn string) string {
	return s.String() + "@" + fn
}

func lookupScope(name string) (Scope, bool) {

	for i, n := range scopeNames {
		if strings.EqualFold(n, name) {
			return Scope(i), true
		}
	}
	return 0, false
}

//
// Expressions. The set is closed: the evaluator switches over every
// type below
//

type Expr interface {
	exprNode()
}

type IntLit struct {
	Value int64
}

type StrLit struct {
	Value string
}

type VarRef struct {
	Name string
}

// ScopedVar names a LOCAL, LOCALS, ARG or ARGS slot. Function, when
// empty, means the function currently executing.
type ScopedVar struct {
	Scope    Scope
	Name     string
	Function string
	Index    []Expr
}

type IndexExpr struct {
	Name  string
	Index []Expr
}

type CallExpr struct {
	Name string
	Args []Expr
}

type BinaryExpr struct {
	Op    Operator
	Left  Expr
	Right Expr
}

type UnaryExpr struct {
	Op      Operator
	Operand Expr
}

func (*IntLit) exprNode()     {}
func (*StrLit) exprNode()     {}
func (*VarRef) exprNode()     {}
func (*ScopedVar) exprNode()  {}
func (*IndexExpr) exprNode()  {}
func (*CallExpr) exprNode()   {}
func (*BinaryExpr) exprNode() {}
func (*UnaryExpr) exprNode()  {}

//
// Statements
//

type Stmt interface {
	Position() Pos
	stmtNode()
}

type node struct {
	Pos Pos
}

func (n node) Position() Pos {
	return n.Pos
}

func (node) stmtNode() {}

type ExprStmt struct {
	node
	X Expr
}

type Block struct {
	node
	Body []Stmt
}

// IfStmt chains ELSEIF as a nested IfStmt in Else.
type IfStmt struct {
	node
	Cond Expr
	Then []Stmt
	Else []Stmt
}

type WhileStmt struct {
	node
	Cond Expr
	Body []Stmt
}

type DoLoopStmt struct {
	node
	Body []Stmt
	Cond Expr
}

// RepeatStmt runs Body Count times with COUNT holding the iteration.
type RepeatStmt struct {
	node
	Count Expr
	Body  []Stmt
}

// ForStmt with a nil Step steps by 1.
type ForStmt struct {
	node
	Var   string
	Start Expr
	End   Expr
	Step  Expr
	Body  []Stmt
}

type caseKind int

const (
	caseValue caseKind = iota
	caseRange
	caseIs
)

// CaseCond is one candidate of a CASE line: a value, a range
// (CASE 1 TO 5) or a comparison (CASE IS > 3).
type CaseCond struct {
	kind caseKind
	X    Expr
	To   Expr
	Op   Operator
}

func CaseValue(x Expr) CaseCond {
	return CaseCond{kind: caseValue, X: x}
}

func CaseRange(from, to Expr) CaseCond {
	return CaseCond{kind: caseRange, X: from, To: to}
}

func CaseIs(op Operator, x Expr) CaseCond {
	return CaseCond{kind: caseIs, X: x, Op: op}
}

type CaseClause struct {
	Conds []CaseCond
	Body  []Stmt
}

type SelectCaseStmt struct {
	node
	Subject    Expr
	Cases      []CaseClause
	Default    []Stmt
	HasDefault bool
}

type GotoStmt struct {
	node
	Label string
}

// CallStmt with Try set is TRYCALL: a missing target is not an error.
// ReturnTo, when set, resumes at that top level label instead of the
// statement after the call.
type CallStmt struct {
	node
	Target   string
	Args     []Expr
	Try      bool
	ReturnTo string
}

type JumpStmt struct {
	node
	Target string
	Args   []Expr
}

type CallEventStmt struct {
	node
	Target string
}

type ReturnStmt struct {
	node
	Value Expr
}

type BreakStmt struct {
	node
}

type ContinueStmt struct {
	node
}

type LabelStmt struct {
	node
	Name string
}

type CommandStmt struct {
	node
	Name string
	Args []Expr
}

type ResetStmt struct {
	node
}

// PersistStmt toggles persistence, or sets it when Explicit is true.
type PersistStmt struct {
	node
	Explicit bool
	On       bool
}

// at builds the embedded position for programmatically built trees.
func at(line int) node {
	return node{Pos: Pos{Line: line}}
}

//
// Function attributes from the # lines under an @LABEL
//

type FuncAttr uint

const (
	AttrPri FuncAttr = 1 << iota
	AttrLater
	AttrSingle
	AttrOnly
	AttrFunction
	AttrFunctionS
)

const eventAttrs = AttrPri | AttrLater | AttrSingle | AttrOnly

type FunctionDef struct {
	Name  string
	Attrs FuncAttr
	Body  []Stmt
	Pos   Pos

	labels map[string]int
}

func (d *FunctionDef) Has(a FuncAttr) bool {
	return d.Attrs&a != 0
}

// IsEvent reports whether the label dispatches through event groups.
func (d *FunctionDef) IsEvent() bool {
	return strings.HasPrefix(strings.ToUpper(d.Name), "EVENT") || d.Attrs&eventAttrs != 0
}

// IsFunction reports whether the label is callable from expressions.
func (d *FunctionDef) IsFunction() bool {
	return d.Attrs&(AttrFunction|AttrFunctionS) != 0
}

func (d *FunctionDef) labelTable() map[string]int {

	if d.labels == nil {
		d.labels = collectLabels(d.Body)
	}
	return d.labels
}

// collectLabels indexes the top level labels of a sequence.
func collectLabels(stmts []Stmt) map[string]int {

	labels := make(map[string]int)

	for i, s := range stmts {
		if l, ok := s.(*LabelStmt); ok {
			labels[labelKey(l.Name)] = i
		}
	}
	return labels
}
