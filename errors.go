package emuera

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/pkg/errors"
)

//
// Manifest constants for the error messages the interpreter raises.
// Each one is also a sentinel usable with errors.Is, and carries the
// numeric code reported by the CLI and ERRCODE
//

const (
	ETYPEMISMATCH     = "Type mismatch"
	EDIVISIONBYZERO   = "Division by 0"
	EVARIABLENOTFOUND = "Variable not found"
	EFUNCTIONNOTFOUND = "Function not found"
	EINVALIDOPERATION = "Invalid operation"
	ERUNTIME          = "Runtime error"
	EINTERRUPTED      = "Interrupted"
	ELABELNOTFOUND    = "Label not found"
	ESTACKOVERFLOW    = "Function call stack overflow"
	EEVENTINPROGRESS  = "Event function already in progress"
	EBEGINREFUSED     = "BEGIN not allowed in this state"
	EEVENTKIND        = "Event function called as a normal function"
	ENONEVENTKIND     = "Normal function called as an event function"
	EDUPLICATELABEL   = "Duplicate function definition"
	ESYNTAX           = "Syntax error"
	EASSERTION        = "Assertion failed"
	ETIMEOUT          = "Input timed out"
	EINTERNAL         = "Internal error"
)

var (
	ErrTypeMismatch     = errors.New(ETYPEMISMATCH)
	ErrDivisionByZero   = errors.New(EDIVISIONBYZERO)
	ErrVariableNotFound = errors.New(EVARIABLENOTFOUND)
	ErrFunctionNotFound = errors.New(EFUNCTIONNOTFOUND)
	ErrInvalidOperation = errors.New(EINVALIDOPERATION)
	ErrRuntime          = errors.New(ERUNTIME)
	ErrInterrupted      = errors.New(EINTERRUPTED)
	ErrLabelNotFound    = errors.New(ELABELNOTFOUND)
	ErrStackOverflow    = errors.New(ESTACKOVERFLOW)
	ErrEventInProgress  = errors.New(EEVENTINPROGRESS)
	ErrBeginRefused     = errors.New(EBEGINREFUSED)
	ErrEventKind        = errors.New(EEVENTKIND)
	ErrNonEventKind     = errors.New(ENONEVENTKIND)
	ErrDuplicateLabel   = errors.New(EDUPLICATELABEL)
	ErrSyntax           = errors.New(ESYNTAX)
	ErrTimeout          = errors.New(ETIMEOUT)
	ErrInternal         = errors.New(EINTERNAL)
)

var errorMap = map[error]int{
	ErrRuntime:          1,
	ErrTypeMismatch:     2,
	ErrDivisionByZero:   3,
	ErrVariableNotFound: 4,
	ErrFunctionNotFound: 5,
	ErrInvalidOperation: 6,
	ErrLabelNotFound:    7,
	ErrStackOverflow:    8,
	ErrEventInProgress:  9,
	ErrBeginRefused:     10,
	ErrEventKind:        11,
	ErrNonEventKind:     12,
	ErrDuplicateLabel:   13,
	ErrSyntax:           14,
	ErrTimeout:          15,
	ErrInterrupted:      28,
	ErrInternal:         99,
}

//
// Error is what every failed evaluation or statement reports. Kind is
// one of the sentinels above; Err, when set, is the underlying cause
// (a process or label error surfaced by a statement, say)
//

type Error struct {
	Kind error
	Msg  string
	Func string
	Pos  Pos
	Err  error
}

func (e *Error) Error() string {

	var sb strings.Builder

	sb.WriteString(e.Kind.Error())
	if e.Msg != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Msg)
	}
	if e.Err != nil && !strings.Contains(e.Msg, e.Err.Error()) {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	if e.Func != "" {
		sb.WriteString(" in @")
		sb.WriteString(e.Func)
	}
	if e.Pos.Line > 0 {
		sb.WriteString(" at ")
		sb.WriteString(e.Pos.String())
	}
	return sb.String()
}

func (e *Error) Unwrap() []error {

	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// Code returns the numeric code for the error's kind.
func (e *Error) Code() int {
	return ErrorCode(e.Kind)
}

//
// ErrorCode maps any error to its numeric code. Anything not raised by
// the interpreter maps to -1
//

func ErrorCode(err error) int {

	var e *Error

	if errors.As(err, &e) {
		if code, ok := errorMap[e.Kind]; ok {
			return code
		}
	}
	for k, v := range errorMap {
		if errors.Is(err, k) {
			return v
		}
	}
	return -1
}

func newError(kind error, f string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(f, args...)}
}

func typeMismatch(f string, args ...any) error {
	return newError(ErrTypeMismatch, f, args...)
}

func invalidOperation(f string, args ...any) error {
	return newError(ErrInvalidOperation, f, args...)
}

func runtimeErrorf(f string, args ...any) error {
	return newError(ErrRuntime, f, args...)
}

//
// runtimeWrap surfaces a lower level failure (label lookup, process
// transition) as a statement runtime error, keeping the cause for
// errors.Is
//

func runtimeWrap(err error, f string, args ...any) error {

	if err == nil {
		return nil
	}
	return &Error{Kind: ErrRuntime, Msg: fmt.Sprintf(f, args...), Err: err}
}

func runtimeCheck(chk bool, f string, args ...any) error {

	if !chk {
		return runtimeErrorf(f, args...)
	}
	return nil
}

//
// annotate stamps an error with the statement position it escaped
// from, unless an inner statement already did
//

func annotate(err error, fn string, pos Pos) error {

	var e *Error

	if !errors.As(err, &e) {
		return &Error{Kind: ErrRuntime, Func: fn, Pos: pos, Err: err}
	}
	if e.Pos.Line == 0 && e.Func == "" {
		e.Func = fn
		e.Pos = pos
	}
	return err
}

//
// Interpreter bugs panic with an internalError. The execution entry
// points recover them and report ErrInternal with the Go caller
//

type internalError struct {
	msg  string
	file string
	line int
}

func interpAssert(chk bool, msg string) {

	if !chk {
		_, file, line, _ := runtime.Caller(1)
		panic(&internalError{msg: msg, file: file, line: line})
	}
}

func decodePanic(e any) error {

	switch e := e.(type) {
	case *internalError:
		return errors.Wrapf(ErrInternal, "%s (%s:%d)", e.msg, e.file, e.line)
	case error:
		return errors.Wrap(ErrInternal, e.Error())
	default:
		return errors.Wrapf(ErrInternal, "%v", e)
	}
}
