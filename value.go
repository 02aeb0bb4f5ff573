package emuera

import (
	"strconv"
	"strings"
)

//
// Kind identifies the variant held by a Value
//

type Kind int

const (
	KindNull Kind = iota
	KindInt
	KindString
	KindArray
	KindChara
)

var kindNames = [...]string{
	KindNull:   "null",
	KindInt:    "int",
	KindString: "string",
	KindArray:  "array",
	KindChara:  "chara",
}

func (k Kind) String() string {

	if k < 0 || int(k) >= len(kindNames) {
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}

//
// Value is the immutable tagged union every expression produces.
// The zero Value is null
//

type Value struct {
	kind  Kind
	i     int64
	s     string
	items []Value
}

func Int(n int64) Value {
	return Value{kind: KindInt, i: n}
}

func Bool(b bool) Value {

	if b {
		return Int(1)
	}
	return Int(0)
}

func Str(s string) Value {
	return Value{kind: KindString, s: s}
}

func Array(items ...Value) Value {

	cp := make([]Value, len(items))
	copy(cp, items)
	return Value{kind: KindArray, items: cp}
}

// Chara refers to a character record by id.
func Chara(id int64) Value {
	return Value{kind: KindChara, i: id}
}

func Null() Value {
	return Value{}
}

func (v Value) Kind() Kind {
	return v.kind
}

func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// Int64 returns the payload of an int or chara value and 0 otherwise.
func (v Value) Int64() int64 {

	if v.kind == KindInt || v.kind == KindChara {
		return v.i
	}
	return 0
}

func (v Value) CharaID() int64 {
	return v.Int64()
}

// Text returns the payload of a string value and "" otherwise.
func (v Value) Text() string {

	if v.kind == KindString {
		return v.s
	}
	return ""
}

func (v Value) Items() []Value {

	if v.kind != KindArray {
		return nil
	}
	cp := make([]Value, len(v.items))
	copy(cp, v.items)
	return cp
}

func (v Value) Len() int {

	switch v.kind {
	case KindArray:
		return len(v.items)
	case KindString:
		return len(v.s)
	}
	return 0
}

//
// String renders a value the way PRINT shows it
//

func (v Value) String() string {

	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindString:
		return v.s
	case KindChara:
		return "CHARA:" + strconv.FormatInt(v.i, 10)
	case KindArray:
		var sb strings.Builder
		sb.WriteByte('[')
		for i, it := range v.items {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(it.String())
		}
		sb.WriteByte(']')
		return sb.String()
	}
	return ""
}

// Truthy reports whether v selects the true branch of a condition.
func (v Value) Truthy() bool {

	switch v.kind {
	case KindInt:
		return v.i != 0
	case KindString:
		return v.s != ""
	case KindArray:
		return len(v.items) > 0
	case KindChara:
		return true
	}
	return false
}

//
// Equal compares two values of like kind. Null equals only null.
// Anything else across kinds is a type mismatch
//

func Equal(a, b Value) (bool, error) {

	if a.kind == KindNull || b.kind == KindNull {
		return a.kind == b.kind, nil
	}
	if a.kind != b.kind {
		return false, typeMismatch("cannot compare %s with %s", a.kind, b.kind)
	}
	switch a.kind {
	case KindInt, KindChara:
		return a.i == b.i, nil
	case KindString:
		return a.s == b.s, nil
	}
	return false, typeMismatch("cannot compare %s values", a.kind)
}

// Compare orders two ints or two strings.
func Compare(a, b Value) (int, error) {

	if a.kind != b.kind {
		return 0, typeMismatch("cannot order %s against %s", a.kind, b.kind)
	}
	switch a.kind {
	case KindInt:
		switch {
		case a.i < b.i:
			return -1, nil
		case a.i > b.i:
			return 1, nil
		}
		return 0, nil
	case KindString:
		return strings.Compare(a.s, b.s), nil
	}
	return 0, typeMismatch("cannot order %s values", a.kind)
}
