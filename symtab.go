package emuera

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

const maxIndices = 3

//
// VariableStore is the external holder of indexed integer and string
// variables. A lookup reports false when the store has no such name;
// the evaluator then falls back to the other kind and finally to 0
//

type VariableStore interface {
	GetInt(name string, idx ...int64) (int64, bool)
	GetStr(name string, idx ...int64) (string, bool)
	SetInt(name string, v int64, idx ...int64) error
	SetStr(name string, v string, idx ...int64) error
}

type indexKey [maxIndices]int64

func makeKey(idx []int64) (indexKey, bool) {

	var k indexKey

	if len(idx) > maxIndices {
		return k, false
	}
	copy(k[:], idx)
	return k, true
}

//
// A complication: integer and string variables may share a name, so
// MemoryStore keeps two tables, as a symbol table for each kind. A
// name with no indices addresses element 0
//

type symtabNode struct {
	declared bool
	dims     []int64
	ints     map[indexKey]int64
	strs     map[indexKey]string
	fillInt  int64
	fillStr  string
}

func (sym *symtabNode) getInt(k indexKey) int64 {

	if v, ok := sym.ints[k]; ok {
		return v
	}
	return sym.fillInt
}

func (sym *symtabNode) getStr(k indexKey) string {

	if v, ok := sym.strs[k]; ok {
		return v
	}
	return sym.fillStr
}

type MemoryStore struct {
	ints   map[string]*symtabNode
	strs   map[string]*symtabNode
	strict bool

	trace  io.Writer
	traced map[string]bool
}

type StoreOption func(*MemoryStore)

// Strict makes writes to undeclared names fail with ErrVariableNotFound.
func Strict() StoreOption {
	return func(m *MemoryStore) { m.strict = true }
}

// TraceVars logs every change to the named variables, or to all of
// them when no names are given.
func TraceVars(w io.Writer, names ...string) StoreOption {

	return func(m *MemoryStore) {
		m.trace = w
		if len(names) > 0 {
			m.traced = make(map[string]bool)
			for _, n := range names {
				m.traced[n] = true
			}
		}
	}
}

func NewMemoryStore(opts ...StoreOption) *MemoryStore {

	m := &MemoryStore{
		ints: make(map[string]*symtabNode),
		strs: make(map[string]*symtabNode),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

//
// DeclareInt and DeclareStr create a variable with optional bounds.
// Each dimension admits indices 0 through dim-1
//

func (m *MemoryStore) DeclareInt(name string, dims ...int64) {
	m.ints[name] = &symtabNode{declared: true, dims: dims, ints: make(map[indexKey]int64)}
}

func (m *MemoryStore) DeclareStr(name string, dims ...int64) {
	m.strs[name] = &symtabNode{declared: true, dims: dims, strs: make(map[indexKey]string)}
}

func (sym *symtabNode) checkIndex(name string, idx []int64) (indexKey, error) {

	k, ok := makeKey(idx)
	if !ok {
		return k, invalidOperation("%s takes at most %d indices", name, maxIndices)
	}
	for i, d := range sym.dims {
		if k[i] < 0 || k[i] >= d {
			return k, invalidOperation("index %d of %s out of range 0..%d", k[i], name, d-1)
		}
	}
	return k, nil
}

func (m *MemoryStore) GetInt(name string, idx ...int64) (int64, bool) {

	sym, ok := m.ints[name]
	if !ok {
		return 0, false
	}
	k, err := sym.checkIndex(name, idx)
	if err != nil {
		return 0, false
	}
	return sym.getInt(k), true
}

func (m *MemoryStore) GetStr(name string, idx ...int64) (string, bool) {

	sym, ok := m.strs[name]
	if !ok {
		return "", false
	}
	k, err := sym.checkIndex(name, idx)
	if err != nil {
		return "", false
	}
	return sym.getStr(k), true
}

func (m *MemoryStore) SetInt(name string, v int64, idx ...int64) error {

	sym, ok := m.ints[name]
	if !ok {
		if m.strict {
			return newError(ErrVariableNotFound, "%s", name)
		}
		if _, isStr := m.strs[name]; isStr {
			return typeMismatch("%s holds strings", name)
		}
		sym = &symtabNode{ints: make(map[indexKey]int64)}
		m.ints[name] = sym
	}
	k, err := sym.checkIndex(name, idx)
	if err != nil {
		return err
	}
	old := sym.getInt(k)
	sym.ints[k] = v
	m.traceVar(name, idx, old, v)
	return nil
}

func (m *MemoryStore) SetStr(name string, v string, idx ...int64) error {

	sym, ok := m.strs[name]
	if !ok {
		if m.strict {
			return newError(ErrVariableNotFound, "%s", name)
		}
		if _, isInt := m.ints[name]; isInt {
			return typeMismatch("%s holds integers", name)
		}
		sym = &symtabNode{strs: make(map[indexKey]string)}
		m.strs[name] = sym
	}
	k, err := sym.checkIndex(name, idx)
	if err != nil {
		return err
	}
	old := sym.getStr(k)
	sym.strs[k] = v
	m.traceVar(name, idx, old, v)
	return nil
}

//
// Reset clears every value but keeps declarations. Undeclared names
// created by writes go away entirely
//

func (m *MemoryStore) Reset() {

	for name, sym := range m.ints {
		if !sym.declared {
			delete(m.ints, name)
			continue
		}
		sym.ints = make(map[indexKey]int64)
		sym.fillInt = 0
	}
	for name, sym := range m.strs {
		if !sym.declared {
			delete(m.strs, name)
			continue
		}
		sym.strs = make(map[indexKey]string)
		sym.fillStr = ""
	}
}

//
// Fill sets every element of name to v. A null v clears the variable
// to 0 or "". Names the store does not hold report ErrVariableNotFound
//

func (m *MemoryStore) Fill(name string, v Value) error {

	if sym, ok := m.ints[name]; ok {
		if !v.IsNull() && v.Kind() != KindInt {
			return typeMismatch("%s holds integers", name)
		}
		old := sym.fillInt
		sym.ints = make(map[indexKey]int64)
		sym.fillInt = v.Int64()
		m.traceVar(name, nil, old, sym.fillInt)
		return nil
	}
	if sym, ok := m.strs[name]; ok {
		if !v.IsNull() && v.Kind() != KindString {
			return typeMismatch("%s holds strings", name)
		}
		old := sym.fillStr
		sym.strs = make(map[indexKey]string)
		sym.fillStr = v.Text()
		m.traceVar(name, nil, old, sym.fillStr)
		return nil
	}
	return newError(ErrVariableNotFound, "%s", name)
}

//
// Cell is one stored element. Fill marks the value every unset element
// of the variable reads as
//

type Cell struct {
	Name  string   `cbor:"1,keyasint"`
	Index indexKey `cbor:"2,keyasint"`
	IsStr bool     `cbor:"3,keyasint,omitempty"`
	Int   int64    `cbor:"4,keyasint,omitempty"`
	Str   string   `cbor:"5,keyasint,omitempty"`
	Fill  bool     `cbor:"6,keyasint,omitempty"`
	Dims  []int64  `cbor:"7,keyasint,omitempty"`
	Decl  bool     `cbor:"8,keyasint,omitempty"`
}

//
// Snapshot lists every variable as cells, ordered by name and index.
// A variable with nothing set still yields its fill cell, so that
// declarations survive a Restore
//

func (m *MemoryStore) Snapshot() []Cell {

	var cells []Cell

	ints, strs := m.Names()
	for _, name := range ints {
		sym := m.ints[name]
		cells = append(cells, Cell{Name: name, Int: sym.fillInt, Fill: true, Dims: sym.dims, Decl: sym.declared})
		for _, k := range sortedKeys(sym.ints) {
			cells = append(cells, Cell{Name: name, Index: k, Int: sym.ints[k]})
		}
	}
	for _, name := range strs {
		sym := m.strs[name]
		cells = append(cells, Cell{Name: name, IsStr: true, Str: sym.fillStr, Fill: true, Dims: sym.dims, Decl: sym.declared})
		for _, k := range sortedKeys(sym.strs) {
			cells = append(cells, Cell{Name: name, Index: k, IsStr: true, Str: sym.strs[k]})
		}
	}
	return cells
}

//
// Restore replaces the named variables with the cells. Variables the
// cells do not mention are left alone
//

func (m *MemoryStore) Restore(cells []Cell) {

	for _, c := range cells {
		if c.Fill {
			sym := &symtabNode{declared: c.Decl, dims: c.Dims}
			if c.IsStr {
				sym.strs, sym.fillStr = make(map[indexKey]string), c.Str
				m.strs[c.Name] = sym
				delete(m.ints, c.Name)
			} else {
				sym.ints, sym.fillInt = make(map[indexKey]int64), c.Int
				m.ints[c.Name] = sym
				delete(m.strs, c.Name)
			}
			continue
		}
		if c.IsStr {
			if sym, ok := m.strs[c.Name]; ok {
				sym.strs[c.Index] = c.Str
			}
		} else if sym, ok := m.ints[c.Name]; ok {
			sym.ints[c.Index] = c.Int
		}
	}
}

func sortedKeys[V any](cells map[indexKey]V) []indexKey {

	keys := make([]indexKey, 0, len(cells))
	for k := range cells {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		for n := 0; n < maxIndices; n++ {
			if keys[i][n] != keys[j][n] {
				return keys[i][n] < keys[j][n]
			}
		}
		return false
	})
	return keys
}

//
// Names lists the integer and string variables, sorted
//

func (m *MemoryStore) Names() (ints []string, strs []string) {

	for n := range m.ints {
		ints = append(ints, n)
	}
	for n := range m.strs {
		strs = append(strs, n)
	}
	sort.Strings(ints)
	sort.Strings(strs)
	return ints, strs
}

func (m *MemoryStore) traceVar(name string, idx []int64, oval, nval any) {

	if m.trace == nil || (m.traced != nil && !m.traced[name]) {
		return
	}

	var sb strings.Builder

	sb.WriteString("Variable ")
	sb.WriteString(name)
	for _, i := range idx {
		fmt.Fprintf(&sb, ":%d", i)
	}
	switch oval.(type) {
	case string:
		fmt.Fprintf(&sb, " changed from %q to %q", oval, nval)
	default:
		fmt.Fprintf(&sb, " changed from %d to %d", oval, nval)
	}
	fmt.Fprintln(m.trace, sb.String())
}
