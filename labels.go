package emuera

import (
	"strings"

	"github.com/danswartzendruber/avl"
)

//
// The label registry maps function names to their definitions, kept
// in an AVL tree ordered by name so listings come out sorted. Names
// are case-insensitive. A normal function has exactly one definition;
// an event function collects every definition into priority groups
//

const eventGroupCount = 4

// EventGroups holds the event implementations in dispatch order:
// #PRI, unmarked, #LATER, then the #PRI #LATER second pass.
type EventGroups [eventGroupCount][]*FunctionDef

func (g *EventGroups) Len() int {

	n := 0
	for _, grp := range g {
		n += len(grp)
	}
	return n
}

type labelNode struct {
	avl    avl.AvlNode
	name   string
	def    *FunctionDef
	groups EventGroups
	event  bool
}

type LabelRegistry struct {
	root  *avl.AvlNode
	count int
}

func NewLabelRegistry() *LabelRegistry {
	return &LabelRegistry{}
}

func labelKey(name string) string {
	return strings.ToUpper(name)
}

func cmpLabelKey(key any, node any) int {
	return strings.Compare(key.(string), node.(*labelNode).name)
}

func cmpLabelNode(item any, node any) int {
	return strings.Compare(item.(*labelNode).name, node.(*labelNode).name)
}

func (r *LabelRegistry) lookup(name string) *labelNode {

	p := avl.AvlTreeLookup(r.root, labelKey(name), cmpLabelKey)
	if p != nil {
		return p.(*labelNode)
	}
	return nil
}

//
// Add registers a definition. A second definition of a normal function
// is rejected, as is mixing event and normal definitions under one name
//

func (r *LabelRegistry) Add(def *FunctionDef) error {

	key := labelKey(def.Name)
	lbl := r.lookup(key)

	if lbl == nil {
		lbl = &labelNode{name: key, event: def.IsEvent()}
		p := avl.AvlTreeInsert(&r.root, &lbl.avl, lbl, cmpLabelNode)
		interpAssert(p == nil, "label "+key+" already in tree")
		r.count++
	} else if lbl.event != def.IsEvent() {
		return newError(ErrDuplicateLabel, "@%s defined as both event and normal function", key)
	} else if !lbl.event {
		return newError(ErrDuplicateLabel, "@%s (first defined at %s)", key, lbl.def.Pos)
	}

	if !lbl.event {
		lbl.def = def
		return nil
	}

	pri, later := def.Has(AttrPri), def.Has(AttrLater)

	switch {
	case pri && later:
		lbl.groups[0] = append(lbl.groups[0], def)
		lbl.groups[3] = append(lbl.groups[3], def)
	case pri:
		lbl.groups[0] = append(lbl.groups[0], def)
	case later:
		lbl.groups[2] = append(lbl.groups[2], def)
	default:
		lbl.groups[1] = append(lbl.groups[1], def)
	}
	return nil
}

// Remove drops a name and all its definitions.
func (r *LabelRegistry) Remove(name string) bool {

	lbl := r.lookup(name)
	if lbl == nil {
		return false
	}
	avl.AvlTreeRemove(&r.root, &lbl.avl)
	r.count--
	return true
}

func (r *LabelRegistry) ResolveNonEvent(name string) (*FunctionDef, error) {

	lbl := r.lookup(name)
	if lbl == nil {
		return nil, newError(ErrLabelNotFound, "@%s", labelKey(name))
	}
	if lbl.event {
		return nil, newError(ErrEventKind, "@%s", lbl.name)
	}
	return lbl.def, nil
}

func (r *LabelRegistry) ResolveEvent(name string) (*EventGroups, error) {

	lbl := r.lookup(name)
	if lbl == nil {
		return nil, newError(ErrLabelNotFound, "@%s", labelKey(name))
	}
	if !lbl.event {
		return nil, newError(ErrNonEventKind, "@%s", lbl.name)
	}
	groups := lbl.groups
	return &groups, nil
}

// Lookup reports whether name is registered and whether it is an event.
func (r *LabelRegistry) Lookup(name string) (found bool, event bool) {

	lbl := r.lookup(name)
	if lbl == nil {
		return false, false
	}
	return true, lbl.event
}

func (r *LabelRegistry) Len() int {
	return r.count
}

// Names lists every registered name in order.
func (r *LabelRegistry) Names() []string {

	names := make([]string, 0, r.count)
	for p := avl.AvlTreeFirstInOrder(r.root); p != nil; {
		lbl := p.(*labelNode)
		names = append(names, lbl.name)
		p = avl.AvlTreeNextInOrder(&lbl.avl)
	}
	return names
}
