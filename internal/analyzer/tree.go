// Package analyzer builds the factory tree of a component project and answers the
// static-analysis queries a code generator needs: scope resolution, paths between
// factories, invalidation sets and diff maps.
//
// Factories live in an arena owned by a Tree and refer to each other by
// FactoryID. The tree is built once by a ProjectAnalyzer and is immutable
// afterwards. Derived queries are memoized on the tree by factory id; a Tree is
// not safe for concurrent use.
package analyzer

import (
	"github.com/conneroisu/viewc/internal/template"
)

// FactoryID identifies a factory within its tree.
type FactoryID int

// NoFactory is the id used where no factory applies, such as the parent of the
// root or the definition factory of a constant.
const NoFactory FactoryID = -1

// Kind is the factory variant.
type Kind int

const (
	// KindComponent opens a new scope for one usage site of a component.
	KindComponent Kind = iota
	// KindConditional is the factory of an <if> block.
	KindConditional
	// KindRepeating is the factory of a <for> block.
	KindRepeating
	// KindPartialView is the realized body of a conditional or repeating block.
	KindPartialView
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindComponent:
		return "component"
	case KindConditional:
		return "conditional"
	case KindRepeating:
		return "repeating"
	case KindPartialView:
		return "partial_view"
	default:
		return "unknown"
	}
}

// Tree is the arena of factories produced by one build.
type Tree struct {
	factories  []*Factory
	nextNodeID int
	extension  string
	memo       *memo
}

type pathKey struct {
	from, to FactoryID
}

type triggerKey struct {
	scope  FactoryID
	method string
}

type memo struct {
	paths       map[pathKey][]FactoryID
	affected    map[triggerKey][]FactoryID
	bound       map[FactoryID]map[string]string
	domDiff     map[FactoryID]map[int][]*BoundValue
	faDiff      map[FactoryID]map[FactoryID][]*BoundValue
	responsible map[FactoryID][]*BoundValue
}

func newTree(extension string) *Tree {
	return &Tree{
		extension: extension,
		memo: &memo{
			paths:       make(map[pathKey][]FactoryID),
			affected:    make(map[triggerKey][]FactoryID),
			bound:       make(map[FactoryID]map[string]string),
			domDiff:     make(map[FactoryID]map[int][]*BoundValue),
			faDiff:      make(map[FactoryID]map[FactoryID][]*BoundValue),
			responsible: make(map[FactoryID][]*BoundValue),
		},
	}
}

// Root returns the factory of the entry component.
func (t *Tree) Root() *Factory {
	if len(t.factories) == 0 {
		return nil
	}
	return t.factories[0]
}

// Factory returns the factory with the given id, or nil.
func (t *Tree) Factory(id FactoryID) *Factory {
	if id < 0 || int(id) >= len(t.factories) {
		return nil
	}
	return t.factories[id]
}

// Factories returns every factory in creation order, which is a pre-order walk of
// the tree.
func (t *Tree) Factories() []*Factory {
	out := make([]*Factory, len(t.factories))
	copy(out, t.factories)
	return out
}

// Len returns the number of factories.
func (t *Tree) Len() int { return len(t.factories) }

func (t *Tree) newFactory(kind Kind, parent FactoryID, anchor *ViewNode) *Factory {
	f := &Factory{
		tree:     t,
		id:       FactoryID(len(t.factories)),
		kind:     kind,
		parent:   parent,
		anchor:   anchor,
		children: make(map[int]FactoryID),
		partial:  NoFactory,
		owner:    NoFactory,
	}
	f.view = &View{owner: f.id}
	t.factories = append(t.factories, f)
	return f
}

// realizeNode appends a realized copy of def to view under parent.
func (t *Tree) realizeNode(view *View, parent *ViewNode, def *template.Node) *ViewNode {
	vn := &ViewNode{
		id:          t.nextNodeID,
		index:       len(view.nodes),
		def:         def,
		parent:      parent,
		owner:       view.owner,
		responsible: view.owner,
		child:       NoFactory,
	}
	t.nextNodeID++
	view.nodes = append(view.nodes, vn)
	if parent == nil {
		view.roots = append(view.roots, vn)
	} else {
		parent.children = append(parent.children, vn)
	}
	return vn
}
