package analyzer

import (
	"fmt"

	viewcerrors "github.com/conneroisu/viewc/internal/errors"
	"github.com/conneroisu/viewc/internal/expression"
	"github.com/conneroisu/viewc/internal/template"
)

// View is a factory's own realized copy of its part of a template. Its nodes are
// numbered in pre-order; the numbers index the runtime array of DOM nodes.
type View struct {
	owner FactoryID
	roots []*ViewNode
	nodes []*ViewNode
}

// Roots returns the top-level realized nodes.
func (v *View) Roots() []*ViewNode { return v.roots }

// Nodes returns every realized node in index order.
func (v *View) Nodes() []*ViewNode { return v.nodes }

// Len returns the number of realized nodes.
func (v *View) Len() int { return len(v.nodes) }

// Node returns the node at index, or nil.
func (v *View) Node(index int) *ViewNode {
	if index < 0 || index >= len(v.nodes) {
		return nil
	}
	return v.nodes[index]
}

// IndexesFor returns the indexes of every realization of def in this view.
func (v *View) IndexesFor(def *template.Node) []int {
	var out []int
	for _, n := range v.nodes {
		if n.def == def {
			out = append(out, n.index)
		}
	}
	return out
}

// SingleIndexFor returns the index of def, failing unless it is realized exactly
// once in this view.
func (v *View) SingleIndexFor(def *template.Node) (int, error) {
	indexes := v.IndexesFor(def)
	if len(indexes) != 1 {
		return -1, viewcerrors.NewInvariantError(viewcerrors.ErrCodeAmbiguousIndex,
			fmt.Sprintf("expected exactly one index for template node %d, found %d", def.ID(), len(indexes)))
	}
	return indexes[0], nil
}

// ViewNode is one realized template node.
type ViewNode struct {
	id          int
	index       int
	def         *template.Node
	parent      *ViewNode
	children    []*ViewNode
	bindings    []*Binding
	owner       FactoryID
	responsible FactoryID
	child       FactoryID
}

// ID returns the tree-wide unique id of the node.
func (n *ViewNode) ID() int { return n.id }

// Index returns the node's position in its view.
func (n *ViewNode) Index() int { return n.index }

// Def returns the template definition node.
func (n *ViewNode) Def() *template.Node { return n.def }

// Parent returns the enclosing realized node in the same view, or nil.
func (n *ViewNode) Parent() *ViewNode { return n.parent }

// Children returns the realized children in the same view.
func (n *ViewNode) Children() []*ViewNode { return n.children }

// Bindings returns the resolved bindings of the node.
func (n *ViewNode) Bindings() []*Binding { return n.bindings }

// Owner returns the id of the factory whose view holds the node.
func (n *ViewNode) Owner() FactoryID { return n.owner }

// Responsible returns the id of the factory that re-checks the node at runtime.
func (n *ViewNode) Responsible() FactoryID { return n.responsible }

// IsAnchor reports whether a child factory is spliced in at this node.
func (n *ViewNode) IsAnchor() bool { return n.child != NoFactory }

// ChildFactory returns the id of the factory anchored at this node, or NoFactory.
func (n *ViewNode) ChildFactory() FactoryID { return n.child }

// Binding is a template binding realized at one node.
type Binding struct {
	def   *template.Binding
	node  *ViewNode
	value *BoundValue
}

// Def returns the template binding.
func (b *Binding) Def() *template.Binding { return b.def }

// Kind returns the slot kind.
func (b *Binding) Kind() template.BindingKind { return b.def.Kind() }

// Name returns the slot name.
func (b *Binding) Name() string { return b.def.Name() }

// Node returns the realized node the binding is attached to.
func (b *Binding) Node() *ViewNode { return b.node }

// Value returns the resolved bound value.
func (b *Binding) Value() *BoundValue { return b.value }

// BoundValue is an expression together with the factories it was resolved
// against.
type BoundValue struct {
	expr        *expression.Expression
	definition  FactoryID
	responsible FactoryID
	accessor    string
	// id names what the value reads: the defining factory and the path with
	// each computed index replaced by the id of its own read.
	id   string
	refs []*BoundValue
}

// Expression returns the parsed expression.
func (v *BoundValue) Expression() *expression.Expression { return v.expr }

// RawPath returns the path as written, e.g. "user.name" or "rows[i].label".
func (v *BoundValue) RawPath() string { return v.expr.RawPath() }

// IsMethodCall reports whether the value is a call.
func (v *BoundValue) IsMethodCall() bool { return v.expr.IsMethodCall() }

// IsPropertyAccess reports whether the value reads a member path.
func (v *BoundValue) IsPropertyAccess() bool { return v.expr.IsPropertyAccess() }

// IsConstant reports whether the value is a literal.
func (v *BoundValue) IsConstant() bool { return v.expr.IsConstant() }

// UsesPlaceholder reports whether the value receives the event payload.
func (v *BoundValue) UsesPlaceholder() bool { return v.expr.UsesPlaceholder() }

// Definition returns the id of the factory whose scope supplies the value, or
// NoFactory for constants and the placeholder.
func (v *BoundValue) Definition() FactoryID { return v.definition }

// Responsible returns the id of the factory that re-evaluates the value.
func (v *BoundValue) Responsible() FactoryID { return v.responsible }

// Accessor returns the runtime accessor the value resolved to, such as
// "this.component.count", "this.item.label" or
// "this.component.Names[this.index].first".
func (v *BoundValue) Accessor() string { return v.accessor }

// Refs returns the resolved values read by computed indexes and call arguments.
func (v *BoundValue) Refs() []*BoundValue { return v.refs }

// key identifies what a value reads, independent of where it is bound.
func (v *BoundValue) key() string { return v.id }

// diffable returns the property reads a change check must compare: the value
// itself and the reads of its computed indexes. Calls and constants have none.
func (v *BoundValue) diffable() []*BoundValue {
	if !v.IsPropertyAccess() || v.definition == NoFactory {
		return nil
	}
	out := []*BoundValue{v}
	for _, r := range v.refs {
		out = append(out, r.diffable()...)
	}
	return out
}
