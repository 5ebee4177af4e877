// Package template holds the author-level template definition of a component and
// the parser that produces it.
//
// A definition is a Forest: an arena of Nodes addressed by stable integer ids, with
// parent/child links between them. Definitions are shared read-only by every usage
// site of the component; per-site state lives in the analyzer's realized views.
package template

import "github.com/conneroisu/viewc/internal/expression"

// NodeKind identifies a template node variant.
type NodeKind int

const (
	KindDom NodeKind = iota
	KindText
	KindInterpolation
	KindComponentUse
	KindConditional
	KindRepeating
)

// String returns the string representation of the node kind
func (k NodeKind) String() string {
	switch k {
	case KindDom:
		return "dom"
	case KindText:
		return "text"
	case KindInterpolation:
		return "interpolation"
	case KindComponentUse:
		return "component_use"
	case KindConditional:
		return "conditional"
	case KindRepeating:
		return "repeating"
	default:
		return "unknown"
	}
}

// BindingKind identifies the slot a binding writes to.
type BindingKind int

const (
	// BindingAttribute is a plain attribute on a native element: title="x".
	BindingAttribute BindingKind = iota
	// BindingProperty is a bracketed attribute on a native element: [value]="expr".
	BindingProperty
	// BindingEvent is a parenthesised attribute on a native element: (click)="fn()".
	BindingEvent
	// BindingInterpolation is the content of {{ expr }}.
	BindingInterpolation
	// BindingInput feeds a component input, bracketed or plain.
	BindingInput
	// BindingOutput subscribes a handler to a component output.
	BindingOutput
	// BindingCondition is the guard of an <if> block.
	BindingCondition
	// BindingIteration is the iterable of a <for> block.
	BindingIteration
)

// String returns the string representation of the binding kind
func (k BindingKind) String() string {
	switch k {
	case BindingAttribute:
		return "attribute"
	case BindingProperty:
		return "property"
	case BindingEvent:
		return "event"
	case BindingInterpolation:
		return "interpolation"
	case BindingInput:
		return "input"
	case BindingOutput:
		return "output"
	case BindingCondition:
		return "condition"
	case BindingIteration:
		return "iteration"
	default:
		return "unknown"
	}
}

// Binding associates a slot of a node with a bound value.
type Binding struct {
	kind       BindingKind
	name       string
	value      *expression.Expression
	itemAlias  string
	indexAlias string
	trackBy    string
}

// NewBinding creates a binding. Repeat aliases are set with WithAliases.
func NewBinding(kind BindingKind, name string, value *expression.Expression) *Binding {
	return &Binding{kind: kind, name: name, value: value}
}

// WithAliases sets the item/index aliases and track-by path of an iteration binding.
func (b *Binding) WithAliases(item, index, trackBy string) *Binding {
	b.itemAlias = item
	b.indexAlias = index
	b.trackBy = trackBy
	return b
}

func (b *Binding) Kind() BindingKind             { return b.kind }
func (b *Binding) Name() string                  { return b.name }
func (b *Binding) Value() *expression.Expression { return b.value }
func (b *Binding) ItemAlias() string             { return b.itemAlias }
func (b *Binding) IndexAlias() string            { return b.indexAlias }
func (b *Binding) TrackBy() string               { return b.trackBy }
func (b *Binding) IsInput() bool                 { return b.kind == BindingInput }
func (b *Binding) IsOutput() bool                { return b.kind == BindingOutput }
func (b *Binding) IsDirective() bool             { return b.kind == BindingCondition || b.kind == BindingIteration }

// IsNativeHTML reports whether the binding targets a plain DOM slot rather than a
// component input/output or a directive.
func (b *Binding) IsNativeHTML() bool {
	switch b.kind {
	case BindingAttribute, BindingProperty, BindingEvent, BindingInterpolation:
		return true
	default:
		return false
	}
}

// Node is one node of a template definition.
type Node struct {
	id       int
	kind     NodeKind
	tag      string
	text     string
	line     int
	bindings []*Binding
	children []*Node
	parent   *Node
}

// ID returns the node's index in its forest.
func (n *Node) ID() int { return n.id }

// Kind returns the node variant.
func (n *Node) Kind() NodeKind { return n.kind }

// Tag returns the element name for DOM nodes and the registered used name for
// component uses.
func (n *Node) Tag() string { return n.tag }

// Text returns the literal content of a text node.
func (n *Node) Text() string { return n.text }

// Line returns the 1-based source line the node starts on.
func (n *Node) Line() int { return n.line }

// Bindings returns the node's view bindings.
func (n *Node) Bindings() []*Binding { return n.bindings }

// Children returns the node's children in document order.
func (n *Node) Children() []*Node { return n.children }

// Parent returns the parent node, or nil for roots.
func (n *Node) Parent() *Node { return n.parent }

// IsPureDOM reports whether the node is realized directly in its factory's view
// without a factory of its own.
func (n *Node) IsPureDOM() bool {
	return n.kind == KindDom || n.kind == KindText || n.kind == KindInterpolation
}

// DirectiveBinding returns the guard or iterable binding of a block node.
func (n *Node) DirectiveBinding() *Binding {
	for _, b := range n.bindings {
		if b.IsDirective() {
			return b
		}
	}
	return nil
}

// Forest is a parsed template definition.
type Forest struct {
	name  string
	roots []*Node
	nodes []*Node
}

// NewForest creates an empty forest. Nodes are added with Add.
func NewForest(name string) *Forest {
	return &Forest{name: name}
}

// Add appends a node under parent (nil for a root) and returns it.
func (f *Forest) Add(parent *Node, kind NodeKind, tag, text string, line int, bindings ...*Binding) *Node {
	n := &Node{
		id:       len(f.nodes),
		kind:     kind,
		tag:      tag,
		text:     text,
		line:     line,
		bindings: bindings,
		parent:   parent,
	}
	f.nodes = append(f.nodes, n)
	if parent == nil {
		f.roots = append(f.roots, n)
	} else {
		parent.children = append(parent.children, n)
	}
	return n
}

// Name returns the template's name, usually its file name.
func (f *Forest) Name() string { return f.name }

// Roots returns the top-level nodes.
func (f *Forest) Roots() []*Node { return f.roots }

// Len returns the number of nodes.
func (f *Forest) Len() int { return len(f.nodes) }

// Node returns the node with the given id.
func (f *Forest) Node(id int) *Node {
	if id < 0 || id >= len(f.nodes) {
		return nil
	}
	return f.nodes[id]
}

// Nodes returns all nodes in pre-order.
func (f *Forest) Nodes() []*Node { return f.nodes }
