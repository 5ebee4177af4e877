package analyzer

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/conneroisu/viewc/internal/component"
	viewcerrors "github.com/conneroisu/viewc/internal/errors"
	"github.com/conneroisu/viewc/internal/template"
)

const (
	componentAccessor = "this.component"
	itemAccessor      = "this.item"
	indexAccessor     = "this.index"
)

// Factory is one node of the factory tree: a usage site of a component, a
// conditional or repeating block, or the body of such a block.
type Factory struct {
	tree   *Tree
	id     FactoryID
	kind   Kind
	parent FactoryID
	anchor *ViewNode

	children   map[int]FactoryID
	childOrder []FactoryID
	view       *View

	selfBindings []*Binding

	// KindComponent
	component component.Analyzer
	usedName  string

	// KindConditional, KindRepeating
	directive *Binding
	partial   FactoryID

	// KindPartialView
	owner FactoryID
}

// ID returns the factory's id.
func (f *Factory) ID() FactoryID { return f.id }

// Kind returns the factory variant.
func (f *Factory) Kind() Kind { return f.kind }

// Tree returns the tree the factory belongs to.
func (f *Factory) Tree() *Tree { return f.tree }

// IsRoot reports whether f is the entry component factory.
func (f *Factory) IsRoot() bool { return f.parent == NoFactory }

// Parent returns the parent factory. The root has none.
func (f *Factory) Parent() (*Factory, error) {
	if f.parent == NoFactory {
		return nil, viewcerrors.NewInvariantError(viewcerrors.ErrCodeRootHasNoParent,
			fmt.Sprintf("factory %d is the root and has no parent", f.id))
	}
	return f.tree.factories[f.parent], nil
}

// ParentID returns the parent id, NoFactory for the root.
func (f *Factory) ParentID() FactoryID { return f.parent }

// Children returns the child factories in document order.
func (f *Factory) Children() []*Factory {
	out := make([]*Factory, 0, len(f.childOrder))
	for _, id := range f.childOrder {
		out = append(out, f.tree.factories[id])
	}
	return out
}

// ChildAt returns the child factory anchored at the realized node with the given
// id.
func (f *Factory) ChildAt(nodeID int) (*Factory, bool) {
	id, ok := f.children[nodeID]
	if !ok {
		return nil, false
	}
	return f.tree.factories[id], true
}

// Anchor returns the realized node in the parent's view where this factory is
// spliced in, nil for the root. A partial view shares its directive's anchor.
func (f *Factory) Anchor() *ViewNode { return f.anchor }

// View returns the factory's realized view.
func (f *Factory) View() *View { return f.view }

// SelfBindings returns the bindings applied to this factory at its anchor.
func (f *Factory) SelfBindings() []*Binding { return f.selfBindings }

// Component returns the component analyzer of a component factory, nil otherwise.
func (f *Factory) Component() component.Analyzer { return f.component }

// UsedName returns the tag the component was used with, "" for the root and for
// non-component factories.
func (f *Factory) UsedName() string { return f.usedName }

// IsScopeBoundary reports whether the factory opens a new resolution scope. Only
// component factories do.
func (f *Factory) IsScopeBoundary() bool { return f.kind == KindComponent }

// IsDirective reports whether f is a conditional or repeating factory.
func (f *Factory) IsDirective() bool {
	return f.kind == KindConditional || f.kind == KindRepeating
}

// FirstScopeBoundaryUpwardsIncludingSelf walks parents until a component factory.
func (f *Factory) FirstScopeBoundaryUpwardsIncludingSelf() (*Factory, error) {
	for g := f; ; {
		if g.IsScopeBoundary() {
			return g, nil
		}
		if g.parent == NoFactory {
			return nil, viewcerrors.NewStructuralError(viewcerrors.ErrCodeNoScopeBoundary,
				fmt.Sprintf("no scope boundary above factory %d", f.id))
		}
		g = f.tree.factories[g.parent]
	}
}

// PartialView returns the body of a directive factory.
func (f *Factory) PartialView() (*Factory, error) {
	if !f.IsDirective() || f.partial == NoFactory {
		return nil, viewcerrors.NewStructuralError(viewcerrors.ErrCodeNoPartialView,
			fmt.Sprintf("%s factory %d has no partial view", f.kind, f.id))
	}
	return f.tree.factories[f.partial], nil
}

// Directive returns the directive owning a partial view.
func (f *Factory) Directive() (*Factory, bool) {
	if f.kind != KindPartialView || f.owner == NoFactory {
		return nil, false
	}
	return f.tree.factories[f.owner], true
}

// DirectiveBinding returns the guard or iterable binding of a directive factory,
// or of the directive owning a partial view.
func (f *Factory) DirectiveBinding() *Binding {
	switch f.kind {
	case KindConditional, KindRepeating:
		return f.directive
	case KindPartialView:
		if d, ok := f.Directive(); ok {
			return d.directive
		}
	}
	return nil
}

// BindingsToWatch returns the binding a directive re-evaluates: its guard or its
// iterable. Other factories watch nothing.
func (f *Factory) BindingsToWatch() []*Binding {
	if !f.IsDirective() || f.directive == nil {
		return nil
	}
	return []*Binding{f.directive}
}

// HasDefinedAndResolvesTo reports whether this factory, without asking its
// parent, defines the leftmost identifier of path, and returns its runtime
// accessor. Computed indexes in path are kept as written.
func (f *Factory) HasDefinedAndResolvesTo(path string) (string, bool) {
	root := path
	if i := strings.IndexAny(path, ".["); i >= 0 {
		root = path[:i]
	}
	if root == "" {
		return "", false
	}
	suffix := path[len(root):]

	switch f.kind {
	case KindComponent:
		if slices.Contains(f.component.VariableNames(), root) ||
			slices.Contains(f.component.MethodNames(), root) ||
			slices.Contains(f.component.OutputNames(), root) {
			return componentAccessor + "." + path, true
		}
		if id, ok := f.component.ConstantIdentifier(root); ok {
			return id + suffix, true
		}
		return "", false

	case KindPartialView:
		b := f.DirectiveBinding()
		if b == nil || b.Def().Kind() != template.BindingIteration {
			return "", false
		}
		if root == b.Def().ItemAlias() {
			return itemAccessor + suffix, true
		}
		if alias := b.Def().IndexAlias(); alias != "" && root == alias {
			return indexAccessor + suffix, true
		}
		return "", false

	default:
		return "", false
	}
}

// visibleNames lists every name resolvable from f, for suggestions.
func (f *Factory) visibleNames() []string {
	var names []string
	for g := f; g != nil; {
		switch g.kind {
		case KindComponent:
			names = append(names, g.component.VariableNames()...)
			names = append(names, g.component.MethodNames()...)
			names = append(names, g.component.OutputNames()...)
			names = append(names, g.component.ConstantNames()...)
		case KindPartialView:
			if b := g.DirectiveBinding(); b != nil && b.Def().Kind() == template.BindingIteration {
				names = append(names, b.Def().ItemAlias())
				if b.Def().IndexAlias() != "" {
					names = append(names, b.Def().IndexAlias())
				}
			}
		}
		if g.IsScopeBoundary() || g.parent == NoFactory {
			break
		}
		g = f.tree.factories[g.parent]
	}
	sort.Strings(names)
	return names
}

// scopeComponentName names the component whose template f belongs to.
func (f *Factory) scopeComponentName() string {
	if s, err := f.FirstScopeBoundaryUpwardsIncludingSelf(); err == nil {
		return s.component.Name()
	}
	return ""
}

