package analyzer

import (
	"fmt"
	"maps"
	"slices"
	"sort"

	viewcerrors "github.com/conneroisu/viewc/internal/errors"
	"github.com/conneroisu/viewc/internal/template"
)

// PropsBoundToView maps every property this factory resolves, and that some
// binding in its scope reads, to the property's runtime accessor. Properties
// are component variables and constants and the aliases of a repeat; methods
// and outputs are not. The result is a copy.
func (f *Factory) PropsBoundToView() map[string]string {
	return maps.Clone(f.propsBoundToView())
}

func (f *Factory) propsBoundToView() map[string]string {
	if bound, ok := f.tree.memo.bound[f.id]; ok {
		return bound
	}

	bound := make(map[string]string)
	var collect func(v *BoundValue)
	collect = func(v *BoundValue) {
		if v.definition == f.id && f.isProperty(v.expr.Root()) {
			root := v.expr.Root()
			if accessor, ok := f.HasDefinedAndResolvesTo(root); ok {
				bound[root] = accessor
			}
		}
		for _, r := range v.refs {
			collect(r)
		}
	}
	for _, n := range f.DomNodesInScope() {
		for _, b := range n.bindings {
			collect(b.value)
		}
	}

	f.tree.memo.bound[f.id] = bound
	return bound
}

// isProperty reports whether name, defined by f, holds data rather than a
// method or an output.
func (f *Factory) isProperty(name string) bool {
	if f.kind != KindComponent {
		return true
	}
	return !slices.Contains(f.component.MethodNames(), name) &&
		!slices.Contains(f.component.OutputNames(), name)
}

// FactoriesAffectedByCalling returns the component factories whose views must be
// re-checked after method runs in f's scope, in ascending id order. Effects that
// leave the component through output bindings are followed up the tree.
func (f *Factory) FactoriesAffectedByCalling(method string) ([]*Factory, error) {
	s, err := f.FirstScopeBoundaryUpwardsIncludingSelf()
	if err != nil {
		return nil, err
	}

	key := triggerKey{scope: s.id, method: method}
	if ids, ok := f.tree.memo.affected[key]; ok {
		return f.tree.lookup(ids), nil
	}

	c := s.component
	if !slices.Contains(c.MethodNames(), method) && !slices.Contains(c.OutputNames(), method) {
		known := append(append([]string(nil), c.MethodNames()...), c.OutputNames()...)
		msg := fmt.Sprintf("%s has no method %q", c.Name(), method)
		if m := viewcerrors.ClosestMatch(method, known); m != "" {
			msg += fmt.Sprintf(" (did you mean %q?)", m)
		}
		return nil, viewcerrors.NewUnresolvedReferenceError(viewcerrors.ErrCodeMethodNotFound, msg).
			WithComponent(c.Name())
	}

	affected := make(map[FactoryID]bool)
	visited := make(map[triggerKey]bool)
	propagate(s, callable(s, method), affected, visited)

	if modifiesBoundProps(s, method) {
		affected[s.id] = true
	}

	ids := make([]FactoryID, 0, len(affected))
	for id := range affected {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	f.tree.memo.affected[key] = ids
	return f.tree.lookup(ids), nil
}

// propagate follows every output of s named in called to the handler bound to it
// at s's usage site.
func propagate(s *Factory, called []string, affected map[FactoryID]bool, visited map[triggerKey]bool) {
	for _, b := range s.selfBindings {
		if b.Kind() != template.BindingOutput || !slices.Contains(called, b.Name()) {
			continue
		}
		handler := b.value
		if !handler.IsMethodCall() || handler.definition == NoFactory {
			continue
		}
		o, err := s.tree.factories[handler.definition].FirstScopeBoundaryUpwardsIncludingSelf()
		if err != nil {
			continue
		}
		h := handler.expr.Root()
		if !slices.Contains(o.component.MethodNames(), h) && !slices.Contains(o.component.OutputNames(), h) {
			continue
		}

		key := triggerKey{scope: o.id, method: h}
		if visited[key] {
			continue
		}
		visited[key] = true

		if modifiesBoundProps(o, h) {
			affected[o.id] = true
		}
		propagate(o, callable(o, h), affected, visited)
	}
}

// callable returns method and every method or output it reaches through calls.
func callable(s *Factory, method string) []string {
	return append([]string{method}, s.component.MethodsCalledFrom(method)...)
}

func modifiesBoundProps(s *Factory, method string) bool {
	bound := s.propsBoundToView()
	for _, prop := range s.component.PropsModifiableBy(method) {
		if _, ok := bound[prop]; ok {
			return true
		}
	}
	return false
}

// FactoriesAffectedByHandler is FactoriesAffectedByCalling for the method a bound
// handler invokes.
func (f *Factory) FactoriesAffectedByHandler(v *BoundValue) ([]*Factory, error) {
	if v == nil || !v.IsMethodCall() {
		return nil, viewcerrors.NewInvariantError(viewcerrors.ErrCodeMethodNotFound,
			"handler is not a method call")
	}
	return f.FactoriesAffectedByCalling(v.expr.Root())
}

// IsAffectedByCalling reports whether the view of f's scope boundary must be
// re-checked after method runs in that scope.
func (f *Factory) IsAffectedByCalling(method string) (bool, error) {
	s, err := f.FirstScopeBoundaryUpwardsIncludingSelf()
	if err != nil {
		return false, err
	}
	affected, err := f.FactoriesAffectedByCalling(method)
	if err != nil {
		return false, err
	}
	return slices.Contains(affected, s), nil
}

func (t *Tree) lookup(ids []FactoryID) []*Factory {
	out := make([]*Factory, len(ids))
	for i, id := range ids {
		out[i] = t.factories[id]
	}
	return out
}
