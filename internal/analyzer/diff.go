package analyzer

import (
	"slices"
	"sort"
)

// DomDiffMap maps each index of f's own view to the property reads f must
// compare to update that node. Anchors of child factories are not included.
// The result is a copy.
func (f *Factory) DomDiffMap() map[int][]*BoundValue {
	return cloneValues(f.domDiffMap())
}

func (f *Factory) domDiffMap() map[int][]*BoundValue {
	if m, ok := f.tree.memo.domDiff[f.id]; ok {
		return m
	}

	m := make(map[int][]*BoundValue)
	for _, n := range f.view.nodes {
		if n.IsAnchor() {
			continue
		}
		for _, b := range n.bindings {
			if b.value.responsible != f.id {
				continue
			}
			if values := b.value.diffable(); len(values) > 0 {
				m[n.index] = append(m[n.index], values...)
			}
		}
	}

	f.tree.memo.domDiff[f.id] = m
	return m
}

// FaDiffMap maps each direct child factory to the property reads f must compare
// before notifying that child: bindings at the child's anchor that f owns, and
// reads deeper inside the child's scope whose value flows through f. The result
// is a copy.
func (f *Factory) FaDiffMap() map[FactoryID][]*BoundValue {
	return cloneValues(f.faDiffMap())
}

func (f *Factory) faDiffMap() map[FactoryID][]*BoundValue {
	if m, ok := f.tree.memo.faDiff[f.id]; ok {
		return m
	}

	m := make(map[FactoryID][]*BoundValue)
	for _, c := range f.Children() {
		var values []*BoundValue
		for _, b := range c.anchor.bindings {
			if b.value.responsible == f.id {
				values = append(values, b.value.diffable()...)
			}
		}

		if !c.IsScopeBoundary() {
			for _, n := range c.DomNodesInScope() {
				for _, b := range n.bindings {
					for _, v := range b.value.diffable() {
						if f.forwards(v) {
							values = append(values, v)
						}
					}
				}
			}
		}

		if len(values) > 0 {
			m[c.id] = values
		}
	}

	f.tree.memo.faDiff[f.id] = m
	return m
}

// forwards reports whether a read owned by another factory is defined above f
// and so reaches its responsible factory through f.
func (f *Factory) forwards(v *BoundValue) bool {
	if v.responsible == f.id || v.definition == NoFactory {
		return false
	}
	from := f.tree.factories[v.responsible]
	path, err := from.PathTo(f.tree.factories[v.definition])
	if err != nil {
		return false
	}
	return slices.Contains(path, f)
}

// ResponsibleFor returns every property read f compares at runtime: those of
// DomDiffMap in index order, then those of FaDiffMap in child id order. A read
// of the same definition and path, computed indexes included, is reported once.
// The result is a copy.
func (f *Factory) ResponsibleFor() []*BoundValue {
	return slices.Clone(f.responsibleFor())
}

func (f *Factory) responsibleFor() []*BoundValue {
	if values, ok := f.tree.memo.responsible[f.id]; ok {
		return values
	}

	seen := make(map[string]bool)
	var out []*BoundValue
	add := func(values []*BoundValue) {
		for _, v := range values {
			if k := v.key(); !seen[k] {
				seen[k] = true
				out = append(out, v)
			}
		}
	}

	dom := f.domDiffMap()
	indexes := make([]int, 0, len(dom))
	for i := range dom {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)
	for _, i := range indexes {
		add(dom[i])
	}

	fa := f.faDiffMap()
	children := make([]FactoryID, 0, len(fa))
	for id := range fa {
		children = append(children, id)
	}
	slices.Sort(children)
	for _, id := range children {
		add(fa[id])
	}

	f.tree.memo.responsible[f.id] = out
	return out
}

// DiffablePropNames returns the paths, as written, of the reads in ResponsibleFor
// that f resolves itself.
func (f *Factory) DiffablePropNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, v := range f.responsibleFor() {
		path := v.RawPath()
		if seen[path] {
			continue
		}
		if _, ok := f.HasDefinedAndResolvesTo(path); ok {
			seen[path] = true
			names = append(names, path)
		}
	}
	return names
}

func cloneValues[K comparable](m map[K][]*BoundValue) map[K][]*BoundValue {
	out := make(map[K][]*BoundValue, len(m))
	for k, values := range m {
		out[k] = slices.Clone(values)
	}
	return out
}
