package analyzer

// TraversalControl steers a WalkScope visitor.
type TraversalControl int

const (
	// Continue descends into the visited factory's children.
	Continue TraversalControl = iota
	// SkipChildren does not descend into the visited factory's children.
	SkipChildren
	// Stop ends the walk.
	Stop
)

// WalkScope visits f and the factories of its scope in pre-order. Nested scope
// boundaries are visited but never descended into.
func (f *Factory) WalkScope(visit func(*Factory) TraversalControl) {
	stack := []FactoryID{f.id}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		g := f.tree.factories[id]

		switch visit(g) {
		case Stop:
			return
		case SkipChildren:
			continue
		}
		if g != f && g.IsScopeBoundary() {
			continue
		}
		for i := len(g.childOrder) - 1; i >= 0; i-- {
			stack = append(stack, g.childOrder[i])
		}
	}
}

// FactoriesInScope returns f and the factories of its scope in pre-order,
// nested scope boundaries included.
func (f *Factory) FactoriesInScope() []*Factory {
	var out []*Factory
	f.WalkScope(func(g *Factory) TraversalControl {
		out = append(out, g)
		return Continue
	})
	return out
}

// DomNodesInScope returns the realized nodes of every view in f's scope, in
// pre-order of their factories. Views of nested scope boundaries are excluded.
func (f *Factory) DomNodesInScope() []*ViewNode {
	var out []*ViewNode
	f.WalkScope(func(g *Factory) TraversalControl {
		if g != f && g.IsScopeBoundary() {
			return SkipChildren
		}
		out = append(out, g.view.nodes...)
		return Continue
	})
	return out
}
