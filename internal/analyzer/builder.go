package analyzer

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/conneroisu/viewc/internal/component"
	viewcerrors "github.com/conneroisu/viewc/internal/errors"
	"github.com/conneroisu/viewc/internal/expression"
	"github.com/conneroisu/viewc/internal/logging"
	"github.com/conneroisu/viewc/internal/template"
)

// DefaultFileExtension is the extension of generated factory files.
const DefaultFileExtension = ".js"

// Option configures a ProjectAnalyzer.
type Option func(*ProjectAnalyzer)

// WithLogger sets the logger used while building.
func WithLogger(logger logging.Logger) Option {
	return func(p *ProjectAnalyzer) {
		p.logger = logger.WithComponent("analyzer")
	}
}

// WithFileExtension sets the extension used by FactoryFilenameWithExtension.
func WithFileExtension(ext string) Option {
	return func(p *ProjectAnalyzer) {
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		p.extension = ext
	}
}

// ProjectAnalyzer builds the factory tree of one entry component.
type ProjectAnalyzer struct {
	entry     component.Declaration
	loader    component.Loader
	logger    logging.Logger
	extension string

	analyzers map[string]component.Analyzer
	tree      *Tree
	built     bool
}

// NewProjectAnalyzer creates an analyzer for the given entry component.
func NewProjectAnalyzer(entry component.Declaration, loader component.Loader, opts ...Option) *ProjectAnalyzer {
	p := &ProjectAnalyzer{
		entry:     entry,
		loader:    loader,
		logger:    logging.NewNopLogger(),
		extension: DefaultFileExtension,
		analyzers: make(map[string]component.Analyzer),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// FactoryTree returns the factory tree, building it on first use.
func (p *ProjectAnalyzer) FactoryTree(ctx context.Context) (*Tree, error) {
	if p.built {
		if p.tree == nil {
			return nil, viewcerrors.NewInvariantError(viewcerrors.ErrCodeTreeAlreadyBuilt,
				"a previous build of the factory tree failed")
		}
		return p.tree, nil
	}
	return p.Build(ctx)
}

// Build constructs the factory tree. It may only be called once.
func (p *ProjectAnalyzer) Build(ctx context.Context) (*Tree, error) {
	if p.built {
		return nil, viewcerrors.ErrTreeAlreadyBuilt()
	}
	p.built = true

	perf := logging.StartOperation(p.logger, "build_factory_tree")
	b := &builder{
		ctx:       ctx,
		project:   p,
		tree:      newTree(p.extension),
		ancestors: make(map[string]bool),
	}

	if _, err := b.component(p.entry, NoFactory, nil, ""); err != nil {
		perf.EndWithError(ctx, err)
		return nil, err
	}
	if err := b.checkRequiredInputsInComponents(); err != nil {
		perf.EndWithError(ctx, err)
		return nil, err
	}

	p.tree = b.tree
	perf.End(ctx, "entry", p.entry.ID(), "factories", b.tree.Len())

	return p.tree, nil
}

func (p *ProjectAnalyzer) analyzer(decl component.Declaration) (component.Analyzer, error) {
	if a, ok := p.analyzers[decl.ID()]; ok {
		return a, nil
	}
	a, err := p.loader.Analyzer(decl)
	if err != nil {
		return nil, err
	}
	if a.Template() == nil {
		return nil, viewcerrors.NewStructuralError(viewcerrors.ErrCodeInvalidTemplate,
			"component has no template").WithComponent(decl.ID())
	}
	p.analyzers[decl.ID()] = a
	return a, nil
}

// builder holds the state of one pre-order construction pass.
type builder struct {
	ctx       context.Context
	project   *ProjectAnalyzer
	tree      *Tree
	ancestors map[string]bool
}

// component creates the factory of one component usage site and realizes the
// component's template under it.
func (b *builder) component(decl component.Declaration, parent FactoryID, anchor *ViewNode, usedName string) (*Factory, error) {
	if err := b.ctx.Err(); err != nil {
		return nil, err
	}
	if b.ancestors[decl.ID()] {
		return nil, viewcerrors.NewStructuralError(viewcerrors.ErrCodeRegistrationCycle,
			fmt.Sprintf("component %s is used inside itself", decl.ID())).WithComponent(decl.ID())
	}

	a, err := b.project.analyzer(decl)
	if err != nil {
		return nil, err
	}

	f := b.tree.newFactory(KindComponent, parent, anchor)
	f.component = a
	f.usedName = usedName
	if anchor != nil {
		f.selfBindings = anchor.bindings
		if err := b.checkSelfBindings(f); err != nil {
			return nil, err
		}
		if err := b.register(f); err != nil {
			return nil, err
		}
	}
	b.project.logger.Debug(b.ctx, "Factory created", "id", f.id, "kind", f.kind, "component", decl.ID())

	b.ancestors[decl.ID()] = true
	defer delete(b.ancestors, decl.ID())

	return f, b.realize(f, nil, a.Template().Roots())
}

// directive creates a conditional or repeating factory anchored at anchor and its
// partial view, and realizes the block's children into the partial view.
func (b *builder) directive(kind Kind, parent *Factory, anchor *ViewNode) error {
	d := b.tree.newFactory(kind, parent.id, anchor)
	for _, binding := range anchor.bindings {
		if binding.def.IsDirective() {
			d.directive = binding
		}
	}
	if err := b.register(d); err != nil {
		return err
	}

	pv := b.tree.newFactory(KindPartialView, d.id, anchor)
	pv.owner = d.id
	d.partial = pv.id
	if err := b.register(pv); err != nil {
		return err
	}

	b.project.logger.Debug(b.ctx, "Factory created", "id", d.id, "kind", d.kind, "partial_view", pv.id)

	return b.realize(pv, nil, anchor.def.Children())
}

// register adds f to its parent's children, keyed by its anchor node.
func (b *builder) register(f *Factory) error {
	parent := b.tree.factories[f.parent]
	if existing, ok := parent.children[f.anchor.id]; ok {
		return viewcerrors.NewInvariantError(viewcerrors.ErrCodeDuplicateChild,
			fmt.Sprintf("node %d of factory %d already anchors factory %d", f.anchor.id, parent.id, existing))
	}
	parent.children[f.anchor.id] = f.id
	parent.childOrder = append(parent.childOrder, f.id)
	if parent.kind != KindConditional && parent.kind != KindRepeating {
		f.anchor.child = f.id
	}
	return nil
}

// realize copies defs into f's view under parent, resolving bindings and creating
// child factories for component uses and blocks.
func (b *builder) realize(f *Factory, parent *ViewNode, defs []*template.Node) error {
	for _, def := range defs {
		vn := b.tree.realizeNode(f.view, parent, def)

		for _, tb := range def.Bindings() {
			value, err := b.resolve(f, tb.Value(), def)
			if err != nil {
				return err
			}
			vn.bindings = append(vn.bindings, &Binding{def: tb, node: vn, value: value})
		}

		switch def.Kind() {
		case template.KindDom, template.KindText, template.KindInterpolation:
			if err := b.realize(f, vn, def.Children()); err != nil {
				return err
			}

		case template.KindComponentUse:
			scope, err := f.FirstScopeBoundaryUpwardsIncludingSelf()
			if err != nil {
				return err
			}
			decl, ok := lookupRegistered(scope.component.RegisteredComponents(), def.Tag())
			if !ok {
				return viewcerrors.ErrComponentNotFound(def.Tag(), scope.component.Name()).
					WithLocation(scope.component.Template().Name(), def.Line(), 0)
			}
			if _, err := b.component(decl, f.id, vn, def.Tag()); err != nil {
				return err
			}

		case template.KindConditional:
			if err := b.directive(KindConditional, f, vn); err != nil {
				return err
			}

		case template.KindRepeating:
			if err := b.directive(KindRepeating, f, vn); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolve binds expr to the first factory, walking outward from f to its scope
// boundary, that defines its leftmost identifier. Computed indexes and call
// arguments are resolved the same way and recorded as refs.
func (b *builder) resolve(f *Factory, expr *expression.Expression, def *template.Node) (*BoundValue, error) {
	v := &BoundValue{expr: expr, definition: NoFactory, responsible: f.id}

	switch {
	case expr.IsConstant():
		v.accessor = expr.Source()
		v.id = expr.Source()
		return v, nil
	case expr.IsPlaceholder():
		v.accessor = expression.Placeholder
		v.id = expression.Placeholder
		return v, nil
	}

	var base string
	for g := f; ; {
		if accessor, ok := g.HasDefinedAndResolvesTo(expr.Root()); ok {
			v.definition = g.id
			base = accessor
			break
		}
		if g.IsScopeBoundary() || g.parent == NoFactory {
			scope := f.scopeComponentName()
			err := viewcerrors.ErrMemberNotFound(expr.Root(), scope, f.visibleNames())
			if s, serr := f.FirstScopeBoundaryUpwardsIncludingSelf(); serr == nil {
				err = err.WithLocation(s.component.Template().Name(), def.Line(), 0)
			}
			return nil, err
		}
		g = b.tree.factories[g.parent]
	}

	// The accessor and the identity render the path with every index replaced
	// by what it reads: its accessor and its identity respectively.
	var accessor, id strings.Builder
	accessor.WriteString(base)
	fmt.Fprintf(&id, "%d:%s", v.definition, expr.Root())
	for _, seg := range expr.Segments()[1:] {
		if seg.Index == nil {
			accessor.WriteString("." + seg.Name)
			id.WriteString("." + seg.Name)
			continue
		}
		ref, err := b.resolve(f, seg.Index, def)
		if err != nil {
			return nil, err
		}
		if ref.definition != NoFactory {
			v.refs = append(v.refs, ref)
		}
		accessor.WriteString("[" + ref.accessor + "]")
		id.WriteString("[" + ref.id + "]")
	}
	v.accessor = accessor.String()
	v.id = id.String()

	for _, arg := range expr.Args() {
		if arg.IsConstant() || arg.IsPlaceholder() {
			continue
		}
		ref, err := b.resolve(f, arg, def)
		if err != nil {
			return nil, err
		}
		v.refs = append(v.refs, ref)
	}

	return v, nil
}

// checkSelfBindings verifies that every input and output bound at a component's
// anchor is declared by the component.
func (b *builder) checkSelfBindings(f *Factory) error {
	a := f.component
	for _, binding := range f.selfBindings {
		switch binding.Kind() {
		case template.BindingInput:
			if !slices.Contains(a.RequiredInputNames(), binding.Name()) &&
				!slices.Contains(a.OptionalInputNames(), binding.Name()) {
				known := append(append([]string(nil), a.RequiredInputNames()...), a.OptionalInputNames()...)
				return b.unknownSlot(f, binding, viewcerrors.ErrCodeInputNotFound, "input", known)
			}
		case template.BindingOutput:
			if !slices.Contains(a.OutputNames(), binding.Name()) {
				return b.unknownSlot(f, binding, viewcerrors.ErrCodeOutputNotFound, "output", a.OutputNames())
			}
		}
	}
	return nil
}

func (b *builder) unknownSlot(f *Factory, binding *Binding, code, what string, known []string) error {
	msg := fmt.Sprintf("%s has no %s %q", f.component.Name(), what, binding.Name())
	if s := viewcerrors.ClosestMatch(binding.Name(), known); s != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", s)
	}
	err := viewcerrors.NewUnresolvedReferenceError(code, msg)
	parent := b.tree.factories[f.parent]
	if scope, serr := parent.FirstScopeBoundaryUpwardsIncludingSelf(); serr == nil {
		err = err.WithComponent(scope.component.Name()).
			WithLocation(scope.component.Template().Name(), binding.node.def.Line(), 0)
	}
	return err
}

// checkRequiredInputsInComponents verifies that every required input is bound at
// every usage site. The entry component has no usage site and is exempt.
func (b *builder) checkRequiredInputsInComponents() error {
	for _, f := range b.tree.factories {
		if f.kind != KindComponent || f.IsRoot() {
			continue
		}
		bound := make(map[string]bool)
		for _, binding := range f.selfBindings {
			if binding.Kind() == template.BindingInput {
				bound[binding.Name()] = true
			}
		}
		var missing []string
		for _, name := range f.component.RequiredInputNames() {
			if !bound[name] {
				missing = append(missing, name)
			}
		}
		if len(missing) == 0 {
			continue
		}
		sort.Strings(missing)
		err := viewcerrors.NewStructuralError(viewcerrors.ErrCodeRequiredInput,
			fmt.Sprintf("<%s> is missing required input(s) %s", f.usedName, strings.Join(missing, ", "))).
			WithContext("missing", missing)
		parent := b.tree.factories[f.parent]
		if scope, serr := parent.FirstScopeBoundaryUpwardsIncludingSelf(); serr == nil {
			err = err.WithComponent(scope.component.Name()).
				WithLocation(scope.component.Template().Name(), f.anchor.def.Line(), 0)
		}
		return err
	}
	return nil
}

func lookupRegistered(registered map[string]component.Declaration, usedName string) (component.Declaration, bool) {
	if decl, ok := registered[usedName]; ok {
		return decl, true
	}
	for name, decl := range registered {
		if strings.EqualFold(name, usedName) {
			return decl, true
		}
	}
	return component.Declaration{}, false
}
