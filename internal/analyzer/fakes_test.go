package analyzer

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/conneroisu/viewc/internal/component"
	"github.com/conneroisu/viewc/internal/template"
)

// fakeComponent is an in-memory component.Analyzer.
type fakeComponent struct {
	name       string
	variables  []string
	constants  map[string]string
	methods    []string
	outputs    []string
	required   []string
	optional   []string
	calls      map[string][]string
	mods       map[string][]string
	uses       []string
	style      string
	src        string
	registered map[string]component.Declaration
	forest     *template.Forest

	// unregistered tags are parsed as component uses without a registration.
	unregistered []string
}

func (c *fakeComponent) Name() string { return c.name }
func (c *fakeComponent) Declaration() component.Declaration {
	return component.Declaration{Name: c.name, Package: "fake"}
}
func (c *fakeComponent) VariableNames() []string      { return c.variables }
func (c *fakeComponent) MethodNames() []string        { return c.methods }
func (c *fakeComponent) OutputNames() []string        { return c.outputs }
func (c *fakeComponent) RequiredInputNames() []string { return c.required }
func (c *fakeComponent) OptionalInputNames() []string { return c.optional }
func (c *fakeComponent) StyleSource() string          { return c.style }
func (c *fakeComponent) Template() *template.Forest   { return c.forest }

func (c *fakeComponent) RegisteredComponents() map[string]component.Declaration {
	return c.registered
}

func (c *fakeComponent) ConstantNames() []string {
	names := make([]string, 0, len(c.constants))
	for name := range c.constants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *fakeComponent) ConstantIdentifier(name string) (string, bool) {
	id, ok := c.constants[name]
	return id, ok
}

// MethodsCalledFrom closes calls, which lists direct calls only, transitively.
func (c *fakeComponent) MethodsCalledFrom(method string) []string {
	seen := make(map[string]bool)
	work := append([]string(nil), c.calls[method]...)
	for len(work) > 0 {
		m := work[len(work)-1]
		work = work[:len(work)-1]
		if !seen[m] {
			seen[m] = true
			work = append(work, c.calls[m]...)
		}
	}
	out := make([]string, 0, len(seen))
	for m := range seen {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

func (c *fakeComponent) PropsModifiableBy(method string) []string {
	props := append([]string(nil), c.mods[method]...)
	for _, m := range c.MethodsCalledFrom(method) {
		props = append(props, c.mods[m]...)
	}
	return props
}

// fakeLoader resolves declarations to fake components by name.
type fakeLoader map[string]*fakeComponent

func (l fakeLoader) Analyzer(decl component.Declaration) (component.Analyzer, error) {
	c, ok := l[decl.Name]
	if !ok {
		return nil, fmt.Errorf("no component %s", decl.Name)
	}
	return c, nil
}

// newFakeLoader parses every component's template against its registrations.
func newFakeLoader(t testing.TB, components ...*fakeComponent) fakeLoader {
	t.Helper()
	l := make(fakeLoader)
	for _, c := range components {
		l[c.name] = c
	}
	for _, c := range components {
		c.registered = make(map[string]component.Declaration)
		for _, use := range c.uses {
			c.registered[use] = component.Declaration{Name: use, Package: "fake"}
		}
		forest, err := template.Parse(c.name+".html", c.src, template.WithComponents(append(c.uses, c.unregistered...)...))
		require.NoError(t, err)
		c.forest = forest
	}
	return l
}

func buildFake(t testing.TB, l fakeLoader, entry string) (*Tree, error) {
	t.Helper()
	decl := component.Declaration{Name: entry, Package: "fake"}
	return NewProjectAnalyzer(decl, l).Build(context.Background())
}
