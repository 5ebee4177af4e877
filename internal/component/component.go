// Package component extracts component metadata from annotated Go sources.
//
// A component is a struct type whose doc comment carries a viewc:component
// directive naming its template. Its fields become variables, inputs and outputs,
// its methods become callable members, and a flow analysis of the method bodies
// records which methods call which and which fields each method can modify. The
// analyzer package consumes components only through the Analyzer interface.
package component

import (
	"sort"

	"github.com/conneroisu/viewc/internal/template"
)

// Declaration identifies a component type.
type Declaration struct {
	// Name is the Go type name, e.g. "Counter".
	Name string
	// Package is the Go package name declaring the type.
	Package string
	// FilePath is the Go file the type is declared in.
	FilePath string
	// Line is the line of the type declaration.
	Line int
}

// ID returns the package-qualified name, unique within a project.
func (d Declaration) ID() string {
	if d.Package == "" {
		return d.Name
	}
	return d.Package + "." + d.Name
}

// Analyzer exposes what the factory tree builder needs to know about one
// component.
type Analyzer interface {
	Name() string
	Declaration() Declaration

	// VariableNames returns the fields readable from the template, inputs included.
	VariableNames() []string
	ConstantNames() []string
	// ConstantIdentifier returns the generated identifier of a constant.
	ConstantIdentifier(name string) (string, bool)
	MethodNames() []string
	OutputNames() []string
	RequiredInputNames() []string
	OptionalInputNames() []string

	// MethodsCalledFrom returns the methods and outputs transitively reachable
	// from method through calls on the receiver.
	MethodsCalledFrom(method string) []string
	// PropsModifiableBy returns the fields modified by method, directly or through
	// the methods it calls.
	PropsModifiableBy(method string) []string

	// RegisteredComponents maps each used tag name to the registered declaration.
	RegisteredComponents() map[string]Declaration
	StyleSource() string
	Template() *template.Forest
}

// Loader resolves declarations to analyzers.
type Loader interface {
	Analyzer(decl Declaration) (Analyzer, error)
}

// registration is one viewc:use directive.
type registration struct {
	typeName string
	usedName string
	line     int
}

// Component is the Analyzer extracted from Go source.
type Component struct {
	decl         Declaration
	templateFile string
	styleFile    string

	variables      []string
	requiredInputs []string
	optionalInputs []string
	outputs        []string
	methods        []string
	constants      []string
	constantIDs    map[string]string

	registrations []registration
	registered    map[string]Declaration

	calls map[string][]string
	mods  map[string][]string

	template *template.Forest
	style    string

	// styleOptional marks a default style file that may be absent.
	styleOptional bool
}

func newComponent(decl Declaration) *Component {
	return &Component{
		decl:        decl,
		constantIDs: make(map[string]string),
		registered:  make(map[string]Declaration),
		calls:       make(map[string][]string),
		mods:        make(map[string][]string),
	}
}

func (c *Component) Name() string                                 { return c.decl.Name }
func (c *Component) Declaration() Declaration                     { return c.decl }
func (c *Component) VariableNames() []string                      { return c.variables }
func (c *Component) ConstantNames() []string                      { return c.constants }
func (c *Component) MethodNames() []string                        { return c.methods }
func (c *Component) OutputNames() []string                        { return c.outputs }
func (c *Component) RequiredInputNames() []string                 { return c.requiredInputs }
func (c *Component) OptionalInputNames() []string                 { return c.optionalInputs }
func (c *Component) StyleSource() string                          { return c.style }
func (c *Component) Template() *template.Forest                   { return c.template }
func (c *Component) TemplateFile() string                         { return c.templateFile }
func (c *Component) StyleFile() string                            { return c.styleFile }
func (c *Component) RegisteredComponents() map[string]Declaration { return c.registered }

// ConstantIdentifier returns the package-qualified identifier of a constant.
func (c *Component) ConstantIdentifier(name string) (string, bool) {
	id, ok := c.constantIDs[name]
	return id, ok
}

// MethodsCalledFrom returns the sorted transitive closure of the call graph from
// method, excluding method itself unless it is reachable through recursion.
func (c *Component) MethodsCalledFrom(method string) []string {
	seen := make(map[string]bool)
	work := append([]string(nil), c.calls[method]...)
	for len(work) > 0 {
		m := work[len(work)-1]
		work = work[:len(work)-1]
		if seen[m] {
			continue
		}
		seen[m] = true
		work = append(work, c.calls[m]...)
	}
	return sortedKeys(seen)
}

// PropsModifiableBy returns the sorted fields written by method or anything it
// calls.
func (c *Component) PropsModifiableBy(method string) []string {
	props := make(map[string]bool)
	for _, p := range c.mods[method] {
		props[p] = true
	}
	for _, m := range c.MethodsCalledFrom(method) {
		for _, p := range c.mods[m] {
			props[p] = true
		}
	}
	return sortedKeys(props)
}

// UsedComponents returns the registered used names that appear in the template.
func (c *Component) UsedComponents() []string {
	if c.template == nil {
		return nil
	}
	seen := make(map[string]bool)
	for _, n := range c.template.Nodes() {
		if n.Kind() == template.KindComponentUse {
			seen[n.Tag()] = true
		}
	}
	return sortedKeys(seen)
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
