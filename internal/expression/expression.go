// Package expression parses the binding expressions written inside templates.
//
// The language is a small subset of expr-lang: literals, dotted property access
// with optional computed indexes, and calls on such paths whose arguments are
// themselves expressions of the same shapes. Everything else is rejected, since the
// analyzer must know statically which names an expression reads.
package expression

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"

	viewcerrors "github.com/conneroisu/viewc/internal/errors"
)

// Placeholder is the positional placeholder a handler uses to receive the event
// payload, as in (changed)="select($event)".
const Placeholder = "$event"

// Kind classifies a bound value.
type Kind int

const (
	KindConstant Kind = iota
	KindPropertyAccess
	KindMethodCall
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindConstant:
		return "constant"
	case KindPropertyAccess:
		return "property_access"
	case KindMethodCall:
		return "method_call"
	default:
		return "unknown"
	}
}

// Segment is one step of a member path: a named member, or a computed index
// when Index is set.
type Segment struct {
	Name  string
	Index *Expression
}

// Expression is a parsed binding expression.
type Expression struct {
	source string
	kind   Kind
	// path is the member chain in order, computed indexes included; for calls it
	// is the callee.
	path          []Segment
	args          []*Expression
	value         interface{}
	isPlaceholder bool
}

// Parse parses src into an Expression.
func Parse(src string) (*Expression, error) {
	trimmed := strings.TrimSpace(src)
	if trimmed == "" {
		return nil, viewcerrors.NewParseError(viewcerrors.ErrCodeInvalidExpression, "empty expression", nil)
	}

	tree, err := parser.Parse(trimmed)
	if err != nil {
		return nil, viewcerrors.NewParseError(
			viewcerrors.ErrCodeInvalidExpression,
			fmt.Sprintf("cannot parse %q", trimmed),
			err,
		)
	}

	e, err := fromNode(tree.Node)
	if err != nil {
		return nil, viewcerrors.WrapParse(err, viewcerrors.ErrCodeInvalidExpression,
			fmt.Sprintf("unsupported expression %q", trimmed))
	}
	e.source = trimmed

	return e, nil
}

// MustParse is like Parse but panics on error. Intended for tests and fixtures.
func MustParse(src string) *Expression {
	e, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return e
}

// Constant wraps a plain attribute value as a constant expression.
func Constant(value string) *Expression {
	return &Expression{
		source: strconv.Quote(value),
		kind:   KindConstant,
		value:  value,
	}
}

func fromNode(node ast.Node) (*Expression, error) {
	switch n := node.(type) {
	case *ast.NilNode:
		return literal(nil), nil
	case *ast.BoolNode:
		return literal(n.Value), nil
	case *ast.IntegerNode:
		return literal(n.Value), nil
	case *ast.FloatNode:
		return literal(n.Value), nil
	case *ast.StringNode:
		return literal(n.Value), nil
	case *ast.IdentifierNode, *ast.MemberNode:
		path, err := memberPath(node)
		if err != nil {
			return nil, err
		}
		e := &Expression{kind: KindPropertyAccess, path: path}
		if len(path) == 1 && path[0].Name == Placeholder {
			e.isPlaceholder = true
		}
		e.source = e.render()
		return e, nil
	case *ast.CallNode:
		path, err := memberPath(n.Callee)
		if err != nil {
			return nil, err
		}
		e := &Expression{kind: KindMethodCall, path: path}
		for _, arg := range n.Arguments {
			a, err := fromNode(arg)
			if err != nil {
				return nil, err
			}
			if a.kind == KindMethodCall {
				return nil, fmt.Errorf("nested call %q is not allowed as an argument", a.RawPath())
			}
			e.args = append(e.args, a)
		}
		e.source = e.render()
		return e, nil
	case *ast.BuiltinNode:
		return nil, fmt.Errorf("%q is a reserved builtin name", n.Name)
	default:
		return nil, fmt.Errorf("%T is not a constant, property access or method call", node)
	}
}

func literal(value interface{}) *Expression {
	e := &Expression{kind: KindConstant, value: value}
	e.source = e.render()
	return e
}

// memberPath turns an identifier/member chain such as user.address.city or
// rows[i].label into its segments, in order.
func memberPath(node ast.Node) ([]Segment, error) {
	switch n := node.(type) {
	case *ast.IdentifierNode:
		return []Segment{{Name: n.Value}}, nil
	case *ast.MemberNode:
		path, err := memberPath(n.Node)
		if err != nil {
			return nil, err
		}
		// a["b"] reads the same member as a.b.
		if s, ok := n.Property.(*ast.StringNode); ok {
			return append(path, Segment{Name: s.Value}), nil
		}
		idx, err := fromNode(n.Property)
		if err != nil {
			return nil, err
		}
		if idx.kind == KindMethodCall {
			return nil, fmt.Errorf("call used as index in %q", renderPath(path))
		}
		return append(path, Segment{Index: idx}), nil
	default:
		return nil, fmt.Errorf("%T cannot start a member path", node)
	}
}

// Source returns the expression as written.
func (e *Expression) Source() string { return e.source }

// Kind returns the expression kind.
func (e *Expression) Kind() Kind { return e.kind }

// IsConstant reports whether the expression is a literal.
func (e *Expression) IsConstant() bool { return e.kind == KindConstant }

// IsMethodCall reports whether the expression is a call.
func (e *Expression) IsMethodCall() bool { return e.kind == KindMethodCall }

// IsPropertyAccess reports whether the expression reads a member path.
func (e *Expression) IsPropertyAccess() bool { return e.kind == KindPropertyAccess }

// Value returns the literal value of a constant expression.
func (e *Expression) Value() interface{} { return e.value }

// RawPath returns the member path as written, computed indexes in place, e.g.
// "user.name" or "rows[i].label"; for calls the callee path. Constants have an
// empty path.
func (e *Expression) RawPath() string { return renderPath(e.path) }

// Path returns the named members of the path, without computed indexes.
func (e *Expression) Path() []string {
	out := make([]string, 0, len(e.path))
	for _, seg := range e.path {
		if seg.Index == nil {
			out = append(out, seg.Name)
		}
	}
	return out
}

// Segments returns a copy of the path segments.
func (e *Expression) Segments() []Segment {
	out := make([]Segment, len(e.path))
	copy(out, e.path)
	return out
}

// Root returns the leftmost identifier, or "" for constants.
func (e *Expression) Root() string {
	if len(e.path) == 0 {
		return ""
	}
	return e.path[0].Name
}

// Args returns the call arguments.
func (e *Expression) Args() []*Expression { return e.args }

// Indexes returns the computed indexes along the path, in order.
func (e *Expression) Indexes() []*Expression {
	var out []*Expression
	for _, seg := range e.path {
		if seg.Index != nil {
			out = append(out, seg.Index)
		}
	}
	return out
}

// Subexpressions returns the computed indexes followed by the call arguments.
func (e *Expression) Subexpressions() []*Expression {
	return append(e.Indexes(), e.args...)
}

// IsPlaceholder reports whether the expression is exactly the positional placeholder.
func (e *Expression) IsPlaceholder() bool { return e.isPlaceholder }

// UsesPlaceholder reports whether the placeholder appears anywhere in the expression.
func (e *Expression) UsesPlaceholder() bool {
	if e.isPlaceholder {
		return true
	}
	for _, a := range e.args {
		if a.UsesPlaceholder() {
			return true
		}
	}
	for _, idx := range e.Indexes() {
		if idx.UsesPlaceholder() {
			return true
		}
	}
	return false
}

// Identifiers returns every top-level identifier read by the expression, in order of
// appearance and without duplicates: the root of the path, then those of computed
// indexes and arguments. The placeholder is never included.
func (e *Expression) Identifiers() []string {
	seen := make(map[string]bool)
	var out []string
	var visit func(x *Expression)
	visit = func(x *Expression) {
		if x.kind != KindConstant && !x.isPlaceholder {
			if root := x.Root(); root != "" && !seen[root] {
				seen[root] = true
				out = append(out, root)
			}
		}
		for _, idx := range x.Indexes() {
			visit(idx)
		}
		for _, a := range x.args {
			visit(a)
		}
	}
	visit(e)
	return out
}

// String implements fmt.Stringer.
func (e *Expression) String() string { return e.source }

// render writes e back in canonical form.
func (e *Expression) render() string {
	switch e.kind {
	case KindConstant:
		switch v := e.value.(type) {
		case nil:
			return "nil"
		case string:
			return strconv.Quote(v)
		default:
			return fmt.Sprint(v)
		}
	case KindMethodCall:
		args := make([]string, len(e.args))
		for i, a := range e.args {
			args[i] = a.source
		}
		return renderPath(e.path) + "(" + strings.Join(args, ", ") + ")"
	default:
		return renderPath(e.path)
	}
}

func renderPath(path []Segment) string {
	var b strings.Builder
	for i, seg := range path {
		switch {
		case seg.Index != nil:
			b.WriteString("[" + seg.Index.source + "]")
		case i > 0:
			b.WriteString("." + seg.Name)
		default:
			b.WriteString(seg.Name)
		}
	}
	return b.String()
}
