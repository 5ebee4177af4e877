package template

import (
	"errors"
	"fmt"
	"go/token"
	"io"
	"strings"

	"golang.org/x/net/html"

	viewcerrors "github.com/conneroisu/viewc/internal/errors"
	"github.com/conneroisu/viewc/internal/expression"
)

const (
	tagIf  = "if"
	tagFor = "for"

	attrCondition = "condition"
	attrEach      = "each"
	attrItem      = "item"
	attrIndex     = "index"
	attrTrackBy   = "track-by"

	// InterpolationSlot is the binding name given to {{ expr }} content.
	InterpolationSlot = "textContent"
)

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// Option configures Parse.
type Option func(*parser)

// WithComponents declares the tag names that are component uses. Matching is
// case-insensitive; the node tag is the name as given here.
func WithComponents(usedNames ...string) Option {
	return func(p *parser) {
		for _, name := range usedNames {
			p.components[strings.ToLower(name)] = name
		}
	}
}

type openElement struct {
	node *Node
	tag  string
}

type parser struct {
	name       string
	forest     *Forest
	components map[string]string
	stack      []openElement
	line       int
}

// Parse parses a component template into a Forest.
func Parse(name, src string, opts ...Option) (*Forest, error) {
	p := &parser{
		name:       name,
		forest:     NewForest(name),
		components: make(map[string]string),
		line:       1,
	}
	for _, opt := range opts {
		opt(p)
	}

	if err := p.run(src); err != nil {
		return nil, err
	}

	return p.forest, nil
}

func (p *parser) run(src string) error {
	z := html.NewTokenizer(strings.NewReader(src))

	for {
		tt := z.Next()
		// Raw is only valid until the next call into the tokenizer.
		raw := string(z.Raw())
		line := p.line
		p.line += strings.Count(raw, "\n")

		switch tt {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return p.finish()
			}
			return p.errorf(line, "tokenizer: %v", z.Err())

		case html.TextToken:
			if err := p.text(raw, line); err != nil {
				return err
			}

		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if err := p.startTag(tok, raw, line, tt == html.SelfClosingTagToken); err != nil {
				return err
			}

		case html.EndTagToken:
			tok := z.Token()
			if err := p.endTag(tok.Data, line); err != nil {
				return err
			}

		case html.CommentToken, html.DoctypeToken:
			// not part of the view
		}
	}
}

func (p *parser) finish() error {
	if len(p.stack) > 0 {
		open := p.stack[len(p.stack)-1]
		return p.errorf(open.node.line, "unclosed <%s>", open.tag)
	}
	return nil
}

func (p *parser) current() *Node {
	if len(p.stack) == 0 {
		return nil
	}
	return p.stack[len(p.stack)-1].node
}

func (p *parser) add(kind NodeKind, tag, text string, line int, bindings ...*Binding) (*Node, error) {
	parent := p.current()
	if parent != nil && parent.kind == KindComponentUse {
		return nil, p.errorf(line, "component <%s> cannot have children", parent.tag)
	}
	return p.forest.Add(parent, kind, tag, text, line, bindings...), nil
}

// text splits raw text into literal and {{ expr }} segments.
func (p *parser) text(raw string, line int) error {
	rest := raw
	for rest != "" {
		open := strings.Index(rest, "{{")
		if open < 0 {
			return p.literal(rest, line)
		}
		if err := p.literal(rest[:open], line); err != nil {
			return err
		}
		line += strings.Count(rest[:open], "\n")

		end := strings.Index(rest[open+2:], "}}")
		if end < 0 {
			return p.errorf(line, "unclosed interpolation")
		}
		src := rest[open+2 : open+2+end]
		value, err := p.value(src, line)
		if err != nil {
			return err
		}
		if _, err := p.add(KindInterpolation, "", "", line,
			NewBinding(BindingInterpolation, InterpolationSlot, value)); err != nil {
			return err
		}

		line += strings.Count(src, "\n")
		rest = rest[open+2+end+2:]
	}
	return nil
}

func (p *parser) literal(raw string, line int) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	_, err := p.add(KindText, "", html.UnescapeString(raw), line)
	return err
}

func (p *parser) startTag(tok html.Token, raw string, line int, selfClosing bool) error {
	tag := tok.Data
	attrs := restoreCase(tok.Attr, raw)

	var (
		node *Node
		err  error
	)
	switch {
	case tag == tagIf:
		node, err = p.conditional(attrs, line)
	case tag == tagFor:
		node, err = p.repeating(attrs, line)
	case p.components[tag] != "":
		node, err = p.componentUse(p.components[tag], attrs, line)
	default:
		node, err = p.element(originalTagName(raw, tag), attrs, line)
	}
	if err != nil {
		return err
	}

	if selfClosing || (node.kind == KindDom && voidElements[tag]) {
		return nil
	}
	p.stack = append(p.stack, openElement{node: node, tag: tag})
	return nil
}

func (p *parser) endTag(tag string, line int) error {
	if voidElements[tag] {
		return nil
	}
	if len(p.stack) == 0 {
		return p.errorf(line, "unexpected </%s>", tag)
	}
	top := p.stack[len(p.stack)-1]
	if top.tag != tag {
		return p.errorf(line, "unexpected </%s>, expected </%s>", tag, top.tag)
	}
	p.stack = p.stack[:len(p.stack)-1]
	return nil
}

func (p *parser) conditional(attrs []html.Attribute, line int) (*Node, error) {
	var condition *expression.Expression
	for _, a := range attrs {
		if a.Key != attrCondition {
			return nil, p.errorf(line, "<if> does not accept attribute %q", a.Key)
		}
		value, err := p.value(a.Val, line)
		if err != nil {
			return nil, err
		}
		condition = value
	}
	if condition == nil {
		return nil, p.errorf(line, "<if> requires a %q attribute", attrCondition)
	}
	return p.add(KindConditional, tagIf, "", line, NewBinding(BindingCondition, attrCondition, condition))
}

func (p *parser) repeating(attrs []html.Attribute, line int) (*Node, error) {
	var (
		each                 *expression.Expression
		item, index, trackBy string
	)
	for _, a := range attrs {
		switch a.Key {
		case attrEach:
			value, err := p.value(a.Val, line)
			if err != nil {
				return nil, err
			}
			each = value
		case attrItem:
			item = strings.TrimSpace(a.Val)
		case attrIndex:
			index = strings.TrimSpace(a.Val)
		case attrTrackBy:
			trackBy = strings.TrimSpace(a.Val)
		default:
			return nil, p.errorf(line, "<for> does not accept attribute %q", a.Key)
		}
	}

	if each == nil {
		return nil, p.errorf(line, "<for> requires an %q attribute", attrEach)
	}
	if !token.IsIdentifier(item) {
		return nil, p.errorf(line, "<for> requires an identifier in %q, got %q", attrItem, item)
	}
	if index != "" && !token.IsIdentifier(index) {
		return nil, p.errorf(line, "<for> %q must be an identifier, got %q", attrIndex, index)
	}
	if index == item {
		return nil, p.errorf(line, "<for> item and index aliases must differ")
	}

	b := NewBinding(BindingIteration, attrEach, each).WithAliases(item, index, trackBy)
	return p.add(KindRepeating, tagFor, "", line, b)
}

func (p *parser) componentUse(usedName string, attrs []html.Attribute, line int) (*Node, error) {
	bindings := make([]*Binding, 0, len(attrs))
	for _, a := range attrs {
		slot, form, err := p.slot(a.Key, line)
		if err != nil {
			return nil, err
		}
		switch form {
		case '[':
			value, err := p.value(a.Val, line)
			if err != nil {
				return nil, err
			}
			bindings = append(bindings, NewBinding(BindingInput, slot, value))
		case '(':
			value, err := p.handler(slot, a.Val, line)
			if err != nil {
				return nil, err
			}
			bindings = append(bindings, NewBinding(BindingOutput, slot, value))
		default:
			bindings = append(bindings, NewBinding(BindingInput, slot, expression.Constant(a.Val)))
		}
	}
	return p.add(KindComponentUse, usedName, "", line, bindings...)
}

func (p *parser) element(tag string, attrs []html.Attribute, line int) (*Node, error) {
	bindings := make([]*Binding, 0, len(attrs))
	for _, a := range attrs {
		slot, form, err := p.slot(a.Key, line)
		if err != nil {
			return nil, err
		}
		switch form {
		case '[':
			value, err := p.value(a.Val, line)
			if err != nil {
				return nil, err
			}
			bindings = append(bindings, NewBinding(BindingProperty, slot, value))
		case '(':
			value, err := p.handler(slot, a.Val, line)
			if err != nil {
				return nil, err
			}
			bindings = append(bindings, NewBinding(BindingEvent, slot, value))
		default:
			bindings = append(bindings, NewBinding(BindingAttribute, slot, expression.Constant(a.Val)))
		}
	}
	return p.add(KindDom, tag, "", line, bindings...)
}

// slot strips the [name] or (name) decoration of an attribute key.
func (p *parser) slot(key string, line int) (string, byte, error) {
	if key == "" {
		return "", 0, p.errorf(line, "empty attribute name")
	}
	switch key[0] {
	case '[':
		if len(key) < 3 || key[len(key)-1] != ']' {
			return "", 0, p.errorf(line, "malformed property binding %q", key)
		}
		return key[1 : len(key)-1], '[', nil
	case '(':
		if len(key) < 3 || key[len(key)-1] != ')' {
			return "", 0, p.errorf(line, "malformed event binding %q", key)
		}
		return key[1 : len(key)-1], '(', nil
	default:
		return key, 0, nil
	}
}

func (p *parser) handler(slot, src string, line int) (*expression.Expression, error) {
	value, err := p.expression(src, line)
	if err != nil {
		return nil, err
	}
	if !value.IsMethodCall() {
		return nil, p.errorf(line, "handler for (%s) must be a method call, got %q", slot, value.Source())
	}
	return value, nil
}

// value parses an expression bound to a value slot. Only handlers may call
// methods.
func (p *parser) value(src string, line int) (*expression.Expression, error) {
	value, err := p.expression(src, line)
	if err != nil {
		return nil, err
	}
	if value.IsMethodCall() {
		return nil, viewcerrors.NewParseError(viewcerrors.ErrCodeInvalidExpression,
			fmt.Sprintf("method call %q is only allowed in an event or output handler", value.Source()), nil).
			WithLocation(p.name, line, 0)
	}
	return value, nil
}

func (p *parser) expression(src string, line int) (*expression.Expression, error) {
	value, err := expression.Parse(src)
	if err != nil {
		return nil, viewcerrors.WrapParse(err, viewcerrors.ErrCodeInvalidExpression,
			fmt.Sprintf("invalid expression %q", strings.TrimSpace(src))).
			WithLocation(p.name, line, 0)
	}
	return value, nil
}

func (p *parser) errorf(line int, format string, args ...interface{}) error {
	return viewcerrors.NewParseError(viewcerrors.ErrCodeInvalidTemplate, fmt.Sprintf(format, args...), nil).
		WithLocation(p.name, line, 0)
}

// originalTagName recovers the tag name as written, since the tokenizer
// lower-cases it.
func originalTagName(raw, lowered string) string {
	if len(raw) < 2 || raw[0] != '<' {
		return lowered
	}
	end := 1
	for end < len(raw) && !isSpace(raw[end]) && raw[end] != '>' && raw[end] != '/' {
		end++
	}
	if name := raw[1:end]; strings.EqualFold(name, lowered) {
		return name
	}
	return lowered
}

// restoreCase replaces the lower-cased attribute keys with the names as written in
// raw. When the raw scan disagrees with the tokenizer the keys are left as they are.
func restoreCase(attrs []html.Attribute, raw string) []html.Attribute {
	names := rawAttrNames(raw)
	if len(names) != len(attrs) {
		return attrs
	}
	out := make([]html.Attribute, len(attrs))
	for i, a := range attrs {
		out[i] = a
		if strings.EqualFold(names[i], a.Key) {
			out[i].Key = names[i]
		}
	}
	return out
}

func rawAttrNames(raw string) []string {
	i := 1
	for i < len(raw) && !isSpace(raw[i]) && raw[i] != '>' && raw[i] != '/' {
		i++
	}

	var names []string
	for i < len(raw) {
		for i < len(raw) && (isSpace(raw[i]) || raw[i] == '/') {
			i++
		}
		if i >= len(raw) || raw[i] == '>' {
			break
		}

		start := i
		i++
		for i < len(raw) && !isSpace(raw[i]) && raw[i] != '=' && raw[i] != '>' && raw[i] != '/' {
			i++
		}
		names = append(names, raw[start:i])

		for i < len(raw) && isSpace(raw[i]) {
			i++
		}
		if i >= len(raw) || raw[i] != '=' {
			continue
		}
		i++
		for i < len(raw) && isSpace(raw[i]) {
			i++
		}
		if i < len(raw) && (raw[i] == '"' || raw[i] == '\'') {
			quote := raw[i]
			i++
			for i < len(raw) && raw[i] != quote {
				i++
			}
			i++
			continue
		}
		for i < len(raw) && !isSpace(raw[i]) && raw[i] != '>' {
			i++
		}
	}
	return names
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}
