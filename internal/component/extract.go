package component

import (
	"fmt"
	"go/ast"
	"go/token"
	"reflect"
	"strconv"
	"strings"

	viewcerrors "github.com/conneroisu/viewc/internal/errors"
)

const (
	directiveComponent = "viewc:component"
	directiveUse       = "viewc:use"

	tagInput    = "input"
	tagOutput   = "output"
	tagRequired = "required"
)

// extractor turns the syntax of one package into components.
type extractor struct {
	fset      *token.FileSet
	pkg       string
	collector *viewcerrors.ErrorCollector

	// Extensions of the default template and style files, empty when the
	// files must be named explicitly.
	templateExt string
	styleExt    string
}

func (x *extractor) extract(files []*ast.File) []*Component {
	methods := make(map[string][]*ast.FuncDecl)
	for _, file := range files {
		for _, decl := range file.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if !ok || fn.Recv == nil || len(fn.Recv.List) == 0 {
				continue
			}
			if typeName := receiverTypeName(fn.Recv.List[0].Type); typeName != "" {
				methods[typeName] = append(methods[typeName], fn)
			}
		}
	}

	var components []*Component
	for _, file := range files {
		constants := fileConstants(file)
		for _, decl := range file.Decls {
			gd, ok := decl.(*ast.GenDecl)
			if !ok || gd.Tok != token.TYPE {
				continue
			}
			for _, spec := range gd.Specs {
				ts := spec.(*ast.TypeSpec)
				st, ok := ts.Type.(*ast.StructType)
				if !ok {
					continue
				}
				doc := ts.Doc
				if doc == nil && len(gd.Specs) == 1 {
					doc = gd.Doc
				}
				c := x.component(ts, st, doc)
				if c == nil {
					continue
				}
				for _, name := range constants {
					c.constants = append(c.constants, name)
					c.constantIDs[name] = x.pkg + "." + name
				}
				x.flow(c, methods[ts.Name.Name])
				components = append(components, c)
			}
		}
	}

	return components
}

// component reads the directives and fields of a struct type, or returns nil when
// the type is not annotated.
func (x *extractor) component(ts *ast.TypeSpec, st *ast.StructType, doc *ast.CommentGroup) *Component {
	if doc == nil {
		return nil
	}

	pos := x.fset.Position(ts.Pos())
	var c *Component
	var uses []registration
	for _, comment := range doc.List {
		text := strings.TrimSpace(strings.TrimPrefix(comment.Text, "//"))
		line := x.fset.Position(comment.Pos()).Line
		switch {
		case strings.HasPrefix(text, directiveComponent):
			args, err := directiveArgs(strings.TrimPrefix(text, directiveComponent))
			if err != nil {
				x.diagnose(ts.Name.Name, pos.Filename, line, err.Error())
				continue
			}
			if args["template"] == "" && x.templateExt == "" {
				x.diagnose(ts.Name.Name, pos.Filename, line, "viewc:component requires template=<file>")
				continue
			}
			c = newComponent(Declaration{
				Name:     ts.Name.Name,
				Package:  x.pkg,
				FilePath: pos.Filename,
				Line:     pos.Line,
			})
			c.templateFile = args["template"]
			if c.templateFile == "" {
				c.templateFile = strings.ToLower(ts.Name.Name) + x.templateExt
			}
			c.styleFile = args["style"]
			if c.styleFile == "" && x.styleExt != "" {
				c.styleFile = strings.ToLower(ts.Name.Name) + x.styleExt
				c.styleOptional = true
			}

		case strings.HasPrefix(text, directiveUse):
			fields := strings.Fields(strings.TrimPrefix(text, directiveUse))
			if len(fields) == 0 {
				x.diagnose(ts.Name.Name, pos.Filename, line, "viewc:use requires a component type")
				continue
			}
			args, err := directiveArgs(strings.Join(fields[1:], " "))
			if err != nil {
				x.diagnose(ts.Name.Name, pos.Filename, line, err.Error())
				continue
			}
			usedName := args["as"]
			if usedName == "" {
				usedName = fields[0]
				if i := strings.LastIndex(usedName, "."); i >= 0 {
					usedName = usedName[i+1:]
				}
			}
			uses = append(uses, registration{typeName: fields[0], usedName: usedName, line: line})
		}
	}

	if c == nil {
		if len(uses) > 0 {
			x.diagnose(ts.Name.Name, pos.Filename, pos.Line, "viewc:use without viewc:component")
		}
		return nil
	}
	c.registrations = uses

	for _, field := range st.Fields.List {
		if len(field.Names) == 0 {
			continue
		}
		tag := ""
		if field.Tag != nil {
			tag, _ = strconv.Unquote(field.Tag.Value)
		}
		st := reflect.StructTag(tag)
		for _, name := range field.Names {
			if _, ok := st.Lookup(tagOutput); ok {
				if _, isFunc := field.Type.(*ast.FuncType); !isFunc {
					x.diagnose(c.Name(), pos.Filename, x.fset.Position(name.Pos()).Line,
						fmt.Sprintf("output %s must have a func type", name.Name))
					continue
				}
				c.outputs = append(c.outputs, name.Name)
				continue
			}

			c.variables = append(c.variables, name.Name)
			if v, ok := st.Lookup(tagInput); ok {
				if v == tagRequired {
					c.requiredInputs = append(c.requiredInputs, name.Name)
				} else {
					c.optionalInputs = append(c.optionalInputs, name.Name)
				}
			}
		}
	}

	return c
}

// flow records the call graph and the modified fields of each method.
func (x *extractor) flow(c *Component, methods []*ast.FuncDecl) {
	callable := make(map[string]bool)
	for _, fn := range methods {
		c.methods = append(c.methods, fn.Name.Name)
		callable[fn.Name.Name] = true
	}
	for _, out := range c.outputs {
		callable[out] = true
	}
	props := make(map[string]bool)
	for _, v := range c.variables {
		props[v] = true
	}

	for _, fn := range methods {
		recv := receiverName(fn.Recv.List[0])
		if recv == "" || fn.Body == nil {
			continue
		}
		v := &flowVisitor{recv: recv, calls: make(map[string]bool), mods: make(map[string]bool)}
		ast.Walk(v, fn.Body)

		for _, name := range sortedKeys(v.calls) {
			if callable[name] {
				c.calls[fn.Name.Name] = append(c.calls[fn.Name.Name], name)
			}
		}
		for _, name := range sortedKeys(v.mods) {
			if props[name] {
				c.mods[fn.Name.Name] = append(c.mods[fn.Name.Name], name)
			}
		}
	}
}

func (x *extractor) diagnose(component, file string, line int, msg string) {
	x.collector.Add(viewcerrors.Diagnostic{
		Component: component,
		File:      file,
		Line:      line,
		Message:   msg,
		Severity:  viewcerrors.ErrorSeverityError,
	})
}

// flowVisitor collects receiver method calls and receiver field writes.
type flowVisitor struct {
	recv  string
	calls map[string]bool
	mods  map[string]bool
}

func (v *flowVisitor) Visit(node ast.Node) ast.Visitor {
	switch n := node.(type) {
	case *ast.CallExpr:
		if sel, ok := n.Fun.(*ast.SelectorExpr); ok {
			if id, ok := sel.X.(*ast.Ident); ok && id.Name == v.recv {
				v.calls[sel.Sel.Name] = true
			}
		}
	case *ast.AssignStmt:
		if n.Tok == token.DEFINE {
			return v
		}
		for _, lhs := range n.Lhs {
			if field, ok := v.rootField(lhs); ok {
				v.mods[field] = true
			}
		}
	case *ast.IncDecStmt:
		if field, ok := v.rootField(n.X); ok {
			v.mods[field] = true
		}
	}
	return v
}

// rootField returns F for recv.F, recv.F.G, recv.F[i] and similar.
func (v *flowVisitor) rootField(e ast.Expr) (string, bool) {
	for {
		switch x := e.(type) {
		case *ast.SelectorExpr:
			if id, ok := x.X.(*ast.Ident); ok && id.Name == v.recv {
				return x.Sel.Name, true
			}
			e = x.X
		case *ast.IndexExpr:
			e = x.X
		case *ast.StarExpr:
			e = x.X
		case *ast.ParenExpr:
			e = x.X
		default:
			return "", false
		}
	}
}

// directiveArgs parses key=value pairs.
func directiveArgs(s string) (map[string]string, error) {
	args := make(map[string]string)
	for _, field := range strings.Fields(s) {
		key, value, ok := strings.Cut(field, "=")
		if !ok || key == "" || value == "" {
			return nil, fmt.Errorf("malformed directive argument %q", field)
		}
		args[key] = strings.Trim(value, `"`)
	}
	return args, nil
}

func fileConstants(file *ast.File) []string {
	var names []string
	for _, decl := range file.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.CONST {
			continue
		}
		for _, spec := range gd.Specs {
			for _, name := range spec.(*ast.ValueSpec).Names {
				if name.Name != "_" {
					names = append(names, name.Name)
				}
			}
		}
	}
	return names
}

func receiverTypeName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return receiverTypeName(t.X)
	case *ast.IndexExpr:
		return receiverTypeName(t.X)
	default:
		return ""
	}
}

func receiverName(field *ast.Field) string {
	if len(field.Names) == 0 || field.Names[0].Name == "_" {
		return ""
	}
	return field.Names[0].Name
}
