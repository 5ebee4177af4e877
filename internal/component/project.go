package component

import (
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/go/packages"

	viewcerrors "github.com/conneroisu/viewc/internal/errors"
	"github.com/conneroisu/viewc/internal/logging"
	"github.com/conneroisu/viewc/internal/template"
)

var skippedDirs = map[string]bool{
	"vendor":       true,
	"node_modules": true,
	"testdata":     true,
}

// Option configures project loading.
type Option func(*Project)

// WithLogger sets the logger used while loading.
func WithLogger(logger logging.Logger) Option {
	return func(p *Project) {
		p.logger = logger.WithComponent("loader")
	}
}

// WithExcludePatterns skips files and directories whose base name or path
// relative to the root matches one of the glob patterns.
func WithExcludePatterns(patterns ...string) Option {
	return func(p *Project) {
		p.exclude = append(p.exclude, patterns...)
	}
}

// WithTemplateExtensions lets components omit template= and style=. The
// template then defaults to the lowercased type name with templateExt next to
// the Go file, and the style to the same name with styleExt when that file
// exists.
func WithTemplateExtensions(templateExt, styleExt string) Option {
	return func(p *Project) {
		p.templateExt = templateExt
		p.styleExt = styleExt
	}
}

// Project is the set of components found under a root directory. It implements
// Loader.
type Project struct {
	root        string
	logger      logging.Logger
	exclude     []string
	templateExt string
	styleExt    string
	fset        *token.FileSet
	components  map[string]*Component
	order       []string
	collector   *viewcerrors.ErrorCollector
}

func newProject(root string, opts []Option) *Project {
	p := &Project{
		root:       root,
		logger:     logging.NewNopLogger(),
		fset:       token.NewFileSet(),
		components: make(map[string]*Component),
		collector:  viewcerrors.NewErrorCollector(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// LoadDir parses every non-test Go file below root and loads the annotated
// components together with their templates.
func LoadDir(ctx context.Context, root string, opts ...Option) (*Project, error) {
	p := newProject(root, opts)
	perf := logging.StartOperation(p.logger, "load_dir")

	byDir := make(map[string][]string)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && (skippedDirs[d.Name()] || strings.HasPrefix(d.Name(), ".") ||
				strings.HasPrefix(d.Name(), "_") || p.excluded(path)) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") || p.excluded(path) {
			return nil
		}
		byDir[filepath.Dir(path)] = append(byDir[filepath.Dir(path)], path)
		return nil
	})
	if err != nil {
		perf.EndWithError(ctx, err)
		return nil, viewcerrors.WrapIO(err, viewcerrors.ErrCodeFileNotFound,
			fmt.Sprintf("cannot walk %s", root))
	}

	dirs := make([]string, 0, len(byDir))
	for dir := range byDir {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		byPkg := make(map[string][]*ast.File)
		var pkgNames []string
		for _, path := range byDir[dir] {
			file, err := parser.ParseFile(p.fset, path, nil, parser.ParseComments)
			if err != nil {
				p.collector.AddError(viewcerrors.WrapParse(err, viewcerrors.ErrCodeInvalidAnnotation,
					"cannot parse Go source").WithLocation(path, 0, 0))
				continue
			}
			name := file.Name.Name
			if _, ok := byPkg[name]; !ok {
				pkgNames = append(pkgNames, name)
			}
			byPkg[name] = append(byPkg[name], file)
		}
		for _, name := range pkgNames {
			p.addPackage(name, byPkg[name])
		}
	}

	if err := p.finish(ctx); err != nil {
		perf.EndWithError(ctx, err)
		return nil, err
	}
	perf.End(ctx, "components", len(p.order))

	return p, nil
}

// LoadPackages discovers Go packages matching patterns with go/packages, relative
// to root, and loads their components.
func LoadPackages(ctx context.Context, root string, patterns []string, opts ...Option) (*Project, error) {
	p := newProject(root, opts)
	perf := logging.StartOperation(p.logger, "load_packages")

	cfg := &packages.Config{
		Context: ctx,
		Mode:    packages.NeedName | packages.NeedFiles | packages.NeedCompiledGoFiles | packages.NeedSyntax,
		Dir:     root,
		Fset:    p.fset,
	}
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		perf.EndWithError(ctx, err)
		return nil, viewcerrors.Wrap(err, viewcerrors.ErrorTypeIO, viewcerrors.ErrCodePackageLoadFailed,
			fmt.Sprintf("cannot load packages %v", patterns))
	}

	for _, pkg := range pkgs {
		for _, e := range pkg.Errors {
			p.collector.AddError(viewcerrors.NewParseError(viewcerrors.ErrCodePackageLoadFailed,
				e.Msg, nil).WithLocation(e.Pos, 0, 0))
		}
		var files []*ast.File
		for i, file := range pkg.Syntax {
			if i < len(pkg.CompiledGoFiles) && p.excluded(pkg.CompiledGoFiles[i]) {
				continue
			}
			files = append(files, file)
		}
		p.logger.Debug(ctx, "Package loaded", "package", pkg.PkgPath, "files", len(files))
		p.addPackage(pkg.Name, files)
	}

	if err := p.finish(ctx); err != nil {
		perf.EndWithError(ctx, err)
		return nil, err
	}
	perf.End(ctx, "components", len(p.order))

	return p, nil
}

func (p *Project) excluded(path string) bool {
	rel, err := filepath.Rel(p.root, path)
	if err != nil {
		rel = path
	}
	base := filepath.Base(path)
	for _, pattern := range p.exclude {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, filepath.ToSlash(rel)); ok {
			return true
		}
	}
	return false
}

func (p *Project) addPackage(name string, files []*ast.File) {
	x := &extractor{
		fset:        p.fset,
		pkg:         name,
		collector:   p.collector,
		templateExt: p.templateExt,
		styleExt:    p.styleExt,
	}
	for _, c := range x.extract(files) {
		id := c.decl.ID()
		if prev, ok := p.components[id]; ok {
			p.collector.AddError(viewcerrors.NewStructuralError(viewcerrors.ErrCodeDuplicateComponent,
				fmt.Sprintf("component %s is also declared in %s", id, prev.decl.FilePath)).
				WithLocation(c.decl.FilePath, c.decl.Line, 0))
			continue
		}
		p.components[id] = c
		p.order = append(p.order, id)
	}
}

// finish resolves registrations, loads templates and checks for cycles.
func (p *Project) finish(ctx context.Context) error {
	for _, id := range p.order {
		p.resolveRegistrations(p.components[id])
	}
	if p.collector.HasErrors() {
		return p.collector.Err()
	}

	if err := p.loadTemplates(ctx); err != nil {
		return err
	}
	if p.collector.HasErrors() {
		return p.collector.Err()
	}

	if cycles := p.DetectCircularDependencies(); len(cycles) > 0 {
		return viewcerrors.NewStructuralError(viewcerrors.ErrCodeRegistrationCycle,
			fmt.Sprintf("component cycle: %s", strings.Join(cycles[0], " -> "))).
			WithContext("cycles", cycles)
	}

	return nil
}

func (p *Project) resolveRegistrations(c *Component) {
	seen := make(map[string]string)
	for _, r := range c.registrations {
		decl, err := p.find(r.typeName, c.decl.Package)
		if err != nil {
			var ce *viewcerrors.CompileError
			if !errors.As(err, &ce) {
				ce = viewcerrors.WrapInternal(err, viewcerrors.ErrCodeInternalError, "lookup failed")
			}
			p.collector.AddError(ce.WithComponent(c.Name()).WithLocation(c.decl.FilePath, r.line, 0))
			continue
		}
		key := strings.ToLower(r.usedName)
		if prev, ok := seen[key]; ok {
			p.collector.AddError(viewcerrors.NewStructuralError(viewcerrors.ErrCodeDuplicateComponent,
				fmt.Sprintf("tag %q registers both %s and %s", r.usedName, prev, decl.ID())).
				WithComponent(c.Name()).WithLocation(c.decl.FilePath, r.line, 0))
			continue
		}
		seen[key] = decl.ID()
		c.registered[r.usedName] = decl
	}
}

// find resolves a type name as written in a viewc:use directive: qualified by
// package, then in the using package, then by a project-wide unique name.
func (p *Project) find(typeName, fromPkg string) (Declaration, error) {
	if strings.Contains(typeName, ".") {
		if c, ok := p.components[typeName]; ok {
			return c.decl, nil
		}
		return Declaration{}, viewcerrors.ErrComponentNotFound(typeName, "")
	}
	if c, ok := p.components[fromPkg+"."+typeName]; ok {
		return c.decl, nil
	}
	var matches []Declaration
	for _, id := range p.order {
		if c := p.components[id]; c.decl.Name == typeName {
			matches = append(matches, c.decl)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return Declaration{}, viewcerrors.ErrComponentNotFound(typeName, "")
	default:
		return Declaration{}, viewcerrors.NewUnresolvedReferenceError(viewcerrors.ErrCodeComponentNotFound,
			fmt.Sprintf("component %q is ambiguous, qualify it with its package", typeName))
	}
}

// loadTemplates reads and parses every template and style concurrently.
func (p *Project) loadTemplates(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for _, id := range p.order {
		id := id
		c := p.components[id]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := c.load(); err != nil {
				p.collector.AddError(err)
				return nil
			}
			p.logger.Debug(gctx, "Template parsed", "component", id, "nodes", c.template.Len())
			return nil
		})
	}

	return g.Wait()
}

// load reads the component's template and style from disk.
func (c *Component) load() error {
	dir := filepath.Dir(c.decl.FilePath)

	path := filepath.Join(dir, c.templateFile)
	src, err := os.ReadFile(path)
	if err != nil {
		return viewcerrors.WrapIO(err, viewcerrors.ErrCodeFileNotFound, "cannot read template").
			WithComponent(c.Name()).WithLocation(path, 0, 0)
	}

	usedNames := make([]string, 0, len(c.registered))
	for name := range c.registered {
		usedNames = append(usedNames, name)
	}
	forest, err := template.Parse(path, string(src), template.WithComponents(usedNames...))
	if err != nil {
		return viewcerrors.Wrap(err, viewcerrors.ErrorTypeParse, viewcerrors.ErrCodeInvalidTemplate,
			"cannot parse template").WithComponent(c.Name())
	}
	c.template = forest

	if c.styleFile != "" {
		stylePath := filepath.Join(dir, c.styleFile)
		style, err := os.ReadFile(stylePath)
		switch {
		case err == nil:
			c.style = string(style)
		case c.styleOptional && errors.Is(err, fs.ErrNotExist):
			c.styleFile = ""
		default:
			return viewcerrors.WrapIO(err, viewcerrors.ErrCodeFileNotFound, "cannot read style").
				WithComponent(c.Name()).WithLocation(stylePath, 0, 0)
		}
	}

	return nil
}

// Analyzer implements Loader.
func (p *Project) Analyzer(decl Declaration) (Analyzer, error) {
	c, ok := p.components[decl.ID()]
	if !ok {
		return nil, viewcerrors.ErrComponentNotFound(decl.ID(), "")
	}
	return c, nil
}

// Lookup finds a component by type name or package-qualified name.
func (p *Project) Lookup(name string) (Declaration, error) {
	return p.find(name, "")
}

// Root returns the directory the project was loaded from.
func (p *Project) Root() string { return p.root }

// Components returns the components in discovery order.
func (p *Project) Components() []*Component {
	out := make([]*Component, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.components[id])
	}
	return out
}

// Files returns every source file the project was built from: Go files,
// templates and styles.
func (p *Project) Files() []string {
	seen := make(map[string]bool)
	for _, c := range p.components {
		dir := filepath.Dir(c.decl.FilePath)
		seen[c.decl.FilePath] = true
		seen[filepath.Join(dir, c.templateFile)] = true
		if c.styleFile != "" {
			seen[filepath.Join(dir, c.styleFile)] = true
		}
	}
	return sortedKeys(seen)
}
