// Package report renders a built factory tree as a table, JSON or YAML for the
// command line.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/conneroisu/viewc/internal/analyzer"
	viewcerrors "github.com/conneroisu/viewc/internal/errors"
)

// Format is an output format.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// Formats lists the supported formats.
var Formats = []Format{FormatTable, FormatJSON, FormatYAML}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(Formats, f) {
		return f, nil
	}
	names := make([]string, len(Formats))
	for i, f := range Formats {
		names[i] = string(f)
	}
	return "", viewcerrors.NewConfigError(viewcerrors.ErrCodeConfigInvalid,
		fmt.Sprintf("unsupported format %q (supported: %s)", s, strings.Join(names, ", ")))
}

// Report is a serializable snapshot of a factory tree.
type Report struct {
	Entry     string    `json:"entry" yaml:"entry"`
	Factories []Factory `json:"factories" yaml:"factories"`
}

// Factory describes one factory of the tree.
type Factory struct {
	ID               int               `json:"id" yaml:"id"`
	Kind             string            `json:"kind" yaml:"kind"`
	Name             string            `json:"name" yaml:"name"`
	Filename         string            `json:"filename" yaml:"filename"`
	Component        string            `json:"component" yaml:"component"`
	Parent           int               `json:"parent" yaml:"parent"`
	Anchor           string            `json:"anchor,omitempty" yaml:"anchor,omitempty"`
	Children         []int             `json:"children" yaml:"children"`
	PathFromRoot     string            `json:"path_from_root" yaml:"path_from_root"`
	DiffableProps    []string          `json:"diffable_props" yaml:"diffable_props"`
	PropsBoundToView map[string]string `json:"props_bound_to_view" yaml:"props_bound_to_view"`
	BindingsToWatch  []string          `json:"bindings_to_watch,omitempty" yaml:"bindings_to_watch,omitempty"`
	Invalidation     map[string][]int  `json:"invalidation,omitempty" yaml:"invalidation,omitempty"`
}

// Option configures Build.
type Option func(*options)

type options struct {
	invalidation bool
}

// WithInvalidation includes, for every component factory and each of its
// methods and outputs, the factories affected by calling it.
func WithInvalidation(enabled bool) Option {
	return func(o *options) { o.invalidation = enabled }
}

// Build snapshots tree.
func Build(tree *analyzer.Tree, opts ...Option) (*Report, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	root := tree.Root()
	if root == nil {
		return nil, viewcerrors.NewInvariantError(viewcerrors.ErrCodeInternalError, "factory tree is empty")
	}

	r := &Report{Entry: root.ComponentName()}
	for _, f := range tree.Factories() {
		entry, err := describe(root, f, o)
		if err != nil {
			return nil, err
		}
		r.Factories = append(r.Factories, entry)
	}
	return r, nil
}

func describe(root, f *analyzer.Factory, o *options) (Factory, error) {
	path, err := root.PrintPathTo(f)
	if err != nil {
		return Factory{}, err
	}

	entry := Factory{
		ID:               int(f.ID()),
		Kind:             f.Kind().String(),
		Name:             f.FactoryName(),
		Filename:         f.FactoryFilenameWithExtension(),
		Component:        f.ComponentName(),
		Parent:           int(f.ParentID()),
		Children:         []int{},
		PathFromRoot:     path,
		DiffableProps:    f.DiffablePropNames(),
		PropsBoundToView: f.PropsBoundToView(),
	}
	if entry.DiffableProps == nil {
		entry.DiffableProps = []string{}
	}
	if anchor := f.Anchor(); anchor != nil {
		entry.Anchor = anchor.Def().Tag()
	}
	for _, c := range f.Children() {
		entry.Children = append(entry.Children, int(c.ID()))
	}
	for _, b := range f.BindingsToWatch() {
		entry.BindingsToWatch = append(entry.BindingsToWatch,
			fmt.Sprintf("%s=%s", b.Name(), b.Value().Expression().Source()))
	}

	if o.invalidation && f.Kind() == analyzer.KindComponent {
		c := f.Component()
		methods := append(append([]string(nil), c.MethodNames()...), c.OutputNames()...)
		sort.Strings(methods)
		entry.Invalidation = make(map[string][]int, len(methods))
		for _, m := range methods {
			affected, err := f.FactoriesAffectedByCalling(m)
			if err != nil {
				return Factory{}, err
			}
			ids := make([]int, 0, len(affected))
			for _, a := range affected {
				ids = append(ids, int(a.ID()))
			}
			entry.Invalidation[m] = ids
		}
	}

	return entry, nil
}

// Write renders r to w in the given format.
func (r *Report) Write(w io.Writer, format Format) error {
	switch format {
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(r)
	case FormatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(r); err != nil {
			return err
		}
		return encoder.Close()
	case FormatTable:
		return r.writeTable(w)
	default:
		_, err := ParseFormat(string(format))
		return err
	}
}

func (r *Report) writeTable(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "ID\tKIND\tNAME\tPARENT\tANCHOR\tDIFFABLE\tPATH")
	fmt.Fprintln(tw, "--\t----\t----\t------\t------\t--------\t----")
	for _, f := range r.Factories {
		parent := "-"
		if f.Parent >= 0 {
			parent = fmt.Sprint(f.Parent)
		}
		anchor := f.Anchor
		if anchor == "" {
			anchor = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			f.ID, f.Kind, f.Name, parent, anchor, strings.Join(f.DiffableProps, ","), f.PathFromRoot)
	}

	var rows []string
	for _, f := range r.Factories {
		methods := make([]string, 0, len(f.Invalidation))
		for m := range f.Invalidation {
			methods = append(methods, m)
		}
		sort.Strings(methods)
		for _, m := range methods {
			ids := make([]string, len(f.Invalidation[m]))
			for i, id := range f.Invalidation[m] {
				ids[i] = fmt.Sprint(id)
			}
			rows = append(rows, fmt.Sprintf("%s\t%s\t%s", f.Name, m, strings.Join(ids, ",")))
		}
	}
	if len(rows) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "FACTORY\tMETHOD\tAFFECTED")
		fmt.Fprintln(tw, "-------\t------\t--------")
		for _, row := range rows {
			fmt.Fprintln(tw, row)
		}
	}

	return tw.Flush()
}
