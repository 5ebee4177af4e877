package analyzer

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FactoryName returns the name of the generated factory, unique within the tree,
// e.g. "CounterFactory3" or "RepeatingView7".
func (f *Factory) FactoryName() string {
	switch f.kind {
	case KindComponent:
		return fmt.Sprintf("%sFactory%d", cases.Title(language.Und, cases.NoLower).String(f.component.Name()), f.id)
	case KindConditional:
		return fmt.Sprintf("ConditionalView%d", f.id)
	case KindRepeating:
		return fmt.Sprintf("RepeatingView%d", f.id)
	case KindPartialView:
		return fmt.Sprintf("PartialView%d", f.id)
	default:
		return fmt.Sprintf("Factory%d", f.id)
	}
}

// FactoryFilenameWithExtension returns the file the generated factory is written to.
func (f *Factory) FactoryFilenameWithExtension() string {
	return strings.ToLower(f.FactoryName()) + f.tree.extension
}

// ComponentName returns the name of the component whose scope f belongs to.
func (f *Factory) ComponentName() string { return f.scopeComponentName() }

// StyleSource returns the style sheet of a component factory, "" otherwise.
func (f *Factory) StyleSource() string {
	if f.kind != KindComponent {
		return ""
	}
	return f.component.StyleSource()
}

// ScopeIdentifier returns the identifier generated styles of f's scope are
// qualified with, e.g. "counter-3".
func (f *Factory) ScopeIdentifier() string {
	s, err := f.FirstScopeBoundaryUpwardsIncludingSelf()
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%s-%d", strings.ToLower(s.component.Name()), s.id)
}
