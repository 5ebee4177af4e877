package analyzer

import (
	"fmt"
	"slices"
	"strings"

	viewcerrors "github.com/conneroisu/viewc/internal/errors"
)

// PathTo returns the factories on the tree path from f to other, both included.
// The path climbs to the lowest common ancestor and descends from there.
func (f *Factory) PathTo(other *Factory) ([]*Factory, error) {
	if other == nil || other.tree != f.tree {
		return nil, viewcerrors.NewInvariantError(viewcerrors.ErrCodeForeignFactory,
			fmt.Sprintf("factory %d and the target belong to different trees", f.id))
	}

	key := pathKey{from: f.id, to: other.id}
	ids, ok := f.tree.memo.paths[key]
	if !ok {
		ids = f.tree.path(f.id, other.id)
		f.tree.memo.paths[key] = ids
	}

	out := make([]*Factory, len(ids))
	for i, id := range ids {
		out[i] = f.tree.factories[id]
	}
	return out, nil
}

func (t *Tree) ancestry(id FactoryID) []FactoryID {
	var out []FactoryID
	for ; id != NoFactory; id = t.factories[id].parent {
		out = append(out, id)
	}
	return out
}

func (t *Tree) path(from, to FactoryID) []FactoryID {
	up := t.ancestry(from)
	down := t.ancestry(to)

	onDown := make(map[FactoryID]int, len(down))
	for i, id := range down {
		onDown[id] = i
	}

	var out []FactoryID
	for _, id := range up {
		out = append(out, id)
		if i, ok := onDown[id]; ok {
			rest := slices.Clone(down[:i])
			slices.Reverse(rest)
			return append(out, rest...)
		}
	}
	return out
}

// PrintPathTo renders the path from f to other as a runtime access chain such as
// "this.parent.children[1].partialView".
func (f *Factory) PrintPathTo(other *Factory) (string, error) {
	path, err := f.PathTo(other)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("this")
	for i := 1; i < len(path); i++ {
		prev, next := path[i-1], path[i]
		switch {
		case prev.parent == next.id:
			if prev.kind == KindPartialView && next.IsDirective() {
				sb.WriteString(".directive")
			} else {
				sb.WriteString(".parent")
			}
		case next.parent == prev.id:
			if prev.IsDirective() && next.kind == KindPartialView {
				sb.WriteString(".partialView")
			} else {
				fmt.Fprintf(&sb, ".children[%d]", slices.Index(prev.childOrder, next.id))
			}
		}
	}
	return sb.String(), nil
}
