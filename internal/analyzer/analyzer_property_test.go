//go:build property

package analyzer

import (
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// templateFromOps turns a random program into a well-formed App template:
// 0 opens an <if>, 1 opens a <for>, 2 closes the innermost block, 3 uses Leaf
// and 4 interpolates Count.
func templateFromOps(ops []int) string {
	var sb strings.Builder
	var open []string
	for i, op := range ops {
		switch op {
		case 0:
			sb.WriteString(`<if condition="Flag">`)
			open = append(open, "</if>")
		case 1:
			fmt.Fprintf(&sb, `<for each="Items" item="it%d" index="ix%d">`, i, i)
			open = append(open, "</for>")
		case 2:
			if len(open) > 0 {
				sb.WriteString(open[len(open)-1])
				open = open[:len(open)-1]
			}
		case 3:
			sb.WriteString(`<Leaf [Value]="Flag" (Done)="Touch()"></Leaf>`)
		case 4:
			sb.WriteString(`<p>{{ Count }}</p>`)
		}
	}
	for i := len(open) - 1; i >= 0; i-- {
		sb.WriteString(open[i])
	}
	return sb.String()
}

func randomTree(t *testing.T, ops []int) *Tree {
	app := &fakeComponent{
		name:      "App",
		variables: []string{"Flag", "Items", "Count"},
		methods:   []string{"Touch"},
		mods:      map[string][]string{"Touch": {"Count"}},
		uses:      []string{"Leaf"},
		src:       templateFromOps(ops),
	}
	leaf := &fakeComponent{
		name:      "Leaf",
		variables: []string{"Value", "Shown"},
		required:  []string{"Value"},
		outputs:   []string{"Done"},
		methods:   []string{"Click"},
		calls:     map[string][]string{"Click": {"Done"}},
		mods:      map[string][]string{"Click": {"Shown"}},
		src:       `<b>{{ Shown }}</b>`,
	}
	tree, err := buildFake(t, newFakeLoader(t, app, leaf), "App")
	if err != nil {
		t.Fatalf("build %q: %v", app.src, err)
	}
	return tree
}

func TestFactoryTreeProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1357)
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)
	ops := gen.SliceOf(gen.IntRange(0, 4))

	properties.Property("every factory is registered once with its parent", prop.ForAll(
		func(ops []int) bool {
			tree := randomTree(t, ops)
			for _, f := range tree.Factories() {
				s, err := f.FirstScopeBoundaryUpwardsIncludingSelf()
				if err != nil || s.Kind() != KindComponent {
					return false
				}
				if f.IsRoot() {
					continue
				}
				parent, err := f.Parent()
				if err != nil {
					return false
				}
				keyed, ok := parent.ChildAt(f.Anchor().ID())
				if !ok || keyed != f {
					return false
				}
				count := 0
				for _, c := range parent.Children() {
					if c == f {
						count++
					}
				}
				if count != 1 {
					return false
				}
			}
			return true
		},
		ops,
	))

	properties.Property("paths follow tree edges and reverse", prop.ForAll(
		func(ops []int) bool {
			tree := randomTree(t, ops)
			factories := tree.Factories()
			for _, a := range factories {
				for _, b := range factories {
					path, err := a.PathTo(b)
					if err != nil || path[0] != a || path[len(path)-1] != b {
						return false
					}
					for i := 1; i < len(path); i++ {
						prev, next := path[i-1], path[i]
						if prev.ParentID() != next.ID() && next.ParentID() != prev.ID() {
							return false
						}
					}
					back, err := b.PathTo(a)
					if err != nil {
						return false
					}
					reversed := slices.Clone(back)
					slices.Reverse(reversed)
					if !slices.Equal(path, reversed) {
						return false
					}
				}
			}
			return true
		},
		ops,
	))

	properties.Property("affected sets are exact and independent of build order", prop.ForAll(
		func(ops []int) bool {
			first, second := randomTree(t, ops), randomTree(t, ops)
			_, countBound := first.Root().PropsBoundToView()["Count"]

			for _, f := range first.Factories() {
				if f.Kind() != KindComponent || f.IsRoot() {
					continue
				}
				affected, err := f.FactoriesAffectedByCalling("Click")
				if err != nil {
					return false
				}
				want := []FactoryID{f.ID()}
				if countBound {
					want = []FactoryID{first.Root().ID(), f.ID()}
				}
				if !slices.Equal(factoryIDs(affected), want) {
					return false
				}

				again, err := second.Factory(f.ID()).FactoriesAffectedByCalling("Click")
				if err != nil || !slices.Equal(factoryIDs(again), want) {
					return false
				}
			}
			return true
		},
		ops,
	))

	properties.TestingRun(t)
}
