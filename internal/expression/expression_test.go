package expression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	viewcerrors "github.com/conneroisu/viewc/internal/errors"
)

func TestParseKinds(t *testing.T) {
	testCases := []struct {
		src      string
		kind     Kind
		rawPath  string
		idents   []string
		usesHole bool
	}{
		{"count", KindPropertyAccess, "count", []string{"count"}, false},
		{"user.address.city", KindPropertyAccess, "user.address.city", []string{"user"}, false},
		{"rows[i].label", KindPropertyAccess, "rows[i].label", []string{"rows", "i"}, false},
		{"rows.label[i]", KindPropertyAccess, "rows.label[i]", []string{"rows", "i"}, false},
		{"rows[0].label", KindPropertyAccess, "rows[0].label", []string{"rows"}, false},
		{"rows[ids[i]]", KindPropertyAccess, "rows[ids[i]]", []string{"rows", "ids", "i"}, false},
		{`user["name"]`, KindPropertyAccess, "user.name", []string{"user"}, false},
		{"increment()", KindMethodCall, "increment", []string{"increment"}, false},
		{"store.save(todo, $event)", KindMethodCall, "store.save", []string{"store", "todo"}, true},
		{"'hello'", KindConstant, "", nil, false},
		{"42", KindConstant, "", nil, false},
		{"true", KindConstant, "", nil, false},
		{"nil", KindConstant, "", nil, false},
		{"$event", KindPropertyAccess, "$event", nil, true},
	}

	for _, tc := range testCases {
		t.Run(tc.src, func(t *testing.T) {
			e, err := Parse(tc.src)
			require.NoError(t, err)
			assert.Equal(t, tc.kind, e.Kind())
			assert.Equal(t, tc.rawPath, e.RawPath())
			assert.Equal(t, tc.idents, e.Identifiers())
			assert.Equal(t, tc.usesHole, e.UsesPlaceholder())
			assert.Equal(t, tc.src, e.Source())
		})
	}
}

func TestParseConstantValues(t *testing.T) {
	assert.Equal(t, "hello", MustParse(`"hello"`).Value())
	assert.Equal(t, 42, MustParse("42").Value())
	assert.Equal(t, 1.5, MustParse("1.5").Value())
	assert.Equal(t, false, MustParse("false").Value())
}

func TestParseRejectsUnsupportedShapes(t *testing.T) {
	for _, src := range []string{
		"",
		"   ",
		"count + 1",
		"!visible",
		"a ? b : c",
		"outer(inner())",
		"len(items)",
		"items[",
	} {
		t.Run(src, func(t *testing.T) {
			_, err := Parse(src)
			require.Error(t, err)
			assert.True(t, viewcerrors.IsParseError(err))
		})
	}
}

func TestConstant(t *testing.T) {
	e := Constant("primary")
	assert.True(t, e.IsConstant())
	assert.Equal(t, "primary", e.Value())
	assert.Equal(t, `"primary"`, e.Source())
	assert.Empty(t, e.Identifiers())
	assert.Equal(t, "", e.Root())
}

func TestPathIsCopied(t *testing.T) {
	e := MustParse("user.name")
	p := e.Path()
	p[0] = "mutated"
	assert.Equal(t, "user", e.Root())
}

func TestSegmentsKeepIndexPositions(t *testing.T) {
	e := MustParse("Names[I].first[J]")
	segs := e.Segments()
	require.Len(t, segs, 4)
	assert.Equal(t, "Names", segs[0].Name)
	require.NotNil(t, segs[1].Index)
	assert.Equal(t, "I", segs[1].Index.RawPath())
	assert.Equal(t, "first", segs[2].Name)
	require.NotNil(t, segs[3].Index)
	assert.Equal(t, "J", segs[3].Index.RawPath())

	assert.Equal(t, []string{"Names", "first"}, e.Path())
	assert.NotEqual(t, MustParse("Names[I].first").RawPath(), MustParse("Names[J].first").RawPath())
	assert.NotEqual(t, MustParse("Names[I].first").RawPath(), MustParse("Names.first[I]").RawPath())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "constant", KindConstant.String())
	assert.Equal(t, "property_access", KindPropertyAccess.String())
	assert.Equal(t, "method_call", KindMethodCall.String())
	assert.Equal(t, "unknown", Kind(9).String())
}

func TestSubexpressions(t *testing.T) {
	e := MustParse("rows[i].select(item, 'x')")
	subs := e.Subexpressions()
	require.Len(t, subs, 3)
	assert.Equal(t, "i", subs[0].RawPath())
	assert.Equal(t, "item", subs[1].RawPath())
	assert.True(t, subs[2].IsConstant())

	assert.Empty(t, MustParse("count").Subexpressions())
}
