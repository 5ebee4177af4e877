package errors

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorSeverityString(t *testing.T) {
	testCases := []struct {
		severity ErrorSeverity
		expected string
	}{
		{ErrorSeverityInfo, "info"},
		{ErrorSeverityWarning, "warning"},
		{ErrorSeverityError, "error"},
		{ErrorSeverityFatal, "fatal"},
		{ErrorSeverity(999), "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.severity.String())
		})
	}
}

func TestDiagnosticError(t *testing.T) {
	d := Diagnostic{
		Component: "Counter",
		File:      "counter.html",
		Line:      10,
		Column:    5,
		Message:   "unclosed tag",
		Severity:  ErrorSeverityError,
	}

	assert.Equal(t, "counter.html:10:5: error: unclosed tag", d.Error())
}

func TestCompileErrorFormatting(t *testing.T) {
	err := NewUnresolvedReferenceError(ErrCodeMemberNotFound, `"count" is not defined`).
		WithComponent("Counter").
		WithLocation("counter.html", 3, 7)

	assert.Equal(t, `[ERR_MEMBER_NOT_FOUND] component:Counter counter.html:3:7 "count" is not defined`, err.Error())

	wrapped := NewParseError(ErrCodeInvalidTemplate, "bad template", fmt.Errorf("eof"))
	assert.Equal(t, "[ERR_INVALID_TEMPLATE] bad template: eof", wrapped.Error())
}

func TestCompileErrorIs(t *testing.T) {
	err := ErrTreeAlreadyBuilt()

	assert.True(t, errors.Is(err, ErrTreeAlreadyBuilt()))
	assert.False(t, errors.Is(err, NewInvariantError(ErrCodeAmbiguousIndex, "x")))
	assert.True(t, IsInvariantViolation(err))
	assert.False(t, IsStructural(err))
}

func TestHasErrorTypeFollowsChain(t *testing.T) {
	inner := NewStructuralError(ErrCodeRequiredInput, "missing input")
	outer := WrapInternal(inner, "ERR_OUTER", "analysis failed")

	assert.True(t, HasErrorType(outer, ErrorTypeInternal))
	assert.True(t, HasErrorType(outer, ErrorTypeStructural))
	assert.True(t, HasErrorCode(outer, ErrCodeRequiredInput))
	assert.False(t, HasErrorType(fmt.Errorf("plain"), ErrorTypeStructural))
	assert.Equal(t, inner, ExtractCause(outer))
}

func TestWrapPreservesLocation(t *testing.T) {
	inner := NewParseError(ErrCodeInvalidTemplate, "unexpected end tag", nil).
		WithComponent("App").
		WithLocation("app.html", 4, 0)

	outer := WrapIO(inner, ErrCodeFileNotFound, "loading template")
	require.NotNil(t, outer)
	assert.Equal(t, "App", outer.Component)
	assert.Equal(t, "app.html", outer.FilePath)
	assert.Equal(t, 4, outer.Line)
	assert.Nil(t, Wrap(nil, ErrorTypeIO, "X", "y"))
}

func TestErrMemberNotFoundSuggests(t *testing.T) {
	err := ErrMemberNotFound("cout", "Counter", []string{"count", "increment", "label"})

	assert.Contains(t, err.Error(), `did you mean "count"?`)
	assert.True(t, IsUnresolvedReference(err))
	assert.Equal(t, "cout", GetErrorContext(err)["name"])
}

func TestClosestMatch(t *testing.T) {
	testCases := []struct {
		name       string
		input      string
		candidates []string
		expected   string
	}{
		{"exact typo", "tittle", []string{"title", "subtitle"}, "title"},
		{"case insensitive", "Count", []string{"count"}, "count"},
		{"too far", "zzzzzzzz", []string{"count"}, ""},
		{"empty candidates", "count", nil, ""},
		{"ties resolve alphabetically", "ab", []string{"ac", "aa"}, "aa"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ClosestMatch(tc.input, tc.candidates))
		})
	}
}

func TestCombineErrors(t *testing.T) {
	assert.Nil(t, CombineErrors(nil, nil))

	single := fmt.Errorf("one")
	assert.Equal(t, single, CombineErrors(nil, single))

	combined := CombineErrors(fmt.Errorf("one"), fmt.Errorf("two"))
	require.Error(t, combined)
	assert.Contains(t, combined.Error(), "2 errors")
	assert.Equal(t, 2, GetErrorContext(combined)["error_count"])
}

func TestErrorCollector(t *testing.T) {
	collector := NewErrorCollector()
	assert.False(t, collector.HasErrors())
	assert.NoError(t, collector.Err())

	collector.Add(Diagnostic{File: "b.html", Line: 2, Message: "warn", Severity: ErrorSeverityWarning})
	assert.False(t, collector.HasErrors())

	collector.Add(Diagnostic{Component: "App", File: "a.html", Line: 9, Message: "bad", Severity: ErrorSeverityError})
	collector.Add(Diagnostic{Component: "App", File: "a.html", Line: 1, Message: "worse", Severity: ErrorSeverityFatal})
	assert.True(t, collector.HasErrors())

	diagnostics := collector.GetDiagnostics()
	require.Len(t, diagnostics, 3)
	assert.Equal(t, "worse", diagnostics[0].Message)
	assert.Equal(t, "bad", diagnostics[1].Message)
	assert.Len(t, collector.GetErrorsByComponent("App"), 2)

	err := collector.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 errors")
}

func TestErrorCollectorConcurrency(t *testing.T) {
	collector := NewErrorCollector()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			collector.AddError(fmt.Errorf("error %d", i))
			collector.AddError(nil)
		}(i)
	}
	wg.Wait()

	assert.Len(t, collector.GetAllErrors(), 20)
}
