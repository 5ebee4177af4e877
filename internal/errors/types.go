package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	// ErrorTypeUnresolvedReference covers names that cannot be resolved: unregistered
	// components, unknown members, unknown inputs/outputs and failed method lookups.
	ErrorTypeUnresolvedReference ErrorType = "unresolved_reference"
	// ErrorTypeStructural covers trees that cannot be shaped as required: missing scope
	// boundaries, directives without a partial view, missing required inputs, cycles.
	ErrorTypeStructural ErrorType = "structural"
	// ErrorTypeInvariant covers violated internal invariants.
	ErrorTypeInvariant ErrorType = "invariant_violation"
	ErrorTypeParse     ErrorType = "parse"
	ErrorTypeIO        ErrorType = "io"
	ErrorTypeConfig    ErrorType = "config"
	ErrorTypeInternal  ErrorType = "internal"
)

// CompileError is a structured error type with context.
type CompileError struct {
	Type      ErrorType
	Code      string
	Message   string
	Cause     error
	Context   map[string]interface{}
	Component string
	FilePath  string
	Line      int
	Column    int
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Component != "" {
		parts = append(parts, "component:"+e.Component)
	}

	if e.FilePath != "" {
		location := e.FilePath
		if e.Line > 0 {
			location += fmt.Sprintf(":%d", e.Line)
			if e.Column > 0 {
				location += fmt.Sprintf(":%d", e.Column)
			}
		}
		parts = append(parts, location)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *CompileError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *CompileError) Is(target error) bool {
	var t *CompileError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *CompileError) WithContext(key string, value interface{}) *CompileError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithLocation adds file location information.
func (e *CompileError) WithLocation(filePath string, line, column int) *CompileError {
	e.FilePath = filePath
	e.Line = line
	e.Column = column

	return e
}

// WithComponent adds component context.
func (e *CompileError) WithComponent(component string) *CompileError {
	e.Component = component

	return e
}

// Error creation functions

// NewUnresolvedReferenceError creates an error for a name that could not be resolved.
func NewUnresolvedReferenceError(code, message string) *CompileError {
	return &CompileError{
		Type:    ErrorTypeUnresolvedReference,
		Code:    code,
		Message: message,
	}
}

// NewStructuralError creates an error for a tree that cannot be shaped as required.
func NewStructuralError(code, message string) *CompileError {
	return &CompileError{
		Type:    ErrorTypeStructural,
		Code:    code,
		Message: message,
	}
}

// NewInvariantError creates an error for a violated internal invariant.
func NewInvariantError(code, message string) *CompileError {
	return &CompileError{
		Type:    ErrorTypeInvariant,
		Code:    code,
		Message: message,
	}
}

// NewParseError creates a template or expression parse error.
func NewParseError(code, message string, cause error) *CompileError {
	return &CompileError{
		Type:    ErrorTypeParse,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *CompileError {
	return &CompileError{
		Type:    ErrorTypeIO,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *CompileError {
	return &CompileError{
		Type:    ErrorTypeConfig,
		Code:    code,
		Message: message,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *CompileError {
	return &CompileError{
		Type:    ErrorTypeInternal,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// IsUnresolvedReference checks if an error is an unresolved reference.
func IsUnresolvedReference(err error) bool {
	return HasErrorType(err, ErrorTypeUnresolvedReference)
}

// IsStructural checks if an error is structural.
func IsStructural(err error) bool {
	return HasErrorType(err, ErrorTypeStructural)
}

// IsInvariantViolation checks if an error is an invariant violation.
func IsInvariantViolation(err error) bool {
	return HasErrorType(err, ErrorTypeInvariant)
}

// IsParseError checks if an error came from template or expression parsing.
func IsParseError(err error) bool {
	return HasErrorType(err, ErrorTypeParse)
}

// HasErrorType reports whether any CompileError in the chain has the given type.
func HasErrorType(err error, errType ErrorType) bool {
	for err != nil {
		var ce *CompileError
		if !errors.As(err, &ce) {
			return false
		}
		if ce.Type == errType {
			return true
		}
		err = ce.Cause
	}

	return false
}

// HasErrorCode reports whether any CompileError in the chain has the given code.
func HasErrorCode(err error, code string) bool {
	for err != nil {
		var ce *CompileError
		if !errors.As(err, &ce) {
			return false
		}
		if ce.Code == code {
			return true
		}
		err = ce.Cause
	}

	return false
}

// Common error codes.
const (
	ErrCodeComponentNotFound   = "ERR_COMPONENT_NOT_FOUND"
	ErrCodeMemberNotFound      = "ERR_MEMBER_NOT_FOUND"
	ErrCodeInputNotFound       = "ERR_INPUT_NOT_FOUND"
	ErrCodeOutputNotFound      = "ERR_OUTPUT_NOT_FOUND"
	ErrCodeMethodNotFound      = "ERR_METHOD_NOT_FOUND"
	ErrCodeNoScopeBoundary     = "ERR_NO_SCOPE_BOUNDARY"
	ErrCodeNoPartialView       = "ERR_NO_PARTIAL_VIEW"
	ErrCodeRequiredInput       = "ERR_REQUIRED_INPUT_MISSING"
	ErrCodeRegistrationCycle   = "ERR_REGISTRATION_CYCLE"
	ErrCodeDuplicateChild      = "ERR_DUPLICATE_CHILD"
	ErrCodeTreeAlreadyBuilt    = "ERR_TREE_ALREADY_BUILT"
	ErrCodeAmbiguousIndex      = "ERR_AMBIGUOUS_INDEX"
	ErrCodeRootHasNoParent     = "ERR_ROOT_HAS_NO_PARENT"
	ErrCodeForeignFactory      = "ERR_FOREIGN_FACTORY"
	ErrCodeInvalidTemplate     = "ERR_INVALID_TEMPLATE"
	ErrCodeInvalidExpression   = "ERR_INVALID_EXPRESSION"
	ErrCodeInvalidAnnotation   = "ERR_INVALID_ANNOTATION"
	ErrCodeFileNotFound        = "ERR_FILE_NOT_FOUND"
	ErrCodeConfigInvalid       = "ERR_CONFIG_INVALID"
	ErrCodeInternalError       = "ERR_INTERNAL"
	ErrCodePackageLoadFailed   = "ERR_PACKAGE_LOAD_FAILED"
	ErrCodeDuplicateComponent  = "ERR_DUPLICATE_COMPONENT"
	ErrCodeUnsupportedOperator = "ERR_UNSUPPORTED_EXPRESSION"
)

// ErrComponentNotFound is returned when a used component name is not registered.
func ErrComponentNotFound(usedName, inComponent string) *CompileError {
	return NewUnresolvedReferenceError(
		ErrCodeComponentNotFound,
		fmt.Sprintf("component %q is not registered", usedName),
	).WithComponent(inComponent)
}

// ErrMemberNotFound is returned when a binding names a member that no scope defines.
func ErrMemberNotFound(name, inComponent string, known []string) *CompileError {
	msg := fmt.Sprintf("%q is not defined", name)
	if suggestion := ClosestMatch(name, known); suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", suggestion)
	}

	return NewUnresolvedReferenceError(ErrCodeMemberNotFound, msg).
		WithComponent(inComponent).
		WithContext("name", name)
}

// ErrTreeAlreadyBuilt is returned when the factory tree is built a second time.
func ErrTreeAlreadyBuilt() *CompileError {
	return NewInvariantError(ErrCodeTreeAlreadyBuilt, "factory tree has already been built")
}
