package errors

import (
	"errors"
	"fmt"
)

// Wrap wraps an error with additional context, creating a CompileError if the input is not already one
func Wrap(err error, errType ErrorType, code, message string) *CompileError {
	if err == nil {
		return nil
	}

	// Keep component and location of an inner CompileError visible on the outer one
	var ce *CompileError
	if errors.As(err, &ce) {
		return &CompileError{
			Type:      errType,
			Code:      code,
			Message:   message,
			Cause:     ce,
			Context:   ce.Context,
			Component: ce.Component,
			FilePath:  ce.FilePath,
			Line:      ce.Line,
			Column:    ce.Column,
		}
	}

	return &CompileError{
		Type:    errType,
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// WrapIO wraps an error as an I/O error
func WrapIO(err error, code, message string) *CompileError {
	return Wrap(err, ErrorTypeIO, code, message)
}

// WrapParse wraps an error as a parse error
func WrapParse(err error, code, message string) *CompileError {
	return Wrap(err, ErrorTypeParse, code, message)
}

// WrapConfig wraps an error as a configuration error
func WrapConfig(err error, code, message string) *CompileError {
	return Wrap(err, ErrorTypeConfig, code, message)
}

// WrapInternal wraps an error as an internal error
func WrapInternal(err error, code, message string) *CompileError {
	return Wrap(err, ErrorTypeInternal, code, message)
}

// EnhanceError adds debugging context to an existing error
func EnhanceError(err error, component, filePath string, line, column int) error {
	if err == nil {
		return nil
	}

	var ce *CompileError
	if errors.As(err, &ce) {
		return ce.WithComponent(component).WithLocation(filePath, line, column)
	}

	return &CompileError{
		Type:      ErrorTypeInternal,
		Code:      ErrCodeInternalError,
		Message:   err.Error(),
		Cause:     err,
		Component: component,
		FilePath:  filePath,
		Line:      line,
		Column:    column,
	}
}

// FormatError formats an error for user display
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	var ce *CompileError
	if errors.As(err, &ce) {
		return ce.Error()
	}

	return err.Error()
}

// GetErrorContext extracts context information from a CompileError
func GetErrorContext(err error) map[string]interface{} {
	var ce *CompileError
	if errors.As(err, &ce) {
		context := make(map[string]interface{})
		for k, v := range ce.Context {
			context[k] = v
		}
		if ce.Component != "" {
			context["component"] = ce.Component
		}
		if ce.FilePath != "" {
			context["file"] = ce.FilePath
			if ce.Line > 0 {
				context["line"] = ce.Line
				if ce.Column > 0 {
					context["column"] = ce.Column
				}
			}
		}
		context["type"] = string(ce.Type)
		context["code"] = ce.Code
		return context
	}

	return map[string]interface{}{
		"message": err.Error(),
		"type":    "unknown",
	}
}

// ExtractCause extracts the root cause from a wrapped error
func ExtractCause(err error) error {
	for err != nil {
		var ce *CompileError
		if !errors.As(err, &ce) {
			return err
		}
		if ce.Cause == nil {
			return ce
		}
		err = ce.Cause
	}
	return nil
}

// CombineErrors combines multiple errors into a single error with context
func CombineErrors(errs ...error) error {
	var nonNil []error
	for _, err := range errs {
		if err != nil {
			nonNil = append(nonNil, err)
		}
	}
	if len(nonNil) == 0 {
		return nil
	}
	if len(nonNil) == 1 {
		return nonNil[0]
	}

	messages := make([]string, 0, len(nonNil))
	for _, err := range nonNil {
		messages = append(messages, err.Error())
	}

	return &CompileError{
		Type:    ErrorTypeInternal,
		Code:    "ERR_MULTIPLE_ERRORS",
		Message: fmt.Sprintf("multiple errors occurred: %d errors", len(nonNil)),
		Cause:   errors.Join(nonNil...),
		Context: map[string]interface{}{
			"error_count": len(nonNil),
			"errors":      messages,
		},
	}
}
