// Package errors provides the typed errors raised while loading components and
// building the factory tree.
//
// Every analysis failure is fatal for the compilation: errors are returned as they
// are detected and never downgraded to warnings. The ErrorCollector exists for the
// loading phase, where many files are parsed and all diagnostics should be shown at
// once before aborting.
package errors

import (
	"fmt"
	"sort"
	"sync"
)

// Diagnostic is a located problem found while loading a project.
type Diagnostic struct {
	Component string
	File      string
	Line      int
	Column    int
	Message   string
	Severity  ErrorSeverity
}

// ErrorSeverity represents the severity of a diagnostic
type ErrorSeverity int

const (
	ErrorSeverityInfo ErrorSeverity = iota
	ErrorSeverityWarning
	ErrorSeverityError
	ErrorSeverityFatal
)

// String returns the string representation of the severity
func (s ErrorSeverity) String() string {
	switch s {
	case ErrorSeverityInfo:
		return "info"
	case ErrorSeverityWarning:
		return "warning"
	case ErrorSeverityError:
		return "error"
	case ErrorSeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error implements the error interface
func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s: %s", d.File, d.Line, d.Column, d.Severity, d.Message)
}

// ErrorCollector collects diagnostics and errors from concurrent loaders
type ErrorCollector struct {
	diagnostics []Diagnostic
	errors      []error
	mutex       sync.RWMutex
}

// NewErrorCollector creates a new error collector
func NewErrorCollector() *ErrorCollector {
	return &ErrorCollector{
		diagnostics: make([]Diagnostic, 0),
		errors:      make([]error, 0),
	}
}

// Add adds a diagnostic to the collector
func (ec *ErrorCollector) Add(d Diagnostic) {
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	ec.diagnostics = append(ec.diagnostics, d)
}

// AddError adds a general error to the collector
func (ec *ErrorCollector) AddError(err error) {
	if err == nil {
		return
	}
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	ec.errors = append(ec.errors, err)
}

// GetDiagnostics returns a copy of the collected diagnostics sorted by file and line
func (ec *ErrorCollector) GetDiagnostics() []Diagnostic {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	result := make([]Diagnostic, len(ec.diagnostics))
	copy(result, ec.diagnostics)
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].File != result[j].File {
			return result[i].File < result[j].File
		}
		return result[i].Line < result[j].Line
	})
	return result
}

// GetAllErrors returns all collected errors (diagnostics first)
func (ec *ErrorCollector) GetAllErrors() []error {
	diagnostics := ec.GetDiagnostics()

	ec.mutex.RLock()
	defer ec.mutex.RUnlock()

	all := make([]error, 0, len(diagnostics)+len(ec.errors))
	for i := range diagnostics {
		all = append(all, &diagnostics[i])
	}
	all = append(all, ec.errors...)

	return all
}

// HasErrors returns true if anything at error severity or above was collected
func (ec *ErrorCollector) HasErrors() bool {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	if len(ec.errors) > 0 {
		return true
	}
	for _, d := range ec.diagnostics {
		if d.Severity >= ErrorSeverityError {
			return true
		}
	}
	return false
}

// Err returns nil when nothing fatal was collected, the single error when there is
// one, and a combined error otherwise.
func (ec *ErrorCollector) Err() error {
	if !ec.HasErrors() {
		return nil
	}
	var errs []error
	for _, err := range ec.GetAllErrors() {
		if d, ok := err.(*Diagnostic); ok && d.Severity < ErrorSeverityError {
			continue
		}
		errs = append(errs, err)
	}
	return CombineErrors(errs...)
}

// GetErrorsByComponent returns diagnostics for a specific component
func (ec *ErrorCollector) GetErrorsByComponent(component string) []Diagnostic {
	var out []Diagnostic
	for _, d := range ec.GetDiagnostics() {
		if d.Component == component {
			out = append(out, d)
		}
	}
	return out
}
