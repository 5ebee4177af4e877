// Package cmd provides the command-line interface for viewc.
//
// This package implements the CLI commands using the Cobra framework.
//
// # Available Commands
//
//   - analyze: Build the factory tree of a project and print its report
//   - watch: Re-run the analysis whenever a Go file, template or style changes
//   - version: Show build information
//
// # Command Examples
//
//	// Analyze the App component of the project in the current directory
//	viewc analyze
//
//	// Analyze another entry point and print JSON with invalidation sets
//	viewc analyze ./web --entry shop.Store -o json --with-invalidation
//
//	// Load the project through go/packages instead of walking the directory
//	viewc analyze --packages ./web/...
//
//	// Re-analyze on every change
//	viewc watch ./web
//
// # Configuration Integration
//
// Commands respect configuration from multiple sources in order of precedence:
//
//  1. Command-line flags (highest priority)
//  2. Environment variables (VIEWC_*)
//  3. Configuration file (.viewc.yml)
//  4. Default values (lowest priority)
//
// # Error Handling
//
// A failed analysis prints the compile error, with its location and a
// suggestion when one is known, and exits with a non-zero status.
package cmd
