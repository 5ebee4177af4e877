package cmd

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	viewcerrors "github.com/conneroisu/viewc/internal/errors"
	"github.com/conneroisu/viewc/internal/report"
)

// StandardFlags provides consistent flag definitions across commands
type StandardFlags struct {
	// Project flags
	Entry    string   `flag:"entry,e" desc:"Entry component type name" default:"App"`
	Packages bool     `flag:"packages" desc:"Load the project through go/packages" default:"false"`
	Exclude  []string `flag:"exclude" desc:"Glob patterns of files and directories to skip" default:""`

	// Output flags
	OutputFormat     string `flag:"output,o" desc:"Output format (table|json|yaml)" default:"table"`
	FileExtension    string `flag:"file-extension" desc:"Extension of generated factory files" default:".js"`
	WithInvalidation bool   `flag:"with-invalidation" desc:"Include invalidation sets" default:"false"`
	Verbose          bool   `flag:"verbose,v" desc:"Enable verbose output" default:"false"`
	Quiet            bool   `flag:"quiet,q" desc:"Suppress output" default:"false"`

	// flag name to configuration key
	bindings map[string]string
}

// AddStandardFlags adds standard flags to a command
func AddStandardFlags(cmd *cobra.Command, flagTypes ...string) *StandardFlags {
	flags := &StandardFlags{bindings: make(map[string]string)}

	for _, flagType := range flagTypes {
		switch flagType {
		case "project":
			addProjectFlags(cmd, flags)
		case "output":
			addOutputFlags(cmd, flags)
		}
	}

	return flags
}

func addProjectFlags(cmd *cobra.Command, flags *StandardFlags) {
	cmd.Flags().StringVarP(&flags.Entry, "entry", "e", "App", "Entry component type name, optionally package qualified")
	cmd.Flags().BoolVar(&flags.Packages, "packages", false, "Treat the arguments as go/packages patterns")
	cmd.Flags().StringSliceVar(&flags.Exclude, "exclude", nil, "Glob patterns of files and directories to skip")
	flags.bindings["entry"] = "project.entry"
	flags.bindings["packages"] = "project.use_packages"
	flags.bindings["exclude"] = "project.exclude_patterns"
}

func addOutputFlags(cmd *cobra.Command, flags *StandardFlags) {
	cmd.Flags().StringVarP(&flags.OutputFormat, "output", "o", "table", "Output format (table|json|yaml)")
	cmd.Flags().StringVar(&flags.FileExtension, "file-extension", ".js", "Extension of generated factory files")
	cmd.Flags().BoolVar(&flags.WithInvalidation, "with-invalidation", false, "Include the factories invalidated by each method")
	cmd.Flags().BoolVarP(&flags.Verbose, "verbose", "v", false, "Enable verbose output")
	cmd.Flags().BoolVarP(&flags.Quiet, "quiet", "q", false, "Suppress output")
	flags.bindings["output"] = "output.format"
	flags.bindings["file-extension"] = "output.file_extension"
	flags.bindings["with-invalidation"] = "output.with_invalidation"
	AddFlagValidation(cmd, "output", func(format string) error {
		return ValidateFormatWithSuggestion(format, formatNames())
	})
}

// ValidateFlags validates flag combinations and values
func (f *StandardFlags) ValidateFlags() error {
	if f.Quiet && f.Verbose {
		return fmt.Errorf("cannot specify both --quiet and --verbose")
	}
	if f.OutputFormat != "" {
		if err := ValidateFormatWithSuggestion(f.OutputFormat, formatNames()); err != nil {
			return err
		}
	}
	return nil
}

// Bind binds the command's standard flags to their configuration keys. It
// runs before the command, since commands share the keys and the last
// binding wins.
func (f *StandardFlags) Bind(cmd *cobra.Command) {
	SetViperBindings(cmd, f.bindings)
}

// SetViperBindings binds flags to viper configuration keys so that a flag set
// on the command line overrides the configuration file.
func SetViperBindings(cmd *cobra.Command, bindings map[string]string) {
	for flagName, configKey := range bindings {
		if flag := cmd.Flags().Lookup(flagName); flag != nil {
			_ = viper.BindPFlag(configKey, flag)
		}
	}
}

// AddFlagValidation adds validation for a specific flag
func AddFlagValidation(cmd *cobra.Command, flagName string, validator func(string) error) {
	flag := cmd.Flags().Lookup(flagName)
	if flag == nil {
		return
	}

	flag.Value = &validatingValue{
		Value:     flag.Value,
		validator: validator,
	}
}

type validatingValue struct {
	pflag.Value
	validator func(string) error
}

func (v *validatingValue) Set(val string) error {
	if v.validator != nil {
		if err := v.validator(val); err != nil {
			return err
		}
	}
	return v.Value.Set(val)
}

// ValidateFormatWithSuggestion rejects a format outside valid, suggesting the
// closest valid one.
func ValidateFormatWithSuggestion(format string, valid []string) error {
	if slices.Contains(valid, format) {
		return nil
	}
	msg := fmt.Sprintf("invalid format %q, must be one of: %s", format, strings.Join(valid, ", "))
	if suggestion := viewcerrors.ClosestMatch(format, valid); suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", suggestion)
	}
	return errors.New(msg)
}

func formatNames() []string {
	names := make([]string, len(report.Formats))
	for i, f := range report.Formats {
		names[i] = string(f)
	}
	return names
}

// ValidateDirExists checks that path names an existing directory.
func ValidateDirExists(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("project root %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("project root %s is not a directory", path)
	}
	return nil
}
