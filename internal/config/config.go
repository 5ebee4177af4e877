// Package config provides configuration management for viewc using Viper for
// loading from a .viewc.yml file, VIEWC_ environment variables and
// command-line flags.
//
// The configuration covers where the project lives and which component is the
// entry point, how the report is rendered, the watch debounce and logging.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/spf13/viper"

	viewcerrors "github.com/conneroisu/viewc/internal/errors"
	"github.com/conneroisu/viewc/internal/logging"
	"github.com/conneroisu/viewc/internal/report"
)

// Defaults applied when a value is not configured.
const (
	DefaultEntry             = "App"
	DefaultTemplateExtension = ".html"
	DefaultStyleExtension    = ".css"
	DefaultFileExtension     = ".js"
	DefaultDebounce          = 300 * time.Millisecond
)

type Config struct {
	Project   ProjectConfig   `mapstructure:"project" yaml:"project"`
	Templates TemplatesConfig `mapstructure:"templates" yaml:"templates"`
	Output    OutputConfig    `mapstructure:"output" yaml:"output"`
	Watch     WatchConfig     `mapstructure:"watch" yaml:"watch"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
}

type ProjectConfig struct {
	Root            string   `mapstructure:"root" yaml:"root"`
	Entry           string   `mapstructure:"entry" yaml:"entry"`
	ExcludePatterns []string `mapstructure:"exclude_patterns" yaml:"exclude_patterns"`
	// UsePackages loads the project through go/packages with Patterns instead
	// of walking Root.
	UsePackages     bool     `mapstructure:"use_packages" yaml:"use_packages"`
	Patterns        []string `mapstructure:"patterns" yaml:"patterns"`
}

type TemplatesConfig struct {
	Extension      string `mapstructure:"extension" yaml:"extension"`
	StyleExtension string `mapstructure:"style_extension" yaml:"style_extension"`
}

type OutputConfig struct {
	Format           string `mapstructure:"format" yaml:"format"`
	FileExtension    string `mapstructure:"file_extension" yaml:"file_extension"`
	WithInvalidation bool   `mapstructure:"with_invalidation" yaml:"with_invalidation"`
}

type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

func Load() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, viewcerrors.WrapConfig(err, viewcerrors.ErrCodeConfigInvalid, "cannot decode configuration")
	}

	// Slices set through flags or the environment arrive as comma separated strings.
	if viper.IsSet("project.exclude_patterns") && len(config.Project.ExcludePatterns) == 0 {
		config.Project.ExcludePatterns = viper.GetStringSlice("project.exclude_patterns")
	}
	if viper.IsSet("project.patterns") && len(config.Project.Patterns) == 0 {
		config.Project.Patterns = viper.GetStringSlice("project.patterns")
	}
	if viper.IsSet("watch.debounce") && config.Watch.Debounce == 0 {
		config.Watch.Debounce = viper.GetDuration("watch.debounce")
	}

	applyDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, viewcerrors.WrapConfig(err, viewcerrors.ErrCodeConfigInvalid, "invalid configuration")
	}

	return &config, nil
}

func applyDefaults(config *Config) {
	if config.Project.Root == "" {
		config.Project.Root = "."
	}
	if config.Project.Entry == "" {
		config.Project.Entry = DefaultEntry
	}
	if len(config.Project.Patterns) == 0 {
		config.Project.Patterns = []string{"./..."}
	}

	if config.Templates.Extension == "" {
		config.Templates.Extension = DefaultTemplateExtension
	}
	if config.Templates.StyleExtension == "" {
		config.Templates.StyleExtension = DefaultStyleExtension
	}
	config.Templates.Extension = withDot(config.Templates.Extension)
	config.Templates.StyleExtension = withDot(config.Templates.StyleExtension)

	if config.Output.Format == "" {
		config.Output.Format = string(report.FormatTable)
	}
	if config.Output.FileExtension == "" {
		config.Output.FileExtension = DefaultFileExtension
	}
	config.Output.FileExtension = withDot(config.Output.FileExtension)

	if !viper.IsSet("watch.debounce") && config.Watch.Debounce == 0 {
		config.Watch.Debounce = DefaultDebounce
	}

	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Format == "" {
		config.Log.Format = "text"
	}
}

func withDot(ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		return "." + ext
	}
	return ext
}

// LoggerConfig returns the logger configuration described by the log section.
func (c *Config) LoggerConfig() *logging.LoggerConfig {
	lc := logging.DefaultConfig()
	if level, err := logging.ParseLevel(c.Log.Level); err == nil {
		lc.Level = level
	}
	lc.Format = c.Log.Format
	return lc
}

// validateConfig validates configuration values for correctness
func validateConfig(config *Config) error {
	if err := validateProjectConfig(&config.Project); err != nil {
		return fmt.Errorf("project config: %w", err)
	}
	if err := validateTemplatesConfig(&config.Templates); err != nil {
		return fmt.Errorf("templates config: %w", err)
	}
	if err := validateOutputConfig(&config.Output); err != nil {
		return fmt.Errorf("output config: %w", err)
	}
	if config.Watch.Debounce < 0 {
		return fmt.Errorf("watch config: debounce %s is negative", config.Watch.Debounce)
	}
	if err := validateLogConfig(&config.Log); err != nil {
		return fmt.Errorf("log config: %w", err)
	}
	return nil
}

func validateProjectConfig(config *ProjectConfig) error {
	if strings.ContainsAny(config.Root, dangerousChars) {
		return fmt.Errorf("root contains dangerous character: %s", config.Root)
	}
	if err := validateEntry(config.Entry); err != nil {
		return err
	}
	for _, pattern := range config.ExcludePatterns {
		if err := validatePath(pattern); err != nil {
			return fmt.Errorf("invalid exclude pattern '%s': %w", pattern, err)
		}
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("invalid exclude pattern '%s': %w", pattern, err)
		}
	}
	if config.UsePackages {
		for _, pattern := range config.Patterns {
			if strings.ContainsAny(pattern, dangerousChars) {
				return fmt.Errorf("package pattern contains dangerous character: %s", pattern)
			}
		}
	}
	return nil
}

// validateEntry accepts a component type name, optionally qualified by its
// package: "App" or "app.App".
func validateEntry(entry string) error {
	parts := strings.Split(entry, ".")
	if len(parts) > 2 {
		return fmt.Errorf("entry %q is not a type name", entry)
	}
	for _, part := range parts {
		if !isIdentifier(part) {
			return fmt.Errorf("entry %q is not a type name", entry)
		}
	}
	return nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r != '_' && !unicode.IsLetter(r) && (i == 0 || !unicode.IsDigit(r)) {
			return false
		}
	}
	return true
}

func validateTemplatesConfig(config *TemplatesConfig) error {
	for _, ext := range []string{config.Extension, config.StyleExtension} {
		if err := validateExtension(ext); err != nil {
			return err
		}
	}
	if config.Extension == config.StyleExtension {
		return fmt.Errorf("template and style extension are both %s", config.Extension)
	}
	return nil
}

func validateOutputConfig(config *OutputConfig) error {
	if _, err := report.ParseFormat(config.Format); err != nil {
		return err
	}
	return validateExtension(config.FileExtension)
}

func validateExtension(ext string) error {
	if len(ext) < 2 || strings.ContainsAny(ext[1:], `./\`+dangerousChars) {
		return fmt.Errorf("invalid file extension %q", ext)
	}
	return nil
}

func validateLogConfig(config *LogConfig) error {
	if _, err := logging.ParseLevel(config.Level); err != nil {
		return err
	}
	if config.Format != "text" && config.Format != "json" {
		return fmt.Errorf("unknown log format %q (valid: text, json)", config.Format)
	}
	return nil
}

const dangerousChars = ";&|$`()<>\"'"

// validatePath validates a file path for security
func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}

	cleanPath := filepath.Clean(path)

	// Reject path traversal attempts
	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path contains traversal: %s", path)
	}

	for _, char := range dangerousChars {
		if strings.ContainsRune(cleanPath, char) {
			return fmt.Errorf("path contains dangerous character: %c", char)
		}
	}

	return nil
}
