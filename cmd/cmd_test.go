package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/viewc/internal/config"
	viewcerrors "github.com/conneroisu/viewc/internal/errors"
	"github.com/conneroisu/viewc/internal/logging"
	"github.com/conneroisu/viewc/internal/report"
	"github.com/conneroisu/viewc/internal/watcher"
)

var counterProject = filepath.Join("..", "internal", "analyzer", "testdata", "02-counter")

// resetFlags restores the local flags of c to their defaults.
func resetFlags(c *cobra.Command) {
	c.LocalNonPersistentFlags().VisitAll(func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	})
}

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	for _, c := range rootCmd.Commands() {
		resetFlags(c)
	}

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func loadTestConfig(t *testing.T, settings map[string]any) *config.Config {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	for k, v := range settings {
		viper.Set(k, v)
	}
	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestAnalyzeProject(t *testing.T) {
	cfg := loadTestConfig(t, map[string]any{
		"project.root":             counterProject,
		"output.with_invalidation": true,
	})

	r, err := analyzeProject(context.Background(), cfg, logging.NewNopLogger())
	require.NoError(t, err)
	assert.Equal(t, "App", r.Entry)
	require.Len(t, r.Factories, 2)
	assert.Equal(t, "AppFactory0", r.Factories[0].Name)
	assert.Equal(t, "counterfactory1.js", r.Factories[1].Filename)
	assert.Equal(t, []int{0, 1}, r.Factories[1].Invalidation["Increment"])
}

func TestAnalyzeProjectDefaultTemplates(t *testing.T) {
	dir := writeProject(t, map[string]string{
		"app.go":   "package app\n\n//viewc:component\ntype App struct {\n\tTitle string\n}\n",
		"app.tmpl": "<h1>{{ Title }}</h1>",
	})
	cfg := loadTestConfig(t, map[string]any{"project.root": dir, "templates.extension": "tmpl"})

	r, err := analyzeProject(context.Background(), cfg, logging.NewNopLogger())
	require.NoError(t, err)
	require.Len(t, r.Factories, 1)
	assert.Equal(t, []string{"Title"}, r.Factories[0].DiffableProps)
}

func TestAnalyzeCommandJSON(t *testing.T) {
	out, err := executeCommand(t, "analyze", counterProject, "-o", "json", "--file-extension", "ts", "--with-invalidation")
	require.NoError(t, err)

	var r report.Report
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	require.Len(t, r.Factories, 2)
	assert.Equal(t, "counterfactory1.ts", r.Factories[1].Filename)
	assert.Equal(t, []int{1}, r.Factories[0].Children)
	assert.NotEmpty(t, r.Factories[1].Invalidation)
}

func TestAnalyzeCommandYAMLFromConfigFile(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "viewc.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("output:\n  format: yaml\n"), 0o644))
	t.Cleanup(func() { cfgFile = "" })

	out, err := executeCommand(t, "analyze", counterProject, "--config", cfgPath)
	require.NoError(t, err)

	var r report.Report
	require.NoError(t, yaml.Unmarshal([]byte(out), &r))
	assert.Equal(t, "App", r.Entry)
	assert.Len(t, r.Factories, 2)
}

func TestAnalyzeCommandTable(t *testing.T) {
	out, err := executeCommand(t, "analyze", counterProject)
	require.NoError(t, err)
	assert.Contains(t, out, "AppFactory0")
	assert.Contains(t, out, "CounterFactory1")
}

func TestAnalyzeCommandQuiet(t *testing.T) {
	out, err := executeCommand(t, "analyze", counterProject, "-q")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestAnalyzeCommandErrors(t *testing.T) {
	broken := writeProject(t, map[string]string{
		"app.go": `package app

//viewc:component template=app.html
type App struct {
	Title string
}
`,
		"app.html": "<h1>{{ Titel }}</h1>",
	})

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unresolved member", []string{"analyze", broken}, viewcerrors.ErrCodeMemberNotFound},
		{"unknown entry", []string{"analyze", counterProject, "-e", "Missing"}, "Missing"},
		{"missing root", []string{"analyze", filepath.Join(broken, "nope")}, "project root"},
		{"too many roots", []string{"analyze", broken, counterProject}, "at most one"},
		{"bad format", []string{"analyze", counterProject, "-o", "jsno"}, `did you mean "json"?`},
		{"quiet and verbose", []string{"analyze", counterProject, "-q", "-v"}, "--quiet and --verbose"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executeCommand(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestApplyArgs(t *testing.T) {
	cfg := &config.Config{Project: config.ProjectConfig{Root: "."}}
	applyArgs(cfg, []string{"./web"})
	assert.Equal(t, "./web", cfg.Project.Root)

	cfg.Project.UsePackages = true
	applyArgs(cfg, []string{"./web/...", "./shared"})
	assert.Equal(t, []string{"./web/...", "./shared"}, cfg.Project.Patterns)
	assert.Equal(t, "./web", cfg.Project.Root)

	applyArgs(cfg, nil)
	assert.Equal(t, "./web", cfg.Project.Root)
}

func TestReanalyze(t *testing.T) {
	dir := writeProject(t, map[string]string{
		"app.go": `package app

//viewc:component template=app.html
type App struct {
	Title string
}
`,
		"app.html": "<h1>{{ Title }}</h1>",
	})
	cfg := loadTestConfig(t, map[string]any{"project.root": dir, "output.format": "json"})

	var out bytes.Buffer
	handler := reanalyze(cfg, logging.NewNopLogger(), &out)
	events := []watcher.ChangeEvent{{Type: watcher.EventTypeModified, Path: filepath.Join(dir, "app.html")}}

	require.NoError(t, handler(context.Background(), events))
	var r report.Report
	require.NoError(t, json.Unmarshal(out.Bytes(), &r))
	assert.Equal(t, []string{"Title"}, r.Factories[0].DiffableProps)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.html"), []byte("<h1>{{ Titel }}</h1>"), 0o644))
	err := handler(context.Background(), events)
	require.Error(t, err)
	assert.True(t, viewcerrors.IsUnresolvedReference(err))
}

func TestValidateFormatWithSuggestion(t *testing.T) {
	valid := []string{"table", "json", "yaml"}
	assert.NoError(t, ValidateFormatWithSuggestion("yaml", valid))

	err := ValidateFormatWithSuggestion("tabel", valid)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `did you mean "table"?`)

	err = ValidateFormatWithSuggestion("protobuf", valid)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "did you mean")
}

func TestVersionCommand(t *testing.T) {
	out, err := executeCommand(t, "version", "--format", "json")
	require.NoError(t, err)

	var info map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Contains(t, info, "version")
	assert.Contains(t, info, "go_version")

	out, err = executeCommand(t, "version", "--short")
	require.NoError(t, err)
	assert.NotEmpty(t, out)

	_, err = executeCommand(t, "version", "--format", "xml")
	assert.Error(t, err)
}
