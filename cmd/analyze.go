package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/conneroisu/viewc/internal/analyzer"
	"github.com/conneroisu/viewc/internal/component"
	"github.com/conneroisu/viewc/internal/config"
	"github.com/conneroisu/viewc/internal/logging"
	"github.com/conneroisu/viewc/internal/report"
)

var analyzeCmd = &cobra.Command{
	Use:     "analyze [root | patterns...]",
	Aliases: []string{"a"},
	Short:   "Build the factory tree of a project and print its report",
	Long: `Load the components of a project, build the factory tree starting at the
entry component and print, per factory, its place in the tree, the values it
diffs and the bindings it watches.

Any unresolved reference or structural problem in a template is reported with
its location and the command exits with a non-zero status.

Examples:
  viewc analyze                          # Analyze App in the current directory
  viewc analyze ./web -e shop.Store      # Another root and entry component
  viewc analyze -o yaml --with-invalidation
  viewc analyze --packages ./web/...     # Discover files through go/packages`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		analyzeFlags.Bind(cmd)
		if !analyzeFlags.Packages && len(args) > 1 {
			return fmt.Errorf("expected at most one project root, got %d", len(args))
		}
		return analyzeFlags.ValidateFlags()
	},
	RunE: runAnalyze,
}

var analyzeFlags *StandardFlags

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeFlags = AddStandardFlags(analyzeCmd, "project", "output")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyArgs(cfg, args)
	if err := ValidateDirExists(cfg.Project.Root); err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	r, err := analyzeProject(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if analyzeFlags.Verbose {
		logger.Info(ctx, "Analysis complete", "entry", r.Entry, "factories", len(r.Factories))
	}
	if analyzeFlags.Quiet {
		return nil
	}
	return writeReport(cmd.OutOrStdout(), cfg, r)
}

// applyArgs applies the positional arguments: the project root, or package
// patterns when loading through go/packages.
func applyArgs(cfg *config.Config, args []string) {
	if len(args) == 0 {
		return
	}
	if cfg.Project.UsePackages {
		cfg.Project.Patterns = args
		return
	}
	cfg.Project.Root = args[0]
}

// loadProject loads the components of the configured project.
func loadProject(ctx context.Context, cfg *config.Config, logger logging.Logger) (*component.Project, error) {
	opts := []component.Option{
		component.WithLogger(logger),
		component.WithExcludePatterns(cfg.Project.ExcludePatterns...),
		component.WithTemplateExtensions(cfg.Templates.Extension, cfg.Templates.StyleExtension),
	}
	if cfg.Project.UsePackages {
		return component.LoadPackages(ctx, cfg.Project.Root, cfg.Project.Patterns, opts...)
	}
	return component.LoadDir(ctx, cfg.Project.Root, opts...)
}

// analyzeProject loads the project, builds the factory tree of the entry
// component and describes it.
func analyzeProject(ctx context.Context, cfg *config.Config, logger logging.Logger) (*report.Report, error) {
	project, err := loadProject(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	entry, err := project.Lookup(cfg.Project.Entry)
	if err != nil {
		return nil, err
	}

	pa := analyzer.NewProjectAnalyzer(entry, project,
		analyzer.WithLogger(logger),
		analyzer.WithFileExtension(cfg.Output.FileExtension),
	)
	tree, err := pa.Build(ctx)
	if err != nil {
		return nil, err
	}
	return report.Build(tree, report.WithInvalidation(cfg.Output.WithInvalidation))
}

func writeReport(w io.Writer, cfg *config.Config, r *report.Report) error {
	format, err := report.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}
	return r.Write(w, format)
}
