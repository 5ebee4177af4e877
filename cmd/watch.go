package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/conneroisu/viewc/internal/config"
	"github.com/conneroisu/viewc/internal/logging"
	"github.com/conneroisu/viewc/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:     "watch [root]",
	Aliases: []string{"w"},
	Short:   "Re-analyze the project whenever a source file changes",
	Long: `Watch the Go files, templates and styles of a project and re-run the
analysis after every debounced batch of changes. Test files, vendored code and
.git are ignored.

Examples:
  viewc watch                     # Watch the current directory
  viewc watch ./web -o json       # Print a JSON report after every change
  viewc watch -q                  # Only log failures`,
	Args: cobra.MaximumNArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		watchFlags.Bind(cmd)
		SetViperBindings(cmd, map[string]string{"debounce": "watch.debounce"})
		return watchFlags.ValidateFlags()
	},
	RunE: runWatch,
}

var watchFlags *StandardFlags

func init() {
	rootCmd.AddCommand(watchCmd)
	watchFlags = AddStandardFlags(watchCmd, "project", "output")
	watchCmd.Flags().Duration("debounce", config.DefaultDebounce, "Delay grouping rapid changes into one analysis")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if len(args) == 1 {
		cfg.Project.Root = args[0]
	}
	if err := ValidateDirExists(cfg.Project.Root); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fileWatcher, err := watcher.NewFileWatcher(cfg.Watch.Debounce, logger)
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fileWatcher.Stop()

	for _, filter := range watcher.ProjectFilters(cfg.Templates.Extension, cfg.Templates.StyleExtension) {
		fileWatcher.AddFilter(filter)
	}
	if err := fileWatcher.AddRecursive(cfg.Project.Root); err != nil {
		return fmt.Errorf("failed to watch %s: %w", cfg.Project.Root, err)
	}

	out := cmd.OutOrStdout()
	if watchFlags.Quiet {
		out = io.Discard
	}
	handler := reanalyze(cfg, logger, out)
	fileWatcher.AddHandler(handler)

	// The first analysis may fail; the watcher keeps going until it is fixed.
	if err := handler(ctx, nil); err != nil {
		logger.Error(ctx, err, "Analysis failed")
	}

	if err := fileWatcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}

	<-ctx.Done()
	fmt.Fprintln(os.Stderr, "Stopping file watcher...")
	return nil
}

// reanalyze returns a change handler that re-runs the analysis and writes the
// report to out. Runs do not overlap.
func reanalyze(cfg *config.Config, logger logging.Logger, out io.Writer) watcher.ChangeHandler {
	var mu sync.Mutex
	return func(ctx context.Context, events []watcher.ChangeEvent) error {
		mu.Lock()
		defer mu.Unlock()

		for _, event := range events {
			logger.Debug(ctx, "Source changed", "path", event.Path, "type", event.Type.String())
		}
		r, err := analyzeProject(ctx, cfg, logger)
		if err != nil {
			return err
		}
		logger.Info(ctx, "Analysis complete", "changes", len(events), "factories", len(r.Factories))
		return writeReport(out, cfg, r)
	}
}
