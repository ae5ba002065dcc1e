package cli

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/restitch/restitch/pkg/observability"
	"github.com/restitch/restitch/pkg/pipeline"
	"github.com/restitch/restitch/pkg/restore"
)

// restoreCommand creates the restore command.
func (c *CLI) restoreCommand() *cobra.Command {
	opts := &scanOpts{}
	var (
		outputDir string
		model     string
		refresh   bool
		noCache   bool
		plain     bool
	)

	cmd := &cobra.Command{
		Use:   "restore <root-file>",
		Short: "Restore discovered files in dependency order",
		Long: `Discover the dependency graph from the root file, then restore every
readable file to clean source in dependency order, so each file's restored
dependencies are available as model context. Output mirrors the source tree
under the output directory; ".unluac" markers are dropped from file names.

Requires GEMINI_API_KEY in the environment (a .env file is honored).

Examples:
  restitch restore main.lua.unluac
  restitch restore -r ./src --output-dir out main.lua.unluac
  restitch restore --refresh main.lua.unluac   # ignore cached restorations`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if model != "" {
				cfg.LLM.Model = model
			}

			restorer, err := restore.NewGemini(cmd.Context(), cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.Retries)
			if err != nil {
				return err
			}
			defer restorer.Close()

			runner, err := c.newRunner(cmd, cfg, restorer, noCache)
			if err != nil {
				return err
			}
			defer runner.Cache.Close()

			pipeOpts, err := opts.pipelineOptions(cfg, args[0])
			if err != nil {
				return err
			}
			pipeOpts.Restore = true
			pipeOpts.Refresh = refresh
			if outputDir != "" {
				pipeOpts.OutputDir = outputDir
			}

			ctx := withLogger(cmd.Context(), c.Logger)
			pipeOpts.Logger = loggerFromContext(ctx)

			result, err := c.runRestore(ctx, runner, pipeOpts, plain)
			if err != nil {
				return err
			}

			printSuccess("Restored %d files to %s", len(result.Restored), pipeOpts.OutputDir)
			printCacheStatus(result.CacheInfo.RestoreHits, result.CacheInfo.RestoreMisses)
			if result.Summary.ErrorCount > 0 {
				printWarning("%d files could not be read and were skipped", result.Summary.ErrorCount)
			}
			if len(result.Linearization.Cycles) > 0 {
				printWarning("%d dependency cycles; members were restored in lexicographic order", len(result.Linearization.Cycles))
			}
			return nil
		},
	}

	registerScanFlags(cmd, opts)
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "directory for restored files")
	cmd.Flags().StringVarP(&model, "model", "m", "", "override the configured model")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass cached restorations")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the restoration cache")
	cmd.Flags().BoolVar(&plain, "plain", false, "disable the interactive progress display")

	return cmd
}

// runRestore executes the pipeline, with a live progress display unless
// plain output was requested.
func (c *CLI) runRestore(ctx context.Context, runner *pipeline.Runner, opts pipeline.Options, plain bool) (*pipeline.Result, error) {
	if plain {
		return runner.Execute(ctx, opts)
	}

	program := tea.NewProgram(NewRestoreProgressModel(), tea.WithOutput(os.Stderr), tea.WithContext(ctx))
	observability.SetRestoreHooks(teaRestoreHooks{program: program})
	defer observability.Reset()

	var (
		result *pipeline.Result
		runErr error
	)
	go func() {
		result, runErr = runner.Execute(ctx, opts)
		program.Send(runDoneMsg{})
	}()

	if _, err := program.Run(); err != nil {
		return nil, fmt.Errorf("progress display: %w", err)
	}
	if runErr == nil && result == nil {
		// Display quit before the pipeline finished (ctrl+c).
		return nil, context.Canceled
	}
	return result, runErr
}
