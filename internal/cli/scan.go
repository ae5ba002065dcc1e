package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/restitch/restitch/pkg/config"
	"github.com/restitch/restitch/pkg/pipeline"
	"github.com/restitch/restitch/pkg/report"
)

// scanOpts holds the command-line flags shared by scan and restore.
type scanOpts struct {
	searchRoots []string // resolver roots, highest priority first
	extensions  []string // probe extensions per root
	maxDepth    int
	maxNodes    int
	workers     int
}

// registerScanFlags wires the discovery flags onto a command.
func registerScanFlags(cmd *cobra.Command, opts *scanOpts) {
	cmd.Flags().StringArrayVarP(&opts.searchRoots, "search-root", "r", nil, "search root for resolving identifiers (repeatable, priority order)")
	cmd.Flags().StringSliceVar(&opts.extensions, "ext", nil, "file extensions to probe, priority order")
	cmd.Flags().IntVar(&opts.maxDepth, "max-depth", 0, "maximum reference-chain depth")
	cmd.Flags().IntVar(&opts.maxNodes, "max-nodes", 0, "maximum files to discover")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "concurrent file readers")
}

// pipelineOptions merges flag overrides into the config, validates the
// result, and builds pipeline options. Flags win over the config file.
func (o *scanOpts) pipelineOptions(cfg *config.Config, root string) (pipeline.Options, error) {
	if len(o.searchRoots) > 0 {
		cfg.SearchRoots = o.searchRoots
	}
	if len(cfg.SearchRoots) == 0 {
		cfg.SearchRoots = []string{filepath.Dir(root)}
	}
	if len(o.extensions) > 0 {
		cfg.Extensions = o.extensions
	}
	if o.maxDepth > 0 {
		cfg.Discovery.MaxDepth = o.maxDepth
	}
	if o.maxNodes > 0 {
		cfg.Discovery.MaxNodes = o.maxNodes
	}
	if o.workers > 0 {
		cfg.Discovery.Workers = o.workers
	}
	if err := cfg.Validate(); err != nil {
		return pipeline.Options{}, err
	}

	return pipeline.Options{
		Root:        root,
		SearchRoots: cfg.SearchRoots,
		Extensions:  cfg.Extensions,
		Workers:     cfg.Discovery.Workers,
		MaxDepth:    cfg.Discovery.MaxDepth,
		MaxNodes:    cfg.Discovery.MaxNodes,
		ReadTimeout: cfg.Discovery.ReadTimeout,
		OutputDir:   cfg.OutputDir,
		CacheTTL:    cfg.Cache.TTL,
	}, nil
}

// scanCommand creates the scan command.
func (c *CLI) scanCommand() *cobra.Command {
	opts := &scanOpts{}
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "scan <root-file>",
		Short: "Discover the dependency graph from a root file",
		Long: `Discover every file reachable from the root through require() references
and report on the resulting graph: restoration order, cycles, unresolved
references, and read failures.

Examples:
  restitch scan main.lua.unluac
  restitch scan -r ./src -r ./vendor main.lua.unluac
  restitch scan --format json -o deps.json main.lua.unluac`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}

			runner, err := c.newRunner(cmd, cfg, nil, true)
			if err != nil {
				return err
			}

			ctx := withLogger(cmd.Context(), c.Logger)
			p := newProgress(c.Logger)

			pipeOpts, err := opts.pipelineOptions(cfg, args[0])
			if err != nil {
				return err
			}
			pipeOpts.Logger = loggerFromContext(ctx)

			spin := newSpinnerWithContext(ctx, "Discovering dependencies...")
			spin.Start()
			result, err := runner.Execute(ctx, pipeOpts)
			spin.Stop()
			if err != nil {
				return err
			}
			p.done(fmt.Sprintf("Discovered %d files", result.Stats.NodeCount))

			out := os.Stdout
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}

			switch format {
			case "json":
				err = report.WriteJSON(out, result.Snapshot, result.Linearization, result.Summary)
			default:
				err = report.WriteText(out, result.Summary)
			}
			if err != nil {
				return err
			}

			printStats(result.Stats.NodeCount, result.Stats.EdgeCount, len(result.Linearization.Cycles))
			if result.Summary.UnresolvedRefs > 0 {
				printWarning("%d references did not resolve under the search roots", result.Summary.UnresolvedRefs)
			}
			if output != "" {
				printFile(output)
			}
			printNewline()
			printNextStep("Restore the tree", fmt.Sprintf("restitch restore %s", args[0]))
			return nil
		},
	}

	registerScanFlags(cmd, opts)
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text or json")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")

	return cmd
}
