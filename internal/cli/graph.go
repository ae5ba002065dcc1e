package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/restitch/restitch/pkg/errors"
	"github.com/restitch/restitch/pkg/report"
)

// graphCommand creates the graph export command.
func (c *CLI) graphCommand() *cobra.Command {
	opts := &scanOpts{}
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "graph <root-file>",
		Short: "Export the dependency graph as DOT or SVG",
		Long: `Discover the dependency graph from the root file and export it for
visual inspection. Read failures are drawn red; files discovered but never
read (past the depth or node limit) are drawn grey and dashed.

Examples:
  restitch graph main.lua.unluac                  # DOT to stdout
  restitch graph -f svg -o deps.svg main.lua.unluac`,
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

			dot := report.ToDOT(result.Snapshot)

			var data []byte
			switch strings.ToLower(format) {
			case "dot":
				data = []byte(dot)
			case "svg":
				data, err = report.RenderSVG(ctx, dot)
				if err != nil {
					return err
				}
			default:
				return errors.New(errors.ErrCodeInvalidFormat, "unknown format %q (want dot or svg)", format)
			}

			if output == "" {
				fmt.Print(string(data))
				return nil
			}
			if err := os.WriteFile(output, data, 0644); err != nil {
				return err
			}
			printSuccess("Exported %s graph", format)
			printFile(output)
			printStats(result.Stats.NodeCount, result.Stats.EdgeCount, len(result.Linearization.Cycles))
			return nil
		},
	}

	registerScanFlags(cmd, opts)
	cmd.Flags().StringVarP(&format, "format", "f", "dot", "output format: dot or svg")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")

	return cmd
}
