// File: cmd/run.go
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/xkilldash9x/droidpilot/internal/observability"
	"github.com/xkilldash9x/droidpilot/internal/tools"
	"go.uber.org/zap"
)

func newRunCmd() *cobra.Command {
	var (
		batchFile string
		outputDir string
		tool      string
		params    map[string]string
	)

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run a single tool or a batch of tasks and save the results",
		Example: `  droidpilot run --tool launch --param app=盒马
  droidpilot run --batch tasks.yaml --output results/`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if (batchFile == "") == (tool == "") {
				return fmt.Errorf("exactly one of --batch or --tool is required")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var tasks []tools.Task
			if batchFile != "" {
				loaded, err := tools.LoadTasks(batchFile)
				if err != nil {
					return err
				}
				tasks = loaded
			} else {
				p := tools.Params{}
				for k, v := range params {
					p[k] = v
				}
				tasks = []tools.Task{{Tool: tool, Params: p}}
			}

			return withComponents(cmd.Context(), func(ctx context.Context, c *components) error {
				records := c.Tasks.Schedule(ctx, tasks)
				summary := tools.Summarize(records)

				path, err := c.Tasks.SaveResults(records, outputDir)
				if err != nil {
					observability.GetLogger().Error("Failed to save task results", zap.Error(err))
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Results saved to %s\n", path)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d task(s): %d succeeded, %d failed\n", summary.Total, summary.Succeeded, summary.Failed)

				if err := ctx.Err(); err != nil {
					return err
				}
				if summary.Failed > 0 {
					return fmt.Errorf("%d of %d task(s) failed", summary.Failed, summary.Total)
				}
				return nil
			})
		},
	}

	runCmd.Flags().StringVarP(&batchFile, "batch", "b", "", "YAML or JSON file listing tasks to run in order")
	runCmd.Flags().StringVarP(&tool, "tool", "t", "", "run a single tool by name")
	runCmd.Flags().StringToStringVarP(&params, "param", "p", nil, "tool parameter as key=value (repeatable)")
	runCmd.Flags().StringVarP(&outputDir, "output", "o", "", "directory for the results file (default from tasks.output_dir)")
	return runCmd
}
