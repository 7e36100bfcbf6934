// File: cmd/goal.go
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/xkilldash9x/droidpilot/internal/tools"
)

func newGoalCmd() *cobra.Command {
	var (
		app      string
		maxSteps int
	)

	goalCmd := &cobra.Command{
		Use:   "goal <objective>",
		Short: "Work towards an objective with the perceive, decide and act loop",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := tools.Params{"objective": args[0]}
			if app != "" {
				params["app"] = app
			}
			if maxSteps > 0 {
				params["max_steps"] = maxSteps
			}

			return withComponents(cmd.Context(), func(ctx context.Context, c *components) error {
				rec := c.Tasks.Execute(ctx, tools.Task{Tool: tools.ToolGoal, Params: params})
				if err := printJSON(cmd.OutOrStdout(), rec); err != nil {
					return err
				}
				if !rec.Result.Success {
					return errors.New(rec.Result.Error)
				}
				fmt.Fprintln(cmd.OutOrStdout(), rec.Result.Message)
				return nil
			})
		},
	}

	goalCmd.Flags().StringVarP(&app, "app", "a", "", "launch this app before starting")
	goalCmd.Flags().IntVarP(&maxSteps, "max-steps", "n", 0, "maximum number of steps (default from tasks.goal_max_steps)")
	return goalCmd
}
