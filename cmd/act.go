// File: cmd/act.go
package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/xkilldash9x/droidpilot/internal/agent"
	"github.com/xkilldash9x/droidpilot/internal/device"
	"github.com/xkilldash9x/droidpilot/internal/perception"
)

type actOptions struct {
	x, y     float64
	distance float64
	visual   bool
}

func newActCmd() *cobra.Command {
	var opts actOptions

	actCmd := &cobra.Command{
		Use:   "act <click|swipe|input|back|home> [target|direction|text]",
		Short: "Execute a single UI action on the connected device",
		Example: `  droidpilot act click 搜索
  droidpilot act click --x 540 --y 1200
  droidpilot act swipe up --distance 0.5
  droidpilot act input 牛奶
  droidpilot act back`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			action, err := buildAction(cmd, args, opts)
			if err != nil {
				return err
			}
			return withComponents(cmd.Context(), func(ctx context.Context, c *components) error {
				res := c.Executor.Execute(ctx, action)
				if err := printJSON(cmd.OutOrStdout(), res); err != nil {
					return err
				}
				if !res.Success {
					return fmt.Errorf("%s failed: %s", action, res.Message)
				}
				return nil
			})
		},
	}

	actCmd.Flags().Float64Var(&opts.x, "x", 0, "tap x coordinate (click only, with --y)")
	actCmd.Flags().Float64Var(&opts.y, "y", 0, "tap y coordinate (click only, with --x)")
	actCmd.Flags().Float64Var(&opts.distance, "distance", 0, "share of the screen to swipe across, 0 for the configured default")
	actCmd.Flags().BoolVar(&opts.visual, "visual-search", false, "fall back to visual region scoring when text matching finds nothing")
	actCmd.MarkFlagsRequiredTogether("x", "y")
	return actCmd
}

// buildAction turns the positional arguments and flags into a validated Action.
func buildAction(cmd *cobra.Command, args []string, opts actOptions) (agent.Action, error) {
	action := agent.Action{Type: agent.ActionType(strings.ToUpper(args[0]))}
	arg := ""
	if len(args) > 1 {
		arg = args[1]
	}

	switch action.Type {
	case agent.ActionClick:
		if cmd.Flags().Changed("x") {
			action.Point = &perception.Point{X: opts.x, Y: opts.y}
		} else {
			action.Target = arg
		}
		action.UseVisualSearch = opts.visual
	case agent.ActionSwipe:
		dir, err := device.ParseDirection(arg)
		if err != nil {
			return agent.Action{}, err
		}
		action.Direction = dir
		action.Distance = opts.distance
	case agent.ActionInput:
		action.Text = arg
	}

	if err := action.Validate(); err != nil {
		return agent.Action{}, fmt.Errorf("invalid action: %w", err)
	}
	return action, nil
}
