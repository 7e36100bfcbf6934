// File: cmd/launch.go
package cmd

import (
	"context"
	"fmt"
	"io"

	json "github.com/json-iterator/go"
	"github.com/spf13/cobra"
)

func newLaunchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "launch <app name>",
		Short: "Launch an app by its display name and verify it reached the foreground",
		Long: `Launch tries the stored launch config for the app first (component, then package).
If none works it goes looking for the icon: app drawer, drawer search, home
screen and finally paging through the drawer. A successful visual launch is
remembered for next time.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withComponents(cmd.Context(), func(ctx context.Context, c *components) error {
				res, err := c.Launcher.Launch(ctx, args[0])
				if err != nil {
					return fmt.Errorf("failed to launch %s: %w", args[0], err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s launched via %s after %d verification poll(s)\n", res.App, res.Strategy, res.Polls)
				return nil
			})
		},
	}
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
