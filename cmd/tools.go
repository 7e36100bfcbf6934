// File: cmd/tools.go
package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/xkilldash9x/droidpilot/internal/tools"
)

func newToolsCmd() *cobra.Command {
	toolsCmd := &cobra.Command{
		Use:   "tools",
		Short: "Inspect the registered tools",
	}

	toolsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the tools that run and goal can use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := tools.NewRegistry()
			if err := tools.RegisterBuiltins(registry); err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tVERSION\tREQUIRES\tDESCRIPTION")
			for _, d := range registry.List() {
				requires := d.RequiredApp
				if requires == "" {
					requires = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.Name, d.Version, requires, d.Description)
			}
			return w.Flush()
		},
	})
	return toolsCmd
}
