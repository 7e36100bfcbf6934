// File: cmd/apps.go
package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/xkilldash9x/droidpilot/internal/appconfig"
	"github.com/xkilldash9x/droidpilot/internal/device"
	"github.com/xkilldash9x/droidpilot/internal/observability"
)

func newAppsCmd() *cobra.Command {
	appsCmd := &cobra.Command{
		Use:   "apps",
		Short: "Manage stored app launch configs",
	}

	appsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored app launch configs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := openAppStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			apps, err := store.List(ctx)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tPACKAGE\tCOMPONENT")
			for _, name := range appconfig.Names(apps) {
				fmt.Fprintf(w, "%s\t%s\t%s\n", name, apps[name].Package, apps[name].Component)
			}
			return w.Flush()
		},
	})

	appsCmd.AddCommand(&cobra.Command{
		Use:   "set <name> <package/activity | package>",
		Short: "Store or replace the launch config for an app",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := parseAppConfig(args[1])
			if !app.Valid() {
				return fmt.Errorf("invalid launch target %q", args[1])
			}
			store, err := openAppStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Put(cmd.Context(), args[0], app); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored %s -> %s\n", args[0], args[1])
			return nil
		},
	})
	return appsCmd
}

func openAppStore(cmd *cobra.Command) (appconfig.Store, error) {
	cfg, err := getConfigFromContext(cmd.Context())
	if err != nil {
		return nil, err
	}
	sc := cfg.AppStore()
	sc.Watch = false
	return appconfig.New(cmd.Context(), sc, observability.GetLogger())
}

// parseAppConfig accepts either a bare package or a package/activity component.
func parseAppConfig(target string) appconfig.AppConfig {
	pkg, activity := device.SplitComponent(target)
	if activity == "" {
		return appconfig.AppConfig{Package: pkg}
	}
	return appconfig.AppConfig{Package: pkg, Component: target}
}
