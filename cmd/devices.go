// File: cmd/devices.go
package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/xkilldash9x/droidpilot/internal/device"
	"github.com/xkilldash9x/droidpilot/internal/observability"
)

func newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List the devices the configured transport can see",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			logger := observability.GetLogger()

			t, closeTransport, err := newTransport(ctx, cfg.Device(), logger)
			if err != nil {
				return err
			}
			defer closeTransport()

			devices, err := device.NewBridge(t, cfg.Device(), logger).Devices(ctx)
			if err != nil {
				return fmt.Errorf("failed to list devices: %w", err)
			}
			if len(devices) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No devices attached")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SERIAL\tSTATE")
			for _, d := range devices {
				fmt.Fprintf(w, "%s\t%s\n", d.Serial, d.State)
			}
			return w.Flush()
		},
	}
}
