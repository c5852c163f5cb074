package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/srediag/perf-overlay/pkg/settings"
	"github.com/srediag/perf-overlay/pkg/shm"
)

func newPowerControlCommand(g *globalFlags) *cobra.Command {
	var visible string
	cmd := &cobra.Command{
		Use:   "power-control",
		Short: "Publish power control panel visibility as the sibling panel does",
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := parseYesNo(visible)
			if err != nil {
				return fmt.Errorf("--visible: %w", err)
			}
			v := settings.PowerControlVisibleNo
			if b {
				v = settings.PowerControlVisibleYes
			}
			ctx := cmd.Context()
			slot, err := shm.Open[settings.PowerControlSetting](ctx, g.slotOptions())
			if err != nil {
				return err
			}
			defer slot.Close() //nolint:errcheck
			return slot.Write(ctx, settings.PowerControlSetting{Current: v})
		},
	}
	cmd.Flags().StringVar(&visible, "visible", "yes", "panel visibility (yes, no)")
	return cmd
}
