package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/srediag/perf-overlay/pkg/settings"
	"github.com/srediag/perf-overlay/pkg/shm"
)

func newStatusCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the settings published by the running controller",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			slot, err := shm.OpenExisting[settings.OverlayModeSetting](ctx, g.slotOptions())
			if errors.Is(err, shm.ErrRegionNotExist) {
				return errors.New("no overlay controller has run since boot")
			}
			if err != nil {
				return err
			}
			defer slot.Close() //nolint:errcheck
			obs, err := slot.Read(ctx)
			if err != nil {
				return err
			}
			printSettings(cmd, obs.Value)
			fmt.Fprintf(cmd.OutOrStdout(), "version:        %d\nwriter:         %s\n", obs.Version, obs.Writer)
			return nil
		},
	}
}

func printSettings(cmd *cobra.Command, s settings.OverlayModeSetting) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "preset:         %v\n", s.Current)
	fmt.Fprintf(out, "visible:        %v\n", s.CurrentEnabled)
	fmt.Fprintf(out, "kernel drivers: %v\n", s.KernelDriversLoaded)
	if s.HasRequest() {
		fmt.Fprintf(out, "pending:        preset=%v visible=%v kernel drivers=%v\n",
			s.Desired, s.DesiredEnabled, s.DesiredKernelDriversLoaded)
	}
}
