package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/srediag/perf-overlay/adapter"
	"github.com/srediag/perf-overlay/pkg/shm"
)

type globalFlags struct {
	lockTimeout time.Duration
}

func newRootCommand() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "perf-overlay",
		Short:         "Performance overlay controller",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().DurationVar(&g.lockTimeout, "lock-timeout", time.Second, "bounded wait for the shared settings lock")
	root.AddCommand(
		newRunCommand(g),
		newSetCommand(g),
		newStatusCommand(g),
		newPowerControlCommand(g),
	)
	return root
}

func (g *globalFlags) slotOptions() shm.Options {
	return shm.Options{
		LockTimeout: g.lockTimeout,
		Meter:       adapter.Meter(),
		Tracer:      adapter.Tracer(),
	}
}
