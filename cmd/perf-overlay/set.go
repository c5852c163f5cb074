package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/cobra"

	"github.com/srediag/perf-overlay/api"
	"github.com/srediag/perf-overlay/pkg/settings"
	"github.com/srediag/perf-overlay/pkg/shm"
)

var errNotConsumed = errors.New("request not taken yet")

func newSetCommand(g *globalFlags) *cobra.Command {
	var (
		preset        string
		show          string
		kernelDrivers string
		wait          time.Duration
	)
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Request overlay settings from the running controller",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := buildRequest(preset, show, kernelDrivers)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			slot, err := shm.Open[settings.OverlayModeSetting](ctx, g.slotOptions())
			if err != nil {
				return err
			}
			defer slot.Close() //nolint:errcheck
			if err := slot.Write(ctx, req); err != nil {
				return err
			}
			if wait <= 0 {
				return nil
			}
			cur, err := awaitConsumed(ctx, slot, wait)
			if err != nil {
				return err
			}
			printSettings(cmd, cur)
			return nil
		},
	}
	cmd.Flags().StringVar(&preset, "preset", "", "preset to show (fps, minimal, detail, full)")
	cmd.Flags().StringVar(&show, "show", "", "overlay visibility (yes, no)")
	cmd.Flags().StringVar(&kernelDrivers, "kernel-drivers", "", "kernel driver use (yes, no)")
	cmd.Flags().DurationVar(&wait, "wait", 0, "wait this long for the controller to take the request")
	return cmd
}

func buildRequest(preset, show, kernelDrivers string) (settings.OverlayModeSetting, error) {
	var req settings.OverlayModeSetting
	if preset != "" {
		p, err := api.ParsePreset(preset)
		if err != nil {
			return req, err
		}
		req.Desired = p
	}
	if show != "" {
		b, err := parseYesNo(show)
		if err != nil {
			return req, fmt.Errorf("--show: %w", err)
		}
		req.DesiredEnabled = settings.EnabledOf(b)
	}
	if kernelDrivers != "" {
		b, err := parseYesNo(kernelDrivers)
		if err != nil {
			return req, fmt.Errorf("--kernel-drivers: %w", err)
		}
		req.DesiredKernelDriversLoaded = settings.KernelDriversOf(b)
	}
	if !req.HasRequest() {
		return req, errors.New("nothing to set: pass --preset, --show or --kernel-drivers")
	}
	return req, nil
}

func parseYesNo(s string) (bool, error) {
	switch s {
	case "yes", "on", "true":
		return true, nil
	case "no", "off", "false":
		return false, nil
	}
	return false, fmt.Errorf("want yes or no, got %q", s)
}

// awaitConsumed polls until the controller republishes with the request
// cleared.
func awaitConsumed(ctx context.Context, slot *shm.Slot[settings.OverlayModeSetting], wait time.Duration) (settings.OverlayModeSetting, error) {
	var cur settings.OverlayModeSetting
	b := backoff.NewConstantBackOff(50 * time.Millisecond)
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	err := backoff.Retry(func() error {
		obs, err := slot.Read(ctx)
		if err != nil {
			return err
		}
		if obs.Value.HasRequest() {
			return errNotConsumed
		}
		cur = obs.Value
		return nil
	}, backoff.WithContext(b, ctx))
	if err != nil {
		return cur, fmt.Errorf("controller did not respond within %v: %w", wait, err)
	}
	return cur, nil
}
