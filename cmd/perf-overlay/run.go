package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/srediag/perf-overlay/adapter"
	"github.com/srediag/perf-overlay/api"
	"github.com/srediag/perf-overlay/internal/config"
	"github.com/srediag/perf-overlay/internal/health"
	"github.com/srediag/perf-overlay/internal/logging"
	"github.com/srediag/perf-overlay/pkg/control"
	"github.com/srediag/perf-overlay/pkg/osd"
	"github.com/srediag/perf-overlay/pkg/sensors"
	"github.com/srediag/perf-overlay/pkg/settings"
	"github.com/srediag/perf-overlay/pkg/shm"
)

var logger = logging.New("perf-overlay", nil)

func newRunCommand(g *globalFlags) *cobra.Command {
	var (
		configPath         string
		allowKernelDrivers bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the authoritative overlay controller",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if !cmd.Flags().Changed("lock-timeout") {
				g.lockTimeout = 0
			}
			var gate api.KernelDriverGate = api.DenyGate{}
			if allowKernelDrivers {
				gate = api.AllowGate{}
			}
			return run(ctx, g, configPath, gate)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", config.DefaultPath(), "configuration file")
	cmd.Flags().BoolVar(&allowKernelDrivers, "allow-kernel-drivers", false, "approve kernel driver requests without asking")
	return cmd
}

func run(ctx context.Context, g *globalFlags, configPath string, gate api.KernelDriverGate) error {
	store, err := config.Open(configPath)
	if err != nil {
		return err
	}
	cfg := store.Config()
	if g.lockTimeout > 0 {
		cfg.LockTimeout = g.lockTimeout
	}

	opts := g.slotOptions()
	opts.LockTimeout = cfg.LockTimeout
	slot, err := shm.Open[settings.OverlayModeSetting](ctx, opts)
	if err != nil {
		return fmt.Errorf("shared settings unavailable: %w", err)
	}
	defer slot.Close() //nolint:errcheck

	sn, err := sensors.New(sensors.Options{})
	if err != nil {
		return err
	}
	reconciler := settings.NewReconciler(slot, store, gate)
	powerOpts := g.slotOptions()
	powerOpts.LockTimeout = cfg.LockTimeout

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	loop, err := osd.NewLoop(osd.Options{
		Name:       cfg.RendererName,
		Renderer:   adapter.NewWriterRenderer(os.Stdout, adapter.WriterOptions{}),
		Sensors:    sn,
		Local:      store,
		Reconciler: reconciler,
		PowerControl: func(ctx context.Context) bool {
			return settings.PowerControlShown(ctx, powerOpts)
		},
		Status:          adapter.NewLogStatus(logger),
		VisibleInterval: cfg.VisibleInterval,
		HiddenInterval:  cfg.HiddenInterval,
		Metrics:         osd.NewMetrics(registry),
	})
	if err != nil {
		_ = sn.Close()
		return err
	}
	ctrl, err := control.New(control.Options{
		Loop:       loop,
		Local:      store,
		Reconciler: reconciler,
		Gate:       gate,
		Sensors:    sn,
	})
	if err != nil {
		loop.Close()
		return err
	}
	if err := ctrl.Start(ctx); err != nil {
		loop.Close()
		return err
	}
	defer ctrl.Stop() //nolint:errcheck

	if cfg.HealthAddr != "" {
		handler := health.NewHandler(ctrl, health.Options{
			MaxTickAge: 3 * cfg.HiddenInterval,
			Registry:   registry,
		})
		go func() {
			if err := health.Serve(ctx, cfg.HealthAddr, handler); err != nil && !errors.Is(err, context.Canceled) {
				logger.Errorf("health server: %v", err)
			}
		}()
	}
	logger.Infof("overlay controller running, slot %s", slot.Name())
	<-ctx.Done()
	logger.Infof("shutting down")
	return nil
}
