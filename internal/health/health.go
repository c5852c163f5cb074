// Package health serves liveness, readiness and Prometheus metrics for the
// overlay controller.
package health

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/srediag/perf-overlay/api"
)

var (
	// ErrStalled is reported by the liveness check when the loop stopped ticking.
	ErrStalled = errors.New("overlay loop stalled")
	// ErrRendererDown is reported by the readiness check.
	ErrRendererDown = errors.New("renderer not available")
)

// Options configure the handler.
type Options struct {
	// MaxTickAge is how old the last tick may be before liveness fails.
	MaxTickAge time.Duration
	// Registry backs /metrics and receives the check gauges. Nil uses the
	// default registry.
	Registry *prometheus.Registry
}

// NewHandler returns a mux serving /live, /ready and /metrics for h.
func NewHandler(h api.Health, opts Options) http.Handler {
	if opts.MaxTickAge <= 0 {
		opts.MaxTickAge = 3 * time.Second
	}
	var reg prometheus.Registerer = prometheus.DefaultRegisterer
	var gather prometheus.Gatherer = prometheus.DefaultGatherer
	if opts.Registry != nil {
		reg, gather = opts.Registry, opts.Registry
	}

	checks := healthcheck.NewMetricsHandler(reg, "perf_overlay")
	checks.AddLivenessCheck("tick", func() error {
		last := h.LastTick()
		if last.IsZero() {
			return nil
		}
		if age := time.Since(last); age > opts.MaxTickAge {
			return fmt.Errorf("%w: last tick %v ago", ErrStalled, age.Truncate(time.Millisecond))
		}
		return nil
	})
	checks.AddReadinessCheck("renderer", func() error {
		if !h.RendererAvailable() {
			return ErrRendererDown
		}
		return nil
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/live", checks.LiveEndpoint)
	mux.HandleFunc("/ready", checks.ReadyEndpoint)
	mux.Handle("/metrics", promhttp.HandlerFor(gather, promhttp.HandlerOpts{}))
	return mux
}

// Serve listens on addr until ctx is done.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("health listen %s: %w", addr, err)
	}
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("health shutdown: %w", err)
		}
		return nil
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("health serve: %w", err)
	}
}
