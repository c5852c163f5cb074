// Package control runs the overlay: it owns the composition loop, the shared
// settings reconciler and the queue of glue-layer commands, and drives them
// from a single goroutine.
package control

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/srediag/perf-overlay/api"
	"github.com/srediag/perf-overlay/internal/cmdqueue"
	"github.com/srediag/perf-overlay/internal/logging"
	"github.com/srediag/perf-overlay/pkg/osd"
)

var logger = logging.New("control", nil)

// ErrStopped is returned when submitting to a stopped controller.
var ErrStopped = errors.New("controller stopped")

// Loop is the part of osd.Loop the controller drives.
type Loop interface {
	api.Health
	Tick(ctx context.Context) time.Duration
	Close()
}

// Reconciler publishes local settings to peers.
type Reconciler interface {
	Reconcile(ctx context.Context) (bool, error)
}

// SensorResetter is implemented by sensor sources that can re-prime.
type SensorResetter interface {
	Reset(ctx context.Context)
}

// Options configure a Controller. Loop and Local are required.
type Options struct {
	Loop       Loop
	Local      api.LocalSettings
	Reconciler Reconciler
	Gate       api.KernelDriverGate
	Sensors    SensorResetter
	// OnChange is called on the loop goroutine after a command changed
	// local settings, e.g. to refresh menu check marks.
	OnChange func(api.Settings)
}

// Controller serializes ticks and commands on one goroutine. Ticks never
// overlap: the timer is re-armed only after a tick returns.
type Controller struct {
	opts  Options
	queue *cmdqueue.Queue[Command]
	wake  chan struct{}

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
	stopped bool
}

var (
	_ api.Lifecycle = (*Controller)(nil)
	_ api.Health    = (*Controller)(nil)
)

// New returns a controller that is not running yet.
func New(opts Options) (*Controller, error) {
	if opts.Loop == nil || opts.Local == nil {
		return nil, errors.New("control: loop and local settings are required")
	}
	if opts.Gate == nil {
		opts.Gate = api.DenyGate{}
	}
	return &Controller{
		opts:  opts,
		queue: cmdqueue.New[Command](0),
		wake:  make(chan struct{}, 1),
	}, nil
}

// Start runs the loop goroutine until Stop or ctx is done.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return ErrStopped
	}
	if c.started {
		return errors.New("control: already started")
	}
	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	c.started = true
	go func() {
		defer close(c.done)
		c.Run(ctx)
	}()
	return nil
}

// Stop ends the loop goroutine, then closes the loop. It is safe to call
// more than once.
func (c *Controller) Stop() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	c.queue.Dispose()
	c.opts.Loop.Close()
	return nil
}

// Run ticks until ctx is done. The first tick is immediate.
func (c *Controller) Run(ctx context.Context) {
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.wake:
			if c.drain(ctx) {
				timer.Reset(0)
			}
		case <-timer.C:
			c.drain(ctx)
			timer.Reset(c.tick(ctx))
		}
	}
}

func (c *Controller) tick(ctx context.Context) (next time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("overlay tick panic: %v", r)
			next = osd.DefaultHiddenInterval
		}
	}()
	return c.opts.Loop.Tick(ctx)
}

// drain runs pending commands and reports whether local settings changed.
func (c *Controller) drain(ctx context.Context) bool {
	cmds := c.queue.Drain()
	if len(cmds) == 0 {
		return false
	}
	cur := c.opts.Local.Get()
	next := cur
	for _, cmd := range cmds {
		logger.Debugf("command %v", cmd.Kind)
		switch cmd.Kind {
		case ResetSensors:
			if c.opts.Sensors != nil {
				c.opts.Sensors.Reset(ctx)
			}
		default:
			next = cmd.apply(next, c.opts.Gate)
		}
	}
	changed := next != cur
	if changed {
		if err := c.opts.Local.Set(next); err != nil {
			logger.Warnf("persist settings: %v", err)
		}
		if c.opts.OnChange != nil {
			c.opts.OnChange(c.opts.Local.Get())
		}
	}
	if c.opts.Reconciler != nil {
		if _, err := c.opts.Reconciler.Reconcile(ctx); err != nil {
			logger.Debugf("reconcile: %v", err)
		}
	}
	return changed
}

// Submit queues cmd for the loop goroutine and wakes it.
func (c *Controller) Submit(cmd Command) error {
	if err := c.queue.Put(cmd); err != nil {
		if errors.Is(err, cmdqueue.ErrDisposed) {
			return ErrStopped
		}
		return fmt.Errorf("submit %v: %w", cmd.Kind, err)
	}
	select {
	case c.wake <- struct{}{}:
	default:
	}
	return nil
}

func (c *Controller) ToggleVisible() error { return c.Submit(Command{Kind: ToggleVisible}) }

func (c *Controller) CyclePreset() error { return c.Submit(Command{Kind: CyclePreset}) }

func (c *Controller) SetPreset(p api.Preset) error {
	if !p.Valid() {
		return fmt.Errorf("set preset: invalid preset %d", uint32(p))
	}
	return c.Submit(Command{Kind: SetPreset, Preset: p})
}

func (c *Controller) SetKernelDrivers(enable bool) error {
	return c.Submit(Command{Kind: SetKernelDrivers, Enable: enable})
}

func (c *Controller) SetFullOnPowerControl(enable bool) error {
	return c.Submit(Command{Kind: SetFullOnPowerControl, Enable: enable})
}

// ReconcileNow lets peers see a local change without waiting for a tick.
func (c *Controller) ReconcileNow() error { return c.Submit(Command{Kind: ReconcileNow}) }

func (c *Controller) ResetSensors() error { return c.Submit(Command{Kind: ResetSensors}) }

// Settings returns the local settings.
func (c *Controller) Settings() api.Settings {
	return c.opts.Local.Get()
}

func (c *Controller) LastTick() time.Time { return c.opts.Loop.LastTick() }

func (c *Controller) RendererAvailable() bool { return c.opts.Loop.RendererAvailable() }
