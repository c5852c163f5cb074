// Package osd composes the overlay text and pushes it to the renderer host
// once per tick.
package osd

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/srediag/perf-overlay/adapter"
	"github.com/srediag/perf-overlay/api"
	"github.com/srediag/perf-overlay/internal/logging"
)

// Default tick intervals.
const (
	DefaultVisibleInterval = 250 * time.Millisecond
	DefaultHiddenInterval  = time.Second
	DefaultName            = "PerformanceOverlay"
)

var logger = logging.New("osd", nil)

// State is the loop's position within a tick.
type State int32

const (
	StateIdle State = iota
	StateReconciling
	StateComposing
	StateRendering
	StateDegraded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReconciling:
		return "reconciling"
	case StateComposing:
		return "composing"
	case StateRendering:
		return "rendering"
	case StateDegraded:
		return "degraded"
	}
	return "unknown"
}

// Reconciler applies shared settings requests before each tick.
type Reconciler interface {
	Reconcile(ctx context.Context) (bool, error)
}

// PowerControlFunc reports whether a sibling power control panel is shown.
type PowerControlFunc func(ctx context.Context) bool

// Options configure a Loop. Renderer, Sensors and Local are required.
type Options struct {
	Name            string
	Renderer        adapter.Renderer
	Sensors         api.SensorSource
	Local           api.LocalSettings
	Reconciler      Reconciler
	PowerControl    PowerControlFunc
	Status          adapter.StatusSink
	VisibleInterval time.Duration
	HiddenInterval  time.Duration
	Metrics         *Metrics
}

// Loop is the overlay composition loop. Tick must not be called
// concurrently with itself; Close may be called from any goroutine.
type Loop struct {
	mu     sync.Mutex
	opts   Options
	handle adapter.Handle
	closed bool

	state     atomic.Int32
	lastTick  atomic.Int64
	available atomic.Bool
	closeOnce sync.Once
}

var _ api.Health = (*Loop)(nil)

// NewLoop returns a loop that has not ticked yet.
func NewLoop(opts Options) (*Loop, error) {
	if opts.Renderer == nil || opts.Sensors == nil || opts.Local == nil {
		return nil, errors.New("osd: renderer, sensors and local settings are required")
	}
	if opts.Name == "" {
		opts.Name = DefaultName
	}
	if opts.VisibleInterval <= 0 {
		opts.VisibleInterval = DefaultVisibleInterval
	}
	if opts.HiddenInterval <= 0 {
		opts.HiddenInterval = DefaultHiddenInterval
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(nil)
	}
	return &Loop{opts: opts}, nil
}

// State returns the state the last tick ended in, or the current step while
// a tick runs.
func (l *Loop) State() State {
	return State(l.state.Load())
}

func (l *Loop) LastTick() time.Time {
	ns := l.lastTick.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

func (l *Loop) RendererAvailable() bool {
	return l.available.Load()
}

// Tick runs one cycle and returns the delay before the next one. Failures
// are logged and turned into state; nothing escapes a tick.
func (l *Loop) Tick(ctx context.Context) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return l.opts.HiddenInterval
	}
	start := time.Now()
	next := l.tick(ctx)
	l.lastTick.Store(time.Now().UnixNano())
	m := l.opts.Metrics
	m.Duration.Observe(time.Since(start).Seconds())
	m.Ticks.WithLabelValues(l.State().String()).Inc()
	m.Interval.Set(next.Seconds())
	return next
}

func (l *Loop) tick(ctx context.Context) time.Duration {
	l.setState(StateReconciling)
	if l.opts.Reconciler != nil {
		if _, err := l.opts.Reconciler.Reconcile(ctx); err != nil {
			logger.Debugf("reconcile: %v", err)
		}
	}

	version, err := l.opts.Renderer.QueryVersion()
	if err != nil {
		return l.degrade(err)
	}
	l.markAvailable(version)

	cfg := l.opts.Local.Get()
	if !cfg.Visible {
		l.clear()
		l.setState(StateIdle)
		return l.opts.HiddenInterval
	}

	l.setState(StateComposing)
	readings, err := l.opts.Sensors.Update(ctx)
	if err != nil {
		logger.Debugf("sensors: %v", err)
	}
	text := Template(l.preset(ctx, cfg), readings)

	l.setState(StateRendering)
	if err := l.render(text); err != nil {
		return l.degrade(err)
	}
	l.setState(StateIdle)
	return l.opts.VisibleInterval
}

// preset applies the power control override for this tick only.
func (l *Loop) preset(ctx context.Context, cfg api.Settings) api.Preset {
	if cfg.FullOnPowerControl && l.opts.PowerControl != nil && l.opts.PowerControl(ctx) {
		return api.RichestPreset
	}
	return cfg.Preset
}

func (l *Loop) render(text string) error {
	if l.handle != nil && l.opts.Renderer.SlotIndex(l.opts.Name) != adapter.ExpectedSlotIndex {
		logger.Infof("renderer slot of %s moved, recreating", l.opts.Name)
		l.drop()
		l.opts.Metrics.Reopens.Inc()
	}
	if l.handle == nil {
		h, err := l.opts.Renderer.Open(l.opts.Name)
		if err != nil {
			return err
		}
		l.handle = h
	}
	return l.handle.Update(EmbedGraphs(l.handle, text))
}

// clear blanks the overlay while hidden; failures are ignored.
func (l *Loop) clear() {
	if l.handle == nil {
		return
	}
	if err := l.handle.Update(""); err != nil {
		logger.Debugf("clear overlay: %v", err)
	}
}

func (l *Loop) degrade(err error) time.Duration {
	if errors.Is(err, adapter.ErrRendererUnavailable) {
		logger.Debugf("renderer unavailable: %v", err)
	} else {
		logger.Warnf("renderer failed: %v", err)
	}
	l.drop()
	l.available.Store(false)
	if l.opts.Status != nil {
		l.opts.Status.Unavailable(err)
	}
	l.opts.Metrics.Degraded.Inc()
	l.setState(StateDegraded)
	return l.opts.HiddenInterval
}

func (l *Loop) markAvailable(version string) {
	l.available.Store(true)
	if l.opts.Status != nil {
		l.opts.Status.Available(version)
	}
}

func (l *Loop) drop() {
	if l.handle == nil {
		return
	}
	h := l.handle
	l.handle = nil
	defer func() {
		if r := recover(); r != nil {
			logger.Warnf("close renderer handle: %v", r)
		}
	}()
	h.Close()
}

func (l *Loop) closeSensors() {
	defer func() {
		if r := recover(); r != nil {
			logger.Warnf("close sensors: %v", r)
		}
	}()
	if err := l.opts.Sensors.Close(); err != nil {
		logger.Warnf("close sensors: %v", err)
	}
}

func (l *Loop) setState(s State) {
	l.state.Store(int32(s))
}

// Close releases the renderer handle and the sensors. Only the first call
// does anything.
func (l *Loop) Close() {
	l.closeOnce.Do(func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.closed = true
		l.drop()
		l.closeSensors()
		l.setState(StateIdle)
	})
}
