// Package sensors polls host readings for the overlay. Each probe runs on a
// shared worker pool and a failing probe only drops its own readings.
package sensors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/panjf2000/ants/v2"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/srediag/perf-overlay/api"
	"github.com/srediag/perf-overlay/internal/logging"
)

// Reading names produced by the default probes.
const (
	CPULoad        = "cpu.load"
	CPUFrequency   = "cpu.frequency"
	CPUTemperature = "cpu.temperature"
	MemoryLoad     = "memory.load"
	MemoryUsedGiB  = "memory.used"
	LoadAverage    = "system.load1"
	Uptime         = "system.uptime"
)

// ErrClosed is returned by Update after Close.
var ErrClosed = errors.New("sensors closed")

var logger = logging.New("sensors", nil)

// Probe reads one group of sensors.
type Probe struct {
	Name string
	Read func(ctx context.Context) (map[string]float64, error)
	// Reset, if set, runs when the host resumes from sleep.
	Reset func(ctx context.Context)
}

// Options configure Sensors.
type Options struct {
	// Probes replace the default gopsutil probes.
	Probes []Probe
	// Workers bounds concurrent probes; zero means one per probe.
	Workers int
	// Timeout bounds one Update.
	Timeout time.Duration
}

// Sensors is an api.SensorSource backed by gopsutil.
type Sensors struct {
	probes  []Probe
	pool    *ants.Pool
	timeout time.Duration

	mu     sync.Mutex
	closed bool
}

var _ api.SensorSource = (*Sensors)(nil)

// New starts the worker pool.
func New(opts Options) (*Sensors, error) {
	probes := opts.Probes
	if probes == nil {
		probes = DefaultProbes()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = len(probes)
	}
	if workers <= 0 {
		workers = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 200 * time.Millisecond
	}
	pool, err := ants.NewPool(workers, ants.WithPanicHandler(func(p interface{}) {
		logger.Errorf("sensor probe panic: %v", p)
	}))
	if err != nil {
		return nil, fmt.Errorf("sensor pool: %w", err)
	}
	return &Sensors{
		probes:  probes,
		pool:    pool,
		timeout: opts.Timeout,
	}, nil
}

// Update runs every probe and returns the readings gathered before the
// timeout. Probes still running when it expires finish in the background and
// their readings are dropped.
func (s *Sensors) Update(ctx context.Context) (api.Readings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	values := cmap.New[float64]()
	var wg sync.WaitGroup
	for _, p := range s.probes {
		p := p
		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()
			vals, err := p.Read(ctx)
			if err != nil {
				logger.Debugf("probe %s: %v", p.Name, err)
				return
			}
			if ctx.Err() != nil {
				return
			}
			for k, v := range vals {
				values.Set(k, v)
			}
		})
		if err != nil {
			wg.Done()
			logger.Debugf("submit probe %s: %v", p.Name, err)
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		logger.Debugf("sensor update timed out after %v", s.timeout)
	}
	return api.Readings(values.Items()), nil
}

// Reset lets probes re-prime after a resume.
func (s *Sensors) Reset(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for _, p := range s.probes {
		if p.Reset != nil {
			p.Reset(ctx)
		}
	}
}

// Close stops the pool. It is safe to call more than once.
func (s *Sensors) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.pool.Release()
	return nil
}

// DefaultProbes reads CPU, memory, load and temperature via gopsutil.
func DefaultProbes() []Probe {
	return []Probe{
		{Name: "cpu", Read: readCPU, Reset: primeCPU},
		{Name: "memory", Read: readMemory},
		{Name: "load", Read: readLoad},
		{Name: "temperature", Read: readTemperature},
	}
}

func readCPU(ctx context.Context) (map[string]float64, error) {
	out := make(map[string]float64, 2)
	pct, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return nil, err
	}
	if len(pct) > 0 {
		out[CPULoad] = pct[0]
	}
	if infos, err := cpu.InfoWithContext(ctx); err == nil && len(infos) > 0 {
		out[CPUFrequency] = infos[0].Mhz
	}
	return out, nil
}

// primeCPU resets the busy-time baseline used by a zero-interval sample.
func primeCPU(ctx context.Context) {
	_, _ = cpu.PercentWithContext(ctx, 0, false)
}

func readMemory(ctx context.Context) (map[string]float64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]float64{
		MemoryLoad:    vm.UsedPercent,
		MemoryUsedGiB: float64(vm.Used) / (1 << 30),
	}, nil
}

func readLoad(ctx context.Context) (map[string]float64, error) {
	avg, err := load.AvgWithContext(ctx)
	if err != nil {
		return nil, err
	}
	out := map[string]float64{LoadAverage: avg.Load1}
	if up, err := host.UptimeWithContext(ctx); err == nil {
		out[Uptime] = float64(up)
	}
	return out, nil
}

// readTemperature reports the hottest package or core sensor.
func readTemperature(ctx context.Context) (map[string]float64, error) {
	temps, err := host.SensorsTemperaturesWithContext(ctx)
	if len(temps) == 0 {
		if err == nil {
			err = errors.New("no temperature sensors")
		}
		return nil, err
	}
	best, found := 0.0, false
	for _, t := range temps {
		key := strings.ToLower(t.SensorKey)
		if !strings.Contains(key, "core") && !strings.Contains(key, "package") && !strings.Contains(key, "tctl") && !strings.Contains(key, "cpu") {
			continue
		}
		if !found || t.Temperature > best {
			best, found = t.Temperature, true
		}
	}
	if !found {
		return nil, errors.New("no cpu temperature sensor")
	}
	return map[string]float64{CPUTemperature: best}, nil
}
