// Package config holds the overlay controller's local configuration and
// persists it as YAML.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/srediag/perf-overlay/api"
)

const (
	defaultRendererName    = "PerformanceOverlay"
	defaultVisibleInterval = 250 * time.Millisecond
	defaultHiddenInterval  = time.Second
	defaultLockTimeout     = time.Second
	minInterval            = 10 * time.Millisecond
)

// ErrInvalidConfig wraps every VerifyConfig failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the on-disk configuration.
type Config struct {
	Preset                   api.Preset `yaml:"preset"`
	ShowOSD                  bool       `yaml:"show_osd"`
	EnableKernelDrivers      bool       `yaml:"enable_kernel_drivers"`
	EnableFullOnPowerControl bool       `yaml:"enable_full_on_power_control"`

	RendererName    string        `yaml:"renderer_name"`
	VisibleInterval time.Duration `yaml:"visible_interval"`
	HiddenInterval  time.Duration `yaml:"hidden_interval"`
	LockTimeout     time.Duration `yaml:"lock_timeout"`
	// HealthAddr enables the health and metrics endpoint when set.
	HealthAddr string `yaml:"health_addr,omitempty"`

	// Shortcuts are kept for the glue layer that registers hot keys.
	ShowOSDShortcut  string `yaml:"show_osd_shortcut,omitempty"`
	CycleOSDShortcut string `yaml:"cycle_osd_shortcut,omitempty"`
}

// DefaultConfig returns the configuration of a fresh install.
func DefaultConfig() *Config {
	return &Config{
		Preset:           api.PresetFPS,
		ShowOSD:          true,
		RendererName:     defaultRendererName,
		VisibleInterval:  defaultVisibleInterval,
		HiddenInterval:   defaultHiddenInterval,
		LockTimeout:      defaultLockTimeout,
		ShowOSDShortcut:  "Shift+F11",
		CycleOSDShortcut: "Alt+Shift+F12",
	}
}

// VerifyConfig checks that config is usable.
func VerifyConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("%w: nil config", ErrInvalidConfig)
	}
	if !config.Preset.Valid() {
		return fmt.Errorf("%w: unknown preset %d", ErrInvalidConfig, uint32(config.Preset))
	}
	if config.RendererName == "" {
		return fmt.Errorf("%w: renderer_name is empty", ErrInvalidConfig)
	}
	if config.VisibleInterval < minInterval || config.HiddenInterval < minInterval {
		return fmt.Errorf("%w: tick intervals must be at least %v", ErrInvalidConfig, minInterval)
	}
	if config.HiddenInterval < config.VisibleInterval {
		return fmt.Errorf("%w: hidden_interval %v is shorter than visible_interval %v",
			ErrInvalidConfig, config.HiddenInterval, config.VisibleInterval)
	}
	if config.LockTimeout <= 0 {
		return fmt.Errorf("%w: lock_timeout must be positive", ErrInvalidConfig)
	}
	if config.HealthAddr != "" {
		if _, _, err := net.SplitHostPort(config.HealthAddr); err != nil {
			return fmt.Errorf("%w: health_addr: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}

// DefaultPath is where the controller keeps its configuration.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "perf-overlay", "config.yaml")
}

// Load reads path on top of the defaults. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	config := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return config, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := VerifyConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

// Write stores config at path atomically.
func Write(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	f, err := os.CreateTemp(dir, ".config-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("write config: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}

// Store is a file-backed api.LocalSettings. Set only persists the fields it
// changed and writes the file before returning.
type Store struct {
	mu     sync.Mutex
	path   string
	config Config
}

var _ api.LocalSettings = (*Store)(nil)

// Open loads path into a Store.
func Open(path string) (*Store, error) {
	config, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &Store{path: path, config: *config}, nil
}

// NewStore wraps config without reading the file.
func NewStore(path string, config *Config) *Store {
	return &Store{path: path, config: *config}
}

// Config returns a copy of the whole configuration.
func (s *Store) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

func (s *Store) Get() api.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return api.Settings{
		Preset:             s.config.Preset,
		Visible:            s.config.ShowOSD,
		KernelDrivers:      s.config.EnableKernelDrivers,
		FullOnPowerControl: s.config.EnableFullOnPowerControl,
	}
}

func (s *Store) Set(v api.Settings) error {
	if !v.Preset.Valid() {
		return fmt.Errorf("%w: unknown preset %d", ErrInvalidConfig, uint32(v.Preset))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.config
	next.Preset = v.Preset
	next.ShowOSD = v.Visible
	next.EnableKernelDrivers = v.KernelDrivers
	next.EnableFullOnPowerControl = v.FullOnPowerControl
	if next == s.config {
		return nil
	}
	s.config = next
	return s.persist()
}

// Persist writes the current configuration.
func (s *Store) Persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist()
}

func (s *Store) persist() error {
	if s.path == "" {
		return nil
	}
	return Write(s.path, &s.config)
}
