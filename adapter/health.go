package adapter

import (
	"sync"

	"github.com/srediag/perf-overlay/internal/logging"
)

// StatusSink receives renderer availability changes for display by the glue
// layer, e.g. as tray icon text.
type StatusSink interface {
	Available(version string)
	Unavailable(err error)
}

// LogStatus is a StatusSink that logs transitions only.
type LogStatus struct {
	mu      sync.Mutex
	logger  *logging.Logger
	known   bool
	up      bool
	version string
}

// NewLogStatus returns a StatusSink logging to logger.
func NewLogStatus(logger *logging.Logger) *LogStatus {
	return &LogStatus{logger: logger}
}

func (s *LogStatus) Available(version string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.known || !s.up || s.version != version {
		s.logger.Infof("renderer available, version %s", version)
	}
	s.known, s.up, s.version = true, true, version
}

func (s *LogStatus) Unavailable(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.known || s.up {
		s.logger.Warnf("renderer not available: %v", err)
	}
	s.known, s.up = true, false
}

// Status returns the last reported state.
func (s *LogStatus) Status() (up bool, version string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.up, s.version
}
