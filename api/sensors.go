package api

import "context"

// Readings maps a sensor name to its latest value.
type Readings map[string]float64

// Get returns the reading for name, if present.
func (r Readings) Get(name string) (float64, bool) {
	v, ok := r[name]
	return v, ok
}

// SensorSource yields fresh readings on demand.
type SensorSource interface {
	Update(ctx context.Context) (Readings, error)
	Close() error
}
