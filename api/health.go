package api

import "time"

// Health exposes liveness facts for probes.
type Health interface {
	// LastTick is when the overlay loop last finished a cycle.
	LastTick() time.Time
	// RendererAvailable reports whether the last cycle reached the renderer.
	RendererAvailable() bool
}
