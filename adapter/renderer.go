// Package adapter provides adapters between the overlay core and external
// systems: the OSD renderer host, the glue layer's status display, and
// OpenTelemetry.
package adapter

import (
	"errors"
	"fmt"
)

// ErrRendererUnavailable marks failures caused by the renderer host being
// absent or restarting. Adapters wrap it; callers test with errors.Is.
var ErrRendererUnavailable = errors.New("renderer unavailable")

// ExpectedSlotIndex is the renderer slot the overlay must own. Any other
// index means a sibling process claimed ours.
const ExpectedSlotIndex = 0

// Macros expanded by the renderer host itself.
const (
	MacroFramerate = "<FR>"
	MacroFrametime = "<FT>"
)

// GraphFlags select what an embedded graph plots.
type GraphFlags uint32

const (
	GraphFramerate GraphFlags = 1 << iota
	GraphFrametime
	GraphFilled
)

// GraphSpec describes an embedded line graph. Negative sizes are in
// characters, positive sizes in pixels.
type GraphSpec struct {
	Width  int32
	Height int32
	Margin int32
	Min    float32
	Max    float32
	Flags  GraphFlags
}

// Renderer is the external OSD host.
type Renderer interface {
	// SlotIndex returns the host's slot index for name, or -1 if unowned.
	SlotIndex(name string) int
	// Open claims a slot for name.
	Open(name string) (Handle, error)
	// QueryVersion returns the host version; it doubles as a liveness probe.
	QueryVersion() (string, error)
}

// Handle is an open renderer slot.
type Handle interface {
	// EmbedGraph places a graph object at offset in the slot's object table
	// and returns the bytes it occupies; 0 means rejected.
	EmbedGraph(offset uint32, g GraphSpec) uint32
	// Update replaces the displayed text.
	Update(text string) error
	// Close releases the slot. It never fails.
	Close()
}

// ObjectTag is the text reference to an embedded object at offset.
func ObjectTag(offset uint32) string {
	return fmt.Sprintf("<OBJ=%X>", offset)
}
