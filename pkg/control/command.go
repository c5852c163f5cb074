package control

import (
	"fmt"

	"github.com/srediag/perf-overlay/api"
)

// Kind identifies a command.
type Kind int

const (
	// ToggleVisible flips overlay visibility.
	ToggleVisible Kind = iota + 1
	// CyclePreset moves to the next preset and shows the overlay.
	CyclePreset
	// SetPreset selects Command.Preset.
	SetPreset
	// SetKernelDrivers requests Command.Enable, subject to the gate.
	SetKernelDrivers
	// SetFullOnPowerControl sets the power control override opt-in.
	SetFullOnPowerControl
	// ReconcileNow publishes local settings without waiting for a tick.
	ReconcileNow
	// ResetSensors re-primes sensors, e.g. after resume from sleep.
	ResetSensors
)

func (k Kind) String() string {
	switch k {
	case ToggleVisible:
		return "ToggleVisible"
	case CyclePreset:
		return "CyclePreset"
	case SetPreset:
		return "SetPreset"
	case SetKernelDrivers:
		return "SetKernelDrivers"
	case SetFullOnPowerControl:
		return "SetFullOnPowerControl"
	case ReconcileNow:
		return "ReconcileNow"
	case ResetSensors:
		return "ResetSensors"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Command is a request from the glue layer, run on the loop goroutine.
type Command struct {
	Kind   Kind
	Preset api.Preset
	Enable bool
}

// apply returns the settings after cmd. Gate is consulted for kernel
// drivers only.
func (cmd Command) apply(s api.Settings, gate api.KernelDriverGate) api.Settings {
	switch cmd.Kind {
	case ToggleVisible:
		s.Visible = !s.Visible
	case CyclePreset:
		s.Preset = s.Preset.Next()
		s.Visible = true
	case SetPreset:
		if cmd.Preset.Valid() {
			s.Preset = cmd.Preset
		}
	case SetKernelDrivers:
		s.KernelDrivers = api.ResolveKernelDrivers(s.KernelDrivers, cmd.Enable, gate)
	case SetFullOnPowerControl:
		s.FullOnPowerControl = cmd.Enable
	}
	return s
}
