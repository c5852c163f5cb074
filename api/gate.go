package api

// KernelDriverGate confirms enabling privileged sensor drivers, typically by
// asking the user to acknowledge anti-cheat risks.
type KernelDriverGate interface {
	ConfirmKernelDriverEnable() bool
}

// GateFunc adapts a function to KernelDriverGate.
type GateFunc func() bool

func (f GateFunc) ConfirmKernelDriverEnable() bool { return f() }

// AllowGate approves every request.
type AllowGate struct{}

func (AllowGate) ConfirmKernelDriverEnable() bool { return true }

// DenyGate rejects every request.
type DenyGate struct{}

func (DenyGate) ConfirmKernelDriverEnable() bool { return false }

// ResolveKernelDrivers returns the effective kernel driver state when want
// is requested while current is in effect. Only an off to on transition
// consults the gate; a rejection forces the drivers off.
func ResolveKernelDrivers(current, want bool, gate KernelDriverGate) bool {
	if !want {
		return false
	}
	if current {
		return true
	}
	return gate != nil && gate.ConfirmKernelDriverEnable()
}
