// Package api defines the contracts between the overlay core and its
// collaborators: local settings, the kernel-driver gate, and sensors.
package api

import (
	"fmt"
	"strings"
)

// Preset selects an overlay layout. The zero value is not a preset, so a
// shared record can carry "no request". Values are part of the shared
// memory wire format and must not change.
type Preset uint32

const (
	PresetFPS Preset = 10032 + iota
	PresetMinimal
	PresetDetail
	PresetFull
)

var presetNames = map[Preset]string{
	PresetFPS:     "FPS",
	PresetMinimal: "Minimal",
	PresetDetail:  "Detail",
	PresetFull:    "Full",
}

// Presets lists every preset, poorest first.
func Presets() []Preset {
	return []Preset{PresetFPS, PresetMinimal, PresetDetail, PresetFull}
}

// RichestPreset is the layout showing every reading.
const RichestPreset = PresetFull

// Valid reports whether p is a defined preset.
func (p Preset) Valid() bool {
	_, ok := presetNames[p]
	return ok
}

func (p Preset) String() string {
	if name, ok := presetNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Preset(%d)", uint32(p))
}

// Next returns the preset after p, wrapping around. Undefined values start
// the cycle over.
func (p Preset) Next() Preset {
	all := Presets()
	for i, v := range all {
		if v == p {
			return all[(i+1)%len(all)]
		}
	}
	return all[0]
}

// ParsePreset accepts a preset name, case-insensitively.
func ParsePreset(s string) (Preset, error) {
	for p, name := range presetNames {
		if strings.EqualFold(name, s) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown preset %q", s)
}

func (p Preset) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid preset %d", uint32(p))
	}
	return []byte(p.String()), nil
}

func (p *Preset) UnmarshalText(text []byte) error {
	v, err := ParsePreset(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Settings is the locally configured overlay state.
type Settings struct {
	Preset        Preset
	Visible       bool
	KernelDrivers bool
	// FullOnPowerControl enables the richest preset while a sibling power
	// control panel is shown.
	FullOnPowerControl bool
}

// LocalSettings is the process's own configuration. Set persists the
// change; implementations must be safe for concurrent use.
type LocalSettings interface {
	Get() Settings
	Set(Settings) error
}
