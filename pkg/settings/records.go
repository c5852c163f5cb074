// Package settings holds the shared overlay settings records and reconciles
// peer requests published in them with the local configuration.
package settings

import (
	"context"

	"github.com/srediag/perf-overlay/api"
	"github.com/srediag/perf-overlay/pkg/shm"
)

// OverlayEnabled is a tri-state visibility field; zero means unset.
type OverlayEnabled uint32

const (
	OverlayEnabledYes OverlayEnabled = 378313 + iota
	OverlayEnabledNo
)

func (v OverlayEnabled) Valid() bool {
	return v == OverlayEnabledYes || v == OverlayEnabledNo
}

func (v OverlayEnabled) String() string {
	switch v {
	case OverlayEnabledYes:
		return "Yes"
	case OverlayEnabledNo:
		return "No"
	}
	return "Unset"
}

// EnabledOf converts a local flag to its shared form.
func EnabledOf(b bool) OverlayEnabled {
	if b {
		return OverlayEnabledYes
	}
	return OverlayEnabledNo
}

// KernelDriversLoaded is a tri-state kernel driver field; zero means unset.
type KernelDriversLoaded uint32

const (
	KernelDriversLoadedYes KernelDriversLoaded = 4121 + iota
	KernelDriversLoadedNo
)

func (v KernelDriversLoaded) Valid() bool {
	return v == KernelDriversLoadedYes || v == KernelDriversLoadedNo
}

func (v KernelDriversLoaded) String() string {
	switch v {
	case KernelDriversLoadedYes:
		return "Yes"
	case KernelDriversLoadedNo:
		return "No"
	}
	return "Unset"
}

// KernelDriversOf converts a local flag to its shared form.
func KernelDriversOf(b bool) KernelDriversLoaded {
	if b {
		return KernelDriversLoadedYes
	}
	return KernelDriversLoadedNo
}

// PowerControlVisible is the sibling power control panel's visibility.
type PowerControlVisible uint32

const (
	PowerControlVisibleYes PowerControlVisible = 49500 + iota
	PowerControlVisibleNo
)

func (v PowerControlVisible) Valid() bool {
	return v == PowerControlVisibleYes || v == PowerControlVisibleNo
}

// OverlayModeSetting is the overlay settings record shared between the
// authoritative overlay process and its peers. Peers set the Desired fields;
// the overlay republishes the Current fields after reconciling.
type OverlayModeSetting struct {
	Desired                    api.Preset
	DesiredEnabled             OverlayEnabled
	DesiredKernelDriversLoaded KernelDriversLoaded

	Current             api.Preset
	CurrentEnabled      OverlayEnabled
	KernelDriversLoaded KernelDriversLoaded
}

// HasRequest reports whether any desired field is set to a defined value.
func (s OverlayModeSetting) HasRequest() bool {
	return s.Desired.Valid() || s.DesiredEnabled.Valid() || s.DesiredKernelDriversLoaded.Valid()
}

// PowerControlSetting is published by the sibling power control panel.
type PowerControlSetting struct {
	Current PowerControlVisible
}

// CurrentOf builds the record republished for local settings.
func CurrentOf(s api.Settings) OverlayModeSetting {
	return OverlayModeSetting{
		Current:             s.Preset,
		CurrentEnabled:      EnabledOf(s.Visible),
		KernelDriversLoaded: KernelDriversOf(s.KernelDrivers),
	}
}

// PowerControlShown reports whether the sibling power control panel says it
// is visible. A record that was never created counts as not shown.
func PowerControlShown(ctx context.Context, opts shm.Options) bool {
	v, err := shm.ReadExisting[PowerControlSetting](ctx, opts)
	return err == nil && v.Current == PowerControlVisibleYes
}
