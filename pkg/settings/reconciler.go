package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/srediag/perf-overlay/api"
	"github.com/srediag/perf-overlay/internal/logging"
	"github.com/srediag/perf-overlay/pkg/shm"
)

var logger = logging.New("settings", nil)

// Slot is the part of shm.Slot the reconciler needs.
type Slot interface {
	Read(ctx context.Context) (shm.Observation[OverlayModeSetting], error)
	Write(ctx context.Context, v OverlayModeSetting) error
}

// Reconciler applies peer requests from the shared settings slot to local
// settings and republishes the effective state.
type Reconciler struct {
	slot  Slot
	local api.LocalSettings
	gate  api.KernelDriverGate
}

// NewReconciler returns a reconciler over slot. A nil gate rejects every
// kernel driver request.
func NewReconciler(slot Slot, local api.LocalSettings, gate api.KernelDriverGate) *Reconciler {
	if gate == nil {
		gate = api.DenyGate{}
	}
	return &Reconciler{slot: slot, local: local, gate: gate}
}

// Reconcile applies any new request found in the slot and always republishes
// the current local state. applied reports whether a defined request field
// was applied. Unreadable slot data counts as no request; only a failed
// republish is returned as an error.
func (r *Reconciler) Reconcile(ctx context.Context) (applied bool, err error) {
	obs, err := r.slot.Read(ctx)
	switch {
	case err == nil && obs.Fresh:
		applied, err = r.apply(obs.Value)
		if err != nil {
			logger.Warnf("persist local settings: %v", err)
		}
	case err == nil, errors.Is(err, shm.ErrNoData):
	default:
		logger.Debugf("read shared settings: %v", err)
	}
	if err := r.Publish(ctx); err != nil {
		return applied, err
	}
	return applied, nil
}

// Publish writes the authoritative Current fields without looking at
// requests. Desired fields are cleared, marking any request as consumed.
func (r *Reconciler) Publish(ctx context.Context) error {
	if err := r.slot.Write(ctx, CurrentOf(r.local.Get())); err != nil {
		return fmt.Errorf("publish settings: %w", err)
	}
	return nil
}

func (r *Reconciler) apply(req OverlayModeSetting) (bool, error) {
	cur := r.local.Get()
	next := cur
	applied := false

	if req.Desired.Valid() {
		next.Preset = req.Desired
		next.Visible = true
		applied = true
	}
	if req.DesiredEnabled.Valid() {
		next.Visible = req.DesiredEnabled == OverlayEnabledYes
		applied = true
	}
	if req.DesiredKernelDriversLoaded.Valid() {
		want := req.DesiredKernelDriversLoaded == KernelDriversLoadedYes
		next.KernelDrivers = api.ResolveKernelDrivers(cur.KernelDrivers, want, r.gate)
		if want && !next.KernelDrivers {
			logger.Infof("kernel driver request rejected")
		}
		applied = true
	}
	if next == cur {
		return applied, nil
	}
	logger.Infof("applying shared request: preset=%v visible=%v kernelDrivers=%v", next.Preset, next.Visible, next.KernelDrivers)
	return applied, r.local.Set(next)
}
