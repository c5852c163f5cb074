// Package shm provides the Shared Value Slot: a named, fixed-layout record in
// machine-local shared memory that any number of processes can publish to
// and observe, without a broker.
//
// A slot holds exactly one value. Writes are last-writer-wins and every write
// bumps a version stamp and records the writer's process identity. Readers
// keep their own cursor, so each handle learns whether the value changed
// since it last looked. Intermediate writes are never queued; the slot is
// level-triggered state, not an event stream.
//
// The payload type must have a fixed binary layout (only fixed-width
// integers, floats, bools, arrays and structs of those). The region name is
// derived from the payload type unless the type implements Namer.
//
// Example usage:
//
//	slot, err := shm.Open[settings.OverlayModeSetting](ctx, shm.Options{})
//	if err != nil {
//	  return err
//	}
//	defer slot.Close()
//	if err := slot.Write(ctx, value); err != nil {
//	  // ...
//	}
//	obs, err := slot.Read(ctx)
//	if errors.Is(err, shm.ErrNoData) {
//	  // nobody wrote yet
//	}
//
// The slot is instrumented with OpenTelemetry metrics and tracing; both
// default to no-op providers.
package shm
