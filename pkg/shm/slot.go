package shm

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
	"unsafe"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/srediag/perf-overlay/internal/logging"
	internalshm "github.com/srediag/perf-overlay/internal/shm"
)

var (
	// ErrNoData is returned by reads of a slot that was never written or
	// whose stored payload does not match the reader's layout.
	ErrNoData = errors.New("shared slot holds no data")
	// ErrNotFixedLayout is returned when the payload type has no fixed
	// binary size.
	ErrNotFixedLayout = errors.New("shared slot payload must have a fixed binary layout")
	// ErrRegionNotExist is returned by OpenExisting and ReadExisting when no
	// process has created the slot yet.
	ErrRegionNotExist = internalshm.ErrRegionNotExist
	// ErrLockTimeout is returned when a peer held the slot lock for longer
	// than the configured timeout.
	ErrLockTimeout = internalshm.ErrLockTimeout
	// ErrNoSpace is returned when the slot region cannot be created at all.
	ErrNoSpace = internalshm.ErrNoSpace
)

// Header layout, little-endian:
//
//	magic 4 byte | payload size 4 byte | version 8 byte | writer 16 byte | reserved
const (
	headerSize        = 64
	magicOffset       = 0
	payloadSizeOffset = magicOffset + 4
	versionOffset     = payloadSizeOffset + 4
	writerOffset      = versionOffset + 8
	writerSize        = 16

	slotMagic uint32 = 0x4f534431
)

const instrumentationName = "github.com/srediag/perf-overlay/pkg/shm"

var processID = uuid.New()

// ProcessID returns the identity this process stamps on its writes.
func ProcessID() uuid.UUID {
	return processID
}

// Options configure how a slot is opened.
type Options struct {
	// Name overrides the type-derived region name.
	Name string
	// LockTimeout bounds every wait on the slot lock. Zero means one second.
	LockTimeout time.Duration
	// WriterID overrides the process identity stamped on writes.
	WriterID uuid.UUID
	Meter    metric.Meter
	Tracer   trace.Tracer
}

// Observation is one read of a slot.
type Observation[T any] struct {
	Value   T
	Version uint64
	Writer  uuid.UUID
	// Fresh reports that the version differs from the one this handle last
	// wrote or read.
	Fresh bool
}

// Slot is a handle on a Shared Value Slot holding a T. A Slot is safe for
// concurrent use; each handle tracks its own read cursor.
type Slot[T any] struct {
	name        string
	size        int
	region      *internalshm.MappedRegion
	lockTimeout time.Duration
	writer      uuid.UUID
	cursor      uint64

	tracer    trace.Tracer
	writes    metric.Int64Counter
	reads     metric.Int64Counter
	abandoned metric.Int64Counter
	attrs     metric.MeasurementOption
}

// Open creates the slot if needed and maps it. Every process opening the
// same payload type gets the same region. Failing to create the region is
// not retried.
func Open[T any](ctx context.Context, opts Options) (*Slot[T], error) {
	return open[T](ctx, opts, true)
}

// OpenExisting maps a slot only if some process already created it.
func OpenExisting[T any](ctx context.Context, opts Options) (*Slot[T], error) {
	return open[T](ctx, opts, false)
}

// ReadExisting reads a slot that may never have been created, without
// creating it.
func ReadExisting[T any](ctx context.Context, opts Options) (T, error) {
	var zero T
	s, err := OpenExisting[T](ctx, opts)
	if err != nil {
		return zero, err
	}
	defer s.Close() //nolint:errcheck
	obs, err := s.Read(ctx)
	if err != nil {
		return zero, err
	}
	return obs.Value, nil
}

func open[T any](ctx context.Context, opts Options, create bool) (*Slot[T], error) {
	var zero T
	size := binary.Size(zero)
	if size <= 0 {
		return nil, fmt.Errorf("%T: %w", zero, ErrNotFixedLayout)
	}
	name := opts.Name
	if name == "" {
		name = SlotName[T]()
	}
	region, err := internalshm.MapRegion(ctx, internalshm.MapOptions{
		Name:   name,
		Size:   headerSize + size,
		Create: create,
	})
	if err != nil {
		return nil, fmt.Errorf("open slot %s: %w", name, err)
	}
	s := &Slot[T]{
		name:        name,
		size:        size,
		region:      region,
		lockTimeout: opts.LockTimeout,
		writer:      opts.WriterID,
		tracer:      opts.Tracer,
		attrs:       metric.WithAttributes(attribute.String("slot", name)),
	}
	if s.writer == uuid.Nil {
		s.writer = processID
	}
	if s.tracer == nil {
		s.tracer = tracenoop.NewTracerProvider().Tracer(instrumentationName)
	}
	meter := opts.Meter
	if meter == nil {
		meter = metricnoop.NewMeterProvider().Meter(instrumentationName)
	}
	if s.writes, err = meter.Int64Counter("perf_overlay.slot.writes"); err != nil {
		return nil, errors.Join(err, internalshm.UnmapRegion(ctx, region))
	}
	if s.reads, err = meter.Int64Counter("perf_overlay.slot.reads"); err != nil {
		return nil, errors.Join(err, internalshm.UnmapRegion(ctx, region))
	}
	if s.abandoned, err = meter.Int64Counter("perf_overlay.slot.lock.abandoned"); err != nil {
		return nil, errors.Join(err, internalshm.UnmapRegion(ctx, region))
	}
	return s, nil
}

// Name returns the region name backing the slot.
func (s *Slot[T]) Name() string {
	return s.name
}

// Writer returns the identity stamped on this handle's writes.
func (s *Slot[T]) Writer() uuid.UUID {
	return s.writer
}

// Write publishes v, replacing whatever the slot held.
func (s *Slot[T]) Write(ctx context.Context, v T) (err error) {
	ctx, span := s.tracer.Start(ctx, "shm.Slot.Write", trace.WithAttributes(attribute.String("slot", s.name)))
	defer endSpan(span, &err)

	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.unlock()

	mem := s.region.Addr
	if _, err := binary.Encode(mem[headerSize:headerSize+s.size], binary.LittleEndian, v); err != nil {
		return fmt.Errorf("encode %s: %w", s.name, err)
	}
	binary.LittleEndian.PutUint32(mem[payloadSizeOffset:], uint32(s.size))
	copy(mem[writerOffset:writerOffset+writerSize], s.writer[:])
	version := internalshm.AtomicLoadUint64(s.word(versionOffset)) + 1
	internalshm.AtomicStoreUint64(s.word(versionOffset), version)
	binary.LittleEndian.PutUint32(mem[magicOffset:], slotMagic)
	s.cursor = version

	s.writes.Add(ctx, 1, s.attrs)
	span.SetAttributes(attribute.Int64("version", int64(version)))
	return nil
}

// Read copies the current value out. It returns ErrNoData if the slot was
// never written or holds a payload of a different size.
func (s *Slot[T]) Read(ctx context.Context) (obs Observation[T], err error) {
	ctx, span := s.tracer.Start(ctx, "shm.Slot.Read", trace.WithAttributes(attribute.String("slot", s.name)))
	defer endSpan(span, &err)

	if err := s.lock(ctx); err != nil {
		return obs, err
	}
	defer s.unlock()

	s.reads.Add(ctx, 1, s.attrs)
	mem := s.region.Addr
	if binary.LittleEndian.Uint32(mem[magicOffset:]) != slotMagic {
		s.dumpHeader("bad magic")
		return obs, ErrNoData
	}
	if int(binary.LittleEndian.Uint32(mem[payloadSizeOffset:])) != s.size {
		s.dumpHeader("payload size mismatch")
		return obs, ErrNoData
	}
	if _, err := binary.Decode(mem[headerSize:headerSize+s.size], binary.LittleEndian, &obs.Value); err != nil {
		s.dumpHeader(err.Error())
		return Observation[T]{}, ErrNoData
	}
	copy(obs.Writer[:], mem[writerOffset:writerOffset+writerSize])
	obs.Version = internalshm.AtomicLoadUint64(s.word(versionOffset))
	obs.Fresh = obs.Version != s.cursor
	s.cursor = obs.Version
	return obs, nil
}

// dumpHeader logs the raw header in debug mode. The caller holds the lock.
func (s *Slot[T]) dumpHeader(reason string) {
	if !logging.DebugMode() {
		return
	}
	logger.Warnf("slot %s holds no data (%s), header:\n%s", s.name, reason, hex.Dump(s.region.Addr[:headerSize]))
}

// Version returns the slot's version stamp without moving the cursor.
func (s *Slot[T]) Version() uint64 {
	if s.region == nil || s.region.Addr == nil {
		return 0
	}
	return internalshm.AtomicLoadUint64(s.word(versionOffset))
}

// Close unmaps the slot. The region itself stays alive for other processes.
func (s *Slot[T]) Close() error {
	return internalshm.UnmapRegion(context.Background(), s.region)
}

func (s *Slot[T]) word(offset int) unsafe.Pointer {
	return unsafe.Pointer(&s.region.Addr[offset])
}

func (s *Slot[T]) lock(ctx context.Context) error {
	abandoned, err := s.region.Lock(ctx, s.lockTimeout)
	if err != nil {
		return fmt.Errorf("lock slot %s: %w", s.name, err)
	}
	if abandoned {
		s.abandoned.Add(ctx, 1, s.attrs)
		logger.Warnf("slot %s: previous lock holder exited without releasing, proceeding", s.name)
	}
	return nil
}

func (s *Slot[T]) unlock() {
	if err := s.region.Unlock(); err != nil {
		logger.Warnf("slot %s unlock error: %v", s.name, err)
	}
}

func endSpan(span trace.Span, err *error) {
	if *err != nil && !errors.Is(*err, ErrNoData) {
		span.RecordError(*err)
		span.SetStatus(codes.Error, (*err).Error())
	}
	span.End()
}
