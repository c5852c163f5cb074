// Package shm contains the platform-specific helpers behind pkg/shm: named,
// machine-local memory regions and the mutual-exclusion primitive guarding them.
package shm

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	cmap "github.com/orcaman/concurrent-map/v2"
)

var (
	// ErrRegionNotExist is returned when opening a region without Create and
	// no process has created it yet.
	ErrRegionNotExist = errors.New("shared memory region does not exist")
	// ErrLockTimeout is returned when the region lock could not be acquired
	// within the bounded wait.
	ErrLockTimeout = errors.New("timed out waiting for shared memory lock")
	// ErrNoSpace is returned when the backing store cannot hold a new region.
	ErrNoSpace = errors.New("not enough space left to create shared memory region")
	// ErrRegionClosed is returned when operating on an unmapped region.
	ErrRegionClosed = errors.New("shared memory region is closed")
)

// DefaultLockTimeout bounds how long Lock waits for a peer to release.
const DefaultLockTimeout = time.Second

var validName = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// MappedRegion represents a memory-mapped shared region.
type MappedRegion struct {
	Addr []byte
	Name string

	// held is the in-process side of the lock; the OS primitive alone does
	// not serialize goroutines sharing one process.
	held *sync.Mutex
	os   osRegion
}

// MapOptions defines options for mapping shared memory.
type MapOptions struct {
	Name   string
	Size   int
	Create bool
}

// processLocks holds one mutex per region name for the lifetime of the process.
var processLocks = cmap.New[*sync.Mutex]()

func processLock(name string) *sync.Mutex {
	return processLocks.Upsert(name, nil, func(exist bool, old, _ *sync.Mutex) *sync.Mutex {
		if exist {
			return old
		}
		return &sync.Mutex{}
	})
}

func verifyOptions(opts MapOptions) error {
	if opts.Size <= 0 {
		return fmt.Errorf("invalid region size %d", opts.Size)
	}
	if !validName.MatchString(opts.Name) {
		return fmt.Errorf("invalid region name %q", opts.Name)
	}
	return nil
}

// Lock acquires the region's named lock, waiting at most timeout. abandoned
// reports that the previous holder died while holding it; the lock is still
// acquired in that case.
func (r *MappedRegion) Lock(ctx context.Context, timeout time.Duration) (abandoned bool, err error) {
	if r == nil || r.Addr == nil {
		return false, ErrRegionClosed
	}
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Microsecond
	b.MaxInterval = 20 * time.Millisecond
	b.MaxElapsedTime = timeout

	op := func() error {
		if !r.held.TryLock() {
			return ErrLockTimeout
		}
		ok, ab, err := r.tryLock()
		if err != nil {
			r.held.Unlock()
			return backoff.Permanent(err)
		}
		if !ok {
			r.held.Unlock()
			return ErrLockTimeout
		}
		abandoned = ab
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return false, err
	}
	return abandoned, nil
}

// Unlock releases a lock taken with Lock.
func (r *MappedRegion) Unlock() error {
	if r == nil || r.Addr == nil {
		return ErrRegionClosed
	}
	defer r.held.Unlock()
	return r.unlock()
}
