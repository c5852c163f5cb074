//go:build unix

package shm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

const devShm = "/dev/shm"

type osRegion struct {
	fd int
}

// Dir returns the directory backing named regions.
func Dir() string {
	if st, err := os.Stat(devShm); err == nil && st.IsDir() {
		return devShm
	}
	return os.TempDir()
}

// MapRegion maps or creates a shared memory region (Unix implementation).
func MapRegion(ctx context.Context, opts MapOptions) (*MappedRegion, error) {
	if err := verifyOptions(opts); err != nil {
		return nil, err
	}
	flags := unix.O_RDWR | unix.O_CLOEXEC
	if opts.Create {
		flags |= unix.O_CREAT
	}
	shmPath := filepath.Join(Dir(), opts.Name)
	fd, err := unix.Open(shmPath, flags, 0600)
	if err != nil {
		if errors.Is(err, unix.ENOENT) && !opts.Create {
			return nil, ErrRegionNotExist
		}
		return nil, fmt.Errorf("open %s: %w", shmPath, err)
	}
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("fstat: %w", err)
	}
	if st.Size < int64(opts.Size) {
		if !CanCreate(uint64(opts.Size), shmPath) {
			_ = unix.Close(fd)
			return nil, fmt.Errorf("path:%s size:%d: %w", shmPath, opts.Size, ErrNoSpace)
		}
		// Growing with zeroes is harmless for a region a peer already sized.
		if err := unix.Ftruncate(fd, int64(opts.Size)); err != nil {
			_ = unix.Close(fd)
			return nil, fmt.Errorf("ftruncate: %w", err)
		}
	}
	addr, err := unix.Mmap(fd, 0, opts.Size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("mmap: %w", err)
	}
	return &MappedRegion{
		Addr: addr,
		Name: opts.Name,
		held: processLock(opts.Name),
		os:   osRegion{fd: fd},
	}, nil
}

// UnmapRegion unmaps and closes the shared memory region (Unix implementation).
// The backing file is left in place so the region outlives this process.
func UnmapRegion(ctx context.Context, region *MappedRegion) error {
	if region == nil || region.Addr == nil {
		return nil
	}
	if err := unix.Munmap(region.Addr); err != nil {
		return fmt.Errorf("munmap: %w", err)
	}
	region.Addr = nil
	if err := unix.Close(region.os.fd); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}

// flock locks are dropped by the kernel when the holder exits, so a crashed
// writer can never leave the region locked and abandoned is always false.
func (r *MappedRegion) tryLock() (ok, abandoned bool, err error) {
	err = unix.Flock(r.os.fd, unix.LOCK_EX|unix.LOCK_NB)
	switch {
	case err == nil:
		return true, false, nil
	case errors.Is(err, unix.EWOULDBLOCK), errors.Is(err, unix.EINTR):
		return false, false, nil
	default:
		return false, false, fmt.Errorf("flock: %w", err)
	}
}

func (r *MappedRegion) unlock() error {
	if err := unix.Flock(r.os.fd, unix.LOCK_UN); err != nil {
		return fmt.Errorf("flock unlock: %w", err)
	}
	return nil
}
