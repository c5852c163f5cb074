//go:build unix

package shm

import (
	"math"
	"os"
	"path/filepath"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

func removeBacking(name string) {
	_ = os.Remove(filepath.Join(Dir(), name))
}

func regionWord(r *MappedRegion, offset int) unsafe.Pointer {
	return unsafe.Pointer(&r.Addr[offset])
}

// A foreign descriptor stands in for a peer process holding the lock.
func (s *PlatformTestSuite) TestLock_PeerDescriptorHolds() {
	r, err := MapRegion(s.ctx, MapOptions{Name: s.name, Size: 64, Create: true})
	s.Require().NoError(err)
	defer UnmapRegion(s.ctx, r) //nolint:errcheck

	fd, err := unix.Open(filepath.Join(Dir(), s.name), unix.O_RDWR, 0)
	s.Require().NoError(err)
	s.Require().NoError(unix.Flock(fd, unix.LOCK_EX))

	_, err = r.Lock(s.ctx, 30*time.Millisecond)
	s.Require().ErrorIs(err, ErrLockTimeout)

	// Closing the descriptor is what the kernel does for a crashed holder.
	s.Require().NoError(unix.Close(fd))
	abandoned, err := r.Lock(s.ctx, time.Second)
	s.Require().NoError(err)
	s.Require().False(abandoned)
	s.Require().NoError(r.Unlock())
}

func (s *PlatformTestSuite) TestCanCreate() {
	s.Require().True(CanCreate(math.MaxUint64, "not/under/devshm"))
	if Dir() == devShm {
		s.Require().False(CanCreate(math.MaxUint64, "/dev/shm/huge"))
		s.Require().True(CanCreate(1, "/dev/shm/tiny"))
	}
}
