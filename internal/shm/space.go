package shm

import (
	"strings"

	"github.com/shirou/gopsutil/v3/disk"
)

// CanCreate reports whether a region of size bytes fits on the device
// backing path. Only /dev/shm is a bounded tmpfs worth probing; every other
// location always reports true.
func CanCreate(size uint64, path string) bool {
	if !strings.HasPrefix(path, "/dev/shm") {
		return true
	}
	stat, err := disk.Usage("/dev/shm")
	if err != nil {
		return true
	}
	return stat.Free >= size
}
