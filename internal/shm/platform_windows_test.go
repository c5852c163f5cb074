//go:build windows

package shm

import (
	"unsafe"
)

func removeBacking(string) {}

func regionWord(r *MappedRegion, offset int) unsafe.Pointer {
	return unsafe.Pointer(&r.Addr[offset])
}
