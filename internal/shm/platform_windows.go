//go:build windows

package shm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Named kernel objects live in the session namespace, which keeps them
// machine-local and visible to every process of the interactive user.
const namespace = `Local\`

type osRegion struct {
	mapping windows.Handle
	mutex   windows.Handle
	view    uintptr
}

// Dir returns the directory backing named regions. Windows regions are
// backed by the paging file, so this is only used for free-space probing.
func Dir() string {
	return os.TempDir()
}

// MapRegion maps or creates a shared memory region (Windows implementation).
func MapRegion(ctx context.Context, opts MapOptions) (*MappedRegion, error) {
	if err := verifyOptions(opts); err != nil {
		return nil, err
	}
	name, err := windows.UTF16PtrFromString(namespace + opts.Name)
	if err != nil {
		return nil, err
	}
	mapping, err := windows.CreateFileMapping(windows.InvalidHandle, nil, windows.PAGE_READWRITE, 0, uint32(opts.Size), name)
	existed := false
	if err != nil {
		if mapping == 0 {
			if errors.Is(err, windows.ERROR_NOT_ENOUGH_MEMORY) {
				return nil, fmt.Errorf("CreateFileMapping %s: %w", opts.Name, ErrNoSpace)
			}
			return nil, fmt.Errorf("CreateFileMapping %s: %w", opts.Name, err)
		}
		if !errors.Is(err, windows.ERROR_ALREADY_EXISTS) {
			_ = windows.CloseHandle(mapping)
			return nil, fmt.Errorf("CreateFileMapping %s: %w", opts.Name, err)
		}
		existed = true
	}
	// Closing the only handle destroys the mapping we just created.
	if !opts.Create && !existed {
		_ = windows.CloseHandle(mapping)
		return nil, ErrRegionNotExist
	}
	view, err := windows.MapViewOfFile(mapping, windows.FILE_MAP_READ|windows.FILE_MAP_WRITE, 0, 0, uintptr(opts.Size))
	if err != nil {
		_ = windows.CloseHandle(mapping)
		return nil, fmt.Errorf("MapViewOfFile: %w", err)
	}
	mutexName, err := windows.UTF16PtrFromString(namespace + opts.Name + "_mutex")
	if err != nil {
		_ = windows.UnmapViewOfFile(view)
		_ = windows.CloseHandle(mapping)
		return nil, err
	}
	mutex, err := windows.CreateMutex(nil, false, mutexName)
	if mutex == 0 {
		_ = windows.UnmapViewOfFile(view)
		_ = windows.CloseHandle(mapping)
		return nil, fmt.Errorf("CreateMutex: %w", err)
	}
	return &MappedRegion{
		Addr: unsafe.Slice((*byte)(unsafe.Pointer(view)), opts.Size),
		Name: opts.Name,
		held: processLock(opts.Name),
		os:   osRegion{mapping: mapping, mutex: mutex, view: view},
	}, nil
}

// UnmapRegion unmaps and closes the shared memory region (Windows implementation).
func UnmapRegion(ctx context.Context, region *MappedRegion) error {
	if region == nil || region.Addr == nil {
		return nil
	}
	region.Addr = nil
	var errs []error
	if err := windows.UnmapViewOfFile(region.os.view); err != nil {
		errs = append(errs, fmt.Errorf("UnmapViewOfFile: %w", err))
	}
	if err := windows.CloseHandle(region.os.mapping); err != nil {
		errs = append(errs, fmt.Errorf("close mapping: %w", err))
	}
	if err := windows.CloseHandle(region.os.mutex); err != nil {
		errs = append(errs, fmt.Errorf("close mutex: %w", err))
	}
	return errors.Join(errs...)
}

// Mutex ownership is per OS thread, so the goroutine stays pinned between
// tryLock and unlock.
func (r *MappedRegion) tryLock() (ok, abandoned bool, err error) {
	runtime.LockOSThread()
	event, err := windows.WaitForSingleObject(r.os.mutex, 0)
	switch event {
	case windows.WAIT_OBJECT_0:
		return true, false, nil
	case windows.WAIT_ABANDONED:
		return true, true, nil
	case windows.WAIT_FAILED:
		runtime.UnlockOSThread()
		return false, false, fmt.Errorf("WaitForSingleObject: %w", err)
	}
	runtime.UnlockOSThread()
	return false, false, nil
}

func (r *MappedRegion) unlock() error {
	defer runtime.UnlockOSThread()
	if err := windows.ReleaseMutex(r.os.mutex); err != nil {
		return fmt.Errorf("ReleaseMutex: %w", err)
	}
	return nil
}
