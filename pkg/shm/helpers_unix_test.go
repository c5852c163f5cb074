//go:build unix

package shm

import (
	"os"
	"path/filepath"

	internalshm "github.com/srediag/perf-overlay/internal/shm"
)

func removeBacking(name string) {
	_ = os.Remove(filepath.Join(internalshm.Dir(), name))
}
