//go:build unix

package settings

import (
	"os"
	"path/filepath"

	internalshm "github.com/srediag/perf-overlay/internal/shm"
)

func removeBacking(name string) {
	_ = os.Remove(filepath.Join(internalshm.Dir(), name))
}
