package shm

import (
	"reflect"
	"strings"

	"github.com/srediag/perf-overlay/internal/logging"
)

var logger = logging.New("shm", nil)

// Namer lets a payload type pick its own region name, for interop with
// peers that were built from a differently named type.
type Namer interface {
	SlotName() string
}

// SlotName returns the region name for payload type T. Peers compute the
// same name from the same type, so it is stable across processes.
func SlotName[T any]() string {
	var zero T
	if n, ok := any(zero).(Namer); ok {
		return sanitize(n.SlotName())
	}
	t := reflect.TypeOf(zero)
	if t == nil {
		return "SharedData_nil"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return sanitize("SharedData_" + t.Name())
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-', r == '.':
			return r
		}
		return '_'
	}, name)
}
