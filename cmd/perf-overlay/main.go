// Command perf-overlay runs the performance overlay controller and talks to
// a running controller through the shared settings slot.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
