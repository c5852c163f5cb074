package api

import "context"

// Lifecycle is implemented by long-running components started by the glue
// layer.
type Lifecycle interface {
	Start(ctx context.Context) error
	// Stop waits for the component to finish. It is safe to call more than once.
	Stop() error
}
