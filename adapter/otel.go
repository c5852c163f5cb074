package adapter

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/srediag/perf-overlay"

// Tracer returns the tracer from the globally installed provider. Without
// an installed provider it is a no-op.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// Meter returns the meter from the globally installed provider.
func Meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
