package scheduler

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/specialistvlad/tempogrid/internal/scheduler"

type options struct {
	tracer trace.Tracer
	// verbatim keeps out-of-range confirmations unclamped.
	verbatim bool
}

// Option configures a Scheduler.
type Option func(*options)

// WithTracer sets the tracer used for Plan, Start and Confirm spans. The
// default is the global provider's tracer.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithUnclampedConfirmations accepts out-of-range confirmations as reported
// instead of clamping them into the step's [min, max] bounds. They are still
// flagged.
func WithUnclampedConfirmations() Option {
	return func(o *options) {
		o.verbatim = true
	}
}

func newOptions(opts []Option) options {
	o := options{tracer: otel.Tracer(tracerName)}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
