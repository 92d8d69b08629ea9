package packed

import "github.com/hupe1980/bitmat/resource"

// OverflowPolicy decides what quantization does with values whose quantized
// integer falls outside [0, 2^QuantBits-1].
type OverflowPolicy uint8

const (
	// OverflowClamp saturates out-of-range integers to the nearest bound.
	// NaN quantizes to 0.
	OverflowClamp OverflowPolicy = iota
	// OverflowError fails the quantization with a *DomainError.
	OverflowError
	// OverflowUnchecked adds the raw integer into the accumulator. Negative
	// or oversized values spill into neighbouring lanes.
	OverflowUnchecked
)

// String returns the string representation of an OverflowPolicy.
func (p OverflowPolicy) String() string {
	switch p {
	case OverflowClamp:
		return "clamp"
	case OverflowError:
		return "error"
	case OverflowUnchecked:
		return "unchecked"
	default:
		return "unknown"
	}
}

// Option configures matrix construction and quantization.
type Option func(*options)

type options struct {
	quantBits  int
	alignBits  int
	scale      float32
	controller *resource.Controller
	overflow   OverflowPolicy
}

func defaultOptions() options {
	return options{
		quantBits: 0,
		alignBits: 64,
		scale:     1,
		overflow:  OverflowClamp,
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLayout sets the quantization and lane width of a matrix created by New.
// The default is the raw layout: QuantBits 0, AlignBits 64.
func WithLayout(quantBits, alignBits int) Option {
	return func(o *options) {
		o.quantBits = quantBits
		o.alignBits = alignBits
	}
}

// WithScale sets the reconstruction scale of a matrix created by New.
func WithScale(scale float32) Option {
	return func(o *options) {
		o.scale = scale
	}
}

// WithController charges packed buffers against the controller's memory budget.
func WithController(rc *resource.Controller) Option {
	return func(o *options) {
		o.controller = rc
	}
}

// WithOverflow sets the overflow policy used by quantization.
func WithOverflow(p OverflowPolicy) Option {
	return func(o *options) {
		o.overflow = p
	}
}
