package kernel

import (
	"os"
	"strings"
)

// Impl identifies a kernel implementation.
type Impl uint8

const (
	// Generic loops over bit-planes.
	Generic Impl = iota
	// Unrolled evaluates all 8 bit-planes without a loop.
	Unrolled
)

// String returns the string representation of an Impl.
func (i Impl) String() string {
	switch i {
	case Generic:
		return "generic"
	case Unrolled:
		return "unrolled"
	default:
		return "unknown"
	}
}

// ParseImpl parses a string into an Impl value.
func ParseImpl(s string) (Impl, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "generic":
		return Generic, true
	case "unrolled":
		return Unrolled, true
	default:
		return Generic, false
	}
}

// Package-level state - initialized once at package init.
var (
	// activeImpl is the selected implementation.
	activeImpl Impl

	// hasOverride is true if BITMAT_KERNEL selected the implementation.
	hasOverride bool

	// hasPopcount is set by platform-specific init.
	hasPopcount bool
)

// initCapabilities is called from platform-specific init functions
// after CPU features are detected.
func initCapabilities() {
	if override := os.Getenv("BITMAT_KERNEL"); override != "" {
		if impl, ok := ParseImpl(override); ok {
			hasOverride = true
			use(impl)
			return
		}
	}

	if hasPopcount {
		use(Unrolled)
		return
	}
	use(Generic)
}

// use installs the function pointers of impl.
func use(impl Impl) {
	activeImpl = impl
	switch impl {
	case Unrolled:
		kernelDot8x1 = dot8x1Unrolled
		kernelDotWords8x1 = dotWords8x1Unrolled
	default:
		kernelDot8x1 = dot8x1Generic
		kernelDotWords8x1 = dotWords8x1Generic
	}
}

// ActiveImpl returns the currently active implementation.
func ActiveImpl() Impl {
	return activeImpl
}

// IsOverridden returns true if BITMAT_KERNEL was set.
func IsOverridden() bool {
	return hasOverride
}

// HasPopcount returns true if the CPU has a hardware population count instruction.
func HasPopcount() bool {
	return hasPopcount
}
