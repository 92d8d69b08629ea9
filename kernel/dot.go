package kernel

import "math/bits"

// Kernel function pointers - set once at init.
// Generic implementations are the default; initCapabilities overrides them
// when a hardware population count is available.
var (
	kernelDot8x1      = dot8x1Generic
	kernelDotWords8x1 = dotWords8x1Generic
)

// Dot8x1 returns Σ_i x_i * (2*s_i - 1) for the 8 byte lanes of x and the
// sign flags in the low bit of each lane of y.
func Dot8x1(x, y uint64) int32 {
	return kernelDot8x1(x, y)
}

// DotWords8x1 accumulates Dot8x1 over word pairs.
//
// SAFETY: Assumes len(x) == len(y). Caller MUST ensure lengths match.
func DotWords8x1(x, y []uint64) int64 {
	return kernelDotWords8x1(x, y)
}

func dot8x1Generic(x, y uint64) int32 {
	pos := y & Mask8x1
	neg := ^y & Mask8x1

	var rt int32
	for b := 0; b < 8; b++ {
		rt += int32(bits.OnesCount64(x&(pos<<b))-bits.OnesCount64(x&(neg<<b))) << b
	}
	return rt
}

func dot8x1Unrolled(x, y uint64) int32 {
	pos := y & Mask8x1
	neg := ^y & Mask8x1

	d0 := bits.OnesCount64(x&pos) - bits.OnesCount64(x&neg)
	d1 := bits.OnesCount64(x&(pos<<1)) - bits.OnesCount64(x&(neg<<1))
	d2 := bits.OnesCount64(x&(pos<<2)) - bits.OnesCount64(x&(neg<<2))
	d3 := bits.OnesCount64(x&(pos<<3)) - bits.OnesCount64(x&(neg<<3))
	d4 := bits.OnesCount64(x&(pos<<4)) - bits.OnesCount64(x&(neg<<4))
	d5 := bits.OnesCount64(x&(pos<<5)) - bits.OnesCount64(x&(neg<<5))
	d6 := bits.OnesCount64(x&(pos<<6)) - bits.OnesCount64(x&(neg<<6))
	d7 := bits.OnesCount64(x&(pos<<7)) - bits.OnesCount64(x&(neg<<7))

	return int32(d0 + d1<<1 + d2<<2 + d3<<3 + d4<<4 + d5<<5 + d6<<6 + d7<<7)
}

func dotWords8x1Generic(x, y []uint64) int64 {
	y = y[:len(x)]
	var sum int64
	for k := range x {
		sum += int64(dot8x1Generic(x[k], y[k]))
	}
	return sum
}

func dotWords8x1Unrolled(x, y []uint64) int64 {
	y = y[:len(x)]
	var sum int64
	for k := range x {
		sum += int64(dot8x1Unrolled(x[k], y[k]))
	}
	return sum
}
