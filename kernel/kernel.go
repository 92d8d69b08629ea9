package kernel

import (
	"errors"
	"fmt"
)

// WordBits is the width of one packed word.
const WordBits = 64

// Mask8x1 has bit 0 of every 8-bit lane set.
const Mask8x1 uint64 = 0x0101010101010101

// ErrUnsupported is returned for kernel configurations that have no implementation.
var ErrUnsupported = errors.New("unsupported kernel configuration")

// Config identifies a kernel by operand layout.
type Config struct {
	// MagnitudeBits is the lane width of the magnitude operand, i.e. the number of bit-planes.
	MagnitudeBits int
	// SignBits is the quantization width of the sign operand.
	SignBits int
	// Lanes is the number of lanes per word.
	Lanes int
}

func (c Config) String() string {
	return fmt.Sprintf("(magnitude=%d, sign=%d, lanes=%d)", c.MagnitudeBits, c.SignBits, c.Lanes)
}

// Config8x1 is the 8-bit magnitude × 1-bit sign × 8 lanes kernel.
var Config8x1 = Config{MagnitudeBits: 8, SignBits: 1, Lanes: 8}

// UnsupportedError reports a configuration without a kernel.
type UnsupportedError struct {
	Config Config
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s: %s", ErrUnsupported, e.Config)
}

func (e *UnsupportedError) Unwrap() error { return ErrUnsupported }

// Kernel computes packed dot products for one Config.
type Kernel interface {
	// Config returns the operand layout this kernel accepts.
	Config() Config

	// Dot returns the dot product of one magnitude word and one sign word.
	Dot(x, y uint64) int32

	// DotWords returns the sum of Dot over all word pairs.
	//
	// SAFETY: Assumes len(x) == len(y). Caller MUST ensure lengths match.
	DotWords(x, y []uint64) int64
}

type kernel8x1 struct{}

func (kernel8x1) Config() Config { return Config8x1 }

func (kernel8x1) Dot(x, y uint64) int32 { return kernelDot8x1(x, y) }

func (kernel8x1) DotWords(x, y []uint64) int64 { return kernelDotWords8x1(x, y) }

// registry is the closed set of implemented configurations.
var registry = map[Config]Kernel{
	Config8x1: kernel8x1{},
}

// Lookup returns the kernel for cfg, or an *UnsupportedError.
func Lookup(cfg Config) (Kernel, error) {
	k, ok := registry[cfg]
	if !ok {
		return nil, &UnsupportedError{Config: cfg}
	}
	return k, nil
}

// Supported returns the implemented configurations.
func Supported() []Config {
	return []Config{Config8x1}
}
