package packed

import "github.com/hupe1980/bitmat/kernel"

// KernelFor resolves the kernel that multiplies rows of a (magnitudes)
// with rows of b (signs). The configuration is taken from a's lane width and
// lane count and b's quantization width; both lane widths must agree.
func KernelFor(a, b *Matrix) (kernel.Kernel, error) {
	return lookupKernel(a.alignBits, b.alignBits, b.quantBits)
}

func lookupKernel(magAlign, signAlign, signQuant int) (kernel.Kernel, error) {
	cfg := kernel.Config{
		MagnitudeBits: magAlign,
		SignBits:      signQuant,
		Lanes:         kernel.WordBits / magAlign,
	}
	if magAlign != signAlign {
		return nil, &kernel.UnsupportedError{Config: cfg}
	}
	return kernel.Lookup(cfg)
}

// Dot returns the integer dot product of a magnitude row x and a sign row y,
// summed over all words. Scales are not applied.
//
// Layouts without a kernel fail with an error wrapping kernel.ErrUnsupported.
func Dot(x, y Vector) (int64, error) {
	xw, yw := x.Words(), y.Words()
	if len(xw) != len(yw) {
		return 0, contractf("Dot", "dim %d does not match %d", len(xw), len(yw))
	}

	k, err := lookupKernel(x.m.alignBits, y.m.alignBits, y.m.quantBits)
	if err != nil {
		return 0, err
	}
	return k.DotWords(xw, yw), nil
}
