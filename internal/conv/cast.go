package conv

import (
	"fmt"
	"math"
)

// IntToInt32 narrows v to int32, failing when it does not fit.
func IntToInt32(v int) (int32, error) {
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, fmt.Errorf("integer overflow: %d does not fit int32", v)
	}
	return int32(v), nil
}

// Uint64ToInt converts a decoded length to int.
func Uint64ToInt(v uint64) (int, error) {
	if v > uint64(math.MaxInt) {
		return 0, fmt.Errorf("integer overflow: %d does not fit int", v)
	}
	return int(v), nil
}

// Int32ToNonNegative converts a decoded int32 header field to int, rejecting negatives.
func Int32ToNonNegative(v int32) (int, error) {
	if v < 0 {
		return 0, fmt.Errorf("integer underflow: %d is negative", v)
	}
	return int(v), nil
}
