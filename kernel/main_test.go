package kernel

import (
	"fmt"
	"os"
	"runtime"
	"testing"
)

// TestMain prints which kernel implementation is active before running tests.
func TestMain(m *testing.M) {
	fmt.Printf("=== Kernel Diagnostics ===\n")
	fmt.Printf("GOOS=%s GOARCH=%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("BITMAT_KERNEL=%q\n", os.Getenv("BITMAT_KERNEL"))
	fmt.Printf("Active impl: %s\n", ActiveImpl())
	fmt.Printf("Override: %v\n", IsOverridden())
	fmt.Printf("Hardware popcount: %v\n", HasPopcount())
	fmt.Printf("==========================\n\n")

	os.Exit(m.Run())
}
