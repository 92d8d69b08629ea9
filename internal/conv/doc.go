// Package conv converts integers read from or written to serialized
// matrices, failing instead of wrapping when a value does not fit.
package conv
