// Package cache provides a byte-bounded LRU for immutable blob contents.
//
// Entries are charged against a resource.Controller when one is set, so a
// cache never pushes the process past the shared memory budget. Admission
// fails quietly when the budget is exhausted.
package cache
