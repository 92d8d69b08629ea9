// Package mmap maps files read-only into memory.
//
//	m, err := mmap.Open("weights.bmx")
//	if err != nil { ... }
//	defer m.Close()
//
//	_ = m.Advise(mmap.AccessSequential)
//	data := m.Bytes()
//
// Unix builds use mmap(2) and madvise(2); Windows uses MapViewOfFile and
// ignores access hints. Close is idempotent; Bytes returns nil afterwards.
package mmap
