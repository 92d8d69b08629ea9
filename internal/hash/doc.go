// Package hash provides hardware-accelerated checksums for persisted matrices.
//
// Envelopes written by the persistence package carry a CRC32-Castagnoli (CRC32C)
// checksum of the uncompressed matrix payload, so corruption is detected after
// decompression and before any header is trusted.
//
// For one-shot checksums:
//
//	checksum := hash.CRC32C(data)
//
// For streaming checksums:
//
//	h := hash.NewCRC32C()
//	h.Write(chunk1)
//	h.Write(chunk2)
//	checksum := h.Sum32()
package hash
