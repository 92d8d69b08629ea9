// Package persistence stores packed matrices in blob stores.
//
// Each blob is an envelope around the packed binary format:
//
//	"BMX1" | u8 version | u8 compression | u16 reserved | u64 rawLen | u32 crc32c(raw) | payload
//
// The checksum covers the uncompressed binary matrix, so corruption is
// detected regardless of the compression in use. The payload is the raw
// matrix, an LZ4 block or a zstd frame.
//
// WriteFile and ReadFile handle the plain packed formats without an
// envelope for exchange with other tools.
package persistence
