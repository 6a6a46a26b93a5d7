// Package hash provides CRC32-Castagnoli checksums for persisted blobs.
//
// Snapshot and chunk headers and S3 uploads all use CRC32C, which Go's
// hash/crc32 computes with hardware acceleration (SSE4.2, ARM CRC) when
// available.
//
//	checksum := hash.CRC32C(data)
package hash
