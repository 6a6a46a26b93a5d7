// Package persistence saves and loads annotation snapshots in blob stores.
//
// A snapshot blob is a fixed FileHeader followed by one compressed block
// holding the codec-encoded plain-form annotations:
//
//	[FileHeader (48 bytes)][block: see internal/compress]
//
// The header records the codec name and the compression type, so readers
// need no configuration to decode a snapshot. The block is covered by a
// CRC32C checksum.
//
// The package also provides the little-endian BinaryWriter and SliceReader
// used by other binary formats of this module.
package persistence
