package persistence

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/annostore/internal/compress"
)

const (
	// MagicNumber identifies annotation snapshots (ASCII: "ANNS").
	MagicNumber = 0x414E4E53
	// Version is the current snapshot format version (v1.0.0).
	Version = 0x00010000

	codecNameSize = 8
)

var (
	ErrInvalidMagic   = errors.New("invalid magic number")
	ErrInvalidVersion = errors.New("unsupported version")
	ErrUnknownCodec   = errors.New("unknown codec")
)

// FileHeader is the 48-byte header at the start of every snapshot blob.
type FileHeader struct {
	Magic       uint32 // 0x414E4E53 ("ANNS")
	Version     uint32
	Compression uint8 // compress.Type
	Padding1    [3]byte
	Codec       [codecNameSize]byte // codec name, zero padded
	Count       uint64              // number of annotations
	BlockSize   uint64              // bytes following the header
	Checksum    uint32              // CRC32C of the block
	Padding2    [4]byte
	Reserved    [4]byte
}

// HeaderSize is the encoded size of FileHeader.
var HeaderSize = binary.Size(FileHeader{})

// CodecName returns the codec name stored in the header.
func (h *FileHeader) CodecName() string {
	return strings.TrimRight(string(h.Codec[:]), "\x00")
}

// SetCodecName stores name in the header.
func (h *FileHeader) SetCodecName(name string) error {
	if len(name) > codecNameSize {
		return fmt.Errorf("%w: name %q longer than %d bytes", ErrUnknownCodec, name, codecNameSize)
	}
	h.Codec = [codecNameSize]byte{}
	copy(h.Codec[:], name)
	return nil
}

// CompressionType returns the block compression.
func (h *FileHeader) CompressionType() compress.Type { return compress.Type(h.Compression) }

// MarshalBinary encodes the header, stamping magic and version.
func (h *FileHeader) MarshalBinary() ([]byte, error) {
	h.Magic = MagicNumber
	h.Version = Version
	var buf bytes.Buffer
	buf.Grow(HeaderSize)
	if err := binary.Write(&buf, binary.LittleEndian, h); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadFileHeader reads and validates a header from the start of b.
func ReadFileHeader(b []byte) (*FileHeader, error) {
	if len(b) < HeaderSize {
		return nil, fmt.Errorf("persistence: header needs %d bytes, got %d", HeaderSize, len(b))
	}
	var h FileHeader
	if err := binary.Read(bytes.NewReader(b[:HeaderSize]), binary.LittleEndian, &h); err != nil {
		return nil, err
	}
	if h.Magic != MagicNumber {
		return nil, fmt.Errorf("%w: got 0x%08x", ErrInvalidMagic, h.Magic)
	}
	if h.Version != Version {
		return nil, fmt.Errorf("%w: got 0x%08x", ErrInvalidVersion, h.Version)
	}
	return &h, nil
}
