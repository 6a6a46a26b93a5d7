package chunk

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/hupe1980/annostore/annotation"
	"github.com/hupe1980/annostore/internal/compress"
	"github.com/hupe1980/annostore/internal/conv"
	"github.com/hupe1980/annostore/persistence"
	"github.com/hupe1980/annostore/serialize"
)

// Encoded chunk layout, little-endian:
//
//	[Magic uint32][Version uint16][Compression uint8][Reserved uint8][Checksum uint32]
//	[block: compressed payload]
//
// The payload carries the serialized buffer with its per-type metadata.
const (
	// MagicNumber identifies encoded chunks (ASCII: "ANNC").
	MagicNumber = 0x414E4E43
	// Version is the current chunk format version.
	Version = 1

	headerSize = 12
)

var (
	ErrInvalidMagic   = errors.New("chunk: invalid magic number")
	ErrInvalidVersion = errors.New("chunk: unsupported version")

	errNilChunk = errors.New("chunk: nil chunk delivered")
)

// Encode frames s for transport. Buffers whose sizes or counts exceed
// uint32 are rejected.
func Encode(s *serialize.Serialized, t compress.Type) ([]byte, error) {
	dataLen, err := conv.IntToUint32(len(s.Data))
	if err != nil {
		return nil, fmt.Errorf("chunk: data: %w", err)
	}
	total, err := conv.IntToUint32(s.TotalPickIDs)
	if err != nil {
		return nil, fmt.Errorf("chunk: pick ids: %w", err)
	}

	w := persistence.NewBinaryWriter(len(s.Data) + 64*s.Len() + 64)
	w.WriteUint64(s.Generation)
	w.WriteUint32(total)
	for _, typ := range annotation.Types() {
		n := s.Count(typ)
		// Offsets and pick counts are bounded by the data length and total.
		w.WriteUint32(uint32(n))
		w.WriteUint32(uint32(s.TypeToOffset[typ]))
		w.WriteUint32(uint32(s.TypeToPickCount[typ]))
		labels := s.TypeToAnnTypes[typ]
		for i := range n {
			w.WriteUint32(s.TypeToSizes[typ][i])
			w.WriteUint32(s.TypeToPickIDs[typ][i])
			w.WriteString(s.TypeToIDs[typ][i])
			if labels != nil {
				w.WriteString(labels[i])
			} else {
				w.WriteString("")
			}
		}
	}
	w.WriteUint32(dataLen)
	w.WriteBytes(s.Data)

	block, err := compress.Block(w.Bytes(), t)
	if err != nil {
		return nil, err
	}
	out := make([]byte, headerSize, headerSize+len(block))
	binary.LittleEndian.PutUint32(out[0:], MagicNumber)
	binary.LittleEndian.PutUint16(out[4:], Version)
	out[6] = uint8(t)
	binary.LittleEndian.PutUint32(out[8:], persistence.CalculateChecksum(block))
	return append(out, block...), nil
}

// Decode parses and validates an encoded chunk.
func Decode(b []byte) (*serialize.Serialized, error) {
	if len(b) < headerSize {
		return nil, fmt.Errorf("chunk: %d bytes is shorter than the header", len(b))
	}
	if m := binary.LittleEndian.Uint32(b[0:]); m != MagicNumber {
		return nil, fmt.Errorf("%w: got 0x%08x", ErrInvalidMagic, m)
	}
	if v := binary.LittleEndian.Uint16(b[4:]); v != Version {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidVersion, v)
	}
	t := compress.Type(b[6])
	block := b[headerSize:]
	if err := persistence.VerifyChecksum(block, binary.LittleEndian.Uint32(b[8:])); err != nil {
		return nil, fmt.Errorf("chunk: %w", err)
	}
	payload, _, err := compress.Unblock(block, t)
	if err != nil {
		return nil, fmt.Errorf("chunk: %w", err)
	}

	s, err := decodePayload(persistence.NewSliceReader(payload))
	if err != nil {
		return nil, fmt.Errorf("chunk: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("chunk: %w", err)
	}
	return s, nil
}

func decodePayload(r *persistence.SliceReader) (*serialize.Serialized, error) {
	s := &serialize.Serialized{}
	var err error
	if s.Generation, err = r.ReadUint64(); err != nil {
		return nil, err
	}
	total, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	s.TotalPickIDs = int(total)

	for _, typ := range annotation.Types() {
		var n, off, picks uint32
		if n, err = r.ReadUint32(); err != nil {
			return nil, err
		}
		if off, err = r.ReadUint32(); err != nil {
			return nil, err
		}
		if picks, err = r.ReadUint32(); err != nil {
			return nil, err
		}
		// Every instance needs at least 16 bytes of metadata.
		if int(n) > len(r.Remaining())/16 {
			return nil, fmt.Errorf("%v: %d instances exceed the payload", typ, n)
		}
		s.TypeToOffset[typ] = int(off)
		s.TypeToPickCount[typ] = int(picks)
		s.TypeToIDs[typ] = make([]string, n)
		s.TypeToSizes[typ] = make([]uint32, n)
		s.TypeToPickIDs[typ] = make([]uint32, n)
		s.TypeToAnnTypes[typ] = make([]string, n)
		for i := range int(n) {
			if s.TypeToSizes[typ][i], err = r.ReadUint32(); err != nil {
				return nil, err
			}
			if s.TypeToPickIDs[typ][i], err = r.ReadUint32(); err != nil {
				return nil, err
			}
			if s.TypeToIDs[typ][i], err = r.ReadString(); err != nil {
				return nil, err
			}
			if s.TypeToAnnTypes[typ][i], err = r.ReadString(); err != nil {
				return nil, err
			}
		}
	}

	n, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	data, err := r.ReadBytes(int(n))
	if err != nil {
		return nil, err
	}
	s.Data = make([]byte, len(data))
	copy(s.Data, data)
	return s, nil
}
