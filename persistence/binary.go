package persistence

import (
	"encoding/binary"
	"math"
)

// BinaryWriter appends little-endian fields to a growing byte slice.
type BinaryWriter struct {
	buf []byte
}

// NewBinaryWriter creates a writer with capacity for sizeHint bytes.
func NewBinaryWriter(sizeHint int) *BinaryWriter {
	return &BinaryWriter{buf: make([]byte, 0, sizeHint)}
}

// Bytes returns the written bytes. The slice aliases the writer's buffer.
func (bw *BinaryWriter) Bytes() []byte { return bw.buf }

// Len returns the number of bytes written.
func (bw *BinaryWriter) Len() int { return len(bw.buf) }

func (bw *BinaryWriter) WriteUint8(v uint8) { bw.buf = append(bw.buf, v) }

func (bw *BinaryWriter) WriteUint16(v uint16) {
	bw.buf = binary.LittleEndian.AppendUint16(bw.buf, v)
}

func (bw *BinaryWriter) WriteUint32(v uint32) {
	bw.buf = binary.LittleEndian.AppendUint32(bw.buf, v)
}

func (bw *BinaryWriter) WriteUint64(v uint64) {
	bw.buf = binary.LittleEndian.AppendUint64(bw.buf, v)
}

func (bw *BinaryWriter) WriteFloat32(v float32) {
	bw.WriteUint32(math.Float32bits(v))
}

// WriteBytes appends b without a length prefix.
func (bw *BinaryWriter) WriteBytes(b []byte) { bw.buf = append(bw.buf, b...) }

// WriteString appends a uint32 length prefix and the bytes of s.
func (bw *BinaryWriter) WriteString(s string) {
	bw.WriteUint32(uint32(len(s)))
	bw.buf = append(bw.buf, s...)
}

// WriteUint32Slice appends the elements of s without a length prefix.
func (bw *BinaryWriter) WriteUint32Slice(s []uint32) {
	for _, v := range s {
		bw.WriteUint32(v)
	}
}
