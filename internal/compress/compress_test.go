package compress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlock_RoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("annotation-packed-vertices "), 200)
	for _, typ := range []Type{None, LZ4, ZSTD} {
		t.Run(typ.String(), func(t *testing.T) {
			block, err := Block(data, typ)
			require.NoError(t, err)
			if typ != None {
				assert.Less(t, len(block), len(data))
			}

			tail := append(block, 0xff, 0xff)
			got, n, err := Unblock(tail, typ)
			require.NoError(t, err)
			assert.Equal(t, len(block), n)
			assert.Equal(t, data, got)
		})
	}
}

func TestBlock_IncompressibleStoredRaw(t *testing.T) {
	data := []byte{1, 2, 3}
	block, err := Block(data, ZSTD)
	require.NoError(t, err)
	assert.Len(t, block, HeaderSize+len(data))

	got, _, err := Unblock(block, LZ4)
	require.NoError(t, err, "raw blocks decode regardless of type")
	assert.Equal(t, data, got)
}

func TestUnblock_Short(t *testing.T) {
	_, _, err := Unblock([]byte{1, 2}, LZ4)
	assert.ErrorIs(t, err, ErrShortBlock)

	block, err := Block(bytes.Repeat([]byte{7}, 1024), LZ4)
	require.NoError(t, err)
	_, _, err = Unblock(block[:len(block)-1], LZ4)
	assert.ErrorIs(t, err, ErrShortBlock)
}

func TestBlock_UnknownType(t *testing.T) {
	_, err := Block([]byte("x"), Type(9))
	assert.Error(t, err)
}
