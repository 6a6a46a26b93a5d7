package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/annostore/annotation"
	"github.com/hupe1980/annostore/internal/compress"
	"github.com/hupe1980/annostore/persistence"
	"github.com/hupe1980/annostore/serialize"
)

func sample() *serialize.Serialized {
	var in [annotation.NumTypes][]annotation.Annotation
	for i := range 50 {
		in[annotation.TypePoint] = append(in[annotation.TypePoint], &annotation.Point{
			Base:  annotation.Base{ID: string(rune('a'+i%26)) + string(rune('a'+i/26)), AnnType: "syn"},
			Point: annotation.Vec3{float32(i), 1, 2},
		})
	}
	in[annotation.TypePolygon] = []annotation.Annotation{
		&annotation.Polygon{Base: annotation.Base{ID: "poly"}, Points: []annotation.Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}}},
	}
	s := serialize.Serialize(in)
	s.Generation = 7
	return s
}

func TestEncodeDecode(t *testing.T) {
	for _, c := range []compress.Type{compress.None, compress.LZ4, compress.ZSTD} {
		t.Run(c.String(), func(t *testing.T) {
			want := sample()
			b, err := Encode(want, c)
			require.NoError(t, err)

			got, err := Decode(b)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestEncodeDecode_Empty(t *testing.T) {
	want := serialize.Serialize([annotation.NumTypes][]annotation.Annotation{})
	b, err := Encode(want, compress.None)
	require.NoError(t, err)
	got, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDecode_Rejects(t *testing.T) {
	b, err := Encode(sample(), compress.None)
	require.NoError(t, err)

	_, err = Decode(b[:5])
	assert.Error(t, err)

	bad := append([]byte(nil), b...)
	bad[0] = 'X'
	_, err = Decode(bad)
	assert.ErrorIs(t, err, ErrInvalidMagic)

	bad = append([]byte(nil), b...)
	bad[4] = 9
	_, err = Decode(bad)
	assert.ErrorIs(t, err, ErrInvalidVersion)

	bad = append([]byte(nil), b...)
	bad[len(bad)-1] ^= 0xFF
	_, err = Decode(bad)
	assert.True(t, persistence.IsChecksumMismatch(err))
}

func TestDecode_ValidatesMetadata(t *testing.T) {
	s := sample()
	s.TotalPickIDs = 3
	b, err := Encode(s, compress.LZ4)
	require.NoError(t, err)
	_, err = Decode(b)
	assert.Error(t, err)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, Key("segment/1099511627776"), SegmentKey(1<<40))
	assert.Equal(t, Key("spatial/2/1_-3_4"), SpatialKey(2, 1, -3, 4))
}
