package annotation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func packOne(t *testing.T, a Annotation) []byte {
	t.Helper()
	h := HandlerFor(a.Type())
	buf := make([]byte, h.PackedByteSize(a))
	h.Serializer(buf, 0, 1)(a, 0)
	return buf
}

func TestAxisAlignedBoundingBox_PacksMinMax(t *testing.T) {
	box := &AxisAlignedBoundingBox{PointA: Vec3{5, 5, 5}, PointB: Vec3{1, 1, 1}}
	buf := packOne(t, box)

	require.Len(t, buf, 24)
	assert.Equal(t, Vec3{1, 1, 1}, ReadVec3(buf, 0))
	assert.Equal(t, Vec3{5, 5, 5}, ReadVec3(buf, 12))

	mixed := &AxisAlignedBoundingBox{PointA: Vec3{1, 9, 3}, PointB: Vec3{4, 2, 0}}
	got := HandlerFor(TypeAxisAlignedBoundingBox).Unpack(packOne(t, mixed)).(*AxisAlignedBoundingBox)
	assert.Equal(t, Vec3{1, 2, 0}, got.PointA)
	assert.Equal(t, Vec3{4, 9, 3}, got.PointB)
}

func TestHandlers_PackUnpack(t *testing.T) {
	cases := []Annotation{
		&Point{Point: Vec3{1.5, -2, 3}},
		&Line{PointA: Vec3{0, 0, 0}, PointB: Vec3{1, 2, 3}},
		&Ellipsoid{Center: Vec3{10, 10, 10}, Radii: Vec3{1, 2, 3}},
		&Polygon{Points: []Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}}},
		&LineString{Points: []Vec3{{0, 0, 0}, {4, 0, 0}, {4, 4, 0}}},
	}
	for _, a := range cases {
		t.Run(a.Type().String(), func(t *testing.T) {
			h := HandlerFor(a.Type())
			buf := packOne(t, a)
			assert.Equal(t, h.PackedByteSize(a), len(buf))
			assert.Equal(t, a, h.Unpack(buf))
		})
	}
}

func TestPolylineSizeFollowsPointCount(t *testing.T) {
	h := HandlerFor(TypePolygon)
	small := &Polygon{Points: make([]Vec3, 3)}
	large := &Polygon{Points: make([]Vec3, 1000)}

	assert.Equal(t, 36, h.PackedByteSize(small))
	assert.Equal(t, 12000, h.PackedByteSize(large))
	assert.False(t, h.FixedSize())
	assert.Equal(t, Vec3Bytes, h.Stride())
}

func TestPolylineSerializer_SequentialRegion(t *testing.T) {
	h := HandlerFor(TypeLineString)
	a := &LineString{Points: []Vec3{{1, 1, 1}, {2, 2, 2}}}
	b := &LineString{Points: []Vec3{{3, 3, 3}, {4, 4, 4}, {5, 5, 5}}}

	buf := make([]byte, 8+h.PackedByteSize(a)+h.PackedByteSize(b))
	w := h.Serializer(buf, 8, 2)
	w(a, 0)
	w(b, 1)

	assert.Equal(t, Vec3{1, 1, 1}, ReadVec3(buf, 8))
	assert.Equal(t, Vec3{3, 3, 3}, ReadVec3(buf, 8+24))
	assert.Equal(t, Vec3{5, 5, 5}, ReadVec3(buf, 8+48))

	assert.Panics(t, func() {
		h.Serializer(buf, 0, 2)(b, 1)
	})
}

func TestPickIDsPerInstance(t *testing.T) {
	assert.Equal(t, []int{1, 1}, HandlerFor(TypePoint).PickIDsPerInstance([]Annotation{&Point{}, &Point{}}))
	assert.Equal(t, []int{1}, HandlerFor(TypeLine).PickIDsPerInstance([]Annotation{&Line{}}))

	poly := &Polygon{Points: make([]Vec3, 4)}
	assert.Equal(t, []int{8}, HandlerFor(TypePolygon).PickIDsPerInstance([]Annotation{poly}))

	ls := &LineString{Points: make([]Vec3, 4)}
	assert.Equal(t, []int{7}, HandlerFor(TypeLineString).PickIDsPerInstance([]Annotation{ls}))
}

func TestSnap(t *testing.T) {
	t.Run("line clamps to segment", func(t *testing.T) {
		buf := packOne(t, &Line{PointA: Vec3{0, 0, 0}, PointB: Vec3{10, 0, 0}})
		h := HandlerFor(TypeLine)
		assert.Equal(t, Vec3{4, 0, 0}, h.Snap(buf, 0, Vec3{4, 3, 0}))
		assert.Equal(t, Vec3{10, 0, 0}, h.Snap(buf, 0, Vec3{20, 3, 0}))
	})

	t.Run("box clamps inside", func(t *testing.T) {
		buf := packOne(t, &AxisAlignedBoundingBox{PointA: Vec3{2, 2, 2}, PointB: Vec3{0, 0, 0}})
		assert.Equal(t, Vec3{2, 1, 0}, HandlerFor(TypeAxisAlignedBoundingBox).Snap(buf, 0, Vec3{5, 1, -3}))
	})

	t.Run("ellipsoid surface", func(t *testing.T) {
		buf := packOne(t, &Ellipsoid{Center: Vec3{0, 0, 0}, Radii: Vec3{2, 2, 2}})
		h := HandlerFor(TypeEllipsoid)
		assert.Equal(t, Vec3{2, 0, 0}, h.Snap(buf, 0, Vec3{7, 0, 0}))
		assert.Equal(t, Vec3{0, 0, 0}, h.Snap(buf, 0, Vec3{0, 0, 0}))
	})

	t.Run("polygon vertex and closing edge", func(t *testing.T) {
		buf := packOne(t, &Polygon{Points: []Vec3{{0, 0, 0}, {4, 0, 0}, {4, 4, 0}}})
		h := HandlerFor(TypePolygon)
		assert.Equal(t, Vec3{4, 4, 0}, h.Snap(buf, 2, Vec3{}))
		// part 5 is the edge from vertex 2 back to vertex 0.
		assert.Equal(t, Vec3{2, 2, 0}, h.Snap(buf, 5, Vec3{0, 4, 0}))
	})

	t.Run("line string edge", func(t *testing.T) {
		buf := packOne(t, &LineString{Points: []Vec3{{0, 0, 0}, {4, 0, 0}, {4, 4, 0}}})
		h := HandlerFor(TypeLineString)
		assert.Equal(t, Vec3{4, 1, 0}, h.Snap(buf, 4, Vec3{6, 1, 0}))
	})
}

func TestPlainRoundTrip(t *testing.T) {
	size := 2.5
	cases := []Annotation{
		&Point{Base: Base{ID: "p", Description: "soma", AnnType: "cell", Reviewed: true, Size: &size}, Point: Vec3{0.1, 0.2, 0.3}},
		&Line{Base: Base{ID: "l", Segments: []SegmentID{1, 1<<40 | 7}}, PointA: Vec3{1, 2, 3}, PointB: Vec3{4, 5, 6}},
		&AxisAlignedBoundingBox{Base: Base{ID: "b", Visited: true}, PointA: Vec3{5, 5, 5}, PointB: Vec3{1, 1, 1}},
		&Ellipsoid{Base: Base{ID: "e"}, Center: Vec3{1, 1, 1}, Radii: Vec3{0.5, 0.5, 2}},
		&Polygon{Base: Base{ID: "g"}, Points: []Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}},
		&LineString{Base: Base{ID: "s"}, Points: []Vec3{{0, 0, 0}, {1, 1, 1}}},
	}
	for _, a := range cases {
		t.Run(a.Type().String(), func(t *testing.T) {
			raw, err := json.Marshal(ToPlain(a))
			require.NoError(t, err)

			var p Plain
			require.NoError(t, json.Unmarshal(raw, &p))
			got, err := FromPlain(p)
			require.NoError(t, err)
			assert.Equal(t, a, got)
		})
	}
}

func TestSegmentEncoding(t *testing.T) {
	id := SegmentID(0xDEADBEEF_00000010)
	enc := EncodeSegment(id)
	assert.Equal(t, [2]string{"3735928559", "16"}, enc)

	dec, err := DecodeSegment(enc)
	require.NoError(t, err)
	assert.Equal(t, id, dec)

	_, err = DecodeSegment([2]string{"4294967296", "0"})
	var m *ErrMalformed
	require.ErrorAs(t, err, &m)
	assert.Equal(t, "segments", m.Field)
}

func TestFromPlain_Malformed(t *testing.T) {
	cases := map[string]Plain{
		"unknown type":     {ID: "x", Type: "sphere"},
		"short point":      {ID: "x", Type: "point", Point: []float32{1, 2}},
		"missing pointB":   {ID: "x", Type: "line", PointA: []float32{1, 2, 3}},
		"negative radius":  {ID: "x", Type: "ellipsoid", Center: []float32{0, 0, 0}, Radii: []float32{1, -1, 1}},
		"degenerate ring":  {ID: "x", Type: "polygon", Points: [][]float32{{0, 0, 0}, {1, 1, 1}}},
		"bad segment word": {ID: "x", Type: "point", Point: []float32{0, 0, 0}, Segments: [][2]string{{"a", "1"}}},
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := FromPlain(p)
			var m *ErrMalformed
			require.ErrorAs(t, err, &m)
		})
	}

	_, err := FromPlain(Plain{Type: "sphere"})
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestFromPlain_AssignsMissingID(t *testing.T) {
	a, err := FromPlain(Plain{Type: "point", Point: []float32{1, 2, 3}})
	require.NoError(t, err)
	assert.Len(t, a.Meta().ID, 40)
}

func TestWithIndex(t *testing.T) {
	_, err := FromPlain(Plain{Type: "point"})
	err = WithIndex(err, 3)

	var m *ErrMalformed
	require.ErrorAs(t, err, &m)
	assert.Equal(t, 3, m.Index)
	assert.Contains(t, err.Error(), "index 3")
}

func TestClone_IsDeep(t *testing.T) {
	size := 1.0
	p := &Polygon{Base: Base{ID: "g", Segments: []SegmentID{1}, Size: &size}, Points: []Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}}
	c := p.Clone().(*Polygon)

	c.Points[0] = Vec3{9, 9, 9}
	c.Segments[0] = 2
	*c.Size = 3

	assert.Equal(t, Vec3{}, p.Points[0])
	assert.Equal(t, SegmentID(1), p.Segments[0])
	assert.Equal(t, 1.0, *p.Size)
}

func TestTypeNames(t *testing.T) {
	for _, typ := range Types() {
		got, ok := ParseType(typ.String())
		require.True(t, ok)
		assert.Equal(t, typ, got)
	}
	_, ok := ParseType("Point")
	assert.False(t, ok)
	assert.Equal(t, "Type(9)", Type(9).String())
}

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()
	assert.Len(t, a, 40)
	assert.NotEqual(t, a, b)
}
