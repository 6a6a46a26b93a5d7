package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/annostore/annotation"
	"github.com/hupe1980/annostore/serialize"
)

func pointsAndLine() *serialize.Serialized {
	var in [annotation.NumTypes][]annotation.Annotation
	for i, id := range []string{"p0", "p1", "p2"} {
		in[annotation.TypePoint] = append(in[annotation.TypePoint],
			&annotation.Point{Base: annotation.Base{ID: id}, Point: annotation.Vec3{float32(i), 0, 0}})
	}
	in[annotation.TypeLine] = []annotation.Annotation{
		&annotation.Line{Base: annotation.Base{ID: "line"}, PointA: annotation.Vec3{0, 0, 0}, PointB: annotation.Vec3{10, 0, 0}},
	}
	return serialize.Serialize(in)
}

func TestResolvePick_PointsThenLine(t *testing.T) {
	data := pointsAndLine()
	require.Equal(t, 4, data.TotalPickIDs)

	p, err := ResolvePick(data, 3, annotation.Vec3{4, 2, 0})
	require.NoError(t, err)
	assert.Equal(t, "line", p.ID)
	assert.Equal(t, annotation.TypeLine, p.Type)
	assert.Equal(t, 0, p.Part)
	assert.Equal(t, 36, p.ByteOffset)
	assert.Equal(t, annotation.Vec3{4, 0, 0}, p.Position)

	p, err = ResolvePick(data, 1, annotation.Vec3{})
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)
	assert.Equal(t, 1, p.Index)
	assert.Equal(t, 12, p.ByteOffset)
	assert.Equal(t, annotation.Vec3{1, 0, 0}, p.Position)
}

func TestResolvePick_OutOfRange(t *testing.T) {
	data := pointsAndLine()
	for _, off := range []int{-1, 4, 100} {
		_, err := ResolvePick(data, off, annotation.Vec3{})
		var oor *ErrPickOffsetOutOfRange
		require.ErrorAs(t, err, &oor)
		assert.Equal(t, off, oor.Offset)
		assert.Equal(t, 4, oor.Total)
	}

	_, err := ResolvePick(nil, 0, annotation.Vec3{})
	assert.Error(t, err)

	// Metadata claiming more picks than the instances carry.
	data.TypeToPickCount[annotation.TypeLine] = 3
	data.TotalPickIDs = 6
	_, err = ResolvePick(data, 5, annotation.Vec3{})
	assert.Error(t, err)
}

func TestResolvePick_PolylineParts(t *testing.T) {
	var in [annotation.NumTypes][]annotation.Annotation
	in[annotation.TypePolygon] = []annotation.Annotation{
		&annotation.Polygon{Base: annotation.Base{ID: "a"}, Points: []annotation.Vec3{{0, 0, 0}, {2, 0, 0}, {2, 2, 0}}},
		&annotation.Polygon{Base: annotation.Base{ID: "b"}, Points: []annotation.Vec3{{0, 0, 0}, {4, 0, 0}, {4, 4, 0}, {0, 4, 0}}},
	}
	data := serialize.Serialize(in)
	require.Equal(t, 6+8, data.TotalPickIDs)

	// Vertex 2 of the second polygon.
	p, err := ResolvePick(data, 6+2, annotation.Vec3{})
	require.NoError(t, err)
	assert.Equal(t, "b", p.ID)
	assert.Equal(t, 2, p.Part)
	assert.Equal(t, 36, p.ByteOffset)
	assert.Equal(t, annotation.Vec3{4, 4, 0}, p.Position)

	// Closing edge 3 -> 0 of the second polygon.
	p, err = ResolvePick(data, 6+4+3, annotation.Vec3{-1, 1, 0})
	require.NoError(t, err)
	assert.Equal(t, 7, p.Part)
	assert.Equal(t, annotation.Vec3{0, 1, 0}, p.Position)
}

func TestMouseState_UpdatedThroughRegistration(t *testing.T) {
	data := pointsAndLine()
	picks := newFakePicks()
	l := &ChunkedLayer{logger: newLayerOptions(nil).logger}
	picks.Register(picks.Allocate(data.TotalPickIDs), data.TotalPickIDs, l, data)

	m := &MouseState{Position: annotation.Vec3{3, 1, 0}}
	require.True(t, picks.pick(1+3, m))
	assert.True(t, m.Picked)
	assert.Equal(t, "line", m.PickedID)
	assert.Equal(t, 0, m.PickedPart)
	assert.Same(t, data, m.PickedBuffer)
	assert.Equal(t, 36, m.PickedBufferOffset)
	assert.Equal(t, annotation.Vec3{3, 0, 0}, m.Position)
	assert.Equal(t, Pickable(l), m.PickedLayer)

	m.ClearPick()
	assert.False(t, m.Picked)
	assert.Equal(t, annotation.Vec3{3, 0, 0}, m.Position)

	// An inconsistent offset leaves the state alone.
	l.UpdateMouseState(m, 99, data)
	assert.False(t, m.Picked)
}

func TestVertexLayout(t *testing.T) {
	l := VertexLayout(annotation.TypePoint)
	assert.Equal(t, uint64(12), l.ArrayStride)
	assert.Len(t, l.Attributes, 1)

	l = VertexLayout(annotation.TypeAxisAlignedBoundingBox)
	assert.Equal(t, uint64(24), l.ArrayStride)
	require.Len(t, l.Attributes, 2)
	assert.Equal(t, uint64(12), l.Attributes[1].Offset)
	assert.Equal(t, uint32(1), l.Attributes[1].ShaderLocation)

	assert.Equal(t, VertexLayout(annotation.TypePoint).StepMode, VertexLayout(annotation.TypeEllipsoid).StepMode)
	assert.NotEqual(t, VertexLayout(annotation.TypePoint).StepMode, VertexLayout(annotation.TypeLineString).StepMode)
}
