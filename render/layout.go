package render

import (
	"github.com/gogpu/gputypes"

	"github.com/hupe1980/annostore/annotation"
)

// VertexLayout returns the vertex buffer layout of a type region. Fixed-size
// kinds step per instance with one vec3 attribute per packed coordinate;
// polylines step per vertex.
func VertexLayout(t annotation.Type) gputypes.VertexBufferLayout {
	h := annotation.HandlerFor(t)
	if !h.FixedSize() {
		return gputypes.VertexBufferLayout{
			ArrayStride: uint64(h.Stride()),
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
			},
		}
	}
	n := h.Stride() / annotation.Vec3Bytes
	attrs := make([]gputypes.VertexAttribute, n)
	for i := range attrs {
		attrs[i] = gputypes.VertexAttribute{
			Format:         gputypes.VertexFormatFloat32x3,
			Offset:         uint64(i * annotation.Vec3Bytes),
			ShaderLocation: uint32(i),
		}
	}
	return gputypes.VertexBufferLayout{
		ArrayStride: uint64(h.Stride()),
		StepMode:    gputypes.VertexStepModeInstance,
		Attributes:  attrs,
	}
}
