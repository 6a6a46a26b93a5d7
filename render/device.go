// Package render bridges serialized annotation buffers to a GPU draw
// pipeline and maps picked ids back to annotations.
//
// The GPU itself is behind small collaborator interfaces (Device, GPUBuffer,
// PickAllocator, Drawer) so the adapter can be driven by any backend. Layers
// are not safe for concurrent use; they run on the render loop.
package render

import (
	"github.com/gogpu/gputypes"

	"github.com/hupe1980/annostore/annotation"
	"github.com/hupe1980/annostore/serialize"
)

// BufferUsage is the usage every annotation buffer is created with.
const BufferUsage = gputypes.BufferUsageVertex | gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst

// Device creates GPU buffers.
type Device interface {
	CreateBuffer(label string, usage gputypes.BufferUsage) GPUBuffer
}

// GPUBuffer is a device buffer exclusively owned by one layer.
type GPUBuffer interface {
	Upload(data []byte)
	// Bind makes the buffer current for the following draw calls.
	Bind()
	Destroy()
}

// Pickable is the owner of a registered pick id range.
type Pickable interface {
	// UpdateMouseState resolves pickedOffset, relative to the start of the
	// registered range, against data.
	UpdateMouseState(m *MouseState, pickedOffset int, data *serialize.Serialized)
}

// PickAllocator hands out pick ids for one frame.
type PickAllocator interface {
	// Allocate reserves n consecutive ids and returns the first.
	Allocate(n int) uint64
	// Register associates ids [base, base+n) with owner and data.
	Register(base uint64, n int, owner Pickable, data *serialize.Serialized)
}

// DrawCall describes one type region of a bound buffer.
type DrawCall struct {
	Type   annotation.Type
	Buffer GPUBuffer
	Layout gputypes.VertexBufferLayout
	// ByteOffset is the start of the region in the buffer.
	ByteOffset int
	// Count is the number of instances.
	Count int
	// Stride is the bytes per instance, or per vertex for polylines.
	Stride int
	// InstanceSizes is set for polylines only.
	InstanceSizes []uint32
	// PickIDBase is the first pick id of the region.
	PickIDBase uint64
	PickIDCount int
	// SelectedIndex is the hovered pick id offset within the region, or -1.
	SelectedIndex int
	// Colors holds one color per instance.
	Colors    []gputypes.Color
	PointSize float32
	LineWidth float32
}

// Drawer issues the draw call of one geometry kind.
type Drawer interface {
	Draw(call *DrawCall)
}
