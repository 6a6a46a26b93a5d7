package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/annostore/annotation"
	"github.com/hupe1980/annostore/chunk"
	"github.com/hupe1980/annostore/segmentation"
	"github.com/hupe1980/annostore/serialize"
	"github.com/hupe1980/annostore/signal"
)

func chunkOf(ids ...string) *serialize.Serialized {
	var in [annotation.NumTypes][]annotation.Annotation
	for _, id := range ids {
		in[annotation.TypePoint] = append(in[annotation.TypePoint], pt(id))
	}
	return serialize.Serialize(in)
}

func deliverPending(m *chunk.Manager, chunks map[chunk.Key]*serialize.Serialized) {
	for _, tk := range m.Pending() {
		if s, ok := chunks[tk.Key]; ok {
			m.Deliver(tk, s, nil)
		}
	}
	m.Flush()
}

func TestChunkedLayer_LazyUploadAndReadiness(t *testing.T) {
	mgr := chunk.NewManager(nil)
	defer mgr.Close()
	device, picks, drawer := &fakeDevice{}, newFakePicks(), &fakeDrawer{}
	l := NewChunkedLayer(mgr, device, picks, drawer)

	redraws := 0
	l.RedrawNeeded.Add(func(signal.Void) { redraws++ })

	k1, k2 := chunk.SpatialKey(0, 0, 0, 0), chunk.SpatialKey(0, 1, 0, 0)
	assert.False(t, l.Draw(k1, k2))
	assert.Empty(t, drawer.calls)

	deliverPending(mgr, map[chunk.Key]*serialize.Serialized{k1: chunkOf("a", "b")})
	assert.Equal(t, 1, redraws)
	assert.False(t, l.Draw(k1, k2))
	require.Len(t, device.buffers, 1)
	assert.Equal(t, "annotations/"+string(k1), device.buffers[0].label)

	deliverPending(mgr, map[chunk.Key]*serialize.Serialized{k2: chunkOf("c")})
	assert.True(t, l.Draw(k1, k2))
	assert.True(t, l.Draw(k1, k2))
	require.Len(t, device.buffers, 2)
	assert.Len(t, device.buffers[0].uploads, 1)
	assert.Len(t, device.buffers[1].uploads, 1)

	// Each chunk gets its own pick range.
	m := &MouseState{}
	last := picks.regs[len(picks.regs)-1]
	require.True(t, picks.pick(last.base, m))
	assert.Equal(t, "c", m.PickedID)
	assert.Equal(t, Pickable(l), m.PickedLayer)
}

func TestChunkedLayer_SegmentKeys(t *testing.T) {
	mgr := chunk.NewManager(nil)
	defer mgr.Close()
	seg := segmentation.NewVisibleSet()
	seg.Show(7, 3)
	device, drawer := &fakeDevice{}, &fakeDrawer{}
	l := NewChunkedLayer(mgr, device, newFakePicks(), drawer, WithSegmentation(seg, true))

	keys := l.Keys([]chunk.Key{"ignored"})
	assert.Equal(t, []chunk.Key{chunk.SegmentKey(3), chunk.SegmentKey(7)}, keys)

	assert.False(t, l.Draw())
	deliverPending(mgr, map[chunk.Key]*serialize.Serialized{
		chunk.SegmentKey(3): chunkOf("a"),
	})
	assert.False(t, l.Draw())
	assert.Len(t, mgr.Pending(), 1)

	seg.Hide(7)
	assert.True(t, l.Draw())
	assert.Len(t, drawer.calls, 2)

	require.NoError(t, l.SetSegmentFilter(false))
	assert.Equal(t, []chunk.Key{"x"}, l.Keys([]chunk.Key{"x"}))
}

func TestChunkedLayer_EvictionDestroysBuffer(t *testing.T) {
	small := chunkOf("a")
	mgr := chunk.NewManager(nil, chunk.WithCapacity(int64(len(small.Data))+48))
	defer mgr.Close()
	device := &fakeDevice{}
	l := NewChunkedLayer(mgr, device, newFakePicks(), &fakeDrawer{})

	l.Draw("k1")
	deliverPending(mgr, map[chunk.Key]*serialize.Serialized{"k1": small})
	assert.True(t, l.Draw("k1"))

	l.Draw("k1", "k2")
	deliverPending(mgr, map[chunk.Key]*serialize.Serialized{"k2": chunkOf("b")})
	assert.True(t, device.buffers[0].destroyed)

	l.Dispose()
	for _, b := range device.buffers {
		assert.True(t, b.destroyed)
	}
}
