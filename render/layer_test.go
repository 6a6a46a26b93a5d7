package render

import (
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/annostore/annotation"
	"github.com/hupe1980/annostore/segmentation"
	"github.com/hupe1980/annostore/signal"
	"github.com/hupe1980/annostore/source"
)

type harness struct {
	src    *source.Source
	device *fakeDevice
	picks  *fakePicks
	drawer *fakeDrawer
}

func newHarness(t *testing.T, as ...annotation.Annotation) *harness {
	t.Helper()
	h := &harness{src: source.New(), device: &fakeDevice{}, picks: newFakePicks(), drawer: &fakeDrawer{}}
	for _, a := range as {
		_, err := h.src.Add(a, true)
		require.NoError(t, err)
	}
	return h
}

func (h *harness) layer(opts ...LayerOption) *Layer {
	return NewLayer(h.src, h.device, h.picks, h.drawer, opts...)
}

func pt(id string, segs ...annotation.SegmentID) *annotation.Point {
	return &annotation.Point{Base: annotation.Base{ID: id, Segments: segs}}
}

func TestLayer_DrawRegions(t *testing.T) {
	h := newHarness(t,
		pt("p0"), pt("p1"),
		&annotation.LineString{Base: annotation.Base{ID: "ls"}, Points: []annotation.Vec3{{0, 0, 0}, {1, 0, 0}, {2, 0, 0}}},
	)
	l := h.layer()
	l.Draw()

	require.Len(t, h.device.buffers, 1)
	buf := h.device.buffers[0]
	assert.Equal(t, "annotations", buf.label)
	assert.Equal(t, BufferUsage, buf.usage)
	require.Len(t, buf.uploads, 1)
	assert.Len(t, buf.uploads[0], 24+36)

	require.Len(t, h.drawer.calls, 2)
	points, ls := h.drawer.calls[0], h.drawer.calls[1]
	assert.Equal(t, annotation.TypePoint, points.Type)
	assert.Equal(t, 2, points.Count)
	assert.Equal(t, 0, points.ByteOffset)
	assert.Equal(t, uint64(1), points.PickIDBase)
	assert.Equal(t, 2, points.PickIDCount)
	assert.Nil(t, points.InstanceSizes)

	assert.Equal(t, annotation.TypeLineString, ls.Type)
	assert.Equal(t, 24, ls.ByteOffset)
	assert.Equal(t, uint64(3), ls.PickIDBase)
	assert.Equal(t, 5, ls.PickIDCount)
	assert.Equal(t, []uint32{36}, ls.InstanceSizes)
	assert.Equal(t, -1, ls.SelectedIndex)

	require.Len(t, h.picks.regs, 1)
	assert.Equal(t, 7, h.picks.regs[0].n)
	assert.Same(t, l.Data(), h.picks.regs[0].data)
}

func TestLayer_UploadsOnlyAfterMutation(t *testing.T) {
	h := newHarness(t, pt("a"))
	l := h.layer()
	l.Draw()
	l.Draw()
	buf := h.device.buffers[0]
	assert.Len(t, buf.uploads, 1)
	assert.Equal(t, 2, buf.binds)

	_, err := h.src.Add(pt("b"), false)
	require.NoError(t, err)
	l.Draw()
	assert.Len(t, buf.uploads, 2)
	assert.Len(t, h.device.buffers, 1)
}

func TestLayer_EmptyStoreDrawsNothing(t *testing.T) {
	h := newHarness(t)
	l := h.layer()
	l.Draw()
	assert.Empty(t, h.drawer.calls)
	assert.Empty(t, h.picks.regs)
}

func TestLayer_HoverAndSelection(t *testing.T) {
	h := newHarness(t,
		&annotation.Point{Base: annotation.Base{ID: "a", AnnType: "soma"}},
		&annotation.Point{Base: annotation.Base{ID: "b"}},
		&annotation.LineString{Base: annotation.Base{ID: "x"}, Points: []annotation.Vec3{{0, 0, 0}, {1, 0, 0}}},
		&annotation.LineString{Base: annotation.Base{ID: "y"}, Points: []annotation.Vec3{{0, 0, 0}, {1, 0, 0}, {2, 0, 0}}},
	)
	style := DefaultStyle()
	red := gputypes.Color{R: 1, A: 1}
	style.ByAnnType = map[string]gputypes.Color{"soma": red}
	l := h.layer(WithStyle(style))

	redraws := 0
	l.RedrawNeeded.Add(func(signal.Void) { redraws++ })

	l.SetHover(h.src.GetReference("y"), 4)
	l.SetSelected("b")
	l.SetSelected("b")
	assert.Equal(t, 2, redraws)
	l.Draw()

	require.Len(t, h.drawer.calls, 2)
	points, lines := h.drawer.calls[0], h.drawer.calls[1]
	assert.Equal(t, []gputypes.Color{red, style.Highlight}, points.Colors)
	assert.Equal(t, -1, points.SelectedIndex)
	// x has 3 pick ids; part 4 of y follows them.
	assert.Equal(t, 3+4, lines.SelectedIndex)
	assert.Equal(t, []gputypes.Color{style.Default, style.Default}, lines.Colors)

	// Out-of-range parts are clamped to the annotation.
	l.SetHover(h.src.GetReference("x"), 9)
	h.drawer.calls = nil
	l.Draw()
	assert.Equal(t, 2, h.drawer.calls[1].SelectedIndex)

	// A deleted hover target is not highlighted.
	ref := h.src.GetReference("x")
	h.src.Delete(ref, true)
	ref.Dispose()
	h.drawer.calls = nil
	l.Draw()
	assert.Equal(t, -1, h.drawer.calls[1].SelectedIndex)
}

func TestLayer_SegmentFilter(t *testing.T) {
	h := newHarness(t, pt("a", 1), pt("b", 2), pt("c"))
	seg := segmentation.NewVisibleSet()
	seg.Merge(5, 2)
	seg.Show(5)

	l := h.layer(WithSegmentation(seg, true))
	l.Draw()
	assert.Equal(t, []string{"b"}, l.Data().TypeToIDs[annotation.TypePoint])

	redraws := 0
	l.RedrawNeeded.Add(func(signal.Void) { redraws++ })
	seg.Show(1)
	assert.Equal(t, 1, redraws)
	l.Draw()
	assert.Equal(t, []string{"a", "b"}, l.Data().TypeToIDs[annotation.TypePoint])

	require.NoError(t, l.SetSegmentFilter(false))
	l.Draw()
	assert.Equal(t, []string{"a", "b", "c"}, l.Data().TypeToIDs[annotation.TypePoint])

	bare := h.layer()
	assert.ErrorIs(t, bare.SetSegmentFilter(true), ErrNoSegmentation)
}

func TestLayer_PickRoundTrip(t *testing.T) {
	h := newHarness(t, pt("p0"), pt("p1"), pt("p2"),
		&annotation.Line{Base: annotation.Base{ID: "line"}, PointB: annotation.Vec3{2, 0, 0}})
	l := h.layer()
	l.Draw()

	m := &MouseState{Position: annotation.Vec3{1, 1, 1}}
	base := h.picks.regs[0].base
	require.True(t, h.picks.pick(base+3, m))
	assert.Equal(t, "line", m.PickedID)
	assert.Equal(t, 0, m.PickedPart)
	assert.Equal(t, annotation.Vec3{1, 0, 0}, m.Position)
	assert.Equal(t, Pickable(l), m.PickedLayer)

	require.True(t, h.picks.pick(base+1, m))
	assert.Equal(t, "p1", m.PickedID)
}

func TestLayer_SetHoverKeepsOneHold(t *testing.T) {
	h := newHarness(t)
	ref, err := h.src.Add(pt("a"), true)
	require.NoError(t, err)
	l := h.layer()

	l.SetHover(ref, 0)
	l.SetHover(h.src.GetReference("a"), 1)
	l.SetHover(h.src.GetReference("a"), 2)
	l.SetHover(nil, 0)

	assert.NotSame(t, ref, h.src.GetReference("a"), "all holds were released")
}

func TestLayer_Dispose(t *testing.T) {
	h := newHarness(t, pt("a"))
	l := h.layer()
	l.SetHover(h.src.GetReference("a"), 0)
	l.Draw()

	redraws := 0
	l.RedrawNeeded.Add(func(signal.Void) { redraws++ })
	l.Dispose()
	l.Dispose()

	assert.True(t, h.device.buffers[0].destroyed)
	_, err := h.src.Add(pt("b"), true)
	require.NoError(t, err)
	assert.Equal(t, 0, redraws)

	calls := len(h.drawer.calls)
	l.Draw()
	assert.Len(t, h.drawer.calls, calls)
}
