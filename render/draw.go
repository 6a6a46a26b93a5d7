package render

import (
	"github.com/gogpu/gputypes"

	"github.com/hupe1980/annostore/annotation"
	"github.com/hupe1980/annostore/serialize"
)

type highlight struct {
	hoverID   string
	hoverPart int
	selected  string
}

// drawSerialized registers one pick id range for the whole buffer and issues
// one draw call per non-empty region. Region pick ids follow each other in
// type order, which is what ResolvePick walks.
func drawSerialized(picks PickAllocator, drawer Drawer, style Style, owner Pickable, data *serialize.Serialized, gpu GPUBuffer, hl highlight) {
	if data.Len() == 0 {
		return
	}
	base := picks.Allocate(data.TotalPickIDs)
	picks.Register(base, data.TotalPickIDs, owner, data)
	gpu.Bind()

	cursor := uint64(0)
	for _, t := range annotation.Types() {
		count := data.Count(t)
		if count == 0 {
			continue
		}
		h := annotation.HandlerFor(t)
		call := &DrawCall{
			Type:          t,
			Buffer:        gpu,
			Layout:        VertexLayout(t),
			ByteOffset:    data.TypeToOffset[t],
			Count:         count,
			Stride:        h.Stride(),
			PickIDBase:    base + cursor,
			PickIDCount:   data.TypeToPickCount[t],
			SelectedIndex: -1,
			Colors:        regionColors(style, data, t, hl.selected),
			PointSize:     style.PointSize,
			LineWidth:     style.LineWidth,
		}
		if !h.FixedSize() {
			call.InstanceSizes = data.TypeToSizes[t]
		}
		if hl.hoverID != "" {
			if i, ok := data.IndexOf(t, hl.hoverID); ok {
				part := min(max(hl.hoverPart, 0), int(data.TypeToPickIDs[t][i])-1)
				call.SelectedIndex = data.PickOffset(t, i) + max(part, 0)
			}
		}
		drawer.Draw(call)
		cursor += uint64(data.TypeToPickCount[t])
	}
}

func regionColors(style Style, data *serialize.Serialized, t annotation.Type, selected string) []gputypes.Color {
	colors := make([]gputypes.Color, data.Count(t))
	labels := data.TypeToAnnTypes[t]
	for i := range colors {
		if labels != nil {
			colors[i] = style.ColorFor(labels[i])
		} else {
			colors[i] = style.Default
		}
	}
	if selected != "" {
		if i, ok := data.IndexOf(t, selected); ok {
			colors[i] = style.Highlight
		}
	}
	return colors
}
