package render

import (
	"errors"
	"log/slog"

	"github.com/hupe1980/annostore/segmentation"
	"github.com/hupe1980/annostore/serialize"
	"github.com/hupe1980/annostore/signal"
	"github.com/hupe1980/annostore/source"
)

// ErrNoSegmentation is returned when segment filtering is enabled on a layer
// created without a segmentation.
var ErrNoSegmentation = errors.New("render: layer has no segmentation")

type layerOptions struct {
	style  Style
	seg    segmentation.Collaborator
	filter bool
	logger *slog.Logger
	label  string
}

// LayerOption configures a Layer or ChunkedLayer.
type LayerOption func(*layerOptions)

// WithStyle sets the color and size table.
func WithStyle(s Style) LayerOption {
	return func(o *layerOptions) { o.style = s }
}

// WithSegmentation links the layer to a segmentation. With filter true only
// annotations linked to a visible segment are drawn.
func WithSegmentation(seg segmentation.Collaborator, filter bool) LayerOption {
	return func(o *layerOptions) {
		o.seg = seg
		o.filter = filter && seg != nil
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) LayerOption {
	return func(o *layerOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithLabel sets the label of the GPU buffers the layer creates.
func WithLabel(label string) LayerOption {
	return func(o *layerOptions) { o.label = label }
}

func newLayerOptions(optFns []LayerOption) layerOptions {
	o := layerOptions{
		style:  DefaultStyle(),
		logger: slog.New(slog.DiscardHandler),
		label:  "annotations",
	}
	for _, fn := range optFns {
		fn(&o)
	}
	return o
}

// Layer draws the annotations of one Source.
type Layer struct {
	buf    *serialize.Buffer
	device Device
	picks  PickAllocator
	drawer Drawer

	seg    segmentation.Collaborator
	filter bool
	style  Style
	logger *slog.Logger
	label  string

	gpu      GPUBuffer
	uploaded *serialize.Serialized

	hover     *source.Reference
	hoverPart int
	selected  string

	tokens   []*signal.Token
	disposed bool

	// RedrawNeeded fires when the store, the segmentation or the highlight
	// changed since the last draw.
	RedrawNeeded signal.Notify
}

var _ Pickable = (*Layer)(nil)

// NewLayer creates a layer over src.
func NewLayer(src *source.Source, device Device, picks PickAllocator, drawer Drawer, optFns ...LayerOption) *Layer {
	o := newLayerOptions(optFns)
	l := &Layer{
		buf:    serialize.NewBuffer(src, serialize.WithLogger(o.logger)),
		device: device,
		picks:  picks,
		drawer: drawer,
		seg:    o.seg,
		style:  o.style,
		logger: o.logger,
		label:  o.label,
	}
	l.tokens = append(l.tokens, src.Changed.Add(func(signal.Void) { l.RedrawNeeded.Dispatch(signal.Void{}) }))
	if l.seg != nil {
		l.tokens = append(l.tokens, l.seg.Changed().Add(func(signal.Void) {
			if l.filter {
				l.buf.Invalidate()
			}
			l.RedrawNeeded.Dispatch(signal.Void{})
		}))
	}
	if o.filter {
		l.applyFilter(true)
	}
	return l
}

// Draw serializes pending changes, uploads them if the buffer was rebuilt
// and issues one draw call per non-empty type region.
func (l *Layer) Draw() {
	if l.disposed {
		return
	}
	data := l.buf.Update()
	if l.gpu == nil {
		l.gpu = l.device.CreateBuffer(l.label, BufferUsage)
	}
	if l.uploaded != data {
		l.gpu.Upload(data.Data)
		l.uploaded = data
		l.logger.Debug("annotation buffer uploaded", "bytes", len(data.Data), "generation", data.Generation)
	}

	hl := highlight{selected: l.selected}
	if l.hover != nil && l.hover.State() == source.StatePresent {
		hl.hoverID = l.hover.ID()
		hl.hoverPart = l.hoverPart
	}
	drawSerialized(l.picks, l.drawer, l.style, l, data, l.gpu, hl)
}

// Data returns the buffer last drawn, or nil.
func (l *Layer) Data() *serialize.Serialized { return l.uploaded }

// SetHover highlights part of the referenced annotation. The layer takes
// over the caller's hold on ref; nil clears the hover.
func (l *Layer) SetHover(ref *source.Reference, part int) {
	if l.hover != nil {
		// Re-hovering the same reference keeps a single hold.
		l.hover.Dispose()
	}
	l.hover = ref
	l.hoverPart = part
	l.RedrawNeeded.Dispatch(signal.Void{})
}

// SetSelected force-colors the annotation id with the highlight color.
// An empty id clears the selection.
func (l *Layer) SetSelected(id string) {
	if id == l.selected {
		return
	}
	l.selected = id
	l.RedrawNeeded.Dispatch(signal.Void{})
}

// SetSegmentFilter toggles segment filtering.
func (l *Layer) SetSegmentFilter(enabled bool) error {
	if enabled && l.seg == nil {
		return ErrNoSegmentation
	}
	if enabled == l.filter {
		return nil
	}
	l.applyFilter(enabled)
	l.RedrawNeeded.Dispatch(signal.Void{})
	return nil
}

func (l *Layer) applyFilter(enabled bool) {
	l.filter = enabled
	if enabled {
		l.buf.SetFilter(serialize.SegmentFilter(l.seg.IsVisible))
	} else {
		l.buf.SetFilter(nil)
	}
}

// UpdateMouseState implements Pickable.
func (l *Layer) UpdateMouseState(m *MouseState, pickedOffset int, data *serialize.Serialized) {
	updateMouseState(l, l.logger, m, pickedOffset, data)
}

// Dispose releases the GPU buffer, the hover reference and all
// subscriptions. The layer must not be drawn afterwards.
func (l *Layer) Dispose() {
	if l.disposed {
		return
	}
	l.disposed = true
	for _, t := range l.tokens {
		t.Dispose()
	}
	l.tokens = nil
	if l.gpu != nil {
		l.gpu.Destroy()
		l.gpu = nil
	}
	if l.hover != nil {
		l.hover.Dispose()
		l.hover = nil
	}
	l.uploaded = nil
}
