package render

import (
	"log/slog"

	"github.com/hupe1980/annostore/annotation"
	"github.com/hupe1980/annostore/chunk"
	"github.com/hupe1980/annostore/segmentation"
	"github.com/hupe1980/annostore/serialize"
	"github.com/hupe1980/annostore/signal"
)

// ChunkSource is the chunk-delivery collaborator. *chunk.Manager implements it.
type ChunkSource interface {
	// Request replaces the set of keys the layer currently needs.
	Request(keys ...chunk.Key)
	Chunk(key chunk.Key) (*serialize.Serialized, bool)
	Ready() *signal.Signal[chunk.Key]
	Evicted() *signal.Signal[chunk.Key]
}

var _ ChunkSource = (*chunk.Manager)(nil)

type chunkBuffer struct {
	gpu   GPUBuffer
	data  *serialize.Serialized
	valid bool
}

// ChunkedLayer draws externally delivered chunks instead of building a
// buffer itself. Each chunk gets its own GPU buffer, uploaded lazily.
type ChunkedLayer struct {
	chunks ChunkSource
	device Device
	picks  PickAllocator
	drawer Drawer

	seg        segmentation.Collaborator
	filter     bool
	segmentKey func(annotation.SegmentID) chunk.Key
	style      Style
	logger     *slog.Logger
	label      string

	buffers map[chunk.Key]*chunkBuffer

	hoverID   string
	hoverPart int
	selected  string

	tokens   []*signal.Token
	disposed bool

	// RedrawNeeded fires when a chunk arrived or visibility changed.
	RedrawNeeded signal.Notify
}

var _ Pickable = (*ChunkedLayer)(nil)

// NewChunkedLayer creates a layer drawing the chunks of src. With segment
// filtering enabled, the drawn keys are chunk.SegmentKey of each visible
// segment.
func NewChunkedLayer(src ChunkSource, device Device, picks PickAllocator, drawer Drawer, optFns ...LayerOption) *ChunkedLayer {
	o := newLayerOptions(optFns)
	c := &ChunkedLayer{
		chunks:     src,
		device:     device,
		picks:      picks,
		drawer:     drawer,
		seg:        o.seg,
		filter:     o.filter,
		segmentKey: chunk.SegmentKey,
		style:      o.style,
		logger:     o.logger,
		label:      o.label,
		buffers:    make(map[chunk.Key]*chunkBuffer),
	}
	c.tokens = append(c.tokens,
		src.Ready().Add(func(k chunk.Key) {
			if b, ok := c.buffers[k]; ok {
				b.valid = false
			}
			c.RedrawNeeded.Dispatch(signal.Void{})
		}),
		src.Evicted().Add(func(k chunk.Key) {
			if b, ok := c.buffers[k]; ok {
				b.gpu.Destroy()
				delete(c.buffers, k)
			}
		}),
	)
	if c.seg != nil {
		c.tokens = append(c.tokens, c.seg.Changed().Add(func(signal.Void) {
			if c.filter {
				c.RedrawNeeded.Dispatch(signal.Void{})
			}
		}))
	}
	return c
}

// Keys returns the chunk keys to draw: one per visible segment when
// filtering by segmentation, otherwise spatial.
func (c *ChunkedLayer) Keys(spatial []chunk.Key) []chunk.Key {
	if !c.filter {
		return spatial
	}
	var keys []chunk.Key
	c.seg.ForEachVisible(func(id annotation.SegmentID) bool {
		keys = append(keys, c.segmentKey(id))
		return true
	})
	return keys
}

// Draw requests the needed chunks and draws those that have arrived. It
// reports false if any needed chunk is still missing.
func (c *ChunkedLayer) Draw(spatial ...chunk.Key) bool {
	if c.disposed {
		return false
	}
	keys := c.Keys(spatial)
	c.chunks.Request(keys...)

	hl := highlight{hoverID: c.hoverID, hoverPart: c.hoverPart, selected: c.selected}
	ready := true
	for _, k := range keys {
		data, ok := c.chunks.Chunk(k)
		if !ok {
			ready = false
			continue
		}
		b, ok := c.buffers[k]
		if !ok {
			b = &chunkBuffer{gpu: c.device.CreateBuffer(c.label+"/"+string(k), BufferUsage)}
			c.buffers[k] = b
		}
		if !b.valid || b.data != data {
			b.gpu.Upload(data.Data)
			b.data = data
			b.valid = true
			c.logger.Debug("chunk uploaded", "key", string(k), "bytes", len(data.Data))
		}
		drawSerialized(c.picks, c.drawer, c.style, c, data, b.gpu, hl)
	}
	return ready
}

// SetHover highlights part of annotation id; an empty id clears it.
func (c *ChunkedLayer) SetHover(id string, part int) {
	c.hoverID, c.hoverPart = id, part
	c.RedrawNeeded.Dispatch(signal.Void{})
}

// SetSelected force-colors annotation id with the highlight color.
func (c *ChunkedLayer) SetSelected(id string) {
	if id == c.selected {
		return
	}
	c.selected = id
	c.RedrawNeeded.Dispatch(signal.Void{})
}

// SetSegmentFilter toggles drawing per visible segment.
func (c *ChunkedLayer) SetSegmentFilter(enabled bool) error {
	if enabled && c.seg == nil {
		return ErrNoSegmentation
	}
	if enabled != c.filter {
		c.filter = enabled
		c.RedrawNeeded.Dispatch(signal.Void{})
	}
	return nil
}

// UpdateMouseState implements Pickable.
func (c *ChunkedLayer) UpdateMouseState(m *MouseState, pickedOffset int, data *serialize.Serialized) {
	updateMouseState(c, c.logger, m, pickedOffset, data)
}

// Dispose destroys every chunk buffer and drops all subscriptions.
func (c *ChunkedLayer) Dispose() {
	if c.disposed {
		return
	}
	c.disposed = true
	for _, t := range c.tokens {
		t.Dispose()
	}
	c.tokens = nil
	for k, b := range c.buffers {
		b.gpu.Destroy()
		delete(c.buffers, k)
	}
}
