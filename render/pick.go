package render

import (
	"fmt"
	"log/slog"

	"github.com/hupe1980/annostore/annotation"
	"github.com/hupe1980/annostore/serialize"
)

// ErrPickOffsetOutOfRange indicates a pick id offset outside the pick id
// budget of a buffer, or metadata inconsistent with its data.
type ErrPickOffsetOutOfRange struct {
	Offset int
	Total  int
}

func (e *ErrPickOffsetOutOfRange) Error() string {
	return fmt.Sprintf("pick offset %d out of range [0, %d)", e.Offset, e.Total)
}

// Pick is a resolved pick id.
type Pick struct {
	ID   string
	Type annotation.Type
	// Index is the position of the annotation in its type region.
	Index int
	// Part is the picked vertex or edge, vertices first.
	Part int
	// ByteOffset is the start of the instance in the buffer data.
	ByteOffset int
	// Position is the snapped 3-D coordinate.
	Position annotation.Vec3
}

// ResolvePick maps a pick id offset, relative to the start of the buffer's
// pick id range, to the annotation and part it was drawn for. Regions are
// walked in the draw order: type order, then id order. mouse is used to
// snap along extended parts.
func ResolvePick(data *serialize.Serialized, pickedOffset int, mouse annotation.Vec3) (Pick, error) {
	if data == nil {
		return Pick{}, &ErrPickOffsetOutOfRange{Offset: pickedOffset}
	}
	outOfRange := &ErrPickOffsetOutOfRange{Offset: pickedOffset, Total: data.TotalPickIDs}
	if pickedOffset < 0 {
		return Pick{}, outOfRange
	}

	off := pickedOffset
	for _, t := range annotation.Types() {
		n := data.TypeToPickCount[t]
		if off >= n {
			off -= n
			continue
		}
		byteOff := data.TypeToOffset[t]
		for i, picks := range data.TypeToPickIDs[t] {
			if i >= len(data.TypeToSizes[t]) || i >= len(data.TypeToIDs[t]) {
				return Pick{}, outOfRange
			}
			size := int(data.TypeToSizes[t][i])
			if off >= int(picks) {
				off -= int(picks)
				byteOff += size
				continue
			}
			if byteOff+size > len(data.Data) {
				return Pick{}, outOfRange
			}
			instance := data.Data[byteOff : byteOff+size]
			return Pick{
				ID:         data.TypeToIDs[t][i],
				Type:       t,
				Index:      i,
				Part:       off,
				ByteOffset: byteOff,
				Position:   annotation.HandlerFor(t).Snap(instance, off, mouse),
			}, nil
		}
		// The region total exceeds its per-instance counts.
		return Pick{}, outOfRange
	}
	return Pick{}, outOfRange
}

// MouseState carries the pointer position in and the pick result out.
type MouseState struct {
	// Position is the pointer position; a successful pick snaps it.
	Position annotation.Vec3

	Picked             bool
	PickedID           string
	PickedType         annotation.Type
	PickedPart         int
	PickedLayer        Pickable
	PickedBuffer       *serialize.Serialized
	PickedBufferOffset int
}

// ClearPick forgets the last pick.
func (m *MouseState) ClearPick() {
	*m = MouseState{Position: m.Position}
}

func updateMouseState(owner Pickable, logger *slog.Logger, m *MouseState, pickedOffset int, data *serialize.Serialized) {
	p, err := ResolvePick(data, pickedOffset, m.Position)
	if err != nil {
		logger.Debug("pick not resolved", "error", err)
		return
	}
	m.Picked = true
	m.PickedID = p.ID
	m.PickedType = p.Type
	m.PickedPart = p.Part
	m.PickedLayer = owner
	m.PickedBuffer = data
	m.PickedBufferOffset = p.ByteOffset
	m.Position = p.Position
}
