// Package serialize packs annotations into the flat binary layout consumed by
// the render adapter.
//
// The layout is one region per geometry kind, in Type order, laid out back to
// back. Within a region instances are ordered by id using byte-wise string
// comparison, so the draw order does not depend on store iteration order.
// Fixed-size kinds pack to a constant stride; polygons and line strings pack
// to 12 bytes per vertex.
package serialize

import (
	"fmt"
	"slices"
	"strings"

	"github.com/hupe1980/annostore/annotation"
)

// Serialized is the packed form of a set of annotations together with the
// metadata needed to draw and pick it without the annotation values.
type Serialized struct {
	// Data holds every region back to back.
	Data []byte
	// TypeToIDs lists the ids of each region in packing order.
	TypeToIDs [annotation.NumTypes][]string
	// TypeToOffset is the byte offset of each region in Data.
	TypeToOffset [annotation.NumTypes]int
	// TypeToSizes is the packed byte size of each instance.
	TypeToSizes [annotation.NumTypes][]uint32
	// TypeToPickIDs is the pick id count of each instance.
	TypeToPickIDs [annotation.NumTypes][]uint32
	// TypeToPickCount is the pick id total of each region.
	TypeToPickCount [annotation.NumTypes]int
	// TypeToAnnTypes is the category label of each instance.
	TypeToAnnTypes [annotation.NumTypes][]string
	// TotalPickIDs is the sum of TypeToPickCount.
	TotalPickIDs int
	// Generation is the source generation the buffer was built from.
	Generation uint64
}

// Count returns the number of instances in the region of t.
func (s *Serialized) Count(t annotation.Type) int { return len(s.TypeToIDs[t]) }

// Len returns the number of instances over all regions.
func (s *Serialized) Len() int {
	n := 0
	for t := range s.TypeToIDs {
		n += len(s.TypeToIDs[t])
	}
	return n
}

// RegionSize returns the byte size of the region of t.
func (s *Serialized) RegionSize(t annotation.Type) int {
	if int(t)+1 < annotation.NumTypes {
		return s.TypeToOffset[t+1] - s.TypeToOffset[t]
	}
	return len(s.Data) - s.TypeToOffset[t]
}

// InstanceOffset returns the byte offset in Data of the index-th instance of
// t, summing the sizes of the preceding instances.
func (s *Serialized) InstanceOffset(t annotation.Type, index int) int {
	off := s.TypeToOffset[t]
	for _, size := range s.TypeToSizes[t][:index] {
		off += int(size)
	}
	return off
}

// Instance returns the packed bytes of the index-th instance of t.
func (s *Serialized) Instance(t annotation.Type, index int) []byte {
	off := s.InstanceOffset(t, index)
	return s.Data[off : off+int(s.TypeToSizes[t][index])]
}

// PickOffset returns the pick id offset of the index-th instance of t
// relative to the start of its region.
func (s *Serialized) PickOffset(t annotation.Type, index int) int {
	off := 0
	for _, n := range s.TypeToPickIDs[t][:index] {
		off += int(n)
	}
	return off
}

// IndexOf returns the position of id in the region of t.
func (s *Serialized) IndexOf(t annotation.Type, id string) (int, bool) {
	return slices.BinarySearchFunc(s.TypeToIDs[t], id, strings.Compare)
}

// Find returns the type and position of id.
func (s *Serialized) Find(id string) (annotation.Type, int, bool) {
	for _, t := range annotation.Types() {
		if i, ok := s.IndexOf(t, id); ok {
			return t, i, true
		}
	}
	return 0, 0, false
}

// Validate checks that the metadata is consistent with Data. Buffers built by
// Serialize are always valid; buffers decoded from a transport are not
// trusted.
func (s *Serialized) Validate() error {
	off := 0
	total := 0
	for _, t := range annotation.Types() {
		n := len(s.TypeToIDs[t])
		if len(s.TypeToSizes[t]) != n || len(s.TypeToPickIDs[t]) != n {
			return fmt.Errorf("serialize: %v: metadata lengths differ from %d ids", t, n)
		}
		if s.TypeToAnnTypes[t] != nil && len(s.TypeToAnnTypes[t]) != n {
			return fmt.Errorf("serialize: %v: %d labels for %d ids", t, len(s.TypeToAnnTypes[t]), n)
		}
		ids := s.TypeToIDs[t]
		if !slices.IsSortedFunc(ids, strings.Compare) {
			return fmt.Errorf("serialize: %v: ids are not sorted", t)
		}
		for i := 1; i < n; i++ {
			if ids[i] == ids[i-1] {
				return fmt.Errorf("serialize: %v: duplicate id %q", t, ids[i])
			}
		}
		if s.TypeToOffset[t] != off {
			return fmt.Errorf("serialize: %v: region offset %d, want %d", t, s.TypeToOffset[t], off)
		}
		h := annotation.HandlerFor(t)
		picks := 0
		for i, size := range s.TypeToSizes[t] {
			if h.FixedSize() && int(size) != h.Stride() {
				return fmt.Errorf("serialize: %v[%d]: size %d, want %d", t, i, size, h.Stride())
			}
			if int(size)%h.Stride() != 0 {
				return fmt.Errorf("serialize: %v[%d]: size %d is not a multiple of %d", t, i, size, h.Stride())
			}
			off += int(size)
			picks += int(s.TypeToPickIDs[t][i])
		}
		if picks != s.TypeToPickCount[t] {
			return fmt.Errorf("serialize: %v: pick count %d, want %d", t, s.TypeToPickCount[t], picks)
		}
		total += picks
	}
	if off != len(s.Data) {
		return fmt.Errorf("serialize: regions cover %d bytes, data has %d", off, len(s.Data))
	}
	if total != s.TotalPickIDs {
		return fmt.Errorf("serialize: total pick ids %d, want %d", s.TotalPickIDs, total)
	}
	return nil
}

// Serialize packs byType into a new Serialized. The input slices are not
// modified.
func Serialize(byType [annotation.NumTypes][]annotation.Annotation) *Serialized {
	out := &Serialized{}

	var sorted [annotation.NumTypes][]annotation.Annotation
	size := 0
	for _, t := range annotation.Types() {
		h := annotation.HandlerFor(t)
		list := slices.Clone(byType[t])
		slices.SortFunc(list, func(a, b annotation.Annotation) int {
			return strings.Compare(a.Meta().ID, b.Meta().ID)
		})
		sorted[t] = list

		out.TypeToOffset[t] = size
		ids := make([]string, len(list))
		sizes := make([]uint32, len(list))
		labels := make([]string, len(list))
		for i, a := range list {
			ids[i] = a.Meta().ID
			labels[i] = a.Meta().AnnType
			n := h.PackedByteSize(a)
			sizes[i] = uint32(n)
			size += n
		}
		picks := make([]uint32, len(list))
		for i, n := range h.PickIDsPerInstance(list) {
			picks[i] = uint32(n)
			out.TypeToPickCount[t] += n
		}
		out.TypeToIDs[t] = ids
		out.TypeToSizes[t] = sizes
		out.TypeToPickIDs[t] = picks
		out.TypeToAnnTypes[t] = labels
		out.TotalPickIDs += out.TypeToPickCount[t]
	}

	out.Data = make([]byte, size)
	for _, t := range annotation.Types() {
		list := sorted[t]
		if len(list) == 0 {
			continue
		}
		write := annotation.HandlerFor(t).Serializer(out.Data, out.TypeToOffset[t], len(list))
		for i, a := range list {
			write(a, i)
		}
	}
	return out
}
