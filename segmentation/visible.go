// Package segmentation tracks which segments are visible and which segment
// ids are equivalent.
//
// Equivalent ids form one class whose canonical id is the smallest member.
// Visibility is recorded per class: showing any member shows the class.
package segmentation

import (
	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/annostore/annotation"
	"github.com/hupe1980/annostore/signal"
)

// Collaborator is the segmentation view consumed by the render adapter.
type Collaborator interface {
	// IsVisible reports whether the class of the raw id is visible.
	IsVisible(id annotation.SegmentID) bool
	// Canonical maps a raw id to the canonical id of its class.
	Canonical(id annotation.SegmentID) annotation.SegmentID
	// ForEachVisible calls fn with each visible canonical id in ascending
	// order until fn returns false.
	ForEachVisible(fn func(annotation.SegmentID) bool)
	// Changed fires after visibility or equivalences change.
	Changed() *signal.Notify
}

// VisibleSet is the in-memory Collaborator. It is not safe for concurrent use.
type VisibleSet struct {
	visible *roaring64.Bitmap
	parent  map[annotation.SegmentID]annotation.SegmentID
	changed signal.Notify
}

var _ Collaborator = (*VisibleSet)(nil)

// NewVisibleSet creates a set with nothing visible and no equivalences.
func NewVisibleSet() *VisibleSet {
	return &VisibleSet{
		visible: roaring64.New(),
		parent:  make(map[annotation.SegmentID]annotation.SegmentID),
	}
}

// Changed returns the change signal.
func (v *VisibleSet) Changed() *signal.Notify { return &v.changed }

// Canonical returns the smallest id equivalent to id.
func (v *VisibleSet) Canonical(id annotation.SegmentID) annotation.SegmentID {
	root := id
	for {
		p, ok := v.parent[root]
		if !ok {
			break
		}
		root = p
	}
	// Path compression.
	for id != root {
		next := v.parent[id]
		v.parent[id] = root
		id = next
	}
	return root
}

// IsVisible reports whether the class of id is visible.
func (v *VisibleSet) IsVisible(id annotation.SegmentID) bool {
	return v.visible.Contains(uint64(v.Canonical(id)))
}

// Show makes the classes of ids visible.
func (v *VisibleSet) Show(ids ...annotation.SegmentID) {
	changed := false
	for _, id := range ids {
		if v.visible.CheckedAdd(uint64(v.Canonical(id))) {
			changed = true
		}
	}
	if changed {
		v.changed.Dispatch(signal.Void{})
	}
}

// Hide makes the classes of ids invisible.
func (v *VisibleSet) Hide(ids ...annotation.SegmentID) {
	changed := false
	for _, id := range ids {
		if v.visible.CheckedRemove(uint64(v.Canonical(id))) {
			changed = true
		}
	}
	if changed {
		v.changed.Dispatch(signal.Void{})
	}
}

// SetVisible replaces the visible classes with those of ids.
func (v *VisibleSet) SetVisible(ids ...annotation.SegmentID) {
	next := roaring64.New()
	for _, id := range ids {
		next.Add(uint64(v.Canonical(id)))
	}
	if next.Equals(v.visible) {
		return
	}
	v.visible = next
	v.changed.Dispatch(signal.Void{})
}

// Merge declares a and b equivalent. The merged class is visible if either
// class was.
func (v *VisibleSet) Merge(a, b annotation.SegmentID) {
	ra, rb := v.Canonical(a), v.Canonical(b)
	if ra == rb {
		return
	}
	root, child := min(ra, rb), max(ra, rb)
	v.parent[child] = root
	if v.visible.CheckedRemove(uint64(child)) {
		v.visible.Add(uint64(root))
	}
	v.changed.Dispatch(signal.Void{})
}

// ResetEquivalences makes every id its own class again. Visible classes
// keep their canonical ids visible.
func (v *VisibleSet) ResetEquivalences() {
	if len(v.parent) == 0 {
		return
	}
	v.parent = make(map[annotation.SegmentID]annotation.SegmentID)
	v.changed.Dispatch(signal.Void{})
}

// ForEachVisible calls fn with each visible canonical id in ascending order.
func (v *VisibleSet) ForEachVisible(fn func(annotation.SegmentID) bool) {
	it := v.visible.Iterator()
	for it.HasNext() {
		if !fn(annotation.SegmentID(it.Next())) {
			return
		}
	}
}

// Len returns the number of visible classes.
func (v *VisibleSet) Len() int { return int(v.visible.GetCardinality()) }

// Clear hides everything. Equivalences are kept.
func (v *VisibleSet) Clear() {
	if v.visible.IsEmpty() {
		return
	}
	v.visible.Clear()
	v.changed.Dispatch(signal.Void{})
}
