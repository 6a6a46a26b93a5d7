package source

import (
	"fmt"

	"github.com/hupe1980/annostore/annotation"
	"github.com/hupe1980/annostore/signal"
)

// State is the resolution state of a Reference.
type State uint8

const (
	// StateUnresolved means the value has not been looked up yet.
	StateUnresolved State = iota
	// StatePresent means the reference holds the annotation's current value.
	StatePresent
	// StateTombstoned means the annotation was deleted.
	StateTombstoned
)

func (s State) String() string {
	switch s {
	case StateUnresolved:
		return "Unresolved"
	case StatePresent:
		return "Present"
	case StateTombstoned:
		return "Tombstoned"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Reference is a shared, reference-counted handle to one annotation by id.
//
// All holders of the same id share one Reference. Each GetReference or
// Retain must be paired with a Dispose; the last Dispose removes the handle
// from its source. Changed fires whenever the underlying annotation is added
// back, updated, deleted or restored.
type Reference struct {
	id       string
	value    annotation.Annotation
	state    State
	refCount int
	src      *Source

	Changed signal.Notify
}

func newReference(src *Source, id string) *Reference {
	return &Reference{id: id, src: src, refCount: 1}
}

// ID returns the annotation id.
func (r *Reference) ID() string { return r.id }

// State returns the resolution state.
func (r *Reference) State() State { return r.state }

// Value returns the current annotation, or nil unless the state is
// StatePresent. The returned value must be treated as read-only.
func (r *Reference) Value() annotation.Annotation {
	if r.state != StatePresent {
		return nil
	}
	return r.value
}

// Retain adds a holder and returns r.
func (r *Reference) Retain() *Reference {
	r.refCount++
	return r
}

// Dispose releases one holder.
func (r *Reference) Dispose() {
	if r.refCount <= 0 {
		return
	}
	r.refCount--
	if r.refCount == 0 && r.src != nil {
		if cur, ok := r.src.references[r.id]; ok && cur == r {
			delete(r.src.references, r.id)
		}
	}
}

func (r *Reference) set(a annotation.Annotation) {
	r.value = a
	r.state = StatePresent
	r.Changed.Dispatch(signal.Void{})
}

func (r *Reference) tombstone() {
	r.value = nil
	r.state = StateTombstoned
	r.Changed.Dispatch(signal.Void{})
}
