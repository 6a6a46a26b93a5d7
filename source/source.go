// Package source implements the mutable annotation store.
//
// A Source owns the authoritative annotation values, hands out shared
// References, tracks uncommitted ("pending") annotations and maintains the
// size range used for size filtering. Every mutation increments Generation
// before any signal fires, so derived artifacts can be rebuilt lazily.
//
// A Source is not safe for concurrent use. Mutations, serialization and
// draw preparation are expected to run on one goroutine.
package source

import (
	"iter"
	"log/slog"
	"math"
	"slices"
	"strings"

	"github.com/hupe1980/annostore/annotation"
	"github.com/hupe1980/annostore/codec"
	"github.com/hupe1980/annostore/signal"
)

type options struct {
	logger *slog.Logger
	codec  codec.Codec
	newID  func() string
}

// Option configures a Source.
type Option func(*options)

// WithLogger sets the logger. Pass nil to discard log output.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l == nil {
			l = slog.New(slog.DiscardHandler)
		}
		o.logger = l
	}
}

// WithCodec sets the codec used to decode RestoreState payloads.
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithIDGenerator overrides how ids are assigned to annotations added without one.
func WithIDGenerator(fn func() string) Option {
	return func(o *options) {
		if fn != nil {
			o.newID = fn
		}
	}
}

// Source is the in-memory annotation store.
type Source struct {
	annotations map[string]annotation.Annotation
	pending     map[string]struct{}
	references  map[string]*Reference
	segments    map[annotation.SegmentID]map[string]struct{}

	sizeRange  [2]float64
	hasSize    bool
	generation uint64

	logger *slog.Logger
	codec  codec.Codec
	newID  func() string

	// Changed fires once per mutation of the store.
	Changed signal.Notify
	// ChildAdded fires with each added annotation.
	ChildAdded signal.Signal[annotation.Annotation]
	// ChildUpdated fires with the new value of each updated annotation.
	ChildUpdated signal.Signal[annotation.Annotation]
	// ChildDeleted fires with the id of each deleted annotation.
	ChildDeleted signal.Signal[string]
	// ChildCommitted fires with the id of each committed pending annotation.
	ChildCommitted signal.Signal[string]
}

// New creates an empty Source.
func New(optFns ...Option) *Source {
	o := options{
		logger: slog.New(slog.DiscardHandler),
		codec:  codec.Default,
		newID:  annotation.NewID,
	}
	for _, fn := range optFns {
		fn(&o)
	}
	return &Source{
		annotations: make(map[string]annotation.Annotation),
		pending:     make(map[string]struct{}),
		references:  make(map[string]*Reference),
		segments:    make(map[annotation.SegmentID]map[string]struct{}),
		sizeRange:   emptySizeRange(),
		logger:      o.logger,
		codec:       o.codec,
		newID:       o.newID,
	}
}

// Generation is the mutation counter. It strictly increases with every mutation.
func (s *Source) Generation() uint64 { return s.generation }

// Len returns the number of stored annotations, pending ones included.
func (s *Source) Len() int { return len(s.annotations) }

// Get returns the stored annotation for id. The value must be treated as read-only.
func (s *Source) Get(id string) (annotation.Annotation, bool) {
	a, ok := s.annotations[id]
	return a, ok
}

// IsPending reports whether id was added without commit and not yet committed.
func (s *Source) IsPending(id string) bool {
	_, ok := s.pending[id]
	return ok
}

// All iterates the stored annotations in unspecified order.
func (s *Source) All() iter.Seq[annotation.Annotation] {
	return func(yield func(annotation.Annotation) bool) {
		for _, a := range s.annotations {
			if !yield(a) {
				return
			}
		}
	}
}

// ByType groups the stored annotations by geometry kind, in unspecified
// order within a kind. Pending annotations are included.
func (s *Source) ByType() [annotation.NumTypes][]annotation.Annotation {
	var out [annotation.NumTypes][]annotation.Annotation
	for _, a := range s.annotations {
		out[a.Type()] = append(out[a.Type()], a)
	}
	return out
}

// SizeRange returns [min, max] of the finite sizes of annotations that
// define one, or [-Inf, +Inf] when none does.
func (s *Source) SizeRange() [2]float64 { return s.sizeRange }

// AnnotationsForSegment returns the sorted ids of annotations linked to seg.
func (s *Source) AnnotationsForSegment(seg annotation.SegmentID) []string {
	ids := make([]string, 0, len(s.segments[seg]))
	for id := range s.segments[seg] {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Add inserts a copy of a and returns a retained reference to it. An empty id
// is replaced by a generated one. With commit false the annotation is
// pending: it is drawn but excluded from ToPersistable until committed.
func (s *Source) Add(a annotation.Annotation, commit bool) (*Reference, error) {
	if a == nil {
		return nil, ErrNilAnnotation
	}
	a = a.Clone()
	m := a.Meta()
	if m.ID == "" {
		m.ID = s.newID()
	}
	if _, ok := s.annotations[m.ID]; ok {
		return nil, &ErrDuplicateID{ID: m.ID}
	}

	s.annotations[m.ID] = a
	s.indexSegments(a)
	s.extendSizeRange(a)
	if !commit {
		s.pending[m.ID] = struct{}{}
	}
	s.generation++

	// A reference detached by Delete(ref, false) or tombstoned earlier
	// re-attaches to the new value.
	if ref, ok := s.references[m.ID]; ok {
		ref.set(a)
	}
	s.ChildAdded.Dispatch(a)
	s.Changed.Dispatch(signal.Void{})

	s.logger.Debug("annotation added", "id", m.ID, "type", a.Type().String(), "pending", !commit)
	return s.GetReference(m.ID), nil
}

// Commit clears the pending status of the referenced annotation. It is a
// no-op if the annotation is not pending.
func (s *Source) Commit(ref *Reference) {
	if _, ok := s.pending[ref.id]; !ok {
		return
	}
	delete(s.pending, ref.id)
	s.generation++
	s.ChildCommitted.Dispatch(ref.id)
	s.Changed.Dispatch(signal.Void{})
}

// Update replaces the referenced annotation with a copy of a. The id of a is
// forced to the reference's id.
func (s *Source) Update(ref *Reference, a annotation.Annotation) error {
	if a == nil {
		return ErrNilAnnotation
	}
	if ref.state == StateTombstoned {
		return &ErrAlreadyDeleted{ID: ref.id}
	}
	old, ok := s.annotations[ref.id]
	if !ok {
		return &ErrAlreadyDeleted{ID: ref.id}
	}

	a = a.Clone()
	a.Meta().ID = ref.id
	s.annotations[ref.id] = a
	s.unindexSegments(old)
	s.indexSegments(a)
	s.updateSizeRange(old, a)
	s.generation++

	ref.set(a)
	s.ChildUpdated.Dispatch(a)
	s.Changed.Dispatch(signal.Void{})
	return nil
}

// Delete removes the referenced annotation. It is a no-op if the reference
// is already tombstoned. With nullify true the reference is tombstoned;
// otherwise it stays StatePresent with its last value, detached from the
// store, and re-attaches if the same id is added again. Either way the
// reference's Changed fires.
func (s *Source) Delete(ref *Reference, nullify bool) {
	if ref.state == StateTombstoned {
		return
	}
	old, ok := s.annotations[ref.id]
	if !ok {
		if nullify {
			ref.tombstone()
		}
		return
	}

	delete(s.annotations, ref.id)
	delete(s.pending, ref.id)
	s.unindexSegments(old)
	s.recomputeSizeRange()
	s.generation++

	if nullify {
		ref.tombstone()
	} else {
		ref.Changed.Dispatch(signal.Void{})
	}
	s.ChildDeleted.Dispatch(ref.id)
	s.Changed.Dispatch(signal.Void{})
}

// GetReference returns the shared reference for id with one more holder.
// A reference to an id that is not stored is tombstoned.
func (s *Source) GetReference(id string) *Reference {
	if ref, ok := s.references[id]; ok {
		return ref.Retain()
	}
	ref := newReference(s, id)
	s.references[id] = ref
	if a, ok := s.annotations[id]; ok {
		ref.value = a
		ref.state = StatePresent
	} else {
		ref.state = StateTombstoned
	}
	return ref
}

// Clear removes every annotation and tombstones every live reference.
func (s *Source) Clear() {
	s.annotations = make(map[string]annotation.Annotation)
	s.pending = make(map[string]struct{})
	s.segments = make(map[annotation.SegmentID]map[string]struct{})
	s.recomputeSizeRange()
	s.generation++

	for _, ref := range s.sortedReferences() {
		if ref.state != StateTombstoned {
			ref.tombstone()
		}
	}
	s.Changed.Dispatch(signal.Void{})
}

// ToPersistable returns the persisted form of every committed annotation,
// ordered by id.
func (s *Source) ToPersistable() []annotation.Plain {
	ids := make([]string, 0, len(s.annotations))
	for id := range s.annotations {
		if _, pending := s.pending[id]; !pending {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	out := make([]annotation.Plain, len(ids))
	for i, id := range ids {
		out[i] = annotation.ToPlain(s.annotations[id])
	}
	return out
}

func (s *Source) sortedReferences() []*Reference {
	refs := make([]*Reference, 0, len(s.references))
	for _, ref := range s.references {
		refs = append(refs, ref)
	}
	slices.SortFunc(refs, func(a, b *Reference) int { return strings.Compare(a.id, b.id) })
	return refs
}

func (s *Source) indexSegments(a annotation.Annotation) {
	m := a.Meta()
	for _, seg := range m.Segments {
		set, ok := s.segments[seg]
		if !ok {
			set = make(map[string]struct{})
			s.segments[seg] = set
		}
		set[m.ID] = struct{}{}
	}
}

func (s *Source) unindexSegments(a annotation.Annotation) {
	m := a.Meta()
	for _, seg := range m.Segments {
		if set, ok := s.segments[seg]; ok {
			delete(set, m.ID)
			if len(set) == 0 {
				delete(s.segments, seg)
			}
		}
	}
}

func emptySizeRange() [2]float64 {
	return [2]float64{math.Inf(-1), math.Inf(1)}
}

func (s *Source) extendSizeRange(a annotation.Annotation) {
	size := a.Meta().Size
	if size == nil || math.IsNaN(*size) || math.IsInf(*size, 0) {
		return
	}
	if !s.hasSize {
		s.sizeRange = [2]float64{*size, *size}
		s.hasSize = true
		return
	}
	s.sizeRange[0] = min(s.sizeRange[0], *size)
	s.sizeRange[1] = max(s.sizeRange[1], *size)
}

// updateSizeRange rescans only when the replaced value may have defined a bound.
func (s *Source) updateSizeRange(old, a annotation.Annotation) {
	if size := old.Meta().Size; size != nil && (*size == s.sizeRange[0] || *size == s.sizeRange[1]) {
		s.recomputeSizeRange()
		return
	}
	s.extendSizeRange(a)
}

// recomputeSizeRange is a full O(n) rescan; a removal can move either bound.
func (s *Source) recomputeSizeRange() {
	s.sizeRange = emptySizeRange()
	s.hasSize = false
	for _, a := range s.annotations {
		s.extendSizeRange(a)
	}
}
