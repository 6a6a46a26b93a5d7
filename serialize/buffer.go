package serialize

import (
	"log/slog"

	"github.com/hupe1980/annostore/annotation"
)

// Provider is the annotation source a Buffer is built from.
type Provider interface {
	// Generation strictly increases with every mutation.
	Generation() uint64
	// ByType returns slices owned by the caller.
	ByType() [annotation.NumTypes][]annotation.Annotation
}

// Filter reports whether an annotation is packed. A nil Filter keeps all.
type Filter func(annotation.Annotation) bool

// SegmentFilter keeps annotations linked to at least one visible segment.
// visible receives the raw segment id; callers resolve equivalences inside
// it. Annotations without segments are excluded.
func SegmentFilter(visible func(annotation.SegmentID) bool) Filter {
	return func(a annotation.Annotation) bool {
		for _, seg := range a.Meta().Segments {
			if visible(seg) {
				return true
			}
		}
		return false
	}
}

type bufferOptions struct {
	logger *slog.Logger
	filter Filter
}

// Option configures a Buffer.
type Option func(*bufferOptions)

// WithLogger sets the logger used for rebuild diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *bufferOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithFilter sets the initial filter.
func WithFilter(f Filter) Option {
	return func(o *bufferOptions) { o.filter = f }
}

// Buffer memoizes the serialized form of a Provider. It rebuilds only when
// the provider generation has advanced or the buffer was invalidated.
type Buffer struct {
	provider Provider
	filter   Filter
	logger   *slog.Logger

	current *Serialized
	builtAt uint64
	valid   bool
	builds  int
}

// NewBuffer creates a buffer over p. Nothing is serialized until Update.
func NewBuffer(p Provider, optFns ...Option) *Buffer {
	o := bufferOptions{logger: slog.New(slog.DiscardHandler)}
	for _, fn := range optFns {
		fn(&o)
	}
	return &Buffer{provider: p, filter: o.filter, logger: o.logger}
}

// SetFilter replaces the filter and invalidates the buffer.
func (b *Buffer) SetFilter(f Filter) {
	b.filter = f
	b.valid = false
}

// Invalidate forces the next Update to rebuild, e.g. after the inputs of
// the filter changed.
func (b *Buffer) Invalidate() { b.valid = false }

// Update returns the serialized form of the current provider state,
// rebuilding it if needed.
func (b *Buffer) Update() *Serialized {
	gen := b.provider.Generation()
	if b.valid && b.current != nil && gen == b.builtAt {
		return b.current
	}

	byType := b.provider.ByType()
	if b.filter != nil {
		for t := range byType {
			kept := byType[t][:0]
			for _, a := range byType[t] {
				if b.filter(a) {
					kept = append(kept, a)
				}
			}
			byType[t] = kept
		}
	}

	s := Serialize(byType)
	s.Generation = gen
	b.current = s
	b.builtAt = gen
	b.valid = true
	b.builds++

	b.logger.Debug("annotation buffer rebuilt",
		"generation", gen, "count", s.Len(), "bytes", len(s.Data), "pick_ids", s.TotalPickIDs)
	return s
}

// Current returns the last built buffer without checking for staleness, or
// nil before the first Update.
func (b *Buffer) Current() *Serialized { return b.current }

// Builds returns how many times the buffer has been rebuilt.
func (b *Buffer) Builds() int { return b.builds }
