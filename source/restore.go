package source

import (
	"encoding/json"

	"github.com/hupe1980/annostore/annotation"
	"github.com/hupe1980/annostore/codec"
	"github.com/hupe1980/annostore/signal"
)

// RestoreResult reports the outcome of a restore.
type RestoreResult struct {
	// Restored is the number of annotations now in the source.
	Restored int
	// Skipped holds one *SkippedEntryError per rejected entry, wrapping an
	// *annotation.ErrMalformed or an *ErrDuplicateID.
	Skipped []error
}

// SkippedEntryError wraps the rejection of one payload entry.
type SkippedEntryError struct {
	Index int
	Err   error
}

func (e *SkippedEntryError) Error() string { return e.Err.Error() }

func (e *SkippedEntryError) Unwrap() error { return e.Err }

// RestoreState replaces the contents of the source in place with the
// annotations of a persisted payload: a JSON array of annotation.Plain
// objects.
//
// A payload that is not an array fails with *annotation.ErrMalformed and
// leaves the source untouched. Individual malformed or duplicate entries are
// skipped and reported in the result. Live references are repointed to
// their new value or tombstoned; Changed fires once.
func (s *Source) RestoreState(payload []byte) (RestoreResult, error) {
	return s.RestoreStateWith(s.codec, payload)
}

// RestoreStateWith is RestoreState decoding payload with c, typically the
// codec recorded in a snapshot header.
func (s *Source) RestoreStateWith(c codec.Codec, payload []byte) (RestoreResult, error) {
	if c == nil {
		c = s.codec
	}
	var raw []json.RawMessage
	if err := c.Unmarshal(payload, &raw); err != nil {
		return RestoreResult{}, &annotation.ErrMalformed{Index: -1, Reason: "payload is not an array of annotations: " + err.Error()}
	}
	// null decodes into a nil slice without error.
	if raw == nil {
		return RestoreResult{}, &annotation.ErrMalformed{Index: -1, Reason: "payload is not an array of annotations"}
	}

	var skipped []error
	entries := make([]annotation.Plain, 0, len(raw))
	indices := make([]int, 0, len(raw))
	for i, r := range raw {
		var p annotation.Plain
		if err := c.Unmarshal(r, &p); err != nil {
			skipped = append(skipped, &SkippedEntryError{Index: i, Err: annotation.WithIndex(err, i)})
			continue
		}
		entries = append(entries, p)
		indices = append(indices, i)
	}

	res := s.restore(entries, indices)
	res.Skipped = append(skipped, res.Skipped...)
	for _, err := range res.Skipped {
		s.logger.Warn("skipped persisted annotation", "error", err)
	}
	s.logger.Info("annotations restored", "count", res.Restored, "skipped", len(res.Skipped), "generation", s.generation)
	return res, nil
}

// Restore is RestoreState for an already decoded payload.
func (s *Source) Restore(entries []annotation.Plain) RestoreResult {
	indices := make([]int, len(entries))
	for i := range indices {
		indices[i] = i
	}
	return s.restore(entries, indices)
}

func (s *Source) restore(entries []annotation.Plain, indices []int) RestoreResult {
	var res RestoreResult
	next := make(map[string]annotation.Annotation, len(entries))
	for i, p := range entries {
		a, err := annotation.FromPlain(p)
		if err != nil {
			res.Skipped = append(res.Skipped, &SkippedEntryError{Index: indices[i], Err: annotation.WithIndex(err, indices[i])})
			continue
		}
		id := a.Meta().ID
		if _, dup := next[id]; dup {
			res.Skipped = append(res.Skipped, &SkippedEntryError{Index: indices[i], Err: &ErrDuplicateID{ID: id}})
			continue
		}
		next[id] = a
	}

	s.annotations = next
	s.pending = make(map[string]struct{})
	s.segments = make(map[annotation.SegmentID]map[string]struct{})
	for _, a := range next {
		s.indexSegments(a)
	}
	s.recomputeSizeRange()
	s.generation++

	for _, ref := range s.sortedReferences() {
		if a, ok := next[ref.id]; ok {
			ref.set(a)
		} else if ref.state != StateTombstoned {
			ref.tombstone()
		}
	}
	s.Changed.Dispatch(signal.Void{})

	res.Restored = len(next)
	return res
}
