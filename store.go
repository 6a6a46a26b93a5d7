package annostore

import (
	"context"
	"time"

	"github.com/hupe1980/annostore/annotation"
	"github.com/hupe1980/annostore/persistence"
	"github.com/hupe1980/annostore/render"
	"github.com/hupe1980/annostore/serialize"
	"github.com/hupe1980/annostore/source"
)

// Store is an annotation store with serialization, persistence, logging and
// metrics. Like the underlying source.Source it is not safe for concurrent
// use; mutations, serialization and drawing run on one goroutine.
type Store struct {
	src     *source.Source
	buf     *serialize.Buffer
	pm      *persistence.Manager
	logger  *Logger
	metrics MetricsCollector
	closed  bool
}

// New creates an empty store.
func New(optFns ...Option) (*Store, error) {
	o := applyOptions(optFns)

	srcOpts := []source.Option{source.WithLogger(o.logger.Logger), source.WithCodec(o.codec)}
	if o.newID != nil {
		srcOpts = append(srcOpts, source.WithIDGenerator(o.newID))
	}
	src := source.New(srcOpts...)

	s := &Store{
		src:     src,
		buf:     serialize.NewBuffer(src, serialize.WithLogger(o.logger.Logger)),
		logger:  o.logger,
		metrics: o.metricsCollector,
	}

	if o.store != nil {
		pm, err := persistence.NewManager(persistence.ManagerOptions{
			Store:       o.store,
			Prefix:      o.prefix,
			Codec:       o.codec,
			Compression: o.compression,
			Logger:      o.logger.Logger,
		})
		if err != nil {
			return nil, err
		}
		s.pm = pm
	}
	return s, nil
}

// Source returns the underlying annotation source, e.g. to subscribe to its
// signals.
func (s *Store) Source() *source.Source { return s.src }

// Len returns the number of stored annotations, pending ones included.
func (s *Store) Len() int { return s.src.Len() }

// Add inserts a copy of a. See source.Source.Add.
func (s *Store) Add(ctx context.Context, a annotation.Annotation, commit bool) (*source.Reference, error) {
	if s.closed {
		return nil, ErrClosed
	}
	start := time.Now()
	ref, err := s.src.Add(a, commit)
	s.metrics.RecordAdd(time.Since(start), err)

	var id, typ string
	if a != nil {
		id, typ = a.Meta().ID, a.Type().String()
	}
	if ref != nil {
		id = ref.ID()
	}
	s.logger.LogAdd(ctx, id, typ, !commit, err)
	return ref, translateError(err)
}

// Commit clears the pending status of the referenced annotation.
func (s *Store) Commit(ref *source.Reference) {
	s.src.Commit(ref)
}

// Update replaces the referenced annotation with a copy of a.
func (s *Store) Update(ctx context.Context, ref *source.Reference, a annotation.Annotation) error {
	if s.closed {
		return ErrClosed
	}
	start := time.Now()
	err := s.src.Update(ref, a)
	s.metrics.RecordUpdate(time.Since(start), err)
	s.logger.LogUpdate(ctx, ref.ID(), err)
	return translateError(err)
}

// Delete removes the referenced annotation. See source.Source.Delete for
// the meaning of nullify.
func (s *Store) Delete(ctx context.Context, ref *source.Reference, nullify bool) error {
	if s.closed {
		return ErrClosed
	}
	start := time.Now()
	s.src.Delete(ref, nullify)
	s.metrics.RecordDelete(time.Since(start), nil)
	s.logger.LogDelete(ctx, ref.ID(), nullify)
	return nil
}

// Reference returns the shared reference for id. Callers Dispose it when
// done.
func (s *Store) Reference(id string) *source.Reference {
	return s.src.GetReference(id)
}

// Get returns the stored annotation with id.
func (s *Store) Get(id string) (annotation.Annotation, error) {
	a, ok := s.src.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return a, nil
}

// AnnotationsForSegment returns the ids of annotations linked to seg.
func (s *Store) AnnotationsForSegment(seg annotation.SegmentID) []string {
	return s.src.AnnotationsForSegment(seg)
}

// Clear removes every annotation and tombstones every live reference.
func (s *Store) Clear() {
	s.src.Clear()
}

// Serialize returns the packed form of the current annotations. The result
// is shared and rebuilt only after a mutation.
func (s *Store) Serialize() *serialize.Serialized {
	start := time.Now()
	builds := s.buf.Builds()
	out := s.buf.Update()
	if s.buf.Builds() != builds {
		s.metrics.RecordSerialize(out.Len(), len(out.Data), time.Since(start))
	}
	return out
}

// ToPersistable returns the committed annotations in persisted form.
func (s *Store) ToPersistable() []annotation.Plain {
	return s.src.ToPersistable()
}

// RestoreState replaces the contents with a persisted payload.
func (s *Store) RestoreState(ctx context.Context, payload []byte) (source.RestoreResult, error) {
	if s.closed {
		return source.RestoreResult{}, ErrClosed
	}
	start := time.Now()
	res, err := s.src.RestoreState(payload)
	s.recordRestore(ctx, res, time.Since(start), err)
	return res, translateError(err)
}

func (s *Store) recordRestore(ctx context.Context, res source.RestoreResult, d time.Duration, err error) {
	s.metrics.RecordRestore(res.Restored, len(res.Skipped), d, err)
	s.logger.LogRestore(ctx, res.Restored, len(res.Skipped), s.src.Generation(), err)
}

// Save writes the committed annotations as snapshot name.
func (s *Store) Save(ctx context.Context, name string) error {
	if s.closed {
		return ErrClosed
	}
	if s.pm == nil {
		return ErrNoPersistence
	}
	err := s.pm.Save(ctx, name, s.src)
	s.logger.LogSave(ctx, name, err)
	return translateError(err)
}

// Load replaces the contents with snapshot name. A missing snapshot yields
// an error matching ErrNotFound and leaves the store untouched.
func (s *Store) Load(ctx context.Context, name string) (source.RestoreResult, error) {
	if s.closed {
		return source.RestoreResult{}, ErrClosed
	}
	if s.pm == nil {
		return source.RestoreResult{}, ErrNoPersistence
	}
	start := time.Now()
	res, err := s.pm.Load(ctx, name, s.src)
	s.recordRestore(ctx, res, time.Since(start), err)
	return res, translateError(err)
}

// Snapshots lists the saved snapshot names.
func (s *Store) Snapshots(ctx context.Context) ([]string, error) {
	if s.pm == nil {
		return nil, ErrNoPersistence
	}
	names, err := s.pm.List(ctx)
	return names, translateError(err)
}

// NewLayer creates a render layer drawing the store's annotations. The
// store's logger is used unless opts override it.
func (s *Store) NewLayer(device render.Device, picks render.PickAllocator, drawer render.Drawer, opts ...render.LayerOption) *render.Layer {
	opts = append([]render.LayerOption{render.WithLogger(s.logger.Logger)}, opts...)
	return render.NewLayer(s.src, device, picks, drawer, opts...)
}

// Close releases the persistence manager. The blob store is owned by the
// caller. Close is idempotent.
func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.pm != nil {
		return s.pm.Close()
	}
	return nil
}
