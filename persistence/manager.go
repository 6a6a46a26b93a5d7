package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sync"

	"github.com/hupe1980/annostore/annotation"
	"github.com/hupe1980/annostore/blobstore"
	"github.com/hupe1980/annostore/codec"
	"github.com/hupe1980/annostore/internal/compress"
	"github.com/hupe1980/annostore/source"
)

var (
	// ErrManagerClosed is returned when operations are attempted on a closed manager.
	ErrManagerClosed = errors.New("persistence manager is closed")

	// ErrNoStore is returned by NewManager without a blob store.
	ErrNoStore = errors.New("blob store not configured")
)

// Snapshotable produces the plain-form annotations to persist.
type Snapshotable interface {
	ToPersistable() []annotation.Plain
}

// SnapshotLoader replaces its state with a snapshot payload decoded by c.
type SnapshotLoader interface {
	RestoreStateWith(c codec.Codec, payload []byte) (source.RestoreResult, error)
}

// ManagerOptions configures the persistence manager.
type ManagerOptions struct {
	// Store holds the snapshot blobs (required).
	Store blobstore.BlobStore

	// Prefix is prepended to every snapshot name, e.g. "snapshots".
	Prefix string

	// Codec is used for encoding snapshot payloads. Defaults to codec.Default.
	Codec codec.Codec

	// Compression is the block compression of new snapshots. Defaults to none.
	Compression compress.Type

	// Logger receives lifecycle logs. Defaults to a discarding logger.
	Logger *slog.Logger
}

// Manager saves and loads snapshots of annotation sources.
//
// The Manager is thread-safe. The sources passed to Save and Load are not;
// callers run them on the goroutine that owns the source.
type Manager struct {
	store       blobstore.BlobStore
	prefix      string
	codec       codec.Codec
	compression compress.Type
	logger      *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewManager creates a new persistence manager with the given options.
func NewManager(opts ManagerOptions) (*Manager, error) {
	if opts.Store == nil {
		return nil, ErrNoStore
	}
	pm := &Manager{
		store:       opts.Store,
		prefix:      opts.Prefix,
		codec:       opts.Codec,
		compression: opts.Compression,
		logger:      opts.Logger,
	}
	if pm.codec == nil {
		pm.codec = codec.Default
	}
	if pm.logger == nil {
		pm.logger = slog.New(slog.DiscardHandler)
	}
	if _, ok := codec.ByName(pm.codec.Name()); !ok {
		return nil, fmt.Errorf("persistence: %w: %q", ErrUnknownCodec, pm.codec.Name())
	}
	if _, err := compress.Block(nil, pm.compression); err != nil {
		return nil, fmt.Errorf("persistence: %w", err)
	}
	return pm, nil
}

// Codec returns the configured codec.
func (pm *Manager) Codec() codec.Codec { return pm.codec }

func (pm *Manager) blobName(name string) string {
	if pm.prefix == "" {
		return name
	}
	return path.Join(pm.prefix, name)
}

func (pm *Manager) checkOpen() error {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	if pm.closed {
		return ErrManagerClosed
	}
	return nil
}

// Encode builds a snapshot blob from plain-form annotations.
func Encode(entries []annotation.Plain, c codec.Codec, t compress.Type) ([]byte, error) {
	if entries == nil {
		entries = []annotation.Plain{}
	}
	payload, err := c.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("persistence: encode payload: %w", err)
	}
	block, err := compress.Block(payload, t)
	if err != nil {
		return nil, fmt.Errorf("persistence: compress payload: %w", err)
	}

	h := FileHeader{
		Compression: uint8(t),
		Count:       uint64(len(entries)),
		BlockSize:   uint64(len(block)),
		Checksum:    CalculateChecksum(block),
	}
	if err := h.SetCodecName(c.Name()); err != nil {
		return nil, err
	}
	hb, err := h.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return append(hb, block...), nil
}

// Decode validates a snapshot blob and returns its header and the
// uncompressed payload. The payload is encoded with the codec named by
// the header.
func Decode(data []byte) (*FileHeader, []byte, error) {
	h, err := ReadFileHeader(data)
	if err != nil {
		return nil, nil, err
	}
	if _, ok := codec.ByName(h.CodecName()); !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownCodec, h.CodecName())
	}
	block := data[HeaderSize:]
	if uint64(len(block)) != h.BlockSize {
		return nil, nil, fmt.Errorf("persistence: block size %d, header says %d", len(block), h.BlockSize)
	}
	if err := VerifyChecksum(block, h.Checksum); err != nil {
		return nil, nil, err
	}
	payload, _, err := compress.Unblock(block, h.CompressionType())
	if err != nil {
		return nil, nil, fmt.Errorf("persistence: decompress payload: %w", err)
	}
	return h, payload, nil
}

// Save writes the committed annotations of src as snapshot name.
func (pm *Manager) Save(ctx context.Context, name string, src Snapshotable) error {
	if err := pm.checkOpen(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	entries := src.ToPersistable()
	data, err := Encode(entries, pm.codec, pm.compression)
	if err != nil {
		return err
	}
	if err := pm.store.Put(ctx, pm.blobName(name), data); err != nil {
		return fmt.Errorf("persistence: snapshot %s failed: %w", name, err)
	}

	pm.logger.Info("snapshot saved", "name", name, "count", len(entries), "bytes", len(data),
		"codec", pm.codec.Name(), "compression", pm.compression.String())
	return nil
}

// Load reads snapshot name and restores it into dst.
//
// A missing snapshot yields an error satisfying errors.Is(err,
// blobstore.ErrNotFound); dst is left untouched on every error.
func (pm *Manager) Load(ctx context.Context, name string, dst SnapshotLoader) (source.RestoreResult, error) {
	if err := pm.checkOpen(); err != nil {
		return source.RestoreResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return source.RestoreResult{}, err
	}

	data, err := blobstore.ReadAll(ctx, pm.store, pm.blobName(name))
	if err != nil {
		return source.RestoreResult{}, fmt.Errorf("persistence: snapshot %s: %w", name, err)
	}
	h, payload, err := Decode(data)
	if err != nil {
		return source.RestoreResult{}, fmt.Errorf("persistence: snapshot %s: %w", name, err)
	}
	if err := ctx.Err(); err != nil {
		return source.RestoreResult{}, err
	}

	c, _ := codec.ByName(h.CodecName())
	res, err := dst.RestoreStateWith(c, payload)
	if err != nil {
		return res, fmt.Errorf("persistence: snapshot %s load failed: %w", name, err)
	}
	pm.logger.Info("snapshot loaded", "name", name, "count", res.Restored,
		"skipped", len(res.Skipped), "codec", h.CodecName())
	return res, nil
}

// List returns the names of the stored snapshots, without the prefix.
func (pm *Manager) List(ctx context.Context) ([]string, error) {
	if err := pm.checkOpen(); err != nil {
		return nil, err
	}
	prefix := ""
	if pm.prefix != "" {
		prefix = pm.prefix + "/"
	}
	names, err := pm.store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	for i, n := range names {
		names[i] = n[len(prefix):]
	}
	return names, nil
}

// Delete removes snapshot name. Deleting a missing snapshot is not an error.
func (pm *Manager) Delete(ctx context.Context, name string) error {
	if err := pm.checkOpen(); err != nil {
		return err
	}
	return pm.store.Delete(ctx, pm.blobName(name))
}

// Close shuts down the manager. The blob store is owned by the caller.
func (pm *Manager) Close() error {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.closed = true
	return nil
}
