package chunk

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/annostore/blobstore"
	"github.com/hupe1980/annostore/internal/compress"
	"github.com/hupe1980/annostore/resource"
	"github.com/hupe1980/annostore/serialize"
)

// BlobPrefix is the blob name prefix of encoded chunks.
const BlobPrefix = "chunk/"

// Fetcher loads one chunk. Implementations must be safe for concurrent use
// and should return promptly when ctx is canceled.
type Fetcher interface {
	Fetch(ctx context.Context, key Key) (*serialize.Serialized, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, key Key) (*serialize.Serialized, error)

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context, key Key) (*serialize.Serialized, error) {
	return f(ctx, key)
}

// BlobFetcherOption configures a BlobFetcher.
type BlobFetcherOption func(*BlobFetcher)

// WithResourceController bounds concurrent fetches and read bandwidth.
func WithResourceController(rc *resource.Controller) BlobFetcherOption {
	return func(f *BlobFetcher) { f.rc = rc }
}

// WithCompression sets the compression used by Publish. Default is LZ4.
func WithCompression(t compress.Type) BlobFetcherOption {
	return func(f *BlobFetcher) { f.compression = t }
}

// WithParallelism sets how many fetches FetchAll runs at once. Default is 8.
func WithParallelism(n int) BlobFetcherOption {
	return func(f *BlobFetcher) {
		if n > 0 {
			f.parallelism = n
		}
	}
}

// BlobFetcher reads encoded chunks from a blob store.
type BlobFetcher struct {
	store       blobstore.BlobStore
	rc          *resource.Controller
	compression compress.Type
	parallelism int
}

var _ Fetcher = (*BlobFetcher)(nil)

// NewBlobFetcher creates a fetcher reading BlobPrefix+key from store.
func NewBlobFetcher(store blobstore.BlobStore, optFns ...BlobFetcherOption) *BlobFetcher {
	f := &BlobFetcher{store: store, compression: compress.LZ4, parallelism: 8}
	for _, fn := range optFns {
		fn(f)
	}
	return f
}

// Fetch implements Fetcher.
func (f *BlobFetcher) Fetch(ctx context.Context, key Key) (*serialize.Serialized, error) {
	if err := f.rc.AcquireFetch(ctx); err != nil {
		return nil, err
	}
	defer f.rc.ReleaseFetch()

	name := BlobPrefix + string(key)
	b, err := f.store.Open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", key, err)
	}
	defer func() { _ = b.Close() }()

	if err := f.rc.AcquireIO(ctx, int(b.Size())); err != nil {
		return nil, err
	}
	data, err := blobstore.ReadBlob(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", key, err)
	}
	s, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", key, err)
	}
	return s, nil
}

// FetchAll fetches keys in parallel. It fails with the first error.
func (f *BlobFetcher) FetchAll(ctx context.Context, keys []Key) (map[Key]*serialize.Serialized, error) {
	results := make([]*serialize.Serialized, len(keys))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.parallelism)
	for i, key := range keys {
		g.Go(func() error {
			s, err := f.Fetch(ctx, key)
			if err != nil {
				return err
			}
			results[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[Key]*serialize.Serialized, len(keys))
	for i, key := range keys {
		out[key] = results[i]
	}
	return out, nil
}

// Publish encodes s and stores it as the chunk of key.
func (f *BlobFetcher) Publish(ctx context.Context, key Key, s *serialize.Serialized) error {
	data, err := Encode(s, f.compression)
	if err != nil {
		return fmt.Errorf("chunk %s: %w", key, err)
	}
	return f.store.Put(ctx, BlobPrefix+string(key), data)
}
