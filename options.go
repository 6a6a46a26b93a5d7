package annostore

import (
	"log/slog"

	"github.com/hupe1980/annostore/blobstore"
	"github.com/hupe1980/annostore/codec"
	"github.com/hupe1980/annostore/internal/compress"
)

// Compression selects the block compression of saved snapshots.
type Compression = compress.Type

const (
	// CompressionNone stores snapshots uncompressed.
	CompressionNone = compress.None
	// CompressionLZ4 favors speed.
	CompressionLZ4 = compress.LZ4
	// CompressionZSTD favors ratio.
	CompressionZSTD = compress.ZSTD
)

type options struct {
	codec            codec.Codec
	metricsCollector MetricsCollector
	logger           *Logger
	store            blobstore.BlobStore
	prefix           string
	compression      Compression
	newID            func() string
}

// Option configures a Store.
type Option func(*options)

// WithCodec configures the codec used for snapshot payloads.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithBlobStore enables Save and Load. Snapshots are stored under prefix.
//
// Example with S3:
//
//	s3Store, _ := s3.New(ctx, "my-bucket")
//	st, _ := annostore.New(annostore.WithBlobStore(s3Store, "annotations"))
func WithBlobStore(store blobstore.BlobStore, prefix string) Option {
	return func(o *options) {
		o.store = store
		o.prefix = prefix
	}
}

// WithCompression sets the compression of saved snapshots. Default is ZSTD.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithIDGenerator overrides how ids are assigned to annotations added
// without one.
func WithIDGenerator(fn func() string) Option {
	return func(o *options) {
		o.newID = fn
	}
}

// WithMetricsCollector configures metrics collection for operations.
// Pass nil to disable metrics (default).
//
// Example with BasicMetricsCollector:
//
//	metrics := &annostore.BasicMetricsCollector{}
//	st, _ := annostore.New(annostore.WithMetricsCollector(metrics))
//	// ... use st ...
//	stats := metrics.GetStats()
//	fmt.Printf("Adds: %d, Avg latency: %dns\n", stats.AddCount, stats.AddAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := annostore.NewJSONLogger(slog.LevelInfo)
//	st, _ := annostore.New(annostore.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		codec:            codec.Default,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		compression:      CompressionZSTD,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
