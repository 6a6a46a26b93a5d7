package chunk

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hupe1980/annostore/cache"
	"github.com/hupe1980/annostore/resource"
	"github.com/hupe1980/annostore/serialize"
	"github.com/hupe1980/annostore/signal"
)

// DefaultCapacity is the default byte budget of retained chunks.
const DefaultCapacity = 64 << 20

type options struct {
	logger   *slog.Logger
	capacity int64
	rc       *resource.Controller
	wake     func()
}

// Option configures a Manager.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithCapacity sets the byte budget of retained chunks.
func WithCapacity(bytes int64) Option {
	return func(o *options) {
		if bytes > 0 {
			o.capacity = bytes
		}
	}
}

// WithMemoryController charges retained chunks against rc.
func WithMemoryController(rc *resource.Controller) Option {
	return func(o *options) { o.rc = rc }
}

// WithWakeup sets a function called from the delivering goroutine after
// each arrival, typically to schedule a Flush on the render loop.
func WithWakeup(fn func()) Option {
	return func(o *options) { o.wake = fn }
}

// Ticket identifies one outstanding request for a key.
type Ticket struct {
	Key Key
	ID  uint64
}

type arrival struct {
	ticket Ticket
	data   *serialize.Serialized
	err    error
}

type inflightFetch struct {
	id     uint64
	cancel context.CancelFunc
}

// Manager tracks the wanted chunks, fetches them, and retains arrived ones
// in a byte-bounded LRU.
//
// Request, Flush and the signals belong to the render loop. Deliver may be
// called from any goroutine. Chunk and IsReady are safe everywhere.
type Manager struct {
	fetcher Fetcher
	logger  *slog.Logger
	wake    func()
	cache   *cache.LRU[Key, *serialize.Serialized]

	wanted   map[Key]uint64
	inflight map[Key]inflightFetch
	nextID   uint64
	evicted  []Key
	dropped  int

	mu    sync.Mutex
	queue []arrival

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	ready   signal.Signal[Key]
	evictSg signal.Signal[Key]
}

// NewManager creates a manager fetching through f. With a nil f, chunks are
// only delivered through Deliver.
func NewManager(f Fetcher, optFns ...Option) *Manager {
	o := options{
		logger:   slog.New(slog.DiscardHandler),
		capacity: DefaultCapacity,
	}
	for _, fn := range optFns {
		fn(&o)
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		fetcher:  f,
		logger:   o.logger,
		wake:     o.wake,
		wanted:   make(map[Key]uint64),
		inflight: make(map[Key]inflightFetch),
		ctx:      ctx,
		cancel:   cancel,
	}
	m.cache = cache.New[Key, *serialize.Serialized](o.capacity,
		cache.WithCost[Key](chunkCost),
		cache.WithOnEvict(func(k Key, _ *serialize.Serialized) { m.evicted = append(m.evicted, k) }),
		cache.WithResourceController[Key, *serialize.Serialized](o.rc),
	)
	return m
}

func chunkCost(s *serialize.Serialized) int64 {
	// Metadata is approximated per instance.
	return int64(len(s.Data)) + 48*int64(s.Len())
}

// Ready fires on the render loop with each key whose chunk became available.
func (m *Manager) Ready() *signal.Signal[Key] { return &m.ready }

// Evicted fires on the render loop with each key whose chunk was dropped
// from the cache.
func (m *Manager) Evicted() *signal.Signal[Key] { return &m.evictSg }

// Request replaces the set of wanted keys and starts fetches for those that
// are neither cached nor already requested. Fetches for keys no longer
// wanted are canceled and their arrivals dropped.
func (m *Manager) Request(keys ...Key) {
	next := make(map[Key]uint64, len(keys))
	for _, k := range keys {
		if _, dup := next[k]; dup {
			continue
		}
		if id, ok := m.wanted[k]; ok {
			next[k] = id
			continue
		}
		m.nextID++
		next[k] = m.nextID
		if !m.cache.Contains(k) {
			m.startFetch(Ticket{Key: k, ID: m.nextID})
		}
	}
	for k, f := range m.inflight {
		if _, ok := next[k]; !ok {
			f.cancel()
			delete(m.inflight, k)
		}
	}
	m.wanted = next
}

func (m *Manager) startFetch(t Ticket) {
	if m.fetcher == nil {
		return
	}
	ctx, cancel := context.WithCancel(m.ctx)
	m.inflight[t.Key] = inflightFetch{id: t.ID, cancel: cancel}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		s, err := m.fetcher.Fetch(ctx, t.Key)
		m.Deliver(t, s, err)
	}()
}

// Pending returns the tickets of wanted keys that are not cached, for
// external schedulers delivering through Deliver.
func (m *Manager) Pending() []Ticket {
	var out []Ticket
	for k, id := range m.wanted {
		if !m.cache.Contains(k) {
			out = append(out, Ticket{Key: k, ID: id})
		}
	}
	return out
}

// Deliver queues the result of fetching t. It is safe for concurrent use.
func (m *Manager) Deliver(t Ticket, data *serialize.Serialized, err error) {
	m.mu.Lock()
	m.queue = append(m.queue, arrival{ticket: t, data: data, err: err})
	m.mu.Unlock()
	if m.wake != nil {
		m.wake()
	}
}

// Flush applies queued arrivals and returns how many chunks became
// available. Arrivals whose ticket no longer matches the wanted key are
// dropped; failed fetches are retried by the next Request.
func (m *Manager) Flush() int {
	m.mu.Lock()
	queue := m.queue
	m.queue = nil
	m.mu.Unlock()

	var ready []Key
	for _, a := range queue {
		k := a.ticket.Key
		if f, ok := m.inflight[k]; ok && f.id == a.ticket.ID {
			f.cancel()
			delete(m.inflight, k)
		}
		if id, ok := m.wanted[k]; !ok || id != a.ticket.ID {
			m.dropped++
			m.logger.Warn("dropped stale chunk", "key", string(k), "ticket", a.ticket.ID)
			continue
		}
		err := a.err
		if err == nil && a.data == nil {
			err = errNilChunk
		}
		if err == nil {
			err = a.data.Validate()
		}
		if err != nil {
			delete(m.wanted, k)
			m.logger.Warn("chunk fetch failed", "key", string(k), "error", err)
			continue
		}
		if !m.cache.Set(k, a.data) {
			m.logger.Warn("chunk exceeds cache budget", "key", string(k), "bytes", len(a.data.Data))
			continue
		}
		ready = append(ready, k)
	}

	evicted := m.evicted
	m.evicted = nil
	for _, k := range evicted {
		// A wanted chunk that was evicted is fetched again on the next Request.
		delete(m.wanted, k)
		m.evictSg.Dispatch(k)
	}

	applied := 0
	for _, k := range ready {
		if m.cache.Contains(k) {
			applied++
			m.logger.Debug("chunk ready", "key", string(k))
			m.ready.Dispatch(k)
		}
	}
	return applied
}

// Chunk returns the retained chunk of key.
func (m *Manager) Chunk(key Key) (*serialize.Serialized, bool) {
	return m.cache.Get(key)
}

// IsReady reports whether every key is retained.
func (m *Manager) IsReady(keys ...Key) bool {
	for _, k := range keys {
		if !m.cache.Contains(k) {
			return false
		}
	}
	return true
}

// Dropped returns how many stale arrivals Flush discarded.
func (m *Manager) Dropped() int { return m.dropped }

// Close cancels outstanding fetches and waits for them to return.
func (m *Manager) Close() error {
	m.cancel()
	m.wg.Wait()
	return nil
}
