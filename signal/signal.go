// Package signal provides synchronous, ordered observer registries.
//
// A Signal delivers each dispatched value to its handlers on the calling
// goroutine, in registration order. Handlers added during a dispatch are
// not called until the next one; handlers disposed during a dispatch are
// skipped if they have not run yet.
//
// Signals are not safe for concurrent use; they belong to the goroutine
// that owns the emitting object.
package signal

// Signal is a registry of handlers receiving values of type T.
// The zero value is ready to use.
type Signal[T any] struct {
	handlers []*entry[T]
}

type entry[T any] struct {
	fn       func(T)
	disposed bool
}

// Token removes its handler from the signal it was added to.
type Token struct {
	dispose func()
}

// Dispose unregisters the handler. It is safe to call more than once and on
// a nil token.
func (t *Token) Dispose() {
	if t == nil || t.dispose == nil {
		return
	}
	t.dispose()
	t.dispose = nil
}

// Add registers fn and returns the token that removes it.
func (s *Signal[T]) Add(fn func(T)) *Token {
	e := &entry[T]{fn: fn}
	s.handlers = append(s.handlers, e)
	return &Token{dispose: func() { s.remove(e) }}
}

func (s *Signal[T]) remove(e *entry[T]) {
	e.disposed = true
	for i, h := range s.handlers {
		if h == e {
			// Copy so an in-flight Dispatch keeps iterating its own snapshot.
			next := make([]*entry[T], 0, len(s.handlers)-1)
			next = append(next, s.handlers[:i]...)
			s.handlers = append(next, s.handlers[i+1:]...)
			return
		}
	}
}

// Dispatch calls every registered handler with v.
func (s *Signal[T]) Dispatch(v T) {
	for _, e := range s.handlers {
		if !e.disposed {
			e.fn(v)
		}
	}
}

// Len returns the number of registered handlers.
func (s *Signal[T]) Len() int { return len(s.handlers) }

// Void is the payload of signals that carry no value.
type Void = struct{}

// Notify is a signal without payload.
type Notify = Signal[Void]
