package annostore

import (
	"errors"
	"fmt"

	"github.com/hupe1980/annostore/annotation"
	"github.com/hupe1980/annostore/blobstore"
	"github.com/hupe1980/annostore/persistence"
	"github.com/hupe1980/annostore/render"
	"github.com/hupe1980/annostore/source"
)

var (
	// ErrNotFound is returned when an annotation or snapshot does not exist.
	ErrNotFound = errors.New("not found")

	// ErrClosed is returned when operations are attempted on a closed store.
	ErrClosed = errors.New("store is closed")

	// ErrNoPersistence is returned by Save and Load on a store without a blob store.
	ErrNoPersistence = errors.New("persistence not configured")

	// ErrNilAnnotation is returned when a nil annotation is passed to a mutation.
	ErrNilAnnotation = source.ErrNilAnnotation
)

// ErrPickOffsetOutOfRange indicates a picked offset beyond the pick ids of a
// buffer.
type ErrPickOffsetOutOfRange = render.ErrPickOffsetOutOfRange

// ErrDuplicateID indicates an add with an id that already exists.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDuplicateID struct {
	ID    string
	cause error
}

func (e *ErrDuplicateID) Error() string {
	return fmt.Sprintf("duplicate annotation id %q", e.ID)
}

func (e *ErrDuplicateID) Unwrap() error { return e.cause }

// ErrAlreadyDeleted indicates a mutation through a reference whose
// annotation has been deleted.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrAlreadyDeleted struct {
	ID    string
	cause error
}

func (e *ErrAlreadyDeleted) Error() string {
	return fmt.Sprintf("annotation %q already deleted", e.ID)
}

func (e *ErrAlreadyDeleted) Unwrap() error { return e.cause }

// ErrMalformed indicates persisted data that fails validation. Index is -1
// when the payload as a whole is malformed.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrMalformed struct {
	Index  int
	Field  string
	Reason string
	cause  error
}

func (e *ErrMalformed) Error() string {
	if e.cause != nil {
		return e.cause.Error()
	}
	return fmt.Sprintf("malformed annotation data: %s", e.Reason)
}

func (e *ErrMalformed) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	var dup *source.ErrDuplicateID
	if errors.As(err, &dup) {
		return &ErrDuplicateID{ID: dup.ID, cause: err}
	}
	var del *source.ErrAlreadyDeleted
	if errors.As(err, &del) {
		return &ErrAlreadyDeleted{ID: del.ID, cause: err}
	}
	var mal *annotation.ErrMalformed
	if errors.As(err, &mal) {
		return &ErrMalformed{Index: mal.Index, Field: mal.Field, Reason: mal.Reason, cause: err}
	}

	if errors.Is(err, blobstore.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if errors.Is(err, persistence.ErrManagerClosed) {
		return fmt.Errorf("%w: %w", ErrClosed, err)
	}

	return err
}
