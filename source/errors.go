package source

import (
	"errors"
	"fmt"
)

// ErrNilAnnotation is returned when a nil annotation is passed to a mutation.
var ErrNilAnnotation = errors.New("annotation is nil")

// ErrDuplicateID indicates an add with an id that already exists in the source.
type ErrDuplicateID struct {
	ID string
}

func (e *ErrDuplicateID) Error() string {
	return fmt.Sprintf("duplicate annotation id %q", e.ID)
}

// ErrAlreadyDeleted indicates a mutation through a reference whose annotation
// has been deleted.
type ErrAlreadyDeleted struct {
	ID string
}

func (e *ErrAlreadyDeleted) Error() string {
	return fmt.Sprintf("annotation %q already deleted", e.ID)
}
