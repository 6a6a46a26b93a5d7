package annotation

import (
	"errors"
	"fmt"
)

// ErrUnknownType is returned for a type tag that names no geometry kind.
var ErrUnknownType = errors.New("unknown annotation type")

// ErrMalformed indicates persisted data that fails validation.
//
// Index is the position of the offending entry in the payload, or -1 when the
// payload as a whole is malformed.
type ErrMalformed struct {
	Index  int
	Field  string
	Reason string
	cause  error
}

func (e *ErrMalformed) Error() string {
	switch {
	case e.Index < 0 && e.Field == "":
		return fmt.Sprintf("malformed annotation data: %s", e.Reason)
	case e.Index < 0:
		return fmt.Sprintf("malformed annotation data: %s: %s", e.Field, e.Reason)
	case e.Field == "":
		return fmt.Sprintf("malformed annotation at index %d: %s", e.Index, e.Reason)
	default:
		return fmt.Sprintf("malformed annotation at index %d: %s: %s", e.Index, e.Field, e.Reason)
	}
}

func (e *ErrMalformed) Unwrap() error { return e.cause }

func malformed(field, reason string) *ErrMalformed {
	return &ErrMalformed{Index: -1, Field: field, Reason: reason}
}

// WithIndex returns a copy of err annotated with the payload index when err is
// an *ErrMalformed; other errors are wrapped into one.
func WithIndex(err error, index int) error {
	if err == nil {
		return nil
	}
	var m *ErrMalformed
	if errors.As(err, &m) {
		c := *m
		c.Index = index
		return &c
	}
	return &ErrMalformed{Index: index, Reason: err.Error(), cause: err}
}
