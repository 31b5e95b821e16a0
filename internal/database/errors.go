package database

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrRolloverFailed marks a month rollover that was rolled back. The record
// that triggered it is still appended to the current store.
var ErrRolloverFailed = errors.New("rollover failed")

// PersistenceError reports a failed write against the activity store.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Cause lets github.com/pkg/errors.Cause see through the wrapper.
func (e *PersistenceError) Cause() error { return e.Err }

// IsPersistenceError reports whether err is or wraps a PersistenceError.
func IsPersistenceError(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
