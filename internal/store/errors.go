package store

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound    = errors.New("annotation not found")
	ErrDuplicateID = errors.New("duplicate annotation id")
)

// PersistError reports a failed write to the persistence collaborator.
// The in-memory list has already been rolled back when it is returned.
type PersistError struct {
	Op      string
	VideoID string
	Err     error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist %s for video %s: %v", e.Op, e.VideoID, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}
