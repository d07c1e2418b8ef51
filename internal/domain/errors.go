package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means no logged session carries the requested token.
	ErrNotFound = errors.New("session not found")
	// ErrUnknownStage means the stage key is not in the registry.
	ErrUnknownStage = errors.New("unknown stage")
	// ErrDuplicateToken means a session with the same token is already logged.
	ErrDuplicateToken = errors.New("duplicate session token")
	// ErrPersistence matches every *PersistenceError via errors.Is.
	ErrPersistence = errors.New("storage not writable")
)

// PersistenceError reports that a store could not write its backing file.
// It is the only failure that aborts a requested action.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrPersistence) match any PersistenceError.
func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }
