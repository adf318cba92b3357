// Package memfs contains core domain types and interfaces for the in-memory namespace
package memfs

import (
	"errors"
	"fmt"
)

// Error kinds returned by namespace operations. Match with errors.Is.
var (
	ErrEmptyName          = errors.New("name cannot be empty")
	ErrAlreadyExists      = errors.New("already exists")
	ErrNotFound           = errors.New("no such file or directory")
	ErrWrongType          = errors.New("wrong node type")
	ErrInvalidDestination = errors.New("invalid destination directory")
	ErrRootViolation      = errors.New("cannot modify the root directory")
	ErrPersistence        = errors.New("snapshot persistence failed")
	ErrInvalidPattern     = errors.New("invalid pattern")
)

// OpError records a failed operation together with the path it was applied to
type OpError struct {
	Op   string // mkdir, cd, ls ...
	Path string // path as given by the caller
	Err  error  // one of the Err* kinds, possibly wrapped
}

func (e *OpError) Error() string {
	if e.Path == "" {
		return e.Op + ": " + e.Err.Error()
	}
	return fmt.Sprintf("%s %q: %s", e.Op, e.Path, e.Err.Error())
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// NewOpError is a shorthand for &OpError{...}
func NewOpError(op, path string, err error) *OpError {
	return &OpError{Op: op, Path: path, Err: err}
}
