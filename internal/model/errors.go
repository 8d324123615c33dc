package model

import (
	"errors"
	"fmt"
)

// ErrEnvironment marks a failure of the harness's own preconditions: a
// directory or file that cannot be created, renamed or removed, or a socket
// that cannot be bound. It is fatal and never retried.
var ErrEnvironment = errors.New("environment failure")

// EnvironmentError wraps the failed operation. It matches ErrEnvironment and
// unwraps to the underlying error.
type EnvironmentError struct {
	Op   string
	Path string
	Err  error
}

// NewEnvironmentError wraps err as an environment failure of op on path.
func NewEnvironmentError(op, path string, err error) *EnvironmentError {
	return &EnvironmentError{Op: op, Path: path, Err: err}
}

func (e *EnvironmentError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *EnvironmentError) Is(target error) bool {
	return target == ErrEnvironment
}

func (e *EnvironmentError) Unwrap() error {
	return e.Err
}
