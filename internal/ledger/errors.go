package ledger

import (
	"errors"
	"fmt"
)

// Oracle violation classes. Both are fatal to a run.
var (
	// ErrUnexpectedDelivery means a line was reported for a path with no
	// pending expectation: never written, or already consumed.
	ErrUnexpectedDelivery = errors.New("unexpected delivery")

	// ErrOrderingViolation means the reported line differs from the oldest
	// pending line for its path.
	ErrOrderingViolation = errors.New("ordering or content violation")
)

// UnexpectedDeliveryError carries the offending report.
type UnexpectedDeliveryError struct {
	Path string
	Got  string
}

func (e *UnexpectedDeliveryError) Error() string {
	return fmt.Sprintf("%s: path=%s got=%q", ErrUnexpectedDelivery, e.Path, e.Got)
}

func (e *UnexpectedDeliveryError) Is(target error) bool {
	return target == ErrUnexpectedDelivery
}

// OrderingViolationError carries the expected and received values.
type OrderingViolationError struct {
	Path     string
	Expected string
	Got      string
}

func (e *OrderingViolationError) Error() string {
	return fmt.Sprintf("%s: path=%s expected=%q got=%q", ErrOrderingViolation, e.Path, e.Expected, e.Got)
}

func (e *OrderingViolationError) Is(target error) bool {
	return target == ErrOrderingViolation
}

// IsViolation reports whether err belongs to either oracle violation class.
func IsViolation(err error) bool {
	return errors.Is(err, ErrUnexpectedDelivery) || errors.Is(err, ErrOrderingViolation)
}
