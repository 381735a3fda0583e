package domain

import "fmt"

// NotFoundError represents a missing resource.
type NotFoundError struct {
	Resource string
	ID       int64
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	if e.ID != 0 {
		return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is enables errors.Is matching on NotFoundError.
func (e NotFoundError) Is(target error) bool {
	_, ok := target.(NotFoundError)
	if ok {
		return true
	}
	_, ok = target.(*NotFoundError)
	return ok
}

// ErrNotFound is the sentinel error for missing resources.
var ErrNotFound = NotFoundError{}

// ValidationError represents a rejected input. Detected before any
// store write, so no change event ever results from one.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e ValidationError) Is(target error) bool {
	_, ok := target.(ValidationError)
	if ok {
		return true
	}
	_, ok = target.(*ValidationError)
	return ok
}

var ErrValidation = ValidationError{}

// ConstraintError represents a relational integrity violation, such as
// a transaction referencing a post that does not exist.
type ConstraintError struct {
	Reason string
}

func (e ConstraintError) Error() string {
	if e.Reason == "" {
		return "constraint violation"
	}
	return fmt.Sprintf("constraint violation: %s", e.Reason)
}

func (e ConstraintError) Is(target error) bool {
	_, ok := target.(ConstraintError)
	if ok {
		return true
	}
	_, ok = target.(*ConstraintError)
	return ok
}

var ErrConstraint = ConstraintError{}

// TransportError wraps a network or store availability failure. It is
// surfaced to the caller as-is; nothing in this module retries it.
type TransportError struct {
	Op  string
	Err error
}

func (e TransportError) Error() string {
	return fmt.Sprintf("transport failure during %s: %v", e.Op, e.Err)
}

func (e TransportError) Unwrap() error { return e.Err }

func (e TransportError) Is(target error) bool {
	_, ok := target.(TransportError)
	if ok {
		return true
	}
	_, ok = target.(*TransportError)
	return ok
}
