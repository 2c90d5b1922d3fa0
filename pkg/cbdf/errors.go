package cbdf

import "fmt"

// ValidationError is malformed input, rejected before any mutation.
type ValidationError struct {
	Reason string
}

func NewValidationError(reason string) *ValidationError {
	return &ValidationError{Reason: reason}
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// ConflictError is an overlapping time window or insufficient capacity.
type ConflictError struct {
	ResourceRef string
	Reason      string
}

func NewConflictError(resourceRef string, reason string) *ConflictError {
	return &ConflictError{ResourceRef: resourceRef, Reason: reason}
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %s", e.ResourceRef, e.Reason)
}

// NotFoundError is a missing referenced record.
type NotFoundError struct {
	Kind       string
	Identifier string
}

func NewNotFoundError(kind string, identifier string) *NotFoundError {
	return &NotFoundError{Kind: kind, Identifier: identifier}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("could not find %s matching %s", e.Kind, e.Identifier)
}

// StateError is an illegal lifecycle transition.
type StateError struct {
	Current   string
	Attempted string
}

func NewStateError(current string, attempted string) *StateError {
	return &StateError{Current: current, Attempted: attempted}
}

func (e *StateError) Error() string {
	return fmt.Sprintf("illegal transition from %s to %s", e.Current, e.Attempted)
}
