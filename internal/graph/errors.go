package graph

import "errors"

var (
	// ErrNotFound is returned when a referenced id does not exist in the graph.
	ErrNotFound = errors.New("not found")

	// ErrSelfReference is returned when a group is added as its own parent or child.
	ErrSelfReference = errors.New("self reference not allowed")

	// ErrCycleDetected is returned when a group edge would make a group its own ancestor.
	ErrCycleDetected = errors.New("cycle detected in group hierarchy")

	// ErrDuplicateAssignment is returned when a membership edge already exists.
	ErrDuplicateAssignment = errors.New("assignment already exists")

	// ErrValidationFailed is returned for malformed input (empty names, blank URIs).
	ErrValidationFailed = errors.New("validation failed")
)
