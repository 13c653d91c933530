// Package domain defines the core business entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrInvalidAction is returned when an action name is not one of the
	// supported actions.
	ErrInvalidAction = errors.New("invalid action")

	// ErrEmptyTaskID is returned when a task is created without an ID.
	ErrEmptyTaskID = errors.New("task ID cannot be empty")

	// ErrInvalidTransition is returned when a lifecycle method is called from a
	// status that does not allow it (e.g. Advance on a task that never started).
	ErrInvalidTransition = errors.New("invalid task status transition")

	// ErrTaskTerminal is returned when a transition is attempted on a task that
	// already reached SUCCESS or FAILURE.
	ErrTaskTerminal = errors.New("task already finished")
)
