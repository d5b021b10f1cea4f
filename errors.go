package yaoernie

import "errors"

var (
	// ErrNoTools is returned by Execute when no tool source declares any
	// tool. This is a caller precondition, not a runtime failure.
	ErrNoTools = errors.New("no tools declared")

	// ErrInvalidTool is returned when a tool descriptor is malformed.
	ErrInvalidTool = errors.New("invalid tool descriptor")

	// ErrToolNameConflict is returned when two tool sources declare the
	// same tool name.
	ErrToolNameConflict = errors.New("tool name conflict")

	// ErrNoReasoner is returned by Execute when the engine has no reasoner.
	ErrNoReasoner = errors.New("reasoner is required")
)
