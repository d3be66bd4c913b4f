package usecase

import "errors"

var (
	// ErrValidation marks bad upload input; the pipeline never starts.
	ErrValidation = errors.New("invalid input")
	// ErrNotFound covers unknown ids and videos owned by another tenant.
	ErrNotFound = errors.New("video not found")
	// ErrNotReady is returned when streaming is requested before the
	// pipeline has completed.
	ErrNotReady = errors.New("video is not ready for streaming")
	// ErrForbidden marks an ownership/role check failure.
	ErrForbidden = errors.New("not authorized")
	// ErrRangeNotSatisfiable marks a parseable range that starts past the
	// end of the object.
	ErrRangeNotSatisfiable = errors.New("requested range not satisfiable")
	// ErrModerationTimeout marks poll-attempt ceiling exhaustion.
	ErrModerationTimeout = errors.New("moderation job timed out")
)
