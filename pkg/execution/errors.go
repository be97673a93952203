package execution

import "errors"

var (
	// ErrValidation marks a run rejected by graph validation before any
	// network activity.
	ErrValidation = errors.New("graph validation failed")

	// ErrRunInProgress is returned by Trigger while a run is still in the
	// Running state. Reset the session to trigger again.
	ErrRunInProgress = errors.New("run already in progress")
)
