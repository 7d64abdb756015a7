package health

import "errors"

var (
	// ErrCheckTimeout is the Err of a check that outlived the aggregator timeout.
	ErrCheckTimeout = errors.New("health: check timed out")

	// ErrCheckerNotFound is returned by Check for an unregistered name.
	ErrCheckerNotFound = errors.New("health: checker not found")
)
