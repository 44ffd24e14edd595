package domain

import "errors"

var (
	// ErrEmptyErrorKey means a dispatch carried an error entry without a composite key.
	ErrEmptyErrorKey = errors.New("error key must not be empty")

	// ErrUnknownAction means a dispatch named an action the error store does not know.
	ErrUnknownAction = errors.New("unknown error store action")

	// ErrNoEndpoints means the prober was started without any RPC endpoint to watch.
	ErrNoEndpoints = errors.New("no RPC endpoints configured")
)
