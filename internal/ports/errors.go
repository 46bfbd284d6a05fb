package ports

import (
	"errors"
	"fmt"
)

// ErrUnsupported marks an operation the backend structurally cannot perform,
// such as variant downloads against the operation-style API.
var ErrUnsupported = errors.New("operation not supported by backend")

// ErrInvalidResponse marks a remote response whose shape the adapter cannot
// work with, such as a completed operation carrying no video payload.
var ErrInvalidResponse = errors.New("invalid backend response")

// JobFailedError reports a remote render that reached a failed or canceled
// terminal state. Message carries the remote error text when present.
type JobFailedError struct {
	RemoteID string
	Message  string
}

func (e *JobFailedError) Error() string {
	if e.RemoteID == "" {
		return fmt.Sprintf("render job failed: %s", e.Message)
	}
	return fmt.Sprintf("render job %s failed: %s", e.RemoteID, e.Message)
}
