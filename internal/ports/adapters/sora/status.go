package sora

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Status is the remote job state as reported by the API. It is a plain
// string so that values the adapter does not recognize survive a
// decode/encode round trip verbatim; remote services grow new transient
// states and those must not break polling.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCanceled   Status = "canceled"
)

// IsTerminal reports whether polling should stop at this status.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCanceled:
		return true
	default:
		return false
	}
}

// Known reports whether the adapter recognizes the status value.
func (s Status) Known() bool {
	switch s {
	case StatusQueued, StatusInProgress, StatusCompleted, StatusFailed, StatusCanceled:
		return true
	default:
		return false
	}
}

// Job is the remote job record, one per in-flight or finished render. It
// lives only for the duration of a render call and is never persisted.
type Job struct {
	ID        string    `json:"id"`
	Status    Status    `json:"status"`
	Model     string    `json:"model"`
	Seconds   looseInt  `json:"seconds"`
	Size      string    `json:"size"`
	CreatedAt int64     `json:"created_at"`
	Progress  float64   `json:"progress"`
	Error     *jobError `json:"error"`
}

type jobError struct {
	Message string `json:"message"`
}

// looseInt decodes from either a JSON number or a numeric string; the API
// has been observed returning both for the seconds field.
type looseInt int

func (v *looseInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*v = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*v = 0
			return nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("seconds string %q is not an integer", s)
		}
		*v = looseInt(n)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*v = looseInt(n)
	return nil
}
