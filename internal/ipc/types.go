package ipc

import "bobbin/internal/hub"

// FileOffset reports the tail position within one watched file.
type FileOffset struct {
	Name   string `json:"name"`
	Offset int64  `json:"offset"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents daemon runtime information.
type StatusResponse struct {
	Running     bool         `json:"running"`
	Paused      bool         `json:"paused"`
	Directory   string       `json:"directory"`
	SessionID   string       `json:"session_id"`
	StartedAt   string       `json:"started_at"`
	PID         int          `json:"pid"`
	EventCount  uint64       `json:"event_count"`
	Files       []FileOffset `json:"files"`
	ArchivePath string       `json:"archive_path"`
	LockPath    string       `json:"lock_path"`
	Forwarding  bool         `json:"forwarding"`
}

// PauseRequest suspends parsing while offsets keep advancing.
type PauseRequest struct{}

// PauseResponse reports the paused state after the call.
type PauseResponse struct {
	Paused bool `json:"paused"`
}

// ResumeRequest re-enables parsing.
type ResumeRequest struct{}

// ResumeResponse reports the paused state after the call.
type ResumeResponse struct {
	Paused bool `json:"paused"`
}

// EventsRequest fetches hub entries after a sequence number. WaitMillis
// above zero blocks until entries arrive or the wait expires.
type EventsRequest struct {
	Since      uint64 `json:"since"`
	Limit      int    `json:"limit"`
	WaitMillis int    `json:"wait_millis"`
}

// EventsResponse carries fetched entries and the cursor for the next call.
type EventsResponse struct {
	Entries []hub.Entry `json:"entries"`
	Next    uint64      `json:"next"`
}

// StopRequest asks the watch process to shut down.
type StopRequest struct{}

// StopResponse indicates shutdown was initiated.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}
