package models

import "time"

// RunRequest asks a worker to execute one forecast mail run. It is published
// to the run subject on the FORECASTS stream.
type RunRequest struct {
	RunID       string    `json:"run_id"`
	RequestedBy string    `json:"requested_by"`
	RequestedAt time.Time `json:"requested_at"`
}

// RunSummary is published after a queued run has finished.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	Summary    string    `json:"summary,omitempty"`
	Error      string    `json:"error,omitempty"`
	ErrorKind  string    `json:"error_kind,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}
