package model

import (
	"errors"
	"time"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusError    Status = "error"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusError
}

// CanTransition reports whether a job in status s may move to next.
func (s Status) CanTransition(next Status) bool {
	if s.Terminal() {
		return false
	}
	if s == next {
		return true
	}
	switch s {
	case StatusPending:
		return next == StatusRunning || next == StatusError
	case StatusRunning:
		return next == StatusComplete || next == StatusError
	}
	return false
}

var (
	ErrFindingsBeforeComplete = errors.New("findings set before completion")
	ErrSummaryBeforeComplete  = errors.New("summary set before completion")
	ErrErrorMessageMismatch   = errors.New("error message must be set iff status is error")
	ErrUnknownStatus          = errors.New("unknown status")
)

type ScanJob struct {
	ID           string    `json:"id"`
	URL          string    `json:"url"`
	Status       Status    `json:"status"`
	Findings     []Finding `json:"findings"`
	AISummary    string    `json:"aiSummary,omitempty"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Validate checks the field invariants that depend on status.
func (j ScanJob) Validate() error {
	switch j.Status {
	case StatusPending, StatusRunning, StatusComplete, StatusError:
	default:
		return ErrUnknownStatus
	}
	if j.Status != StatusComplete {
		if len(j.Findings) > 0 {
			return ErrFindingsBeforeComplete
		}
		if j.AISummary != "" {
			return ErrSummaryBeforeComplete
		}
	}
	if (j.Status == StatusError) != (j.ErrorMessage != "") {
		return ErrErrorMessageMismatch
	}
	return nil
}

// Clone returns a copy that shares no memory with j.
func (j ScanJob) Clone() ScanJob {
	out := j
	out.Findings = CloneFindings(j.Findings)
	if out.Findings == nil {
		out.Findings = []Finding{}
	}
	return out
}
