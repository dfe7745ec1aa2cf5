package model

import (
	"time"

	"github.com/google/uuid"
)

// IdleMessage is returned when no notification is due.
const IdleMessage = "No notifications to process"

// Report summarizes one dispatch run.
type Report struct {
	Success                   bool      `json:"success"`
	RunID                     uuid.UUID `json:"runId"`
	Processed                 int       `json:"processed"`
	EmailsSent                int       `json:"emailsSent"`
	InAppNotificationsCreated int       `json:"inAppNotificationsCreated"`
	Skipped                   int       `json:"skipped,omitempty"`
	StaleNotifications        int       `json:"staleNotifications,omitempty"`
	Errors                    []string  `json:"errors"`
	Timestamp                 time.Time `json:"timestamp"`

	idle bool
}

// IdleReport is the short response for a run without due notifications.
type IdleReport struct {
	Processed int    `json:"processed"`
	Message   string `json:"message"`
}

// NewReport creates an empty report for the given run.
func NewReport(runID uuid.UUID) *Report {
	return &Report{RunID: runID, Errors: []string{}}
}

// MarkIdle flags the report as a run that selected nothing.
func (r *Report) MarkIdle() {
	r.idle = true
}

// Idle reports whether the run selected no notifications.
func (r *Report) Idle() bool {
	return r.idle
}

// Body returns the value to serialize as the run response.
func (r *Report) Body() any {
	if r.idle {
		return IdleReport{Processed: 0, Message: IdleMessage}
	}

	return r
}

// AddError appends a per-row failure description.
func (r *Report) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}
