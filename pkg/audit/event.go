// Package audit provides audit logging for console commands that run on
// the dataplane's control thread (spec.md §4.14 / C14).
package audit

import (
	"time"
)

// Event records one control-thread console command after it has executed.
// Commands handled on the console thread, and controller messages, are
// not audited.
type Event struct {
	Timestamp time.Time     `json:"timestamp"`
	Verb      string        `json:"verb"`
	Args      []string      `json:"args,omitempty"`
	Result    string        `json:"result,omitempty"`
	Actor     string        `json:"actor,omitempty"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Filter defines criteria for querying audit events.
type Filter struct {
	Verb        string
	Actor       string
	StartTime   time.Time
	EndTime     time.Time
	SuccessOnly bool
	FailureOnly bool
	Limit       int
	Offset      int
}

// NewEvent creates an event for verb invoked with args by actor, stamped
// with the current time.
func NewEvent(verb string, args []string, actor string) *Event {
	return &Event{
		Timestamp: time.Now(),
		Verb:      verb,
		Args:      args,
		Actor:     actor,
	}
}

// WithResult records the command's output summary.
func (e *Event) WithResult(result string) *Event {
	e.Result = result
	return e
}

// WithSuccess marks the event as successful.
func (e *Event) WithSuccess() *Event {
	e.Success = true
	return e
}

// WithError marks the event as failed.
func (e *Event) WithError(err error) *Event {
	e.Success = false
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// WithDuration sets how long the command took to execute.
func (e *Event) WithDuration(d time.Duration) *Event {
	e.Duration = d
	return e
}
