package app

import "time"

// Operation tracks one CLI invocation. Its ID tags every log line written
// while the invocation runs.
type Operation struct {
	ID      string
	Name    string
	Started time.Time
	Status  string // "success" or "error"
}

// NewOperation creates an operation started at now.
func NewOperation(name string, now time.Time) *Operation {
	return &Operation{
		ID:      now.UTC().Format("20060102T150405Z"),
		Name:    name,
		Started: now,
		Status:  "success",
	}
}

// Record marks the operation failed when err is non-nil and returns err.
func (op *Operation) Record(err error) error {
	if err != nil {
		op.Status = "error"
	}
	return err
}

// Elapsed returns the time since the operation started, to the millisecond.
func (op *Operation) Elapsed(now time.Time) time.Duration {
	return now.Sub(op.Started).Truncate(time.Millisecond)
}
