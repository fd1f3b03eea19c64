// Package progress carries progress events and cooperative cancellation
// between a running render and whoever is watching it.
package progress

import (
	"fmt"
	"time"
)

const (
	Pending Status = iota
	Running
	Completed
	Failed
	Canceled
)

type Status int

func (s Status) String() string {
	return []string{
		"pending", "running", "completed", "failed", "canceled",
	}[s]
}

// Terminal reports whether no further events follow this status
func (s Status) Terminal() bool {
	return s == Completed || s == Failed || s == Canceled
}

// Update is one report from a computation. StepTotal is zero when the step
// count is unknown.
type Update struct {
	Details      map[string]any
	Percent      float64
	Step         string
	StepProgress float64
	StepTotal    int
}

// Event is the state of an operation after an update or status change
type Event struct {
	Details      map[string]any
	OperationID  string
	Percent      float64
	Status       Status
	Step         string
	StepProgress float64
	StepTotal    int
	Timestamp    time.Time
}

func (e Event) String() string {
	return fmt.Sprintf("[%s] %5.1f%% %s: %s", e.OperationID, e.Percent, e.Status, e.Step)
}

// Sink receives progress from a computation and is polled for cancellation.
// Calls are made synchronously from the computing goroutine.
type Sink interface {
	Report(update Update)
	Finish(status Status, details map[string]any)
	ShouldCancel() bool
}

// Nop is a Sink that records nothing and never cancels
type Nop struct{}

func (Nop) Report(Update)                 {}
func (Nop) Finish(Status, map[string]any) {}
func (Nop) ShouldCancel() bool            { return false }

// OrNop returns sink, or Nop when sink is nil
func OrNop(sink Sink) Sink {
	if sink == nil {
		return Nop{}
	}
	return sink
}
