package progress

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BrugadaSyndrome/bslogger"
	"github.com/google/uuid"
)

// Listener is called with every event a Reporter emits
type Listener func(event Event)

// Reporter is the standard Sink. Percentages never decrease, reports after a
// terminal status are dropped and cancellation may be requested from any
// goroutine.
type Reporter struct {
	canceled  atomic.Bool
	listeners []Listener
	mutex     sync.Mutex
	state     Event

	OperationID   string
	OperationType string
}

func NewReporter(operationType string) *Reporter {
	return NewReporterWithID(uuid.New().String(), operationType)
}

func NewReporterWithID(operationID string, operationType string) *Reporter {
	return &Reporter{
		state: Event{
			Details:     map[string]any{},
			OperationID: operationID,
			Status:      Pending,
			Timestamp:   time.Now(),
		},
		OperationID:   operationID,
		OperationType: operationType,
	}
}

func (r *Reporter) AddListener(listener Listener) {
	r.mutex.Lock()
	r.listeners = append(r.listeners, listener)
	r.mutex.Unlock()
}

func (r *Reporter) Report(update Update) {
	r.mutex.Lock()
	if r.state.Status.Terminal() {
		r.mutex.Unlock()
		return
	}

	percent := update.Percent
	if percent > 100 {
		percent = 100
	}
	if percent > r.state.Percent {
		r.state.Percent = percent
	}
	if update.Step != "" {
		r.state.Step = update.Step
	}
	if update.StepTotal > 0 {
		r.state.StepTotal = update.StepTotal
	}
	r.state.StepProgress = update.StepProgress
	for k, v := range update.Details {
		r.state.Details[k] = v
	}
	r.state.Status = Running
	r.state.Timestamp = time.Now()
	event, listeners := r.snapshotLocked()
	r.mutex.Unlock()

	notify(listeners, event)
}

func (r *Reporter) Finish(status Status, details map[string]any) {
	r.mutex.Lock()
	if r.state.Status.Terminal() {
		r.mutex.Unlock()
		return
	}
	if status == Completed {
		r.state.Percent = 100
		r.state.StepProgress = 100
	}
	for k, v := range details {
		r.state.Details[k] = v
	}
	r.state.Status = status
	r.state.Timestamp = time.Now()
	event, listeners := r.snapshotLocked()
	r.mutex.Unlock()

	notify(listeners, event)
}

func (r *Reporter) ShouldCancel() bool {
	return r.canceled.Load()
}

// RequestCancel asks the computation to stop at its next progress check
func (r *Reporter) RequestCancel() {
	r.canceled.Store(true)
}

// Snapshot returns a copy of the latest event
func (r *Reporter) Snapshot() Event {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	event, _ := r.snapshotLocked()
	return event
}

func (r *Reporter) String() string {
	return fmt.Sprintf("{Reporter %s %s}", r.OperationType, r.OperationID)
}

func (r *Reporter) snapshotLocked() (Event, []Listener) {
	event := r.state
	event.Details = make(map[string]any, len(r.state.Details))
	for k, v := range r.state.Details {
		event.Details[k] = v
	}
	listeners := make([]Listener, len(r.listeners))
	copy(listeners, r.listeners)
	return event, listeners
}

func notify(listeners []Listener, event Event) {
	for _, listener := range listeners {
		listener(event)
	}
}

// LogListener writes every event to logger, terminal failures as errors
func LogListener(logger bslogger.Logger) Listener {
	return func(event Event) {
		switch event.Status {
		case Failed:
			logger.Error(event.String())
		case Completed, Canceled:
			logger.Info(event.String())
		default:
			logger.Debug(event.String())
		}
	}
}
