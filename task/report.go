package task

import (
	"fmt"

	"DistributedFractals/progress"
)

// ProgressReport is a progress event a worker forwards for one of its tasks
type ProgressReport struct {
	OperationID   string
	Percent       float64
	Status        progress.Status
	Step          string
	TaskID        uint
	WorkerAddress string
}

func NewProgressReport(t Task, workerAddress string, event progress.Event) ProgressReport {
	return ProgressReport{
		OperationID:   t.OperationID,
		Percent:       event.Percent,
		Status:        event.Status,
		Step:          event.Step,
		TaskID:        t.ID,
		WorkerAddress: workerAddress,
	}
}

func (r ProgressReport) String() string {
	return fmt.Sprintf("{Task %d [%s] %5.1f%% %s: %s}", r.TaskID, r.WorkerAddress, r.Percent, r.Status, r.Step)
}
