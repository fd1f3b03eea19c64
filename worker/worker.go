package worker

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"DistributedFractals/misc"
	"DistributedFractals/progress"
	"DistributedFractals/render"
	"DistributedFractals/rpc"
	"DistributedFractals/task"
	"github.com/BrugadaSyndrome/bslogger"
)

// Percentage points between two progress reports forwarded to the coordinator
const forwardStep = 1.0

// Worker pulls tasks from the coordinator until none are left, renders them
// and returns the results
type Worker struct {
	client         *rpc.Client
	done           chan struct{}
	logger         bslogger.Logger
	myAddress      string
	renderer       *render.Renderer
	settings       Settings
	stopOnce       sync.Once
	tasksCompleted atomic.Int64

	Server rpc.Server
}

func NewWorker(settings Settings, renderer *render.Renderer) (*Worker, error) {
	if err := settings.Verify(); err != nil {
		return nil, err
	}
	w := &Worker{
		done:     make(chan struct{}),
		renderer: renderer,
		settings: settings,
	}

	// Listen first so the coordinator can call back on the bound address
	w.Server = rpc.NewServer(settings.Transport, w, settings.ListenAddress, "WorkerServer")
	if err := w.Server.Run(); err != nil {
		return nil, err
	}
	w.myAddress = w.Server.Address()
	w.logger = bslogger.NewLogger(fmt.Sprintf("Worker %s", w.myAddress), bslogger.Normal, nil)

	// Register with the coordinator
	w.client = rpc.NewClient(settings.Transport, settings.CoordinatorAddress, "CoordinatorClient")
	w.client.ExpectedErrors = []string{task.ErrAllTasksHandedOut.Error()}
	if err := w.client.Connect(); err != nil {
		misc.CheckError(w.Server.Stop(), w.logger, misc.Warning)
		return nil, err
	}
	var nothing misc.Nothing
	if err := w.client.Call("Coordinator.RegisterWorker", w.myAddress, &nothing); err != nil {
		misc.CheckError(w.client.Disconnect(), w.logger, misc.Warning)
		misc.CheckError(w.Server.Stop(), w.logger, misc.Warning)
		return nil, err
	}

	go w.tickers()
	go w.processTasks()

	return w, nil
}

func (w *Worker) Address() string {
	return w.myAddress
}

// Wait blocks until the worker has shut down
func (w *Worker) Wait() {
	<-w.done
}

func (w *Worker) TasksCompleted() int {
	return int(w.tasksCompleted.Load())
}

func (w *Worker) tickers() {
	rollCall := time.NewTicker(w.settings.RollCallInterval)
	heartBeat := time.NewTicker(w.settings.HeartbeatInterval)
	defer rollCall.Stop()
	defer heartBeat.Stop()

	for {
		select {
		case <-w.done:
			return

		case <-rollCall.C:
			w.logger.Debug("Roll call ticker")
			var junk misc.Nothing
			var reply bool
			err := w.client.Call("Coordinator.RollCall", junk, &reply)
			if err != nil {
				// Cannot communicate with the coordinator so we should shut down
				w.logger.Warning(fmt.Sprintf("Coordinator missed roll call: %s", err))
				w.shutdown(false)
				return
			}

		case <-heartBeat.C:
			w.logger.Debug("Heart beat ticker")
			w.logger.Info(fmt.Sprintf("Tasks [Completed: %d]", w.tasksCompleted.Load()))
		}
	}
}

func (w *Worker) processTasks() {
	w.logger.Info("Processing tasks")

	var startTime = time.Now()
	for {
		var taskTodo task.Task
		err := w.client.Call("Coordinator.GetTask", w.myAddress, &taskTodo)
		if err != nil {
			// This is an expected error. No more work to do
			if err.Error() != task.ErrAllTasksHandedOut.Error() {
				w.logger.Error(fmt.Sprintf("Unable to get a task: %s", err))
			}
			break
		}

		w.runTask(&taskTodo)

		var nothing misc.Nothing
		err = w.client.Call("Coordinator.ReturnTask", taskTodo, &nothing)
		if err != nil {
			w.logger.Error(fmt.Sprintf("Unable to return a task: %s", err))
			break
		}
		w.tasksCompleted.Add(1)
	}

	w.logger.Info("Done processing tasks")
	w.logger.Debug(fmt.Sprintf("Processed %d tasks in %s", w.tasksCompleted.Load(), time.Since(startTime)))
	w.shutdown(true)
}

// runTask renders t and stores the outcome in it
func (w *Worker) runTask(t *task.Task) {
	params, err := t.DecodeParams()
	if err != nil {
		t.Status = progress.Failed
		t.Error = err.Error()
		return
	}

	reporter := progress.NewReporterWithID(t.OperationID, t.Kind.String())
	reporter.AddListener(progress.LogListener(w.logger))
	reporter.AddListener(w.forwardProgress(*t, reporter))

	result, err := w.renderer.RenderParams(t.Kind, params, reporter)
	if err != nil {
		t.Status = progress.Failed
		t.Error = err.Error()
		return
	}
	if err := t.SetResult(result); err != nil {
		t.Status = progress.Failed
		t.Error = err.Error()
		return
	}
	t.Status = reporter.Snapshot().Status
}

// forwardProgress sends events to the coordinator, at most one per forwardStep
// percent plus the terminal one, and requests cancellation when the
// coordinator replies that the task was canceled
func (w *Worker) forwardProgress(t task.Task, reporter *progress.Reporter) progress.Listener {
	lastPercent := -forwardStep
	return func(event progress.Event) {
		if !event.Status.Terminal() && event.Percent < lastPercent+forwardStep {
			return
		}
		lastPercent = event.Percent

		var canceled bool
		err := w.client.Call("Coordinator.ReportProgress", task.NewProgressReport(t, w.myAddress, event), &canceled)
		if err != nil {
			w.logger.Warning(fmt.Sprintf("Unable to report progress of task %d: %s", t.ID, err))
			return
		}
		if canceled && !reporter.ShouldCancel() {
			w.logger.Info(fmt.Sprintf("Coordinator canceled task %d", t.ID))
			reporter.RequestCancel()
		}
	}
}

func (w *Worker) shutdown(deregister bool) {
	w.stopOnce.Do(func() {
		w.logger.Info("Shutting down")
		if deregister {
			var nothing misc.Nothing
			misc.CheckError(w.client.Call("Coordinator.DeRegisterWorker", w.myAddress, &nothing), w.logger, misc.Warning)
		}
		misc.CheckError(w.client.Disconnect(), w.logger, misc.Warning)
		misc.CheckError(w.Server.Stop(), w.logger, misc.Warning)
		close(w.done)
	})
}

func (w *Worker) RollCall(request misc.Nothing, reply *bool) error {
	*reply = true
	return nil
}
