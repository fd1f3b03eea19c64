package coordinator

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"DistributedFractals/fractal"
	"DistributedFractals/misc"
	"DistributedFractals/progress"
	"DistributedFractals/rpc"
	"DistributedFractals/task"
	"github.com/BrugadaSyndrome/bslogger"
)

// ErrRunFinished is returned to workers that register after every task has a result
var ErrRunFinished = errors.New("every task already has a result")

// Coordinator hands render tasks to workers over rpc and collects their
// results and progress
type Coordinator struct {
	canceled          map[uint]bool
	clients           map[string]*rpc.Client
	done              chan struct{}
	logger            bslogger.Logger
	mutex             sync.Mutex
	progress          map[uint]task.ProgressReport
	results           map[uint]task.Task
	settings          Settings
	stop              chan struct{}
	stopOnce          sync.Once
	taskCount         uint
	taskIngestedCount uint
	tasksDone         chan task.Task
	tasksHandedOut    map[string]map[uint]task.Task // keep track of all tasks workers have
	tasksTodo         []task.Task
	workerWait        *sync.WaitGroup

	Server rpc.Server
}

func NewCoordinator(settings Settings) (*Coordinator, error) {
	c := &Coordinator{
		canceled:       make(map[uint]bool),
		clients:        make(map[string]*rpc.Client),
		done:           make(chan struct{}),
		logger:         bslogger.NewLogger("Coordinator", bslogger.Normal, nil),
		progress:       make(map[uint]task.ProgressReport),
		results:        make(map[uint]task.Task),
		settings:       settings,
		stop:           make(chan struct{}),
		taskCount:      uint(len(settings.Jobs)),
		tasksDone:      make(chan task.Task, 2*len(settings.Jobs)),
		tasksHandedOut: make(map[string]map[uint]task.Task),
		workerWait:     &sync.WaitGroup{},
	}
	if err := c.settings.Verify(); err != nil {
		return nil, err
	}
	if err := c.generateTasks(); err != nil {
		return nil, err
	}

	// Start up the rpc server to allow workers to communicate with the coordinator
	c.Server = rpc.NewServer(c.settings.Transport, c, c.settings.ServerAddress, "CoordinatorServer")
	if err := c.Server.Run(); err != nil {
		return nil, err
	}

	go c.tickers()
	go c.ingestTasks()

	return c, nil
}

// Address is where workers reach the coordinator
func (c *Coordinator) Address() string {
	return c.Server.Address()
}

func (c *Coordinator) tickers() {
	rollCall := time.NewTicker(c.settings.RollCallInterval)
	heartBeat := time.NewTicker(c.settings.HeartbeatInterval)
	defer rollCall.Stop()
	defer heartBeat.Stop()

	for {
		select {
		case <-c.stop:
			return

		case <-rollCall.C:
			c.logger.Debug("Roll call ticker")
			c.mutex.Lock()
			clients := make(map[string]*rpc.Client, len(c.clients))
			for address, client := range c.clients {
				clients[address] = client
			}
			c.mutex.Unlock()

			var junk misc.Nothing
			for address, client := range clients {
				var reply bool
				err := client.Call("Worker.RollCall", junk, &reply)
				if err != nil {
					// Cannot communicate with the worker
					c.logger.Warning(fmt.Sprintf("Worker %s missed roll call: %s", address, err))

					// Remove worker from pool
					var nothing misc.Nothing
					misc.CheckError(c.DeRegisterWorker(address, &nothing), c.logger, misc.Warning)
				}
			}

		case <-heartBeat.C:
			c.logger.Debug("Heart beat ticker")
			c.mutex.Lock()
			handedOut := 0
			for _, tasks := range c.tasksHandedOut {
				handedOut += len(tasks)
			}
			message := fmt.Sprintf("Tasks [Total: %d] [Todo: %d] [Handed out: %d] [Ingested: %d] | Workers [%d]", c.taskCount, len(c.tasksTodo), handedOut, c.taskIngestedCount, len(c.clients))
			c.mutex.Unlock()
			c.logger.Info(message)
		}
	}
}

func (c *Coordinator) generateTasks() error {
	c.logger.Info("Generating tasks")

	for i, job := range c.settings.Jobs {
		kind, err := fractal.ParseKind(job.Kind)
		if err != nil {
			return err
		}
		taskTodo, err := task.NewTask(uint(i), job.Name, kind, job.Params)
		if err != nil {
			return err
		}
		c.tasksTodo = append(c.tasksTodo, taskTodo)
	}

	c.logger.Debug(fmt.Sprintf("Done generating %d tasks", len(c.tasksTodo)))
	return nil
}

func (c *Coordinator) ingestTasks() {
	c.logger.Info("Ingesting tasks")

	var startTime = time.Now()
	for {
		var taskReceived task.Task
		select {
		case taskReceived = <-c.tasksDone:
		case <-c.stop:
			return
		}

		c.mutex.Lock()
		if _, duplicate := c.results[taskReceived.ID]; duplicate {
			c.mutex.Unlock()
			c.logger.Debug(fmt.Sprintf("Ignoring duplicate result for task %d", taskReceived.ID))
			continue
		}
		c.results[taskReceived.ID] = taskReceived
		c.taskIngestedCount++
		finished := c.taskIngestedCount == c.taskCount
		if finished {
			// Closed under the mutex so RegisterWorker never adds to workerWait after Wait started
			close(c.done)
		}
		c.mutex.Unlock()

		switch taskReceived.Status {
		case progress.Failed:
			c.logger.Error(fmt.Sprintf("Task %s failed on %s: %s", taskReceived.Name, taskReceived.WorkerAddress, taskReceived.Error))
		default:
			c.logger.Info(fmt.Sprintf("Task %s %s on %s", taskReceived.Name, taskReceived.Status, taskReceived.WorkerAddress))
		}

		if finished {
			c.logger.Debug(fmt.Sprintf("Done ingesting %d tasks in %s", c.taskCount, time.Since(startTime)))
			return
		}
	}
}

// Done is closed once every task has a result
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until every task has a result and every worker has left, then
// stops the server
func (c *Coordinator) Wait() {
	<-c.done
	c.mutex.Lock()
	workers := len(c.clients)
	c.mutex.Unlock()
	c.logger.Info(fmt.Sprintf("Waiting for %d workers to disconnect", workers))
	c.workerWait.Wait()
	c.shutdown()
}

func (c *Coordinator) shutdown() {
	c.stopOnce.Do(func() {
		close(c.stop)
		misc.CheckError(c.Server.Stop(), c.logger, misc.Warning)
	})
}

// Results returns the finished tasks ordered by ID
func (c *Coordinator) Results() []task.Task {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	results := make([]task.Task, 0, len(c.results))
	for _, t := range c.results {
		results = append(results, t)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].ID < results[j].ID
	})
	return results
}

// Progress returns the latest report a worker sent for a task
func (c *Coordinator) Progress(taskID uint) (task.ProgressReport, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	report, ok := c.progress[taskID]
	return report, ok
}

func (c *Coordinator) RegisterWorker(workerServerAddress string, reply *misc.Nothing) error {
	if c.finished() {
		return ErrRunFinished
	}

	// Create a client to communicate with this worker
	client := rpc.NewClient(c.settings.Transport, workerServerAddress, workerServerAddress)
	if err := client.Connect(); err != nil {
		return fmt.Errorf("connecting back to worker %s: %w", workerServerAddress, err)
	}

	c.mutex.Lock()
	if c.finished() {
		c.mutex.Unlock()
		misc.CheckError(client.Disconnect(), c.logger, misc.Warning)
		return ErrRunFinished
	}
	c.workerWait.Add(1)
	c.clients[workerServerAddress] = client
	// Track all tasks this worker checks out
	if _, ok := c.tasksHandedOut[workerServerAddress]; !ok {
		c.tasksHandedOut[workerServerAddress] = make(map[uint]task.Task)
	}
	c.mutex.Unlock()

	c.logger.Info(fmt.Sprintf("Worker joined: %s", workerServerAddress))

	return nil
}

func (c *Coordinator) DeRegisterWorker(workerServerAddress string, reply *misc.Nothing) error {
	c.mutex.Lock()
	client, registered := c.clients[workerServerAddress]

	// Put tasks this worker has not returned yet back into the todo queue
	requeued := 0
	for _, t := range c.tasksHandedOut[workerServerAddress] {
		if _, finished := c.results[t.ID]; finished {
			continue
		}
		t.Status = progress.Pending
		t.WorkerAddress = ""
		c.tasksTodo = append([]task.Task{t}, c.tasksTodo...)
		requeued++
	}

	// Remove stored values associated with this worker
	delete(c.tasksHandedOut, workerServerAddress)
	delete(c.clients, workerServerAddress)
	c.mutex.Unlock()

	if !registered {
		return fmt.Errorf("worker %s is not registered", workerServerAddress)
	}
	misc.CheckError(client.Disconnect(), c.logger, misc.Warning)
	if requeued > 0 {
		c.logger.Warning(fmt.Sprintf("Requeued %d tasks from worker %s", requeued, workerServerAddress))
	}
	c.logger.Info(fmt.Sprintf("Worker left: %s", workerServerAddress))
	c.workerWait.Done()

	return nil
}

func (c *Coordinator) RollCall(nothing misc.Nothing, present *bool) error {
	*present = true
	return nil
}

func (c *Coordinator) GetTask(workerAddress string, reply *task.Task) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if len(c.tasksTodo) == 0 {
		c.logger.Info(fmt.Sprintf("Telling worker %s that all tasks are handed out", workerAddress))
		return task.ErrAllTasksHandedOut
	}

	todo := c.tasksTodo[0]
	c.tasksTodo = c.tasksTodo[1:]
	todo.Status = progress.Running
	todo.WorkerAddress = workerAddress
	if _, ok := c.tasksHandedOut[workerAddress]; !ok {
		c.tasksHandedOut[workerAddress] = make(map[uint]task.Task)
	}
	c.tasksHandedOut[workerAddress][todo.ID] = todo
	*reply = todo
	return nil
}

func (c *Coordinator) ReturnTask(done task.Task, nothing *misc.Nothing) error {
	c.mutex.Lock()
	delete(c.tasksHandedOut[done.WorkerAddress], done.ID)
	c.mutex.Unlock()
	c.submit(done)
	return nil
}

// ReportProgress records a progress report and replies whether the task has
// been canceled
func (c *Coordinator) ReportProgress(report task.ProgressReport, canceled *bool) error {
	c.mutex.Lock()
	c.progress[report.TaskID] = report
	*canceled = c.canceled[report.TaskID]
	c.mutex.Unlock()
	c.logger.Debug(report.String())
	return nil
}

// CancelTask cancels a task. A queued task is finished as canceled right
// away, a running one stops at its worker's next progress report.
func (c *Coordinator) CancelTask(taskID uint, nothing *misc.Nothing) error {
	c.mutex.Lock()
	if _, finished := c.results[taskID]; finished {
		c.mutex.Unlock()
		return fmt.Errorf("task %d already finished", taskID)
	}
	if taskID >= c.taskCount {
		c.mutex.Unlock()
		return errors.New("unknown task")
	}
	c.canceled[taskID] = true

	var queued *task.Task
	for i, t := range c.tasksTodo {
		if t.ID == taskID {
			t.Status = progress.Canceled
			queued = &t
			c.tasksTodo = append(c.tasksTodo[:i], c.tasksTodo[i+1:]...)
			break
		}
	}
	c.mutex.Unlock()

	c.logger.Info(fmt.Sprintf("Canceling task %d", taskID))
	if queued != nil {
		c.submit(*queued)
	}
	return nil
}

func (c *Coordinator) finished() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Coordinator) submit(done task.Task) {
	select {
	case c.tasksDone <- done:
	case <-c.done:
	}
}
