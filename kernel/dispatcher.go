package kernel

import (
	"errors"
	"fmt"

	"DistributedFractals/escapetime"
	"DistributedFractals/progress"
	"github.com/BrugadaSyndrome/bslogger"
)

// Dispatcher tries the accelerated backend first and re-runs the job on the
// fallback backend when the attempt ends in a BackendError
type Dispatcher struct {
	accelerated ComputeBackend
	fallback    ComputeBackend
	logger      bslogger.Logger
}

func NewDispatcher(capability Capability) *Dispatcher {
	return NewDispatcherWithBackends(NewAcceleratedBackend(capability), NewCPUBackend())
}

func NewDispatcherWithBackends(accelerated ComputeBackend, fallback ComputeBackend) *Dispatcher {
	return &Dispatcher{
		accelerated: accelerated,
		fallback:    fallback,
		logger:      bslogger.NewLogger("KernelDispatcher", bslogger.Normal, nil),
	}
}

// Compute returns the outcome and the name of the backend that produced it
func (d *Dispatcher) Compute(job escapetime.Job, sink progress.Sink) (escapetime.Outcome, string, error) {
	if d.accelerated != nil {
		outcome, err := d.accelerated.Compute(job, sink)
		if err == nil {
			return outcome, d.accelerated.Name(), nil
		}

		var backendErr *BackendError
		if !errors.As(err, &backendErr) {
			return escapetime.Outcome{}, d.accelerated.Name(), err
		}
		switch backendErr.Kind {
		case Unavailable:
			d.logger.Warning(fmt.Sprintf("Accelerated kernel unavailable, computing on %s: %v", d.fallback.Name(), backendErr.Err))
		case Launch, Execution:
			d.logger.Warning(fmt.Sprintf("Accelerated kernel %s failed, retrying on %s: %v", backendErr.Kind, d.fallback.Name(), backendErr.Err))
		}
	}

	outcome, err := d.fallback.Compute(job, sink)
	if err != nil {
		return escapetime.Outcome{}, d.fallback.Name(), fmt.Errorf("%s backend: %w", d.fallback.Name(), err)
	}
	return outcome, d.fallback.Name(), nil
}
