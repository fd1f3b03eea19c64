// Package kernel selects between the accelerated escape-time kernel and the
// CPU computer, falling back to the CPU when the kernel cannot run.
package kernel

import (
	"fmt"

	"DistributedFractals/escapetime"
	"DistributedFractals/progress"
)

const (
	Unavailable BackendErrorKind = iota
	Launch
	Execution
)

type BackendErrorKind int

func (k BackendErrorKind) String() string {
	return []string{
		"unavailable", "launch", "execution",
	}[k]
}

// BackendError is the failure of one compute backend attempt
type BackendError struct {
	Backend string
	Err     error
	Kind    BackendErrorKind
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s backend %s failure: %v", e.Backend, e.Kind, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// ComputeBackend produces an iteration raster for an escape-time job
type ComputeBackend interface {
	Name() string
	Compute(job escapetime.Job, sink progress.Sink) (escapetime.Outcome, error)
}

// CPUBackend runs the vectorized escape-time computer
type CPUBackend struct {
	computer *escapetime.Computer
}

func NewCPUBackend() *CPUBackend {
	return &CPUBackend{computer: escapetime.NewComputer()}
}

func (b *CPUBackend) Name() string {
	return "cpu"
}

func (b *CPUBackend) Compute(job escapetime.Job, sink progress.Sink) (escapetime.Outcome, error) {
	return b.computer.Compute(job, sink)
}
