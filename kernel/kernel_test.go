package kernel

import (
	"errors"
	"math"
	"testing"

	"DistributedFractals/escapetime"
	"DistributedFractals/fractal"
	"DistributedFractals/progress"
)

type failingBackend struct {
	calls int
	err   error
}

func (b *failingBackend) Name() string {
	return "failing"
}

func (b *failingBackend) Compute(escapetime.Job, progress.Sink) (escapetime.Outcome, error) {
	b.calls++
	return escapetime.Outcome{}, b.err
}

type cancelSink struct {
	progress.Nop
}

func (cancelSink) ShouldCancel() bool { return true }

// panickingBackend is an available accelerated backend whose kernel body
// panics on the first pixel it sees
func panickingBackend() *AcceleratedBackend {
	b := NewAcceleratedBackend(forcedCapability())
	b.invoke = func(zr, zi, cr, ci, radius2 float64, maxIterations int) float64 {
		panic("invalid memory access in tile")
	}
	return b
}

func forcedCapability() Capability {
	return Capability{Available: true, WorkgroupSize: WorkgroupSize}
}

func testJobs() map[string]escapetime.Job {
	return map[string]escapetime.Job{
		"mandelbrot tile aligned": {
			Kind: fractal.Mandelbrot,
			Params: fractal.EscapeTimeParams{
				CenterX:       -0.5,
				EscapeRadius:  2,
				Height:        32,
				MaxIterations: 80,
				Width:         48,
				Zoom:          1,
			},
		},
		"mandelbrot ragged edges": {
			Kind: fractal.Mandelbrot,
			Params: fractal.EscapeTimeParams{
				CenterX:       -0.75,
				CenterY:       0.1,
				EscapeRadius:  4,
				Height:        23,
				MaxIterations: 120,
				Width:         37,
				Zoom:          3,
			},
		},
		"julia": {
			Kind: fractal.Julia,
			Params: fractal.EscapeTimeParams{
				CImag:         0.27,
				CReal:         -0.7,
				EscapeRadius:  2,
				Height:        19,
				MaxIterations: 60,
				Width:         21,
				Zoom:          1.5,
			},
		},
	}
}

func assertRastersEqual(t *testing.T, got *fractal.IterationRaster, want *fractal.IterationRaster) {
	t.Helper()
	if got.Width != want.Width || got.Height != want.Height {
		t.Fatalf("raster is %dx%d, want %dx%d", got.Width, got.Height, want.Width, want.Height)
	}
	for i := range want.Values {
		if math.Abs(got.Values[i]-want.Values[i]) > 1e-9 {
			t.Fatalf("cell %d = %g, want %g", i, got.Values[i], want.Values[i])
		}
	}
}

func TestAcceleratedMatchesCPU(t *testing.T) {
	for name, job := range testJobs() {
		t.Run(name, func(t *testing.T) {
			cpu, err := NewCPUBackend().Compute(job, nil)
			if err != nil {
				t.Fatalf("cpu Compute returned error: %v", err)
			}
			accelerated, err := NewAcceleratedBackend(forcedCapability()).Compute(job, nil)
			if err != nil {
				t.Fatalf("accelerated Compute returned error: %v", err)
			}
			assertRastersEqual(t, accelerated.Raster, cpu.Raster)
		})
	}
}

func TestAcceleratedSingleWorker(t *testing.T) {
	job := testJobs()["mandelbrot ragged edges"]
	backend := NewAcceleratedBackend(forcedCapability())
	backend.Workers = 1
	single, err := backend.Compute(job, nil)
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}
	cpu, _ := NewCPUBackend().Compute(job, nil)
	assertRastersEqual(t, single.Raster, cpu.Raster)
}

func TestAcceleratedErrors(t *testing.T) {
	job := testJobs()["julia"]
	tests := []struct {
		name    string
		backend *AcceleratedBackend
		want    BackendErrorKind
	}{
		{"unavailable", NewAcceleratedBackend(Capability{Reason: "no adapter"}), Unavailable},
		{"launch limit", func() *AcceleratedBackend {
			b := NewAcceleratedBackend(forcedCapability())
			b.MaxWorkgroups = 1
			return b
		}(), Launch},
		{"panicking tile", panickingBackend(), Execution},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.backend.Compute(job, nil)
			var backendErr *BackendError
			if !errors.As(err, &backendErr) {
				t.Fatalf("Compute error = %v, want *BackendError", err)
			}
			if backendErr.Kind != tt.want {
				t.Errorf("error kind = %s, want %s", backendErr.Kind, tt.want)
			}
		})
	}
}

func TestAcceleratedCanceledBeforeLaunch(t *testing.T) {
	outcome, err := NewAcceleratedBackend(forcedCapability()).Compute(testJobs()["julia"], cancelSink{})
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}
	if !outcome.Canceled {
		t.Error("Compute ignored a pending cancel request")
	}
}

func TestDispatcherFallsBack(t *testing.T) {
	job := testJobs()["mandelbrot tile aligned"]
	want, _ := NewCPUBackend().Compute(job, nil)

	for _, kind := range []BackendErrorKind{Unavailable, Launch, Execution} {
		t.Run(kind.String(), func(t *testing.T) {
			accelerated := &failingBackend{err: &BackendError{Backend: "failing", Kind: kind, Err: errors.New("boom")}}
			dispatcher := NewDispatcherWithBackends(accelerated, NewCPUBackend())
			outcome, backend, err := dispatcher.Compute(job, nil)
			if err != nil {
				t.Fatalf("Compute returned error: %v", err)
			}
			if backend != "cpu" {
				t.Errorf("backend = %q, want cpu", backend)
			}
			if accelerated.calls != 1 {
				t.Errorf("accelerated backend called %d times, want 1", accelerated.calls)
			}
			assertRastersEqual(t, outcome.Raster, want.Raster)
		})
	}
}

func TestDispatcherUnavailableCapability(t *testing.T) {
	outcome, backend, err := NewDispatcher(Capability{Reason: "disabled"}).Compute(testJobs()["julia"], nil)
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}
	if backend != "cpu" || outcome.Raster == nil {
		t.Errorf("got backend %q with raster %v, want cpu result", backend, outcome.Raster)
	}
}

func TestDispatcherUsesAccelerated(t *testing.T) {
	_, backend, err := NewDispatcher(forcedCapability()).Compute(testJobs()["julia"], nil)
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}
	if backend != "accelerated" {
		t.Errorf("backend = %q, want accelerated", backend)
	}
}

func TestDispatcherFallbackFailure(t *testing.T) {
	accelerated := &failingBackend{err: &BackendError{Kind: Execution, Err: errors.New("device lost")}}
	fallback := &failingBackend{err: errors.New("out of memory")}
	_, _, err := NewDispatcherWithBackends(accelerated, fallback).Compute(testJobs()["julia"], nil)
	if err == nil {
		t.Fatal("Compute succeeded although both backends failed")
	}
}

func TestDispatcherKeepsNonBackendErrors(t *testing.T) {
	accelerated := &failingBackend{err: errors.New("invalid job")}
	fallback := &failingBackend{}
	if _, _, err := NewDispatcherWithBackends(accelerated, fallback).Compute(testJobs()["julia"], nil); err == nil {
		t.Fatal("Compute swallowed a non-backend error")
	}
	if fallback.calls != 0 {
		t.Errorf("fallback called %d times, want 0", fallback.calls)
	}
}

func TestProbe(t *testing.T) {
	capability := Probe()
	if capability.Available {
		if capability.SPIRVWords == 0 || capability.WorkgroupSize != WorkgroupSize {
			t.Errorf("available capability is incomplete: %s", capability)
		}
		return
	}
	if capability.Reason == "" {
		t.Error("unavailable capability has no reason")
	}
}

func TestCompileShaderRejectsInvalidSource(t *testing.T) {
	if _, err := CompileShader("fn main( {"); err == nil {
		t.Error("CompileShader accepted malformed WGSL")
	}
}

func TestDispatcherRecoversFromTilePanic(t *testing.T) {
	job := testJobs()["mandelbrot ragged edges"]
	want, _ := NewCPUBackend().Compute(job, nil)

	outcome, backend, err := NewDispatcherWithBackends(panickingBackend(), NewCPUBackend()).Compute(job, nil)
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}
	if backend != "cpu" {
		t.Errorf("backend = %q, want cpu", backend)
	}
	assertRastersEqual(t, outcome.Raster, want.Raster)
}

// escapes iterates one orbit without smoothing
func escapes(zr, zi, cr, ci, radius2 float64, maxIterations int) bool {
	for i := 0; i < maxIterations; i++ {
		zr, zi = zr*zr-zi*zi+cr, 2*zr*zi+ci
		if zr*zr+zi*zi > radius2 {
			return true
		}
	}
	return false
}

// The kernel clamps escaped pixels strictly below max_iterations so that only
// points in the set carry the maximum
func TestAcceleratedEscapedValuesStayBelowMax(t *testing.T) {
	for name, job := range testJobs() {
		t.Run(name, func(t *testing.T) {
			outcome, err := NewAcceleratedBackend(forcedCapability()).Compute(job, nil)
			if err != nil {
				t.Fatalf("Compute returned error: %v", err)
			}
			xs, ys := job.Grid()
			radius2 := job.Params.EscapeRadius * job.Params.EscapeRadius
			limit := float64(job.Params.MaxIterations)
			for row, y := range ys {
				for column, x := range xs {
					v := outcome.Raster.At(column, row)
					zr, zi, cr, ci := job.Seed(x, y)
					if escapes(zr, zi, cr, ci, radius2, job.Params.MaxIterations) {
						if v < 0 || v >= limit {
							t.Fatalf("escaped pixel (%d, %d) = %g, want within [0, %g)", column, row, v, limit)
						}
					} else if v != limit {
						t.Fatalf("pixel (%d, %d) in the set = %g, want %g", column, row, v, limit)
					}
				}
			}
		})
	}
}

func TestLaunchConfig(t *testing.T) {
	tests := []struct {
		name  string
		job   escapetime.Job
		julia uint32
	}{
		{"mandelbrot", testJobs()["mandelbrot tile aligned"], 0},
		{"julia", testJobs()["julia"], 1},
		{"deep iteration budget", escapetime.Job{
			Kind: fractal.Mandelbrot,
			Params: fractal.EscapeTimeParams{
				EscapeRadius:  2,
				Height:        1,
				MaxIterations: 100000,
				Width:         1,
				Zoom:          1,
			},
		}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := NewLaunchConfig(tt.job)
			limit := float32(tt.job.Params.MaxIterations)
			if config.Upper >= limit {
				t.Errorf("Upper = %g, want below %g", config.Upper, limit)
			}
			if math.Nextafter32(config.Upper, limit) != limit {
				t.Errorf("Upper = %g is not the float32 right below %g", config.Upper, limit)
			}
			if config.Julia != tt.julia {
				t.Errorf("Julia = %d, want %d", config.Julia, tt.julia)
			}
			if tt.job.Params.Width == 1 && config.XStep != 0 {
				t.Errorf("XStep = %g for a single column, want 0", config.XStep)
			}
		})
	}
}
