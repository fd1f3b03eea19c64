package worker

import (
	"testing"
	"time"

	"DistributedFractals/coordinator"
	"DistributedFractals/fractal"
	"DistributedFractals/misc"
	"DistributedFractals/progress"
	"DistributedFractals/render"
	"DistributedFractals/rpc"
)

const testTimeout = 60 * time.Second

func startCoordinator(t *testing.T, transport rpc.Transport, jobs ...coordinator.JobSettings) *coordinator.Coordinator {
	t.Helper()
	c, err := coordinator.NewCoordinator(coordinator.Settings{
		Jobs:          jobs,
		RunName:       "loopback",
		ServerAddress: "127.0.0.1:0",
		Transport:     transport,
	})
	if err != nil {
		t.Fatalf("NewCoordinator returned error: %v", err)
	}
	return c
}

func startWorker(t *testing.T, transport rpc.Transport, coordinatorAddress string) *Worker {
	t.Helper()
	settings := Settings{
		Backend:            BackendCPU,
		CoordinatorAddress: coordinatorAddress,
		ListenAddress:      "127.0.0.1:0",
		Transport:          transport,
	}
	w, err := NewWorker(settings, render.NewRenderer(settings.Capability()))
	if err != nil {
		t.Fatalf("NewWorker returned error: %v", err)
	}
	return w
}

func waitCoordinator(t *testing.T, c *coordinator.Coordinator) {
	t.Helper()
	finished := make(chan struct{})
	go func() {
		c.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(testTimeout):
		t.Fatal("coordinator did not finish")
	}
}

func TestLoopbackRendersEveryKind(t *testing.T) {
	jobs := []coordinator.JobSettings{
		{Kind: "mandelbrot", Params: fractal.Params{"width": 32, "height": 24, "max_iterations": 50}},
		{Kind: "julia", Params: fractal.Params{"width": 16, "height": 16, "colormap_name": "plasma"}},
		{Kind: "l_system", Params: fractal.Params{"generation_depth": 2}},
		{Kind: "cantor_dust", Params: fractal.Params{"recursion_depth": 2}},
	}
	wantKinds := []fractal.Kind{fractal.Mandelbrot, fractal.Julia, fractal.LSystem, fractal.CantorDust}

	for _, transport := range []rpc.Transport{rpc.TCP, rpc.HTTP} {
		t.Run(transport.String(), func(t *testing.T) {
			c := startCoordinator(t, transport, jobs...)
			first := startWorker(t, transport, c.Address())
			second := startWorker(t, transport, c.Address())
			waitCoordinator(t, c)
			first.Wait()
			second.Wait()

			if got := first.TasksCompleted() + second.TasksCompleted(); got != len(jobs) {
				t.Errorf("workers completed %d tasks, want %d", got, len(jobs))
			}

			results := c.Results()
			if len(results) != len(jobs) {
				t.Fatalf("got %d results, want %d", len(results), len(jobs))
			}
			for i, done := range results {
				if done.Status != progress.Completed {
					t.Fatalf("task %d status = %s (%s), want completed", i, done.Status, done.Error)
				}
				result, err := done.Result()
				if err != nil {
					t.Fatalf("task %d Result returned error: %v", i, err)
				}
				if result.Kind != wantKinds[i] {
					t.Errorf("task %d kind = %s, want %s", i, result.Kind, wantKinds[i])
				}
				switch result.Kind {
				case fractal.Mandelbrot:
					if result.Colors.Width != 32 || result.Colors.Height != 24 {
						t.Errorf("mandelbrot raster = %dx%d, want 32x24", result.Colors.Width, result.Colors.Height)
					}
					if result.Backend != "cpu" {
						t.Errorf("backend = %q, want cpu", result.Backend)
					}
				case fractal.Julia:
					if result.Iterations == nil || len(result.Iterations.Values) != 16*16 {
						t.Error("julia iterations missing")
					}
				case fractal.LSystem:
					if len(result.Points) < 2 {
						t.Errorf("l-system returned %d points", len(result.Points))
					}
				case fractal.CantorDust:
					if len(result.Rectangles) != 64 {
						t.Errorf("cantor dust returned %d rectangles, want 64", len(result.Rectangles))
					}
				}
			}
		})
	}
}

func TestLoopbackCancelRunningTask(t *testing.T) {
	// Every point of this view is inside the set, so the render runs the full
	// iteration budget unless it is canceled
	slow := coordinator.JobSettings{
		Kind: "mandelbrot",
		Params: fractal.Params{
			"center":         []any{-0.1, 0.0},
			"zoom":           100.0,
			"max_iterations": 100000,
			"width":          300,
			"height":         300,
		},
	}
	c := startCoordinator(t, rpc.TCP, slow)
	w := startWorker(t, rpc.TCP, c.Address())

	deadline := time.Now().Add(testTimeout)
	for {
		if report, ok := c.Progress(0); ok && report.Status == progress.Running {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no progress report arrived")
		}
		time.Sleep(10 * time.Millisecond)
	}

	var nothing misc.Nothing
	if err := c.CancelTask(0, &nothing); err != nil {
		t.Fatalf("CancelTask returned error: %v", err)
	}
	waitCoordinator(t, c)
	w.Wait()

	results := c.Results()
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Status != progress.Canceled {
		t.Fatalf("status = %s, want canceled", results[0].Status)
	}
	result, err := results[0].Result()
	if err != nil {
		t.Fatalf("Result returned error: %v", err)
	}
	if !result.Canceled || result.Colors == nil || result.Colors.Width != 300 {
		t.Error("canceled render did not carry the placeholder")
	}
}

func TestLoopbackCancelQueuedTask(t *testing.T) {
	jobs := []coordinator.JobSettings{
		{Kind: "cantor_dust", Params: fractal.Params{"recursion_depth": 1}},
		{Kind: "cantor_dust", Params: fractal.Params{"recursion_depth": 1}},
	}
	c := startCoordinator(t, rpc.TCP, jobs...)

	var nothing misc.Nothing
	if err := c.CancelTask(1, &nothing); err != nil {
		t.Fatalf("CancelTask returned error: %v", err)
	}
	w := startWorker(t, rpc.TCP, c.Address())
	waitCoordinator(t, c)
	w.Wait()

	if got := w.TasksCompleted(); got != 1 {
		t.Errorf("worker completed %d tasks, want 1", got)
	}
	results := c.Results()
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Status != progress.Completed || results[1].Status != progress.Canceled {
		t.Errorf("statuses = %s/%s, want completed/canceled", results[0].Status, results[1].Status)
	}
}

func TestSettingsVerify(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		backend string
		wantErr bool
	}{
		{"defaults", "coordinator_address: 127.0.0.1:51000\n", BackendAuto, false},
		{"cpu", "backend: cpu\n", BackendCPU, false},
		{"unknown backend", "backend: tpu\n", "", true},
		{"unknown transport", "transport: quic\n", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := ParseSettings([]byte(tt.data))
			if tt.wantErr {
				if err == nil {
					t.Fatal("ParseSettings succeeded, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSettings returned error: %v", err)
			}
			if s.Backend != tt.backend {
				t.Errorf("Backend = %q, want %q", s.Backend, tt.backend)
			}
			if s.HeartbeatInterval != 30*time.Second || s.RollCallInterval != time.Minute {
				t.Errorf("intervals = %s/%s, want 30s/1m", s.HeartbeatInterval, s.RollCallInterval)
			}
		})
	}
}

func TestCPUSettingsSkipProbe(t *testing.T) {
	s := Settings{Backend: BackendCPU}
	if capability := s.Capability(); capability.Available {
		t.Error("cpu backend reported an available accelerator")
	}
}
