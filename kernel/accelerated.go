package kernel

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"DistributedFractals/escapetime"
	"DistributedFractals/fractal"
	"DistributedFractals/progress"
	"github.com/BrugadaSyndrome/bslogger"
)

// MaxWorkgroupsPerDimension matches the default WebGPU dispatch limit
const MaxWorkgroupsPerDimension = 65535

type tile struct {
	column int
	row    int
}

// AcceleratedBackend executes the escape-time kernel over a 2-D grid of
// WorkgroupSize tiles, one invocation per pixel. Tiles are spread over a
// fixed set of goroutines and Compute blocks until every tile is done.
type AcceleratedBackend struct {
	capability Capability
	invoke     func(zr, zi, cr, ci, radius2 float64, maxIterations int) float64
	logger     bslogger.Logger

	MaxWorkgroups int
	Workers       int
}

func NewAcceleratedBackend(capability Capability) *AcceleratedBackend {
	return &AcceleratedBackend{
		capability:    capability,
		invoke:        escapetime.EscapeTime,
		logger:        bslogger.NewLogger("AcceleratedBackend", bslogger.Normal, nil),
		MaxWorkgroups: MaxWorkgroupsPerDimension,
		Workers:       runtime.GOMAXPROCS(0),
	}
}

func (b *AcceleratedBackend) Name() string {
	return "accelerated"
}

func (b *AcceleratedBackend) Compute(job escapetime.Job, sink progress.Sink) (escapetime.Outcome, error) {
	if !b.capability.Available {
		return escapetime.Outcome{}, &BackendError{Backend: b.Name(), Kind: Unavailable, Err: errors.New(b.capability.Reason)}
	}
	if err := job.Verify(); err != nil {
		return escapetime.Outcome{}, err
	}
	sink = progress.OrNop(sink)

	width, height := job.Params.Width, job.Params.Height
	groupsX := (width + WorkgroupSize - 1) / WorkgroupSize
	groupsY := (height + WorkgroupSize - 1) / WorkgroupSize
	if groupsX > b.MaxWorkgroups || groupsY > b.MaxWorkgroups {
		return escapetime.Outcome{}, &BackendError{
			Backend: b.Name(),
			Kind:    Launch,
			Err:     fmt.Errorf("launch grid %dx%d exceeds %d workgroups per dimension", groupsX, groupsY, b.MaxWorkgroups),
		}
	}

	config := NewLaunchConfig(job)
	b.logger.Debug(fmt.Sprintf("Launching kernel with config %s", config))

	raster := fractal.NewIterationRaster(width, height, job.Params.MaxIterations)
	if sink.ShouldCancel() {
		return escapetime.Outcome{Canceled: true, Raster: raster}, nil
	}
	sink.Report(progress.Update{
		Percent:   escapetime.ProgressStart,
		Step:      fmt.Sprintf("Launching kernel on %dx%d workgroups", groupsX, groupsY),
		StepTotal: groupsX * groupsY,
		Details: map[string]any{
			"workgroups_x": groupsX,
			"workgroups_y": groupsY,
		},
	})

	if err := b.dispatch(job, raster, groupsX, groupsY); err != nil {
		return escapetime.Outcome{}, &BackendError{Backend: b.Name(), Kind: Execution, Err: err}
	}

	inSet := 0
	for _, v := range raster.Values {
		if v >= float64(raster.MaxIterations) {
			inSet++
		}
	}
	sink.Report(progress.Update{
		Percent:      escapetime.ProgressEnd,
		Step:         "Kernel complete",
		StepProgress: 100,
		Details: map[string]any{
			"escaped_points":   width*height - inSet,
			"remaining_points": inSet,
		},
	})
	if sink.ShouldCancel() {
		return escapetime.Outcome{Canceled: true, Raster: raster}, nil
	}
	b.logger.Debug(fmt.Sprintf("Kernel computed %dx%d, %d points in set", width, height, inSet))
	return escapetime.Outcome{Raster: raster}, nil
}

func (b *AcceleratedBackend) dispatch(job escapetime.Job, raster *fractal.IterationRaster, groupsX int, groupsY int) error {
	xs, ys := job.Grid()
	radius2 := job.Params.EscapeRadius * job.Params.EscapeRadius

	tiles := make(chan tile, groupsX*groupsY)
	for row := 0; row < groupsY; row++ {
		for column := 0; column < groupsX; column++ {
			tiles <- tile{column: column, row: row}
		}
	}
	close(tiles)

	var failure error
	var failureOnce sync.Once
	var wg sync.WaitGroup
	for w := 0; w < max(1, b.Workers); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					failureOnce.Do(func() {
						failure = fmt.Errorf("kernel invocation panicked: %v", r)
					})
				}
			}()
			for t := range tiles {
				b.invokeTile(job, raster, t, xs, ys, radius2)
			}
		}()
	}
	wg.Wait()
	return failure
}

// invokeTile runs the kernel body for every pixel of one workgroup. Pixels
// past the raster edge are skipped like out of range invocations.
func (b *AcceleratedBackend) invokeTile(job escapetime.Job, raster *fractal.IterationRaster, t tile, xs []float64, ys []float64, radius2 float64) {
	for ly := 0; ly < WorkgroupSize; ly++ {
		row := t.row*WorkgroupSize + ly
		if row >= raster.Height {
			return
		}
		for lx := 0; lx < WorkgroupSize; lx++ {
			column := t.column*WorkgroupSize + lx
			if column >= raster.Width {
				break
			}
			zr, zi, cr, ci := job.Seed(xs[column], ys[row])
			raster.Values[row*raster.Width+column] = b.invoke(zr, zi, cr, ci, radius2, job.Params.MaxIterations)
		}
	}
}
