package escapetime

import (
	"fmt"

	"DistributedFractals/fractal"
	"DistributedFractals/progress"
	"github.com/BrugadaSyndrome/bslogger"
)

// Share of the overall progress budget spent iterating
const (
	ProgressStart = 10.0
	ProgressEnd   = 90.0
)

// Outcome is a computed raster. A canceled outcome holds only the cells that
// escaped before cancellation; the rest are zero.
type Outcome struct {
	Canceled bool
	Raster   *fractal.IterationRaster
}

// Computer iterates all pixels of a raster together, one iteration at a time,
// keeping a compacted list of the pixels that have not escaped yet.
type Computer struct {
	logger bslogger.Logger
}

func NewComputer() *Computer {
	return &Computer{
		logger: bslogger.NewLogger("EscapeTimeComputer", bslogger.Normal, nil),
	}
}

func (c *Computer) Compute(job Job, sink progress.Sink) (Outcome, error) {
	if err := job.Verify(); err != nil {
		return Outcome{}, err
	}
	sink = progress.OrNop(sink)

	width, height := job.Params.Width, job.Params.Height
	maxIterations := job.Params.MaxIterations
	total := width * height
	raster := fractal.NewIterationRaster(width, height, maxIterations)

	zr := make([]float64, total)
	zi := make([]float64, total)
	cr := make([]float64, total)
	ci := make([]float64, total)
	active := make([]int, total)

	xs, ys := job.Grid()
	for row, y := range ys {
		for column, x := range xs {
			p := row*width + column
			zr[p], zi[p], cr[p], ci[p] = job.Seed(x, y)
			active[p] = p
		}
	}

	radius2 := job.Params.EscapeRadius * job.Params.EscapeRadius
	interval := max(1, maxIterations/50)
	label := kindLabel(job.Kind)

	iteration := 0
	for ; iteration < maxIterations && len(active) > 0; iteration++ {
		// Compact in place: survivors are written at or before the read index
		remaining := active[:0]
		for _, p := range active {
			x, y := zr[p], zi[p]
			x, y = x*x-y*y+cr[p], 2*x*y+ci[p]
			zr[p], zi[p] = x, y
			if x*x+y*y > radius2 {
				raster.Values[p] = Smooth(iteration, x, y, maxIterations)
				continue
			}
			remaining = append(remaining, p)
		}
		active = remaining

		if iteration%interval == 0 {
			escaped := total - len(active)
			sink.Report(progress.Update{
				Percent:      ProgressStart + float64(iteration)/float64(maxIterations)*(ProgressEnd-ProgressStart),
				Step:         fmt.Sprintf("Computing %s iteration %d/%d", label, iteration+1, maxIterations),
				StepTotal:    maxIterations,
				StepProgress: 100 * float64(escaped) / float64(total),
				Details: map[string]any{
					"current_iteration": iteration + 1,
					"escaped_points":    escaped,
					"remaining_points":  len(active),
				},
			})
			if sink.ShouldCancel() {
				c.logger.Info(fmt.Sprintf("%s computation canceled at iteration %d", label, iteration+1))
				return Outcome{Canceled: true, Raster: raster}, nil
			}
		}
	}

	for _, p := range active {
		raster.Values[p] = float64(maxIterations)
	}
	c.logger.Debug(fmt.Sprintf("%s computed %dx%d in %d iterations, %d points in set", label, width, height, iteration, len(active)))
	return Outcome{Raster: raster}, nil
}

func kindLabel(kind fractal.Kind) string {
	if kind == fractal.Julia {
		return "Julia"
	}
	return "Mandelbrot"
}
