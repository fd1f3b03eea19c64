// Package cantor subdivides a rectangle into Cantor dust
package cantor

import (
	"fmt"
	"math"

	"DistributedFractals/fractal"
	"DistributedFractals/progress"
	"github.com/BrugadaSyndrome/bslogger"
)

const (
	// MaxRecursionDepth keeps the leaf count, 8^depth, within a few million
	MaxRecursionDepth = 7

	// ProgressEnd is the share of the progress budget spent subdividing
	ProgressEnd = 95.0
)

// Outcome lists the leaf rectangles in depth-first order. A canceled outcome
// holds the leaves emitted before cancellation.
type Outcome struct {
	Canceled   bool
	GapRatio   float64
	Rectangles []fractal.Rectangle
}

type Generator struct {
	logger bslogger.Logger
}

func NewGenerator() *Generator {
	return &Generator{
		logger: bslogger.NewLogger("CantorGenerator", bslogger.Normal, nil),
	}
}

// LeafCount is the number of rectangles produced at depth
func LeafCount(depth int) int {
	return int(math.Pow(8, float64(depth)))
}

// visitor collects leaves for one Generate call and owns its progress counters
type visitor struct {
	canceled  bool
	depth     int
	gapRatio  float64
	interval  int
	leaves    []fractal.Rectangle
	processed int
	sink      progress.Sink
	total     int
}

// Generate splits params.Bounds into a 3x3 grid without its center cell and
// recurses into the 8 remaining cells until RecursionDepth is reached.
// GapRatio is carried through to the outcome for whoever draws the leaves.
func (g *Generator) Generate(params fractal.CantorParams, sink progress.Sink) (Outcome, error) {
	if params.RecursionDepth < 0 || params.RecursionDepth > MaxRecursionDepth {
		return Outcome{}, &fractal.ParameterError{
			Field:    "recursion_depth",
			Expected: fmt.Sprintf("integer in [0, %d]", MaxRecursionDepth),
			Value:    params.RecursionDepth,
		}
	}

	total := LeafCount(params.RecursionDepth)
	v := &visitor{
		depth:    params.RecursionDepth,
		gapRatio: params.GapRatio,
		interval: max(1, total/100),
		leaves:   make([]fractal.Rectangle, 0, total),
		sink:     progress.OrNop(sink),
		total:    total,
	}
	v.sink.Report(progress.Update{
		Percent:   0,
		Step:      fmt.Sprintf("Generating Cantor dust (depth %d)", params.RecursionDepth),
		StepTotal: params.RecursionDepth,
		Details: map[string]any{
			"gap_ratio":        params.GapRatio,
			"total_rectangles": total,
		},
	})

	v.visit(params.Bounds, params.RecursionDepth)
	if v.canceled {
		g.logger.Info(fmt.Sprintf("Cantor dust canceled after %d of %d rectangles", v.processed, total))
	} else {
		g.logger.Debug(fmt.Sprintf("Cantor dust generated %d rectangles", len(v.leaves)))
	}
	return Outcome{Canceled: v.canceled, GapRatio: params.GapRatio, Rectangles: v.leaves}, nil
}

func (v *visitor) visit(r fractal.Rectangle, depth int) {
	if v.canceled {
		return
	}
	if depth == 0 {
		v.leaf(r)
		return
	}
	if v.sink.ShouldCancel() {
		v.canceled = true
		return
	}

	w, h := r.Width/3, r.Height/3
	for _, cell := range [8][2]float64{
		{0, 0}, {1, 0}, {2, 0},
		{0, 1}, {2, 1},
		{0, 2}, {1, 2}, {2, 2},
	} {
		v.visit(fractal.Rectangle{
			X:      r.X + cell[0]*w,
			Y:      r.Y + cell[1]*h,
			Width:  w,
			Height: h,
		}, depth-1)
	}
}

func (v *visitor) leaf(r fractal.Rectangle) {
	v.leaves = append(v.leaves, r)
	v.processed++
	if v.processed%v.interval != 0 && v.processed != v.total {
		return
	}

	fraction := float64(v.processed) / float64(v.total)
	v.sink.Report(progress.Update{
		Percent:      fraction * ProgressEnd,
		Step:         fmt.Sprintf("Generating Cantor dust (depth %d)", v.depth),
		StepTotal:    v.depth,
		StepProgress: fraction * 100,
		Details: map[string]any{
			"processed_rectangles": v.processed,
			"total_rectangles":     v.total,
		},
	})
	if v.sink.ShouldCancel() {
		v.canceled = true
	}
}
