// Package lsystem expands L-system grammars and walks the result with a
// turtle to produce a normalized polyline.
package lsystem

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"DistributedFractals/fractal"
	"DistributedFractals/progress"
	"github.com/BrugadaSyndrome/bslogger"
)

// MaxProgramLength bounds the expanded string
const MaxProgramLength = 1 << 24

// Characters between two progress reports and cancellation checks
const reportInterval = 100

var ErrProgramTooLong = errors.New("expanded program too long")

// Outcome is the walked polyline. Program is empty when rewriting was canceled.
type Outcome struct {
	Canceled bool
	Points   []fractal.Point
	Program  string
}

type Generator struct {
	logger bslogger.Logger
}

func NewGenerator() *Generator {
	return &Generator{
		logger: bslogger.NewLogger("LSystemGenerator", bslogger.Normal, nil),
	}
}

// Generate rewrites the axiom, spending the first half of the progress budget,
// then walks the program with the second half
func (g *Generator) Generate(params fractal.LSystemParams, sink progress.Sink) (Outcome, error) {
	sink = progress.OrNop(sink)

	program, canceled, err := Rewrite(params.Axiom, params.Rules, params.GenerationDepth, sink)
	if err != nil {
		return Outcome{}, err
	}
	if canceled {
		g.logger.Info("L-system rewriting canceled")
		return Outcome{Canceled: true, Points: []fractal.Point{{}}}, nil
	}
	g.logger.Debug(fmt.Sprintf("L-system expanded to %d characters after %d generations", len(program), params.GenerationDepth))

	points, canceled, err := Walk(program, params.TurnAngle, sink)
	if err != nil {
		return Outcome{}, err
	}
	if canceled {
		g.logger.Info(fmt.Sprintf("L-system walk canceled after %d points", len(points)))
	}
	return Outcome{Canceled: canceled, Points: Normalize(points), Program: program}, nil
}

// Rewrite applies the rules to every character of the axiom for depth
// generations. Characters without a rule are copied unchanged.
func Rewrite(axiom string, rules map[rune]string, depth int, sink progress.Sink) (string, bool, error) {
	sink = progress.OrNop(sink)

	current := axiom
	for generation := 0; generation < depth; generation++ {
		var next strings.Builder
		total := len(current)
		processed := 0
		for _, c := range current {
			if expansion, ok := rules[c]; ok {
				next.WriteString(expansion)
			} else {
				next.WriteRune(c)
			}
			if next.Len() > MaxProgramLength {
				return "", false, fmt.Errorf("generation %d exceeds %d characters: %w", generation+1, MaxProgramLength, ErrProgramTooLong)
			}

			processed++
			if processed%reportInterval == 0 {
				fraction := float64(processed) / float64(total)
				sink.Report(progress.Update{
					Percent:      (float64(generation) + fraction) / float64(depth) * 50,
					Step:         fmt.Sprintf("Generating L-system (iteration %d/%d)", generation+1, depth),
					StepTotal:    depth,
					StepProgress: fraction * 100,
				})
				if sink.ShouldCancel() {
					return "", true, nil
				}
			}
		}
		current = next.String()

		sink.Report(progress.Update{
			Percent:      float64(generation+1) / float64(depth) * 50,
			Step:         fmt.Sprintf("L-system iteration %d complete", generation+1),
			StepTotal:    depth,
			StepProgress: 100,
			Details: map[string]any{
				"program_length": len(current),
			},
		})
		if sink.ShouldCancel() {
			return "", true, nil
		}
	}
	return current, false, nil
}

type turtle struct {
	heading float64
	x       float64
	y       float64
}

// Walk interprets program from the origin facing +x. F moves one unit and
// emits the new position, + and - turn by turnAngle degrees, [ saves the
// turtle and ] restores it and emits the restored position. Other characters
// are ignored. The returned points start with the origin.
func Walk(program string, turnAngle float64, sink progress.Sink) ([]fractal.Point, bool, error) {
	sink = progress.OrNop(sink)

	angle := turnAngle * math.Pi / 180
	state := turtle{}
	var stack []turtle
	points := []fractal.Point{{X: 0, Y: 0}}

	total := len(program)
	for i, c := range program {
		switch c {
		case 'F':
			state.x += math.Cos(state.heading)
			state.y += math.Sin(state.heading)
			points = append(points, fractal.Point{X: state.x, Y: state.y})
		case '+':
			state.heading += angle
		case '-':
			state.heading -= angle
		case '[':
			stack = append(stack, state)
		case ']':
			if len(stack) == 0 {
				return points, false, fmt.Errorf("']' at position %d: %w", i, fractal.ErrUnbalancedBranch)
			}
			state = stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			points = append(points, fractal.Point{X: state.x, Y: state.y})
		}

		if i%reportInterval == 0 {
			fraction := float64(i) / float64(total)
			sink.Report(progress.Update{
				Percent:      50 + fraction*50,
				Step:         "Calculating L-system coordinates",
				StepProgress: fraction * 100,
				Details: map[string]any{
					"points":       len(points),
					"branch_depth": len(stack),
				},
			})
			if sink.ShouldCancel() {
				return points, true, nil
			}
		}
	}
	return points, false, nil
}

// Normalize scales points into [-0.5, 0.5] on both axes using their bounding
// box. Points are returned unchanged when either axis has zero extent.
func Normalize(points []fractal.Point) []fractal.Point {
	if len(points) < 2 {
		return points
	}

	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y
	for _, p := range points[1:] {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	rangeX, rangeY := maxX-minX, maxY-minY
	if rangeX <= 0 || rangeY <= 0 {
		return points
	}

	normalized := make([]fractal.Point, len(points))
	for i, p := range points {
		normalized[i] = fractal.Point{
			X: (p.X-minX)/rangeX - 0.5,
			Y: (p.Y-minY)/rangeY - 0.5,
		}
	}
	return normalized
}
