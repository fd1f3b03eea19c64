// Package render is the single entry point that validates a request, runs the
// matching generator and reports the outcome to a progress sink.
package render

import (
	"errors"
	"fmt"

	"DistributedFractals/cantor"
	"DistributedFractals/escapetime"
	"DistributedFractals/fractal"
	"DistributedFractals/kernel"
	"DistributedFractals/lsystem"
	"DistributedFractals/misc"
	"DistributedFractals/palette"
	"DistributedFractals/progress"
	"DistributedFractals/schema"
	"github.com/BrugadaSyndrome/bslogger"
)

// Result is the output of one render. Escape-time kinds fill Colors and
// Iterations, l-systems fill Points and Cantor dust fills Rectangles. A
// canceled escape-time render carries the placeholder gradient in Colors.
type Result struct {
	Backend    string
	Canceled   bool
	Colors     *fractal.ColorRaster
	GapRatio   float64
	Iterations *fractal.IterationRaster
	Kind       fractal.Kind
	Points     []fractal.Point
	Rectangles []fractal.Rectangle
}

// Renderer holds no per-request state. Concurrent Render calls are safe as
// long as each gets its own sink.
type Renderer struct {
	cantor     *cantor.Generator
	dispatcher *kernel.Dispatcher
	logger     bslogger.Logger
	lsystem    *lsystem.Generator
}

func NewRenderer(capability kernel.Capability) *Renderer {
	return NewRendererWithDispatcher(kernel.NewDispatcher(capability))
}

func NewRendererWithDispatcher(dispatcher *kernel.Dispatcher) *Renderer {
	return &Renderer{
		cantor:     cantor.NewGenerator(),
		dispatcher: dispatcher,
		logger:     bslogger.NewLogger("Renderer", bslogger.Normal, nil),
		lsystem:    lsystem.NewGenerator(),
	}
}

// RenderParams validates params before any work starts and renders them
func (r *Renderer) RenderParams(kind fractal.Kind, params fractal.Params, sink progress.Sink) (Result, error) {
	sink = progress.OrNop(sink)
	request, err := schema.Validate(kind, params)
	if err != nil {
		sink.Finish(progress.Failed, map[string]any{"error": err.Error()})
		return Result{}, err
	}
	return r.render(request, params, sink)
}

func (r *Renderer) Render(request fractal.Request, sink progress.Sink) (Result, error) {
	return r.render(request, nil, progress.OrNop(sink))
}

func (r *Renderer) render(request fractal.Request, params fractal.Params, sink progress.Sink) (Result, error) {
	var result Result
	var err error
	switch {
	case request.Kind.IsEscapeTime() && request.EscapeTime != nil:
		result, err = r.renderEscapeTime(request.Kind, *request.EscapeTime, sink)
	case request.Kind == fractal.LSystem && request.LSystem != nil:
		result, err = r.renderLSystem(*request.LSystem, sink)
	case request.Kind == fractal.CantorDust && request.Cantor != nil:
		result, err = r.renderCantor(*request.Cantor, sink)
	default:
		err = fmt.Errorf("request has no parameters for %s", request.Kind)
	}

	// A typed request that skipped the schema is rejected before any work
	var paramErr *fractal.ParameterError
	if errors.As(err, &paramErr) {
		sink.Finish(progress.Failed, map[string]any{"error": err.Error()})
		return Result{}, err
	}
	if err != nil {
		renderErr := fractal.NewRenderError(request.Kind, params, err)
		r.logger.Error(renderErr.Error())
		sink.Finish(progress.Failed, map[string]any{"error": renderErr.Error()})
		return Result{}, renderErr
	}
	result.Kind = request.Kind
	return result, nil
}

func (r *Renderer) renderEscapeTime(kind fractal.Kind, params fractal.EscapeTimeParams, sink progress.Sink) (Result, error) {
	label := kindLabel(kind)
	sink.Report(progress.Update{Percent: 0, Step: fmt.Sprintf("Initializing %s calculation", label)})
	sink.Report(progress.Update{
		Percent:      5,
		Step:         fmt.Sprintf("Setting up %s calculation", label),
		StepProgress: 100,
		Details: map[string]any{
			"width":  params.Width,
			"height": params.Height,
		},
	})
	if sink.ShouldCancel() {
		return r.canceledEscapeTime(kind, params, sink), nil
	}

	outcome, backend, err := r.dispatcher.Compute(escapetime.Job{Kind: kind, Params: params}, sink)
	if err != nil {
		return Result{}, err
	}
	if outcome.Canceled {
		result := r.canceledEscapeTime(kind, params, sink)
		result.Backend = backend
		return result, nil
	}

	sink.Report(progress.Update{Percent: escapetime.ProgressEnd, Step: fmt.Sprintf("Applying colormap to %s set", label)})
	colors := palette.Apply(outcome.Raster, params.MaxIterations, params.ColormapName)

	mean := 0.0
	for _, v := range outcome.Raster.Values {
		mean += v
	}
	mean /= float64(len(outcome.Raster.Values))
	sink.Finish(progress.Completed, map[string]any{
		"backend":    backend,
		"width":      params.Width,
		"height":     params.Height,
		"iterations": int(mean),
	})
	return Result{Backend: backend, Colors: colors, Iterations: outcome.Raster}, nil
}

func (r *Renderer) canceledEscapeTime(kind fractal.Kind, params fractal.EscapeTimeParams, sink progress.Sink) Result {
	r.logger.Info(fmt.Sprintf("%s render canceled", kindLabel(kind)))
	sink.Finish(progress.Canceled, nil)
	return Result{Canceled: true, Colors: Placeholder(kind, params.Width, params.Height)}
}

// Placeholder is the semi-transparent gradient returned for canceled
// escape-time renders. Red follows the column and the row drives green for
// Mandelbrot or blue for Julia.
func Placeholder(kind fractal.Kind, width int, height int) *fractal.ColorRaster {
	colors := fractal.NewColorRaster(width, height)
	xs, ys := misc.Linspace(0, 1, width), misc.Linspace(0, 1, height)
	for row, y := range ys {
		for column, x := range xs {
			rgba := [4]float32{float32(x), float32(y), 0.5, 0.5}
			if kind == fractal.Julia {
				rgba = [4]float32{float32(x), 0.5, float32(y), 0.5}
			}
			colors.Set(column, row, rgba)
		}
	}
	return colors
}

func (r *Renderer) renderLSystem(params fractal.LSystemParams, sink progress.Sink) (Result, error) {
	outcome, err := r.lsystem.Generate(params, sink)
	if err != nil {
		return Result{}, err
	}
	if outcome.Canceled {
		sink.Finish(progress.Canceled, map[string]any{"points": len(outcome.Points)})
		return Result{Canceled: true, Points: outcome.Points}, nil
	}
	sink.Finish(progress.Completed, map[string]any{
		"points":         len(outcome.Points),
		"program_length": len(outcome.Program),
	})
	return Result{Points: outcome.Points}, nil
}

func (r *Renderer) renderCantor(params fractal.CantorParams, sink progress.Sink) (Result, error) {
	outcome, err := r.cantor.Generate(params, sink)
	if err != nil {
		return Result{}, err
	}
	result := Result{Canceled: outcome.Canceled, GapRatio: outcome.GapRatio, Rectangles: outcome.Rectangles}
	if outcome.Canceled {
		sink.Finish(progress.Canceled, map[string]any{"rectangles": len(outcome.Rectangles)})
		return result, nil
	}
	sink.Finish(progress.Completed, map[string]any{"rectangles": len(outcome.Rectangles)})
	return result, nil
}

func kindLabel(kind fractal.Kind) string {
	if kind == fractal.Julia {
		return "Julia"
	}
	return "Mandelbrot"
}
