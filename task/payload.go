package task

import (
	"fmt"

	"DistributedFractals/fractal"
	"DistributedFractals/render"
	"github.com/vmihailenco/msgpack/v5"
)

// Payload is the wire form of a render result. Points are flattened to x, y
// pairs and rectangles to x, y, width, height quads.
type Payload struct {
	Backend       string    `msgpack:"backend"`
	Canceled      bool      `msgpack:"canceled"`
	Colors        []float32 `msgpack:"colors,omitempty"`
	GapRatio      float64   `msgpack:"gap_ratio,omitempty"`
	Height        int       `msgpack:"height,omitempty"`
	Iterations    []float64 `msgpack:"iterations,omitempty"`
	Kind          string    `msgpack:"kind"`
	MaxIterations int       `msgpack:"max_iterations,omitempty"`
	Points        []float64 `msgpack:"points,omitempty"`
	Rectangles    []float64 `msgpack:"rectangles,omitempty"`
	Width         int       `msgpack:"width,omitempty"`
}

// SetResult encodes result into the task payload and records its status
func (t *Task) SetResult(result render.Result) error {
	payload := Payload{
		Backend:  result.Backend,
		Canceled: result.Canceled,
		GapRatio: result.GapRatio,
		Kind:     result.Kind.String(),
	}
	if result.Colors != nil {
		payload.Colors = result.Colors.Pix
		payload.Height = result.Colors.Height
		payload.Width = result.Colors.Width
	}
	if result.Iterations != nil {
		payload.Iterations = result.Iterations.Values
		payload.MaxIterations = result.Iterations.MaxIterations
	}
	for _, p := range result.Points {
		payload.Points = append(payload.Points, p.X, p.Y)
	}
	for _, r := range result.Rectangles {
		payload.Rectangles = append(payload.Rectangles, r.X, r.Y, r.Width, r.Height)
	}

	encoded, err := msgpack.Marshal(&payload)
	if err != nil {
		return fmt.Errorf("encoding result of task %d: %w", t.ID, err)
	}
	t.Payload = encoded
	return nil
}

// Result decodes the task payload
func (t *Task) Result() (render.Result, error) {
	var payload Payload
	if err := msgpack.Unmarshal(t.Payload, &payload); err != nil {
		return render.Result{}, fmt.Errorf("decoding result of task %d: %w", t.ID, err)
	}
	kind, err := fractal.ParseKind(payload.Kind)
	if err != nil {
		return render.Result{}, fmt.Errorf("decoding result of task %d: %w", t.ID, err)
	}
	if len(payload.Points)%2 != 0 || len(payload.Rectangles)%4 != 0 {
		return render.Result{}, fmt.Errorf("decoding result of task %d: truncated geometry", t.ID)
	}

	result := render.Result{
		Backend:  payload.Backend,
		Canceled: payload.Canceled,
		GapRatio: payload.GapRatio,
		Kind:     kind,
	}
	if payload.Colors != nil {
		if len(payload.Colors) != payload.Width*payload.Height*4 {
			return render.Result{}, fmt.Errorf("decoding result of task %d: %d color channels for %dx%d", t.ID, len(payload.Colors), payload.Width, payload.Height)
		}
		result.Colors = &fractal.ColorRaster{Height: payload.Height, Pix: payload.Colors, Width: payload.Width}
	}
	if payload.Iterations != nil {
		result.Iterations = &fractal.IterationRaster{
			Height:        payload.Height,
			MaxIterations: payload.MaxIterations,
			Values:        payload.Iterations,
			Width:         payload.Width,
		}
	}
	for i := 0; i < len(payload.Points); i += 2 {
		result.Points = append(result.Points, fractal.Point{X: payload.Points[i], Y: payload.Points[i+1]})
	}
	for i := 0; i < len(payload.Rectangles); i += 4 {
		result.Rectangles = append(result.Rectangles, fractal.Rectangle{
			X:      payload.Rectangles[i],
			Y:      payload.Rectangles[i+1],
			Width:  payload.Rectangles[i+2],
			Height: payload.Rectangles[i+3],
		})
	}
	return result, nil
}
