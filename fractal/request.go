package fractal

// Params is the flat, JSON compatible parameter record of one request.
// Values are scalars, string mappings or arrays of numbers.
type Params map[string]any

// Request is a validated render request. Exactly one variant is set and it
// matches Kind.
type Request struct {
	Kind Kind

	EscapeTime *EscapeTimeParams
	LSystem    *LSystemParams
	Cantor     *CantorParams
}

// EscapeTimeParams holds the Mandelbrot and Julia fields. CReal and CImag are
// only read for Julia.
type EscapeTimeParams struct {
	CenterX       float64
	CenterY       float64
	CImag         float64
	CReal         float64
	ColormapName  string
	EscapeRadius  float64
	Height        int
	MaxIterations int
	Width         int
	Zoom          float64
}

// Bounds maps the view onto the complex plane. The horizontal span is 4/zoom
// and the vertical span follows the aspect ratio.
func (p EscapeTimeParams) Bounds() Bounds {
	xRange := 4.0 / p.Zoom
	yRange := xRange * float64(p.Height) / float64(p.Width)
	return Bounds{
		XMin: p.CenterX - xRange/2,
		XMax: p.CenterX + xRange/2,
		YMin: p.CenterY - yRange/2,
		YMax: p.CenterY + yRange/2,
	}
}

type LSystemParams struct {
	Axiom           string
	GenerationDepth int
	Rules           map[rune]string
	TurnAngle       float64 // degrees
}

type CantorParams struct {
	Bounds         Rectangle
	GapRatio       float64
	RecursionDepth int
}

type Bounds struct {
	XMin float64
	XMax float64
	YMin float64
	YMax float64
}
