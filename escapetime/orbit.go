// Package escapetime computes Mandelbrot and Julia iteration rasters on the CPU
// and holds the per-pixel orbit math shared with the accelerated kernel.
package escapetime

import (
	"fmt"
	"math"

	"DistributedFractals/fractal"
	"DistributedFractals/misc"
)

var mathLog2 = math.Log(2)

// Job is one escape-time computation
type Job struct {
	Kind   fractal.Kind
	Params fractal.EscapeTimeParams
}

func (j Job) Verify() error {
	if !j.Kind.IsEscapeTime() {
		return fmt.Errorf("%s is not an escape-time fractal", j.Kind)
	}
	if j.Params.Width <= 0 || j.Params.Height <= 0 {
		return fmt.Errorf("raster size %dx%d must be positive", j.Params.Width, j.Params.Height)
	}
	if j.Params.MaxIterations < 1 {
		return fmt.Errorf("max iterations %d must be at least 1", j.Params.MaxIterations)
	}
	if j.Params.EscapeRadius <= 0 || j.Params.Zoom <= 0 {
		return fmt.Errorf("escape radius %g and zoom %g must be positive", j.Params.EscapeRadius, j.Params.Zoom)
	}
	return nil
}

// Grid returns the real and imaginary coordinate of every column and row.
// Both axes include their end points.
func (j Job) Grid() (xs []float64, ys []float64) {
	b := j.Params.Bounds()
	return misc.Linspace(b.XMin, b.XMax, j.Params.Width), misc.Linspace(b.YMin, b.YMax, j.Params.Height)
}

// Seed returns the starting orbit value z and the additive constant c of the
// pixel at complex coordinate (x, y)
func (j Job) Seed(x float64, y float64) (zr, zi, cr, ci float64) {
	if j.Kind == fractal.Julia {
		return x, y, j.Params.CReal, j.Params.CImag
	}
	return 0, 0, x, y
}

// EscapeTime iterates z <- z^2 + c until |z| exceeds the radius whose square
// is radius2. It returns the smoothed escape value, or maxIterations when the
// orbit stays bounded.
func EscapeTime(zr, zi, cr, ci, radius2 float64, maxIterations int) float64 {
	for iteration := 0; iteration < maxIterations; iteration++ {
		zr, zi = zr*zr-zi*zi+cr, 2*zr*zi+ci
		if zr*zr+zi*zi > radius2 {
			return Smooth(iteration, zr, zi, maxIterations)
		}
	}
	return float64(maxIterations)
}

// Smooth corrects the integer escape iteration with the escape magnitude,
// i + 1 - log(log|z|)/log 2, to remove banding. The result stays in
// [0, maxIterations) so escaped cells never read as in-set.
// https://en.wikipedia.org/wiki/Plotting_algorithms_for_the_Mandelbrot_set#Continuous_(smooth)_coloring
func Smooth(iteration int, zr float64, zi float64, maxIterations int) float64 {
	value := float64(iteration) + 1
	if logModulus := math.Log(math.Hypot(zr, zi)); logModulus > 0 {
		value -= math.Log(logModulus) / mathLog2
	}
	upper := math.Nextafter(float64(maxIterations), 0)
	if math.IsNaN(value) {
		return upper
	}
	return misc.Clamp(value, 0, upper)
}
