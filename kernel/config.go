package kernel

import (
	"fmt"
	"math"

	"DistributedFractals/escapetime"
	"DistributedFractals/fractal"
)

// LaunchConfig mirrors the Config uniform of shaders/escape.wgsl field for
// field. Upper is the clamp for escaped values, the largest float32 below
// MaxIterations, the float32 counterpart of escapetime.Smooth's bound.
type LaunchConfig struct {
	Width         uint32
	Height        uint32
	MaxIterations uint32
	Julia         uint32
	XMin          float32
	XStep         float32
	YMin          float32
	YStep         float32
	CReal         float32
	CImag         float32
	Radius2       float32
	Upper         float32
}

func NewLaunchConfig(job escapetime.Job) LaunchConfig {
	p := job.Params
	b := p.Bounds()
	config := LaunchConfig{
		Width:         uint32(p.Width),
		Height:        uint32(p.Height),
		MaxIterations: uint32(p.MaxIterations),
		XMin:          float32(b.XMin),
		XStep:         float32(step(b.XMin, b.XMax, p.Width)),
		YMin:          float32(b.YMin),
		YStep:         float32(step(b.YMin, b.YMax, p.Height)),
		CReal:         float32(p.CReal),
		CImag:         float32(p.CImag),
		Radius2:       float32(p.EscapeRadius * p.EscapeRadius),
		Upper:         math.Nextafter32(float32(p.MaxIterations), 0),
	}
	if job.Kind == fractal.Julia {
		config.Julia = 1
	}
	return config
}

func (c LaunchConfig) String() string {
	return fmt.Sprintf("{%dx%d max %d julia %d upper %g}", c.Width, c.Height, c.MaxIterations, c.Julia, c.Upper)
}

// step is the spacing of an inclusive grid of n samples over [start, stop]
func step(start float64, stop float64, n int) float64 {
	if n < 2 {
		return 0
	}
	return (stop - start) / float64(n-1)
}
