package fractal

import (
	"image"
	"image/color"
	"math"
)

// IterationRaster is a row-major (Height, Width) grid of escape values.
// Cells equal to MaxIterations never escaped.
type IterationRaster struct {
	Height        int
	MaxIterations int
	Values        []float64
	Width         int
}

func NewIterationRaster(width int, height int, maxIterations int) *IterationRaster {
	return &IterationRaster{
		Height:        height,
		MaxIterations: maxIterations,
		Values:        make([]float64, width*height),
		Width:         width,
	}
}

func (r *IterationRaster) At(column int, row int) float64 {
	return r.Values[row*r.Width+column]
}

// ColorRaster is a row-major grid of RGBA channels in [0, 1], four per cell
type ColorRaster struct {
	Height int
	Pix    []float32
	Width  int
}

func NewColorRaster(width int, height int) *ColorRaster {
	return &ColorRaster{
		Height: height,
		Pix:    make([]float32, width*height*4),
		Width:  width,
	}
}

func (c *ColorRaster) At(column int, row int) [4]float32 {
	i := (row*c.Width + column) * 4
	return [4]float32{c.Pix[i], c.Pix[i+1], c.Pix[i+2], c.Pix[i+3]}
}

func (c *ColorRaster) Set(column int, row int, rgba [4]float32) {
	i := (row*c.Width + column) * 4
	copy(c.Pix[i:i+4], rgba[:])
}

// RGBA converts the raster to 8-bit non-premultiplied channels for display
func (c *ColorRaster) RGBA() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, c.Width, c.Height))
	for row := 0; row < c.Height; row++ {
		for column := 0; column < c.Width; column++ {
			px := c.At(column, row)
			img.SetNRGBA(column, row, color.NRGBA{
				R: toByte(px[0]),
				G: toByte(px[1]),
				B: toByte(px[2]),
				A: toByte(px[3]),
			})
		}
	}
	return img
}

func toByte(v float32) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, float64(v))) * 255))
}

type Point struct {
	X float64
	Y float64
}

type Rectangle struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}
