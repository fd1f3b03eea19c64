package palette

import (
	"math"

	"DistributedFractals/fractal"
)

// InSetColor is used for cells that never escaped
var InSetColor = [4]float32{0, 0, 0, 1}

// Apply colors an iteration raster with the named palette. Values at or above
// maxIterations are in the set and become black; everything else is
// normalized by maxIterations and looked up in the palette. Alpha is always 1.
func Apply(raster *fractal.IterationRaster, maxIterations int, name string) *fractal.ColorRaster {
	p := Get(name)
	colors := fractal.NewColorRaster(raster.Width, raster.Height)
	limit := float64(maxIterations)

	for i, value := range raster.Values {
		px := colors.Pix[i*4 : i*4+4]
		if value >= limit || math.IsNaN(value) {
			copy(px, InSetColor[:])
			continue
		}
		c := p.Map(math.Max(value, 0) / limit)
		px[0] = float32(c.R)
		px[1] = float32(c.G)
		px[2] = float32(c.B)
		px[3] = 1
	}
	return colors
}
