// Package palette maps iteration rasters to colors through piecewise linear
// palettes.
package palette

import (
	"sort"

	"DistributedFractals/misc"
)

// DefaultName is used whenever a requested palette does not exist
const DefaultName = "viridis"

type RGB struct {
	R float64
	G float64
	B float64
}

// Palette is an ordered list of evenly spaced control points
type Palette []RGB

// palettes are process wide and read only
var palettes = map[string]Palette{
	"viridis": {
		{0.267004, 0.004874, 0.329415},
		{0.275191, 0.194905, 0.496005},
		{0.212395, 0.359683, 0.551710},
		{0.153364, 0.497000, 0.557724},
		{0.122312, 0.633153, 0.530398},
		{0.288921, 0.758394, 0.428426},
		{0.626579, 0.854645, 0.223353},
		{0.993248, 0.906157, 0.143936},
	},
	"plasma": {
		{0.050383, 0.029803, 0.527975},
		{0.282623, 0.011569, 0.627943},
		{0.494943, 0.010313, 0.650430},
		{0.679386, 0.050959, 0.579665},
		{0.826782, 0.149214, 0.453647},
		{0.938793, 0.266241, 0.325190},
		{0.989830, 0.413328, 0.187932},
		{0.964278, 0.676080, 0.064386},
	},
	"inferno": {
		{0.001462, 0.000466, 0.013866},
		{0.126204, 0.020775, 0.158400},
		{0.329283, 0.028694, 0.245365},
		{0.534242, 0.056225, 0.241961},
		{0.730058, 0.129412, 0.177335},
		{0.881260, 0.237000, 0.088535},
		{0.973718, 0.407057, 0.032864},
		{0.987053, 0.790532, 0.346471},
	},
	"magma": {
		{0.001462, 0.000466, 0.013866},
		{0.128010, 0.044595, 0.169168},
		{0.331176, 0.076701, 0.274708},
		{0.547974, 0.100702, 0.309737},
		{0.751269, 0.145705, 0.264944},
		{0.914296, 0.235996, 0.164692},
		{0.989516, 0.383381, 0.116486},
		{0.974795, 0.713132, 0.480794},
	},
	"cividis": {
		{0.000000, 0.135112, 0.304751},
		{0.072474, 0.214181, 0.362957},
		{0.143547, 0.281100, 0.394187},
		{0.232695, 0.341243, 0.392153},
		{0.341860, 0.389907, 0.367359},
		{0.481176, 0.429699, 0.317669},
		{0.632470, 0.473063, 0.252608},
		{0.825971, 0.528596, 0.134729},
	},
	"turbo": {
		{0.188235, 0.149020, 0.631373},
		{0.027451, 0.450980, 0.756863},
		{0.015686, 0.658824, 0.588235},
		{0.133333, 0.839216, 0.356863},
		{0.470588, 0.941176, 0.094118},
		{0.784314, 0.890196, 0.058824},
		{0.996078, 0.670588, 0.109804},
		{0.996078, 0.333333, 0.274510},
	},
}

// Get returns the named palette, or the default palette when the name is unknown
func Get(name string) Palette {
	if p, ok := palettes[name]; ok {
		return p
	}
	return palettes[DefaultName]
}

func Names() []string {
	names := make([]string, 0, len(palettes))
	for name := range palettes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Map returns the color at t in [0, 1]. The bracketing control points are
// found at t*(N-1) and blended linearly.
func (p Palette) Map(t float64) RGB {
	t = misc.Clamp(t, 0, 1)
	position := t * float64(len(p)-1)
	index := int(position)
	if index >= len(p)-1 {
		return p[len(p)-1]
	}
	fraction := position - float64(index)
	return lerpRGB(p[index], p[index+1], fraction)
}

func lerpRGB(color1 RGB, color2 RGB, fraction float64) RGB {
	return RGB{
		R: misc.LerpFloat64(color1.R, color2.R, fraction),
		G: misc.LerpFloat64(color1.G, color2.G, fraction),
		B: misc.LerpFloat64(color1.B, color2.B, fraction),
	}
}
