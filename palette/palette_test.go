package palette

import (
	"math"
	"testing"

	"DistributedFractals/fractal"
)

func TestMapEndpoints(t *testing.T) {
	for _, name := range Names() {
		p := Get(name)
		if got := p.Map(0); got != p[0] {
			t.Errorf("%s: Map(0) = %v, want %v", name, got, p[0])
		}
		if got := p.Map(1); got != p[len(p)-1] {
			t.Errorf("%s: Map(1) = %v, want %v", name, got, p[len(p)-1])
		}
	}
}

func TestMapIsContinuous(t *testing.T) {
	p := Get("plasma")
	const step = 1e-6
	for i := 1; i < len(p)-1; i++ {
		knot := float64(i) / float64(len(p)-1)
		below, at := p.Map(knot-step), p.Map(knot)
		if math.Abs(below.R-at.R) > 1e-4 || math.Abs(below.G-at.G) > 1e-4 || math.Abs(below.B-at.B) > 1e-4 {
			t.Errorf("jump at control point %d: %v then %v", i, below, at)
		}
	}
}

func TestGetFallsBack(t *testing.T) {
	unknown, fallback := Get("no-such-palette"), Get(DefaultName)
	if len(unknown) != len(fallback) || unknown[0] != fallback[0] {
		t.Error("unknown palette did not fall back to the default")
	}
}

func TestApply(t *testing.T) {
	raster := fractal.NewIterationRaster(4, 1, 10)
	raster.Values = []float64{0, 5, 10, 12}

	colors := Apply(raster, 10, "viridis")
	first := Get("viridis")[0]
	want := []struct {
		name string
		rgba [4]float32
	}{
		{"zero", [4]float32{float32(first.R), float32(first.G), float32(first.B), 1}},
		{"in set", InSetColor},
		{"above max", InSetColor},
	}
	for i, column := range []int{0, 2, 3} {
		if got := colors.At(column, 0); got != want[i].rgba {
			t.Errorf("%s: color = %v, want %v", want[i].name, got, want[i].rgba)
		}
	}
	if alpha := colors.At(1, 0)[3]; alpha != 1 {
		t.Errorf("escaped alpha = %g, want 1", alpha)
	}
}
