package schema

import (
	"encoding/json"
	"errors"
	"testing"

	"DistributedFractals/fractal"
	"DistributedFractals/palette"
)

func TestValidateDefaults(t *testing.T) {
	request, err := Validate(fractal.Mandelbrot, fractal.Params{})
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	got := request.EscapeTime
	want := fractal.EscapeTimeParams{
		CenterX:       -0.5,
		ColormapName:  palette.DefaultName,
		EscapeRadius:  2,
		Height:        600,
		MaxIterations: 100,
		Width:         800,
		Zoom:          1,
	}
	if got == nil || *got != want {
		t.Errorf("defaults = %+v, want %+v", got, want)
	}
}

func TestValidateKinds(t *testing.T) {
	tests := []struct {
		name   string
		kind   fractal.Kind
		params fractal.Params
		check  func(t *testing.T, r fractal.Request)
	}{
		{"julia constant", fractal.Julia, fractal.Params{"c_real": 0.285, "c_imag": 0}, func(t *testing.T, r fractal.Request) {
			if r.EscapeTime.CReal != 0.285 || r.EscapeTime.CImag != 0 {
				t.Errorf("julia constant = %g%+gi", r.EscapeTime.CReal, r.EscapeTime.CImag)
			}
		}},
		{"l-system rules", fractal.LSystem, fractal.Params{"rules": map[string]any{"X": "F[+X]F[-X]+X"}, "generation_depth": 3}, func(t *testing.T, r fractal.Request) {
			if r.LSystem.Rules['X'] != "F[+X]F[-X]+X" || r.LSystem.GenerationDepth != 3 {
				t.Errorf("l-system = %+v", r.LSystem)
			}
		}},
		{"cantor bounds", fractal.CantorDust, fractal.Params{"bounds": []any{1, 2, 3, 4}}, func(t *testing.T, r fractal.Request) {
			if r.Cantor.Bounds != (fractal.Rectangle{X: 1, Y: 2, Width: 3, Height: 4}) || r.Cantor.GapRatio != 0.3 {
				t.Errorf("cantor = %+v", r.Cantor)
			}
		}},
		{"json numbers", fractal.Mandelbrot, fractal.Params{"width": json.Number("64"), "zoom": json.Number("2.5")}, func(t *testing.T, r fractal.Request) {
			if r.EscapeTime.Width != 64 || r.EscapeTime.Zoom != 2.5 {
				t.Errorf("escape time = %+v", r.EscapeTime)
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request, err := Validate(tt.kind, tt.params)
			if err != nil {
				t.Fatalf("Validate returned error: %v", err)
			}
			if request.Kind != tt.kind {
				t.Fatalf("kind = %s, want %s", request.Kind, tt.kind)
			}
			tt.check(t, request)
		})
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		kind   fractal.Kind
		params fractal.Params
		field  string
	}{
		{"zero width", fractal.Mandelbrot, fractal.Params{"width": 0}, "width"},
		{"fractional iterations", fractal.Julia, fractal.Params{"max_iterations": 10.5}, "max_iterations"},
		{"zero zoom", fractal.Mandelbrot, fractal.Params{"zoom": 0.0}, "zoom"},
		{"string zoom", fractal.Mandelbrot, fractal.Params{"zoom": "2"}, "zoom"},
		{"short center", fractal.Mandelbrot, fractal.Params{"center": []any{0.0}}, "center"},
		{"gap ratio one", fractal.CantorDust, fractal.Params{"gap_ratio": 1.0}, "gap_ratio"},
		{"negative depth", fractal.CantorDust, fractal.Params{"recursion_depth": -1}, "recursion_depth"},
		{"negative generations", fractal.LSystem, fractal.Params{"generation_depth": -2}, "generation_depth"},
		{"long rule key", fractal.LSystem, fractal.Params{"rules": map[string]any{"FF": "F"}}, "rules.FF"},
		{"non-string rule", fractal.LSystem, fractal.Params{"rules": map[string]any{"F": 1}}, "rules.F"},
		{"numeric axiom", fractal.LSystem, fractal.Params{"axiom": 3}, "axiom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(tt.kind, tt.params)
			var paramErr *fractal.ParameterError
			if !errors.As(err, &paramErr) {
				t.Fatalf("Validate error = %v, want *ParameterError", err)
			}
			if paramErr.Field != tt.field {
				t.Errorf("error field = %q, want %q", paramErr.Field, tt.field)
			}
		})
	}
}

func TestNormalizeKeepsDefaultsIsolated(t *testing.T) {
	first, err := Normalize(fractal.Mandelbrot, fractal.Params{})
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	first["center"].([]any)[0] = 42.0

	second, _ := Normalize(fractal.Mandelbrot, fractal.Params{})
	if second["center"].([]any)[0] != -0.5 {
		t.Errorf("shared default was modified: %v", second["center"])
	}
}

func TestNormalizeKeepsUnknownFields(t *testing.T) {
	normalized, err := Normalize(fractal.CantorDust, fractal.Params{"color": "#2c3e50"})
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if normalized["color"] != "#2c3e50" {
		t.Errorf("unknown field dropped: %v", normalized)
	}
}

func TestForCoversEveryKind(t *testing.T) {
	for _, kind := range []fractal.Kind{fractal.Mandelbrot, fractal.Julia, fractal.LSystem, fractal.CantorDust} {
		if len(For(kind)) == 0 {
			t.Errorf("no schema for %s", kind)
		}
	}
}
