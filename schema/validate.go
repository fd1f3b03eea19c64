package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"unicode/utf8"

	"DistributedFractals/fractal"
)

// Normalize checks every known field of params against the schema of kind and
// returns a copy with missing fields set to their defaults. Unknown fields are
// carried through untouched. The first violation is returned.
func Normalize(kind fractal.Kind, params fractal.Params) (fractal.Params, error) {
	fields, ok := schemas[kind]
	if !ok {
		return nil, &fractal.ParameterError{Field: "kind", Expected: "one of mandelbrot, julia, l_system, cantor_dust", Value: int(kind)}
	}

	normalized := make(fractal.Params, len(params)+len(fields))
	for k, v := range params {
		normalized[k] = v
	}
	for _, field := range fields {
		value, present := params[field.Name]
		if !present || value == nil {
			normalized[field.Name] = cloneDefault(field.Default)
			continue
		}
		checked, err := field.check(value)
		if err != nil {
			return nil, err
		}
		normalized[field.Name] = checked
	}
	return normalized, nil
}

// Validate normalizes params and builds the typed request
func Validate(kind fractal.Kind, params fractal.Params) (fractal.Request, error) {
	normalized, err := Normalize(kind, params)
	if err != nil {
		return fractal.Request{}, err
	}

	request := fractal.Request{Kind: kind}
	switch kind {
	case fractal.Mandelbrot, fractal.Julia:
		center := vector(normalized["center"])
		request.EscapeTime = &fractal.EscapeTimeParams{
			CenterX:       center[0],
			CenterY:       center[1],
			ColormapName:  normalized["colormap_name"].(string),
			EscapeRadius:  number(normalized["escape_radius"]),
			Height:        integer(normalized["height"]),
			MaxIterations: integer(normalized["max_iterations"]),
			Width:         integer(normalized["width"]),
			Zoom:          number(normalized["zoom"]),
		}
		if kind == fractal.Julia {
			request.EscapeTime.CReal = number(normalized["c_real"])
			request.EscapeTime.CImag = number(normalized["c_imag"])
		}
	case fractal.LSystem:
		request.LSystem = &fractal.LSystemParams{
			Axiom:           normalized["axiom"].(string),
			GenerationDepth: integer(normalized["generation_depth"]),
			Rules:           rules(normalized["rules"]),
			TurnAngle:       number(normalized["turn_angle"]),
		}
	case fractal.CantorDust:
		b := vector(normalized["bounds"])
		request.Cantor = &fractal.CantorParams{
			Bounds:         fractal.Rectangle{X: b[0], Y: b[1], Width: b[2], Height: b[3]},
			GapRatio:       number(normalized["gap_ratio"]),
			RecursionDepth: integer(normalized["recursion_depth"]),
		}
	}
	return request, nil
}

func (f Field) check(value any) (any, error) {
	switch f.Type {
	case Number:
		v, ok := asNumber(value)
		if !ok {
			return nil, f.mismatch(value)
		}
		return v, f.checkRange(v, value)
	case Integer:
		v, ok := asNumber(value)
		if !ok || v != math.Trunc(v) {
			return nil, f.mismatch(value)
		}
		return int(v), f.checkRange(v, value)
	case String:
		if _, ok := value.(string); !ok {
			return nil, f.mismatch(value)
		}
		return value, nil
	case Mapping:
		return f.checkMapping(value)
	case Vector:
		return f.checkVector(value)
	}
	return nil, f.mismatch(value)
}

func (f Field) checkRange(v float64, raw any) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &fractal.ParameterError{Field: f.Name, Expected: "a finite " + f.Type.String(), Value: raw}
	}
	low := f.Min != nil && (v < *f.Min || (f.Exclusive && v == *f.Min))
	high := f.Max != nil && (v > *f.Max || (f.Exclusive && v == *f.Max))
	if low || high {
		return &fractal.ParameterError{Field: f.Name, Expected: f.constraint(), Value: raw}
	}
	return nil
}

func (f Field) constraint() string {
	opening, closing := "[", "]"
	if f.Exclusive {
		opening, closing = "(", ")"
	}
	switch {
	case f.Min != nil && f.Max != nil:
		return fmt.Sprintf("%s in %s%g, %g%s", f.Type, opening, *f.Min, *f.Max, closing)
	case f.Min != nil:
		return fmt.Sprintf("%s >= %g", f.Type, *f.Min)
	case f.Max != nil:
		return fmt.Sprintf("%s <= %g", f.Type, *f.Max)
	}
	return f.Type.String()
}

func (f Field) checkMapping(value any) (any, error) {
	checked := map[string]any{}
	switch m := value.(type) {
	case map[string]any:
		for k, v := range m {
			s, ok := v.(string)
			if !ok {
				return nil, &fractal.ParameterError{Field: f.Name + "." + k, Expected: "string", Value: v}
			}
			checked[k] = s
		}
	case map[string]string:
		for k, v := range m {
			checked[k] = v
		}
	default:
		return nil, f.mismatch(value)
	}
	for k := range checked {
		if utf8.RuneCountInString(k) != 1 {
			return nil, &fractal.ParameterError{Field: f.Name + "." + k, Expected: "a single character key", Value: k}
		}
	}
	return checked, nil
}

func (f Field) checkVector(value any) (any, error) {
	var items []any
	switch v := value.(type) {
	case []any:
		items = v
	case []float64:
		for _, x := range v {
			items = append(items, x)
		}
	default:
		return nil, f.mismatch(value)
	}
	if f.Length > 0 && len(items) != f.Length {
		return nil, &fractal.ParameterError{Field: f.Name, Expected: fmt.Sprintf("%s of length %d", f.Type, f.Length), Value: value}
	}
	checked := make([]any, len(items))
	for i, item := range items {
		v, ok := asNumber(item)
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &fractal.ParameterError{Field: fmt.Sprintf("%s[%d]", f.Name, i), Expected: "finite number", Value: item}
		}
		checked[i] = v
	}
	return checked, nil
}

func (f Field) mismatch(value any) error {
	return &fractal.ParameterError{Field: f.Name, Expected: f.Type.String(), Value: value}
}

func asNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

// cloneDefault keeps callers from mutating the shared schema defaults
func cloneDefault(value any) any {
	switch v := value.(type) {
	case []any:
		return append([]any(nil), v...)
	case map[string]any:
		clone := make(map[string]any, len(v))
		for k, item := range v {
			clone[k] = item
		}
		return clone
	}
	return value
}

// The helpers below read values Normalize already checked

func number(value any) float64 {
	v, _ := asNumber(value)
	return v
}

func integer(value any) int {
	v, _ := asNumber(value)
	return int(v)
}

func vector(value any) []float64 {
	items := value.([]any)
	values := make([]float64, len(items))
	for i, item := range items {
		values[i] = number(item)
	}
	return values
}

func rules(value any) map[rune]string {
	m := value.(map[string]any)
	productions := make(map[rune]string, len(m))
	for k, v := range m {
		r, _ := utf8.DecodeRuneInString(k)
		productions[r] = v.(string)
	}
	return productions
}
