// Package schema validates and defaults the flat parameter record of each
// fractal kind and turns it into a typed fractal.Request.
package schema

import (
	"DistributedFractals/cantor"
	"DistributedFractals/fractal"
	"DistributedFractals/palette"
)

const (
	Number FieldType = iota
	Integer
	String
	Mapping
	Vector
)

type FieldType int

func (t FieldType) String() string {
	return []string{
		"number", "integer", "string", "mapping of single characters to strings", "array of numbers",
	}[t]
}

// Field describes one parameter. Min and Max bound numbers and integers,
// Exclusive makes both bounds open, Length fixes a vector size.
type Field struct {
	Default   any
	Exclusive bool
	Length    int
	Max       *float64
	Min       *float64
	Name      string
	Type      FieldType
}

// Schema is the ordered field list of one fractal kind
type Schema []Field

func bound(v float64) *float64 {
	return &v
}

var escapeTimeFields = Schema{
	{Name: "zoom", Type: Number, Default: 1.0, Min: bound(0), Max: bound(1e12), Exclusive: true},
	{Name: "max_iterations", Type: Integer, Default: 100, Min: bound(1), Max: bound(100000)},
	{Name: "escape_radius", Type: Number, Default: 2.0, Min: bound(0), Max: bound(1e6), Exclusive: true},
	{Name: "colormap_name", Type: String, Default: palette.DefaultName},
	{Name: "width", Type: Integer, Default: 800, Min: bound(1), Max: bound(10000)},
	{Name: "height", Type: Integer, Default: 600, Min: bound(1), Max: bound(10000)},
}

// schemas are process wide and never modified after init
var schemas = map[fractal.Kind]Schema{
	fractal.Mandelbrot: append(Schema{
		{Name: "center", Type: Vector, Length: 2, Default: []any{-0.5, 0.0}},
	}, escapeTimeFields...),
	fractal.Julia: append(Schema{
		{Name: "center", Type: Vector, Length: 2, Default: []any{0.0, 0.0}},
		{Name: "c_real", Type: Number, Default: -0.7, Min: bound(-4), Max: bound(4)},
		{Name: "c_imag", Type: Number, Default: 0.27, Min: bound(-4), Max: bound(4)},
	}, escapeTimeFields...),
	fractal.LSystem: {
		{Name: "axiom", Type: String, Default: "F"},
		{Name: "rules", Type: Mapping, Default: map[string]any{"F": "F+F-F-F+F"}},
		{Name: "turn_angle", Type: Number, Default: 90.0, Min: bound(0), Max: bound(360)},
		{Name: "generation_depth", Type: Integer, Default: 4, Min: bound(0), Max: bound(12)},
	},
	fractal.CantorDust: {
		{Name: "gap_ratio", Type: Number, Default: 0.3, Min: bound(0), Max: bound(1), Exclusive: true},
		{Name: "recursion_depth", Type: Integer, Default: 4, Min: bound(0), Max: bound(cantor.MaxRecursionDepth)},
		{Name: "bounds", Type: Vector, Length: 4, Default: []any{0.0, 0.0, 1.0, 1.0}},
	},
}

// For returns the schema of kind
func For(kind fractal.Kind) Schema {
	return schemas[kind]
}
