package fractal

import "fmt"

const (
	Mandelbrot Kind = iota
	Julia
	LSystem
	CantorDust
)

type Kind int

func (k Kind) String() string {
	return []string{
		"mandelbrot", "julia", "l_system", "cantor_dust",
	}[k]
}

// IsEscapeTime reports whether the kind renders to an iteration raster
func (k Kind) IsEscapeTime() bool {
	return k == Mandelbrot || k == Julia
}

func ParseKind(name string) (Kind, error) {
	switch name {
	case "mandelbrot":
		return Mandelbrot, nil
	case "julia":
		return Julia, nil
	case "l_system", "lsystem":
		return LSystem, nil
	case "cantor_dust", "cantor":
		return CantorDust, nil
	}
	return 0, fmt.Errorf("unknown fractal kind %q", name)
}

func (k Kind) MarshalText() ([]byte, error) {
	if k < Mandelbrot || k > CantorDust {
		return nil, fmt.Errorf("unknown fractal kind %d", int(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
