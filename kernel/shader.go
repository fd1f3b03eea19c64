package kernel

import (
	_ "embed"
	"encoding/binary"
	"fmt"

	"github.com/gogpu/naga"
)

// WorkgroupSize is the edge length of one square tile of the launch grid
const WorkgroupSize = 16

const spirvMagic = 0x07230203

//go:embed shaders/escape.wgsl
var escapeShaderWGSL string

// Capability describes whether the accelerated kernel can be used. It is
// probed once at startup and handed to NewDispatcher.
type Capability struct {
	Available     bool
	Reason        string
	SPIRVWords    int
	WorkgroupSize int
}

func (c Capability) String() string {
	if !c.Available {
		return fmt.Sprintf("{Accelerated kernel unavailable: %s}", c.Reason)
	}
	return fmt.Sprintf("{Accelerated kernel %d SPIR-V words, workgroup %dx%d}", c.SPIRVWords, c.WorkgroupSize, c.WorkgroupSize)
}

// Probe compiles the escape-time kernel and reports whether it produced a
// usable module
func Probe() Capability {
	code, err := CompileShader(escapeShaderWGSL)
	if err != nil {
		return Capability{Reason: err.Error()}
	}
	return Capability{
		Available:     true,
		SPIRVWords:    len(code),
		WorkgroupSize: WorkgroupSize,
	}
}

// CompileShader compiles WGSL source to SPIR-V words
func CompileShader(source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("failed to compile shader: %w", err)
	}
	if len(spirvBytes) < 4 || len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("shader module has %d bytes, not a whole number of words", len(spirvBytes))
	}

	// SPIR-V is little-endian 32-bit words
	code := make([]uint32, len(spirvBytes)/4)
	for i := range code {
		code[i] = binary.LittleEndian.Uint32(spirvBytes[i*4:])
	}
	if code[0] != spirvMagic {
		return nil, fmt.Errorf("shader module magic is %#08x, want %#08x", code[0], spirvMagic)
	}
	return code, nil
}
