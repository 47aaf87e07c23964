// Package shaders assembles the GLSL kernel sources the precomputation
// pipeline compiles: a static embedded shader tree, a virtual-source table
// holding generated and specialized sources, an #include resolver, and the
// per-atmosphere source generators.
package shaders

import (
	"embed"
	"fmt"
	"sort"
	"strings"
)

//go:embed glsl
var glslFS embed.FS

// Logical filenames of the virtual sources the generators produce. The two
// header names resolve to generated strings instead of files on every
// include.
const (
	ConstantsHeaderName = "const.h.glsl"
	DensitiesHeaderName = "densities.h.glsl"

	DensitiesSourceName           = "densities.frag"
	TransmittanceFunctionsName    = "transmittance-functions.frag"
	PhaseFunctionsName            = "phase-functions.frag"
	TotalScatteringCoefName       = "total-scattering-coefficient.frag"
	ComputeScatteringDensityName  = "compute-scattering-density.frag"
	ComputeIndirectIrradianceName = "compute-indirect-irradiance.frag"

	VertexShaderName   = "shader.vert"
	GeometryShaderName = "shader.geom"
)

// ErrShaderInclude reports a malformed, missing, cyclic or too-deep
// #include directive.
var ErrShaderInclude = fmt.Errorf("shader include error")

// Sources resolves logical shader filenames to GLSL text. Virtual entries
// (generated or token-specialized sources) shadow the embedded static tree.
// The table is mutated only by the scheduler between passes; any mutation
// must be paired with evicting the compiled shader of the same name from
// the program cache.
type Sources struct {
	virtual map[string]string
}

// NewSources returns a table with an empty virtual layer over the embedded
// shader tree.
func NewSources() *Sources {
	return &Sources{virtual: map[string]string{}}
}

// Get returns the current source for a logical filename, preferring the
// virtual layer.
func (s *Sources) Get(name string) (string, error) {
	if src, ok := s.virtual[name]; ok {
		return src, nil
	}
	return s.Static(name)
}

// Static returns the embedded source for a logical filename, bypassing any
// virtual override. Used when re-specializing tokens of a pristine source.
func (s *Sources) Static(name string) (string, error) {
	data, err := glslFS.ReadFile("glsl/" + name)
	if err != nil {
		return "", fmt.Errorf("%w: no such shader source %q", ErrShaderInclude, name)
	}
	return string(data), nil
}

// Has reports whether a logical filename resolves to any source.
func (s *Sources) Has(name string) bool {
	if _, ok := s.virtual[name]; ok {
		return true
	}
	_, err := glslFS.ReadFile("glsl/" + name)
	return err == nil
}

// SetVirtual installs or replaces a generated source. The caller owns the
// invalidation of compiled artifacts derived from the previous content.
func (s *Sources) SetVirtual(name, src string) {
	s.virtual[name] = src
}

// VirtualNames returns the sorted names of the current virtual entries.
func (s *Sources) VirtualNames() []string {
	names := make([]string, 0, len(s.virtual))
	for name := range s.virtual {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NumberedSource renders a source with line numbers for compile-error
// dumps, honouring embedded #line directives so numbers match what the GL
// compiler reports against the original files.
func NumberedSource(src string) string {
	lines := strings.Split(strings.TrimRight(src, "\n"), "\n")
	width := len(fmt.Sprint(len(lines)))

	var b strings.Builder
	lineNumber := 1
	for _, line := range lines {
		fmt.Fprintf(&b, "%*d %s\n", width, lineNumber, line)
		if m := lineDirectiveRegexp.FindStringSubmatch(line); m != nil {
			n := 0
			fmt.Sscanf(m[1], "%d", &n)
			lineNumber = n
			continue
		}
		lineNumber++
	}
	return b.String()
}
