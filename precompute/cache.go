package precompute

import (
	"fmt"
	"os"

	gl "github.com/go-gl/gl/v4.1-core/gl"

	"github.com/uwes-ufo/CalcMySky/internal/opengl"
	"github.com/uwes-ufo/CalcMySky/shaders"
)

// programCache caches compiled shader stages by logical filename. Programs
// themselves are linked fresh for every pass (specializations change too
// often to be worth caching); the expensive shared stages are the cached
// objects.
type programCache struct {
	sources *shaders.Sources
	stages  map[string]uint32
}

func newProgramCache(sources *shaders.Sources) *programCache {
	return &programCache{sources: sources, stages: map[string]uint32{}}
}

// setVirtual rewrites a virtual source and evicts the stage compiled from
// its previous content. This is the table's invalidation protocol: every
// mutation goes through here.
func (c *programCache) setVirtual(name, src string) {
	c.invalidate(name)
	c.sources.SetVirtual(name, src)
}

func (c *programCache) invalidate(name string) {
	if stage, ok := c.stages[name]; ok {
		gl.DeleteShader(stage)
		delete(c.stages, name)
	}
}

// clear evicts every cached stage; called when a new wavelength set
// regenerates the whole header family.
func (c *programCache) clear() {
	for name, stage := range c.stages {
		gl.DeleteShader(stage)
		delete(c.stages, name)
	}
}

func stageType(name string) uint32 {
	switch name {
	case shaders.VertexShaderName:
		return gl.VERTEX_SHADER
	case shaders.GeometryShaderName:
		return gl.GEOMETRY_SHADER
	default:
		return gl.FRAGMENT_SHADER
	}
}

// stage returns the compiled shader object for a logical filename,
// compiling and caching it on first use. On a compile error the fully
// assembled source is dumped with #line-aware numbering so the failing
// user expression can be located.
func (c *programCache) stage(name string) (uint32, error) {
	if stage, ok := c.stages[name]; ok {
		return stage, nil
	}

	src, err := c.sources.Get(name)
	if err != nil {
		return 0, err
	}
	assembled, err := shaders.ResolveIncludes(c.sources, src, name)
	if err != nil {
		return 0, err
	}

	stage, err := opengl.CompileShader(assembled, stageType(name))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Source of the shader:\n________________________________________________\n%s________________________________________________\n",
			shaders.NumberedSource(assembled))
		return 0, fmt.Errorf("%w: %s: %v", ErrShaderCompile, name, err)
	}
	c.stages[name] = stage
	return stage, nil
}

// program links the main fragment source, its companion fragments
// discovered through #include scanning, the fixed vertex stage, and (for
// layered 3D passes) the fixed geometry stage. The caller owns the
// returned program and deletes it after the pass.
func (c *programCache) program(mainName string, withGeometry bool) (uint32, error) {
	companions, err := shaders.FilesToLinkWith(c.sources, mainName)
	if err != nil {
		return 0, err
	}

	stageNames := append(companions, mainName, shaders.VertexShaderName)
	if withGeometry {
		stageNames = append(stageNames, shaders.GeometryShaderName)
	}

	stageIDs := make([]uint32, 0, len(stageNames))
	for _, name := range stageNames {
		id, err := c.stage(name)
		if err != nil {
			return 0, err
		}
		stageIDs = append(stageIDs, id)
	}

	prog, err := opengl.LinkProgram(stageIDs...)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrShaderLink, mainName, err)
	}
	return prog, nil
}
