package precompute

import (
	gl "github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/uwes-ufo/CalcMySky/atmosphere"
	"github.com/uwes-ufo/CalcMySky/internal/opengl"
	"github.com/uwes-ufo/CalcMySky/log"
	"github.com/uwes-ufo/CalcMySky/shaders"
	"github.com/uwes-ufo/CalcMySky/spectral"
)

// Options selects the destination and the debug dumps of a run.
type Options struct {
	OutputDir string

	SaveGroundIrradiance       bool
	SaveScatteringDensity      bool
	SaveScatDensity2FromGround bool
	SaveDeltaScattering        bool
	SaveAccumScattering        bool
}

type precomputor struct {
	ctx  *opengl.Context
	atm  *atmosphere.Atmosphere
	opts Options

	sources *shaders.Sources
	cache   *programCache
	pool    *texturePool
	quad    *opengl.Quad

	log log.Logger
}

// Run executes the whole precomputation for a validated atmosphere
// description. Any failure is final: no retries, no partial-output
// guarantees beyond completed wavelength sets in radiance mode.
func Run(ctx *opengl.Context, atm *atmosphere.Atmosphere, opts Options) error {
	sources := shaders.NewSources()
	p := &precomputor{
		ctx:     ctx,
		atm:     atm,
		opts:    opts,
		sources: sources,
		cache:   newProgramCache(sources),
		pool:    newTexturePool(atm),
		quad:    opengl.NewQuad(),
		log:     log.New("precompute"),
	}
	defer p.quad.Delete()
	defer p.pool.release()
	defer p.cache.clear()

	gl.Disable(gl.DEPTH_TEST)

	for setIndex := range atm.Wavelengths {
		set := atm.Wavelengths[setIndex]
		p.log.Noticef("Working on wavelengths %g, %g, %g, %g nm (set %d of %d)",
			set[0], set[1], set[2], set[3], setIndex+1, len(atm.Wavelengths))

		p.cache.clear()
		p.cache.setVirtual(shaders.ConstantsHeaderName, shaders.ConstHeader(atm))
		p.cache.setVirtual(shaders.DensitiesHeaderName, shaders.DensitiesHeader(atm))
		p.cache.setVirtual(shaders.DensitiesSourceName, shaders.DensityFunctions(atm))
		p.cache.setVirtual(shaders.TransmittanceFunctionsName, shaders.TransmittanceFunctions(atm, setIndex))
		p.cache.setVirtual(shaders.PhaseFunctionsName, shaders.PhaseFunctions(atm))
		p.cache.setVirtual(shaders.TotalScatteringCoefName, shaders.TotalScatteringCoefficient(atm, setIndex))

		p.log.Info("Computing parts of scattering order 1")
		if err := p.computeTransmittance(setIndex); err != nil {
			return err
		}
		// Ground irradiance accounts for the light the ground scatters back
		// into the sky; it is also what a renderer shades the ground with.
		if err := p.computeDirectGroundIrradiance(setIndex); err != nil {
			return err
		}

		if err := p.computeMultipleScattering(setIndex); err != nil {
			return err
		}
	}
	return nil
}

// setUniformTexture binds a texture to a unit and points the sampler
// uniform at it.
func setUniformTexture(prog uint32, tex *opengl.Texture, unit uint32, name string) {
	tex.Bind(unit)
	gl.Uniform1i(opengl.UniformLocation(prog, name), int32(unit))
}

// render3DTexLayers dispatches the fullscreen pass once per layer of the
// bound 3D target, synchronizing between layers to bound GPU-side queue
// growth and keep debug dumps correct.
func (p *precomputor) render3DTexLayers(prog uint32, whatIsBeingDone string) {
	p.log.Infof("%s...", whatIsBeingDone)
	layerLoc := opengl.UniformLocation(prog, "layer")
	depth := p.atm.ScatTexDepth()
	for layer := 0; layer < depth; layer++ {
		gl.Uniform1i(layerLoc, int32(layer))
		p.quad.Draw()
		p.ctx.Finish()
		p.log.Debugf("%d of %d layers done", layer+1, depth)
	}
}

func (p *precomputor) computeTransmittance(setIndex int) error {
	prog, err := p.cache.program("compute-transmittance.frag", false)
	if err != nil {
		return err
	}
	defer gl.DeleteProgram(prog)

	p.log.Info("Computing transmittance")
	if err := p.pool.fboTransmittance.AttachTexture(p.pool.transmittance, "transmittance texture"); err != nil {
		return err
	}

	gl.UseProgram(prog)
	gl.Viewport(0, 0, p.pool.transmittance.Width, p.pool.transmittance.Height)
	p.quad.Draw()
	p.ctx.Finish()

	err = saveTexture(p.pool.transmittance, transmittanceFileName(p.opts.OutputDir, setIndex))
	p.pool.fboTransmittance.Unbind()
	return err
}

func (p *precomputor) computeDirectGroundIrradiance(setIndex int) error {
	prog, err := p.cache.program("compute-direct-irradiance.frag", false)
	if err != nil {
		return err
	}
	defer gl.DeleteProgram(prog)

	p.log.Info("Computing direct ground irradiance")
	if err := p.pool.fboIrradiance.AttachTexturePair(p.pool.deltaIrradiance, p.pool.irradiance, "irradiance texture"); err != nil {
		return err
	}

	gl.UseProgram(prog)
	setUniformTexture(prog, p.pool.transmittance, 0, "transmittanceTexture")
	si := p.atm.SolarIrradiance[setIndex]
	gl.Uniform4f(opengl.UniformLocation(prog, "solarIrradianceAtTOA"), si[0], si[1], si[2], si[3])

	gl.Viewport(0, 0, p.pool.deltaIrradiance.Width, p.pool.deltaIrradiance.Height)
	p.quad.Draw()
	p.ctx.Finish()

	if err := p.saveIrradiance(1, setIndex); err != nil {
		return err
	}
	p.pool.fboIrradiance.Unbind()
	return nil
}

func (p *precomputor) saveIrradiance(order, setIndex int) error {
	if !p.opts.SaveGroundIrradiance {
		return nil
	}
	// Irradiance of scattering order N feeds the density of order N+1; the
	// files are named for the order that produced the irradiance.
	if err := saveTexture(p.pool.deltaIrradiance, deltaIrradianceFileName(p.opts.OutputDir, order-1, setIndex)); err != nil {
		return err
	}
	return saveTexture(p.pool.irradiance, accumIrradianceFileName(p.opts.OutputDir, order-1, setIndex))
}

func (p *precomputor) saveScatteringDensity(order, setIndex int) error {
	if !p.opts.SaveScatteringDensity {
		return nil
	}
	return saveTexture(p.pool.deltaScatteringDensity, scatteringDensityFileName(p.opts.OutputDir, order, setIndex))
}

func (p *precomputor) computeSingleScattering(setIndex, scattererIndex int) error {
	scatterer := p.atm.Scatterers[scattererIndex]

	if err := p.pool.fboDeltaScattering.AttachTexture(p.pool.deltaScattering, "first scattering"); err != nil {
		return err
	}
	gl.Viewport(0, 0, p.pool.deltaScattering.Width, p.pool.deltaScattering.Height)

	p.cache.setVirtual(shaders.DensitiesSourceName,
		shaders.SingleScatteringDensities(p.atm, scattererIndex, setIndex))
	prog, err := p.cache.program("compute-single-scattering.frag", true)
	if err != nil {
		return err
	}
	defer gl.DeleteProgram(prog)

	gl.UseProgram(prog)
	si := p.atm.SolarIrradiance[setIndex]
	gl.Uniform4f(opengl.UniformLocation(prog, "solarIrradianceAtTOA"), si[0], si[1], si[2], si[3])
	p.setAltitudeRange(prog)
	setUniformTexture(prog, p.pool.transmittance, 0, "transmittanceTexture")

	p.render3DTexLayers(prog, "Computing single scattering layers")

	err = saveTexture(p.pool.deltaScattering,
		singleScatteringFileName(p.opts.OutputDir, scatterer.Name, setIndex))
	p.pool.fboDeltaScattering.Unbind()
	return err
}

// setAltitudeRange uploads the altitude block being integrated. A single
// block spanning the whole atmosphere for now.
func (p *precomputor) setAltitudeRange(prog uint32) {
	gl.Uniform1f(opengl.UniformLocation(prog, "altitudeMin"), 0)
	gl.Uniform1f(opengl.UniformLocation(prog, "altitudeMax"), float32(p.atm.Height))
}

// computeScatteringDensityOrder2 runs the interleaved part of the
// pipeline: the ground-only density term first, then for each scatterer in
// declared order its single scattering, its additively blended density
// contribution and its first-order indirect irradiance. The interleave is
// what keeps the working set at two 3D textures.
func (p *precomputor) computeScatteringDensityOrder2(setIndex int) error {
	const scatteringOrder = 2

	p.cache.setVirtual(shaders.DensitiesSourceName, shaders.DensityFunctions(p.atm))

	// The stub never runs: ground radiation reaches the scattering point
	// unscattered. It only exists so the program links.
	p.cache.setVirtual(shaders.PhaseFunctionsName, shaders.PhaseFunctionsGroundOnly(p.atm))

	static, err := p.sources.Static(shaders.ComputeScatteringDensityName)
	if err != nil {
		return err
	}
	p.cache.setVirtual(shaders.ComputeScatteringDensityName,
		shaders.SpecializeGroundOnly(shaders.SpecializeScatteringOrder(static, scatteringOrder), true))
	prog, err := p.cache.program(shaders.ComputeScatteringDensityName, true)
	if err != nil {
		return err
	}

	gl.Viewport(0, 0, p.pool.deltaScatteringDensity.Width, p.pool.deltaScatteringDensity.Height)
	gl.UseProgram(prog)
	p.setAltitudeRange(prog)

	if err := p.pool.fboScattering.AttachTexture(p.pool.deltaScatteringDensity, "scattering density"); err != nil {
		gl.DeleteProgram(prog)
		return err
	}
	setUniformTexture(prog, p.pool.transmittance, 0, "transmittanceTexture")
	setUniformTexture(prog, p.pool.deltaIrradiance, 1, "irradianceTexture")

	p.render3DTexLayers(prog, "Computing scattering density layers for radiation from the ground")
	gl.DeleteProgram(prog)

	if p.opts.SaveScatDensity2FromGround {
		if err := saveTexture(p.pool.deltaScatteringDensity,
			scatteringDensityFromGroundFileName(p.opts.OutputDir, setIndex)); err != nil {
			return err
		}
	}

	gl.BlendFunc(gl.ONE, gl.ONE)
	for scattererIndex := range p.atm.Scatterers {
		scatterer := p.atm.Scatterers[scattererIndex]
		p.log.Noticef("Processing scatterer %q", scatterer.Name)

		if err := p.computeSingleScattering(setIndex, scattererIndex); err != nil {
			return err
		}

		p.cache.setVirtual(shaders.PhaseFunctionsName,
			shaders.PhaseFunctionsWithCurrent(p.atm, scatterer.Name))
		p.cache.setVirtual(shaders.ComputeScatteringDensityName,
			shaders.SpecializeGroundOnly(shaders.SpecializeScatteringOrder(static, scatteringOrder), false))
		prog, err := p.cache.program(shaders.ComputeScatteringDensityName, true)
		if err != nil {
			return err
		}

		if err := p.pool.fboScattering.AttachTexture(p.pool.deltaScatteringDensity, "scattering density"); err != nil {
			gl.DeleteProgram(prog)
			return err
		}
		gl.Viewport(0, 0, p.pool.deltaScatteringDensity.Width, p.pool.deltaScatteringDensity.Height)
		gl.UseProgram(prog)
		setUniformTexture(prog, p.pool.deltaScattering, 1, "firstScatteringTexture")
		p.setAltitudeRange(prog)

		gl.Enable(gl.BLEND)
		p.render3DTexLayers(prog, "Computing scattering density layers")
		gl.DeleteProgram(prog)

		if err := p.computeIndirectIrradianceOrder1(setIndex, scattererIndex); err != nil {
			return err
		}
	}
	gl.Disable(gl.BLEND)

	if err := p.saveScatteringDensity(scatteringOrder, setIndex); err != nil {
		return err
	}
	p.pool.fboScattering.Unbind()
	return nil
}

func (p *precomputor) computeScatteringDensity(order, setIndex int) error {
	static, err := p.sources.Static(shaders.ComputeScatteringDensityName)
	if err != nil {
		return err
	}
	p.cache.setVirtual(shaders.ComputeScatteringDensityName,
		shaders.SpecializeGroundOnly(shaders.SpecializeScatteringOrder(static, order), false))
	prog, err := p.cache.program(shaders.ComputeScatteringDensityName, true)
	if err != nil {
		return err
	}
	defer gl.DeleteProgram(prog)

	if err := p.pool.fboScattering.AttachTexture(p.pool.deltaScatteringDensity, "scattering density"); err != nil {
		return err
	}
	gl.Viewport(0, 0, p.pool.deltaScatteringDensity.Width, p.pool.deltaScatteringDensity.Height)
	gl.UseProgram(prog)
	setUniformTexture(prog, p.pool.transmittance, 0, "transmittanceTexture")
	setUniformTexture(prog, p.pool.deltaIrradiance, 1, "irradianceTexture")
	setUniformTexture(prog, p.pool.deltaScattering, 2, "multipleScatteringTexture")
	p.setAltitudeRange(prog)

	p.render3DTexLayers(prog, "Computing scattering density layers")

	if err := p.saveScatteringDensity(order, setIndex); err != nil {
		return err
	}
	p.pool.fboScattering.Unbind()
	return nil
}

func (p *precomputor) computeIndirectIrradianceOrder1(setIndex, scattererIndex int) error {
	const scatteringOrder = 2

	gl.Viewport(0, 0, p.pool.deltaIrradiance.Width, p.pool.deltaIrradiance.Height)
	if err := p.pool.fboIrradiance.AttachTexturePair(p.pool.deltaIrradiance, p.pool.irradiance, "irradiance texture"); err != nil {
		return err
	}
	if scattererIndex == 0 {
		gl.Disablei(gl.BLEND, 0) // first scatterer overwrites the delta irradiance
	} else {
		gl.Enablei(gl.BLEND, 0) // the rest blend into it
	}
	gl.Enablei(gl.BLEND, 1) // total irradiance always accumulates

	scatterer := p.atm.Scatterers[scattererIndex]
	p.cache.setVirtual(shaders.PhaseFunctionsName,
		shaders.PhaseFunctionsWithCurrent(p.atm, scatterer.Name))

	static, err := p.sources.Static(shaders.ComputeIndirectIrradianceName)
	if err != nil {
		return err
	}
	p.cache.setVirtual(shaders.ComputeIndirectIrradianceName,
		shaders.SpecializeScatteringOrder(static, scatteringOrder-1))
	prog, err := p.cache.program(shaders.ComputeIndirectIrradianceName, false)
	if err != nil {
		return err
	}
	defer gl.DeleteProgram(prog)

	gl.UseProgram(prog)
	setUniformTexture(prog, p.pool.deltaScattering, 0, "firstScatteringTexture")
	p.setAltitudeRange(prog)

	p.log.Info("Computing indirect irradiance")
	p.quad.Draw()
	p.ctx.Finish()

	gl.Disable(gl.BLEND)
	if err := p.saveIrradiance(scatteringOrder, setIndex); err != nil {
		return err
	}
	p.pool.fboIrradiance.Unbind()
	return nil
}

func (p *precomputor) computeIndirectIrradiance(order, setIndex int) error {
	gl.Viewport(0, 0, p.pool.deltaIrradiance.Width, p.pool.deltaIrradiance.Height)
	if err := p.pool.fboIrradiance.AttachTexturePair(p.pool.deltaIrradiance, p.pool.irradiance, "irradiance texture"); err != nil {
		return err
	}
	gl.Disablei(gl.BLEND, 0) // overwrite the delta irradiance
	gl.Enablei(gl.BLEND, 1)  // accumulate total irradiance

	static, err := p.sources.Static(shaders.ComputeIndirectIrradianceName)
	if err != nil {
		return err
	}
	p.cache.setVirtual(shaders.ComputeIndirectIrradianceName,
		shaders.SpecializeScatteringOrder(static, order-1))
	prog, err := p.cache.program(shaders.ComputeIndirectIrradianceName, false)
	if err != nil {
		return err
	}
	defer gl.DeleteProgram(prog)

	gl.UseProgram(prog)
	setUniformTexture(prog, p.pool.deltaScattering, 0, "multipleScatteringTexture")
	p.setAltitudeRange(prog)

	p.log.Info("Computing indirect irradiance")
	p.quad.Draw()
	p.ctx.Finish()

	gl.Disable(gl.BLEND)
	if err := p.saveIrradiance(order, setIndex); err != nil {
		return err
	}
	p.pool.fboIrradiance.Unbind()
	return nil
}

// accumulateMultipleScattering copy-blends the delta scattering of the
// current order into the accumulator. The delta texture was rendered
// separately so the density texture and the accumulator are never part of
// the same pass's working set.
func (p *precomputor) accumulateMultipleScattering(order, setIndex int) error {
	gl.ActiveTexture(gl.TEXTURE0)
	if order > 2 || (setIndex > 0 && !p.atm.SaveAsRadiance) {
		gl.Enable(gl.BLEND)
	} else {
		gl.Disable(gl.BLEND) // very first write initializes the accumulator
	}

	if err := p.pool.fboScattering.AttachTexture(p.pool.multipleScattering, "accumulation of multiple scattering data"); err != nil {
		return err
	}
	gl.Viewport(0, 0, p.pool.multipleScattering.Width, p.pool.multipleScattering.Height)

	prog, err := p.cache.program("copy-scattering-texture.frag", true)
	if err != nil {
		return err
	}
	defer gl.DeleteProgram(prog)

	gl.UseProgram(prog)
	if p.atm.SaveAsRadiance {
		gl.Uniform1i(opengl.UniformLocation(prog, "convertToLuminance"), 0)
	} else {
		gl.Uniform1i(opengl.UniformLocation(prog, "convertToLuminance"), 1)
		m := spectral.RadianceToLuminance(p.atm.Wavelengths, setIndex)
		uploadMat4(prog, "radianceToLuminance", m)
	}
	setUniformTexture(prog, p.pool.deltaScattering, 0, "tex")

	p.render3DTexLayers(prog, "Blending multiple scattering layers into accumulator texture")
	gl.Disable(gl.BLEND)
	p.pool.fboScattering.Unbind()

	if p.opts.SaveAccumScattering {
		if err := saveTexture(p.pool.multipleScattering,
			accumScatteringFileName(p.opts.OutputDir, order, setIndex)); err != nil {
			return err
		}
	}
	if order == p.atm.ScatteringOrders && (setIndex+1 == len(p.atm.Wavelengths) || p.atm.SaveAsRadiance) {
		path := finalScatteringLuminanceFileName(p.opts.OutputDir)
		if p.atm.SaveAsRadiance {
			path = finalScatteringRadianceFileName(p.opts.OutputDir, setIndex)
		}
		if err := saveTexture(p.pool.multipleScattering, path); err != nil {
			return err
		}
	}
	return nil
}

func uploadMat4(prog uint32, name string, m mgl32.Mat4) {
	gl.UniformMatrix4fv(opengl.UniformLocation(prog, name), 1, false, &m[0])
}

func (p *precomputor) computeMultipleScatteringFromDensity(order, setIndex int) error {
	if err := p.pool.fboDeltaScattering.AttachTexture(p.pool.deltaScattering, "delta multiple scattering"); err != nil {
		return err
	}
	gl.Viewport(0, 0, p.pool.deltaScattering.Width, p.pool.deltaScattering.Height)

	prog, err := p.cache.program("compute-multiple-scattering.frag", true)
	if err != nil {
		return err
	}

	gl.UseProgram(prog)
	p.setAltitudeRange(prog)
	setUniformTexture(prog, p.pool.transmittance, 0, "transmittanceTexture")
	setUniformTexture(prog, p.pool.deltaScatteringDensity, 1, "scatteringDensityTexture")

	p.render3DTexLayers(prog, "Computing multiple scattering layers")
	gl.DeleteProgram(prog)

	if p.opts.SaveDeltaScattering {
		if err := saveTexture(p.pool.deltaScattering,
			deltaScatteringFileName(p.opts.OutputDir, order, setIndex)); err != nil {
			return err
		}
	}
	p.pool.fboDeltaScattering.Unbind()

	return p.accumulateMultipleScattering(order, setIndex)
}

// computeMultipleScattering iterates the transfer equation. Orders 1 and 2
// are interleaved per scatterer; orders 3 and up repeat a uniform
// density -> irradiance -> scattering -> accumulate cycle.
func (p *precomputor) computeMultipleScattering(setIndex int) error {
	p.log.Info("Working on scattering orders 1 and 2")
	if err := p.computeScatteringDensityOrder2(setIndex); err != nil {
		return err
	}
	if err := p.computeMultipleScatteringFromDensity(2, setIndex); err != nil {
		return err
	}

	for order := 3; order <= p.atm.ScatteringOrders; order++ {
		p.log.Infof("Working on scattering order %d", order)
		if err := p.computeScatteringDensity(order, setIndex); err != nil {
			return err
		}
		if err := p.computeIndirectIrradiance(order, setIndex); err != nil {
			return err
		}
		if err := p.computeMultipleScatteringFromDensity(order, setIndex); err != nil {
			return err
		}
	}

	// The accumulated ground irradiance is a renderer input in its own
	// right (it shades the ground); persist it once all orders are summed.
	return saveTexture(p.pool.irradiance, finalIrradianceFileName(p.opts.OutputDir, setIndex))
}
