package precompute

import (
	"github.com/uwes-ufo/CalcMySky/atmosphere"
	"github.com/uwes-ufo/CalcMySky/internal/opengl"
)

// texturePool holds the fixed set of render targets, allocated once and
// reused across all wavelength sets and orders.
//
// Of the three 3D targets only two form the working set of any pass:
// the scattering passes touch deltaScatteringDensity and deltaScattering,
// the accumulation pass touches deltaScattering and multipleScattering.
// Preserving this pairing is what keeps the order-2 interleave correct.
type texturePool struct {
	transmittance          *opengl.Texture
	deltaIrradiance        *opengl.Texture
	irradiance             *opengl.Texture
	deltaScattering        *opengl.Texture
	deltaScatteringDensity *opengl.Texture
	multipleScattering     *opengl.Texture

	fboTransmittance   *opengl.Framebuffer
	fboIrradiance      *opengl.Framebuffer
	fboDeltaScattering *opengl.Framebuffer
	fboScattering      *opengl.Framebuffer
}

func newTexturePool(atm *atmosphere.Atmosphere) *texturePool {
	scatW, scatH, scatD := atm.ScatTexWidth(), atm.ScatTexHeight(), atm.ScatTexDepth()
	return &texturePool{
		transmittance:          opengl.NewTexture2D(atm.TransmittanceTexSize[0], atm.TransmittanceTexSize[1]),
		deltaIrradiance:        opengl.NewTexture2D(atm.IrradianceTexSize[0], atm.IrradianceTexSize[1]),
		irradiance:             opengl.NewTexture2D(atm.IrradianceTexSize[0], atm.IrradianceTexSize[1]),
		deltaScattering:        opengl.NewTexture3D(scatW, scatH, scatD),
		deltaScatteringDensity: opengl.NewTexture3D(scatW, scatH, scatD),
		multipleScattering:     opengl.NewTexture3D(scatW, scatH, scatD),

		fboTransmittance:   opengl.NewFramebuffer(),
		fboIrradiance:      opengl.NewFramebuffer(),
		fboDeltaScattering: opengl.NewFramebuffer(),
		fboScattering:      opengl.NewFramebuffer(),
	}
}

func (p *texturePool) release() {
	p.fboScattering.Delete()
	p.fboDeltaScattering.Delete()
	p.fboIrradiance.Delete()
	p.fboTransmittance.Delete()
	p.multipleScattering.Delete()
	p.deltaScatteringDensity.Delete()
	p.deltaScattering.Delete()
	p.irradiance.Delete()
	p.deltaIrradiance.Delete()
	p.transmittance.Delete()
}
