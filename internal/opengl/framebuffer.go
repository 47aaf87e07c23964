package opengl

import (
	"fmt"

	gl "github.com/go-gl/gl/v4.1-core/gl"
)

// Framebuffer wraps one FBO reused across passes with varying attachments.
type Framebuffer struct {
	ID uint32
}

// NewFramebuffer allocates an FBO with no attachments.
func NewFramebuffer() *Framebuffer {
	fbo := &Framebuffer{}
	gl.GenFramebuffers(1, &fbo.ID)
	return fbo
}

// Bind makes the FBO the current render target.
func (f *Framebuffer) Bind() {
	gl.BindFramebuffer(gl.FRAMEBUFFER, f.ID)
}

// Unbind restores the default framebuffer.
func (f *Framebuffer) Unbind() {
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
}

// AttachTexture attaches a texture to color attachment 0. For 3D textures
// this is a layered attachment; the geometry stage routes fragments to the
// layer selected by the `layer` uniform.
func (f *Framebuffer) AttachTexture(tex *Texture, what string) error {
	f.Bind()
	gl.FramebufferTexture(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, tex.ID, 0)
	buf := uint32(gl.COLOR_ATTACHMENT0)
	gl.DrawBuffers(1, &buf)
	return f.checkComplete(what)
}

// AttachTexturePair attaches two 2D textures as color outputs 0 and 1;
// used by the irradiance passes that write a delta and an accumulator in
// one draw.
func (f *Framebuffer) AttachTexturePair(tex0, tex1 *Texture, what string) error {
	f.Bind()
	gl.FramebufferTexture(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, tex0.ID, 0)
	gl.FramebufferTexture(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT1, tex1.ID, 0)
	bufs := [2]uint32{gl.COLOR_ATTACHMENT0, gl.COLOR_ATTACHMENT1}
	gl.DrawBuffers(2, &bufs[0])
	return f.checkComplete(what)
}

func (f *Framebuffer) checkComplete(what string) error {
	if status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
		return fmt.Errorf("%w: framebuffer for %s incomplete (0x%X)", ErrGpuResource, what, status)
	}
	return nil
}

// Delete frees the FBO.
func (f *Framebuffer) Delete() {
	if f.ID != 0 {
		gl.DeleteFramebuffers(1, &f.ID)
		f.ID = 0
	}
}
