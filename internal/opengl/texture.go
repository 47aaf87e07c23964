package opengl

import (
	gl "github.com/go-gl/gl/v4.1-core/gl"
)

// Texture is an RGBA32F render target, either 2D or 3D.
type Texture struct {
	ID     uint32
	Target uint32 // gl.TEXTURE_2D or gl.TEXTURE_3D
	Width  int32
	Height int32
	Depth  int32 // 1 for 2D textures
}

// NewTexture2D allocates a 2D float texture.
func NewTexture2D(width, height int) *Texture {
	tex := &Texture{Target: gl.TEXTURE_2D, Width: int32(width), Height: int32(height), Depth: 1}
	gl.GenTextures(1, &tex.ID)
	gl.BindTexture(gl.TEXTURE_2D, tex.ID)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA32F,
		tex.Width, tex.Height, 0, gl.RGBA, gl.FLOAT, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return tex
}

// NewTexture3D allocates a 3D float texture (a 4D table with one axis
// mapped onto layers).
func NewTexture3D(width, height, depth int) *Texture {
	tex := &Texture{Target: gl.TEXTURE_3D, Width: int32(width), Height: int32(height), Depth: int32(depth)}
	gl.GenTextures(1, &tex.ID)
	gl.BindTexture(gl.TEXTURE_3D, tex.ID)
	gl.TexImage3D(gl.TEXTURE_3D, 0, gl.RGBA32F,
		tex.Width, tex.Height, tex.Depth, 0, gl.RGBA, gl.FLOAT, nil)
	gl.TexParameteri(gl.TEXTURE_3D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_3D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_3D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_3D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_3D, gl.TEXTURE_WRAP_R, gl.CLAMP_TO_EDGE)
	gl.BindTexture(gl.TEXTURE_3D, 0)
	return tex
}

// Bind makes the texture current on the given texture unit.
func (t *Texture) Bind(unit uint32) {
	gl.ActiveTexture(gl.TEXTURE0 + unit)
	gl.BindTexture(t.Target, t.ID)
}

// Pixels reads the full texture back as channel-interleaved float32.
func (t *Texture) Pixels() []float32 {
	data := make([]float32, int(t.Width)*int(t.Height)*int(t.Depth)*4)
	gl.BindTexture(t.Target, t.ID)
	gl.GetTexImage(t.Target, 0, gl.RGBA, gl.FLOAT, gl.Ptr(data))
	gl.BindTexture(t.Target, 0)
	return data
}

// Delete frees the GPU storage.
func (t *Texture) Delete() {
	if t.ID != 0 {
		gl.DeleteTextures(1, &t.ID)
		t.ID = 0
	}
}
