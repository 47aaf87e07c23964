package opengl

import (
	gl "github.com/go-gl/gl/v4.1-core/gl"
)

// Quad renders the fullscreen triangle every pass rasterizes. The vertex
// shader derives positions from gl_VertexID, so the VAO stays empty.
type Quad struct {
	vao uint32
}

// NewQuad allocates the empty VAO.
func NewQuad() *Quad {
	q := &Quad{}
	gl.GenVertexArrays(1, &q.vao)
	return q
}

// Draw submits the fullscreen triangle.
func (q *Quad) Draw() {
	gl.BindVertexArray(q.vao)
	gl.DrawArrays(gl.TRIANGLES, 0, 3)
	gl.BindVertexArray(0)
}

// Delete frees the VAO.
func (q *Quad) Delete() {
	if q.vao != 0 {
		gl.DeleteVertexArrays(1, &q.vao)
		q.vao = 0
	}
}
