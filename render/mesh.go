package render

import (
	"log"
	"time"

	"github.com/faiface/glhf"
	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/humboldt-xie/tinyterrain/mesh"
	"github.com/humboldt-xie/tinyterrain/terrain"
	"github.com/pkg/errors"
)

// vertexFormat matches the interleaved mesh.Stride layout.
var vertexFormat = glhf.AttrFormat{
	glhf.Attr{Name: "pos", Type: glhf.Vec3},
	glhf.Attr{Name: "normal", Type: glhf.Vec3},
	glhf.Attr{Name: "tex", Type: glhf.Vec2},
}

// Uploader creates chunk buffers on the GL thread.
type Uploader struct {
	shader *glhf.Shader
}

func NewUploader(shader *glhf.Shader) *Uploader {
	return &Uploader{shader: shader}
}

// call on mainthread
func (u *Uploader) Upload(id terrain.Coord, vertices []float32, indices []uint32) (terrain.Handle, error) {
	start := time.Now()
	defer func() {
		log.Printf("upload chunk %v spend %fs %d", id, float64(time.Since(start))/float64(time.Second), len(vertices))
	}()
	var h terrain.Handle
	if len(vertices) == 0 || len(indices) == 0 {
		return h, errors.Errorf("render: empty mesh for chunk %v", id)
	}
	if u.shader.VertexFormat().Size() != mesh.Stride*4 {
		return h, errors.New("render: shader vertex format does not match mesh stride")
	}

	gl.GenVertexArrays(1, &h.VAO)
	gl.GenBuffers(1, &h.VBO)
	gl.GenBuffers(1, &h.EBO)
	gl.BindVertexArray(h.VAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, h.VBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*4, gl.Ptr(vertices), gl.STATIC_DRAW)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, h.EBO)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(indices)*4, gl.Ptr(indices), gl.STATIC_DRAW)

	offset := 0
	for _, attr := range u.shader.VertexFormat() {
		loc := gl.GetAttribLocation(u.shader.ID(), gl.Str(attr.Name+"\x00"))
		var size int32
		switch attr.Type {
		case glhf.Float:
			size = 1
		case glhf.Vec2:
			size = 2
		case glhf.Vec3:
			size = 3
		case glhf.Vec4:
			size = 4
		}
		if loc >= 0 {
			gl.VertexAttribPointer(
				uint32(loc),
				size,
				gl.FLOAT,
				false,
				int32(u.shader.VertexFormat().Size()),
				gl.PtrOffset(offset),
			)
			gl.EnableVertexAttribArray(uint32(loc))
		}
		offset += attr.Type.Size()
	}
	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	return h, nil
}

// call on mainthread
func (u *Uploader) Release(h terrain.Handle) {
	if h.VAO == 0 {
		return
	}
	gl.DeleteVertexArrays(1, &h.VAO)
	gl.DeleteBuffers(1, &h.VBO)
	gl.DeleteBuffers(1, &h.EBO)
}

func drawChunk(c *terrain.Chunk) {
	gl.BindVertexArray(c.Handle.VAO)
	gl.DrawElements(gl.TRIANGLES, int32(c.IndexCount()), gl.UNSIGNED_INT, gl.PtrOffset(0))
	gl.BindVertexArray(0)
}
