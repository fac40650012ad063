// Package render draws streamed terrain chunks with OpenGL.
package render

import (
	"math"

	"github.com/faiface/glhf"
	"github.com/faiface/mainthread"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/humboldt-xie/tinyterrain/terrain"
)

const near = 0.1

func radian(angle float32) float32 {
	return mgl32.DegToRad(angle)
}

func frustumPlanes(mat *mgl32.Mat4) []mgl32.Vec4 {
	c1, c2, c3, c4 := mat.Rows()
	return []mgl32.Vec4{
		c4.Add(c1), // left
		c4.Sub(c1), // right
		c4.Sub(c2), // top
		c4.Add(c2), // bottom
		c4.Add(c3), // front
		c4.Sub(c3), // back
	}
}

// isChunkVisible tests the chunk's column against the planes. The column
// spans the full height range so tall peaks are never culled.
func isChunkVisible(planes []mgl32.Vec4, origin mgl32.Vec3, extent, height float32) bool {
	p := origin
	m := extent
	points := []mgl32.Vec3{
		{p.X(), p.Y() - height, p.Z()},
		{p.X() + m, p.Y() - height, p.Z()},
		{p.X() + m, p.Y() - height, p.Z() + m},
		{p.X(), p.Y() - height, p.Z() + m},

		{p.X(), p.Y() + height, p.Z()},
		{p.X() + m, p.Y() + height, p.Z()},
		{p.X() + m, p.Y() + height, p.Z() + m},
		{p.X(), p.Y() + height, p.Z() + m},
	}
	for _, plane := range planes {
		var in, out int
		for _, point := range points {
			if plane.Dot(point.Vec4(1)) < 0 {
				out++
			} else {
				in++
			}
			if in != 0 && out != 0 {
				break
			}
		}
		if in == 0 {
			return false
		}
	}
	return true
}

type Stat struct {
	Indices       int
	CacheChunks   int
	RendingChunks int
}

type TerrainRender struct {
	win      *glfw.Window
	shader   *glhf.Shader
	uploader *Uploader
	cfg      terrain.Config
	stat     Stat
}

func NewTerrainRender(win *glfw.Window, cfg terrain.Config) (*TerrainRender, error) {
	var err error
	r := &TerrainRender{
		win: win,
		cfg: cfg,
	}
	mainthread.Call(func() {
		r.shader, err = glhf.NewShader(vertexFormat, glhf.AttrFormat{
			glhf.Attr{Name: "matrix", Type: glhf.Mat4},
			glhf.Attr{Name: "camera", Type: glhf.Vec3},
			glhf.Attr{Name: "fogdis", Type: glhf.Float},
			glhf.Attr{Name: "heightscale", Type: glhf.Float},
		}, terrainVertexSource, terrainFragmentSource)
	})
	if err != nil {
		return nil, err
	}
	r.uploader = NewUploader(r.shader)
	return r, nil
}

// Uploader returns the GL uploader for terrain.NewStreamer.
func (r *TerrainRender) Uploader() *Uploader {
	return r.uploader
}

func (r *TerrainRender) far() float32 {
	return float32(r.cfg.ViewDistance + r.cfg.ChunkExtent())
}

// Matrix is the projection times the given view matrix.
func (r *TerrainRender) Matrix(view mgl32.Mat4) mgl32.Mat4 {
	width, height := r.win.GetSize()
	if height == 0 {
		height = 1
	}
	mat := mgl32.Perspective(radian(45), float32(width)/float32(height), near, r.far())
	return mat.Mul4(view)
}

// call on mainthread
func (r *TerrainRender) Draw(view mgl32.Mat4, eye mgl32.Vec3, chunks []*terrain.Chunk) {
	mat := r.Matrix(view)
	r.shader.Begin()
	defer r.shader.End()
	r.shader.SetUniformAttr(0, mat)
	r.shader.SetUniformAttr(1, eye)
	r.shader.SetUniformAttr(2, float32(r.cfg.ViewDistance))
	r.shader.SetUniformAttr(3, float32(math.Max(r.cfg.HeightScale, 1)))

	r.stat = Stat{}
	planes := frustumPlanes(&mat)
	extent := float32(r.cfg.ChunkExtent())
	height := float32(math.Max(r.cfg.HeightScale, 1) * 2)
	for _, c := range chunks {
		if !c.Ready() {
			continue
		}
		r.stat.CacheChunks++
		if !isChunkVisible(planes, c.Origin, extent, height) {
			continue
		}
		r.stat.RendingChunks++
		r.stat.Indices += c.IndexCount()
		drawChunk(c)
	}
}

func (r *TerrainRender) Stat() Stat {
	return r.stat
}
