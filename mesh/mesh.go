// Package mesh turns a height field into an interleaved terrain chunk mesh.
package mesh

import (
	"context"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/humboldt-xie/tinyterrain/noise"
	"github.com/humboldt-xie/tinyterrain/pool"
	"github.com/pkg/errors"
)

// Stride is the number of floats per vertex: position(3) normal(3) uv(2).
const Stride = 8

const (
	offPos    = 0
	offNormal = 3
	offUV     = 6
)

var ErrInvalidParams = errors.New("mesh: invalid params")

type Params struct {
	OriginX, OriginZ float64
	// Resolution is the number of vertices per side.
	Resolution      int
	HeightScale     float64
	HorizontalScale float64
	OffsetX         float64
	OffsetZ         float64
	// Parallelism is the number of batches the height pass is split into.
	Parallelism int
}

func (p Params) validate() error {
	if p.Resolution < 2 {
		return errors.Wrapf(ErrInvalidParams, "resolution %d", p.Resolution)
	}
	if p.HorizontalScale <= 0 {
		return errors.Wrapf(ErrInvalidParams, "horizontal scale %v", p.HorizontalScale)
	}
	return nil
}

type Mesh struct {
	Vertices []float32
	Indices  []uint32
}

func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / Stride
}

// Position returns the position of vertex i.
func (m *Mesh) Position(i int) mgl32.Vec3 {
	v := m.Vertices[i*Stride+offPos:]
	return mgl32.Vec3{v[0], v[1], v[2]}
}

func (m *Mesh) Normal(i int) mgl32.Vec3 {
	v := m.Vertices[i*Stride+offNormal:]
	return mgl32.Vec3{v[0], v[1], v[2]}
}

func (m *Mesh) UV(i int) mgl32.Vec2 {
	v := m.Vertices[i*Stride+offUV:]
	return mgl32.Vec2{v[0], v[1]}
}

// Build generates the chunk mesh described by p.
//
// The height pass is split into p.Parallelism batches on workers; a nil
// workers or a parallelism of one runs everything on the caller. Indices and
// normals are computed on the caller once every height is known. ctx is
// checked between batches.
func Build(ctx context.Context, workers *pool.Pool, src noise.Source, p Params) (*Mesh, error) {
	if src == nil {
		return nil, errors.Wrap(ErrInvalidParams, "nil noise source")
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	n := p.Resolution
	m := &Mesh{
		Vertices: make([]float32, n*n*Stride),
		Indices:  make([]uint32, 0, (n-1)*(n-1)*6),
	}

	if err := fillHeights(ctx, workers, src, p, m.Vertices); err != nil {
		return nil, err
	}
	m.Indices = appendIndices(m.Indices, n)
	computeNormals(m.Vertices, n)
	return m, nil
}

func fillHeights(ctx context.Context, workers *pool.Pool, src noise.Source, p Params, vertices []float32) error {
	total := p.Resolution * p.Resolution
	batches := p.Parallelism
	if batches > total {
		batches = total
	}
	if workers == nil || batches <= 1 {
		if err := ctx.Err(); err != nil {
			return err
		}
		fillRange(src, p, vertices, 0, total)
		return nil
	}

	size := total / batches
	g := workers.Group()
	for b := 0; b < batches; b++ {
		start, end := b*size, (b+1)*size
		if b == batches-1 {
			end = total
		}
		g.Go(func() {
			if ctx.Err() != nil {
				return
			}
			fillRange(src, p, vertices, start, end)
		})
	}
	g.Wait()
	return ctx.Err()
}

// fillRange writes position, zero normal and uv for vertices [start, end).
// Batches write disjoint parts of vertices.
func fillRange(src noise.Source, p Params, vertices []float32, start, end int) {
	n := p.Resolution
	for i := start; i < end; i++ {
		x, z := i%n, i/n
		wx := p.OriginX + float64(x)*p.HorizontalScale
		wz := p.OriginZ + float64(z)*p.HorizontalScale
		h := src.Sample(wx+p.OffsetX, wz+p.OffsetZ) * p.HeightScale

		v := vertices[i*Stride : (i+1)*Stride]
		v[offPos+0] = float32(wx)
		v[offPos+1] = float32(h)
		v[offPos+2] = float32(wz)
		v[offNormal+0] = 0
		v[offNormal+1] = 0
		v[offNormal+2] = 0
		v[offUV+0] = float32(x) / float32(n)
		v[offUV+1] = float32(z) / float32(n)
	}
}

// appendIndices walks the grid row by row; each quad emits (i0, i2, i1) then
// (i1, i2, i3), counter-clockwise seen from above.
func appendIndices(indices []uint32, n int) []uint32 {
	for z := 0; z < n-1; z++ {
		for x := 0; x < n-1; x++ {
			i0 := uint32(z*n + x)
			i1 := i0 + 1
			i2 := i0 + uint32(n)
			i3 := i2 + 1
			indices = append(indices, i0, i2, i1, i1, i2, i3)
		}
	}
	return indices
}
