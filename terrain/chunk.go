// Package terrain streams procedurally generated terrain chunks around a
// moving observer.
package terrain

import (
	"context"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Coord identifies a chunk on the horizontal grid.
type Coord struct {
	X, Z int
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Z)
}

// Less orders coordinates by X, then Z.
func (c Coord) Less(o Coord) bool {
	if c.X != o.X {
		return c.X < o.X
	}
	return c.Z < o.Z
}

// CoordOf returns the chunk containing world position pos.
func CoordOf(pos mgl32.Vec3, extent float64) Coord {
	return Coord{
		X: int(math.Floor(float64(pos.X()) / extent)),
		Z: int(math.Floor(float64(pos.Z()) / extent)),
	}
}

// Origin is the world position of the chunk's first vertex.
func (c Coord) Origin(extent float64) mgl32.Vec3 {
	return mgl32.Vec3{float32(float64(c.X) * extent), 0, float32(float64(c.Z) * extent)}
}

// Handle names the device resources of an uploaded chunk.
type Handle struct {
	VAO, VBO, EBO uint32
}

func (h Handle) Valid() bool {
	return h.VAO != 0
}

// Uploader creates and frees device buffers. It is only called on the owning
// goroutine.
type Uploader interface {
	Upload(id Coord, vertices []float32, indices []uint32) (Handle, error)
	Release(h Handle)
}

// Chunk starts as a placeholder and becomes ready once its mesh is uploaded.
type Chunk struct {
	Coord  Coord
	Origin mgl32.Vec3

	Vertices []float32
	Indices  []uint32
	Handle   Handle

	ready  bool
	cancel context.CancelFunc
}

func newPlaceholder(id Coord, origin mgl32.Vec3, cancel context.CancelFunc) *Chunk {
	return &Chunk{Coord: id, Origin: origin, cancel: cancel}
}

func (c *Chunk) Ready() bool {
	return c.ready
}

func (c *Chunk) IndexCount() int {
	return len(c.Indices)
}
