package mesh

import "github.com/go-gl/mathgl/mgl32"

var up = mgl32.Vec3{0, 1, 0}

// quadrants pairs neighbour offsets (dx, dz) so that cross(a, b) points up for
// flat ground.
var quadrants = [4][2][2]int{
	{{0, 1}, {1, 0}},
	{{1, 0}, {0, -1}},
	{{0, -1}, {-1, 0}},
	{{-1, 0}, {0, 1}},
}

// computeNormals sets every normal from the normalized cross products of its
// neighbour quadrants. Quadrants leaving the grid are skipped, so edge
// vertices use one or two quadrants. Zero-length cross products are ignored
// and a vertex without any contribution gets +Y.
func computeNormals(vertices []float32, n int) {
	pos := func(x, z int) mgl32.Vec3 {
		v := vertices[(z*n+x)*Stride:]
		return mgl32.Vec3{v[0], v[1], v[2]}
	}
	inside := func(x, z int) bool {
		return x >= 0 && x < n && z >= 0 && z < n
	}

	for z := 0; z < n; z++ {
		for x := 0; x < n; x++ {
			p := pos(x, z)
			var sum mgl32.Vec3
			for _, q := range quadrants {
				ax, az := x+q[0][0], z+q[0][1]
				bx, bz := x+q[1][0], z+q[1][1]
				if !inside(ax, az) || !inside(bx, bz) {
					continue
				}
				c := pos(ax, az).Sub(p).Cross(pos(bx, bz).Sub(p))
				if l := c.Len(); l > 0 {
					sum = sum.Add(c.Mul(1 / l))
				}
			}
			normal := up
			if l := sum.Len(); l > 0 {
				normal = sum.Mul(1 / l)
			}
			v := vertices[(z*n+x)*Stride+offNormal:]
			v[0], v[1], v[2] = normal[0], normal[1], normal[2]
		}
	}
}
