// Package kmesh generates uniform Monkhorst-Pack style k-point grids in
// crystal coordinates.
package kmesh

import (
	"github.com/san-kum/phonsim/internal/crystal"
)

// Options controls grid generation.
type Options struct {
	// Offset shifts each axis by half a step when nonzero, the usual
	// Monkhorst-Pack staggering away from gamma.
	Offset [3]int
	// WithBoundary includes the far zone edge, giving (n+1) points per axis.
	// Tetrahedron integration needs the closed grid.
	WithBoundary bool
}

// Grid returns n[0]*n[1]*n[2] gamma-centred fractional k-points, or the
// closed (n+1)^3 variant with WithBoundary. The ordering is row-major with
// the first axis outermost, which Tetrahedra relies on.
func Grid(n [3]int, opts Options) []crystal.Vec3 {
	counts := n
	if opts.WithBoundary {
		for i := range counts {
			counts[i]++
		}
	}

	pts := make([]crystal.Vec3, 0, counts[0]*counts[1]*counts[2])
	for x := 0; x < counts[0]; x++ {
		for y := 0; y < counts[1]; y++ {
			for z := 0; z < counts[2]; z++ {
				idx := [3]int{x, y, z}
				var k crystal.Vec3
				for a := 0; a < 3; a++ {
					k[a] = (float64(idx[a]) + 0.5*float64(opts.Offset[a])) / float64(n[a])
				}
				pts = append(pts, k)
			}
		}
	}
	return pts
}
