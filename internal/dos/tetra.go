// Package dos integrates a phonon band structure on a closed k-grid into a
// density of states with the linear tetrahedron method (Bloechl, PRB 49,
// 16223).
package dos

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrGridMismatch indicates band data that does not match the closed grid.
var ErrGridMismatch = errors.New("dos: band data does not match grid")

// Curve is the sampled density of states.
type Curve struct {
	Freq []float64
	DOS  []float64
}

// Six tetrahedra tile a grid micro-cube; each row lists four cube-corner
// indices in (x,y,z)-bit encoding.
var cubeTetra = [6][4]int{
	{0, 1, 3, 7},
	{0, 1, 5, 7},
	{0, 2, 3, 7},
	{0, 2, 6, 7},
	{0, 4, 5, 7},
	{0, 4, 6, 7},
}

// Compute bins the band energies freq[q][band], sampled on the closed
// (n+1)^3 grid from kmesh.Grid with WithBoundary, into nstep DOS points
// spanning the band range. The curve integrates to the number of bands.
func Compute(freq [][]float64, grid [3]int, nstep int) (Curve, error) {
	nx, ny, nz := grid[0]+1, grid[1]+1, grid[2]+1
	if len(freq) != nx*ny*nz {
		return Curve{}, fmt.Errorf("%w: %d k-points for %dx%dx%d closed grid",
			ErrGridMismatch, len(freq), nx, ny, nz)
	}
	if nstep < 2 {
		return Curve{}, fmt.Errorf("%w: nstep must be at least 2", ErrGridMismatch)
	}
	nbnd := len(freq[0])

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, f := range freq {
		for _, e := range f {
			lo = math.Min(lo, e)
			hi = math.Max(hi, e)
		}
	}
	if hi <= lo {
		hi = lo + 1
	}

	curve := Curve{
		Freq: make([]float64, nstep),
		DOS:  make([]float64, nstep),
	}
	step := (hi - lo) / float64(nstep-1)
	for s := range curve.Freq {
		curve.Freq[s] = lo + float64(s)*step
	}

	vertex := func(x, y, z int) int { return (x*ny+y)*nz + z }
	ntet := 6 * grid[0] * grid[1] * grid[2]
	weight := 1.0 / float64(ntet)

	corners := make([]float64, 4)
	for x := 0; x < grid[0]; x++ {
		for y := 0; y < grid[1]; y++ {
			for z := 0; z < grid[2]; z++ {
				for _, tet := range cubeTetra {
					for b := 0; b < nbnd; b++ {
						for ci, c := range tet {
							corners[ci] = freq[vertex(x+(c>>2)&1, y+(c>>1)&1, z+c&1)][b]
						}
						sort.Float64s(corners)
						accumulate(&curve, corners, weight)
					}
				}
			}
		}
	}
	return curve, nil
}

// accumulate adds one tetrahedron's DOS contribution at every energy sample,
// using the linear-interpolation formulas for the three corner intervals.
// A tetrahedron narrower than the sample spacing is a delta spike: its whole
// weight goes into the nearest sample so dispersionless bands keep their
// spectral weight.
func accumulate(curve *Curve, e []float64, w float64) {
	e1, e2, e3, e4 := e[0], e[1], e[2], e[3]
	step := curve.Freq[1] - curve.Freq[0]
	if e4-e1 < step {
		s := int(math.Round((e1 - curve.Freq[0]) / step))
		if s < 0 {
			s = 0
		} else if s >= len(curve.DOS) {
			s = len(curve.DOS) - 1
		}
		curve.DOS[s] += w / step
		return
	}
	for s, en := range curve.Freq {
		var d float64
		switch {
		case en < e1 || en > e4:
			continue
		case en < e2:
			den := (e2 - e1) * (e3 - e1) * (e4 - e1)
			if den > 0 {
				d = 3 * (en - e1) * (en - e1) / den
			}
		case en < e3:
			d31, d41, d32, d42 := e3-e1, e4-e1, e3-e2, e4-e2
			if d31 > 0 && d41 > 0 && d32 > 0 && d42 > 0 {
				x := en - e2
				d = (3*(e2-e1) + 6*x - 3*(d31+d42)*x*x/(d32*d42)) / (d31 * d41)
			}
		default:
			den := (e4 - e1) * (e4 - e2) * (e4 - e3)
			if den > 0 {
				d = 3 * (e4 - en) * (e4 - en) / den
			}
		}
		curve.DOS[s] += w * d
	}
}
