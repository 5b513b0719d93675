// Package dynmat assembles the short-range dynamical matrix of a crystal from
// its force-constant tensors at arbitrary reciprocal-space points.
package dynmat

import (
	"math"
	"math/cmplx"
	"sync"

	"github.com/san-kum/phonsim/internal/crystal"
	"github.com/san-kum/phonsim/internal/forceconst"
)

const (
	amuKg = 1.66053906660e-27
	// MTHz converts force constants in N/m over masses in amu to eigenvalues
	// in squared THz.
	MTHz = 1.0 / (amuKg * 4 * math.Pi * math.Pi * 1e24)
)

// Matrix is one complex Hermitian dynamical matrix, 3N x 3N row-major.
type Matrix struct {
	Dim  int
	Data []complex128
}

// NewMatrix allocates a zero matrix for n basis atoms.
func NewMatrix(n int) Matrix {
	dim := 3 * n
	return Matrix{Dim: dim, Data: make([]complex128, dim*dim)}
}

// At returns element (r, c).
func (m Matrix) At(r, c int) complex128 { return m.Data[r*m.Dim+c] }

func (m Matrix) add(r, c int, v complex128) { m.Data[r*m.Dim+c] += v }

// AddScaled accumulates s*o into m. Both matrices must share a dimension.
func (m Matrix) AddScaled(s float64, o Matrix) {
	for i := range m.Data {
		m.Data[i] += complex(s, 0) * o.Data[i]
	}
}

// HermitianDefect returns the largest |D[i,j] - conj(D[j,i])|, a measure of
// how far the matrix is from Hermitian.
func (m Matrix) HermitianDefect() float64 {
	worst := 0.0
	for r := 0; r < m.Dim; r++ {
		for c := r; c < m.Dim; c++ {
			d := cmplx.Abs(m.At(r, c) - cmplx.Conj(m.At(c, r)))
			if d > worst {
				worst = d
			}
		}
	}
	return worst
}

// Assemble builds one dynamical matrix per k-point from the force-constant
// set. k-points are Cartesian in units of 2*pi over the lattice constant. For
// every atom i and neighbor j with bond vector x = pos(i) - pos(neighbor),
// the bare tensor over mass(i) leaves the diagonal block and the
// exp(-i k.x)-modulated tensor over sqrt(mass(i) mass(j)) enters the
// off-diagonal block. The result is scaled to squared-THz units.
//
// Each k-point is independent, so they fan out across goroutines.
func Assemble(basis []crystal.Vec3, mass []float64, fc forceconst.Set, shells *crystal.ShellSet, kcart []crystal.Vec3) []Matrix {
	out := make([]Matrix, len(kcart))

	var wg sync.WaitGroup
	for q := range kcart {
		wg.Add(1)
		go func(q int) {
			defer wg.Done()
			out[q] = assembleOne(basis, mass, fc, shells, kcart[q].Scale(2*math.Pi))
		}(q)
	}
	wg.Wait()

	return out
}

func assembleOne(basis []crystal.Vec3, mass []float64, fc forceconst.Set, shells *crystal.ShellSet, k crystal.Vec3) Matrix {
	n := len(basis)
	m := NewMatrix(n)

	for i := 0; i < n; i++ {
		for j, nb := range shells.Atoms[i].Neighbors {
			x := basis[i].Sub(nb.Pos)
			ka := nb.Basis
			phase := cmplx.Exp(complex(0, -k.Dot(x)))
			invM := 1.0 / mass[i]
			invRoot := 1.0 / math.Sqrt(mass[i]*mass[ka])

			t := fc[i][j]
			for a := 0; a < 3; a++ {
				for b := 0; b < 3; b++ {
					m.add(3*i+a, 3*i+b, complex(-t[a][b]*invM, 0))
					m.add(3*i+a, 3*ka+b, complex(t[a][b]*invRoot, 0)*phase)
				}
			}
		}
	}

	for i := range m.Data {
		m.Data[i] *= complex(MTHz, 0)
	}
	return m
}
