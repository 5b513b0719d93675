// Package ewald computes the long-range Coulomb contribution to the
// dynamical matrix for a rigid-ion charge assignment, by Ewald summation
// split between real and reciprocal space.
package ewald

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/san-kum/phonsim/internal/crystal"
	"github.com/san-kum/phonsim/internal/dynmat"
)

// ErrBadCharge indicates a charge assignment that does not match the basis.
var ErrBadCharge = errors.New("ewald: invalid charge assignment")

// Calculator holds the lattice sums' fixed inputs. The caller scales its
// output by a physical prefactor in units of e^2/(4 pi eps0 alat^3).
type Calculator struct {
	crys   *crystal.Crystal
	charge []float64
	rgrid  [3]int
	kgrid  [3]int
	eta    float64
}

// New validates the charge assignment against the basis. rgrid and kgrid are
// the real- and reciprocal-space summation meshes; [3,3,3] converges ordinary
// cells.
func New(c *crystal.Crystal, charge []float64, rgrid, kgrid [3]int) (*Calculator, error) {
	if len(charge) != c.N() {
		return nil, fmt.Errorf("%w: %d charges for %d basis atoms", ErrBadCharge, len(charge), c.N())
	}
	total := 0.0
	for _, z := range charge {
		total += z
	}
	if math.Abs(total) > 1e-8 {
		return nil, fmt.Errorf("%w: cell not neutral (sum %g)", ErrBadCharge, total)
	}
	return &Calculator{
		crys:   c,
		charge: append([]float64(nil), charge...),
		rgrid:  rgrid,
		kgrid:  kgrid,
		eta:    2.0 / math.Cbrt(c.Volume),
	}, nil
}

// Matrices returns the mass-weighted Coulomb dynamical-matrix term per
// k-point, in the same units and phase convention as dynmat.Assemble.
// k-points are Cartesian in units of 2*pi over the lattice constant.
func (e *Calculator) Matrices(mass []float64, kcart []crystal.Vec3) []dynmat.Matrix {
	n := e.crys.N()

	// Acoustic-sum-rule column: the k=0 coupling of every atom to the rest of
	// the charge distribution, subtracted on the diagonal blocks.
	asr := make([][3][3]complex128, n)
	for i := 0; i < n; i++ {
		for l := 0; l < n; l++ {
			q := e.pairSum(crystal.Vec3{}, i, l)
			for a := 0; a < 3; a++ {
				for b := 0; b < 3; b++ {
					asr[i][a][b] += complex(e.charge[i]*e.charge[l], 0) * q[a][b]
				}
			}
		}
	}

	out := make([]dynmat.Matrix, len(kcart))
	for qi, k := range kcart {
		k2pi := k.Scale(2 * math.Pi)
		m := dynmat.NewMatrix(n)
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				blk := e.pairSum(k2pi, i, j)
				w := e.charge[i] * e.charge[j] / math.Sqrt(mass[i]*mass[j])
				for a := 0; a < 3; a++ {
					for b := 0; b < 3; b++ {
						v := complex(w, 0) * blk[a][b]
						if i == j {
							v -= asr[i][a][b] / complex(mass[i], 0)
						}
						m.Data[(3*i+a)*m.Dim+3*j+b] += v
					}
				}
			}
		}
		for idx := range m.Data {
			m.Data[idx] *= complex(dynmat.MTHz, 0)
		}
		out[qi] = m
	}
	return out
}

// pairSum is the dimensionless Ewald lattice sum coupling atoms i and j at
// wave vector k (already 2*pi-scaled): real-space erfc derivatives plus the
// reciprocal-space Gaussian tail.
func (e *Calculator) pairSum(k crystal.Vec3, i, j int) [3][3]complex128 {
	var out [3][3]complex128
	r := e.crys.Basis[i].Sub(e.crys.Basis[j])

	// Real-space part.
	for nx := -e.rgrid[0]; nx <= e.rgrid[0]; nx++ {
		for ny := -e.rgrid[1]; ny <= e.rgrid[1]; ny++ {
			for nz := -e.rgrid[2]; nz <= e.rgrid[2]; nz++ {
				shift := e.crys.Lattice[0].Scale(float64(nx)).
					Add(e.crys.Lattice[1].Scale(float64(ny))).
					Add(e.crys.Lattice[2].Scale(float64(nz)))
				x := r.Add(shift)
				s := x.Norm()
				if s < 1e-10 {
					continue
				}
				c1 := math.Erfc(e.eta*s)/(s*s*s) +
					(2*e.eta/math.Sqrt(math.Pi))*math.Exp(-e.eta*e.eta*s*s)/(s*s)
				c2 := 3*math.Erfc(e.eta*s)/(s*s*s*s*s) +
					(2*e.eta/math.Sqrt(math.Pi))*(3/(s*s*s*s)+2*e.eta*e.eta/(s*s))*math.Exp(-e.eta*e.eta*s*s)
				phase := cmplx.Exp(complex(0, -k.Dot(x)))
				for a := 0; a < 3; a++ {
					for b := 0; b < 3; b++ {
						h := -x[a] * x[b] * c2
						if a == b {
							h += c1
						}
						out[a][b] += complex(h, 0) * phase
					}
				}
			}
		}
	}

	// Reciprocal-space part.
	for nx := -e.kgrid[0]; nx <= e.kgrid[0]; nx++ {
		for ny := -e.kgrid[1]; ny <= e.kgrid[1]; ny++ {
			for nz := -e.kgrid[2]; nz <= e.kgrid[2]; nz++ {
				g := e.crys.KCrysToCart(crystal.Vec3{float64(nx), float64(ny), float64(nz)}).Scale(2 * math.Pi)
				kk := k.Add(g)
				k2 := kk.Dot(kk)
				if k2 < 1e-10 {
					continue
				}
				amp := (4 * math.Pi / e.crys.Volume) * math.Exp(-k2/(4*e.eta*e.eta)) / k2
				phase := cmplx.Exp(complex(0, -kk.Dot(r)))
				for a := 0; a < 3; a++ {
					for b := 0; b < 3; b++ {
						out[a][b] += complex(amp*kk[a]*kk[b], 0) * phase
					}
				}
			}
		}
	}

	return out
}
