// Package forceconst builds per-bond 3x3 force-constant tensors for the
// adiabatic bond-charge model: ion-ion and ion-BC bond stretching plus
// bond bending mediated by the virtual bond-charge sites.
package forceconst

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/phonsim/internal/crystal"
)

var (
	// ErrMissingInteraction indicates a bond-table lookup with no entry in
	// either symbol ordering.
	ErrMissingInteraction = errors.New("forceconst: missing interaction")
	// ErrBadShape indicates coefficient arrays that do not match the shell.
	ErrBadShape = errors.New("forceconst: coefficient shape mismatch")
)

// equidistTol gates which neighbor pairs of a bond-charge site contribute
// bending terms, in units of the lattice constant.
const equidistTol = 1e-4

// Tensor is one 3x3 real force-constant block for a single bond.
type Tensor [3][3]float64

// Transpose returns the tensor seen from the other end of the bond.
func (t Tensor) Transpose() Tensor {
	var out Tensor
	for a := 0; a < 3; a++ {
		for b := 0; b < 3; b++ {
			out[a][b] = t[b][a]
		}
	}
	return out
}

// Add returns the elementwise sum.
func (t Tensor) Add(u Tensor) Tensor {
	for a := 0; a < 3; a++ {
		for b := 0; b < 3; b++ {
			t[a][b] += u[a][b]
		}
	}
	return t
}

// Scale returns the tensor multiplied by s.
func (t Tensor) Scale(s float64) Tensor {
	for a := 0; a < 3; a++ {
		for b := 0; b < 3; b++ {
			t[a][b] *= s
		}
	}
	return t
}

// pairKind classifies a neighbor pair (n1,n2) of one central site for the
// bending sum. Only three variants couple; everything else contributes
// nothing.
type pairKind int

const (
	pairNone      pairKind = iota
	pairIonVia2BC          // central real ion, both neighbors bond charges
	pairBCToIon            // central bond charge, n1 BC and n2 real ion
	pairIonToBC            // central bond charge, n1 real ion and n2 BC
)

// classifyPair resolves the bond-charge gating once per neighbor pair. For a
// central bond charge the mixed pair only couples when the BC member sits as
// far from the ion member as the ion sits from the central site, i.e. the
// pair is linked through the same bond.
func classifyPair(atom crystal.Vec3, centralIsBC bool, n1, n2 crystal.Neighbor) pairKind {
	bc1 := n1.Symbol == crystal.BCSymbol
	bc2 := n2.Symbol == crystal.BCSymbol

	if !centralIsBC {
		if bc1 && bc2 {
			return pairIonVia2BC
		}
		return pairNone
	}
	if bc1 == bc2 {
		return pairNone
	}

	ion := n1
	if bc1 {
		ion = n2
	}
	ionBond := atom.Sub(ion.Pos).Norm()
	cross := n1.Pos.Sub(n2.Pos).Norm()
	if math.Abs(ionBond-cross) >= equidistTol {
		return pairNone
	}
	if bc1 {
		return pairBCToIon
	}
	return pairIonToBC
}

// Build constructs one tensor per neighbor of a single central site:
// 8 x stretching + 2 x bending.
//
// alpha holds one stretching coefficient per neighbor and beta one bending
// coefficient per neighbor pair. Stretching is the outer product of the bond
// vector scaled by -alpha/d^2; it is omitted for BC-BC bonds seen from a
// bond-charge site. Bending accumulates the combination
// (pos(n2)-atom) (x) (2 atom - pos(n1) - pos(n2)) scaled by beta/(d1 d2) over
// every pair the bond-charge gating admits.
func Build(alpha []float64, beta [][]float64, atom crystal.Vec3, shell crystal.Shell, centralIsBC bool) ([]Tensor, error) {
	nn := shell.Neighbors
	n := len(nn)
	if len(alpha) != n || len(beta) != n {
		return nil, fmt.Errorf("%w: %d neighbors, %d alpha, %d beta rows",
			ErrBadShape, n, len(alpha), len(beta))
	}
	for i := range beta {
		if len(beta[i]) != n {
			return nil, fmt.Errorf("%w: beta row %d has %d entries, want %d",
				ErrBadShape, i, len(beta[i]), n)
		}
	}

	out := make([]Tensor, n)
	for n1 := 0; n1 < n; n1++ {
		var stretch, bend Tensor

		if !(centralIsBC && nn[n1].Symbol == crystal.BCSymbol) {
			bond := atom.Sub(nn[n1].Pos)
			d1 := bond.Norm()
			for a := 0; a < 3; a++ {
				for b := 0; b < 3; b++ {
					stretch[a][b] = -bond[a] * bond[b]
				}
			}
			stretch = stretch.Scale(alpha[n1] / (d1 * d1))
		}

		d1 := atom.Sub(nn[n1].Pos).Norm()
		for n2 := 0; n2 < n; n2++ {
			if n2 == n1 {
				continue
			}
			if classifyPair(atom, centralIsBC, nn[n1], nn[n2]) == pairNone {
				continue
			}
			d2 := atom.Sub(nn[n2].Pos).Norm()
			var tmp Tensor
			for a := 0; a < 3; a++ {
				s := 2*atom[a] - nn[n1].Pos[a] - nn[n2].Pos[a]
				for b := 0; b < 3; b++ {
					tmp[a][b] = (nn[n2].Pos[b] - atom[b]) * s
				}
			}
			bend = bend.Add(tmp.Scale(beta[n1][n2] / (d1 * d2)))
		}

		out[n1] = stretch.Scale(8).Add(bend.Scale(2))
	}
	return out, nil
}
