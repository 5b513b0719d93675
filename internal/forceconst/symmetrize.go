package forceconst

import (
	"github.com/san-kum/phonsim/internal/crystal"
)

// parallelTol is the cross-product bound below which two bond directions are
// treated as the same physical bond.
const parallelTol = 1e-3

// SymmetrizeInterfaces walks every bond and its reciprocal bond at the
// neighbor's own site and replaces both tensors with their mutual average,
// (T_ij + T_ji^t)/2, assigned transposed at the far end. Per-bond-type lookups
// across a heterointerface can disagree slightly between the two ends of one
// bond; averaging restores T(i->j) == T(j->i)^t so the assembled dynamical
// matrix stays Hermitian.
func SymmetrizeInterfaces(basis []crystal.Vec3, shells *crystal.ShellSet, fc Set) {
	for i := range basis {
		for j, nb := range shells.Atoms[i].Neighbors {
			bond0 := basis[i].Sub(nb.Pos)
			l := nb.Basis
			for k, rb := range shells.Atoms[l].Neighbors {
				bond1 := basis[l].Sub(rb.Pos)
				if bond0.Cross(bond1).Norm() >= parallelTol {
					continue
				}
				avg := fc[i][j].Add(fc[l][k].Transpose()).Scale(0.5)
				fc[i][j] = avg
				fc[l][k] = avg.Transpose()
			}
		}
	}
}
