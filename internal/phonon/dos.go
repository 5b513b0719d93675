package phonon

import (
	"github.com/san-kum/phonsim/internal/dos"
	"github.com/san-kum/phonsim/internal/kmesh"
)

// DOS runs a dispersion over a closed gamma-centred grid and integrates it
// with the tetrahedron method into nstep density-of-states samples. The
// model's k-points are replaced by the grid as a side effect, matching every
// other dispersion computation.
func (m *Model) DOS(nstep int, grid [3]int) (dos.Curve, error) {
	if m.fc == nil {
		return dos.Curve{}, ErrNoForceConstants
	}

	pts := kmesh.Grid(grid, kmesh.Options{WithBoundary: true})
	if err := m.SetKPoints(pts, KCrystal); err != nil {
		return dos.Curve{}, err
	}
	disp, err := m.Dispersion()
	if err != nil {
		return dos.Curve{}, err
	}
	return dos.Compute(disp.Freq, grid, nstep)
}
