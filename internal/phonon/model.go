// Package phonon ties the adiabatic bond-charge pipeline together: neighbor
// shells, force constants, dynamical matrices and their spectra, plus the
// optional long-range Coulomb term.
package phonon

import (
	"errors"
	"fmt"

	"github.com/san-kum/phonsim/internal/crystal"
	"github.com/san-kum/phonsim/internal/dynmat"
	"github.com/san-kum/phonsim/internal/eigen"
	"github.com/san-kum/phonsim/internal/ewald"
	"github.com/san-kum/phonsim/internal/forceconst"
)

var (
	// ErrNoForceConstants means a dispersion was requested before any
	// force-constant mode was applied.
	ErrNoForceConstants = errors.New("phonon: force constants not set")
	// ErrNoKPoints means k-points were read or used before being set.
	ErrNoKPoints = errors.New("phonon: k-points not set")
	// ErrNoDispersion means the dynamical matrices were requested before any
	// dispersion computation.
	ErrNoDispersion = errors.New("phonon: no dispersion computed")
	// ErrLongRange means an inconsistent long-range configuration, e.g. a
	// prefactor without charges.
	ErrLongRange = errors.New("phonon: invalid long-range configuration")
)

// KCoords tags how a k-point list is expressed.
type KCoords int

const (
	// KCrystal means fractional coordinates of the reciprocal lattice
	// vectors.
	KCrystal KCoords = iota
	// KCartesian means Cartesian components in units of 2*pi over the
	// lattice constant.
	KCartesian
)

// Dispersion is the computed spectrum over the current k-points.
type Dispersion struct {
	// Freq[q] holds the 3N frequencies at k-point q in THz, ascending.
	Freq [][]float64
	// Solutions carries the eigenvectors alongside.
	Solutions []eigen.Solution
}

// Model owns the live calculation state. It is not safe for concurrent
// mutation; the pipeline is a single calling sequence.
type Model struct {
	crys      *crystal.Crystal
	shellOpts crystal.ShellOptions
	shells    *crystal.ShellSet

	fc forceconst.Set

	kpts    []crystal.Vec3
	kcoords KCoords

	lr    *ewald.Calculator
	eps   float64
	lrSet bool

	dyn  []dynmat.Matrix
	disp *Dispersion
}

// New derives the neighbor shells with default search options and returns a
// model ready for force-constant configuration.
func New(c *crystal.Crystal) (*Model, error) {
	m := &Model{crys: c, shellOpts: crystal.DefaultShellOptions()}
	shells, err := c.Shells(m.shellOpts)
	if err != nil {
		return nil, err
	}
	m.shells = shells
	return m, nil
}

// Crystal returns the underlying immutable crystal.
func (m *Model) Crystal() *crystal.Crystal { return m.crys }

// Shells returns the current neighbor shells.
func (m *Model) Shells() *crystal.ShellSet { return m.shells }

// SetNeighborOptions re-derives the shells. Any force constants built against
// the old shells are discarded along with cached results.
func (m *Model) SetNeighborOptions(opts crystal.ShellOptions) error {
	shells, err := m.crys.Shells(opts)
	if err != nil {
		return err
	}
	m.shellOpts = opts
	m.shells = shells
	m.fc = nil
	m.invalidate()
	return nil
}

// CandidateDistances exposes the neighbor-search diagnostic: all sorted
// candidate bond lengths per atom under the current options.
func (m *Model) CandidateDistances() [][]float64 {
	return m.crys.CandidateDistances(m.shellOpts)
}

// SetBulkFC replaces the force-constant set from a single (alpha, beta) pair.
func (m *Model) SetBulkFC(alpha, beta float64) error {
	fc, err := forceconst.Bulk(m.crys, m.shells, alpha, beta)
	if err != nil {
		return err
	}
	m.fc = fc
	m.invalidate()
	return nil
}

// SetTwoShellFC replaces the force-constant set from independent first- and
// second-shell pairs. Shells must have been searched with a second cutoff.
func (m *Model) SetTwoShellFC(alpha1, beta1, alpha2, beta2 float64) error {
	fc, err := forceconst.TwoShell(m.crys, m.shells, alpha1, beta1, alpha2, beta2)
	if err != nil {
		return err
	}
	m.fc = fc
	m.invalidate()
	return nil
}

// SetTableFC replaces the force-constant set from a per-bond-type table and
// symmetrizes interface bonds.
func (m *Model) SetTableFC(table forceconst.Table) error {
	fc, err := forceconst.FromTable(m.crys, m.shells, table)
	if err != nil {
		return err
	}
	m.fc = fc
	m.invalidate()
	return nil
}

// ForceConstants returns the live tensor set, or nil before any Set*FC call.
func (m *Model) ForceConstants() forceconst.Set { return m.fc }

// ConfigureLongRange attaches the Ewald Coulomb term: per-atom charges and a
// scalar prefactor in units of e^2/(4 pi eps0 alat^3), with the summation
// meshes. Charges and prefactor come together or not at all.
func (m *Model) ConfigureLongRange(charge []float64, eps float64, rgrid, kgrid [3]int) error {
	if len(charge) == 0 {
		return fmt.Errorf("%w: charges required", ErrLongRange)
	}
	calc, err := ewald.New(m.crys, charge, rgrid, kgrid)
	if err != nil {
		return err
	}
	m.lr = calc
	m.eps = eps
	m.lrSet = true
	m.invalidate()
	return nil
}

// SetLongRangePrefactor rescales the configured Coulomb term.
func (m *Model) SetLongRangePrefactor(eps float64) error {
	if !m.lrSet {
		return fmt.Errorf("%w: no charges configured", ErrLongRange)
	}
	m.eps = eps
	m.invalidate()
	return nil
}

// DisableLongRange removes the Coulomb term.
func (m *Model) DisableLongRange() {
	m.lr = nil
	m.eps = 0
	m.lrSet = false
	m.invalidate()
}

// LongRangeEnabled reports whether a Coulomb term is configured.
func (m *Model) LongRangeEnabled() bool { return m.lrSet }

// SetKPoints replaces the k-point list.
func (m *Model) SetKPoints(kpts []crystal.Vec3, coords KCoords) error {
	if len(kpts) == 0 {
		return fmt.Errorf("%w: empty list", ErrNoKPoints)
	}
	m.kpts = append([]crystal.Vec3(nil), kpts...)
	m.kcoords = coords
	m.invalidate()
	return nil
}

// KPoints returns the current list and its coordinate tag.
func (m *Model) KPoints() ([]crystal.Vec3, KCoords, error) {
	if len(m.kpts) == 0 {
		return nil, 0, ErrNoKPoints
	}
	return m.kpts, m.kcoords, nil
}

// ConvertKPoints rewrites the stored k-points in the requested coordinates.
func (m *Model) ConvertKPoints(to KCoords) error {
	if len(m.kpts) == 0 {
		return ErrNoKPoints
	}
	if to == m.kcoords {
		return nil
	}
	for i, k := range m.kpts {
		if to == KCartesian {
			m.kpts[i] = m.crys.KCrysToCart(k)
		} else {
			m.kpts[i] = m.crys.KCartToCrys(k)
		}
	}
	m.kcoords = to
	return nil
}

// cartKPoints returns the k-points in Cartesian coordinates without mutating
// the stored list.
func (m *Model) cartKPoints() []crystal.Vec3 {
	out := make([]crystal.Vec3, len(m.kpts))
	for i, k := range m.kpts {
		if m.kcoords == KCrystal {
			out[i] = m.crys.KCrysToCart(k)
		} else {
			out[i] = k
		}
	}
	return out
}

// Dispersion assembles the dynamical matrices for the current state, adds the
// long-range term if configured, diagonalizes, and caches the result.
func (m *Model) Dispersion() (*Dispersion, error) {
	if m.disp != nil {
		return m.disp, nil
	}
	if m.fc == nil {
		return nil, ErrNoForceConstants
	}
	if len(m.kpts) == 0 {
		return nil, ErrNoKPoints
	}

	kcart := m.cartKPoints()
	dyn := dynmat.Assemble(m.crys.Basis, m.crys.Mass, m.fc, m.shells, kcart)
	if m.lrSet {
		lrm := m.lr.Matrices(m.crys.Mass, kcart)
		for q := range dyn {
			dyn[q].AddScaled(m.eps, lrm[q])
		}
	}

	sols, err := eigen.Solve(dyn)
	if err != nil {
		return nil, err
	}

	freq := make([][]float64, len(sols))
	for q := range sols {
		freq[q] = sols[q].Freq
	}
	m.dyn = dyn
	m.disp = &Dispersion{Freq: freq, Solutions: sols}
	return m.disp, nil
}

// DynamicalMatrices returns the matrices from the last Dispersion call.
func (m *Model) DynamicalMatrices() ([]dynmat.Matrix, error) {
	if m.dyn == nil {
		return nil, ErrNoDispersion
	}
	return m.dyn, nil
}

func (m *Model) invalidate() {
	m.dyn = nil
	m.disp = nil
}

// NeighborRow describes one bond in the neighbor report.
type NeighborRow struct {
	Pos    crystal.Vec3
	Symbol string
	Dist   float64
	Basis  int
	Shell  int
}

// AtomReport is the neighbor environment of one basis atom.
type AtomReport struct {
	Index     int
	Symbol    string
	Pos       crystal.Vec3
	Neighbors []NeighborRow
	Truncated bool
}

// NeighborReport lists every atom's neighbor environment, for checking bond
// counts and table keys before a calculation.
func (m *Model) NeighborReport() []AtomReport {
	out := make([]AtomReport, m.crys.N())
	for i := range m.crys.Basis {
		sh := m.shells.Atoms[i]
		rep := AtomReport{
			Index:     i,
			Symbol:    m.crys.Symbol[i],
			Pos:       m.crys.Basis[i],
			Truncated: m.shells.Truncated[i],
		}
		for j, nb := range sh.Neighbors {
			shell := 1
			if j >= sh.FirstCount {
				shell = 2
			}
			rep.Neighbors = append(rep.Neighbors, NeighborRow{
				Pos:    nb.Pos,
				Symbol: nb.Symbol,
				Dist:   nb.Dist,
				Basis:  nb.Basis,
				Shell:  shell,
			})
		}
		out[i] = rep
	}
	return out
}
