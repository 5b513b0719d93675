package phonon

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/phonsim/internal/crystal"
)

func diamond(t *testing.T) *crystal.Crystal {
	t.Helper()
	c, err := crystal.New(
		[3]crystal.Vec3{{0, 0.5, 0.5}, {0.5, 0, 0.5}, {0.5, 0.5, 0}},
		[]crystal.Vec3{{0, 0, 0}, {0.25, 0.25, 0.25}},
		[]float64{28.0855, 28.0855},
		[]string{"Si", "Si"},
	)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func zincblende(t *testing.T) *crystal.Crystal {
	t.Helper()
	c, err := crystal.New(
		[3]crystal.Vec3{{0, 0.5, 0.5}, {0.5, 0, 0.5}, {0.5, 0.5, 0}},
		[]crystal.Vec3{{0, 0, 0}, {0.25, 0.25, 0.25}},
		[]float64{69.723, 74.9216},
		[]string{"Ga", "As"},
	)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestPipelinePreconditions(t *testing.T) {
	m, err := New(diamond(t))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := m.Dispersion(); !errors.Is(err, ErrNoForceConstants) {
		t.Errorf("expected ErrNoForceConstants, got %v", err)
	}
	if _, _, err := m.KPoints(); !errors.Is(err, ErrNoKPoints) {
		t.Errorf("expected ErrNoKPoints, got %v", err)
	}
	if _, err := m.DynamicalMatrices(); !errors.Is(err, ErrNoDispersion) {
		t.Errorf("expected ErrNoDispersion, got %v", err)
	}
	if err := m.SetLongRangePrefactor(1.0); !errors.Is(err, ErrLongRange) {
		t.Errorf("expected ErrLongRange without charges, got %v", err)
	}

	if err := m.SetBulkFC(45, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Dispersion(); !errors.Is(err, ErrNoKPoints) {
		t.Errorf("expected ErrNoKPoints after force constants alone, got %v", err)
	}
	if err := m.SetKPoints(nil, KCrystal); !errors.Is(err, ErrNoKPoints) {
		t.Errorf("expected ErrNoKPoints for empty list, got %v", err)
	}
}

func TestDispersionShapeAndAcousticModes(t *testing.T) {
	m, err := New(diamond(t))
	if err != nil {
		t.Fatal(err)
	}
	if err := m.SetBulkFC(45, 0); err != nil {
		t.Fatal(err)
	}
	kpts := []crystal.Vec3{{0, 0, 0}, {0.25, 0, 0.25}, {0.5, 0, 0.5}}
	if err := m.SetKPoints(kpts, KCrystal); err != nil {
		t.Fatal(err)
	}

	disp, err := m.Dispersion()
	if err != nil {
		t.Fatal(err)
	}
	if len(disp.Freq) != 3 {
		t.Fatalf("expected 3 k-points, got %d", len(disp.Freq))
	}
	for q := range disp.Freq {
		if len(disp.Freq[q]) != 6 {
			t.Fatalf("k-point %d: expected 6 branches, got %d", q, len(disp.Freq[q]))
		}
	}

	// Three acoustic branches vanish at gamma; the three optical ones are
	// degenerate and finite.
	gamma := disp.Freq[0]
	for b := 0; b < 3; b++ {
		if math.Abs(gamma[b]) > 1e-6 {
			t.Errorf("acoustic branch %d at gamma: %g", b, gamma[b])
		}
	}
	if gamma[3] < 1e-3 {
		t.Errorf("optical branch at gamma unexpectedly soft: %g", gamma[3])
	}
	if math.Abs(gamma[3]-gamma[5]) > 1e-6*gamma[5] {
		t.Errorf("optical branches at gamma not degenerate: %g vs %g", gamma[3], gamma[5])
	}
}

func bondChargeDiamond(t *testing.T) *crystal.Crystal {
	t.Helper()
	c, err := crystal.New(
		[3]crystal.Vec3{{0, 0.5, 0.5}, {0.5, 0, 0.5}, {0.5, 0.5, 0}},
		[]crystal.Vec3{
			{0, 0, 0}, {0.25, 0.25, 0.25},
			{0.125, 0.125, 0.125}, {0.375, 0.375, 0.125},
			{0.375, 0.125, 0.375}, {0.125, 0.375, 0.375},
		},
		[]float64{28.0855, 28.0855, 1, 1, 1, 1},
		[]string{"Si", "Si", crystal.BCSymbol, crystal.BCSymbol, crystal.BCSymbol, crystal.BCSymbol},
	)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestGammaModesOnBondChargeBasis(t *testing.T) {
	m, err := New(bondChargeDiamond(t))
	if err != nil {
		t.Fatal(err)
	}
	if err := m.SetBulkFC(45, 4.5); err != nil {
		t.Fatal(err)
	}
	if err := m.SetKPoints([]crystal.Vec3{{0, 0, 0}}, KCrystal); err != nil {
		t.Fatal(err)
	}

	disp, err := m.Dispersion()
	if err != nil {
		t.Fatal(err)
	}
	gamma := disp.Freq[0]
	if len(gamma) != 18 {
		t.Fatalf("expected 18 branches, got %d", len(gamma))
	}

	// Uniform bulk parameters on the bond-charge basis give three unstable
	// modes, five numerically-zero modes, and ten finite ones at gamma.
	for b := 0; b < 3; b++ {
		if gamma[b] > -1e-2 {
			t.Errorf("branch %d at gamma: expected unstable, got %g", b, gamma[b])
		}
	}
	for b := 3; b < 8; b++ {
		if math.Abs(gamma[b]) > 1e-4 {
			t.Errorf("branch %d at gamma: expected zero mode, got %g", b, gamma[b])
		}
	}
	for b := 8; b < 18; b++ {
		if gamma[b] < 1e-2 {
			t.Errorf("branch %d at gamma: expected a finite mode, got %g", b, gamma[b])
		}
	}
}

func TestKConversionConsistency(t *testing.T) {
	build := func() *Model {
		m, err := New(diamond(t))
		if err != nil {
			t.Fatal(err)
		}
		if err := m.SetBulkFC(45, 0); err != nil {
			t.Fatal(err)
		}
		return m
	}

	kcrys := []crystal.Vec3{{0.1, 0.2, 0.3}, {0.5, 0, 0.5}}
	c := diamond(t)
	kcart := make([]crystal.Vec3, len(kcrys))
	for i, k := range kcrys {
		kcart[i] = c.KCrysToCart(k)
	}

	m1 := build()
	if err := m1.SetKPoints(kcrys, KCrystal); err != nil {
		t.Fatal(err)
	}
	d1, err := m1.Dispersion()
	if err != nil {
		t.Fatal(err)
	}

	m2 := build()
	if err := m2.SetKPoints(kcart, KCartesian); err != nil {
		t.Fatal(err)
	}
	d2, err := m2.Dispersion()
	if err != nil {
		t.Fatal(err)
	}

	for q := range d1.Freq {
		for b := range d1.Freq[q] {
			if math.Abs(d1.Freq[q][b]-d2.Freq[q][b]) > 1e-9 {
				t.Errorf("k-point %d branch %d: %g vs %g", q, b, d1.Freq[q][b], d2.Freq[q][b])
			}
		}
	}
}

func TestKPointOrderIndependence(t *testing.T) {
	kpts := []crystal.Vec3{{0, 0, 0}, {0.25, 0, 0}, {0.5, 0, 0}, {0.25, 0.25, 0.25}}

	run := func(ks []crystal.Vec3) [][]float64 {
		m, err := New(diamond(t))
		if err != nil {
			t.Fatal(err)
		}
		if err := m.SetBulkFC(45, 4.5); err != nil {
			t.Fatal(err)
		}
		if err := m.SetKPoints(ks, KCrystal); err != nil {
			t.Fatal(err)
		}
		d, err := m.Dispersion()
		if err != nil {
			t.Fatal(err)
		}
		return d.Freq
	}

	forward := run(kpts)
	reversed := make([]crystal.Vec3, len(kpts))
	for i, k := range kpts {
		reversed[len(kpts)-1-i] = k
	}
	backward := run(reversed)

	for q := range kpts {
		fwd := forward[q]
		bwd := backward[len(kpts)-1-q]
		for b := range fwd {
			if math.Abs(fwd[b]-bwd[b]) > 1e-9 {
				t.Errorf("k-point %d branch %d: %g vs %g", q, b, fwd[b], bwd[b])
			}
		}
	}
}

func TestConvertKPointsRoundTrip(t *testing.T) {
	m, err := New(diamond(t))
	if err != nil {
		t.Fatal(err)
	}
	orig := []crystal.Vec3{{0.1, 0.2, 0.3}, {0.5, 0.5, 0.5}}
	if err := m.SetKPoints(orig, KCrystal); err != nil {
		t.Fatal(err)
	}
	if err := m.ConvertKPoints(KCartesian); err != nil {
		t.Fatal(err)
	}
	if err := m.ConvertKPoints(KCrystal); err != nil {
		t.Fatal(err)
	}

	kpts, coords, err := m.KPoints()
	if err != nil {
		t.Fatal(err)
	}
	if coords != KCrystal {
		t.Errorf("expected crystal coordinates, got %d", coords)
	}
	for q := range orig {
		for a := 0; a < 3; a++ {
			if math.Abs(kpts[q][a]-orig[q][a]) > 1e-12 {
				t.Errorf("k-point %d component %d: expected %f, got %f", q, a, orig[q][a], kpts[q][a])
			}
		}
	}
}

func TestCacheInvalidation(t *testing.T) {
	m, err := New(diamond(t))
	if err != nil {
		t.Fatal(err)
	}
	if err := m.SetBulkFC(45, 0); err != nil {
		t.Fatal(err)
	}
	if err := m.SetKPoints([]crystal.Vec3{{0, 0, 0}}, KCrystal); err != nil {
		t.Fatal(err)
	}

	d1, err := m.Dispersion()
	if err != nil {
		t.Fatal(err)
	}
	opt1 := d1.Freq[0][5]

	// Doubling alpha scales squared frequencies by 2, so the optical
	// branch grows by sqrt(2).
	if err := m.SetBulkFC(90, 0); err != nil {
		t.Fatal(err)
	}
	d2, err := m.Dispersion()
	if err != nil {
		t.Fatal(err)
	}
	opt2 := d2.Freq[0][5]

	if math.Abs(opt2-math.Sqrt2*opt1) > 1e-6*opt2 {
		t.Errorf("expected sqrt(2) scaling: %g -> %g", opt1, opt2)
	}
}

func TestLongRangeChangesSpectrum(t *testing.T) {
	m, err := New(zincblende(t))
	if err != nil {
		t.Fatal(err)
	}
	if err := m.SetBulkFC(41, 0); err != nil {
		t.Fatal(err)
	}
	kpts := []crystal.Vec3{{0.25, 0, 0.25}}
	if err := m.SetKPoints(kpts, KCrystal); err != nil {
		t.Fatal(err)
	}
	base, err := m.Dispersion()
	if err != nil {
		t.Fatal(err)
	}
	baseOpt := base.Freq[0][5]

	if err := m.ConfigureLongRange([]float64{1, -1}, 2.0, [3]int{2, 2, 2}, [3]int{2, 2, 2}); err != nil {
		t.Fatal(err)
	}
	if !m.LongRangeEnabled() {
		t.Fatal("long-range term not enabled")
	}
	coul, err := m.Dispersion()
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(coul.Freq[0][5]-baseOpt) < 1e-9 {
		t.Error("Coulomb term had no effect on the spectrum")
	}

	m.DisableLongRange()
	plain, err := m.Dispersion()
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(plain.Freq[0][5]-baseOpt) > 1e-9 {
		t.Errorf("disabling the Coulomb term did not restore the spectrum: %g vs %g",
			plain.Freq[0][5], baseOpt)
	}
}

func TestNeighborReport(t *testing.T) {
	m, err := New(diamond(t))
	if err != nil {
		t.Fatal(err)
	}

	report := m.NeighborReport()
	if len(report) != 2 {
		t.Fatalf("expected 2 atoms, got %d", len(report))
	}
	for _, atom := range report {
		if atom.Truncated {
			t.Errorf("atom %d unexpectedly truncated", atom.Index)
		}
		if len(atom.Neighbors) != 4 {
			t.Errorf("atom %d: expected 4 neighbors, got %d", atom.Index, len(atom.Neighbors))
		}
		for _, nb := range atom.Neighbors {
			if nb.Shell != 1 {
				t.Errorf("atom %d: unexpected shell %d", atom.Index, nb.Shell)
			}
			if nb.Symbol != "Si" {
				t.Errorf("atom %d: unexpected symbol %s", atom.Index, nb.Symbol)
			}
		}
	}
}

func TestDOSIntegratesToBandCount(t *testing.T) {
	m, err := New(diamond(t))
	if err != nil {
		t.Fatal(err)
	}
	if err := m.SetBulkFC(45, 0); err != nil {
		t.Fatal(err)
	}

	curve, err := m.DOS(201, [3]int{4, 4, 4})
	if err != nil {
		t.Fatal(err)
	}
	if len(curve.Freq) != 201 || len(curve.DOS) != 201 {
		t.Fatalf("expected 201 samples, got %d/%d", len(curve.Freq), len(curve.DOS))
	}

	integral := 0.0
	for s := 1; s < len(curve.Freq); s++ {
		integral += 0.5 * (curve.DOS[s] + curve.DOS[s-1]) * (curve.Freq[s] - curve.Freq[s-1])
	}
	if math.Abs(integral-6) > 0.9 {
		t.Errorf("DOS integral: expected about 6 branches, got %f", integral)
	}
	for s, d := range curve.DOS {
		if d < 0 {
			t.Fatalf("negative DOS %g at sample %d", d, s)
		}
	}
}
