package dynmat

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/san-kum/phonsim/internal/crystal"
	"github.com/san-kum/phonsim/internal/forceconst"
)

func diamondSetup(t *testing.T) (*crystal.Crystal, *crystal.ShellSet, forceconst.Set) {
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
	shells, err := c.Shells(crystal.DefaultShellOptions())
	if err != nil {
		t.Fatal(err)
	}
	fc, err := forceconst.Bulk(c, shells, 45, 0)
	if err != nil {
		t.Fatal(err)
	}
	return c, shells, fc
}

func TestAssembleDimensions(t *testing.T) {
	c, shells, fc := diamondSetup(t)

	kpts := []crystal.Vec3{{0, 0, 0}, {0.1, 0.2, 0.3}, {0.5, 0, 0.5}}
	ms := Assemble(c.Basis, c.Mass, fc, shells, kpts)

	if len(ms) != len(kpts) {
		t.Fatalf("expected %d matrices, got %d", len(kpts), len(ms))
	}
	for q, m := range ms {
		if m.Dim != 6 {
			t.Errorf("k-point %d: expected dim 6, got %d", q, m.Dim)
		}
	}
}

func TestAssembleHermitian(t *testing.T) {
	c, shells, fc := diamondSetup(t)

	kpts := []crystal.Vec3{{0.13, -0.27, 0.41}, {0.5, 0.5, 0.5}}
	ms := Assemble(c.Basis, c.Mass, fc, shells, kpts)

	for q, m := range ms {
		if d := m.HermitianDefect(); d > 1e-10 {
			t.Errorf("k-point %d: Hermitian defect %g", q, d)
		}
	}
}

func TestAssembleGammaIsReal(t *testing.T) {
	c, shells, fc := diamondSetup(t)

	ms := Assemble(c.Basis, c.Mass, fc, shells, []crystal.Vec3{{0, 0, 0}})
	for i, v := range ms[0].Data {
		if math.Abs(imag(v)) > 1e-14 {
			t.Errorf("element %d has imaginary part %g at gamma", i, imag(v))
		}
	}
}

func TestAcousticSumRule(t *testing.T) {
	c, shells, fc := diamondSetup(t)

	// At gamma every row, summed over atoms with sqrt-mass weights,
	// cancels between diagonal and off-diagonal blocks.
	m := Assemble(c.Basis, c.Mass, fc, shells, []crystal.Vec3{{0, 0, 0}})[0]
	for i := 0; i < c.N(); i++ {
		for a := 0; a < 3; a++ {
			for b := 0; b < 3; b++ {
				sum := complex(0, 0)
				for j := 0; j < c.N(); j++ {
					sum += complex(math.Sqrt(c.Mass[j]), 0) * m.At(3*i+a, 3*j+b)
				}
				if cmplx.Abs(sum) > 1e-10 {
					t.Errorf("row (%d,%d,%d): weighted sum %g", i, a, b, cmplx.Abs(sum))
				}
			}
		}
	}
}

func TestAddScaled(t *testing.T) {
	m := NewMatrix(1)
	o := NewMatrix(1)
	o.Data[0] = complex(2, 1)
	o.Data[4] = complex(0, -3)

	m.AddScaled(0.5, o)
	if m.Data[0] != complex(1, 0.5) {
		t.Errorf("expected (1+0.5i), got %v", m.Data[0])
	}
	if m.Data[4] != complex(0, -1.5) {
		t.Errorf("expected -1.5i, got %v", m.Data[4])
	}
}

func TestPhaseConvention(t *testing.T) {
	// A one-atom chain with only +-x neighbors gives the textbook
	// 2(1-cos(2 pi k_x)) band; check one known point against the closed
	// form including the unit constant.
	c, err := crystal.New(
		[3]crystal.Vec3{{1, 0, 0}, {0, 10, 0}, {0, 0, 10}},
		[]crystal.Vec3{{0, 0, 0}},
		[]float64{28.0855},
		[]string{"Si"},
	)
	if err != nil {
		t.Fatal(err)
	}
	shells, err := c.Shells(crystal.DefaultShellOptions())
	if err != nil {
		t.Fatal(err)
	}
	alpha := 40.0
	fc, err := forceconst.Bulk(c, shells, alpha, 0)
	if err != nil {
		t.Fatal(err)
	}

	kx := 0.3
	m := Assemble(c.Basis, c.Mass, fc, shells, []crystal.Vec3{{kx, 0, 0}})[0]

	want := 8 * alpha / c.Mass[0] * 2 * (1 - math.Cos(2*math.Pi*kx)) * MTHz
	got := real(m.At(0, 0))
	if math.Abs(got-want) > math.Abs(want)*1e-10 {
		t.Errorf("expected xx element %g, got %g", want, got)
	}
	if math.Abs(imag(m.At(0, 0))) > 1e-14 {
		t.Errorf("diagonal element not real: %g", imag(m.At(0, 0)))
	}
}
