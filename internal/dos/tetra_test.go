package dos

import (
	"errors"
	"math"
	"testing"
)

// linearBand samples e(k) = k_z on the closed (n+1)^3 grid in the ordering
// kmesh.Grid produces. Its exact density of states is 1 everywhere inside
// (0, 1).
func linearBand(n int) [][]float64 {
	nx, ny, nz := n+1, n+1, n+1
	freq := make([][]float64, nx*ny*nz)
	i := 0
	for x := 0; x < nx; x++ {
		for y := 0; y < ny; y++ {
			for z := 0; z < nz; z++ {
				freq[i] = []float64{float64(z) / float64(n)}
				i++
			}
		}
	}
	return freq
}

func TestComputeValidation(t *testing.T) {
	_, err := Compute([][]float64{{0}}, [3]int{2, 2, 2}, 10)
	if !errors.Is(err, ErrGridMismatch) {
		t.Errorf("wrong point count: expected ErrGridMismatch, got %v", err)
	}

	_, err = Compute(linearBand(2), [3]int{2, 2, 2}, 1)
	if !errors.Is(err, ErrGridMismatch) {
		t.Errorf("nstep 1: expected ErrGridMismatch, got %v", err)
	}
}

func TestLinearBandFlatDOS(t *testing.T) {
	curve, err := Compute(linearBand(3), [3]int{3, 3, 3}, 11)
	if err != nil {
		t.Fatal(err)
	}

	if len(curve.Freq) != 11 {
		t.Fatalf("expected 11 samples, got %d", len(curve.Freq))
	}
	if curve.Freq[0] != 0 || math.Abs(curve.Freq[10]-1) > 1e-12 {
		t.Fatalf("expected range [0,1], got [%f,%f]", curve.Freq[0], curve.Freq[10])
	}

	// The tetrahedron scheme is exact for a linear band: DOS is 1 at every
	// interior sample and 0 at the band edges.
	for s := 1; s < 10; s++ {
		if math.Abs(curve.DOS[s]-1) > 1e-9 {
			t.Errorf("sample %d (e=%f): expected DOS 1, got %g", s, curve.Freq[s], curve.DOS[s])
		}
	}
	if curve.DOS[0] > 1e-9 || curve.DOS[10] > 1e-9 {
		t.Errorf("expected zero DOS at the band edges, got %g and %g", curve.DOS[0], curve.DOS[10])
	}
}

func TestLinearBandIntegral(t *testing.T) {
	curve, err := Compute(linearBand(3), [3]int{3, 3, 3}, 101)
	if err != nil {
		t.Fatal(err)
	}

	integral := 0.0
	for s := 1; s < len(curve.Freq); s++ {
		integral += 0.5 * (curve.DOS[s] + curve.DOS[s-1]) * (curve.Freq[s] - curve.Freq[s-1])
	}
	// One band integrates to 1; the trapezoid rule loses a little at the
	// two edge bins.
	if math.Abs(integral-1) > 0.02 {
		t.Errorf("expected integral about 1, got %f", integral)
	}
}

func TestFlatBandKeepsItsWeight(t *testing.T) {
	n := 3
	base := linearBand(n)
	freq := make([][]float64, len(base))
	for i := range base {
		// A dispersionless band at 0.25, with eigensolver-sized jitter, next
		// to a linear band that fixes the energy window to [0,1].
		freq[i] = []float64{base[i][0], 0.25 + 1e-12*float64(i%3)}
	}

	curve, err := Compute(freq, [3]int{n, n, n}, 101)
	if err != nil {
		t.Fatal(err)
	}

	// The flat band collapses into a spike at its energy sample.
	if curve.DOS[25] < 50 {
		t.Errorf("expected a flat-band spike at e=0.25, got DOS %g", curve.DOS[25])
	}

	integral := 0.0
	for s := 1; s < len(curve.Freq); s++ {
		integral += 0.5 * (curve.DOS[s] + curve.DOS[s-1]) * (curve.Freq[s] - curve.Freq[s-1])
	}
	if math.Abs(integral-2) > 0.05 {
		t.Errorf("expected integral about 2, got %f", integral)
	}
}

func TestTwoBandsDoubleTheWeight(t *testing.T) {
	n := 2
	base := linearBand(n)
	freq := make([][]float64, len(base))
	for i := range base {
		freq[i] = []float64{base[i][0], base[i][0]}
	}

	curve, err := Compute(freq, [3]int{n, n, n}, 11)
	if err != nil {
		t.Fatal(err)
	}
	for s := 2; s < 9; s++ {
		if math.Abs(curve.Freq[s]-0.5) < 1e-6 {
			continue // sample coincides with a grid energy
		}
		if math.Abs(curve.DOS[s]-2) > 1e-9 {
			t.Errorf("sample %d: expected DOS 2 for two identical bands, got %g", s, curve.DOS[s])
		}
	}
}
