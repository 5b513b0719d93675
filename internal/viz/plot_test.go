package viz

import (
	"strings"
	"testing"

	"github.com/san-kum/phonsim/internal/dos"
)

func TestDispersionPlot(t *testing.T) {
	freq := [][]float64{
		{0, 0, 14.0},
		{2.0, 3.0, 13.5},
		{4.0, 5.5, 13.0},
	}
	out := Dispersion("si dispersion", freq)
	if !strings.Contains(out, "3 branches, 3 k-points") {
		t.Errorf("missing legend in output:\n%s", out)
	}
	if !strings.Contains(out, "si dispersion") {
		t.Error("missing title")
	}

	if out := Dispersion("empty", nil); !strings.Contains(out, "no dispersion data") {
		t.Errorf("expected empty-data notice, got %q", out)
	}
}

func TestDOSPlot(t *testing.T) {
	curve := &dos.Curve{
		Freq: []float64{0, 5, 10, 15},
		DOS:  []float64{0, 1.2, 2.4, 0},
	}
	out := DOS("si dos", curve)
	if !strings.Contains(out, "si dos") {
		t.Error("missing title")
	}

	if out := DOS("empty", nil); !strings.Contains(out, "no DOS data") {
		t.Errorf("expected empty-data notice, got %q", out)
	}
}

func TestFitSummary(t *testing.T) {
	out := FitSummary(true, 120, []string{"alpha", "beta"}, []float64{40.1, 3.9})
	if !strings.Contains(out, "alpha") || !strings.Contains(out, "40.1") {
		t.Errorf("missing parameters in summary:\n%s", out)
	}
	if !strings.Contains(out, "120 evaluations") {
		t.Error("missing evaluation count")
	}

	out = FitSummary(false, 5, nil, nil)
	if !strings.Contains(out, "did not converge") {
		t.Error("missing failure notice")
	}
}
