package fit

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/san-kum/phonsim/internal/crystal"
	"github.com/san-kum/phonsim/internal/phonon"
)

// Report is the audit trail of one fit: the geometry it ran against, the
// final parameters, the target and fitted frequencies per k-point, and the
// aggregate error.
type Report struct {
	When time.Time

	Lattice [3]crystal.Vec3
	Symbols []string
	Basis   []crystal.Vec3

	Method     Method
	Space      Space
	ParamNames []string
	Params     []float64

	Converged   bool
	Message     string
	Evaluations int

	KPts    []crystal.Vec3
	KCoords phonon.KCoords
	Target  [][]float64
	Fitted  [][]float64

	// ErrPerKpt is the summed squared deviation per k-point in THz^2;
	// ErrPerState divides it by the band count.
	ErrPerKpt   float64
	ErrPerState float64
}

func (f *Fitter) buildReport(opts Options, pv ParamVector, src [][]float64, disp *phonon.Dispersion, converged bool, message string, evals int) *Report {
	c := f.model.Crystal()
	kpts, kcoords, _ := f.model.KPoints()

	r := &Report{
		When:        time.Now(),
		Lattice:     c.Lattice,
		Symbols:     append([]string(nil), c.Symbol...),
		Basis:       append([]crystal.Vec3(nil), c.Basis...),
		Method:      opts.Method,
		Space:       opts.Space,
		ParamNames:  opts.Space.Names(),
		Params:      pv.Physical(),
		Converged:   converged,
		Message:     message,
		Evaluations: evals,
		KPts:        kpts,
		KCoords:     kcoords,
		Target:      src,
		Fitted:      disp.Freq,
	}

	sum := 0.0
	for q := range src {
		for b := range src[q] {
			d := disp.Freq[q][b] - src[q][b]
			sum += d * d
		}
	}
	r.ErrPerKpt = sum / float64(len(src))
	r.ErrPerState = r.ErrPerKpt / float64(c.Bands())
	return r
}

// Write renders the audit log.
func (r *Report) Write(w io.Writer) error {
	fmt.Fprintf(w, "Log: %s\n", r.When.Format("2006-01-02 15:04"))
	fmt.Fprintf(w, "Current system:\n")
	for i, s := range r.Symbols {
		fmt.Fprintf(w, "%s %8.3f %8.3f %8.3f\n", s, r.Basis[i][0], r.Basis[i][1], r.Basis[i][2])
	}
	fmt.Fprintf(w, "Unit cell dimension:\n")
	for _, v := range r.Lattice {
		fmt.Fprintf(w, "%8.4f%8.4f%8.4f\n", v[0], v[1], v[2])
	}
	fmt.Fprintf(w, "Fitting routine returns: state (%v) after %d evaluations\n", r.Converged, r.Evaluations)
	for i, name := range r.ParamNames {
		fmt.Fprintf(w, "%s = %10.6f\n", name, r.Params[i])
	}
	fmt.Fprintf(w, "With message: %s\n", r.Message)
	fmt.Fprintf(w, "The system is fitted to the frequencies below: crys = %v\n", r.KCoords == phonon.KCrystal)
	for q := range r.KPts {
		fmt.Fprintf(w, "SRC k = [%8.3f %8.3f %8.3f ], [", r.KPts[q][0], r.KPts[q][1], r.KPts[q][2])
		for _, v := range r.Target[q] {
			fmt.Fprintf(w, "%8.4f ", v)
		}
		fmt.Fprintf(w, "]\n")
		fmt.Fprintf(w, "FIT k = [%8.3f %8.3f %8.3f ], [", r.KPts[q][0], r.KPts[q][1], r.KPts[q][2])
		for _, v := range r.Fitted[q] {
			fmt.Fprintf(w, "%8.4f ", v)
		}
		fmt.Fprintf(w, "]\n")
	}
	fmt.Fprintf(w, "Fitting error %8.4f per kpt and %7.4f per state [THz]^2\n", r.ErrPerKpt, r.ErrPerState)
	return nil
}

// Save writes the audit log to a file.
func (r *Report) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return r.Write(f)
}
