// Package fit adjusts the model's scalar force constants, and optionally the
// long-range prefactor, to reproduce a reference phonon dispersion.
package fit

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/optimize"

	"github.com/san-kum/phonsim/internal/crystal"
	"github.com/san-kum/phonsim/internal/phonon"
)

var (
	// ErrBadTarget indicates target frequencies that do not match the
	// k-point list or the band count.
	ErrBadTarget = errors.New("fit: target shape mismatch")
	// ErrBadInit indicates an initial guess of the wrong dimension for the
	// parameter space.
	ErrBadInit = errors.New("fit: bad initial guess")
)

// Method names a gonum minimizer.
type Method string

const (
	MethodNelderMead Method = "nelder-mead"
	MethodBFGS       Method = "bfgs"
	MethodLBFGS      Method = "lbfgs"
	MethodCMAES      Method = "cmaes"
)

func (m Method) toGonum() optimize.Method {
	switch m {
	case MethodBFGS:
		return &optimize.BFGS{}
	case MethodLBFGS:
		return &optimize.LBFGS{}
	case MethodCMAES:
		return &optimize.CmaEsChol{}
	default:
		return &optimize.NelderMead{}
	}
}

// Space selects which parameters the minimizer explores.
type Space int

const (
	// Bulk fits (alpha, beta).
	Bulk Space = iota
	// BulkLongRange fits (alpha, beta, eps); the model must have a
	// long-range term configured.
	BulkLongRange
	// TwoShell fits (alpha1, beta1, alpha2, beta2).
	TwoShell
	// TwoShellLongRange adds eps as a fifth parameter.
	TwoShellLongRange
)

// Dim returns the parameter count of the space.
func (s Space) Dim() int {
	switch s {
	case Bulk:
		return 2
	case BulkLongRange:
		return 3
	case TwoShell:
		return 4
	default:
		return 5
	}
}

// Names returns the parameter labels in vector order.
func (s Space) Names() []string {
	switch s {
	case Bulk:
		return []string{"alpha", "beta"}
	case BulkLongRange:
		return []string{"alpha", "beta", "eps"}
	case TwoShell:
		return []string{"alpha1", "beta1", "alpha2", "beta2"}
	default:
		return []string{"alpha1", "beta1", "alpha2", "beta2", "eps"}
	}
}

func (s Space) longRange() bool { return s == BulkLongRange || s == TwoShellLongRange }

// ParamVector separates what the minimizer sees (raw floats, free to go
// negative) from what the model consumes (their absolute values, since force
// constants are physically non-negative).
type ParamVector struct {
	Space Space
	Raw   []float64
}

// Physical returns the parameter values the model receives.
func (p ParamVector) Physical() []float64 {
	out := make([]float64, len(p.Raw))
	for i, v := range p.Raw {
		out[i] = math.Abs(v)
	}
	return out
}

// apply commits the physical parameters into the live model.
func (p ParamVector) apply(m *phonon.Model) error {
	v := p.Physical()
	switch p.Space {
	case Bulk:
		return m.SetBulkFC(v[0], v[1])
	case BulkLongRange:
		if err := m.SetBulkFC(v[0], v[1]); err != nil {
			return err
		}
		return m.SetLongRangePrefactor(v[2])
	case TwoShell:
		return m.SetTwoShellFC(v[0], v[1], v[2], v[3])
	default:
		if err := m.SetTwoShellFC(v[0], v[1], v[2], v[3]); err != nil {
			return err
		}
		return m.SetLongRangePrefactor(v[4])
	}
}

// Status is the fitter lifecycle state.
type Status int

const (
	StatusUnfitted Status = iota
	StatusFitting
	StatusFitted
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusFitting:
		return "fitting"
	case StatusFitted:
		return "fitted"
	case StatusFailed:
		return "failed"
	default:
		return "unfitted"
	}
}

// Progress is delivered to the OnProgress hook once per objective
// evaluation.
type Progress struct {
	Eval      int
	Objective float64
	Params    []float64
}

// Options configures one fit call.
type Options struct {
	Space  Space
	Init   []float64
	Method Method
	// MaxIterations bounds the convergence check; zero means the default.
	MaxIterations int
}

// Fitter drives a minimizer over the model's parameter space. Whatever the
// outcome, the best-found parameters are committed back into the model.
type Fitter struct {
	model  *phonon.Model
	status Status

	// OnProgress, when set, observes every objective evaluation.
	OnProgress func(Progress)
}

// New wraps a configured model.
func New(m *phonon.Model) *Fitter {
	return &Fitter{model: m, status: StatusUnfitted}
}

// Status reports the fitter lifecycle state.
func (f *Fitter) Status() Status { return f.status }

// Fit minimizes the mean squared deviation between the model's sorted
// frequencies and the target dispersion at the given k-points. The target
// rows must carry all 3N frequencies, degenerate and zero modes included.
// Convergence failure is not an error: the report carries the minimizer's
// message and the model keeps the best-found parameters either way.
func (f *Fitter) Fit(target [][]float64, kpts []crystal.Vec3, coords phonon.KCoords, opts Options) (*Report, error) {
	nbnd := f.model.Crystal().Bands()
	if len(target) != len(kpts) || len(target) == 0 {
		return nil, fmt.Errorf("%w: %d target rows for %d k-points", ErrBadTarget, len(target), len(kpts))
	}
	for q := range target {
		if len(target[q]) != nbnd {
			return nil, fmt.Errorf("%w: row %d has %d frequencies, want %d", ErrBadTarget, q, len(target[q]), nbnd)
		}
	}
	if len(opts.Init) != opts.Space.Dim() {
		return nil, fmt.Errorf("%w: %d values for %s space", ErrBadInit, len(opts.Init), opts.Space.Names())
	}
	if opts.Space.longRange() && !f.model.LongRangeEnabled() {
		return nil, fmt.Errorf("%w: long-range space without configured charges", ErrBadInit)
	}

	src := make([][]float64, len(target))
	for q := range target {
		src[q] = append([]float64(nil), target[q]...)
		sort.Float64s(src[q])
	}

	if err := f.model.SetKPoints(kpts, coords); err != nil {
		return nil, err
	}

	f.status = StatusFitting
	evals := 0
	objective := func(x []float64) float64 {
		pv := ParamVector{Space: opts.Space, Raw: x}
		if err := pv.apply(f.model); err != nil {
			return math.Inf(1)
		}
		disp, err := f.model.Dispersion()
		if err != nil {
			return math.Inf(1)
		}
		sum := 0.0
		for q := range src {
			for b := range src[q] {
				d := disp.Freq[q][b] - src[q][b]
				sum += d * d
			}
		}
		mse := sum / float64(len(src))

		evals++
		if f.OnProgress != nil {
			f.OnProgress(Progress{Eval: evals, Objective: mse, Params: pv.Physical()})
		}
		return mse
	}

	maxIter := opts.MaxIterations
	if maxIter <= 0 {
		maxIter = 200
	}
	settings := &optimize.Settings{
		Converger: &optimize.FunctionConverge{Absolute: 1e-10, Iterations: maxIter},
	}
	problem := optimize.Problem{
		Func: objective,
		Grad: func(grad, x []float64) {
			fd.Gradient(grad, objective, x, nil)
		},
	}

	result, err := optimize.Minimize(problem, append([]float64(nil), opts.Init...), settings, opts.Method.toGonum())

	best := opts.Init
	message := "minimizer returned no result"
	converged := false
	if result != nil {
		best = result.X
		message = result.Status.String()
		converged = err == nil
	}
	if err != nil {
		message = err.Error()
	}

	// Re-commit the best parameters so the model's live state reflects the
	// fit, converged or not.
	final := ParamVector{Space: opts.Space, Raw: best}
	if applyErr := final.apply(f.model); applyErr != nil {
		f.status = StatusFailed
		return nil, applyErr
	}
	disp, dispErr := f.model.Dispersion()
	if dispErr != nil {
		f.status = StatusFailed
		return nil, dispErr
	}

	if converged {
		f.status = StatusFitted
	} else {
		f.status = StatusFailed
	}

	return f.buildReport(opts, final, src, disp, converged, message, evals), nil
}
