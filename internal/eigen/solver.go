// Package eigen diagonalizes the complex Hermitian dynamical matrices and
// converts their eigenvalues to phonon frequencies.
package eigen

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/phonsim/internal/dynmat"
)

// ErrFactorization indicates the symmetric eigendecomposition did not
// converge.
var ErrFactorization = errors.New("eigen: factorization failed")

// Solution holds the spectrum at one k-point: frequencies in THz, ascending,
// and the matching complex eigenvectors (one per frequency, dynmat ordering).
type Solution struct {
	Freq []float64
	Vec  [][]complex128
}

// Solve diagonalizes every matrix, fanning k-points out across goroutines.
func Solve(ms []dynmat.Matrix) ([]Solution, error) {
	out := make([]Solution, len(ms))
	errs := make([]error, len(ms))

	var wg sync.WaitGroup
	for q := range ms {
		wg.Add(1)
		go func(q int) {
			defer wg.Done()
			out[q], errs[q] = solveOne(ms[q])
		}(q)
	}
	wg.Wait()

	for q, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("k-point %d: %w", q, err)
		}
	}
	return out, nil
}

// solveOne embeds the d x d Hermitian matrix H = A + iB into the 2d x 2d real
// symmetric matrix [[A, -B], [B, A]], whose spectrum is that of H with every
// eigenvalue doubled. Taking every second eigenpair of the ascending result
// recovers the complex spectrum; a kept real eigenvector (x; y) maps back to
// the complex eigenvector x + iy.
func solveOne(m dynmat.Matrix) (Solution, error) {
	d := m.Dim
	data := make([]float64, 4*d*d)
	for r := 0; r < d; r++ {
		for c := 0; c < d; c++ {
			re := real(m.At(r, c))
			im := imag(m.At(r, c))
			data[r*2*d+c] = re
			data[r*2*d+c+d] = -im
			data[(r+d)*2*d+c] = im
			data[(r+d)*2*d+c+d] = re
		}
	}

	var es mat.EigenSym
	if ok := es.Factorize(mat.NewSymDense(2*d, data), true); !ok {
		return Solution{}, ErrFactorization
	}
	vals := es.Values(nil)
	var vecs mat.Dense
	es.VectorsTo(&vecs)

	sol := Solution{
		Freq: make([]float64, d),
		Vec:  make([][]complex128, d),
	}
	for i := 0; i < d; i++ {
		lambda := vals[2*i]
		sol.Freq[i] = math.Copysign(math.Sqrt(math.Abs(lambda)), lambda)

		v := make([]complex128, d)
		norm := 0.0
		for j := 0; j < d; j++ {
			v[j] = complex(vecs.At(j, 2*i), vecs.At(j+d, 2*i))
			norm += real(v[j])*real(v[j]) + imag(v[j])*imag(v[j])
		}
		norm = math.Sqrt(norm)
		if norm > 0 {
			for j := range v {
				v[j] /= complex(norm, 0)
			}
		}
		sol.Vec[i] = v
	}
	return sol, nil
}
