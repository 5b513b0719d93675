package crystal

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrInvalidGeometry indicates mismatched basis/mass/symbol lengths or a
	// degenerate lattice.
	ErrInvalidGeometry = errors.New("crystal: invalid geometry")
)

// BCSymbol labels a virtual bond-charge site in the basis.
const BCSymbol = "BC"

// Vec3 is a Cartesian position in units of the lattice constant.
type Vec3 [3]float64

func (v Vec3) Sub(w Vec3) Vec3 {
	return Vec3{v[0] - w[0], v[1] - w[1], v[2] - w[2]}
}

func (v Vec3) Add(w Vec3) Vec3 {
	return Vec3{v[0] + w[0], v[1] + w[1], v[2] + w[2]}
}

func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{s * v[0], s * v[1], s * v[2]}
}

func (v Vec3) Dot(w Vec3) float64 {
	return v[0]*w[0] + v[1]*w[1] + v[2]*w[2]
}

func (v Vec3) Cross(w Vec3) Vec3 {
	return Vec3{
		v[1]*w[2] - v[2]*w[1],
		v[2]*w[0] - v[0]*w[2],
		v[0]*w[1] - v[1]*w[0],
	}
}

func (v Vec3) Norm() float64 {
	return math.Sqrt(v.Dot(v))
}

// Crystal is an immutable crystal structure: lattice vectors in units of the
// lattice constant, basis positions, per-atom masses in atomic mass units and
// chemical symbols. Virtual bond-charge sites carry the symbol "BC".
type Crystal struct {
	Lattice    [3]Vec3
	Basis      []Vec3
	Mass       []float64
	Symbol     []string
	Reciprocal [3]Vec3
	Volume     float64
}

// New validates the geometry and derives the reciprocal lattice (the matrix
// inverse of the lattice rows) and the unit-cell volume.
func New(lattice [3]Vec3, basis []Vec3, mass []float64, symbol []string) (*Crystal, error) {
	if len(basis) != len(mass) || len(basis) != len(symbol) {
		return nil, fmt.Errorf("%w: basis=%d mass=%d symbol=%d", ErrInvalidGeometry,
			len(basis), len(mass), len(symbol))
	}
	if len(basis) == 0 {
		return nil, fmt.Errorf("%w: empty basis", ErrInvalidGeometry)
	}

	vol := math.Abs(lattice[0].Cross(lattice[1]).Dot(lattice[2]))
	if vol < 1e-12 {
		return nil, fmt.Errorf("%w: lattice vectors are linearly dependent", ErrInvalidGeometry)
	}

	lv := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			lv.Set(i, j, lattice[i][j])
		}
	}
	var inv mat.Dense
	if err := inv.Inverse(lv); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
	}

	var bvec [3]Vec3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			bvec[i][j] = inv.At(i, j)
		}
	}

	c := &Crystal{
		Lattice:    lattice,
		Basis:      append([]Vec3(nil), basis...),
		Mass:       append([]float64(nil), mass...),
		Symbol:     append([]string(nil), symbol...),
		Reciprocal: bvec,
		Volume:     vol,
	}
	return c, nil
}

// N returns the number of basis atoms, bond-charge sites included.
func (c *Crystal) N() int { return len(c.Basis) }

// Bands returns the number of phonon branches, 3 per basis site.
func (c *Crystal) Bands() int { return 3 * len(c.Basis) }

// IsBC reports whether basis site i is a virtual bond charge.
func (c *Crystal) IsBC(i int) bool { return c.Symbol[i] == BCSymbol }

// KCrysToCart converts a k-point from crystal (fractional reciprocal)
// coordinates to Cartesian coordinates in units of 2*pi over the lattice
// constant.
func (c *Crystal) KCrysToCart(k Vec3) Vec3 {
	var out Vec3
	for a := 0; a < 3; a++ {
		for b := 0; b < 3; b++ {
			out[a] += c.Reciprocal[a][b] * k[b]
		}
	}
	return out
}

// KCartToCrys is the inverse conversion, back to fractional reciprocal
// coordinates.
func (c *Crystal) KCartToCrys(k Vec3) Vec3 {
	var out Vec3
	for a := 0; a < 3; a++ {
		for b := 0; b < 3; b++ {
			out[a] += c.Lattice[a][b] * k[b]
		}
	}
	return out
}
