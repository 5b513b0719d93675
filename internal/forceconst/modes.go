package forceconst

import (
	"fmt"

	"github.com/san-kum/phonsim/internal/crystal"
)

// Set is the full force-constant state of a crystal: one tensor per bond,
// grouped by basis atom in shell order.
type Set [][]Tensor

// Bulk builds tensors for every basis atom from a single stretching and a
// single bending coefficient replicated across all neighbors.
func Bulk(c *crystal.Crystal, shells *crystal.ShellSet, alpha, beta float64) (Set, error) {
	fc := make(Set, c.N())
	for i := range c.Basis {
		sh := shells.Atoms[i]
		n := len(sh.Neighbors)
		a := make([]float64, n)
		b := make([][]float64, n)
		for j := range a {
			a[j] = alpha
			b[j] = make([]float64, n)
			for k := range b[j] {
				b[j][k] = beta
			}
		}
		t, err := Build(a, b, c.Basis[i], sh, c.IsBC(i))
		if err != nil {
			return nil, err
		}
		fc[i] = t
	}
	return fc, nil
}

// TwoShell builds first- and second-shell tensor stacks independently from
// their own (alpha, beta) pairs and concatenates them per atom. The shells
// must have been searched with a second-shell cutoff.
func TwoShell(c *crystal.Crystal, shells *crystal.ShellSet, alpha1, beta1, alpha2, beta2 float64) (Set, error) {
	fc := make(Set, c.N())
	for i := range c.Basis {
		sh := shells.Atoms[i]
		n1 := sh.FirstCount
		n2 := sh.Second()
		if n2 == 0 {
			return nil, fmt.Errorf("%w: atom %d has no second shell", ErrBadShape, i)
		}

		first := crystal.Shell{Neighbors: sh.Neighbors[:n1], FirstCount: n1}
		t1, err := Build(uniform(alpha1, n1), uniformMatrix(beta1, n1), c.Basis[i], first, c.IsBC(i))
		if err != nil {
			return nil, err
		}

		second := crystal.Shell{Neighbors: sh.Neighbors[n1:], FirstCount: n2}
		t2, err := Build(uniform(alpha2, n2), uniformMatrix(beta2, n2), c.Basis[i], second, c.IsBC(i))
		if err != nil {
			return nil, err
		}

		fc[i] = append(t1, t2...)
	}
	return fc, nil
}

// PairKey identifies a bond type: the two element symbols plus the shell the
// bond belongs to (1 or 2).
type PairKey struct {
	A, B  string
	Shell int
}

// String renders the canonical table key, e.g. "Ga-As" or "Ga-Ga2".
func (k PairKey) String() string {
	s := k.A + "-" + k.B
	if k.Shell == 2 {
		s += "2"
	}
	return s
}

// reversed swaps the two symbols.
func (k PairKey) reversed() PairKey {
	return PairKey{A: k.B, B: k.A, Shell: k.Shell}
}

// Table supplies per-bond-type coefficients keyed by "A-B" symbol pairs, with
// a trailing "2" marking second-shell entries. Either symbol order matches.
type Table struct {
	Alpha map[string]float64
	Beta  map[string]float64
}

// lookup tries both orderings of the key and fails naming the canonical one.
func lookup(m map[string]float64, key PairKey) (float64, error) {
	if v, ok := m[key.String()]; ok {
		return v, nil
	}
	if v, ok := m[key.reversed().String()]; ok {
		return v, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrMissingInteraction, key)
}

// FromTable builds tensors for a heterogeneous crystal by resolving every
// bond's coefficients through the table: alpha straight from the pair key,
// beta as the average of the two neighbors' symmetric entries. Pairs that
// straddle shells contribute no bending. The resulting set is interface
// symmetrized so reciprocal bonds agree.
func FromTable(c *crystal.Crystal, shells *crystal.ShellSet, table Table) (Set, error) {
	fc := make(Set, c.N())
	for i := range c.Basis {
		sh := shells.Atoms[i]
		n := len(sh.Neighbors)
		a := make([]float64, n)
		b := make([][]float64, n)

		for j := 0; j < n; j++ {
			kj := PairKey{A: c.Symbol[i], B: sh.Neighbors[j].Symbol, Shell: shellOf(sh, j)}
			av, err := lookup(table.Alpha, kj)
			if err != nil {
				return nil, err
			}
			a[j] = av

			b[j] = make([]float64, n)
			bj, err := lookup(table.Beta, kj)
			if err != nil {
				return nil, err
			}
			for k := 0; k < n; k++ {
				if k == j || shellOf(sh, k) != kj.Shell {
					continue
				}
				kk := PairKey{A: c.Symbol[i], B: sh.Neighbors[k].Symbol, Shell: kj.Shell}
				bk, err := lookup(table.Beta, kk)
				if err != nil {
					return nil, err
				}
				b[j][k] = 0.5 * (bj + bk)
			}
		}

		t, err := Build(a, b, c.Basis[i], sh, c.IsBC(i))
		if err != nil {
			return nil, err
		}
		fc[i] = t
	}
	SymmetrizeInterfaces(c.Basis, shells, fc)
	return fc, nil
}

func shellOf(sh crystal.Shell, j int) int {
	if j >= sh.FirstCount {
		return 2
	}
	return 1
}

func uniform(v float64, n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = v
	}
	return s
}

func uniformMatrix(v float64, n int) [][]float64 {
	m := make([][]float64, n)
	for i := range m {
		m[i] = uniform(v, n)
	}
	return m
}
