package crystal

import (
	"fmt"
	"sort"
)

// shellTol is the distance tolerance that closes the first neighbor shell, in
// units of the lattice constant.
const shellTol = 1e-4

// ShellOptions controls the periodic-image neighbor search.
type ShellOptions struct {
	// Scope is the number of lattice repeats searched along each axis.
	Scope [3]int
	// NMax caps the number of sorted candidates considered per atom.
	NMax int
	// SecondCutoff, when positive, extends each shell with every candidate up
	// to that distance; everything beyond the first shell is tagged shell 2.
	SecondCutoff float64
}

// DefaultShellOptions searches one repeat in every direction, which is enough
// for first neighbors in common cubic structures.
func DefaultShellOptions() ShellOptions {
	return ShellOptions{Scope: [3]int{1, 1, 1}, NMax: 20}
}

// Neighbor is one bond partner of a basis atom: its Cartesian position, the
// basis index that owns it, its symbol and the bond length.
type Neighbor struct {
	Pos    Vec3
	Basis  int
	Symbol string
	Dist   float64
}

// Shell holds the neighbors of one basis atom. The first FirstCount entries
// are the first shell; the remainder, if any, are second-shell neighbors.
type Shell struct {
	Neighbors  []Neighbor
	FirstCount int
}

// Second returns the number of second-shell neighbors.
func (s Shell) Second() int { return len(s.Neighbors) - s.FirstCount }

// ShellSet is the neighbor shells of every basis atom, in basis order.
type ShellSet struct {
	Atoms []Shell
	// Truncated marks atoms whose candidate list hit NMax with no clear
	// distance gap before the cutoff, meaning the shell may be incomplete.
	Truncated []bool
}

// Shells finds the neighbor shell of every basis atom across periodic images
// within opts.Scope. The first shell is every candidate within 1e-4 of the
// minimum nonzero distance; with SecondCutoff set, all further candidates up
// to the cutoff join as a second shell.
func (c *Crystal) Shells(opts ShellOptions) (*ShellSet, error) {
	if opts.NMax < 2 {
		return nil, fmt.Errorf("%w: nmax must be at least 2", ErrInvalidGeometry)
	}
	images := c.imageSites(opts.Scope)

	set := &ShellSet{
		Atoms:     make([]Shell, c.N()),
		Truncated: make([]bool, c.N()),
	}
	for i := range c.Basis {
		cands := c.sortedCandidates(i, images, opts.NMax)
		if len(cands) == 0 {
			return nil, fmt.Errorf("%w: no neighbor candidates for atom %d", ErrInvalidGeometry, i)
		}

		cut := cands[0].Dist + shellTol
		if opts.SecondCutoff > 0 {
			cut = opts.SecondCutoff
		}

		sh := Shell{}
		for _, cand := range cands {
			if cand.Dist > cut {
				break
			}
			sh.Neighbors = append(sh.Neighbors, cand)
			if cand.Dist <= cands[0].Dist+shellTol {
				sh.FirstCount++
			}
		}

		// No distance gap between the last kept candidate and the end of the
		// nmax window means the search may have been cut short.
		if len(sh.Neighbors) == len(cands) && cands[len(cands)-1].Dist <= cut+shellTol {
			set.Truncated[i] = true
		}
		set.Atoms[i] = sh
	}
	return set, nil
}

// CandidateDistances returns the sorted candidate bond lengths for every
// basis atom up to nmax entries. Use it to verify that scope and cutoff
// capture the shells you expect before trusting a neighbor count.
func (c *Crystal) CandidateDistances(opts ShellOptions) [][]float64 {
	images := c.imageSites(opts.Scope)
	out := make([][]float64, c.N())
	for i := range c.Basis {
		cands := c.sortedCandidates(i, images, opts.NMax)
		d := make([]float64, len(cands))
		for j, cand := range cands {
			d[j] = cand.Dist
		}
		out[i] = d
	}
	return out
}

// imageSites generates every basis atom translated by every lattice vector
// combination within scope.
func (c *Crystal) imageSites(scope [3]int) []Neighbor {
	var sites []Neighbor
	for b, pos := range c.Basis {
		for x := -scope[0]; x <= scope[0]; x++ {
			for y := -scope[1]; y <= scope[1]; y++ {
				for z := -scope[2]; z <= scope[2]; z++ {
					shift := c.Lattice[0].Scale(float64(x)).
						Add(c.Lattice[1].Scale(float64(y))).
						Add(c.Lattice[2].Scale(float64(z)))
					sites = append(sites, Neighbor{
						Pos:    pos.Add(shift),
						Basis:  b,
						Symbol: c.Symbol[b],
					})
				}
			}
		}
	}
	return sites
}

func (c *Crystal) sortedCandidates(i int, images []Neighbor, nmax int) []Neighbor {
	atom := c.Basis[i]
	cands := make([]Neighbor, 0, len(images))
	for _, s := range images {
		d := atom.Sub(s.Pos).Norm()
		if d < shellTol {
			continue // the atom itself
		}
		s.Dist = d
		cands = append(cands, s)
	}
	sort.SliceStable(cands, func(a, b int) bool { return cands[a].Dist < cands[b].Dist })
	if len(cands) > nmax-1 {
		cands = cands[:nmax-1]
	}
	return cands
}
