package config

// Presets are built-in crystal structures. Lattice and basis positions
// are in units of the conventional lattice constant; masses in amu.
// Bond-charge sites carry a small placeholder mass so the adiabatic
// branches stay high and flat.
var Presets = map[string]*CrystalConfig{
	"sc": {
		Lattice: [][]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
		Basis:   [][]float64{{0, 0, 0}},
		Mass:    []float64{28.0855},
		Symbols: []string{"Si"},
	},
	"si": {
		Lattice: [][]float64{{0, 0.5, 0.5}, {0.5, 0, 0.5}, {0.5, 0.5, 0}},
		Basis:   [][]float64{{0, 0, 0}, {0.25, 0.25, 0.25}},
		Mass:    []float64{28.0855, 28.0855},
		Symbols: []string{"Si", "Si"},
	},
	"ge": {
		Lattice: [][]float64{{0, 0.5, 0.5}, {0.5, 0, 0.5}, {0.5, 0.5, 0}},
		Basis:   [][]float64{{0, 0, 0}, {0.25, 0.25, 0.25}},
		Mass:    []float64{72.63, 72.63},
		Symbols: []string{"Ge", "Ge"},
	},
	"gaas": {
		Lattice: [][]float64{{0, 0.5, 0.5}, {0.5, 0, 0.5}, {0.5, 0.5, 0}},
		Basis:   [][]float64{{0, 0, 0}, {0.25, 0.25, 0.25}},
		Mass:    []float64{69.723, 74.9216},
		Symbols: []string{"Ga", "As"},
	},
	// Diamond structure with bond charges at the four bond midpoints
	// around the origin ion.
	"si-bc": {
		Lattice: [][]float64{{0, 0.5, 0.5}, {0.5, 0, 0.5}, {0.5, 0.5, 0}},
		Basis: [][]float64{
			{0, 0, 0},
			{0.25, 0.25, 0.25},
			{0.125, 0.125, 0.125},
			{0.375, 0.375, 0.125},
			{0.375, 0.125, 0.375},
			{0.125, 0.375, 0.375},
		},
		Mass:    []float64{28.0855, 28.0855, 1.0, 1.0, 1.0, 1.0},
		Symbols: []string{"Si", "Si", "BC", "BC", "BC", "BC"},
	},
	// Linear chain of ions with one bond charge between them, useful
	// for quick parameter experiments.
	"chain-bc": {
		Lattice: [][]float64{{1, 0, 0}, {0, 10, 0}, {0, 0, 10}},
		Basis:   [][]float64{{0, 0, 0}, {0.5, 0, 0}},
		Mass:    []float64{28.0855, 1.0},
		Symbols: []string{"Si", "BC"},
	},
}

// GetPreset returns the named preset, or nil when unknown.
func GetPreset(name string) *CrystalConfig {
	return Presets[name]
}

// PresetNames lists the available preset names.
func PresetNames() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	return names
}
