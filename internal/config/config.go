package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/phonsim/internal/crystal"
	"github.com/san-kum/phonsim/internal/fit"
	"github.com/san-kum/phonsim/internal/forceconst"
	"github.com/san-kum/phonsim/internal/phonon"
)

const (
	DefaultNMax     = 20
	DefaultSamples  = 30
	DefaultDOSSteps = 251
)

type Config struct {
	Crystal        CrystalConfig  `yaml:"crystal"`
	Neighbors      NeighborConfig `yaml:"neighbors"`
	ForceConstants FCConfig       `yaml:"force_constants"`
	Ewald          *EwaldConfig   `yaml:"ewald,omitempty"`
	KPath          KPathConfig    `yaml:"kpath"`
	Fit            FitConfig      `yaml:"fit"`
	DOS            DOSConfig      `yaml:"dos"`
}

type CrystalConfig struct {
	// Preset selects a built-in structure; the explicit fields below
	// override it when set.
	Preset  string      `yaml:"preset,omitempty"`
	Lattice [][]float64 `yaml:"lattice,omitempty"`
	Basis   [][]float64 `yaml:"basis,omitempty"`
	Mass    []float64   `yaml:"mass,omitempty"`
	Symbols []string    `yaml:"symbols,omitempty"`
}

type NeighborConfig struct {
	Scope        [3]int  `yaml:"scope"`
	NMax         int     `yaml:"nmax"`
	SecondCutoff float64 `yaml:"second_cutoff,omitempty"`
}

type FCConfig struct {
	Mode       string             `yaml:"mode"` // bulk, two_shell, table
	Alpha      float64            `yaml:"alpha,omitempty"`
	Beta       float64            `yaml:"beta,omitempty"`
	Alpha2     float64            `yaml:"alpha2,omitempty"`
	Beta2      float64            `yaml:"beta2,omitempty"`
	AlphaTable map[string]float64 `yaml:"alpha_table,omitempty"`
	BetaTable  map[string]float64 `yaml:"beta_table,omitempty"`
}

type EwaldConfig struct {
	Charge []float64 `yaml:"charge"`
	Eps    float64   `yaml:"eps"`
	RGrid  [3]int    `yaml:"rgrid"`
	KGrid  [3]int    `yaml:"kgrid"`
}

type KPathConfig struct {
	// Coords is "crystal" or "cart".
	Coords string      `yaml:"coords"`
	Points [][]float64 `yaml:"points"`
	// Samples interpolates this many k-points along each path segment.
	Samples int `yaml:"samples"`
}

type FitConfig struct {
	Method        string    `yaml:"method"`
	Space         string    `yaml:"space"` // bulk, bulk_ewald, two_shell, two_shell_ewald
	Init          []float64 `yaml:"init"`
	MaxIterations int       `yaml:"max_iterations"`
}

type DOSConfig struct {
	NStep int    `yaml:"nstep"`
	Grid  [3]int `yaml:"grid"`
}

func DefaultConfig() *Config {
	return &Config{
		Crystal:   CrystalConfig{Preset: "si"},
		Neighbors: NeighborConfig{Scope: [3]int{1, 1, 1}, NMax: DefaultNMax},
		ForceConstants: FCConfig{
			Mode:  "bulk",
			Alpha: 45.0,
			Beta:  4.5,
		},
		KPath: KPathConfig{
			Coords:  "crystal",
			Points:  [][]float64{{0, 0, 0}, {0.5, 0, 0.5}},
			Samples: DefaultSamples,
		},
		Fit: FitConfig{
			Method: string(fit.MethodNelderMead),
			Space:  "bulk",
			Init:   []float64{80, 10},
		},
		DOS: DOSConfig{NStep: DefaultDOSSteps, Grid: [3]int{4, 4, 4}},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// BuildCrystal resolves the preset or the explicit geometry fields.
func (c *Config) BuildCrystal() (*crystal.Crystal, error) {
	cc := c.Crystal
	if len(cc.Lattice) == 0 {
		name := cc.Preset
		if name == "" {
			name = "si"
		}
		p := GetPreset(name)
		if p == nil {
			return nil, fmt.Errorf("unknown crystal preset %q", name)
		}
		cc = *p
	}

	if len(cc.Lattice) != 3 {
		return nil, fmt.Errorf("lattice needs 3 vectors, got %d", len(cc.Lattice))
	}
	var lat [3]crystal.Vec3
	for i, row := range cc.Lattice {
		if len(row) != 3 {
			return nil, fmt.Errorf("lattice vector %d has %d components", i, len(row))
		}
		lat[i] = crystal.Vec3{row[0], row[1], row[2]}
	}
	basis := make([]crystal.Vec3, len(cc.Basis))
	for i, row := range cc.Basis {
		if len(row) != 3 {
			return nil, fmt.Errorf("basis position %d has %d components", i, len(row))
		}
		basis[i] = crystal.Vec3{row[0], row[1], row[2]}
	}
	return crystal.New(lat, basis, cc.Mass, cc.Symbols)
}

// ShellOptions maps the neighbor block onto search options.
func (c *Config) ShellOptions() crystal.ShellOptions {
	opts := crystal.ShellOptions{
		Scope:        c.Neighbors.Scope,
		NMax:         c.Neighbors.NMax,
		SecondCutoff: c.Neighbors.SecondCutoff,
	}
	if opts.NMax == 0 {
		opts.NMax = DefaultNMax
	}
	if opts.Scope == ([3]int{}) {
		opts.Scope = [3]int{1, 1, 1}
	}
	return opts
}

// ApplyForceConstants runs the configured force-constant mode on the model.
func (c *Config) ApplyForceConstants(m *phonon.Model) error {
	fc := c.ForceConstants
	switch fc.Mode {
	case "", "bulk":
		return m.SetBulkFC(fc.Alpha, fc.Beta)
	case "two_shell":
		return m.SetTwoShellFC(fc.Alpha, fc.Beta, fc.Alpha2, fc.Beta2)
	case "table":
		return m.SetTableFC(forceconst.Table{Alpha: fc.AlphaTable, Beta: fc.BetaTable})
	default:
		return fmt.Errorf("unknown force-constant mode %q", fc.Mode)
	}
}

// ApplyEwald configures the long-range term when the block is present.
func (c *Config) ApplyEwald(m *phonon.Model) error {
	if c.Ewald == nil {
		return nil
	}
	e := c.Ewald
	rg, kg := e.RGrid, e.KGrid
	if rg == ([3]int{}) {
		rg = [3]int{3, 3, 3}
	}
	if kg == ([3]int{}) {
		kg = [3]int{3, 3, 3}
	}
	return m.ConfigureLongRange(e.Charge, e.Eps, rg, kg)
}

// KPoints expands the configured path nodes into an interpolated k-point
// list.
func (c *Config) KPoints() ([]crystal.Vec3, phonon.KCoords, error) {
	kp := c.KPath
	if len(kp.Points) == 0 {
		return nil, 0, fmt.Errorf("kpath has no points")
	}
	coords := phonon.KCrystal
	if kp.Coords == "cart" || kp.Coords == "cartesian" {
		coords = phonon.KCartesian
	}

	nodes := make([]crystal.Vec3, len(kp.Points))
	for i, row := range kp.Points {
		if len(row) != 3 {
			return nil, 0, fmt.Errorf("kpath point %d has %d components", i, len(row))
		}
		nodes[i] = crystal.Vec3{row[0], row[1], row[2]}
	}
	if len(nodes) == 1 {
		return nodes, coords, nil
	}

	samples := kp.Samples
	if samples <= 0 {
		samples = DefaultSamples
	}
	var pts []crystal.Vec3
	for seg := 0; seg+1 < len(nodes); seg++ {
		a, b := nodes[seg], nodes[seg+1]
		for s := 0; s < samples; s++ {
			t := float64(s) / float64(samples)
			pts = append(pts, a.Add(b.Sub(a).Scale(t)))
		}
	}
	pts = append(pts, nodes[len(nodes)-1])
	return pts, coords, nil
}

// FitOptions maps the fit block onto fitter options.
func (c *Config) FitOptions() (fit.Options, error) {
	var space fit.Space
	switch c.Fit.Space {
	case "", "bulk":
		space = fit.Bulk
	case "bulk_ewald":
		space = fit.BulkLongRange
	case "two_shell":
		space = fit.TwoShell
	case "two_shell_ewald":
		space = fit.TwoShellLongRange
	default:
		return fit.Options{}, fmt.Errorf("unknown fit space %q", c.Fit.Space)
	}
	return fit.Options{
		Space:         space,
		Init:          c.Fit.Init,
		Method:        fit.Method(c.Fit.Method),
		MaxIterations: c.Fit.MaxIterations,
	}, nil
}
