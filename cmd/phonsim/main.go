package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/san-kum/phonsim/internal/config"
	"github.com/san-kum/phonsim/internal/crystal"
	"github.com/san-kum/phonsim/internal/fit"
	"github.com/san-kum/phonsim/internal/phonon"
	"github.com/san-kum/phonsim/internal/storage"
	"github.com/san-kum/phonsim/internal/tui"
	"github.com/san-kum/phonsim/internal/viz"
)

var (
	dataDir    string
	configFile string
	preset     string
	alpha      float64
	beta       float64
	alpha2     float64
	beta2      float64
	twoShell   bool
	secondCut  float64
	nmax       int
	// Fit flags
	targetFile string
	fitSpace   string
	fitMethod  string
	fitInit    []float64
	maxIter    int
	live       bool
	// DOS flags
	dosSteps int
	dosGrid  []int
	// Output control
	noSave bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "phonsim",
		Short: "adiabatic bond-charge phonon calculator",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".phonsim", "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "crystal preset (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&noSave, "no-save", false, "skip writing a run directory")

	dispCmd := &cobra.Command{
		Use:   "disp",
		Short: "compute phonon dispersion along the configured k-path",
		RunE:  runDispersion,
	}
	dispCmd.Flags().Float64Var(&alpha, "alpha", 0, "stretching constant (overrides config)")
	dispCmd.Flags().Float64Var(&beta, "beta", 0, "bending constant (overrides config)")
	dispCmd.Flags().Float64Var(&alpha2, "alpha2", 0, "second-shell stretching constant")
	dispCmd.Flags().Float64Var(&beta2, "beta2", 0, "second-shell bending constant")
	dispCmd.Flags().BoolVar(&twoShell, "two-shell", false, "use two-shell force constants")
	dispCmd.Flags().Float64Var(&secondCut, "second-cutoff", 0, "second-shell distance cutoff")
	dispCmd.Flags().IntVar(&nmax, "nmax", 0, "neighbor candidate cap")

	fitCmd := &cobra.Command{
		Use:   "fit [target.csv]",
		Short: "fit force constants to target frequencies",
		Args:  cobra.ExactArgs(1),
		RunE:  runFit,
	}
	fitCmd.Flags().StringVar(&fitSpace, "space", "", "parameter space: bulk, bulk_ewald, two_shell, two_shell_ewald")
	fitCmd.Flags().StringVar(&fitMethod, "method", "", "minimizer: nelder-mead, bfgs, lbfgs, cmaes")
	fitCmd.Flags().Float64SliceVar(&fitInit, "init", nil, "initial parameter guess")
	fitCmd.Flags().IntVar(&maxIter, "max-iter", 0, "convergence iteration bound")
	fitCmd.Flags().BoolVar(&live, "live", false, "show live fit progress")
	fitCmd.Flags().Float64Var(&secondCut, "second-cutoff", 0, "second-shell distance cutoff")

	dosCmd := &cobra.Command{
		Use:   "dos",
		Short: "compute phonon density of states",
		RunE:  runDOS,
	}
	dosCmd.Flags().IntVar(&dosSteps, "steps", 0, "frequency bins")
	dosCmd.Flags().IntSliceVar(&dosGrid, "grid", nil, "k-mesh divisions, e.g. 8,8,8")
	dosCmd.Flags().Float64Var(&alpha, "alpha", 0, "stretching constant (overrides config)")
	dosCmd.Flags().Float64Var(&beta, "beta", 0, "bending constant (overrides config)")

	neighborsCmd := &cobra.Command{
		Use:   "neighbors",
		Short: "print every atom's neighbor shells",
		RunE:  runNeighbors,
	}
	neighborsCmd.Flags().Float64Var(&secondCut, "second-cutoff", 0, "second-shell distance cutoff")
	neighborsCmd.Flags().IntVar(&nmax, "nmax", 0, "neighbor candidate cap")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in crystals",
		RunE:  listPresets,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	rootCmd.AddCommand(dispCmd, fitCmd, dosCmd, neighborsCmd, presetsCmd, listCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig merges the config file with command-line overrides.
func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if preset != "" {
		cfg.Crystal = config.CrystalConfig{Preset: preset}
	}
	if nmax > 0 {
		cfg.Neighbors.NMax = nmax
	}
	if secondCut > 0 {
		cfg.Neighbors.SecondCutoff = secondCut
	}
	if alpha != 0 {
		cfg.ForceConstants.Alpha = alpha
	}
	if beta != 0 {
		cfg.ForceConstants.Beta = beta
	}
	if twoShell {
		cfg.ForceConstants.Mode = "two_shell"
		cfg.ForceConstants.Alpha2 = alpha2
		cfg.ForceConstants.Beta2 = beta2
	}
	return cfg, nil
}

// buildModel runs the common front half of every command: crystal,
// neighbor shells, force constants, optional Ewald term.
func buildModel(cfg *config.Config) (*phonon.Model, string, error) {
	crys, err := cfg.BuildCrystal()
	if err != nil {
		return nil, "", err
	}
	name := cfg.Crystal.Preset
	if name == "" {
		name = "custom"
	}

	model, err := phonon.New(crys)
	if err != nil {
		return nil, "", err
	}
	if err := model.SetNeighborOptions(cfg.ShellOptions()); err != nil {
		return nil, "", err
	}
	if err := cfg.ApplyForceConstants(model); err != nil {
		return nil, "", err
	}
	if err := cfg.ApplyEwald(model); err != nil {
		return nil, "", err
	}
	return model, name, nil
}

func runDispersion(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	model, name, err := buildModel(cfg)
	if err != nil {
		return err
	}

	kpts, coords, err := cfg.KPoints()
	if err != nil {
		return err
	}
	if err := model.SetKPoints(kpts, coords); err != nil {
		return err
	}

	disp, err := model.Dispersion()
	if err != nil {
		return err
	}

	fmt.Println(viz.Dispersion(name+" dispersion", disp.Freq))

	if !noSave {
		store := storage.New(dataDir)
		if err := store.Init(); err != nil {
			return err
		}
		runID, err := store.SaveDispersion(name, kpts, disp)
		if err != nil {
			return err
		}
		fmt.Println("saved:", runID)
	}
	return nil
}

func runFit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if fitSpace != "" {
		cfg.Fit.Space = fitSpace
	}
	if fitMethod != "" {
		cfg.Fit.Method = fitMethod
	}
	if len(fitInit) > 0 {
		cfg.Fit.Init = fitInit
	}
	if maxIter > 0 {
		cfg.Fit.MaxIterations = maxIter
	}

	model, name, err := buildModel(cfg)
	if err != nil {
		return err
	}

	kpts, target, err := storage.ReadFrequencies(args[0])
	if err != nil {
		return err
	}
	_, coords, err := cfg.KPoints()
	if err != nil {
		return err
	}

	opts, err := cfg.FitOptions()
	if err != nil {
		return err
	}

	fitter := fit.New(model)

	var report *fit.Report
	if live {
		report, err = runFitLive(fitter, target, kpts, coords, opts)
	} else {
		report, err = fitter.Fit(target, kpts, coords, opts)
	}
	if err != nil {
		return err
	}

	fmt.Println(viz.FitSummary(report.Converged, report.Evaluations, report.ParamNames, report.Params))
	fmt.Println(viz.Dispersion(name+" fitted dispersion", report.Fitted))

	if !noSave {
		store := storage.New(dataDir)
		if err := store.Init(); err != nil {
			return err
		}
		runID, err := store.SaveFit(name, kpts, report)
		if err != nil {
			return err
		}
		fmt.Println("saved:", runID)
	}
	return nil
}

// runFitLive drives the fit on a goroutine and streams progress into
// the terminal view.
func runFitLive(fitter *fit.Fitter, target [][]float64, kpts []crystal.Vec3, coords phonon.KCoords, opts fit.Options) (*fit.Report, error) {
	updates := make(chan fit.Progress, 64)
	done := make(chan tui.DoneMsg, 1)

	fitter.OnProgress = func(p fit.Progress) {
		select {
		case updates <- p:
		default:
		}
	}

	go func() {
		report, err := fitter.Fit(target, kpts, coords, opts)
		close(updates)
		done <- tui.DoneMsg{Report: report, Err: err}
	}()

	view := tui.NewFitView(opts.Space.Names(), updates, done)
	if _, err := tea.NewProgram(view).Run(); err != nil {
		return nil, err
	}
	return view.Report()
}

func runDOS(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if dosSteps > 0 {
		cfg.DOS.NStep = dosSteps
	}
	if len(dosGrid) == 3 {
		cfg.DOS.Grid = [3]int{dosGrid[0], dosGrid[1], dosGrid[2]}
	}

	model, name, err := buildModel(cfg)
	if err != nil {
		return err
	}

	curve, err := model.DOS(cfg.DOS.NStep, cfg.DOS.Grid)
	if err != nil {
		return err
	}

	fmt.Println(viz.DOS(name+" density of states", &curve))
	return nil
}

func runNeighbors(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	model, name, err := buildModel(cfg)
	if err != nil {
		return err
	}

	fmt.Printf("neighbor shells for %s\n\n", name)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, atom := range model.NeighborReport() {
		fmt.Fprintf(w, "atom %d (%s) at (%.4f, %.4f, %.4f)", atom.Index, atom.Symbol,
			atom.Pos[0], atom.Pos[1], atom.Pos[2])
		if atom.Truncated {
			fmt.Fprintf(w, "\t[shell may be truncated, raise nmax or scope]")
		}
		fmt.Fprintln(w)
		for _, nb := range atom.Neighbors {
			fmt.Fprintf(w, "\tshell %d\t%s (basis %d)\td=%.6f\t(%.4f, %.4f, %.4f)\n",
				nb.Shell, nb.Symbol, nb.Basis, nb.Dist, nb.Pos[0], nb.Pos[1], nb.Pos[2])
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "name\tatoms\tsymbols")
	for _, name := range config.PresetNames() {
		p := config.GetPreset(name)
		fmt.Fprintf(w, "%s\t%d\t%v\n", name, len(p.Basis), p.Symbols)
	}
	return w.Flush()
}

func listRuns(cmd *cobra.Command, args []string) error {
	store := storage.New(dataDir)
	runs, err := store.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs stored")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "id\tkind\tcrystal\tatoms\tk-points\ttimestamp")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
			run.ID, run.Kind, run.Crystal, run.NAtoms, run.NKPoints,
			run.Timestamp.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}
