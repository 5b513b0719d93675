package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/san-kum/phonsim/internal/crystal"
	"github.com/san-kum/phonsim/internal/fit"
	"github.com/san-kum/phonsim/internal/phonon"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"` // disp, fit, dos
	Crystal   string    `json:"crystal"`
	Timestamp time.Time `json:"timestamp"`
	NAtoms    int       `json:"n_atoms"`
	NKPoints  int       `json:"n_kpoints"`
	Params    []float64 `json:"params,omitempty"`
	Converged bool      `json:"converged,omitempty"`
}

// SaveDispersion writes a run directory with metadata.json and a
// frequencies.csv holding one row per k-point.
func (s *Store) SaveDispersion(name string, kpts []crystal.Vec3, disp *phonon.Dispersion) (string, error) {
	runID := fmt.Sprintf("disp_%s_%d", name, time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		Kind:      "disp",
		Crystal:   name,
		Timestamp: time.Now(),
		NAtoms:    len(disp.Freq[0]) / 3,
		NKPoints:  len(kpts),
	}
	if err := writeMetadata(runDir, meta); err != nil {
		return "", err
	}

	if err := WriteFrequencies(filepath.Join(runDir, "frequencies.csv"), kpts, disp.Freq); err != nil {
		return "", err
	}
	return runID, nil
}

// SaveFit writes the fit report and the fitted dispersion next to it.
func (s *Store) SaveFit(name string, kpts []crystal.Vec3, report *fit.Report) (string, error) {
	runID := fmt.Sprintf("fit_%s_%d", name, time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		Kind:      "fit",
		Crystal:   name,
		Timestamp: time.Now(),
		NAtoms:    len(report.Basis),
		NKPoints:  len(kpts),
		Params:    report.Params,
		Converged: report.Converged,
	}
	if err := writeMetadata(runDir, meta); err != nil {
		return "", err
	}

	if err := report.Save(filepath.Join(runDir, "fit_log.txt")); err != nil {
		return "", err
	}
	if err := WriteFrequencies(filepath.Join(runDir, "frequencies.csv"), kpts, report.Fitted); err != nil {
		return "", err
	}
	return runID, nil
}

func writeMetadata(runDir string, meta RunMetadata) error {
	f, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		metaPath := filepath.Join(s.baseDir, entry.Name(), "metadata.json")
		data, err := os.ReadFile(metaPath)
		if err != nil {
			continue
		}

		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}

		runs = append(runs, meta)
	}

	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	metaPath := filepath.Join(s.baseDir, runID, "metadata.json")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// LoadFrequencies reads a run's frequencies.csv back into k-points and
// per-k band rows.
func (s *Store) LoadFrequencies(runID string) ([]crystal.Vec3, [][]float64, error) {
	return ReadFrequencies(filepath.Join(s.baseDir, runID, "frequencies.csv"))
}

// WriteFrequencies writes kx,ky,kz plus one column per band.
func WriteFrequencies(path string, kpts []crystal.Vec3, freq [][]float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if len(freq) == 0 {
		return nil
	}

	header := []string{"kx", "ky", "kz"}
	for b := range freq[0] {
		header = append(header, fmt.Sprintf("w%d", b))
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for i, row := range freq {
		rec := make([]string, 0, 3+len(row))
		for c := 0; c < 3; c++ {
			rec = append(rec, strconv.FormatFloat(kpts[i][c], 'f', 6, 64))
		}
		for _, v := range row {
			rec = append(rec, strconv.FormatFloat(v, 'f', 6, 64))
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	return nil
}

// ReadFrequencies parses a frequencies CSV into k-points and band rows.
// Used both for stored runs and for fit targets supplied by the user.
func ReadFrequencies(path string) ([]crystal.Vec3, [][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) < 2 {
		return nil, nil, fmt.Errorf("%s: no frequency rows", path)
	}

	kpts := make([]crystal.Vec3, 0, len(records)-1)
	freq := make([][]float64, 0, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) < 4 {
			return nil, nil, fmt.Errorf("%s: row needs kx,ky,kz plus bands, got %d fields", path, len(rec))
		}
		var k crystal.Vec3
		for c := 0; c < 3; c++ {
			v, err := strconv.ParseFloat(rec[c], 64)
			if err != nil {
				return nil, nil, err
			}
			k[c] = v
		}
		row := make([]float64, 0, len(rec)-3)
		for _, field := range rec[3:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, nil, err
			}
			row = append(row, v)
		}
		kpts = append(kpts, k)
		freq = append(freq, row)
	}
	return kpts, freq, nil
}
