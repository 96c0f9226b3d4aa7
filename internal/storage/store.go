// Package storage keeps finished runs on disk, one directory per run.
//
// A run directory holds metadata.json, the scenario as scenario.yaml,
// history.csv with one row per observed frame, and particles.csv with the
// final particle state.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/mpmsim/internal/config"
	"github.com/san-kum/mpmsim/internal/particle"
	"github.com/san-kum/mpmsim/internal/sim"
	"github.com/san-kum/mpmsim/internal/tensor"
)

const (
	metadataFile  = "metadata.json"
	scenarioFile  = "scenario.yaml"
	historyFile   = "history.csv"
	particlesFile = "particles.csv"
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

// Dir returns the directory of a run.
func (s *Store) Dir(runID string) string { return filepath.Join(s.baseDir, runID) }

type RunMetadata struct {
	ID        string             `json:"id"`
	Scenario  string             `json:"scenario"`
	Timestamp time.Time          `json:"timestamp"`
	Dim       int                `json:"dim"`
	Dx        float64            `json:"dx"`
	Particles int                `json:"particles"`
	Bodies    int                `json:"bodies"`
	Steps     int                `json:"steps"`
	Time      float64            `json:"time"`
	DtMin     float64            `json:"dt_min"`
	DtMax     float64            `json:"dt_max"`
	Contacts  int                `json:"contacts"`
	Elapsed   float64            `json:"elapsed_seconds"`
	Error     string             `json:"error,omitempty"`
	Metrics   map[string]float64 `json:"metrics"`
}

// Save writes a run. parts may be nil to skip the particle snapshot; runErr
// is recorded for partial runs.
func (s *Store) Save(cfg *config.Config, result *sim.Result, parts *particle.Set, runErr error) (string, error) {
	runID := fmt.Sprintf("%s_%d", cfg.Name, time.Now().UnixNano())
	runDir := s.Dir(runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		Scenario:  cfg.Name,
		Timestamp: time.Now(),
		Dim:       cfg.Dim,
		Dx:        cfg.Grid.Dx,
		Steps:     result.Steps,
		Time:      result.Time,
		DtMin:     result.DtMin,
		DtMax:     result.DtMax,
		Contacts:  result.Contacts,
		Elapsed:   result.Elapsed.Seconds(),
		Metrics:   result.Metrics,
	}
	if parts != nil {
		meta.Particles = parts.Len()
		meta.Bodies = len(parts.Bodies())
	}
	if runErr != nil {
		meta.Error = runErr.Error()
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := config.Save(filepath.Join(runDir, scenarioFile), cfg); err != nil {
		return "", err
	}
	if err := writeHistory(filepath.Join(runDir, historyFile), result); err != nil {
		return "", err
	}
	if parts != nil {
		if err := writeParticles(filepath.Join(runDir, particlesFile), parts); err != nil {
			return "", err
		}
	}
	return runID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 10, 64)
}

// metricNames returns the history series in a stable order.
func metricNames(result *sim.Result) []string {
	names := make([]string, 0, len(result.History))
	for name := range result.History {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func writeHistory(path string, result *sim.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	names := metricNames(result)
	if err := w.Write(append([]string{"time", "dt"}, names...)); err != nil {
		return err
	}
	for i, t := range result.Times {
		row := []string{formatFloat(t), formatFloat(result.Dts[i])}
		for _, name := range names {
			series := result.History[name]
			if i < len(series) {
				row = append(row, formatFloat(series[i]))
			} else {
				row = append(row, "")
			}
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

var particleHeader = []string{
	"id", "body", "material",
	"x", "y", "z", "vx", "vy", "vz",
	"mass", "volume",
	"sxx", "syy", "szz", "sxy", "syz", "szx",
	"plastic_strain", "damage",
}

func writeParticles(path string, parts *particle.Set) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(particleHeader); err != nil {
		return err
	}
	for i := range parts.Points {
		p := &parts.Points[i]
		row := make([]string, 0, len(particleHeader))
		row = append(row, strconv.Itoa(i), strconv.Itoa(p.Body), strconv.Itoa(p.Material))
		for _, v := range p.Position {
			row = append(row, formatFloat(v))
		}
		for _, v := range p.Velocity {
			row = append(row, formatFloat(v))
		}
		row = append(row, formatFloat(p.Mass), formatFloat(p.Volume))
		for _, v := range p.Stress {
			row = append(row, formatFloat(v))
		}
		row = append(row, formatFloat(p.PlasticStrain), formatFloat(p.Damage))
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
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
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir(runID), metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadScenario returns the scenario a run was started from.
func (s *Store) LoadScenario(runID string) (*config.Config, error) {
	return config.Load(filepath.Join(s.Dir(runID), scenarioFile))
}

// History is the observed series of a run.
type History struct {
	Times  []float64
	Dts    []float64
	Names  []string
	Series map[string][]float64
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	return r.ReadAll()
}

func (s *Store) LoadHistory(runID string) (*History, error) {
	records, err := readCSV(filepath.Join(s.Dir(runID), historyFile))
	if err != nil {
		return nil, err
	}

	h := &History{Series: make(map[string][]float64)}
	if len(records) == 0 {
		return h, nil
	}
	if len(records[0]) >= 2 {
		h.Names = records[0][2:]
	}

	for _, record := range records[1:] {
		if len(record) < 2 {
			continue
		}
		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			continue
		}
		dt, _ := strconv.ParseFloat(record[1], 64)
		h.Times = append(h.Times, t)
		h.Dts = append(h.Dts, dt)
		for j, name := range h.Names {
			if j+2 >= len(record) {
				break
			}
			val, err := strconv.ParseFloat(record[j+2], 64)
			if err != nil {
				continue
			}
			h.Series[name] = append(h.Series[name], val)
		}
	}
	return h, nil
}

// ParticleRecord is one row of particles.csv.
type ParticleRecord struct {
	ID, Body, Material int
	Position, Velocity tensor.Vec
	Mass, Volume       float64
	Stress             tensor.Sym
	PlasticStrain      float64
	Damage             float64
}

func (s *Store) LoadParticles(runID string) ([]ParticleRecord, error) {
	records, err := readCSV(filepath.Join(s.Dir(runID), particlesFile))
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []ParticleRecord{}, nil
	}

	out := make([]ParticleRecord, 0, len(records)-1)
	for line, record := range records[1:] {
		if len(record) != len(particleHeader) {
			return nil, fmt.Errorf("%s line %d: %d fields, want %d", particlesFile, line+2, len(record), len(particleHeader))
		}
		var ints [3]int
		for j := range ints {
			if ints[j], err = strconv.Atoi(record[j]); err != nil {
				return nil, fmt.Errorf("%s line %d: %w", particlesFile, line+2, err)
			}
		}
		vals := make([]float64, len(record)-3)
		for j := range vals {
			if vals[j], err = strconv.ParseFloat(record[j+3], 64); err != nil {
				return nil, fmt.Errorf("%s line %d: %w", particlesFile, line+2, err)
			}
		}
		rec := ParticleRecord{ID: ints[0], Body: ints[1], Material: ints[2]}
		copy(rec.Position[:], vals[0:3])
		copy(rec.Velocity[:], vals[3:6])
		rec.Mass, rec.Volume = vals[6], vals[7]
		copy(rec.Stress[:], vals[8:14])
		rec.PlasticStrain, rec.Damage = vals[14], vals[15]
		out = append(out, rec)
	}
	return out, nil
}
