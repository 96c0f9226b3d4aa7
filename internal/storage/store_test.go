package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-logr/logr"

	"github.com/san-kum/mpmsim/internal/config"
	"github.com/san-kum/mpmsim/internal/particle"
	"github.com/san-kum/mpmsim/internal/sim"
	"github.com/san-kum/mpmsim/internal/tensor"
)

func testResult() *sim.Result {
	return &sim.Result{
		Steps: 20,
		Time:  0.02,
		Times: []float64{0, 0.01, 0.02},
		Dts:   []float64{0, 0.001, 0.001},
		History: map[string][]float64{
			"energy":         {1.5, 1.49, 1.48},
			"kinetic_energy": {0, 0.1, 0.2},
		},
		Metrics: map[string]float64{"energy": 1.48},
		DtMin:   0.001,
		DtMax:   0.001,
	}
}

func testParticles(t *testing.T) *particle.Set {
	t.Helper()
	geom := particle.Geometry{}
	geom.Append(tensor.Vec{0.5, 0.5, 0}, tensor.Vec{1, -2, 0}, 2, 0.01, 0.025, 0, 0)
	geom.Append(tensor.Vec{0.6, 0.5, 0}, tensor.Vec{}, 2, 0.01, 0.025, 0, 1)
	parts, err := particle.NewSet(geom, 0.1, 1, logr.Discard())
	if err != nil {
		t.Fatal(err)
	}
	parts.Points[1].SetStress(tensor.Sym{-1, -2, -3, 0.5, 0, 0})
	parts.Points[1].Damage = 0.25
	return parts
}

func TestStoreSaveLoad(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	cfg := config.GetPreset("freefall")
	runID, err := st.Save(cfg, testResult(), testParticles(t), nil)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if runID == "" {
		t.Error("expected non-empty run id")
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Scenario != "freefall" {
		t.Errorf("expected scenario 'freefall', got '%s'", meta.Scenario)
	}
	if meta.Steps != 20 || meta.Particles != 2 || meta.Bodies != 2 {
		t.Errorf("unexpected metadata: %+v", meta)
	}
	if meta.Metrics["energy"] != 1.48 {
		t.Errorf("expected energy 1.48, got %f", meta.Metrics["energy"])
	}
	if meta.Error != "" {
		t.Errorf("expected no error, got %q", meta.Error)
	}

	h, err := st.LoadHistory(runID)
	if err != nil {
		t.Fatalf("load history failed: %v", err)
	}
	if len(h.Times) != 3 {
		t.Errorf("expected 3 frames, got %d", len(h.Times))
	}
	if len(h.Names) != 2 || h.Names[0] != "energy" {
		t.Errorf("expected sorted metric columns, got %v", h.Names)
	}
	if h.Series["kinetic_energy"][2] != 0.2 {
		t.Errorf("expected kinetic energy 0.2, got %v", h.Series["kinetic_energy"])
	}

	recs, err := st.LoadParticles(runID)
	if err != nil {
		t.Fatalf("load particles failed: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 particles, got %d", len(recs))
	}
	if recs[0].Velocity != (tensor.Vec{1, -2, 0}) {
		t.Errorf("velocity not preserved: %v", recs[0].Velocity)
	}
	if recs[1].Body != 1 || recs[1].Stress[2] != -3 || recs[1].Damage != 0.25 {
		t.Errorf("particle state not preserved: %+v", recs[1])
	}

	scenario, err := st.LoadScenario(runID)
	if err != nil {
		t.Fatalf("load scenario failed: %v", err)
	}
	if scenario.Grid.Dx != cfg.Grid.Dx {
		t.Errorf("expected dx %f, got %f", cfg.Grid.Dx, scenario.Grid.Dx)
	}
}

func TestStoreList(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if _, err := st.Save(config.GetPreset("collision"), testResult(), nil, nil); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if _, err := st.Save(config.GetPreset("spall"), testResult(), nil, errors.New("step 3: non-finite")); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	// stray directory without metadata is skipped
	if err := os.Mkdir(filepath.Join(tmpDir, "junk"), 0755); err != nil {
		t.Fatal(err)
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[1].Error == "" {
		t.Error("expected the failed run to record its error")
	}
}

func TestStoreFileStructure(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	runID, err := st.Save(config.GetPreset("freefall"), testResult(), nil, nil)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	for _, name := range []string{metadataFile, scenarioFile, historyFile} {
		if _, err := os.Stat(filepath.Join(tmpDir, runID, name)); os.IsNotExist(err) {
			t.Errorf("%s not created", name)
		}
	}
	if _, err := os.Stat(filepath.Join(tmpDir, runID, particlesFile)); !os.IsNotExist(err) {
		t.Error("particles.csv written without particles")
	}
}

func TestExport(t *testing.T) {
	st := New(t.TempDir())
	runID, err := st.Save(config.GetPreset("freefall"), testResult(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	data, err := st.Export(runID)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := WriteJSON(&buf, data); err != nil {
		t.Fatal(err)
	}

	var decoded ExportData
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Run.ID != runID || len(decoded.History["energy"]) != 3 {
		t.Errorf("unexpected export: %+v", decoded.Run)
	}

	path := filepath.Join(t.TempDir(), "run.json")
	if err := st.ExportJSON(runID, path); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("export file missing: %v", err)
	}
}
