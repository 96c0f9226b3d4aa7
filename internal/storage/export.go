package storage

import (
	"encoding/json"
	"io"
	"os"
)

type ExportData struct {
	Run     RunMetadata          `json:"run"`
	Times   []float64            `json:"times"`
	Dts     []float64            `json:"dts"`
	History map[string][]float64 `json:"history"`
}

// Export bundles a stored run's metadata and history.
func (s *Store) Export(runID string) (*ExportData, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	h, err := s.LoadHistory(runID)
	if err != nil {
		return nil, err
	}
	return &ExportData{Run: *meta, Times: h.Times, Dts: h.Dts, History: h.Series}, nil
}

func WriteJSON(w io.Writer, data *ExportData) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// ExportJSON writes a stored run to path, or to stdout when path is "-".
func (s *Store) ExportJSON(runID, path string) error {
	data, err := s.Export(runID)
	if err != nil {
		return err
	}
	if path == "-" {
		return WriteJSON(os.Stdout, data)
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteJSON(file, data)
}
