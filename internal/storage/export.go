package storage

import (
	"encoding/json"
	"io"
)

type ExportData struct {
	RunMetadata
	Times   []float64            `json:"times"`
	Columns map[string][]float64 `json:"columns"`
}

// Export writes a run's metadata and state columns as one JSON document.
func (s *Store) Export(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	series, err := s.LoadStates(runID)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(ExportData{
		RunMetadata: *meta,
		Times:       series.Times,
		Columns:     series.Columns,
	})
}
