package storage

import (
	"encoding/json"
	"io"
	"os"
)

type ExportData struct {
	RunMetadata
	Steps    int         `json:"steps"`
	Times    []float64   `json:"times"`
	States   [][]float64 `json:"states"`
	Wheels   [][]float64 `json:"wheels"`
	Seq      []string    `json:"sequencer"`
	Requests []string    `json:"requests"`
}

// Export reads a stored run back and bundles metadata and trace.
func (s *Store) Export(runID string) (*ExportData, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	tr, err := s.LoadTrace(runID)
	if err != nil {
		return nil, err
	}

	data := &ExportData{
		RunMetadata: *meta,
		Steps:       len(tr.Times),
		Times:       tr.Times,
		States:      tr.States,
		Wheels:      make([][]float64, len(tr.Wheels)),
		Seq:         tr.Seq,
		Requests:    tr.Requests,
	}
	for i, w := range tr.Wheels {
		data.Wheels[i] = []float64{w.Left, w.Right}
	}
	return data, nil
}

func ExportJSON(w io.Writer, data *ExportData) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// ExportJSONFile writes to path, or stdout when path is empty.
func ExportJSONFile(path string, data *ExportData) error {
	if path == "" {
		return ExportJSON(os.Stdout, data)
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return ExportJSON(file, data)
}

// CopyTrace copies the stored CSV trace to w.
func (s *Store) CopyTrace(w io.Writer, runID string) error {
	f, err := os.Open(s.TracePath(runID))
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(w, f)
	return err
}
