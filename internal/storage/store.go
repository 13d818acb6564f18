package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/padbot/internal/motion"
	"github.com/san-kum/padbot/internal/sim"
)

var ErrRunNotFound = errors.New("storage: run not found")

const (
	metaFile  = "metadata.json"
	traceFile = "trace.csv"
)

var traceHeader = []string{
	"time", "left", "right", "heading", "left_vel", "right_vel",
	"left_out", "right_out", "state", "request",
}

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

// RunInfo describes how a run was set up.
type RunInfo struct {
	Scenario   string
	Script     string
	Integrator string
	Dt         float64
	Duration   float64
	Params     map[string]float64
}

type EventRecord struct {
	Tick    uint64  `json:"tick"`
	Type    string  `json:"type"`
	Command string  `json:"command,omitempty"`
	Request string  `json:"request,omitempty"`
	Target  float64 `json:"target,omitempty"`
	Reason  string  `json:"reason,omitempty"`
	Detail  string  `json:"detail,omitempty"`
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Scenario   string             `json:"scenario"`
	Script     string             `json:"script"`
	Timestamp  time.Time          `json:"timestamp"`
	Dt         float64            `json:"dt"`
	Duration   float64            `json:"duration"`
	Integrator string             `json:"integrator"`
	Ticks      int                `json:"ticks"`
	Params     map[string]float64 `json:"params"`
	Metrics    map[string]float64 `json:"metrics"`
	Events     []EventRecord      `json:"events"`
}

func newRunID(scenario string) string {
	return fmt.Sprintf("%s_%s", scenario, uuid.NewString()[:8])
}

func eventRecords(events []motion.Event) []EventRecord {
	out := make([]EventRecord, 0, len(events))
	for _, e := range events {
		r := EventRecord{
			Tick:   e.Tick,
			Type:   e.Type.String(),
			Target: e.Target,
			Reason: e.Reason.String(),
			Detail: e.Detail,
		}
		if e.Kind != 0 {
			r.Command = e.Kind.String()
		}
		if e.Request != motion.None {
			r.Request = e.Request.String()
		}
		out = append(out, r)
	}
	return out
}

func (s *Store) Save(info RunInfo, result *sim.Result) (string, error) {
	runID := newRunID(info.Scenario)
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:         runID,
		Scenario:   info.Scenario,
		Script:     info.Script,
		Timestamp:  time.Now(),
		Dt:         info.Dt,
		Duration:   info.Duration,
		Integrator: info.Integrator,
		Ticks:      result.Ticks,
		Params:     info.Params,
		Metrics:    result.Metrics,
		Events:     eventRecords(result.Events),
	}

	if err := writeJSON(filepath.Join(runDir, metaFile), meta); err != nil {
		return "", err
	}

	f, err := os.Create(filepath.Join(runDir, traceFile))
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := WriteTrace(f, result); err != nil {
		return "", err
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
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// WriteTrace writes one CSV row per recorded state. The final state has no
// tick after it, so its outputs are zero and its labels empty.
func WriteTrace(w io.Writer, result *sim.Result) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(traceHeader); err != nil {
		return err
	}

	for i, x := range result.States {
		row := []string{formatFloat(result.Times[i])}
		for j := 0; j < 5; j++ {
			v := 0.0
			if j < len(x) {
				v = x[j]
			}
			row = append(row, formatFloat(v))
		}

		if i < len(result.Wheels) {
			row = append(row,
				formatFloat(result.Wheels[i].Left),
				formatFloat(result.Wheels[i].Right),
				result.Seq[i].String(),
				result.Requests[i].String(),
			)
		} else {
			row = append(row, "0", "0", "", "")
		}

		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
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
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metaFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("storage: parse %s: %w", runID, err)
	}

	return &meta, nil
}

// Trace is a run read back from trace.csv.
type Trace struct {
	Times    []float64
	States   [][]float64
	Wheels   []motion.Wheels
	Seq      []string
	Requests []string
}

// Column returns one state column: 0 left, 1 right, 2 heading, 3 and 4 the
// wheel speeds.
func (t *Trace) Column(i int) []float64 {
	out := make([]float64, len(t.States))
	for k, x := range t.States {
		if i < len(x) {
			out[k] = x[i]
		}
	}
	return out
}

func (s *Store) TracePath(runID string) string {
	return filepath.Join(s.baseDir, runID, traceFile)
}

func (s *Store) LoadTrace(runID string) (*Trace, error) {
	file, err := os.Open(s.TracePath(runID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	tr := &Trace{}
	if len(records) < 2 {
		return tr, nil
	}

	for _, record := range records[1:] {
		if len(record) < len(traceHeader) {
			continue
		}

		nums := make([]float64, 8)
		ok := true
		for j := range nums {
			v, err := strconv.ParseFloat(record[j], 64)
			if err != nil {
				ok = false
				break
			}
			nums[j] = v
		}
		if !ok {
			continue
		}

		tr.Times = append(tr.Times, nums[0])
		tr.States = append(tr.States, nums[1:6])
		tr.Wheels = append(tr.Wheels, motion.Wheels{Left: nums[6], Right: nums[7]})
		tr.Seq = append(tr.Seq, record[8])
		tr.Requests = append(tr.Requests, record[9])
	}

	return tr, nil
}
