package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/padbot/internal/motion"
	"github.com/san-kum/padbot/internal/sim"
)

func testResult() *sim.Result {
	return &sim.Result{
		States: []sim.State{
			{0, 0, 0, 0, 0},
			{0.1, 0.1, 0, 2, 2},
			{0.3, 0.3, 0, 4, 4},
		},
		Wheels:   []motion.Wheels{{}, {Left: 0.7, Right: 0.7}},
		Seq:      []motion.State{motion.Running, motion.Running},
		Requests: []motion.Direction{motion.Forward, motion.None},
		Times:    []float64{0, 0.02, 0.04},
		Events: []motion.Event{
			{Type: motion.EventAccepted, Tick: 1, Kind: motion.LinearDrive, Request: motion.Forward, Target: 12},
		},
		Metrics: map[string]float64{"control_effort": 0.7},
		Ticks:   2,
	}
}

func testInfo() RunInfo {
	return RunInfo{
		Scenario:   "forward",
		Script:     "F",
		Integrator: "rk4",
		Dt:         0.02,
		Duration:   0.04,
		Params:     map[string]float64{"drive.kp": 0.15},
	}
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runID, err := st.Save(testInfo(), testResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if !strings.HasPrefix(runID, "forward_") || len(runID) != len("forward_")+8 {
		t.Errorf("unexpected run id %q", runID)
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if meta.Scenario != "forward" {
		t.Errorf("expected scenario 'forward', got '%s'", meta.Scenario)
	}
	if meta.Ticks != 2 {
		t.Errorf("expected 2 ticks, got %d", meta.Ticks)
	}
	if meta.Params["drive.kp"] != 0.15 {
		t.Errorf("expected drive.kp 0.15, got %f", meta.Params["drive.kp"])
	}
	if meta.Metrics["control_effort"] != 0.7 {
		t.Errorf("expected control_effort 0.7, got %f", meta.Metrics["control_effort"])
	}
	if len(meta.Events) != 1 || meta.Events[0].Type != "accepted" || meta.Events[0].Request != "forward" {
		t.Errorf("unexpected events %+v", meta.Events)
	}

	tr, err := st.LoadTrace(runID)
	if err != nil {
		t.Fatalf("load trace failed: %v", err)
	}

	if len(tr.States) != 3 || len(tr.Times) != 3 {
		t.Fatalf("expected 3 rows, got %d states %d times", len(tr.States), len(tr.Times))
	}
	if tr.Wheels[1].Left != 0.7 {
		t.Errorf("expected left output 0.7, got %f", tr.Wheels[1].Left)
	}
	if tr.Seq[0] != "running" || tr.Requests[0] != "forward" {
		t.Errorf("labels not round tripped: %q %q", tr.Seq[0], tr.Requests[0])
	}
	if tr.Seq[2] != "" || tr.Wheels[2] != (motion.Wheels{}) {
		t.Errorf("final row should have no outputs: %q %+v", tr.Seq[2], tr.Wheels[2])
	}
	if got := tr.Column(0); got[2] != 0.3 {
		t.Errorf("expected left column to end at 0.3, got %v", got)
	}
}

func TestStoreLoadMissing(t *testing.T) {
	st := New(t.TempDir())

	if _, err := st.Load("nope"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
	if _, err := st.LoadTrace("nope"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
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
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if _, err := st.Save(testInfo(), testResult()); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}
	// stray directories are skipped
	if err := os.Mkdir(filepath.Join(tmpDir, "junk"), 0755); err != nil {
		t.Fatal(err)
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID == runs[1].ID {
		t.Error("run ids collided")
	}
}

func TestStoreFileStructure(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	runID, err := st.Save(testInfo(), testResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	runDir := filepath.Join(tmpDir, runID)
	for _, name := range []string{"metadata.json", "trace.csv"} {
		if _, err := os.Stat(filepath.Join(runDir, name)); os.IsNotExist(err) {
			t.Errorf("%s not created", name)
		}
	}
}

func TestExport(t *testing.T) {
	st := New(t.TempDir())
	runID, err := st.Save(testInfo(), testResult())
	if err != nil {
		t.Fatal(err)
	}

	data, err := st.Export(runID)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if data.Steps != 3 || len(data.Wheels) != 3 {
		t.Errorf("unexpected export sizes: steps %d wheels %d", data.Steps, len(data.Wheels))
	}

	var buf bytes.Buffer
	if err := ExportJSON(&buf, data); err != nil {
		t.Fatal(err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("export is not json: %v", err)
	}
	if decoded["id"] != runID || decoded["scenario"] != "forward" {
		t.Errorf("metadata not flattened into export: %v", decoded["id"])
	}

	buf.Reset()
	if err := st.CopyTrace(&buf, runID); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "time,left,right,heading") {
		t.Errorf("unexpected csv header: %q", strings.SplitN(buf.String(), "\n", 2)[0])
	}
}
