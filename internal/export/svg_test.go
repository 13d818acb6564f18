package export

import (
	"bytes"
	"context"
	"math"
	"strings"
	"testing"

	"github.com/san-kum/padbot/internal/config"
	"github.com/san-kum/padbot/internal/experiment"
	"github.com/san-kum/padbot/internal/storage"
)

func TestPathSVG(t *testing.T) {
	square := []Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}
	svg := PathSVG(square, 200, 100, "#fff")

	if !strings.HasPrefix(svg, "<?xml") || !strings.HasSuffix(svg, "</svg>") {
		t.Fatalf("not an svg document: %q", svg)
	}
	if n := strings.Count(svg, " L"); n != 4 {
		t.Errorf("expected 4 line segments, got %d", n)
	}
	if strings.Count(svg, "<circle") != 2 {
		t.Error("expected start and end markers")
	}
	// equal scale: the square spans the same pixels on both axes, centred
	if !strings.Contains(svg, "M58.3,91.7 L141.7,91.7 L141.7,8.3 L58.3,8.3") {
		t.Errorf("unexpected path: %s", svg)
	}
}

func TestPathSVGTooShort(t *testing.T) {
	if PathSVG([]Point{{1, 1}}, 100, 100, "#fff") != "" {
		t.Error("expected empty output for a single point")
	}
}

func TestRunSVG(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Scenario = "forward"
	exp, err := experiment.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	result, err := exp.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	st := storage.New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatal(err)
	}
	id, err := st.Save(storage.RunInfo{Scenario: "forward", Dt: exp.Dt(), Duration: exp.Duration()}, result)
	if err != nil {
		t.Fatal(err)
	}

	tr, err := st.LoadTrace(id)
	if err != nil {
		t.Fatal(err)
	}
	path := TracePath(tr)
	end := path[len(path)-1]
	if math.Abs(end.X-12) > 1 || math.Abs(end.Y) > 0.5 {
		t.Errorf("forward run should end 12in ahead, got %+v", end)
	}

	var buf bytes.Buffer
	if err := RunSVG(&buf, st, id, 300, 300); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "<path") {
		t.Error("missing path element")
	}

	if err := RunSVG(&buf, st, "missing", 300, 300); err == nil {
		t.Error("expected error for a missing run")
	}
}
