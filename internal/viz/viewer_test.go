package viz

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/pbesim/internal/distribution"
	"github.com/san-kum/pbesim/internal/pbe"
)

func testResult(t *testing.T, n int) *pbe.Result {
	t.Helper()
	res := &pbe.Result{Scheme: "high-resolution", CrystalDensity: 1, ShapeFactor: 1e-6}
	grid := []float64{1, 2, 3, 4, 5}
	for i := 0; i < n; i++ {
		dens := make([]float64, len(grid))
		dens[min(i, len(grid)-1)] = 1e-3
		d, err := distribution.New(grid, dens)
		if err != nil {
			t.Fatal(err)
		}
		res.Times = append(res.Times, float64(i))
		res.Distributions = append(res.Distributions, d)
		res.Concentrations = append(res.Concentrations, 0.12-0.001*float64(i))
		res.MediumMass = append(res.MediumMass, 1)
		res.Temperature = append(res.Temperature, 298.15)
		res.Solubility = append(res.Solubility, 0.1)
		res.Supersaturation = append(res.Supersaturation, 0.2-0.01*float64(i))
	}
	return res
}

func key(s string) tea.KeyMsg {
	switch s {
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(t *testing.T, v Viewer, msg tea.Msg) (Viewer, tea.Cmd) {
	t.Helper()
	m, cmd := v.Update(msg)
	nv, ok := m.(Viewer)
	if !ok {
		t.Fatalf("Update returned %T", m)
	}
	return nv, cmd
}

func TestNewViewerEmpty(t *testing.T) {
	if _, err := NewViewer("x", &pbe.Result{}); !errors.Is(err, ErrEmptyResult) {
		t.Errorf("err = %v, want ErrEmptyResult", err)
	}
	if _, err := NewViewer("x", nil); !errors.Is(err, ErrEmptyResult) {
		t.Errorf("nil result: err = %v", err)
	}
}

func TestViewerNavigation(t *testing.T) {
	v, err := NewViewer("demo", testResult(t, 4))
	if err != nil {
		t.Fatal(err)
	}

	steps := []struct {
		key  string
		want int
	}{
		{"left", 0},
		{"right", 1},
		{"l", 2},
		{"G", 3},
		{"right", 3},
		{"h", 2},
		{"g", 0},
	}
	for _, s := range steps {
		v, _ = send(t, v, key(s.key))
		if v.Index() != s.want {
			t.Fatalf("after %q index = %d, want %d", s.key, v.Index(), s.want)
		}
	}
	if v.Time() != 0 {
		t.Errorf("Time() = %v, want 0", v.Time())
	}
}

func TestViewerPlayback(t *testing.T) {
	v, err := NewViewer("demo", testResult(t, 3))
	if err != nil {
		t.Fatal(err)
	}
	v, cmd := send(t, v, key(" "))
	if !v.Playing() || cmd == nil {
		t.Fatal("space should start playback with a tick")
	}
	v, cmd = send(t, v, tickMsg{})
	if v.Index() != 1 || cmd == nil {
		t.Fatalf("index = %d after one tick", v.Index())
	}
	v, cmd = send(t, v, tickMsg{})
	if v.Index() != 2 || v.Playing() || cmd != nil {
		t.Errorf("playback should stop on the last snapshot: index=%d playing=%v", v.Index(), v.Playing())
	}

	// restarting from the end rewinds
	v, _ = send(t, v, key(" "))
	if v.Index() != 0 || !v.Playing() {
		t.Errorf("index=%d playing=%v after restart", v.Index(), v.Playing())
	}
	v, _ = send(t, v, key(" "))
	if v.Playing() {
		t.Error("second space should pause")
	}
	v, cmd = send(t, v, tickMsg{})
	if v.Index() != 0 || cmd != nil {
		t.Error("ticks while paused must not advance")
	}
}

func TestViewerThemeCycle(t *testing.T) {
	v, err := NewViewer("demo", testResult(t, 2))
	if err != nil {
		t.Fatal(err)
	}
	v = v.WithTheme("ocean")
	if v.Theme().Name != "ocean" {
		t.Fatalf("theme = %s", v.Theme().Name)
	}
	for range Themes {
		v, _ = send(t, v, key("t"))
	}
	if v.Theme().Name != "ocean" {
		t.Errorf("full cycle should return to ocean, got %s", v.Theme().Name)
	}
}

func TestViewerView(t *testing.T) {
	v, err := NewViewer("seeded", testResult(t, 3))
	if err != nil {
		t.Fatal(err)
	}
	v, _ = send(t, v, key("right"))
	out := v.View()
	for _, want := range []string{"SEEDED", "high-resolution", "2/3", "mass error"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}
	v, _ = send(t, v, key("?"))
	if !strings.Contains(v.View(), "cycle themes") {
		t.Error("help overlay not shown")
	}
}

func TestViewerQuit(t *testing.T) {
	v, err := NewViewer("demo", testResult(t, 2))
	if err != nil {
		t.Fatal(err)
	}
	_, cmd := send(t, v, key("q"))
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestCanvasPlot(t *testing.T) {
	c := NewCanvas(10, 4)
	c.Plot([]float64{0, 1}, []float64{0, 1}, Bounds{XMin: 0, XMax: 1, YMax: 1})
	if !c.IsSet(0, 15) || !c.IsSet(19, 0) {
		t.Error("diagonal end points not drawn")
	}
	if c.IsSet(19, 15) {
		t.Error("unexpected dot in the lower right corner")
	}
	if got := strings.Count(c.String(), "\n"); got != 4 {
		t.Errorf("rows = %d, want 4", got)
	}

	c.Clear()
	c.Plot([]float64{0, 1}, []float64{1, 1}, Bounds{XMin: 1, XMax: 1, YMax: 1})
	for y := 0; y < 16; y++ {
		for x := 0; x < 20; x++ {
			if c.IsSet(x, y) {
				t.Fatal("degenerate bounds should draw nothing")
			}
		}
	}
}

func TestSparkline(t *testing.T) {
	if got := Sparkline([]float64{0, 1}, 2); got != "▁█" {
		t.Errorf("Sparkline = %q", got)
	}
	if got := Sparkline(nil, 3); got != "───" {
		t.Errorf("empty Sparkline = %q", got)
	}
	if got := ProgressBar(0.5, 4); got != "██░░" {
		t.Errorf("ProgressBar = %q", got)
	}
}

func TestCanvasDrawLineContinuous(t *testing.T) {
	c := NewCanvas(4, 4)
	c.DrawLine(1, 15, 3, 0)
	for y := 0; y < 16; y++ {
		lit := 0
		for x := 0; x < 8; x++ {
			if c.IsSet(x, y) {
				lit++
			}
		}
		if lit != 1 {
			t.Errorf("row %d has %d dots, want 1", y, lit)
		}
	}
	c.DrawLine(-5, -5, -1, -1)
	c.Set(100, 0)
	if strings.ContainsRune(c.String(), 0x28ff) {
		t.Error("off-canvas dots leaked into the render")
	}
}
