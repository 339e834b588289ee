package viz

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/pbesim/internal/metrics"
	"github.com/san-kum/pbesim/internal/moments"
	"github.com/san-kum/pbesim/internal/pbe"
)

var ErrEmptyResult = errors.New("viz: result has no snapshots")

const (
	frameInterval = time.Second / 10
	canvasWidth   = 60
	canvasHeight  = 18
)

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Viewer steps through the snapshots of a finished run, drawing the size
// distribution over the seed and the solution state beside it.
type Viewer struct {
	name     string
	res      *pbe.Result
	index    int
	playing  bool
	showHelp bool
	theme    int

	bounds  Bounds
	balance []float64
	sizes   []float64

	front, back *Canvas
}

func NewViewer(name string, res *pbe.Result) (Viewer, error) {
	if res == nil || res.Len() == 0 {
		return Viewer{}, ErrEmptyResult
	}
	v := Viewer{
		name:    name,
		res:     res,
		bounds:  plotBounds(res),
		balance: metrics.MassBalance(res),
		sizes:   metrics.SizeSeries(res),
		front:   NewCanvas(canvasWidth, canvasHeight),
		back:    NewCanvas(canvasWidth, canvasHeight),
	}
	v.back.Plot(res.Distributions[0].Grid(), res.Distributions[0].Density(), v.bounds)
	return v, nil
}

// plotBounds fixes one window for the whole run so growth reads as motion.
func plotBounds(res *pbe.Result) Bounds {
	b := Bounds{XMin: math.Inf(1), XMax: math.Inf(-1)}
	for _, d := range res.Distributions {
		b.XMin = math.Min(b.XMin, d.Min())
		b.XMax = math.Max(b.XMax, d.Max())
		for _, v := range d.Density() {
			b.YMax = math.Max(b.YMax, v)
		}
	}
	if b.YMax == 0 {
		b.YMax = 1
	}
	return b
}

// WithTheme selects the starting palette by name.
func (v Viewer) WithTheme(name string) Viewer {
	v.theme = themeIndex(name)
	return v
}

func (v Viewer) Index() int { return v.index }
func (v Viewer) Playing() bool { return v.playing }
func (v Viewer) Theme() Theme { return Themes[v.theme] }
func (v Viewer) Time() float64 { return v.res.Times[v.index] }
func (v Viewer) Init() tea.Cmd { return nil }
func (v Viewer) last() int { return v.res.Len() - 1 }
func (v Viewer) atEnd() bool { return v.index >= v.last() }
func (v Viewer) palette() styles { return newStyles(v.Theme()) }

func (v Viewer) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return v, tea.Quit
		case " ":
			if v.playing {
				v.playing = false
				return v, nil
			}
			if v.atEnd() {
				v.index = 0
			}
			v.playing = true
			return v, tick()
		case "right", "l", "]":
			v.seek(v.index + 1)
		case "left", "h", "[":
			v.seek(v.index - 1)
		case "home", "g":
			v.seek(0)
		case "end", "G":
			v.seek(v.last())
		case "t":
			v.theme = (v.theme + 1) % len(Themes)
		case "?":
			v.showHelp = !v.showHelp
		}
	case tickMsg:
		if !v.playing {
			return v, nil
		}
		v.seek(v.index + 1)
		if v.atEnd() {
			v.playing = false
			return v, nil
		}
		return v, tick()
	}
	return v, nil
}

func (v *Viewer) seek(i int) {
	v.index = min(max(i, 0), v.last())
}

func (v Viewer) View() string {
	st := v.palette()
	d := v.res.Distributions[v.index]
	v.front.Clear()
	v.front.Plot(d.Grid(), d.Density(), v.bounds)

	plot := overlay(v.front, v.back, st.current, st.initial)
	axis := st.help.Render(fmt.Sprintf("%-*s%*s", canvasWidth/2, fmt.Sprintf("%.3g", v.bounds.XMin), canvasWidth-canvasWidth/2, fmt.Sprintf("%.3g", v.bounds.XMax)))
	left := lipgloss.JoinVertical(lipgloss.Left, st.panel.Render(strings.TrimRight(plot, "\n")), axis)

	var s strings.Builder
	row := func(label, value string) {
		s.WriteString(st.label.Render(label) + st.value.Render(value) + "\n")
	}
	i := v.index
	row("time", fmt.Sprintf("%.4g", v.res.Times[i]))
	row("snapshot", fmt.Sprintf("%d/%d", i+1, v.res.Len()))
	row("c", fmt.Sprintf("%.5g", v.res.Concentrations[i]))
	row("c*", fmt.Sprintf("%.5g", v.res.Solubility[i]))
	row("S", fmt.Sprintf("%.4g", v.res.Supersaturation[i]))
	row("T", fmt.Sprintf("%.2f", v.res.Temperature[i]))
	row("medium", fmt.Sprintf("%.4g", v.res.MediumMass[i]))
	row("count", fmt.Sprintf("%.4g", moments.Moment(d, 0)))
	row("mean size", fmt.Sprintf("%.4g", v.sizes[i]))
	s.WriteString(st.label.Render("mass error") + v.balanceStyle(st).Render(fmt.Sprintf("%+.3g%%", v.balance[i])) + "\n\n")

	if i > 0 {
		conc := asciigraph.Plot(v.res.Concentrations[:i+1], asciigraph.Height(4), asciigraph.Width(28), asciigraph.Caption("concentration"))
		s.WriteString(conc + "\n\n")
	}
	s.WriteString(st.label.Render("S trend") + st.current.Render(Sparkline(v.res.Supersaturation[:i+1], 28)) + "\n")
	s.WriteString(st.label.Render("progress") + st.current.Render(ProgressBar(float64(i)/float64(max(v.last(), 1)), 28)) + "\n\n")
	s.WriteString(st.help.Render("space play  ←/→ step  g/G ends  t theme  ? help  q quit"))

	status := "PAUSED"
	if v.playing {
		status = "PLAYING"
	}
	header := st.header.Render(fmt.Sprintf("%s  %s  [%s]", strings.ToUpper(v.name), v.res.Scheme, status))
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", s.String())
	if v.showHelp {
		return header + "\n" + helpText + "\n" + body
	}
	return header + "\n" + body
}

func (v Viewer) balanceStyle(st styles) lipgloss.Style {
	switch e := math.Abs(v.balance[v.index]); {
	case e < 0.1:
		return st.ok
	case e < 1:
		return st.warn
	}
	return st.bad
}

const helpText = `
  space     play or pause the replay
  → l ]     next snapshot
  ← h [     previous snapshot
  g / G     first / last snapshot
  t         cycle themes
  ?         toggle this help
  q         quit
`

// Run opens the viewer full screen and blocks until the user quits.
func Run(name string, res *pbe.Result, theme string) error {
	v, err := NewViewer(name, res)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(v.WithTheme(theme), tea.WithAltScreen()).Run()
	return err
}
