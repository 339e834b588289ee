package viz

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// styles derives every style the viewer renders with from one theme.
type styles struct {
	header  lipgloss.Style
	current lipgloss.Style
	initial lipgloss.Style
	panel   lipgloss.Style
	label   lipgloss.Style
	value   lipgloss.Style
	help    lipgloss.Style
	ok      lipgloss.Style
	warn    lipgloss.Style
	bad     lipgloss.Style
}

func newStyles(t Theme) styles {
	return styles{
		header: lipgloss.NewStyle().Bold(true).Foreground(t.Primary).
			BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).BorderForeground(t.Muted),
		current: lipgloss.NewStyle().Foreground(t.Primary),
		initial: lipgloss.NewStyle().Foreground(t.Secondary),
		panel:   lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(t.Muted).Padding(0, 1),
		label:   lipgloss.NewStyle().Foreground(t.Muted).Width(12),
		value:   lipgloss.NewStyle().Foreground(t.Text).Bold(true),
		help:    lipgloss.NewStyle().Foreground(t.Muted).Italic(true),
		ok:      lipgloss.NewStyle().Bold(true).Foreground(t.Success),
		warn:    lipgloss.NewStyle().Bold(true).Foreground(t.Warning),
		bad:     lipgloss.NewStyle().Bold(true).Foreground(t.Error),
	}
}

// ProgressBar renders fraction in [0, 1] as a bar of the given width.
func ProgressBar(fraction float64, width int) string {
	filled := int(math.Round(clamp01(fraction) * float64(width)))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

var sparkChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline squeezes values into at most width glyphs, sampling evenly.
func Sparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return strings.Repeat("─", max(width, 0))
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	rng := hi - lo
	if rng == 0 {
		rng = 1
	}
	step := max(len(values)/width, 1)
	var b strings.Builder
	for i := 0; i < width && i*step < len(values); i++ {
		norm := (values[i*step] - lo) / rng
		idx := int(norm * float64(len(sparkChars)-1))
		b.WriteRune(sparkChars[min(max(idx, 0), len(sparkChars)-1)])
	}
	return b.String()
}

// overlay merges two canvases cell by cell, styling dots that belong to the
// front canvas with front and the rest with back.
func overlay(front, back *Canvas, fs, bs lipgloss.Style) string {
	var b strings.Builder
	for i, f := range front.cells {
		k := back.cells[i]
		switch {
		case f != 0:
			b.WriteString(fs.Render(string(rune(brailleBase) + rune(f|k))))
		case k != 0:
			b.WriteString(bs.Render(string(rune(brailleBase) + rune(k))))
		default:
			b.WriteRune(brailleBase)
		}
		if (i+1)%front.Width == 0 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
