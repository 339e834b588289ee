// Package export renders stored runs as standalone SVG images.
package export

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/san-kum/pbesim/internal/pbe"
	"github.com/san-kum/pbesim/internal/viz"
)

// CanvasToSVG converts a braille canvas to one circle per lit dot.
func CanvasToSVG(canvas *viz.Canvas, scale float64, theme viz.Theme) string {
	if canvas == nil {
		return ""
	}
	width := float64(canvas.Width) * scale * 2
	height := float64(canvas.Height) * scale * 4

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<g fill="%s">
`, width, height, width, height, theme.Primary)

	r := scale * 0.4
	for y := 0; y < canvas.Height*4; y++ {
		for x := 0; x < canvas.Width*2; x++ {
			if canvas.IsSet(x, y) {
				fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n", float64(x)*scale+scale/2, float64(y)*scale+scale/2, r)
			}
		}
	}
	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

type Options struct {
	Width, Height int
	// Snapshots selects result indices; negative values count from the end.
	// Empty means every snapshot.
	Snapshots []int
	Theme     viz.Theme
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = 800
	}
	if o.Height <= 0 {
		o.Height = 480
	}
	if o.Theme.Name == "" {
		o.Theme = viz.Themes[0]
	}
	return o
}

const margin = 48.0

// Distributions draws the selected size distributions as polylines on
// shared axes, fading from the theme's secondary color for the earliest
// snapshot to its primary color for the latest.
func Distributions(w io.Writer, res *pbe.Result, opts Options) error {
	opts = opts.withDefaults()
	idx, err := resolve(opts.Snapshots, res.Len())
	if err != nil {
		return err
	}

	xmin, xmax, ymax := math.Inf(1), math.Inf(-1), 0.0
	for _, i := range idx {
		d := res.Distributions[i]
		xmin, xmax = math.Min(xmin, d.Min()), math.Max(xmax, d.Max())
		for _, v := range d.Density() {
			ymax = math.Max(ymax, v)
		}
	}
	if ymax == 0 {
		ymax = 1
	}

	W, H := float64(opts.Width), float64(opts.Height)
	px := func(x float64) float64 { return margin + (x-xmin)/(xmax-xmin)*(W-2*margin) }
	py := func(y float64) float64 { return H - margin - y/ymax*(H-2*margin) }

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="monospace" font-size="11">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<g stroke="%s" fill="none">
<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f"/>
<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f"/>
</g>
`, opts.Width, opts.Height, opts.Width, opts.Height, opts.Theme.Muted,
		margin, H-margin, W-margin, H-margin,
		margin, margin, margin, H-margin)
	fmt.Fprintf(&sb, "<g fill=\"%s\">\n", opts.Theme.Muted)
	fmt.Fprintf(&sb, "<text x=\"%.1f\" y=\"%.1f\">%s</text>\n", margin, H-margin/2, num(xmin))
	fmt.Fprintf(&sb, "<text x=\"%.1f\" y=\"%.1f\" text-anchor=\"end\">%s</text>\n", W-margin, H-margin/2, num(xmax))
	fmt.Fprintf(&sb, "<text x=\"%.1f\" y=\"%.1f\" text-anchor=\"end\">%s</text>\n", margin-4, margin, num(ymax))
	fmt.Fprintf(&sb, "<text x=\"%.1f\" y=\"%.1f\" text-anchor=\"middle\">size</text>\n</g>\n", W/2, H-margin/4)

	for k, i := range idx {
		frac := 1.0
		if len(idx) > 1 {
			frac = float64(k) / float64(len(idx)-1)
		}
		color := blend(string(opts.Theme.Secondary), string(opts.Theme.Primary), frac)
		d := res.Distributions[i]
		grid, dens := d.Grid(), d.Density()
		fmt.Fprintf(&sb, "<path fill=\"none\" stroke=\"%s\" stroke-width=\"1.5\" d=\"", color)
		for j := range grid {
			cmd := " L"
			if j == 0 {
				cmd = "M"
			}
			fmt.Fprintf(&sb, "%s%.1f,%.1f", cmd, px(grid[j]), py(dens[j]))
		}
		fmt.Fprintf(&sb, "\"><title>t = %s</title></path>\n", num(res.Times[i]))
	}
	sb.WriteString("</svg>\n")

	_, err = io.WriteString(w, sb.String())
	return err
}

func resolve(sel []int, n int) ([]int, error) {
	if n == 0 {
		return nil, viz.ErrEmptyResult
	}
	if len(sel) == 0 {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out, nil
	}
	out := make([]int, len(sel))
	for k, i := range sel {
		if i < 0 {
			i += n
		}
		if i < 0 || i >= n {
			return nil, fmt.Errorf("export: snapshot %d out of range (run has %d)", sel[k], n)
		}
		out[k] = i
	}
	return out, nil
}

func num(v float64) string { return strconv.FormatFloat(v, 'g', 4, 64) }

// blend interpolates two #rrggbb colors.
func blend(from, to string, t float64) string {
	fr, fg, fb := parseHex(from)
	tr, tg, tb := parseHex(to)
	mix := func(a, b int) int { return int(math.Round(float64(a) + t*float64(b-a))) }
	return fmt.Sprintf("#%02x%02x%02x", mix(fr, tr), mix(fg, tg), mix(fb, tb))
}

func parseHex(hex string) (r, g, b int) {
	if len(hex) != 7 || hex[0] != '#' {
		return 255, 255, 255
	}
	v, err := strconv.ParseUint(hex[1:], 16, 32)
	if err != nil {
		return 255, 255, 255
	}
	return int(v>>16&0xff), int(v>>8&0xff), int(v&0xff)
}
