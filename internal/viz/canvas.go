package viz

import (
	"math"
	"strings"
)

// dotBits maps a sub-pixel inside a braille cell to its bit in the
// U+2800 block. Rows run top to bottom, columns left to right.
var dotBits = [4][2]uint8{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

const brailleBase = 0x2800

// Canvas is a Width x Height block of braille characters, giving a dot
// resolution of (2*Width) x (4*Height). Dot (0, 0) is the top left.
type Canvas struct {
	Width, Height int
	cells         []uint8
}

func NewCanvas(w, h int) *Canvas {
	return &Canvas{Width: w, Height: h, cells: make([]uint8, w*h)}
}

func (c *Canvas) locate(x, y int) (idx int, bit uint8, ok bool) {
	if x < 0 || y < 0 || x >= 2*c.Width || y >= 4*c.Height {
		return 0, 0, false
	}
	return (y/4)*c.Width + x/2, dotBits[y%4][x%2], true
}

// Set lights dot (x, y). Dots off the canvas are ignored.
func (c *Canvas) Set(x, y int) {
	if i, bit, ok := c.locate(x, y); ok {
		c.cells[i] |= bit
	}
}

func (c *Canvas) IsSet(x, y int) bool {
	i, bit, ok := c.locate(x, y)
	return ok && c.cells[i]&bit != 0
}

func (c *Canvas) Clear() { clear(c.cells) }

// DrawLine lights the dots between two points, stepping one dot at a time
// along the longer axis.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	steps := max(abs(x1-x0), abs(y1-y0))
	if steps == 0 {
		c.Set(x0, y0)
		return
	}
	fx := float64(x1-x0) / float64(steps)
	fy := float64(y1-y0) / float64(steps)
	for s := 0; s <= steps; s++ {
		c.Set(x0+int(math.Round(fx*float64(s))), y0+int(math.Round(fy*float64(s))))
	}
}

// Bounds is the data window a Plot maps onto the canvas.
type Bounds struct {
	XMin, XMax float64
	YMax       float64
}

// Plot draws the polyline through (xs[i], ys[i]). Points outside b are
// clipped to its edges; non-finite values break the line.
func (c *Canvas) Plot(xs, ys []float64, b Bounds) {
	n := min(len(xs), len(ys))
	if n == 0 || !(b.XMax > b.XMin) || !(b.YMax > 0) {
		return
	}
	right, bottom := float64(2*c.Width-1), float64(4*c.Height-1)
	var lastX, lastY int
	connected := false
	for i := range n {
		if math.IsNaN(ys[i]) || math.IsInf(ys[i], 0) {
			connected = false
			continue
		}
		x := int(math.Round(clamp01((xs[i]-b.XMin)/(b.XMax-b.XMin)) * right))
		y := int(math.Round((1 - clamp01(ys[i]/b.YMax)) * bottom))
		if connected {
			c.DrawLine(lastX, lastY, x, y)
		} else {
			c.Set(x, y)
		}
		lastX, lastY, connected = x, y, true
	}
}

func (c *Canvas) String() string {
	var sb strings.Builder
	sb.Grow(c.Height * (c.Width*3 + 1))
	for i, bits := range c.cells {
		sb.WriteRune(rune(brailleBase) + rune(bits))
		if (i+1)%c.Width == 0 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func clamp01(v float64) float64 { return math.Max(0, math.Min(1, v)) }

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
