package render

import (
	"fmt"
	"io"
	"math"
	"strings"
)

const (
	hideCur     = "\033[?25l"
	showCur     = "\033[?25h"
	altOn       = "\033[?1049h"
	altOff      = "\033[?1049l"
	clearScreen = "\033[2J\033[H"

	blocks = " ▁▂▃▄▅▆▇█"
)

// StatusView supplies the panel drawn under the trace.
type StatusView interface {
	View() string
}

// Terminal draws the trace as a column plot on an ANSI terminal.
type Terminal struct {
	out    io.Writer
	width  int
	rows   int
	status StatusView
	opened bool
}

// NewTerminal creates a terminal renderer of width x rows character cells.
// status may be nil.
func NewTerminal(out io.Writer, width, rows int, status StatusView) *Terminal {
	if width <= 0 {
		width = 100
	}
	if rows <= 0 {
		rows = 16
	}
	return &Terminal{out: out, width: width, rows: rows, status: status}
}

// Render redraws the whole screen.
func (t *Terminal) Render(frame Frame) error {
	var b strings.Builder
	if !t.opened {
		b.WriteString(altOn + hideCur)
		t.opened = true
	}
	b.WriteString(clearScreen)
	fmt.Fprintf(&b, "  samples %d-%d   range [%.3f, %.3f]\n",
		frame.Window.Offset, frame.Window.End(), frame.Min, frame.Max)

	for _, line := range Plot(frame, t.width, t.rows) {
		b.WriteString("  ")
		b.WriteString(line)
		b.WriteByte('\n')
	}

	if t.status != nil {
		b.WriteByte('\n')
		b.WriteString(t.status.View())
		b.WriteByte('\n')
	}

	_, err := io.WriteString(t.out, b.String())
	return err
}

// Close restores the terminal.
func (t *Terminal) Close() error {
	if !t.opened {
		return nil
	}
	t.opened = false
	_, err := io.WriteString(t.out, showCur+altOff+"\n")
	return err
}

// Plot rasterizes frame points into rows of width cells. Each column spans
// the Y range of the points that fall into it so steep QRS slopes stay
// connected.
func Plot(frame Frame, width, rows int) []string {
	grid := make([][]rune, rows)
	for r := range grid {
		grid[r] = []rune(strings.Repeat(" ", width))
	}
	n := len(frame.Points)
	if n == 0 || width <= 0 || rows <= 0 || frame.Height <= 0 {
		return toLines(grid)
	}

	cell := func(y float64) int {
		r := int(y / frame.Height * float64(rows))
		return max(0, min(rows-1, r))
	}

	step := float64(n) / float64(width)
	prev := -1
	for c := 0; c < width; c++ {
		si := int(float64(c) * step)
		ei := int(float64(c+1) * step)
		if si >= n {
			break
		}
		ei = max(si+1, min(n, ei))

		top, bottom := rows, -1
		for _, p := range frame.Points[si:ei] {
			r := cell(p.Y)
			top = min(top, r)
			bottom = max(bottom, r)
		}
		// join to previous column
		if prev >= 0 {
			top = min(top, prev)
			bottom = max(bottom, prev)
		}
		for r := top; r <= bottom; r++ {
			grid[r][c] = '█'
		}
		prev = cell(frame.Points[ei-1].Y)
	}
	return toLines(grid)
}

func toLines(grid [][]rune) []string {
	lines := make([]string, len(grid))
	for i, row := range grid {
		lines[i] = string(row)
	}
	return lines
}

// Sparkline compresses samples into a single line of block glyphs.
func Sparkline(samples []float64, width int) string {
	if len(samples) == 0 || width <= 0 {
		return strings.Repeat(" ", max(0, width))
	}
	d := downsample(samples, width)
	lo, hi := Bounds(d)
	pts := Normalize(d, lo, hi, 8)

	blk := []rune(blocks)
	var b strings.Builder
	for _, p := range pts {
		idx := int(math.Round(8 - p.Y))
		b.WriteRune(blk[max(0, min(8, idx))])
	}
	return b.String()
}

// downsample keeps the per-bucket maximum so R peaks survive.
func downsample(data []float64, width int) []float64 {
	n := len(data)
	if n <= width {
		return data
	}
	step := float64(n) / float64(width)
	out := make([]float64, width)
	for c := range width {
		si := int(float64(c) * step)
		ei := int(float64(c+1) * step)
		mx := data[si]
		for j := si + 1; j < ei && j < n; j++ {
			if data[j] > mx {
				mx = data[j]
			}
		}
		out[c] = mx
	}
	return out
}
