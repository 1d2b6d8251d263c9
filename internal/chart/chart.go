// Package chart draws small bar and line charts onto a Canvas.
//
// Rendering is a pure function of the points, the size and the style, so
// the same code feeds the SVG output used by the pages and the recording
// canvas used in tests.
package chart

import "fmt"

type Kind string

const (
	Line Kind = "line"
	BarY Kind = "bar-y"
	BarX Kind = "bar-x"
)

const (
	DefaultColor       = "#3b82f6"
	DefaultMarkedColor = "#ef4444"
	LabelColor         = "#374151"

	// fillAlpha is appended to a #RRGGBB color for a 30% opaque fill.
	fillAlpha = "4D"
	// labelSpace is reserved under vertical bars and lines for labels.
	labelSpace = 50
	barRatio   = 0.7
	gapRatio   = 0.3
	barXScale  = 0.9
	barXPad    = 8
	strokeW    = 2
	labelRunes = 3
)

type Point struct {
	Value  float64 `json:"value"`
	Label  string  `json:"label,omitempty"`
	Marked bool    `json:"marked,omitempty"`
}

type XY struct{ X, Y float64 }

type Paint struct {
	Fill        string
	Stroke      string
	StrokeWidth float64
}

type TextStyle struct {
	Color  string
	Size   int
	Anchor string // start, middle or end
}

// Canvas is the drawing surface. Implementations only need to record or
// emit primitives; all geometry is computed by Render.
type Canvas interface {
	RoundedRect(x, y, w, h, r float64, p Paint)
	Polyline(points []XY, p Paint)
	Text(x, y float64, s string, st TextStyle)
}

type Options struct {
	Color       string
	MarkedColor string
	LineWidth   float64
}

func (o Options) withDefaults() Options {
	if o.Color == "" {
		o.Color = DefaultColor
	}
	if o.MarkedColor == "" {
		o.MarkedColor = DefaultMarkedColor
	}
	if o.LineWidth <= 0 {
		o.LineWidth = strokeW
	}
	return o
}

func (o Options) colorFor(p Point) string {
	if p.Marked {
		return o.MarkedColor
	}
	return o.Color
}

// ParseKind validates a chart kind from a query string or template.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case Line, BarY, BarX:
		return k, nil
	default:
		return "", fmt.Errorf("unknown chart kind %q", s)
	}
}

// Render draws points onto c. An empty series or a non-positive size draws
// nothing. Negative values are drawn as zero and a non-positive maximum is
// treated as 1.
func Render(c Canvas, kind Kind, points []Point, width, height float64, opts Options) {
	if len(points) == 0 || width <= 0 || height <= 0 {
		return
	}
	opts = opts.withDefaults()
	switch kind {
	case BarY:
		verticalBars(c, points, width, height, opts)
	case BarX:
		horizontalBars(c, points, width, height, opts)
	case Line:
		line(c, points, width, height, opts)
	}
}

// MarkMax returns a copy of points with the largest value marked.
func MarkMax(points []Point) []Point {
	out := make([]Point, len(points))
	copy(out, points)
	best := -1
	for i, p := range out {
		if best < 0 || p.Value > out[best].Value {
			best = i
		}
	}
	if best >= 0 {
		out[best].Marked = true
	}
	return out
}

func maxValue(points []Point) float64 {
	m := 0.0
	for _, p := range points {
		m = max(m, p.Value)
	}
	if m <= 0 {
		return 1
	}
	return m
}

func value(p Point) float64 {
	return max(p.Value, 0)
}

func shortLabel(s string) string {
	r := []rune(s)
	if len(r) > labelRunes {
		r = r[:labelRunes]
	}
	return string(r)
}

func verticalBars(c Canvas, points []Point, width, height float64, opts Options) {
	slot := width / float64(len(points))
	yScale := (height - labelSpace) / maxValue(points)
	barW := slot * barRatio
	gap := slot * gapRatio

	for i, p := range points {
		x := float64(i)*slot + gap/2
		h := value(p) * yScale
		y := height - labelSpace - h
		color := opts.colorFor(p)
		c.RoundedRect(x, y, barW, h, barW/2, Paint{Fill: color + fillAlpha, Stroke: color, StrokeWidth: strokeW})
		if p.Label != "" {
			c.Text(x+barW/2, height-10, shortLabel(p.Label), TextStyle{Color: LabelColor, Size: 16, Anchor: "middle"})
		}
	}
}

func horizontalBars(c Canvas, points []Point, width, height float64, opts Options) {
	slot := height / float64(len(points))
	barH := slot * barRatio
	gap := slot * gapRatio
	m := maxValue(points)

	for i, p := range points {
		y := float64(i)*slot + gap/2
		w := value(p) / m * (width * barXScale)
		color := opts.colorFor(p)
		c.RoundedRect(barXPad, y, w, barH, barH/2, Paint{Fill: color + fillAlpha, Stroke: color, StrokeWidth: strokeW})
		if p.Label != "" {
			c.Text(barXPad+w+8, y+barH/2+4, shortLabel(p.Label), TextStyle{Color: LabelColor, Size: 13, Anchor: "start"})
		}
	}
}

func line(c Canvas, points []Point, width, height float64, opts Options) {
	slot := width / float64(len(points))
	yScale := (height - labelSpace) / maxValue(points)

	xy := make([]XY, len(points))
	for i, p := range points {
		xy[i] = XY{X: float64(i)*slot + slot/2, Y: height - labelSpace - value(p)*yScale}
	}
	c.Polyline(xy, Paint{Stroke: opts.Color, StrokeWidth: opts.LineWidth})

	const dot = 8
	for i, p := range points {
		if p.Marked {
			c.RoundedRect(xy[i].X-dot/2, xy[i].Y-dot/2, dot, dot, dot/2,
				Paint{Fill: opts.MarkedColor, Stroke: opts.MarkedColor, StrokeWidth: strokeW})
		}
		if p.Label != "" {
			c.Text(xy[i].X, height-10, shortLabel(p.Label), TextStyle{Color: LabelColor, Size: 13, Anchor: "middle"})
		}
	}
}
