package chart

import (
	"fmt"
	"html/template"
	"math"
	"strconv"
	"strings"
)

// SVG is a Canvas that builds an <svg> element.
type SVG struct {
	width, height float64
	b             strings.Builder
}

func NewSVG(width, height float64) *SVG {
	return &SVG{width: width, height: height}
}

func (s *SVG) RoundedRect(x, y, w, h, r float64, p Paint) {
	r = min(r, w/2, h/2)
	fmt.Fprintf(&s.b, `<rect x="%s" y="%s" width="%s" height="%s" rx="%s" fill="%s" stroke="%s" stroke-width="%s"/>`,
		num(x), num(y), num(w), num(h), num(max(r, 0)), attr(p.Fill), attr(p.Stroke), num(p.StrokeWidth))
}

func (s *SVG) Polyline(points []XY, p Paint) {
	coords := make([]string, len(points))
	for i, pt := range points {
		coords[i] = num(pt.X) + "," + num(pt.Y)
	}
	fill := p.Fill
	if fill == "" {
		fill = "none"
	}
	fmt.Fprintf(&s.b, `<polyline points="%s" fill="%s" stroke="%s" stroke-width="%s" stroke-linejoin="round"/>`,
		strings.Join(coords, " "), attr(fill), attr(p.Stroke), num(p.StrokeWidth))
}

func (s *SVG) Text(x, y float64, text string, st TextStyle) {
	fmt.Fprintf(&s.b, `<text x="%s" y="%s" fill="%s" font-size="%d" text-anchor="%s">%s</text>`,
		num(x), num(y), attr(st.Color), st.Size, attr(st.Anchor), template.HTMLEscapeString(text))
}

// String returns the complete <svg> element.
func (s *SVG) String() string {
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %s %s" width="100%%" preserveAspectRatio="xMidYMid meet" role="img">%s</svg>`,
		num(s.width), num(s.height), s.b.String())
}

// HTML returns the element for direct use in templates.
func (s *SVG) HTML() template.HTML {
	return template.HTML(s.String())
}

// RenderSVG is a shortcut for rendering into a fresh SVG canvas.
func RenderSVG(kind Kind, points []Point, width, height float64, opts Options) template.HTML {
	svg := NewSVG(width, height)
	Render(svg, kind, points, width, height, opts)
	return svg.HTML()
}

// num rounds to two decimals; canvas coordinates need no more.
func num(f float64) string {
	return strconv.FormatFloat(math.Round(f*100)/100, 'f', -1, 64)
}

func attr(s string) string {
	return template.HTMLEscapeString(s)
}
