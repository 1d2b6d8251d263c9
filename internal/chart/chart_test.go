package chart

import (
	"math"
	"strings"
	"testing"
)

type rect struct {
	x, y, w, h, r float64
	p             Paint
}

type text struct {
	x, y float64
	s    string
}

type recorder struct {
	rects []rect
	lines [][]XY
	texts []text
}

func (r *recorder) RoundedRect(x, y, w, h, rad float64, p Paint) {
	r.rects = append(r.rects, rect{x, y, w, h, rad, p})
}
func (r *recorder) Polyline(points []XY, p Paint) { r.lines = append(r.lines, points) }
func (r *recorder) Text(x, y float64, s string, _ TextStyle) {
	r.texts = append(r.texts, text{x, y, s})
}

func (r *recorder) empty() bool {
	return len(r.rects) == 0 && len(r.lines) == 0 && len(r.texts) == 0
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestRenderEmptySeriesDrawsNothing(t *testing.T) {
	for _, k := range []Kind{Line, BarY, BarX} {
		rec := &recorder{}
		Render(rec, k, nil, 400, 300, Options{})
		if !rec.empty() {
			t.Fatalf("%s: drew on empty series", k)
		}
		Render(rec, k, []Point{{Value: 1}}, 0, 300, Options{})
		if !rec.empty() {
			t.Fatalf("%s: drew with zero width", k)
		}
	}
}

func TestVerticalBars(t *testing.T) {
	rec := &recorder{}
	points := []Point{{Value: 30, Label: "January"}, {Value: 60, Label: "Feb", Marked: true}}
	Render(rec, BarY, points, 200, 250, Options{})

	if len(rec.rects) != 2 || len(rec.texts) != 2 {
		t.Fatalf("got %d rects, %d texts", len(rec.rects), len(rec.texts))
	}
	// slot 100: bar 70 wide, 15 gap on each side; 200px of drawable height.
	first, second := rec.rects[0], rec.rects[1]
	if !near(first.x, 15) || !near(first.w, 70) || !near(first.r, 35) {
		t.Fatalf("first bar geometry %+v", first)
	}
	if !near(first.h, 100) || !near(first.y, 100) {
		t.Fatalf("first bar height %+v", first)
	}
	if !near(second.x, 115) || !near(second.h, 200) || !near(second.y, 0) {
		t.Fatalf("second bar geometry %+v", second)
	}
	if first.p.Fill != DefaultColor+"4D" || second.p.Stroke != DefaultMarkedColor || second.p.StrokeWidth != 2 {
		t.Fatalf("paints %+v / %+v", first.p, second.p)
	}
	if rec.texts[0].s != "Jan" || !near(rec.texts[0].x, 50) || !near(rec.texts[0].y, 240) {
		t.Fatalf("label %+v", rec.texts[0])
	}
}

func TestHorizontalBars(t *testing.T) {
	rec := &recorder{}
	points := []Point{{Value: 0.9, Label: "Rent"}, {Value: 0.45, Label: "Food"}}
	Render(rec, BarX, points, 400, 200, Options{})

	if len(rec.rects) != 2 {
		t.Fatalf("got %d rects", len(rec.rects))
	}
	// slot 100: bar 70 tall starting 15 down, widest bar spans 90% of 400.
	a, b := rec.rects[0], rec.rects[1]
	if !near(a.x, 8) || !near(a.y, 15) || !near(a.h, 70) || !near(a.w, 360) {
		t.Fatalf("first bar %+v", a)
	}
	if !near(b.y, 115) || !near(b.w, 180) {
		t.Fatalf("second bar %+v", b)
	}
	if rec.texts[0].s != "Ren" || !near(rec.texts[0].x, 8+360+8) || !near(rec.texts[0].y, 15+35+4) {
		t.Fatalf("label %+v", rec.texts[0])
	}
}

func TestSinglePointAndDegenerateValues(t *testing.T) {
	rec := &recorder{}
	Render(rec, BarY, []Point{{Value: 0}}, 100, 150, Options{})
	if len(rec.rects) != 1 || rec.rects[0].h != 0 || rec.rects[0].y != 100 {
		t.Fatalf("zero bar %+v", rec.rects)
	}

	rec = &recorder{}
	Render(rec, BarY, []Point{{Value: -5}, {Value: -1}}, 100, 150, Options{})
	for _, r := range rec.rects {
		if r.h != 0 || math.IsNaN(r.y) || math.IsInf(r.y, 0) {
			t.Fatalf("negative values should clamp to zero height, got %+v", r)
		}
	}
}

func TestLine(t *testing.T) {
	rec := &recorder{}
	points := []Point{{Value: 10}, {Value: 20, Marked: true, Label: "Peak"}}
	Render(rec, Line, points, 200, 150, Options{})
	if len(rec.lines) != 1 || len(rec.lines[0]) != 2 {
		t.Fatalf("expected one polyline through 2 points, got %+v", rec.lines)
	}
	p0, p1 := rec.lines[0][0], rec.lines[0][1]
	if !near(p0.X, 50) || !near(p0.Y, 50) || !near(p1.X, 150) || !near(p1.Y, 0) {
		t.Fatalf("polyline %+v", rec.lines[0])
	}
	if len(rec.rects) != 1 {
		t.Fatalf("expected a dot for the marked point, got %d", len(rec.rects))
	}
	if rec.texts[0].s != "Pea" {
		t.Fatalf("label %q", rec.texts[0].s)
	}
}

func TestMarkMax(t *testing.T) {
	in := []Point{{Value: 1}, {Value: 3}, {Value: 2}}
	out := MarkMax(in)
	if !out[1].Marked || out[0].Marked || out[2].Marked {
		t.Fatalf("MarkMax = %+v", out)
	}
	if in[1].Marked {
		t.Fatal("input was modified")
	}
	if len(MarkMax(nil)) != 0 {
		t.Fatal("expected empty result")
	}
}

func TestSVGOutput(t *testing.T) {
	out := string(RenderSVG(BarY, []Point{{Value: 1, Label: "<b>"}}, 100, 100, Options{}))
	if !strings.HasPrefix(out, "<svg") || !strings.Contains(out, "<rect") {
		t.Fatalf("unexpected svg %q", out)
	}
	if strings.Contains(out, "<b>") {
		t.Fatalf("label not escaped: %q", out)
	}
	if !strings.Contains(out, `fill="#3b82f64D"`) {
		t.Fatalf("missing translucent fill: %q", out)
	}
	if _, err := ParseKind("pie"); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}
