package http

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"math"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"splitbill/internal/chart"
	"splitbill/internal/core"
	"splitbill/internal/ledger"
)

const (
	layoutTemplate = "layout"
	pagesGlob      = "templates/pages/*.html"
)

// Renderer holds one template set per page, each sharing the layout and
// the partials, plus the partials alone for HTMX fragments.
type Renderer struct {
	pages    map[string]*template.Template
	partials *template.Template
}

// NewRenderer parses templates/layout.html, templates/partials/*.html and
// every page under templates/pages.
func NewRenderer(fsys fs.FS, funcs template.FuncMap) (*Renderer, error) {
	base, err := template.New("").Funcs(funcs).ParseFS(fsys, "templates/layout.html", "templates/partials/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	files, err := fs.Glob(fsys, pagesGlob)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	r := &Renderer{pages: make(map[string]*template.Template, len(files)), partials: base}
	for _, file := range files {
		t, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.ParseFS(fsys, file); err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		r.pages[path.Base(file)] = t
	}
	return r, nil
}

// Page renders a full page into a buffer first so a template error never
// leaves a half-written response.
func (r *Renderer) Page(w http.ResponseWriter, status int, name string, data any) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, layoutTemplate, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	writeHTML(w, status, buf.Bytes())
	return nil
}

// Partial renders a named fragment.
func (r *Renderer) Partial(w http.ResponseWriter, status int, name string, data any) error {
	html, err := r.Fragment(name, data)
	if err != nil {
		return err
	}
	writeHTML(w, status, []byte(html))
	return nil
}

// Fragment renders a named partial to a string, for responses assembled
// with HTMXResponseBuilder.
func (r *Renderer) Fragment(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.partials.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render partial %s: %w", name, err)
	}
	return buf.String(), nil
}

func writeHTML(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// templateFuncs are the helpers every template can call. Dates are shown
// in loc.
func templateFuncs(loc *time.Location) template.FuncMap {
	if loc == nil {
		loc = time.UTC
	}
	formatDate := func(layout string) func(string) string {
		return func(s string) string {
			t, err := core.ParseDate(s, loc)
			if err != nil {
				return s
			}
			return t.Format(layout)
		}
	}
	return template.FuncMap{
		"money":     core.FormatAmount,
		"abs":       math.Abs,
		"debt":      ledger.DebtStatus,
		"share":     ledger.UserShare,
		"shortDate": formatDate("Mon, 2 Jan"),
		"longDate":  formatDate("Monday, 2 January 2006"),
		"typeLabel": func(t core.TransactionType) string { return t.Label() },
		"count":     func(n int) string { return humanize.Comma(int64(n)) },
		"ago":       humanize.Time,
		"splitName": splitName,
		"chart":     renderChart,
		"isPerson":  func(p core.Person, id int64) bool { return p.ID == id },
		"imageSrc":  imageSrc,
		"row":       newBillRow,
		"shares":    func(s []core.Share, viewerID int64) shareList { return shareList{s, viewerID} },
	}
}

// imageSrc lets camera captures through as data URLs, which html/template
// would otherwise replace. Anything that is not an image or http(s) URL is
// dropped.
func imageSrc(s string) template.URL {
	switch {
	case strings.HasPrefix(s, "data:image/"),
		strings.HasPrefix(s, "https://"),
		strings.HasPrefix(s, "http://"):
		return template.URL(s)
	default:
		return ""
	}
}

// billRow feeds the "bill-row" partial. Rows on a split page link back to
// the split and show the viewer's debt; elsewhere they show the share.
type billRow struct {
	Tx        core.Transaction
	ViewerID  int64
	Group     string
	FromSplit bool
}

func newBillRow(tx core.Transaction, viewerID int64, group string, fromSplit bool) billRow {
	return billRow{Tx: tx, ViewerID: viewerID, Group: group, FromSplit: fromSplit}
}

// shareList feeds the "shares" partial, which marks the viewer's row.
type shareList struct {
	Shares   []core.Share
	ViewerID int64
}

func splitName(names map[int64]string, id int64) string {
	if name, ok := names[id]; ok {
		return name
	}
	return "Unknown Group"
}

// renderChart draws totals as an inline SVG with the largest value marked.
func renderChart(kind string, totals []ledger.Total, width, height float64) template.HTML {
	k, err := chart.ParseKind(kind)
	if err != nil {
		return ""
	}
	return chart.RenderSVG(k, chart.MarkMax(chartPoints(totals)), width, height, chart.Options{})
}

func chartPoints(totals []ledger.Total) []chart.Point {
	points := make([]chart.Point, len(totals))
	for i, t := range totals {
		points[i] = chart.Point{Value: t.Amount, Label: t.Label}
	}
	return points
}

func splitNames(splits []core.Split) map[int64]string {
	names := make(map[int64]string, len(splits))
	for _, s := range splits {
		names[s.ID] = s.Name
	}
	return names
}
