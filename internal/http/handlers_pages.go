package http

import (
	"errors"
	"net/http"
	"strconv"

	"splitbill/internal/core"
	"splitbill/internal/ledger"
	"splitbill/internal/log"
)

const (
	recentCount  = 5
	weeksCharted = 8
	monthsShown  = 6
)

// page carries what the layout needs on every screen.
type page struct {
	Title  string
	Nav    string
	Viewer core.Person
}

type dashboardPage struct {
	page
	Unavailable bool
	Splits      []core.Split
	SplitNames  map[int64]string
	Balance     float64
	Weekly      []ledger.Total
	Recent      []core.Transaction
}

type transactionsPage struct {
	page
	Unavailable bool
	Months      []ledger.MonthGroup
	SplitNames  map[int64]string
}

type transactionPage struct {
	page
	Unavailable bool
	Tx          core.Transaction
	SplitName   string
	BackURL     string
	BackLabel   string
}

type splitPage struct {
	page
	Unavailable bool
	Split       core.Split
	Months      []ledger.MonthGroup
}

type statsPage struct {
	page
	Unavailable bool
	Count       int
	Spent       float64
	Monthly     []ledger.Total
	Weekly      []ledger.Total
	ByType      []ledger.Total
}

type notFoundPage struct {
	page
	Message string
}

func (s *Server) newPage(r *http.Request, title, nav string) page {
	return page{Title: title, Nav: nav, Viewer: s.state.Viewer(r.Context()).Data}
}

// renderPage logs template failures and falls back to a plain 500.
func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	if err := s.render.Page(w, status, name, data); err != nil {
		log.FromContext(r.Context()).WithComponent(log.ComponentTemplate).
			ErrorContext(r.Context(), "Template execution failed",
				log.FieldOperation, log.OpRender,
				"template", name,
				log.FieldError, err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request, message string) {
	s.renderPage(w, r, http.StatusNotFound, "notfound.html", notFoundPage{
		page:    s.newPage(r, "Not found", ""),
		Message: message,
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.notFound(w, r, "Page not found.")
}

// handleDashboard greets the viewer and lists their split groups with a
// chart of recent weekly spend.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d := s.state.Dashboard(r.Context())
	txs := d.Transactions.Data

	recent := ledger.SortByDateDesc(txs, s.state.LedgerOptions().Location)
	if len(recent) > recentCount {
		recent = recent[:recentCount]
	}

	s.renderPage(w, r, http.StatusOK, "dashboard.html", dashboardPage{
		page:        page{Title: "Home", Nav: "home", Viewer: d.Viewer.Data},
		Unavailable: unavailable(d.Splits.Err, d.Splits.Loaded),
		Splits:      d.Splits.Data,
		SplitNames:  splitNames(d.Splits.Data),
		Balance:     ledger.Balance(txs, d.Viewer.Data.ID),
		Weekly:      ledger.WeeklyTotals(txs, weeksCharted, s.state.LedgerOptions()),
		Recent:      recent,
	})
}

// handleTransactions lists every bill grouped by month and week with the
// viewer's share.
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	txs := s.state.Transactions(ctx, 0)
	splits := s.state.Splits(ctx)

	s.renderPage(w, r, http.StatusOK, "transactions.html", transactionsPage{
		page:        s.newPage(r, "My Bills", "bills"),
		Unavailable: unavailable(txs.Err, txs.Loaded),
		Months:      ledger.Group(txs.Data, s.state.LedgerOptions()),
		SplitNames:  splitNames(splits.Data),
	})
}

func (s *Server) handleTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r, "id")
	if err != nil {
		s.notFound(w, r, "Transaction not found.")
		return
	}

	data := transactionPage{
		page:      s.newPage(r, "Bill", "bills"),
		BackURL:   "/transactions",
		BackLabel: "All Transactions",
	}
	tx, err := s.state.Transaction(r.Context(), id)
	switch {
	case errors.Is(err, core.ErrNotFound):
		s.notFound(w, r, "Transaction not found.")
		return
	case err != nil:
		data.Unavailable = true
	default:
		data.Tx = tx
		data.Title = tx.Title
		if sp, err := s.state.Split(r.Context(), tx.SplitID); err == nil {
			data.SplitName = sp.Name
		}
		if r.URL.Query().Get("from") == "split" {
			data.BackURL = "/splits/" + strconv.FormatInt(tx.SplitID, 10)
			data.BackLabel = "Split Transactions"
		}
	}
	s.renderPage(w, r, http.StatusOK, "transaction.html", data)
}

// handleSplit shows one group's bills with the viewer's debt on each.
func (s *Server) handleSplit(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r, "id")
	if err != nil {
		s.notFound(w, r, "Split not found.")
		return
	}

	data := splitPage{page: s.newPage(r, "Split", "home")}
	sp, err := s.state.Split(r.Context(), id)
	switch {
	case errors.Is(err, core.ErrNotFound):
		s.notFound(w, r, "Split not found.")
		return
	case err != nil:
		data.Unavailable = true
	default:
		data.Split = sp
		data.Title = sp.Name
		txs := s.state.Transactions(r.Context(), id)
		data.Unavailable = unavailable(txs.Err, txs.Loaded)
		data.Months = ledger.Group(txs.Data, s.state.LedgerOptions())
	}
	s.renderPage(w, r, http.StatusOK, "split.html", data)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap := s.state.Transactions(r.Context(), 0)
	p := s.newPage(r, "Stats", "stats")
	opts := s.state.LedgerOptions()

	s.renderPage(w, r, http.StatusOK, "stats.html", statsPage{
		page:        p,
		Unavailable: unavailable(snap.Err, snap.Loaded),
		Count:       len(snap.Data),
		Spent:       ledger.Spent(snap.Data, p.Viewer.ID),
		Monthly:     ledger.MonthlyTotals(snap.Data, monthsShown, opts),
		Weekly:      ledger.WeeklyTotals(snap.Data, weeksCharted, opts),
		ByType:      ledger.TotalsByType(snap.Data),
	})
}

// unavailable is true when a view has never loaded; pages then show the
// loading state instead of the error.
func unavailable(err error, loaded bool) bool {
	return err != nil && !loaded
}
