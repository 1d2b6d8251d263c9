package http

import (
	"errors"
	"net/http"

	"splitbill/internal/core"
	"splitbill/internal/ledger"
)

const backendUnavailable = "backend unavailable"

// groupedTransaction is a transaction with the viewer's position on it.
type groupedTransaction struct {
	core.Transaction
	Debt      ledger.Debt `json:"debt"`
	UserShare float64     `json:"userShare"`
}

type groupedWeek struct {
	Label        string               `json:"label"`
	DateRange    string               `json:"dateRange"`
	Transactions []groupedTransaction `json:"transactions"`
}

type groupedMonth struct {
	Label string        `json:"label"`
	Weeks []groupedWeek `json:"weeks"`
}

func (s *Server) handleAPIUser(w http.ResponseWriter, r *http.Request) {
	snap := s.state.Viewer(r.Context())
	if unavailable(snap.Err, snap.Loaded) {
		ServiceUnavailable(w, backendUnavailable)
		return
	}
	JSON(w, http.StatusOK, snap.Data)
}

func (s *Server) handleAPISplits(w http.ResponseWriter, r *http.Request) {
	snap := s.state.Splits(r.Context())
	if unavailable(snap.Err, snap.Loaded) {
		ServiceUnavailable(w, backendUnavailable)
		return
	}
	JSONWithMeta(w, http.StatusOK, snap.Data, &Meta{Total: len(snap.Data)})
}

func (s *Server) handleAPISplit(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r, "id")
	if err != nil {
		BadRequest(w, err.Error())
		return
	}
	sp, err := s.state.Split(r.Context(), id)
	s.writeLookup(w, sp, err)
}

func (s *Server) handleAPITransactions(w http.ResponseWriter, r *http.Request) {
	splitID, err := ParseSplitQuery(r.URL.Query())
	if err != nil {
		BadRequest(w, "split must be a positive integer")
		return
	}
	snap := s.state.Transactions(r.Context(), splitID)
	if unavailable(snap.Err, snap.Loaded) {
		ServiceUnavailable(w, backendUnavailable)
		return
	}
	JSONWithMeta(w, http.StatusOK, snap.Data, &Meta{Total: len(snap.Data)})
}

func (s *Server) handleAPITransaction(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r, "id")
	if err != nil {
		BadRequest(w, err.Error())
		return
	}
	tx, err := s.state.Transaction(r.Context(), id)
	s.writeLookup(w, tx, err)
}

// handleAPIGrouped returns transactions grouped month then week, newest
// first, each annotated with the viewer's debt and share.
func (s *Server) handleAPIGrouped(w http.ResponseWriter, r *http.Request) {
	splitID, err := ParseSplitQuery(r.URL.Query())
	if err != nil {
		BadRequest(w, "split must be a positive integer")
		return
	}
	ctx := r.Context()
	snap := s.state.Transactions(ctx, splitID)
	if unavailable(snap.Err, snap.Loaded) {
		ServiceUnavailable(w, backendUnavailable)
		return
	}
	viewer := s.state.Viewer(ctx).Data

	months := ledger.Group(snap.Data, s.state.LedgerOptions())
	out := make([]groupedMonth, len(months))
	for i, m := range months {
		out[i] = groupedMonth{Label: m.Label, Weeks: make([]groupedWeek, len(m.Weeks))}
		for j, wk := range m.Weeks {
			txs := make([]groupedTransaction, len(wk.Transactions))
			for k, tx := range wk.Transactions {
				txs[k] = groupedTransaction{
					Transaction: tx,
					Debt:        ledger.DebtStatus(tx, viewer.ID),
					UserShare:   ledger.UserShare(tx, viewer.ID),
				}
			}
			out[i].Weeks[j] = groupedWeek{Label: wk.Label, DateRange: wk.DateRange, Transactions: txs}
		}
	}
	JSONWithMeta(w, http.StatusOK, out, &Meta{Total: len(snap.Data)})
}

func (s *Server) writeLookup(w http.ResponseWriter, v any, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		NotFound(w, err.Error())
	case err != nil:
		ServiceUnavailable(w, backendUnavailable)
	default:
		JSON(w, http.StatusOK, v)
	}
}
