package handlers

import (
	"net/http"

	"github.com/dvloznov/household-budget/internal/api/middleware"
	"github.com/dvloznov/household-budget/internal/budget"
	"github.com/dvloznov/household-budget/internal/domain"
	"github.com/dvloznov/household-budget/internal/session"
	"github.com/shopspring/decimal"
)

// TransactionsHandler handles ledger endpoints.
type TransactionsHandler struct {
	svc      *budget.Service
	sessions *session.Manager
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(svc *budget.Service, sessions *session.Manager) *TransactionsHandler {
	return &TransactionsHandler{svc: svc, sessions: sessions}
}

func filterFrom(r *http.Request) (budget.Filter, error) {
	window, err := parseWindow(r)
	if err != nil {
		return budget.Filter{}, err
	}
	return budget.Filter{
		Range:          window,
		NeedsAttention: parseBoolParam(r, "needs_review"),
		Category:       r.URL.Query().Get("category"),
	}, nil
}

// ListTransactions handles GET /api/transactions
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := filterFrom(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	middleware.WriteJSON(w, http.StatusOK, toTransactions(h.svc.Transactions(f)))
}

// AddTransaction handles POST /api/transactions
func (h *TransactionsHandler) AddTransaction(w http.ResponseWriter, r *http.Request) {
	var req Transaction
	if !decodeJSON(w, r, &req) {
		return
	}

	status, err := h.svc.AddManual(r.Context(), req.domain())
	if err != nil {
		writeServiceError(w, r, "Failed to add transaction", err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, toStatus(status))
}

// SplitTransaction handles POST /api/transactions/split
func (h *TransactionsHandler) SplitTransaction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key   Key `json:"key"`
		Parts []struct {
			Amount   decimal.Decimal `json:"amount"`
			Category string          `json:"category"`
		} `json:"parts"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Parts) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "parts are required")
		return
	}

	parts := make([]domain.SplitPart, len(req.Parts))
	for i, p := range req.Parts {
		parts[i] = domain.SplitPart{Amount: p.Amount, Category: p.Category}
	}
	out, err := h.svc.Split(r.Context(), req.Key.domain(), parts)
	if err != nil {
		writeServiceError(w, r, "Failed to split transaction", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, toTransactions(out))
}

// DeleteTransactions handles POST /api/transactions/delete
func (h *TransactionsHandler) DeleteTransactions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Keys []Key `json:"keys"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	keys := make([]domain.TxKey, len(req.Keys))
	for i, k := range req.Keys {
		keys[i] = k.domain()
	}
	n, err := h.svc.Delete(r.Context(), keys...)
	if err != nil {
		writeServiceError(w, r, "Failed to delete transactions", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

// RenameCategory handles POST /api/transactions/rename
func (h *TransactionsHandler) RenameCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		From string `json:"from"`
		To   string `json:"to"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	n, err := h.svc.Rename(r.Context(), req.From, req.To)
	if err != nil {
		writeServiceError(w, r, "Failed to rename category", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]int{"renamed": n})
}

// OpenEdit handles POST /api/edits. It snapshots the filtered rows into a
// session; PUT /api/edits/{id} saves them back.
func (h *TransactionsHandler) OpenEdit(w http.ResponseWriter, r *http.Request) {
	f, err := filterFrom(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess := h.sessions.Create()
	rows := h.svc.OpenEdit(sess, f)
	middleware.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"session_id":   sess.ID,
		"transactions": toTransactions(rows),
	})
}

// SaveEdits handles PUT /api/edits/{id}
func (h *TransactionsHandler) SaveEdits(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Get(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, "Unknown edit session", err)
		return
	}
	var req struct {
		Transactions []Transaction `json:"transactions"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	removed, added, err := h.svc.SaveEdits(r.Context(), sess, fromTransactions(req.Transactions))
	if err != nil {
		writeServiceError(w, r, "Failed to save edits", err)
		return
	}
	_ = h.sessions.Delete(sess.ID)
	middleware.WriteJSON(w, http.StatusOK, map[string]int{"removed": removed, "added": added})
}

// ReviewQueue handles GET /api/review
func (h *TransactionsHandler) ReviewQueue(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, toTransactions(h.svc.ReviewQueue()))
}

// Flush handles POST /api/flush. It rewrites every table from memory after
// the operator saw a failed write.
func (h *TransactionsHandler) Flush(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Flush(r.Context()); err != nil {
		writeServiceError(w, r, "Flush failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
