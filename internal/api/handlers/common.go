// Package handlers implements the operator HTTP API over the budget service.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/household-budget/internal/api/middleware"
	"github.com/dvloznov/household-budget/internal/domain"
	"github.com/dvloznov/household-budget/internal/jobs"
	"github.com/dvloznov/household-budget/internal/logger"
	"github.com/dvloznov/household-budget/internal/reconcile"
	"github.com/dvloznov/household-budget/internal/report"
	"github.com/shopspring/decimal"
)

// Transaction is the wire form of a ledger row.
type Transaction struct {
	Date           civil.Date      `json:"date"`
	Description    string          `json:"description"`
	Amount         decimal.Decimal `json:"amount"`
	Category       string          `json:"category"`
	IsReimbursable bool            `json:"is_reimbursable"`
	NeedsReview    bool            `json:"needs_review"`
}

func toTransaction(tx domain.Transaction) Transaction {
	return Transaction{
		Date:           tx.Date,
		Description:    tx.Description,
		Amount:         tx.Amount,
		Category:       tx.Category,
		IsReimbursable: tx.IsReimbursable,
		NeedsReview:    tx.NeedsReview,
	}
}

func toTransactions(txs []domain.Transaction) []Transaction {
	out := make([]Transaction, len(txs))
	for i, tx := range txs {
		out[i] = toTransaction(tx)
	}
	return out
}

func (t Transaction) domain() domain.Transaction {
	return domain.Transaction{
		Date:           t.Date,
		Description:    t.Description,
		Amount:         t.Amount,
		Category:       t.Category,
		IsReimbursable: t.IsReimbursable,
		NeedsReview:    t.NeedsReview,
	}
}

func fromTransactions(in []Transaction) []domain.Transaction {
	out := make([]domain.Transaction, len(in))
	for i, t := range in {
		out[i] = t.domain()
	}
	return out
}

// Key is the wire form of a transaction's identity.
type Key struct {
	Date        civil.Date      `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

func (k Key) domain() domain.TxKey {
	return domain.Transaction{Date: k.Date, Description: k.Description, Amount: k.Amount}.Key()
}

// Conflict is the wire form of a pending duplicate decision.
type Conflict struct {
	New      Transaction `json:"new"`
	Existing Transaction `json:"existing"`
}

func toConflict(c reconcile.Conflict) *Conflict {
	return &Conflict{New: toTransaction(c.New), Existing: toTransaction(c.Existing)}
}

// Line is the wire form of one category's budget line.
type Line struct {
	Group      string `json:"group"`
	Category   string `json:"category"`
	Budget     string `json:"budget"`
	Spent      string `json:"spent"`
	Remaining  string `json:"remaining"`
	OverBudget bool   `json:"over_budget"`
}

// Summary is the wire form of a dashboard summary.
type Summary struct {
	Period         string  `json:"period"`
	Income         string  `json:"income"`
	Planned        string  `json:"planned"`
	Spent          string  `json:"spent"`
	Remaining      string  `json:"remaining"`
	SavingsRate    *string `json:"savings_rate,omitempty"`
	Transactions   int     `json:"transactions"`
	NeedsAttention int     `json:"needs_attention"`
	Lines          []Line  `json:"lines"`
}

func toSummary(s report.Summary) Summary {
	out := Summary{
		Period:         report.PeriodLabel(s),
		Income:         s.Income.StringFixed(2),
		Planned:        s.Planned.StringFixed(2),
		Spent:          s.Spent.StringFixed(2),
		Remaining:      s.Remaining.StringFixed(2),
		Transactions:   s.Transactions,
		NeedsAttention: s.NeedsAttention,
		Lines:          []Line{},
	}
	if s.HasSavingsRate {
		rate := s.SavingsRate.StringFixed(1)
		out.SavingsRate = &rate
	}
	for _, l := range s.Lines() {
		out.Lines = append(out.Lines, Line{
			Group:      l.Group,
			Category:   l.Category,
			Budget:     l.Budget.StringFixed(2),
			Spent:      l.Spent.StringFixed(2),
			Remaining:  l.Remaining.StringFixed(2),
			OverBudget: l.OverBudget(),
		})
	}
	return out
}

// Status is the wire form of one category's remaining budget.
type Status struct {
	Category  string `json:"category"`
	Budget    string `json:"budget"`
	Spent     string `json:"spent"`
	Remaining string `json:"remaining"`
}

func toStatus(s report.Status) Status {
	return Status{
		Category:  s.Category,
		Budget:    s.Budget.StringFixed(2),
		Spent:     s.Spent.StringFixed(2),
		Remaining: s.Remaining.StringFixed(2),
	}
}

// decodeJSON decodes the request body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// parseWindow reads the start and end query parameters (YYYY-MM-DD). Both
// are optional.
func parseWindow(r *http.Request) (domain.DateRange, error) {
	var w domain.DateRange
	q := r.URL.Query()
	var err error
	if s := q.Get("start"); s != "" {
		if w.Start, err = civil.ParseDate(s); err != nil {
			return w, errors.New("Invalid start date, expected YYYY-MM-DD")
		}
	}
	if s := q.Get("end"); s != "" {
		if w.End, err = civil.ParseDate(s); err != nil {
			return w, errors.New("Invalid end date, expected YYYY-MM-DD")
		}
	}
	return w, nil
}

func parseBoolParam(r *http.Request, name string) bool {
	b, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return b
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnknownCategory),
		errors.Is(err, domain.ErrDuplicateCategory),
		errors.Is(err, domain.ErrEmptyKeyword),
		errors.Is(err, domain.ErrSplitMismatch),
		errors.Is(err, domain.ErrUnparsableAmount),
		errors.Is(err, domain.ErrUnparsableDate),
		errors.Is(err, domain.ErrUnrecognizedLayout):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrTransactionNotFound),
		errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, jobs.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrQueueNotDrained),
		errors.Is(err, domain.ErrQueueIdle),
		errors.Is(err, domain.ErrStaleImport):
		return http.StatusConflict
	case errors.Is(err, domain.ErrStoreUnavailable),
		errors.Is(err, domain.ErrNotificationDeliveryFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeServiceError logs err and writes it verbatim with a mapped status.
func writeServiceError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status := statusFor(err)
	log := logger.FromContext(r.Context())
	ev := log.Warn()
	if status >= http.StatusInternalServerError {
		ev = log.Error()
	}
	ev.Err(err).Int("status", status).Msg(msg)
	middleware.WriteError(w, status, err.Error())
}
