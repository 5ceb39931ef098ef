package handlers

import (
	"net/http"

	"github.com/dvloznov/household-budget/internal/api/middleware"
	"github.com/dvloznov/household-budget/internal/budget"
	"github.com/dvloznov/household-budget/internal/domain"
	"github.com/shopspring/decimal"
)

// Rule is the wire form of a budget category and its learned keywords.
type Rule struct {
	Category string          `json:"category"`
	Group    string          `json:"group"`
	Budget   decimal.Decimal `json:"budget"`
	Keywords []string        `json:"keywords"`
}

// IncomeSource is the wire form of one monthly income amount.
type IncomeSource struct {
	Source string          `json:"source"`
	Amount decimal.Decimal `json:"amount"`
}

// RulesHandler handles category, keyword and income endpoints.
type RulesHandler struct {
	svc *budget.Service
}

// NewRulesHandler creates a new rules handler.
func NewRulesHandler(svc *budget.Service) *RulesHandler {
	return &RulesHandler{svc: svc}
}

// ListRules handles GET /api/rules
func (h *RulesHandler) ListRules(w http.ResponseWriter, r *http.Request) {
	rules := h.svc.Rules()
	out := make([]Rule, len(rules))
	for i, rule := range rules {
		kws := rule.Keywords
		if kws == nil {
			kws = []string{}
		}
		out[i] = Rule{Category: rule.Category, Group: rule.Group, Budget: rule.BudgetAmount, Keywords: kws}
	}
	middleware.WriteJSON(w, http.StatusOK, out)
}

// ReplaceRules handles PUT /api/rules
func (h *RulesHandler) ReplaceRules(w http.ResponseWriter, r *http.Request) {
	var req []Rule
	if !decodeJSON(w, r, &req) {
		return
	}

	rules := make([]domain.CategoryRule, len(req))
	for i, rule := range req {
		rules[i] = domain.CategoryRule{
			Category:     rule.Category,
			Group:        rule.Group,
			BudgetAmount: rule.Budget,
			Keywords:     rule.Keywords,
		}
	}
	if err := h.svc.ReplaceRules(r.Context(), rules); err != nil {
		writeServiceError(w, r, "Failed to replace rules", err)
		return
	}
	h.ListRules(w, r)
}

// Teach handles POST /api/rules/teach
func (h *RulesHandler) Teach(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Keyword      string `json:"keyword"`
		Category     string `json:"category"`
		Recategorize bool   `json:"recategorize"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	added, err := h.svc.Teach(r.Context(), req.Keyword, req.Category)
	if err != nil {
		writeServiceError(w, r, "Failed to teach keyword", err)
		return
	}
	resp := map[string]interface{}{"added": added}
	if req.Recategorize {
		n, err := h.svc.Recategorize(r.Context())
		if err != nil {
			writeServiceError(w, r, "Failed to recategorize", err)
			return
		}
		resp["recategorized"] = n
	}
	middleware.WriteJSON(w, http.StatusOK, resp)
}

// ListCategories handles GET /api/categories
func (h *RulesHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats := h.svc.Categories()
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"categories": cats,
		"count":      len(cats),
	})
}

// GetIncome handles GET /api/income
func (h *RulesHandler) GetIncome(w http.ResponseWriter, r *http.Request) {
	income := h.svc.Income()
	out := make([]IncomeSource, len(income))
	for i, src := range income {
		out[i] = IncomeSource{Source: src.Source, Amount: src.Amount}
	}
	middleware.WriteJSON(w, http.StatusOK, out)
}

// ReplaceIncome handles PUT /api/income
func (h *RulesHandler) ReplaceIncome(w http.ResponseWriter, r *http.Request) {
	var req []IncomeSource
	if !decodeJSON(w, r, &req) {
		return
	}

	income := make([]domain.IncomeSource, len(req))
	for i, src := range req {
		income[i] = domain.IncomeSource{Source: src.Source, Amount: src.Amount}
	}
	if err := h.svc.ReplaceIncome(r.Context(), income); err != nil {
		writeServiceError(w, r, "Failed to replace income", err)
		return
	}
	h.GetIncome(w, r)
}
