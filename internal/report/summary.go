// Package report aggregates the ledger into budget-vs-actual summaries and
// renders them for email and the dashboard.
package report

import (
	"sort"

	"github.com/dvloznov/household-budget/internal/domain"
	"github.com/shopspring/decimal"
)

// UncategorizedLabel names spend that has no category at all.
const UncategorizedLabel = "Uncategorized"

// Input is everything a summary is computed from.
type Input struct {
	Transactions []domain.Transaction
	Rules        []domain.CategoryRule
	Income       []domain.IncomeSource
	Window       domain.DateRange
}

// Line is one category's budget against its actual spend.
type Line struct {
	Group     string
	Category  string
	Budget    decimal.Decimal
	Spent     decimal.Decimal
	Remaining decimal.Decimal
}

// OverBudget reports whether spend exceeded the budget.
func (l Line) OverBudget() bool {
	return l.Remaining.IsNegative()
}

// Group collects the lines of one reporting group.
type Group struct {
	Name   string
	Lines  []Line
	Budget decimal.Decimal
	Spent  decimal.Decimal
}

// Summary is a period's budget health.
type Summary struct {
	Window         domain.DateRange
	Income         decimal.Decimal
	Planned        decimal.Decimal
	Spent          decimal.Decimal
	Remaining      decimal.Decimal // Planned - Spent
	HasSavingsRate bool
	SavingsRate    decimal.Decimal // percent, one decimal place; only set when Income > 0
	Groups         []Group
	Transactions   int // rows counted toward Spent
	NeedsAttention int // uncategorized or flagged rows in the window
}

// Lines flattens every group's lines in report order.
func (s Summary) Lines() []Line {
	var out []Line
	for _, g := range s.Groups {
		out = append(out, g.Lines...)
	}
	return out
}

// Line returns the line for category, if it appears in the summary.
func (s Summary) Line(category string) (Line, bool) {
	for _, g := range s.Groups {
		for _, l := range g.Lines {
			if l.Category == category {
				return l, true
			}
		}
	}
	return Line{}, false
}

// Summarize computes budget against actual spend over in.Window.
// Reimbursable rows never count as spending. Every rule appears as a line,
// as does any category with spend but no rule; those land in the
// Uncategorized group. Groups and the lines inside them are sorted by name.
func Summarize(in Input) Summary {
	s := Summary{Window: in.Window}

	for _, src := range in.Income {
		s.Income = s.Income.Add(src.Amount)
	}

	budget := make(map[string]decimal.Decimal, len(in.Rules))
	groupOf := make(map[string]string, len(in.Rules))
	for _, r := range in.Rules {
		budget[r.Category] = r.BudgetAmount
		groupOf[r.Category] = r.Group
		s.Planned = s.Planned.Add(r.BudgetAmount)
	}

	spent := make(map[string]decimal.Decimal)
	for _, tx := range in.Transactions {
		if !in.Window.Contains(tx.Date) {
			continue
		}
		if tx.NeedsAttention() {
			s.NeedsAttention++
		}
		if tx.IsReimbursable {
			continue
		}
		cat := tx.Category
		if cat == "" {
			cat = UncategorizedLabel
		}
		spent[cat] = spent[cat].Add(tx.Amount)
		s.Spent = s.Spent.Add(tx.Amount)
		s.Transactions++
	}

	active := make(map[string]bool, len(budget)+len(spent))
	for c := range budget {
		active[c] = true
	}
	for c := range spent {
		active[c] = true
	}

	byGroup := make(map[string][]Line)
	for c := range active {
		g, ok := groupOf[c]
		if !ok {
			g = domain.UncategorizedGroup
		}
		line := Line{
			Group:     g,
			Category:  c,
			Budget:    budget[c],
			Spent:     spent[c],
			Remaining: budget[c].Sub(spent[c]),
		}
		byGroup[g] = append(byGroup[g], line)
	}

	names := make([]string, 0, len(byGroup))
	for g := range byGroup {
		names = append(names, g)
	}
	sort.Strings(names)

	for _, name := range names {
		lines := byGroup[name]
		sort.Slice(lines, func(i, j int) bool { return lines[i].Category < lines[j].Category })
		g := Group{Name: name, Lines: lines}
		for _, l := range lines {
			g.Budget = g.Budget.Add(l.Budget)
			g.Spent = g.Spent.Add(l.Spent)
		}
		s.Groups = append(s.Groups, g)
	}

	s.Remaining = s.Planned.Sub(s.Spent)
	if s.Income.IsPositive() {
		s.HasSavingsRate = true
		s.SavingsRate = s.Income.Sub(s.Spent).Div(s.Income).Mul(decimal.NewFromInt(100)).Round(1)
	}
	return s
}

// Status is the manual-entry check for one category: its budget and what is
// still available.
type Status struct {
	Category  string
	Budget    decimal.Decimal
	Spent     decimal.Decimal
	Remaining decimal.Decimal
}

// CategoryStatus computes the budget left for category over window.
func CategoryStatus(category string, txs []domain.Transaction, rules []domain.CategoryRule, window domain.DateRange) Status {
	st := Status{Category: category}
	for _, r := range rules {
		if r.Category == category {
			st.Budget = r.BudgetAmount
			break
		}
	}
	for _, tx := range txs {
		if tx.Category == category && !tx.IsReimbursable && window.Contains(tx.Date) {
			st.Spent = st.Spent.Add(tx.Amount)
		}
	}
	st.Remaining = st.Budget.Sub(st.Spent)
	return st
}
