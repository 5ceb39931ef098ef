package notionsync

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/household-budget/internal/domain"
	"github.com/dvloznov/household-budget/internal/report"
	"github.com/jomei/notionapi"
	"github.com/shopspring/decimal"
)

// Property names in the budget database.
const (
	PropKey        = "Key"
	PropPeriod     = "Period"
	PropCategory   = "Category"
	PropGroup      = "Group"
	PropBudget     = "Budget"
	PropSpent      = "Spent"
	PropRemaining  = "Remaining"
	PropOverBudget = "Over Budget"
	PropWindow     = "Window"
)

// TotalCategory labels the page carrying a period's overall totals.
const TotalCategory = "All categories"

// PageKey identifies the page for one category in one period.
func PageKey(period, category string) string {
	return period + "|" + category
}

// periodOf returns the period part of a page key.
func periodOf(key string) string {
	if i := strings.LastIndex(key, "|"); i >= 0 {
		return key[:i]
	}
	return ""
}

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{
		{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{
				Content: s,
			},
		},
	}
}

func number(d decimal.Decimal) notionapi.NumberProperty {
	return notionapi.NumberProperty{Number: d.InexactFloat64()}
}

func notionDate(d civil.Date) *notionapi.Date {
	nd := notionapi.Date(time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC))
	return &nd
}

// windowProperty maps a report window to a Notion date range. An open
// window has no date.
func windowProperty(w domain.DateRange) (notionapi.DateProperty, bool) {
	if w.IsZero() {
		return notionapi.DateProperty{}, false
	}
	obj := &notionapi.DateObject{}
	switch {
	case w.Start.IsValid():
		obj.Start = notionDate(w.Start)
		if w.End.IsValid() {
			obj.End = notionDate(w.End)
		}
	default:
		obj.Start = notionDate(w.End)
	}
	return notionapi.DateProperty{Date: obj}, true
}

// LineToNotionProperties maps one category line of a summary to page
// properties.
func LineToNotionProperties(period string, window domain.DateRange, line report.Line) notionapi.Properties {
	props := notionapi.Properties{
		PropKey: notionapi.TitleProperty{
			Title: richText(PageKey(period, line.Category)),
		},
		PropPeriod: notionapi.RichTextProperty{
			RichText: richText(period),
		},
		PropCategory: notionapi.RichTextProperty{
			RichText: richText(line.Category),
		},
		PropBudget:    number(line.Budget),
		PropSpent:     number(line.Spent),
		PropRemaining: number(line.Remaining),
		PropOverBudget: notionapi.CheckboxProperty{
			Checkbox: line.OverBudget(),
		},
	}

	if line.Group != "" {
		props[PropGroup] = notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: line.Group,
			},
		}
	}
	if w, ok := windowProperty(window); ok {
		props[PropWindow] = w
	}
	return props
}

// TotalsToNotionProperties maps a summary's overall figures to the period's
// totals page.
func TotalsToNotionProperties(period string, s report.Summary) notionapi.Properties {
	line := report.Line{
		Category:  TotalCategory,
		Budget:    s.Planned,
		Spent:     s.Spent,
		Remaining: s.Remaining,
	}
	props := LineToNotionProperties(period, s.Window, line)
	props["Income"] = number(s.Income)
	if s.HasSavingsRate {
		props["Savings Rate"] = number(s.SavingsRate)
	}
	return props
}

// extractKey returns the page's Key title, or "" for pages this exporter
// did not create.
func extractKey(page notionapi.Page) string {
	switch p := page.Properties[PropKey].(type) {
	case *notionapi.TitleProperty:
		return plainText(p.Title)
	case notionapi.TitleProperty:
		return plainText(p.Title)
	}
	return ""
}

func plainText(rt []notionapi.RichText) string {
	var b strings.Builder
	for _, t := range rt {
		if t.PlainText != "" {
			b.WriteString(t.PlainText)
		} else if t.Text != nil {
			b.WriteString(t.Text.Content)
		}
	}
	return b.String()
}
