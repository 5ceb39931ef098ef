package report

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/shopspring/decimal"
)

// Money formats d as $1,234.56, with a leading minus for negatives.
func Money(d decimal.Decimal) string {
	s := d.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}

	sign := ""
	if d.Round(2).IsNegative() {
		sign = "-"
	}
	return sign + "$" + b.String() + "." + frac
}

// PeriodLabel renders the summary window for subjects and headings.
func PeriodLabel(s Summary) string {
	switch {
	case s.Window.IsZero():
		return "all time"
	case !s.Window.Start.IsValid():
		return "through " + s.Window.End.String()
	case !s.Window.End.IsValid():
		return "since " + s.Window.Start.String()
	}
	return s.Window.Start.String() + " to " + s.Window.End.String()
}

// Subject is the email subject line for s.
func Subject(s Summary) string {
	state := "on track"
	if s.Remaining.IsNegative() {
		state = "over budget by " + Money(s.Remaining.Neg())
	}
	return fmt.Sprintf("Household budget %s: %s spent, %s", PeriodLabel(s), Money(s.Spent), state)
}

var funcs = template.FuncMap{
	"money": Money,
	"pct":   func(d decimal.Decimal) string { return d.StringFixed(1) + "%" },
}

var reportTmpl = template.Must(template.New("report").Funcs(funcs).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Budget report {{.Period}}</title>
<style>
body { font-family: Helvetica, Arial, sans-serif; color: #333; }
table { border-collapse: collapse; margin-bottom: 16px; }
th, td { padding: 4px 10px; text-align: right; }
th:first-child, td:first-child { text-align: left; }
.over { color: #b00020; font-weight: bold; }
</style>
</head>
<body>
<h2>Budget report: {{.Period}}</h2>
<table>
<tr><td>Total income</td><td>{{money .S.Income}}</td></tr>
<tr><td>Planned budget</td><td>{{money .S.Planned}}</td></tr>
<tr><td>Actual spent</td><td>{{money .S.Spent}}</td></tr>
<tr><td>Remaining</td><td{{if .S.Remaining.IsNegative}} class="over"{{end}}>{{money .S.Remaining}}</td></tr>
{{if .S.HasSavingsRate}}<tr><td>Savings rate</td><td>{{pct .S.SavingsRate}}</td></tr>{{end}}
</table>
{{if .S.NeedsAttention}}<p>{{.S.NeedsAttention}} transaction(s) need review.</p>{{end}}
{{range .S.Groups}}
<h3>{{.Name}}</h3>
<table>
<tr><th>Category</th><th>Budget</th><th>Spent</th><th>Remaining</th></tr>
{{range .Lines}}<tr><td>{{.Category}}</td><td>{{money .Budget}}</td><td>{{money .Spent}}</td><td{{if .OverBudget}} class="over"{{end}}>{{money .Remaining}}</td></tr>
{{end}}</table>
{{end}}
</body>
</html>
`))

// RenderHTML renders s as a standalone HTML document.
func RenderHTML(s Summary) (string, error) {
	var buf bytes.Buffer
	data := struct {
		Period string
		S      Summary
	}{PeriodLabel(s), s}
	if err := reportTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("RenderHTML: %w", err)
	}
	return buf.String(), nil
}
