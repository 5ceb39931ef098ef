// Package normalize coerces raw bank-export fields into canonical amounts
// and calendar dates.
package normalize

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/household-budget/internal/domain"
	"github.com/shopspring/decimal"
)

var amountReplacer = strings.NewReplacer("$", "", ",", "", " ", "", "\u00a0", "")

// ParseAmount strips currency symbols and thousands separators and parses the
// rest as a signed decimal rounded to cents. "(12.50)" is read as -12.50.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := amountReplacer.Replace(strings.TrimSpace(raw))

	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	// "-$12.50" and "$-12.50" both end up as "-12.50" after replacement.
	if s == "" || s == "-" || s == "+" {
		return decimal.Zero, fmt.Errorf("ParseAmount: %q: %w", raw, domain.ErrUnparsableAmount)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("ParseAmount: %q: %w", raw, domain.ErrUnparsableAmount)
	}
	if neg {
		d = d.Neg()
	}
	return d.Round(2), nil
}

// LenientAmount is the persisted-data path: anything unparsable reads as zero
// so one bad historical row cannot block the ledger from loading.
func LenientAmount(raw string) decimal.Decimal {
	d, err := ParseAmount(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}

var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"1/2/06",
	"2006/01/02",
	"Jan 2, 2006",
	"January 2, 2006",
	"02 Jan 2006",
	"2 Jan 2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ParseDate accepts ISO dates first, then the US and textual layouts bank
// exports commonly use.
func ParseDate(raw string) (civil.Date, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return civil.Date{}, fmt.Errorf("ParseDate: empty: %w", domain.ErrUnparsableDate)
	}
	if d, err := civil.ParseDate(s); err == nil {
		return d, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return civil.DateOf(t), nil
		}
	}
	return civil.Date{}, fmt.Errorf("ParseDate: %q: %w", raw, domain.ErrUnparsableDate)
}

// ParseBool reads persisted boolean columns. Unknown values are false.
func ParseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "t", "yes", "y", "1":
		return true
	}
	return false
}

// RawRow is one parsed-but-unsigned import row.
type RawRow struct {
	Date        civil.Date
	Description string
	Amount      decimal.Decimal
}

// NormalizeSigns turns a batch into positive spend magnitudes. The decision is
// made for the whole batch: if any row is negative, negatives are spending and
// are flipped while positive rows (credits, refunds) are dropped; otherwise
// every row is spending and keeps its absolute value.
func NormalizeSigns(rows []RawRow) (kept []RawRow, dropped int) {
	anyNegative := false
	for _, r := range rows {
		if r.Amount.IsNegative() {
			anyNegative = true
			break
		}
	}

	kept = make([]RawRow, 0, len(rows))
	for _, r := range rows {
		if anyNegative {
			if !r.Amount.IsNegative() {
				dropped++
				continue
			}
			r.Amount = r.Amount.Neg()
		} else {
			r.Amount = r.Amount.Abs()
		}
		kept = append(kept, r)
	}
	return kept, dropped
}
