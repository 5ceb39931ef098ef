package pipeline

import (
	"fmt"
	"strings"

	"github.com/dvloznov/household-budget/internal/domain"
)

// CategoryValidator checks operator-supplied category labels against the
// rule book and resolves them to their canonical spelling.
type CategoryValidator struct {
	canonical map[string]string // normalized name -> name as stored
}

// NewCategoryValidator creates a validator for the given category names.
func NewCategoryValidator(categories []string) *CategoryValidator {
	v := &CategoryValidator{canonical: make(map[string]string, len(categories))}
	for _, c := range categories {
		n := normalizeCategory(c)
		if n == "" {
			continue
		}
		if _, dup := v.canonical[n]; !dup {
			v.canonical[n] = c
		}
	}
	return v
}

// ValidateCategory returns the stored spelling of category, or an error
// wrapping domain.ErrUnknownCategory. An empty label is valid and means
// uncategorized.
func (v *CategoryValidator) ValidateCategory(category string) (string, error) {
	if strings.TrimSpace(category) == "" {
		return "", nil
	}
	c, ok := v.canonical[normalizeCategory(category)]
	if !ok {
		return "", fmt.Errorf("ValidateCategory: %q: %w", category, domain.ErrUnknownCategory)
	}
	return c, nil
}

// normalizeCategory normalizes a category name for comparison.
// Converts to uppercase and trims whitespace for case-insensitive comparison.
func normalizeCategory(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
