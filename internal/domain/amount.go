package domain

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ParseAmount converts a Norwegian-formatted currency string into a decimal.
// The bank renders amounts like "11 007,05 kr" with non-breaking or narrow
// spaces as thousand separators and a comma as the decimal mark. A trailing
// "kr" suffix and a leading sign are accepted.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSuffix(s, "kr")
	s = strings.TrimSuffix(s, "KR")

	var b strings.Builder
	for _, r := range s {
		switch r {
		case ' ', ' ', ' ', '.':
			// thousand separators in the wild: space, NBSP, narrow NBSP, dot
		case ',':
			b.WriteRune('.')
		default:
			b.WriteRune(r)
		}
	}

	cleaned := strings.TrimSpace(b.String())
	if cleaned == "" {
		return decimal.Decimal{}, errors.Errorf("no numeric content in amount %q", raw)
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, errors.Wrapf(err, "parse amount %q", raw)
	}
	return d, nil
}
