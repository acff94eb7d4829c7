package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Layouts accepted for value dates and timestamps
var (
	DateLayouts     = []string{"2006-01-02"}
	DateTimeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"}
)

// ParseValue parses a monetary value without going through floating point.
// An empty string is an absent value; anything else that is not a number
// is a structural violation of the transaction identified by key.
func ParseValue(key TransactionKey, raw string) (decimal.NullDecimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.NullDecimal{}, nil
	}

	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NullDecimal{}, &StructuralViolationError{
			Key:    key,
			Reason: fmt.Sprintf("value %q is not numeric", raw),
		}
	}

	return decimal.NewNullDecimal(value), nil
}

// ParseOptionalTime parses raw with the first layout that fits; empty means absent
func ParseOptionalTime(raw string, layouts ...string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}

	return nil, fmt.Errorf("invalid date %q", raw)
}
