package domain_test

import (
	"errors"
	"testing"

	"github.com/tirasundara/transfer-reconciler/internal/domain"
)

func TestParseValue(t *testing.T) {
	key := domain.TransactionKey{AccountID: "X", TransactionID: "1"}

	value, err := domain.ParseValue(key, " -1234.56 ")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !value.Valid || value.Decimal.String() != "-1234.56" {
		t.Errorf("Expected -1234.56, got %v", value)
	}

	value, err = domain.ParseValue(key, "")
	if err != nil || value.Valid {
		t.Errorf("Expected an empty value to be absent, got %v (err %v)", value, err)
	}

	_, err = domain.ParseValue(key, "12,30 EUR")
	var violation *domain.StructuralViolationError
	if !errors.As(err, &violation) || violation.Key != key {
		t.Errorf("Expected a structural violation for %v, got %v", key, err)
	}
}

func TestParseOptionalTime(t *testing.T) {
	ts, err := domain.ParseOptionalTime("2024-01-15 10:30:00", domain.DateTimeLayouts...)
	if err != nil || ts == nil || ts.Hour() != 10 || ts.Minute() != 30 {
		t.Errorf("Expected 10:30, got %v (err %v)", ts, err)
	}

	ts, err = domain.ParseOptionalTime("", domain.DateLayouts...)
	if err != nil || ts != nil {
		t.Errorf("Expected an empty date to be absent, got %v (err %v)", ts, err)
	}

	if _, err = domain.ParseOptionalTime("15/01/2024", domain.DateLayouts...); err == nil {
		t.Errorf("Expected an error for an unsupported layout")
	}
}
