package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tirasundara/transfer-reconciler/internal/domain"
	"github.com/tirasundara/transfer-reconciler/internal/repository"
)

const exportDir = "../../test/testdata/export"

func parseDate(t *testing.T, s string) *time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("Failed to parse date %s: %v", s, err)
	}
	return &d
}

func TestCSVRepository_Accounts(t *testing.T) {
	repo := repository.NewCSVRepository(exportDir, nil)

	accounts, err := repo.Accounts(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(accounts) != 3 {
		t.Fatalf("Expected 3 accounts, got %d", len(accounts))
	}

	if accounts[0].ID != "checking" || accounts[0].Number != "FR7630001007941234567890185" {
		t.Errorf("Unexpected first account %+v", accounts[0])
	}

	if accounts[2].HasNumber() {
		t.Errorf("Expected card account to have no number, got %q", accounts[2].Number)
	}
}

func TestCSVRepository_Transactions(t *testing.T) {
	repo := repository.NewCSVRepository(exportDir, nil)
	checking := domain.Account{ID: "checking"}

	txns, err := repo.Transactions(context.Background(), checking, domain.Query{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(txns) != 4 {
		t.Fatalf("Expected 4 transactions, got %d", len(txns))
	}

	// File order is kept
	for i, id := range []string{"c1", "c2", "c3", "c4"} {
		if txns[i].ID != id {
			t.Errorf("Expected transaction %d to be %s, got %s", i, id, txns[i].ID)
		}
	}

	first := txns[0]
	if !first.Value.Valid || !first.Value.Decimal.Equal(decimal.RequireFromString("-100")) {
		t.Errorf("Expected value -100, got %v", first.Value)
	}
	if first.ValueDateTime == nil || first.ValueDateTime.Hour() != 9 {
		t.Errorf("Expected value timestamp at 09:00, got %v", first.ValueDateTime)
	}
	if first.CounterpartyIdentifier() != "FR7630004000031234567890143" {
		t.Errorf("Unexpected counterparty identifier %q", first.CounterpartyIdentifier())
	}
	if !first.IsTransfer() {
		t.Errorf("Expected c1 to be a transfer, got %s", first.Type)
	}
	if first.AccountID != "checking" {
		t.Errorf("Expected account id checking, got %s", first.AccountID)
	}

	// Absent fields stay absent
	if txns[1].ValueDateTime != nil {
		t.Errorf("Expected no value timestamp for c2, got %v", txns[1].ValueDateTime)
	}
	if txns[1].Counterparty == nil || txns[1].CounterpartyIdentifier() != "" {
		t.Errorf("Expected a label-only counterparty for c2, got %+v", txns[1].Counterparty)
	}
	if txns[2].Value.Valid {
		t.Errorf("Expected no value for c3, got %s", txns[2].Value.Decimal)
	}
}

func TestCSVRepository_TransactionsQuery(t *testing.T) {
	repo := repository.NewCSVRepository(exportDir, nil)
	checking := domain.Account{ID: "checking"}

	txns, err := repo.Transactions(context.Background(), checking, domain.Query{
		MinDate: parseDate(t, "2024-01-11"),
		MaxDate: parseDate(t, "2024-01-20"),
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// c4 is reported on the 21st, outside the range
	if len(txns) != 2 || txns[0].ID != "c2" || txns[1].ID != "c3" {
		t.Errorf("Expected c2 and c3, got %v", ids(txns))
	}

	txns, err = repo.Transactions(context.Background(), checking, domain.Query{Limit: 3})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(txns) != 3 || txns[2].ID != "c3" {
		t.Errorf("Expected the first 3 transactions, got %v", ids(txns))
	}
}

func TestCSVRepository_AccountWithoutFile(t *testing.T) {
	repo := repository.NewCSVRepository(exportDir, nil)

	txns, err := repo.Transactions(context.Background(), domain.Account{ID: "card"}, domain.Query{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(txns) != 0 {
		t.Errorf("Expected no transactions, got %d", len(txns))
	}
}

func TestCSVRepository_NonNumericValue(t *testing.T) {
	repo := repository.NewCSVRepository("../../test/testdata/bad", nil)

	_, err := repo.Transactions(context.Background(), domain.Account{ID: "broken"}, domain.Query{})

	var violation *domain.StructuralViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("Expected a structural violation, got %v", err)
	}
	if violation.Key.TransactionID != "b2" {
		t.Errorf("Expected violation on b2, got %s", violation.Key)
	}
}

func TestCSVRepository_RejectsPathInAccountID(t *testing.T) {
	repo := repository.NewCSVRepository(exportDir, nil)

	_, err := repo.Transactions(context.Background(), domain.Account{ID: "../export/checking"}, domain.Query{})
	if err == nil {
		t.Error("Expected an error for an account id containing a path")
	}
}

func TestCSVRepository_MissingDirectory(t *testing.T) {
	repo := repository.NewCSVRepository(t.TempDir(), nil)

	if _, err := repo.Accounts(context.Background()); err == nil {
		t.Error("Expected an error when accounts.csv is missing")
	}
}

func ids(txns []domain.Transaction) []string {
	out := make([]string, len(txns))
	for i, txn := range txns {
		out[i] = txn.ID
	}
	return out
}
