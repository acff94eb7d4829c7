package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tirasundara/transfer-reconciler/internal/domain"
	"github.com/tirasundara/transfer-reconciler/internal/matcher"
	"github.com/tirasundara/transfer-reconciler/internal/service"
)

type MockSource struct {
	accounts     []domain.Account
	transactions map[string][]domain.Transaction
	err          error
	queries      []domain.Query
}

func (m *MockSource) Accounts(ctx context.Context) ([]domain.Account, error) {
	return m.accounts, nil
}

func (m *MockSource) Transactions(ctx context.Context, account domain.Account, query domain.Query) ([]domain.Transaction, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.transactions[account.ID], nil
}

type MockWriter struct {
	results []*domain.ReconciliationResult
	err     error
}

func (m *MockWriter) Write(ctx context.Context, result *domain.ReconciliationResult) error {
	m.results = append(m.results, result)
	return m.err
}

func newSource(t *testing.T) *MockSource {
	return &MockSource{
		accounts: []domain.Account{
			{ID: "checking", Number: "FR-CHK", Currency: "EUR", Name: "Checking"},
			{ID: "savings", Number: "FR-SAV", Currency: "EUR", Name: "Savings"},
			{ID: "card", Currency: "EUR", Name: "Card"},
		},
		transactions: map[string][]domain.Transaction{
			"checking": {
				newTxn(t, "checking", "c1", "-500.00", "2025-01-15T14:30:00", "FR-SAV", domain.TypeTransfer),
				newTxn(t, "checking", "c2", "2500.00", "2025-01-16", "", domain.TypeDeposit),
				newTxn(t, "checking", "c3", "-75.00", "2025-01-17", "", domain.TypeTransfer),
				newTxn(t, "checking", "c4", "", "2025-01-18", "", domain.TypeCard),
			},
			"savings": {
				newTxn(t, "savings", "s1", "500.00", "2025-01-15T14:30:00", "FR-CHK", domain.TypeTransfer),
			},
			"card": {
				newTxn(t, "card", "k1", "75.00", "2025-01-17", "", domain.TypeTransfer),
				newTxn(t, "card", "k2", "-12.30", "2025-01-19", "", domain.TypeCard),
			},
		},
	}
}

func newService(source *MockSource, writers ...domain.LedgerWriter) *service.ReconciliationService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.NewReconciliationService(source, source, matcher.DeclineAmbiguous{}, logger, writers...)
	svc.NewRunID = func() string { return "run-test" }
	return svc
}

func TestReconciliationService(t *testing.T) {
	source := newSource(t)
	writer := &MockWriter{}

	result, err := newService(source, writer).Reconcile(context.Background(), service.Options{CombineTransfers: true})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if result.RunID != "run-test" {
		t.Errorf("Expected run id run-test, got %s", result.RunID)
	}

	// Entries follow account order, then transaction order
	expectedOrder := []string{"c1", "c2", "c3", "c4", "s1", "k1", "k2"}
	if len(result.Entries) != len(expectedOrder) {
		t.Fatalf("Expected %d entries, got %d", len(expectedOrder), len(result.Entries))
	}
	for i, id := range expectedOrder {
		if result.Entries[i].Key.TransactionID != id {
			t.Errorf("Expected entry %d to be %s, got %s", i, id, result.Entries[i].Key.TransactionID)
		}
	}

	summary := result.Summary()
	if summary.Pairs != 2 {
		t.Errorf("Expected 2 pairs, got %d", summary.Pairs)
	}
	if summary.MatchedTransfers != 4 {
		t.Errorf("Expected 4 matched transfers, got %d", summary.MatchedTransfers)
	}
	if summary.UnmatchedCredits != 1 || summary.UnmatchedDebits != 1 {
		t.Errorf("Expected 1 unmatched credit and 1 unmatched debit, got %d and %d",
			summary.UnmatchedCredits, summary.UnmatchedDebits)
	}
	if summary.InsufficientData != 1 {
		t.Errorf("Expected 1 insufficient-data entry, got %d", summary.InsufficientData)
	}

	expectedTransferred := decimal.RequireFromString("575")
	if !summary.TotalTransferred.Equal(expectedTransferred) {
		t.Errorf("Expected %s transferred, got %s", expectedTransferred, summary.TotalTransferred)
	}

	// c1/s1 pair on identifiers, c3/k1 on transfer typing
	if key, ok := result.MatchOf(domain.TransactionKey{AccountID: "checking", TransactionID: "c1"}); !ok || key.TransactionID != "s1" {
		t.Errorf("Expected c1 to match s1, got %v", key)
	}
	if entry, _ := result.Lookup(domain.TransactionKey{AccountID: "card", TransactionID: "k1"}); entry.Tier != matcher.TierTransferDate {
		t.Errorf("Expected k1 to pair on %s, got %q", matcher.TierTransferDate, entry.Tier)
	}

	if len(writer.results) != 1 || writer.results[0] != result {
		t.Errorf("Expected the writer to receive the result once")
	}
}

func TestReconciliationService_CombineDisabled(t *testing.T) {
	result, err := newService(newSource(t)).Reconcile(context.Background(), service.Options{CombineTransfers: false})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	summary := result.Summary()
	if summary.Pairs != 0 || summary.MatchedTransfers != 0 {
		t.Errorf("Expected no pairing, got %d pairs", summary.Pairs)
	}
	if summary.UnmatchedCredits != 3 || summary.UnmatchedDebits != 3 {
		t.Errorf("Expected 3 credits and 3 debits, got %d and %d", summary.UnmatchedCredits, summary.UnmatchedDebits)
	}

	// Transfer-typed transactions left unmatched carry the hint
	entry, _ := result.Lookup(domain.TransactionKey{AccountID: "checking", TransactionID: "c1"})
	if !entry.UnpairedTransfer {
		t.Errorf("Expected c1 to be flagged as an unpaired transfer")
	}
}

func TestReconciliationService_StructuralViolationAborts(t *testing.T) {
	source := newSource(t)
	source.transactions["savings"] = append(source.transactions["savings"], source.transactions["savings"][0])
	writer := &MockWriter{}

	_, err := newService(source, writer).Reconcile(context.Background(), service.Options{CombineTransfers: true})

	var violation *domain.StructuralViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("Expected a structural violation, got %v", err)
	}
	if len(writer.results) != 0 {
		t.Errorf("Expected nothing to be written after a structural violation")
	}
}

func TestReconciliationService_SourceError(t *testing.T) {
	source := newSource(t)
	source.err = errors.New("connection reset")

	_, err := newService(source).Reconcile(context.Background(), service.Options{CombineTransfers: true})
	if err == nil || !errors.Is(err, source.err) {
		t.Errorf("Expected the source error to propagate, got %v", err)
	}
}

func TestReconciliationService_WriterError(t *testing.T) {
	writer := &MockWriter{err: errors.New("disk full")}

	result, err := newService(newSource(t), writer).Reconcile(context.Background(), service.Options{CombineTransfers: true})
	if err == nil {
		t.Fatal("Expected the writer error to propagate")
	}
	if result == nil {
		t.Error("Expected the result to be returned alongside the writer error")
	}
}

// Helper building a transaction: a date-only timeStr leaves the value timestamp absent,
// an empty value leaves the value absent
func newTxn(t *testing.T, accountID, id, value, timeStr, counterparty string, typ domain.TransactionType) domain.Transaction {
	t.Helper()

	ts := parseTime(t, timeStr)
	day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)

	txn := domain.Transaction{
		ID:        id,
		AccountID: accountID,
		ValueDate: &day,
		Date:      day,
		Type:      typ,
	}
	if len(timeStr) > 10 {
		txn.ValueDateTime = &ts
	}
	if value != "" {
		txn.Value = decimal.NewNullDecimal(decimal.RequireFromString(value))
	}
	if counterparty != "" {
		txn.Counterparty = &domain.Counterparty{AccountIdentification: counterparty}
	}
	return txn
}

// Helper function to parse time strings
func parseTime(t *testing.T, timeStr string) time.Time {
	var layout string
	if len(timeStr) > 10 {
		layout = "2006-01-02T15:04:05"
	} else {
		layout = "2006-01-02"
	}

	result, err := time.Parse(layout, timeStr)
	if err != nil {
		t.Fatalf("Failed to parse time string '%s': %v", timeStr, err)
	}

	return result
}
