package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tirasundara/transfer-reconciler/internal/domain"
)

type mapping map[string]string

func (m mapping) LedgerAccount(id string) string {
	if mapped, ok := m[id]; ok {
		return mapped
	}
	return id
}

func txn(accountID, id, value string, day int) domain.Transaction {
	date := time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC)
	t := domain.Transaction{ID: id, AccountID: accountID, Date: date, Description: "txn " + id}
	if value != "" {
		t.Value = decimal.NewNullDecimal(decimal.RequireFromString(value))
		t.ValueDate = &date
	}
	return t
}

func sampleResult(runID string) *domain.ReconciliationResult {
	// Savings receives first so the pair origin is the positive leg
	in := txn("savings", "s1", "250.00", 10)
	out := txn("checking", "c1", "-250.00", 10)
	salary := txn("checking", "c2", "2000", 12)
	card := txn("checking", "c3", "-42.5", 13)
	pending := txn("checking", "c4", "", 14)

	result := domain.NewReconciliationResult(runID)
	inKey, outKey := in.Key(), out.Key()
	result.Add(domain.Entry{Key: inKey, Transaction: in, Classification: domain.MatchedTransfer, Counterpart: &outKey, Tier: "identifier-datetime"})
	result.Add(domain.Entry{Key: outKey, Transaction: out, Classification: domain.MatchedTransfer, Counterpart: &inKey, Tier: "identifier-datetime"})
	result.Add(domain.Entry{Key: salary.Key(), Transaction: salary, Classification: domain.UnmatchedCredit})
	result.Add(domain.Entry{Key: card.Key(), Transaction: card, Classification: domain.UnmatchedDebit})
	result.Add(domain.Entry{Key: pending.Key(), Transaction: pending, Classification: domain.InsufficientData})
	result.AddPair(domain.Pair{Origin: inKey, Counterpart: outKey, Tier: "identifier-datetime"})

	return result
}

func TestBuildEntries(t *testing.T) {
	entries, err := BuildEntries(sampleResult("run-1"), mapping{"checking": "Main"})
	require.NoError(t, err)
	require.Len(t, entries, 3, "one transfer, one deposit, one withdrawal")

	transfer := entries[0]
	assert.Equal(t, KindTransfer, transfer.Kind)
	assert.Equal(t, "Main", transfer.SourceAccount)
	assert.Equal(t, "savings", transfer.DestinationAccount)
	assert.True(t, transfer.Amount.Equal(decimal.RequireFromString("250")))
	assert.Equal(t, "checking-c1", transfer.Origin.String())
	require.NotNil(t, transfer.Counterpart)
	assert.Equal(t, "savings-s1", transfer.Counterpart.String())
	assert.Equal(t, "identifier-datetime", transfer.Tier)

	deposit := entries[1]
	assert.Equal(t, KindDeposit, deposit.Kind)
	assert.Empty(t, deposit.SourceAccount)
	assert.Equal(t, "Main", deposit.DestinationAccount)

	withdrawal := entries[2]
	assert.Equal(t, KindWithdrawal, withdrawal.Kind)
	assert.Equal(t, "Main", withdrawal.SourceAccount)
	assert.True(t, withdrawal.Amount.Equal(decimal.RequireFromString("42.5")))

	for _, e := range entries {
		assert.Len(t, e.Hash, 64)
	}
}

func TestBuildEntries_HashIgnoresRunID(t *testing.T) {
	first, err := BuildEntries(sampleResult("run-1"), nil)
	require.NoError(t, err)
	second, err := BuildEntries(sampleResult("run-2"), nil)
	require.NoError(t, err)

	for i := range first {
		assert.Equal(t, first[i].Hash, second[i].Hash)
	}
	assert.NotEqual(t, first[1].Hash, first[2].Hash)
}

func TestBuildEntries_MissingPairEntry(t *testing.T) {
	result := domain.NewReconciliationResult("run")
	result.AddPair(domain.Pair{
		Origin:      domain.TransactionKey{AccountID: "a", TransactionID: "1"},
		Counterpart: domain.TransactionKey{AccountID: "b", TransactionID: "2"},
	})

	_, err := BuildEntries(result, nil)
	assert.Error(t, err)
}

func openTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "ledger.db")
	store, err := Open(context.Background(), DriverSQLite, dsn, mapping{"checking": "Main"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_WriteAndRead(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, sampleResult("run-1")))

	entries, err := store.Entries(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// Ordered by value date
	assert.Equal(t, KindTransfer, entries[0].Kind)
	assert.Equal(t, "2024-01-10", entries[0].ValueDate)
	assert.Equal(t, "savings-s1", entries[0].CounterpartKey)
	assert.True(t, entries[0].Amount.Equal(decimal.RequireFromString("250")))
	assert.Equal(t, KindDeposit, entries[1].Kind)
	assert.Equal(t, KindWithdrawal, entries[2].Kind)
}

func TestStore_WriteIsIdempotent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, sampleResult("run-1")))
	require.NoError(t, store.Write(ctx, sampleResult("run-2")))

	all, err := store.Entries(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3, "a second run must not duplicate entries")

	second, err := store.Entries(ctx, "run-2")
	require.NoError(t, err)
	assert.Empty(t, second)
}

func TestStore_TransferSupersedesEarlierWithdrawal(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	// First run only sees the checking leg
	out := txn("checking", "c1", "-250.00", 10)
	early := domain.NewReconciliationResult("run-1")
	early.Add(domain.Entry{Key: out.Key(), Transaction: out, Classification: domain.UnmatchedDebit})
	require.NoError(t, store.Write(ctx, early))

	require.NoError(t, store.Write(ctx, sampleResult("run-2")))

	all, err := store.Entries(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)

	var transfers int
	for _, e := range all {
		if e.OriginKey == "checking-c1" {
			assert.Equal(t, KindTransfer, e.Kind, "the earlier withdrawal must be replaced")
			transfers++
		}
	}
	assert.Equal(t, 1, transfers)
}

func TestStore_MigrationsRerun(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	store, err := Open(ctx, DriverSQLite, dsn, nil, nil)
	require.NoError(t, err)
	require.NoError(t, store.Write(ctx, sampleResult("run-1")))
	require.NoError(t, store.Close())

	store, err = Open(ctx, DriverSQLite, dsn, nil, nil)
	require.NoError(t, err)
	defer store.Close()

	entries, err := store.Entries(ctx, "")
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "dsn", nil, nil)
	assert.Error(t, err)
}
