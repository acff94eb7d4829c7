package matcher

import (
	"fmt"

	"github.com/tirasundara/transfer-reconciler/internal/domain"
)

// Classify turns a Pairing into the ReconciliationResult handed to ledger writers.
// A nil pairing classifies every matchable transaction as unmatched.
func Classify(runID string, index *Index, pairing *Pairing) (*domain.ReconciliationResult, error) {
	result := domain.NewReconciliationResult(runID)

	for _, account := range index.Accounts() {
		for _, txn := range index.TransactionsOf(account.ID) {
			entry, err := classifyOne(index, pairing, txn)
			if err != nil {
				return nil, err
			}
			result.Add(entry)
		}
	}

	for _, pair := range pairing.Pairs() {
		result.AddPair(pair)
	}

	return result, nil
}

func classifyOne(index *Index, pairing *Pairing, txn domain.Transaction) (domain.Entry, error) {
	key := txn.Key()
	entry := domain.Entry{Key: key, Transaction: txn}

	if !txn.Matchable() {
		entry.Classification = domain.InsufficientData
		return entry, nil
	}

	if counterpart, ok := pairing.MatchOf(key); ok {
		if err := checkPair(index, txn, counterpart); err != nil {
			return domain.Entry{}, err
		}

		entry.Classification = domain.MatchedTransfer
		entry.Counterpart = &counterpart
		entry.Tier = pairing.matches[key].tier
		return entry, nil
	}

	entry.UnpairedTransfer = txn.IsTransfer()

	switch sign := txn.Value.Decimal.Sign(); {
	case sign <= 0:
		entry.Classification = domain.UnmatchedDebit
	case sign > 0:
		entry.Classification = domain.UnmatchedCredit
	}

	return entry, nil
}

// checkPair enforces that matched legs live in different accounts and cancel exactly
func checkPair(index *Index, txn domain.Transaction, counterpart domain.TransactionKey) error {
	if counterpart.AccountID == txn.AccountID {
		return &domain.StructuralViolationError{Key: txn.Key(), Reason: "matched with a transaction of its own account"}
	}

	for _, other := range index.TransactionsOf(counterpart.AccountID) {
		if other.ID != counterpart.TransactionID {
			continue
		}
		if !txn.Cancels(other) {
			return &domain.StructuralViolationError{
				Key:    txn.Key(),
				Reason: fmt.Sprintf("value %s does not cancel counterpart %s", txn.Value.Decimal, counterpart),
			}
		}
		return nil
	}

	return &domain.StructuralViolationError{Key: txn.Key(), Reason: fmt.Sprintf("counterpart %s is not indexed", counterpart)}
}
