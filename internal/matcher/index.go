package matcher

import (
	"fmt"

	"github.com/tirasundara/transfer-reconciler/internal/domain"
)

// Index groups the transactions of a reconciliation pass by owning account.
// Account order and per-account transaction order are the order they were supplied in.
type Index struct {
	accounts     []domain.Account
	byID         map[string]int
	byNumber     map[string]int
	transactions map[string][]domain.Transaction
	size         int
}

// NewIndex builds an Index. Every transaction must belong to one of the accounts
// and transaction keys must be unique.
func NewIndex(accounts []domain.Account, transactions []domain.Transaction) (*Index, error) {
	idx := &Index{
		accounts:     make([]domain.Account, 0, len(accounts)),
		byID:         make(map[string]int, len(accounts)),
		byNumber:     make(map[string]int, len(accounts)),
		transactions: make(map[string][]domain.Transaction, len(accounts)),
	}

	for _, account := range accounts {
		if _, dup := idx.byID[account.ID]; dup {
			return nil, fmt.Errorf("duplicate account %s", account.ID)
		}

		idx.byID[account.ID] = len(idx.accounts)
		idx.accounts = append(idx.accounts, account)

		// First account wins when the bank reports the same number twice
		if account.HasNumber() {
			if _, seen := idx.byNumber[account.Number]; !seen {
				idx.byNumber[account.Number] = idx.byID[account.ID]
			}
		}
	}

	seen := make(map[domain.TransactionKey]bool, len(transactions))
	for _, txn := range transactions {
		key := txn.Key()

		if _, ok := idx.byID[txn.AccountID]; !ok {
			return nil, &domain.StructuralViolationError{Key: key, Reason: "belongs to an unknown account"}
		}

		if seen[key] {
			return nil, &domain.StructuralViolationError{Key: key, Reason: "supplied more than once"}
		}
		seen[key] = true

		idx.transactions[txn.AccountID] = append(idx.transactions[txn.AccountID], txn)
		idx.size++
	}

	return idx, nil
}

// Accounts returns the accounts in supplied order
func (idx *Index) Accounts() []domain.Account {
	return idx.accounts
}

// Account returns the account with the given identifier
func (idx *Index) Account(id string) (domain.Account, bool) {
	i, ok := idx.byID[id]
	if !ok {
		return domain.Account{}, false
	}
	return idx.accounts[i], true
}

// AccountByNumber returns the account whose bank number equals n.
// Numbers are opaque strings and an empty number never matches.
func (idx *Index) AccountByNumber(n string) (domain.Account, bool) {
	if n == "" {
		return domain.Account{}, false
	}

	i, ok := idx.byNumber[n]
	if !ok {
		return domain.Account{}, false
	}
	return idx.accounts[i], true
}

// TransactionsOf returns the account's transactions in supplied order
func (idx *Index) TransactionsOf(accountID string) []domain.Transaction {
	return idx.transactions[accountID]
}

// Len returns the number of indexed transactions
func (idx *Index) Len() int {
	return idx.size
}
