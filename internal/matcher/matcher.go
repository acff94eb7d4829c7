package matcher

import (
	"github.com/tirasundara/transfer-reconciler/internal/domain"
)

// CandidateFinder searches other accounts for counterparts of a transaction
type CandidateFinder struct {
	index *Index
	tiers []Tier
}

// NewCandidateFinder creates a CandidateFinder over the index with the given tiers
func NewCandidateFinder(index *Index, tiers ...Tier) *CandidateFinder {
	if len(tiers) == 0 {
		tiers = DefaultTiers()
	}

	return &CandidateFinder{
		index: index,
		tiers: tiers,
	}
}

// Find returns the candidates of the first tier that yields any, together with that tier.
// Transactions for which skip returns true are not candidates.
// It returns domain.ErrInsufficientData when the origin lacks its value or value-date.
func (f *CandidateFinder) Find(origin domain.Leg, skip func(domain.TransactionKey) bool) ([]domain.Leg, Tier, error) {
	if !origin.Transaction.Matchable() {
		return nil, Tier{}, domain.ErrInsufficientData
	}

	// Try each tier in order until one yields candidates
	for _, tier := range f.tiers {
		var candidates []domain.Leg

		for _, account := range f.scope(tier.Scope, origin) {
			for _, txn := range f.index.TransactionsOf(account.ID) {
				if !txn.Matchable() {
					continue
				}

				candidate := domain.Leg{Account: account, Transaction: txn}
				if skip != nil && skip(candidate.Key()) {
					continue
				}

				if tier.Eligible(origin, candidate) {
					candidates = append(candidates, candidate)
				}
			}
		}

		if len(candidates) > 0 {
			return candidates, tier, nil
		}
	}

	return nil, Tier{}, nil
}

// scope returns the accounts a tier searches, never including the origin's own account
func (f *CandidateFinder) scope(scope Scope, origin domain.Leg) []domain.Account {
	switch scope {
	case ScopeCounterpartyAccount:
		account, ok := f.index.AccountByNumber(origin.Transaction.CounterpartyIdentifier())
		if !ok || account.ID == origin.Account.ID {
			return nil
		}
		return []domain.Account{account}

	case ScopeOtherAccounts:
		accounts := make([]domain.Account, 0, len(f.index.Accounts()))
		for _, account := range f.index.Accounts() {
			if account.ID != origin.Account.ID {
				accounts = append(accounts, account)
			}
		}
		return accounts
	}

	return nil
}
