package domain

import "context"

// Leg is a transaction together with the account that owns it
type Leg struct {
	Account     Account
	Transaction Transaction
}

// Key returns the composite key of the leg's transaction
func (l Leg) Key() TransactionKey {
	return TransactionKey{AccountID: l.Account.ID, TransactionID: l.Transaction.ID}
}

// Disambiguator picks one counterpart when the cascade yields several.
// Returning ok=false declines the choice and leaves the origin unmatched.
type Disambiguator interface {
	Resolve(ctx context.Context, origin Leg, candidates []Leg) (choice Leg, ok bool, err error)
}

// LedgerWriter receives the finished result of a reconciliation pass
type LedgerWriter interface {
	Write(ctx context.Context, result *ReconciliationResult) error
}
