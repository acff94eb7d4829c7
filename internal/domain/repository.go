package domain

import (
	"context"
	"time"
)

// Query narrows what a TransactionSource returns
type Query struct {
	MinDate *time.Time // Inclusive, compared with the as-reported date
	MaxDate *time.Time // Inclusive, compared with the as-reported date
	Limit   int        // Maximum transactions per account, 0 means no limit
}

// AccountSource yields the ordered set of accounts of a reconciliation pass
type AccountSource interface {
	Accounts(ctx context.Context) ([]Account, error)
}

// TransactionSource yields the ordered transactions of one account
type TransactionSource interface {
	Transactions(ctx context.Context, account Account, query Query) ([]Transaction, error)
}
