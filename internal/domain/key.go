package domain

import "fmt"

// TransactionKey identifies a transaction within a reconciliation pass
type TransactionKey struct {
	AccountID     string `json:"account_id" yaml:"account_id"`
	TransactionID string `json:"transaction_id" yaml:"transaction_id"`
}

func (k TransactionKey) String() string {
	return fmt.Sprintf("%s-%s", k.AccountID, k.TransactionID)
}
