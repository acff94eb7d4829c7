package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType represents the kind of operation reported by the bank
type TransactionType uint8

// Transaction types
const (
	TypeUnknown TransactionType = iota
	TypeTransfer
	TypeOrder
	TypeCheck
	TypeDeposit
	TypePayback
	TypeWithdrawal
	TypeLoanRepayment
	TypeBank
	TypeCard
	TypeDeferredCard
	TypeSummaryCard
	TypeMarketOrder
	TypeMarketFee
	TypeArbitrage
	TypeProfit
	TypeRefund
	TypePayout
	TypePayment
	TypeFee
)

var transactionTypeNames = map[TransactionType]string{
	TypeUnknown:       "unknown",
	TypeTransfer:      "transfer",
	TypeOrder:         "order",
	TypeCheck:         "check",
	TypeDeposit:       "deposit",
	TypePayback:       "payback",
	TypeWithdrawal:    "withdrawal",
	TypeLoanRepayment: "loan_repayment",
	TypeBank:          "bank",
	TypeCard:          "card",
	TypeDeferredCard:  "deferred_card",
	TypeSummaryCard:   "summary_card",
	TypeMarketOrder:   "market_order",
	TypeMarketFee:     "market_fee",
	TypeArbitrage:     "arbitrage",
	TypeProfit:        "profit",
	TypeRefund:        "refund",
	TypePayout:        "payout",
	TypePayment:       "payment",
	TypeFee:           "fee",
}

// ParseTransactionType maps the aggregator's type tag onto a TransactionType.
// An empty tag is TypeUnknown; an unrecognised tag is an error.
func ParseTransactionType(s string) (TransactionType, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return TypeUnknown, nil
	}

	for t, name := range transactionTypeNames {
		if name == s {
			return t, nil
		}
	}

	return TypeUnknown, fmt.Errorf("unknown transaction type %q", s)
}

func (t TransactionType) String() string {
	if name, ok := transactionTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TransactionType(%d)", uint8(t))
}

// MarshalText implements encoding.TextMarshaler
func (t TransactionType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (t *TransactionType) UnmarshalText(text []byte) error {
	parsed, err := ParseTransactionType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Counterparty describes the other side of a transaction as reported by the bank.
// Only AccountIdentification takes part in matching.
type Counterparty struct {
	Label                 string
	AccountIdentification string
	AccountSchemeName     string
}

// Transaction represents one transaction of one account.
// Value, ValueDateTime and ValueDate may be absent and are never defaulted.
type Transaction struct {
	ID            string
	AccountID     string
	Value         decimal.NullDecimal
	ValueDateTime *time.Time // Most precise effective timestamp
	ValueDate     *time.Time // Effective calendar date, only Y-M-D is meaningful
	Date          time.Time  // As-reported date
	Counterparty  *Counterparty
	Type          TransactionType
	Description   string
}

// Key returns the composite key identifying this transaction within a reconciliation pass
func (t Transaction) Key() TransactionKey {
	return TransactionKey{AccountID: t.AccountID, TransactionID: t.ID}
}

// CounterpartyIdentifier returns the counterparty account number, or "" when absent
func (t Transaction) CounterpartyIdentifier() string {
	if t.Counterparty == nil {
		return ""
	}
	return t.Counterparty.AccountIdentification
}

// IsTransfer reports whether the bank typed this transaction as a transfer
func (t Transaction) IsTransfer() bool {
	return t.Type == TypeTransfer
}

// Matchable reports whether the transaction carries the value and value-date
// every matching tier needs
func (t Transaction) Matchable() bool {
	return t.Value.Valid && t.ValueDate != nil
}

// Cancels reports whether the two values are exact additive inverses.
// Both values must be present.
func (t Transaction) Cancels(other Transaction) bool {
	if !t.Value.Valid || !other.Value.Valid {
		return false
	}
	return t.Value.Decimal.Add(other.Value.Decimal).IsZero()
}

// SameValueDate compares calendar dates only
func (t Transaction) SameValueDate(other Transaction) bool {
	if t.ValueDate == nil || other.ValueDate == nil {
		return false
	}
	y1, m1, d1 := t.ValueDate.Date()
	y2, m2, d2 := other.ValueDate.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// SameValueDateTime compares value timestamps exactly
func (t Transaction) SameValueDateTime(other Transaction) bool {
	if t.ValueDateTime == nil || other.ValueDateTime == nil {
		return false
	}
	return t.ValueDateTime.Equal(*other.ValueDateTime)
}
