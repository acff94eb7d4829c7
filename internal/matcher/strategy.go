package matcher

import (
	"github.com/tirasundara/transfer-reconciler/internal/domain"
)

// Scope selects which accounts a tier searches
type Scope int

const (
	// ScopeCounterpartyAccount searches only the account whose number equals
	// the origin's counterparty identifier
	ScopeCounterpartyAccount Scope = iota

	// ScopeOtherAccounts searches every account except the origin's
	ScopeOtherAccounts
)

// Tier names
const (
	TierIdentifierDateTime = "identifier-datetime"
	TierIdentifierDate     = "identifier-date"
	TierTransferDateTime   = "transfer-datetime"
	TierTransferDate       = "transfer-date"
)

// Tier is one level of the candidate cascade: a search scope and the predicate
// a candidate from that scope must satisfy
type Tier struct {
	Name     string
	Scope    Scope
	Eligible func(origin, candidate domain.Leg) bool
}

// DefaultTiers returns the cascade ordered from most to least specific
func DefaultTiers() []Tier {
	return []Tier{
		{
			Name:  TierIdentifierDateTime,
			Scope: ScopeCounterpartyAccount,
			Eligible: func(origin, candidate domain.Leg) bool {
				return identifiesOrigin(origin, candidate) &&
					origin.Transaction.SameValueDateTime(candidate.Transaction) &&
					origin.Transaction.Cancels(candidate.Transaction)
			},
		},
		{
			Name:  TierIdentifierDate,
			Scope: ScopeCounterpartyAccount,
			Eligible: func(origin, candidate domain.Leg) bool {
				return identifiesOrigin(origin, candidate) &&
					origin.Transaction.SameValueDate(candidate.Transaction) &&
					origin.Transaction.Cancels(candidate.Transaction)
			},
		},
		{
			Name:  TierTransferDateTime,
			Scope: ScopeOtherAccounts,
			Eligible: func(origin, candidate domain.Leg) bool {
				return candidate.Transaction.IsTransfer() &&
					origin.Transaction.SameValueDateTime(candidate.Transaction) &&
					origin.Transaction.Cancels(candidate.Transaction)
			},
		},
		{
			Name:  TierTransferDate,
			Scope: ScopeOtherAccounts,
			Eligible: func(origin, candidate domain.Leg) bool {
				return candidate.Transaction.IsTransfer() &&
					origin.Transaction.SameValueDate(candidate.Transaction) &&
					origin.Transaction.Cancels(candidate.Transaction)
			},
		},
	}
}

// identifiesOrigin reports whether the candidate names the origin account as its counterparty
func identifiesOrigin(origin, candidate domain.Leg) bool {
	return origin.Account.HasNumber() &&
		candidate.Transaction.CounterpartyIdentifier() == origin.Account.Number
}
