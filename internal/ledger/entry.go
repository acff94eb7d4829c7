// Package ledger turns reconciliation results into ledger entries and stores them.
package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tirasundara/transfer-reconciler/internal/domain"
)

// Kind of ledger entry
type Kind string

const (
	// KindTransfer moves money between two owned accounts
	KindTransfer Kind = "transfer"
	// KindDeposit is money received from outside
	KindDeposit Kind = "deposit"
	// KindWithdrawal is money spent outside
	KindWithdrawal Kind = "withdrawal"
)

// AccountMapper names the ledger account of an aggregator account
type AccountMapper interface {
	LedgerAccount(accountID string) string
}

type identityMapper struct{}

func (identityMapper) LedgerAccount(accountID string) string { return accountID }

// Entry is one ledger line. A transfer has both accounts; a deposit only a
// destination; a withdrawal only a source. Amount is never negative.
type Entry struct {
	Hash               string                 `json:"hash"`
	RunID              string                 `json:"run_id"`
	Kind               Kind                   `json:"kind"`
	SourceAccount      string                 `json:"source_account,omitempty"`
	DestinationAccount string                 `json:"destination_account,omitempty"`
	Amount             decimal.Decimal        `json:"amount"`
	ValueDate          time.Time              `json:"value_date"`
	Description        string                 `json:"description,omitempty"`
	Origin             domain.TransactionKey  `json:"origin"`
	Counterpart        *domain.TransactionKey `json:"counterpart,omitempty"`
	Tier               string                 `json:"tier,omitempty"`
}

// BuildEntries derives the ledger entries of a result: one per pair, one per
// unmatched credit or debit, none for insufficient data. Pairs come first, then
// unmatched entries in result order.
func BuildEntries(result *domain.ReconciliationResult, mapper AccountMapper) ([]Entry, error) {
	if mapper == nil {
		mapper = identityMapper{}
	}

	entries := make([]Entry, 0, len(result.Pairs)+len(result.Entries))

	for _, pair := range result.Pairs {
		origin, ok := result.Lookup(pair.Origin)
		if !ok {
			return nil, fmt.Errorf("pair origin %s has no entry", pair.Origin)
		}
		counterpart, ok := result.Lookup(pair.Counterpart)
		if !ok {
			return nil, fmt.Errorf("pair counterpart %s has no entry", pair.Counterpart)
		}

		// The negative leg is the source; a zero-valued pair keeps the origin as source.
		source, destination := origin, counterpart
		if origin.Transaction.Value.Decimal.IsPositive() {
			source, destination = counterpart, origin
		}

		destinationKey := destination.Key
		entry := Entry{
			RunID:              result.RunID,
			Kind:               KindTransfer,
			SourceAccount:      mapper.LedgerAccount(source.Key.AccountID),
			DestinationAccount: mapper.LedgerAccount(destination.Key.AccountID),
			Amount:             source.Transaction.Value.Decimal.Abs(),
			ValueDate:          effectiveDate(source.Transaction),
			Description:        source.Transaction.Description,
			Origin:             source.Key,
			Counterpart:        &destinationKey,
			Tier:               pair.Tier,
		}
		entry.Hash = hashEntry(entry)
		entries = append(entries, entry)
	}

	for _, e := range result.Entries {
		var entry Entry

		switch e.Classification {
		case domain.UnmatchedCredit:
			entry = Entry{Kind: KindDeposit, DestinationAccount: mapper.LedgerAccount(e.Key.AccountID)}
		case domain.UnmatchedDebit:
			entry = Entry{Kind: KindWithdrawal, SourceAccount: mapper.LedgerAccount(e.Key.AccountID)}
		default:
			continue
		}

		entry.RunID = result.RunID
		entry.Amount = e.Transaction.Value.Decimal.Abs()
		entry.ValueDate = effectiveDate(e.Transaction)
		entry.Description = e.Transaction.Description
		entry.Origin = e.Key
		entry.Hash = hashEntry(entry)
		entries = append(entries, entry)
	}

	return entries, nil
}

func effectiveDate(txn domain.Transaction) time.Time {
	if txn.ValueDate != nil {
		return *txn.ValueDate
	}
	return txn.Date
}

// hashEntry excludes the run id: the same transactions hash alike in every run.
func hashEntry(e Entry) string {
	counterpart := ""
	if e.Counterpart != nil {
		counterpart = e.Counterpart.String()
	}

	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00%s\x00%s\x00%s\x00%s",
		e.Kind, e.SourceAccount, e.DestinationAccount, e.Amount.String(),
		e.ValueDate.Format("2006-01-02"), e.Origin.String(), counterpart)
	return hex.EncodeToString(h.Sum(nil))
}
