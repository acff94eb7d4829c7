package domain

import "github.com/shopspring/decimal"

// Classification is the coarse outcome of reconciling one transaction
type Classification string

// Classifications handed to the ledger writer
const (
	MatchedTransfer  Classification = "matched-transfer"
	UnmatchedCredit  Classification = "unmatched-credit"
	UnmatchedDebit   Classification = "unmatched-debit"
	InsufficientData Classification = "insufficient-data"
)

// Entry is the reconciliation outcome of one transaction
type Entry struct {
	Key              TransactionKey  `json:"key"`
	Transaction      Transaction     `json:"transaction"`
	Classification   Classification  `json:"classification"`
	Counterpart      *TransactionKey `json:"counterpart,omitempty"`
	Tier             string          `json:"tier,omitempty"`
	UnpairedTransfer bool            `json:"unpaired_transfer,omitempty"` // Typed transfer but no counterpart found
}

// Pair is one physical transfer, recorded once from the side visited first
type Pair struct {
	Origin      TransactionKey `json:"origin"`
	Counterpart TransactionKey `json:"counterpart"`
	Tier        string         `json:"tier"`
}

// Summary aggregates a ReconciliationResult
type Summary struct {
	TotalTxnsProcessed int             `json:"total_txns_processed"`
	MatchedTransfers   int             `json:"matched_transfers"`
	UnmatchedCredits   int             `json:"unmatched_credits"`
	UnmatchedDebits    int             `json:"unmatched_debits"`
	InsufficientData   int             `json:"insufficient_data"`
	Pairs              int             `json:"pairs"`
	TotalTransferred   decimal.Decimal `json:"total_transferred"`
}

// ReconciliationResult contains the result of one reconciliation pass.
// Entries keep the order in which transactions were supplied.
type ReconciliationResult struct {
	RunID   string  `json:"run_id"`
	Entries []Entry `json:"entries"`
	Pairs   []Pair  `json:"pairs"`

	index map[TransactionKey]int
}

// NewReconciliationResult creates an empty result for the given run
func NewReconciliationResult(runID string) *ReconciliationResult {
	return &ReconciliationResult{
		RunID:   runID,
		Entries: make([]Entry, 0),
		Pairs:   make([]Pair, 0),
		index:   make(map[TransactionKey]int),
	}
}

// Add appends an entry, replacing any previous entry with the same key
func (r *ReconciliationResult) Add(entry Entry) {
	if r.index == nil {
		r.index = make(map[TransactionKey]int)
	}

	if i, ok := r.index[entry.Key]; ok {
		r.Entries[i] = entry
		return
	}

	r.index[entry.Key] = len(r.Entries)
	r.Entries = append(r.Entries, entry)
}

// AddPair records a physical transfer
func (r *ReconciliationResult) AddPair(pair Pair) {
	r.Pairs = append(r.Pairs, pair)
}

// Lookup returns the entry for a key
func (r *ReconciliationResult) Lookup(key TransactionKey) (Entry, bool) {
	i, ok := r.index[key]
	if !ok {
		return Entry{}, false
	}
	return r.Entries[i], true
}

// MatchOf returns the counterpart of a matched transaction
func (r *ReconciliationResult) MatchOf(key TransactionKey) (TransactionKey, bool) {
	entry, ok := r.Lookup(key)
	if !ok || entry.Counterpart == nil {
		return TransactionKey{}, false
	}
	return *entry.Counterpart, true
}

// Summary computes aggregate counts over the entries
func (r *ReconciliationResult) Summary() Summary {
	s := Summary{
		TotalTxnsProcessed: len(r.Entries),
		Pairs:              len(r.Pairs),
		TotalTransferred:   decimal.Zero,
	}

	for _, entry := range r.Entries {
		switch entry.Classification {
		case MatchedTransfer:
			s.MatchedTransfers++
		case UnmatchedCredit:
			s.UnmatchedCredits++
		case UnmatchedDebit:
			s.UnmatchedDebits++
		case InsufficientData:
			s.InsufficientData++
		}
	}

	for _, pair := range r.Pairs {
		if entry, ok := r.Lookup(pair.Origin); ok && entry.Transaction.Value.Valid {
			s.TotalTransferred = s.TotalTransferred.Add(entry.Transaction.Value.Decimal.Abs())
		}
	}

	return s
}
