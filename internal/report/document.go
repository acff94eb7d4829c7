package report

import (
	"github.com/tirasundara/transfer-reconciler/internal/domain"
)

const dateLayout = "2006-01-02"

// Document is the serialized form of a reconciliation result
type Document struct {
	RunID   string         `json:"run_id"`
	Summary domain.Summary `json:"summary"`
	Entries []EntryView    `json:"entries"`
	Pairs   []domain.Pair  `json:"pairs"`
}

// EntryView flattens one result entry. Absent values are omitted, never zeroed.
type EntryView struct {
	AccountID        string                 `json:"account_id"`
	TransactionID    string                 `json:"transaction_id"`
	Classification   domain.Classification  `json:"classification"`
	Value            *string                `json:"value,omitempty"`
	ValueDate        string                 `json:"value_date,omitempty"`
	ValueDateTime    string                 `json:"value_datetime,omitempty"`
	Date             string                 `json:"date"`
	Type             domain.TransactionType `json:"type"`
	Description      string                 `json:"description,omitempty"`
	Counterpart      *domain.TransactionKey `json:"counterpart,omitempty"`
	Tier             string                 `json:"tier,omitempty"`
	UnpairedTransfer bool                   `json:"unpaired_transfer,omitempty"`
}

// NewDocument builds the document for a result, keeping entry order
func NewDocument(result *domain.ReconciliationResult) Document {
	doc := Document{
		RunID:   result.RunID,
		Summary: result.Summary(),
		Entries: make([]EntryView, 0, len(result.Entries)),
		Pairs:   result.Pairs,
	}
	if doc.Pairs == nil {
		doc.Pairs = []domain.Pair{}
	}

	for _, entry := range result.Entries {
		doc.Entries = append(doc.Entries, newEntryView(entry))
	}

	return doc
}

func newEntryView(entry domain.Entry) EntryView {
	txn := entry.Transaction

	view := EntryView{
		AccountID:        entry.Key.AccountID,
		TransactionID:    entry.Key.TransactionID,
		Classification:   entry.Classification,
		Date:             txn.Date.Format(dateLayout),
		Type:             txn.Type,
		Description:      txn.Description,
		Counterpart:      entry.Counterpart,
		Tier:             entry.Tier,
		UnpairedTransfer: entry.UnpairedTransfer,
	}

	if txn.Value.Valid {
		value := txn.Value.Decimal.String()
		view.Value = &value
	}
	if txn.ValueDate != nil {
		view.ValueDate = txn.ValueDate.Format(dateLayout)
	}
	if txn.ValueDateTime != nil {
		view.ValueDateTime = txn.ValueDateTime.Format("2006-01-02T15:04:05Z07:00")
	}

	return view
}
