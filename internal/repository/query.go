package repository

import (
	"time"

	"github.com/tirasundara/transfer-reconciler/internal/domain"
)

// applyQuery filters by as-reported date range then applies the limit, keeping order
func applyQuery(txns []domain.Transaction, query domain.Query) []domain.Transaction {
	filtered := make([]domain.Transaction, 0, len(txns))

	for _, txn := range txns {
		if !inRange(txn.Date, query.MinDate, query.MaxDate) {
			continue
		}

		filtered = append(filtered, txn)
		if query.Limit > 0 && len(filtered) >= query.Limit {
			break
		}
	}

	return filtered
}

func inRange(date time.Time, minDate, maxDate *time.Time) bool {
	txnDay := date.Truncate(24 * time.Hour)

	if minDate != nil && txnDay.Before(minDate.Truncate(24*time.Hour)) {
		return false
	}
	if maxDate != nil && txnDay.After(maxDate.Truncate(24*time.Hour)) {
		return false
	}

	return true
}
