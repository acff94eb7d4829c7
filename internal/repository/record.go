package repository

import (
	"fmt"

	"github.com/tirasundara/transfer-reconciler/internal/domain"
)

// record is the textual form of a transaction shared by the file sources.
// Empty fields are absent.
type record struct {
	ID            string              `yaml:"id"`
	Value         string              `yaml:"value"`
	ValueDateTime string              `yaml:"value_datetime"`
	ValueDate     string              `yaml:"value_date"`
	Date          string              `yaml:"date"`
	Type          string              `yaml:"type"`
	Description   string              `yaml:"description"`
	Counterparty  *counterpartyRecord `yaml:"counterparty"`
}

type counterpartyRecord struct {
	Label                 string `yaml:"label"`
	AccountIdentification string `yaml:"account_identification"`
	AccountSchemeName     string `yaml:"account_scheme_name"`
}

func (r record) toDomain(accountID string) (domain.Transaction, error) {
	key := domain.TransactionKey{AccountID: accountID, TransactionID: r.ID}

	value, err := domain.ParseValue(key, r.Value)
	if err != nil {
		return domain.Transaction{}, err
	}

	valueDateTime, err := domain.ParseOptionalTime(r.ValueDateTime, domain.DateTimeLayouts...)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("parsing value_datetime: %w", err)
	}

	valueDate, err := domain.ParseOptionalTime(r.ValueDate, domain.DateLayouts...)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("parsing value_date: %w", err)
	}

	date, err := domain.ParseOptionalTime(r.Date, domain.DateLayouts...)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("parsing date: %w", err)
	}
	if date == nil {
		return domain.Transaction{}, fmt.Errorf("transaction %s has no date", key)
	}

	typ, err := domain.ParseTransactionType(r.Type)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("parsing type: %w", err)
	}

	txn := domain.Transaction{
		ID:            r.ID,
		AccountID:     accountID,
		Value:         value,
		ValueDateTime: valueDateTime,
		ValueDate:     valueDate,
		Date:          *date,
		Type:          typ,
		Description:   r.Description,
	}

	if cp := r.Counterparty; cp != nil && (cp.Label != "" || cp.AccountIdentification != "" || cp.AccountSchemeName != "") {
		txn.Counterparty = &domain.Counterparty{
			Label:                 cp.Label,
			AccountIdentification: cp.AccountIdentification,
			AccountSchemeName:     cp.AccountSchemeName,
		}
	}

	return txn, nil
}
