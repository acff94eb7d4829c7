package powens

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tirasundara/transfer-reconciler/internal/domain"
)

// Source serves one user's accounts and transactions as domain records
type Source struct {
	client *Client
	token  string
	userID int64
}

var (
	_ domain.AccountSource     = (*Source)(nil)
	_ domain.TransactionSource = (*Source)(nil)
)

// NewSource binds a client to a user
func NewSource(client *Client, token string, userID int64) *Source {
	return &Source{client: client, token: token, userID: userID}
}

// Accounts returns the user's accounts in API order
func (s *Source) Accounts(ctx context.Context) ([]domain.Account, error) {
	accounts, err := s.client.Accounts(ctx, s.token, s.userID)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Account, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, a.toDomain())
	}
	return out, nil
}

// Transactions returns one account's transactions in API order
func (s *Source) Transactions(ctx context.Context, account domain.Account, query domain.Query) ([]domain.Transaction, error) {
	accountID, err := strconv.ParseInt(account.ID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("account id %q is not a powens id: %w", account.ID, err)
	}

	txns, err := s.client.Transactions(ctx, s.token, s.userID, accountID, TransactionQuery{
		Limit:   query.Limit,
		MinDate: query.MinDate,
		MaxDate: query.MaxDate,
	})
	if err != nil {
		return nil, err
	}

	out := make([]domain.Transaction, 0, len(txns))
	for _, t := range txns {
		txn, err := t.toDomain(account.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, txn)
	}
	return out, nil
}

func (a Account) toDomain() domain.Account {
	number := deref(a.IBAN)
	if number == "" {
		number = deref(a.Number)
	}

	return domain.Account{
		ID:       strconv.FormatInt(a.ID, 10),
		Number:   number,
		Currency: a.Currency.ID,
		Name:     a.Name,
	}
}

func (t Transaction) toDomain(accountID string) (domain.Transaction, error) {
	id := strconv.FormatInt(t.ID, 10)
	key := domain.TransactionKey{AccountID: accountID, TransactionID: id}

	value, err := parseRawValue(key, t.Value)
	if err != nil {
		return domain.Transaction{}, err
	}

	valueDateTime, err := domain.ParseOptionalTime(deref(t.VDateTime), domain.DateTimeLayouts...)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("transaction %s vdatetime: %w", key, err)
	}

	valueDate, err := domain.ParseOptionalTime(deref(t.VDate), domain.DateLayouts...)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("transaction %s vdate: %w", key, err)
	}

	date, err := domain.ParseOptionalTime(t.Date, domain.DateLayouts...)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("transaction %s date: %w", key, err)
	}
	if date == nil {
		return domain.Transaction{}, fmt.Errorf("transaction %s has no date", key)
	}

	typ, err := domain.ParseTransactionType(t.Type)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("transaction %s: %w", key, err)
	}

	description := deref(t.Wording)
	if description == "" {
		description = t.OriginalWording
	}

	txn := domain.Transaction{
		ID:            id,
		AccountID:     accountID,
		Value:         value,
		ValueDateTime: valueDateTime,
		ValueDate:     valueDate,
		Date:          *date,
		Type:          typ,
		Description:   description,
	}

	if cp := t.Counterparty; cp != nil {
		txn.Counterparty = &domain.Counterparty{
			Label:                 deref(cp.Label),
			AccountIdentification: deref(cp.AccountIdentification),
			AccountSchemeName:     deref(cp.AccountSchemeName),
		}
	}

	return txn, nil
}

// parseRawValue accepts a JSON number, a numeric string or null
func parseRawValue(key domain.TransactionKey, raw json.RawMessage) (decimal.NullDecimal, error) {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		return decimal.NullDecimal{}, nil
	}

	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return decimal.NullDecimal{}, &domain.StructuralViolationError{Key: key, Reason: "value is not a JSON string or number"}
		}
		text = s
	}

	return domain.ParseValue(key, text)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
