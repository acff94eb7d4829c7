package domain

// Account represents one bank account linked to the aggregation service
type Account struct {
	ID       string
	Number   string // Bank-issued account number (IBAN); empty when the bank does not expose one
	Currency string
	Name     string
}

// HasNumber reports whether the bank exposed an account number for this account
func (a Account) HasNumber() bool {
	return a.Number != ""
}
