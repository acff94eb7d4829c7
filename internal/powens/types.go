package powens

import "encoding/json"

// Currency of an account
type Currency struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Symbol    string `json:"symbol"`
	Precision int    `json:"precision"`
}

// Account as listed by the API
type Account struct {
	ID               int64    `json:"id"`
	ConnectionID     int64    `json:"id_connection"`
	Name             string   `json:"name"`
	Number           *string  `json:"number"`
	IBAN             *string  `json:"iban"`
	Currency         Currency `json:"currency"`
	Type             string   `json:"type"`
	FormattedBalance string   `json:"formatted_balance"`
	Disabled         *string  `json:"disabled"`
	Deleted          *string  `json:"deleted"`
}

// Counterparty as reported by the bank
type Counterparty struct {
	Label                 *string `json:"label"`
	AccountSchemeName     *string `json:"account_scheme_name"`
	AccountIdentification *string `json:"account_identification"`
	Type                  *string `json:"type"`
}

// Transaction as listed by the API. Value is kept raw so it never passes
// through floating point.
type Transaction struct {
	ID              int64           `json:"id"`
	AccountID       int64           `json:"id_account"`
	Date            string          `json:"date"`
	DateTime        *string         `json:"datetime"`
	RDate           *string         `json:"rdate"`
	VDate           *string         `json:"vdate"`
	VDateTime       *string         `json:"vdatetime"`
	Value           json.RawMessage `json:"value"`
	Type            string          `json:"type"`
	Wording         *string         `json:"wording"`
	OriginalWording string          `json:"original_wording"`
	Coming          bool            `json:"coming"`
	Counterparty    *Counterparty   `json:"counterparty"`
}

// Connector is a bank that can be connected
type Connector struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Connection links a user to a bank
type Connection struct {
	ID         int64   `json:"id"`
	BankID     int64   `json:"id_bank"`
	Created    *string `json:"created"`
	LastUpdate *string `json:"last_update"`
	NextTry    *string `json:"next_try"`
	Expire     *string `json:"expire"`
	State      *string `json:"state"`
}
