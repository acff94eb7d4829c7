// Package credentials reads and writes the credentials file shared by the
// aggregator client and the ledger writers.
package credentials

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FireflyTokenType is the kind of token the ledger accepts
type FireflyTokenType string

const (
	// BearerToken is a personal access token
	BearerToken FireflyTokenType = "BearerToken"
	// AccessToken is an OAuth token
	AccessToken FireflyTokenType = "AccessToken"
)

// ParseFireflyTokenType accepts the canonical names and the short answers given at setup
func ParseFireflyTokenType(s string) (FireflyTokenType, error) {
	switch s {
	case string(BearerToken), "", "access token", "at":
		return BearerToken, nil
	case string(AccessToken), "oauth", "oa":
		return AccessToken, nil
	}
	return "", fmt.Errorf("unknown token type %q", s)
}

// UnmarshalYAML rejects unknown token types
func (t *FireflyTokenType) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := ParseFireflyTokenType(value.Value)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// PowensCredentials identifies one aggregator user
type PowensCredentials struct {
	Domain   string `yaml:"domain"`
	ClientID string `yaml:"client_id"`
	UserID   int64  `yaml:"user_id"`
	Token    string `yaml:"token"`
}

// FireflyCredentials reaches the ledger application
type FireflyCredentials struct {
	URL       string           `yaml:"url"`
	Token     string           `yaml:"token"`
	TokenType FireflyTokenType `yaml:"token_type"`
}

// Credentials is the content of the credentials file.
// Mapping links aggregator account ids to ledger account ids.
type Credentials struct {
	Powens  PowensCredentials  `yaml:"powens"`
	Firefly FireflyCredentials `yaml:"firefly"`
	Mapping map[string]string  `yaml:"mapping"`

	path string
}

// ErrIncomplete is returned when a loaded file lacks a required field
var ErrIncomplete = errors.New("credentials file is incomplete")

// New creates credentials that Save writes to path
func New(path string, powens PowensCredentials, firefly FireflyCredentials) *Credentials {
	return &Credentials{
		Powens:  powens,
		Firefly: firefly,
		Mapping: map[string]string{},
		path:    path,
	}
}

// Load reads a credentials file. Every aggregator field must be present.
func Load(path string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading credentials: %w", err)
	}

	var creds Credentials
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("parsing credentials %s: %w", path, err)
	}

	if err := creds.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if creds.Mapping == nil {
		creds.Mapping = map[string]string{}
	}
	creds.path = path

	return &creds, nil
}

func (c *Credentials) validate() error {
	var missing []string
	if c.Powens.Domain == "" {
		missing = append(missing, "powens.domain")
	}
	if c.Powens.ClientID == "" {
		missing = append(missing, "powens.client_id")
	}
	if c.Powens.UserID == 0 {
		missing = append(missing, "powens.user_id")
	}
	if c.Powens.Token == "" {
		missing = append(missing, "powens.token")
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %v", ErrIncomplete, missing)
	}
	return nil
}

// Path returns the file the credentials were loaded from or will be saved to
func (c *Credentials) Path() string {
	return c.path
}

// Save writes the credentials back to their file, readable by the owner only
func (c *Credentials) Save() error {
	if c.path == "" {
		return errors.New("credentials have no file path")
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	if err := os.WriteFile(c.path, data, 0600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	return nil
}

// LedgerAccount returns the ledger account mapped to an aggregator account, or
// the aggregator id itself when unmapped
func (c *Credentials) LedgerAccount(accountID string) string {
	if c != nil {
		if mapped, ok := c.Mapping[accountID]; ok && mapped != "" {
			return mapped
		}
	}
	return accountID
}
