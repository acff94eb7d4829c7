package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/tirasundara/transfer-reconciler/internal/domain"
	"gopkg.in/yaml.v3"
)

// Snapshot is the on-disk form of a YAML export
type Snapshot struct {
	Accounts []snapshotAccount `yaml:"accounts"`
}

type snapshotAccount struct {
	ID           string   `yaml:"id"`
	Number       string   `yaml:"number"`
	Currency     string   `yaml:"currency"`
	Name         string   `yaml:"name"`
	Transactions []record `yaml:"transactions"`
}

// YAMLRepository serves accounts and transactions from a single YAML snapshot.
// The file is read once, on first use.
type YAMLRepository struct {
	FilePath string

	once     sync.Once
	snapshot *Snapshot
	err      error
}

var (
	_ domain.AccountSource     = (*YAMLRepository)(nil)
	_ domain.TransactionSource = (*YAMLRepository)(nil)
)

// NewYAMLRepository creates a new YAMLRepository
func NewYAMLRepository(filePath string) *YAMLRepository {
	return &YAMLRepository{FilePath: filePath}
}

func (r *YAMLRepository) load() (*Snapshot, error) {
	r.once.Do(func() {
		data, err := os.ReadFile(r.FilePath)
		if err != nil {
			r.err = fmt.Errorf("reading snapshot: %w", err)
			return
		}

		var snapshot Snapshot
		if err := yaml.Unmarshal(data, &snapshot); err != nil {
			r.err = fmt.Errorf("parsing snapshot: %w", err)
			return
		}
		r.snapshot = &snapshot
	})

	return r.snapshot, r.err
}

// Accounts returns the snapshot's accounts in file order
func (r *YAMLRepository) Accounts(ctx context.Context) ([]domain.Account, error) {
	snapshot, err := r.load()
	if err != nil {
		return nil, err
	}

	accounts := make([]domain.Account, 0, len(snapshot.Accounts))
	for i, a := range snapshot.Accounts {
		if a.ID == "" {
			return nil, fmt.Errorf("account #%d has no id", i+1)
		}
		accounts = append(accounts, domain.Account{
			ID:       a.ID,
			Number:   a.Number,
			Currency: a.Currency,
			Name:     a.Name,
		})
	}

	return accounts, nil
}

// Transactions returns the account's transactions in file order
func (r *YAMLRepository) Transactions(ctx context.Context, account domain.Account, query domain.Query) ([]domain.Transaction, error) {
	snapshot, err := r.load()
	if err != nil {
		return nil, err
	}

	for _, a := range snapshot.Accounts {
		if a.ID != account.ID {
			continue
		}

		txns := make([]domain.Transaction, 0, len(a.Transactions))
		for i, rec := range a.Transactions {
			if rec.ID == "" {
				return nil, fmt.Errorf("transaction #%d of %s has no id", i+1, account.ID)
			}
			txn, err := rec.toDomain(account.ID)
			if err != nil {
				return nil, fmt.Errorf("transaction %s: %w", rec.ID, err)
			}
			txns = append(txns, txn)
		}

		return applyQuery(txns, query), nil
	}

	return nil, errors.New("account " + account.ID + " is not in the snapshot")
}
