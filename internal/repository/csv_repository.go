package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tirasundara/transfer-reconciler/internal/domain"
	"github.com/tirasundara/transfer-reconciler/pkg/fileutil"
)

const accountsFile = "accounts.csv"

var (
	accountHeaderFields   = []string{"id", "number", "currency"}
	accountOptionalFields = []string{"name"}

	transactionHeaderFields   = []string{"id", "value", "value_date", "date", "type"}
	transactionOptionalFields = []string{
		"value_datetime",
		"counterparty_identification",
		"counterparty_label",
		"counterparty_scheme",
		"description",
	}
)

// CSVRepository reads an export directory: accounts.csv plus one <account id>.csv
// of transactions per account. It implements domain.AccountSource and
// domain.TransactionSource.
type CSVRepository struct {
	Dir        string
	NumWorkers int
	BatchSize  int

	logger *slog.Logger
}

var (
	_ domain.AccountSource     = (*CSVRepository)(nil)
	_ domain.TransactionSource = (*CSVRepository)(nil)
)

// NewCSVRepository creates a new CSVRepository
func NewCSVRepository(dir string, logger *slog.Logger) *CSVRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &CSVRepository{
		Dir:        dir,
		NumWorkers: 4,    // Default to 4 workers
		BatchSize:  1000, // Default to 1000 records per batch
		logger:     logger.With("system", "csv"),
	}
}

// Accounts reads accounts.csv in file order
func (r *CSVRepository) Accounts(ctx context.Context) ([]domain.Account, error) {
	reader := fileutil.NewCSVReader(filepath.Join(r.Dir, accountsFile))

	header, err := reader.ReadHeader()
	if err != nil {
		return nil, fmt.Errorf("reading accounts header: %w", err)
	}

	columnMap, err := createHeaderMap(header, accountHeaderFields, accountOptionalFields)
	if err != nil {
		return nil, fmt.Errorf("mapping CSV columns: %w", err)
	}

	var accounts []domain.Account
	err = reader.ReadAndProcessByRow(func(line int, row []string) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		id := field(row, columnMap, "id")
		if id == "" {
			return fmt.Errorf("%s line %d: account id is empty", accountsFile, line)
		}

		accounts = append(accounts, domain.Account{
			ID:       id,
			Number:   field(row, columnMap, "number"),
			Currency: field(row, columnMap, "currency"),
			Name:     field(row, columnMap, "name"),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("processing accounts: %w", err)
	}

	return accounts, nil
}

// Transactions reads the account's transaction file in file order.
// An account without a file has no transactions.
func (r *CSVRepository) Transactions(ctx context.Context, account domain.Account, query domain.Query) ([]domain.Transaction, error) {
	if filepath.Base(account.ID) != account.ID {
		return nil, fmt.Errorf("account id %q cannot name a file", account.ID)
	}

	path := filepath.Join(r.Dir, account.ID+".csv")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		r.logger.Debug("No transaction file for account", "account", account.ID, "path", path)
		return nil, nil
	}

	reader := fileutil.NewCSVReader(path)

	header, err := reader.ReadHeader()
	if err != nil {
		return nil, fmt.Errorf("reading transactions header: %w", err)
	}

	columnMap, err := createHeaderMap(header, transactionHeaderFields, transactionOptionalFields)
	if err != nil {
		return nil, fmt.Errorf("mapping CSV columns: %w", err)
	}

	txns, err := fileutil.ParseOrdered(reader, r.NumWorkers, r.BatchSize,
		func(line int, row []string) (domain.Transaction, bool, error) {
			txn, err := parseTransactionRow(account.ID, row, columnMap)
			if err != nil {
				return domain.Transaction{}, false, fmt.Errorf("%s line %d: %w", filepath.Base(path), line, err)
			}
			return txn, true, nil
		})
	if err != nil {
		return nil, fmt.Errorf("processing transactions of %s: %w", account.ID, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	txns = applyQuery(txns, query)
	r.logger.Debug("Loaded transactions", "account", account.ID, "count", len(txns))

	return txns, nil
}

func parseTransactionRow(accountID string, row []string, columnMap map[string]int) (domain.Transaction, error) {
	id := field(row, columnMap, "id")
	if id == "" {
		return domain.Transaction{}, errors.New("transaction id is empty")
	}

	rec := record{
		ID:            id,
		Value:         field(row, columnMap, "value"),
		ValueDateTime: field(row, columnMap, "value_datetime"),
		ValueDate:     field(row, columnMap, "value_date"),
		Date:          field(row, columnMap, "date"),
		Type:          field(row, columnMap, "type"),
		Description:   field(row, columnMap, "description"),
		Counterparty: &counterpartyRecord{
			Label:                 field(row, columnMap, "counterparty_label"),
			AccountIdentification: field(row, columnMap, "counterparty_identification"),
			AccountSchemeName:     field(row, columnMap, "counterparty_scheme"),
		},
	}

	return rec.toDomain(accountID)
}
