package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/tirasundara/transfer-reconciler/internal/domain"
	"github.com/tirasundara/transfer-reconciler/internal/matcher"
	"golang.org/x/sync/errgroup"
)

// DefaultFetchConcurrency bounds the number of accounts fetched at once
const DefaultFetchConcurrency = 4

// Options of one reconciliation run
type Options struct {
	Query            domain.Query
	CombineTransfers bool // When false the cascade is skipped and nothing is paired
}

// ReconciliationService orchestrates the reconciliation process
type ReconciliationService struct {
	accounts      domain.AccountSource
	transactions  domain.TransactionSource
	disambiguator domain.Disambiguator
	writers       []domain.LedgerWriter
	logger        *slog.Logger

	FetchConcurrency int
	NewRunID         func() string
}

// NewReconciliationService creates a new ReconciliationService
func NewReconciliationService(
	accounts domain.AccountSource,
	transactions domain.TransactionSource,
	disambiguator domain.Disambiguator,
	logger *slog.Logger,
	writers ...domain.LedgerWriter,
) *ReconciliationService {
	if logger == nil {
		logger = slog.Default()
	}

	return &ReconciliationService{
		accounts:         accounts,
		transactions:     transactions,
		disambiguator:    disambiguator,
		writers:          writers,
		logger:           logger,
		FetchConcurrency: DefaultFetchConcurrency,
		NewRunID:         uuid.NewString,
	}
}

// Reconcile fetches every account's transactions, pairs the transfers and classifies
// the rest, then hands the result to each ledger writer in turn.
// A structural violation aborts the run before anything is written. When a writer
// fails the result is still returned along with the error.
func (s *ReconciliationService) Reconcile(ctx context.Context, opts Options) (*domain.ReconciliationResult, error) {
	runID := s.NewRunID()
	logger := s.logger.With("run_id", runID)

	accounts, err := s.accounts.Accounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching accounts: %w", err)
	}

	txns, err := s.fetchTransactions(ctx, accounts, opts.Query)
	if err != nil {
		return nil, err
	}
	logger.Info("Fetched transactions", "accounts", len(accounts), "transactions", len(txns))

	index, err := matcher.NewIndex(accounts, txns)
	if err != nil {
		return nil, s.abort(logger, "indexing transactions", err)
	}

	var pairing *matcher.Pairing
	if opts.CombineTransfers {
		resolver := matcher.NewResolver(index, nil, s.disambiguator, logger.With("system", "resolver"))
		if pairing, err = resolver.Resolve(ctx); err != nil {
			return nil, s.abort(logger, "resolving transfers", err)
		}
	} else {
		logger.Info("Transfer combination disabled, skipping matching")
	}

	result, err := matcher.Classify(runID, index, pairing)
	if err != nil {
		return nil, s.abort(logger, "classifying transactions", err)
	}

	summary := result.Summary()
	logger.Info("Reconciliation complete",
		"processed", summary.TotalTxnsProcessed,
		"pairs", summary.Pairs,
		"unmatched_credits", summary.UnmatchedCredits,
		"unmatched_debits", summary.UnmatchedDebits,
		"insufficient_data", summary.InsufficientData,
		"transferred", summary.TotalTransferred.String(),
	)

	for _, w := range s.writers {
		if err := w.Write(ctx, result); err != nil {
			return result, fmt.Errorf("writing result: %w", err)
		}
	}

	return result, nil
}

// fetchTransactions fetches accounts concurrently and concatenates the results in account order
func (s *ReconciliationService) fetchTransactions(ctx context.Context, accounts []domain.Account, query domain.Query) ([]domain.Transaction, error) {
	perAccount := make([][]domain.Transaction, len(accounts))

	g, gctx := errgroup.WithContext(ctx)
	if s.FetchConcurrency > 0 {
		g.SetLimit(s.FetchConcurrency)
	}

	for i, account := range accounts {
		g.Go(func() error {
			txns, err := s.transactions.Transactions(gctx, account, query)
			if err != nil {
				return fmt.Errorf("fetching transactions of account %s: %w", account.ID, err)
			}
			perAccount[i] = txns
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []domain.Transaction
	for _, txns := range perAccount {
		all = append(all, txns...)
	}
	return all, nil
}

func (s *ReconciliationService) abort(logger *slog.Logger, step string, err error) error {
	var violation *domain.StructuralViolationError
	if errors.As(err, &violation) {
		logger.Error("Structural violation, aborting run", "transaction", violation.Key.String(), "reason", violation.Reason)
	}
	return fmt.Errorf("%s: %w", step, err)
}
