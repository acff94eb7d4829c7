package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/tirasundara/transfer-reconciler/internal/config"
	"github.com/tirasundara/transfer-reconciler/internal/credentials"
	"github.com/tirasundara/transfer-reconciler/internal/domain"
	"github.com/tirasundara/transfer-reconciler/internal/events/kafka"
	"github.com/tirasundara/transfer-reconciler/internal/ledger"
	"github.com/tirasundara/transfer-reconciler/internal/logging"
	"github.com/tirasundara/transfer-reconciler/internal/matcher"
	"github.com/tirasundara/transfer-reconciler/internal/powens"
	"github.com/tirasundara/transfer-reconciler/internal/prompt"
	"github.com/tirasundara/transfer-reconciler/internal/report"
	"github.com/tirasundara/transfer-reconciler/internal/repository"
	"github.com/tirasundara/transfer-reconciler/internal/service"
)

const dateFormat = "2006-01-02"

func main() {
	// Command-line flags
	var (
		configPath         string
		credentialsPath    string
		input              string
		minDateStr         string
		maxDateStr         string
		transactionLimit   int
		noTransfersCombine bool
		auto               bool
		outputFormat       string
		outputFile         string
		prettyPrint        bool
		ledgerDriver       string
		ledgerDSN          string
		kafkaBrokers       string
		kafkaTopic         string
		logLevel           string
		setup              bool
	)

	flag.StringVar(&configPath, "config", "config.yaml", "Path to the config file (falls back to environment variables)")
	flag.StringVar(&credentialsPath, "credentials", "", "Path to the credentials file (default from config)")
	flag.StringVar(&input, "input", "", "CSV export directory or YAML snapshot; when empty, accounts are fetched from Powens")
	flag.StringVar(&minDateStr, "min-date", "", "Ignore transactions reported before this date (YYYY-MM-DD)")
	flag.StringVar(&maxDateStr, "max-date", "", "Ignore transactions reported after this date (YYYY-MM-DD)")
	flag.IntVar(&transactionLimit, "transaction-limit", 0, fmt.Sprintf("Maximum transactions fetched per account (at most %d)", config.MaxTransactionLimit))
	flag.BoolVar(&noTransfersCombine, "no-transfers-combine", false, "Do not pair transfers; classify every transaction on its own")
	flag.BoolVar(&auto, "auto", false, "Never prompt; ambiguous transactions are left unmatched")
	flag.StringVar(&outputFormat, "format", "json", "Output format: json or text")
	flag.StringVar(&outputFile, "output", "", "Path to output file (if empty, writes to stdout)")
	flag.BoolVar(&prettyPrint, "pretty", true, "Pretty print JSON output")
	flag.StringVar(&ledgerDriver, "ledger-driver", "", "Ledger database driver: sqlite3 or postgres")
	flag.StringVar(&ledgerDSN, "ledger-dsn", "", "Ledger database DSN; no ledger is written when empty")
	flag.StringVar(&kafkaBrokers, "kafka-brokers", "", "Comma-separated Kafka brokers; no events are published when empty")
	flag.StringVar(&kafkaTopic, "kafka-topic", "", "Kafka topic for reconciliation events")
	flag.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")
	flag.BoolVar(&setup, "setup", false, "Create a Powens user, write the credentials file and print the bank linking URL")

	flag.Parse()

	// Config first, then flags that were set explicitly
	cfg := config.LoadOrEnvWithPath(configPath)
	var overrideErr error
	flag.Visit(func(f *flag.Flag) {
		if err := applyOverride(cfg, f.Name, f.Value.String()); err != nil && overrideErr == nil {
			overrideErr = err
		}
	})
	if overrideErr != nil {
		exitWithError(overrideErr.Error())
	}
	if err := cfg.Validate(); err != nil {
		exitWithError(fmt.Sprintf("Invalid configuration: %v", err))
	}

	logger := logging.NewLogger(cfg.Observability.Logging)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if setup {
		if err := runSetup(ctx, cfg, logger); err != nil {
			exitWithError(fmt.Sprintf("Setup failed: %v", err))
		}
		return
	}

	// Parse dates
	query := domain.Query{Limit: cfg.Reconciliation.TransactionLimit}
	if minDateStr != "" {
		minDate, err := time.Parse(dateFormat, minDateStr)
		if err != nil {
			exitWithError(fmt.Sprintf("Invalid min date format: %v", err))
		}
		query.MinDate = &minDate
	}
	if maxDateStr != "" {
		maxDate, err := time.Parse(dateFormat, maxDateStr)
		if err != nil {
			exitWithError(fmt.Sprintf("Invalid max date format: %v", err))
		}
		query.MaxDate = &maxDate
	}
	if query.MinDate != nil && query.MaxDate != nil && query.MaxDate.Before(*query.MinDate) {
		exitWithError("Max date must not be before min date")
	}

	formatter, err := report.NewFormatter(outputFormat, prettyPrint)
	if err != nil {
		exitWithError(err.Error())
	}

	// Credentials label ledger accounts; they are required only for the Powens source
	var creds *credentials.Credentials
	if loaded, err := credentials.Load(cfg.CredentialsPath); err == nil {
		creds = loaded
	} else if input == "" {
		exitWithError(fmt.Sprintf("Cannot read credentials (run with -setup to create them): %v", err))
	}

	accounts, transactions, err := buildSources(input, cfg, creds, logger)
	if err != nil {
		exitWithError(err.Error())
	}

	var mapper ledger.AccountMapper
	if creds != nil {
		mapper = creds
	}

	writers, closeWriters, err := buildWriters(ctx, cfg, mapper, logger)
	if err != nil {
		exitWithError(err.Error())
	}
	defer closeWriters()

	// Ambiguities are settled on the terminal unless running unattended
	var disambiguator domain.Disambiguator = matcher.DeclineAmbiguous{}
	if cfg.Reconciliation.Interactive && prompt.IsInteractive(os.Stdin) {
		disambiguator = prompt.New(os.Stdin, os.Stderr)
	} else {
		logger.Info("Running unattended, ambiguous transactions stay unmatched")
	}

	// Create reconciliation service
	reconciliationService := service.NewReconciliationService(accounts, transactions, disambiguator, logger, writers...)

	// Run reconciliation
	result, err := reconciliationService.Reconcile(ctx, service.Options{
		Query:            query,
		CombineTransfers: cfg.Reconciliation.CombineTransfers,
	})
	if err != nil && result == nil {
		closeWriters()
		exitWithError(fmt.Sprintf("Reconciliation failed: %v", err))
	}
	if err != nil {
		logger.Error("Result produced but not fully written", "error", err)
	}

	output, fmtErr := formatter.Format(result)
	if fmtErr != nil {
		exitWithError(fmt.Sprintf("Failed to format output: %v", fmtErr))
	}

	// Output the result
	if outputFile != "" {
		// If no extension is provided, add the formatter's default extension
		if filepath.Ext(outputFile) == "" {
			outputFile = fmt.Sprintf("%s.%s", outputFile, formatter.FileExtension())
		}

		if err := os.WriteFile(outputFile, output, 0644); err != nil {
			exitWithError(fmt.Sprintf("Failed to write output file: %v", err))
		}
	} else {
		// Write output to stdout
		fmt.Println(string(output))
	}

	if err != nil {
		closeWriters()
		os.Exit(1)
	}
}

// applyOverride copies an explicitly set flag onto the loaded config
func applyOverride(cfg *config.Config, name, value string) error {
	switch name {
	case "credentials":
		cfg.CredentialsPath = value
	case "transaction-limit":
		limit, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid transaction limit %q: %w", value, err)
		}
		cfg.Reconciliation.TransactionLimit = limit
	case "no-transfers-combine":
		disabled, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid -no-transfers-combine %q: %w", value, err)
		}
		cfg.Reconciliation.CombineTransfers = !disabled
	case "auto":
		auto, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid -auto %q: %w", value, err)
		}
		cfg.Reconciliation.Interactive = !auto
	case "ledger-driver":
		cfg.Ledger.Driver = value
	case "ledger-dsn":
		cfg.Ledger.DSN = value
	case "kafka-brokers":
		cfg.Kafka.Brokers = config.SplitList(value)
	case "kafka-topic":
		cfg.Kafka.Topic = value
	case "log-level":
		cfg.Observability.Logging.Level = value
	}
	return nil
}

// buildSources picks the transaction source: a YAML snapshot, a CSV export directory,
// or the Powens API
func buildSources(input string, cfg *config.Config, creds *credentials.Credentials, logger *slog.Logger) (domain.AccountSource, domain.TransactionSource, error) {
	switch {
	case input == "":
		domainName := creds.Powens.Domain
		if domainName == "" {
			domainName = cfg.Powens.Domain
		}
		client := powens.NewClient(domainName, logger)
		source := powens.NewSource(client, creds.Powens.Token, creds.Powens.UserID)
		return source, source, nil

	case strings.HasSuffix(input, ".yaml") || strings.HasSuffix(input, ".yml"):
		repo := repository.NewYAMLRepository(input)
		return repo, repo, nil

	default:
		info, err := os.Stat(input)
		if err != nil {
			return nil, nil, fmt.Errorf("reading input: %w", err)
		}
		if !info.IsDir() {
			return nil, nil, fmt.Errorf("input %s is neither a directory nor a YAML snapshot", input)
		}
		repo := repository.NewCSVRepository(input, logger)
		return repo, repo, nil
	}
}

// buildWriters opens the configured ledger writers; the returned func closes them
func buildWriters(ctx context.Context, cfg *config.Config, mapper ledger.AccountMapper, logger *slog.Logger) ([]domain.LedgerWriter, func(), error) {
	var writers []domain.LedgerWriter
	var closers []func() error

	if cfg.Ledger.DSN != "" {
		store, err := ledger.Open(ctx, cfg.Ledger.Driver, cfg.Ledger.DSN, mapper, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("opening ledger: %w", err)
		}
		writers = append(writers, store)
		closers = append(closers, store.Close)
	}

	if len(cfg.Kafka.Brokers) > 0 {
		publisher := kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, mapper, logger)
		writers = append(writers, publisher)
		closers = append(closers, publisher.Close)
	}

	closed := false
	closeAll := func() {
		if closed {
			return
		}
		closed = true
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Warn("Failed to close writer", "error", err)
			}
		}
	}

	return writers, closeAll, nil
}

func exitWithError(message string) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", message)
	fmt.Fprintf(os.Stderr, "Run with -h flag for usage information.\n")
	os.Exit(1)
}
