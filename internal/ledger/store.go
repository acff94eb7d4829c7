package ledger

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"
	"github.com/tirasundara/transfer-reconciler/internal/domain"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Supported database drivers
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Store persists ledger entries in SQLite or PostgreSQL.
// It implements domain.LedgerWriter.
type Store struct {
	db     *sql.DB
	mapper AccountMapper
	logger *slog.Logger
	now    func() time.Time
}

// Compile-time check that Store implements LedgerWriter
var _ domain.LedgerWriter = (*Store)(nil)

// Open connects to the database and runs all pending migrations
func Open(ctx context.Context, driver, dsn string, mapper AccountMapper, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("system", "ledger")

	dialect, err := gooseDialect(driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening ledger database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to ledger database: %w", err)
	}

	if err := migrate(ctx, db, dialect, logger); err != nil {
		_ = db.Close()
		return nil, err
	}

	if mapper == nil {
		mapper = identityMapper{}
	}

	return &Store{
		db:     db,
		mapper: mapper,
		logger: logger,
		now:    time.Now,
	}, nil
}

func gooseDialect(driver string) (goose.Dialect, error) {
	switch driver {
	case DriverSQLite:
		return goose.DialectSQLite3, nil
	case DriverPostgres:
		return goose.DialectPostgres, nil
	default:
		return "", fmt.Errorf("unsupported ledger driver %q", driver)
	}
}

func migrate(ctx context.Context, db *sql.DB, dialect goose.Dialect, logger *slog.Logger) error {
	fsys, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}

	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return fmt.Errorf("preparing migrations: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	for _, r := range results {
		logger.Debug("Applied migration", "version", r.Source.Version, "duration", r.Duration)
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Write stores the entries of a result. Entries already stored by an earlier run
// are skipped; the whole result is written in one transaction. A transfer
// supersedes the deposit or withdrawal an earlier run stored for either leg.
func (s *Store) Write(ctx context.Context, result *domain.ReconciliationResult) error {
	entries, err := BuildEntries(result, s.mapper)
	if err != nil {
		return fmt.Errorf("building ledger entries: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO ledger_entries
	(hash, run_id, kind, source_account, destination_account, amount, value_date,
	 description, origin_key, counterpart_key, tier, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (hash) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	supersede, err := tx.PrepareContext(ctx, `
	DELETE FROM ledger_entries
	WHERE kind <> 'transfer' AND (origin_key = $1 OR origin_key = $2)
	`)
	if err != nil {
		return fmt.Errorf("preparing supersede: %w", err)
	}
	defer supersede.Close()

	createdAt := s.now().UTC().Format(time.RFC3339)
	inserted, superseded := 0, 0

	for _, e := range entries {
		counterpart := ""
		if e.Counterpart != nil {
			counterpart = e.Counterpart.String()
		}

		if e.Kind == KindTransfer {
			res, err := supersede.ExecContext(ctx, e.Origin.String(), counterpart)
			if err != nil {
				return fmt.Errorf("superseding single-sided entries of %s: %w", e.Origin, err)
			}
			if n, err := res.RowsAffected(); err == nil {
				superseded += int(n)
			}
		}

		res, err := stmt.ExecContext(ctx,
			e.Hash,
			e.RunID,
			string(e.Kind),
			e.SourceAccount,
			e.DestinationAccount,
			e.Amount.String(),
			e.ValueDate.Format("2006-01-02"),
			e.Description,
			e.Origin.String(),
			counterpart,
			e.Tier,
			createdAt,
		)
		if err != nil {
			return fmt.Errorf("inserting ledger entry %s: %w", e.Origin, err)
		}

		if n, err := res.RowsAffected(); err == nil && n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing ledger entries: %w", err)
	}

	s.logger.Info("Ledger updated", "run_id", result.RunID, "entries", len(entries), "inserted", inserted, "duplicates", len(entries)-inserted, "superseded", superseded)
	return nil
}

// StoredEntry is a ledger row as read back from the database
type StoredEntry struct {
	Hash               string
	RunID              string
	Kind               Kind
	SourceAccount      string
	DestinationAccount string
	Amount             decimal.Decimal
	ValueDate          string
	Description        string
	OriginKey          string
	CounterpartKey     string
	Tier               string
}

// Entries lists the stored entries of a run, or of every run when runID is empty
func (s *Store) Entries(ctx context.Context, runID string) ([]StoredEntry, error) {
	query := `
	SELECT hash, run_id, kind, source_account, destination_account, amount, value_date,
	       description, origin_key, counterpart_key, tier
	FROM ledger_entries
	WHERE CAST($1 AS TEXT) = '' OR run_id = $1
	ORDER BY value_date, hash
	`

	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("querying ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []StoredEntry
	for rows.Next() {
		var e StoredEntry
		var kind, amount string
		if err := rows.Scan(&e.Hash, &e.RunID, &kind, &e.SourceAccount, &e.DestinationAccount, &amount,
			&e.ValueDate, &e.Description, &e.OriginKey, &e.CounterpartKey, &e.Tier); err != nil {
			return nil, fmt.Errorf("scanning ledger entry: %w", err)
		}

		e.Kind = Kind(kind)
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("ledger entry %s has invalid amount %q: %w", e.Hash, amount, err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
