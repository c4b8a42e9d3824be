package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/lib/pq"

	"github.com/shieldfi/testnet-rewards/internal/config"
	apperrors "github.com/shieldfi/testnet-rewards/internal/errors"
	"github.com/shieldfi/testnet-rewards/pkg/logger"
)

// Store-level sentinels. Guard-uniqueness violations surface as these so
// the engine can treat a lost dedup race as "already awarded" instead of a
// hard failure.
var (
	ErrDuplicateActivity     = errors.New("duplicate activity for guard policy")
	ErrDuplicateReferralCode = errors.New("referral code already taken")
	ErrAccountExists         = errors.New("account already exists")
)

// Postgres constraint names the dedup guard relies on. They must match the
// migrations.
const (
	constraintOnceEver     = "activities_once_ever_key"
	constraintOnceDaily    = "activities_once_daily_key"
	constraintDepositTx    = "activities_deposit_tx_key"
	constraintReferralCode = "accounts_referral_code_key"
	constraintAccountPK    = "accounts_pkey"
)

// DBServiceImpl implements DBService on top of *sql.DB.
type DBServiceImpl struct {
	db *sql.DB
}

// DBOperations abstracts connection opening and migrations so tests can
// substitute a mock database.
type DBOperations interface {
	Open(driverName, dataSourceName string) (*sql.DB, error)
	RunMigrations(db *sql.DB, sourceURL string) error
}

// DefaultDBOperations opens a real connection and runs file migrations.
type DefaultDBOperations struct{}

func (DefaultDBOperations) Open(driverName, dataSourceName string) (*sql.DB, error) {
	return sql.Open(driverName, dataSourceName)
}

func (DefaultDBOperations) RunMigrations(db *sql.DB, sourceURL string) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return &apperrors.DatabaseError{Operation: "create postgres migrate driver", Err: err}
	}

	m, err := migrate.NewWithDatabaseInstance(sourceURL, "postgres", driver)
	if err != nil {
		return &apperrors.DatabaseError{Operation: "create migrate instance", Err: err}
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return &apperrors.DatabaseError{Operation: "apply migrations", Err: err}
	}

	logger.Info("database migrations completed")
	return nil
}

// NewDBService connects to Postgres, applies migrations and returns the
// store.
func NewDBService(cfg config.DatabaseConfig, ops DBOperations) (DBService, error) {
	db, err := ops.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := ops.RunMigrations(db, cfg.MigrationsPath); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DBServiceImpl{db: db}, nil
}

func (s *DBServiceImpl) Close() error {
	return s.db.Close()
}

// uniqueViolation returns the violated constraint name, or "" when the
// error is not a Postgres unique violation.
func uniqueViolation(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return pqErr.Constraint
	}
	return ""
}
