package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"runcrew/internal/db"
	"runcrew/internal/domain"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// Store runs units of work in write transactions. Transactions begin with
// BEGIN IMMEDIATE (see database.Open), so the write lock is held from the first
// statement until commit or rollback; a read done inside InTx is therefore a
// locked read.
type Store struct {
	db      *sql.DB
	queries *db.Queries
	logger  zerolog.Logger
}

func NewStore(sqlDB *sql.DB, queries *db.Queries, logger zerolog.Logger) *Store {
	return &Store{db: sqlDB, queries: queries, logger: logger}
}

// Queries returns the non-transactional query set for read-side projections.
func (s *Store) Queries() *db.Queries {
	return s.queries
}

func (s *Store) InTx(ctx context.Context, fn func(q *db.Queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapErr(fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback()

	if err := fn(s.queries.WithTx(tx)); err != nil {
		return mapErr(err)
	}

	if err := tx.Commit(); err != nil {
		return mapErr(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

// mapErr turns SQLite lock contention into LockTimeoutError. busy_timeout has
// already been spent waiting when SQLITE_BUSY surfaces.
func mapErr(err error) error {
	if err == nil || domain.IsLockTimeout(err) {
		return err
	}
	if isBusy(err) {
		return &domain.LockTimeoutError{Err: err}
	}
	return err
}

func isBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// pick mirrors the optional-transaction convention used by every repository
// method: a nil q means "outside any transaction".
func pick(base, q *db.Queries) *db.Queries {
	if q != nil {
		return q
	}
	return base
}
