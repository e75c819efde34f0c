package database

import (
	"database/sql"
	"embed"
	"fmt"
	"net/url"
	"time"

	"runcrew/internal/config"
	"runcrew/internal/constants"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

func New(cfg *config.Config, logger zerolog.Logger) (*sql.DB, error) {
	return Open(cfg.DBPath, cfg.LockTimeout, logger)
}

// Open connects to the SQLite file at path and applies migrations. Every
// connection gets the same pragmas through the DSN, and every transaction is
// started with BEGIN IMMEDIATE so the write lock is taken up front and waits
// at most lockTimeout for a competing writer.
func Open(path string, lockTimeout time.Duration, logger zerolog.Logger) (*sql.DB, error) {
	logger.Info().Str("path", path).Dur("lock_timeout", lockTimeout).Msg("connecting to database")

	db, err := sql.Open("sqlite3", dsn(path, lockTimeout))
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to database")
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(constants.DBMaxOpenConns)
	db.SetMaxIdleConns(constants.DBMaxIdleConns)
	db.SetConnMaxLifetime(constants.DBConnMaxLifetime)
	db.SetConnMaxIdleTime(constants.DBMaxIdleTime)

	if err := verifyPragmas(db, logger); err != nil {
		db.Close()
		logger.Error().Err(err).Msg("failed to verify SQLite pragmas")
		return nil, fmt.Errorf("failed to verify SQLite pragmas: %w", err)
	}
	if err := runMigrations(db, logger); err != nil {
		db.Close()
		logger.Error().Err(err).Msg("failed to run migrations")
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info().Msg("database connection established")
	return db, nil
}

func dsn(path string, lockTimeout time.Duration) string {
	params := url.Values{}
	params.Set("_busy_timeout", fmt.Sprint(lockTimeout.Milliseconds()))
	params.Set("_txlock", "immediate")
	params.Set("_journal_mode", "WAL")
	params.Set("_synchronous", "NORMAL")
	params.Set("_foreign_keys", "on")
	params.Set("_cache_size", "-64000")
	return "file:" + path + "?" + params.Encode()
}

func runMigrations(db *sql.DB, logger zerolog.Logger) error {
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to run goose migrations: %w", err)
	}

	logger.Info().Msg("migrations completed successfully")
	return nil
}

func verifyPragmas(db *sql.DB, logger zerolog.Logger) error {
	pragmas := []struct {
		name string
		want string
	}{
		{"journal_mode", "wal"},
		{"foreign_keys", "1"},
	}

	for _, pragma := range pragmas {
		var got string
		if err := db.QueryRow("PRAGMA " + pragma.name).Scan(&got); err != nil {
			return fmt.Errorf("failed to read PRAGMA %s: %w", pragma.name, err)
		}
		if got != pragma.want {
			logger.Warn().
				Str("pragma", pragma.name).
				Str("value", got).
				Str("want", pragma.want).
				Msg("unexpected SQLite pragma value")
			return fmt.Errorf("PRAGMA %s = %s, want %s", pragma.name, got, pragma.want)
		}
		logger.Debug().
			Str("pragma", pragma.name).
			Str("value", got).
			Msg("SQLite pragma verified")
	}

	return nil
}
