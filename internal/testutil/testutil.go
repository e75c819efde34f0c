package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"runcrew/internal/database"
	"runcrew/internal/db"
	"runcrew/internal/logger"
	"runcrew/internal/repository"

	"github.com/stretchr/testify/require"
)

// DefaultLockTimeout is generous so concurrency tests queue instead of timing
// out on slow machines.
const DefaultLockTimeout = 10 * time.Second

// OpenDB creates a migrated SQLite database in t's temp dir.
func OpenDB(t testing.TB, lockTimeout time.Duration) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "runcrew.db")
	sqlDB, err := database.Open(path, lockTimeout, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return sqlDB
}

// Repos bundles a store and every repository over one test database.
type Repos struct {
	DB         *sql.DB
	Queries    *db.Queries
	Store      *repository.Store
	Groups     *repository.GroupRepository
	Runnings   *repository.RunningRepository
	Challenges *repository.ChallengeRepository
	Matches    *repository.MatchRepository
	Failures   *repository.FailureRepository
}

func NewRepos(t testing.TB) *Repos {
	return NewReposWithTimeout(t, DefaultLockTimeout)
}

func NewReposWithTimeout(t testing.TB, lockTimeout time.Duration) *Repos {
	t.Helper()

	sqlDB := OpenDB(t, lockTimeout)
	queries := db.New(sqlDB)
	log := logger.Nop()
	return &Repos{
		DB:         sqlDB,
		Queries:    queries,
		Store:      repository.NewStore(sqlDB, queries, log),
		Groups:     repository.NewGroupRepository(queries, log),
		Runnings:   repository.NewRunningRepository(queries, log),
		Challenges: repository.NewChallengeRepository(queries, log),
		Matches:    repository.NewMatchRepository(queries, log),
		Failures:   repository.NewFailureRepository(queries, log),
	}
}
