package fx

import (
	"database/sql"

	"runcrew/internal/clock"
	"runcrew/internal/config"
	"runcrew/internal/database"
	"runcrew/internal/db"
	"runcrew/internal/logger"
	"runcrew/internal/metrics"
	"runcrew/internal/notify"
	"runcrew/internal/repository"
	"runcrew/internal/server"
	"runcrew/internal/service"
	"runcrew/internal/sweeper"

	"go.uber.org/fx"
)

func ProvideQueries(sqlDB *sql.DB) *db.Queries {
	return db.New(sqlDB)
}

var Module = fx.Options(
	config.Module,
	logger.Module,
	fx.Provide(clock.NewSystem),
	fx.Provide(database.New),
	fx.Provide(ProvideQueries),
	metrics.Module,
	notify.Module,
	// repos
	fx.Provide(repository.NewStore),
	fx.Provide(repository.NewGroupRepository),
	fx.Provide(repository.NewRunningRepository),
	fx.Provide(repository.NewChallengeRepository),
	fx.Provide(repository.NewMatchRepository),
	fx.Provide(repository.NewFailureRepository),
	// svc
	fx.Provide(service.NewGroupService),
	fx.Provide(service.NewChallengeService),
	fx.Provide(service.NewMatchService),
	fx.Provide(service.NewRunningService),
	sweeper.Module,
	// server
	fx.Provide(server.NewCrewServer),
)
