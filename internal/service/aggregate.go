package service

import (
	"context"

	"runcrew/internal/db"
	"runcrew/internal/domain"
	"runcrew/internal/repository"
)

// applied describes what an aggregate update touched. aggregateID is empty
// when the update was a no-op; onCommit runs only after the surrounding
// transaction commits.
type applied struct {
	aggregateID string
	onCommit    func()
}

// aggregateUpdater credits one persisted running to a downstream aggregate
// inside the caller's transaction.
type aggregateUpdater interface {
	kind() domain.AggregateKind
	updateTx(ctx context.Context, q *db.Queries, running *domain.Running) (applied, error)
}

// applyInTx runs u in its own transaction and fires onCommit after commit.
func applyInTx(ctx context.Context, store *repository.Store, u aggregateUpdater, running *domain.Running) (applied, error) {
	var result applied
	err := store.InTx(ctx, func(q *db.Queries) error {
		var err error
		result, err = u.updateTx(ctx, q, running)
		return err
	})
	if err != nil {
		return applied{}, err
	}
	if result.onCommit != nil {
		result.onCommit()
	}
	return result, nil
}
