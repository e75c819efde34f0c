package ledger

import (
	"context"
	"errors"
	"fmt"

	"runcrew/internal/domain"
)

// ErrDuplicate is returned by Store.Insert when another writer created the
// same (aggregate, owner) row first.
var ErrDuplicate = errors.New("ledger row already exists")

// Key identifies one ledger row: an aggregate and the party credited inside it
// (a contributor for challenges, a group for matches).
type Key struct {
	AggregateID string
	OwnerID     string
}

// Store is the row-level persistence a ledger needs. Every method runs inside the
// caller's transaction; GetForUpdate holds the row lock until that transaction ends.
type Store interface {
	GetForUpdate(ctx context.Context, key Key) (value int64, found bool, err error)
	Insert(ctx context.Context, key Key, value int64) error
	Add(ctx context.Context, key Key, delta int64) (int64, error)
}

// Add credits delta to the row for key, creating it when absent. A concurrent
// first insert of the same key is absorbed by re-reading the winner's row and
// adding to it. Returns the row's new cumulative value.
func Add(ctx context.Context, store Store, key Key, delta int64) (int64, error) {
	if delta <= 0 {
		return 0, &domain.InvalidContributionError{Delta: delta}
	}

	_, found, err := store.GetForUpdate(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("failed to lock ledger row: %w", err)
	}
	if found {
		return addExisting(ctx, store, key, delta)
	}

	err = store.Insert(ctx, key, delta)
	if err == nil {
		return delta, nil
	}
	if !errors.Is(err, ErrDuplicate) {
		return 0, fmt.Errorf("failed to insert ledger row: %w", err)
	}

	_, found, err = store.GetForUpdate(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("failed to re-lock ledger row: %w", err)
	}
	if !found {
		return 0, &domain.ConflictError{
			Reason: fmt.Sprintf("ledger row %s/%s vanished after insert conflict", key.AggregateID, key.OwnerID),
			Err:    ErrDuplicate,
		}
	}
	return addExisting(ctx, store, key, delta)
}

func addExisting(ctx context.Context, store Store, key Key, delta int64) (int64, error) {
	value, err := store.Add(ctx, key, delta)
	if err != nil {
		return 0, fmt.Errorf("failed to add to ledger row: %w", err)
	}
	return value, nil
}
