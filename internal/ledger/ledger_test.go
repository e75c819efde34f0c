package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runcrew/internal/domain"
)

// memStore keeps rows in a map. hideOnFirstLock makes the first locked read miss
// a row that some other writer already inserted, reproducing the create race.
type memStore struct {
	mu              sync.Mutex
	rows            map[Key]int64
	hideOnFirstLock bool
	vanish          bool
	locks           int
	inserts         int
	insertErr       error
}

func newMemStore() *memStore {
	return &memStore{rows: map[Key]int64{}}
}

func (s *memStore) GetForUpdate(_ context.Context, key Key) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locks++
	if s.hideOnFirstLock && s.locks == 1 {
		return 0, false, nil
	}
	if s.vanish {
		return 0, false, nil
	}
	v, ok := s.rows[key]
	return v, ok, nil
}

func (s *memStore) Insert(_ context.Context, key Key, value int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inserts++
	if s.insertErr != nil {
		return s.insertErr
	}
	if _, ok := s.rows[key]; ok {
		return ErrDuplicate
	}
	s.rows[key] = value
	return nil
}

func (s *memStore) Add(_ context.Context, key Key, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[key] += delta
	return s.rows[key], nil
}

func TestAddCreatesThenAccumulates(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	key := Key{AggregateID: "c1", OwnerID: "u1"}

	v, err := Add(ctx, store, key, 4000)
	require.NoError(t, err)
	assert.Equal(t, int64(4000), v)

	v, err = Add(ctx, store, key, 1500)
	require.NoError(t, err)
	assert.Equal(t, int64(5500), v)
	assert.Equal(t, 1, store.inserts)
}

func TestAddRejectsNonPositiveDelta(t *testing.T) {
	store := newMemStore()
	for _, delta := range []int64{0, -10} {
		_, err := Add(context.Background(), store, Key{AggregateID: "c1", OwnerID: "u1"}, delta)
		require.Error(t, err)
		assert.True(t, domain.IsInvalidContribution(err))
	}
	assert.Zero(t, store.locks, "no row may be touched for an invalid delta")
}

func TestAddAbsorbsInsertConflict(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	key := Key{AggregateID: "m1", OwnerID: "g1"}
	store.rows[key] = 700
	store.hideOnFirstLock = true

	v, err := Add(ctx, store, key, 300)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), v)
	assert.Equal(t, int64(1000), store.rows[key])
	assert.Equal(t, 2, store.locks)
}

func TestAddConflictWithoutRowIsConflictError(t *testing.T) {
	store := newMemStore()
	store.vanish = true
	store.insertErr = ErrDuplicate

	_, err := Add(context.Background(), store, Key{AggregateID: "m1", OwnerID: "g1"}, 10)
	require.Error(t, err)
	assert.True(t, domain.IsConflict(err))
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestAddPropagatesInsertFailure(t *testing.T) {
	store := newMemStore()
	boom := errors.New("disk full")
	store.insertErr = boom

	_, err := Add(context.Background(), store, Key{AggregateID: "c1", OwnerID: "u1"}, 10)
	assert.ErrorIs(t, err, boom)
}

func TestAddConcurrentSum(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	key := Key{AggregateID: "c1", OwnerID: "u1"}

	var wg sync.WaitGroup
	var want int64
	for i := 1; i <= 50; i++ {
		want += int64(i)
		wg.Add(1)
		go func(delta int64) {
			defer wg.Done()
			_, err := Add(ctx, store, key, delta)
			assert.NoError(t, err)
		}(int64(i))
	}
	wg.Wait()

	assert.Equal(t, want, store.rows[key])
}
