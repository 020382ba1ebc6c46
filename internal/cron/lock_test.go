package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type fakeLockStore struct {
	values map[string]string
	ttls   map[string]time.Duration
	setErr error
}

func newFakeLockStore() *fakeLockStore {
	return &fakeLockStore{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeLockStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if f.setErr != nil {
		return false, f.setErr
	}
	if _, ok := f.values[key]; ok {
		return false, nil
	}
	f.values[key] = value.(string)
	f.ttls[key] = ttl
	return true, nil
}

func (f *fakeLockStore) Get(_ context.Context, key string) (string, error) {
	value, ok := f.values[key]
	if !ok {
		return "", goredis.Nil
	}
	return value, nil
}

func (f *fakeLockStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.values, key)
	}
	return nil
}

func TestLocalLockIsExclusive(t *testing.T) {
	ctx := context.Background()
	lock := NewLocalLock()

	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = lock.Acquire(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, lock.Release(ctx))
	ok, err = lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRedisLockAcquireAndRelease(t *testing.T) {
	ctx := context.Background()
	store := newFakeLockStore()
	first, err := NewRedisLock(store, "mip:maintenance:storage_purge", 0)
	require.NoError(t, err)
	second, err := NewRedisLock(store, "mip:maintenance:storage_purge", time.Minute)
	require.NoError(t, err)

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, defaultLockTTL, store.ttls["mip:maintenance:storage_purge"])

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	// a lock that never acquired must not delete someone else's key
	require.NoError(t, second.Release(ctx))
	require.Contains(t, store.values, "mip:maintenance:storage_purge")

	require.NoError(t, first.Release(ctx))
	require.NotContains(t, store.values, "mip:maintenance:storage_purge")
}

func TestRedisLockReleaseAfterExpiry(t *testing.T) {
	ctx := context.Background()
	store := newFakeLockStore()
	lock, err := NewRedisLock(store, "mip:lock", time.Minute)
	require.NoError(t, err)

	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	delete(store.values, "mip:lock")
	require.NoError(t, lock.Release(ctx))

	store.values["mip:lock"] = "someone-else"
	require.NoError(t, lock.Release(ctx))
	require.Equal(t, "someone-else", store.values["mip:lock"])
}

func TestRedisLockPropagatesStoreErrors(t *testing.T) {
	store := newFakeLockStore()
	store.setErr = errors.New("connection refused")
	lock, err := NewRedisLock(store, "mip:lock", time.Minute)
	require.NoError(t, err)

	_, err = lock.Acquire(context.Background())
	require.Error(t, err)
}

func TestNewRedisLockValidates(t *testing.T) {
	_, err := NewRedisLock(nil, "mip:lock", time.Minute)
	require.Error(t, err)
	_, err = NewRedisLock(newFakeLockStore(), "", time.Minute)
	require.Error(t, err)
}
