package redisstore

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/ClipFinance/juice-bot-relay/retrygate"
	"github.com/ClipFinance/juice-bot-relay/store/storetest"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBackend(t *testing.T) (*Backend, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	backend := NewBackend(client, "", logger)
	t.Cleanup(func() { _ = backend.Close() })
	return backend, mr
}

func TestBackend(t *testing.T) {
	backend, _ := newTestBackend(t)
	storetest.Run(t, backend)
}

func TestStagedWritesStayLocal(t *testing.T) {
	backend, mr := newTestBackend(t)
	ctx := context.Background()
	key := retrygate.Key{Subject: "7", Tag: "3"}

	tx, err := backend.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.RecordAttempt(ctx, key, 42))
	assert.False(t, mr.Exists(DefaultPrefix+"retries"), "nothing is written before commit")

	require.NoError(t, tx.Commit())
	assert.Equal(t, "42", mr.HGet(DefaultPrefix+"retries", "7/3"))
}

func TestCheckConnection(t *testing.T) {
	backend, mr := newTestBackend(t)
	ctx := context.Background()

	require.NoError(t, backend.CheckConnection(ctx))

	mr.Close()
	assert.Error(t, backend.CheckConnection(ctx))
}

func TestCorruptRecord(t *testing.T) {
	backend, mr := newTestBackend(t)
	ctx := context.Background()
	mr.HSet(DefaultPrefix+"retries", "7/3", "not-a-number")

	tx, err := backend.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback()

	_, _, err = tx.LastAttempt(ctx, retrygate.Key{Subject: "7", Tag: "3"})
	assert.Error(t, err)

	_, err = backend.Retries(ctx)
	assert.Error(t, err)
}

func TestTransactionsAreExclusive(t *testing.T) {
	backend, mr := newTestBackend(t)
	ctx := context.Background()

	first, err := backend.Begin(ctx)
	require.NoError(t, err)
	assert.True(t, mr.Exists(DefaultPrefix+"lock"))

	waitCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()
	_, err = backend.Begin(waitCtx)
	assert.Error(t, err, "a second transaction waits for the first")

	require.NoError(t, first.Commit())
	require.NoError(t, first.Rollback())
	assert.False(t, mr.Exists(DefaultPrefix+"lock"))

	second, err := backend.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, second.Rollback())
}

func TestCommitAfterLockExpiry(t *testing.T) {
	backend, mr := newTestBackend(t)
	ctx := context.Background()

	stale, err := backend.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, stale.RecordAttempt(ctx, retrygate.Key{Subject: "7", Tag: "3"}, 1))

	mr.FastForward(lockExpiry + time.Second)

	current, err := backend.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, current.RecordAttempt(ctx, retrygate.Key{Subject: "7", Tag: "3"}, 2))

	assert.ErrorIs(t, stale.Commit(), ErrLockLost)
	assert.False(t, mr.Exists(DefaultPrefix+"retries"))
	assert.True(t, mr.Exists(DefaultPrefix+"lock"), "the stale transaction leaves the new lock alone")

	require.NoError(t, current.Commit())
	assert.Equal(t, "2", mr.HGet(DefaultPrefix+"retries", "7/3"))
}
