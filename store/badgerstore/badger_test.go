package badgerstore

import (
	"context"
	"io"
	"testing"

	"github.com/ClipFinance/juice-bot-relay/retrygate"
	"github.com/ClipFinance/juice-bot-relay/store/storetest"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestInMemoryBackend(t *testing.T) {
	backend, err := Open("", quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	storetest.Run(t, backend)
}

func TestReopenKeepsRecords(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	key := retrygate.Key{Subject: "7", Tag: "3"}

	backend, err := Open(dir, quietLogger())
	require.NoError(t, err)

	tx, err := backend.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.RecordAttempt(ctx, key, 99))
	require.NoError(t, tx.Commit())
	require.NoError(t, backend.Close())
	assert.Error(t, backend.CheckConnection(ctx))

	backend, err = Open(dir, quietLogger())
	require.NoError(t, err)
	defer backend.Close()
	require.NoError(t, backend.CheckConnection(ctx))

	tx, err = backend.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback()

	ts, found, err := tx.LastAttempt(ctx, key)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, uint64(99), ts)
}
