// Package storetest holds the behaviour every store backend must share.
package storetest

import (
	"context"
	"testing"

	commonerrors "github.com/ClipFinance/juice-bot-relay/common/errors"
	"github.com/ClipFinance/juice-bot-relay/common/types"
	"github.com/ClipFinance/juice-bot-relay/retrygate"
	"github.com/ClipFinance/juice-bot-relay/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises an empty backend.
func Run(t *testing.T, backend store.Backend) {
	ctx := context.Background()
	repay := retrygate.Key{Subject: "0x1111111111111111111111111111111111111111", Tag: "repay"}
	create := retrygate.Key{Subject: "7", Tag: "3"}

	state := &types.State{
		RetryDelay: 60,
		JobID:      "juice-job",
		Owner:      "owner",
		Metadata: types.Metadata{
			Creator: "creator",
			Signers: []string{"signer-1", "signer-2"},
		},
	}

	t.Run("Empty backend", func(t *testing.T) {
		tx, err := backend.Begin(ctx)
		require.NoError(t, err)
		defer tx.Rollback()

		_, err = tx.LoadState(ctx)
		assert.ErrorIs(t, err, commonerrors.ErrNotInstantiated)

		_, found, err := tx.LastAttempt(ctx, repay)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("Rollback discards writes", func(t *testing.T) {
		tx, err := backend.Begin(ctx)
		require.NoError(t, err)

		require.NoError(t, tx.SaveState(ctx, state))
		require.NoError(t, tx.RecordAttempt(ctx, repay, 10))

		ts, found, err := tx.LastAttempt(ctx, repay)
		require.NoError(t, err)
		assert.True(t, found, "own writes are visible")
		assert.Equal(t, uint64(10), ts)

		require.NoError(t, tx.Rollback())

		records, err := backend.Retries(ctx)
		require.NoError(t, err)
		assert.Empty(t, records)

		check, err := backend.Begin(ctx)
		require.NoError(t, err)
		defer check.Rollback()
		_, err = check.LoadState(ctx)
		assert.ErrorIs(t, err, commonerrors.ErrNotInstantiated)
	})

	t.Run("Commit applies writes", func(t *testing.T) {
		tx, err := backend.Begin(ctx)
		require.NoError(t, err)

		require.NoError(t, tx.SaveState(ctx, state))
		require.NoError(t, tx.RecordAttempt(ctx, repay, 10))
		require.NoError(t, tx.RecordAttempt(ctx, create, 20))
		require.NoError(t, tx.RecordAttempt(ctx, repay, 30))
		require.NoError(t, tx.Commit())

		next, err := backend.Begin(ctx)
		require.NoError(t, err)
		defer next.Rollback()

		loaded, err := next.LoadState(ctx)
		require.NoError(t, err)
		assert.Equal(t, state, loaded)

		ts, found, err := next.LastAttempt(ctx, repay)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, uint64(30), ts)

		records, err := backend.Retries(ctx)
		require.NoError(t, err)
		assert.Equal(t, []store.Record{
			{Key: repay, LastAttempt: 30},
			{Key: create, LastAttempt: 20},
		}, records)
	})

	t.Run("Large timestamps", func(t *testing.T) {
		key := retrygate.Key{Subject: "max", Tag: "ts"}
		const ts = ^uint64(0)

		tx, err := backend.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.RecordAttempt(ctx, key, ts))
		require.NoError(t, tx.Commit())

		next, err := backend.Begin(ctx)
		require.NoError(t, err)
		defer next.Rollback()

		got, found, err := next.LastAttempt(ctx, key)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, ts, got)
	})
}
