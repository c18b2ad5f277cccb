package retrygate

import (
	"context"
	"io"
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapStore struct {
	records map[Key]uint64
	failGet error
}

func newMapStore() *mapStore {
	return &mapStore{records: make(map[Key]uint64)}
}

func (s *mapStore) LastAttempt(_ context.Context, key Key) (uint64, bool, error) {
	if s.failGet != nil {
		return 0, false, s.failGet
	}
	ts, ok := s.records[key]
	return ts, ok, nil
}

func (s *mapStore) RecordAttempt(_ context.Context, key Key, ts uint64) error {
	s.records[key] = ts
	return nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestGateAdmit(t *testing.T) {
	const delay = 100
	ctx := context.Background()
	key := Key{Subject: "7", Tag: "3"}

	store := newMapStore()
	gate := New(store, delay, quietLogger())

	t.Run("Fresh key is admitted at zero", func(t *testing.T) {
		admitted, err := gate.Admit(ctx, key, 0)
		require.NoError(t, err)
		assert.True(t, admitted)
		assert.Equal(t, uint64(0), store.records[key])
	})

	t.Run("Inside the window is rejected", func(t *testing.T) {
		admitted, err := gate.Admit(ctx, key, delay/2)
		require.NoError(t, err)
		assert.False(t, admitted)
		assert.Equal(t, uint64(0), store.records[key])
	})

	t.Run("Window boundary is still rejected", func(t *testing.T) {
		admitted, err := gate.Admit(ctx, key, delay)
		require.NoError(t, err)
		assert.False(t, admitted)
	})

	t.Run("After the window is admitted", func(t *testing.T) {
		admitted, err := gate.Admit(ctx, key, delay+1)
		require.NoError(t, err)
		assert.True(t, admitted)
		assert.Equal(t, uint64(delay+1), store.records[key])
	})

	t.Run("Other keys are independent", func(t *testing.T) {
		admitted, err := gate.Admit(ctx, Key{Subject: "7", Tag: "2"}, delay+1)
		require.NoError(t, err)
		assert.True(t, admitted)
	})
}

func TestGateStoreFailure(t *testing.T) {
	store := newMapStore()
	store.failGet = errors.New("boom")

	admitted, err := New(store, 10, quietLogger()).Admit(context.Background(), Key{Subject: "a", Tag: "b"}, 50)
	assert.Error(t, err)
	assert.False(t, admitted)
	assert.Empty(t, store.records)
}

func TestExpired(t *testing.T) {
	assert.True(t, Expired(0, 0, 1))
	assert.False(t, Expired(5, 0, 5))
	assert.False(t, Expired(10, 5, 3), "clock behind the record")
	assert.False(t, Expired(1, math.MaxUint64, math.MaxUint64))
	assert.True(t, Expired(0, math.MaxUint64-1, math.MaxUint64))
}

func TestKeyString(t *testing.T) {
	key := Key{Subject: "0xabc", Tag: "repay"}
	assert.Equal(t, "0xabc/repay", key.String())

	parsed, err := ParseKey(key.String())
	require.NoError(t, err)
	assert.Equal(t, key, parsed)

	_, err = ParseKey("no-separator")
	assert.Error(t, err)
}
