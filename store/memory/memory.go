package memory

import (
	"context"
	"sync"

	commonerrors "github.com/ClipFinance/juice-bot-relay/common/errors"
	"github.com/ClipFinance/juice-bot-relay/common/types"
	"github.com/ClipFinance/juice-bot-relay/retrygate"
	"github.com/ClipFinance/juice-bot-relay/store"
	"github.com/pkg/errors"
)

var errTxDone = errors.New("transaction already finished")

// Backend is an in-process store. Transactions stage their writes and apply them on commit.
type Backend struct {
	mutex   sync.RWMutex
	state   *types.State
	retries map[retrygate.Key]uint64
}

// NewBackend creates an empty in-memory backend.
func NewBackend() *Backend {
	return &Backend{retries: make(map[retrygate.Key]uint64)}
}

// Begin opens a transaction over the backend.
func (b *Backend) Begin(_ context.Context) (store.Tx, error) {
	return &tx{
		backend: b,
		retries: make(map[retrygate.Key]uint64),
	}, nil
}

// CheckConnection always succeeds.
func (b *Backend) CheckConnection(_ context.Context) error {
	return nil
}

// Reconnect always succeeds.
func (b *Backend) Reconnect(_ context.Context) error {
	return nil
}

// Close is a no-op.
func (b *Backend) Close() error {
	return nil
}

// Retries returns every committed retry record ordered by key.
func (b *Backend) Retries(_ context.Context) ([]store.Record, error) {
	b.mutex.RLock()
	records := make([]store.Record, 0, len(b.retries))
	for k, v := range b.retries {
		records = append(records, store.Record{Key: k, LastAttempt: v})
	}
	b.mutex.RUnlock()

	store.SortRecords(records)
	return records, nil
}

// Snapshot returns a copy of every committed retry record.
func (b *Backend) Snapshot() map[retrygate.Key]uint64 {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	out := make(map[retrygate.Key]uint64, len(b.retries))
	for k, v := range b.retries {
		out[k] = v
	}
	return out
}

type tx struct {
	backend *Backend
	state   *types.State
	retries map[retrygate.Key]uint64
	done    bool
}

func (t *tx) LastAttempt(_ context.Context, key retrygate.Key) (uint64, bool, error) {
	if t.done {
		return 0, false, errTxDone
	}
	if ts, ok := t.retries[key]; ok {
		return ts, true, nil
	}

	t.backend.mutex.RLock()
	ts, ok := t.backend.retries[key]
	t.backend.mutex.RUnlock()
	return ts, ok, nil
}

func (t *tx) RecordAttempt(_ context.Context, key retrygate.Key, ts uint64) error {
	if t.done {
		return errTxDone
	}
	t.retries[key] = ts
	return nil
}

func (t *tx) LoadState(_ context.Context) (*types.State, error) {
	if t.done {
		return nil, errTxDone
	}
	if t.state != nil {
		return copyState(t.state), nil
	}

	t.backend.mutex.RLock()
	defer t.backend.mutex.RUnlock()

	if t.backend.state == nil {
		return nil, commonerrors.ErrNotInstantiated
	}
	return copyState(t.backend.state), nil
}

func (t *tx) SaveState(_ context.Context, state *types.State) error {
	if t.done {
		return errTxDone
	}
	t.state = copyState(state)
	return nil
}

func (t *tx) Commit() error {
	if t.done {
		return errTxDone
	}
	t.done = true

	t.backend.mutex.Lock()
	defer t.backend.mutex.Unlock()

	if t.state != nil {
		t.backend.state = t.state
	}
	for k, v := range t.retries {
		t.backend.retries[k] = v
	}
	return nil
}

func (t *tx) Rollback() error {
	t.done = true
	t.retries = nil
	t.state = nil
	return nil
}

func copyState(state *types.State) *types.State {
	out := *state
	out.Metadata.Signers = append([]string(nil), state.Metadata.Signers...)
	return &out
}
