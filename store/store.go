package store

import (
	"context"
	"sort"

	"github.com/ClipFinance/juice-bot-relay/common/types"
	"github.com/ClipFinance/juice-bot-relay/retrygate"
)

// StateStore holds the singular relay configuration record.
type StateStore interface {
	// LoadState returns the configuration record, or ErrNotInstantiated if none was saved.
	LoadState(ctx context.Context) (*types.State, error)

	// SaveState replaces the configuration record.
	SaveState(ctx context.Context, state *types.State) error
}

// Tx is a store handle scoped to one invocation. Writes become visible to other
// transactions only after Commit; Rollback discards them. A handle must not be used
// after Commit or Rollback.
type Tx interface {
	retrygate.Store
	StateStore

	// Commit applies every write made through the handle.
	Commit() error

	// Rollback discards every write made through the handle. It is safe to call after Commit.
	Rollback() error
}

// Backend opens invocation-scoped transactions over the persistent key-value store.
type Backend interface {
	// Begin opens a new transaction.
	Begin(ctx context.Context) (Tx, error)

	// Retries returns every committed retry record ordered by key.
	Retries(ctx context.Context) ([]Record, error)

	// Close releases the backend resources.
	Close() error
}

// Record is one committed retry record.
type Record struct {
	Key         retrygate.Key `json:"key"`
	LastAttempt uint64        `json:"last_attempt"`
}

// SortRecords orders records by subject, then tag.
func SortRecords(records []Record) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].Key.Subject != records[j].Key.Subject {
			return records[i].Key.Subject < records[j].Key.Subject
		}
		return records[i].Key.Tag < records[j].Key.Tag
	})
}
