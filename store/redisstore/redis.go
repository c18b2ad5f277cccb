package redisstore

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	commonerrors "github.com/ClipFinance/juice-bot-relay/common/errors"
	"github.com/ClipFinance/juice-bot-relay/common/types"
	"github.com/ClipFinance/juice-bot-relay/retrygate"
	"github.com/ClipFinance/juice-bot-relay/store"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DefaultPrefix namespaces every key written by the backend.
const DefaultPrefix = "relay:"

const (
	lockExpiry     = 10 * time.Second
	lockTries      = 64
	lockRetryDelay = 50 * time.Millisecond
)

var errTxDone = errors.New("transaction already finished")

// ErrLockLost is returned by Commit when the transaction lock expired or was taken over.
var ErrLockLost = errors.New("transaction lock lost before commit")

// Backend stores the relay state as a JSON string and the retry records in one hash.
// Reads go to Redis directly; writes are staged and applied in a MULTI/EXEC block on commit.
// A transaction holds a distributed lock from Begin until Commit or Rollback, so relay
// processes sharing one Redis never interleave their invocations.
type Backend struct {
	client redis.UniversalClient
	locker *redsync.Redsync
	prefix string
	logger *logrus.Logger
}

// NewBackend creates a Redis store backend.
//
// Parameters:
// - client: the Redis client.
// - prefix: the key prefix, DefaultPrefix if empty.
// - logger: the logger for logging events.
//
// Returns:
// - *Backend: the new backend.
func NewBackend(client redis.UniversalClient, prefix string, logger *logrus.Logger) *Backend {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Backend{
		client: client,
		locker: redsync.New(goredis.NewPool(client)),
		prefix: prefix,
		logger: logger,
	}
}

func (b *Backend) stateKey() string {
	return b.prefix + "state"
}

func (b *Backend) retriesKey() string {
	return b.prefix + "retries"
}

func (b *Backend) lockKey() string {
	return b.prefix + "lock"
}

// Begin acquires the backend lock and opens a transaction.
func (b *Backend) Begin(ctx context.Context) (store.Tx, error) {
	mutex := b.locker.NewMutex(
		b.lockKey(),
		redsync.WithExpiry(lockExpiry),
		redsync.WithTries(lockTries),
		redsync.WithRetryDelay(lockRetryDelay),
	)
	if err := mutex.LockContext(ctx); err != nil {
		return nil, errors.Wrapf(err, "failed to acquire lock %s", b.lockKey())
	}

	return &tx{
		backend: b,
		mutex:   mutex,
		retries: make(map[retrygate.Key]uint64),
	}, nil
}

// Retries returns every committed retry record ordered by key.
func (b *Backend) Retries(ctx context.Context) ([]store.Record, error) {
	fields, err := b.client.HGetAll(ctx, b.retriesKey()).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read retry records")
	}

	records := make([]store.Record, 0, len(fields))
	for field, value := range fields {
		key, err := retrygate.ParseKey(field)
		if err != nil {
			return nil, err
		}
		ts, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid timestamp of %s", field)
		}
		records = append(records, store.Record{Key: key, LastAttempt: ts})
	}

	store.SortRecords(records)
	return records, nil
}

// CheckConnection pings Redis.
func (b *Backend) CheckConnection(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Reconnect pings Redis again. The client pool redials broken connections on its own.
func (b *Backend) Reconnect(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Close closes the client.
func (b *Backend) Close() error {
	return b.client.Close()
}

type tx struct {
	backend *Backend
	mutex   *redsync.Mutex
	state   *types.State
	retries map[retrygate.Key]uint64
	done    bool
}

func (t *tx) LastAttempt(ctx context.Context, key retrygate.Key) (uint64, bool, error) {
	if t.done {
		return 0, false, errTxDone
	}
	if ts, ok := t.retries[key]; ok {
		return ts, true, nil
	}

	value, err := t.backend.client.HGet(ctx, t.backend.retriesKey(), key.String()).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrapf(err, "failed to read retry record %s", key)
	}

	ts, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, false, errors.Wrapf(err, "invalid timestamp of %s", key)
	}
	return ts, true, nil
}

func (t *tx) RecordAttempt(_ context.Context, key retrygate.Key, ts uint64) error {
	if t.done {
		return errTxDone
	}
	t.retries[key] = ts
	return nil
}

func (t *tx) LoadState(ctx context.Context) (*types.State, error) {
	if t.done {
		return nil, errTxDone
	}
	if t.state != nil {
		state := *t.state
		state.Metadata.Signers = append([]string(nil), t.state.Metadata.Signers...)
		return &state, nil
	}

	data, err := t.backend.client.Get(ctx, t.backend.stateKey()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, commonerrors.ErrNotInstantiated
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read relay state")
	}

	var state types.State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, errors.Wrap(err, "failed to decode relay state")
	}
	return &state, nil
}

func (t *tx) SaveState(_ context.Context, state *types.State) error {
	if t.done {
		return errTxDone
	}
	staged := *state
	staged.Metadata.Signers = append([]string(nil), state.Metadata.Signers...)
	t.state = &staged
	return nil
}

// Commit writes the staged state and retry records atomically.
func (t *tx) Commit() error {
	if t.done {
		return errTxDone
	}
	t.done = true
	defer t.unlock()

	if t.state == nil && len(t.retries) == 0 {
		return nil
	}

	var state []byte
	if t.state != nil {
		var err error
		if state, err = json.Marshal(t.state); err != nil {
			return errors.Wrap(err, "failed to encode relay state")
		}
	}

	ctx := context.Background()

	// Extending only succeeds while the lock still holds our token.
	if ok, err := t.mutex.ExtendContext(ctx); err != nil || !ok {
		t.backend.logger.WithField("lock", t.backend.lockKey()).WithError(err).Error("Lock lost, discarding transaction")
		return errors.Wrap(ErrLockLost, t.backend.lockKey())
	}

	_, err := t.backend.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if state != nil {
			pipe.Set(ctx, t.backend.stateKey(), state, 0)
		}
		for key, ts := range t.retries {
			pipe.HSet(ctx, t.backend.retriesKey(), key.String(), strconv.FormatUint(ts, 10))
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "failed to commit")
	}

	t.backend.logger.WithField("retries", len(t.retries)).Debug("Redis transaction committed")
	return nil
}

func (t *tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.state = nil
	t.retries = nil
	t.unlock()
	return nil
}

func (t *tx) unlock() {
	if ok, err := t.mutex.UnlockContext(context.Background()); !ok || err != nil {
		t.backend.logger.WithField("lock", t.backend.lockKey()).WithError(err).Warn("Failed to release lock")
	}
}
