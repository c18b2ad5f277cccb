package badgerstore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"strings"

	commonerrors "github.com/ClipFinance/juice-bot-relay/common/errors"
	"github.com/ClipFinance/juice-bot-relay/common/types"
	"github.com/ClipFinance/juice-bot-relay/retrygate"
	"github.com/ClipFinance/juice-bot-relay/store"
	badgerdb "github.com/dgraph-io/badger/v3"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	stateKey     = []byte("state")
	retryPrefix  = []byte("retry/")
	errBadRecord = errors.New("invalid retry record")
)

// Backend is an embedded BadgerDB store. Every relay transaction is a Badger read-write transaction.
type Backend struct {
	db     *badgerdb.DB
	logger *logrus.Logger
}

// Open opens or creates the database in dir. An empty dir keeps the database in memory.
//
// Parameters:
// - dir: the data directory.
// - logger: the logger, also used for Badger's own messages.
//
// Returns:
// - *Backend: the new backend.
// - error: an error if the database cannot be opened.
func Open(dir string, logger *logrus.Logger) (*Backend, error) {
	opts := badgerdb.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = logger

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open badger database %q", dir)
	}

	return &Backend{db: db, logger: logger}, nil
}

// Begin opens a read-write transaction.
func (b *Backend) Begin(_ context.Context) (store.Tx, error) {
	return &tx{txn: b.db.NewTransaction(true)}, nil
}

// Retries returns every committed retry record ordered by key.
func (b *Backend) Retries(_ context.Context) ([]store.Record, error) {
	var records []store.Record

	err := b.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = retryPrefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(retryPrefix); it.ValidForPrefix(retryPrefix); it.Next() {
			item := it.Item()

			key, err := retrygate.ParseKey(strings.TrimPrefix(string(item.Key()), string(retryPrefix)))
			if err != nil {
				return err
			}
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			ts, err := decodeTimestamp(value)
			if err != nil {
				return errors.Wrapf(err, "record %s", key)
			}

			records = append(records, store.Record{Key: key, LastAttempt: ts})
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to read retry records")
	}

	store.SortRecords(records)
	return records, nil
}

// CheckConnection reports whether the database is still open.
func (b *Backend) CheckConnection(_ context.Context) error {
	if b.db.IsClosed() {
		return errors.New("badger database is closed")
	}
	return nil
}

// Reconnect cannot reopen an embedded database and only repeats the check.
func (b *Backend) Reconnect(ctx context.Context) error {
	return b.CheckConnection(ctx)
}

// Close closes the database.
func (b *Backend) Close() error {
	return b.db.Close()
}

type tx struct {
	txn *badgerdb.Txn
}

func retryKey(key retrygate.Key) []byte {
	return append(append([]byte(nil), retryPrefix...), key.String()...)
}

func (t *tx) LastAttempt(_ context.Context, key retrygate.Key) (uint64, bool, error) {
	item, err := t.txn.Get(retryKey(key))
	if err == badgerdb.ErrKeyNotFound {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrapf(err, "failed to read retry record %s", key)
	}

	value, err := item.ValueCopy(nil)
	if err != nil {
		return 0, false, errors.Wrapf(err, "failed to copy retry record %s", key)
	}
	ts, err := decodeTimestamp(value)
	if err != nil {
		return 0, false, errors.Wrapf(err, "record %s", key)
	}
	return ts, true, nil
}

func (t *tx) RecordAttempt(_ context.Context, key retrygate.Key, ts uint64) error {
	value := make([]byte, 8)
	binary.BigEndian.PutUint64(value, ts)

	if err := t.txn.Set(retryKey(key), value); err != nil {
		return errors.Wrapf(err, "failed to record attempt of %s", key)
	}
	return nil
}

func (t *tx) LoadState(_ context.Context) (*types.State, error) {
	item, err := t.txn.Get(stateKey)
	if err == badgerdb.ErrKeyNotFound {
		return nil, commonerrors.ErrNotInstantiated
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read relay state")
	}

	var state types.State
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &state)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode relay state")
	}
	return &state, nil
}

func (t *tx) SaveState(_ context.Context, state *types.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return errors.Wrap(err, "failed to encode relay state")
	}
	if err := t.txn.Set(stateKey, data); err != nil {
		return errors.Wrap(err, "failed to save relay state")
	}
	return nil
}

func (t *tx) Commit() error {
	return t.txn.Commit()
}

// Rollback discards the transaction. Discarding a committed transaction is a no-op.
func (t *tx) Rollback() error {
	t.txn.Discard()
	return nil
}

func decodeTimestamp(value []byte) (uint64, error) {
	if len(value) != 8 {
		return 0, errors.Wrapf(errBadRecord, "%d bytes", len(value))
	}
	return binary.BigEndian.Uint64(value), nil
}
