package dbconfig

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/ClipFinance/juice-bot-relay/dbconfig/models"
	"github.com/ClipFinance/juice-bot-relay/retrygate"
	"github.com/ClipFinance/juice-bot-relay/store"
	"github.com/pkg/errors"
)

// dbTx is a store transaction backed by a database transaction.
type dbTx struct {
	tx *sql.Tx
}

// LastAttempt returns the recorded attempt time of key.
//
// Parameters:
// - ctx: the context for managing the request.
// - key: the retry key.
//
// Returns:
// - uint64: the last attempt time in seconds.
// - bool: true if a record exists.
// - error: an error if the database operation fails.
func (t *dbTx) LastAttempt(ctx context.Context, key retrygate.Key) (uint64, bool, error) {
	var attemptedAt string
	err := t.tx.QueryRowContext(ctx, `
		SELECT attempted_at
		FROM retry_timestamps
		WHERE subject = $1 AND tag = $2
	`, key.Subject, key.Tag).Scan(&attemptedAt)

	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrapf(err, "failed to load retry record %s", key)
	}

	ts, err := strconv.ParseUint(attemptedAt, 10, 64)
	if err != nil {
		return 0, false, errors.Wrapf(ErrInvalidRecord, "attempted_at %q of %s", attemptedAt, key)
	}
	return ts, true, nil
}

// RecordAttempt inserts or updates the retry record of key.
//
// Parameters:
// - ctx: the context for managing the request.
// - key: the retry key.
// - ts: the attempt time in seconds.
//
// Returns:
// - error: an error if the database operation fails.
func (t *dbTx) RecordAttempt(ctx context.Context, key retrygate.Key, ts uint64) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO retry_timestamps (
			subject,
			tag,
			attempted_at
		) VALUES ($1, $2, $3)
		ON CONFLICT (subject, tag)
		DO UPDATE SET attempted_at = EXCLUDED.attempted_at, updated_at = now()`,
		key.Subject,
		key.Tag,
		strconv.FormatUint(ts, 10),
	)
	if err != nil {
		return errors.Wrapf(err, "failed to record attempt of %s", key)
	}
	return nil
}

func (t *dbTx) Commit() error {
	return t.tx.Commit()
}

// Rollback aborts the transaction. Rolling back a committed transaction is a no-op.
func (t *dbTx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && err != sql.ErrTxDone {
		return err
	}
	return nil
}

// GetRetryRecords returns every retry record.
//
// Parameters:
// - ctx: the context for managing the request.
//
// Returns:
// - []models.RetryRecord: the records ordered by creation.
// - error: an error if the database operation fails.
func (r *DBConfig) GetRetryRecords(ctx context.Context) ([]models.RetryRecord, error) {
	rows, err := r.conn().QueryContext(ctx, `
		SELECT
			subject,
			tag,
			attempted_at,
			created_at,
			updated_at
		FROM retry_timestamps
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, errors.Wrap(ErrDatabaseConnect, err.Error())
	}
	defer rows.Close()

	var records []models.RetryRecord
	for rows.Next() {
		var (
			record      models.RetryRecord
			attemptedAt string
		)

		err := rows.Scan(
			&record.Subject,
			&record.Tag,
			&attemptedAt,
			&record.CreatedAt,
			&record.UpdatedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan retry record")
		}

		if record.AttemptedAt, err = strconv.ParseUint(attemptedAt, 10, 64); err != nil {
			return nil, errors.Wrapf(ErrInvalidRecord, "attempted_at %q", attemptedAt)
		}

		records = append(records, record)
	}

	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read retry records")
	}

	return records, nil
}

// Retries returns every committed retry record ordered by key.
func (r *DBConfig) Retries(ctx context.Context) ([]store.Record, error) {
	rows, err := r.GetRetryRecords(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]store.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, store.Record{
			Key:         retrygate.Key{Subject: row.Subject, Tag: row.Tag},
			LastAttempt: row.AttemptedAt,
		})
	}

	store.SortRecords(records)
	return records, nil
}
