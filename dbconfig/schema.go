package dbconfig

import (
	"context"

	"github.com/pkg/errors"
)

// stateRowID is the primary key of the singular configuration row.
const stateRowID = 1

var schema = []string{
	`CREATE TABLE IF NOT EXISTS relay_state (
		id          SMALLINT PRIMARY KEY CHECK (id = 1),
		retry_delay NUMERIC(20, 0) NOT NULL,
		job_id      TEXT NOT NULL,
		owner       TEXT NOT NULL,
		creator     TEXT NOT NULL,
		signers     TEXT[] NOT NULL DEFAULT '{}',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS retry_timestamps (
		subject      TEXT NOT NULL,
		tag          TEXT NOT NULL,
		attempted_at NUMERIC(20, 0) NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (subject, tag)
	)`,
}

// EnsureSchema creates the relay tables if they do not exist.
//
// Parameters:
// - ctx: the context for managing the request.
//
// Returns:
// - error: an error if a statement fails.
func (r *DBConfig) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.conn().ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "failed to create schema")
		}
	}

	r.logger.Debug("Database schema ready")
	return nil
}
