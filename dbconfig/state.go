package dbconfig

import (
	"context"
	"database/sql"
	"strconv"

	commonerrors "github.com/ClipFinance/juice-bot-relay/common/errors"
	"github.com/ClipFinance/juice-bot-relay/common/types"
	"github.com/ClipFinance/juice-bot-relay/dbconfig/models"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

// LoadState returns the configuration row.
//
// Parameters:
// - ctx: the context for managing the request.
//
// Returns:
// - *types.State: the relay configuration.
// - error: ErrNotInstantiated if the row does not exist, or a database error.
func (t *dbTx) LoadState(ctx context.Context) (*types.State, error) {
	var (
		row        models.State
		retryDelay string
	)

	err := t.tx.QueryRowContext(ctx, `
		SELECT
			retry_delay,
			job_id,
			owner,
			creator,
			signers,
			created_at,
			updated_at
		FROM relay_state
		WHERE id = $1
	`, stateRowID).Scan(
		&retryDelay,
		&row.JobID,
		&row.Owner,
		&row.Creator,
		pq.Array(&row.Signers),
		&row.CreatedAt,
		&row.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, commonerrors.ErrNotInstantiated
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load relay state")
	}

	if row.RetryDelay, err = strconv.ParseUint(retryDelay, 10, 64); err != nil {
		return nil, errors.Wrapf(ErrInvalidRecord, "retry_delay %q", retryDelay)
	}

	return &types.State{
		RetryDelay: row.RetryDelay,
		JobID:      row.JobID,
		Owner:      row.Owner,
		Metadata: types.Metadata{
			Creator: row.Creator,
			Signers: row.Signers,
		},
	}, nil
}

// SaveState inserts or replaces the configuration row.
//
// Parameters:
// - ctx: the context for managing the request.
// - state: the relay configuration.
//
// Returns:
// - error: an error if the database operation fails.
func (t *dbTx) SaveState(ctx context.Context, state *types.State) error {
	signers := state.Metadata.Signers
	if signers == nil {
		signers = []string{}
	}

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO relay_state (
			id,
			retry_delay,
			job_id,
			owner,
			creator,
			signers
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id)
		DO UPDATE SET
			retry_delay = EXCLUDED.retry_delay,
			job_id = EXCLUDED.job_id,
			owner = EXCLUDED.owner,
			creator = EXCLUDED.creator,
			signers = EXCLUDED.signers,
			updated_at = now()`,
		stateRowID,
		strconv.FormatUint(state.RetryDelay, 10),
		state.JobID,
		state.Owner,
		state.Metadata.Creator,
		pq.Array(signers),
	)
	if err != nil {
		return errors.Wrap(err, "failed to save relay state")
	}

	return nil
}
