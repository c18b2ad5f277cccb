package relay

import (
	"context"
	"sync"

	"github.com/ClipFinance/juice-bot-relay/batch"
	"github.com/ClipFinance/juice-bot-relay/calldata"
	commonerrors "github.com/ClipFinance/juice-bot-relay/common/errors"
	"github.com/ClipFinance/juice-bot-relay/common/types"
	"github.com/ClipFinance/juice-bot-relay/dispatch"
	"github.com/ClipFinance/juice-bot-relay/metrics"
	"github.com/ClipFinance/juice-bot-relay/retrygate"
	"github.com/ClipFinance/juice-bot-relay/store"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Relay executes owner actions against the destination contract. Every invocation runs in its
// own store transaction and either commits completely or leaves no trace.
type Relay struct {
	backend   store.Backend
	registry  *calldata.Registry
	publisher dispatch.Publisher
	observer  batch.Observer
	logger    *logrus.Logger

	// invocations are totally ordered
	mutex sync.Mutex
}

// buildFunc produces the argument list of one dispatch inside an invocation.
type buildFunc func(ctx context.Context, tx store.Tx, state *types.State) ([]calldata.Value, error)

// Instantiate stores the relay configuration. The sender becomes the owner.
//
// Parameters:
// - ctx: the context for managing the request.
// - inv: the caller identity and block time.
// - msg: the configuration.
//
// Returns:
// - *types.Response: the response with method, owner and job_id attributes.
// - error: ErrAlreadyInstantiated if a configuration exists, or a store error.
func (r *Relay) Instantiate(ctx context.Context, inv types.Invocation, msg types.InstantiateMsg) (*types.Response, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	tx, err := r.backend.Begin(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	_, err = tx.LoadState(ctx)
	switch {
	case err == nil:
		return nil, commonerrors.ErrAlreadyInstantiated
	case !errors.Is(err, commonerrors.ErrNotInstantiated):
		return nil, err
	}

	state := &types.State{
		RetryDelay: msg.RetryDelay,
		JobID:      msg.JobID,
		Owner:      inv.Sender,
		Metadata: types.Metadata{
			Creator: msg.Creator,
			Signers: append([]string(nil), msg.Signers...),
		},
	}
	if err := tx.SaveState(ctx, state); err != nil {
		return nil, errors.Wrap(err, "failed to save state")
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit")
	}

	r.logger.WithFields(logrus.Fields{
		"owner":       state.Owner,
		"job_id":      state.JobID,
		"retry_delay": state.RetryDelay,
	}).Info("Relay instantiated")

	return types.NewResponse().
		AddAttribute("method", "instantiate").
		AddAttribute("owner", state.Owner).
		AddAttribute("job_id", state.JobID), nil
}

// Execute runs the single action set on msg.
//
// Parameters:
// - ctx: the context for managing the request.
// - inv: the caller identity and block time.
// - msg: the action union; exactly one action must be set.
//
// Returns:
// - *types.Response: the response carrying one dispatch envelope.
// - error: ErrInvalidMessage if not exactly one action is set, or the error of the action.
func (r *Relay) Execute(ctx context.Context, inv types.Invocation, msg *types.ExecuteMsg) (*types.Response, error) {
	if msg == nil || msg.Variants() != 1 {
		return nil, errors.Wrap(commonerrors.ErrInvalidMessage, "exactly one action must be set")
	}

	switch {
	case msg.CreateNextBot != nil:
		return r.CreateNextBot(ctx, inv, msg.CreateNextBot)
	case msg.RepayBot != nil:
		return r.RepayBot(ctx, inv, msg.RepayBot)
	case msg.SetPaloma != nil:
		return r.SetPaloma(ctx, inv)
	case msg.UpdateCompass != nil:
		return r.UpdateCompass(ctx, inv, msg.UpdateCompass.NewCompass)
	case msg.UpdateBlueprint != nil:
		return r.UpdateBlueprint(ctx, inv, msg.UpdateBlueprint.NewBlueprint)
	case msg.UpdateRefundWallet != nil:
		return r.UpdateRefundWallet(ctx, inv, msg.UpdateRefundWallet.NewRefundWallet)
	case msg.UpdateGasFee != nil:
		return r.UpdateGasFee(ctx, inv, msg.UpdateGasFee.NewGasFee)
	case msg.UpdateServiceFeeCollector != nil:
		return r.UpdateServiceFeeCollector(ctx, inv, msg.UpdateServiceFeeCollector.NewServiceFeeCollector)
	default:
		return r.UpdateServiceFee(ctx, inv, msg.UpdateServiceFee.NewServiceFee)
	}
}

// CreateNextBot dispatches create_next_bot if its retry window has passed.
func (r *Relay) CreateNextBot(ctx context.Context, inv types.Invocation, req *types.CreateNextBot) (*types.Response, error) {
	return r.invoke(ctx, inv, calldata.FnCreateNextBot, func(ctx context.Context, tx store.Tx, state *types.State) ([]calldata.Value, error) {
		return r.assembler(tx, state).CreateNextBot(ctx, req, inv.BlockTime)
	})
}

// RepayBot dispatches repay_bot for every item whose retry window has passed.
func (r *Relay) RepayBot(ctx context.Context, inv types.Invocation, req *types.RepayBot) (*types.Response, error) {
	return r.invoke(ctx, inv, calldata.FnRepayBot, func(ctx context.Context, tx store.Tx, state *types.State) ([]calldata.Value, error) {
		var items []types.BotInfo
		if req != nil {
			items = req.BotInfo
		}
		return r.assembler(tx, state).RepayBot(ctx, items, inv.BlockTime)
	})
}

// SetPaloma dispatches set_paloma.
func (r *Relay) SetPaloma(ctx context.Context, inv types.Invocation) (*types.Response, error) {
	return r.invoke(ctx, inv, calldata.FnSetPaloma, constant())
}

// UpdateCompass dispatches update_compass.
func (r *Relay) UpdateCompass(ctx context.Context, inv types.Invocation, newCompass string) (*types.Response, error) {
	return r.invoke(ctx, inv, calldata.FnUpdateCompass, constant(calldata.Address(newCompass)))
}

// UpdateBlueprint dispatches update_blueprint.
func (r *Relay) UpdateBlueprint(ctx context.Context, inv types.Invocation, newBlueprint string) (*types.Response, error) {
	return r.invoke(ctx, inv, calldata.FnUpdateBlueprint, constant(calldata.Address(newBlueprint)))
}

// UpdateRefundWallet dispatches update_refund_wallet.
func (r *Relay) UpdateRefundWallet(ctx context.Context, inv types.Invocation, newRefundWallet string) (*types.Response, error) {
	return r.invoke(ctx, inv, calldata.FnUpdateRefundWallet, constant(calldata.Address(newRefundWallet)))
}

// UpdateGasFee dispatches update_gas_fee.
func (r *Relay) UpdateGasFee(ctx context.Context, inv types.Invocation, newGasFee *uint256.Int) (*types.Response, error) {
	return r.invoke(ctx, inv, calldata.FnUpdateGasFee, required("new_gas_fee", newGasFee))
}

// UpdateServiceFeeCollector dispatches update_service_fee_collector.
func (r *Relay) UpdateServiceFeeCollector(ctx context.Context, inv types.Invocation, newCollector string) (*types.Response, error) {
	return r.invoke(ctx, inv, calldata.FnUpdateServiceFeeCollector, constant(calldata.Address(newCollector)))
}

// UpdateServiceFee dispatches update_service_fee.
func (r *Relay) UpdateServiceFee(ctx context.Context, inv types.Invocation, newServiceFee *uint256.Int) (*types.Response, error) {
	return r.invoke(ctx, inv, calldata.FnUpdateServiceFee, required("new_service_fee", newServiceFee))
}

// Query answers a read-only query.
func (r *Relay) Query(ctx context.Context, msg types.QueryMsg) (interface{}, error) {
	if msg.GetJobID != nil {
		return r.QueryJobID(ctx)
	}
	return nil, errors.Wrap(commonerrors.ErrInvalidMessage, "unknown query")
}

// QueryJobID returns the configured job id.
func (r *Relay) QueryJobID(ctx context.Context) (*types.GetJobIDResponse, error) {
	tx, err := r.backend.Begin(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	state, err := tx.LoadState(ctx)
	if err != nil {
		return nil, err
	}
	return &types.GetJobIDResponse{JobID: state.JobID}, nil
}

// Retries returns every committed retry record.
func (r *Relay) Retries(ctx context.Context) ([]store.Record, error) {
	return r.backend.Retries(ctx)
}

// Registry returns the destination function registry.
func (r *Relay) Registry() *calldata.Registry {
	return r.registry
}

// invoke runs one owner action in a transaction: owner check, argument assembly, encoding,
// publishing and commit. Any error rolls back every write of the invocation.
func (r *Relay) invoke(ctx context.Context, inv types.Invocation, function string, build buildFunc) (*types.Response, error) {
	resp, err := r.run(ctx, inv, function, build)
	if err != nil {
		metrics.RecordFailure(errorType(err))
		r.logger.WithFields(logrus.Fields{
			"action": function,
			"sender": inv.Sender,
		}).WithError(err).Warn("Invocation failed")
		return nil, err
	}
	return resp, nil
}

func (r *Relay) run(ctx context.Context, inv types.Invocation, function string, build buildFunc) (*types.Response, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	tx, err := r.backend.Begin(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	state, err := tx.LoadState(ctx)
	if err != nil {
		return nil, err
	}
	if inv.Sender != state.Owner {
		return nil, errors.Wrapf(commonerrors.ErrUnauthorized, "sender %s", inv.Sender)
	}

	args, err := build(ctx, tx, state)
	if err != nil {
		return nil, err
	}

	payload, err := r.registry.Encode(function, args...)
	if err != nil {
		return nil, err
	}

	envelope := dispatch.NewEnvelope(state, payload)
	if err := r.publisher.Publish(ctx, envelope); err != nil {
		return nil, errors.Wrap(err, "failed to publish envelope")
	}

	if err := tx.Commit(); err != nil {
		// The envelope is already out; its items stay eligible and may be dispatched again.
		metrics.RecordUncommittedDispatch(function)
		r.logger.WithFields(logrus.Fields{
			"action": function,
			"job_id": envelope.JobID,
		}).WithError(err).Error("Envelope published but retry stamps not committed")
		return nil, errors.Wrap(err, "failed to commit")
	}

	metrics.RecordDispatch(function, len(payload))
	r.logger.WithFields(logrus.Fields{
		"action": function,
		"job_id": envelope.JobID,
		"size":   len(payload),
		"time":   inv.BlockTime,
	}).Info("Dispatch created")

	return types.NewResponse().
		AddMessage(envelope).
		AddAttribute("action", function), nil
}

func (r *Relay) assembler(tx store.Tx, state *types.State) *batch.Assembler {
	return batch.NewAssembler(retrygate.New(tx, state.RetryDelay, r.logger), r.logger, r.observer)
}

// constant builds a fixed argument list.
func constant(args ...calldata.Value) buildFunc {
	return func(context.Context, store.Tx, *types.State) ([]calldata.Value, error) {
		return args, nil
	}
}

// required builds a single integer argument that must be present.
func required(name string, v *uint256.Int) buildFunc {
	return func(context.Context, store.Tx, *types.State) ([]calldata.Value, error) {
		if v == nil {
			return nil, errors.Wrapf(commonerrors.ErrMalformedInput, "missing %s", name)
		}
		return []calldata.Value{calldata.NewUint(v)}, nil
	}
}

// errorType classifies an invocation error for metrics.
func errorType(err error) string {
	for _, known := range []struct {
		err  error
		name string
	}{
		{commonerrors.ErrUnauthorized, "unauthorized"},
		{commonerrors.ErrNothingPending, "nothing_pending"},
		{commonerrors.ErrMalformedInput, "malformed_input"},
		{commonerrors.ErrEmptyBatch, "empty_batch"},
		{commonerrors.ErrNotInstantiated, "not_instantiated"},
		{commonerrors.ErrInvalidMessage, "invalid_message"},
	} {
		if errors.Is(err, known.err) {
			return known.name
		}
	}
	return "internal"
}
