package batch

import (
	"context"
	"fmt"

	"github.com/ClipFinance/juice-bot-relay/calldata"
	commonerrors "github.com/ClipFinance/juice-bot-relay/common/errors"
	"github.com/ClipFinance/juice-bot-relay/common/types"
	"github.com/ClipFinance/juice-bot-relay/retrygate"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// RepayTag is the retry key tag of every repay item.
const RepayTag = "repay"

// Observer is notified of every gate decision. It may be nil.
type Observer interface {
	Gated(function string, admitted bool)
}

// Assembler applies the retry gate to candidate items and shapes the admitted ones into the
// argument list of the destination function.
type Assembler struct {
	gate     *retrygate.Gate
	logger   *logrus.Logger
	observer Observer
}

// NewAssembler creates a batch assembler.
//
// Parameters:
// - gate: the retry gate, bound to the store handle of the current invocation.
// - logger: the logger for logging events.
// - observer: an optional observer of gate decisions.
//
// Returns:
// - *Assembler: the new assembler.
func NewAssembler(gate *retrygate.Gate, logger *logrus.Logger, observer Observer) *Assembler {
	return &Assembler{
		gate:     gate,
		logger:   logger,
		observer: observer,
	}
}

// CreateNextBotKey returns the retry key of a create_next_bot request.
func CreateNextBotKey(req *types.CreateNextBot) retrygate.Key {
	return retrygate.Key{
		Subject: decimal(req.BotID),
		Tag:     decimal(req.RemainingCount),
	}
}

// RepayKey returns the retry key of a repay item. The bot address must be valid.
func RepayKey(bot string) (retrygate.Key, error) {
	addr, err := calldata.ParseAddress(bot)
	if err != nil {
		return retrygate.Key{}, err
	}
	return retrygate.Key{Subject: addr.Hex(), Tag: RepayTag}, nil
}

// CreateNextBot gates a create_next_bot request and returns its argument list.
//
// Parameters:
// - ctx: the context for managing the request.
// - req: the request.
// - now: the current time in seconds.
//
// Returns:
// - []calldata.Value: bot_id, callbacker, callback_args and remaining_count.
// - error: ErrMalformedInput for invalid fields, ErrNothingPending if the gate rejects the request.
func (a *Assembler) CreateNextBot(ctx context.Context, req *types.CreateNextBot, now uint64) ([]calldata.Value, error) {
	if req == nil {
		return nil, errors.Wrap(commonerrors.ErrMalformedInput, "missing create_next_bot request")
	}
	if _, err := calldata.ParseAddress(req.Callbacker); err != nil {
		return nil, errors.Wrap(err, "callbacker")
	}
	if err := requireUint("bot_id", req.BotID); err != nil {
		return nil, err
	}
	if err := requireUint("remaining_count", req.RemainingCount); err != nil {
		return nil, err
	}
	if err := requireUints("callback_args", req.CallbackArgs); err != nil {
		return nil, err
	}

	key := CreateNextBotKey(req)
	admitted, err := a.gate.Admit(ctx, key, now)
	if err != nil {
		return nil, err
	}
	a.observe(calldata.FnCreateNextBot, admitted)

	if !admitted {
		a.logger.WithField("key", key.String()).Info("Bot creation still pending")
		return nil, errors.Wrapf(commonerrors.ErrNothingPending, "bot %s", key.Subject)
	}

	return []calldata.Value{
		calldata.NewUint(req.BotID),
		calldata.Address(req.Callbacker),
		calldata.Uints(req.CallbackArgs),
		calldata.NewUint(req.RemainingCount),
	}, nil
}

// repayEntry is one admitted repay item.
type repayEntry struct {
	bot          calldata.Address
	callbacker   calldata.Address
	callbackArgs calldata.List
	swapInfos    calldata.List
}

// RepayBot gates every item of a repay batch and returns the four parallel argument lists
// of repay_bot: bots, callbackers, callback args per bot and swap infos per bot. Admitted
// items keep their input order; rejected items are left out of every list.
//
// Parameters:
// - ctx: the context for managing the request.
// - items: the repay items, at least one.
// - now: the current time in seconds.
//
// Returns:
// - []calldata.Value: the four argument lists.
// - error: ErrEmptyBatch, ErrMalformedInput or ErrNothingPending.
func (a *Assembler) RepayBot(ctx context.Context, items []types.BotInfo, now uint64) ([]calldata.Value, error) {
	if len(items) == 0 {
		return nil, commonerrors.ErrEmptyBatch
	}

	keys := make([]retrygate.Key, len(items))
	entries := make([]repayEntry, len(items))
	for i := range items {
		entry, err := newRepayEntry(&items[i])
		if err != nil {
			return nil, errors.Wrapf(err, "bot_info[%d]", i)
		}
		entries[i] = entry
		keys[i] = retrygate.Key{Subject: string(entry.bot), Tag: RepayTag}
	}

	admitted := make([]repayEntry, 0, len(entries))
	for i, entry := range entries {
		ok, err := a.gate.Admit(ctx, keys[i], now)
		if err != nil {
			return nil, err
		}
		a.observe(calldata.FnRepayBot, ok)

		if !ok {
			a.logger.WithFields(logrus.Fields{
				"bot":   string(entry.bot),
				"index": i,
			}).Debug("Repay still pending, skipping")
			continue
		}
		admitted = append(admitted, entry)
	}

	if len(admitted) == 0 {
		return nil, errors.Wrapf(commonerrors.ErrNothingPending, "%d repay items", len(items))
	}

	return flatten(admitted), nil
}

func (a *Assembler) observe(function string, admitted bool) {
	if a.observer != nil {
		a.observer.Gated(function, admitted)
	}
}

// newRepayEntry validates a repay item and converts it into its argument values.
func newRepayEntry(item *types.BotInfo) (repayEntry, error) {
	bot, err := calldata.ParseAddress(item.Bot)
	if err != nil {
		return repayEntry{}, errors.Wrap(err, "bot")
	}
	if _, err := calldata.ParseAddress(item.Callbacker); err != nil {
		return repayEntry{}, errors.Wrap(err, "callbacker")
	}
	if err := requireUints("callback_args", item.CallbackArgs); err != nil {
		return repayEntry{}, err
	}

	swapInfos := make(calldata.List, len(item.SwapInfos))
	for i := range item.SwapInfos {
		if err := checkSwapInfo(&item.SwapInfos[i]); err != nil {
			return repayEntry{}, errors.Wrapf(err, "swap_infos[%d]", i)
		}
		value := SwapInfoValue(&item.SwapInfos[i])
		if err := calldata.Check(calldata.SwapInfo(), value); err != nil {
			return repayEntry{}, errors.Wrapf(err, "swap_infos[%d]", i)
		}
		swapInfos[i] = value
	}

	return repayEntry{
		bot:          calldata.Address(bot.Hex()),
		callbacker:   calldata.Address(item.Callbacker),
		callbackArgs: calldata.Uints(item.CallbackArgs),
		swapInfos:    swapInfos,
	}, nil
}

// checkSwapInfo rejects swap routes with missing integers.
func checkSwapInfo(info *types.SwapInfo) error {
	if err := requireUint("amount", info.Amount); err != nil {
		return err
	}
	if err := requireUint("expected", info.Expected); err != nil {
		return err
	}
	for i, row := range info.SwapParams {
		if err := requireUints(fmt.Sprintf("swap_params[%d]", i), row); err != nil {
			return err
		}
	}
	return nil
}

// requireUint fails with ErrMalformedInput if the value is missing.
func requireUint(field string, v *uint256.Int) error {
	if v == nil {
		return errors.Wrapf(commonerrors.ErrMalformedInput, "missing %s", field)
	}
	return nil
}

func requireUints(field string, values []*uint256.Int) error {
	for i, v := range values {
		if err := requireUint(fmt.Sprintf("%s[%d]", field, i), v); err != nil {
			return err
		}
	}
	return nil
}

// SwapInfoValue converts a swap route into its tuple value.
func SwapInfoValue(info *types.SwapInfo) calldata.Tuple {
	params := make(calldata.List, len(info.SwapParams))
	for i, row := range info.SwapParams {
		params[i] = calldata.Uints(row)
	}

	return calldata.Tuple{
		calldata.Addresses(info.Route),
		params,
		calldata.NewUint(info.Amount),
		calldata.NewUint(info.Expected),
		calldata.Addresses(info.Pools),
	}
}

func flatten(entries []repayEntry) []calldata.Value {
	bots := make(calldata.List, len(entries))
	callbackers := make(calldata.List, len(entries))
	callbackArgs := make(calldata.List, len(entries))
	swapInfos := make(calldata.List, len(entries))

	for i, entry := range entries {
		bots[i] = entry.bot
		callbackers[i] = entry.callbacker
		callbackArgs[i] = entry.callbackArgs
		swapInfos[i] = entry.swapInfos
	}

	return []calldata.Value{bots, callbackers, callbackArgs, swapInfos}
}

func decimal(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}
