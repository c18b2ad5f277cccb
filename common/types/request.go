package types

import (
	"encoding/json"

	"github.com/holiman/uint256"
)

// InstantiateMsg initializes the relay configuration.
//
// Fields:
// - RetryDelay: the minimum number of seconds between two dispatches of the same item.
// - JobID: the relay job that carries every dispatch.
// - Creator: the creator address forwarded in dispatch metadata.
// - Signers: the ordered signer addresses forwarded in dispatch metadata.
type InstantiateMsg struct {
	RetryDelay uint64   `json:"retry_delay"`
	JobID      string   `json:"job_id"`
	Creator    string   `json:"creator"`
	Signers    []string `json:"signers"`
}

// CreateNextBot asks the destination contract to deploy the next bot of a series.
type CreateNextBot struct {
	BotID          *uint256.Int   `json:"bot_id"`
	Callbacker     string         `json:"callbacker"`
	CallbackArgs   []*uint256.Int `json:"callback_args"`
	RemainingCount *uint256.Int   `json:"remaining_count"`
}

// SwapInfo describes one swap route used while repaying a bot.
// Route holds 11 addresses, SwapParams a 5x5 matrix and Pools 5 addresses.
type SwapInfo struct {
	Route      []string         `json:"route"`
	SwapParams [][]*uint256.Int `json:"swap_params"`
	Amount     *uint256.Int     `json:"amount"`
	Expected   *uint256.Int     `json:"expected"`
	Pools      []string         `json:"pools"`
}

// BotInfo is one item of a repay batch.
type BotInfo struct {
	Bot          string         `json:"bot"`
	Callbacker   string         `json:"callbacker"`
	CallbackArgs []*uint256.Int `json:"callback_args"`
	SwapInfos    []SwapInfo     `json:"swap_infos"`
}

// UnmarshalJSON accepts either a "swap_infos" list or a single "swap_info" object,
// the latter being decoded as a one-route list.
func (b *BotInfo) UnmarshalJSON(data []byte) error {
	type botInfo BotInfo
	var raw struct {
		botInfo
		SwapInfo *SwapInfo `json:"swap_info"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*b = BotInfo(raw.botInfo)
	if raw.SwapInfo != nil && len(b.SwapInfos) == 0 {
		b.SwapInfos = []SwapInfo{*raw.SwapInfo}
	}
	return nil
}

// RepayBot asks the destination contract to repay a batch of bots.
type RepayBot struct {
	BotInfo []BotInfo `json:"bot_info"`
}

// SetPaloma takes no arguments.
type SetPaloma struct{}

// UpdateCompass replaces the compass address on the destination contract.
type UpdateCompass struct {
	NewCompass string `json:"new_compass"`
}

// UpdateBlueprint replaces the bot blueprint address.
type UpdateBlueprint struct {
	NewBlueprint string `json:"new_blueprint"`
}

// UpdateRefundWallet replaces the refund wallet address.
type UpdateRefundWallet struct {
	NewRefundWallet string `json:"new_refund_wallet"`
}

// UpdateGasFee replaces the gas fee.
type UpdateGasFee struct {
	NewGasFee *uint256.Int `json:"new_gas_fee"`
}

// UpdateServiceFeeCollector replaces the service fee collector address.
type UpdateServiceFeeCollector struct {
	NewServiceFeeCollector string `json:"new_service_fee_collector"`
}

// UpdateServiceFee replaces the service fee.
type UpdateServiceFee struct {
	NewServiceFee *uint256.Int `json:"new_service_fee"`
}

// ExecuteMsg is the union of executable actions. Exactly one field must be set,
// e.g. {"repay_bot": {"bot_info": [...]}}.
type ExecuteMsg struct {
	CreateNextBot             *CreateNextBot             `json:"create_next_bot,omitempty"`
	RepayBot                  *RepayBot                  `json:"repay_bot,omitempty"`
	SetPaloma                 *SetPaloma                 `json:"set_paloma,omitempty"`
	UpdateCompass             *UpdateCompass             `json:"update_compass,omitempty"`
	UpdateBlueprint           *UpdateBlueprint           `json:"update_blueprint,omitempty"`
	UpdateRefundWallet        *UpdateRefundWallet        `json:"update_refund_wallet,omitempty"`
	UpdateGasFee              *UpdateGasFee              `json:"update_gas_fee,omitempty"`
	UpdateServiceFeeCollector *UpdateServiceFeeCollector `json:"update_service_fee_collector,omitempty"`
	UpdateServiceFee          *UpdateServiceFee          `json:"update_service_fee,omitempty"`
}

// Variants returns the number of actions set on the message.
func (m *ExecuteMsg) Variants() int {
	count := 0
	for _, set := range []bool{
		m.CreateNextBot != nil,
		m.RepayBot != nil,
		m.SetPaloma != nil,
		m.UpdateCompass != nil,
		m.UpdateBlueprint != nil,
		m.UpdateRefundWallet != nil,
		m.UpdateGasFee != nil,
		m.UpdateServiceFeeCollector != nil,
		m.UpdateServiceFee != nil,
	} {
		if set {
			count++
		}
	}
	return count
}

// QueryMsg is the union of read-only queries.
type QueryMsg struct {
	GetJobID *struct{} `json:"get_job_id,omitempty"`
}

// GetJobIDResponse answers a job id query.
type GetJobIDResponse struct {
	JobID string `json:"job_id"`
}
