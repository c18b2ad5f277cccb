package calldata

// Outbound function names on the destination contract.
const (
	FnCreateNextBot             = "create_next_bot"
	FnRepayBot                  = "repay_bot"
	FnSetPaloma                 = "set_paloma"
	FnUpdateCompass             = "update_compass"
	FnUpdateBlueprint           = "update_blueprint"
	FnUpdateRefundWallet        = "update_refund_wallet"
	FnUpdateGasFee              = "update_gas_fee"
	FnUpdateServiceFeeCollector = "update_service_fee_collector"
	FnUpdateServiceFee          = "update_service_fee"
)

// Swap route dimensions expected by repay_bot.
const (
	RouteLength      = 11
	SwapParamsLength = 5
	PoolsLength      = 5
)

// SwapInfo is the tuple describing one swap route of a repay.
func SwapInfo() Node {
	return TupleType(
		Field("route", FixedArray(AddressType(), RouteLength)),
		Field("swap_params", FixedArray(FixedArray(Uint256(), SwapParamsLength), SwapParamsLength)),
		Field("amount", Uint256()),
		Field("expected", Uint256()),
		Field("pools", FixedArray(AddressType(), PoolsLength)),
	)
}

// Functions returns the schemas of every function the relay dispatches.
func Functions() []Function {
	return []Function{
		{
			Name: FnCreateNextBot,
			Inputs: []Param{
				Field("bot_id", Uint256()),
				Field("callbacker", AddressType()),
				Field("callback_args", DynamicArray(Uint256())),
				Field("remaining_count", Uint256()),
			},
		},
		{
			Name: FnRepayBot,
			Inputs: []Param{
				Field("bot", DynamicArray(AddressType())),
				Field("callbacker", DynamicArray(AddressType())),
				Field("callback_args", DynamicArray(DynamicArray(Uint256()))),
				Field("swap_infos", DynamicArray(DynamicArray(SwapInfo()))),
			},
		},
		{Name: FnSetPaloma},
		{Name: FnUpdateCompass, Inputs: []Param{Field("new_compass", AddressType())}},
		{Name: FnUpdateBlueprint, Inputs: []Param{Field("new_blueprint", AddressType())}},
		{Name: FnUpdateRefundWallet, Inputs: []Param{Field("new_refund_wallet", AddressType())}},
		{Name: FnUpdateGasFee, Inputs: []Param{Field("new_gas_fee", Uint256())}},
		{Name: FnUpdateServiceFeeCollector, Inputs: []Param{Field("new_service_fee_collector", AddressType())}},
		{Name: FnUpdateServiceFee, Inputs: []Param{Field("new_service_fee", Uint256())}},
	}
}

// NewDefaultRegistry returns a registry holding Functions().
func NewDefaultRegistry() (*Registry, error) {
	return NewRegistry(Functions()...)
}
