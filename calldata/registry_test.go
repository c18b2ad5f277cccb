package calldata

import (
	"testing"

	commonerrors "github.com/ClipFinance/juice-bot-relay/common/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistrySignatures(t *testing.T) {
	registry, err := NewDefaultRegistry()
	require.NoError(t, err)

	tests := []struct {
		name string
		sig  string
	}{
		{FnCreateNextBot, "create_next_bot(uint256,address,uint256[],uint256)"},
		{FnRepayBot, "repay_bot(address[],address[],uint256[][],(address[11],uint256[5][5],uint256,uint256,address[5])[][])"},
		{FnSetPaloma, "set_paloma()"},
		{FnUpdateCompass, "update_compass(address)"},
		{FnUpdateBlueprint, "update_blueprint(address)"},
		{FnUpdateRefundWallet, "update_refund_wallet(address)"},
		{FnUpdateGasFee, "update_gas_fee(uint256)"},
		{FnUpdateServiceFeeCollector, "update_service_fee_collector(address)"},
		{FnUpdateServiceFee, "update_service_fee(uint256)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, err := registry.Signature(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.sig, sig)

			selector, err := registry.Selector(tt.name)
			require.NoError(t, err)
			assert.Equal(t, crypto.Keccak256([]byte(tt.sig))[:4], selector)
		})
	}

	assert.Len(t, registry.Names(), len(tests))
}

func TestRegistryKnownSelector(t *testing.T) {
	registry, err := NewRegistry(Function{
		Name:   "transfer",
		Inputs: []Param{Field("to", AddressType()), Field("amount", Uint256())},
	})
	require.NoError(t, err)

	selector, err := registry.Selector("transfer")
	require.NoError(t, err)
	assert.Equal(t, common.FromHex("0xa9059cbb"), selector)
}

func TestRegistryRejectsClashes(t *testing.T) {
	t.Run("Duplicate name", func(t *testing.T) {
		fn := Function{Name: "ping"}
		_, err := NewRegistry(fn, fn)
		assert.ErrorIs(t, err, commonerrors.ErrDuplicateFunction)
	})

	t.Run("Unknown function", func(t *testing.T) {
		registry, err := NewRegistry()
		require.NoError(t, err)

		_, err = registry.Encode("missing")
		assert.ErrorIs(t, err, commonerrors.ErrUnknownFunction)

		_, err = registry.Signature("missing")
		assert.ErrorIs(t, err, commonerrors.ErrUnknownFunction)
	})

	t.Run("Invalid schema", func(t *testing.T) {
		_, err := NewRegistry(Function{Name: "bad", Inputs: []Param{Field("x", UintType(7))}})
		assert.Error(t, err)

		_, err = NewRegistry(Function{Name: "bad", Inputs: []Param{Field("x", FixedArray(AddressType(), 0))}})
		assert.Error(t, err)
	})
}
