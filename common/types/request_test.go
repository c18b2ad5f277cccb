package types

import (
	"encoding/json"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBotInfoSwapInfoForms(t *testing.T) {
	t.Run("List", func(t *testing.T) {
		var info BotInfo
		require.NoError(t, json.Unmarshal([]byte(`{
			"bot": "0x1111111111111111111111111111111111111111",
			"swap_infos": [{"amount": "1"}, {"amount": "2"}]
		}`), &info))

		require.Len(t, info.SwapInfos, 2)
		assert.Equal(t, uint256.NewInt(2), info.SwapInfos[1].Amount)
		assert.Equal(t, "0x1111111111111111111111111111111111111111", info.Bot)
	})

	t.Run("Single object", func(t *testing.T) {
		var info BotInfo
		require.NoError(t, json.Unmarshal([]byte(`{
			"bot": "0x1111111111111111111111111111111111111111",
			"callback_args": ["5"],
			"swap_info": {"amount": "7", "expected": "0x10"}
		}`), &info))

		require.Len(t, info.SwapInfos, 1)
		assert.Equal(t, uint256.NewInt(7), info.SwapInfos[0].Amount)
		assert.Equal(t, uint256.NewInt(16), info.SwapInfos[0].Expected)
		assert.Equal(t, []*uint256.Int{uint256.NewInt(5)}, info.CallbackArgs)
	})

	t.Run("Invalid integer", func(t *testing.T) {
		var info BotInfo
		assert.Error(t, json.Unmarshal([]byte(`{"callback_args": ["abc"]}`), &info))
	})
}

func TestExecuteMsgVariants(t *testing.T) {
	var msg ExecuteMsg
	require.NoError(t, json.Unmarshal([]byte(`{"set_paloma": {}}`), &msg))
	assert.Equal(t, 1, msg.Variants())
	assert.NotNil(t, msg.SetPaloma)

	require.NoError(t, json.Unmarshal([]byte(`{"update_gas_fee": {"new_gas_fee": "100"}}`), &msg))
	assert.Equal(t, 2, msg.Variants())
	assert.Equal(t, uint256.NewInt(100), msg.UpdateGasFee.NewGasFee)

	assert.Equal(t, 0, (&ExecuteMsg{}).Variants())
}

func TestResponseAttributes(t *testing.T) {
	resp := NewResponse().
		AddAttribute("action", "repay_bot").
		AddMessage(DispatchEnvelope{JobID: "job"})

	value, ok := resp.Attribute("action")
	assert.True(t, ok)
	assert.Equal(t, "repay_bot", value)

	_, ok = resp.Attribute("missing")
	assert.False(t, ok)
	assert.Len(t, resp.Messages, 1)
}
