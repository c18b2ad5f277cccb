package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/ClipFinance/juice-bot-relay/calldata"
	commonerrors "github.com/ClipFinance/juice-bot-relay/common/errors"
	"github.com/ClipFinance/juice-bot-relay/common/types"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const createNextBot = `{"create_next_bot":{"bot_id":"7","callbacker":"0x4444444444444444444444444444444444444444","callback_args":["1","2"],"remaining_count":"3"}}`

func TestSelectorsListsEveryFunction(t *testing.T) {
	stdout, _, err := executeCLI(t, "", "selectors")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	assert.Len(t, lines, len(calldata.Functions()))
	assert.Contains(t, stdout, "set_paloma()")
	assert.Contains(t, stdout, "update_gas_fee(uint256)")
	assert.Contains(t, stdout, "create_next_bot(uint256,address,uint256[],uint256)")
}

func TestInstantiateExecuteDecode(t *testing.T) {
	useBadger(t)

	_, _, err := executeCLI(t, "",
		"instantiate",
		"--sender", "paloma1owner",
		"--retry-delay", "100",
		"--job-id", "juice-job",
		"--creator", "creator",
		"--signer", "signer-1", "--signer", "signer-2",
	)
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, "", "query", "job-id")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"job_id": "juice-job"`)

	stdout, _, err = executeCLI(t, "", "execute", "--sender", "paloma1owner", "--time", "0", createNextBot)
	require.NoError(t, err)

	var resp types.Response
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "juice-job", resp.Messages[0].JobID)
	assert.Equal(t, []string{"signer-1", "signer-2"}, resp.Messages[0].Metadata.Signers)

	stdout, _, err = executeCLI(t, "", "decode", hexutil.Encode(resp.Messages[0].Payload))
	require.NoError(t, err)

	var decoded struct {
		Function string        `json:"function"`
		Args     []interface{} `json:"args"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &decoded))
	assert.Equal(t, calldata.FnCreateNextBot, decoded.Function)
	assert.Equal(t, []interface{}{
		"7",
		"0x4444444444444444444444444444444444444444",
		[]interface{}{"1", "2"},
		"3",
	}, decoded.Args)

	_, _, err = executeCLI(t, "", "execute", "--sender", "paloma1owner", "--time", "50", createNextBot)
	assert.ErrorIs(t, err, commonerrors.ErrNothingPending)

	stdout, _, err = executeCLI(t, "", "retries")
	require.NoError(t, err)
	assert.Contains(t, stdout, "SUBJECT")
	fields := strings.Fields(strings.Split(strings.TrimSpace(stdout), "\n")[1])
	assert.Equal(t, []string{"7", "3", "0"}, fields)
}

func TestExecuteReadsMessageFromStdin(t *testing.T) {
	useBadger(t)

	_, _, err := executeCLI(t, "", "instantiate", "--sender", "paloma1owner", "--job-id", "juice-job")
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, `{"set_paloma":{}}`, "execute", "--sender", "paloma1owner", "--file", "-")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"value": "set_paloma"`)

	_, _, err = executeCLI(t, "", "execute", "--sender", "paloma1stranger", `{"set_paloma":{}}`)
	assert.ErrorIs(t, err, commonerrors.ErrUnauthorized)
}

func TestExecuteRequiresSenderAndMessage(t *testing.T) {
	useBadger(t)

	_, _, err := executeCLI(t, "", "execute", `{"set_paloma":{}}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag(s) \"sender\" not set")

	_, _, err = executeCLI(t, "", "execute", "--sender", "paloma1owner")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "an execute message is required")

	_, _, err = executeCLI(t, "", "execute", "--sender", "paloma1owner", "{")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse execute message")
}

func TestDecodeRejectsUnknownSelector(t *testing.T) {
	_, _, err := executeCLI(t, "", "decode", "0xdeadbeef")
	assert.ErrorIs(t, err, commonerrors.ErrUnknownFunction)

	_, _, err = executeCLI(t, "", "decode", "0xzz")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid payload")
}

func TestUnknownBackendFails(t *testing.T) {
	t.Setenv("RELAY_BACKEND", "cassandra")

	_, _, err := executeCLI(t, "", "query", "job-id")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RELAY_BACKEND")
}

// useBadger points the CLI at an on-disk store so state survives between invocations.
func useBadger(t *testing.T) {
	t.Helper()
	t.Setenv("RELAY_BACKEND", "badger")
	t.Setenv("BADGER_DIR", t.TempDir())
	t.Setenv("LOG_LEVEL", "error")
}

func executeCLI(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	root := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}
