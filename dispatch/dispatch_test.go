package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/ClipFinance/juice-bot-relay/common/types"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testState() *types.State {
	return &types.State{
		RetryDelay: 60,
		JobID:      "juice-job",
		Owner:      "owner",
		Metadata: types.Metadata{
			Creator: "creator",
			Signers: []string{"signer-1", "signer-2"},
		},
	}
}

func TestNewEnvelope(t *testing.T) {
	state := testState()
	envelope := NewEnvelope(state, []byte{1, 2, 3})

	assert.Equal(t, "juice-job", envelope.JobID)
	assert.Equal(t, []byte{1, 2, 3}, envelope.Payload)
	assert.Equal(t, state.Metadata, envelope.Metadata)

	state.Metadata.Signers[0] = "changed"
	assert.Equal(t, "signer-1", envelope.Metadata.Signers[0])
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	err := NewLogPublisher(logger).Publish(context.Background(), NewEnvelope(testState(), []byte{0xab}))
	require.NoError(t, err)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "juice-job", entry["job_id"])
	assert.Equal(t, "0xab", entry["payload"])
}

func TestStreamPublisher(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	ctx := context.Background()
	envelope := NewEnvelope(testState(), []byte{0xde, 0xad})
	require.NoError(t, NewStreamPublisher(client, "relay:dispatch", logger).Publish(ctx, envelope))

	messages, err := client.XRange(ctx, "relay:dispatch", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "juice-job", messages[0].Values["job_id"])

	var decoded types.DispatchEnvelope
	require.NoError(t, json.Unmarshal([]byte(messages[0].Values["envelope"].(string)), &decoded))
	assert.Equal(t, envelope, decoded)
}

func TestStreamPublisherFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	err := NewStreamPublisher(client, "relay:dispatch", logger).Publish(context.Background(), NewEnvelope(testState(), nil))
	assert.Error(t, err)
}
