package dispatch

import (
	"context"
	"encoding/hex"
	"encoding/json"

	"github.com/ClipFinance/juice-bot-relay/common/types"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Publisher hands dispatch envelopes to the outbound relay channel.
type Publisher interface {
	Publish(ctx context.Context, envelope types.DispatchEnvelope) error
}

// LogPublisher writes every envelope to the log. It is used when no outbound channel is configured.
type LogPublisher struct {
	logger *logrus.Logger
}

// NewLogPublisher creates a publisher that only logs envelopes.
func NewLogPublisher(logger *logrus.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs the envelope.
func (p *LogPublisher) Publish(_ context.Context, envelope types.DispatchEnvelope) error {
	p.logger.WithFields(logrus.Fields{
		"job_id":  envelope.JobID,
		"payload": "0x" + hex.EncodeToString(envelope.Payload),
		"creator": envelope.Metadata.Creator,
		"signers": envelope.Metadata.Signers,
	}).Info("Dispatch envelope")
	return nil
}

// StreamPublisher appends envelopes to a Redis stream consumed by the relay.
type StreamPublisher struct {
	client redis.UniversalClient
	stream string
	logger *logrus.Logger
}

// NewStreamPublisher creates a Redis stream publisher.
//
// Parameters:
// - client: the Redis client.
// - stream: the stream name.
// - logger: the logger for logging events.
//
// Returns:
// - *StreamPublisher: the new publisher.
func NewStreamPublisher(client redis.UniversalClient, stream string, logger *logrus.Logger) *StreamPublisher {
	return &StreamPublisher{
		client: client,
		stream: stream,
		logger: logger,
	}
}

// Publish appends the JSON encoded envelope to the stream under the "envelope" field.
//
// Parameters:
// - ctx: the context for managing the request.
// - envelope: the envelope to publish.
//
// Returns:
// - error: an error if the envelope cannot be encoded or appended.
func (p *StreamPublisher) Publish(ctx context.Context, envelope types.DispatchEnvelope) error {
	data, err := json.Marshal(envelope)
	if err != nil {
		return errors.Wrap(err, "failed to encode envelope")
	}

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"job_id":   envelope.JobID,
			"envelope": string(data),
		},
	}).Result()
	if err != nil {
		return errors.Wrapf(err, "failed to append envelope to stream %s", p.stream)
	}

	p.logger.WithFields(logrus.Fields{
		"stream": p.stream,
		"id":     id,
		"job_id": envelope.JobID,
	}).Debug("Envelope published")
	return nil
}
