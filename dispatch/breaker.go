package dispatch

import (
	"context"
	"time"

	"github.com/ClipFinance/juice-bot-relay/common/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// BreakerConfig configures BreakerPublisher.
type BreakerConfig struct {
	// ConsecutiveFailures opens the breaker.
	ConsecutiveFailures uint32
	// Timeout is how long the breaker stays open before a trial publish.
	Timeout time.Duration
	// MaxRequests is the number of trial publishes allowed while half-open.
	MaxRequests uint32
}

// DefaultBreakerConfig returns the breaker settings used by relayctl.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		ConsecutiveFailures: 5,
		Timeout:             30 * time.Second,
		MaxRequests:         1,
	}
}

// BreakerPublisher stops calling a failing outbound channel until it recovers.
// While open every publish fails at once, so invocations roll back without waiting on the channel.
type BreakerPublisher struct {
	next    Publisher
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerPublisher wraps next with a circuit breaker.
func NewBreakerPublisher(name string, next Publisher, config BreakerConfig, logger *logrus.Logger) *BreakerPublisher {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: config.MaxRequests,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.ConsecutiveFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"publisher": name,
				"from":      from.String(),
				"to":        to.String(),
			}).Warn("Publisher circuit breaker changed state")
		},
	}

	return &BreakerPublisher{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// Publish forwards the envelope unless the breaker is open.
func (p *BreakerPublisher) Publish(ctx context.Context, envelope types.DispatchEnvelope) error {
	_, err := p.breaker.Execute(func() (interface{}, error) {
		return nil, p.next.Publish(ctx, envelope)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return errors.Wrapf(err, "publisher %s unavailable", p.breaker.Name())
	}
	return err
}

// State returns the breaker state.
func (p *BreakerPublisher) State() gobreaker.State {
	return p.breaker.State()
}
