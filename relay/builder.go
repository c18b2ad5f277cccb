package relay

import (
	"io"

	"github.com/ClipFinance/juice-bot-relay/batch"
	"github.com/ClipFinance/juice-bot-relay/calldata"
	"github.com/ClipFinance/juice-bot-relay/dispatch"
	"github.com/ClipFinance/juice-bot-relay/metrics"
	"github.com/ClipFinance/juice-bot-relay/store"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Builder is a builder pattern implementation for relay configuration.
// It allows setting the components the relay dispatches through, such as
// the function registry, the envelope publisher and the gate observer.
type Builder struct {
	backend   store.Backend      // Store backend.
	registry  *calldata.Registry // Destination function registry.
	publisher dispatch.Publisher // Envelope publisher.
	observer  batch.Observer     // Gate decision observer.
	logger    *logrus.Logger     // Logger.
}

// NewBuilder creates a new relay builder instance.
//
// Parameters:
// - backend: the store backend holding state and retry records.
//
// Returns:
// - *Builder: a new Builder instance.
func NewBuilder(backend store.Backend) *Builder {
	return &Builder{
		backend: backend,
	}
}

// WithRegistry sets the function registry. The default registry is used when none is set.
//
// Parameters:
// - registry: the function registry.
//
// Returns:
// - *Builder: the updated Builder instance.
func (b *Builder) WithRegistry(registry *calldata.Registry) *Builder {
	b.registry = registry
	return b
}

// WithPublisher sets the envelope publisher.
//
// Parameters:
// - publisher: the envelope publisher.
//
// Returns:
// - *Builder: the updated Builder instance.
func (b *Builder) WithPublisher(publisher dispatch.Publisher) *Builder {
	b.publisher = publisher
	return b
}

// WithObserver sets the gate decision observer.
//
// Parameters:
// - observer: the gate decision observer.
//
// Returns:
// - *Builder: the updated Builder instance.
func (b *Builder) WithObserver(observer batch.Observer) *Builder {
	b.observer = observer
	return b
}

// WithLogger sets the logger.
//
// Parameters:
// - logger: the logger.
//
// Returns:
// - *Builder: the updated Builder instance.
func (b *Builder) WithLogger(logger *logrus.Logger) *Builder {
	b.logger = logger
	return b
}

// Build creates a new relay with the configured components.
// Missing components fall back to the default registry, a log publisher,
// the metrics gate observer and a discarding logger.
//
// Returns:
// - *Relay: a new Relay instance.
// - error: an error if no backend is set or the default registry cannot be built.
func (b *Builder) Build() (*Relay, error) {
	if b.backend == nil {
		return nil, errors.New("relay requires a store backend")
	}

	logger := b.logger
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}

	registry := b.registry
	if registry == nil {
		var err error
		if registry, err = calldata.NewDefaultRegistry(); err != nil {
			return nil, errors.Wrap(err, "failed to build function registry")
		}
	}

	publisher := b.publisher
	if publisher == nil {
		publisher = dispatch.NewLogPublisher(logger)
	}

	observer := b.observer
	if observer == nil {
		observer = metrics.GateObserver{}
	}

	return &Relay{
		backend:   b.backend,
		registry:  registry,
		publisher: publisher,
		observer:  observer,
		logger:    logger,
	}, nil
}
