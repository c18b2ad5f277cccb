package cmd

import (
	"context"
	"io"
	"time"

	"github.com/ClipFinance/juice-bot-relay/backends"
	"github.com/ClipFinance/juice-bot-relay/config"
	"github.com/ClipFinance/juice-bot-relay/dispatch"
	"github.com/ClipFinance/juice-bot-relay/relay"
	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configFile string
}

type app struct {
	config  *config.Config
	logger  *logrus.Logger
	backend backends.Backend
	stream  redis.UniversalClient
	broker  *amqp.Connection
	relay   *relay.Relay
	now     func() time.Time
}

func wireApp(ctx context.Context, opts *rootOptions, logOut io.Writer) (*app, error) {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	logger := cfg.NewLogger(logOut)

	backend, err := backends.NewBackendFactory().CreateBackend(ctx, cfg, logger)
	if err != nil {
		return nil, errors.Wrapf(err, "wire %s backend", cfg.Backend)
	}

	a := &app{
		config:  cfg,
		logger:  logger,
		backend: backend,
		now:     time.Now,
	}

	publisher, err := a.publisher()
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.relay, err = relay.NewBuilder(backend).
		WithPublisher(publisher).
		WithLogger(logger).
		Build()
	if err != nil {
		_ = a.Close()
		return nil, errors.Wrap(err, "wire relay")
	}
	return a, nil
}

// publisher selects the outbound channel configured for envelopes.
func (a *app) publisher() (dispatch.Publisher, error) {
	switch {
	case a.config.AMQP.URL != "":
		conn, ch, err := dispatch.DialAMQP(a.config.AMQP.URL)
		if err != nil {
			return nil, err
		}
		a.broker = conn
		publisher, err := dispatch.NewAMQPPublisher(ch, a.config.AMQP.Exchange, a.config.AMQP.RoutingKey, a.logger)
		if err != nil {
			return nil, err
		}
		return dispatch.NewBreakerPublisher("amqp", publisher, dispatch.DefaultBreakerConfig(), a.logger), nil

	case a.config.RedisStream != "":
		a.stream = backends.NewRedisClient(a.config)
		publisher := dispatch.NewStreamPublisher(a.stream, a.config.RedisStream, a.logger)
		return dispatch.NewBreakerPublisher("redis-stream", publisher, dispatch.DefaultBreakerConfig(), a.logger), nil

	default:
		return dispatch.NewLogPublisher(a.logger), nil
	}
}

// Close releases the backend and the outbound clients.
func (a *app) Close() error {
	if a.broker != nil {
		if err := a.broker.Close(); err != nil {
			a.logger.WithError(err).Warn("Failed to close amqp connection")
		}
	}
	if a.stream != nil {
		if err := a.stream.Close(); err != nil {
			a.logger.WithError(err).Warn("Failed to close stream client")
		}
	}
	return a.backend.Close()
}

// withApp wires the application for one command and closes it afterwards.
func withApp(cmd *cobra.Command, opts *rootOptions, run func(*app) error) error {
	a, err := wireApp(cmd.Context(), opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			a.logger.WithError(err).Warn("Failed to close backend")
		}
	}()
	return run(a)
}
