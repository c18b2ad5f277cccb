package backends

import (
	"context"
	"sync"

	"github.com/ClipFinance/juice-bot-relay/common/types"
	"github.com/ClipFinance/juice-bot-relay/config"
	"github.com/ClipFinance/juice-bot-relay/connectionmonitor"
	"github.com/ClipFinance/juice-bot-relay/dbconfig"
	"github.com/ClipFinance/juice-bot-relay/store"
	"github.com/ClipFinance/juice-bot-relay/store/badgerstore"
	"github.com/ClipFinance/juice-bot-relay/store/memory"
	"github.com/ClipFinance/juice-bot-relay/store/redisstore"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Backend is a store backend whose connection can be monitored.
type Backend interface {
	store.Backend
	connectionmonitor.Client
}

// BackendConstructor represents a function that constructs a new store backend.
//
// Parameters:
// - ctx: the context for managing the request.
// - config: the relay configuration.
// - logger: the logger for logging purposes.
//
// Returns:
// - Backend: the constructed backend.
// - error: an error if the backend construction fails.
type BackendConstructor func(ctx context.Context, config *config.Config, logger *logrus.Logger) (Backend, error)

// BackendFactory defines the interface for backend creation.
type BackendFactory interface {
	// RegisterConstructor registers a new backend constructor for a given backend type.
	//
	// Parameters:
	// - backendType: the type of the backend to register.
	// - constructor: the constructor function for the backend type.
	RegisterConstructor(backendType types.BackendType, constructor BackendConstructor)

	// CreateBackend creates a new backend based on the configuration.
	//
	// Parameters:
	// - ctx: the context for managing the request.
	// - config: the relay configuration.
	// - logger: the logger for logging purposes.
	//
	// Returns:
	// - Backend: the created backend.
	// - error: an error if the backend creation fails.
	CreateBackend(ctx context.Context, config *config.Config, logger *logrus.Logger) (Backend, error)
}

type backendFactory struct {
	// constructors stores the mapping of backend types to their constructors.
	constructors map[types.BackendType]BackendConstructor
	// constructorsMutex protects access to the constructors map.
	constructorsMutex sync.RWMutex
}

// NewBackendFactory creates a new instance of the backend factory.
//
// Returns:
// - BackendFactory: the new backend factory instance.
func NewBackendFactory() BackendFactory {
	factory := &backendFactory{
		constructors: make(map[types.BackendType]BackendConstructor),
	}

	// Initialize with default constructors.
	factory.registerConstructors()

	return factory
}

// RegisterConstructor registers a new backend constructor.
func (f *backendFactory) RegisterConstructor(backendType types.BackendType, constructor BackendConstructor) {
	f.constructorsMutex.Lock()
	defer f.constructorsMutex.Unlock()

	f.constructors[backendType] = constructor
}

// CreateBackend creates a new backend based on the configuration.
func (f *backendFactory) CreateBackend(ctx context.Context, config *config.Config, logger *logrus.Logger) (Backend, error) {
	f.constructorsMutex.RLock()
	constructor, exists := f.constructors[config.Backend]
	f.constructorsMutex.RUnlock()

	if !exists {
		return nil, errors.Errorf("invalid backend type %s", config.Backend)
	}

	return constructor(ctx, config, logger)
}

// NewRedisClient creates the Redis client used by the redis backend and the stream publisher.
func NewRedisClient(config *config.Config) redis.UniversalClient {
	return redis.NewClient(&redis.Options{Addr: config.RedisAddr})
}

// registerConstructors registers the store backend constructors for the factory instance.
func (f *backendFactory) registerConstructors() {
	f.RegisterConstructor(types.MEMORY, func(_ context.Context, _ *config.Config, _ *logrus.Logger) (Backend, error) {
		return memory.NewBackend(), nil
	})

	f.RegisterConstructor(types.POSTGRES, func(ctx context.Context, config *config.Config, logger *logrus.Logger) (Backend, error) {
		db, err := dbconfig.NewDBConfig(config.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return db, nil
	})

	f.RegisterConstructor(types.REDIS, func(_ context.Context, config *config.Config, logger *logrus.Logger) (Backend, error) {
		return redisstore.NewBackend(NewRedisClient(config), config.RedisPrefix, logger), nil
	})

	f.RegisterConstructor(types.BADGER, func(_ context.Context, config *config.Config, logger *logrus.Logger) (Backend, error) {
		backend, err := badgerstore.Open(config.BadgerDir, logger)
		if err != nil {
			return nil, err
		}
		return backend, nil
	})
}
