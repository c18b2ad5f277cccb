package backends

import (
	"context"
	"io"
	"testing"

	"github.com/ClipFinance/juice-bot-relay/common/types"
	"github.com/ClipFinance/juice-bot-relay/config"
	"github.com/ClipFinance/juice-bot-relay/store/badgerstore"
	"github.com/ClipFinance/juice-bot-relay/store/memory"
	"github.com/ClipFinance/juice-bot-relay/store/redisstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestCreateBackend(t *testing.T) {
	ctx := context.Background()
	factory := NewBackendFactory()
	mr := miniredis.RunT(t)

	tests := []struct {
		name   string
		config *config.Config
		check  func(t *testing.T, backend Backend)
	}{
		{
			name:   "Memory",
			config: &config.Config{Backend: types.MEMORY},
			check: func(t *testing.T, backend Backend) {
				assert.IsType(t, &memory.Backend{}, backend)
			},
		},
		{
			name:   "Redis",
			config: &config.Config{Backend: types.REDIS, RedisAddr: mr.Addr(), RedisPrefix: "test:"},
			check: func(t *testing.T, backend Backend) {
				assert.IsType(t, &redisstore.Backend{}, backend)
			},
		},
		{
			name:   "Badger",
			config: &config.Config{Backend: types.BADGER, BadgerDir: t.TempDir()},
			check: func(t *testing.T, backend Backend) {
				assert.IsType(t, &badgerstore.Backend{}, backend)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend, err := factory.CreateBackend(ctx, tt.config, quietLogger())
			require.NoError(t, err)
			defer backend.Close()

			tt.check(t, backend)
			assert.NoError(t, backend.CheckConnection(ctx))
		})
	}
}

func TestCreateBackendUnknownType(t *testing.T) {
	_, err := NewBackendFactory().CreateBackend(context.Background(), &config.Config{Backend: types.UNKNOWN}, quietLogger())
	assert.Error(t, err)
}

func TestRegisterConstructor(t *testing.T) {
	factory := NewBackendFactory()
	backend := memory.NewBackend()

	factory.RegisterConstructor(types.UNKNOWN, func(context.Context, *config.Config, *logrus.Logger) (Backend, error) {
		return backend, nil
	})

	created, err := factory.CreateBackend(context.Background(), &config.Config{Backend: types.UNKNOWN}, quietLogger())
	require.NoError(t, err)
	assert.Same(t, backend, created)
}
