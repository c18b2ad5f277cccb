package connectionmonitor

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	// defaultHealthCheckInterval defines interval between connection health checks
	defaultHealthCheckInterval = 30 * time.Second
	// reconnectTimeout defines timeout between reconnection attempts
	reconnectTimeout = 5 * time.Second
	// maxReconnectAttempts defines maximum number of reconnection attempts
	maxReconnectAttempts = 3
)

// ConnectionMonitor represents connection state monitoring interface
type ConnectionMonitor interface {
	// Start starts connection monitoring
	Start(ctx context.Context) error
	// Stop stops connection monitoring
	Stop()
	// Healthy reports the result of the last check
	Healthy() bool
}

// Client represents a store backend connection
type Client interface {
	// CheckConnection checks if connection is alive
	CheckConnection(ctx context.Context) error
	// Reconnect attempts to reconnect to the backend
	Reconnect(ctx context.Context) error
}

// Option configures a connection monitor.
type Option func(*connectionMonitor)

// WithInterval sets the interval between health checks.
func WithInterval(interval time.Duration) Option {
	return func(m *connectionMonitor) {
		m.interval = interval
	}
}

// WithRetryDelay sets the delay between reconnection attempts.
func WithRetryDelay(delay time.Duration) Option {
	return func(m *connectionMonitor) {
		m.retryDelay = delay
	}
}

// WithStatusHook sets a function called with the result of every check.
func WithStatusHook(hook func(healthy bool)) Option {
	return func(m *connectionMonitor) {
		m.hook = hook
	}
}

type connectionMonitor struct {
	client       Client
	logger       *logrus.Logger
	backendName  string
	interval     time.Duration
	retryDelay   time.Duration
	hook         func(bool)
	stopChan     chan struct{}
	isMonitoring bool
	healthy      bool
	monitorMutex sync.RWMutex
}

// NewConnectionMonitor creates a new connection monitor instance.
//
// Parameters:
// - client: the backend client to monitor.
// - logger: the logger for logging purposes.
// - backendName: the name of the store backend.
// - opts: optional settings.
//
// Returns:
// - ConnectionMonitor: the new connection monitor instance.
func NewConnectionMonitor(
	client Client,
	logger *logrus.Logger,
	backendName string,
	opts ...Option,
) ConnectionMonitor {
	m := &connectionMonitor{
		client:       client,
		logger:       logger,
		backendName:  backendName,
		interval:     defaultHealthCheckInterval,
		retryDelay:   reconnectTimeout,
		stopChan:     make(chan struct{}),
		isMonitoring: false,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start runs a first check synchronously and then keeps monitoring in the background.
//
// Parameters:
// - ctx: the context for managing the request.
//
// Returns:
// - error: an error if the connection monitor is already running.
func (m *connectionMonitor) Start(ctx context.Context) error {
	m.monitorMutex.Lock()
	if m.isMonitoring {
		m.monitorMutex.Unlock()
		return errors.Errorf("connection monitor is already running for backend %s", m.backendName)
	}
	m.isMonitoring = true
	m.monitorMutex.Unlock()

	m.check(ctx)

	go m.monitorConnection(ctx)
	return nil
}

// Stop stops connection monitoring.
func (m *connectionMonitor) Stop() {
	m.monitorMutex.Lock()
	defer m.monitorMutex.Unlock()

	if !m.isMonitoring {
		return
	}

	close(m.stopChan)
	m.isMonitoring = false
}

// Healthy reports whether the last check succeeded.
func (m *connectionMonitor) Healthy() bool {
	m.monitorMutex.RLock()
	defer m.monitorMutex.RUnlock()
	return m.healthy
}

// monitorConnection monitors the connection state and attempts to reconnect if needed.
//
// Parameters:
// - ctx: the context for managing the request.
func (m *connectionMonitor) monitorConnection(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.WithField("backend", m.backendName).Info("Connection monitoring stopped due to context cancellation")
			return

		case <-m.stopChan:
			m.logger.WithField("backend", m.backendName).Info("Connection monitoring stopped")
			return

		case <-ticker.C:
			m.check(ctx)
		}
	}
}

func (m *connectionMonitor) check(ctx context.Context) {
	err := m.checkAndReconnect(ctx)
	if err != nil {
		m.logger.WithFields(logrus.Fields{
			"backend": m.backendName,
			"error":   err,
		}).Error("Failed to check or reconnect")
	}

	m.monitorMutex.Lock()
	m.healthy = err == nil
	m.monitorMutex.Unlock()

	if m.hook != nil {
		m.hook(err == nil)
	}
}

// checkAndReconnect checks the connection state and attempts to reconnect if needed.
//
// Parameters:
// - ctx: the context for managing the request.
//
// Returns:
// - error: an error if the reconnection fails.
func (m *connectionMonitor) checkAndReconnect(ctx context.Context) error {
	// Check connection
	if err := m.client.CheckConnection(ctx); err != nil {
		m.logger.WithFields(logrus.Fields{
			"backend": m.backendName,
			"error":   err,
		}).Warn("Connection check failed, attempting to reconnect")

		// Attempt to reconnect with retry logic
		for attempt := 1; attempt <= maxReconnectAttempts; attempt++ {
			if err := m.client.Reconnect(ctx); err != nil {
				m.logger.WithFields(logrus.Fields{
					"backend": m.backendName,
					"attempt": attempt,
					"error":   err,
				}).Error("Reconnection attempt failed")

				if attempt == maxReconnectAttempts {
					return errors.Wrapf(err, "failed to reconnect to backend %s", m.backendName)
				}

				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(m.retryDelay):
					continue
				}
			}

			m.logger.WithFields(logrus.Fields{
				"backend": m.backendName,
				"attempt": attempt,
			}).Info("Backend successfully reconnected")
			return nil
		}
	}

	m.logger.WithField("backend", m.backendName).Debug("Ping successful")

	return nil
}
