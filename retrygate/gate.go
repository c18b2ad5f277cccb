package retrygate

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Key identifies one retry record. Subject and Tag are stable identifying fields of an action,
// e.g. a bot id and a remaining count, or a bot address and an action tag.
type Key struct {
	Subject string
	Tag     string
}

// String returns the composite storage form of the key.
func (k Key) String() string {
	return k.Subject + "/" + k.Tag
}

// ParseKey parses the composite storage form produced by Key.String.
func ParseKey(s string) (Key, error) {
	subject, tag, ok := strings.Cut(s, "/")
	if !ok || subject == "" {
		return Key{}, errors.Errorf("invalid retry key %q", s)
	}
	return Key{Subject: subject, Tag: tag}, nil
}

// Store holds the last-attempt timestamp of every key. Timestamps are seconds.
type Store interface {
	// LastAttempt returns the recorded timestamp of key and whether a record exists.
	LastAttempt(ctx context.Context, key Key) (uint64, bool, error)

	// RecordAttempt stores ts as the last attempt of key.
	RecordAttempt(ctx context.Context, key Key, ts uint64) error
}

// Gate admits at most one attempt per key within each retry window. The timestamp is written
// when the gate admits, not when the destination confirms execution.
type Gate struct {
	store  Store
	delay  uint64
	logger *logrus.Logger
}

// New creates a retry gate.
//
// Parameters:
// - store: the timestamp store, usually scoped to one invocation.
// - delay: the retry window in seconds.
// - logger: the logger for logging events.
//
// Returns:
// - *Gate: the new gate.
func New(store Store, delay uint64, logger *logrus.Logger) *Gate {
	return &Gate{
		store:  store,
		delay:  delay,
		logger: logger,
	}
}

// Delay returns the retry window in seconds.
func (g *Gate) Delay() uint64 {
	return g.delay
}

// Admit decides whether key may be attempted at now and records now when it may.
// A key without a record is admitted. A key recorded at t is admitted iff t + delay < now.
// A rejected key keeps its record.
//
// Parameters:
// - ctx: the context for managing the request.
// - key: the retry key.
// - now: the current time in seconds.
//
// Returns:
// - bool: true if the attempt is admitted.
// - error: an error if the store fails.
func (g *Gate) Admit(ctx context.Context, key Key, now uint64) (bool, error) {
	last, found, err := g.store.LastAttempt(ctx, key)
	if err != nil {
		return false, errors.Wrapf(err, "failed to load last attempt of %s", key)
	}

	if found && !Expired(last, g.delay, now) {
		g.logger.WithFields(logrus.Fields{
			"key":          key.String(),
			"last_attempt": last,
			"now":          now,
		}).Debug("Retry window still open")
		return false, nil
	}

	if err := g.store.RecordAttempt(ctx, key, now); err != nil {
		return false, errors.Wrapf(err, "failed to record attempt of %s", key)
	}

	return true, nil
}

// Expired reports whether last + delay < now without overflowing.
func Expired(last, delay, now uint64) bool {
	if now <= last {
		return false
	}
	return now-last > delay
}
