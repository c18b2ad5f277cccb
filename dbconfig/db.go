package dbconfig

import (
	"context"
	"database/sql"
	"sync"

	"github.com/ClipFinance/juice-bot-relay/store"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	_ "github.com/lib/pq"
)

// DBConfig is the PostgreSQL store backend.
type DBConfig struct {
	dbConnStr string
	db        *sql.DB
	dbMutex   sync.RWMutex
	logger    *logrus.Logger
}

// NewDBConfig creates a new DBConfig instance with the provided connection string.
//
// Parameters:
// - connStr: the database connection string.
// - logger: the logger for logging events.
//
// Returns:
// - *DBConfig: a pointer to the newly created DBConfig instance.
// - error: an error if the creation of the DBConfig instance fails.
func NewDBConfig(connStr string, logger *logrus.Logger) (*DBConfig, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, errors.Wrap(ErrDatabaseConnect, err.Error())
	}

	return &DBConfig{
		dbConnStr: connStr,
		db:        db,
		logger:    logger,
	}, nil
}

// Begin opens a serializable transaction.
//
// Parameters:
// - ctx: the context for managing the request.
//
// Returns:
// - store.Tx: the transaction handle.
// - error: an error if the database cannot be reached.
func (r *DBConfig) Begin(ctx context.Context) (store.Tx, error) {
	sqlTx, err := r.conn().BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, errors.Wrap(ErrDatabaseConnect, err.Error())
	}
	return &dbTx{tx: sqlTx}, nil
}

// CheckConnection pings the database.
func (r *DBConfig) CheckConnection(ctx context.Context) error {
	if err := r.conn().PingContext(ctx); err != nil {
		return errors.Wrap(ErrDatabaseConnect, err.Error())
	}
	return nil
}

// Reconnect replaces the connection pool with a fresh one.
func (r *DBConfig) Reconnect(ctx context.Context) error {
	db, err := sql.Open("postgres", r.dbConnStr)
	if err != nil {
		return errors.Wrap(ErrDatabaseConnect, err.Error())
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return errors.Wrap(ErrDatabaseConnect, err.Error())
	}

	r.dbMutex.Lock()
	old := r.db
	r.db = db
	r.dbMutex.Unlock()

	if err := old.Close(); err != nil {
		r.logger.WithError(err).Warn("Failed to close previous connection pool")
	}
	return nil
}

// Close closes the connection pool.
func (r *DBConfig) Close() error {
	return r.conn().Close()
}

func (r *DBConfig) conn() *sql.DB {
	r.dbMutex.RLock()
	defer r.dbMutex.RUnlock()
	return r.db
}
