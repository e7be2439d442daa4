// Package driver defines the database abstraction chatpg is built on.
//
// A Driver adapts one database access layer (pgx/v5 or database/sql) to the
// generic Executor interfaces, and produces the storage.Store implementation
// for that backend. TTx is the backend's native transaction type, so callers
// can mix their own transactional work with chatpg persistence.
package driver

import (
	"context"

	"github.com/chatpg/chatpg/storage"
)

// Driver provides database operations for chatpg.
// TTx is the native transaction type (pgx.Tx for pgx/v5, *sql.Tx for
// database/sql). Implementations are created with the driver-specific New()
// functions:
//   - github.com/chatpg/chatpg/driver/pgxv5.New(pool)
//   - github.com/chatpg/chatpg/driver/databasesql.New(db)
type Driver[TTx any] interface {
	// GetExecutor returns an executor backed by the connection pool, for
	// non-transactional operations.
	GetExecutor() Executor

	// UnwrapExecutor converts a native transaction to an ExecutorTx so
	// chatpg operations can join a user-managed transaction.
	UnwrapExecutor(tx TTx) ExecutorTx

	// Begin starts a new transaction.
	Begin(ctx context.Context) (ExecutorTx, error)

	// PoolIsSet returns true if the driver has a database pool configured.
	PoolIsSet() bool

	// GetStore returns the storage.Store implementation for this backend.
	GetStore() storage.Store
}
