package driver

import "context"

// Row represents a single database row, compatible with both pgx.Row and
// *sql.Row.
type Row interface {
	Scan(dest ...any) error
}

// Rows represents a result set, compatible with both pgx.Rows and *sql.Rows.
type Rows interface {
	Close()
	Err() error
	Next() bool
	Scan(dest ...any) error
}

// Executor provides database operations. It can represent either a
// connection pool or an open transaction.
type Executor interface {
	// Begin starts a transaction, or a savepoint when already inside one.
	Begin(ctx context.Context) (ExecutorTx, error)

	// Exec executes a statement and returns the number of rows affected.
	Exec(ctx context.Context, sql string, args ...any) (int64, error)

	// Query executes a query that returns rows.
	Query(ctx context.Context, sql string, args ...any) (Rows, error)

	// QueryRow executes a query that returns at most one row.
	QueryRow(ctx context.Context, sql string, args ...any) Row
}

// ExecutorTx is an Executor bound to an active transaction.
type ExecutorTx interface {
	Executor

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// BatchItem is a single statement in a batch.
type BatchItem struct {
	Query string
	Args  []any
}

// BatchExecutor is an optional interface for backends with native batching.
// pgx/v5 sends the whole batch in one round trip; database/sql executes the
// items sequentially.
type BatchExecutor interface {
	Executor

	// SendBatch executes the items and returns rows affected per item.
	SendBatch(ctx context.Context, items []BatchItem) ([]int64, error)
}
