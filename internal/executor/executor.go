// Package executor runs parameterized SQL on behalf of the query assembler and the
// lookup resolver. It never builds SQL itself.
package executor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/conduit-lang/dictquery/internal/fault"
)

// Dialect selects the SQL placeholder style
type Dialect int

const (
	// DialectQuestion uses "?" placeholders (MySQL, SQLite)
	DialectQuestion Dialect = iota
	// DialectDollar uses "$N" placeholders (PostgreSQL)
	DialectDollar
)

// PlaceholderFormat returns the squirrel placeholder format of the dialect
func (d Dialect) PlaceholderFormat() sq.PlaceholderFormat {
	if d == DialectDollar {
		return sq.Dollar
	}
	return sq.Question
}

// DialectForDriver maps a database/sql driver name to its dialect
func DialectForDriver(driver string) (Dialect, error) {
	switch driver {
	case "pgx", "postgres":
		return DialectDollar, nil
	case "mysql", "sqlite3":
		return DialectQuestion, nil
	default:
		return 0, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

// RowCursor iterates over query results. *sql.Rows satisfies it.
type RowCursor interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
	Close() error
}

// Executor runs count and data queries. Errors are *fault.Error values of kind
// Cancelled or ExecutionFailure.
type Executor interface {
	Dialect() Dialect
	Count(ctx context.Context, query string, args ...interface{}) (int64, error)
	Query(ctx context.Context, query string, args ...interface{}) (RowCursor, error)
}

// SQLExecutor is an Executor over a database/sql pool
type SQLExecutor struct {
	db      *sql.DB
	dialect Dialect
}

// New wraps an open database handle
func New(db *sql.DB, dialect Dialect) *SQLExecutor {
	return &SQLExecutor{db: db, dialect: dialect}
}

// Dialect implements Executor
func (e *SQLExecutor) Dialect() Dialect {
	return e.dialect
}

// Count implements Executor. The query must return a single integer.
func (e *SQLExecutor) Count(ctx context.Context, query string, args ...interface{}) (int64, error) {
	var n int64
	if err := e.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fault.WithSQL(Classify(ctx, "executor.Count", err), query)
	}
	return n, nil
}

// Query implements Executor. The caller closes the returned cursor.
func (e *SQLExecutor) Query(ctx context.Context, query string, args ...interface{}) (RowCursor, error) {
	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fault.WithSQL(Classify(ctx, "executor.Query", err), query)
	}
	return rows, nil
}

// Close closes the underlying pool
func (e *SQLExecutor) Close() error {
	return e.db.Close()
}

// DB returns the underlying pool
func (e *SQLExecutor) DB() *sql.DB {
	return e.db
}

const (
	pgQueryCanceled    = "57014"
	mysqlQueryCanceled = 1317
)

// Classify converts a driver error into a fault.Error. Context cancellation and the
// drivers' "query canceled" errors become Cancelled; everything else is ExecutionFailure.
func Classify(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if IsCancellation(err) || (ctx != nil && ctx.Err() != nil) {
		return fault.Wrap(fault.Cancelled, op, "", err)
	}
	return fault.Wrap(fault.ExecutionFailure, op, "", err)
}

// IsCancellation reports whether err signals an aborted statement
func IsCancellation(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgQueryCanceled {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == pgQueryCanceled {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlQueryCanceled {
		return true
	}
	return false
}
