package executor

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/dictquery/internal/fault"
)

func newMock(t *testing.T) (*SQLExecutor, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, DialectDollar), mock
}

func TestSQLExecutor_Count(t *testing.T) {
	exec, mock := newMock(t)

	mock.ExpectQuery("SELECT COUNT(*) FROM C_Order WHERE IsSOTrx = $1").
		WithArgs("Y").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(25))

	n, err := exec.Count(context.Background(), "SELECT COUNT(*) FROM C_Order WHERE IsSOTrx = $1", "Y")
	require.NoError(t, err)
	assert.Equal(t, int64(25), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLExecutor_Query(t *testing.T) {
	exec, mock := newMock(t)

	mock.ExpectQuery("SELECT C_Order_ID, DocumentNo FROM C_Order").
		WillReturnRows(sqlmock.NewRows([]string{"C_Order_ID", "DocumentNo"}).
			AddRow(1, []byte("SO-1")).
			AddRow(2, "SO-2"))

	cursor, err := exec.Query(context.Background(), "SELECT C_Order_ID, DocumentNo FROM C_Order")
	require.NoError(t, err)

	rows, err := ScanRows(cursor)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "SO-1", rows[0]["DocumentNo"])
	assert.Equal(t, "SO-2", rows[1]["DocumentNo"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLExecutor_Errors(t *testing.T) {
	t.Run("execution failure hides sql", func(t *testing.T) {
		exec, mock := newMock(t)
		mock.ExpectQuery("SELECT secret FROM T").WillReturnError(errors.New("relation does not exist"))

		_, err := exec.Query(context.Background(), "SELECT secret FROM T")
		require.Error(t, err)
		assert.True(t, fault.Is(err, fault.ExecutionFailure))
		assert.NotContains(t, err.Error(), "SELECT secret")

		var fe *fault.Error
		require.True(t, errors.As(err, &fe))
		assert.Contains(t, fe.Diagnostic(), "SELECT secret FROM T")
	})

	t.Run("driver cancellation", func(t *testing.T) {
		exec, mock := newMock(t)
		mock.ExpectQuery("SELECT 1").WillReturnError(&pgconn.PgError{Code: "57014", Message: "canceling statement"})

		_, err := exec.Count(context.Background(), "SELECT 1")
		assert.True(t, fault.IsCancelled(err))
	})

	t.Run("cancelled context", func(t *testing.T) {
		exec, _ := newMock(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := exec.Query(ctx, "SELECT 1")
		assert.True(t, fault.IsCancelled(err))
	})
}

func TestIsCancellation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"context canceled", context.Canceled, true},
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), true},
		{"pgx", &pgconn.PgError{Code: "57014"}, true},
		{"pgx other", &pgconn.PgError{Code: "23505"}, false},
		{"pq", &pq.Error{Code: "57014"}, true},
		{"mysql", &mysql.MySQLError{Number: 1317}, true},
		{"mysql other", &mysql.MySQLError{Number: 1146}, false},
		{"plain", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCancellation(tt.err))
		})
	}
}

func TestDialectForDriver(t *testing.T) {
	d, err := DialectForDriver("pgx")
	require.NoError(t, err)
	assert.Equal(t, DialectDollar, d)

	d, err = DialectForDriver("sqlite3")
	require.NoError(t, err)
	assert.Equal(t, DialectQuestion, d)

	_, err = DialectForDriver("oracle")
	assert.Error(t, err)
}

func TestOpen_Validation(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "oracle", DSN: "x"})
	assert.Error(t, err)

	_, err = Open(context.Background(), Config{Driver: "sqlite3"})
	assert.Error(t, err)
}

func TestOpen_SQLite(t *testing.T) {
	exec, err := Open(context.Background(), Config{Driver: "sqlite3", DSN: ":memory:", MaxOpenConns: 1})
	require.NoError(t, err)
	defer exec.Close()

	n, err := exec.Count(context.Background(), "SELECT 3")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, DialectQuestion, exec.Dialect())
}
