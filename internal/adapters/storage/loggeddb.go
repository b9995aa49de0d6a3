package storage

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultSlowQueryMs is the default threshold for slow query warnings.
const DefaultSlowQueryMs = 50

var slowQueryMs int64
var slowQueryOnce sync.Once

// getSlowQueryThreshold returns the slow-query threshold in milliseconds.
func getSlowQueryThreshold() float64 {
	slowQueryOnce.Do(func() {
		ms := DefaultSlowQueryMs
		if v := os.Getenv("TEXTFORWARD_SLOW_QUERY_MS"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				ms = n
			}
		}
		atomic.StoreInt64(&slowQueryMs, int64(ms))
	})
	return float64(atomic.LoadInt64(&slowQueryMs))
}

// LoggedDB wraps a *sql.DB to log slow queries.
// Satisfies the SQLDB interface so it can be passed to any store constructor.
type LoggedDB struct {
	db        *sql.DB
	threshold float64
}

// Compile-time check that *LoggedDB satisfies SQLDB.
var _ SQLDB = (*LoggedDB)(nil)

// NewLoggedDB wraps a *sql.DB with slow-query logging.
// PRE: db is a valid database connection
// POST: Returns a LoggedDB that warns on queries above the threshold
func NewLoggedDB(db *sql.DB) *LoggedDB {
	return &LoggedDB{db: db, threshold: getSlowQueryThreshold()}
}

// RawDB returns the underlying *sql.DB (needed for migrations and pool config).
func (l *LoggedDB) RawDB() *sql.DB {
	return l.db
}

// logQuery warns when a query exceeds the slow threshold.
func (l *LoggedDB) logQuery(op, query string, start time.Time) {
	durationMs := float64(time.Since(start).Microseconds()) / 1000.0
	if durationMs >= l.threshold {
		slog.Warn("slow_query", "op", op, "query", query, "duration_ms", durationMs)
	}
}

// ExecContext delegates to the wrapped DB with timing.
func (l *LoggedDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	defer l.logQuery("exec", query, start)
	return l.db.ExecContext(ctx, query, args...)
}

// QueryContext delegates to the wrapped DB with timing.
func (l *LoggedDB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	defer l.logQuery("query", query, start)
	return l.db.QueryContext(ctx, query, args...)
}

// QueryRowContext delegates to the wrapped DB with timing.
func (l *LoggedDB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	start := time.Now()
	defer l.logQuery("query_row", query, start)
	return l.db.QueryRowContext(ctx, query, args...)
}

// BeginTx delegates to the wrapped DB.
func (l *LoggedDB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	return l.db.BeginTx(ctx, opts)
}
