package history

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	username  TEXT    NOT NULL,
	message   TEXT    NOT NULL,
	timestamp INTEGER NOT NULL
);
`

// SQLiteConfig holds the parameters for opening a SQLite-backed log.
type SQLiteConfig struct {
	// Path is the database file. The parent directory must exist; the file
	// is created if missing.
	Path string

	// PoolSize defaults to max(runtime.NumCPU(), 4) when not positive.
	PoolSize int

	Logger *slog.Logger
}

// SQLiteLog is a durable MessageLog backed by a pool of SQLite connections.
// Each call takes a connection and returns it before the call ends.
type SQLiteLog struct {
	pool   *sqlitex.Pool
	logger *slog.Logger
	path   string
}

// OpenSQLite opens (and if needed creates) the message database. The caller
// must Close it.
func OpenSQLite(cfg SQLiteConfig) (*SQLiteLog, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("history: Path is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = runtime.NumCPU()
		if poolSize < 4 {
			poolSize = 4
		}
	}

	pool, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{
		PoolSize:    poolSize,
		PrepareConn: prepareConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("history: opening %s: %w", cfg.Path, err)
	}

	logger.Info("message log opened", "path", cfg.Path, "pool_size", poolSize)

	return &SQLiteLog{
		pool:   pool,
		logger: logger,
		path:   cfg.Path,
	}, nil
}

// prepareConnection runs once per pooled connection.
func prepareConnection(conn *sqlite.Conn) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("history: %s: %w", pragma, err)
		}
	}

	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("history: creating schema: %w", err)
	}
	return nil
}

// Append records one broadcast message.
func (l *SQLiteLog) Append(ctx context.Context, username, message string, timestamp int64) error {
	conn, err := l.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("history: take: %w", err)
	}
	defer l.pool.Put(conn)

	err = sqlitex.Execute(conn,
		"INSERT INTO messages (username, message, timestamp) VALUES (?, ?, ?)",
		&sqlitex.ExecOptions{Args: []any{username, message, timestamp}},
	)
	if err != nil {
		return fmt.Errorf("history: append: %w", err)
	}
	return nil
}

// Recent returns the last limit messages in insertion order.
func (l *SQLiteLog) Recent(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}

	conn, err := l.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("history: take: %w", err)
	}
	defer l.pool.Put(conn)

	texts := make([]string, 0, min(limit, 64))
	err = sqlitex.Execute(conn, `
		SELECT message FROM (
			SELECT id, message FROM messages ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`,
		&sqlitex.ExecOptions{
			Args: []any{limit},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				texts = append(texts, stmt.ColumnText(0))
				return nil
			},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("history: recent: %w", err)
	}
	return texts, nil
}

// Close closes every connection in the pool, waiting for borrowed ones.
func (l *SQLiteLog) Close() error {
	if err := l.pool.Close(); err != nil {
		l.logger.Error("message log close error", "path", l.path, "error", err)
		return fmt.Errorf("history: closing %s: %w", l.path, err)
	}
	l.logger.Info("message log closed", "path", l.path)
	return nil
}
