package buffer

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/storewatch/sentinel/internal/client/buffer/migrations"
)

// SQLiteBuffer is the durable backing store: a local modernc.org/sqlite
// database holding the heartbeat_buffer table, opened the same way the
// server opens its own store and migrated with the same goose runner
// against an embedded client-side migration set.
type SQLiteBuffer struct {
	db *sql.DB
}

// OpenSQLite opens (creating if necessary) the client's local buffer
// database at path and migrates it to the latest schema.
func OpenSQLite(path string) (*SQLiteBuffer, error) {
	if path == "" {
		return nil, fmt.Errorf("buffer: sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("buffer: create sqlite dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_busy_timeout=30000&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("buffer: open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("buffer: set wal mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=30000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("buffer: set busy timeout: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("buffer: ping sqlite: %w", err)
	}

	goose.SetBaseFS(migrations.SQLite)
	if err := goose.SetDialect("sqlite3"); err != nil {
		db.Close()
		return nil, fmt.Errorf("buffer: set goose dialect: %w", err)
	}
	if err := goose.Up(db, "sqlite"); err != nil {
		db.Close()
		return nil, fmt.Errorf("buffer: migrate: %w", err)
	}

	return &SQLiteBuffer{db: db}, nil
}

func (b *SQLiteBuffer) Enqueue(ctx context.Context, data string, timestamp int64) (int64, error) {
	result, err := b.db.ExecContext(ctx, `
		INSERT INTO heartbeat_buffer (timestamp, data, sent, created_at)
		VALUES (?, ?, 0, ?)
	`, timestamp, data, timestamp)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (b *SQLiteBuffer) Peek(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		n = 10
	}
	rows, err := b.db.QueryContext(ctx, `
		SELECT id, timestamp, data, sent FROM heartbeat_buffer
		WHERE sent = 0 ORDER BY id ASC LIMIT ?
	`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var sent int
		if err := rows.Scan(&e.Seq, &e.Timestamp, &e.Data, &sent); err != nil {
			return nil, err
		}
		e.Sent = sent != 0
		out = append(out, e)
	}
	return out, rows.Err()
}

func (b *SQLiteBuffer) MarkSent(ctx context.Context, seq int64) error {
	_, err := b.db.ExecContext(ctx, `UPDATE heartbeat_buffer SET sent = 1 WHERE id = ?`, seq)
	return err
}

func (b *SQLiteBuffer) GC(ctx context.Context, retentionSeconds int64) error {
	cutoff := time.Now().Unix() - retentionSeconds
	_, err := b.db.ExecContext(ctx, `DELETE FROM heartbeat_buffer WHERE sent = 1 AND created_at < ?`, cutoff)
	return err
}

func (b *SQLiteBuffer) Close() error {
	return b.db.Close()
}
