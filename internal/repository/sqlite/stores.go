// 文件路径: internal/repository/sqlite/stores.go
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/storewatch/sentinel/internal/repository"
)

type storeRepo struct {
	db *sql.DB
}

func newStoreRepo(db *sql.DB) *storeRepo {
	return &storeRepo{db: db}
}

func (r *storeRepo) Upsert(ctx context.Context, s *repository.StoreRow) error {
	now := time.Now().Unix()
	if s.CreatedAt == 0 {
		s.CreatedAt = now
	}
	s.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO stores (store_id, store_name, last_heartbeat, status, last_alert_sent, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(store_id) DO UPDATE SET
			store_name = excluded.store_name,
			last_heartbeat = excluded.last_heartbeat,
			status = excluded.status,
			updated_at = excluded.updated_at
	`, s.StoreID, s.StoreName, optionalInt64(s.LastHeartbeat), s.Status, optionalInt64(s.LastAlertSent), s.CreatedAt, s.UpdatedAt)
	return err
}

func (r *storeRepo) FindByID(ctx context.Context, storeID string) (*repository.StoreRow, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT store_id, store_name, last_heartbeat, status, last_alert_sent, created_at, updated_at
		FROM stores WHERE store_id = ?
	`, storeID)
	return scanStore(row)
}

func (r *storeRepo) ListAll(ctx context.Context) ([]*repository.StoreRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT store_id, store_name, last_heartbeat, status, last_alert_sent, created_at, updated_at
		FROM stores ORDER BY store_name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*repository.StoreRow
	for rows.Next() {
		s, err := scanStoreRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *storeRepo) ListMissing(ctx context.Context, knownIDs []string) ([]*repository.StoreRow, error) {
	if len(knownIDs) == 0 {
		return r.ListAll(ctx)
	}
	placeholders := make([]string, len(knownIDs))
	args := make([]any, len(knownIDs))
	for i, id := range knownIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(`
		SELECT store_id, store_name, last_heartbeat, status, last_alert_sent, created_at, updated_at
		FROM stores WHERE store_id NOT IN (%s)
	`, strings.Join(placeholders, ","))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*repository.StoreRow
	for rows.Next() {
		s, err := scanStoreRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *storeRepo) UpdateLastAlertSent(ctx context.Context, storeID string, sentAt int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE stores SET last_alert_sent = ?, updated_at = ? WHERE store_id = ?
	`, sentAt, time.Now().Unix(), storeID)
	return err
}

func (r *storeRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM stores`).Scan(&count)
	return count, err
}

func (r *storeRepo) CountByStatus(ctx context.Context, status string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM stores WHERE status = ?`, status).Scan(&count)
	return count, err
}

func scanStore(row *sql.Row) (*repository.StoreRow, error) {
	var s repository.StoreRow
	var lastHeartbeat, lastAlertSent sql.NullInt64
	err := row.Scan(&s.StoreID, &s.StoreName, &lastHeartbeat, &s.Status, &lastAlertSent, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s.LastHeartbeat = nullableIntPtr(lastHeartbeat)
	s.LastAlertSent = nullableIntPtr(lastAlertSent)
	return &s, nil
}

func scanStoreRows(rows *sql.Rows) (*repository.StoreRow, error) {
	var s repository.StoreRow
	var lastHeartbeat, lastAlertSent sql.NullInt64
	if err := rows.Scan(&s.StoreID, &s.StoreName, &lastHeartbeat, &s.Status, &lastAlertSent, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.LastHeartbeat = nullableIntPtr(lastHeartbeat)
	s.LastAlertSent = nullableIntPtr(lastAlertSent)
	return &s, nil
}
