// 文件路径: internal/repository/sqlite/alerts.go
package sqlite

import (
	"context"
	"database/sql"

	"github.com/storewatch/sentinel/internal/repository"
)

type alertRepo struct {
	db *sql.DB
}

func newAlertRepo(db *sql.DB) *alertRepo {
	return &alertRepo{db: db}
}

func (r *alertRepo) Create(ctx context.Context, a *repository.Alert) (*repository.Alert, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO alerts (store_id, alert_type, message, severity, resolved, resolved_at, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, a.StoreID, string(a.Kind), a.Message, string(a.Severity), boolToInt(a.Resolved), optionalInt64(a.ResolvedAt), a.Timestamp)
	if err != nil {
		return nil, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	a.ID = id
	return a, nil
}

func (r *alertRepo) ListRecent(ctx context.Context, limit int) ([]*repository.Alert, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.id, a.store_id, COALESCE(s.store_name, ''), a.alert_type, a.message, a.severity, a.resolved, a.resolved_at, a.timestamp
		FROM alerts a LEFT JOIN stores s ON s.store_id = a.store_id
		ORDER BY a.timestamp DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAlerts(rows)
}

func (r *alertRepo) ListByStore(ctx context.Context, storeID string, limit int) ([]*repository.Alert, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.id, a.store_id, COALESCE(s.store_name, ''), a.alert_type, a.message, a.severity, a.resolved, a.resolved_at, a.timestamp
		FROM alerts a LEFT JOIN stores s ON s.store_id = a.store_id
		WHERE a.store_id = ? ORDER BY a.timestamp DESC LIMIT ?
	`, storeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAlerts(rows)
}

func scanAlerts(rows *sql.Rows) ([]*repository.Alert, error) {
	var out []*repository.Alert
	for rows.Next() {
		var a repository.Alert
		var kind, severity string
		var resolved int
		var resolvedAt sql.NullInt64
		if err := rows.Scan(&a.ID, &a.StoreID, &a.StoreName, &kind, &a.Message, &severity, &resolved, &resolvedAt, &a.Timestamp); err != nil {
			return nil, err
		}
		a.Kind = repository.AlertKind(kind)
		a.Severity = repository.AlertSeverity(severity)
		a.Resolved = resolved != 0
		a.ResolvedAt = nullableIntPtr(resolvedAt)
		out = append(out, &a)
	}
	return out, rows.Err()
}
