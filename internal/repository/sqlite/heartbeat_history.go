// 文件路径: internal/repository/sqlite/heartbeat_history.go
package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/storewatch/sentinel/internal/repository"
)

type heartbeatHistoryRepo struct {
	db *sql.DB
}

func newHeartbeatHistoryRepo(db *sql.DB) *heartbeatHistoryRepo {
	return &heartbeatHistoryRepo{db: db}
}

func (r *heartbeatHistoryRepo) Insert(ctx context.Context, h *repository.HeartbeatHistory) error {
	h.CreatedAt = time.Now().Unix()
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO heartbeat_history (
			store_id, timestamp, cpu_usage, memory_usage, disk_free_gb,
			active_cameras, total_cameras, network_connected, payload, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, h.StoreID, h.Timestamp, h.CPUUsage, h.MemoryUsage, h.DiskFreeGB,
		h.ActiveCameras, h.TotalCameras, boolToInt(h.NetworkConnected), h.Payload, h.CreatedAt)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	h.ID = id
	return nil
}

func (r *heartbeatHistoryRepo) ListByStore(ctx context.Context, storeID string, limit int) ([]*repository.HeartbeatHistory, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, store_id, timestamp, cpu_usage, memory_usage, disk_free_gb,
			active_cameras, total_cameras, network_connected, payload, created_at
		FROM heartbeat_history WHERE store_id = ? ORDER BY timestamp DESC LIMIT ?
	`, storeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*repository.HeartbeatHistory
	for rows.Next() {
		var h repository.HeartbeatHistory
		var networkConnected int
		if err := rows.Scan(&h.ID, &h.StoreID, &h.Timestamp, &h.CPUUsage, &h.MemoryUsage, &h.DiskFreeGB,
			&h.ActiveCameras, &h.TotalCameras, &networkConnected, &h.Payload, &h.CreatedAt); err != nil {
			return nil, err
		}
		h.NetworkConnected = networkConnected != 0
		out = append(out, &h)
	}
	return out, rows.Err()
}
