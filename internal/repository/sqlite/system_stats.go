// 文件路径: internal/repository/sqlite/system_stats.go
package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/storewatch/sentinel/internal/repository"
)

type systemStatsRepo struct {
	db *sql.DB
}

func newSystemStatsRepo(db *sql.DB) *systemStatsRepo {
	return &systemStatsRepo{db: db}
}

func (r *systemStatsRepo) Insert(ctx context.Context, s *repository.SystemStats) error {
	s.CreatedAt = time.Now().Unix()
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO system_stats (
			store_id, timestamp, cpu_usage, memory_usage, memory_available_gb,
			disk_free_gb, disk_usage_percent, process_memory_mb, uptime_hours,
			network_connected, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.StoreID, s.Timestamp, s.CPUUsage, s.MemoryUsage, s.MemoryAvailableGB,
		s.DiskFreeGB, s.DiskUsagePercent, s.ProcessMemoryMB, s.UptimeHours,
		boolToInt(s.NetworkConnected), s.CreatedAt)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = id
	return nil
}

func (r *systemStatsRepo) ListByStore(ctx context.Context, storeID string, limit int) ([]*repository.SystemStats, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, store_id, timestamp, cpu_usage, memory_usage, memory_available_gb,
			disk_free_gb, disk_usage_percent, process_memory_mb, uptime_hours,
			network_connected, created_at
		FROM system_stats WHERE store_id = ? ORDER BY timestamp DESC LIMIT ?
	`, storeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*repository.SystemStats
	for rows.Next() {
		var s repository.SystemStats
		var networkConnected int
		if err := rows.Scan(&s.ID, &s.StoreID, &s.Timestamp, &s.CPUUsage, &s.MemoryUsage, &s.MemoryAvailableGB,
			&s.DiskFreeGB, &s.DiskUsagePercent, &s.ProcessMemoryMB, &s.UptimeHours,
			&networkConnected, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.NetworkConnected = networkConnected != 0
		out = append(out, &s)
	}
	return out, rows.Err()
}
