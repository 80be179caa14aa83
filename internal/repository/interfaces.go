// 文件路径: internal/repository/interfaces.go
package repository

import "context"

// Store aggregates the per-entity repositories the sentinel server persists
// through.
type Store interface {
	Stores() StoreRepository
	HeartbeatHistory() HeartbeatHistoryRepository
	SystemStats() SystemStatsRepository
	Alerts() AlertRepository
}

// StoreRepository manages the stores table: one upserted row per known store.
type StoreRepository interface {
	Upsert(ctx context.Context, s *StoreRow) error
	FindByID(ctx context.Context, storeID string) (*StoreRow, error)
	ListAll(ctx context.Context) ([]*StoreRow, error)
	// ListMissing returns stores present in persistence but absent from the
	// given set of in-memory ids, used by the boot/admin hydration step.
	ListMissing(ctx context.Context, knownIDs []string) ([]*StoreRow, error)
	UpdateLastAlertSent(ctx context.Context, storeID string, sentAt int64) error
	Count(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context, status string) (int64, error)
}

// HeartbeatHistoryRepository appends one row per accepted heartbeat.
type HeartbeatHistoryRepository interface {
	Insert(ctx context.Context, h *HeartbeatHistory) error
	ListByStore(ctx context.Context, storeID string, limit int) ([]*HeartbeatHistory, error)
}

// SystemStatsRepository appends one row of OS telemetry per heartbeat.
type SystemStatsRepository interface {
	Insert(ctx context.Context, s *SystemStats) error
	ListByStore(ctx context.Context, storeID string, limit int) ([]*SystemStats, error)
}

// AlertRepository manages the append-only alert log.
type AlertRepository interface {
	Create(ctx context.Context, a *Alert) (*Alert, error)
	ListRecent(ctx context.Context, limit int) ([]*Alert, error)
	ListByStore(ctx context.Context, storeID string, limit int) ([]*Alert, error)
}
