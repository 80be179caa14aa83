// 文件路径: internal/repository/unavailable.go
package repository

import "context"

// Unavailable returns a Store whose every operation fails with
// ErrUnavailable. It backs the memory-only boot mode: when the database
// cannot be opened at startup the server still ingests heartbeats into
// the in-memory registry. Ingestion and alert dispatch log the error and
// carry on; the HTTP handlers that read persisted rows return it as a 500.
func Unavailable() Store {
	return unavailableStore{}
}

type unavailableStore struct{}

func (unavailableStore) Stores() StoreRepository                      { return unavailableStores{} }
func (unavailableStore) HeartbeatHistory() HeartbeatHistoryRepository { return unavailableHistory{} }
func (unavailableStore) SystemStats() SystemStatsRepository           { return unavailableSystemStats{} }
func (unavailableStore) Alerts() AlertRepository                      { return unavailableAlerts{} }

type unavailableStores struct{}

func (unavailableStores) Upsert(context.Context, *StoreRow) error { return ErrUnavailable }
func (unavailableStores) FindByID(context.Context, string) (*StoreRow, error) {
	return nil, ErrUnavailable
}
func (unavailableStores) ListAll(context.Context) ([]*StoreRow, error) { return nil, ErrUnavailable }
func (unavailableStores) ListMissing(context.Context, []string) ([]*StoreRow, error) {
	return nil, ErrUnavailable
}
func (unavailableStores) UpdateLastAlertSent(context.Context, string, int64) error {
	return ErrUnavailable
}
func (unavailableStores) Count(context.Context) (int64, error) { return 0, ErrUnavailable }
func (unavailableStores) CountByStatus(context.Context, string) (int64, error) {
	return 0, ErrUnavailable
}

type unavailableHistory struct{}

func (unavailableHistory) Insert(context.Context, *HeartbeatHistory) error { return ErrUnavailable }
func (unavailableHistory) ListByStore(context.Context, string, int) ([]*HeartbeatHistory, error) {
	return nil, ErrUnavailable
}

type unavailableSystemStats struct{}

func (unavailableSystemStats) Insert(context.Context, *SystemStats) error { return ErrUnavailable }
func (unavailableSystemStats) ListByStore(context.Context, string, int) ([]*SystemStats, error) {
	return nil, ErrUnavailable
}

type unavailableAlerts struct{}

func (unavailableAlerts) Create(context.Context, *Alert) (*Alert, error) { return nil, ErrUnavailable }
func (unavailableAlerts) ListRecent(context.Context, int) ([]*Alert, error) {
	return nil, ErrUnavailable
}
func (unavailableAlerts) ListByStore(context.Context, string, int) ([]*Alert, error) {
	return nil, ErrUnavailable
}
