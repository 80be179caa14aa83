// 文件路径: internal/repository/sqlite/store.go
package sqlite

import (
	"database/sql"

	"github.com/storewatch/sentinel/internal/repository"
)

// store wires the per-entity sqlite repositories behind the repository.Store
// aggregate interface, sharing a single DB handle.
type store struct {
	stores           *storeRepo
	heartbeatHistory *heartbeatHistoryRepo
	systemStats      *systemStatsRepo
	alerts           *alertRepo
}

// NewStore builds the aggregate repository.Store backed by a single sqlite
// database handle, shared by server.go's bootstrap wiring.
func NewStore(db *sql.DB) repository.Store {
	return &store{
		stores:           newStoreRepo(db),
		heartbeatHistory: newHeartbeatHistoryRepo(db),
		systemStats:      newSystemStatsRepo(db),
		alerts:           newAlertRepo(db),
	}
}

func (s *store) Stores() repository.StoreRepository                     { return s.stores }
func (s *store) HeartbeatHistory() repository.HeartbeatHistoryRepository { return s.heartbeatHistory }
func (s *store) SystemStats() repository.SystemStatsRepository           { return s.systemStats }
func (s *store) Alerts() repository.AlertRepository                      { return s.alerts }
