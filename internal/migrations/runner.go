// 文件路径: internal/migrations/runner.go
// 模块说明: sentinel-server 数据库（stores/alerts/heartbeat_history/system_stats）的 goose 迁移入口。
package migrations

import (
	"database/sql"

	"github.com/pressly/goose/v3"
)

const (
	dialect  = "sqlite3"
	migrDir  = "sqlite"
)

func setup() {
	goose.SetDialect(dialect)
	goose.SetBaseFS(SQLite)
}

// Up migrates the SQLite schema to the latest version.
func Up(db *sql.DB) error {
	setup()
	return goose.Up(db, migrDir)
}

// Down rolls back a single migration.
func Down(db *sql.DB) error {
	setup()
	return goose.Down(db, migrDir)
}

// Status prints migration status.
func Status(db *sql.DB) error {
	setup()
	return goose.Status(db, migrDir)
}
