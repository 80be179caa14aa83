// 文件路径: internal/migrations/sqlite_embed.go
// 模块说明: 内嵌 stores/alerts/heartbeat_history/system_stats 表的 SQL 迁移文件。
package migrations

import "embed"

// SQLite embeds the server-side schema migrations (stores, alerts,
// heartbeat_history, system_stats) so the binary carries its own schema
// with no separate migrations directory to deploy alongside it.
//
//go:embed sqlite/*.sql
var SQLite embed.FS
