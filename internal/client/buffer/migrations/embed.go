// 文件路径: internal/client/buffer/migrations/embed.go
package migrations

import "embed"

// SQLite embeds the client-local buffer schema, migrated with the same
// goose runner the server uses against its own store.
//
//go:embed sqlite/*.sql
var SQLite embed.FS
