package buffer

import "log/slog"

// Open selects the client's durable queue. It tries the SQLite-backed
// buffer first; if the file cannot be opened (permissions, corrupt disk,
// read-only filesystem) it falls back to an in-memory RingBuffer and logs
// the degradation, trading durability for availability.
func Open(path string, logger *slog.Logger) Buffer {
	b, err := OpenSQLite(path)
	if err != nil {
		if logger != nil {
			logger.Warn("falling back to in-memory heartbeat buffer",
				"path", path, "error", err)
		}
		return NewRingBuffer()
	}
	return b
}
