// 文件路径: internal/repository/types.go
// Package repository holds the persisted record shapes for fleet liveness:
// stores, their heartbeat/system-stats history, and the alert log.
package repository

// StoreRow mirrors a stores row: the durable twin of a liveness.Registry entry.
type StoreRow struct {
	StoreID       string `json:"store_id"`
	StoreName     string `json:"store_name"`
	LastHeartbeat *int64 `json:"last_heartbeat"` // unix seconds; nil if never seen
	Status        string `json:"status"`         // online | offline | unknown
	LastAlertSent *int64 `json:"last_alert_sent"`
	CreatedAt     int64  `json:"created_at"`
	UpdatedAt     int64  `json:"updated_at"`
}

// HeartbeatHistory is one append-only row per accepted heartbeat.
type HeartbeatHistory struct {
	ID               int64
	StoreID          string
	Timestamp        int64
	CPUUsage         float64
	MemoryUsage      float64
	DiskFreeGB       float64
	ActiveCameras    int
	TotalCameras     int
	NetworkConnected bool
	Payload          string // the heartbeat, serialized as JSON
	CreatedAt        int64
}

// SystemStats is one append-only row of OS-level telemetry per heartbeat.
type SystemStats struct {
	ID                int64
	StoreID           string
	Timestamp         int64
	CPUUsage          float64
	MemoryUsage       float64
	MemoryAvailableGB float64
	DiskFreeGB        float64
	DiskUsagePercent  float64
	ProcessMemoryMB   float64
	UptimeHours       float64
	NetworkConnected  bool
	CreatedAt         int64
}

// AlertKind enumerates the reasons an alert was raised. The persisted schema
// widens the source's narrower alert_type enum to include startup and
// recovery rather than coercing them to "test" (see DESIGN.md).
type AlertKind string

const (
	AlertKindStartup       AlertKind = "startup"
	AlertKindRecovery      AlertKind = "recovery"
	AlertKindOffline       AlertKind = "offline"
	AlertKindSystemWarning AlertKind = "system_warning"
	AlertKindCameraFailure AlertKind = "camera_failure"
	AlertKindTest          AlertKind = "test"
)

// AlertSeverity enumerates the urgency of a persisted alert.
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

// Alert is one append-only row in the alert log. StoreName is not a
// column on the alerts table; list queries populate it by joining the
// stores table.
type Alert struct {
	ID         int64         `json:"id"`
	StoreID    string        `json:"store_id"`
	StoreName  string        `json:"store_name,omitempty"`
	Kind       AlertKind     `json:"alert_type"`
	Message    string        `json:"message"`
	Severity   AlertSeverity `json:"severity"`
	Resolved   bool          `json:"resolved"`
	ResolvedAt *int64        `json:"resolved_at"`
	Timestamp  int64         `json:"timestamp"`
}
