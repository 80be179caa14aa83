package config

import (
	"log/slog"
	"time"
)

// Config aggregates the sentinel server's configuration.
type Config struct {
	HTTP    HTTPConfig    `mapstructure:"http"`
	Log     LogConfig     `mapstructure:"log"`
	DB      DBConfig      `mapstructure:"database"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Alert   AlertConfig   `mapstructure:"alert"`
	SMTP    SMTPConfig    `mapstructure:"smtp"`
	Email   EmailConfig   `mapstructure:"email"`
	CORS    CORSConfig    `mapstructure:"cors"`
}

// HTTPConfig defines the HTTP server listen settings.
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	FrontendURL     string        `mapstructure:"frontend_url"`
}

// LogConfig defines structured logging settings.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"`
	AddSource   bool   `mapstructure:"add_source"`
	Environment string `mapstructure:"environment"`
}

// DBConfig defines the SQLite database location.
type DBConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
	// AllowMemoryOnlyBoot lets the server start and accept heartbeats into
	// a memory-only registry when the database is unreachable at boot.
	AllowMemoryOnlyBoot bool `mapstructure:"allow_memory_only_boot"`
}

// MetricsConfig defines Prometheus metrics exposure.
type MetricsConfig struct {
	Enabled   bool      `mapstructure:"enabled"`
	Namespace string    `mapstructure:"namespace"`
	Subsystem string    `mapstructure:"subsystem"`
	Buckets   []float64 `mapstructure:"buckets"`
}

// AlertConfig defines the liveness threshold and cooldown windows.
type AlertConfig struct {
	ThresholdMinutes        int           `mapstructure:"threshold_minutes"`
	Epsilon                 time.Duration `mapstructure:"epsilon"`
	OfflineCooldownMinutes  int           `mapstructure:"offline_cooldown_minutes"`
	RecoveryCooldownMinutes int           `mapstructure:"recovery_cooldown_minutes"`
	StartupCooldownMinutes  int           `mapstructure:"startup_cooldown_minutes"`
	HealthCheckIntervalMins int           `mapstructure:"health_check_interval_minutes"`
}

// SMTPConfig defines the outgoing mail server used for alert delivery.
type SMTPConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	Encryption  string `mapstructure:"encryption"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	FromAddress string `mapstructure:"from_address"`
}

// EmailConfig locates the recipients JSON file.
type EmailConfig struct {
	ConfigPath string `mapstructure:"config_path"`
}

// CORSConfig defines the HTTP CORS allow-list.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func (c LogConfig) SlogLevel() slog.Level {
	switch c.Level {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
