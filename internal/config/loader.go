// 文件路径: internal/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads sentinel-server configuration from (in ascending priority)
// built-in defaults, a config.yaml file, a legacy .env file, and real
// environment variables.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/sentinel/")

	v.SetEnvPrefix("SENTINEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := loadDotEnv(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", "0.0.0.0:8080")
	v.SetDefault("http.shutdown_timeout", "15s")
	v.SetDefault("http.frontend_url", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.environment", "production")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/sentinel.db")
	v.SetDefault("database.allow_memory_only_boot", false)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "storewatch")
	v.SetDefault("metrics.subsystem", "http")

	v.SetDefault("alert.threshold_minutes", 5)
	v.SetDefault("alert.epsilon", "30s")
	v.SetDefault("alert.offline_cooldown_minutes", 5)
	v.SetDefault("alert.recovery_cooldown_minutes", 5)
	v.SetDefault("alert.startup_cooldown_minutes", 10)
	v.SetDefault("alert.health_check_interval_minutes", 2)

	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.encryption", "starttls")

	v.SetDefault("email.config_path", "config/email-recipients.json")

	v.SetDefault("cors.allowed_origins", []string{"*"})
}

func loadDotEnv(v *viper.Viper) error {
	candidates := []string{".", "..", "../.."}
	for _, path := range candidates {
		file := filepath.Clean(filepath.Join(path, ".env"))
		if _, err := os.Stat(file); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("stat .env: %w", err)
		}

		envViper := viper.New()
		envViper.SetConfigFile(file)
		envViper.SetConfigType("env")
		if err := envViper.ReadInConfig(); err != nil {
			return fmt.Errorf("read .env: %w", err)
		}
		bindLegacyEnv(v, envViper)
	}
	return nil
}

// bindLegacyEnv maps the flat .env variable names older deployments use
// onto the hierarchical config structure.
func bindLegacyEnv(target *viper.Viper, source *viper.Viper) {
	mappings := map[string]string{
		"HTTP_ADDR":                       "http.addr",
		"SHUTDOWN_TIMEOUT":                "http.shutdown_timeout",
		"FRONTEND_URL":                    "http.frontend_url",
		"LOG_LEVEL":                       "log.level",
		"LOG_FORMAT":                      "log.format",
		"ENV":                             "log.environment",
		"DB_PATH":                         "database.path",
		"ALERT_THRESHOLD_MINUTES":         "alert.threshold_minutes",
		"OFFLINE_ALERT_COOLDOWN_MINUTES":  "alert.offline_cooldown_minutes",
		"RECOVERY_ALERT_COOLDOWN_MINUTES": "alert.recovery_cooldown_minutes",
		"STARTUP_ALERT_COOLDOWN_MINUTES":  "alert.startup_cooldown_minutes",
		"HEALTH_CHECK_INTERVAL":           "alert.health_check_interval_minutes",
		"EMAIL_CONFIG_PATH":               "email.config_path",
		"SMTP_HOST":                       "smtp.host",
		"SMTP_PORT":                       "smtp.port",
		"SMTP_ENCRYPTION":                 "smtp.encryption",
		"SMTP_USERNAME":                   "smtp.username",
		"SMTP_PASSWORD":                   "smtp.password",
		"SMTP_FROM_ADDRESS":               "smtp.from_address",
	}

	for oldKey, newKey := range mappings {
		// A real SENTINEL_* environment variable outranks the .env value.
		if _, set := os.LookupEnv("SENTINEL_" + strings.ToUpper(strings.ReplaceAll(newKey, ".", "_"))); set {
			continue
		}
		if val := source.GetString(oldKey); val != "" {
			target.Set(newKey, val)
		}
	}
}
