package bootstrap

import (
	"log/slog"
	"time"

	"github.com/storewatch/sentinel/internal/cache"
	"github.com/storewatch/sentinel/internal/notifier"
)

// Infrastructure bundles shared helpers wired once at server startup.
type Infrastructure struct {
	Cache    cache.Store
	Notifier notifier.Service
}

// SMTPSettings carries the subset of config needed to decide which
// notifier.Service implementation to wire.
type SMTPSettings struct {
	Host        string
	Port        int
	Encryption  string
	Username    string
	Password    string
	FromAddress string
}

// BuildInfrastructure wires the dashboard cache and alert notifier. When
// smtp.Host is empty the notifier falls back to logging messages instead
// of sending them, so the server remains usable without a mail relay.
func BuildInfrastructure(smtp SMTPSettings, logger *slog.Logger) *Infrastructure {
	cacheStore := cache.NewStore(cache.Options{
		DefaultTTL:      5 * time.Second,
		CleanupInterval: time.Minute,
	})

	var notif notifier.Service
	if smtp.Host == "" {
		notif = notifier.NewLoggerService(logger)
	} else {
		notif = notifier.NewSMTPService(notifier.SMTPConfig{
			Host:        smtp.Host,
			Port:        smtp.Port,
			Encryption:  smtp.Encryption,
			Username:    smtp.Username,
			Password:    smtp.Password,
			FromAddress: smtp.FromAddress,
		}, 10*time.Second)
	}

	return &Infrastructure{
		Cache:    cacheStore,
		Notifier: notif,
	}
}
