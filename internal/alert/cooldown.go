// 文件路径: internal/alert/cooldown.go
package alert

import (
	"sync"
	"time"

	"github.com/storewatch/sentinel/internal/liveness"
)

// Kind is the in-memory alert taxonomy, wider than the persisted enum: it
// additionally distinguishes startup and recovery from a generic test alert.
type Kind string

const (
	KindStartup       Kind = "startup"
	KindRecovery      Kind = "recovery"
	KindOffline       Kind = "offline"
	KindSystemWarning Kind = "system_warning"
	KindCameraFailure Kind = "camera_failure"
	KindTest          Kind = "test"
)

type cooldownKey struct {
	storeID string
	kind    Kind
}

// Cooldown is a compare-and-swap map of store+kind to last-send instant. It
// lives for the process lifetime of the server and is never persisted; a
// restart simply resets suppression windows.
type Cooldown struct {
	mu   sync.Mutex
	last map[cooldownKey]time.Time

	Offline  time.Duration
	Recovery time.Duration
	Startup  time.Duration
}

// NewCooldown builds a Cooldown table with the given per-kind windows.
func NewCooldown(offline, recovery, startup time.Duration) *Cooldown {
	return &Cooldown{
		last:     make(map[cooldownKey]time.Time),
		Offline:  offline,
		Recovery: recovery,
		Startup:  startup,
	}
}

func (c *Cooldown) window(kind Kind) time.Duration {
	switch kind {
	case KindOffline:
		return c.Offline
	case KindRecovery:
		return c.Recovery
	case KindStartup:
		return c.Startup
	default:
		return 0
	}
}

// Allow reports whether an alert of the given kind for the given store may
// be sent now, and atomically records the send if so. force bypasses the
// cooldown window entirely; the first offline transition is always sent
// regardless of cooldown state.
func (c *Cooldown) Allow(storeID string, kind Kind, now time.Time, force bool) bool {
	key := cooldownKey{storeID: storeID, kind: kind}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !force {
		if last, ok := c.last[key]; ok {
			if now.Sub(last) < c.window(kind) {
				return false
			}
		}
	}
	c.last[key] = now
	return true
}

// fromTransitionKind maps a liveness TransitionKind onto the alert
// taxonomy. TransitionNone maps to the empty Kind so the dispatcher can
// drop it instead of raising a spurious alert.
func fromTransitionKind(k liveness.TransitionKind) Kind {
	switch k {
	case liveness.TransitionStartup:
		return KindStartup
	case liveness.TransitionRecovery:
		return KindRecovery
	case liveness.TransitionOffline:
		return KindOffline
	default:
		return ""
	}
}
