// 文件路径: internal/liveness/registry.go
package liveness

import (
	"sync"
	"time"

	"github.com/storewatch/sentinel/internal/heartbeat"
)

// Status is one of the three liveness states a store can occupy.
type Status string

const (
	StatusUnknown Status = "unknown"
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// TransitionKind classifies why a TransitionEvent was emitted, independent
// of how the alert dispatcher will eventually persist/notify it.
type TransitionKind string

const (
	TransitionNone     TransitionKind = ""
	TransitionStartup  TransitionKind = "startup"
	TransitionRecovery TransitionKind = "recovery"
	TransitionOffline  TransitionKind = "offline"
)

// TransitionEvent is the pure-data output of a registry state change. C5
// never dispatches alerts or touches persistence itself; callers forward
// the event to alert.Dispatcher.
type TransitionEvent struct {
	StoreID   string
	StoreName string
	From      Status
	To        Status
	Kind      TransitionKind
	At        time.Time
	// LastHeartbeat is the most recent heartbeat instant known when the
	// transition fired; zero if the store has never been heard from.
	LastHeartbeat time.Time
	Heartbeat     *heartbeat.Heartbeat // nil on sweeper-originated events
	// Force marks an alert that must bypass the cooldown window: a
	// brand-new store's first-ever startup, or a store's first
	// online-to-offline transition.
	Force bool
}

type entry struct {
	mu sync.Mutex

	storeID       string
	storeName     string
	status        Status
	lastHeartbeat time.Time
	hasHeartbeat  bool
	firstSeen     time.Time
	latest        *heartbeat.Heartbeat
	imported      bool // true if this entry arrived via Hydrate, not a live heartbeat
}

// Registry holds the in-memory liveness state for the whole fleet. The map
// itself is guarded by an RWMutex; each entry additionally carries its own
// mutex so that a write against one store never blocks a read or write
// against another: concurrent readers, serialized writers per key.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry

	// Threshold is the staleness limit: a store is considered stale once
	// now-last_heartbeat exceeds Threshold+Epsilon.
	Threshold time.Duration
	Epsilon   time.Duration

	// StartupCooldown records the startup alert cooldown the registry was
	// built with. The registry does not read it; alert.Cooldown suppresses
	// repeat startup alerts.
	StartupCooldown time.Duration
}

// NewRegistry builds an empty Registry with the given sweep threshold.
func NewRegistry(threshold, epsilon, startupCooldown time.Duration) *Registry {
	return &Registry{
		entries:         make(map[string]*entry),
		Threshold:       threshold,
		Epsilon:         epsilon,
		StartupCooldown: startupCooldown,
	}
}

func (r *Registry) getOrCreate(storeID string) (*entry, bool) {
	r.mu.RLock()
	e, ok := r.entries[storeID]
	r.mu.RUnlock()
	if ok {
		return e, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok = r.entries[storeID]; ok {
		return e, false
	}
	e = &entry{storeID: storeID, status: StatusUnknown, firstSeen: time.Now()}
	r.entries[storeID] = e
	return e, true
}

// Observe applies one received heartbeat to the registry and returns the
// resulting TransitionEvent. The second return value is false when no
// alert-worthy transition occurred (e.g. a routine online heartbeat).
func (r *Registry) Observe(hb *heartbeat.Heartbeat, receivedAt time.Time) (TransitionEvent, bool) {
	e, created := r.getOrCreate(hb.StoreID)

	e.mu.Lock()
	defer e.mu.Unlock()

	from := e.status
	wasImported := e.imported
	e.storeName = hb.StoreName
	e.latest = hb
	if created {
		e.firstSeen = receivedAt
	}

	// A heartbeat older than the last recorded one still proves life but
	// must not rewind last_heartbeat.
	if !e.hasHeartbeat || hb.Timestamp.After(e.lastHeartbeat) {
		e.lastHeartbeat = hb.Timestamp
	}
	e.hasHeartbeat = true
	e.status = StatusOnline

	evt := TransitionEvent{
		StoreID:       hb.StoreID,
		StoreName:     hb.StoreName,
		From:          from,
		To:            StatusOnline,
		At:            receivedAt,
		LastHeartbeat: e.lastHeartbeat,
		Heartbeat:     hb,
	}

	switch from {
	case StatusUnknown:
		evt.Kind = TransitionStartup
		// A truly new store (never hydrated from persistence) always
		// fires its first startup alert; a hydrated-but-never-seen row
		// is subject to the normal startup cooldown.
		evt.Force = created && !wasImported
	case StatusOffline:
		evt.Kind = TransitionRecovery
	case StatusOnline:
		if hb.IsStartup {
			evt.Kind = TransitionStartup
		} else {
			return evt, false
		}
	}
	return evt, true
}

// Sweep scans every known store for staleness and returns one
// TransitionEvent per store that should fire or repeat an offline alert.
// Recovery is never produced here: it requires direct heartbeat evidence.
func (r *Registry) Sweep(now time.Time) []TransitionEvent {
	r.mu.RLock()
	snapshot := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		snapshot = append(snapshot, e)
	}
	r.mu.RUnlock()

	var events []TransitionEvent
	for _, e := range snapshot {
		e.mu.Lock()
		if !e.hasHeartbeat {
			e.mu.Unlock()
			continue
		}
		delta := now.Sub(e.lastHeartbeat)
		if delta > r.Threshold+r.Epsilon {
			from := e.status
			e.status = StatusOffline
			storeName := e.storeName
			lastHeartbeat := e.lastHeartbeat
			e.mu.Unlock()
			events = append(events, TransitionEvent{
				StoreID:       e.storeID,
				StoreName:     storeName,
				From:          from,
				To:            StatusOffline,
				Kind:          TransitionOffline,
				At:            now,
				LastHeartbeat: lastHeartbeat,
				Force:         from != StatusOffline,
			})
			continue
		}
		e.mu.Unlock()
	}
	return events
}

// Snapshot returns a point-in-time copy of a store's liveness record, or
// false if the store is not known to the registry.
type Snapshot struct {
	StoreID       string
	StoreName     string
	Status        Status
	LastHeartbeat time.Time
	HasHeartbeat  bool
	FirstSeen     time.Time
	Latest        *heartbeat.Heartbeat
}

func (r *Registry) Snapshot(storeID string) (Snapshot, bool) {
	r.mu.RLock()
	e, ok := r.entries[storeID]
	r.mu.RUnlock()
	if !ok {
		return Snapshot{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		StoreID:       e.storeID,
		StoreName:     e.storeName,
		Status:        e.status,
		LastHeartbeat: e.lastHeartbeat,
		HasHeartbeat:  e.hasHeartbeat,
		FirstSeen:     e.firstSeen,
		Latest:        e.latest,
	}, true
}

// All returns a snapshot of every known store, for the dashboard handler.
func (r *Registry) All() []Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Snapshot, 0, len(r.entries))
	for _, e := range r.entries {
		e.mu.Lock()
		out = append(out, Snapshot{
			StoreID:       e.storeID,
			StoreName:     e.storeName,
			Status:        e.status,
			LastHeartbeat: e.lastHeartbeat,
			HasHeartbeat:  e.hasHeartbeat,
			FirstSeen:     e.firstSeen,
			Latest:        e.latest,
		})
		e.mu.Unlock()
	}
	return out
}

// Hydrate inserts a row loaded from persistence that has no in-memory
// entry yet, used after a server restart. Status is always unknown
// regardless of the persisted status column: no alert is fired until the
// next event.
func (r *Registry) Hydrate(storeID, storeName string, lastHeartbeat *time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[storeID]; ok {
		return false
	}
	e := &entry{
		storeID:   storeID,
		storeName: storeName,
		status:    StatusUnknown,
		firstSeen: time.Now(),
		imported:  true,
	}
	if lastHeartbeat != nil {
		e.lastHeartbeat = *lastHeartbeat
		e.hasHeartbeat = true
	}
	r.entries[storeID] = e
	return true
}

// KnownIDs returns every store_id currently tracked in memory, used by the
// hydration step to ask persistence for what is missing.
func (r *Registry) KnownIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	return ids
}
