package alert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/storewatch/sentinel/internal/liveness"
)

func TestCooldown_AllowsFirstSendUnconditionally(t *testing.T) {
	c := NewCooldown(5*time.Minute, 5*time.Minute, 10*time.Minute)
	assert.True(t, c.Allow("store-1", KindOffline, time.Now(), false))
}

func TestCooldown_SuppressesWithinWindow(t *testing.T) {
	c := NewCooldown(5*time.Minute, 5*time.Minute, 10*time.Minute)
	now := time.Now()

	assert.True(t, c.Allow("store-1", KindOffline, now, false))
	assert.False(t, c.Allow("store-1", KindOffline, now.Add(time.Minute), false), "within the 5m offline window a repeat must be suppressed")
}

func TestCooldown_AllowsAfterWindowElapses(t *testing.T) {
	c := NewCooldown(5*time.Minute, 5*time.Minute, 10*time.Minute)
	now := time.Now()

	assert.True(t, c.Allow("store-1", KindOffline, now, false))
	assert.True(t, c.Allow("store-1", KindOffline, now.Add(6*time.Minute), false))
}

func TestCooldown_ForceBypassesWindow(t *testing.T) {
	c := NewCooldown(5*time.Minute, 5*time.Minute, 10*time.Minute)
	now := time.Now()

	assert.True(t, c.Allow("store-1", KindOffline, now, false))
	assert.True(t, c.Allow("store-1", KindOffline, now.Add(time.Second), true), "force must bypass the window regardless of elapsed time")
}

func TestCooldown_KindsAreIndependent(t *testing.T) {
	c := NewCooldown(5*time.Minute, 5*time.Minute, 10*time.Minute)
	now := time.Now()

	assert.True(t, c.Allow("store-1", KindOffline, now, false))
	assert.True(t, c.Allow("store-1", KindRecovery, now, false), "a different kind for the same store must not share the cooldown window")
}

func TestCooldown_StoresAreIndependent(t *testing.T) {
	c := NewCooldown(5*time.Minute, 5*time.Minute, 10*time.Minute)
	now := time.Now()

	assert.True(t, c.Allow("store-1", KindOffline, now, false))
	assert.True(t, c.Allow("store-2", KindOffline, now, false), "the same kind for a different store must not share the cooldown window")
}

func TestFromTransitionKind(t *testing.T) {
	cases := map[string]struct {
		in   liveness.TransitionKind
		want Kind
	}{
		"startup":  {in: liveness.TransitionStartup, want: KindStartup},
		"recovery": {in: liveness.TransitionRecovery, want: KindRecovery},
		"offline":  {in: liveness.TransitionOffline, want: KindOffline},
		"none":     {in: liveness.TransitionNone, want: Kind("")},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got := fromTransitionKind(tc.in)
			assert.Equal(t, tc.want, got)
		})
	}
}
