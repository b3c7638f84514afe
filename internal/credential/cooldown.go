package credential

import (
	"sync"
	"time"
)

// maxBackoffLevel caps cooldown growth; further rate-limit signals keep the
// level pinned here.
const maxBackoffLevel = 5

type cooldownEntry struct {
	until time.Time
	level int
}

// CooldownTracker is the process-wide rate-limit memory, one entry per
// credential identity. All access is serialized by one mutex; entries for
// expired cooldowns are evicted lazily on query.
type CooldownTracker struct {
	mu      sync.Mutex
	entries map[string]cooldownEntry
	base    time.Duration
	max     time.Duration
	now     func() time.Time
}

func NewCooldownTracker(base, max time.Duration) *CooldownTracker {
	if base <= 0 {
		base = 60 * time.Second
	}
	if max < base {
		max = 1800 * time.Second
	}
	return &CooldownTracker{
		entries: make(map[string]cooldownEntry),
		base:    base,
		max:     max,
		now:     time.Now,
	}
}

// Set records a rate-limit signal. The backoff level starts at 1 and
// increments (capped) on each consecutive signal; the cooldown duration is
// min(base * 2^(level-1), max).
func (t *CooldownTracker) Set(identity string) time.Duration {
	if identity == "" {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	level := 1
	if prev, ok := t.entries[identity]; ok {
		level = prev.level + 1
		if level > maxBackoffLevel {
			level = maxBackoffLevel
		}
	}
	dur := t.base << (level - 1)
	if dur > t.max {
		dur = t.max
	}
	t.entries[identity] = cooldownEntry{until: t.now().Add(dur), level: level}
	return dur
}

// InCooldown reports whether the identity is currently excluded from
// selection, evicting the entry if its window has passed.
func (t *CooldownTracker) InCooldown(identity string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[identity]
	if !ok {
		return false
	}
	if !t.now().Before(entry.until) {
		delete(t.entries, identity)
		return false
	}
	return true
}

// Remaining returns the time left in the identity's cooldown window, zero
// when it is not cooling down. Expired entries are evicted.
func (t *CooldownTracker) Remaining(identity string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[identity]
	if !ok {
		return 0
	}
	rem := entry.until.Sub(t.now())
	if rem <= 0 {
		delete(t.entries, identity)
		return 0
	}
	return rem
}

// Reset clears the cooldown and backoff level after a confirmed successful
// use of the credential.
func (t *CooldownTracker) Reset(identity string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, identity)
}

// CooldownInfo is a point-in-time view of one cooling credential.
type CooldownInfo struct {
	Identity     string    `json:"identity"`
	Level        int       `json:"level"`
	Until        time.Time `json:"until"`
	RemainingSec int64     `json:"remaining_sec"`
}

// Snapshot lists the currently cooling credentials.
func (t *CooldownTracker) Snapshot() []CooldownInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	infos := make([]CooldownInfo, 0, len(t.entries))
	for id, entry := range t.entries {
		rem := int64(0)
		if now.Before(entry.until) {
			rem = int64(entry.until.Sub(now).Seconds())
		}
		infos = append(infos, CooldownInfo{Identity: id, Level: entry.level, Until: entry.until, RemainingSec: rem})
	}
	return infos
}
