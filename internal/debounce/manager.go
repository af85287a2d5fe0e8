package debounce

import (
	"sync"
	"time"
)

// Clock supplies the current time. Injectable so tests can step time
// instead of sleeping through cooldown windows.
type Clock interface {
	Now() time.Time
}

// systemClock is the production Clock.
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// key identifies a lock entry by device and cell.
type key struct {
	deviceID string
	cellID   string
}

// Manager guards pulse actuators against duplicate triggering.
//
// Each cell runs a two-state machine: Open -> (acquired) ->
// Locked(until) -> (deadline passes) -> Open. Deadlines are passive:
// they are compared against the clock on each TryAcquire rather than
// driven by timers, so there are no background goroutines to shut down.
//
// One lock per cell, never a shared global: a cooling-down amplifier
// must not block an unrelated pump. All methods are thread-safe.
type Manager struct {
	mu              sync.Mutex
	locks           map[key]time.Time // cooldown-until deadlines
	clock           Clock
	defaultCooldown time.Duration
}

// NewManager creates a lock manager with the given default cooldown,
// used for cells that don't declare their own.
func NewManager(defaultCooldown time.Duration) *Manager {
	return &Manager{
		locks:           make(map[key]time.Time),
		clock:           systemClock{},
		defaultCooldown: defaultCooldown,
	}
}

// SetClock replaces the clock. For tests.
func (m *Manager) SetClock(clock Clock) {
	m.mu.Lock()
	m.clock = clock
	m.mu.Unlock()
}

// TryAcquire attempts to take the debounce lock for a cell.
//
// On success the cell is locked until now+cooldown and nil is returned.
// A cell still cooling down returns a LockedError carrying the remaining
// window; rejections are never queued or retried here, the caller decides
// what a rejection means. cooldown <= 0 selects the manager default.
func (m *Manager) TryAcquire(deviceID, cellID string, cooldown time.Duration) error {
	if cooldown <= 0 {
		cooldown = m.defaultCooldown
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	k := key{deviceID: deviceID, cellID: cellID}
	now := m.clock.Now()

	if until, ok := m.locks[k]; ok {
		if remaining := until.Sub(now); remaining > 0 {
			return &LockedError{
				DeviceID:  deviceID,
				CellID:    cellID,
				Remaining: remaining,
			}
		}
		// Expired; fall through and take it fresh.
	}

	m.locks[k] = now.Add(cooldown)
	return nil
}

// Release clears the lock for a cell before its deadline.
// Used when a dispatch fails after acquisition, so a pulse that never
// reached the device doesn't consume the cooldown window.
func (m *Manager) Release(deviceID, cellID string) {
	m.mu.Lock()
	delete(m.locks, key{deviceID: deviceID, cellID: cellID})
	m.mu.Unlock()
}

// Remaining reports the cooldown left on a cell. Zero means Open.
func (m *Manager) Remaining(deviceID, cellID string) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	until, ok := m.locks[key{deviceID: deviceID, cellID: cellID}]
	if !ok {
		return 0
	}
	remaining := until.Sub(m.clock.Now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Prune drops expired entries so the map doesn't grow with every cell
// ever pulsed. Safe to call at any time; correctness never depends on it.
func (m *Manager) Prune() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	for k, until := range m.locks {
		if !until.After(now) {
			delete(m.locks, k)
		}
	}
}

// Len returns the number of tracked lock entries, expired or not.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
