package shadow

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Logger defines the logging interface used by the Store.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Store holds the in-memory shadow state with write-through persistence.
//
// Every Set persists synchronously before the in-memory map is updated:
// a value the repository rejected never becomes the engine's belief, so a
// crash loses at most the single in-flight actuation. All methods are
// thread-safe, though in practice mutations are serialised through the
// orchestrator.
type Store struct {
	mu      sync.RWMutex
	entries map[Key]Entry
	repo    Repository
	logger  Logger
	now     func() time.Time
}

// NewStore creates a shadow store backed by the given repository.
func NewStore(repo Repository) *Store {
	return &Store{
		entries: make(map[Key]Entry),
		repo:    repo,
		logger:  noopLogger{},
		now:     time.Now,
	}
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger Logger) {
	s.logger = logger
}

// Load restores the shadow state from the persisted snapshot.
// Call once at startup, before the orchestrator starts. Cells absent from
// the snapshot remain Unknown.
func (s *Store) Load(ctx context.Context) error {
	entries, err := s.repo.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("%w: restoring snapshot: %w", ErrPersistence, err)
	}

	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()

	s.logger.Info("shadow state restored", "entries", len(entries))
	return nil
}

// Get returns the current shadow value for a cell.
// Cells never actuated return the distinct Unknown value.
func (s *Store) Get(deviceID, cellID string) Value {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[Key{DeviceID: deviceID, CellID: cellID}]
	if !ok {
		return Unknown()
	}
	return entry.Value
}

// Entry returns the full entry (value plus version bookkeeping) for a cell.
// The second return is false for cells never actuated.
func (s *Store) Entry(deviceID, cellID string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[Key{DeviceID: deviceID, CellID: cellID}]
	return entry, ok
}

// Set records a new shadow value, write-through.
//
// The repository write happens first and must succeed; on failure the
// in-memory value is left untouched and ErrPersistence is returned. Never
// fails silently.
func (s *Store) Set(ctx context.Context, deviceID, cellID string, value Value) error {
	key := Key{DeviceID: deviceID, CellID: cellID}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := Entry{
		Value:     value,
		Version:   s.entries[key].Version + 1,
		UpdatedAt: s.now().UTC(),
	}

	if err := s.repo.Save(ctx, key, entry); err != nil {
		s.logger.Error("shadow write-through failed",
			"device_id", deviceID,
			"cell_id", cellID,
			"error", err,
		)
		return fmt.Errorf("%w: %s: %w", ErrPersistence, key, err)
	}

	s.entries[key] = entry

	s.logger.Debug("shadow updated",
		"device_id", deviceID,
		"cell_id", cellID,
		"value", value.String(),
		"version", entry.Version,
	)
	return nil
}

// Snapshot returns a copy of the full shadow mapping.
// Used by the diff engine and for restart recovery checks; mutating the
// returned map does not affect the store.
func (s *Store) Snapshot() map[Key]Value {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make(map[Key]Value, len(s.entries))
	for key, entry := range s.entries {
		snapshot[key] = entry.Value
	}
	return snapshot
}

// Len returns the number of tracked entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
