package shadow

import (
	"context"
	"errors"
	"testing"
)

// mockRepository is an in-memory Repository with switchable failure.
type mockRepository struct {
	entries   map[Key]Entry
	saveErr   error
	loadErr   error
	saveCalls int
}

func newMockRepository() *mockRepository {
	return &mockRepository{entries: make(map[Key]Entry)}
}

func (m *mockRepository) Save(_ context.Context, key Key, entry Entry) error {
	m.saveCalls++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.entries[key] = entry
	return nil
}

func (m *mockRepository) LoadAll(_ context.Context) (map[Key]Entry, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	entries := make(map[Key]Entry, len(m.entries))
	for k, v := range m.entries {
		entries[k] = v
	}
	return entries, nil
}

func (m *mockRepository) Delete(_ context.Context, key Key) error {
	delete(m.entries, key)
	return nil
}

func TestStoreGetDefaultsToUnknown(t *testing.T) {
	s := NewStore(newMockRepository())

	if got := s.Get("amp-1", "power"); !got.IsUnknown() {
		t.Errorf("Get() on untouched cell = %v, want Unknown", got)
	}
}

func TestStoreSetWriteThrough(t *testing.T) {
	repo := newMockRepository()
	s := NewStore(repo)
	ctx := context.Background()

	if err := s.Set(ctx, "amp-1", "power", BoolValue(true)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	// In-memory view updated
	if got := s.Get("amp-1", "power"); !got.Equal(BoolValue(true)) {
		t.Errorf("Get() = %v, want true", got)
	}

	// Persisted before returning
	key := Key{DeviceID: "amp-1", CellID: "power"}
	persisted, ok := repo.entries[key]
	if !ok {
		t.Fatal("Set() did not persist the entry")
	}
	if !persisted.Value.Equal(BoolValue(true)) {
		t.Errorf("persisted value = %v, want true", persisted.Value)
	}
	if persisted.Version != 1 {
		t.Errorf("persisted version = %d, want 1", persisted.Version)
	}
	if persisted.UpdatedAt.IsZero() {
		t.Error("persisted UpdatedAt should be set")
	}
}

func TestStoreVersionIncrements(t *testing.T) {
	repo := newMockRepository()
	s := NewStore(repo)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := s.Set(ctx, "amp-1", "volume", NumberValue(float64(i))); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
	}

	entry, ok := s.Entry("amp-1", "volume")
	if !ok {
		t.Fatal("Entry() should exist after Set")
	}
	if entry.Version != 3 {
		t.Errorf("version = %d, want 3", entry.Version)
	}
}

func TestStoreSetPersistenceFailure(t *testing.T) {
	repo := newMockRepository()
	repo.saveErr = errors.New("disk full")
	s := NewStore(repo)

	err := s.Set(context.Background(), "amp-1", "power", BoolValue(true))
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("Set() error = %v, want ErrPersistence", err)
	}

	// A value the repository rejected must never become the engine's belief
	if got := s.Get("amp-1", "power"); !got.IsUnknown() {
		t.Errorf("Get() after failed Set = %v, want Unknown", got)
	}
}

func TestStoreLoad(t *testing.T) {
	repo := newMockRepository()
	repo.entries[Key{DeviceID: "amp-1", CellID: "power"}] = Entry{Value: BoolValue(true), Version: 4}
	repo.entries[Key{DeviceID: "amp-1", CellID: "input"}] = Entry{Value: TextValue("cd"), Version: 2}

	s := NewStore(repo)
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got := s.Get("amp-1", "power"); !got.Equal(BoolValue(true)) {
		t.Errorf("restored power = %v, want true", got)
	}
	if got := s.Get("amp-1", "input"); !got.Equal(TextValue("cd")) {
		t.Errorf("restored input = %v, want cd", got)
	}

	// Versions continue from the restored point
	if err := s.Set(context.Background(), "amp-1", "power", BoolValue(false)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	entry, _ := s.Entry("amp-1", "power")
	if entry.Version != 5 {
		t.Errorf("version after restored Set = %d, want 5", entry.Version)
	}
}

func TestStoreLoadFailure(t *testing.T) {
	repo := newMockRepository()
	repo.loadErr = errors.New("corrupt database")

	s := NewStore(repo)
	if err := s.Load(context.Background()); !errors.Is(err, ErrPersistence) {
		t.Errorf("Load() error = %v, want ErrPersistence", err)
	}
}

func TestStoreSnapshotIsolation(t *testing.T) {
	s := NewStore(newMockRepository())
	ctx := context.Background()

	if err := s.Set(ctx, "amp-1", "power", BoolValue(true)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	snapshot := s.Snapshot()
	if len(snapshot) != 1 {
		t.Fatalf("Snapshot() has %d entries, want 1", len(snapshot))
	}

	snapshot[Key{DeviceID: "amp-1", CellID: "power"}] = BoolValue(false)
	if got := s.Get("amp-1", "power"); !got.Equal(BoolValue(true)) {
		t.Error("mutating snapshot leaked into the store")
	}
}
