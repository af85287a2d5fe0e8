package shadow

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Repository defines the persistence interface for shadow state.
// This abstraction allows for different implementations (SQLite, mock)
// and enables unit testing without database dependencies.
type Repository interface {
	// Save persists a single entry. Must be atomic per key; cross-key
	// atomicity is not required.
	Save(ctx context.Context, key Key, entry Entry) error

	// LoadAll returns the full persisted snapshot, keyed by cell.
	LoadAll(ctx context.Context) (map[Key]Entry, error)

	// Delete removes a persisted entry. Absent keys are not an error.
	Delete(ctx context.Context, key Key) error
}

// SQLiteRepository implements Repository against the shadow_state table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Save upserts a single shadow entry.
func (r *SQLiteRepository) Save(ctx context.Context, key Key, entry Entry) error {
	valueJSON, err := json.Marshal(entry.Value)
	if err != nil {
		return fmt.Errorf("encoding shadow value: %w", err)
	}

	query := `
		INSERT INTO shadow_state (device_id, cell_id, value, version, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(device_id, cell_id) DO UPDATE SET
			value = excluded.value,
			version = excluded.version,
			updated_at = excluded.updated_at`

	_, err = r.db.ExecContext(ctx, query,
		key.DeviceID,
		key.CellID,
		string(valueJSON),
		entry.Version,
		entry.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("saving shadow entry %s: %w", key, err)
	}
	return nil
}

// LoadAll reads the complete persisted snapshot.
func (r *SQLiteRepository) LoadAll(ctx context.Context) (map[Key]Entry, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT device_id, cell_id, value, version, updated_at FROM shadow_state",
	)
	if err != nil {
		return nil, fmt.Errorf("querying shadow state: %w", err)
	}
	defer rows.Close()

	entries := make(map[Key]Entry)
	for rows.Next() {
		var (
			key       Key
			valueJSON string
			version   int64
			updatedAt string
		)
		if err := rows.Scan(&key.DeviceID, &key.CellID, &valueJSON, &version, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning shadow row: %w", err)
		}

		var value Value
		if err := json.Unmarshal([]byte(valueJSON), &value); err != nil {
			return nil, fmt.Errorf("decoding shadow value for %s: %w", key, err)
		}

		ts, err := time.Parse(time.RFC3339Nano, updatedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing shadow timestamp for %s: %w", key, err)
		}

		entries[key] = Entry{Value: value, Version: version, UpdatedAt: ts}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating shadow rows: %w", err)
	}

	return entries, nil
}

// Delete removes a persisted entry.
func (r *SQLiteRepository) Delete(ctx context.Context, key Key) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM shadow_state WHERE device_id = ? AND cell_id = ?",
		key.DeviceID, key.CellID,
	)
	if err != nil {
		return fmt.Errorf("deleting shadow entry %s: %w", key, err)
	}
	return nil
}
