package orchestrator

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// activeScenarioKey is the app_state key holding the active scenario ID.
const activeScenarioKey = "active_scenario"

// AppStateRepository persists small engine-level records, currently the
// active scenario identifier. Single-key writes must be atomic.
type AppStateRepository interface {
	// SaveActiveScenario records the active scenario ID. Empty clears it.
	SaveActiveScenario(ctx context.Context, scenarioID string) error

	// LoadActiveScenario returns the persisted active scenario ID, or
	// empty if none was ever recorded.
	LoadActiveScenario(ctx context.Context) (string, error)
}

// ActivationRepository persists transition history for diagnostics.
type ActivationRepository interface {
	// Record stores a completed activation result.
	Record(ctx context.Context, result *ActivationResult) error

	// List returns the most recent activations, newest first.
	List(ctx context.Context, limit int) ([]ActivationResult, error)
}

// SQLiteRepository implements both repositories against the app_state
// and activations tables.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// SaveActiveScenario upserts the active scenario record.
func (r *SQLiteRepository) SaveActiveScenario(ctx context.Context, scenarioID string) error {
	query := `
		INSERT INTO app_state (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`

	_, err := r.db.ExecContext(ctx, query,
		activeScenarioKey,
		scenarioID,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("saving active scenario: %w", err)
	}
	return nil
}

// LoadActiveScenario reads the persisted active scenario ID.
func (r *SQLiteRepository) LoadActiveScenario(ctx context.Context) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		"SELECT value FROM app_state WHERE key = ?", activeScenarioKey,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("loading active scenario: %w", err)
	}
	return value, nil
}

// Record stores an activation with its step outcomes as JSON detail.
func (r *SQLiteRepository) Record(ctx context.Context, result *ActivationResult) error {
	detail, err := json.Marshal(result.Steps)
	if err != nil {
		return fmt.Errorf("encoding activation detail: %w", err)
	}

	query := `
		INSERT INTO activations (
			id, room_id, scenario_id, kind, status,
			steps_total, steps_applied, steps_skipped, steps_failed,
			detail, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		result.ID,
		result.RoomID,
		result.ScenarioID,
		string(result.Kind),
		string(result.Status),
		len(result.Steps),
		result.Applied,
		result.Skipped,
		result.Failed,
		string(detail),
		result.StartedAt.UTC().Format(time.RFC3339Nano),
		result.FinishedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("recording activation %s: %w", result.ID, err)
	}
	return nil
}

// List returns recent activations, newest first.
func (r *SQLiteRepository) List(ctx context.Context, limit int) ([]ActivationResult, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, room_id, scenario_id, kind, status,
			steps_applied, steps_skipped, steps_failed,
			detail, started_at, finished_at
		FROM activations
		ORDER BY started_at DESC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying activations: %w", err)
	}
	defer rows.Close()

	var results []ActivationResult
	for rows.Next() {
		var res ActivationResult
		var kind, status, detail, startedAt, finishedAt string
		if err := rows.Scan(
			&res.ID, &res.RoomID, &res.ScenarioID, &kind, &status,
			&res.Applied, &res.Skipped, &res.Failed,
			&detail, &startedAt, &finishedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning activation row: %w", err)
		}

		res.Kind = Kind(kind)
		res.Status = Status(status)
		if err := json.Unmarshal([]byte(detail), &res.Steps); err != nil {
			return nil, fmt.Errorf("decoding activation detail for %s: %w", res.ID, err)
		}
		if res.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, fmt.Errorf("parsing started_at for %s: %w", res.ID, err)
		}
		if res.FinishedAt, err = time.Parse(time.RFC3339Nano, finishedAt); err != nil {
			return nil, fmt.Errorf("parsing finished_at for %s: %w", res.ID, err)
		}

		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating activations: %w", err)
	}

	return results, nil
}
