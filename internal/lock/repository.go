package lock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the persistence operations for the lock mirror.
// The abstraction keeps the registry testable without a database.
type Repository interface {
	// GetByID retrieves a lock by its stable identifier.
	// Returns ErrLockNotFound if no row exists.
	GetByID(ctx context.Context, id string) (*Lock, error)

	// List retrieves all tracked locks.
	List(ctx context.Context) ([]Lock, error)

	// Create inserts a newly discovered lock.
	// Returns ErrLockExists on id collision.
	Create(ctx context.Context, lock *Lock) error

	// Update replaces an existing lock's row.
	// Returns ErrLockNotFound if no row exists.
	Update(ctx context.Context, lock *Lock) error

	// Delete removes a lock by id.
	// Returns ErrLockNotFound if no row exists.
	Delete(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a SQLite-backed lock repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const lockColumns = `id, device_id, name, model, serial, door_status, target_state,
	battery_percent, battery_status, first_seen, updated_at`

// GetByID retrieves a lock by its stable identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Lock, error) {
	query := `SELECT ` + lockColumns + ` FROM locks WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	lock, err := scanLock(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLockNotFound
		}
		return nil, fmt.Errorf("querying lock by id: %w", err)
	}
	return lock, nil
}

// List retrieves all tracked locks ordered by name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Lock, error) {
	query := `SELECT ` + lockColumns + ` FROM locks ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing locks: %w", err)
	}
	defer rows.Close()

	var locks []Lock
	for rows.Next() {
		lock, err := scanLock(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning lock row: %w", err)
		}
		locks = append(locks, *lock)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating lock rows: %w", err)
	}

	return locks, nil
}

// Create inserts a newly discovered lock.
func (r *SQLiteRepository) Create(ctx context.Context, lock *Lock) error {
	now := time.Now().UTC()
	if lock.FirstSeen.IsZero() {
		lock.FirstSeen = now
	}
	lock.UpdatedAt = now

	query := `
		INSERT INTO locks (` + lockColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		lock.ID, lock.DeviceID, lock.Name, lock.Model, lock.Serial,
		string(lock.DoorStatus), string(lock.TargetState),
		lock.BatteryPercent, lock.BatteryStatus,
		lock.FirstSeen.Format(time.RFC3339), lock.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrLockExists, lock.ID)
		}
		return fmt.Errorf("inserting lock: %w", err)
	}

	return nil
}

// Update replaces an existing lock's row.
func (r *SQLiteRepository) Update(ctx context.Context, lock *Lock) error {
	lock.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE locks
		SET device_id = ?, name = ?, model = ?, serial = ?,
			door_status = ?, target_state = ?,
			battery_percent = ?, battery_status = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		lock.DeviceID, lock.Name, lock.Model, lock.Serial,
		string(lock.DoorStatus), string(lock.TargetState),
		lock.BatteryPercent, lock.BatteryStatus,
		lock.UpdatedAt.Format(time.RFC3339),
		lock.ID,
	)
	if err != nil {
		return fmt.Errorf("updating lock: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrLockNotFound, lock.ID)
	}

	return nil
}

// Delete removes a lock by id.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM locks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting lock: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrLockNotFound, id)
	}

	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanLock reads one lock row.
func scanLock(row scanner) (*Lock, error) {
	var lock Lock
	var doorStatus, targetState string
	var firstSeen, updatedAt string

	err := row.Scan(
		&lock.ID, &lock.DeviceID, &lock.Name, &lock.Model, &lock.Serial,
		&doorStatus, &targetState,
		&lock.BatteryPercent, &lock.BatteryStatus,
		&firstSeen, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	lock.DoorStatus = State(doorStatus)
	lock.TargetState = State(targetState)

	if lock.FirstSeen, err = time.Parse(time.RFC3339, firstSeen); err != nil {
		return nil, fmt.Errorf("parsing first_seen: %w", err)
	}
	if lock.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &lock, nil
}

// isUniqueViolation detects SQLite unique constraint failures without
// binding to driver-specific error types.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
