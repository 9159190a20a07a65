package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/reportcard/internal/models"
)

// LockRepository persists the PIN lock state.
type LockRepository struct {
	db *sqlx.DB
}

// NewLockRepository constructs the repository.
func NewLockRepository(db *sqlx.DB) *LockRepository {
	return &LockRepository{db: db}
}

// Get returns the lock row or sql.ErrNoRows when no PIN was configured.
func (r *LockRepository) Get(ctx context.Context) (*models.AppLock, error) {
	const query = `SELECT pin_hash, failed_attempts, updated_at FROM app_lock WHERE id = 1`
	var lock models.AppLock
	if err := r.db.GetContext(ctx, &lock, query); err != nil {
		return nil, err
	}
	return &lock, nil
}

// Save stores a new PIN hash and resets the failure counter.
func (r *LockRepository) Save(ctx context.Context, lock *models.AppLock) error {
	const query = `INSERT INTO app_lock (id, pin_hash, failed_attempts, updated_at)
VALUES (1, :pin_hash, :failed_attempts, :updated_at)
ON CONFLICT (id)
DO UPDATE SET pin_hash = excluded.pin_hash, failed_attempts = excluded.failed_attempts, updated_at = excluded.updated_at`
	lock.UpdatedAt = time.Now().UTC()
	if _, err := r.db.NamedExecContext(ctx, query, lock); err != nil {
		return fmt.Errorf("save lock: %w", err)
	}
	return nil
}

// SetFailedAttempts overwrites the failure counter.
func (r *LockRepository) SetFailedAttempts(ctx context.Context, attempts int) error {
	const query = `UPDATE app_lock SET failed_attempts = ?, updated_at = ? WHERE id = 1`
	if _, err := r.db.ExecContext(ctx, query, attempts, time.Now().UTC()); err != nil {
		return fmt.Errorf("update lock attempts: %w", err)
	}
	return nil
}
