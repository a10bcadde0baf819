package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"vaultdrive/internal/domain"
)

// ActivityRepository хранит журнал действий пользователей.
type ActivityRepository struct {
	db *sqlx.DB
}

func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) Record(ctx context.Context, entry *domain.ActivityLog) error {
	query := `
        INSERT INTO activity_logs (user_id, action, subject_type, subject_id, description, metadata)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at`

	if err := r.db.QueryRowxContext(ctx, query,
		entry.UserID, entry.Action, entry.SubjectType, entry.SubjectID,
		entry.Description, entry.Metadata,
	).Scan(&entry.ID, &entry.CreatedAt); err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}

	return nil
}

func (r *ActivityRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]domain.ActivityLog, error) {
	var entries []domain.ActivityLog
	query := `
        SELECT id, user_id, action, subject_type, subject_id, description, metadata, created_at
        FROM activity_logs
        WHERE user_id = $1
        ORDER BY created_at DESC
        LIMIT $2`

	if err := r.db.SelectContext(ctx, &entries, query, userID, limit); err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}

	return entries, nil
}

func (r *ActivityRepository) ListAll(ctx context.Context, limit int) ([]domain.ActivityLog, error) {
	var entries []domain.ActivityLog
	query := `
        SELECT id, user_id, action, subject_type, subject_id, description, metadata, created_at
        FROM activity_logs
        ORDER BY created_at DESC
        LIMIT $1`

	if err := r.db.SelectContext(ctx, &entries, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}

	return entries, nil
}
