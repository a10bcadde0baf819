package domain

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// ActivityLog представляет запись журнала действий.
// Журнал только дописывается, существующие записи не изменяются.
type ActivityLog struct {
	ID          int64          `json:"id" db:"id"`
	UserID      int64          `json:"user_id" db:"user_id"`
	Action      string         `json:"action" db:"action"`
	SubjectType string         `json:"subject_type" db:"subject_type"`
	SubjectID   *string        `json:"subject_id,omitempty" db:"subject_id"`
	Description string         `json:"description" db:"description"`
	Metadata    types.JSONText `json:"metadata,omitempty" db:"metadata"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
}
