package service

import (
	"context"
	"encoding/json"
	"log"

	"github.com/jmoiron/sqlx/types"

	"vaultdrive/internal/auth"
	"vaultdrive/internal/domain"
)

const (
	defaultActivityLimit = 100
	maxActivityLimit     = 500
)

// ActivityService ведет журнал действий пользователей.
type ActivityService struct {
	repo ActivityStore
}

func NewActivityService(repo ActivityStore) *ActivityService {
	return &ActivityService{repo: repo}
}

// Record записывает действие в журнал. Сбой журналирования логируется,
// но никогда не прерывает основную операцию.
func (s *ActivityService) Record(ctx context.Context, userID int64, action string, subject domain.Subject, description string, metadata map[string]interface{}) {
	entry := &domain.ActivityLog{
		UserID:      userID,
		Action:      action,
		Description: description,
	}

	if subject != nil {
		subjectID := subject.SubjectID()
		entry.SubjectType = string(subject.SubjectType())
		entry.SubjectID = &subjectID
	}

	if len(metadata) > 0 {
		raw, err := json.Marshal(metadata)
		if err != nil {
			log.Printf("[ACTIVITY] failed to marshal metadata for %s: %v", action, err)
		} else {
			entry.Metadata = types.JSONText(raw)
		}
	}

	if err := s.repo.Record(ctx, entry); err != nil {
		log.Printf("[ACTIVITY] failed to record %s by user %d: %v", action, userID, err)
	}
}

// List возвращает последние записи журнала. Администратор видит журнал
// всех пользователей, остальные только свой.
func (s *ActivityService) List(ctx context.Context, actor auth.Actor, limit int) ([]domain.ActivityLog, error) {
	if limit <= 0 || limit > maxActivityLimit {
		limit = defaultActivityLimit
	}

	if actor.IsAdmin() {
		return s.repo.ListAll(ctx, limit)
	}
	return s.repo.ListByUser(ctx, actor.ID, limit)
}
