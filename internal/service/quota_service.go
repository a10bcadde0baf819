package service

import (
	"context"
	"math"

	"vaultdrive/internal/domain"
)

// QuotaService считает занятое пространство пользователя.
// Квота отчётная: загрузку она не блокирует, лимит отдельного файла
// проверяется при загрузке.
type QuotaService struct {
	files      FileStore
	limitBytes int64
}

func NewQuotaService(files FileStore, limitBytes int64) *QuotaService {
	return &QuotaService{files: files, limitBytes: limitBytes}
}

// Usage возвращает сводку по занятому месту. Файлы в корзине
// не учитываются.
func (s *QuotaService) Usage(ctx context.Context, userID int64) (*domain.StorageUsage, error) {
	used, err := s.files.SumActiveSizeByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}

	usage := &domain.StorageUsage{
		UsedBytes:  used,
		LimitBytes: s.limitBytes,
	}
	if s.limitBytes > 0 {
		pct := float64(used) / float64(s.limitBytes) * 100
		usage.Percentage = math.Round(pct*100) / 100
	}

	return usage, nil
}
