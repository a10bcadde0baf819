package service

import (
	"context"
	"fmt"

	"vaultdrive/internal/auth"
	"vaultdrive/internal/domain"
)

type UserService struct {
	users    UserStore
	activity *ActivityService
}

func NewUserService(users UserStore, activity *ActivityService) *UserService {
	return &UserService{users: users, activity: activity}
}

func (s *UserService) Get(ctx context.Context, id int64) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

// List возвращает всех пользователей. Список нужен любому пользователю
// для выдачи прав доступа.
func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	return s.users.List(ctx)
}

// UpdateRole изменяет роль пользователя. Доступно только администратору.
func (s *UserService) UpdateRole(ctx context.Context, actor auth.Actor, userID int64, role string) (*domain.User, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("role change: %w", domain.ErrForbidden)
	}

	switch role {
	case domain.RoleRegular, domain.RoleManager, domain.RoleAdministrator:
	default:
		return nil, fmt.Errorf("unknown role %q: %w", role, domain.ErrValidation)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.users.UpdateRole(ctx, userID, role); err != nil {
		return nil, err
	}
	user.Role = role

	s.activity.Record(ctx, actor.ID, "user.role", nil,
		fmt.Sprintf("changed role of user %d to %s", userID, role),
		map[string]interface{}{"target_user": userID, "role": role})

	return user, nil
}
