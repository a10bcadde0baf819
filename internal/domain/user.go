package domain

import (
	"time"
)

// Роли пользователей в системе
const (
	RoleRegular       = "regular"
	RoleManager       = "manager"
	RoleAdministrator = "administrator"
)

type User struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Sector    string    `json:"sector" db:"sector"`
	Position  string    `json:"position" db:"position"`
	Role      string    `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsAdmin проверяет, является ли пользователь администратором
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdministrator
}

// IsManager проверяет, является ли пользователь менеджером
func (u *User) IsManager() bool {
	return u.Role == RoleManager
}
