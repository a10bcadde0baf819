package domain

import (
	"time"

	"github.com/google/uuid"
)

// SubjectType определяет тип ресурса, к которому применяются права
type SubjectType string

const (
	SubjectFile   SubjectType = "file"
	SubjectFolder SubjectType = "folder"
)

// Subject представляет ресурс, над которым выполняется операция
type Subject interface {
	SubjectType() SubjectType
	SubjectID() string
	OwnerID() int64
	Shared() bool
}

// PermissionFlags содержит флаги прав доступа, выданных пользователю.
// Флаги независимы друг от друга: can_edit не подразумевает can_delete.
type PermissionFlags struct {
	CanView   bool `json:"can_view" db:"can_view"`
	CanEdit   bool `json:"can_edit" db:"can_edit"`
	CanDelete bool `json:"can_delete" db:"can_delete"`
	CanRename bool `json:"can_rename" db:"can_rename"`
}

type FilePermission struct {
	ID       int64     `json:"id" db:"id"`
	FileUUID uuid.UUID `json:"file_uuid" db:"file_uuid"`
	UserID   int64     `json:"user_id" db:"user_id"`
	PermissionFlags
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type FolderPermission struct {
	ID       int64 `json:"id" db:"id"`
	FolderID int64 `json:"folder_id" db:"folder_id"`
	UserID   int64 `json:"user_id" db:"user_id"`
	PermissionFlags
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
