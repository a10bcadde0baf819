package service

import (
	"context"

	"github.com/google/uuid"

	"vaultdrive/internal/domain"
)

// Интерфейсы хранилищ описывают только то, что нужно сервисам.
// Реализуются репозиториями из internal/repository, в тестах подменяются.

type FolderStore interface {
	Create(ctx context.Context, folder *domain.Folder) error
	GetByID(ctx context.Context, id int64) (*domain.Folder, error)
	GetTrashedByID(ctx context.Context, id int64) (*domain.Folder, error)
	GetSubtree(ctx context.Context, rootID int64) ([]domain.Folder, error)
	UpdateFolderName(ctx context.Context, folderID int64, newName, oldPath, newPath string, descendants []domain.PathUpdate) error
	UpdateFolderParent(ctx context.Context, folderID int64, newParentID *int64, oldPath, newPath string, descendants []domain.PathUpdate) error
	UpdateSharing(ctx context.Context, id int64, isShared bool) error
	Delete(ctx context.Context, id int64) error
	SoftDeleteSubtree(ctx context.Context, id int64) error
	RestoreSubtree(ctx context.Context, id int64) error
	ListByParent(ctx context.Context, parentID *int64, userID int64) ([]domain.Folder, error)
	ListByOwner(ctx context.Context, userID int64) ([]domain.Folder, error)
	ListTrashedByOwner(ctx context.Context, userID int64) ([]domain.Folder, error)
	DeleteTrashedByOwner(ctx context.Context, userID int64) error
}

type FileStore interface {
	Create(ctx context.Context, file *domain.File) error
	GetByUUID(ctx context.Context, fileUUID uuid.UUID) (*domain.File, error)
	GetTrashedByUUID(ctx context.Context, fileUUID uuid.UUID) (*domain.File, error)
	ListByFolder(ctx context.Context, folderID *int64, userID int64) ([]domain.File, error)
	ListBySubtreePath(ctx context.Context, folderPath string) ([]domain.File, error)
	UpdateOriginalName(ctx context.Context, fileUUID uuid.UUID, newName string) error
	UpdateSharing(ctx context.Context, fileUUID uuid.UUID, isShared bool) error
	SoftDelete(ctx context.Context, fileUUID uuid.UUID) error
	Restore(ctx context.Context, fileUUID uuid.UUID) error
	Delete(ctx context.Context, fileUUID uuid.UUID) error
	ListTrashedByOwner(ctx context.Context, userID int64) ([]domain.File, error)
	DeleteTrashedByOwner(ctx context.Context, userID int64) error
	SumActiveSizeByOwner(ctx context.Context, userID int64) (int64, error)
}

type PermissionStore interface {
	GetFileFlags(ctx context.Context, fileUUID uuid.UUID, userID int64) (*domain.PermissionFlags, error)
	GetFolderFlags(ctx context.Context, folderID, userID int64) (*domain.PermissionFlags, error)
	UpsertFileFlags(ctx context.Context, fileUUID uuid.UUID, userID int64, flags domain.PermissionFlags) error
	UpsertFolderFlags(ctx context.Context, folderID, userID int64, flags domain.PermissionFlags) error
	DeleteFileFlags(ctx context.Context, fileUUID uuid.UUID, userID int64) error
	DeleteFolderFlags(ctx context.Context, folderID, userID int64) error
	ListFileFlags(ctx context.Context, fileUUID uuid.UUID) ([]domain.FilePermission, error)
	ListFolderFlags(ctx context.Context, folderID int64) ([]domain.FolderPermission, error)
}

type UserStore interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	UpdateRole(ctx context.Context, id int64, role string) error
}

type ActivityStore interface {
	Record(ctx context.Context, entry *domain.ActivityLog) error
	ListByUser(ctx context.Context, userID int64, limit int) ([]domain.ActivityLog, error)
	ListAll(ctx context.Context, limit int) ([]domain.ActivityLog, error)
}
