package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"vaultdrive/internal/domain"
)

// PermissionRepository хранит индивидуальные права доступа к файлам и папкам.
type PermissionRepository struct {
	db *sqlx.DB
}

func NewPermissionRepository(db *sqlx.DB) *PermissionRepository {
	return &PermissionRepository{db: db}
}

// GetFileFlags возвращает флаги доступа пользователя к файлу.
// Если записи нет, возвращает (nil, nil).
func (r *PermissionRepository) GetFileFlags(ctx context.Context, fileUUID uuid.UUID, userID int64) (*domain.PermissionFlags, error) {
	var perm domain.FilePermission
	query := `
        SELECT file_uuid, user_id, can_view, can_edit, can_delete, can_rename
        FROM file_permissions
        WHERE file_uuid = $1 AND user_id = $2`

	if err := r.db.GetContext(ctx, &perm, query, fileUUID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get file permission: %w", err)
	}

	return &perm.PermissionFlags, nil
}

// GetFolderFlags возвращает флаги доступа пользователя к папке.
// Если записи нет, возвращает (nil, nil).
func (r *PermissionRepository) GetFolderFlags(ctx context.Context, folderID, userID int64) (*domain.PermissionFlags, error) {
	var perm domain.FolderPermission
	query := `
        SELECT folder_id, user_id, can_view, can_edit, can_delete, can_rename
        FROM folder_permissions
        WHERE folder_id = $1 AND user_id = $2`

	if err := r.db.GetContext(ctx, &perm, query, folderID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get folder permission: %w", err)
	}

	return &perm.PermissionFlags, nil
}

// UpsertFileFlags создаёт или обновляет права на файл для пользователя.
func (r *PermissionRepository) UpsertFileFlags(ctx context.Context, fileUUID uuid.UUID, userID int64, flags domain.PermissionFlags) error {
	query := `
        INSERT INTO file_permissions (file_uuid, user_id, can_view, can_edit, can_delete, can_rename)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (file_uuid, user_id) DO UPDATE SET
            can_view = EXCLUDED.can_view,
            can_edit = EXCLUDED.can_edit,
            can_delete = EXCLUDED.can_delete,
            can_rename = EXCLUDED.can_rename,
            updated_at = CURRENT_TIMESTAMP`

	if _, err := r.db.ExecContext(ctx, query, fileUUID, userID,
		flags.CanView, flags.CanEdit, flags.CanDelete, flags.CanRename); err != nil {
		return fmt.Errorf("failed to upsert file permission: %w", err)
	}

	return nil
}

// UpsertFolderFlags создаёт или обновляет права на папку для пользователя.
func (r *PermissionRepository) UpsertFolderFlags(ctx context.Context, folderID, userID int64, flags domain.PermissionFlags) error {
	query := `
        INSERT INTO folder_permissions (folder_id, user_id, can_view, can_edit, can_delete, can_rename)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (folder_id, user_id) DO UPDATE SET
            can_view = EXCLUDED.can_view,
            can_edit = EXCLUDED.can_edit,
            can_delete = EXCLUDED.can_delete,
            can_rename = EXCLUDED.can_rename,
            updated_at = CURRENT_TIMESTAMP`

	if _, err := r.db.ExecContext(ctx, query, folderID, userID,
		flags.CanView, flags.CanEdit, flags.CanDelete, flags.CanRename); err != nil {
		return fmt.Errorf("failed to upsert folder permission: %w", err)
	}

	return nil
}

// DeleteFileFlags снимает индивидуальные права пользователя на файл.
func (r *PermissionRepository) DeleteFileFlags(ctx context.Context, fileUUID uuid.UUID, userID int64) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM file_permissions WHERE file_uuid = $1 AND user_id = $2`,
		fileUUID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete file permission: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("file permission for user %d: %w", userID, domain.ErrNotFound)
	}

	return nil
}

// DeleteFolderFlags снимает индивидуальные права пользователя на папку.
func (r *PermissionRepository) DeleteFolderFlags(ctx context.Context, folderID, userID int64) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM folder_permissions WHERE folder_id = $1 AND user_id = $2`,
		folderID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete folder permission: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("folder permission for user %d: %w", userID, domain.ErrNotFound)
	}

	return nil
}

// ListFileFlags возвращает все записи прав по файлу.
func (r *PermissionRepository) ListFileFlags(ctx context.Context, fileUUID uuid.UUID) ([]domain.FilePermission, error) {
	var perms []domain.FilePermission
	query := `
        SELECT file_uuid, user_id, can_view, can_edit, can_delete, can_rename
        FROM file_permissions
        WHERE file_uuid = $1
        ORDER BY user_id`

	if err := r.db.SelectContext(ctx, &perms, query, fileUUID); err != nil {
		return nil, fmt.Errorf("failed to list file permissions: %w", err)
	}

	return perms, nil
}

// ListFolderFlags возвращает все записи прав по папке.
func (r *PermissionRepository) ListFolderFlags(ctx context.Context, folderID int64) ([]domain.FolderPermission, error) {
	var perms []domain.FolderPermission
	query := `
        SELECT folder_id, user_id, can_view, can_edit, can_delete, can_rename
        FROM folder_permissions
        WHERE folder_id = $1
        ORDER BY user_id`

	if err := r.db.SelectContext(ctx, &perms, query, folderID); err != nil {
		return nil, fmt.Errorf("failed to list folder permissions: %w", err)
	}

	return perms, nil
}
