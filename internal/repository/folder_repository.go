package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"vaultdrive/internal/domain"
)

type FolderRepository struct {
	db *sqlx.DB
}

func NewFolderRepository(db *sqlx.DB) *FolderRepository {
	return &FolderRepository{db: db}
}

const folderColumns = `id, name, path, parent_id, created_by, is_shared, created_at, updated_at, deleted_at`

func (r *FolderRepository) Create(ctx context.Context, folder *domain.Folder) error {
	query := `
        INSERT INTO folders (name, path, parent_id, created_by, is_shared)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(
		ctx,
		query,
		folder.Name,
		folder.Path,
		folder.ParentID,
		folder.CreatedBy,
		folder.IsShared,
	).Scan(&folder.ID, &folder.CreatedAt, &folder.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("folder %q already exists: %w", folder.Name, domain.ErrConflict)
		}
		return fmt.Errorf("failed to create folder: %w", err)
	}

	return nil
}

// UpdateSharing включает или выключает общий доступ к папке
func (r *FolderRepository) UpdateSharing(ctx context.Context, id int64, isShared bool) error {
	result, err := r.db.ExecContext(ctx, `
        UPDATE folders
        SET is_shared = $1, updated_at = CURRENT_TIMESTAMP
        WHERE id = $2 AND deleted_at IS NULL`,
		isShared, id)
	if err != nil {
		return fmt.Errorf("failed to update folder sharing: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("folder %d: %w", id, domain.ErrNotFound)
	}

	return nil
}

// GetByID возвращает активную папку. Папка в корзине для активных
// операций неотличима от несуществующей.
func (r *FolderRepository) GetByID(ctx context.Context, id int64) (*domain.Folder, error) {
	var folder domain.Folder
	query := `
        SELECT ` + folderColumns + `
        FROM folders
        WHERE id = $1 AND deleted_at IS NULL`

	err := r.db.GetContext(ctx, &folder, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("folder %d: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get folder: %w", err)
	}

	return &folder, nil
}

func (r *FolderRepository) GetTrashedByID(ctx context.Context, id int64) (*domain.Folder, error) {
	var folder domain.Folder
	query := `
        SELECT ` + folderColumns + `
        FROM folders
        WHERE id = $1 AND deleted_at IS NOT NULL`

	err := r.db.GetContext(ctx, &folder, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("trashed folder %d: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get trashed folder: %w", err)
	}

	return &folder, nil
}

// GetSubtree возвращает всех потомков папки, включая находящихся в
// корзине, отсортированных по пути: родитель всегда идет раньше своих
// детей. Потомки в корзине нужны при смене префикса пути, иначе после
// восстановления они останутся со старым префиксом.
func (r *FolderRepository) GetSubtree(ctx context.Context, rootID int64) ([]domain.Folder, error) {
	var folders []domain.Folder
	query := `
        WITH RECURSIVE subfolder AS (
            SELECT ` + folderColumns + `
            FROM folders
            WHERE parent_id = $1

            UNION ALL

            SELECT f.id, f.name, f.path, f.parent_id, f.created_by, f.is_shared,
                   f.created_at, f.updated_at, f.deleted_at
            FROM folders f
            INNER JOIN subfolder s ON f.parent_id = s.id
        )
        SELECT * FROM subfolder ORDER BY path`

	if err := r.db.SelectContext(ctx, &folders, query, rootID); err != nil {
		return nil, fmt.Errorf("failed to get folder subtree: %w", err)
	}

	return folders, nil
}

// UpdateFolderName обновляет имя и путь папки вместе с путями всех
// потомков и файлов поддерева в одной транзакции.
func (r *FolderRepository) UpdateFolderName(ctx context.Context, folderID int64, newName, oldPath, newPath string, descendants []domain.PathUpdate) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
        UPDATE folders
        SET name = $1,
            path = $2,
            updated_at = CURRENT_TIMESTAMP
        WHERE id = $3 AND deleted_at IS NULL`

	result, err := tx.ExecContext(ctx, query, newName, newPath, folderID)
	if err != nil {
		return fmt.Errorf("failed to update folder name: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("folder %d: %w", folderID, domain.ErrNotFound)
	}

	if err := applyPathUpdates(ctx, tx, descendants); err != nil {
		return err
	}

	if err := rewriteFilePaths(ctx, tx, oldPath, newPath); err != nil {
		return err
	}

	return tx.Commit()
}

// UpdateFolderParent перемещает папку под нового родителя и обновляет
// пути потомков и файлов поддерева в одной транзакции.
func (r *FolderRepository) UpdateFolderParent(ctx context.Context, folderID int64, newParentID *int64, oldPath, newPath string, descendants []domain.PathUpdate) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
        UPDATE folders
        SET parent_id = $1,
            path = $2,
            updated_at = CURRENT_TIMESTAMP
        WHERE id = $3 AND deleted_at IS NULL`

	result, err := tx.ExecContext(ctx, query, newParentID, newPath, folderID)
	if err != nil {
		return fmt.Errorf("failed to update folder parent: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("folder %d: %w", folderID, domain.ErrNotFound)
	}

	if err := applyPathUpdates(ctx, tx, descendants); err != nil {
		return err
	}

	if err := rewriteFilePaths(ctx, tx, oldPath, newPath); err != nil {
		return err
	}

	return tx.Commit()
}

func applyPathUpdates(ctx context.Context, tx *sqlx.Tx, updates []domain.PathUpdate) error {
	query := `
        UPDATE folders
        SET path = $1,
            updated_at = CURRENT_TIMESTAMP
        WHERE id = $2`

	for _, u := range updates {
		if _, err := tx.ExecContext(ctx, query, u.Path, u.ID); err != nil {
			return fmt.Errorf("failed to update path for folder %d: %w", u.ID, err)
		}
	}
	return nil
}

// rewriteFilePaths заменяет префикс физического пути у всех файлов
// поддерева, включая файлы в корзине. Сравнение через substr, а не
// LIKE: имена папок могут содержать _ и %.
func rewriteFilePaths(ctx context.Context, tx *sqlx.Tx, oldPrefix, newPrefix string) error {
	query := `
        UPDATE files
        SET path = $1 || substr(path, char_length($2) + 1),
            updated_at = CURRENT_TIMESTAMP
        WHERE substr(path, 1, char_length($2) + 1) = $2 || '/'`

	if _, err := tx.ExecContext(ctx, query, newPrefix, oldPrefix); err != nil {
		return fmt.Errorf("failed to rewrite file paths: %w", err)
	}
	return nil
}

// Delete окончательно удаляет строку папки. Потомки и файлы удаляются
// каскадом на уровне внешних ключей.
func (r *FolderRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM folders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete folder: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("folder %d: %w", id, domain.ErrNotFound)
	}

	return nil
}

// SoftDeleteSubtree помечает папку, все ее подпапки и все файлы в них
// как удаленные, одной транзакцией.
func (r *FolderRepository) SoftDeleteSubtree(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
        WITH RECURSIVE subfolder AS (
            SELECT id FROM folders WHERE id = $1 AND deleted_at IS NULL
            UNION ALL
            SELECT f.id
            FROM folders f
            INNER JOIN subfolder s ON f.parent_id = s.id
            WHERE f.deleted_at IS NULL
        )
        UPDATE folders
        SET deleted_at = CURRENT_TIMESTAMP
        WHERE id IN (SELECT id FROM subfolder)
    `, id)
	if err != nil {
		return fmt.Errorf("failed to mark folders as deleted: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("folder %d: %w", id, domain.ErrNotFound)
	}

	_, err = tx.ExecContext(ctx, `
        UPDATE files
        SET deleted_at = CURRENT_TIMESTAMP
        WHERE deleted_at IS NULL
          AND folder_id IN (
            WITH RECURSIVE subfolder AS (
                SELECT id FROM folders WHERE id = $1
                UNION ALL
                SELECT f.id
                FROM folders f
                INNER JOIN subfolder s ON f.parent_id = s.id
            )
            SELECT id FROM subfolder
        )
    `, id)
	if err != nil {
		return fmt.Errorf("failed to mark files as deleted: %w", err)
	}

	return tx.Commit()
}

// RestoreSubtree снимает отметку удаления с папки, ее подпапок и файлов
func (r *FolderRepository) RestoreSubtree(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
        WITH RECURSIVE subfolder AS (
            SELECT id FROM folders WHERE id = $1 AND deleted_at IS NOT NULL
            UNION ALL
            SELECT f.id
            FROM folders f
            INNER JOIN subfolder s ON f.parent_id = s.id
            WHERE f.deleted_at IS NOT NULL
        )
        UPDATE folders
        SET deleted_at = NULL
        WHERE id IN (SELECT id FROM subfolder)
    `, id)
	if err != nil {
		return fmt.Errorf("failed to restore folders: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("trashed folder %d: %w", id, domain.ErrNotFound)
	}

	_, err = tx.ExecContext(ctx, `
        UPDATE files
        SET deleted_at = NULL
        WHERE deleted_at IS NOT NULL
          AND folder_id IN (
            WITH RECURSIVE subfolder AS (
                SELECT id FROM folders WHERE id = $1
                UNION ALL
                SELECT f.id
                FROM folders f
                INNER JOIN subfolder s ON f.parent_id = s.id
            )
            SELECT id FROM subfolder
        )
    `, id)
	if err != nil {
		return fmt.Errorf("failed to restore files: %w", err)
	}

	return tx.Commit()
}

// ListByParent возвращает активные папки уровня, видимые пользователю:
// собственные и расшаренные.
func (r *FolderRepository) ListByParent(ctx context.Context, parentID *int64, userID int64) ([]domain.Folder, error) {
	var folders []domain.Folder
	query := `
        SELECT ` + folderColumns + `
        FROM folders
        WHERE (($1::bigint IS NULL AND parent_id IS NULL) OR parent_id = $1)
          AND (created_by = $2 OR is_shared = TRUE)
          AND deleted_at IS NULL
        ORDER BY name`

	if err := r.db.SelectContext(ctx, &folders, query, parentID, userID); err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}

	return folders, nil
}

func (r *FolderRepository) ListByOwner(ctx context.Context, userID int64) ([]domain.Folder, error) {
	var folders []domain.Folder
	query := `
        SELECT ` + folderColumns + `
        FROM folders
        WHERE created_by = $1 AND deleted_at IS NULL
        ORDER BY path`

	if err := r.db.SelectContext(ctx, &folders, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list user folders: %w", err)
	}

	return folders, nil
}

func (r *FolderRepository) ListTrashedByOwner(ctx context.Context, userID int64) ([]domain.Folder, error) {
	var folders []domain.Folder
	query := `
        SELECT ` + folderColumns + `
        FROM folders
        WHERE created_by = $1 AND deleted_at IS NOT NULL
        ORDER BY deleted_at DESC`

	if err := r.db.SelectContext(ctx, &folders, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list trashed folders: %w", err)
	}

	return folders, nil
}

// DeleteTrashedByOwner окончательно удаляет все папки пользователя из корзины
func (r *FolderRepository) DeleteTrashedByOwner(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM folders WHERE created_by = $1 AND deleted_at IS NOT NULL`,
		userID)
	if err != nil {
		return fmt.Errorf("failed to empty folder trash: %w", err)
	}
	return nil
}
