package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"vaultdrive/internal/domain"
)

type FileRepository struct {
	db *sqlx.DB
}

func NewFileRepository(db *sqlx.DB) *FileRepository {
	return &FileRepository{db: db}
}

const fileColumns = `uuid, name, original_name, path, mime_type, size_bytes, folder_id, uploaded_by, is_shared, created_at, updated_at, deleted_at`

func (r *FileRepository) Create(ctx context.Context, file *domain.File) error {
	query := `
        INSERT INTO files (uuid, name, original_name, path, mime_type, size_bytes, folder_id, uploaded_by, is_shared)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(
		ctx,
		query,
		file.UUID,
		file.Name,
		file.OriginalName,
		file.Path,
		file.MIMEType,
		file.SizeBytes,
		file.FolderID,
		file.UploadedBy,
		file.IsShared,
	).Scan(&file.CreatedAt, &file.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("file %q already exists: %w", file.Name, domain.ErrConflict)
		}
		return fmt.Errorf("failed to create file: %w", err)
	}

	return nil
}

// GetByUUID возвращает активный файл. Файл в корзине для активных
// операций неотличим от несуществующего.
func (r *FileRepository) GetByUUID(ctx context.Context, fileUUID uuid.UUID) (*domain.File, error) {
	var file domain.File
	query := `
        SELECT ` + fileColumns + `
        FROM files
        WHERE uuid = $1 AND deleted_at IS NULL`

	err := r.db.GetContext(ctx, &file, query, fileUUID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("file %s: %w", fileUUID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get file: %w", err)
	}

	return &file, nil
}

func (r *FileRepository) GetTrashedByUUID(ctx context.Context, fileUUID uuid.UUID) (*domain.File, error) {
	var file domain.File
	query := `
        SELECT ` + fileColumns + `
        FROM files
        WHERE uuid = $1 AND deleted_at IS NOT NULL`

	err := r.db.GetContext(ctx, &file, query, fileUUID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("trashed file %s: %w", fileUUID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get trashed file: %w", err)
	}

	return &file, nil
}

// ListByFolder возвращает активные файлы папки, видимые пользователю:
// собственные и расшаренные. folderID == nil означает корневой уровень.
func (r *FileRepository) ListByFolder(ctx context.Context, folderID *int64, userID int64) ([]domain.File, error) {
	var files []domain.File
	query := `
        SELECT ` + fileColumns + `
        FROM files
        WHERE (($1::bigint IS NULL AND folder_id IS NULL) OR folder_id = $1)
          AND (uploaded_by = $2 OR is_shared = TRUE)
          AND deleted_at IS NULL
        ORDER BY updated_at DESC`

	if err := r.db.SelectContext(ctx, &files, query, folderID, userID); err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	return files, nil
}

// ListBySubtreePath возвращает все файлы (включая удаленные в корзину),
// лежащие в папке с данным физическим путем и во всех ее подпапках.
// Используется при физическом удалении поддерева. Сравнение через
// substr, а не LIKE: имена папок могут содержать _ и %.
func (r *FileRepository) ListBySubtreePath(ctx context.Context, folderPath string) ([]domain.File, error) {
	var files []domain.File
	query := `
        SELECT f.uuid, f.name, f.original_name, f.path, f.mime_type, f.size_bytes,
               f.folder_id, f.uploaded_by, f.is_shared, f.created_at, f.updated_at, f.deleted_at
        FROM files f
        INNER JOIN folders fo ON f.folder_id = fo.id
        WHERE fo.path = $1 OR substr(fo.path, 1, char_length($1) + 1) = $1 || '/'`

	if err := r.db.SelectContext(ctx, &files, query, folderPath); err != nil {
		return nil, fmt.Errorf("failed to list subtree files: %w", err)
	}

	return files, nil
}

func (r *FileRepository) UpdateOriginalName(ctx context.Context, fileUUID uuid.UUID, newName string) error {
	return r.execOne(ctx, fileUUID, `
        UPDATE files
        SET original_name = $1, updated_at = CURRENT_TIMESTAMP
        WHERE uuid = $2 AND deleted_at IS NULL`,
		newName, fileUUID)
}

func (r *FileRepository) UpdateSharing(ctx context.Context, fileUUID uuid.UUID, isShared bool) error {
	return r.execOne(ctx, fileUUID, `
        UPDATE files
        SET is_shared = $1, updated_at = CURRENT_TIMESTAMP
        WHERE uuid = $2 AND deleted_at IS NULL`,
		isShared, fileUUID)
}

func (r *FileRepository) SoftDelete(ctx context.Context, fileUUID uuid.UUID) error {
	return r.execOne(ctx, fileUUID, `
        UPDATE files
        SET deleted_at = CURRENT_TIMESTAMP
        WHERE uuid = $1 AND deleted_at IS NULL`,
		fileUUID)
}

func (r *FileRepository) Restore(ctx context.Context, fileUUID uuid.UUID) error {
	return r.execOne(ctx, fileUUID, `
        UPDATE files
        SET deleted_at = NULL
        WHERE uuid = $1 AND deleted_at IS NOT NULL`,
		fileUUID)
}

// Delete окончательно удаляет строку файла
func (r *FileRepository) Delete(ctx context.Context, fileUUID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE uuid = $1`, fileUUID)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("file %s: %w", fileUUID, domain.ErrNotFound)
	}

	return nil
}

func (r *FileRepository) ListTrashedByOwner(ctx context.Context, userID int64) ([]domain.File, error) {
	var files []domain.File
	query := `
        SELECT ` + fileColumns + `
        FROM files
        WHERE uploaded_by = $1 AND deleted_at IS NOT NULL
        ORDER BY deleted_at DESC`

	if err := r.db.SelectContext(ctx, &files, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list trashed files: %w", err)
	}

	return files, nil
}

// DeleteTrashedByOwner окончательно удаляет все файлы пользователя из корзины
func (r *FileRepository) DeleteTrashedByOwner(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM files WHERE uploaded_by = $1 AND deleted_at IS NOT NULL`,
		userID)
	if err != nil {
		return fmt.Errorf("failed to empty file trash: %w", err)
	}
	return nil
}

// SumActiveSizeByOwner возвращает суммарный размер активных файлов пользователя
func (r *FileRepository) SumActiveSizeByOwner(ctx context.Context, userID int64) (int64, error) {
	var total int64
	query := `
        SELECT COALESCE(SUM(size_bytes), 0)
        FROM files
        WHERE uploaded_by = $1 AND deleted_at IS NULL`

	if err := r.db.GetContext(ctx, &total, query, userID); err != nil {
		return 0, fmt.Errorf("failed to calculate used space: %w", err)
	}

	return total, nil
}

// execOne выполняет запрос, который обязан затронуть ровно одну строку.
func (r *FileRepository) execOne(ctx context.Context, fileUUID uuid.UUID, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update file: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("file %s: %w", fileUUID, domain.ErrNotFound)
	}

	return nil
}
