package service

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"vaultdrive/internal/auth"
	"vaultdrive/internal/cache"
	"vaultdrive/internal/domain"
	"vaultdrive/internal/storage"
)

// TrashContent представляет содержимое корзины пользователя
type TrashContent struct {
	Folders []domain.Folder `json:"folders"`
	Files   []domain.File   `json:"files"`
}

// TrashService управляет жизненным циклом корзины: мягкое удаление,
// восстановление и окончательная очистка. Данные в физическом хранилище
// при мягком удалении не трогаются.
type TrashService struct {
	files    FileStore
	folders  FolderStore
	storage  storage.Storage
	perms    *PermissionService
	activity *ActivityService
	cache    *cache.ListingCache
}

func NewTrashService(
	files FileStore,
	folders FolderStore,
	store storage.Storage,
	perms *PermissionService,
	activity *ActivityService,
	listCache *cache.ListingCache,
) *TrashService {
	return &TrashService{
		files:    files,
		folders:  folders,
		storage:  store,
		perms:    perms,
		activity: activity,
		cache:    listCache,
	}
}

func (s *TrashService) SoftDeleteFile(ctx context.Context, actor auth.Actor, fileUUID uuid.UUID) error {
	file, err := s.files.GetByUUID(ctx, fileUUID)
	if err != nil {
		return err
	}
	if !s.perms.Authorize(ctx, actor, file, OperationDelete) {
		return fmt.Errorf("file %s: %w", fileUUID, domain.ErrForbidden)
	}

	if err := s.files.SoftDelete(ctx, fileUUID); err != nil {
		return err
	}

	s.activity.Record(ctx, actor.ID, "file.trash", file,
		fmt.Sprintf("moved file %q to trash", file.OriginalName), nil)

	s.cache.Invalidate(cacheKey(actor.ID, file.FolderID))

	return nil
}

// SoftDeleteFolder перемещает в корзину папку вместе со всем поддеревом
func (s *TrashService) SoftDeleteFolder(ctx context.Context, actor auth.Actor, folderID int64) error {
	folder, err := s.folders.GetByID(ctx, folderID)
	if err != nil {
		return err
	}
	if !s.perms.Authorize(ctx, actor, folder, OperationDelete) {
		return fmt.Errorf("folder %d: %w", folderID, domain.ErrForbidden)
	}

	if err := s.folders.SoftDeleteSubtree(ctx, folderID); err != nil {
		return err
	}

	s.activity.Record(ctx, actor.ID, "folder.trash", folder,
		fmt.Sprintf("moved folder %q to trash", folder.Name), nil)

	s.cache.Invalidate(cacheKey(actor.ID, folder.ParentID))
	s.cache.Invalidate(cache.Key{UserID: actor.ID, ParentID: folderID})

	return nil
}

// RestoreFile возвращает файл из корзины. Восстановить может только
// владелец или администратор.
func (s *TrashService) RestoreFile(ctx context.Context, actor auth.Actor, fileUUID uuid.UUID) error {
	file, err := s.files.GetTrashedByUUID(ctx, fileUUID)
	if err != nil {
		return err
	}
	if file.UploadedBy != actor.ID && !actor.IsAdmin() {
		return fmt.Errorf("file %s: %w", fileUUID, domain.ErrForbidden)
	}

	if err := s.files.Restore(ctx, fileUUID); err != nil {
		return err
	}

	s.activity.Record(ctx, actor.ID, "file.restore", file,
		fmt.Sprintf("restored file %q from trash", file.OriginalName), nil)

	s.cache.Invalidate(cacheKey(actor.ID, file.FolderID))

	return nil
}

// RestoreFolder возвращает из корзины папку вместе со всем поддеревом
func (s *TrashService) RestoreFolder(ctx context.Context, actor auth.Actor, folderID int64) error {
	folder, err := s.folders.GetTrashedByID(ctx, folderID)
	if err != nil {
		return err
	}
	if folder.CreatedBy != actor.ID && !actor.IsAdmin() {
		return fmt.Errorf("folder %d: %w", folderID, domain.ErrForbidden)
	}

	if err := s.folders.RestoreSubtree(ctx, folderID); err != nil {
		return err
	}

	s.activity.Record(ctx, actor.ID, "folder.restore", folder,
		fmt.Sprintf("restored folder %q from trash", folder.Name), nil)

	s.cache.Invalidate(cacheKey(actor.ID, folder.ParentID))

	return nil
}

// PurgeFile окончательно удаляет файл из корзины: сначала данные
// в хранилище, затем строка базы.
func (s *TrashService) PurgeFile(ctx context.Context, actor auth.Actor, fileUUID uuid.UUID) error {
	file, err := s.files.GetTrashedByUUID(ctx, fileUUID)
	if err != nil {
		return err
	}
	if file.UploadedBy != actor.ID && !actor.IsAdmin() {
		return fmt.Errorf("file %s: %w", fileUUID, domain.ErrForbidden)
	}

	if err := s.storage.Delete(ctx, file.Path); err != nil {
		log.Printf("[TRASH] failed to delete %q from storage: %v", file.Path, err)
	}

	if err := s.files.Delete(ctx, fileUUID); err != nil {
		return err
	}

	s.activity.Record(ctx, actor.ID, "file.purge", file,
		fmt.Sprintf("purged file %q from trash", file.OriginalName), nil)

	return nil
}

// PurgeFolder окончательно удаляет папку из корзины вместе с поддеревом
func (s *TrashService) PurgeFolder(ctx context.Context, actor auth.Actor, folderID int64) error {
	folder, err := s.folders.GetTrashedByID(ctx, folderID)
	if err != nil {
		return err
	}
	if folder.CreatedBy != actor.ID && !actor.IsAdmin() {
		return fmt.Errorf("folder %d: %w", folderID, domain.ErrForbidden)
	}

	files, err := s.files.ListBySubtreePath(ctx, folder.Path)
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := s.storage.Delete(ctx, f.Path); err != nil {
			log.Printf("[TRASH] failed to delete file %q from storage: %v", f.Path, err)
		}
	}
	if err := s.storage.DeleteDirectory(ctx, folder.Path); err != nil {
		log.Printf("[TRASH] failed to delete directory %q from storage: %v", folder.Path, err)
	}

	if err := s.folders.Delete(ctx, folderID); err != nil {
		return err
	}

	s.activity.Record(ctx, actor.ID, "folder.purge", folder,
		fmt.Sprintf("purged folder %q from trash", folder.Name), nil)

	return nil
}

// List возвращает содержимое корзины пользователя. Корзина личная,
// администратор здесь тоже видит только свою.
func (s *TrashService) List(ctx context.Context, actor auth.Actor) (*TrashContent, error) {
	folders, err := s.folders.ListTrashedByOwner(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	files, err := s.files.ListTrashedByOwner(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	return &TrashContent{Folders: folders, Files: files}, nil
}

// Empty окончательно удаляет все содержимое корзины пользователя
func (s *TrashService) Empty(ctx context.Context, actor auth.Actor) error {
	files, err := s.files.ListTrashedByOwner(ctx, actor.ID)
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := s.storage.Delete(ctx, f.Path); err != nil {
			log.Printf("[TRASH] failed to delete file %q from storage: %v", f.Path, err)
		}
	}

	folders, err := s.folders.ListTrashedByOwner(ctx, actor.ID)
	if err != nil {
		return err
	}
	for _, f := range folders {
		subtreeFiles, err := s.files.ListBySubtreePath(ctx, f.Path)
		if err != nil {
			return err
		}
		for _, sf := range subtreeFiles {
			if err := s.storage.Delete(ctx, sf.Path); err != nil {
				log.Printf("[TRASH] failed to delete file %q from storage: %v", sf.Path, err)
			}
		}
		if err := s.storage.DeleteDirectory(ctx, f.Path); err != nil {
			log.Printf("[TRASH] failed to delete directory %q from storage: %v", f.Path, err)
		}
	}

	if err := s.files.DeleteTrashedByOwner(ctx, actor.ID); err != nil {
		return err
	}
	if err := s.folders.DeleteTrashedByOwner(ctx, actor.ID); err != nil {
		return err
	}

	s.activity.Record(ctx, actor.ID, "trash.empty", nil, "emptied trash", nil)

	return nil
}
