package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"vaultdrive/internal/auth"
	"vaultdrive/internal/cache"
	"vaultdrive/internal/domain"
	"vaultdrive/internal/storage"
)

// rootUploadDir - базовый каталог всех данных в физическом хранилище
const rootUploadDir = "uploads"

type FolderService struct {
	folders  FolderStore
	files    FileStore
	storage  storage.Storage
	perms    *PermissionService
	activity *ActivityService
	cache    *cache.ListingCache
}

func NewFolderService(
	folders FolderStore,
	files FileStore,
	store storage.Storage,
	perms *PermissionService,
	activity *ActivityService,
	listCache *cache.ListingCache,
) *FolderService {
	return &FolderService{
		folders:  folders,
		files:    files,
		storage:  store,
		perms:    perms,
		activity: activity,
		cache:    listCache,
	}
}

// ComputePhysicalPath строит физический путь папки или файла.
// Без родителя путь начинается от базового каталога.
func ComputePhysicalPath(parent *domain.Folder, name string) string {
	if parent == nil {
		return rootUploadDir + "/" + name
	}
	return parent.Path + "/" + name
}

func validateFolderName(name string) error {
	if name == "" {
		return fmt.Errorf("folder name is empty: %w", domain.ErrValidation)
	}
	if strings.ContainsAny(name, `<>:"/\|?*`) {
		return fmt.Errorf("folder name %q contains forbidden characters: %w", name, domain.ErrValidation)
	}
	// Папка root на верхнем уровне совпала бы с каталогом файлов
	// вне папок (uploads/root).
	if name == "root" {
		return fmt.Errorf("folder name %q is reserved: %w", name, domain.ErrValidation)
	}
	return nil
}

func cacheKey(userID int64, parentID *int64) cache.Key {
	key := cache.Key{UserID: userID}
	if parentID != nil {
		key.ParentID = *parentID
	}
	return key
}

func (s *FolderService) Create(ctx context.Context, actor auth.Actor, name string, parentID *int64) (*domain.Folder, error) {
	name = strings.TrimSpace(name)
	if err := validateFolderName(name); err != nil {
		return nil, err
	}

	var parent *domain.Folder
	if parentID != nil {
		var err error
		parent, err = s.folders.GetByID(ctx, *parentID)
		if err != nil {
			return nil, err
		}
		if !s.perms.Authorize(ctx, actor, parent, OperationEdit) {
			return nil, fmt.Errorf("folder %d: %w", *parentID, domain.ErrForbidden)
		}
	}

	path := ComputePhysicalPath(parent, name)

	// Каталог создается до записи в базу: запись без каталога хуже,
	// чем каталог без записи.
	if err := s.storage.MakeDirectory(ctx, path); err != nil {
		log.Printf("[FOLDER] failed to create directory %q: %v", path, err)
		return nil, domain.ErrStorage
	}

	folder := &domain.Folder{
		Name:      name,
		Path:      path,
		ParentID:  parentID,
		CreatedBy: actor.ID,
	}
	if err := s.folders.Create(ctx, folder); err != nil {
		return nil, err
	}

	s.activity.Record(ctx, actor.ID, "folder.create", folder,
		fmt.Sprintf("created folder %q", name),
		map[string]interface{}{"path": path})

	s.cache.Invalidate(cacheKey(actor.ID, parentID))

	return folder, nil
}

// Rename переименовывает папку и обновляет пути всего поддерева.
// Сначала физическое перемещение, затем строки базы одной транзакцией.
func (s *FolderService) Rename(ctx context.Context, actor auth.Actor, folderID int64, newName string) (*domain.Folder, error) {
	newName = strings.TrimSpace(newName)
	if err := validateFolderName(newName); err != nil {
		return nil, err
	}

	folder, err := s.folders.GetByID(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if !s.perms.Authorize(ctx, actor, folder, OperationRename) {
		return nil, fmt.Errorf("folder %d: %w", folderID, domain.ErrForbidden)
	}
	if newName == folder.Name {
		return folder, nil
	}

	oldPath := folder.Path
	parentDir := oldPath[:strings.LastIndex(oldPath, "/")]
	newPath := parentDir + "/" + newName

	updates, err := s.subtreePathUpdates(ctx, folderID, oldPath, newPath)
	if err != nil {
		return nil, err
	}

	if err := s.storage.Move(ctx, oldPath, newPath); err != nil {
		log.Printf("[FOLDER] failed to move %q to %q: %v", oldPath, newPath, err)
		return nil, domain.ErrStorage
	}

	if err := s.folders.UpdateFolderName(ctx, folderID, newName, oldPath, newPath, updates); err != nil {
		// Возвращаем данные на прежнее место, чтобы хранилище
		// не разошлось с базой.
		if mvErr := s.storage.Move(ctx, newPath, oldPath); mvErr != nil {
			log.Printf("[FOLDER] failed to move %q back to %q: %v", newPath, oldPath, mvErr)
		}
		return nil, err
	}

	folder.Name = newName
	folder.Path = newPath

	s.activity.Record(ctx, actor.ID, "folder.rename", folder,
		fmt.Sprintf("renamed folder to %q", newName),
		map[string]interface{}{"old_path": oldPath, "new_path": newPath})

	s.cache.Invalidate(cacheKey(actor.ID, folder.ParentID))
	s.cache.Invalidate(cache.Key{UserID: actor.ID, ParentID: folderID})

	return folder, nil
}

// Reparent перемещает папку под нового родителя. Перемещение в
// собственное поддерево запрещено.
func (s *FolderService) Reparent(ctx context.Context, actor auth.Actor, folderID int64, newParentID *int64) (*domain.Folder, error) {
	folder, err := s.folders.GetByID(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if !s.perms.Authorize(ctx, actor, folder, OperationRename) {
		return nil, fmt.Errorf("folder %d: %w", folderID, domain.ErrForbidden)
	}

	var newParent *domain.Folder
	if newParentID != nil {
		if *newParentID == folderID {
			return nil, fmt.Errorf("folder %d cannot be its own parent: %w", folderID, domain.ErrConflict)
		}
		newParent, err = s.folders.GetByID(ctx, *newParentID)
		if err != nil {
			return nil, err
		}
		if newParent.Path == folder.Path || strings.HasPrefix(newParent.Path, folder.Path+"/") {
			return nil, fmt.Errorf("folder %d cannot be moved into its own subtree: %w", folderID, domain.ErrConflict)
		}
		if !s.perms.Authorize(ctx, actor, newParent, OperationEdit) {
			return nil, fmt.Errorf("folder %d: %w", *newParentID, domain.ErrForbidden)
		}
	}

	if equalParent(folder.ParentID, newParentID) {
		return folder, nil
	}

	oldPath := folder.Path
	newPath := ComputePhysicalPath(newParent, folder.Name)

	updates, err := s.subtreePathUpdates(ctx, folderID, oldPath, newPath)
	if err != nil {
		return nil, err
	}

	if err := s.storage.Move(ctx, oldPath, newPath); err != nil {
		log.Printf("[FOLDER] failed to move %q to %q: %v", oldPath, newPath, err)
		return nil, domain.ErrStorage
	}

	if err := s.folders.UpdateFolderParent(ctx, folderID, newParentID, oldPath, newPath, updates); err != nil {
		if mvErr := s.storage.Move(ctx, newPath, oldPath); mvErr != nil {
			log.Printf("[FOLDER] failed to move %q back to %q: %v", newPath, oldPath, mvErr)
		}
		return nil, err
	}

	oldParentID := folder.ParentID
	folder.ParentID = newParentID
	folder.Path = newPath

	s.activity.Record(ctx, actor.ID, "folder.move", folder,
		fmt.Sprintf("moved folder %q", folder.Name),
		map[string]interface{}{"old_path": oldPath, "new_path": newPath})

	s.cache.Invalidate(cacheKey(actor.ID, oldParentID))
	s.cache.Invalidate(cacheKey(actor.ID, newParentID))

	return folder, nil
}

// Delete окончательно удаляет папку вместе с поддеревом, минуя корзину.
// Сначала физическое хранилище, затем строки базы.
func (s *FolderService) Delete(ctx context.Context, actor auth.Actor, folderID int64) error {
	folder, err := s.folders.GetByID(ctx, folderID)
	if err != nil {
		return err
	}
	if !s.perms.Authorize(ctx, actor, folder, OperationDelete) {
		return fmt.Errorf("folder %d: %w", folderID, domain.ErrForbidden)
	}

	files, err := s.files.ListBySubtreePath(ctx, folder.Path)
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := s.storage.Delete(ctx, f.Path); err != nil {
			log.Printf("[FOLDER] failed to delete file %q from storage: %v", f.Path, err)
		}
	}
	if err := s.storage.DeleteDirectory(ctx, folder.Path); err != nil {
		log.Printf("[FOLDER] failed to delete directory %q from storage: %v", folder.Path, err)
	}

	if err := s.folders.Delete(ctx, folderID); err != nil {
		return err
	}

	s.activity.Record(ctx, actor.ID, "folder.delete", folder,
		fmt.Sprintf("permanently deleted folder %q", folder.Name),
		map[string]interface{}{"path": folder.Path})

	s.cache.Invalidate(cacheKey(actor.ID, folder.ParentID))
	s.cache.Invalidate(cache.Key{UserID: actor.ID, ParentID: folderID})

	return nil
}

// GetContent возвращает содержимое папки. Результат кешируется,
// поэтому листинг может отставать от изменений на время жизни кеша.
func (s *FolderService) GetContent(ctx context.Context, actor auth.Actor, folderID *int64) (*domain.FolderContent, error) {
	key := cacheKey(actor.ID, folderID)
	if content, ok := s.cache.Get(key); ok {
		return content, nil
	}

	var current domain.Folder
	if folderID != nil {
		folder, err := s.folders.GetByID(ctx, *folderID)
		if err != nil {
			return nil, err
		}
		if !s.perms.Authorize(ctx, actor, folder, OperationView) {
			return nil, fmt.Errorf("folder %d: %w", *folderID, domain.ErrForbidden)
		}
		current = *folder
	} else {
		current = domain.Folder{Name: "root", Path: rootUploadDir, CreatedBy: actor.ID}
	}

	folders, err := s.folders.ListByParent(ctx, folderID, actor.ID)
	if err != nil {
		return nil, err
	}
	files, err := s.files.ListByFolder(ctx, folderID, actor.ID)
	if err != nil {
		return nil, err
	}

	content := &domain.FolderContent{
		Folder:  current,
		Folders: folders,
		Files:   files,
	}
	s.cache.Set(key, content)

	return content, nil
}

// GetStructure возвращает все папки пользователя, отсортированные по пути
func (s *FolderService) GetStructure(ctx context.Context, actor auth.Actor) ([]domain.Folder, error) {
	return s.folders.ListByOwner(ctx, actor.ID)
}

// UpdateSharing включает или выключает общий доступ к папке.
// Управлять доступом может только владелец или администратор.
func (s *FolderService) UpdateSharing(ctx context.Context, actor auth.Actor, folderID int64, shared bool) (*domain.Folder, error) {
	folder, err := s.folders.GetByID(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if folder.CreatedBy != actor.ID && !actor.IsAdmin() {
		return nil, fmt.Errorf("folder %d: %w", folderID, domain.ErrForbidden)
	}

	if err := s.folders.UpdateSharing(ctx, folderID, shared); err != nil {
		return nil, err
	}
	folder.IsShared = shared

	action := "folder.share"
	if !shared {
		action = "folder.unshare"
	}
	s.activity.Record(ctx, actor.ID, action, folder,
		fmt.Sprintf("changed sharing of folder %q", folder.Name), nil)

	s.cache.Invalidate(cacheKey(actor.ID, folder.ParentID))

	return folder, nil
}

// subtreePathUpdates строит новые пути потомков, заменяя префикс
// пути поддерева.
func (s *FolderService) subtreePathUpdates(ctx context.Context, folderID int64, oldPath, newPath string) ([]domain.PathUpdate, error) {
	descendants, err := s.folders.GetSubtree(ctx, folderID)
	if err != nil {
		return nil, err
	}

	updates := make([]domain.PathUpdate, 0, len(descendants))
	for _, d := range descendants {
		updates = append(updates, domain.PathUpdate{
			ID:   d.ID,
			Path: newPath + strings.TrimPrefix(d.Path, oldPath),
		})
	}
	return updates, nil
}

func equalParent(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
