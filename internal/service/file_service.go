package service

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"vaultdrive/internal/auth"
	"vaultdrive/internal/cache"
	"vaultdrive/internal/domain"
	"vaultdrive/internal/storage"
)

// rootFilesDir - каталог для файлов, загруженных вне папок
const rootFilesDir = rootUploadDir + "/root"

var (
	forbiddenChars = regexp.MustCompile(`[<>:"/\\|?*]`)
	underscoreRuns = regexp.MustCompile(`[_\s]*_[_\s]*`)
)

// SanitizeFileName приводит имя файла к безопасному виду: запрещенные
// символы заменяются подчеркиванием, серии подчеркиваний и пробелов
// вокруг них сворачиваются в одно. Расширение не изменяется.
func SanitizeFileName(name string) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	base = forbiddenChars.ReplaceAllString(base, "_")
	base = underscoreRuns.ReplaceAllString(base, "_")

	if strings.Trim(base, "_ ") == "" {
		base = fmt.Sprintf("file_%d", time.Now().Unix())
	}

	return base + ext
}

type FileService struct {
	files          FileStore
	folders        FolderStore
	storage        storage.Storage
	perms          *PermissionService
	activity       *ActivityService
	cache          *cache.ListingCache
	maxUploadBytes int64
}

func NewFileService(
	files FileStore,
	folders FolderStore,
	store storage.Storage,
	perms *PermissionService,
	activity *ActivityService,
	listCache *cache.ListingCache,
	maxUploadBytes int64,
) *FileService {
	return &FileService{
		files:          files,
		folders:        folders,
		storage:        store,
		perms:          perms,
		activity:       activity,
		cache:          listCache,
		maxUploadBytes: maxUploadBytes,
	}
}

// Upload сохраняет файл в хранилище и регистрирует его в базе.
// Сначала записываются данные, затем строка: файл без строки можно
// убрать, строка без файла бесполезна.
func (s *FileService) Upload(ctx context.Context, actor auth.Actor, upload domain.FileUpload) (*domain.File, error) {
	if strings.TrimSpace(upload.OriginalName) == "" {
		return nil, fmt.Errorf("file name is empty: %w", domain.ErrValidation)
	}
	if len(upload.Data) == 0 {
		return nil, fmt.Errorf("file is empty: %w", domain.ErrValidation)
	}
	if s.maxUploadBytes > 0 && int64(len(upload.Data)) > s.maxUploadBytes {
		return nil, fmt.Errorf("file exceeds %d bytes: %w", s.maxUploadBytes, domain.ErrValidation)
	}

	dir := rootFilesDir
	if upload.FolderID != nil {
		folder, err := s.folders.GetByID(ctx, *upload.FolderID)
		if err != nil {
			return nil, err
		}
		if !s.perms.Authorize(ctx, actor, folder, OperationEdit) {
			return nil, fmt.Errorf("folder %d: %w", *upload.FolderID, domain.ErrForbidden)
		}
		dir = folder.Path
	}

	sanitized := SanitizeFileName(upload.OriginalName)
	fileUUID := uuid.New()
	storedName := fileUUID.String() + "_" + sanitized

	path, err := s.storage.Write(ctx, dir, storedName, upload.Data)
	if err != nil {
		log.Printf("[FILE] failed to write %q: %v", storedName, err)
		return nil, domain.ErrStorage
	}

	file := &domain.File{
		UUID:         fileUUID,
		Name:         storedName,
		OriginalName: upload.OriginalName,
		Path:         path,
		MIMEType:     upload.MIMEType,
		SizeBytes:    int64(len(upload.Data)),
		FolderID:     upload.FolderID,
		UploadedBy:   actor.ID,
	}
	if err := s.files.Create(ctx, file); err != nil {
		if delErr := s.storage.Delete(ctx, path); delErr != nil {
			log.Printf("[FILE] failed to clean up %q after create error: %v", path, delErr)
		}
		return nil, err
	}

	s.activity.Record(ctx, actor.ID, "file.upload", file,
		fmt.Sprintf("uploaded file %q", file.OriginalName),
		map[string]interface{}{"path": path, "size_bytes": file.SizeBytes})

	s.cache.Invalidate(cacheKey(actor.ID, upload.FolderID))

	return file, nil
}

func (s *FileService) Download(ctx context.Context, actor auth.Actor, fileUUID uuid.UUID) (*domain.FileDownload, error) {
	file, err := s.files.GetByUUID(ctx, fileUUID)
	if err != nil {
		return nil, err
	}
	if !s.perms.Authorize(ctx, actor, file, OperationView) {
		return nil, fmt.Errorf("file %s: %w", fileUUID, domain.ErrForbidden)
	}

	data, err := s.storage.Read(ctx, file.Path)
	if err != nil {
		log.Printf("[FILE] failed to read %q: %v", file.Path, err)
		return nil, domain.ErrStorage
	}

	s.activity.Record(ctx, actor.ID, "file.download", file,
		fmt.Sprintf("downloaded file %q", file.OriginalName), nil)

	return &domain.FileDownload{File: file, Data: data}, nil
}

// Rename изменяет отображаемое имя файла как есть, без санитизации:
// оно не попадает в пути хранилища. Физическое имя остается прежним.
func (s *FileService) Rename(ctx context.Context, actor auth.Actor, fileUUID uuid.UUID, newName string) (*domain.File, error) {
	if strings.TrimSpace(newName) == "" {
		return nil, fmt.Errorf("file name is empty: %w", domain.ErrValidation)
	}

	file, err := s.files.GetByUUID(ctx, fileUUID)
	if err != nil {
		return nil, err
	}
	if !s.perms.Authorize(ctx, actor, file, OperationRename) {
		return nil, fmt.Errorf("file %s: %w", fileUUID, domain.ErrForbidden)
	}

	if err := s.files.UpdateOriginalName(ctx, fileUUID, newName); err != nil {
		return nil, err
	}

	oldName := file.OriginalName
	file.OriginalName = newName

	s.activity.Record(ctx, actor.ID, "file.rename", file,
		fmt.Sprintf("renamed file %q to %q", oldName, newName), nil)

	s.cache.Invalidate(cacheKey(actor.ID, file.FolderID))

	return file, nil
}

// UpdateSharing включает или выключает общий доступ к файлу.
// Управлять доступом может только владелец или администратор.
func (s *FileService) UpdateSharing(ctx context.Context, actor auth.Actor, fileUUID uuid.UUID, shared bool) (*domain.File, error) {
	file, err := s.files.GetByUUID(ctx, fileUUID)
	if err != nil {
		return nil, err
	}
	if file.UploadedBy != actor.ID && !actor.IsAdmin() {
		return nil, fmt.Errorf("file %s: %w", fileUUID, domain.ErrForbidden)
	}

	if err := s.files.UpdateSharing(ctx, fileUUID, shared); err != nil {
		return nil, err
	}
	file.IsShared = shared

	action := "file.share"
	if !shared {
		action = "file.unshare"
	}
	s.activity.Record(ctx, actor.ID, action, file,
		fmt.Sprintf("changed sharing of file %q", file.OriginalName), nil)

	return file, nil
}

// Delete окончательно удаляет файл, минуя корзину. Сначала данные
// в хранилище, затем строка базы.
func (s *FileService) Delete(ctx context.Context, actor auth.Actor, fileUUID uuid.UUID) error {
	file, err := s.files.GetByUUID(ctx, fileUUID)
	if err != nil {
		return err
	}
	if !s.perms.Authorize(ctx, actor, file, OperationDelete) {
		return fmt.Errorf("file %s: %w", fileUUID, domain.ErrForbidden)
	}

	if err := s.storage.Delete(ctx, file.Path); err != nil {
		log.Printf("[FILE] failed to delete %q from storage: %v", file.Path, err)
	}

	if err := s.files.Delete(ctx, fileUUID); err != nil {
		return err
	}

	s.activity.Record(ctx, actor.ID, "file.delete", file,
		fmt.Sprintf("permanently deleted file %q", file.OriginalName),
		map[string]interface{}{"path": file.Path})

	s.cache.Invalidate(cacheKey(actor.ID, file.FolderID))

	return nil
}
