package service

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"vaultdrive/internal/auth"
	"vaultdrive/internal/domain"
)

// Operation определяет действие, на которое проверяются права
type Operation string

const (
	OperationView   Operation = "view"
	OperationEdit   Operation = "edit"
	OperationDelete Operation = "delete"
	OperationRename Operation = "rename"
)

// PermissionService отвечает на вопрос "может ли пользователь выполнить
// операцию над ресурсом" и управляет индивидуальными правами доступа.
type PermissionService struct {
	perms    PermissionStore
	files    FileStore
	folders  FolderStore
	users    UserStore
	activity *ActivityService
}

func NewPermissionService(
	perms PermissionStore,
	files FileStore,
	folders FolderStore,
	users UserStore,
	activity *ActivityService,
) *PermissionService {
	return &PermissionService{
		perms:    perms,
		files:    files,
		folders:  folders,
		users:    users,
		activity: activity,
	}
}

// Authorize проверяет право пользователя на операцию над ресурсом.
// Порядок проверки: администратор, владелец, общий доступ на просмотр,
// индивидуальные права. Ошибка чтения прав трактуется как отказ.
func (s *PermissionService) Authorize(ctx context.Context, actor auth.Actor, subject domain.Subject, op Operation) bool {
	if actor.IsAdmin() {
		return true
	}
	if subject.OwnerID() == actor.ID {
		return true
	}
	if op == OperationView && subject.Shared() {
		return true
	}

	var flags *domain.PermissionFlags
	var err error

	switch sub := subject.(type) {
	case *domain.File:
		flags, err = s.perms.GetFileFlags(ctx, sub.UUID, actor.ID)
	case *domain.Folder:
		flags, err = s.perms.GetFolderFlags(ctx, sub.ID, actor.ID)
	default:
		return false
	}
	if err != nil {
		log.Printf("[PERMISSION] failed to load flags for %s %s: %v",
			subject.SubjectType(), subject.SubjectID(), err)
		return false
	}
	if flags == nil {
		return false
	}

	switch op {
	case OperationView:
		return flags.CanView
	case OperationEdit:
		return flags.CanEdit
	case OperationDelete:
		return flags.CanDelete
	case OperationRename:
		return flags.CanRename
	default:
		return false
	}
}

// canManage проверяет право управлять правами доступа к ресурсу:
// это может владелец, администратор или пользователь с правом edit.
func (s *PermissionService) canManage(ctx context.Context, actor auth.Actor, subject domain.Subject) bool {
	return s.Authorize(ctx, actor, subject, OperationEdit)
}

func (s *PermissionService) SetFilePermission(ctx context.Context, actor auth.Actor, fileUUID uuid.UUID, userID int64, flags domain.PermissionFlags) error {
	file, err := s.files.GetByUUID(ctx, fileUUID)
	if err != nil {
		return err
	}
	if !s.canManage(ctx, actor, file) {
		return fmt.Errorf("file %s: %w", fileUUID, domain.ErrForbidden)
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return err
	}

	if err := s.perms.UpsertFileFlags(ctx, fileUUID, userID, flags); err != nil {
		return err
	}

	s.activity.Record(ctx, actor.ID, "permission.grant", file,
		fmt.Sprintf("updated file permissions for user %d", userID),
		map[string]interface{}{
			"target_user": userID,
			"can_view":    flags.CanView,
			"can_edit":    flags.CanEdit,
			"can_delete":  flags.CanDelete,
			"can_rename":  flags.CanRename,
		})

	return nil
}

func (s *PermissionService) SetFolderPermission(ctx context.Context, actor auth.Actor, folderID, userID int64, flags domain.PermissionFlags) error {
	folder, err := s.folders.GetByID(ctx, folderID)
	if err != nil {
		return err
	}
	if !s.canManage(ctx, actor, folder) {
		return fmt.Errorf("folder %d: %w", folderID, domain.ErrForbidden)
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return err
	}

	if err := s.perms.UpsertFolderFlags(ctx, folderID, userID, flags); err != nil {
		return err
	}

	s.activity.Record(ctx, actor.ID, "permission.grant", folder,
		fmt.Sprintf("updated folder permissions for user %d", userID),
		map[string]interface{}{
			"target_user": userID,
			"can_view":    flags.CanView,
			"can_edit":    flags.CanEdit,
			"can_delete":  flags.CanDelete,
			"can_rename":  flags.CanRename,
		})

	return nil
}

func (s *PermissionService) RemoveFilePermission(ctx context.Context, actor auth.Actor, fileUUID uuid.UUID, userID int64) error {
	file, err := s.files.GetByUUID(ctx, fileUUID)
	if err != nil {
		return err
	}
	if !s.canManage(ctx, actor, file) {
		return fmt.Errorf("file %s: %w", fileUUID, domain.ErrForbidden)
	}

	if err := s.perms.DeleteFileFlags(ctx, fileUUID, userID); err != nil {
		return err
	}

	s.activity.Record(ctx, actor.ID, "permission.revoke", file,
		fmt.Sprintf("revoked file permissions for user %d", userID),
		map[string]interface{}{"target_user": userID})

	return nil
}

func (s *PermissionService) RemoveFolderPermission(ctx context.Context, actor auth.Actor, folderID, userID int64) error {
	folder, err := s.folders.GetByID(ctx, folderID)
	if err != nil {
		return err
	}
	if !s.canManage(ctx, actor, folder) {
		return fmt.Errorf("folder %d: %w", folderID, domain.ErrForbidden)
	}

	if err := s.perms.DeleteFolderFlags(ctx, folderID, userID); err != nil {
		return err
	}

	s.activity.Record(ctx, actor.ID, "permission.revoke", folder,
		fmt.Sprintf("revoked folder permissions for user %d", userID),
		map[string]interface{}{"target_user": userID})

	return nil
}

func (s *PermissionService) ListFilePermissions(ctx context.Context, actor auth.Actor, fileUUID uuid.UUID) ([]domain.FilePermission, error) {
	file, err := s.files.GetByUUID(ctx, fileUUID)
	if err != nil {
		return nil, err
	}
	if !s.canManage(ctx, actor, file) {
		return nil, fmt.Errorf("file %s: %w", fileUUID, domain.ErrForbidden)
	}

	return s.perms.ListFileFlags(ctx, fileUUID)
}

func (s *PermissionService) ListFolderPermissions(ctx context.Context, actor auth.Actor, folderID int64) ([]domain.FolderPermission, error) {
	folder, err := s.folders.GetByID(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if !s.canManage(ctx, actor, folder) {
		return nil, fmt.Errorf("folder %d: %w", folderID, domain.ErrForbidden)
	}

	return s.perms.ListFolderFlags(ctx, folderID)
}
