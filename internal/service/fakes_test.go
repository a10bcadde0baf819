package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"vaultdrive/internal/cache"
	"vaultdrive/internal/domain"
	"vaultdrive/internal/storage"
)

// Фейковые хранилища повторяют семантику репозиториев в памяти.

type fakeFileStore struct {
	mu    sync.Mutex
	files map[uuid.UUID]*domain.File
}

func newFakeFileStore() *fakeFileStore {
	return &fakeFileStore{files: make(map[uuid.UUID]*domain.File)}
}

func (s *fakeFileStore) Create(_ context.Context, file *domain.File) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range s.files {
		if f.Path == file.Path {
			return fmt.Errorf("file %q already exists: %w", file.Name, domain.ErrConflict)
		}
	}

	now := time.Now()
	file.CreatedAt = now
	file.UpdatedAt = now
	clone := *file
	s.files[file.UUID] = &clone
	return nil
}

func (s *fakeFileStore) GetByUUID(_ context.Context, fileUUID uuid.UUID) (*domain.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.files[fileUUID]
	if !ok || f.DeletedAt != nil {
		return nil, fmt.Errorf("file %s: %w", fileUUID, domain.ErrNotFound)
	}
	clone := *f
	return &clone, nil
}

func (s *fakeFileStore) GetTrashedByUUID(_ context.Context, fileUUID uuid.UUID) (*domain.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.files[fileUUID]
	if !ok || f.DeletedAt == nil {
		return nil, fmt.Errorf("trashed file %s: %w", fileUUID, domain.ErrNotFound)
	}
	clone := *f
	return &clone, nil
}

func (s *fakeFileStore) ListByFolder(_ context.Context, folderID *int64, userID int64) ([]domain.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.File
	for _, f := range s.files {
		if f.DeletedAt != nil {
			continue
		}
		if !sameFolder(f.FolderID, folderID) {
			continue
		}
		if f.UploadedBy != userID && !f.IsShared {
			continue
		}
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OriginalName < out[j].OriginalName })
	return out, nil
}

func (s *fakeFileStore) ListBySubtreePath(_ context.Context, folderPath string) ([]domain.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.File
	for _, f := range s.files {
		if strings.HasPrefix(f.Path, folderPath+"/") {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (s *fakeFileStore) UpdateOriginalName(_ context.Context, fileUUID uuid.UUID, newName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.files[fileUUID]
	if !ok || f.DeletedAt != nil {
		return fmt.Errorf("file %s: %w", fileUUID, domain.ErrNotFound)
	}
	f.OriginalName = newName
	f.UpdatedAt = time.Now()
	return nil
}

func (s *fakeFileStore) UpdateSharing(_ context.Context, fileUUID uuid.UUID, isShared bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.files[fileUUID]
	if !ok || f.DeletedAt != nil {
		return fmt.Errorf("file %s: %w", fileUUID, domain.ErrNotFound)
	}
	f.IsShared = isShared
	f.UpdatedAt = time.Now()
	return nil
}

func (s *fakeFileStore) SoftDelete(_ context.Context, fileUUID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.files[fileUUID]
	if !ok || f.DeletedAt != nil {
		return fmt.Errorf("file %s: %w", fileUUID, domain.ErrNotFound)
	}
	now := time.Now()
	f.DeletedAt = &now
	return nil
}

func (s *fakeFileStore) Restore(_ context.Context, fileUUID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.files[fileUUID]
	if !ok || f.DeletedAt == nil {
		return fmt.Errorf("trashed file %s: %w", fileUUID, domain.ErrNotFound)
	}
	f.DeletedAt = nil
	return nil
}

func (s *fakeFileStore) Delete(_ context.Context, fileUUID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[fileUUID]; !ok {
		return fmt.Errorf("file %s: %w", fileUUID, domain.ErrNotFound)
	}
	delete(s.files, fileUUID)
	return nil
}

func (s *fakeFileStore) ListTrashedByOwner(_ context.Context, userID int64) ([]domain.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.File
	for _, f := range s.files {
		if f.DeletedAt != nil && f.UploadedBy == userID {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (s *fakeFileStore) DeleteTrashedByOwner(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, f := range s.files {
		if f.DeletedAt != nil && f.UploadedBy == userID {
			delete(s.files, id)
		}
	}
	return nil
}

func (s *fakeFileStore) SumActiveSizeByOwner(_ context.Context, userID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total int64
	for _, f := range s.files {
		if f.DeletedAt == nil && f.UploadedBy == userID {
			total += f.SizeBytes
		}
	}
	return total, nil
}

func (s *fakeFileStore) rewritePaths(oldPrefix, newPrefix string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range s.files {
		if strings.HasPrefix(f.Path, oldPrefix+"/") {
			f.Path = newPrefix + strings.TrimPrefix(f.Path, oldPrefix)
		}
	}
}

type fakeFolderStore struct {
	mu      sync.Mutex
	folders map[int64]*domain.Folder
	files   *fakeFileStore
	nextID  int64
}

func newFakeFolderStore(files *fakeFileStore) *fakeFolderStore {
	return &fakeFolderStore{
		folders: make(map[int64]*domain.Folder),
		files:   files,
	}
}

func (s *fakeFolderStore) Create(_ context.Context, folder *domain.Folder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range s.folders {
		if f.DeletedAt == nil && f.Name == folder.Name && f.CreatedBy == folder.CreatedBy && sameFolder(f.ParentID, folder.ParentID) {
			return fmt.Errorf("folder %q already exists: %w", folder.Name, domain.ErrConflict)
		}
	}

	s.nextID++
	folder.ID = s.nextID
	now := time.Now()
	folder.CreatedAt = now
	folder.UpdatedAt = now
	clone := *folder
	s.folders[folder.ID] = &clone
	return nil
}

func (s *fakeFolderStore) GetByID(_ context.Context, id int64) (*domain.Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.folders[id]
	if !ok || f.DeletedAt != nil {
		return nil, fmt.Errorf("folder %d: %w", id, domain.ErrNotFound)
	}
	clone := *f
	return &clone, nil
}

func (s *fakeFolderStore) GetTrashedByID(_ context.Context, id int64) (*domain.Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.folders[id]
	if !ok || f.DeletedAt == nil {
		return nil, fmt.Errorf("trashed folder %d: %w", id, domain.ErrNotFound)
	}
	clone := *f
	return &clone, nil
}

func (s *fakeFolderStore) GetSubtree(_ context.Context, rootID int64) ([]domain.Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	root, ok := s.folders[rootID]
	if !ok {
		return nil, fmt.Errorf("folder %d: %w", rootID, domain.ErrNotFound)
	}

	var out []domain.Folder
	for _, f := range s.folders {
		if strings.HasPrefix(f.Path, root.Path+"/") {
			out = append(out, *f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (s *fakeFolderStore) UpdateFolderName(_ context.Context, folderID int64, newName, oldPath, newPath string, descendants []domain.PathUpdate) error {
	s.mu.Lock()

	f, ok := s.folders[folderID]
	if !ok || f.DeletedAt != nil {
		s.mu.Unlock()
		return fmt.Errorf("folder %d: %w", folderID, domain.ErrNotFound)
	}
	f.Name = newName
	f.Path = newPath
	f.UpdatedAt = time.Now()
	for _, u := range descendants {
		if d, ok := s.folders[u.ID]; ok {
			d.Path = u.Path
		}
	}
	s.mu.Unlock()

	s.files.rewritePaths(oldPath, newPath)
	return nil
}

func (s *fakeFolderStore) UpdateFolderParent(_ context.Context, folderID int64, newParentID *int64, oldPath, newPath string, descendants []domain.PathUpdate) error {
	s.mu.Lock()

	f, ok := s.folders[folderID]
	if !ok || f.DeletedAt != nil {
		s.mu.Unlock()
		return fmt.Errorf("folder %d: %w", folderID, domain.ErrNotFound)
	}
	f.ParentID = newParentID
	f.Path = newPath
	f.UpdatedAt = time.Now()
	for _, u := range descendants {
		if d, ok := s.folders[u.ID]; ok {
			d.Path = u.Path
		}
	}
	s.mu.Unlock()

	s.files.rewritePaths(oldPath, newPath)
	return nil
}

func (s *fakeFolderStore) UpdateSharing(_ context.Context, id int64, isShared bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.folders[id]
	if !ok || f.DeletedAt != nil {
		return fmt.Errorf("folder %d: %w", id, domain.ErrNotFound)
	}
	f.IsShared = isShared
	return nil
}

func (s *fakeFolderStore) subtreeIDs(rootID int64) map[int64]bool {
	root := s.folders[rootID]
	ids := map[int64]bool{rootID: true}
	for id, f := range s.folders {
		if strings.HasPrefix(f.Path, root.Path+"/") {
			ids[id] = true
		}
	}
	return ids
}

func (s *fakeFolderStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()

	if _, ok := s.folders[id]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("folder %d: %w", id, domain.ErrNotFound)
	}
	ids := s.subtreeIDs(id)
	for fid := range ids {
		delete(s.folders, fid)
	}
	s.mu.Unlock()

	s.files.mu.Lock()
	defer s.files.mu.Unlock()
	for fu, f := range s.files.files {
		if f.FolderID != nil && ids[*f.FolderID] {
			delete(s.files.files, fu)
		}
	}
	return nil
}

func (s *fakeFolderStore) SoftDeleteSubtree(_ context.Context, id int64) error {
	s.mu.Lock()

	f, ok := s.folders[id]
	if !ok || f.DeletedAt != nil {
		s.mu.Unlock()
		return fmt.Errorf("folder %d: %w", id, domain.ErrNotFound)
	}
	now := time.Now()
	ids := s.subtreeIDs(id)
	for fid := range ids {
		if d := s.folders[fid]; d.DeletedAt == nil {
			d.DeletedAt = &now
		}
	}
	s.mu.Unlock()

	s.files.mu.Lock()
	defer s.files.mu.Unlock()
	for _, file := range s.files.files {
		if file.DeletedAt == nil && file.FolderID != nil && ids[*file.FolderID] {
			file.DeletedAt = &now
		}
	}
	return nil
}

func (s *fakeFolderStore) RestoreSubtree(_ context.Context, id int64) error {
	s.mu.Lock()

	f, ok := s.folders[id]
	if !ok || f.DeletedAt == nil {
		s.mu.Unlock()
		return fmt.Errorf("trashed folder %d: %w", id, domain.ErrNotFound)
	}
	ids := s.subtreeIDs(id)
	for fid := range ids {
		s.folders[fid].DeletedAt = nil
	}
	s.mu.Unlock()

	s.files.mu.Lock()
	defer s.files.mu.Unlock()
	for _, file := range s.files.files {
		if file.DeletedAt != nil && file.FolderID != nil && ids[*file.FolderID] {
			file.DeletedAt = nil
		}
	}
	return nil
}

func (s *fakeFolderStore) ListByParent(_ context.Context, parentID *int64, userID int64) ([]domain.Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Folder
	for _, f := range s.folders {
		if f.DeletedAt != nil || !sameFolder(f.ParentID, parentID) {
			continue
		}
		if f.CreatedBy != userID && !f.IsShared {
			continue
		}
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *fakeFolderStore) ListByOwner(_ context.Context, userID int64) ([]domain.Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Folder
	for _, f := range s.folders {
		if f.DeletedAt == nil && f.CreatedBy == userID {
			out = append(out, *f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (s *fakeFolderStore) ListTrashedByOwner(_ context.Context, userID int64) ([]domain.Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Folder
	for _, f := range s.folders {
		if f.DeletedAt != nil && f.CreatedBy == userID {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (s *fakeFolderStore) DeleteTrashedByOwner(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, f := range s.folders {
		if f.DeletedAt != nil && f.CreatedBy == userID {
			delete(s.folders, id)
		}
	}
	return nil
}

type permKey struct {
	subject string
	userID  int64
}

type fakePermissionStore struct {
	mu    sync.Mutex
	flags map[permKey]domain.PermissionFlags
}

func newFakePermissionStore() *fakePermissionStore {
	return &fakePermissionStore{flags: make(map[permKey]domain.PermissionFlags)}
}

func (s *fakePermissionStore) GetFileFlags(_ context.Context, fileUUID uuid.UUID, userID int64) (*domain.PermissionFlags, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	flags, ok := s.flags[permKey{fileUUID.String(), userID}]
	if !ok {
		return nil, nil
	}
	return &flags, nil
}

func (s *fakePermissionStore) GetFolderFlags(_ context.Context, folderID, userID int64) (*domain.PermissionFlags, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	flags, ok := s.flags[permKey{fmt.Sprintf("folder-%d", folderID), userID}]
	if !ok {
		return nil, nil
	}
	return &flags, nil
}

func (s *fakePermissionStore) UpsertFileFlags(_ context.Context, fileUUID uuid.UUID, userID int64, flags domain.PermissionFlags) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags[permKey{fileUUID.String(), userID}] = flags
	return nil
}

func (s *fakePermissionStore) UpsertFolderFlags(_ context.Context, folderID, userID int64, flags domain.PermissionFlags) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags[permKey{fmt.Sprintf("folder-%d", folderID), userID}] = flags
	return nil
}

func (s *fakePermissionStore) DeleteFileFlags(_ context.Context, fileUUID uuid.UUID, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := permKey{fileUUID.String(), userID}
	if _, ok := s.flags[key]; !ok {
		return fmt.Errorf("file permission for user %d: %w", userID, domain.ErrNotFound)
	}
	delete(s.flags, key)
	return nil
}

func (s *fakePermissionStore) DeleteFolderFlags(_ context.Context, folderID, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := permKey{fmt.Sprintf("folder-%d", folderID), userID}
	if _, ok := s.flags[key]; !ok {
		return fmt.Errorf("folder permission for user %d: %w", userID, domain.ErrNotFound)
	}
	delete(s.flags, key)
	return nil
}

func (s *fakePermissionStore) ListFileFlags(_ context.Context, fileUUID uuid.UUID) ([]domain.FilePermission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.FilePermission
	for key, flags := range s.flags {
		if key.subject == fileUUID.String() {
			out = append(out, domain.FilePermission{
				FileUUID:        fileUUID,
				UserID:          key.userID,
				PermissionFlags: flags,
			})
		}
	}
	return out, nil
}

func (s *fakePermissionStore) ListFolderFlags(_ context.Context, folderID int64) ([]domain.FolderPermission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.FolderPermission
	for key, flags := range s.flags {
		if key.subject == fmt.Sprintf("folder-%d", folderID) {
			out = append(out, domain.FolderPermission{
				FolderID:        folderID,
				UserID:          key.userID,
				PermissionFlags: flags,
			})
		}
	}
	return out, nil
}

type fakeUserStore struct {
	mu    sync.Mutex
	users map[int64]*domain.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[int64]*domain.User)}
}

func (s *fakeUserStore) GetByID(_ context.Context, id int64) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
	}
	clone := *u
	return &clone, nil
}

func (s *fakeUserStore) List(_ context.Context) ([]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.User
	for _, u := range s.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeUserStore) UpdateRole(_ context.Context, id int64, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
	}
	u.Role = role
	return nil
}

func (s *fakeUserStore) add(id int64, role string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = &domain.User{
		ID:   id,
		Name: fmt.Sprintf("user-%d", id),
		Role: role,
	}
}

type fakeActivityStore struct {
	mu      sync.Mutex
	entries []domain.ActivityLog
}

func newFakeActivityStore() *fakeActivityStore {
	return &fakeActivityStore{}
}

func (s *fakeActivityStore) Record(_ context.Context, entry *domain.ActivityLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.ID = int64(len(s.entries) + 1)
	entry.CreatedAt = time.Now()
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *fakeActivityStore) ListByUser(_ context.Context, userID int64, limit int) ([]domain.ActivityLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.ActivityLog
	for i := len(s.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if s.entries[i].UserID == userID {
			out = append(out, s.entries[i])
		}
	}
	return out, nil
}

func (s *fakeActivityStore) ListAll(_ context.Context, limit int) ([]domain.ActivityLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.ActivityLog
	for i := len(s.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.entries[i])
	}
	return out, nil
}

func (s *fakeActivityStore) actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.Action)
	}
	return out
}

// countingStorage считает обращения к физическому хранилищу
type countingStorage struct {
	storage.Storage
	mu      sync.Mutex
	moves   int
	deletes int
}

func newCountingStorage() *countingStorage {
	return &countingStorage{Storage: storage.NewMemoryStorage()}
}

func (c *countingStorage) Move(ctx context.Context, oldPath, newPath string) error {
	c.mu.Lock()
	c.moves++
	c.mu.Unlock()
	return c.Storage.Move(ctx, oldPath, newPath)
}

func (c *countingStorage) Delete(ctx context.Context, path string) error {
	c.mu.Lock()
	c.deletes++
	c.mu.Unlock()
	return c.Storage.Delete(ctx, path)
}

func (c *countingStorage) memory() *storage.MemoryStorage {
	return c.Storage.(*storage.MemoryStorage)
}

func sameFolder(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// testEnv собирает сервисы поверх фейковых хранилищ
type testEnv struct {
	files    *fakeFileStore
	folders  *fakeFolderStore
	perms    *fakePermissionStore
	users    *fakeUserStore
	activity *fakeActivityStore
	store    *countingStorage

	permissionService *PermissionService
	folderService     *FolderService
	fileService       *FileService
	trashService      *TrashService
	quotaService      *QuotaService
	userService       *UserService
	activityService   *ActivityService
}

func newTestEnv() *testEnv {
	files := newFakeFileStore()
	folders := newFakeFolderStore(files)
	perms := newFakePermissionStore()
	users := newFakeUserStore()
	activityStore := newFakeActivityStore()
	store := newCountingStorage()
	listCache := cache.NewListingCache(cache.DefaultTTL)

	activityService := NewActivityService(activityStore)
	permissionService := NewPermissionService(perms, files, folders, users, activityService)
	folderService := NewFolderService(folders, files, store, permissionService, activityService, listCache)
	fileService := NewFileService(files, folders, store, permissionService, activityService, listCache, 20*1024*1024)
	trashService := NewTrashService(files, folders, store, permissionService, activityService, listCache)
	quotaService := NewQuotaService(files, 1000*1024*1024)
	userService := NewUserService(users, activityService)

	return &testEnv{
		files:             files,
		folders:           folders,
		perms:             perms,
		users:             users,
		activity:          activityStore,
		store:             store,
		permissionService: permissionService,
		folderService:     folderService,
		fileService:       fileService,
		trashService:      trashService,
		quotaService:      quotaService,
		userService:       userService,
		activityService:   activityService,
	}
}
