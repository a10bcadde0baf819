package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultdrive/internal/auth"
	"vaultdrive/internal/domain"
)

func TestActivityRecordedOnOperations(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	owner := auth.Actor{ID: 1, Role: domain.RoleRegular}

	folder, err := env.folderService.Create(ctx, owner, "docs", nil)
	require.NoError(t, err)

	file, err := env.fileService.Upload(ctx, owner, domain.FileUpload{
		OriginalName: "a.txt",
		FolderID:     &folder.ID,
		Data:         []byte("x"),
	})
	require.NoError(t, err)

	require.NoError(t, env.trashService.SoftDeleteFile(ctx, owner, file.UUID))

	actions := env.activity.actions()
	assert.Contains(t, actions, "folder.create")
	assert.Contains(t, actions, "file.upload")
	assert.Contains(t, actions, "file.trash")
}

func TestActivityListScope(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	first := auth.Actor{ID: 1, Role: domain.RoleRegular}
	second := auth.Actor{ID: 2, Role: domain.RoleRegular}
	admin := auth.Actor{ID: 3, Role: domain.RoleAdministrator}

	_, err := env.folderService.Create(ctx, first, "a", nil)
	require.NoError(t, err)
	_, err = env.folderService.Create(ctx, second, "b", nil)
	require.NoError(t, err)

	own, err := env.activityService.List(ctx, first, 0)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, first.ID, own[0].UserID)

	all, err := env.activityService.List(ctx, admin, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestUpdateRoleAdminOnly(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	admin := auth.Actor{ID: 1, Role: domain.RoleAdministrator}
	regular := auth.Actor{ID: 2, Role: domain.RoleRegular}
	env.users.add(2, domain.RoleRegular)

	_, err := env.userService.UpdateRole(ctx, regular, 2, domain.RoleManager)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	user, err := env.userService.UpdateRole(ctx, admin, 2, domain.RoleManager)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleManager, user.Role)

	_, err = env.userService.UpdateRole(ctx, admin, 2, "superuser")
	assert.ErrorIs(t, err, domain.ErrValidation)
}
