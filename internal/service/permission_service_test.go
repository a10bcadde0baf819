package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultdrive/internal/auth"
	"vaultdrive/internal/domain"
)

func TestAuthorizeOwner(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	owner := auth.Actor{ID: 1, Role: domain.RoleRegular}

	folder, err := env.folderService.Create(ctx, owner, "docs", nil)
	require.NoError(t, err)

	for _, op := range []Operation{OperationView, OperationEdit, OperationDelete, OperationRename} {
		assert.True(t, env.permissionService.Authorize(ctx, owner, folder, op),
			"owner must be allowed to %s", op)
	}
}

func TestAuthorizeAdmin(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	owner := auth.Actor{ID: 1, Role: domain.RoleRegular}
	admin := auth.Actor{ID: 99, Role: domain.RoleAdministrator}

	folder, err := env.folderService.Create(ctx, owner, "docs", nil)
	require.NoError(t, err)

	for _, op := range []Operation{OperationView, OperationEdit, OperationDelete, OperationRename} {
		assert.True(t, env.permissionService.Authorize(ctx, admin, folder, op),
			"admin must be allowed to %s", op)
	}
}

func TestAuthorizeStrangerPrivate(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	owner := auth.Actor{ID: 1, Role: domain.RoleRegular}
	stranger := auth.Actor{ID: 2, Role: domain.RoleRegular}

	folder, err := env.folderService.Create(ctx, owner, "docs", nil)
	require.NoError(t, err)

	for _, op := range []Operation{OperationView, OperationEdit, OperationDelete, OperationRename} {
		assert.False(t, env.permissionService.Authorize(ctx, stranger, folder, op),
			"stranger must not be allowed to %s a private folder", op)
	}
}

func TestAuthorizeSharedGrantsViewOnly(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	owner := auth.Actor{ID: 1, Role: domain.RoleRegular}
	stranger := auth.Actor{ID: 2, Role: domain.RoleRegular}

	folder, err := env.folderService.Create(ctx, owner, "docs", nil)
	require.NoError(t, err)
	folder, err = env.folderService.UpdateSharing(ctx, owner, folder.ID, true)
	require.NoError(t, err)

	assert.True(t, env.permissionService.Authorize(ctx, stranger, folder, OperationView))
	assert.False(t, env.permissionService.Authorize(ctx, stranger, folder, OperationEdit))
	assert.False(t, env.permissionService.Authorize(ctx, stranger, folder, OperationDelete))
	assert.False(t, env.permissionService.Authorize(ctx, stranger, folder, OperationRename))
}

func TestAuthorizeIndependentFlags(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	owner := auth.Actor{ID: 1, Role: domain.RoleRegular}
	grantee := auth.Actor{ID: 2, Role: domain.RoleRegular}
	env.users.add(2, domain.RoleRegular)

	folder, err := env.folderService.Create(ctx, owner, "docs", nil)
	require.NoError(t, err)

	err = env.permissionService.SetFolderPermission(ctx, owner, folder.ID, grantee.ID, domain.PermissionFlags{
		CanView:   true,
		CanRename: true,
	})
	require.NoError(t, err)

	assert.True(t, env.permissionService.Authorize(ctx, grantee, folder, OperationView))
	assert.True(t, env.permissionService.Authorize(ctx, grantee, folder, OperationRename))
	assert.False(t, env.permissionService.Authorize(ctx, grantee, folder, OperationEdit),
		"rename permission must not imply edit")
	assert.False(t, env.permissionService.Authorize(ctx, grantee, folder, OperationDelete),
		"rename permission must not imply delete")
}

func TestSetPermissionRequiresEdit(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	owner := auth.Actor{ID: 1, Role: domain.RoleRegular}
	stranger := auth.Actor{ID: 2, Role: domain.RoleRegular}
	env.users.add(3, domain.RoleRegular)

	folder, err := env.folderService.Create(ctx, owner, "docs", nil)
	require.NoError(t, err)

	err = env.permissionService.SetFolderPermission(ctx, stranger, folder.ID, 3, domain.PermissionFlags{CanView: true})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestSetPermissionUnknownUser(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	owner := auth.Actor{ID: 1, Role: domain.RoleRegular}

	folder, err := env.folderService.Create(ctx, owner, "docs", nil)
	require.NoError(t, err)

	err = env.permissionService.SetFolderPermission(ctx, owner, folder.ID, 42, domain.PermissionFlags{CanView: true})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRemovePermissionRevokesAccess(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	owner := auth.Actor{ID: 1, Role: domain.RoleRegular}
	grantee := auth.Actor{ID: 2, Role: domain.RoleRegular}
	env.users.add(2, domain.RoleRegular)

	folder, err := env.folderService.Create(ctx, owner, "docs", nil)
	require.NoError(t, err)

	require.NoError(t, env.permissionService.SetFolderPermission(ctx, owner, folder.ID, grantee.ID,
		domain.PermissionFlags{CanView: true, CanEdit: true}))
	assert.True(t, env.permissionService.Authorize(ctx, grantee, folder, OperationEdit))

	require.NoError(t, env.permissionService.RemoveFolderPermission(ctx, owner, folder.ID, grantee.ID))
	assert.False(t, env.permissionService.Authorize(ctx, grantee, folder, OperationEdit))
	assert.False(t, env.permissionService.Authorize(ctx, grantee, folder, OperationView))
}

func TestFilePermissionGrant(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	owner := auth.Actor{ID: 1, Role: domain.RoleRegular}
	grantee := auth.Actor{ID: 2, Role: domain.RoleRegular}
	env.users.add(2, domain.RoleRegular)

	file, err := env.fileService.Upload(ctx, owner, domain.FileUpload{
		OriginalName: "report.pdf",
		MIMEType:     "application/pdf",
		Data:         []byte("content"),
	})
	require.NoError(t, err)

	assert.False(t, env.permissionService.Authorize(ctx, grantee, file, OperationView))

	require.NoError(t, env.permissionService.SetFilePermission(ctx, owner, file.UUID, grantee.ID,
		domain.PermissionFlags{CanView: true}))
	assert.True(t, env.permissionService.Authorize(ctx, grantee, file, OperationView))
	assert.False(t, env.permissionService.Authorize(ctx, grantee, file, OperationDelete))

	perms, err := env.permissionService.ListFilePermissions(ctx, owner, file.UUID)
	require.NoError(t, err)
	require.Len(t, perms, 1)
	assert.Equal(t, grantee.ID, perms[0].UserID)
	assert.True(t, perms[0].CanView)
}
