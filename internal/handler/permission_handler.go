package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"vaultdrive/internal/auth"
	"vaultdrive/internal/domain"
	"vaultdrive/internal/service"
)

type PermissionHandler struct {
	permissionService *service.PermissionService
}

func NewPermissionHandler(permissionService *service.PermissionService) *PermissionHandler {
	return &PermissionHandler{permissionService: permissionService}
}

type permissionRequest struct {
	CanView   bool `json:"can_view"`
	CanEdit   bool `json:"can_edit"`
	CanDelete bool `json:"can_delete"`
	CanRename bool `json:"can_rename"`
}

func (req permissionRequest) flags() domain.PermissionFlags {
	return domain.PermissionFlags{
		CanView:   req.CanView,
		CanEdit:   req.CanEdit,
		CanDelete: req.CanDelete,
		CanRename: req.CanRename,
	}
}

func (h *PermissionHandler) SetFilePermission(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	fileUUID, err := parseFileUUID(r)
	if err != nil {
		http.Error(w, "Invalid file UUID", http.StatusBadRequest)
		return
	}
	userID, err := parseUserID(r)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	var req permissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.permissionService.SetFilePermission(r.Context(), actor, fileUUID, userID, req.flags()); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *PermissionHandler) SetFolderPermission(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	folderID, err := parseFolderID(r)
	if err != nil {
		http.Error(w, "Invalid folder ID", http.StatusBadRequest)
		return
	}
	userID, err := parseUserID(r)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	var req permissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.permissionService.SetFolderPermission(r.Context(), actor, folderID, userID, req.flags()); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *PermissionHandler) RemoveFilePermission(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	fileUUID, err := parseFileUUID(r)
	if err != nil {
		http.Error(w, "Invalid file UUID", http.StatusBadRequest)
		return
	}
	userID, err := parseUserID(r)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	if err := h.permissionService.RemoveFilePermission(r.Context(), actor, fileUUID, userID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *PermissionHandler) RemoveFolderPermission(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	folderID, err := parseFolderID(r)
	if err != nil {
		http.Error(w, "Invalid folder ID", http.StatusBadRequest)
		return
	}
	userID, err := parseUserID(r)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	if err := h.permissionService.RemoveFolderPermission(r.Context(), actor, folderID, userID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *PermissionHandler) ListFilePermissions(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	fileUUID, err := parseFileUUID(r)
	if err != nil {
		http.Error(w, "Invalid file UUID", http.StatusBadRequest)
		return
	}

	perms, err := h.permissionService.ListFilePermissions(r.Context(), actor, fileUUID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, perms)
}

func (h *PermissionHandler) ListFolderPermissions(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	folderID, err := parseFolderID(r)
	if err != nil {
		http.Error(w, "Invalid folder ID", http.StatusBadRequest)
		return
	}

	perms, err := h.permissionService.ListFolderPermissions(r.Context(), actor, folderID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, perms)
}

func parseUserID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
}
