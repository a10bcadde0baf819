package handler

import (
	"net/http"

	"vaultdrive/internal/auth"
	"vaultdrive/internal/service"
)

type TrashHandler struct {
	trashService *service.TrashService
}

func NewTrashHandler(trashService *service.TrashService) *TrashHandler {
	return &TrashHandler{trashService: trashService}
}

func (h *TrashHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	content, err := h.trashService.List(r.Context(), actor)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, content)
}

func (h *TrashHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
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

	if err := h.trashService.SoftDeleteFile(r.Context(), actor, fileUUID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *TrashHandler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
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

	if err := h.trashService.SoftDeleteFolder(r.Context(), actor, folderID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *TrashHandler) RestoreFile(w http.ResponseWriter, r *http.Request) {
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

	if err := h.trashService.RestoreFile(r.Context(), actor, fileUUID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *TrashHandler) RestoreFolder(w http.ResponseWriter, r *http.Request) {
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

	if err := h.trashService.RestoreFolder(r.Context(), actor, folderID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *TrashHandler) PurgeFile(w http.ResponseWriter, r *http.Request) {
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

	if err := h.trashService.PurgeFile(r.Context(), actor, fileUUID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *TrashHandler) PurgeFolder(w http.ResponseWriter, r *http.Request) {
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

	if err := h.trashService.PurgeFolder(r.Context(), actor, folderID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *TrashHandler) Empty(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.trashService.Empty(r.Context(), actor); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
