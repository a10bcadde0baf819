package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"vaultdrive/internal/auth"
	"vaultdrive/internal/service"
)

type FolderHandler struct {
	folderService *service.FolderService
}

func NewFolderHandler(folderService *service.FolderService) *FolderHandler {
	return &FolderHandler{folderService: folderService}
}

type createFolderRequest struct {
	Name     string `json:"name"`
	ParentID *int64 `json:"parent_id,omitempty"`
}

type renameRequest struct {
	Name string `json:"name"`
}

type moveFolderRequest struct {
	ParentID *int64 `json:"parent_id"`
}

type shareRequest struct {
	Shared bool `json:"shared"`
}

func (h *FolderHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req createFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	folder, err := h.folderService.Create(r.Context(), actor, req.Name, req.ParentID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, folder)
}

// GetContent возвращает содержимое папки. Без идентификатора
// возвращается корневой уровень.
func (h *FolderHandler) GetContent(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var folderID *int64
	if idStr := chi.URLParam(r, "id"); idStr != "" {
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			http.Error(w, "Invalid folder ID", http.StatusBadRequest)
			return
		}
		folderID = &id
	}

	content, err := h.folderService.GetContent(r.Context(), actor, folderID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, content)
}

func (h *FolderHandler) GetStructure(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	folders, err := h.folderService.GetStructure(r.Context(), actor)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, folders)
}

func (h *FolderHandler) Rename(w http.ResponseWriter, r *http.Request) {
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

	var req renameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	folder, err := h.folderService.Rename(r.Context(), actor, folderID, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, folder)
}

func (h *FolderHandler) Move(w http.ResponseWriter, r *http.Request) {
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

	var req moveFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	folder, err := h.folderService.Reparent(r.Context(), actor, folderID, req.ParentID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, folder)
}

func (h *FolderHandler) UpdateSharing(w http.ResponseWriter, r *http.Request) {
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

	var req shareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	folder, err := h.folderService.UpdateSharing(r.Context(), actor, folderID, req.Shared)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, folder)
}

// DeletePermanent удаляет папку с поддеревом, минуя корзину
func (h *FolderHandler) DeletePermanent(w http.ResponseWriter, r *http.Request) {
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

	if err := h.folderService.Delete(r.Context(), actor, folderID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func parseFolderID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
